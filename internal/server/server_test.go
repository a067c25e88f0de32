package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/partmanager/internal/activity"
	"github.com/matthewbaird/partmanager/internal/event"
	"github.com/matthewbaird/partmanager/internal/payments"
	"github.com/matthewbaird/partmanager/internal/portfolio"
	"github.com/matthewbaird/partmanager/internal/schema"
	"github.com/matthewbaird/partmanager/internal/snapshot"
	"github.com/matthewbaird/partmanager/internal/store"
	"github.com/matthewbaird/partmanager/internal/types"
)

type testAPI struct {
	t       *testing.T
	handler http.Handler
	user    string
	pass    string
}

func newTestAPI(t *testing.T, user, pass string, opts ...func(*Config)) *testAPI {
	t.Helper()
	v, err := schema.New()
	require.NoError(t, err)
	n := 0
	ids := func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	}
	acts := activity.NewMemoryStore()
	m, err := portfolio.New(context.Background(), store.NewMemoryStore(), snapshot.NewDecoder(v, ids),
		portfolio.WithIDs(ids),
		portfolio.WithClock(func() time.Time { return time.Date(2024, time.February, 10, 9, 0, 0, 0, time.UTC) }),
		portfolio.WithRecorder(event.NewActivityRecorder(acts)),
	)
	require.NoError(t, err)
	cfg := Config{Portfolio: m, Activity: acts, AuthUser: user, AuthPass: pass}
	for _, opt := range opts {
		opt(&cfg)
	}
	h := NewRouter(cfg)
	return &testAPI{t: t, handler: h, user: user, pass: pass}
}

func (a *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(a.t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	if a.user != "" {
		req.SetBasicAuth(a.user, a.pass)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// seed creates a building, an apartment and one room.
func (a *testAPI) seed() (types.Building, types.Apartment, types.Room) {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/v1/buildings", map[string]string{"name": "Main"})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	b := decode[types.Building](a.t, rec)

	rec = a.do(http.MethodPost, "/v1/buildings/"+b.ID+"/apartments", map[string]string{"name": "Flat 1"})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	apt := decode[types.Apartment](a.t, rec)

	rec = a.do(http.MethodPost, "/v1/apartments/"+apt.ID+"/rooms", map[string]any{"name": "Front", "rentMin": 1000, "rentMax": 1200})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	room := decode[types.Room](a.t, rec)
	return b, apt, room
}

func (a *testAPI) tenant(aptID, roomID string, body map[string]any) types.Tenant {
	a.t.Helper()
	body["roomId"] = roomID
	rec := a.do(http.MethodPost, "/v1/apartments/"+aptID+"/tenants", body)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[types.Tenant](a.t, rec)
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t, "admin", "secret")
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestBasicAuth(t *testing.T) {
	api := newTestAPI(t, "admin", "secret")

	req := httptest.NewRequest(http.MethodGet, "/v1/buildings", nil)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	req = httptest.NewRequest(http.MethodGet, "/v1/buildings", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodGet, "/v1/buildings", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBuildingsAndApartments(t *testing.T) {
	api := newTestAPI(t, "", "")
	b, apt, _ := api.seed()

	rec := api.do(http.MethodGet, "/v1/buildings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]types.Building](t, rec)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Apartments, 1)

	rec = api.do(http.MethodPatch, "/v1/buildings/"+b.ID, map[string]string{"name": "North"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "North", decode[types.Building](t, rec).Name)

	rec = api.do(http.MethodPatch, "/v1/apartments/"+apt.ID, map[string]string{"name": "Flat 2"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Flat 2", decode[types.Apartment](t, rec).Name)

	rec = api.do(http.MethodGet, "/v1/apartments/"+apt.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Flat 2", decode[types.Apartment](t, rec).Name)

	rec = api.do(http.MethodDelete, "/v1/apartments/"+apt.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(http.MethodGet, "/v1/apartments/"+apt.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodDelete, "/v1/buildings/"+b.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(http.MethodGet, "/v1/buildings/"+b.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestErrorEnvelope(t *testing.T) {
	api := newTestAPI(t, "", "")

	rec := api.do(http.MethodPost, "/v1/buildings", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_JSON", decode[map[string]string](t, rec)["code"])

	rec = api.do(http.MethodPost, "/v1/buildings", map[string]string{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode[map[string]string](t, rec)["code"])

	rec = api.do(http.MethodGet, "/v1/buildings/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "NOT_FOUND", body["code"])
	assert.NotEmpty(t, body["error"])
}

func TestRoomsAndExpenses(t *testing.T) {
	api := newTestAPI(t, "", "")
	_, apt, room := api.seed()
	base := "/v1/apartments/" + apt.ID

	rec := api.do(http.MethodPatch, base+"/rooms/"+room.ID, map[string]any{"rentMax": 1400})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1400.0, decode[types.Room](t, rec).RentMax)

	rec = api.do(http.MethodPatch, base+"/rooms/"+room.ID, map[string]any{"rentMin": 2000})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, base+"/expenses", map[string]any{"name": "Insurance", "amount": 1200, "cadence": "yearly"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	exp := decode[types.Expense](t, rec)

	rec = api.do(http.MethodPatch, base+"/expenses/"+exp.ID, map[string]any{"cadence": "weekly"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	api.tenant(apt.ID, room.ID, map[string]any{"name": "Ana", "startDate": "2024-01-01"})
	rec = api.do(http.MethodDelete, base+"/rooms/"+room.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", decode[map[string]string](t, rec)["code"])

	rec = api.do(http.MethodDelete, base+"/expenses/"+exp.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTenantsAndPresence(t *testing.T) {
	api := newTestAPI(t, "", "")
	_, apt, room := api.seed()
	base := "/v1/apartments/" + apt.ID

	tn := api.tenant(apt.ID, room.ID, map[string]any{
		"name": "Ana", "startDate": "2024-01-01", "endDate": "2024-01-31",
	})

	rec := api.do(http.MethodPost, base+"/tenants/"+tn.ID+"/toggle-date", map[string]string{"date": "2024-01-15"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"2024-01-15"}, decode[types.Tenant](t, rec).DisabledDates)

	rec = api.do(http.MethodPost, base+"/tenants/"+tn.ID+"/toggle-date", map[string]string{"date": "2024-03-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, base+"/tenants/"+tn.ID+"/toggle-date", map[string]string{"date": "01/15/2024"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_DATE", decode[map[string]string](t, rec)["code"])

	rec = api.do(http.MethodGet, base+"/tenants/"+tn.ID+"/presence?from=2024-01-01&to=2024-01-31", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 30.0, decode[map[string]any](t, rec)["days"])

	rec = api.do(http.MethodPatch, base+"/tenants/"+tn.ID, map[string]any{"endDate": "2023-12-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPatch, base+"/tenants/"+tn.ID, map[string]any{"email": "ana@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ana@example.com", decode[types.Tenant](t, rec).Email)

	rec = api.do(http.MethodDelete, base+"/tenants/"+tn.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRentPayments(t *testing.T) {
	api := newTestAPI(t, "", "")
	_, apt, room := api.seed()
	base := "/v1/apartments/" + apt.ID
	api.tenant(apt.ID, room.ID, map[string]any{"name": "Ana", "startDate": "2024-01-01", "rentCollectionDay": 31})

	rec := api.do(http.MethodPost, base+"/payments/rent", map[string]int{"month": 2, "year": 2024})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[struct{ Payments []types.Payment }](t, rec).Payments
	require.Len(t, created, 1)
	assert.Equal(t, "2024-02-29", created[0].DueDate)
	assert.Equal(t, 1100.0, created[0].Amount)

	rec = api.do(http.MethodPost, base+"/payments/rent", map[string]int{"month": 2, "year": 2024})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, decode[struct{ Payments []types.Payment }](t, rec).Payments)

	rec = api.do(http.MethodPost, base+"/payments/rent", map[string]int{"month": 13, "year": 2024})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, base+"/payments?month=2&year=2024", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[portfolio.PaymentView](t, rec)
	require.Len(t, view.Payments, 1)
	assert.Equal(t, payments.StatusDue, view.Payments[0].Status)
	assert.Equal(t, 1, view.Summary.Due.Count)

	rec = api.do(http.MethodPost, base+"/payments/"+created[0].ID+"/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-02-10", decode[types.Payment](t, rec).PaidDate)

	rec = api.do(http.MethodGet, base+"/payments?month=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodDelete, base+"/payments/"+created[0].ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(http.MethodDelete, base+"/payments/"+created[0].ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListPayments_AutoRent(t *testing.T) {
	api := newTestAPI(t, "", "", func(c *Config) { c.AutoRent = true })
	_, apt, room := api.seed()
	base := "/v1/apartments/" + apt.ID
	api.tenant(apt.ID, room.ID, map[string]any{"name": "Ana", "startDate": "2024-01-01", "rentCollectionDay": 5})

	for range 2 {
		rec := api.do(http.MethodGet, base+"/payments?month=3&year=2024", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		view := decode[portfolio.PaymentView](t, rec)
		require.Len(t, view.Payments, 1)
		assert.Equal(t, "2024-03-05", view.Payments[0].DueDate)
		assert.Equal(t, 1100.0, view.Payments[0].Amount)
	}

	// Listing every period generates nothing new.
	rec := api.do(http.MethodGet, base+"/payments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[portfolio.PaymentView](t, rec).Payments, 1)

	rec = api.do(http.MethodGet, base+"/payments?month=13&year=2024", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBills(t *testing.T) {
	api := newTestAPI(t, "", "")
	_, apt, room := api.seed()
	base := "/v1/apartments/" + apt.ID
	a := api.tenant(apt.ID, room.ID, map[string]any{"name": "Ana", "startDate": "2024-01-01"})

	rec := api.do(http.MethodPost, base+"/bills/split", map[string]any{"total": 310, "start": "2024-01-01", "end": "2024-01-31"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	split := decode[payments.BillSplit](t, rec)
	assert.Equal(t, 31, split.TotalDays)
	require.Len(t, split.Allocations, 1)
	assert.Equal(t, a.ID, split.Allocations[0].TenantID)
	assert.InDelta(t, 310, split.Allocations[0].Amount, 1e-9)

	rec = api.do(http.MethodPost, base+"/payments/bills", map[string]any{"month": 1, "year": 2024, "bills": split.Allocations})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ps := decode[struct{ Payments []types.Payment }](t, rec).Payments
	require.Len(t, ps, 1)
	assert.Equal(t, types.PaymentBill, ps[0].Type)

	rec = api.do(http.MethodGet, base+"/payments?month=1&year=2024", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[portfolio.PaymentView](t, rec)
	require.Len(t, view.Payments, 1)
	assert.Equal(t, payments.StatusOverdue, view.Payments[0].Status)
}

func TestMetrics(t *testing.T) {
	api := newTestAPI(t, "", "")
	b, apt, room := api.seed()
	api.tenant(apt.ID, room.ID, map[string]any{"name": "Ana", "startDate": "2024-01-01"})
	rec := api.do(http.MethodPost, "/v1/apartments/"+apt.ID+"/expenses", map[string]any{"name": "Water", "amount": 100, "cadence": "monthly"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(http.MethodGet, "/v1/apartments/"+apt.ID+"/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	m := decode[types.ApartmentMetrics](t, rec)
	assert.Equal(t, 1100.0, m.MonthlyRevenue)
	assert.Equal(t, 1000.0, m.MonthlyProfit)

	rec = api.do(http.MethodGet, "/v1/buildings/"+b.ID+"/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	bm := decode[map[string]any](t, rec)
	assert.Equal(t, 1.0, bm["roomCount"])
	assert.Equal(t, 1.0, bm["occupiedRooms"])
}

func TestImportExport(t *testing.T) {
	api := newTestAPI(t, "", "")
	api.seed()

	rec := api.do(http.MethodGet, "/v1/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	exported := rec.Body.String()
	doc := decode[snapshot.Document](t, rec)
	assert.Equal(t, snapshot.CurrentVersion, doc.Version)
	require.Len(t, doc.Buildings, 1)

	legacy := `[{"id":"a1","name":"Old","rooms":[],"payments":[{"id":"p1","type":"rent","roomId":"r1","tenantId":"t1","amount":5,"dueDate":"2023-01-05","month":0,"year":2023}]}]`
	rec = api.do(http.MethodPost, "/v1/import", legacy)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	bs := decode[[]types.Building](t, rec)
	require.Len(t, bs, 1)
	assert.Equal(t, snapshot.DefaultBuildingName, bs[0].Name)
	assert.Equal(t, 1, bs[0].Apartments[0].Payments[0].Month)

	rec = api.do(http.MethodPost, "/v1/import", `{"hello":"world"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/v1/import", exported)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]types.Building](t, rec)[0].Apartments, 1)
}

func TestActivity(t *testing.T) {
	api := newTestAPI(t, "", "")
	b, _, _ := api.seed()

	rec := api.do(http.MethodGet, "/v1/activity/entity/building/"+b.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	feed := decode[struct {
		Activities []types.ActivityEntry `json:"activities"`
		TotalCount int                   `json:"total_count"`
	}](t, rec)
	assert.GreaterOrEqual(t, feed.TotalCount, 2)
	require.NotEmpty(t, feed.Activities)

	rec = api.do(http.MethodGet, "/v1/activity/summary/building/"+b.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[activity.Summary](t, rec)
	assert.Equal(t, feed.TotalCount, sum.Total)
	assert.Contains(t, sum.Categories, "property")

	rec = api.do(http.MethodPost, "/v1/activity/search", map[string]string{"query": "front"})
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[struct {
		Results    []types.ActivityEntry `json:"results"`
		TotalCount int                   `json:"total_count"`
	}](t, rec)
	assert.NotEmpty(t, res.Results)

	rec = api.do(http.MethodPost, "/v1/activity/search", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServe_WaitsForInFlightRequests(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusOK)
	})}

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- serve(ctx, srv, ln, slog.Default()) }()

	status := make(chan int, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/")
		if err != nil {
			status <- 0
			return
		}
		resp.Body.Close()
		status <- resp.StatusCode
	}()

	<-entered
	cancel()
	select {
	case <-served:
		t.Fatal("serve returned before the request finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-served)
	assert.Equal(t, http.StatusOK, <-status)
}
