// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matthewbaird/partmanager/internal/activity"
	"github.com/matthewbaird/partmanager/internal/handler"
	"github.com/matthewbaird/partmanager/internal/portfolio"
)

const shutdownTimeout = 10 * time.Second

// Config holds server configuration.
type Config struct {
	Port      int
	Portfolio *portfolio.Manager
	Activity  activity.Store
	// Live serves the sync WebSocket. Nil disables the endpoint.
	Live     http.Handler
	AuthUser string
	AuthPass string
	// AutoRent creates a month's rent payments when they are listed.
	AutoRent bool
	Logger   *slog.Logger
}

// NewRouter registers every route on a chi router.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	ph := handler.NewPortfolioHandler(cfg.Portfolio, cfg.AutoRent)
	ah := handler.NewActivityHandler(cfg.Activity)

	r.Route("/v1", func(r chi.Router) {
		r.Use(handler.BasicAuth(cfg.AuthUser, cfg.AuthPass))

		// --- Buildings ---
		r.Get("/buildings", ph.ListBuildings)
		r.Post("/buildings", ph.CreateBuilding)
		r.Get("/buildings/{id}", ph.GetBuilding)
		r.Patch("/buildings/{id}", ph.UpdateBuilding)
		r.Delete("/buildings/{id}", ph.DeleteBuilding)
		r.Get("/buildings/{id}/metrics", ph.GetBuildingMetrics)
		r.Post("/buildings/{id}/apartments", ph.CreateApartment)

		// --- Apartments ---
		r.Route("/apartments/{id}", func(r chi.Router) {
			r.Get("/", ph.GetApartment)
			r.Patch("/", ph.UpdateApartment)
			r.Delete("/", ph.DeleteApartment)
			r.Get("/metrics", ph.GetApartmentMetrics)

			r.Post("/rooms", ph.CreateRoom)
			r.Patch("/rooms/{roomID}", ph.UpdateRoom)
			r.Delete("/rooms/{roomID}", ph.DeleteRoom)

			r.Post("/expenses", ph.CreateExpense)
			r.Patch("/expenses/{expenseID}", ph.UpdateExpense)
			r.Delete("/expenses/{expenseID}", ph.DeleteExpense)

			r.Post("/tenants", ph.CreateTenant)
			r.Patch("/tenants/{tenantID}", ph.UpdateTenant)
			r.Delete("/tenants/{tenantID}", ph.DeleteTenant)
			r.Post("/tenants/{tenantID}/toggle-date", ph.ToggleTenantDate)
			r.Get("/tenants/{tenantID}/presence", ph.GetTenantPresence)

			r.Get("/payments", ph.ListPayments)
			r.Post("/payments/rent", ph.GenerateRent)
			r.Post("/payments/bills", ph.AddBills)
			r.Post("/payments/{paymentID}/toggle", ph.TogglePayment)
			r.Delete("/payments/{paymentID}", ph.DeletePayment)
			r.Post("/bills/split", ph.SplitBill)
		})

		// --- Import / export ---
		r.Get("/export", ph.Export)
		r.Post("/import", ph.Import)

		// --- Activity ---
		r.Get("/activity/entity/{entity_type}/{entity_id}", ah.HandleGetEntityActivity)
		r.Get("/activity/summary/{entity_type}/{entity_id}", ah.HandleGetActivitySummary)
		r.Post("/activity/search", ah.HandleSearchActivity)

		if cfg.Live != nil {
			r.Handle("/sync", cfg.Live)
		}
	})

	return r
}

// Run starts the HTTP server and shuts it down when ctx is cancelled.
// It returns once in-flight requests have finished or the shutdown
// timeout has passed.
func Run(ctx context.Context, cfg Config) error {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "server")

	addr := fmt.Sprintf(":%d", cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	server := &http.Server{
		Handler:           NewRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info("starting server", "addr", addr)
	return serve(ctx, server, ln, log)
}

func serve(ctx context.Context, server *http.Server, ln net.Listener, log *slog.Logger) error {
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", "error", err)
		}
	}()

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-shutdownDone
	return nil
}
