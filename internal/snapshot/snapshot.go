// Package snapshot converts import/export documents to and from the
// canonical in-memory building collection. Every document version is
// normalized here so the rest of the module sees fully-populated records.
package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/matthewbaird/partmanager/internal/occupancy"
	"github.com/matthewbaird/partmanager/internal/schema"
	"github.com/matthewbaird/partmanager/internal/types"
)

// CurrentVersion is the document version written by Encode.
const CurrentVersion = 1

// DefaultBuildingName names the building that wraps a flat apartment list.
const DefaultBuildingName = "Default Building"

// Document is the versioned export format.
type Document struct {
	Version   int              `json:"version"`
	Buildings []types.Building `json:"buildings"`
}

// Decoder validates and normalizes documents.
type Decoder struct {
	validator *schema.Validator
	newID     func() string
}

// NewDecoder returns a Decoder. newID is used for the building created
// when a flat apartment list is imported.
func NewDecoder(v *schema.Validator, newID func() string) *Decoder {
	return &Decoder{validator: v, newID: newID}
}

// Decode accepts a v1 document, a v0 building array or a v0 apartment
// array and returns the normalized building collection.
func (d *Decoder) Decode(data []byte) ([]types.Building, error) {
	shape, err := d.validator.Validate(data)
	if err != nil {
		return nil, err
	}

	var (
		buildings []types.Building
		version   int
	)
	switch shape {
	case schema.ShapeSnapshot:
		var doc Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decoding snapshot: %w", err)
		}
		buildings, version = doc.Buildings, doc.Version
	case schema.ShapeBuildings:
		if err := json.Unmarshal(data, &buildings); err != nil {
			return nil, fmt.Errorf("decoding buildings: %w", err)
		}
	case schema.ShapeApartments:
		var apts []types.Apartment
		if err := json.Unmarshal(data, &apts); err != nil {
			return nil, fmt.Errorf("decoding apartments: %w", err)
		}
		buildings = WrapApartments(apts, d.newID())
	}
	if version > CurrentVersion {
		return nil, fmt.Errorf("document version %d is newer than supported version %d", version, CurrentVersion)
	}
	return Normalize(buildings, version), nil
}

// WrapApartments places a flat apartment list into a single building.
func WrapApartments(apts []types.Apartment, id string) []types.Building {
	return []types.Building{{ID: id, Name: DefaultBuildingName, Apartments: apts}}
}

// Normalize returns buildings with every collection populated and tenant
// excluded dates sanitized. Version 0 payments carry zero-based months and
// are shifted to 1-12.
func Normalize(buildings []types.Building, version int) []types.Building {
	out := make([]types.Building, len(buildings))
	for i, b := range buildings {
		apts := make([]types.Apartment, len(b.Apartments))
		for j, a := range b.Apartments {
			apts[j] = normalizeApartment(a, version)
		}
		b.Apartments = apts
		out[i] = b
	}
	return out
}

func normalizeApartment(a types.Apartment, version int) types.Apartment {
	a.Rooms = append([]types.Room{}, a.Rooms...)
	a.Expenses = append([]types.Expense{}, a.Expenses...)

	tenants := make([]types.Tenant, len(a.Tenants))
	for i, t := range a.Tenants {
		tenants[i] = occupancy.Sanitize(t)
	}
	a.Tenants = tenants

	payments := make([]types.Payment, len(a.Payments))
	for i, p := range a.Payments {
		if version == 0 {
			p.Month++
		}
		payments[i] = p
	}
	a.Payments = payments
	return a
}

// Encode writes buildings as a current-version document.
func Encode(buildings []types.Building) ([]byte, error) {
	if buildings == nil {
		buildings = []types.Building{}
	}
	return json.MarshalIndent(Document{Version: CurrentVersion, Buildings: buildings}, "", "  ")
}
