package usecase

import (
	"testing"

	"github.com/kirillkom/directory-console/internal/core/domain"
)

func TestProjectMapKeepsOnlyGeocodedEstablishments(t *testing.T) {
	view := ProjectMap([]domain.Establishment{
		{
			ID:           1,
			Siret:        "12345678900011",
			BusinessName: "Plomberie Martin",
			Address:      "3 rue de Rivoli",
			PostalCode:   "75004",
			City:         "Paris",
			IsActive:     true,
			GeoLat:       ptr(48.85),
			GeoLon:       ptr(2.35),
			GeoStatus:    "ok",
		},
		{ID: 2, Siret: "98765432100027", IsActive: true},
	})

	if len(view.Markers) != 1 {
		t.Fatalf("expected one marker, got %d", len(view.Markers))
	}
	if view.Center != (LatLon{Lat: 48.85, Lon: 2.35}) {
		t.Fatalf("unexpected center %+v", view.Center)
	}
	if view.Zoom != DefaultMapZoom || view.Total != 2 {
		t.Fatalf("unexpected zoom/total %d/%d", view.Zoom, view.Total)
	}

	m := view.Markers[0]
	if m.Title != "Plomberie Martin" {
		t.Fatalf("unexpected title %q", m.Title)
	}
	want := []string{"3 rue de Rivoli", "75004 Paris", "Actif"}
	if len(m.Lines) != len(want) {
		t.Fatalf("unexpected lines %v", m.Lines)
	}
	for i := range want {
		if m.Lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, m.Lines[i], want[i])
		}
	}
}

func TestProjectMapFallsBackWithoutGeocodedEntries(t *testing.T) {
	for name, list := range map[string][]domain.Establishment{
		"empty":      nil,
		"ungeocoded": {{ID: 1, Siret: "1", GeoLat: ptr(48.0)}},
	} {
		view := ProjectMap(list)
		if view.Center != FallbackCenter {
			t.Fatalf("%s: center %+v, want fallback", name, view.Center)
		}
		if len(view.Markers) != 0 {
			t.Fatalf("%s: expected no markers, got %d", name, len(view.Markers))
		}
	}
}

func TestProjectMapClosedEstablishmentLabel(t *testing.T) {
	view := ProjectMap([]domain.Establishment{
		{ID: 1, Siret: "11122233300014", GeoLat: ptr(45.76), GeoLon: ptr(4.83), ClosureLabel: "Fermé le 2024-01-31"},
		{ID: 2, Siret: "44455566600025", GeoLat: ptr(45.0), GeoLon: ptr(4.0)},
	})

	first := view.Markers[0]
	if first.Title != "11122233300014" {
		t.Fatalf("expected siret title, got %q", first.Title)
	}
	if last := first.Lines[len(first.Lines)-1]; last != "Fermé le 2024-01-31" {
		t.Fatalf("unexpected status line %q", last)
	}
	if len(view.Markers[1].Lines) != 0 {
		t.Fatalf("inactive establishment without label should have no lines, got %v", view.Markers[1].Lines)
	}
}
