package usecase

import (
	"strings"

	"github.com/kirillkom/directory-console/internal/core/domain"
)

// Paris, shown when no establishment is geocoded.
var FallbackCenter = LatLon{Lat: 48.8566, Lon: 2.3522}

const DefaultMapZoom = 6

type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Marker struct {
	EstablishmentID int64    `json:"establishment_id"`
	Position        LatLon   `json:"position"`
	Title           string   `json:"title"`
	Lines           []string `json:"lines"`
	Active          bool     `json:"active"`
}

type MapView struct {
	Center  LatLon   `json:"center"`
	Zoom    int      `json:"zoom"`
	Markers []Marker `json:"markers"`
	// Total counts every establishment, geocoded or not.
	Total int `json:"total"`
}

// ProjectMap keeps the geocoded establishments and centers the map on the
// first of them.
func ProjectMap(establishments []domain.Establishment) MapView {
	view := MapView{
		Center:  FallbackCenter,
		Zoom:    DefaultMapZoom,
		Markers: []Marker{},
		Total:   len(establishments),
	}

	for _, e := range establishments {
		if !e.Geocoded() {
			continue
		}
		pos := LatLon{Lat: *e.GeoLat, Lon: *e.GeoLon}
		if len(view.Markers) == 0 {
			view.Center = pos
		}
		view.Markers = append(view.Markers, Marker{
			EstablishmentID: e.ID,
			Position:        pos,
			Title:           e.DisplayName(),
			Lines:           markerLines(e),
			Active:          e.IsActive,
		})
	}
	return view
}

func markerLines(e domain.Establishment) []string {
	var lines []string
	if e.Address != "" {
		lines = append(lines, e.Address)
	}
	if locality := strings.TrimSpace(e.PostalCode + " " + e.City); locality != "" {
		lines = append(lines, locality)
	}
	// An inactive establishment without closure label gets no status line.
	switch {
	case e.IsActive:
		lines = append(lines, "Actif")
	case e.ClosureLabel != "":
		lines = append(lines, e.ClosureLabel)
	}
	return lines
}
