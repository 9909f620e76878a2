package usecase

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/directory-console/internal/core/domain"
	"github.com/kirillkom/directory-console/internal/core/synccache"
)

// Freshness is the staleness marker attached to every rendered list.
type Freshness struct {
	Stale     bool      `json:"stale"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

func freshnessOf(snap synccache.Snapshot) Freshness {
	f := Freshness{Stale: snap.Stale, UpdatedAt: snap.UpdatedAt}
	if snap.Err != nil {
		f.Error = snap.Err.Error()
	}
	return f
}

type SitesView struct {
	Sites []domain.Site `json:"sites"`
	Freshness
}

type PagesView struct {
	Pages []domain.ManualPage `json:"pages"`
	Freshness
}

type PromptView struct {
	Template     domain.PromptTemplate `json:"template"`
	Placeholders []string              `json:"placeholders"`
}

type PromptsView struct {
	Prompts []PromptView `json:"prompts"`
	Freshness
}

type EstablishmentsMapView struct {
	MapView
	Freshness
}

// SitePanel is everything shown for a selected site.
type SitePanel struct {
	Site    domain.Site           `json:"site"`
	Imports ImportBoard           `json:"imports"`
	Pages   PagesView             `json:"pages"`
	Prompts PromptsView           `json:"prompts"`
	Map     EstablishmentsMapView `json:"map"`
}

const defaultMapPollInterval = 5 * time.Second

// Views composes read models from cache snapshots only.
type Views struct {
	resources   *Resources
	monitor     *ImportMonitor
	mapInterval time.Duration
}

// NewViews returns the read models. mapInterval is the establishments poll
// period of live map viewers; zero means 5s.
func NewViews(resources *Resources, monitor *ImportMonitor, mapInterval time.Duration) *Views {
	if mapInterval <= 0 {
		mapInterval = defaultMapPollInterval
	}
	return &Views{resources: resources, monitor: monitor, mapInterval: mapInterval}
}

func (v *Views) Sites(ctx context.Context) (SitesView, error) {
	sites, snap, err := v.resources.Sites(ctx)
	if err != nil {
		return SitesView{}, err
	}
	if sites == nil {
		sites = []domain.Site{}
	}
	return SitesView{Sites: sites, Freshness: freshnessOf(snap)}, nil
}

func (v *Views) Pages(ctx context.Context, siteID int64) (PagesView, error) {
	pages, snap, err := v.resources.Pages(ctx, siteID)
	if err != nil {
		return PagesView{}, err
	}
	if pages == nil {
		pages = []domain.ManualPage{}
	}
	return PagesView{Pages: pages, Freshness: freshnessOf(snap)}, nil
}

func (v *Views) Prompts(ctx context.Context, siteID int64) (PromptsView, error) {
	prompts, snap, err := v.resources.Prompts(ctx, siteID)
	if err != nil {
		return PromptsView{}, err
	}
	out := PromptsView{Prompts: make([]PromptView, 0, len(prompts)), Freshness: freshnessOf(snap)}
	for _, p := range prompts {
		placeholders := Placeholders(p.Prompt)
		if placeholders == nil {
			placeholders = []string{}
		}
		out.Prompts = append(out.Prompts, PromptView{Template: p, Placeholders: placeholders})
	}
	return out, nil
}

func (v *Views) Map(ctx context.Context, siteID int64) (EstablishmentsMapView, error) {
	establishments, snap, err := v.resources.Establishments(ctx, siteID)
	if err != nil {
		return EstablishmentsMapView{}, err
	}
	return EstablishmentsMapView{MapView: ProjectMap(establishments), Freshness: freshnessOf(snap)}, nil
}

// SitePanel loads the site and its four panels concurrently. The site itself
// must load; a failing panel is reported through its own freshness marker.
func (v *Views) SitePanel(ctx context.Context, siteID int64) (SitePanel, error) {
	var panel SitePanel

	site, _, err := v.resources.Site(ctx, siteID)
	if err != nil {
		return SitePanel{}, err
	}
	panel.Site = site

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		board, err := v.monitor.Board(gctx, siteID)
		if err != nil {
			board = ImportBoard{SiteID: siteID, Jobs: []JobView{}, Stale: true, Error: err.Error()}
		}
		panel.Imports = board
		return nil
	})
	g.Go(func() error {
		pages, err := v.Pages(gctx, siteID)
		if err != nil {
			pages = PagesView{Pages: []domain.ManualPage{}, Freshness: Freshness{Stale: true, Error: err.Error()}}
		}
		panel.Pages = pages
		return nil
	})
	g.Go(func() error {
		prompts, err := v.Prompts(gctx, siteID)
		if err != nil {
			prompts = PromptsView{Prompts: []PromptView{}, Freshness: Freshness{Stale: true, Error: err.Error()}}
		}
		panel.Prompts = prompts
		return nil
	})
	g.Go(func() error {
		m, err := v.Map(gctx, siteID)
		if err != nil {
			m = EstablishmentsMapView{MapView: ProjectMap(nil), Freshness: Freshness{Stale: true, Error: err.Error()}}
		}
		panel.Map = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return SitePanel{}, err
	}
	return panel, nil
}
