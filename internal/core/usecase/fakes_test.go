package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/directory-console/internal/core/domain"
	"github.com/kirillkom/directory-console/internal/core/synccache"
)

var errNotImplemented = errors.New("not implemented")

// directoryFake is an in-memory directory API that counts every call.
type directoryFake struct {
	mu     sync.Mutex
	calls  map[string]int
	nextID int64

	sites          []domain.Site
	jobs           map[int64][]domain.ImportJob
	establishments map[int64][]domain.Establishment
	pages          map[int64][]domain.ManualPage
	prompts        map[int64][]domain.PromptTemplate

	createSiteErr error
	generateFn    func(domain.GenerationRequest) (*domain.GenerationResult, error)
	block         chan struct{}
}

func newDirectoryFake() *directoryFake {
	return &directoryFake{
		calls:          map[string]int{},
		nextID:         100,
		jobs:           map[int64][]domain.ImportJob{},
		establishments: map[int64][]domain.Establishment{},
		pages:          map[int64][]domain.ManualPage{},
		prompts:        map[int64][]domain.PromptTemplate{},
	}
}

func (f *directoryFake) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *directoryFake) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *directoryFake) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *directoryFake) setJobs(siteID int64, jobs ...domain.ImportJob) {
	f.mu.Lock()
	f.jobs[siteID] = append([]domain.ImportJob(nil), jobs...)
	f.mu.Unlock()
}

func (f *directoryFake) ListSites(context.Context) ([]domain.Site, error) {
	f.hit("ListSites")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Site(nil), f.sites...), nil
}

func (f *directoryFake) GetSite(_ context.Context, siteID int64) (*domain.Site, error) {
	f.hit("GetSite")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sites {
		if s.ID == siteID {
			site := s
			return &site, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *directoryFake) CreateSite(ctx context.Context, payload domain.SiteCreate) (*domain.Site, error) {
	f.hit("CreateSite")
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.createSiteErr != nil {
		return nil, f.createSiteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	site := domain.Site{
		ID:            f.nextID,
		Name:          payload.Name,
		Slug:          payload.Slug,
		Description:   payload.Description,
		SireneFilters: payload.SireneFilters,
		CreatedAt:     time.Now().UTC(),
	}
	f.sites = append(f.sites, site)
	return &site, nil
}

func (f *directoryFake) UpdateSite(_ context.Context, siteID int64, payload domain.SiteCreate) (*domain.Site, error) {
	f.hit("UpdateSite")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.sites {
		if s.ID == siteID {
			f.sites[i].Name = payload.Name
			f.sites[i].Slug = payload.Slug
			site := f.sites[i]
			return &site, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *directoryFake) DeleteSite(context.Context, int64) error {
	f.hit("DeleteSite")
	return errNotImplemented
}

func (f *directoryFake) ListImportJobs(_ context.Context, siteID int64) ([]domain.ImportJob, error) {
	f.hit("ListImportJobs")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ImportJob(nil), f.jobs[siteID]...), nil
}

func (f *directoryFake) CreateImportJob(_ context.Context, siteID int64, payload domain.ImportJobCreate) (*domain.ImportJob, error) {
	f.hit("CreateImportJob")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	job := domain.ImportJob{
		ID:         f.nextID,
		SiteID:     siteID,
		NAFCode:    payload.NAFCode,
		Department: payload.Department,
		City:       payload.City,
		Status:     domain.JobStatusQueued,
	}
	f.jobs[siteID] = append(f.jobs[siteID], job)
	return &job, nil
}

func (f *directoryFake) ListEstablishments(_ context.Context, siteID int64) ([]domain.Establishment, error) {
	f.hit("ListEstablishments")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Establishment(nil), f.establishments[siteID]...), nil
}

func (f *directoryFake) ListEstablishmentsFiltered(_ context.Context, siteID int64, filter domain.EstablishmentFilter) ([]domain.Establishment, error) {
	f.hit("ListEstablishmentsFiltered")
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Establishment
	for _, e := range f.establishments[siteID] {
		if filter.Active != nil && e.IsActive != *filter.Active {
			continue
		}
		if filter.PostalCode != "" && e.PostalCode != filter.PostalCode {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *directoryFake) ListPages(_ context.Context, siteID int64) ([]domain.ManualPage, error) {
	f.hit("ListPages")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ManualPage(nil), f.pages[siteID]...), nil
}

func (f *directoryFake) GetPage(_ context.Context, siteID, pageID int64) (*domain.ManualPage, error) {
	f.hit("GetPage")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, page := range f.pages[siteID] {
		if page.ID == pageID {
			return &page, nil
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "get_page", fmt.Errorf("page %d", pageID))
}

func (f *directoryFake) CreatePage(_ context.Context, siteID int64, payload domain.ManualPageCreate) (*domain.ManualPage, error) {
	f.hit("CreatePage")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	page := domain.ManualPage{ID: f.nextID, SiteID: siteID, Title: payload.Title, Slug: payload.Slug, Content: payload.Content}
	f.pages[siteID] = append(f.pages[siteID], page)
	return &page, nil
}

func (f *directoryFake) UpdatePage(context.Context, int64, int64, domain.ManualPageUpdate) (*domain.ManualPage, error) {
	f.hit("UpdatePage")
	return nil, errNotImplemented
}

func (f *directoryFake) DeletePage(context.Context, int64, int64) error {
	f.hit("DeletePage")
	return nil
}

func (f *directoryFake) ListPrompts(_ context.Context, siteID int64) ([]domain.PromptTemplate, error) {
	f.hit("ListPrompts")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.PromptTemplate(nil), f.prompts[siteID]...), nil
}

func (f *directoryFake) CreatePrompt(_ context.Context, siteID int64, payload domain.PromptTemplateCreate) (*domain.PromptTemplate, error) {
	f.hit("CreatePrompt")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p := domain.PromptTemplate{ID: f.nextID, SiteID: siteID, Label: payload.Label, Prompt: payload.Prompt, Scope: payload.Scope}
	f.prompts[siteID] = append(f.prompts[siteID], p)
	return &p, nil
}

func (f *directoryFake) DeletePrompt(context.Context, int64, int64) error {
	f.hit("DeletePrompt")
	return nil
}

func (f *directoryFake) Generate(_ context.Context, _ int64, payload domain.GenerationRequest) (*domain.GenerationResult, error) {
	f.hit("Generate")
	if f.generateFn != nil {
		return f.generateFn(payload)
	}
	return &domain.GenerationResult{Prompt: "rendered", Content: "generated"}, nil
}

type publisherFake struct {
	mu          sync.Mutex
	transitions []domain.JobTransition
}

func (p *publisherFake) PublishJobTransition(_ context.Context, tr domain.JobTransition) error {
	p.mu.Lock()
	p.transitions = append(p.transitions, tr)
	p.mu.Unlock()
	return nil
}

func (p *publisherFake) all() []domain.JobTransition {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.JobTransition(nil), p.transitions...)
}

type storageFake struct {
	saved map[string][]byte
}

func (s *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if s.saved == nil {
		s.saved = map[string][]byte{}
	}
	s.saved[key] = raw
	return nil
}

func (s *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := s.saved[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	api       *directoryFake
	cache     *synccache.Cache
	resources *Resources
	mutations *MutationCoordinator
	directory *DirectoryService
}

func newHarness(t *testing.T, maxAge time.Duration) *harness {
	t.Helper()
	api := newDirectoryFake()
	cache := synccache.New(synccache.Options{FetchTimeout: time.Second, Logger: discardLogger()})
	t.Cleanup(cache.Close)
	resources := NewResources(api, cache, maxAge)
	mutations := NewMutationCoordinator(cache, discardLogger(), nil)
	return &harness{
		api:       api,
		cache:     cache,
		resources: resources,
		mutations: mutations,
		directory: NewDirectoryService(api, resources, mutations),
	}
}

func ptr[T any](v T) *T { return &v }
