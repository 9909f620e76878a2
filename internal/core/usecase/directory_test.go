package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirillkom/directory-console/internal/core/domain"
	"github.com/kirillkom/directory-console/internal/core/synccache"
)

func TestGenerateRejectsInvalidVariablesLocally(t *testing.T) {
	h := newHarness(t, time.Minute)

	form := &GenerateForm{TemplateID: 7, VariablesText: "not-json"}
	_, err := h.directory.Generate(context.Background(), 1, form)
	if !errors.Is(err, domain.ErrInvalidVariables) {
		t.Fatalf("expected ErrInvalidVariables, got %v", err)
	}
	if n := h.api.total(); n != 0 {
		t.Fatalf("expected zero network calls, got %d", n)
	}
	if form.VariablesText != "not-json" {
		t.Fatalf("form text changed to %q", form.VariablesText)
	}
}

func TestGenerateRejectsMissingTemplateLocally(t *testing.T) {
	h := newHarness(t, time.Minute)

	form := &GenerateForm{VariablesText: "not-json"}
	_, err := h.directory.Generate(context.Background(), 1, form)
	if !errors.Is(err, domain.ErrNoTemplateSelected) {
		t.Fatalf("expected ErrNoTemplateSelected, got %v", err)
	}
	if n := h.api.total(); n != 0 {
		t.Fatalf("expected zero network calls, got %d", n)
	}
}

func TestGenerateChecksPlaceholdersOfCachedTemplate(t *testing.T) {
	h := newHarness(t, time.Minute)
	h.cache.Set(synccache.PromptsKey(1), []domain.PromptTemplate{
		{ID: 7, SiteID: 1, Prompt: "Plombiers à {ville} ({code_postal})"},
	})

	form := &GenerateForm{TemplateID: 7, VariablesText: DefaultVariablesText}
	_, err := h.directory.Generate(context.Background(), 1, form)
	if !errors.Is(err, domain.ErrInvalidVariables) {
		t.Fatalf("expected ErrInvalidVariables, got %v", err)
	}
	if n := h.api.count("Generate"); n != 0 {
		t.Fatalf("expected no generate call, got %d", n)
	}
}

func TestGenerateStoresResultWithoutResettingVariables(t *testing.T) {
	h := newHarness(t, time.Minute)
	h.api.generateFn = func(req domain.GenerationRequest) (*domain.GenerationResult, error) {
		if req.TemplateID != 7 || req.Variables["ville"] != "Paris" {
			t.Fatalf("unexpected request %+v", req)
		}
		return &domain.GenerationResult{Prompt: "Plombiers à Paris", Content: "..."}, nil
	}

	form := NewGenerateForm()
	form.TemplateID = 7
	result, err := h.directory.Generate(context.Background(), 1, &form)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if form.Result != result || result.Prompt != "Plombiers à Paris" {
		t.Fatalf("result not stored on form: %+v", form.Result)
	}
	if form.VariablesText != DefaultVariablesText {
		t.Fatalf("variables reset to %q", form.VariablesText)
	}
}

func TestCreateSiteThenRefreshListsItOnce(t *testing.T) {
	h := newHarness(t, time.Minute)
	ctx := context.Background()

	before, _, err := h.resources.Sites(ctx)
	if err != nil {
		t.Fatalf("initial list: %v", err)
	}
	if len(before) != 0 {
		t.Fatalf("expected empty list, got %v", before)
	}

	var selected domain.Site
	form := &SiteForm{Name: "Plombiers Paris", Slug: "plombiers-paris"}
	created, err := h.directory.CreateSite(ctx, form, func(site domain.Site) { selected = site })
	if err != nil {
		t.Fatalf("create site: %v", err)
	}
	if selected.ID != created.ID {
		t.Fatalf("continuation got %+v, want id %d", selected, created.ID)
	}
	if *form != (SiteForm{}) {
		t.Fatalf("form not reset: %+v", form)
	}
	if !h.cache.Get(synccache.SitesKey()).Stale {
		t.Fatal("site list not invalidated")
	}

	sites, _, err := h.resources.Sites(ctx)
	if err != nil {
		t.Fatalf("refresh list: %v", err)
	}
	matches := 0
	for _, s := range sites {
		if s.Slug == "plombiers-paris" && s.Name == "Plombiers Paris" {
			matches++
		}
	}
	if matches != 1 || len(sites) != 1 {
		t.Fatalf("expected exactly one created site, got %+v", sites)
	}
}

func TestCreateSiteInvalidSlugIsLocal(t *testing.T) {
	h := newHarness(t, time.Minute)

	form := &SiteForm{Name: "Plombiers", Slug: "Plombiers Paris"}
	_, err := h.directory.CreateSite(context.Background(), form, nil)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if n := h.api.count("CreateSite"); n != 0 {
		t.Fatalf("invalid site reached the network %d times", n)
	}
	if form.Name != "Plombiers" {
		t.Fatal("form cleared after validation error")
	}
}

func TestSiteSlugAcceptsURLSafeCharacters(t *testing.T) {
	cases := []struct {
		slug  string
		valid bool
	}{
		{"plombiers-paris", true},
		{"plombiers_paris", true},
		{"Plombiers-Paris", true},
		{"v1.2~beta", true},
		{"plombiers paris", false},
		{"plombiers/paris", false},
		{"électriciens", false},
	}
	for _, tc := range cases {
		err := ValidatePayload("create_site", domain.SiteCreate{Name: "Site", Slug: tc.slug})
		if tc.valid && err != nil {
			t.Fatalf("slug %q rejected: %v", tc.slug, err)
		}
		if !tc.valid && !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("slug %q accepted, got %v", tc.slug, err)
		}
	}
}

func TestPageReadsSinglePage(t *testing.T) {
	h := newHarness(t, time.Minute)
	h.api.pages[3] = []domain.ManualPage{{ID: 8, SiteID: 3, Title: "Tarifs", Slug: "tarifs", Content: "Devis gratuit"}}

	page, err := h.directory.Page(context.Background(), 3, 8)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if page.Content != "Devis gratuit" {
		t.Fatalf("unexpected page %+v", page)
	}

	if _, err := h.directory.Page(context.Background(), 3, 9); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := h.directory.Page(context.Background(), 3, 0); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if n := h.api.count("GetPage"); n != 2 {
		t.Fatalf("expected 2 page reads, got %d", n)
	}
}

func TestCreateSiteFailureKeepsForm(t *testing.T) {
	h := newHarness(t, time.Minute)
	h.api.createSiteErr = domain.WrapError(domain.ErrConflict, "create_site", errors.New("slug taken"))

	form := &SiteForm{Name: "Plombiers Paris", Slug: "plombiers-paris", NAFCode: "43.22A"}
	_, err := h.directory.CreateSite(context.Background(), form, nil)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if form.Slug != "plombiers-paris" || form.NAFCode != "43.22A" {
		t.Fatalf("form changed after failure: %+v", form)
	}
}

func TestSiteFormPayloadOmitsEmptyFilters(t *testing.T) {
	form := SiteForm{Name: " Plombiers ", Slug: "plombiers", Department: "75"}
	payload := form.Payload()
	if payload.Name != "Plombiers" {
		t.Fatalf("name not trimmed: %q", payload.Name)
	}
	if len(payload.SireneFilters) != 1 || payload.SireneFilters[domain.FilterDepartment] != "75" {
		t.Fatalf("unexpected filters %v", payload.SireneFilters)
	}

	empty := SiteForm{Name: "x", Slug: "x"}
	if empty.Payload().SireneFilters != nil {
		t.Fatal("expected nil filters")
	}
}

func TestCreateImportInvalidatesJobList(t *testing.T) {
	h := newHarness(t, time.Minute)
	ctx := context.Background()

	if _, _, err := h.resources.ImportJobs(ctx, 3); err != nil {
		t.Fatalf("initial jobs: %v", err)
	}

	form := &ImportForm{NAFCode: "43.22A", City: "Paris"}
	job, err := h.directory.CreateImport(ctx, 3, form)
	if err != nil {
		t.Fatalf("create import: %v", err)
	}
	if job.Status != domain.JobStatusQueued {
		t.Fatalf("unexpected status %q", job.Status)
	}
	if *form != (ImportForm{}) {
		t.Fatalf("import form not reset: %+v", form)
	}

	jobs, _, err := h.resources.ImportJobs(ctx, 3)
	if err != nil {
		t.Fatalf("refresh jobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != job.ID {
		t.Fatalf("expected new job in list, got %+v", jobs)
	}
}

func TestCreatePromptResetsScopeToCity(t *testing.T) {
	h := newHarness(t, time.Minute)

	form := &PromptForm{Label: "Intro", Prompt: "Texte pour {ville}", Scope: domain.ScopeCustom}
	if _, err := h.directory.CreatePrompt(context.Background(), 2, form); err != nil {
		t.Fatalf("create prompt: %v", err)
	}
	if form.Label != "" || form.Prompt != "" || form.Scope != domain.ScopeCity {
		t.Fatalf("prompt form not reset to defaults: %+v", form)
	}
}

func TestCreatePromptRejectsUnknownScope(t *testing.T) {
	h := newHarness(t, time.Minute)

	form := &PromptForm{Label: "Intro", Prompt: "Texte", Scope: "region"}
	_, err := h.directory.CreatePrompt(context.Background(), 2, form)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if n := h.api.count("CreatePrompt"); n != 0 {
		t.Fatalf("invalid prompt reached the network %d times", n)
	}
}

func TestCreatePageInvalidatesPages(t *testing.T) {
	h := newHarness(t, time.Minute)
	ctx := context.Background()

	if _, _, err := h.resources.Pages(ctx, 2); err != nil {
		t.Fatalf("initial pages: %v", err)
	}
	form := &PageForm{Title: "À propos", Slug: "a-propos", Content: "Bonjour"}
	if _, err := h.directory.CreatePage(ctx, 2, form); err != nil {
		t.Fatalf("create page: %v", err)
	}
	pages, _, err := h.resources.Pages(ctx, 2)
	if err != nil {
		t.Fatalf("refresh pages: %v", err)
	}
	if len(pages) != 1 || pages[0].Slug != "a-propos" {
		t.Fatalf("unexpected pages %+v", pages)
	}
}
