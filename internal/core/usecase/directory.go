package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/directory-console/internal/core/domain"
	"github.com/kirillkom/directory-console/internal/core/ports"
	"github.com/kirillkom/directory-console/internal/core/synccache"
)

// DirectoryService issues every write of the console through the mutation
// coordinator so that the cache is invalidated after each success.
type DirectoryService struct {
	api       ports.DirectoryAPI
	resources *Resources
	mutations *MutationCoordinator
}

func NewDirectoryService(api ports.DirectoryAPI, resources *Resources, mutations *MutationCoordinator) *DirectoryService {
	return &DirectoryService{
		api:       api,
		resources: resources,
		mutations: mutations,
	}
}

func (s *DirectoryService) Mutations() *MutationCoordinator { return s.mutations }

// CreateSite creates a site from form. onCreated receives the new site, e.g.
// to select it.
func (s *DirectoryService) CreateSite(ctx context.Context, form *SiteForm, onCreated func(domain.Site)) (*domain.Site, error) {
	payload := form.Payload()
	return Submit(ctx, s.mutations, Mutation[*domain.Site]{
		Form: SiteFormID(),
		Name: "create_site",
		Validate: func() error {
			return ValidatePayload("create_site", payload)
		},
		Call: func(ctx context.Context) (*domain.Site, error) {
			return s.api.CreateSite(ctx, payload)
		},
		Invalidates: []synccache.Key{synccache.SitesKey()},
		Reset:       form.Reset,
		OnSuccess: func(site *domain.Site) {
			if onCreated != nil && site != nil {
				onCreated(*site)
			}
		},
	})
}

func (s *DirectoryService) UpdateSite(ctx context.Context, siteID int64, form *SiteForm) (*domain.Site, error) {
	payload := form.Payload()
	return Submit(ctx, s.mutations, Mutation[*domain.Site]{
		Form: SiteEditFormID(siteID),
		Name: "update_site",
		Validate: func() error {
			return ValidatePayload("update_site", payload)
		},
		Call: func(ctx context.Context) (*domain.Site, error) {
			return s.api.UpdateSite(ctx, siteID, payload)
		},
		Invalidates: []synccache.Key{synccache.SitesKey(), synccache.SiteKey(siteID)},
		Reset:       form.Reset,
	})
}

func (s *DirectoryService) DeleteSite(ctx context.Context, siteID int64) error {
	_, err := Submit(ctx, s.mutations, Mutation[struct{}]{
		Form: SiteEditFormID(siteID),
		Name: "delete_site",
		Call: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.api.DeleteSite(ctx, siteID)
		},
		Invalidates: []synccache.Key{synccache.SitesKey(), synccache.SiteKey(siteID)},
	})
	return err
}

// CreateImport starts an import. Every filter is optional, so there is no
// local validation beyond the site id.
func (s *DirectoryService) CreateImport(ctx context.Context, siteID int64, form *ImportForm) (*domain.ImportJob, error) {
	payload := form.Payload()
	return Submit(ctx, s.mutations, Mutation[*domain.ImportJob]{
		Form: ImportFormID(siteID),
		Name: "create_import",
		Validate: func() error {
			return validSiteID("create_import", siteID)
		},
		Call: func(ctx context.Context) (*domain.ImportJob, error) {
			return s.api.CreateImportJob(ctx, siteID, payload)
		},
		Invalidates: []synccache.Key{synccache.ImportsKey(siteID)},
		Reset:       form.Reset,
	})
}

// Page reads one page with its full content. Single pages are not cached.
func (s *DirectoryService) Page(ctx context.Context, siteID, pageID int64) (domain.ManualPage, error) {
	if err := validSiteID("get_page", siteID); err != nil {
		return domain.ManualPage{}, err
	}
	if pageID <= 0 {
		return domain.ManualPage{}, domain.WrapError(domain.ErrInvalidInput, "get_page", fmt.Errorf("page id must be positive, got %d", pageID))
	}
	page, err := s.api.GetPage(ctx, siteID, pageID)
	if err != nil {
		return domain.ManualPage{}, err
	}
	return *page, nil
}

func (s *DirectoryService) CreatePage(ctx context.Context, siteID int64, form *PageForm) (*domain.ManualPage, error) {
	payload := form.Payload()
	return Submit(ctx, s.mutations, Mutation[*domain.ManualPage]{
		Form: PageFormID(siteID),
		Name: "create_page",
		Validate: func() error {
			if err := validSiteID("create_page", siteID); err != nil {
				return err
			}
			return ValidatePayload("create_page", payload)
		},
		Call: func(ctx context.Context) (*domain.ManualPage, error) {
			return s.api.CreatePage(ctx, siteID, payload)
		},
		Invalidates: []synccache.Key{synccache.PagesKey(siteID)},
		Reset:       form.Reset,
	})
}

func (s *DirectoryService) UpdatePage(ctx context.Context, siteID, pageID int64, update domain.ManualPageUpdate) (*domain.ManualPage, error) {
	return Submit(ctx, s.mutations, Mutation[*domain.ManualPage]{
		Form: FormID(fmt.Sprintf("pages/%d/%d", siteID, pageID)),
		Name: "update_page",
		Validate: func() error {
			return ValidatePayload("update_page", update)
		},
		Call: func(ctx context.Context) (*domain.ManualPage, error) {
			return s.api.UpdatePage(ctx, siteID, pageID, update)
		},
		Invalidates: []synccache.Key{synccache.PagesKey(siteID)},
	})
}

func (s *DirectoryService) DeletePage(ctx context.Context, siteID, pageID int64) error {
	_, err := Submit(ctx, s.mutations, Mutation[struct{}]{
		Form: FormID(fmt.Sprintf("pages/%d/%d", siteID, pageID)),
		Name: "delete_page",
		Call: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.api.DeletePage(ctx, siteID, pageID)
		},
		Invalidates: []synccache.Key{synccache.PagesKey(siteID)},
	})
	return err
}

func (s *DirectoryService) CreatePrompt(ctx context.Context, siteID int64, form *PromptForm) (*domain.PromptTemplate, error) {
	payload := form.Payload()
	return Submit(ctx, s.mutations, Mutation[*domain.PromptTemplate]{
		Form: PromptFormID(siteID),
		Name: "create_prompt",
		Validate: func() error {
			if err := validSiteID("create_prompt", siteID); err != nil {
				return err
			}
			return ValidatePayload("create_prompt", payload)
		},
		Call: func(ctx context.Context) (*domain.PromptTemplate, error) {
			return s.api.CreatePrompt(ctx, siteID, payload)
		},
		Invalidates: []synccache.Key{synccache.PromptsKey(siteID)},
		Reset:       form.Reset,
	})
}

func (s *DirectoryService) DeletePrompt(ctx context.Context, siteID, promptID int64) error {
	_, err := Submit(ctx, s.mutations, Mutation[struct{}]{
		Form: FormID(fmt.Sprintf("prompts/%d/%d", siteID, promptID)),
		Name: "delete_prompt",
		Call: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.api.DeletePrompt(ctx, siteID, promptID)
		},
		Invalidates: []synccache.Key{synccache.PromptsKey(siteID)},
	})
	return err
}

// Generate renders and runs the selected template. A missing template,
// unparsable variables, or variables not covering the placeholders of a
// cached template fail locally without any request. The result replaces
// form.Result; nothing is cached.
func (s *DirectoryService) Generate(ctx context.Context, siteID int64, form *GenerateForm) (*domain.GenerationResult, error) {
	var req domain.GenerationRequest
	return Submit(ctx, s.mutations, Mutation[*domain.GenerationResult]{
		Form: GenerateFormID(siteID),
		Name: "generate",
		Validate: func() error {
			built, err := form.Request()
			if err != nil {
				return err
			}
			if tmpl, ok := s.cachedPrompt(siteID, built.TemplateID); ok {
				if missing := MissingVariables(tmpl.Prompt, built.Variables); len(missing) > 0 {
					return fmt.Errorf("%w: missing %s", domain.ErrInvalidVariables, strings.Join(missing, ", "))
				}
			}
			req = built
			return nil
		},
		Call: func(ctx context.Context) (*domain.GenerationResult, error) {
			return s.api.Generate(ctx, siteID, req)
		},
		OnSuccess: func(result *domain.GenerationResult) {
			form.Result = result
		},
	})
}

func (s *DirectoryService) cachedPrompt(siteID, templateID int64) (domain.PromptTemplate, bool) {
	if s.resources == nil {
		return domain.PromptTemplate{}, false
	}
	prompts, ok := synccache.Value[[]domain.PromptTemplate](s.resources.Cache().Get(synccache.PromptsKey(siteID)))
	if !ok {
		return domain.PromptTemplate{}, false
	}
	for _, p := range prompts {
		if p.ID == templateID {
			return p, true
		}
	}
	return domain.PromptTemplate{}, false
}

func validSiteID(operation string, siteID int64) error {
	if siteID <= 0 {
		return domain.WrapError(domain.ErrInvalidInput, operation, fmt.Errorf("site id must be positive, got %d", siteID))
	}
	return nil
}
