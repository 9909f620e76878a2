package ports

import (
	"context"
	"io"

	"github.com/kirillkom/directory-console/internal/core/domain"
)

// SiteAPI reads and writes directory sites.
type SiteAPI interface {
	ListSites(ctx context.Context) ([]domain.Site, error)
	GetSite(ctx context.Context, siteID int64) (*domain.Site, error)
	CreateSite(ctx context.Context, payload domain.SiteCreate) (*domain.Site, error)
	UpdateSite(ctx context.Context, siteID int64, payload domain.SiteCreate) (*domain.Site, error)
	DeleteSite(ctx context.Context, siteID int64) error
}

// ImportJobAPI lists and starts registry imports of a site.
type ImportJobAPI interface {
	ListImportJobs(ctx context.Context, siteID int64) ([]domain.ImportJob, error)
	CreateImportJob(ctx context.Context, siteID int64, payload domain.ImportJobCreate) (*domain.ImportJob, error)
}

// EstablishmentAPI lists the establishments imported for a site.
type EstablishmentAPI interface {
	ListEstablishments(ctx context.Context, siteID int64) ([]domain.Establishment, error)
	ListEstablishmentsFiltered(ctx context.Context, siteID int64, filter domain.EstablishmentFilter) ([]domain.Establishment, error)
}

// PageAPI manages manual content pages.
type PageAPI interface {
	ListPages(ctx context.Context, siteID int64) ([]domain.ManualPage, error)
	GetPage(ctx context.Context, siteID, pageID int64) (*domain.ManualPage, error)
	CreatePage(ctx context.Context, siteID int64, payload domain.ManualPageCreate) (*domain.ManualPage, error)
	UpdatePage(ctx context.Context, siteID, pageID int64, payload domain.ManualPageUpdate) (*domain.ManualPage, error)
	DeletePage(ctx context.Context, siteID, pageID int64) error
}

// PromptAPI manages prompt templates and runs generations.
type PromptAPI interface {
	ListPrompts(ctx context.Context, siteID int64) ([]domain.PromptTemplate, error)
	CreatePrompt(ctx context.Context, siteID int64, payload domain.PromptTemplateCreate) (*domain.PromptTemplate, error)
	DeletePrompt(ctx context.Context, siteID, promptID int64) error
	Generate(ctx context.Context, siteID int64, payload domain.GenerationRequest) (*domain.GenerationResult, error)
}

// DirectoryAPI is the full remote surface consumed by the console.
type DirectoryAPI interface {
	SiteAPI
	ImportJobAPI
	EstablishmentAPI
	PageAPI
	PromptAPI
}

// TransitionPublisher forwards observed import job transitions to other systems.
type TransitionPublisher interface {
	PublishJobTransition(ctx context.Context, transition domain.JobTransition) error
}

// ObjectStorage stores exported artifacts.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// EstablishmentExporter encodes an establishment list into a document.
type EstablishmentExporter interface {
	Export(site domain.Site, establishments []domain.Establishment, w io.Writer) error
	Extension() string
}
