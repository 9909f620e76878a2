// Package directoryapi is the typed HTTP client of the directory backend.
package directoryapi

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/directory-console/internal/core/domain"
	"github.com/kirillkom/directory-console/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
	logger     *slog.Logger
}

type Options struct {
	Timeout time.Duration
	// RateLimitRPS caps outbound requests per second; zero disables the limiter.
	RateLimitRPS       float64
	RateLimitBurst     int
	ResilienceExecutor *resilience.Executor
	HTTPClient         *http.Client
	Logger             *slog.Logger
}

func New(baseURL string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	var limiter *rate.Limiter
	if options.RateLimitRPS > 0 {
		burst := options.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(options.RateLimitRPS), burst)
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		limiter:    limiter,
		executor:   options.ResilienceExecutor,
		logger:     logger,
	}
}

const sitesPath = "/sites/"

// sitePath joins an item path under a site. Collection routes of the backend
// carry a trailing slash, see collectionPath.
func sitePath(siteID int64, parts ...string) string {
	path := sitesPath + strconv.FormatInt(siteID, 10)
	for _, p := range parts {
		path += "/" + p
	}
	return path
}

func collectionPath(siteID int64, collection string) string {
	return sitePath(siteID, collection) + "/"
}

func (c *Client) ListSites(ctx context.Context) ([]domain.Site, error) {
	var out []domain.Site
	if err := c.getJSON(ctx, sitesPath, &out, "list_sites"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetSite(ctx context.Context, siteID int64) (*domain.Site, error) {
	var out domain.Site
	if err := c.getJSON(ctx, sitePath(siteID), &out, "get_site"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateSite(ctx context.Context, payload domain.SiteCreate) (*domain.Site, error) {
	var out domain.Site
	if err := c.sendJSON(ctx, http.MethodPost, sitesPath, payload, &out, "create_site"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateSite(ctx context.Context, siteID int64, payload domain.SiteCreate) (*domain.Site, error) {
	var out domain.Site
	if err := c.sendJSON(ctx, http.MethodPut, sitePath(siteID), payload, &out, "update_site"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteSite(ctx context.Context, siteID int64) error {
	return c.sendJSON(ctx, http.MethodDelete, sitePath(siteID), nil, nil, "delete_site")
}

func (c *Client) ListImportJobs(ctx context.Context, siteID int64) ([]domain.ImportJob, error) {
	var out []domain.ImportJob
	if err := c.getJSON(ctx, collectionPath(siteID, "imports"), &out, "list_imports"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateImportJob(ctx context.Context, siteID int64, payload domain.ImportJobCreate) (*domain.ImportJob, error) {
	var out domain.ImportJob
	if err := c.sendJSON(ctx, http.MethodPost, collectionPath(siteID, "imports"), payload, &out, "create_import"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListEstablishments(ctx context.Context, siteID int64) ([]domain.Establishment, error) {
	return c.ListEstablishmentsFiltered(ctx, siteID, domain.EstablishmentFilter{})
}

func (c *Client) ListEstablishmentsFiltered(ctx context.Context, siteID int64, filter domain.EstablishmentFilter) ([]domain.Establishment, error) {
	path := collectionPath(siteID, "establishments")
	query := url.Values{}
	if filter.Active != nil {
		query.Set("active", strconv.FormatBool(*filter.Active))
	}
	if pc := strings.TrimSpace(filter.PostalCode); pc != "" {
		query.Set("postal_code", pc)
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var out []domain.Establishment
	if err := c.getJSON(ctx, path, &out, "list_establishments"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListPages(ctx context.Context, siteID int64) ([]domain.ManualPage, error) {
	var out []domain.ManualPage
	if err := c.getJSON(ctx, collectionPath(siteID, "pages"), &out, "list_pages"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetPage(ctx context.Context, siteID, pageID int64) (*domain.ManualPage, error) {
	var out domain.ManualPage
	if err := c.getJSON(ctx, sitePath(siteID, "pages", strconv.FormatInt(pageID, 10)), &out, "get_page"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreatePage(ctx context.Context, siteID int64, payload domain.ManualPageCreate) (*domain.ManualPage, error) {
	var out domain.ManualPage
	if err := c.sendJSON(ctx, http.MethodPost, collectionPath(siteID, "pages"), payload, &out, "create_page"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdatePage(ctx context.Context, siteID, pageID int64, payload domain.ManualPageUpdate) (*domain.ManualPage, error) {
	var out domain.ManualPage
	path := sitePath(siteID, "pages", strconv.FormatInt(pageID, 10))
	if err := c.sendJSON(ctx, http.MethodPut, path, payload, &out, "update_page"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeletePage(ctx context.Context, siteID, pageID int64) error {
	path := sitePath(siteID, "pages", strconv.FormatInt(pageID, 10))
	return c.sendJSON(ctx, http.MethodDelete, path, nil, nil, "delete_page")
}

func (c *Client) ListPrompts(ctx context.Context, siteID int64) ([]domain.PromptTemplate, error) {
	var out []domain.PromptTemplate
	if err := c.getJSON(ctx, collectionPath(siteID, "prompts"), &out, "list_prompts"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreatePrompt(ctx context.Context, siteID int64, payload domain.PromptTemplateCreate) (*domain.PromptTemplate, error) {
	var out domain.PromptTemplate
	if err := c.sendJSON(ctx, http.MethodPost, collectionPath(siteID, "prompts"), payload, &out, "create_prompt"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeletePrompt(ctx context.Context, siteID, promptID int64) error {
	path := sitePath(siteID, "prompts", strconv.FormatInt(promptID, 10))
	return c.sendJSON(ctx, http.MethodDelete, path, nil, nil, "delete_prompt")
}

func (c *Client) Generate(ctx context.Context, siteID int64, payload domain.GenerationRequest) (*domain.GenerationResult, error) {
	if payload.Variables == nil {
		payload.Variables = map[string]string{}
	}
	var out domain.GenerationResult
	if err := c.sendJSON(ctx, http.MethodPost, collectionPath(siteID, "generate"), payload, &out, "generate"); err != nil {
		return nil, err
	}
	return &out, nil
}
