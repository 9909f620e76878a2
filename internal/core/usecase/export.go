package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/directory-console/internal/core/domain"
	"github.com/kirillkom/directory-console/internal/core/ports"
)

type ExportResult struct {
	Key   string `json:"key"`
	Rows  int    `json:"rows"`
	Bytes int    `json:"bytes"`
}

type ExportUseCase struct {
	api      ports.EstablishmentAPI
	sites    ports.SiteAPI
	exporter ports.EstablishmentExporter
	storage  ports.ObjectStorage
	logger   *slog.Logger
	now      func() time.Time
}

func NewExportUseCase(
	api ports.DirectoryAPI,
	exporter ports.EstablishmentExporter,
	storage ports.ObjectStorage,
	logger *slog.Logger,
) *ExportUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportUseCase{
		api:      api,
		sites:    api,
		exporter: exporter,
		storage:  storage,
		logger:   logger,
		now:      time.Now,
	}
}

// Export writes the establishments of a site, optionally filtered, to object
// storage. Exports always read the server directly rather than the cache.
func (uc *ExportUseCase) Export(ctx context.Context, siteID int64, filter domain.EstablishmentFilter) (*ExportResult, error) {
	site, err := uc.sites.GetSite(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("load site: %w", err)
	}
	establishments, err := uc.api.ListEstablishmentsFiltered(ctx, siteID, filter)
	if err != nil {
		return nil, fmt.Errorf("list establishments: %w", err)
	}

	var buf bytes.Buffer
	if err := uc.exporter.Export(*site, establishments, &buf); err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}

	key := fmt.Sprintf("%s_%s.%s", site.Slug, uc.now().UTC().Format("20060102T150405Z"), uc.exporter.Extension())
	size := buf.Len()
	if err := uc.storage.Save(ctx, key, &buf); err != nil {
		return nil, fmt.Errorf("save export: %w", err)
	}

	uc.logger.Info("establishments_exported", "site_id", siteID, "key", key, "rows", len(establishments), "bytes", size)
	return &ExportResult{Key: key, Rows: len(establishments), Bytes: size}, nil
}
