// Package xlsx renders establishment listings as spreadsheets.
package xlsx

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/directory-console/internal/core/domain"
)

const maxSheetName = 31

var header = []any{
	"SIRET", "SIREN", "Nom", "Code NAF", "Libellé NAF", "Adresse", "Code postal",
	"Ville", "Département", "Actif", "Fermeture", "Latitude", "Longitude", "Géocodage",
}

type Exporter struct{}

func New() *Exporter {
	return &Exporter{}
}

func (e *Exporter) Extension() string {
	return "xlsx"
}

// Export writes one sheet named after the site slug, with a frozen, filterable header row.
func (e *Exporter) Export(site domain.Site, establishments []domain.Establishment, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(site)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, est := range establishments {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := establishmentRow(est)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return fmt.Errorf("size columns: %w", err)
	}
	if err := f.AutoFilter(sheet, fmt.Sprintf("A1:%s%d", lastCol, len(establishments)+1), nil); err != nil {
		return fmt.Errorf("add filter: %w", err)
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func establishmentRow(est domain.Establishment) []any {
	active := "Non"
	if est.IsActive {
		active = "Oui"
	}
	var lat, lon any
	if est.GeoLat != nil {
		lat = *est.GeoLat
	}
	if est.GeoLon != nil {
		lon = *est.GeoLon
	}
	return []any{
		est.Siret, est.Siren, est.DisplayName(), est.NAFCode, est.NAFLabel, est.Address,
		est.PostalCode, est.City, est.Department, active, est.ClosureLabel, lat, lon, est.GeoStatus,
	}
}

func sheetName(site domain.Site) string {
	name := site.Slug
	if name == "" {
		name = site.Name
	}
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '-'
		}
		return r
	}, name)
	name = strings.Trim(name, "'")
	if name == "" {
		return "Etablissements"
	}
	if runes := []rune(name); len(runes) > maxSheetName {
		name = string(runes[:maxSheetName])
	}
	return name
}
