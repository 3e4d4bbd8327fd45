// Package export writes execution sheet exports to disk, as the raw JSON
// document the backend produced or as an xlsx workbook.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/trailblaze/fieldops/internal/models"
)

// Supported formats.
const (
	FormatXLSX = "xlsx"
	FormatJSON = "json"
)

// Workbook sheet names.
const (
	SummarySheet    = "Summary"
	OperationsSheet = "Operations"
	PolygonsSheet   = "Polygons"
)

// ParseFormat accepts "xlsx", "excel" and "json", case-insensitively.
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", FormatXLSX, "excel":
		return FormatXLSX, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown export format %q (use xlsx or json)", s)
	}
}

// FileName is the default name of an export, execution-sheet-<id>.<format>.
func FileName(sheetID, format string) string {
	return fmt.Sprintf("execution-sheet-%s.%s", sheetID, format)
}

// Write stores an export in the requested format. raw is the backend body,
// used verbatim (re-indented) for JSON.
func Write(doc models.ExportDocument, raw []byte, format, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: create directory: %w", err)
	}
	switch format {
	case FormatJSON:
		return WriteJSON(raw, path)
	case FormatXLSX:
		return WriteWorkbook(doc, path)
	default:
		return fmt.Errorf("export: unsupported format %q", format)
	}
}

// WriteJSON writes the document as indented JSON, or untouched when it is
// not valid JSON.
func WriteJSON(raw []byte, path string) error {
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		out.Reset()
		out.Write(raw)
	}
	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	return nil
}

// WriteWorkbook renders the document into three sheets: a key/value
// summary, one row per operation, and one row per (polygon, operation).
func WriteWorkbook(doc models.ExportDocument, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	for _, name := range []string{OperationsSheet, PolygonsSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9EAD3"}},
	})
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	summary := [][]interface{}{
		{"Field", "Value"},
		{"Execution sheet", doc.ID},
		{"Starting date", doc.StartingDate},
		{"Finishing date", doc.FinishingDate},
		{"Last activity", doc.LastActivityDate},
		{"Observations", doc.Observations},
		{"Operations", len(doc.Operations)},
		{"Polygons", len(doc.PolygonsOperations)},
	}
	if err := writeRows(f, SummarySheet, summary, header); err != nil {
		return err
	}

	ops := [][]interface{}{{"Operation", "Area executed (ha)", "Area %", "Starting date", "Finishing date", "Observations"}}
	for _, op := range doc.Operations {
		ops = append(ops, []interface{}{op.OperationCode, op.AreaHaExecuted, op.AreaPerc, op.StartingDate, op.FinishingDate, op.Observations})
	}
	if err := writeRows(f, OperationsSheet, ops, header); err != nil {
		return err
	}

	polys := [][]interface{}{{"Polygon", "Operation", "Status", "Starting date", "Finishing date", "Last activity", "Observations"}}
	for _, p := range doc.PolygonsOperations {
		for _, op := range p.Operations {
			polys = append(polys, []interface{}{p.PolygonID, op.OperationID, op.Status, op.StartingDate, op.FinishingDate, op.LastActivityDate, op.Observations})
		}
	}
	if err := writeRows(f, PolygonsSheet, polys, header); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export: save %s: %w", path, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("export: %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	lastCol, _, err := excelize.SplitCellName(last)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return f.SetColWidth(sheet, "A", lastCol, 20)
}
