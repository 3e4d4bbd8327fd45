package db

import (
	"fmt"

	"github.com/trailblaze/fieldops/internal/models"
)

// RecordExport remembers that a sheet was exported to path.
func (s *Store) RecordExport(rec models.ExportRecord) (*models.ExportRecord, error) {
	if rec.SheetID == "" || rec.Path == "" {
		return nil, fmt.Errorf("export record needs a sheet id and a path")
	}
	if rec.Format == "" {
		rec.Format = "xlsx"
	}
	if err := s.DB.Create(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetExports lists past exports, newest first. An empty sheetID lists all;
// limit <= 0 means no limit.
func (s *Store) GetExports(sheetID string, limit int) ([]models.ExportRecord, error) {
	var records []models.ExportRecord
	q := s.DB.Order("created_at DESC").Order("id DESC")
	if sheetID != "" {
		q = q.Where("sheet_id = ?", sheetID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
