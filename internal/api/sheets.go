package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/trailblaze/fieldops/internal/models"
)

// CreateSheetRequest is the body of POST /fe/create.
type CreateSheetRequest struct {
	Title                 string `json:"title"`
	Description           string `json:"description"`
	AssociatedWorkSheetID string `json:"associatedWorkSheetId"`
}

// Validate checks the fields the backend rejects as "Dados inválidos".
func (r CreateSheetRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return &ValidationError{Field: "title", Message: "is required"}
	}
	if strings.TrimSpace(r.AssociatedWorkSheetID) == "" {
		return &ValidationError{Field: "worksheet", Message: "is required"}
	}
	return nil
}

// UpdateSheetRequest is the body of PUT /fe/{id}. Nil fields are left alone.
type UpdateSheetRequest struct {
	Title        *string            `json:"title,omitempty"`
	Description  *string            `json:"description,omitempty"`
	Observations *string            `json:"observations,omitempty"`
	State        *models.SheetState `json:"state,omitempty"`
}

// Empty reports whether no field would change.
func (r UpdateSheetRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.Observations == nil && r.State == nil
}

// ListSheets returns the sheets visible to the caller. A non-empty status is
// sent to the backend and also enforced here, so the result never holds
// another state.
func (c *Client) ListSheets(ctx context.Context, status models.SheetState) ([]models.ExecutionSheet, error) {
	path := "/fe"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var sheets []models.ExecutionSheet
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &sheets); err != nil {
		return nil, err
	}
	return FilterByState(sheets, status), nil
}

// FilterByState keeps the sheets in status; an empty status keeps all.
func FilterByState(sheets []models.ExecutionSheet, status models.SheetState) []models.ExecutionSheet {
	if status == "" {
		return sheets
	}
	out := make([]models.ExecutionSheet, 0, len(sheets))
	for _, s := range sheets {
		if s.State == status {
			out = append(out, s)
		}
	}
	return out
}

// SheetsForUser lists the sheets owned by another user (administrators only).
func (c *Client) SheetsForUser(ctx context.Context, username string) ([]models.ExecutionSheet, error) {
	var sheets []models.ExecutionSheet
	err := c.doJSON(ctx, http.MethodGet, "/fe/user/"+url.PathEscape(username), nil, &sheets)
	return sheets, err
}

// GetSheet fetches the full tree of one sheet.
func (c *Client) GetSheet(ctx context.Context, id string) (models.SheetDetail, error) {
	var detail models.SheetDetail
	err := c.doJSON(ctx, http.MethodGet, "/fe/"+url.PathEscape(id), nil, &detail)
	return detail, err
}

// CreateSheet creates a sheet for a worksheet that has none yet.
func (c *Client) CreateSheet(ctx context.Context, req CreateSheetRequest) (models.ExecutionSheet, error) {
	var sheet models.ExecutionSheet
	if err := req.Validate(); err != nil {
		return sheet, err
	}
	err := c.doJSON(ctx, http.MethodPost, "/fe/create", req, &sheet)
	return sheet, err
}

// UpdateSheet changes the given fields and returns the stored sheet.
func (c *Client) UpdateSheet(ctx context.Context, id string, req UpdateSheetRequest) (models.ExecutionSheet, error) {
	var sheet models.ExecutionSheet
	if req.Empty() {
		return sheet, &ValidationError{Message: "nothing to update"}
	}
	err := c.doJSON(ctx, http.MethodPut, "/fe/"+url.PathEscape(id), req, &sheet)
	return sheet, err
}

// DeleteSheet removes a sheet and everything under it. The backend answers
// with a confirmation text, returned as is.
func (c *Client) DeleteSheet(ctx context.Context, id string) (string, error) {
	var text string
	err := c.doJSON(ctx, http.MethodDelete, "/fe/"+url.PathEscape(id), nil, &text)
	return strings.TrimSpace(text), err
}

// AvailableWorksheets lists worksheets that can still get a sheet.
func (c *Client) AvailableWorksheets(ctx context.Context) ([]models.Worksheet, error) {
	var worksheets []models.Worksheet
	err := c.doJSON(ctx, http.MethodGet, "/fe/available-worksheets", nil, &worksheets)
	return worksheets, err
}

// ExportSheet downloads the export document. raw is the body exactly as
// sent, for writing JSON exports untouched.
func (c *Client) ExportSheet(ctx context.Context, id string) (doc models.ExportDocument, raw []byte, err error) {
	var text string
	if err = c.doJSON(ctx, http.MethodGet, "/fe/export/"+url.PathEscape(id), nil, &text); err != nil {
		return doc, nil, err
	}
	raw = []byte(text)
	if err = json.Unmarshal(raw, &doc); err != nil {
		return doc, raw, &ValidationError{Message: "export is not a valid document: " + err.Error()}
	}
	return doc, raw, nil
}

// WorksheetParcels lists the parcels of a worksheet, for assignment.
func (c *Client) WorksheetParcels(ctx context.Context, worksheetID string) ([]models.WorksheetParcel, error) {
	var parcels []models.WorksheetParcel
	err := c.doJSON(ctx, http.MethodGet, "/fo/"+url.PathEscape(worksheetID)+"/parcels", nil, &parcels)
	return parcels, err
}
