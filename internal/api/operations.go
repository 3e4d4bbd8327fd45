package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/trailblaze/fieldops/internal/models"
)

// ParcelAssignment is one parcel and the area to work on it.
type ParcelAssignment struct {
	ParcelID string  `json:"parcelId"`
	Area     float64 `json:"area"`
}

// AssignRequest is the body of POST /operations/assign.
type AssignRequest struct {
	ExecutionSheetID  string             `json:"executionSheetId"`
	OperationID       string             `json:"operationId"`
	ParcelExecutions  []ParcelAssignment `json:"parcelExecutions"`
	ExpectedTotalArea float64            `json:"expectedTotalArea"`
	Notes             string             `json:"notes,omitempty"`
}

// Validate mirrors the backend's "Dados incompletos" checks.
func (r AssignRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.ExecutionSheetID) == "":
		return &ValidationError{Field: "sheet", Message: "is required"}
	case strings.TrimSpace(r.OperationID) == "":
		return &ValidationError{Field: "operation", Message: "is required"}
	case len(r.ParcelExecutions) == 0:
		return &ValidationError{Field: "parcels", Message: "at least one parcel is required"}
	}
	for _, p := range r.ParcelExecutions {
		if p.Area < 0 {
			return &ValidationError{Field: "area", Message: "must not be negative"}
		}
	}
	return nil
}

// TotalArea sums the per-parcel areas.
func (r AssignRequest) TotalArea() float64 {
	var total float64
	for _, p := range r.ParcelExecutions {
		total += p.Area
	}
	return total
}

// EditOperationRequest is the body of PATCH
// /operations/edit-operation-execution. Nil fields are omitted.
type EditOperationRequest struct {
	OperationExecutionID     string   `json:"operationExecutionId"`
	PredictedEndDate         *string  `json:"predictedEndDate,omitempty"` // yyyy-mm-dd
	EstimatedDurationMinutes *int64   `json:"estimatedDurationMinutes,omitempty"`
	ExpectedTotalArea        *float64 `json:"expectedTotalArea,omitempty"`
	Observations             *string  `json:"observations,omitempty"`
}

// AddInfoRequest is the body of POST /operations/activity/addinfo.
type AddInfoRequest struct {
	ActivityID   string   `json:"activityId"`
	Observations string   `json:"observations"`
	Photos       []string `json:"photos"`
	GPSTracks    []string `json:"gpsTracks"`
}

// Assign assigns an operation to parcels of the sheet.
func (c *Client) Assign(ctx context.Context, req AssignRequest) (Message, error) {
	var msg Message
	if err := req.Validate(); err != nil {
		return msg, err
	}
	if req.ExpectedTotalArea == 0 {
		req.ExpectedTotalArea = req.TotalArea()
	}
	err := c.doJSON(ctx, http.MethodPost, "/operations/assign", req, &msg)
	return msg, err
}

// StartActivity opens an activity on a parcel execution of an operation.
func (c *Client) StartActivity(ctx context.Context, operationExecutionID, parcelOperationExecutionID string) (Message, error) {
	var msg Message
	body := map[string]string{"parcelOperationExecutionId": parcelOperationExecutionID}
	err := c.doJSON(ctx, http.MethodPost, "/operations/"+url.PathEscape(operationExecutionID)+"/start", body, &msg)
	return msg, err
}

// StopActivity closes a running activity.
func (c *Client) StopActivity(ctx context.Context, operationExecutionID, activityID string) (Message, error) {
	var msg Message
	body := map[string]string{"activityId": activityID}
	err := c.doJSON(ctx, http.MethodPost, "/operations/"+url.PathEscape(operationExecutionID)+"/stop", body, &msg)
	return msg, err
}

// EditOperationExecution patches the planning fields of an operation.
func (c *Client) EditOperationExecution(ctx context.Context, req EditOperationRequest) (Message, error) {
	var msg Message
	if strings.TrimSpace(req.OperationExecutionID) == "" {
		return msg, &ValidationError{Field: "operation execution", Message: "is required"}
	}
	if req.PredictedEndDate == nil && req.EstimatedDurationMinutes == nil && req.ExpectedTotalArea == nil && req.Observations == nil {
		return msg, &ValidationError{Message: "nothing to update"}
	}
	err := c.doJSON(ctx, http.MethodPatch, "/operations/edit-operation-execution", req, &msg)
	return msg, err
}

// OperationActivities lists every activity of an operation execution.
func (c *Client) OperationActivities(ctx context.Context, operationExecutionID string) ([]models.Activity, error) {
	var activities []models.Activity
	err := c.doJSON(ctx, http.MethodGet, "/operations/"+url.PathEscape(operationExecutionID)+"/activities", nil, &activities)
	return activities, err
}

// ParcelActivities lists the activities of one parcel execution.
func (c *Client) ParcelActivities(ctx context.Context, operationExecutionID, parcelOperationExecutionID string) ([]models.Activity, error) {
	var activities []models.Activity
	path := "/operations/" + url.PathEscape(operationExecutionID) + "/parcels/" + url.PathEscape(parcelOperationExecutionID) + "/activities"
	err := c.doJSON(ctx, http.MethodGet, path, nil, &activities)
	return activities, err
}

// OperationParcels lists the parcel executions of an operation execution.
func (c *Client) OperationParcels(ctx context.Context, operationExecutionID string) ([]models.ParcelExecution, error) {
	var parcels []models.ParcelExecution
	err := c.doJSON(ctx, http.MethodGet, "/operations/"+url.PathEscape(operationExecutionID)+"/parcels", nil, &parcels)
	return parcels, err
}

// AddActivityInfo attaches observations, photos and GPS tracks to a
// finished activity.
func (c *Client) AddActivityInfo(ctx context.Context, req AddInfoRequest) (Message, error) {
	var msg Message
	if strings.TrimSpace(req.ActivityID) == "" {
		return msg, &ValidationError{Field: "activity", Message: "is required"}
	}
	if req.Photos == nil {
		req.Photos = []string{}
	}
	if req.GPSTracks == nil {
		req.GPSTracks = []string{}
	}
	err := c.doJSON(ctx, http.MethodPost, "/operations/activity/addinfo", req, &msg)
	return msg, err
}

// DeletePhoto detaches one photo from an activity.
func (c *Client) DeletePhoto(ctx context.Context, activityID, photoURL string) (Message, error) {
	var msg Message
	body := map[string]string{"activityId": activityID, "photoUrl": photoURL}
	err := c.doJSON(ctx, http.MethodPost, "/operations/activity/deletephoto", body, &msg)
	return msg, err
}
