package models

import "strings"

// SheetState is the lifecycle state of an execution sheet.
type SheetState string

const (
	SheetPending    SheetState = "PENDING"
	SheetInProgress SheetState = "IN_PROGRESS"
	SheetCompleted  SheetState = "COMPLETED"
	SheetCancelled  SheetState = "CANCELLED"
)

// SheetStates lists every state in display order.
var SheetStates = []SheetState{SheetPending, SheetInProgress, SheetCompleted, SheetCancelled}

// ParseSheetState normalizes user input ("in progress", "in_progress") to a state.
func ParseSheetState(s string) (SheetState, bool) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, " ", "_")
	norm = strings.ReplaceAll(norm, "-", "_")
	for _, state := range SheetStates {
		if string(state) == norm {
			return state, true
		}
	}
	return "", false
}

// ExecutionSheet tracks the execution of a worksheet's prescribed operations
type ExecutionSheet struct {
	ID                    string     `json:"id"`
	Title                 string     `json:"title"`
	Description           string     `json:"description,omitempty"`
	State                 SheetState `json:"state"`
	AssociatedWorkSheetID string     `json:"associatedWorkSheetId"`
	AssociatedUser        string     `json:"associatedUser"`
	StartDate             Timestamp  `json:"startDate"`
	LastActivityDate      Timestamp  `json:"lastActivityDate"`
	CompletionDate        Timestamp  `json:"completionDate"` // zero until completed
	Observations          string     `json:"observations,omitempty"`
}

// SheetDetail is the full tree returned for a single sheet.
type SheetDetail struct {
	ExecutionSheet ExecutionSheet    `json:"executionSheet"`
	Operations     []OperationDetail `json:"operations"`
}

// OperationDetail groups an operation execution with its parcels.
type OperationDetail struct {
	OperationExecution OperationExecution `json:"operationExecution"`
	Parcels            []ParcelDetail     `json:"parcels"`
}

// ParcelDetail groups a parcel execution with its activities.
type ParcelDetail struct {
	ParcelExecution ParcelExecution `json:"parcelExecution"`
	Activities      []Activity      `json:"activities"`
}

// Worksheet is a worksheet that can still receive an execution sheet.
type Worksheet struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	Status      string `json:"status,omitempty"`
	Description string `json:"description,omitempty"`
}

// WorksheetParcel is one land parcel (polygon) of a worksheet.
type WorksheetParcel struct {
	ID        string  `json:"id"`
	PolygonID string  `json:"polygonId,omitempty"`
	Area      float64 `json:"area,omitempty"`
	AigpCode  string  `json:"aigp,omitempty"`
}
