package models

// ParcelStatus is the progress of one operation on one parcel.
type ParcelStatus string

const (
	ParcelPending    ParcelStatus = "PENDING"
	ParcelAssigned   ParcelStatus = "ASSIGNED"
	ParcelInProgress ParcelStatus = "IN_PROGRESS"
	ParcelCompleted  ParcelStatus = "COMPLETED"
)

// OperationExecution is the progress record of one operation within a sheet
type OperationExecution struct {
	ID                       string    `json:"id"`
	ExecutionSheetID         string    `json:"executionSheetId,omitempty"`
	OperationID              string    `json:"operationId"`
	ExpectedTotalArea        float64   `json:"expectedTotalArea"`
	TotalExecutedArea        float64   `json:"totalExecutedArea"`
	PercentExecuted          float64   `json:"percentExecuted"`
	StartDate                Timestamp `json:"startDate"`
	LastActivityDate         Timestamp `json:"lastActivityDate"`
	CompletionDate           Timestamp `json:"completionDate"`
	PredictedEndDate         Timestamp `json:"predictedEndDate"`
	EstimatedDurationMinutes *int64    `json:"estimatedDurationMinutes,omitempty"`
	Observations             string    `json:"observations,omitempty"`
}

// ParcelExecution is the progress record of one operation on one parcel
type ParcelExecution struct {
	ID                   string       `json:"id"`
	OperationExecutionID string       `json:"operationExecutionId,omitempty"`
	ParcelID             string       `json:"parcelId"`
	Status               ParcelStatus `json:"status"`
	ExpectedArea         float64      `json:"expectedArea"`
	ExecutedArea         float64      `json:"executedArea"`
	AssignedUsername     string       `json:"assignedUsername,omitempty"` // empty when unassigned
	StartDate            Timestamp    `json:"startDate"`
	LastActivityDate     Timestamp    `json:"lastActivityDate"`
	CompletionDate       Timestamp    `json:"completionDate"`
}
