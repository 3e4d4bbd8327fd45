package models

// ExportDocument is the payload of an execution sheet export.
type ExportDocument struct {
	ID                 string             `json:"id"`
	StartingDate       string             `json:"starting_date"`
	FinishingDate      string             `json:"finishing_date"`
	LastActivityDate   string             `json:"last_activity_date"`
	Observations       string             `json:"observations"`
	Operations         []ExportOperation  `json:"operations"`
	PolygonsOperations []ExportPolygonOps `json:"polygons_operations"`
}

// ExportOperation summarizes one operation execution.
type ExportOperation struct {
	OperationCode  string  `json:"operation_code"`
	AreaHaExecuted float64 `json:"area_ha_executed"`
	AreaPerc       float64 `json:"area_perc"`
	StartingDate   string  `json:"starting_date"`
	FinishingDate  string  `json:"finishing_date"`
	Observations   string  `json:"observations"`
}

// ExportPolygonOps lists the operations applied to one polygon.
type ExportPolygonOps struct {
	PolygonID  int64                `json:"polygon_id"`
	Operations []ExportPolygonEntry `json:"operations"`
}

// ExportPolygonEntry is the status of one operation on one polygon.
type ExportPolygonEntry struct {
	OperationID      int64  `json:"operation_id"`
	Status           string `json:"status"`
	StartingDate     string `json:"starting_date"`
	FinishingDate    string `json:"finishing_date"`
	LastActivityDate string `json:"last_activity_date"`
	Observations     string `json:"observations"`
}
