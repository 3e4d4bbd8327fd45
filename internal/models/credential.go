package models

import (
	"time"

	"gorm.io/gorm"
)

// AuthTypeJWT is the only auth type a stored credential can be restored from.
const AuthTypeJWT = "jwt"

// Credential is the locally stored login, one row at most
type Credential struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Username string `gorm:"not null" json:"username"`
	Token    string `gorm:"not null" json:"-"`
	AuthType string `gorm:"default:jwt" json:"auth_type"`
	Server   string `json:"server"`
}

// ExportRecord remembers where an exported sheet was written
type ExportRecord struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	SheetID    string    `gorm:"index;not null" json:"sheet_id"`
	Path       string    `gorm:"not null" json:"path"`
	Format     string    `gorm:"default:xlsx" json:"format"` // xlsx, json
	Operations int       `json:"operations"`
	ExportedBy string    `json:"exported_by"`
}

// TrackedActivity is an activity started from this machine, kept so that
// "activity stop" and the timer know what is running without a lookup.
type TrackedActivity struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ActivityID                 string     `gorm:"uniqueIndex;not null" json:"activity_id"`
	OperationExecutionID       string     `gorm:"not null" json:"operation_execution_id"`
	ParcelOperationExecutionID string     `json:"parcel_operation_execution_id"`
	Operator                   string     `json:"operator"`
	StartedAt                  time.Time  `gorm:"not null" json:"started_at"`
	StoppedAt                  *time.Time `json:"stopped_at,omitempty"`
}

// Running reports whether the activity has not been stopped from here.
func (a TrackedActivity) Running() bool {
	return a.StoppedAt == nil
}
