package db

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/trailblaze/fieldops/internal/models"
)

// TrackActivity remembers an activity the backend just started for us.
func (s *Store) TrackActivity(activityID, operationExecutionID, parcelOperationExecutionID, operator string, startedAt time.Time) (*models.TrackedActivity, error) {
	if activityID == "" {
		return nil, fmt.Errorf("activity id cannot be empty")
	}
	act := models.TrackedActivity{
		ActivityID:                 activityID,
		OperationExecutionID:       operationExecutionID,
		ParcelOperationExecutionID: parcelOperationExecutionID,
		Operator:                   operator,
		StartedAt:                  startedAt,
	}
	if err := s.DB.Create(&act).Error; err != nil {
		return nil, err
	}
	return &act, nil
}

// GetRunningActivity returns the newest activity not stopped from here, if any
func (s *Store) GetRunningActivity() (*models.TrackedActivity, error) {
	var act models.TrackedActivity
	err := s.DB.Where("stopped_at IS NULL").Order("started_at DESC").First(&act).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // nothing running is not an error
	}
	if err != nil {
		return nil, err
	}
	return &act, nil
}

// MarkActivityStopped records the stop of a tracked activity. Unknown ids
// are ignored: the activity may have been started elsewhere.
func (s *Store) MarkActivityStopped(activityID string, stoppedAt time.Time) (*models.TrackedActivity, error) {
	var act models.TrackedActivity
	err := s.DB.Where("activity_id = ?", activityID).First(&act).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	act.StoppedAt = &stoppedAt
	if err := s.DB.Save(&act).Error; err != nil {
		return nil, err
	}
	return &act, nil
}

// GetActivitiesInRange returns tracked activities started within the range
func (s *Store) GetActivitiesInRange(start, end time.Time) ([]models.TrackedActivity, error) {
	var acts []models.TrackedActivity
	err := s.DB.Where("started_at >= ? AND started_at <= ?", start, end).
		Order("started_at ASC").
		Find(&acts).Error
	if err != nil {
		return nil, err
	}
	return acts, nil
}
