package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a prediction task.
type TaskStatus string

// Task lifecycle: pending -> processing -> completed | failed.
// No other transitions are valid; completed and failed are terminal.
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether the status is a final state. A worker that
// is redelivered a message for a terminal task must skip it without
// re-billing.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Task is one prediction request's lifecycle record. The dispatcher
// creates it in the pending state; only the worker that dequeued its
// queue message performs the subsequent transitions.
type Task struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Model     string    `json:"model"`
	City      string    `json:"city"`
	District  int       `json:"district"`
	// Hour is the target hour of day (0-23) the forecast is for.
	Hour int `json:"hour"`
	// Cost is fixed at creation time and charged exactly once, on
	// successful completion. Zero for free-path submissions.
	Cost   float64    `json:"cost"`
	Status TaskStatus `json:"status"`
	// Result holds the serialized forecast once the task completes.
	Result *string `json:"result,omitempty"`
	// TripCosts holds the optional per-hour derived cost estimates.
	TripCosts *string   `json:"trip_costs,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTask creates a pending Task for the given account and target.
func NewTask(accountID uuid.UUID, model, city string, district, hour int, cost float64) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:        uuid.New(),
		AccountID: accountID,
		Model:     model,
		City:      city,
		District:  district,
		Hour:      hour,
		Cost:      cost,
		Status:    TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil || t.AccountID == uuid.Nil {
		return ErrInvalidID
	}
	if t.Model == "" {
		return ErrEmptyModelName
	}
	if t.District <= 0 {
		return ErrInvalidDistrict
	}
	if t.Hour < 0 || t.Hour > 23 {
		return ErrValidation
	}
	if t.Cost < 0 {
		return ErrNegativeCost
	}
	return nil
}
