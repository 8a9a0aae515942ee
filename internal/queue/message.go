// Package queue carries prediction tasks from the API dispatcher to the
// worker pool over NATS JetStream. Delivery is at-least-once; consumers
// must tolerate redelivery of already-processed tasks.
package queue

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/hailcast/hailcast-api/internal/domain"
)

// TaskMessage is the wire form of one dispatched prediction task. It
// carries everything the worker needs so a well-formed message can be
// processed without re-reading the task row first.
type TaskMessage struct {
	TaskID    uuid.UUID `json:"task_id"`
	AccountID uuid.UUID `json:"account_id"`
	Model     string    `json:"model"`
	City      string    `json:"city"`
	District  int       `json:"district"`
	Cost      float64   `json:"cost"`
	// Target forecast time, split so the message stays stable across
	// serialization round-trips.
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
	Hour  int `json:"hour"`
}

// NewTaskMessage builds the wire message for a dispatched task and its
// target forecast time.
func NewTaskMessage(task *domain.Task, target time.Time) *TaskMessage {
	target = target.UTC()
	return &TaskMessage{
		TaskID:    task.ID,
		AccountID: task.AccountID,
		Model:     task.Model,
		City:      task.City,
		District:  task.District,
		Cost:      task.Cost,
		Year:      target.Year(),
		Month:     int(target.Month()),
		Day:       target.Day(),
		Hour:      target.Hour(),
	}
}

// TargetTime reconstructs the forecast time the message was built for.
func (m *TaskMessage) TargetTime() time.Time {
	return time.Date(m.Year, time.Month(m.Month), m.Day, m.Hour, 0, 0, 0, time.UTC)
}

// Marshal serializes the message payload.
func (m *TaskMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalTaskMessage deserializes a task message payload.
func UnmarshalTaskMessage(data []byte) (*TaskMessage, error) {
	var m TaskMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Control commands understood by workers on the control topic.
const (
	// CommandReloadModels tells workers to re-read model artifacts from disk.
	CommandReloadModels = "reload_models"
)

// ControlMessage is a maintenance command broadcast to workers.
type ControlMessage struct {
	Command  string    `json:"command"`
	IssuedAt time.Time `json:"issued_at"`
}

// Marshal serializes the control payload.
func (m *ControlMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalControlMessage deserializes a control message payload.
func UnmarshalControlMessage(data []byte) (*ControlMessage, error) {
	var m ControlMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
