package queue

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailcast/hailcast-api/internal/domain"
)

func TestNewTaskMessage(t *testing.T) {
	t.Parallel()

	task, err := domain.NewTask(uuid.New(), "lstmv3", "moscow", 42, 15, 15.0)
	require.NoError(t, err)

	target := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	msg := NewTaskMessage(task, target)

	assert.Equal(t, task.ID, msg.TaskID)
	assert.Equal(t, task.AccountID, msg.AccountID)
	assert.Equal(t, "lstmv3", msg.Model)
	assert.Equal(t, "moscow", msg.City)
	assert.Equal(t, 42, msg.District)
	assert.Equal(t, 15.0, msg.Cost)
	assert.Equal(t, target, msg.TargetTime())
}

func TestTaskMessageRoundTrip(t *testing.T) {
	t.Parallel()

	task, err := domain.NewTask(uuid.New(), "lstmv3", "moscow", 7, 0, 0)
	require.NoError(t, err)

	// Midnight target: date must survive the Hour=0 edge.
	target := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	msg := NewTaskMessage(task, target)

	payload, err := msg.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalTaskMessage(payload)
	require.NoError(t, err)
	assert.Equal(t, msg, decoded)
	assert.Equal(t, target, decoded.TargetTime())
}

func TestUnmarshalTaskMessageRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := UnmarshalTaskMessage([]byte("not json"))
	assert.Error(t, err)
}

func TestControlMessageRoundTrip(t *testing.T) {
	t.Parallel()

	ctrl := &ControlMessage{
		Command:  CommandReloadModels,
		IssuedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	payload, err := ctrl.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalControlMessage(payload)
	require.NoError(t, err)
	assert.Equal(t, CommandReloadModels, decoded.Command)
	assert.True(t, ctrl.IssuedAt.Equal(decoded.IssuedAt))
}
