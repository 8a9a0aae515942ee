// Package worker consumes dispatched prediction tasks from the queue,
// runs inference, and bills paid tasks on completion.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/hailcast/hailcast-api/internal/config"
	"github.com/hailcast/hailcast-api/internal/domain"
	"github.com/hailcast/hailcast-api/internal/model"
	"github.com/hailcast/hailcast-api/internal/queue"
	"github.com/hailcast/hailcast-api/internal/store"
)

// TaskStore is the subset of the task store the worker needs.
type TaskStore interface {
	GetForAccount(ctx context.Context, accountID, taskID uuid.UUID) (*domain.Task, error)
	UpdateStatus(ctx context.Context, taskID uuid.UUID, status domain.TaskStatus) error
	Complete(ctx context.Context, taskID uuid.UUID, result string, tripCosts *string) error
}

// Biller charges an account after a paid task completes.
type Biller interface {
	Debit(ctx context.Context, accountID uuid.UUID, amount float64, description string) (float64, error)
}

// ModelSource serves loaded model handles by name.
type ModelSource interface {
	Get(name string) (model.Handle, error)
}

// FeatureSource builds inference input windows.
type FeatureSource interface {
	CreateFeatureWindow(ctx context.Context, city string, district int, target time.Time, pastSteps int) ([][]float64, error)
}

// Reloader refreshes model handles on a control command.
type Reloader interface {
	ReloadAll(ctx context.Context)
}

// predictionResult is the serialized task result payload.
type predictionResult struct {
	Demand []int     `json:"demand"`
	Target time.Time `json:"target_time"`
	Model  string    `json:"model"`
}

// Handler processes one task message at a time.
type Handler struct {
	tasks     TaskStore
	biller    Biller
	models    ModelSource
	features  FeatureSource
	costModel string
	pastSteps int
	logger    *slog.Logger
}

// NewHandler creates a task message handler.
func NewHandler(
	tasks TaskStore,
	biller Biller,
	models ModelSource,
	features FeatureSource,
	cfg config.ModelsConfig,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		tasks:     tasks,
		biller:    biller,
		models:    models,
		features:  features,
		costModel: cfg.CostModel,
		pastSteps: cfg.PastSteps,
		logger:    logger.With("component", "worker"),
	}
}

// HandleTask processes one queue message. Returning nil acks the
// message; returning an error nacks it for redelivery. Business
// failures mark the task failed and still ack: redelivery is reserved
// for crash recovery, not retries of deterministic failures.
func (h *Handler) HandleTask(ctx context.Context, msg *message.Message) error {
	taskMsg, err := queue.UnmarshalTaskMessage(msg.Payload)
	if err != nil {
		// Poison message: drop it, redelivery cannot fix the payload.
		h.logger.Warn("dropping malformed task message",
			"error", err,
			"message_uuid", msg.UUID)
		return nil
	}

	log := h.logger.With(
		"task_id", taskMsg.TaskID,
		"account_id", taskMsg.AccountID,
		"model", taskMsg.Model)

	task, err := h.tasks.GetForAccount(ctx, taskMsg.AccountID, taskMsg.TaskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			log.Warn("dropping message for unknown task")
			return nil
		}
		return fmt.Errorf("load task: %w", err)
	}

	// Redelivery of an already-finished task must not run or bill again.
	if task.Status.Terminal() {
		log.Debug("skipping task in terminal state", "status", task.Status)
		return nil
	}

	if err := h.tasks.UpdateStatus(ctx, task.ID, domain.TaskStatusProcessing); err != nil {
		return fmt.Errorf("mark task processing: %w", err)
	}

	result, tripCosts, err := h.process(ctx, taskMsg, task)
	if err != nil {
		log.Error("task processing failed", "error", err)
		if failErr := h.tasks.UpdateStatus(ctx, task.ID, domain.TaskStatusFailed); failErr != nil {
			return fmt.Errorf("mark task failed: %w", failErr)
		}
		return nil
	}

	if err := h.tasks.Complete(ctx, task.ID, result, tripCosts); err != nil {
		return fmt.Errorf("complete task: %w", err)
	}

	// Billing happens strictly after the completed result is committed.
	if task.Cost > 0 {
		_, err := h.biller.Debit(ctx, task.AccountID, task.Cost, fmt.Sprintf("prediction task %s", task.ID))
		if err != nil {
			if errors.Is(err, store.ErrInsufficientFunds) {
				log.Warn("completed task not billed: insufficient funds", "cost", task.Cost)
				return nil
			}
			return fmt.Errorf("bill completed task: %w", err)
		}
	}

	log.Info("task completed", "cost", task.Cost)
	return nil
}

// process runs inference and serializes the result payloads.
func (h *Handler) process(ctx context.Context, taskMsg *queue.TaskMessage, task *domain.Task) (string, *string, error) {
	handle, err := h.models.Get(taskMsg.Model)
	if err != nil {
		return "", nil, err
	}

	target := taskMsg.TargetTime()
	window, err := h.features.CreateFeatureWindow(ctx, taskMsg.City, taskMsg.District, target, h.pastSteps)
	if err != nil {
		return "", nil, err
	}

	raw, err := handle.Predict(window)
	if err != nil {
		return "", nil, err
	}
	demand := model.PostProcess(handle, raw)

	payload, err := json.Marshal(predictionResult{
		Demand: demand,
		Target: target,
		Model:  taskMsg.Model,
	})
	if err != nil {
		return "", nil, fmt.Errorf("serialize result: %w", err)
	}

	var tripCosts *string
	if h.costModel != "" && task.Cost > 0 {
		tripCosts = h.tripCosts(ctx, window)
	}

	return string(payload), tripCosts, nil
}

// tripCosts derives per-step cost estimates from the secondary model.
// Failures are logged and leave the estimates empty; the forecast
// itself is unaffected.
func (h *Handler) tripCosts(ctx context.Context, window [][]float64) *string {
	handle, err := h.models.Get(h.costModel)
	if err != nil {
		h.logger.Warn("cost model unavailable", "error", err, "model", h.costModel)
		return nil
	}

	raw, err := handle.Predict(window)
	if err != nil {
		h.logger.Warn("trip cost inference failed", "error", err, "model", h.costModel)
		return nil
	}

	costs := handle.InverseOutput(raw)
	for i, v := range costs {
		if v < 0 {
			costs[i] = 0
		}
	}

	payload, err := json.Marshal(costs)
	if err != nil {
		h.logger.Warn("failed to serialize trip costs", "error", err)
		return nil
	}
	out := string(payload)
	return &out
}

// HandleControl processes a maintenance command from the control topic.
func (h *Handler) HandleControl(reloader Reloader) func(ctx context.Context, msg *message.Message) error {
	return func(ctx context.Context, msg *message.Message) error {
		ctrl, err := queue.UnmarshalControlMessage(msg.Payload)
		if err != nil {
			h.logger.Warn("dropping malformed control message",
				"error", err,
				"message_uuid", msg.UUID)
			return nil
		}

		switch ctrl.Command {
		case queue.CommandReloadModels:
			h.logger.Info("reloading models on control command", "issued_at", ctrl.IssuedAt)
			reloader.ReloadAll(ctx)
		default:
			h.logger.Warn("ignoring unknown control command", "command", ctrl.Command)
		}
		return nil
	}
}
