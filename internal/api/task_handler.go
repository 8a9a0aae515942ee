package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hailcast/hailcast-api/internal/domain"
	"github.com/hailcast/hailcast-api/internal/service"
)

// TaskHandler handles prediction task submission and retrieval.
type TaskHandler struct {
	dispatch     service.DispatchService
	defaultModel string
	validator    *validator.Validate
	logger       *slog.Logger
}

// NewTaskHandler creates a new TaskHandler with the given dependencies.
func NewTaskHandler(dispatch service.DispatchService, defaultModel string, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		dispatch:     dispatch,
		defaultModel: defaultModel,
		validator:    validator.New(),
		logger:       logger.With("component", "task_handler"),
	}
}

// CreateFree handles POST /api/tasks/free.
func (h *TaskHandler) CreateFree(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, false)
}

// CreatePaid handles POST /api/tasks/paid.
func (h *TaskHandler) CreatePaid(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, true)
}

func (h *TaskHandler) create(w http.ResponseWriter, r *http.Request, paid bool) {
	accountID, ok := handleAccountID(w, r)
	if !ok {
		return
	}

	var req TaskRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	model := req.Model
	if model == "" {
		model = h.defaultModel
	}

	task, err := h.dispatch.Submit(r.Context(), accountID, model, req.City, req.District, paid)
	if err != nil {
		// A dispatch failure still created the task; report both.
		if errors.Is(err, service.ErrDispatchFailed) && task != nil {
			h.logger.Error("task stored but not dispatched",
				"error", err,
				"task_id", task.ID,
				"account_id", accountID)
		}
		RespondWithMappedError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusCreated, task)
}

// List handles GET /api/tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID, ok := handleAccountID(w, r)
	if !ok {
		return
	}

	limit := queryLimit(r)
	if limit < 0 {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid limit parameter")
		return
	}

	tasks, err := h.dispatch.List(r.Context(), accountID, limit)
	if err != nil {
		RespondWithMappedError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}

	RespondWithJSON(w, r, http.StatusOK, TaskListResponse{Tasks: tasks})
}

// Get handles GET /api/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID, ok := handleAccountID(w, r)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	task, err := h.dispatch.Get(r.Context(), accountID, taskID)
	if err != nil {
		RespondWithMappedError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, task)
}
