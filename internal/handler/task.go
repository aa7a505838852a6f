package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-sync/internal/model"
	"github.com/BuzzLyutic/todo-sync/internal/service"
	"github.com/BuzzLyutic/todo-sync/pkg/respond"
)

type TaskHandler struct {
	tasks  *service.TaskSync
	logger *zap.Logger
}

func NewTaskHandler(tasks *service.TaskSync, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		tasks:  tasks,
		logger: logger,
	}
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// patchTaskRequest: nil поля не меняются
type patchTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

type completedRequest struct {
	Completed bool `json:"completed"`
}

// List attaches the live query if needed and returns the current state.
// Right after the first call the state may still be Loading.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	h.tasks.Subscribe(r.Context())
	respond.Result(w, r, http.StatusOK, h.tasks.Tasks())
}

// Stream sends the task state as server-sent events, one event per change.
func (h *TaskHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respond.Error(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	h.tasks.Subscribe(r.Context())
	changed, stop := h.tasks.Watch()
	defer stop()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for {
		data, err := json.Marshal(h.tasks.Tasks())
		if err != nil {
			h.logger.Error("failed to encode task state", zap.Error(err))
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return
		}
		flusher.Flush()

		select {
		case <-r.Context().Done():
			return
		case <-changed:
		}
	}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength == 0 {
		respond.Error(w, r, http.StatusBadRequest, "empty request body")
		return
	}

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode json", zap.Error(err))
		respond.Error(w, r, http.StatusBadRequest, fmt.Sprintf("invalid json: %v", err))
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respond.Error(w, r, http.StatusBadRequest, "title is required")
		return
	}

	respond.Result(w, r, http.StatusCreated, h.tasks.AddTask(r.Context(), req.Title, req.Description))
}

// AddResult reports the outcome of the last create. 204 means nothing to report.
func (h *TaskHandler) AddResult(w http.ResponseWriter, r *http.Request) {
	res, ok := h.tasks.AddResult()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respond.Result(w, r, http.StatusOK, res)
}

func (h *TaskHandler) ResetAddResult(w http.ResponseWriter, r *http.Request) {
	h.tasks.ResetAddResult()
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	respond.Result(w, r, http.StatusOK, h.tasks.GetTask(r.Context(), chi.URLParam(r, "id")))
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req patchTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		respond.Error(w, r, http.StatusBadRequest, "title is required")
		return
	}

	task, ok := h.load(w, r)
	if !ok {
		return
	}
	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Completed != nil {
		task.Completed = *req.Completed
	}

	respond.Result(w, r, http.StatusOK, h.tasks.UpdateTask(r.Context(), task))
}

func (h *TaskHandler) SetCompleted(w http.ResponseWriter, r *http.Request) {
	var req completedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	task, ok := h.load(w, r)
	if !ok {
		return
	}
	respond.Result(w, r, http.StatusOK, h.tasks.ToggleTask(r.Context(), task, req.Completed))
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res := h.tasks.DeleteTask(r.Context(), chi.URLParam(r, "id"))
	if res.IsSuccess() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respond.Result(w, r, http.StatusOK, res)
}

// load fetches the task named in the URL or writes the failure.
func (h *TaskHandler) load(w http.ResponseWriter, r *http.Request) (model.Task, bool) {
	res := h.tasks.GetTask(r.Context(), chi.URLParam(r, "id"))
	task, ok := res.Value()
	if !ok {
		respond.Result(w, r, http.StatusOK, res)
		return model.Task{}, false
	}
	return task, true
}
