package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-sync/internal/model"
	"github.com/BuzzLyutic/todo-sync/internal/result"
	"github.com/BuzzLyutic/todo-sync/internal/service"
	"github.com/BuzzLyutic/todo-sync/pkg/respond"
)

type AuthHandler struct {
	session *service.AuthSession
	tasks   *service.TaskSync
	logger  *zap.Logger
}

func NewAuthHandler(session *service.AuthSession, tasks *service.TaskSync, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		session: session,
		tasks:   tasks,
		logger:  logger,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Authenticated bool                `json:"authenticated"`
	User          *model.User         `json:"user,omitempty"`
	State         *result.Result[bool] `json:"state,omitempty"`
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	var resp sessionResponse
	if st, ok := h.session.State(); ok {
		resp.State = &st
	}
	if u, ok := h.session.CurrentUser(); ok {
		resp.Authenticated = true
		resp.User = &u
	}
	respond.JSON(w, r, http.StatusOK, resp)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	h.write(w, r, http.StatusOK, http.StatusUnauthorized, h.session.Login(r.Context(), req.Email, req.Password))
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	h.write(w, r, http.StatusCreated, http.StatusBadRequest, h.session.SignUp(r.Context(), req.Email, req.Password))
}

// Logout detaches the task listener before the identity goes away.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.tasks.Unsubscribe()
	h.session.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json")
		return req, false
	}
	return req, true
}

// Отказ провайдера это ошибка клиента, а не 502
func (h *AuthHandler) write(w http.ResponseWriter, r *http.Request, okCode, rejectCode int, res result.Result[bool]) {
	code := okCode
	if res.IsError() {
		code = rejectCode
	}
	respond.JSON(w, r, code, res)
}
