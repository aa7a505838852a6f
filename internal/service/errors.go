package service

import (
	"context"
	"errors"

	"github.com/BuzzLyutic/todo-sync/internal/repo"
	"github.com/BuzzLyutic/todo-sync/internal/result"
)

const (
	msgNotAuthenticated = "not authenticated"
	msgTaskNotFound     = "task not found"
	msgTimeout          = "request timed out"
	msgLoadTasks        = "failed to load tasks"
	msgGetTask          = "failed to fetch task"
	msgAddTask          = "failed to save task"
	msgUpdateTask       = "failed to update task"
	msgDeleteTask       = "failed to delete task"
	msgLogin            = "login failed"
	msgSignUp           = "sign up failed"
)

// taskFailure maps a store error onto an Error result.
func taskFailure[T any](err error, fallback string) result.Result[T] {
	switch {
	case errors.Is(err, repo.ErrorNotAuthenticated):
		return notAuthenticated[T]()
	case errors.Is(err, repo.ErrorNotFound):
		return result.Error[T](result.CodeNotFound, msgTaskNotFound)
	}
	return result.Error[T](result.CodeRemoteFailure, message(err, fallback))
}

// authFailure maps an auth provider error onto an Error result.
func authFailure(err error, fallback string) result.Result[bool] {
	return result.Error[bool](result.CodeRemoteFailure, message(err, fallback))
}

func notAuthenticated[T any]() result.Result[T] {
	return result.Error[T](result.CodeNotAuthenticated, msgNotAuthenticated)
}

// message is the error text when there is one, fallback otherwise.
func message(err error, fallback string) string {
	switch {
	case err == nil:
		return fallback
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimeout
	case err.Error() == "":
		return fallback
	}
	return err.Error()
}
