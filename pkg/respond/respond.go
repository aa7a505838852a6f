package respond

import (
	"encoding/json"
	"net/http"

	"github.com/BuzzLyutic/todo-sync/internal/result"
)

func JSON(w http.ResponseWriter, r *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func Error(w http.ResponseWriter, r *http.Request, code int, message string) {
	JSON(w, r, code, map[string]string{"error": message})
}

// Result writes res in its wire form. Success uses okCode; Loading and the
// error codes get their own statuses.
func Result[T any](w http.ResponseWriter, r *http.Request, okCode int, res result.Result[T]) {
	JSON(w, r, Status(res, okCode), res)
}

func Status[T any](res result.Result[T], okCode int) int {
	if res.IsLoading() {
		return http.StatusAccepted
	}
	f, failed := res.Failure()
	if !failed {
		return okCode
	}
	switch f.Code {
	case result.CodeNotAuthenticated:
		return http.StatusUnauthorized
	case result.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}
