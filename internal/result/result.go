// Package result holds the tri-state outcome used for every asynchronous
// operation: Loading, Success with a payload, or Error with a failure.
package result

import (
	"encoding/json"
	"fmt"
)

type Kind int

const (
	KindLoading Kind = iota + 1
	KindSuccess
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type Code string

const (
	CodeNotAuthenticated Code = "not_authenticated"
	CodeRemoteFailure    Code = "remote_failure"
	CodeNotFound         Code = "not_found"
)

// Failure is the payload of an Error result.
type Failure struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (f Failure) Error() string {
	return f.Message
}

// Result is a closed union. The zero value is not a valid state; build one
// with Loading, Success or Error.
type Result[T any] struct {
	kind    Kind
	value   T
	failure Failure
}

func Loading[T any]() Result[T] {
	return Result[T]{kind: KindLoading}
}

func Success[T any](v T) Result[T] {
	return Result[T]{kind: KindSuccess, value: v}
}

func Error[T any](code Code, message string) Result[T] {
	return Result[T]{kind: KindError, failure: Failure{Code: code, Message: message}}
}

func (r Result[T]) Kind() Kind {
	return r.kind
}

func (r Result[T]) IsLoading() bool { return r.kind == KindLoading }
func (r Result[T]) IsSuccess() bool { return r.kind == KindSuccess }
func (r Result[T]) IsError() bool   { return r.kind == KindError }

// Value returns the success payload. ok is false for any other state.
func (r Result[T]) Value() (v T, ok bool) {
	if r.kind != KindSuccess {
		return v, false
	}
	return r.value, true
}

// Failure returns the error payload. ok is false for any other state.
func (r Result[T]) Failure() (Failure, bool) {
	if r.kind != KindError {
		return Failure{}, false
	}
	return r.failure, true
}

// Message is the human-readable error text, empty unless r is an Error.
func (r Result[T]) Message() string {
	return r.failure.Message
}

// Match calls exactly one of the handlers. All three are required.
func Match[T, R any](r Result[T], onLoading func() R, onSuccess func(T) R, onError func(Failure) R) R {
	switch r.kind {
	case KindLoading:
		return onLoading()
	case KindSuccess:
		return onSuccess(r.value)
	case KindError:
		return onError(r.failure)
	}
	panic(fmt.Sprintf("result: invalid %v", r.kind))
}

func (r Result[T]) String() string {
	switch r.kind {
	case KindLoading:
		return "Loading"
	case KindSuccess:
		return fmt.Sprintf("Success(%v)", r.value)
	case KindError:
		return fmt.Sprintf("Error(%s: %s)", r.failure.Code, r.failure.Message)
	}
	return "Invalid"
}

type wire[T any] struct {
	State string   `json:"state"`
	Data  *T       `json:"data,omitempty"`
	Error *Failure `json:"error,omitempty"`
}

func (r Result[T]) MarshalJSON() ([]byte, error) {
	w := wire[T]{State: r.kind.String()}
	switch r.kind {
	case KindLoading:
	case KindSuccess:
		w.Data = &r.value
	case KindError:
		w.Error = &r.failure
	default:
		return nil, fmt.Errorf("result: cannot marshal %v", r.kind)
	}
	return json.Marshal(w)
}

func (r *Result[T]) UnmarshalJSON(b []byte) error {
	var w wire[T]
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	switch w.State {
	case "loading":
		*r = Loading[T]()
	case "success":
		var v T
		if w.Data != nil {
			v = *w.Data
		}
		*r = Success(v)
	case "error":
		var f Failure
		if w.Error != nil {
			f = *w.Error
		}
		*r = Error[T](f.Code, f.Message)
	default:
		return fmt.Errorf("result: unknown state %q", w.State)
	}
	return nil
}
