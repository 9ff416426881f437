// Package apierror provides the uniform response envelope shared by the API
// and its client, and the typed error taxonomy the client surfaces to
// callers. Nothing outside this package decides what message a user sees for
// a raw error: UserMessage always falls back to a generic text.
package apierror

import (
	"errors"
	"fmt"
)

// Envelope is the canonical body of every API response.
type Envelope[T any] struct {
	Success bool              `json:"success"`
	Data    *T                `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Reason returns the backend failure text: error, falling back to message.
func (e Envelope[T]) Reason() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// OK builds a successful envelope.
func OK[T any](data T, msg string) Envelope[T] {
	return Envelope[T]{Success: true, Data: &data, Message: msg}
}

// Done is a successful envelope without data.
func Done(msg string) Envelope[struct{}] {
	return Envelope[struct{}]{Success: true, Message: msg}
}

// New is a failure envelope.
func New(msg string) Envelope[struct{}] {
	return Envelope[struct{}]{Success: false, Error: msg}
}

// NewValidation wraps field errors.
func NewValidation(fields map[string]string) Envelope[struct{}] {
	return Envelope[struct{}]{Success: false, Error: "Error de validacion", Fields: fields}
}

// ── Client taxonomy ──────────────────────────────────────────────────────────

// Kind classifies a client-side failure.
type Kind int

const (
	// Validation is locally detectable bad input; never reaches the network.
	Validation Kind = iota + 1
	// Authentication is a login rejected by the backend.
	Authentication
	// AuthorizationGap is a failed permission fetch; never shown to users.
	AuthorizationGap
	// Forbidden is a local or remote permission denial.
	Forbidden
	// StateConflict covers drawer state violations (not open, already open, busy).
	StateConflict
	// Backend is any other non-success envelope or transport failure.
	Backend
	// SideEffect is a failed non-critical follow-up operation.
	SideEffect
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Authentication:
		return "authentication"
	case AuthorizationGap:
		return "authorization_gap"
	case Forbidden:
		return "forbidden"
	case StateConflict:
		return "state_conflict"
	case Backend:
		return "backend"
	case SideEffect:
		return "side_effect"
	default:
		return "unknown"
	}
}

// Error is the typed error returned by client-side operations.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	// Status is the HTTP status when the error came from the API, 0 otherwise.
	Status int
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	default:
		return e.Msg
	}
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an *Error.
func E(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// IsKind reports whether any error in err's chain is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

// KindOf returns the kind of the first *Error in the chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

const genericMessage = "Ocurrió un error inesperado. Intenta de nuevo."

// UserMessage returns a message safe to show an operator.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return genericMessage
}
