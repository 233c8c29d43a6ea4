// Package apperror holds the error kinds shared by the stores, the ledger and the HTTP layer.
package apperror

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
)

type Kind string

const (
	KindValidation    Kind = "validation"
	KindInvalidAmount Kind = "invalid_amount"
	KindNotFound      Kind = "not_found"
	KindAuth          Kind = "auth"
	KindAuthorization Kind = "authorization"
	KindGoalExceeded  Kind = "goal_exceeded"
	KindGateway       Kind = "gateway"
	KindConflict      Kind = "conflict"
	KindInternal      Kind = "internal"
)

// KindOverfunding is the name applyFunding uses for the same condition.
const KindOverfunding = KindGoalExceeded

type Error struct {
	Kind    Kind
	Message string
	// CorrelationID is only set for gateway failures; the provider detail is logged under it.
	CorrelationID string
	Err           error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(format string, args ...interface{}) *Error {
	return New(KindValidation, format, args...)
}

// Binding reports a request that failed to decode or validate. Validator
// failures name each field and the rule it broke; decoder detail is dropped.
func Binding(err error) *Error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
		return Validation("%s", strings.Join(msgs, "; "))
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return Validation("%s has the wrong type", typeErr.Field)
	}
	return Validation("malformed request")
}

func InvalidAmount(format string, args ...interface{}) *Error {
	return New(KindInvalidAmount, format, args...)
}

func NotFound(entity string) *Error {
	return New(KindNotFound, "%s not found", entity)
}

func Auth(message string) *Error {
	return New(KindAuth, "%s", message)
}

func Authorization(message string) *Error {
	return New(KindAuthorization, "%s", message)
}

func GoalExceeded(format string, args ...interface{}) *Error {
	return New(KindGoalExceeded, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return New(KindConflict, format, args...)
}

func Internal(err error, message string) *Error {
	return Wrap(KindInternal, err, message)
}

// NewGateway hides the provider failure behind a generic message and a fresh correlation id.
func NewGateway(err error) *Error {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)
	return &Error{
		Kind:          KindGateway,
		Message:       "payment provider error",
		CorrelationID: id.String(),
		Err:           err,
	}
}

// KindOf returns KindInternal for errors that did not originate here.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
