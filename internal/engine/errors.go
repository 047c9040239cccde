package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"taskline/internal/engine/auth"
	"taskline/internal/repo"
)

// ValidationError reports a missing or invalid input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// NotFoundError reports a missing task or attachment, or an attachment that
// does not belong to the given task.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found"
}

// AccessDeniedError is returned by the guard on ownership violations.
type AccessDeniedError = auth.AccessDeniedError

// StorageError wraps a failure of the underlying store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// storeErr converts a repo error into one of the engine's error kinds.
func (e Engine) storeErr(op, entity string, id int64, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	e.logger().Error("store operation failed", slog.String("op", op), slog.Int64("id", id), slog.Any("err", err))
	return &StorageError{Op: op, Err: err}
}

func fromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return invalid(fe.Field(), "is required")
	case "oneof":
		return invalid(fe.Field(), "must be one of %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return invalid(fe.Field(), "failed %s check", fe.Tag())
	}
}
