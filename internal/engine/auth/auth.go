package auth

import (
	"fmt"

	"taskline/internal/domain"
)

// Operation names a task-scoped action checked by the Guard.
type Operation string

const (
	OpRead             Operation = "task.read"
	OpUpdateStatus     Operation = "task.status.update"
	OpUpdateFields     Operation = "task.update"
	OpDelete           Operation = "task.delete"
	OpUploadAttachment Operation = "attachment.upload"
	OpListAttachments  Operation = "attachment.list"
	OpDownload         Operation = "attachment.download"
	OpDeleteAttachment Operation = "attachment.delete"
)

// DeniedMessage is shared with the task not-found error so a denial cannot
// be told apart from a missing task.
const DeniedMessage = "task not found"

// AccessDeniedError reports an ownership violation.
type AccessDeniedError struct {
	TaskID    int64
	Operation Operation
}

func (e *AccessDeniedError) Error() string { return DeniedMessage }

// ForbiddenError indicates the principal lacks the role an operation needs.
type ForbiddenError struct {
	Operation string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("admin role required for %s", e.Operation)
}

// Guard decides whether a principal may act on a task. Admins may do
// everything; users only act on tasks they own.
type Guard struct{}

func (Guard) Authorize(p domain.Principal, t domain.Task, op Operation) error {
	switch p.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleUser:
		if p.ID != 0 && t.OwnerID == p.ID {
			return nil
		}
	}
	return &AccessDeniedError{TaskID: t.ID, Operation: op}
}

// RequireAdmin guards operations that are not task-scoped, such as listings across owners.
func (Guard) RequireAdmin(p domain.Principal, operation string) error {
	if p.IsAdmin() {
		return nil
	}
	return &ForbiddenError{Operation: operation}
}
