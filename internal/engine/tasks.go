package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"taskline/internal/domain"
	"taskline/internal/engine/auth"
	"taskline/internal/repo"
)

const defaultAssignerName = "Admin"

// TaskCreateOptions are parameters for creating a task.
type TaskCreateOptions struct {
	OwnerID      int64  `json:"owner_id" validate:"required"`
	Title        string `json:"title" validate:"required"`
	Description  string `json:"description" validate:"required"`
	Priority     string `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate      string `json:"due_date" validate:"required"`
	AssignedBy   string `json:"assigned_by"`
	AssignedByID *int64 `json:"assigned_by_id"`
	Instructions string `json:"instructions"`
}

// CreateTask stores a new pending task and returns its id.
func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (int64, error) {
	opts.Title = strings.TrimSpace(opts.Title)
	opts.Description = strings.TrimSpace(opts.Description)
	opts.Instructions = strings.TrimSpace(opts.Instructions)
	opts.Priority = strings.TrimSpace(opts.Priority)
	opts.DueDate = strings.TrimSpace(opts.DueDate)
	if err := e.validateStruct(opts); err != nil {
		return 0, err
	}
	if opts.Priority == "" {
		opts.Priority = domain.PriorityMedium
	}
	due, err := e.normalizeDueDate(opts.DueDate)
	if err != nil {
		return 0, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, e.storeErr("begin create task", "task", 0, err)
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetUserTx(ctx, tx, opts.OwnerID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return 0, invalid("owner_id", "no user with id %d", opts.OwnerID)
		}
		return 0, e.storeErr("lookup owner", "user", opts.OwnerID, err)
	}
	assignedByID := opts.AssignedByID
	if assignedByID != nil {
		if _, err := e.Repo.GetAdminTx(ctx, tx, *assignedByID); err != nil {
			if !errors.Is(err, repo.ErrNotFound) {
				return 0, e.storeErr("lookup assigner", "admin", *assignedByID, err)
			}
			assignedByID = nil
		}
	}
	t := domain.Task{
		OwnerID:        opts.OwnerID,
		Title:          opts.Title,
		Description:    opts.Description,
		Priority:       opts.Priority,
		Status:         domain.StatusPending,
		DueDate:        due,
		CreatedAt:      e.nowString(),
		AssignedByName: strings.TrimSpace(opts.AssignedBy),
		AssignedByID:   assignedByID,
		Instructions:   opts.Instructions,
	}
	id, err := e.Repo.InsertTask(ctx, tx, t)
	if err != nil {
		return 0, e.storeErr("insert task", "task", 0, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, e.storeErr("commit create task", "task", id, err)
	}
	e.logger().Debug("task created", slog.Int64("task_id", id), slog.Int64("owner_id", t.OwnerID))
	return id, nil
}

// PredefinedAssignment names a catalog entry to assign to an owner.
type PredefinedAssignment struct {
	Category     string
	Title        string
	OwnerID      int64
	AdminID      int64
	DueDate      string
	Priority     string
	Instructions string
}

// AssignPredefinedTask resolves the description from the catalog and the
// assigner's display name, then creates the task.
func (e Engine) AssignPredefinedTask(ctx context.Context, a PredefinedAssignment) (int64, error) {
	opts := TaskCreateOptions{
		OwnerID:      a.OwnerID,
		Title:        a.Title,
		Description:  e.Catalog.ResolveDescription(a.Category, a.Title),
		Priority:     a.Priority,
		DueDate:      a.DueDate,
		AssignedBy:   e.AdminName(ctx, a.AdminID),
		Instructions: a.Instructions,
	}
	if a.AdminID != 0 {
		id := a.AdminID
		opts.AssignedByID = &id
	}
	return e.CreateTask(ctx, opts)
}

// AdminName returns the admin's display name, or a generic label when the
// lookup fails for any reason.
func (e Engine) AdminName(ctx context.Context, adminID int64) string {
	if adminID == 0 {
		return defaultAssignerName
	}
	admin, err := e.Repo.GetAdmin(ctx, adminID)
	if err != nil || strings.TrimSpace(admin.Name) == "" {
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			e.logger().Warn("admin name lookup failed", slog.Int64("admin_id", adminID), slog.Any("err", err))
		}
		return defaultAssignerName
	}
	return admin.Name
}

// GetTask returns a task without authorizing; callers must authorize first.
func (e Engine) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, e.storeErr("get task", "task", id, err)
	}
	return e.decorate(t), nil
}

// AuthorizedTask loads a task and checks that p may perform op on it.
func (e Engine) AuthorizedTask(ctx context.Context, p domain.Principal, id int64, op auth.Operation) (domain.Task, error) {
	t, err := e.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if err := e.Guard.Authorize(p, t, op); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// OwnerFilters narrow ListForOwner.
type OwnerFilters struct {
	Status   string
	Priority string
}

// ListForOwner returns an owner's tasks by due date, high priority first on ties.
func (e Engine) ListForOwner(ctx context.Context, ownerID int64, f OwnerFilters) ([]domain.Task, error) {
	if ownerID == 0 {
		return nil, invalid("owner_id", "is required")
	}
	if err := optionalFilter("status", f.Status, domain.ValidStatus); err != nil {
		return nil, err
	}
	if err := optionalFilter("priority", f.Priority, domain.ValidPriority); err != nil {
		return nil, err
	}
	return e.listTasks(ctx, "list owner tasks", repo.TaskFilters{
		OwnerID:  ownerID,
		Status:   f.Status,
		Priority: f.Priority,
		Order:    repo.OrderByDueDate,
	})
}

// ListFilters narrow ListAll and ComputeStatistics. DateFrom and DateTo are
// inclusive calendar days (YYYY-MM-DD) applied to created_at.
type ListFilters struct {
	Status   string
	Priority string
	OwnerID  int64
	DateFrom string
	DateTo   string
}

// ListAll returns tasks across owners, newest first.
func (e Engine) ListAll(ctx context.Context, f ListFilters) ([]domain.Task, error) {
	if err := optionalFilter("status", f.Status, domain.ValidStatus); err != nil {
		return nil, err
	}
	if err := optionalFilter("priority", f.Priority, domain.ValidPriority); err != nil {
		return nil, err
	}
	from, before, err := e.dayRange(f.DateFrom, f.DateTo)
	if err != nil {
		return nil, err
	}
	return e.listTasks(ctx, "list all tasks", repo.TaskFilters{
		OwnerID:       f.OwnerID,
		Status:        f.Status,
		Priority:      f.Priority,
		CreatedFrom:   from,
		CreatedBefore: before,
		Order:         repo.OrderByCreatedDesc,
	})
}

// UpdateStatus moves a task to status. Every write of completed stamps
// completed_at with the current time; other statuses leave it as stored.
func (e Engine) UpdateStatus(ctx context.Context, id int64, status string, p domain.Principal) (domain.Task, error) {
	status = strings.TrimSpace(status)
	if !domain.ValidStatus(status) {
		return domain.Task{}, invalid("status", "must be one of %s", strings.Join(domain.Statuses, ", "))
	}
	if _, err := e.AuthorizedTask(ctx, p, id, auth.OpUpdateStatus); err != nil {
		return domain.Task{}, err
	}
	var completedAt *string
	if status == domain.StatusCompleted {
		now := e.nowString()
		completedAt = &now
	}
	if err := e.Repo.UpdateTaskStatus(ctx, nil, id, status, completedAt); err != nil {
		return domain.Task{}, e.storeErr("update task status", "task", id, err)
	}
	return e.GetTask(ctx, id)
}

// editableFields are the keys UpdateFields accepts; anything else is ignored.
var editableFields = []string{"title", "description", "priority", "due_date", "instructions"}

// UpdateFields merges the recognized keys of fields into the task.
// Unrecognized keys are ignored; an update with none of the editable keys fails.
func (e Engine) UpdateFields(ctx context.Context, id int64, fields map[string]any, p domain.Principal) (domain.Task, error) {
	if _, err := e.AuthorizedTask(ctx, p, id, auth.OpUpdateFields); err != nil {
		return domain.Task{}, err
	}
	patch, err := e.buildPatch(fields)
	if err != nil {
		return domain.Task{}, err
	}
	if err := e.Repo.UpdateTaskFields(ctx, nil, id, patch); err != nil {
		return domain.Task{}, e.storeErr("update task", "task", id, err)
	}
	return e.GetTask(ctx, id)
}

func (e Engine) buildPatch(fields map[string]any) (repo.TaskPatch, error) {
	var patch repo.TaskPatch
	for _, key := range editableFields {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		switch v := raw.(type) {
		case string:
			s = strings.TrimSpace(v)
		case nil:
			if key != "instructions" {
				return patch, invalid(key, "must not be null")
			}
		default:
			return patch, invalid(key, "must be a string")
		}
		switch key {
		case "title":
			if s == "" {
				return patch, invalid(key, "must not be blank")
			}
			patch.Title = &s
		case "description":
			if s == "" {
				return patch, invalid(key, "must not be blank")
			}
			patch.Description = &s
		case "priority":
			if !domain.ValidPriority(s) {
				return patch, invalid(key, "must be one of %s", strings.Join(domain.Priorities, ", "))
			}
			patch.Priority = &s
		case "due_date":
			due, err := e.normalizeDueDate(s)
			if err != nil {
				return patch, err
			}
			patch.DueDate = &due
		case "instructions":
			patch.Instructions = &s
		}
	}
	if patch.Empty() {
		return patch, &ValidationError{Message: fmt.Sprintf("no valid fields to update; editable fields are %s", strings.Join(editableFields, ", "))}
	}
	return patch, nil
}

// DeleteTask removes a task and all of its attachments in one transaction.
func (e Engine) DeleteTask(ctx context.Context, id int64, p domain.Principal) error {
	if _, err := e.AuthorizedTask(ctx, p, id, auth.OpDelete); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return e.storeErr("begin delete task", "task", id, err)
	}
	defer tx.Rollback()
	removed, err := e.Repo.DeleteTaskTx(ctx, tx, id)
	if err != nil {
		return e.storeErr("delete task", "task", id, err)
	}
	if err := tx.Commit(); err != nil {
		return e.storeErr("commit delete task", "task", id, err)
	}
	e.logger().Debug("task deleted", slog.Int64("task_id", id), slog.Int64("attachments_removed", removed))
	return nil
}

// GetOverdue returns pending tasks past their due date, optionally for one owner.
func (e Engine) GetOverdue(ctx context.Context, ownerID int64) ([]domain.Task, error) {
	return e.listTasks(ctx, "list overdue tasks", repo.TaskFilters{
		OwnerID:   ownerID,
		Status:    domain.StatusPending,
		DueBefore: e.nowString(),
		Order:     repo.OrderByDueDate,
	})
}

// GetDueSoon returns pending tasks due within [now, now+days].
func (e Engine) GetDueSoon(ctx context.Context, days int, ownerID int64) ([]domain.Task, error) {
	if days < 0 {
		return nil, invalid("days", "must not be negative")
	}
	now := e.now()
	return e.listTasks(ctx, "list tasks due soon", repo.TaskFilters{
		OwnerID:  ownerID,
		Status:   domain.StatusPending,
		DueFrom:  now.Format(timeLayout),
		DueUntil: now.Add(time.Duration(days) * 24 * time.Hour).Format(timeLayout),
		Order:    repo.OrderByDueDate,
	})
}

// GetRecentAssignments returns the most recently created tasks across owners.
func (e Engine) GetRecentAssignments(ctx context.Context, limit int) ([]domain.Task, error) {
	if limit <= 0 {
		limit = e.Config.RecentAssignments.DefaultLimit
	}
	return e.listTasks(ctx, "list recent assignments", repo.TaskFilters{
		Order: repo.OrderByCreatedDesc,
		Limit: limit,
	})
}

func (e Engine) listTasks(ctx context.Context, op string, f repo.TaskFilters) ([]domain.Task, error) {
	tasks, err := e.Repo.ListTasks(ctx, f)
	if err != nil {
		return nil, e.storeErr(op, "task", 0, err)
	}
	for i := range tasks {
		tasks[i] = e.decorate(tasks[i])
	}
	return tasks, nil
}

// decorate fills derived fields. Overdue is never stored.
func (e Engine) decorate(t domain.Task) domain.Task {
	t.Overdue = t.Status == domain.StatusPending && t.DueDate < e.nowString()
	return t
}
