package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"taskline/internal/domain"
	"taskline/internal/engine"
	"taskline/internal/engine/auth"
	"taskline/internal/events"
)

type taskPath struct {
	ID int64 `path:"id"`
}

type taskOutput struct {
	Body domain.Task `json:"body"`
}

type taskListOutput struct {
	Body TaskListResponse `json:"body"`
}

type statsOutput struct {
	Body domain.Statistics `json:"body"`
}

func listOutput(items []domain.Task) *taskListOutput {
	return &taskListOutput{Body: TaskListResponse{Tasks: nonNilTasks(items)}}
}

// parseDays reads the optional days query value; empty means the configured default.
func (h handlers) parseDays(raw string) (int, huma.StatusError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return h.e.Config.DueSoon.DefaultDays, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 0 {
		return 0, newAPIError(http.StatusBadRequest, "bad_request", "days must be a non-negative integer", map[string]any{"field": "days"})
	}
	return days, nil
}

func registerMe(api huma.API, h handlers) {
	errs := []int{http.StatusBadRequest, http.StatusUnauthorized}

	huma.Register(api, huma.Operation{
		OperationID: "list-my-tasks",
		Method:      http.MethodGet,
		Path:        "/me/tasks",
		Summary:     "List the caller's tasks by due date",
		Errors:      errs,
	}, func(ctx context.Context, input *struct {
		Status   string `query:"status"`
		Priority string `query:"priority"`
	}) (*taskListOutput, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := h.e.ListForOwner(ctx, p.ID, engine.OwnerFilters{Status: input.Status, Priority: input.Priority})
		if err != nil {
			return nil, handleError(err)
		}
		return listOutput(items), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-my-overdue-tasks",
		Method:      http.MethodGet,
		Path:        "/me/tasks/overdue",
		Summary:     "List the caller's overdue tasks",
		Errors:      errs,
	}, func(ctx context.Context, _ *struct{}) (*taskListOutput, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := h.e.GetOverdue(ctx, p.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return listOutput(items), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-my-due-soon-tasks",
		Method:      http.MethodGet,
		Path:        "/me/tasks/due-soon",
		Summary:     "List the caller's pending tasks due within a number of days",
		Errors:      errs,
	}, func(ctx context.Context, input *struct {
		Days string `query:"days"`
	}) (*taskListOutput, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		days, dErr := h.parseDays(input.Days)
		if dErr != nil {
			return nil, dErr
		}
		items, err := h.e.GetDueSoon(ctx, days, p.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return listOutput(items), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "my-statistics",
		Method:      http.MethodGet,
		Path:        "/me/statistics",
		Summary:     "Statistics over the caller's tasks",
		Errors:      errs,
	}, func(ctx context.Context, input *struct {
		DateFrom string `query:"date_from"`
		DateTo   string `query:"date_to"`
	}) (*statsOutput, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		stats, err := h.e.ComputeStatistics(ctx, engine.StatsFilters{OwnerID: p.ID, DateFrom: input.DateFrom, DateTo: input.DateTo})
		if err != nil {
			return nil, handleError(err)
		}
		return &statsOutput{Body: stats}, nil
	})
}

type listAllQuery struct {
	Status   string `query:"status"`
	Priority string `query:"priority"`
	OwnerID  int64  `query:"owner_id"`
	DateFrom string `query:"date_from"`
	DateTo   string `query:"date_to"`
}

func (q listAllQuery) filters() engine.ListFilters {
	return engine.ListFilters{Status: q.Status, Priority: q.Priority, OwnerID: q.OwnerID, DateFrom: q.DateFrom, DateTo: q.DateTo}
}

func registerAdminTasks(api huma.API, h handlers) {
	errs := []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden}

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List all tasks, newest first",
		Errors:      errs,
	}, func(ctx context.Context, input *listAllQuery) (*taskListOutput, error) {
		if authErr, ok := h.requireAdmin(ctx, "list all tasks"); !ok {
			return nil, authErr
		}
		items, err := h.e.ListAll(ctx, input.filters())
		if err != nil {
			return nil, handleError(err)
		}
		return listOutput(items), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "recent-assignments",
		Method:      http.MethodGet,
		Path:        "/tasks/recent",
		Summary:     "Most recently created tasks",
		Errors:      errs,
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" minimum:"0"`
	}) (*taskListOutput, error) {
		if authErr, ok := h.requireAdmin(ctx, "list recent assignments"); !ok {
			return nil, authErr
		}
		items, err := h.e.GetRecentAssignments(ctx, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return listOutput(items), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-overdue-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks/overdue",
		Summary:     "Pending tasks past their due date",
		Errors:      errs,
	}, func(ctx context.Context, input *struct {
		OwnerID int64 `query:"owner_id"`
	}) (*taskListOutput, error) {
		if authErr, ok := h.requireAdmin(ctx, "list overdue tasks"); !ok {
			return nil, authErr
		}
		items, err := h.e.GetOverdue(ctx, input.OwnerID)
		if err != nil {
			return nil, handleError(err)
		}
		return listOutput(items), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-due-soon-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks/due-soon",
		Summary:     "Pending tasks due within a number of days",
		Errors:      errs,
	}, func(ctx context.Context, input *struct {
		Days    string `query:"days"`
		OwnerID int64  `query:"owner_id"`
	}) (*taskListOutput, error) {
		if authErr, ok := h.requireAdmin(ctx, "list tasks due soon"); !ok {
			return nil, authErr
		}
		days, dErr := h.parseDays(input.Days)
		if dErr != nil {
			return nil, dErr
		}
		items, err := h.e.GetDueSoon(ctx, days, input.OwnerID)
		if err != nil {
			return nil, handleError(err)
		}
		return listOutput(items), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "statistics",
		Method:      http.MethodGet,
		Path:        "/statistics",
		Summary:     "Task statistics across owners",
		Errors:      errs,
	}, func(ctx context.Context, input *struct {
		OwnerID  int64  `query:"owner_id"`
		DateFrom string `query:"date_from"`
		DateTo   string `query:"date_to"`
	}) (*statsOutput, error) {
		if authErr, ok := h.requireAdmin(ctx, "compute statistics"); !ok {
			return nil, authErr
		}
		stats, err := h.e.ComputeStatistics(ctx, engine.StatsFilters{OwnerID: input.OwnerID, DateFrom: input.DateFrom, DateTo: input.DateTo})
		if err != nil {
			return nil, handleError(err)
		}
		return &statsOutput{Body: stats}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create a task for an owner",
		DefaultStatus: http.StatusCreated,
		Errors:        errs,
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*taskOutput, error) {
		if authErr, ok := h.requireAdmin(ctx, "create task"); !ok {
			return nil, authErr
		}
		p, _ := principalFromContext(ctx)
		adminID := p.ID
		id, err := h.e.CreateTask(ctx, engine.TaskCreateOptions{
			OwnerID:      input.Body.OwnerID,
			Title:        input.Body.Title,
			Description:  input.Body.Description,
			Priority:     input.Body.Priority,
			DueDate:      input.Body.DueDate,
			AssignedBy:   h.e.AdminName(ctx, adminID),
			AssignedByID: &adminID,
			Instructions: input.Body.Instructions,
		})
		if err != nil {
			return nil, handleError(err)
		}
		t, err := h.e.GetTask(ctx, id)
		if err != nil {
			return nil, handleError(err)
		}
		h.rec.Record(ctx, p, fmt.Sprintf("Created task: %s", t.Title), events.TaskEntity(id))
		return &taskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "assign-predefined-task",
		Method:        http.MethodPost,
		Path:          "/tasks/predefined",
		Summary:       "Assign a catalog task to an owner",
		DefaultStatus: http.StatusCreated,
		Errors:        errs,
	}, func(ctx context.Context, input *struct {
		Body AssignPredefinedRequest `json:"body"`
	}) (*taskOutput, error) {
		if authErr, ok := h.requireAdmin(ctx, "assign predefined task"); !ok {
			return nil, authErr
		}
		p, _ := principalFromContext(ctx)
		id, err := h.e.AssignPredefinedTask(ctx, engine.PredefinedAssignment{
			Category:     input.Body.Category,
			Title:        input.Body.Title,
			OwnerID:      input.Body.OwnerID,
			AdminID:      p.ID,
			DueDate:      input.Body.DueDate,
			Priority:     input.Body.Priority,
			Instructions: input.Body.Instructions,
		})
		if err != nil {
			return nil, handleError(err)
		}
		t, err := h.e.GetTask(ctx, id)
		if err != nil {
			return nil, handleError(err)
		}
		h.rec.Record(ctx, p, fmt.Sprintf("Assigned predefined task: %s to user ID %d", t.Title, t.OwnerID), events.TaskEntity(id))
		return &taskOutput{Body: t}, nil
	})
}

func registerTasks(api huma.API, h handlers) {
	errs := []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound}

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get task",
		Errors:      errs,
	}, func(ctx context.Context, input *taskPath) (*taskOutput, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := h.e.AuthorizedTask(ctx, p, input.ID, auth.OpRead)
		if err != nil {
			return nil, handleError(err)
		}
		return &taskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task-status",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}/status",
		Summary:     "Update task status",
		Errors:      errs,
	}, func(ctx context.Context, input *struct {
		ID   int64               `path:"id"`
		Body UpdateStatusRequest `json:"body"`
	}) (*taskOutput, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := h.e.UpdateStatus(ctx, input.ID, input.Body.Status, p)
		if err != nil {
			return nil, handleError(err)
		}
		h.rec.Record(ctx, p, fmt.Sprintf("Updated task status for task ID: %d to %s", t.ID, t.Status), events.TaskEntity(t.ID))
		return &taskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}",
		Summary:     "Update editable task fields",
		Description: "Accepts a JSON object. Keys other than title, description, priority, due_date and instructions are ignored.",
		Errors:      errs,
	}, func(ctx context.Context, input *struct {
		ID      int64  `path:"id"`
		RawBody []byte `contentType:"application/json"`
	}) (*taskOutput, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		fields := map[string]any{}
		if len(input.RawBody) > 0 {
			if err := json.Unmarshal(input.RawBody, &fields); err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "body must be a JSON object", nil)
			}
		}
		t, err := h.e.UpdateFields(ctx, input.ID, fields, p)
		if err != nil {
			return nil, handleError(err)
		}
		h.rec.Record(ctx, p, fmt.Sprintf("Updated task ID: %d", t.ID), events.TaskEntity(t.ID))
		return &taskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{id}",
		Summary:       "Delete task and its attachments",
		DefaultStatus: http.StatusNoContent,
		Errors:        errs,
	}, func(ctx context.Context, input *taskPath) (*struct{}, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := h.e.DeleteTask(ctx, input.ID, p); err != nil {
			return nil, handleError(err)
		}
		h.rec.Record(ctx, p, fmt.Sprintf("Deleted task ID: %d", input.ID), events.TaskEntity(input.ID))
		return &struct{}{}, nil
	})
}
