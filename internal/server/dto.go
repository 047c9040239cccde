package server

import (
	"taskline/internal/domain"
)

// Request payloads

// Fields carry omitempty so missing values reach the engine, which names the
// offending field in its error.
type CreateTaskRequest struct {
	OwnerID      int64  `json:"owner_id,omitempty"`
	Title        string `json:"title,omitempty"`
	Description  string `json:"description,omitempty"`
	Priority     string `json:"priority,omitempty"`
	DueDate      string `json:"due_date,omitempty" doc:"YYYY-MM-DD, YYYY-MM-DD HH:MM:SS or RFC3339"`
	Instructions string `json:"instructions,omitempty"`
}

type AssignPredefinedRequest struct {
	Category     string `json:"category,omitempty"`
	Title        string `json:"title,omitempty"`
	OwnerID      int64  `json:"owner_id,omitempty"`
	DueDate      string `json:"due_date,omitempty"`
	Priority     string `json:"priority,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status,omitempty" doc:"pending, in_progress or completed"`
}

// Response payloads

type CatalogResponse struct {
	Categories []domain.Category `json:"categories"`
}

type TaskListResponse struct {
	Tasks []domain.Task `json:"tasks"`
}

type AttachmentListResponse struct {
	Attachments []domain.Attachment `json:"attachments"`
}

func nonNilTasks(items []domain.Task) []domain.Task {
	if items == nil {
		return []domain.Task{}
	}
	return items
}
