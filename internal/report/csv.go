// Package report renders task listings and statistics as CSV.
package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"taskline/internal/domain"
)

var taskHeader = []string{
	"id", "owner_id", "owner_name", "title", "description", "priority", "status", "overdue",
	"due_date", "created_at", "completed_at", "assigned_by", "instructions",
}

// WriteTasks writes one row per task after a header row.
func WriteTasks(w io.Writer, tasks []domain.Task) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(taskHeader); err != nil {
		return err
	}
	for _, t := range tasks {
		completed := ""
		if t.CompletedAt != nil {
			completed = *t.CompletedAt
		}
		row := []string{
			strconv.FormatInt(t.ID, 10),
			strconv.FormatInt(t.OwnerID, 10),
			t.OwnerName,
			t.Title,
			t.Description,
			t.Priority,
			t.Status,
			strconv.FormatBool(t.Overdue),
			t.DueDate,
			t.CreatedAt,
			completed,
			t.AssignedByName,
			t.Instructions,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteStatistics writes the statistics as a header and a single row.
func WriteStatistics(w io.Writer, s domain.Statistics) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"total", "pending", "in_progress", "completed", "overdue", "high_priority", "medium_priority", "low_priority", "completion_rate"},
		{
			strconv.Itoa(s.Total),
			strconv.Itoa(s.Pending),
			strconv.Itoa(s.InProgress),
			strconv.Itoa(s.Completed),
			strconv.Itoa(s.Overdue),
			strconv.Itoa(s.HighPriority),
			strconv.Itoa(s.MediumPriority),
			strconv.Itoa(s.LowPriority),
			strconv.FormatFloat(s.CompletionRate, 'f', 2, 64),
		},
	}
	return cw.WriteAll(rows)
}
