package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/viper"

	"taskline/internal/domain"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	return tw
}

func printTasks(tasks []domain.Task) error {
	if viper.GetBool("json") {
		return printJSON(tasks)
	}
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Owner", "Title", "Priority", "Status", "Due", "Assigned By"})
	for _, t := range tasks {
		status := t.Status
		if t.Overdue {
			status += " (overdue)"
		}
		owner := t.OwnerName
		if owner == "" {
			owner = fmt.Sprint(t.OwnerID)
		}
		tw.AppendRow(table.Row{t.ID, owner, t.Title, t.Priority, status, t.DueDate, t.AssignedByName})
	}
	tw.AppendFooter(table.Row{"", "", fmt.Sprintf("%d tasks", len(tasks))})
	tw.Render()
	return nil
}

func printTask(t domain.Task) error {
	if viper.GetBool("json") {
		return printJSON(t)
	}
	tw := newTable()
	completed := ""
	if t.CompletedAt != nil {
		completed = *t.CompletedAt
	}
	rows := []table.Row{
		{"ID", t.ID},
		{"Owner", fmt.Sprintf("%s (%d)", t.OwnerName, t.OwnerID)},
		{"Title", t.Title},
		{"Description", t.Description},
		{"Priority", t.Priority},
		{"Status", t.Status},
		{"Overdue", t.Overdue},
		{"Due", t.DueDate},
		{"Created", t.CreatedAt},
		{"Completed", completed},
		{"Assigned By", t.AssignedByName},
		{"Instructions", t.Instructions},
		{"Version", t.Version},
	}
	tw.AppendRows(rows)
	tw.Render()
	return nil
}

func printAttachments(items []domain.Attachment) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "File", "Type", "Size", "Uploaded", "SHA-256"})
	for _, a := range items {
		tw.AppendRow(table.Row{a.ID, a.FileName, a.MediaType, humanize.IBytes(uint64(a.SizeBytes)), relative(a.UploadedAt), a.SHA256[:min(12, len(a.SHA256))]})
	}
	tw.Render()
	return nil
}

func printStatistics(s domain.Statistics) error {
	if viper.GetBool("json") {
		return printJSON(s)
	}
	tw := newTable()
	tw.AppendHeader(table.Row{"Metric", "Value"})
	tw.AppendRows([]table.Row{
		{"Total", s.Total},
		{"Pending", s.Pending},
		{"In progress", s.InProgress},
		{"Completed", s.Completed},
		{"Overdue", s.Overdue},
		{"High priority", s.HighPriority},
		{"Medium priority", s.MediumPriority},
		{"Low priority", s.LowPriority},
		{"Completion rate", fmt.Sprintf("%.2f%%", s.CompletionRate)},
	})
	tw.Render()
	return nil
}

func printPeople(kind string, people []domain.Person) error {
	if viper.GetBool("json") {
		return printJSON(people)
	}
	tw := newTable()
	tw.SetTitle(kind)
	tw.AppendHeader(table.Row{"ID", "Name", "Email", "Created"})
	for _, p := range people {
		tw.AppendRow(table.Row{p.ID, p.Name, p.Email, p.CreatedAt})
	}
	tw.Render()
	return nil
}

func printCatalog(categories []domain.Category) error {
	if viper.GetBool("json") {
		return printJSON(categories)
	}
	tw := newTable()
	tw.AppendHeader(table.Row{"Category", "Title", "Description"})
	for _, c := range categories {
		for _, tpl := range c.Templates {
			tw.AppendRow(table.Row{c.Name, tpl.Title, tpl.Description})
		}
		tw.AppendSeparator()
	}
	tw.Render()
	return nil
}

func printActivity(entries []domain.ActivityEntry) error {
	if viper.GetBool("json") {
		return printJSON(entries)
	}
	tw := newTable()
	tw.AppendHeader(table.Row{"When", "Principal", "Action", "Request"})
	for _, e := range entries {
		tw.AppendRow(table.Row{relative(e.TS), fmt.Sprintf("%s %d", e.PrincipalRole, e.PrincipalID), e.Action, e.CorrelationID})
	}
	tw.Render()
	return nil
}

func printAPIKeys(keys []domain.APIKey) error {
	if viper.GetBool("json") {
		return printJSON(keys)
	}
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Principal", "Role", "Name", "Created"})
	for _, k := range keys {
		tw.AppendRow(table.Row{k.ID, k.PrincipalID, k.Role, k.Name, relative(k.CreatedAt)})
	}
	tw.Render()
	return nil
}

// relative renders an RFC3339 timestamp as "3 minutes ago", or as-is when unparsable.
func relative(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return humanize.Time(t)
}
