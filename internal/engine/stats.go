package engine

import (
	"context"
	"math"

	"taskline/internal/domain"
	"taskline/internal/repo"
)

// StatsFilters scope ComputeStatistics the same way ListAll is scoped.
type StatsFilters struct {
	OwnerID  int64
	DateFrom string
	DateTo   string
}

// ComputeStatistics aggregates counts over the scoped task set. The caller
// must already be allowed to see that scope.
func (e Engine) ComputeStatistics(ctx context.Context, f StatsFilters) (domain.Statistics, error) {
	from, before, err := e.dayRange(f.DateFrom, f.DateTo)
	if err != nil {
		return domain.Statistics{}, err
	}
	c, err := e.Repo.CountTasks(ctx, repo.TaskFilters{
		OwnerID:       f.OwnerID,
		CreatedFrom:   from,
		CreatedBefore: before,
	}, e.nowString())
	if err != nil {
		return domain.Statistics{}, e.storeErr("compute statistics", "task", f.OwnerID, err)
	}
	return domain.Statistics{
		Total:          c.Total,
		Pending:        c.Pending,
		InProgress:     c.InProgress,
		Completed:      c.Completed,
		Overdue:        c.Overdue,
		HighPriority:   c.High,
		MediumPriority: c.Medium,
		LowPriority:    c.Low,
		CompletionRate: completionRate(c.Completed, c.Total),
	}, nil
}

// completionRate is completed/total as a percentage rounded to two decimals.
func completionRate(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*100*100) / 100
}
