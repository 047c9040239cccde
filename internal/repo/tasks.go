package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"taskline/internal/domain"
)

const taskSelect = `SELECT t.id,t.owner_id,COALESCE(u.name,''),COALESCE(u.email,''),t.title,t.description,t.priority,t.status,
t.due_date,t.created_at,t.completed_at,COALESCE(t.assigned_by_name,''),t.assigned_by_id,COALESCE(t.instructions,''),t.version
FROM tasks t LEFT JOIN users u ON u.id=t.owner_id`

// TaskOrder selects one of the fixed orderings used by task listings.
type TaskOrder int

const (
	// OrderByDueDate sorts by due date, then high priority first.
	OrderByDueDate TaskOrder = iota
	// OrderByCreatedDesc sorts newest first.
	OrderByCreatedDesc
)

// TaskFilters narrows task listings and statistics. Zero values mean "any".
// Time bounds are domain.TimeLayout strings compared lexically.
type TaskFilters struct {
	OwnerID       int64
	Status        string
	Priority      string
	CreatedFrom   string // created_at >= CreatedFrom
	CreatedBefore string // created_at < CreatedBefore
	DueFrom       string // due_date >= DueFrom
	DueUntil      string // due_date <= DueUntil
	DueBefore     string // due_date < DueBefore
	Order         TaskOrder
	Limit         int
}

func (f TaskFilters) where() (string, []any) {
	var clauses []string
	var args []any
	if f.OwnerID != 0 {
		clauses = append(clauses, "t.owner_id=?")
		args = append(args, f.OwnerID)
	}
	if f.Status != "" {
		clauses = append(clauses, "t.status=?")
		args = append(args, f.Status)
	}
	if f.Priority != "" {
		clauses = append(clauses, "t.priority=?")
		args = append(args, f.Priority)
	}
	if f.CreatedFrom != "" {
		clauses = append(clauses, "t.created_at>=?")
		args = append(args, f.CreatedFrom)
	}
	if f.CreatedBefore != "" {
		clauses = append(clauses, "t.created_at<?")
		args = append(args, f.CreatedBefore)
	}
	if f.DueFrom != "" {
		clauses = append(clauses, "t.due_date>=?")
		args = append(args, f.DueFrom)
	}
	if f.DueUntil != "" {
		clauses = append(clauses, "t.due_date<=?")
		args = append(args, f.DueUntil)
	}
	if f.DueBefore != "" {
		clauses = append(clauses, "t.due_date<?")
		args = append(args, f.DueBefore)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (o TaskOrder) clause() string {
	switch o {
	case OrderByCreatedDesc:
		return " ORDER BY t.created_at DESC, t.id DESC"
	default:
		return " ORDER BY t.due_date ASC, CASE t.priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END DESC, t.id ASC"
	}
}

func scanTask(row rowScanner) (domain.Task, error) {
	var t domain.Task
	var completedAt sql.NullString
	var assignedByID sql.NullInt64
	err := row.Scan(&t.ID, &t.OwnerID, &t.OwnerName, &t.OwnerEmail, &t.Title, &t.Description, &t.Priority, &t.Status,
		&t.DueDate, &t.CreatedAt, &completedAt, &t.AssignedByName, &assignedByID, &t.Instructions, &t.Version)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.String
	}
	if assignedByID.Valid {
		id := assignedByID.Int64
		t.AssignedByID = &id
	}
	return t, nil
}

// InsertTask stores a new task and returns its id.
func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) (int64, error) {
	res, err := r.q(tx).ExecContext(ctx, `INSERT INTO tasks(owner_id,title,description,priority,status,due_date,created_at,completed_at,assigned_by_name,assigned_by_id,instructions,version)
VALUES (?,?,?,?,?,?,?,?,?,?,?,1)`,
		t.OwnerID, t.Title, t.Description, t.Priority, t.Status, t.DueDate, t.CreatedAt, nullableStringPtr(t.CompletedAt),
		nullable(t.AssignedByName), nullableInt64Ptr(t.AssignedByID), nullable(t.Instructions))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	return r.GetTaskTx(ctx, nil, id)
}

func (r Repo) GetTaskTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Task, error) {
	return scanTask(r.q(tx).QueryRowContext(ctx, taskSelect+` WHERE t.id=?`, id))
}

func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	where, args := f.where()
	query := taskSelect + where + f.Order.clause()
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// UpdateTaskStatus writes a status and bumps the version. A nil completedAt
// leaves the stored completion time untouched.
func (r Repo) UpdateTaskStatus(ctx context.Context, tx *sql.Tx, id int64, status string, completedAt *string) error {
	query := `UPDATE tasks SET status=?, version=version+1`
	args := []any{status}
	if completedAt != nil {
		query += `, completed_at=?`
		args = append(args, *completedAt)
	}
	query += ` WHERE id=?`
	args = append(args, id)
	res, err := r.q(tx).ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// TaskPatch carries the editable task fields; nil fields are left as stored.
type TaskPatch struct {
	Title        *string
	Description  *string
	Priority     *string
	DueDate      *string
	Instructions *string
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil && p.DueDate == nil && p.Instructions == nil
}

func (r Repo) UpdateTaskFields(ctx context.Context, tx *sql.Tx, id int64, p TaskPatch) error {
	var (
		fields []string
		args   []any
	)
	if p.Title != nil {
		fields = append(fields, "title=?")
		args = append(args, *p.Title)
	}
	if p.Description != nil {
		fields = append(fields, "description=?")
		args = append(args, *p.Description)
	}
	if p.Priority != nil {
		fields = append(fields, "priority=?")
		args = append(args, *p.Priority)
	}
	if p.DueDate != nil {
		fields = append(fields, "due_date=?")
		args = append(args, *p.DueDate)
	}
	if p.Instructions != nil {
		fields = append(fields, "instructions=?")
		args = append(args, nullable(*p.Instructions))
	}
	if len(fields) == 0 {
		return nil
	}
	fields = append(fields, "version=version+1")
	args = append(args, id)
	res, err := r.q(tx).ExecContext(ctx, fmt.Sprintf(`UPDATE tasks SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// DeleteTaskTx removes a task and its attachments and reports how many
// attachments went with it. Attachments are deleted explicitly so the count
// does not depend on the cascade pragma.
func (r Repo) DeleteTaskTx(ctx context.Context, tx *sql.Tx, id int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM task_attachments WHERE task_id=?`, id)
	if err != nil {
		return 0, fmt.Errorf("delete attachments: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	res, err = tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return 0, fmt.Errorf("delete task: %w", err)
	}
	if err := affectedOrNotFound(res); err != nil {
		return 0, err
	}
	return removed, nil
}

// TaskCounts holds raw aggregates for statistics.
type TaskCounts struct {
	Total, Pending, InProgress, Completed, Overdue int
	High, Medium, Low                              int
}

// CountTasks aggregates tasks matching f. Overdue counts pending tasks due before now.
func (r Repo) CountTasks(ctx context.Context, f TaskFilters, now string) (TaskCounts, error) {
	where, args := f.where()
	query := `SELECT COUNT(*),
COALESCE(SUM(CASE WHEN t.status='pending' THEN 1 ELSE 0 END),0),
COALESCE(SUM(CASE WHEN t.status='in_progress' THEN 1 ELSE 0 END),0),
COALESCE(SUM(CASE WHEN t.status='completed' THEN 1 ELSE 0 END),0),
COALESCE(SUM(CASE WHEN t.status='pending' AND t.due_date<? THEN 1 ELSE 0 END),0),
COALESCE(SUM(CASE WHEN t.priority='high' THEN 1 ELSE 0 END),0),
COALESCE(SUM(CASE WHEN t.priority='medium' THEN 1 ELSE 0 END),0),
COALESCE(SUM(CASE WHEN t.priority='low' THEN 1 ELSE 0 END),0)
FROM tasks t` + where
	args = append([]any{now}, args...)
	var c TaskCounts
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(&c.Total, &c.Pending, &c.InProgress, &c.Completed, &c.Overdue, &c.High, &c.Medium, &c.Low)
	return c, err
}
