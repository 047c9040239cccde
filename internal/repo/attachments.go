package repo

import (
	"context"
	"database/sql"

	"taskline/internal/domain"
)

func (r Repo) InsertAttachment(ctx context.Context, tx *sql.Tx, a domain.Attachment) (int64, error) {
	res, err := r.q(tx).ExecContext(ctx, `INSERT INTO task_attachments(task_id,file_name,media_type,size_bytes,sha256,data,uploaded_at) VALUES (?,?,?,?,?,?,?)`,
		a.TaskID, a.FileName, a.MediaType, a.SizeBytes, a.SHA256, a.Data, a.UploadedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListAttachments returns attachment metadata for a task, newest first, without payloads.
func (r Repo) ListAttachments(ctx context.Context, taskID int64) ([]domain.Attachment, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,task_id,file_name,media_type,size_bytes,sha256,uploaded_at
FROM task_attachments WHERE task_id=? ORDER BY uploaded_at DESC, id DESC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Attachment{}
	for rows.Next() {
		var a domain.Attachment
		if err := rows.Scan(&a.ID, &a.TaskID, &a.FileName, &a.MediaType, &a.SizeBytes, &a.SHA256, &a.UploadedAt); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// GetAttachment loads an attachment with its payload. It reports ErrNotFound
// when the attachment belongs to a different task.
func (r Repo) GetAttachment(ctx context.Context, id, taskID int64) (domain.Attachment, error) {
	var a domain.Attachment
	err := r.DB.QueryRowContext(ctx, `SELECT id,task_id,file_name,media_type,size_bytes,sha256,data,uploaded_at
FROM task_attachments WHERE id=? AND task_id=?`, id, taskID).
		Scan(&a.ID, &a.TaskID, &a.FileName, &a.MediaType, &a.SizeBytes, &a.SHA256, &a.Data, &a.UploadedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	return a, err
}

func (r Repo) DeleteAttachment(ctx context.Context, id, taskID int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM task_attachments WHERE id=? AND task_id=?`, id, taskID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}
