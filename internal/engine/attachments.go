package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"taskline/internal/domain"
	"taskline/internal/engine/auth"
)

const defaultMediaType = "application/octet-stream"

// FileMeta describes an upload. Size and type limits are enforced before
// the upload reaches the engine.
type FileMeta struct {
	Name      string
	MediaType string
	Size      int64
}

// UploadAttachment stores data under the task and returns the attachment id.
func (e Engine) UploadAttachment(ctx context.Context, taskID int64, meta FileMeta, data []byte, p domain.Principal) (int64, error) {
	if _, err := e.AuthorizedTask(ctx, p, taskID, auth.OpUploadAttachment); err != nil {
		return 0, err
	}
	if meta.MediaType == "" {
		meta.MediaType = defaultMediaType
	}
	if meta.Size <= 0 {
		meta.Size = int64(len(data))
	}
	sum := sha256.Sum256(data)
	if data == nil {
		data = []byte{}
	}
	id, err := e.Repo.InsertAttachment(ctx, nil, domain.Attachment{
		TaskID:     taskID,
		FileName:   meta.Name,
		MediaType:  meta.MediaType,
		SizeBytes:  meta.Size,
		SHA256:     hex.EncodeToString(sum[:]),
		Data:       data,
		UploadedAt: e.nowString(),
	})
	if err != nil {
		return 0, e.storeErr("insert attachment", "task", taskID, err)
	}
	e.logger().Debug("attachment stored", slog.Int64("task_id", taskID), slog.Int64("attachment_id", id), slog.Int64("size", meta.Size))
	return id, nil
}

// ListAttachments returns attachment metadata for a task, newest first.
func (e Engine) ListAttachments(ctx context.Context, taskID int64, p domain.Principal) ([]domain.Attachment, error) {
	if _, err := e.AuthorizedTask(ctx, p, taskID, auth.OpListAttachments); err != nil {
		return nil, err
	}
	items, err := e.Repo.ListAttachments(ctx, taskID)
	if err != nil {
		return nil, e.storeErr("list attachments", "task", taskID, err)
	}
	return items, nil
}

// DownloadAttachment returns an attachment with its bytes.
func (e Engine) DownloadAttachment(ctx context.Context, attachmentID, taskID int64, p domain.Principal) (domain.Attachment, error) {
	if _, err := e.AuthorizedTask(ctx, p, taskID, auth.OpDownload); err != nil {
		return domain.Attachment{}, err
	}
	a, err := e.Repo.GetAttachment(ctx, attachmentID, taskID)
	if err != nil {
		return domain.Attachment{}, e.storeErr("get attachment", "attachment", attachmentID, err)
	}
	return a, nil
}

func (e Engine) DeleteAttachment(ctx context.Context, attachmentID, taskID int64, p domain.Principal) error {
	if _, err := e.AuthorizedTask(ctx, p, taskID, auth.OpDeleteAttachment); err != nil {
		return err
	}
	if err := e.Repo.DeleteAttachment(ctx, attachmentID, taskID); err != nil {
		return e.storeErr("delete attachment", "attachment", attachmentID, err)
	}
	return nil
}
