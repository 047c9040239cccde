package server

import (
	"context"
	"fmt"
	"mime"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"taskline/internal/domain"
	"taskline/internal/engine"
	"taskline/internal/events"
)

type attachmentPath struct {
	ID           int64 `path:"id"`
	AttachmentID int64 `path:"attachment_id"`
}

type downloadOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Checksum           string `header:"X-Checksum-Sha256"`
	Body               []byte
}

func registerAttachments(api huma.API, h handlers) {
	errs := []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound}

	huma.Register(api, huma.Operation{
		OperationID:   "upload-attachment",
		Method:        http.MethodPost,
		Path:          "/tasks/{id}/attachments",
		Summary:       "Upload a file to a task",
		Description:   "The request body is the raw file. Its name is given by the file_name query parameter.",
		DefaultStatus: http.StatusCreated,
		MaxBodyBytes:  h.uploads.MaxBytes + 1<<20,
		Errors:        append(errs, http.StatusRequestEntityTooLarge),
	}, func(ctx context.Context, input *struct {
		ID          int64  `path:"id"`
		FileName    string `query:"file_name" required:"true"`
		ContentType string `header:"Content-Type"`
		RawBody     []byte `contentType:"application/octet-stream"`
	}) (*struct {
		Body domain.Attachment `json:"body"`
	}, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		file, err := h.uploads.Check(input.FileName, input.ContentType, input.RawBody)
		if err != nil {
			return nil, handleError(err)
		}
		id, err := h.e.UploadAttachment(ctx, input.ID, engine.FileMeta{Name: file.Name, MediaType: file.MediaType, Size: file.Size}, input.RawBody, p)
		if err != nil {
			return nil, handleError(err)
		}
		a, err := h.e.DownloadAttachment(ctx, id, input.ID, p)
		if err != nil {
			return nil, handleError(err)
		}
		a.Data = nil
		h.rec.Record(ctx, p, fmt.Sprintf("Uploaded file: %s for task ID: %d", file.Name, input.ID), events.AttachmentEntity(id))
		return &struct {
			Body domain.Attachment `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-attachments",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}/attachments",
		Summary:     "List task attachments",
		Errors:      errs,
	}, func(ctx context.Context, input *taskPath) (*struct {
		Body AttachmentListResponse `json:"body"`
	}, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := h.e.ListAttachments(ctx, input.ID, p)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Attachment{}
		}
		return &struct {
			Body AttachmentListResponse `json:"body"`
		}{Body: AttachmentListResponse{Attachments: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "download-attachment",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}/attachments/{attachment_id}",
		Summary:     "Download an attachment",
		Errors:      errs,
	}, func(ctx context.Context, input *attachmentPath) (*downloadOutput, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := h.e.DownloadAttachment(ctx, input.AttachmentID, input.ID, p)
		if err != nil {
			return nil, handleError(err)
		}
		return &downloadOutput{
			ContentType:        a.MediaType,
			ContentDisposition: mime.FormatMediaType("attachment", map[string]string{"filename": a.FileName}),
			Checksum:           a.SHA256,
			Body:               a.Data,
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-attachment",
		Method:        http.MethodDelete,
		Path:          "/tasks/{id}/attachments/{attachment_id}",
		Summary:       "Delete an attachment",
		DefaultStatus: http.StatusNoContent,
		Errors:        errs,
	}, func(ctx context.Context, input *attachmentPath) (*struct{}, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := h.e.DeleteAttachment(ctx, input.AttachmentID, input.ID, p); err != nil {
			return nil, handleError(err)
		}
		h.rec.Record(ctx, p, fmt.Sprintf("Deleted file ID: %d for task ID: %d", input.AttachmentID, input.ID), events.AttachmentEntity(input.AttachmentID))
		return &struct{}{}, nil
	})
}
