package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"taskline/internal/app"
	"taskline/internal/domain"
	"taskline/internal/engine"
	"taskline/internal/events"
	"taskline/internal/upload"
)

func attachCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "attach", Short: "Manage task attachments"}
	cmd.AddCommand(attachUploadCmd())
	cmd.AddCommand(attachListCmd())
	cmd.AddCommand(attachDownloadCmd())
	cmd.AddCommand(attachDeleteCmd())
	return cmd
}

func attachUploadCmd() *cobra.Command {
	var name, mediaType string
	cmd := &cobra.Command{
		Use:   "upload <task-id> <file>",
		Short: "Attach a file to a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0], "task id")
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			if name == "" {
				name = filepath.Base(args[1])
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime, p domain.Principal) error {
				file, err := upload.FromConfig(rt.Config).Check(name, mediaType, data)
				if err != nil {
					return err
				}
				id, err := rt.Engine.UploadAttachment(ctx, taskID, engine.FileMeta{Name: file.Name, MediaType: file.MediaType, Size: file.Size}, data, p)
				if err != nil {
					return err
				}
				rt.Recorder.Record(ctx, p, fmt.Sprintf("Uploaded file: %s for task ID: %d", file.Name, taskID), events.AttachmentEntity(id))
				fmt.Printf("attached %s (%s, %s) as attachment %d\n", file.Name, file.MediaType, humanize.IBytes(uint64(file.Size)), id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "stored file name (defaults to the file's base name)")
	cmd.Flags().StringVar(&mediaType, "type", "", "media type (detected when empty)")
	return cmd
}

func attachListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <task-id>",
		Short: "List a task's attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0], "task id")
			if err != nil {
				return err
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime, p domain.Principal) error {
				items, err := rt.Engine.ListAttachments(ctx, taskID, p)
				if err != nil {
					return err
				}
				return printAttachments(items)
			})
		},
	}
}

func attachDownloadCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "download <task-id> <attachment-id>",
		Short: "Save an attachment to disk",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0], "task id")
			if err != nil {
				return err
			}
			attID, err := parseID(args[1], "attachment id")
			if err != nil {
				return err
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime, p domain.Principal) error {
				a, err := rt.Engine.DownloadAttachment(ctx, attID, taskID, p)
				if err != nil {
					return err
				}
				target := out
				if target == "" {
					target = a.FileName
				}
				if err := os.WriteFile(target, a.Data, 0o644); err != nil {
					return err
				}
				fmt.Printf("wrote %s (%s)\n", target, humanize.IBytes(uint64(len(a.Data))))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (defaults to the stored file name)")
	return cmd
}

func attachDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id> <attachment-id>",
		Short: "Delete an attachment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0], "task id")
			if err != nil {
				return err
			}
			attID, err := parseID(args[1], "attachment id")
			if err != nil {
				return err
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime, p domain.Principal) error {
				if err := rt.Engine.DeleteAttachment(ctx, attID, taskID, p); err != nil {
					return err
				}
				rt.Recorder.Record(ctx, p, fmt.Sprintf("Deleted file ID: %d for task ID: %d", attID, taskID), events.AttachmentEntity(attID))
				fmt.Printf("deleted attachment %d\n", attID)
				return nil
			})
		},
	}
}
