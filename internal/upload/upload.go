// Package upload checks files before they are handed to the attachment store.
package upload

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"

	"taskline/internal/config"
)

const genericMediaType = "application/octet-stream"

// Policy holds the size and extension limits for uploads.
type Policy struct {
	MaxBytes          int64
	AllowedExtensions []string
}

func FromConfig(cfg *config.Config) Policy {
	exts := make([]string, 0, len(cfg.Uploads.AllowedExtensions))
	for _, ext := range cfg.Uploads.AllowedExtensions {
		exts = append(exts, strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), ".")))
	}
	return Policy{MaxBytes: cfg.Uploads.MaxFileSize, AllowedExtensions: exts}
}

// RejectedError explains why a file was refused.
type RejectedError struct {
	Reason   string
	TooLarge bool
}

func (e *RejectedError) Error() string { return e.Reason }

// File is an upload that passed the policy.
type File struct {
	Name      string
	MediaType string
	Size      int64
}

// Check validates name and size and settles the media type. A missing or
// generic declared type is replaced by one detected from the content.
func (p Policy) Check(name, declaredType string, data []byte) (File, error) {
	name = cleanName(name)
	if name == "" {
		return File{}, &RejectedError{Reason: "file name is required"}
	}
	size := int64(len(data))
	if size == 0 {
		return File{}, &RejectedError{Reason: "file is empty"}
	}
	if p.MaxBytes > 0 && size > p.MaxBytes {
		return File{}, &RejectedError{
			Reason:   fmt.Sprintf("file size %s exceeds the %s limit", humanize.IBytes(uint64(size)), humanize.IBytes(uint64(p.MaxBytes))),
			TooLarge: true,
		}
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if !slices.Contains(p.AllowedExtensions, ext) {
		return File{}, &RejectedError{Reason: fmt.Sprintf("file type %q not allowed; allowed: %s", ext, strings.Join(p.AllowedExtensions, ", "))}
	}
	mediaType := strings.TrimSpace(declaredType)
	if mediaType == "" || strings.HasPrefix(mediaType, genericMediaType) {
		mediaType = mimetype.Detect(data).String()
	}
	return File{Name: name, MediaType: mediaType, Size: size}, nil
}

// cleanName drops any directory components a client sent along.
func cleanName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	base := path.Base(name)
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return base
}
