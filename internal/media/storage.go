// Package media stores and serves chat attachments.
package media

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrNotFound = errors.New("file not found")

// File is the stored metadata of an attachment.
type File struct {
	ID         string    `json:"id"`
	CourseID   string    `json:"courseId"`
	Filename   string    `json:"filename"`
	MimeType   string    `json:"mimeType"`
	Size       int64     `json:"size"`
	UploadedBy string    `json:"uploadedBy"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Storage persists attachment blobs. Save returns the assigned file ID;
// Open returns the content stream plus metadata, or ErrNotFound.
type Storage interface {
	Save(ctx context.Context, meta File, content io.Reader) (string, error)
	Open(ctx context.Context, fileID string) (io.ReadCloser, *File, error)
	Delete(ctx context.Context, fileID string) error
}
