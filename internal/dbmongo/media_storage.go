package dbmongo

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"coursechat/internal/media"
)

// MediaStorage persists attachments in GridFS. It implements media.Storage.
type MediaStorage struct {
	gridFS *gridfs.Bucket
}

func NewMediaStorage(mongoClient *MongoClient) *MediaStorage {
	return &MediaStorage{
		gridFS: mongoClient.GridFS,
	}
}

func (ms *MediaStorage) Save(ctx context.Context, meta media.File, content io.Reader) (string, error) {
	uploadedAt := meta.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = time.Now().UTC()
	}

	metadata := bson.M{
		"course_id":   meta.CourseID,
		"mime_type":   meta.MimeType,
		"uploaded_by": meta.UploadedBy,
		"uploaded_at": uploadedAt,
	}

	opts := options.GridFSUpload().SetMetadata(metadata)
	stream, err := ms.gridFS.OpenUploadStream(meta.Filename, opts)
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	defer stream.Close()

	if _, err := io.Copy(stream, content); err != nil {
		return "", fmt.Errorf("file copy failed: %w", err)
	}

	return stream.FileID.(primitive.ObjectID).Hex(), nil
}

func (ms *MediaStorage) Open(ctx context.Context, fileID string) (io.ReadCloser, *media.File, error) {
	objectID, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid file ID: %w", media.ErrNotFound)
	}

	stream, err := ms.gridFS.OpenDownloadStream(objectID)
	if err != nil {
		if err == gridfs.ErrFileNotFound {
			return nil, nil, media.ErrNotFound
		}
		return nil, nil, fmt.Errorf("download failed: %w", err)
	}

	fileInfo := stream.GetFile()
	var metadata bson.M
	if fileInfo.Metadata != nil {
		bson.Unmarshal(fileInfo.Metadata, &metadata)
	}

	meta := &media.File{
		ID:         fileID,
		CourseID:   getStringFromMap(metadata, "course_id"),
		Filename:   fileInfo.Name,
		MimeType:   getStringFromMap(metadata, "mime_type"),
		Size:       fileInfo.Length,
		UploadedBy: getStringFromMap(metadata, "uploaded_by"),
		UploadedAt: fileInfo.UploadDate,
	}
	return stream, meta, nil
}

func (ms *MediaStorage) Delete(ctx context.Context, fileID string) error {
	objectID, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return fmt.Errorf("invalid file ID: %w", media.ErrNotFound)
	}
	return ms.gridFS.Delete(objectID)
}

func getStringFromMap(m bson.M, key string) string {
	if m == nil {
		return ""
	}
	if val, ok := m[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
