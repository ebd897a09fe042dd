package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage keeps attachments in process memory. It backs the gateway
// in development mode and the test suites; production uses GridFS.
type MemoryStorage struct {
	mu    sync.RWMutex
	files map[string]*memoryFile
}

type memoryFile struct {
	meta File
	data []byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{files: make(map[string]*memoryFile)}
}

func (ms *MemoryStorage) Save(ctx context.Context, meta File, content io.Reader) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}

	meta.ID = uuid.NewString()
	meta.Size = int64(len(data))
	if meta.UploadedAt.IsZero() {
		meta.UploadedAt = time.Now().UTC()
	}

	ms.mu.Lock()
	ms.files[meta.ID] = &memoryFile{meta: meta, data: data}
	ms.mu.Unlock()
	return meta.ID, nil
}

func (ms *MemoryStorage) Open(ctx context.Context, fileID string) (io.ReadCloser, *File, error) {
	ms.mu.RLock()
	f, ok := ms.files[fileID]
	ms.mu.RUnlock()
	if !ok {
		return nil, nil, ErrNotFound
	}
	meta := f.meta
	return io.NopCloser(bytes.NewReader(f.data)), &meta, nil
}

func (ms *MemoryStorage) Delete(ctx context.Context, fileID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, ok := ms.files[fileID]; !ok {
		return ErrNotFound
	}
	delete(ms.files, fileID)
	return nil
}
