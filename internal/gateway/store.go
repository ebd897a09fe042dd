package gateway

import (
	"context"
	"sort"
	"sync"

	"coursechat/internal/dbmysql"
)

// MessageStore is the persistence seam of the gateway. The MySQL
// implementation lives in dbmysql; memoryStore serves development mode.
type MessageStore interface {
	Save(ctx context.Context, msg *dbmysql.Message) error
	ListBefore(ctx context.Context, courseID string, limit int, beforeID string) ([]*dbmysql.Message, error)
}

type memoryStore struct {
	mu     sync.RWMutex
	nextID uint
	byRoom map[string][]*dbmysql.Message
}

func NewMemoryStore() MessageStore {
	return &memoryStore{byRoom: make(map[string][]*dbmysql.Message)}
}

func (ms *memoryStore) Save(ctx context.Context, msg *dbmysql.Message) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.nextID++
	msg.ID = ms.nextID
	ms.byRoom[msg.CourseID] = append(ms.byRoom[msg.CourseID], msg)
	return nil
}

func (ms *memoryStore) ListBefore(ctx context.Context, courseID string, limit int, beforeID string) ([]*dbmysql.Message, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	all := ms.byRoom[courseID]
	newest := make([]*dbmysql.Message, len(all))
	copy(newest, all)
	sort.SliceStable(newest, func(i, j int) bool {
		if !newest[i].CreatedAt.Equal(newest[j].CreatedAt) {
			return newest[i].CreatedAt.After(newest[j].CreatedAt)
		}
		return newest[i].ID > newest[j].ID
	})

	start := 0
	if beforeID != "" {
		found := false
		for i, m := range newest {
			if m.MessageID == beforeID {
				start = i + 1
				found = true
				break
			}
		}
		if !found {
			return nil, dbmysql.ErrCursorNotFound
		}
	}

	page := newest[start:]
	if len(page) > limit {
		page = page[:limit]
	}
	out := make([]*dbmysql.Message, len(page))
	copy(out, page)
	return out, nil
}
