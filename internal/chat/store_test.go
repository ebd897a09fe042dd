package chat_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursechat/internal/chat"
	"coursechat/internal/common"
)

var testBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// histMsg builds a history message; higher seq means newer.
func histMsg(id string, seq int) *chat.ChatMessage {
	return &chat.ChatMessage{
		ID:         id,
		CourseID:   "course-1",
		SenderID:   "user-1",
		SenderName: "Alice",
		SenderRole: common.RoleStudent,
		Type:       common.MessageTypeText,
		Status:     common.StatusSent,
		CreatedAt:  testBase.Add(time.Duration(seq) * time.Minute),
		Payload:    &chat.TextPayload{Content: "msg " + id},
	}
}

// newestFirst builds ids first..last (descending seq), newest first.
func newestFirst(first, last int) []*chat.ChatMessage {
	var out []*chat.ChatMessage
	for i := first; i >= last; i-- {
		out = append(out, histMsg(fmt.Sprintf("m%d", i), i))
	}
	return out
}

// olderBatch builds n messages strictly older than seq 0, newest first.
func olderBatch(n int) []*chat.ChatMessage {
	var out []*chat.ChatMessage
	for i := 1; i <= n; i++ {
		out = append(out, histMsg(fmt.Sprintf("o%d", i), -i))
	}
	return out
}

func assertDescending(t *testing.T, msgs []*chat.ChatMessage) {
	t.Helper()
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].CreatedAt.After(msgs[i-1].CreatedAt),
			"message %d (%s) is newer than message %d (%s)", i, msgs[i].ID, i-1, msgs[i-1].ID)
	}
}

func TestStore_Initialize(t *testing.T) {
	store := chat.NewStore("course-1")
	assert.False(t, store.Initialized())

	store.Initialize(newestFirst(20, 1))

	assert.True(t, store.Initialized())
	assert.Equal(t, 20, store.Len())
	assert.Equal(t, "m20", store.Messages()[0].ID)
	assert.Equal(t, "m1", store.Oldest().ID)
}

func TestStore_Deduplication(t *testing.T) {
	tests := []struct {
		name string
		ops  func(s *chat.Store)
		want int
	}{
		{
			name: "duplicate ids within initial batch",
			ops: func(s *chat.Store) {
				s.Initialize([]*chat.ChatMessage{histMsg("m1", 1), histMsg("m1", 1), histMsg("m2", 2)})
			},
			want: 2,
		},
		{
			name: "older page overlapping loaded history",
			ops: func(s *chat.Store) {
				s.Initialize(newestFirst(10, 6))
				s.AppendOlder(newestFirst(7, 1)) // m7, m6 already loaded
			},
			want: 10,
		},
		{
			name: "live message repeated by the broker",
			ops: func(s *chat.Store) {
				s.Initialize(newestFirst(5, 1))
				s.PrependNew(histMsg("m6", 6))
				s.PrependNew(histMsg("m6", 6))
			},
			want: 6,
		},
		{
			name: "live echo of a history message",
			ops: func(s *chat.Store) {
				s.Initialize(newestFirst(5, 1))
				s.PrependNew(histMsg("m5", 5))
			},
			want: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := chat.NewStore("course-1")
			tt.ops(store)

			msgs := store.Messages()
			assert.Len(t, msgs, tt.want)

			seen := make(map[string]bool)
			for _, m := range msgs {
				assert.False(t, seen[m.ID], "id %s appears twice", m.ID)
				seen[m.ID] = true
			}
		})
	}
}

func TestStore_OrderInvariant(t *testing.T) {
	store := chat.NewStore("course-1")
	store.Initialize(newestFirst(20, 11))
	store.PrependNew(histMsg("m21", 21))
	store.AppendOlder(newestFirst(10, 1))
	store.PrependNew(histMsg("m22", 22))

	msgs := store.Messages()
	require.Len(t, msgs, 22)
	assert.Equal(t, "m22", msgs[0].ID)
	assert.Equal(t, "m1", msgs[len(msgs)-1].ID)
	assertDescending(t, msgs)
}

func TestStore_AppendOlderReturnsAddedCount(t *testing.T) {
	store := chat.NewStore("course-1")
	store.Initialize(newestFirst(10, 6))

	added := store.AppendOlder(newestFirst(6, 2))
	assert.Equal(t, 4, added, "m6 is a duplicate, only m5..m2 are new")

	added = store.AppendOlder(newestFirst(6, 2))
	assert.Equal(t, 0, added)
}

func TestStore_PendingReconciliation(t *testing.T) {
	pending := func() *chat.ChatMessage {
		return &chat.ChatMessage{
			TempID:    "t1",
			CourseID:  "course-1",
			Type:      common.MessageTypeText,
			Status:    common.StatusPending,
			CreatedAt: testBase,
			Payload:   &chat.TextPayload{Content: "hello"},
		}
	}
	confirmed := func() *chat.ChatMessage {
		m := histMsg("m101", 101)
		m.TempID = "t1"
		return m
	}

	t.Run("ack before live push", func(t *testing.T) {
		store := chat.NewStore("course-1")
		store.PrependNew(pending())

		ok := store.UpdateByTempID("t1", chat.Patch{ID: "m101", Status: common.StatusSent})
		require.True(t, ok)
		store.PrependNew(confirmed()) // late live copy, must not duplicate

		msgs := store.Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, "m101", msgs[0].ID)
		assert.Equal(t, common.StatusSent, msgs[0].Status)
	})

	t.Run("live push before ack", func(t *testing.T) {
		store := chat.NewStore("course-1")
		store.PrependNew(pending())

		store.PrependNew(confirmed())
		// The REST ack lands afterwards; first write already won.
		store.UpdateByTempID("t1", chat.Patch{ID: "m101", Status: common.StatusSent})

		msgs := store.Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, "m101", msgs[0].ID)
		assert.Equal(t, common.StatusSent, msgs[0].Status)
	})
}

func TestStore_StatusNeverMovesBackward(t *testing.T) {
	store := chat.NewStore("course-1")
	store.PrependNew(&chat.ChatMessage{TempID: "t1", Status: common.StatusPending, CreatedAt: testBase})

	store.UpdateByTempID("t1", chat.Patch{ID: "m1", Status: common.StatusSent})
	store.UpdateByTempID("t1", chat.Patch{Status: common.StatusPending})

	assert.Equal(t, common.StatusSent, store.GetByTempID("t1").Status)
}

func TestStore_UpdateByID(t *testing.T) {
	store := chat.NewStore("course-1")
	store.Initialize(newestFirst(3, 1))

	ok := store.UpdateByID("m2", chat.Patch{Payload: &chat.TextPayload{Content: "edited"}})
	require.True(t, ok)
	assert.Equal(t, "edited", store.Messages()[1].Payload.(*chat.TextPayload).Content)

	assert.False(t, store.UpdateByID("missing", chat.Patch{}))
}

func TestStore_Reset(t *testing.T) {
	store := chat.NewStore("course-1")
	store.Initialize(newestFirst(5, 1))
	require.True(t, store.Initialized())

	store.Reset()

	assert.False(t, store.Initialized())
	assert.Equal(t, 0, store.Len())
	assert.Nil(t, store.Oldest())

	// The same ids are accepted again after a reset.
	store.Initialize(newestFirst(5, 1))
	assert.Equal(t, 5, store.Len())
}
