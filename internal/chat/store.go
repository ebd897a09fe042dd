package chat

import (
	"sync"

	"coursechat/internal/common"
)

// Store holds the in-memory message list for one course room, newest first.
// It is the single owner of that list: the paginator appends older pages to
// the tail, the live feed prepends at the head, and the outbox patches
// pending entries in place. Every mutation dedupes by server ID so any
// interleaving of history fetches and live deliveries leaves each message
// in the list exactly once.
type Store struct {
	mu          sync.RWMutex
	courseID    string
	messages    []*ChatMessage // index 0 is the newest loaded message
	byID        map[string]*ChatMessage
	byTempID    map[string]*ChatMessage
	initialized bool
}

func NewStore(courseID string) *Store {
	return &Store{
		courseID: courseID,
		byID:     make(map[string]*ChatMessage),
		byTempID: make(map[string]*ChatMessage),
	}
}

func (s *Store) CourseID() string {
	return s.courseID
}

// Initialize replaces the store's content with a freshly fetched
// newest-first page and marks the store initialized so further initial
// fetches are skipped until Reset.
func (s *Store) Initialize(messages []*ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = s.messages[:0]
	s.byID = make(map[string]*ChatMessage)
	s.byTempID = make(map[string]*ChatMessage)
	for _, msg := range messages {
		if s.known(msg) {
			continue
		}
		s.index(msg)
		s.messages = append(s.messages, msg)
	}
	s.initialized = true
}

// AppendOlder merges a batch of messages strictly older than the current
// oldest entry, skipping any already present, and returns how many were
// actually added. Callers use the count to decide whether more history
// remains.
func (s *Store) AppendOlder(messages []*ChatMessage) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, msg := range messages {
		if s.known(msg) {
			continue
		}
		s.index(msg)
		s.messages = append(s.messages, msg)
		added++
	}
	return added
}

// PrependNew inserts a live-arrived message at the head of the list. A
// duplicate server ID is dropped silently. A message carrying the TempID of
// a pending entry reconciles that entry in place instead of inserting a
// second row, so the REST confirmation and the live-push copy of the same
// logical message can arrive in either order.
func (s *Store) PrependNew(msg *ChatMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID != "" {
		if _, ok := s.byID[msg.ID]; ok {
			return false
		}
	}
	if msg.TempID != "" {
		if existing, ok := s.byTempID[msg.TempID]; ok {
			s.reconcile(existing, msg)
			return false
		}
	}

	s.index(msg)
	s.messages = append([]*ChatMessage{msg}, s.messages...)
	return true
}

// UpdateByID merges a partial update into the entry with the given server ID.
func (s *Store) UpdateByID(id string, patch Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.byID[id]
	if !ok {
		return false
	}
	return s.apply(msg, patch)
}

// UpdateByTempID merges a partial update into the entry with the given
// client-generated TempID. Used to confirm or fail optimistic messages.
func (s *Store) UpdateByTempID(tempID string, patch Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.byTempID[tempID]
	if !ok {
		return false
	}
	return s.apply(msg, patch)
}

// Reset clears all messages and the initialized flag. Invoked on room change.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
	s.byID = make(map[string]*ChatMessage)
	s.byTempID = make(map[string]*ChatMessage)
	s.initialized = false
}

// Messages returns a snapshot of the list, newest first.
func (s *Store) Messages() []*ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Oldest returns the oldest currently loaded message, the pagination anchor.
func (s *Store) Oldest() *ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.messages) == 0 {
		return nil
	}
	return s.messages[len(s.messages)-1]
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// GetByTempID returns the entry for a TempID, nil if unknown.
func (s *Store) GetByTempID(tempID string) *ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byTempID[tempID]
}

// known reports whether the message's identity is already present.
// Callers must hold the lock.
func (s *Store) known(msg *ChatMessage) bool {
	if msg.ID != "" {
		if _, ok := s.byID[msg.ID]; ok {
			return true
		}
	}
	if msg.TempID != "" {
		if _, ok := s.byTempID[msg.TempID]; ok {
			return true
		}
	}
	return false
}

func (s *Store) index(msg *ChatMessage) {
	if msg.ID != "" {
		s.byID[msg.ID] = msg
	}
	if msg.TempID != "" {
		s.byTempID[msg.TempID] = msg
	}
}

// reconcile upgrades a pending entry with its server-confirmed counterpart.
// First write wins: once the entry is SENT, later copies are no-ops.
func (s *Store) reconcile(existing, confirmed *ChatMessage) {
	if existing.Status == common.StatusSent {
		return
	}
	patch := Patch{
		ID:        confirmed.ID,
		Status:    confirmed.Status,
		CreatedAt: confirmed.CreatedAt,
		Payload:   confirmed.Payload,
	}
	if patch.Status == "" {
		patch.Status = common.StatusSent
	}
	s.apply(existing, patch)
}

// apply merges a patch into an entry. A message that has reached SENT never
// moves backward to PENDING. Callers must hold the lock.
func (s *Store) apply(msg *ChatMessage, patch Patch) bool {
	if patch.ID != "" && msg.ID == "" {
		msg.ID = patch.ID
		s.byID[msg.ID] = msg
	}
	if patch.Status != "" {
		if !(msg.Status == common.StatusSent && patch.Status == common.StatusPending) {
			msg.Status = patch.Status
		}
	}
	if !patch.CreatedAt.IsZero() {
		msg.CreatedAt = patch.CreatedAt
	}
	if patch.Payload != nil {
		msg.Payload = patch.Payload
	}
	return true
}
