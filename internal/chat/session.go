package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrNoRoom is returned by Session operations invoked before Join.
var ErrNoRoom = errors.New("no active room, join a course first")

// LiveFeed is the push channel delivering newly created room messages in
// real time. Subscribe returns a stop function releasing the subscription.
type LiveFeed interface {
	Subscribe(ctx context.Context, courseID string, handler func(*ChatMessage)) (func(), error)
}

// SessionConfig carries the per-view knobs of a chat session.
type SessionConfig struct {
	Profile         Profile
	PageSize        int
	ScrollThreshold float64
	// OnMessage, when set, is invoked after each live delivery for the
	// active room has been applied to the store, so a view can repaint.
	// Duplicates are already merged away by the time it reads the store.
	OnMessage func(*ChatMessage)
	// OnError, when set, receives failures of background work the view did
	// not call directly, such as a scroll-triggered history fetch.
	OnError func(error)
}

// Session is the room-scoped composition root behind one mounted chat view:
// it owns the message store, the history paginator, the outbox and the
// scroll monitor for the active course, and it guards all of them against
// stale data when the active room changes. State is private to the session;
// two views on the same room each hold their own copy, the canonical state
// lives server-side.
type Session struct {
	fetcher  HistoryFetcher
	sender   MessageSender
	uploader FileUploader
	feed     LiveFeed
	cfg      SessionConfig

	mu        sync.Mutex
	courseID  string
	gen       uint64
	store     *Store
	paginator *Paginator
	outbox    *Outbox
	monitor   *ScrollMonitor
	stopFeed  func()
}

func NewSession(fetcher HistoryFetcher, sender MessageSender, uploader FileUploader, feed LiveFeed, cfg SessionConfig) *Session {
	return &Session{
		fetcher:  fetcher,
		sender:   sender,
		uploader: uploader,
		feed:     feed,
		cfg:      cfg,
	}
}

// Join switches the session to a course room. All state of the previous
// room is dropped, the generation counter is bumped so late responses and
// deliveries tagged for the old room cannot leak in, the live feed is
// resubscribed and the initial history page is loaded.
func (s *Session) Join(ctx context.Context, courseID string) error {
	s.mu.Lock()
	s.leaveLocked()
	s.gen++
	gen := s.gen
	s.courseID = courseID

	store := NewStore(courseID)
	paginator := NewPaginator(store, s.fetcher, courseID, s.cfg.PageSize)
	s.store = store
	s.paginator = paginator
	s.outbox = NewOutbox(store, s.sender, s.uploader, courseID, s.cfg.Profile)
	s.monitor = NewScrollMonitor(
		func() bool {
			return s.isCurrent(gen) && store.Initialized() && paginator.HasNextPage() && !paginator.IsFetching()
		},
		func() {
			go func() {
				if err := paginator.FetchNextPage(context.Background()); err != nil && s.cfg.OnError != nil {
					s.cfg.OnError(err)
				}
			}()
		},
		s.cfg.ScrollThreshold,
	)
	s.mu.Unlock()

	if s.feed != nil {
		stop, err := s.feed.Subscribe(ctx, courseID, func(msg *ChatMessage) {
			s.handleLive(gen, courseID, msg)
		})
		if err != nil {
			return fmt.Errorf("subscribe to %s: %w", courseID, err)
		}
		s.mu.Lock()
		if s.gen != gen {
			// Room changed while we were subscribing.
			s.mu.Unlock()
			stop()
			return nil
		}
		s.stopFeed = stop
		s.mu.Unlock()
	}

	return paginator.LoadInitial(ctx)
}

// Leave unsubscribes from the live feed and clears all room state.
func (s *Session) Leave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaveLocked()
	s.gen++
	s.courseID = ""
	s.store = nil
	s.paginator = nil
	s.outbox = nil
	s.monitor = nil
}

// LoadOlder requests the next history page explicitly (the CLI's /older
// command; views normally go through OnScroll).
func (s *Session) LoadOlder(ctx context.Context) error {
	p := s.currentPaginator()
	if p == nil {
		return nil
	}
	return p.FetchNextPage(ctx)
}

// RetryInitial re-attempts a failed initial load of the active room.
func (s *Session) RetryInitial(ctx context.Context) error {
	p := s.currentPaginator()
	if p == nil {
		return nil
	}
	return p.LoadInitial(ctx)
}

// OnScroll feeds a viewport scroll offset to the active room's monitor.
func (s *Session) OnScroll(top float64) {
	s.mu.Lock()
	m := s.monitor
	s.mu.Unlock()
	if m != nil {
		m.OnScroll(top)
	}
}

// SetAutoScrolling forwards the self-inflicted-scroll flag to the monitor.
func (s *Session) SetAutoScrolling(on bool) {
	s.mu.Lock()
	m := s.monitor
	s.mu.Unlock()
	if m != nil {
		m.SetAutoScrolling(on)
	}
}

func (s *Session) SendText(ctx context.Context, text string) (*ChatMessage, error) {
	o := s.currentOutbox()
	if o == nil {
		return nil, ErrNoRoom
	}
	return o.SendText(ctx, text)
}

func (s *Session) SendFile(ctx context.Context, filename, mimeType string, content io.Reader, size int64) (*ChatMessage, error) {
	o := s.currentOutbox()
	if o == nil {
		return nil, ErrNoRoom
	}
	return o.SendFile(ctx, filename, mimeType, content, size)
}

func (s *Session) Retry(ctx context.Context, tempID string, content io.Reader) (*ChatMessage, error) {
	o := s.currentOutbox()
	if o == nil {
		return nil, ErrNoRoom
	}
	return o.Retry(ctx, tempID, content)
}

// Messages returns a newest-first snapshot of the active room.
func (s *Session) Messages() []*ChatMessage {
	s.mu.Lock()
	st := s.store
	s.mu.Unlock()
	if st == nil {
		return nil
	}
	return st.Messages()
}

func (s *Session) CourseID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.courseID
}

func (s *Session) HasNextPage() bool {
	p := s.currentPaginator()
	return p != nil && p.HasNextPage()
}

func (s *Session) IsFetching() bool {
	p := s.currentPaginator()
	return p != nil && p.IsFetching()
}

func (s *Session) Initialized() bool {
	s.mu.Lock()
	st := s.store
	s.mu.Unlock()
	return st != nil && st.Initialized()
}

// handleLive merges a live-push delivery, dropping anything from a stale
// subscription or a foreign room.
func (s *Session) handleLive(gen uint64, courseID string, msg *ChatMessage) {
	if msg == nil {
		return
	}
	if msg.CourseID != "" && msg.CourseID != courseID {
		return
	}

	s.mu.Lock()
	if s.gen != gen || s.store == nil {
		s.mu.Unlock()
		return
	}
	st := s.store
	s.mu.Unlock()

	st.PrependNew(msg)
	if s.cfg.OnMessage != nil {
		s.cfg.OnMessage(msg)
	}
}

func (s *Session) isCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

func (s *Session) currentPaginator() *Paginator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paginator
}

func (s *Session) currentOutbox() *Outbox {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outbox
}

// leaveLocked stops the live feed of the previous room. Callers hold s.mu.
func (s *Session) leaveLocked() {
	if s.stopFeed != nil {
		s.stopFeed()
		s.stopFeed = nil
	}
	if s.store != nil {
		s.store.Reset()
	}
}
