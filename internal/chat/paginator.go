package chat

import (
	"context"
	"sync"
)

// DefaultPageSize is the history page size used when none is configured.
const DefaultPageSize = 20

// HistoryFetcher fetches one page of a room's messages, newest first. An
// empty beforeID means "most recent page"; otherwise the returned batch is
// strictly older than the message with that ID. The returned page length is
// at most size.
type HistoryFetcher interface {
	FetchMessages(ctx context.Context, courseID string, size int, beforeID string) ([]*ChatMessage, error)
}

// Paginator fetches older pages of a room's history using the oldest loaded
// message ID as a backward cursor. At most one fetch is in flight per room;
// a batch shorter than the page size marks history as fully loaded.
type Paginator struct {
	mu       sync.Mutex
	store    *Store
	fetcher  HistoryFetcher
	courseID string
	pageSize int
	hasNext  bool
	fetching bool
}

func NewPaginator(store *Store, fetcher HistoryFetcher, courseID string, pageSize int) *Paginator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Paginator{
		store:    store,
		fetcher:  fetcher,
		courseID: courseID,
		pageSize: pageSize,
		hasNext:  true,
	}
}

// LoadInitial fetches the most recent page exactly once per room
// activation. While the store is initialized further calls are no-ops; a
// fetch error leaves the store uninitialized so a manual retry re-attempts
// the same request.
func (p *Paginator) LoadInitial(ctx context.Context) error {
	if p.store.Initialized() {
		return nil
	}
	if !p.begin() {
		return nil
	}
	defer p.end()

	batch, err := p.fetcher.FetchMessages(ctx, p.courseID, p.pageSize, "")
	if err != nil {
		return err
	}

	p.store.Initialize(batch)
	p.finishPage(len(batch))
	return nil
}

// FetchNextPage fetches the page preceding the oldest loaded message. It is
// a no-op when history is exhausted, a fetch is already in flight, or the
// store is empty (nothing to anchor the cursor to). Errors are returned to
// the caller without flipping hasNext, so the same cursor can be retried.
func (p *Paginator) FetchNextPage(ctx context.Context) error {
	p.mu.Lock()
	if !p.hasNext || p.fetching {
		p.mu.Unlock()
		return nil
	}
	oldest := p.store.Oldest()
	if oldest == nil || oldest.ID == "" {
		p.mu.Unlock()
		return nil
	}
	cursor := oldest.ID
	p.fetching = true
	p.mu.Unlock()
	defer p.end()

	batch, err := p.fetcher.FetchMessages(ctx, p.courseID, p.pageSize, cursor)
	if err != nil {
		return err
	}

	// Exhaustion is decided on the raw batch length, not on how many
	// survived deduplication.
	p.store.AppendOlder(batch)
	p.finishPage(len(batch))
	return nil
}

func (p *Paginator) HasNextPage() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasNext
}

func (p *Paginator) IsFetching() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetching
}

func (p *Paginator) PageSize() int {
	return p.pageSize
}

func (p *Paginator) begin() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fetching {
		return false
	}
	p.fetching = true
	return true
}

func (p *Paginator) end() {
	p.mu.Lock()
	p.fetching = false
	p.mu.Unlock()
}

func (p *Paginator) finishPage(batchLen int) {
	p.mu.Lock()
	if batchLen < p.pageSize {
		p.hasNext = false
	}
	p.mu.Unlock()
}
