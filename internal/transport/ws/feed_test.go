package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursechat/internal/chat"
	"coursechat/internal/common"
	"coursechat/internal/transport/wire"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

// feedServer upgrades connections on /ws/courses/{courseId} and lets the
// test push frames to whoever is connected.
type feedServer struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns []*websocket.Conn
	paths []string
	query []string

	*httptest.Server
}

func newFeedServer(t *testing.T) *feedServer {
	t.Helper()
	fs := &feedServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := fs.upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		fs.mu.Lock()
		fs.conns = append(fs.conns, conn)
		fs.paths = append(fs.paths, r.URL.Path)
		fs.query = append(fs.query, r.URL.Query().Get("token"))
		fs.mu.Unlock()
	}))
	t.Cleanup(func() {
		fs.mu.Lock()
		for _, c := range fs.conns {
			c.Close()
		}
		fs.mu.Unlock()
		fs.Close()
	})
	return fs
}

func (fs *feedServer) wsURL() string {
	return "ws" + strings.TrimPrefix(fs.URL, "http")
}

func (fs *feedServer) push(t *testing.T, msg wire.Message) {
	t.Helper()
	fs.mu.Lock()
	defer fs.mu.Unlock()
	require.NotEmpty(t, fs.conns, "no client connected")
	require.NoError(t, fs.conns[len(fs.conns)-1].WriteJSON(msg))
}

func (fs *feedServer) connCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.conns)
}

func (fs *feedServer) dropCurrent() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.conns[len(fs.conns)-1].Close()
}

func testWireMessage(id string) wire.Message {
	return wire.Message{
		ID:         id,
		CourseID:   "go-101",
		SenderID:   "u2",
		SenderName: "Bob",
		SenderRole: common.RoleInstructor.String(),
		Type:       common.MessageTypeText.String(),
		Status:     common.StatusSent.String(),
		CreatedAt:  time.Now().UTC(),
		Content:    "hello",
	}
}

func TestFeedDeliversMessages(t *testing.T) {
	srv := newFeedServer(t)
	feed := NewFeed(srv.wsURL(), staticToken("tok-123"))

	var mu sync.Mutex
	var got []*chat.ChatMessage
	stop, err := feed.Subscribe(context.Background(), "go-101", func(m *chat.ChatMessage) {
		mu.Lock()
		got = append(got, m)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer stop()

	srv.push(t, testWireMessage("m1"))
	srv.push(t, testWireMessage("m2"))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "go-101", got[0].CourseID)
	assert.Equal(t, common.StatusSent, got[0].Status)

	srv.mu.Lock()
	assert.Equal(t, "/ws/courses/go-101", srv.paths[0])
	assert.Equal(t, "tok-123", srv.query[0])
	srv.mu.Unlock()
}

func TestFeedStopEndsDelivery(t *testing.T) {
	srv := newFeedServer(t)
	feed := NewFeed(srv.wsURL(), staticToken("tok"))

	delivered := make(chan struct{}, 8)
	stop, err := feed.Subscribe(context.Background(), "go-101", func(*chat.ChatMessage) {
		delivered <- struct{}{}
	})
	require.NoError(t, err)

	stop()
	stop() // idempotent

	// A frame written after stop must not reach the handler. The write may
	// error once the server notices the closed peer; either way nothing
	// arrives.
	srv.mu.Lock()
	srv.conns[0].WriteJSON(testWireMessage("m1"))
	srv.mu.Unlock()

	select {
	case <-delivered:
		t.Fatal("handler called after stop")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestFeedReconnectsAfterDrop(t *testing.T) {
	srv := newFeedServer(t)
	feed := NewFeed(srv.wsURL(), staticToken("tok"))

	delivered := make(chan string, 8)
	stop, err := feed.Subscribe(context.Background(), "go-101", func(m *chat.ChatMessage) {
		delivered <- m.ID
	})
	require.NoError(t, err)
	defer stop()

	srv.dropCurrent()

	assert.Eventually(t, func() bool {
		return srv.connCount() == 2
	}, 5*time.Second, 20*time.Millisecond, "feed should redial after the drop")

	srv.push(t, testWireMessage("after-reconnect"))
	select {
	case id := <-delivered:
		assert.Equal(t, "after-reconnect", id)
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery after reconnect")
	}
}
