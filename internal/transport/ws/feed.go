// Package ws implements the live-push channel: a websocket subscription to
// one course room, delivering new messages as they are created.
package ws

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"coursechat/internal/chat"
	"coursechat/internal/transport/wire"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = 30 * time.Second
)

// TokenSource supplies the bearer token attached to the websocket handshake.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Feed dials the gateway's per-room websocket endpoint. It implements
// chat.LiveFeed. A dropped connection is redialed with exponential backoff
// until the subscription is stopped; deduplication in the store absorbs any
// messages replayed around a reconnect.
type Feed struct {
	baseURL string
	tokens  TokenSource
	dialer  *websocket.Dialer
}

func NewFeed(baseURL string, tokens TokenSource) *Feed {
	return &Feed{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		dialer:  websocket.DefaultDialer,
	}
}

// Subscribe connects to the room's topic and starts delivering messages to
// handler from a background goroutine. The returned stop function closes
// the connection and ends delivery; it is safe to call more than once.
func (f *Feed) Subscribe(ctx context.Context, courseID string, handler func(*chat.ChatMessage)) (func(), error) {
	conn, err := f.dial(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", courseID, err)
	}

	sub := &subscription{
		feed:     f,
		courseID: courseID,
		conn:     conn,
		done:     make(chan struct{}),
	}
	go sub.readLoop(handler)
	go sub.pingLoop()
	return sub.stop, nil
}

func (f *Feed) dial(ctx context.Context, courseID string) (*websocket.Conn, error) {
	endpoint := fmt.Sprintf("%s/ws/courses/%s", f.baseURL, url.PathEscape(courseID))
	if f.tokens != nil {
		token, err := f.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		endpoint += "?token=" + url.QueryEscape(token)
	}

	conn, _, err := f.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	return conn, nil
}

type subscription struct {
	feed     *Feed
	courseID string

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	done   chan struct{}
}

func (s *subscription) readLoop(handler func(*chat.ChatMessage)) {
	for {
		conn := s.current()
		if conn == nil {
			return
		}

		var msg wire.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if s.stopped() {
				return
			}
			log.Printf("feed %s: read failed, reconnecting: %v", s.courseID, err)
			if !s.reconnect() {
				return
			}
			continue
		}
		handler(wire.ToChat(msg))
	}
}

// reconnect redials with backoff until it succeeds or the subscription is
// stopped. Returns false when delivery should end.
func (s *subscription) reconnect() bool {
	delay := reconnectBaseDelay
	for {
		select {
		case <-s.done:
			return false
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		conn, err := s.feed.dial(ctx, s.courseID)
		cancel()
		if err == nil {
			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				conn.Close()
				return false
			}
			s.conn = conn
			s.mu.Unlock()
			return true
		}

		log.Printf("feed %s: redial failed: %v", s.courseID, err)
		delay *= 2
		if delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}
	}
}

func (s *subscription) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			conn := s.current()
			if conn == nil {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil && s.stopped() {
				return
			}
		}
	}
}

func (s *subscription) current() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return s.conn
}

func (s *subscription) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *subscription) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	if s.conn != nil {
		s.conn.Close()
	}
}
