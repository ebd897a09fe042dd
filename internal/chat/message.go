package chat

import (
	"time"

	"coursechat/internal/common"
)

// Payload is the type-specific content of a chat message. Exactly one
// concrete payload matches the message's Type, which keeps impossible
// combinations (a TEXT message with a video duration) unrepresentable.
type Payload interface {
	messagePayload()
}

type TextPayload struct {
	Content string
}

func (*TextPayload) messagePayload() {}

type FilePayload struct {
	URL      string
	Filename string
	MimeType string
	Size     int64
}

func (*FilePayload) messagePayload() {}

type VideoPayload struct {
	URL          string
	Filename     string
	MimeType     string
	Size         int64
	Duration     time.Duration
	Resolution   string
	ThumbnailURL string
}

func (*VideoPayload) messagePayload() {}

type AudioPayload struct {
	URL      string
	Filename string
	MimeType string
	Size     int64
	Duration time.Duration
}

func (*AudioPayload) messagePayload() {}

// ChatMessage is one entry in a course room's message list. Messages from
// history pages or the live feed carry a server-assigned ID; locally created
// messages carry only a client-generated TempID until the backend confirms
// them, at which point they gain an ID and transition PENDING -> SENT.
type ChatMessage struct {
	ID         string
	TempID     string
	CourseID   string
	SenderID   string
	SenderName string
	SenderRole common.SenderRole
	Type       common.MessageType
	Status     common.MessageStatus
	CreatedAt  time.Time
	Payload    Payload
}

// Key returns the identity the store dedupes on: the server ID once
// assigned, the TempID before that.
func (m *ChatMessage) Key() string {
	if m.ID != "" {
		return m.ID
	}
	return m.TempID
}

// FileURL returns the durable URL of an uploaded attachment, empty for
// text messages or uploads still in flight.
func (m *ChatMessage) FileURL() string {
	switch p := m.Payload.(type) {
	case *FilePayload:
		return p.URL
	case *VideoPayload:
		return p.URL
	case *AudioPayload:
		return p.URL
	}
	return ""
}

// Patch is a partial update applied to a stored message. Zero-valued
// fields are left unchanged.
type Patch struct {
	ID        string
	Status    common.MessageStatus
	CreatedAt time.Time
	Payload   Payload
}
