// Package wire holds the JSON shapes shared by the REST endpoints, the
// websocket feed and the gateway, and their conversions to the domain model.
package wire

import (
	"time"

	"coursechat/internal/chat"
	"coursechat/internal/common"
)

// Message is the flat transport shape of a chat message. Optional fields
// are populated according to Type; the domain side turns them back into a
// typed payload.
type Message struct {
	ID           string    `json:"id,omitempty"`
	TempID       string    `json:"tempId,omitempty"`
	CourseID     string    `json:"courseId"`
	SenderID     string    `json:"senderId"`
	SenderName   string    `json:"senderName"`
	SenderRole   string    `json:"senderRole"`
	Type         string    `json:"type"`
	Status       string    `json:"status,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	Content      string    `json:"content,omitempty"`
	FileURL      string    `json:"fileUrl,omitempty"`
	Filename     string    `json:"filename,omitempty"`
	FileSize     int64     `json:"fileSize,omitempty"`
	MimeType     string    `json:"mimeType,omitempty"`
	DurationMS   int64     `json:"durationMs,omitempty"`
	Resolution   string    `json:"resolution,omitempty"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
}

// MessagesPage is the fetch-messages response, newest first.
type MessagesPage struct {
	Messages []Message `json:"messages"`
}

// SendResponse acknowledges a send, correlated by tempId.
type SendResponse struct {
	TempID    string    `json:"tempId"`
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// UploadResponse returns the durable URL of a stored file.
type UploadResponse struct {
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// TokenPair is the login/refresh response.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// ErrorResponse is the uniform error body of the gateway.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FromChat flattens a domain message for transport.
func FromChat(m *chat.ChatMessage) Message {
	out := Message{
		ID:         m.ID,
		TempID:     m.TempID,
		CourseID:   m.CourseID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		SenderRole: m.SenderRole.String(),
		Type:       m.Type.String(),
		Status:     m.Status.String(),
		CreatedAt:  m.CreatedAt,
	}
	switch p := m.Payload.(type) {
	case *chat.TextPayload:
		out.Content = p.Content
	case *chat.FilePayload:
		out.FileURL = p.URL
		out.Filename = p.Filename
		out.MimeType = p.MimeType
		out.FileSize = p.Size
	case *chat.VideoPayload:
		out.FileURL = p.URL
		out.Filename = p.Filename
		out.MimeType = p.MimeType
		out.FileSize = p.Size
		out.DurationMS = p.Duration.Milliseconds()
		out.Resolution = p.Resolution
		out.ThumbnailURL = p.ThumbnailURL
	case *chat.AudioPayload:
		out.FileURL = p.URL
		out.Filename = p.Filename
		out.MimeType = p.MimeType
		out.FileSize = p.Size
		out.DurationMS = p.Duration.Milliseconds()
	}
	return out
}

// ToChat rebuilds the domain message, selecting the payload variant from
// the wire type. Unknown types fall back to a text payload so a newer
// gateway cannot wedge an older client.
func ToChat(m Message) *chat.ChatMessage {
	out := &chat.ChatMessage{
		ID:         m.ID,
		TempID:     m.TempID,
		CourseID:   m.CourseID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		SenderRole: common.SenderRole(m.SenderRole),
		Type:       common.MessageType(m.Type),
		Status:     common.MessageStatus(m.Status),
		CreatedAt:  m.CreatedAt,
	}
	if out.Status == "" {
		// History and push messages are confirmed by definition.
		out.Status = common.StatusSent
	}
	switch out.Type {
	case common.MessageTypeFile:
		out.Payload = &chat.FilePayload{
			URL:      m.FileURL,
			Filename: m.Filename,
			MimeType: m.MimeType,
			Size:     m.FileSize,
		}
	case common.MessageTypeVideo:
		out.Payload = &chat.VideoPayload{
			URL:          m.FileURL,
			Filename:     m.Filename,
			MimeType:     m.MimeType,
			Size:         m.FileSize,
			Duration:     time.Duration(m.DurationMS) * time.Millisecond,
			Resolution:   m.Resolution,
			ThumbnailURL: m.ThumbnailURL,
		}
	case common.MessageTypeAudio:
		out.Payload = &chat.AudioPayload{
			URL:      m.FileURL,
			Filename: m.Filename,
			MimeType: m.MimeType,
			Size:     m.FileSize,
			Duration: time.Duration(m.DurationMS) * time.Millisecond,
		}
	default:
		out.Type = common.MessageTypeText
		out.Payload = &chat.TextPayload{Content: m.Content}
	}
	return out
}

// ToChatSlice converts a page of wire messages preserving order.
func ToChatSlice(msgs []Message) []*chat.ChatMessage {
	out := make([]*chat.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ToChat(m))
	}
	return out
}
