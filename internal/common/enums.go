package common

import "strings"

// MessageType discriminates which payload a chat message carries
type MessageType string

const (
	MessageTypeText  MessageType = "TEXT"
	MessageTypeFile  MessageType = "FILE"
	MessageTypeVideo MessageType = "VIDEO"
	MessageTypeAudio MessageType = "AUDIO"
)

// String returns the string representation
func (mt MessageType) String() string {
	return string(mt)
}

// IsValid checks if the message type is valid
func (mt MessageType) IsValid() bool {
	switch mt {
	case MessageTypeText, MessageTypeFile, MessageTypeVideo, MessageTypeAudio:
		return true
	}
	return false
}

// DetectMessageType maps an upload's MIME type to the message type that
// should carry it
func DetectMessageType(mimeType string) MessageType {
	lowerMimeType := strings.ToLower(mimeType)
	if strings.HasPrefix(lowerMimeType, "video/") {
		return MessageTypeVideo
	}
	if strings.HasPrefix(lowerMimeType, "audio/") {
		return MessageTypeAudio
	}
	return MessageTypeFile // Default fallback
}

// MessageStatus is the delivery lifecycle of a locally created message.
// Messages fetched from history carry StatusSent implicitly.
type MessageStatus string

const (
	StatusPending MessageStatus = "PENDING"
	StatusSent    MessageStatus = "SENT"
	StatusFailed  MessageStatus = "FAILED"
)

func (ms MessageStatus) String() string {
	return string(ms)
}

func (ms MessageStatus) IsValid() bool {
	return ms == StatusPending || ms == StatusSent || ms == StatusFailed
}

// SenderRole identifies the author's role inside a course room
type SenderRole string

const (
	RoleStudent    SenderRole = "STUDENT"
	RoleInstructor SenderRole = "INSTRUCTOR"
)

func (sr SenderRole) String() string {
	return string(sr)
}

func (sr SenderRole) IsValid() bool {
	return sr == RoleStudent || sr == RoleInstructor
}
