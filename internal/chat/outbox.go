package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"coursechat/internal/common"
)

// SendAck is the backend's acknowledgment of a sent message, correlated to
// the optimistic entry by TempID.
type SendAck struct {
	TempID    string
	ID        string
	Status    common.MessageStatus
	CreatedAt time.Time
}

// MessageSender delivers a message to the backend.
type MessageSender interface {
	SendChatMessage(ctx context.Context, msg *ChatMessage) (SendAck, error)
}

// FileUploader stores a binary attachment and returns its durable URL.
// Uploads happen before the FILE/VIDEO/AUDIO message itself is sent.
type FileUploader interface {
	UploadFile(ctx context.Context, courseID, filename, mimeType string, content io.Reader, size int64) (string, error)
}

// Profile is the local user's identity stamped onto outgoing messages.
type Profile struct {
	UserID   string
	UserName string
	Role     common.SenderRole
}

var (
	ErrNotRetryable = errors.New("message is not in a failed state")
	ErrNoUploader   = errors.New("no file uploader configured")
)

// Outbox creates optimistic PENDING entries for locally originated messages
// and reconciles or fails them once the backend responds. Failed messages
// stay in the store so the UI can offer a retry; they are never dropped.
type Outbox struct {
	store    *Store
	sender   MessageSender
	uploader FileUploader
	courseID string
	profile  Profile
}

func NewOutbox(store *Store, sender MessageSender, uploader FileUploader, courseID string, profile Profile) *Outbox {
	return &Outbox{
		store:    store,
		sender:   sender,
		uploader: uploader,
		courseID: courseID,
		profile:  profile,
	}
}

// SendText inserts a PENDING text message immediately and delivers it. The
// returned message is the store's live entry; on error its status is FAILED.
func (o *Outbox) SendText(ctx context.Context, text string) (*ChatMessage, error) {
	if err := common.ValidateMessageContent(text); err != nil {
		return nil, err
	}

	msg := o.newPending(common.MessageTypeText, &TextPayload{Content: text})
	o.store.PrependNew(msg)
	return o.deliver(ctx, msg)
}

// SendFile inserts a PENDING attachment message immediately, uploads the
// file, then delivers the message carrying the upload's URL. An upload or
// send failure marks the entry FAILED; a URL obtained before a send failure
// is kept on the entry so a retry does not upload twice.
func (o *Outbox) SendFile(ctx context.Context, filename, mimeType string, content io.Reader, size int64) (*ChatMessage, error) {
	if o.uploader == nil {
		return nil, ErrNoUploader
	}

	msgType := common.DetectMessageType(mimeType)
	msg := o.newPending(msgType, attachmentPayload(msgType, "", filename, mimeType, size))
	o.store.PrependNew(msg)

	url, err := o.uploader.UploadFile(ctx, o.courseID, filename, mimeType, content, size)
	if err != nil {
		o.store.UpdateByTempID(msg.TempID, Patch{Status: common.StatusFailed})
		return msg, fmt.Errorf("upload %s: %w", filename, err)
	}
	o.store.UpdateByTempID(msg.TempID, Patch{
		Payload: attachmentPayload(msgType, url, filename, mimeType, size),
	})

	return o.deliver(ctx, msg)
}

// Retry re-delivers a FAILED message. If the attachment was uploaded before
// the original send failed its URL is reused; if the upload itself failed
// the caller must supply the file content again.
func (o *Outbox) Retry(ctx context.Context, tempID string, content io.Reader) (*ChatMessage, error) {
	msg := o.store.GetByTempID(tempID)
	if msg == nil {
		return nil, fmt.Errorf("unknown message %q", tempID)
	}
	if msg.Status != common.StatusFailed {
		return msg, ErrNotRetryable
	}

	o.store.UpdateByTempID(tempID, Patch{Status: common.StatusPending})

	if msg.Type != common.MessageTypeText && msg.FileURL() == "" {
		if o.uploader == nil {
			return nil, ErrNoUploader
		}
		if content == nil {
			o.store.UpdateByTempID(tempID, Patch{Status: common.StatusFailed})
			return msg, errors.New("attachment was never uploaded, file content required")
		}
		filename, mimeType, size := attachmentMeta(msg)
		url, err := o.uploader.UploadFile(ctx, o.courseID, filename, mimeType, content, size)
		if err != nil {
			o.store.UpdateByTempID(tempID, Patch{Status: common.StatusFailed})
			return msg, fmt.Errorf("upload %s: %w", filename, err)
		}
		o.store.UpdateByTempID(tempID, Patch{
			Payload: attachmentPayload(msg.Type, url, filename, mimeType, size),
		})
	}

	return o.deliver(ctx, msg)
}

func (o *Outbox) newPending(msgType common.MessageType, payload Payload) *ChatMessage {
	return &ChatMessage{
		TempID:     uuid.NewString(),
		CourseID:   o.courseID,
		SenderID:   o.profile.UserID,
		SenderName: o.profile.UserName,
		SenderRole: o.profile.Role,
		Type:       msgType,
		Status:     common.StatusPending,
		CreatedAt:  time.Now().UTC(),
		Payload:    payload,
	}
}

func (o *Outbox) deliver(ctx context.Context, msg *ChatMessage) (*ChatMessage, error) {
	ack, err := o.sender.SendChatMessage(ctx, msg)
	if err != nil {
		o.store.UpdateByTempID(msg.TempID, Patch{Status: common.StatusFailed})
		return msg, fmt.Errorf("send message: %w", err)
	}

	status := ack.Status
	if status == "" {
		status = common.StatusSent
	}
	// No-op if the live feed already reconciled this TempID.
	o.store.UpdateByTempID(msg.TempID, Patch{
		ID:        ack.ID,
		Status:    status,
		CreatedAt: ack.CreatedAt,
	})
	return msg, nil
}

func attachmentPayload(msgType common.MessageType, url, filename, mimeType string, size int64) Payload {
	switch msgType {
	case common.MessageTypeVideo:
		return &VideoPayload{URL: url, Filename: filename, MimeType: mimeType, Size: size}
	case common.MessageTypeAudio:
		return &AudioPayload{URL: url, Filename: filename, MimeType: mimeType, Size: size}
	default:
		return &FilePayload{URL: url, Filename: filename, MimeType: mimeType, Size: size}
	}
}

func attachmentMeta(msg *ChatMessage) (filename, mimeType string, size int64) {
	switch p := msg.Payload.(type) {
	case *FilePayload:
		return p.Filename, p.MimeType, p.Size
	case *VideoPayload:
		return p.Filename, p.MimeType, p.Size
	case *AudioPayload:
		return p.Filename, p.MimeType, p.Size
	}
	return "", "", 0
}
