package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"coursechat/internal/common"
	"coursechat/internal/transport/wire"
)

func TestRecordRoundTrip(t *testing.T) {
	sent := wire.Message{
		ID:         "m1",
		CourseID:   "go-101",
		SenderID:   "u1",
		SenderName: "Alice",
		SenderRole: common.RoleStudent.String(),
		Type:       common.MessageTypeFile.String(),
		Status:     common.StatusPending.String(),
		CreatedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Content:    "syllabus",
		FileURL:    "/media/f1",
		Filename:   "syllabus.pdf",
		FileSize:   1024,
		MimeType:   "application/pdf",
	}

	got := toWire(toRecord(sent))

	// Stored messages are confirmed: the client's optimistic status never
	// survives persistence.
	assert.Equal(t, common.StatusSent.String(), got.Status)

	sent.Status = got.Status
	assert.Equal(t, sent, got)
}
