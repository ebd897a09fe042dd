package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursechat/internal/chat"
	"coursechat/internal/common"
	"coursechat/internal/transport/wire"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

func TestFetchMessages(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/courses/go-101/messages", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("size"))
		assert.Equal(t, "m40", r.URL.Query().Get("before"))
		assert.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(wire.MessagesPage{Messages: []wire.Message{
			{ID: "m39", CourseID: "go-101", SenderID: "u2", SenderName: "Bob",
				SenderRole: "INSTRUCTOR", Type: "TEXT", Status: "SENT",
				CreatedAt: created, Content: "older"},
		}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, staticToken("tok-abc"))
	msgs, err := client.FetchMessages(context.Background(), "go-101", 20, "m40")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "m39", msgs[0].ID)
	assert.Equal(t, common.StatusSent, msgs[0].Status)
	text, ok := msgs[0].Payload.(*chat.TextPayload)
	require.True(t, ok)
	assert.Equal(t, "older", text.Content)
}

func TestFetchMessagesOmitsEmptyCursor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, has := r.URL.Query()["before"]
		assert.False(t, has, "initial page must not carry a before cursor")
		json.NewEncoder(w).Encode(wire.MessagesPage{})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, staticToken("tok"))
	msgs, err := client.FetchMessages(context.Background(), "go-101", 20, "")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSendChatMessage(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/courses/go-101/messages", r.URL.Path)

		var body wire.Message
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tmp-1", body.TempID)
		assert.Equal(t, "hello", body.Content)

		json.NewEncoder(w).Encode(wire.SendResponse{
			TempID: body.TempID, ID: "m41", Status: "SENT", CreatedAt: created,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, staticToken("tok"))
	ack, err := client.SendChatMessage(context.Background(), &chat.ChatMessage{
		TempID:     "tmp-1",
		CourseID:   "go-101",
		SenderID:   "u1",
		SenderName: "Alice",
		SenderRole: common.RoleStudent,
		Type:       common.MessageTypeText,
		Status:     common.StatusPending,
		Payload:    &chat.TextPayload{Content: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, chat.SendAck{TempID: "tmp-1", ID: "m41", Status: common.StatusSent, CreatedAt: created}, ack)
}

func TestUploadFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/courses/go-101/files", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "application/pdf", r.FormValue("mimeType"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "syllabus.pdf", header.Filename)
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "pdf-bytes", string(data))

		json.NewEncoder(w).Encode(wire.UploadResponse{URL: "/media/f1", Size: int64(len(data))})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, staticToken("tok"))
	url, err := client.UploadFile(context.Background(), "go-101", "syllabus.pdf", "application/pdf",
		strings.NewReader("pdf-bytes"), 9)
	require.NoError(t, err)
	assert.Equal(t, "/media/f1", url)
}

func TestErrorResponseSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(wire.ErrorResponse{Error: "not enrolled in this course"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, staticToken("tok"))
	_, err := client.FetchMessages(context.Background(), "go-101", 20, "")
	assert.ErrorContains(t, err, "not enrolled in this course")
}
