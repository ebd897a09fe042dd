// Package rest implements the chat transport interfaces against the
// course-chat gateway's REST endpoints.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"coursechat/internal/chat"
	"coursechat/internal/common"
	"coursechat/internal/transport/wire"
)

const defaultTimeout = 15 * time.Second

// TokenSource supplies a bearer token for outgoing requests, refreshing it
// when needed.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client talks to the gateway's REST API. It implements chat.HistoryFetcher,
// chat.MessageSender and chat.FileUploader.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		tokens:  tokens,
	}
}

// FetchMessages fetches one newest-first page. An empty beforeID requests
// the most recent page.
func (c *Client) FetchMessages(ctx context.Context, courseID string, size int, beforeID string) ([]*chat.ChatMessage, error) {
	q := url.Values{}
	q.Set("size", strconv.Itoa(size))
	if beforeID != "" {
		q.Set("before", beforeID)
	}
	endpoint := fmt.Sprintf("%s/api/v1/courses/%s/messages?%s", c.baseURL, url.PathEscape(courseID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var page wire.MessagesPage
	if err := c.do(ctx, req, &page); err != nil {
		return nil, fmt.Errorf("fetch messages for %s: %w", courseID, err)
	}
	return wire.ToChatSlice(page.Messages), nil
}

// SendChatMessage posts a message keyed by its TempID.
func (c *Client) SendChatMessage(ctx context.Context, msg *chat.ChatMessage) (chat.SendAck, error) {
	body, err := json.Marshal(wire.FromChat(msg))
	if err != nil {
		return chat.SendAck{}, err
	}
	endpoint := fmt.Sprintf("%s/api/v1/courses/%s/messages", c.baseURL, url.PathEscape(msg.CourseID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return chat.SendAck{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp wire.SendResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return chat.SendAck{}, fmt.Errorf("send message to %s: %w", msg.CourseID, err)
	}
	return chat.SendAck{
		TempID:    resp.TempID,
		ID:        resp.ID,
		Status:    common.MessageStatus(resp.Status),
		CreatedAt: resp.CreatedAt,
	}, nil
}

// UploadFile streams an attachment as multipart form data and returns the
// durable URL the gateway assigned.
func (c *Client) UploadFile(ctx context.Context, courseID, filename, mimeType string, content io.Reader, size int64) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", err
	}
	if err := mw.WriteField("mimeType", mimeType); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/api/v1/courses/%s/files", c.baseURL, url.PathEscape(courseID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp wire.UploadResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return "", fmt.Errorf("upload %s: %w", filename, err)
	}
	return resp.URL, nil
}

func (c *Client) do(ctx context.Context, req *http.Request, out any) error {
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("acquire token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr wire.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("gateway returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
