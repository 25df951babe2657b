// Package supportclient talks to the support-messages resource over HTTP.
package supportclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spec-kit/profile-support/internal/api/dto"
	"github.com/spec-kit/profile-support/internal/domain"
)

const adminKeyHeader = "X-Admin-Key"

// StatusError reports a non-success response.
type StatusError struct {
	Method     string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("support endpoint: %s returned %d", e.Method, e.StatusCode)
}

// Client is a thin client of one support-messages resource.
type Client struct {
	endpoint string
	http     *http.Client
	adminKey string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithAdminKey makes sent messages count as administrator replies.
func WithAdminKey(key string) Option {
	return func(c *Client) { c.adminKey = key }
}

// New builds a client for endpoint. timeout bounds each request.
func New(endpoint string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the authoritative support log in server order.
func (c *Client) Fetch(ctx context.Context) ([]domain.SupportMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch support log: %w", err)
	}
	defer drain(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: http.MethodGet, StatusCode: resp.StatusCode}
	}

	var body struct {
		Messages []wireMessage `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode support log: %w", err)
	}

	messages := make([]domain.SupportMessage, 0, len(body.Messages))
	for _, m := range body.Messages {
		messages = append(messages, m.toDomain())
	}
	return messages, nil
}

// Send posts text as a new message. Success is judged by status only.
func (c *Client) Send(ctx context.Context, text string) error {
	payload, err := json.Marshal(dto.CreateSupportMessageRequest{Text: text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.adminKey != "" {
		req.Header.Set(adminKeyHeader, c.adminKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send support message: %w", err)
	}
	defer drain(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: http.MethodPost, StatusCode: resp.StatusCode}
	}
	return nil
}

// wireMessage tolerates timestamps with or without a zone offset.
type wireMessage struct {
	ID        json.RawMessage `json:"id"`
	Text      string          `json:"text"`
	Sender    domain.Sender   `json:"sender"`
	Timestamp string          `json:"timestamp"`
	IsRead    *bool           `json:"isRead"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func (m wireMessage) toDomain() domain.SupportMessage {
	return domain.SupportMessage{
		ID:        strings.Trim(string(m.ID), `"`),
		Text:      m.Text,
		Sender:    m.Sender,
		Timestamp: parseTimestamp(m.Timestamp),
		IsRead:    m.IsRead,
	}
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64*1024))
	_ = body.Close()
}
