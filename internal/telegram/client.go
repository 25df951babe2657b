// Package telegram is a minimal Telegram Bot API client.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spec-kit/profile-support/internal/config"
)

const sendTimeout = 5 * time.Second

// Client sends messages through the Bot API.
type Client struct {
	token  string
	apiURL string
	http   *http.Client
}

// NewClient builds a client. Without a token every send is a no-op.
func NewClient(cfg config.TelegramConfig) *Client {
	return &Client{
		token:  cfg.BotToken,
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
		http:   &http.Client{Timeout: sendTimeout},
	}
}

// Enabled reports whether a bot token is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.token != ""
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendMessage posts an HTML-formatted message to chatID.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	if !c.Enabled() {
		return nil
	}

	payload, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", c.apiURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// The URL embeds the token; keep it out of the error.
		return fmt.Errorf("telegram sendMessage: request failed")
	}
	defer resp.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("telegram sendMessage: status %d", resp.StatusCode)
	}
	if !body.OK {
		return fmt.Errorf("telegram sendMessage: %s", body.Description)
	}
	return nil
}
