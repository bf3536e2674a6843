// Package telegram is a thin HTTP client for a Bot API-compatible server.
// It performs single attempts only; retry and backoff policy belongs to the
// caller so it is not duplicated per method.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxResponseBytes = 10 << 20 // prevent unbounded reads from API responses

// DefaultAPIURL is the hosted Bot API endpoint. History fetches require a
// self-hosted telegram-bot-api server or an MTProto gateway exposing the
// same envelope.
const DefaultAPIURL = "https://api.telegram.org"

// Client is a thin HTTP wrapper around the Bot API. The underlying
// http.Client serialises nothing; rate limits are surfaced as APIError and
// handled by the retry controller.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

// NewClient creates a new Bot API client. An empty baseURL selects the
// hosted endpoint; a zero timeout defaults to 60 s.
func NewClient(token, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		token:   token,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// do sends a JSON POST request to the given Bot API method and decodes the
// response envelope. API-level failures come back as *APIError.
func do[T any](ctx context.Context, c *Client, method string, payload any) (*T, error) {
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("telegram: marshal %s request: %w", method, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("telegram: create %s request: %w", method, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Wrap without the raw URL to avoid leaking the token-bearing path
		// in error messages. The original error is still available via Unwrap.
		return nil, fmt.Errorf("telegram: %s request failed: %w", method, err)
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("telegram: read %s response: %w", method, err)
	}

	return decodeEnvelope[T](method, respBody)
}

func decodeEnvelope[T any](method string, respBody []byte) (*T, error) {
	var apiResp APIResponse[T]
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("telegram: decode %s response: %w", method, err)
	}

	if !apiResp.OK {
		apiErr := &APIError{
			Code:        apiResp.ErrorCode,
			Description: apiResp.Description,
		}
		if apiResp.Parameters != nil {
			apiErr.RetryAfter = apiResp.Parameters.RetryAfter
		}
		return nil, apiErr
	}

	return &apiResp.Result, nil
}

// getMeRequest has no parameters; getFileRequest identifies a file.
type getFileRequest struct {
	FileID string `json:"file_id"`
}

// historyRequest is the request body for the getChatHistory method.
type historyRequest struct {
	ChatID          int64 `json:"chat_id"`
	MinID           int64 `json:"min_id,omitempty"`
	MessageThreadID int64 `json:"message_thread_id,omitempty"`
	Limit           int   `json:"limit,omitempty"`
}

// SendMessageRequest is the request body for the sendMessage method.
type SendMessageRequest struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	MessageThreadID       int64  `json:"message_thread_id,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

// User represents a Telegram user or bot.
type User struct {
	ID       int64  `json:"id"`
	IsBot    bool   `json:"is_bot"`
	Username string `json:"username,omitempty"`
}

// GetMe returns the bot's user information. Used at startup as a token check.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	return do[User](ctx, c, "getMe", nil)
}

// History fetches messages with IDs strictly greater than minID from the
// given chat (and topic, when threadID is non-zero), oldest first.
func (c *Client) History(ctx context.Context, chatID, threadID, minID int64, limit int) ([]Message, error) {
	result, err := do[[]Message](ctx, c, "getChatHistory", historyRequest{
		ChatID:          chatID,
		MinID:           minID,
		MessageThreadID: threadID,
		Limit:           limit,
	})
	if err != nil {
		return nil, err
	}
	return *result, nil
}

// SendMessage sends a text message to the specified chat.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	return do[Message](ctx, c, "sendMessage", req)
}

// GetFile retrieves basic info about a file and prepares it for downloading.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	return do[File](ctx, c, "getFile", getFileRequest{FileID: fileID})
}

// fileURL returns the download URL for a file path returned by GetFile.
func (c *Client) fileURL(filePath string) string {
	return fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, filePath)
}
