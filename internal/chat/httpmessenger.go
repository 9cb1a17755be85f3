package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Omni-crm/talpan-bot-sub000/pkg/logger"
)

// HTTPMessenger delivers prompts to the messaging surface's bot API over
// HTTP. The surface is expected to expose sendMessage, editMessage and
// deleteMessage endpoints that accept the JSON bodies below.
type HTTPMessenger struct {
	baseURL string
	client  *http.Client
	logger  *logger.Logger
}

// NewHTTPMessenger creates a messenger that talks to the surface at baseURL.
func NewHTTPMessenger(baseURL string, client *http.Client, log *logger.Logger) *HTTPMessenger {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPMessenger{
		baseURL: baseURL,
		client:  client,
		logger:  log.WithComponent("http_messenger"),
	}
}

type outboundMessage struct {
	ChatID    int64    `json:"chat_id"`
	MessageID int64    `json:"message_id,omitempty"`
	Text      string   `json:"text,omitempty"`
	Keyboard  Keyboard `json:"keyboard,omitempty"`
}

type sendResult struct {
	MessageID int64 `json:"message_id"`
}

// Send posts a new message and returns the surface-assigned message id.
func (m *HTTPMessenger) Send(ctx context.Context, chatID int64, prompt Prompt) (int64, error) {
	body := outboundMessage{ChatID: chatID, Text: prompt.Text, Keyboard: prompt.Keyboard}

	var result sendResult
	if err := m.call(ctx, "sendMessage", body, &result); err != nil {
		return 0, fmt.Errorf("send message to chat %d: %v", chatID, err)
	}
	return result.MessageID, nil
}

// Edit replaces the text and keyboard of an existing message in place.
func (m *HTTPMessenger) Edit(ctx context.Context, chatID, messageID int64, prompt Prompt) error {
	body := outboundMessage{ChatID: chatID, MessageID: messageID, Text: prompt.Text, Keyboard: prompt.Keyboard}

	if err := m.call(ctx, "editMessage", body, nil); err != nil {
		return fmt.Errorf("edit message %d in chat %d: %v", messageID, chatID, err)
	}
	return nil
}

// Delete removes a message from the chat.
func (m *HTTPMessenger) Delete(ctx context.Context, chatID, messageID int64) error {
	body := outboundMessage{ChatID: chatID, MessageID: messageID}

	if err := m.call(ctx, "deleteMessage", body, nil); err != nil {
		return fmt.Errorf("delete message %d in chat %d: %v", messageID, chatID, err)
	}
	return nil
}

func (m *HTTPMessenger) call(ctx context.Context, method string, body, result interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %v", err)
	}

	url := m.baseURL + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %v", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		m.logger.Warn("Surface call failed", "method", method, "status", resp.StatusCode)
		return fmt.Errorf("call %s: unexpected status %d", method, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode %s response: %v", method, err)
		}
	}
	return nil
}
