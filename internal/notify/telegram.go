package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/wonny/helios/internal/contracts"
	"github.com/wonny/helios/pkg/httputil"
	"github.com/wonny/helios/pkg/logger"
)

// TelegramSender dispatches alerts through the Bot API
// ⭐ SSOT: all Telegram calls go through this sender
type TelegramSender struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	botToken   string
	chatID     string
}

// NewTelegramSender creates a sender. baseURL falls back to the
// public Bot API when empty.
func NewTelegramSender(httpClient *httputil.Client, log *logger.Logger, baseURL, botToken, chatID string) *TelegramSender {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &TelegramSender{
		httpClient: httpClient,
		logger:     log,
		baseURL:    baseURL,
		botToken:   botToken,
		chatID:     chatID,
	}
}

// Send posts a plain-text message to the configured chat. Markdown is
// deliberately not used; strategy messages carry prices and symbols
// that Telegram's parser keeps tripping over.
func (s *TelegramSender) Send(ctx context.Context, text string) error {
	if s.botToken == "" || s.chatID == "" {
		return fmt.Errorf("%w: telegram credentials not configured", contracts.ErrInvalidInput)
	}
	if text == "" {
		return fmt.Errorf("%w: empty message", contracts.ErrInvalidInput)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)
	payload := map[string]interface{}{
		"chat_id": s.chatID,
		"text":    text,
	}

	resp, err := s.httpClient.PostJSON(ctx, url, payload)
	if err != nil {
		return fmt.Errorf("%w: telegram send: %v", contracts.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: telegram status %d: %s", contracts.ErrUpstream, resp.StatusCode, string(body))
	}

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("%w: telegram response: %v", contracts.ErrUpstream, err)
	}
	if !result.OK {
		return fmt.Errorf("%w: telegram rejected message: %s", contracts.ErrUpstream, result.Description)
	}

	s.logger.Debug("Telegram alert sent")
	return nil
}
