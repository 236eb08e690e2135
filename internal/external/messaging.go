package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"wakeroute/internal/types"
)

// MessagingClientConfig holds the configuration for creating a MessagingClient.
type MessagingClientConfig struct {
	ChannelToken string
	BaseURL      string // override for testing
	Logger       *slog.Logger
}

// MessagingClient delivers reply messages back to the messaging platform.
// One reply call per webhook event; delivery failures are logged and surfaced
// as upstream errors, never retried beyond BaseClient's policy (reply tokens
// are single-use and short-lived).
type MessagingClient struct {
	base         *BaseClient
	channelToken string
	baseURL      string
	logger       *slog.Logger
}

// NewMessagingClient creates a MessagingClient routed through a BaseClient.
func NewMessagingClient(httpClient *http.Client, cfg MessagingClientConfig) *MessagingClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.line.me"
	}
	return &MessagingClient{
		base: NewBaseClient(httpClient, "messaging", types.ErrCodeUpstreamMessaging, RetryPolicy{
			MaxRetries: 1,
			MinWait:    250 * time.Millisecond,
			MaxWait:    time.Second,
		}),
		channelToken: cfg.ChannelToken,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		logger:       logger,
	}
}

type replyRequest struct {
	ReplyToken string         `json:"replyToken"`
	Messages   []replyMessage `json:"messages"`
}

type replyMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Reply sends one text message in response to a webhook event.
func (c *MessagingClient) Reply(ctx context.Context, replyToken, text string) error {
	body, err := json.Marshal(replyRequest{
		ReplyToken: replyToken,
		Messages:   []replyMessage{{Type: "text", Text: text}},
	})
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected,
			"failed to encode reply payload", err)
	}

	endpoint := c.baseURL + "/v2/bot/message/reply"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected,
			"failed to build reply request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.channelToken)

	resp, err := c.base.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.NewAppError(types.ErrCodeUpstreamMessaging,
			fmt.Sprintf("reply request returned %d", resp.StatusCode), nil)
	}
	return nil
}
