package bot

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"wakeroute/internal/core"
	"wakeroute/internal/types"
)

// maxWebhookBodySize bounds the raw webhook body. The signature is computed
// over the full body, so it must be read into memory first.
const maxWebhookBodySize = 1 << 20

// Replier delivers one reply message back to the conversation.
// Implemented by the messaging client.
type Replier interface {
	Reply(ctx context.Context, replyToken, text string) error
}

// WebhookHandler verifies and dispatches inbound webhook events from the
// messaging platform.
type WebhookHandler struct {
	channelSecret string
	router        *Router
	replier       Replier
	logger        *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler. channelSecret keys the
// signature check on every request.
func NewWebhookHandler(channelSecret string, router *Router, replier Replier, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		channelSecret: channelSecret,
		router:        router,
		replier:       replier,
		logger:        logger,
	}
}

// RegisterRoutes mounts the webhook endpoint.
func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhook", h.HandleWebhook)
}

// webhookPayload mirrors the platform's event envelope, decoding only the
// fields the router needs.
type webhookPayload struct {
	Events []webhookEvent `json:"events"`
}

type webhookEvent struct {
	Type       string `json:"type"`
	ReplyToken string `json:"replyToken"`
	Source     struct {
		UserID  string `json:"userId"`
		GroupID string `json:"groupId"`
		RoomID  string `json:"roomId"`
	} `json:"source"`
	Message struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message"`
}

// sessionID scopes the itinerary to the conversation: group or room when the
// message came from one, the individual user otherwise.
func (e webhookEvent) sessionID() string {
	switch {
	case e.Source.GroupID != "":
		return e.Source.GroupID
	case e.Source.RoomID != "":
		return e.Source.RoomID
	}
	return e.Source.UserID
}

// HandleWebhook verifies the platform signature over the raw body, decodes
// the event envelope, and routes every text message. Event processing is
// best-effort: a reply failure is logged but never fails the request, since
// the platform retries the whole batch on non-2xx responses.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodySize))
	if err != nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidRequest,
			"failed to read request body", err))
		return
	}

	signature := r.Header.Get("X-Line-Signature")
	if signature == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSignatureMissing,
			"webhook signature header is missing", nil))
		return
	}
	if !ValidSignature(h.channelSecret, body, signature) {
		h.logger.WarnContext(r.Context(), "webhook signature mismatch",
			"remote_addr", r.RemoteAddr)
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSignatureInvalid,
			"webhook signature verification failed", nil))
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidJSON,
			"malformed webhook payload", err))
		return
	}

	for _, event := range payload.Events {
		h.handleEvent(r.Context(), event)
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: map[string]string{"status": "ok"}})
}

func (h *WebhookHandler) handleEvent(ctx context.Context, event webhookEvent) {
	if event.Type != "message" || event.Message.Type != "text" {
		return
	}

	sessionID := event.sessionID()
	if sessionID == "" {
		h.logger.WarnContext(ctx, "webhook event carried no source identity")
		return
	}
	ctx = types.WithSessionID(ctx, sessionID)

	reply := h.router.Handle(ctx, sessionID, event.Message.Text)
	if event.ReplyToken == "" {
		return
	}
	if err := h.replier.Reply(ctx, event.ReplyToken, reply); err != nil {
		h.logger.ErrorContext(ctx, "failed to deliver reply", "error", err)
	}
}
