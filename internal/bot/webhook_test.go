package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedReply struct {
	token string
	text  string
}

type mockReplier struct {
	mu      sync.Mutex
	err     error
	replies []capturedReply
}

func (m *mockReplier) Reply(_ context.Context, replyToken, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, capturedReply{token: replyToken, text: text})
	return m.err
}

const testChannelSecret = "test-channel-secret"

func newTestWebhookHandler(replier Replier) *WebhookHandler {
	router := newTestRouter(&mockPlanner{reply: "planned"}, &mockResolver{}, &mockReporter{}, &mockTransit{})
	return NewWebhookHandler(testChannelSecret, router, replier, testLogger())
}

func postWebhook(t *testing.T, h *WebhookHandler, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Line-Signature", signature)
	}
	rec := httptest.NewRecorder()
	h.HandleWebhook(rec, req)
	return rec
}

func eventBody(t *testing.T, events ...map[string]any) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{"events": events})
	require.NoError(t, err)
	return body
}

func textEvent(userID, replyToken, text string) map[string]any {
	return map[string]any{
		"type":       "message",
		"replyToken": replyToken,
		"source":     map[string]any{"userId": userID},
		"message":    map[string]any{"type": "text", "text": text},
	}
}

func TestHandleWebhook_RepliesToTextEvent(t *testing.T) {
	replier := &mockReplier{}
	h := newTestWebhookHandler(replier)

	body := eventBody(t, textEvent("u1", "tok-1", "help"))
	rec := postWebhook(t, h, body, sign(testChannelSecret, body))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, replier.replies, 1)
	assert.Equal(t, "tok-1", replier.replies[0].token)
	assert.Contains(t, replier.replies[0].text, "weather <place>")
}

func TestHandleWebhook_MissingSignature(t *testing.T) {
	replier := &mockReplier{}
	h := newTestWebhookHandler(replier)

	rec := postWebhook(t, h, eventBody(t), "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "auth_signature_missing")
	assert.Empty(t, replier.replies)
}

func TestHandleWebhook_InvalidSignature(t *testing.T) {
	replier := &mockReplier{}
	h := newTestWebhookHandler(replier)

	body := eventBody(t, textEvent("u1", "tok-1", "help"))
	rec := postWebhook(t, h, body, sign("wrong-secret", body))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "auth_signature_invalid")
	assert.Empty(t, replier.replies)
}

func TestHandleWebhook_MalformedPayload(t *testing.T) {
	h := newTestWebhookHandler(&mockReplier{})

	body := []byte("{not json")
	rec := postWebhook(t, h, body, sign(testChannelSecret, body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_invalid_json")
}

func TestHandleWebhook_IgnoresNonTextEvents(t *testing.T) {
	replier := &mockReplier{}
	h := newTestWebhookHandler(replier)

	body := eventBody(t,
		map[string]any{"type": "follow", "replyToken": "tok-1",
			"source": map[string]any{"userId": "u1"}},
		map[string]any{"type": "message", "replyToken": "tok-2",
			"source":  map[string]any{"userId": "u1"},
			"message": map[string]any{"type": "sticker"}},
	)
	rec := postWebhook(t, h, body, sign(testChannelSecret, body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, replier.replies)
}

func TestHandleWebhook_ProcessesEveryEventInBatch(t *testing.T) {
	replier := &mockReplier{}
	h := newTestWebhookHandler(replier)

	body := eventBody(t,
		textEvent("u1", "tok-1", "help"),
		textEvent("u2", "tok-2", "about"),
	)
	rec := postWebhook(t, h, body, sign(testChannelSecret, body))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, replier.replies, 2)
	assert.Equal(t, "tok-1", replier.replies[0].token)
	assert.Equal(t, "tok-2", replier.replies[1].token)
}

func TestHandleWebhook_ReplyFailureStillReturns200(t *testing.T) {
	replier := &mockReplier{err: errors.New("messaging down")}
	h := newTestWebhookHandler(replier)

	body := eventBody(t, textEvent("u1", "tok-1", "help"))
	rec := postWebhook(t, h, body, sign(testChannelSecret, body))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleWebhook_GroupMessageScopesSessionToGroup(t *testing.T) {
	replier := &mockReplier{}
	planner := &mockPlanner{reply: "planned"}
	router := newTestRouter(planner, &mockResolver{}, &mockReporter{}, &mockTransit{})
	h := NewWebhookHandler(testChannelSecret, router, replier, testLogger())

	event := map[string]any{
		"type":       "message",
		"replyToken": "tok-1",
		"source":     map[string]any{"userId": "u1", "groupId": "g1"},
		"message":    map[string]any{"type": "text", "text": "route Home,Office"},
	}
	body := eventBody(t, event)
	postWebhook(t, h, body, sign(testChannelSecret, body))

	require.Equal(t, 1, planner.called)
	assert.Equal(t, 1, router.registry.Len())
	// The group store exists; fetching it again must not create a second one.
	router.registry.Store("g1")
	assert.Equal(t, 1, router.registry.Len())
}
