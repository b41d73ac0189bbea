// Channel webhook handler.
//
// This file exposes the endpoints the messaging channel calls:
//   - GET  /         (health probe, channel-facing)
//   - POST /webhook  (event deliveries)
//
// The webhook contract is ack-first: every reachable outcome answers
// 200 "success", because a non-2xx makes the channel redeliver and process
// the same message twice. Classification is transport-thin — the handler
// decides message-created/text/authorship from the payload shape and hands
// the semantics to the bridge service.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/channelkit/go-suggest-bridge/internal/domain"
	"github.com/channelkit/go-suggest-bridge/internal/http/middleware"
	"github.com/channelkit/go-suggest-bridge/internal/services"
)

// eventTypeMessageCreated is the only channel event type the bridge acts on.
const eventTypeMessageCreated = "message.created"

// Bridge defines the channel-bridge operations consumed by the webhook
// handler. Implementations must be safe for concurrent use.
type Bridge interface {
	// HandleContactMessage hands a contact message off to conversation
	// processing; it returns once the handoff is scheduled.
	HandleContactMessage(ctx context.Context, msg domain.InboundMessage)
	// HandleAgentMessage replays an agent-side utterance into conversation
	// history, unless it is the bridge's own echo.
	HandleAgentMessage(ctx context.Context, conversationID, text string) error
	// MarkIgnored records a delivery dropped during classification.
	MarkIgnored()
}

// webhookRequest mirrors the channel's delivery payload. Content.Text is a
// pointer so "text present but empty" and "no text content" stay
// distinguishable, matching the channel's content model.
type webhookRequest struct {
	Type    string `json:"type"`
	Payload struct {
		ConversationID string `json:"conversation_id"`
		Message        struct {
			ID          string `json:"id"`
			Source      string `json:"source"`
			FromContact bool   `json:"from_contact"`
			Content     struct {
				Text *string `json:"text"`
			} `json:"content"`
		} `json:"message"`
	} `json:"payload"`
}

// isTextMessage reports whether the delivery is a created message carrying
// text content.
func (r *webhookRequest) isTextMessage() bool {
	return r.Type == eventTypeMessageCreated && r.Payload.Message.Content.Text != nil
}

// Health answers the channel's webhook health probe.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Webhook receives one channel event delivery.
//
// Deliveries that are not text messages are acknowledged and dropped.
// Contact-authored messages (from_contact true) become normalized inbound
// messages bound to their channel message ID — the anchor later replies and
// suggestions attach to — and are handed off asynchronously. Agent-side
// messages (from_contact false) are replayed into conversation history,
// subject to echo suppression. All failures are logged and acknowledged.
func (h *Handlers) Webhook(c *gin.Context) {
	lg := middleware.LoggerFrom(c)

	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		lg.Warn().Err(err).Msg("undecodable webhook delivery")
		h.bridge.MarkIgnored()
		ack(c)
		return
	}

	if !req.isTextMessage() {
		h.bridge.MarkIgnored()
		ack(c)
		return
	}

	conversationID := req.Payload.ConversationID
	text := *req.Payload.Message.Content.Text

	if req.Payload.Message.FromContact {
		h.bridge.HandleContactMessage(c.Request.Context(), domain.InboundMessage{
			ConversationID:  conversationID,
			Text:            text,
			AnchorMessageID: req.Payload.Message.ID,
			Source:          req.Payload.Message.Source,
		})
		ack(c)
		return
	}

	if err := h.bridge.HandleAgentMessage(c.Request.Context(), conversationID, text); err != nil {
		switch {
		case errors.Is(err, services.ErrEchoSuppressed):
			lg.Debug().Str("conversation_id", conversationID).Msg("dropped own echo")
		default:
			lg.Error().Err(err).
				Str("conversation_id", conversationID).
				Str("text", text).
				Msg("agent message replay failed")
		}
	}
	ack(c)
}
