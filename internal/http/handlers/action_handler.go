// Action-server handler.
//
// This file exposes POST /actions/suggest-replies, the endpoint the dialogue
// engine invokes when a fallback turn fires. The request carries the
// conversation tracker (event history plus the latest intent ranking) and,
// when the engine is configured to attach it, the response-template domain.
// The response follows the action-server protocol: a list of events to apply
// to the tracker and a list of messages to utter.
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

// Suggester defines the suggestion-orchestration operation consumed by the
// action handler. Implementations must be safe for concurrent use and must
// honor the provided context.
type Suggester interface {
	Suggest(ctx context.Context, tracker *domain.Tracker, responses domain.Responses) (services.SuggestionOutcome, error)
}

// Handlers groups the HTTP endpoints for the webhook and action surfaces.
type Handlers struct {
	bridge  Bridge
	suggest Suggester
}

// New constructs a Handlers instance bound to the given services.
func New(bridge Bridge, suggest Suggester) *Handlers {
	return &Handlers{bridge: bridge, suggest: suggest}
}

// ActionRequest is the action-server call payload.
type ActionRequest struct {
	NextAction string         `json:"next_action"`
	Tracker    domain.Tracker `json:"tracker"`
	Domain     struct {
		Responses domain.Responses `json:"responses"`
	} `json:"domain"`
}

// ActionResponseMessage is one utterance returned to the engine.
type ActionResponseMessage struct {
	Text string `json:"text"`
}

// ActionResponse is the action-server reply payload.
type ActionResponse struct {
	Events    []domain.Event          `json:"events"`
	Responses []ActionResponseMessage `json:"responses"`
}

// SuggestReplies runs one suggestion-orchestration pass for the tracker in
// the request body.
//
// A paused outcome returns a pause event plus the handoff prompt, parking
// the conversation for a human. A pass that found no anchor or no usable
// suggestions returns empty events — per-candidate misses are normal
// outcomes, not errors, and must not fail the engine's action call.
func (h *Handlers) SuggestReplies(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	outcome, err := h.suggest.Suggest(c.Request.Context(), &req.Tracker, req.Domain.Responses)
	if err != nil {
		if errors.Is(err, services.ErrNoAnchor) {
			// Nothing to attach suggestions to; the turn simply does nothing.
			ok(c, http.StatusOK, ActionResponse{
				Events:    []domain.Event{},
				Responses: []ActionResponseMessage{},
			})
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeSuggestFailed, err.Error())
		return
	}

	resp := ActionResponse{
		Events:    []domain.Event{},
		Responses: []ActionResponseMessage{},
	}
	if outcome.Paused {
		resp.Events = append(resp.Events, domain.NewConversationPaused())
		resp.Responses = append(resp.Responses, ActionResponseMessage{Text: outcome.Prompt})
	}

	lg := middleware.LoggerFrom(c)
	lg.Debug().
		Str("conversation_id", req.Tracker.SenderID).
		Bool("paused", outcome.Paused).
		Int("suggestions", len(outcome.Texts)).
		Msg("suggestion pass complete")

	ok(c, http.StatusOK, resp)
}
