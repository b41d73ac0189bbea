// Package services – BridgeService
//
// This file implements the channel bridge. Inbound webhook deliveries are
// classified upstream (transport layer); the bridge owns the semantics:
// contact messages are handed off to conversation processing asynchronously,
// agent-side utterances are folded into the conversation's persisted history
// exactly once — the bridge's own outbound messages echoed back through the
// webhook are recognized via the echo set and dropped. All history mutations
// for a conversation run under that conversation's lock.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/channelkit/go-suggest-bridge/internal/client/policy"
	"github.com/channelkit/go-suggest-bridge/internal/domain"
)

// TrackerStore persists a conversation's append-only event history.
type TrackerStore interface {
	// AppendEvents appends events to the conversation's history and persists
	// the result.
	AppendEvents(ctx context.Context, conversationID string, events ...domain.Event) error
}

// ConversationProcessor hands a contact message to the dialogue engine and
// returns the bot's replies.
type ConversationProcessor interface {
	Converse(ctx context.Context, conversationID, text string) ([]policy.BotReply, error)
}

// ReplySender delivers a bot reply into the channel conversation.
type ReplySender interface {
	SendMessage(ctx context.Context, conversationID, text string) error
}

// BridgeService connects the channel's webhook to conversation processing
// and history. It owns the echo set and the per-conversation lock table;
// both are shared with the outbound send path.
type BridgeService struct {
	Store     TrackerStore
	Processor ConversationProcessor
	Sender    ReplySender
	Echo      *EchoSet
	Locks     *ConversationLocks

	// HandoffTimeout bounds one asynchronous conversation-processing pass.
	HandoffTimeout time.Duration

	// handoffDone, when set, is signalled after each async handoff finishes.
	// Tests use it to wait for the detached goroutine.
	handoffDone chan struct{}
}

// NewBridgeService constructs a BridgeService with its own echo set and lock
// table.
func NewBridgeService(store TrackerStore, proc ConversationProcessor, sender ReplySender, echoCap int, handoffTimeout time.Duration) *BridgeService {
	return &BridgeService{
		Store:          store,
		Processor:      proc,
		Sender:         sender,
		Echo:           NewEchoSet(echoCap),
		Locks:          NewConversationLocks(),
		HandoffTimeout: handoffTimeout,
	}
}

// RecordSent registers an outbound text with the echo set. It is handed to
// the channel client as its sent recorder so every message the bridge sends
// is known before the channel can echo it back.
func (b *BridgeService) RecordSent(text string) {
	b.Echo.Add(text)
}

// HandleContactMessage accepts a normalized contact message and hands it off
// to conversation processing on a detached goroutine, so the webhook can be
// acknowledged immediately. Processing failures and timeouts are logged with
// the offending text and never surface to the delivery: a non-2xx ack would
// make the channel redeliver and process the message twice.
func (b *BridgeService) HandleContactMessage(ctx context.Context, msg domain.InboundMessage) {
	deliveriesTotal.WithLabelValues("contact").Inc()

	// Detach from the request context: the ack must not wait for processing.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), b.HandoffTimeout)
		defer cancel()
		defer func() {
			if b.handoffDone != nil {
				b.handoffDone <- struct{}{}
			}
		}()

		tr := otel.Tracer("services/BridgeService")
		ctx, span := tr.Start(ctx, "HandleContactMessage",
			trace.WithAttributes(
				attribute.String("conversation.id", msg.ConversationID),
				attribute.String("message.source", msg.Source),
			),
		)
		defer span.End()

		replies, err := b.Processor.Converse(ctx, msg.ConversationID, msg.Text)
		if err != nil {
			log.Error().Err(err).
				Str("conversation_id", msg.ConversationID).
				Str("text", msg.Text).
				Msg("conversation processing failed")
			return
		}

		for _, reply := range replies {
			if reply.Text == "" {
				continue
			}
			if err := b.Sender.SendMessage(ctx, msg.ConversationID, reply.Text); err != nil {
				// Already logged by the sender; keep delivering the rest.
				continue
			}
		}
	}()
}

// HandleAgentMessage folds a channel-side human agent's utterance into the
// conversation's persisted history. When the text matches one this bridge
// recently sent, the delivery is the bridge's own echo and is dropped with
// ErrEchoSuppressed; replaying it would loop the bridge's output back into
// its input forever. The append-and-persist runs under the conversation's
// lock so concurrent deliveries for the same conversation serialize.
func (b *BridgeService) HandleAgentMessage(ctx context.Context, conversationID, text string) error {
	if b.Echo.Contains(text) {
		deliveriesTotal.WithLabelValues("echo").Inc()
		return ErrEchoSuppressed
	}
	deliveriesTotal.WithLabelValues("agent").Inc()

	log.Debug().
		Str("conversation_id", conversationID).
		Str("text", text).
		Msg("agent uttered")

	release := b.Locks.Acquire(conversationID)
	defer release()

	// The agent spoke for the bot side: record it as a bot utterance so the
	// policy sees it without re-triggering intent classification.
	return b.Store.AppendEvents(ctx, conversationID, domain.NewBotUttered(text))
}

// MarkIgnored counts a delivery that was acknowledged and dropped during
// classification (non-message event types, non-text payloads).
func (b *BridgeService) MarkIgnored() {
	deliveriesTotal.WithLabelValues("ignored").Inc()
}
