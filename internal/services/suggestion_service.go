// Package services – SuggestionService
//
// This file implements the suggestion orchestrator. On a fallback turn it
// hypothesizes the top-ranked user intents, asks the policy what it would do
// under each hypothesis, collects the response texts registered for the
// predicted actions, and publishes them to the channel as one idempotent
// suggestion batch anchored to the contact's latest message. When the
// classifier found nothing plausible it signals a human handoff instead of
// fabricating a suggestion.
package services

import (
	"context"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/channelkit/go-suggest-bridge/internal/domain"
)

// DefaultHandoffPrompt is shown to the contact when no suggestion can be
// formed and the conversation is paused.
const DefaultHandoffPrompt = "Would you like to speak to a human?"

// ActionPredictor queries the policy service for the best next action given
// a candidate event sequence. A false result means "no usable action for
// this hypothesis" and is never an error.
type ActionPredictor interface {
	PredictNextAction(ctx context.Context, events []domain.Event) (string, bool)
}

// SuggestionChannel is the slice of the channel API the orchestrator needs:
// resolving the anchor message and publishing one suggestion batch.
type SuggestionChannel interface {
	LastContactMessageID(ctx context.Context, conversationID string) (string, bool)
	SuggestReplies(ctx context.Context, anchorMessageID string, texts []string)
}

// SuggestionOutcome reports what one orchestration pass did.
type SuggestionOutcome struct {
	// Paused is set when no candidate intent survived filtering; the
	// conversation should be parked pending human intervention.
	Paused bool
	// Prompt is the handoff message to utter when Paused is set.
	Prompt string
	// AnchorMessageID is the message the published batch was attached to.
	AnchorMessageID string
	// Texts are the suggestion texts published, in discovery order.
	Texts []string
}

// SuggestionService orchestrates reply-suggestion generation. All fields
// must be set before use; NewSuggestionService applies the defaults.
type SuggestionService struct {
	Policy  ActionPredictor
	Channel SuggestionChannel

	// Threshold excludes candidates with confidence <= Threshold.
	Threshold float64
	// MaxCandidates bounds the number of policy queries per pass.
	MaxCandidates int
	// FallbackIntent is the pseudo-intent never proposed as a candidate.
	FallbackIntent string
	// HandoffPrompt is uttered on the paused outcome.
	HandoffPrompt string

	// FallbackResponses are used when the caller supplies no inline domain
	// (e.g. the engine is configured not to attach domains to action calls).
	FallbackResponses domain.Responses
}

// NewSuggestionService constructs a SuggestionService with the defaults the
// connector ships with: threshold 0.3, at most 3 candidates, "nlu_fallback"
// excluded.
func NewSuggestionService(p ActionPredictor, ch SuggestionChannel) *SuggestionService {
	return &SuggestionService{
		Policy:         p,
		Channel:        ch,
		Threshold:      0.3,
		MaxCandidates:  3,
		FallbackIntent: "nlu_fallback",
		HandoffPrompt:  DefaultHandoffPrompt,
	}
}

// Suggest runs one orchestration pass for the tracker's conversation.
//
// Candidates are the first MaxCandidates intents of the latest ranking,
// descending by confidence, after dropping the fallback pseudo-intent and
// anything at or below the threshold. An empty candidate list yields the
// paused outcome with no downstream calls. Otherwise each candidate is
// queried independently against the policy over the event prefix plus a
// synthetic utterance; candidates without a scored action or without
// registered response texts are skipped. All discovered texts are merged in
// discovery order, duplicates dropped (duplicate texts would collide into
// the same suggestion ID anyway), and published as a single batch. Failing
// to resolve the anchor message aborts the pass with ErrNoAnchor; it is the
// only error this method returns.
func (s *SuggestionService) Suggest(ctx context.Context, tracker *domain.Tracker, responses domain.Responses) (SuggestionOutcome, error) {
	tr := otel.Tracer("services/SuggestionService")
	ctx, span := tr.Start(ctx, "Suggest",
		trace.WithAttributes(attribute.String("conversation.id", tracker.SenderID)),
	)
	defer span.End()

	candidates := s.candidates(tracker.LatestMessage.IntentRanking)
	log.Debug().
		Str("conversation_id", tracker.SenderID).
		Str("candidates", strings.Join(candidates, ",")).
		Msg("suggestion candidates")

	if len(candidates) == 0 {
		suggestionsPaused.Inc()
		return SuggestionOutcome{Paused: true, Prompt: s.HandoffPrompt}, nil
	}

	if responses == nil {
		responses = s.FallbackResponses
	}

	anchorID, ok := s.Channel.LastContactMessageID(ctx, tracker.SenderID)
	if !ok {
		return SuggestionOutcome{}, ErrNoAnchor
	}

	prefix := tracker.EventPrefix()
	var texts []string
	seen := make(map[string]struct{})

	for _, intent := range candidates {
		hypothetical := append(slices.Clone(prefix), domain.NewUserUttered(intent))

		action, ok := s.Policy.PredictNextAction(ctx, hypothetical)
		if !ok {
			continue
		}
		log.Debug().Str("intent", intent).Str("action", action).Msg("policy prediction")

		for _, text := range responses.TextsFor(action) {
			if _, dup := seen[text]; dup {
				continue
			}
			seen[text] = struct{}{}
			texts = append(texts, text)
		}
	}

	if len(texts) == 0 {
		return SuggestionOutcome{AnchorMessageID: anchorID}, nil
	}

	log.Debug().
		Str("message_id", anchorID).
		Str("suggestions", strings.Join(texts, ",")).
		Msg("publishing suggestions")
	s.Channel.SuggestReplies(ctx, anchorID, texts)
	suggestionsPublished.Add(float64(len(texts)))

	return SuggestionOutcome{AnchorMessageID: anchorID, Texts: texts}, nil
}

// candidates filters and caps the intent ranking, preserving its
// descending-confidence order.
func (s *SuggestionService) candidates(ranking []domain.IntentScore) []string {
	out := make([]string, 0, s.MaxCandidates)
	for _, entry := range ranking {
		if entry.Name == s.FallbackIntent || entry.Confidence <= s.Threshold {
			continue
		}
		out = append(out, entry.Name)
		if len(out) == s.MaxCandidates {
			break
		}
	}
	return out
}
