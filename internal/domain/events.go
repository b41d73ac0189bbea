// Package domain defines the core wire-level types shared across the
// connector: conversation events on the dialogue-engine format, tracker
// state, intent rankings, reply suggestions, and the response-template
// domain. Events are immutable once appended and their order is causal.
package domain

import (
	"encoding/json"
	"time"
)

// Event kinds the connector inspects or constructs. Any other kind is
// carried through opaquely.
const (
	EventUser  = "user"
	EventBot   = "bot"
	EventAgent = "agent"
	EventPause = "pause"
)

// Event is a single entry of a conversation's append-only event sequence,
// kept as raw JSON so unknown kinds round-trip untouched.
type Event json.RawMessage

// MarshalJSON emits the stored document verbatim.
func (e Event) MarshalJSON() ([]byte, error) {
	if len(e) == 0 {
		return []byte("null"), nil
	}
	return e, nil
}

// UnmarshalJSON stores the raw document for later passthrough.
func (e *Event) UnmarshalJSON(data []byte) error {
	*e = append((*e)[0:0], data...)
	return nil
}

// Kind returns the event's type tag ("user", "bot", ...), or "" when the
// document has none.
func (e Event) Kind() string {
	var probe struct {
		Event string `json:"event"`
	}
	_ = json.Unmarshal(e, &probe)
	return probe.Event
}

// Text returns the event's text field, if any.
func (e Event) Text() string {
	var probe struct {
		Text string `json:"text"`
	}
	_ = json.Unmarshal(e, &probe)
	return probe.Text
}

// userUtterance is the wire form of a synthetic user event. The text carries
// an EXTERNAL marker so downstream tooling can tell hypothesized utterances
// from real ones, and the metadata flags them for the policy.
type userUtterance struct {
	Event     string         `json:"event"`
	Timestamp float64        `json:"timestamp"`
	Text      string         `json:"text"`
	Metadata  map[string]any `json:"metadata"`
	ParseData parseData      `json:"parse_data"`
}

type parseData struct {
	Intent   intentRef      `json:"intent"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

type intentRef struct {
	Name string `json:"name"`
}

// NewUserUttered builds a hypothetical user event for the given intent,
// suitable for appending to an event prefix before a policy query.
func NewUserUttered(intent string) Event {
	text := "EXTERNAL: " + intent
	doc := userUtterance{
		Event:     EventUser,
		Timestamp: now(),
		Text:      text,
		Metadata:  map[string]any{"is_external": true},
		ParseData: parseData{
			Intent:   intentRef{Name: intent},
			Text:     text,
			Metadata: map[string]any{"is_external": true},
		},
	}
	raw, _ := json.Marshal(doc)
	return Event(raw)
}

// NewBotUttered builds a bot utterance event carrying the given text.
func NewBotUttered(text string) Event {
	raw, _ := json.Marshal(struct {
		Event     string  `json:"event"`
		Timestamp float64 `json:"timestamp"`
		Text      string  `json:"text"`
	}{EventBot, now(), text})
	return Event(raw)
}

// NewConversationPaused builds a pause event, parking the conversation for
// human handoff.
func NewConversationPaused() Event {
	raw, _ := json.Marshal(struct {
		Event     string  `json:"event"`
		Timestamp float64 `json:"timestamp"`
	}{EventPause, now()})
	return Event(raw)
}

// LastUserIndex returns the index of the most recent user event, scanning
// backward, or -1 when the sequence contains none.
func LastUserIndex(events []Event) int {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind() == EventUser {
			return i
		}
	}
	return -1
}

// now returns the current time as epoch seconds with sub-second precision,
// matching the dialogue engine's timestamp format.
func now() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
