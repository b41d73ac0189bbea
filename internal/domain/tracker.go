package domain

// IntentScore is one entry of a classifier's intent ranking.
type IntentScore struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// LatestMessage carries the classifier output for the most recent user
// utterance. The ranking is sorted descending by confidence upstream and is
// not recomputed here.
type LatestMessage struct {
	Text          string        `json:"text"`
	IntentRanking []IntentScore `json:"intent_ranking"`
}

// Tracker is the conversation state the dialogue engine hands to an action
// call: the sender, the full event sequence, and the latest classification.
type Tracker struct {
	SenderID      string        `json:"sender_id"`
	Events        []Event       `json:"events"`
	LatestMessage LatestMessage `json:"latest_message"`
}

// EventPrefix returns the event sequence strictly before the most recent
// user event. When no user event exists the full sequence is returned.
func (t *Tracker) EventPrefix() []Event {
	idx := LastUserIndex(t.Events)
	if idx < 0 {
		return t.Events
	}
	return t.Events[:idx]
}

// Suggestion is a deterministic-id/text pair offered to the channel as a
// candidate reply. Identical (anchor, text) inputs always produce the same
// ID, which is what lets the channel de-duplicate re-sent batches.
type Suggestion struct {
	ID   string
	Text string
}

// InboundMessage is a channel delivery normalized for conversation
// processing. AnchorMessageID is the channel-side message identifier the
// delivery was bound to; replies and suggestions attach to it.
type InboundMessage struct {
	ConversationID  string
	Text            string
	AnchorMessageID string
	Source          string
}
