package domain

import (
	"encoding/json"
	"testing"
)

func TestEvent_KindAndText(t *testing.T) {
	ev := Event(`{"event":"bot","text":"hello"}`)
	if ev.Kind() != EventBot {
		t.Fatalf("Kind = %q; want bot", ev.Kind())
	}
	if ev.Text() != "hello" {
		t.Fatalf("Text = %q; want hello", ev.Text())
	}

	if k := Event(`{"foo":1}`).Kind(); k != "" {
		t.Fatalf("untyped event Kind = %q; want empty", k)
	}
}

func TestEvent_OpaqueRoundTrip(t *testing.T) {
	raw := `{"event":"slot","name":"topic","value":{"nested":[1,2,3]}}`

	var ev Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != raw {
		t.Fatalf("round trip changed document:\n in:  %s\n out: %s", raw, out)
	}
}

func TestNewUserUttered_Shape(t *testing.T) {
	ev := NewUserUttered("greet")

	var doc struct {
		Event     string  `json:"event"`
		Timestamp float64 `json:"timestamp"`
		Text      string  `json:"text"`
		Metadata  struct {
			IsExternal bool `json:"is_external"`
		} `json:"metadata"`
		ParseData struct {
			Intent struct {
				Name string `json:"name"`
			} `json:"intent"`
			Text string `json:"text"`
		} `json:"parse_data"`
	}
	if err := json.Unmarshal(ev, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if doc.Event != EventUser {
		t.Errorf("event = %q; want user", doc.Event)
	}
	if doc.Timestamp <= 0 {
		t.Errorf("timestamp = %v; want > 0", doc.Timestamp)
	}
	if doc.Text != "EXTERNAL: greet" {
		t.Errorf("text = %q", doc.Text)
	}
	if !doc.Metadata.IsExternal {
		t.Errorf("metadata.is_external = false; want true")
	}
	if doc.ParseData.Intent.Name != "greet" {
		t.Errorf("parse_data.intent.name = %q", doc.ParseData.Intent.Name)
	}
	if doc.ParseData.Text != doc.Text {
		t.Errorf("parse_data.text = %q; want %q", doc.ParseData.Text, doc.Text)
	}
}

func TestNewBotUttered_And_Paused(t *testing.T) {
	if k := NewBotUttered("hi").Kind(); k != EventBot {
		t.Errorf("bot event Kind = %q", k)
	}
	if txt := NewBotUttered("hi").Text(); txt != "hi" {
		t.Errorf("bot event Text = %q", txt)
	}
	if k := NewConversationPaused().Kind(); k != EventPause {
		t.Errorf("pause event Kind = %q", k)
	}
}

func TestLastUserIndex(t *testing.T) {
	bot := Event(`{"event":"bot","text":"a"}`)
	user := Event(`{"event":"user","text":"b"}`)
	slot := Event(`{"event":"slot"}`)

	cases := []struct {
		name   string
		events []Event
		want   int
	}{
		{"empty", nil, -1},
		{"no user", []Event{bot, slot}, -1},
		{"single user", []Event{user}, 0},
		{"picks most recent", []Event{user, bot, user, slot}, 2},
		{"user last", []Event{bot, user}, 1},
	}
	for _, tc := range cases {
		if got := LastUserIndex(tc.events); got != tc.want {
			t.Errorf("%s: LastUserIndex = %d; want %d", tc.name, got, tc.want)
		}
	}
}

func TestTracker_EventPrefix(t *testing.T) {
	bot := Event(`{"event":"bot","text":"a"}`)
	user := Event(`{"event":"user","text":"b"}`)

	tr := &Tracker{Events: []Event{bot, user, bot, user, bot}}
	prefix := tr.EventPrefix()
	if len(prefix) != 3 {
		t.Fatalf("prefix length = %d; want 3 (everything strictly before the last user event)", len(prefix))
	}

	// No user event: prefix is the full sequence.
	tr = &Tracker{Events: []Event{bot, bot}}
	if got := tr.EventPrefix(); len(got) != 2 {
		t.Fatalf("prefix without user event = %d events; want full sequence", len(got))
	}
}
