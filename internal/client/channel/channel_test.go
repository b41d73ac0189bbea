package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"

	"github.com/channelkit/go-suggest-bridge/internal/config"
	"github.com/channelkit/go-suggest-bridge/internal/retry"
)

func newTestClient(t *testing.T, anchorRetry retry.Config, recordSent SentRecorder, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.ChannelConfig{Host: srv.URL, SystemToken: "system-token"}, anchorRetry, recordSent)
}

func TestSuggestionID_Deterministic(t *testing.T) {
	anchor := "7f2c9c5e-1c3a-4b6d-9f0e-2a1b3c4d5e6f"

	a := SuggestionID(anchor, "Sure, let me check.")
	b := SuggestionID(anchor, "Sure, let me check.")
	if a != b {
		t.Fatalf("same inputs produced different ids: %s vs %s", a, b)
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Fatalf("suggestion id %q is not a UUID: %v", a, err)
	}

	if a == SuggestionID(anchor, "Another reply.") {
		t.Fatal("different texts produced the same id")
	}
	if a == SuggestionID("0e1d2c3b-4a59-6877-8695-a4b3c2d1e0ff", "Sure, let me check.") {
		t.Fatal("different anchors produced the same id")
	}
}

func TestSuggestionID_NonUUIDAnchor(t *testing.T) {
	a := SuggestionID("message-42", "Hello")
	b := SuggestionID("message-42", "Hello")
	if a != b {
		t.Fatalf("non-UUID anchor ids not stable: %s vs %s", a, b)
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Fatalf("suggestion id %q is not a UUID: %v", a, err)
	}
}

func TestLastContactMessageID_ScansForContactMessage(t *testing.T) {
	c := newTestClient(t, retry.Config{}, nil, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages.list" {
			t.Errorf("path = %q; want /messages.list", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "system-token" {
			t.Errorf("Authorization = %q; want system-token", got)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		if body["conversation_id"] != "conv-1" {
			t.Errorf("conversation_id = %q", body["conversation_id"])
		}
		w.Write([]byte(`{"data":[
			{"id":"m3","from_contact":false},
			{"id":"m2","from_contact":true},
			{"id":"m1","from_contact":true}
		]}`))
	})

	id, ok := c.LastContactMessageID(context.Background(), "conv-1")
	if !ok || id != "m2" {
		t.Fatalf("LastContactMessageID = (%q, %v); want (m2, true)", id, ok)
	}
}

func TestLastContactMessageID_NoContactMessageDoesNotRetry(t *testing.T) {
	var calls int32
	c := newTestClient(t, retry.Config{Extra: 3}, nil, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"data":[{"id":"m1","from_contact":false}]}`))
	})

	if id, ok := c.LastContactMessageID(context.Background(), "conv-1"); ok {
		t.Fatalf("LastContactMessageID = (%q, true); want miss", id)
	}
	// The page came back fine; the retry budget is for transport failures only.
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("messages.list called %d times; want 1", n)
	}
}

func TestLastContactMessageID_RetriesThenGivesUp(t *testing.T) {
	var calls int32
	c := newTestClient(t, retry.Config{Extra: 3}, nil, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	if id, ok := c.LastContactMessageID(context.Background(), "conv-1"); ok {
		t.Fatalf("LastContactMessageID = (%q, true); want miss", id)
	}
	if n := atomic.LoadInt32(&calls); n != 4 {
		t.Fatalf("messages.list called %d times; want 4 (one initial plus three retries)", n)
	}
}

func TestLastContactMessageID_RecoversWithinBudget(t *testing.T) {
	var calls int32
	c := newTestClient(t, retry.Config{Extra: 3}, nil, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"data":[{"id":"m1","from_contact":true}]}`))
	})

	id, ok := c.LastContactMessageID(context.Background(), "conv-1")
	if !ok || id != "m1" {
		t.Fatalf("LastContactMessageID = (%q, %v); want (m1, true)", id, ok)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("messages.list called %d times; want 3", n)
	}
}

func TestSuggestReplies_SingleBatch(t *testing.T) {
	anchor := "7f2c9c5e-1c3a-4b6d-9f0e-2a1b3c4d5e6f"
	texts := []string{"Yes, of course.", "Let me check."}

	var calls int32
	var got struct {
		MessageID   string `json:"message_id"`
		Suggestions map[string]struct {
			Content struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"suggestions"`
	}
	c := newTestClient(t, retry.Config{}, nil, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/messages.suggestReplies" {
			t.Errorf("path = %q; want /messages.suggestReplies", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	})

	c.SuggestReplies(context.Background(), anchor, texts)

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("suggestReplies called %d times; want a single batch", n)
	}
	if got.MessageID != anchor {
		t.Errorf("message_id = %q; want %q", got.MessageID, anchor)
	}
	if len(got.Suggestions) != len(texts) {
		t.Fatalf("batch holds %d suggestions; want %d", len(got.Suggestions), len(texts))
	}
	for _, text := range texts {
		entry, ok := got.Suggestions[SuggestionID(anchor, text)]
		if !ok {
			t.Errorf("batch misses the deterministic id for %q", text)
			continue
		}
		if entry.Content.Text != text {
			t.Errorf("suggestion text = %q; want %q", entry.Content.Text, text)
		}
	}
}

func TestSuggestReplies_EmptyBatchIsNoop(t *testing.T) {
	var calls int32
	c := newTestClient(t, retry.Config{}, nil, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	c.SuggestReplies(context.Background(), "anchor", nil)
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Fatalf("empty batch still hit the channel %d times", n)
	}
}

func TestSendMessage_RecordsEchoBeforeSending(t *testing.T) {
	var recorded []string
	var sawRecordedAtRequestTime bool
	var gotAuth string

	c := newTestClient(t, retry.Config{}, func(text string) {
		recorded = append(recorded, text)
	}, func(w http.ResponseWriter, r *http.Request) {
		// By the time the request arrives the echo must already be on file.
		sawRecordedAtRequestTime = len(recorded) == 1
		gotAuth = r.Header.Get("Authorization")

		var body struct {
			ConversationID string `json:"conversation_id"`
			Message        struct {
				Text string `json:"text"`
			} `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		if body.ConversationID != "conv-1" || body.Message.Text != "On my way." {
			t.Errorf("request body = %+v", body)
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := c.SendMessage(context.Background(), "conv-1", "On my way."); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if !sawRecordedAtRequestTime {
		t.Fatal("echo was not recorded before the send request went out")
	}
	if len(recorded) != 1 || recorded[0] != "On my way." {
		t.Fatalf("recorded = %v", recorded)
	}
	if gotAuth != "system-token" {
		t.Fatalf("Authorization = %q; want system-token", gotAuth)
	}
}

func TestSendMessage_ReturnsServerError(t *testing.T) {
	var recorded []string
	c := newTestClient(t, retry.Config{}, func(text string) {
		recorded = append(recorded, text)
	}, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	})

	if err := c.SendMessage(context.Background(), "conv-1", "hi"); err == nil {
		t.Fatal("SendMessage swallowed a 403")
	}
	// Recording happens unconditionally; a failed send may still surface as
	// an echo if the channel partially processed it.
	if len(recorded) != 1 {
		t.Fatalf("recorded = %v; want the attempted text", recorded)
	}
}
