// Package channel implements the HTTP client for the messaging channel API:
// anchor-message lookup (with a short fixed-delay retry budget), best-effort
// publication of suggestion batches keyed by deterministic identifiers, and
// outbound message delivery feeding the bridge's echo set.
package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/channelkit/go-suggest-bridge/internal/config"
	"github.com/channelkit/go-suggest-bridge/internal/retry"
)

// SentRecorder receives every outbound text before it is sent, so the
// bridge can recognize its own echoes on the inbound path.
type SentRecorder func(text string)

// Client talks to a single channel API instance. It is safe for concurrent
// use.
type Client struct {
	host        string
	systemToken string
	httpc       *http.Client
	anchorRetry retry.Config
	recordSent  SentRecorder
}

// New constructs a Client. recordSent may be nil when the caller has no echo
// set to maintain (e.g. the suggestion path, which never sends messages).
func New(cfg config.ChannelConfig, anchorRetry retry.Config, recordSent SentRecorder) *Client {
	if recordSent == nil {
		recordSent = func(string) {}
	}
	return &Client{
		host:        cfg.Host,
		systemToken: cfg.SystemToken,
		httpc:       &http.Client{Timeout: 10 * time.Second},
		anchorRetry: anchorRetry,
		recordSent:  recordSent,
	}
}

// SuggestionID derives the deterministic identifier for a suggested text
// under a given anchor message: a name-based (SHA-1) UUID in the anchor's
// namespace. Identical inputs always yield the same ID, which is the
// idempotency key the channel uses to de-duplicate re-sent batches.
func SuggestionID(anchorMessageID, text string) string {
	ns, err := uuid.Parse(anchorMessageID)
	if err != nil {
		// Non-UUID anchor ids still need a stable namespace.
		ns = uuid.NewSHA1(uuid.NameSpaceURL, []byte(anchorMessageID))
	}
	return uuid.NewSHA1(ns, []byte(text)).String()
}

// LastContactMessageID returns the identifier of the most recent
// contact-authored message in the conversation.
//
// Transport failures and non-2xx statuses are retried on a fixed short
// delay: the channel's ingestion pipeline can lag behind webhook delivery,
// and the backoff gives it a moment to catch up. After the budget is spent,
// or when the returned page holds no contact message, the failure is logged
// and ("", false) is returned.
func (c *Client) LastContactMessageID(ctx context.Context, conversationID string) (string, bool) {
	body, _ := json.Marshal(map[string]string{"conversation_id": conversationID})

	var page struct {
		Data []struct {
			ID          string `json:"id"`
			FromContact bool   `json:"from_contact"`
		} `json:"data"`
	}
	err := retry.Do(ctx, c.anchorRetry, func() error {
		return c.post(ctx, "/messages.list", body, &page)
	})
	if err != nil {
		log.Error().Err(err).Str("conversation_id", conversationID).Msg("list channel messages")
		return "", false
	}

	for _, msg := range page.Data {
		if msg.FromContact {
			return msg.ID, true
		}
	}
	log.Error().Str("conversation_id", conversationID).Msg("no contact message found in conversation")
	return "", false
}

// SuggestReplies publishes one batch of suggested replies attached to the
// anchor message. Each text is keyed by its deterministic SuggestionID.
// Delivery is best-effort: failures are logged, never retried or raised.
func (c *Client) SuggestReplies(ctx context.Context, anchorMessageID string, texts []string) {
	if len(texts) == 0 {
		return
	}

	suggestions := make(map[string]any, len(texts))
	for _, text := range texts {
		suggestions[SuggestionID(anchorMessageID, text)] = map[string]any{
			"content": map[string]string{"text": text},
		}
	}
	body, _ := json.Marshal(map[string]any{
		"message_id":  anchorMessageID,
		"suggestions": suggestions,
	})

	if err := c.post(ctx, "/messages.suggestReplies", body, nil); err != nil {
		log.Error().Err(err).Str("message_id", anchorMessageID).Msg("suggest replies")
	}
}

// SendMessage delivers a bot reply into the conversation. The text is
// recorded with the sent recorder before the request goes out, so an echoed
// webhook delivery of the same text is recognized even when it races the
// send response.
func (c *Client) SendMessage(ctx context.Context, conversationID, text string) error {
	c.recordSent(text)

	body, _ := json.Marshal(map[string]any{
		"conversation_id": conversationID,
		"message":         map[string]string{"text": text},
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/messages.send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.systemToken != "" {
		req.Header.Set("Authorization", c.systemToken)
	}

	res, err := c.httpc.Do(req)
	if err != nil {
		log.Error().Err(err).Str("conversation_id", conversationID).Msg("send channel message")
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		err := fmt.Errorf("messages.send: status %d: %s", res.StatusCode, snippet)
		log.Error().Err(err).Str("conversation_id", conversationID).Msg("send channel message")
		return err
	}
	return nil
}

// post issues a JSON POST and, when out is non-nil, decodes a 2xx response
// body into it.
func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.systemToken != "" {
		req.Header.Set("Authorization", c.systemToken)
	}

	res, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("channel %s: status %d: %s", path, res.StatusCode, snippet)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
