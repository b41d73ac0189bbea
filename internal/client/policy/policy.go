// Package policy implements the HTTP client for the dialogue-policy service.
// It is a stateless request/response wrapper: prediction failures are logged
// and reported as "no action" rather than propagated, so one bad call never
// aborts an orchestration pass.
package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/channelkit/go-suggest-bridge/internal/config"
	"github.com/channelkit/go-suggest-bridge/internal/domain"
)

// BotReply is one utterance returned by the engine's conversational endpoint.
type BotReply struct {
	RecipientID string `json:"recipient_id"`
	Text        string `json:"text"`
}

// Client talks to a single policy service instance. It is safe for
// concurrent use.
type Client struct {
	host  string
	token string
	httpc *http.Client
}

// New constructs a Client for the configured policy service.
func New(cfg config.PolicyConfig) *Client {
	return &Client{
		host:  cfg.Host,
		token: cfg.Token,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

// PredictNextAction sends a candidate event sequence to the policy service
// and returns the name of the strictly-highest-scoring action. The baseline
// score is zero, so a response where every action scores 0 yields no action.
// Transport failures and non-2xx statuses are logged and yield ("", false);
// they are never aborting errors for the caller.
func (c *Client) PredictNextAction(ctx context.Context, events []domain.Event) (string, bool) {
	body, err := json.Marshal(events)
	if err != nil {
		log.Error().Err(err).Msg("encode event sequence")
		return "", false
	}

	var resp struct {
		Scores []struct {
			Action string  `json:"action"`
			Score  float64 `json:"score"`
		} `json:"scores"`
	}
	if err := c.post(ctx, "/model/predict", body, &resp); err != nil {
		log.Error().Err(err).Msg("predict next action")
		return "", false
	}

	topAction := ""
	topScore := 0.0
	for _, s := range resp.Scores {
		if s.Score > topScore {
			topAction = s.Action
			topScore = s.Score
		}
	}
	return topAction, topAction != ""
}

// Converse hands a user message to the engine's conversational endpoint and
// returns the bot's replies. Unlike prediction, failures here are returned
// to the caller, which owns the logging-and-ack contract.
func (c *Client) Converse(ctx context.Context, conversationID, text string) ([]BotReply, error) {
	body, err := json.Marshal(map[string]string{
		"sender":  conversationID,
		"message": text,
	})
	if err != nil {
		return nil, err
	}

	var replies []BotReply
	if err := c.post(ctx, "/webhooks/rest/webhook", body, &replies); err != nil {
		return nil, err
	}
	return replies, nil
}

// post issues a JSON POST and decodes a 2xx response body into out.
func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	url := c.host + path
	if c.token != "" {
		// The engine authenticates via a token query parameter.
		url += "?token=" + c.token
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("policy service %s: status %d: %s", path, res.StatusCode, snippet)
	}
	return json.NewDecoder(res.Body).Decode(out)
}
