// Package llm wraps the external chat-completion service. It is strictly
// best-effort: every failure falls back to the caller's own text, so the
// proactive system keeps working with the templates alone.
package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	defaultModel   = "gpt-4o-mini"
	requestTimeout = 10 * time.Second
)

const refineSystemPrompt = "You polish short check-in messages from a personal assistant. " +
	"Rewrite the user's text to sound warm and natural. Keep the same facts, " +
	"structure and language. Reply with the rewritten message only."

type Client struct {
	client openaigo.Client
	model  string
}

// New returns nil when no API key is configured; a nil *Client is a valid
// no-op refiner.
func New(apiKey, baseURL, model string) *Client {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: requestTimeout}),
		option.WithRequestTimeout(requestTimeout),
	}
	if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &Client{client: openaigo.NewClient(opts...), model: model}
}

// Refine asks the model for a light rewrite of a generated message body.
// Any failure, timeout or empty completion returns the input unchanged.
func (c *Client) Refine(ctx context.Context, body string) string {
	if c == nil {
		return body
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, openaigo.ChatCompletionNewParams{
		Model: openaigo.ChatModel(c.model),
		Messages: []openaigo.ChatCompletionMessageParamUnion{
			openaigo.SystemMessage(refineSystemPrompt),
			openaigo.UserMessage(body),
		},
	})
	if err != nil || resp == nil || len(resp.Choices) == 0 {
		return body
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return body
	}
	return out
}
