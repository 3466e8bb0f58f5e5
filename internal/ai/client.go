package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lumen-reader/lumen/internal/logging"
)

// Message is one chat turn sent to the completion endpoint.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client talks to the backend's OpenAI-compatible chat proxy and to the
// digest generator. Streams carry no HTTP timeout; the caller cancels via
// context.
type Client struct {
	baseURL     string
	token       string
	model       string
	temperature float64
	http        *http.Client
}

func NewClient(baseURL, token, model string, temperature float64) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		token:       token,
		model:       model,
		temperature: temperature,
		http:        &http.Client{},
	}
}

// ChatStream posts a streaming chat request and invokes onDelta for every
// content fragment as it arrives. It returns the accumulated text. On
// cancellation the partial accumulation is returned alongside ctx.Err(); the
// caller decides whether to keep it.
func (c *Client) ChatStream(ctx context.Context, messages []Message, onDelta func(delta string)) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model":       c.model,
		"temperature": c.temperature,
		"messages":    messages,
		"stream":      true,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	resp, err := c.postStream(ctx, "/api/ai/chat", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var acc strings.Builder
	err = decodeSSE(ctx, resp.Body, func(data string) error {
		var event struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			warnMalformed(data, err)
			return nil
		}
		if len(event.Choices) == 0 {
			return nil
		}
		delta := event.Choices[0].Delta.Content
		if delta == "" {
			return nil
		}
		acc.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
		return nil
	})
	if err != nil {
		return acc.String(), err
	}
	return acc.String(), nil
}

// Translate renders one block of text into the target language. It streams
// under the hood but only the final accumulation is of interest.
func (c *Client) Translate(ctx context.Context, text, targetLang string) (string, error) {
	out, err := c.ChatStream(ctx, []Message{
		{Role: "system", Content: "You are a translator. Translate the user's text into " + targetLang + ". Output only the translation, preserving inline formatting."},
		{Role: "user", Content: text},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// GenerateDigest asks the backend to build a digest and waits for the
// terminal result event on the stream.
func (c *Client) GenerateDigest(ctx context.Context, params map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal digest request: %w", err)
	}

	resp, err := c.postStream(ctx, "/api/digest/generate?stream=true", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result json.RawMessage
	var streamErr error
	err = decodeSSE(ctx, resp.Body, func(data string) error {
		var event struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			warnMalformed(data, err)
			return nil
		}
		switch event.Type {
		case "result":
			result = event.Data
		case "error":
			streamErr = fmt.Errorf("digest generation failed: %s", string(event.Data))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if streamErr != nil {
		return nil, streamErr
	}
	if result == nil {
		return nil, fmt.Errorf("digest stream ended without a result event")
	}
	logging.Debug("digest generated", "bytes", len(result))
	return result, nil
}

func (c *Client) postStream(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stream request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("stream request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return resp, nil
}
