package ai

import (
	"context"
	"fmt"
	"strings"
)

const summaryMaxInputRunes = 12000

// Summarize streams a summary of the article text. onUpdate receives the
// full accumulated markdown after every fragment, so the UI can re-render
// the growing summary in place. On cancellation the partial text is
// discarded and ctx.Err() is returned.
func (c *Client) Summarize(ctx context.Context, text, targetLang string, onUpdate func(markdown string)) (string, error) {
	text = clampRunes(strings.TrimSpace(text), summaryMaxInputRunes)
	if text == "" {
		return "", fmt.Errorf("nothing to summarize")
	}

	var acc strings.Builder
	full, err := c.ChatStream(ctx, []Message{
		{Role: "system", Content: "Summarize the article the user sends in " + targetLang + ". Use short markdown paragraphs and keep the key facts."},
		{Role: "user", Content: text},
	}, func(delta string) {
		acc.WriteString(delta)
		if onUpdate != nil {
			onUpdate(acc.String())
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("summarize: %w", err)
	}
	return full, nil
}

func clampRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
