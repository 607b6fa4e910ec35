// Package llm provides the text generation capability used for source
// rediscovery, link repair and internal link weaving.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrLLM is wrapped by every failure of an LLM call.
var ErrLLM = errors.New("llm request failed")

// Generator turns a system and user prompt into a text answer.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// Error describes a failed LLM call.
type Error struct {
	Model      string
	StatusCode int
	Msg        string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("llm ")
	b.WriteString(e.Model)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " status %d", e.StatusCode)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrLLM, e.Err}
	}
	return []error{ErrLLM}
}

// DecodeJSONResponse unmarshals a model answer that may be wrapped in a
// markdown code fence or surrounded by prose.
func DecodeJSONResponse(text string, v any) error {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
		cleaned = strings.TrimSpace(cleaned)
	}
	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return nil
	}
	start := strings.IndexAny(cleaned, "{[")
	end := strings.LastIndexAny(cleaned, "}]")
	if start < 0 || end <= start {
		return fmt.Errorf("failed to find JSON in response: %w", ErrLLM)
	}
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), v); err != nil {
		return fmt.Errorf("failed to decode JSON response: %w: %w", ErrLLM, err)
	}
	return nil
}
