package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged turn of the conversation sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is an opaque text-generation capability: given an ordered
// conversation it returns a single text response, or fails. Quota failures
// surface as ErrRateLimited and must never be retried by callers.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// ErrRateLimited signals that the provider's rate or quota limits were
// exceeded. Callers check it with errors.Is and abort immediately.
var ErrRateLimited = errors.New("rate limit exceeded")

// classifyErr maps provider quota failures onto ErrRateLimited so callers can
// fail fast instead of amplifying load against a rate-limited dependency.
func classifyErr(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "resource exhausted") || strings.Contains(msg, "429") {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return err
}

// ParseModelString splits a model selector into (provider, model). The
// "ollama:NAME" prefix selects the local provider; the "openai:NAME" prefix
// the OpenAI-compatible one; anything else is treated as a Gemini model name.
func ParseModelString(s string) (string, string) {
	if rest, ok := strings.CutPrefix(s, "ollama:"); ok {
		return "ollama", rest
	}
	if rest, ok := strings.CutPrefix(s, "openai:"); ok {
		return "openai", rest
	}
	return "gemini", s
}
