// Package orchestrator drives the bounded draft/validate/correct loop for one
// definition against the text-generation collaborator.
package orchestrator

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"docagent/internal/analyzer"
	"docagent/internal/llm"
	"docagent/internal/validator"
)

// Orchestrator holds the collaborator and the retry budget. The total attempt
// budget is 1+maxCorrectionPasses: one initial draft plus the correction
// passes.
type Orchestrator struct {
	provider            llm.Provider
	maxCorrectionPasses int
	logger              *slog.Logger
}

func New(provider llm.Provider, maxCorrectionPasses int, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		provider:            provider,
		maxCorrectionPasses: maxCorrectionPasses,
		logger:              logger.With("component", "orchestrator"),
	}
}

// Generate produces a validated docstring for one definition. When the budget
// is exhausted it returns the last successfully extracted docstring best-effort
// (possibly still carrying violations) rather than an error; deciding whether
// to accept it is the caller's call. Provider failures propagate immediately —
// in particular llm.ErrRateLimited is never retried here.
func (o *Orchestrator) Generate(ctx context.Context, facts *analyzer.DefinitionFacts) (string, int, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: buildGenerationPrompt(facts)},
	}

	corrections := 0
	docstring := ""

	for attempt := 0; attempt < 1+o.maxCorrectionPasses; attempt++ {
		o.logger.Debug("requesting docstring",
			"definition", facts.Name,
			"attempt", attempt+1,
			"budget", 1+o.maxCorrectionPasses)

		response, err := o.provider.Chat(ctx, messages)
		if err != nil {
			return "", corrections, err
		}

		extracted := extractDocstring(strings.TrimSpace(response))
		if extracted == "" {
			messages = append(messages, llm.Message{Role: llm.RoleUser, Content: clarifyPrompt})
			corrections++
			continue
		}
		docstring = extracted

		violations := validator.Validate(validator.NewBlock(docstring), facts)
		if len(violations) == 0 {
			return docstring, corrections, nil
		}

		o.logger.Debug("docstring rejected",
			"definition", facts.Name,
			"violations", len(violations))

		if attempt < o.maxCorrectionPasses {
			msgs := make([]string, len(violations))
			for i, v := range violations {
				msgs[i] = string(v)
			}
			messages = append(messages, llm.Message{
				Role:    llm.RoleUser,
				Content: buildCorrectionPrompt(msgs, facts),
			})
			corrections++
		}
	}

	return docstring, corrections, nil
}

var (
	tripleDouble = regexp.MustCompile(`(?s)"""(.*?)"""`)
	tripleSingle = regexp.MustCompile(`(?s)'''(.*?)'''`)
)

// extractDocstring pulls a docstring out of a collaborator response: a triple
// double-quoted span, then a triple single-quoted span, then a bare multi-line
// fallback stripped of stray quote characters. Returns "" when nothing
// usable is found.
func extractDocstring(text string) string {
	if m := tripleDouble.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := tripleSingle.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}

	stripped := strings.TrimSpace(text)
	stripped = strings.Trim(stripped, `"`)
	stripped = strings.Trim(stripped, `'`)
	stripped = strings.TrimSpace(stripped)
	if stripped != "" && strings.Contains(stripped, "\n") {
		return stripped
	}
	return ""
}
