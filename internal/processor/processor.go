// Package processor is the top-level driver: it parses a file once, enumerates
// every definition, and drives the orchestrator and splicer per definition.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"docagent/internal/analyzer"
	"docagent/internal/config"
	"docagent/internal/llm"
	"docagent/internal/orchestrator"
	"docagent/internal/splicer"
)

// Result is the outcome of processing one source file.
type Result struct {
	Original           string `json:"original"`
	Documented         string `json:"documented"`
	FunctionsProcessed int    `json:"functions_processed"`
	CorrectionsMade    int    `json:"corrections_made"`
}

// Processor processes files strictly sequentially: analysis, the generation
// loop and splicing for one definition complete before the next begins. That
// sequencing upholds the line-index invariant, it is not a performance choice.
type Processor struct {
	provider llm.Provider
	cfg      *config.Config
	logger   *slog.Logger

	// sleep is swapped out in tests to avoid real pacing delays.
	sleep func(time.Duration)
}

func New(provider llm.Provider, cfg *config.Config, logger *slog.Logger) *Processor {
	return &Processor{
		provider: provider,
		cfg:      cfg,
		logger:   logger.With("component", "processor"),
		sleep:    time.Sleep,
	}
}

// ProcessFile adds docstrings to every undocumented definition in source.
// A source that fails to parse is fatal before any definition is touched.
// Definitions are processed in descending start-line order so each splice only
// shifts line numbers of definitions already handled, never of the
// not-yet-processed ones above. The reassembled text is re-parsed as a
// self-consistency check; a failure there indicates a defect, not a normal
// runtime condition.
func (p *Processor) ProcessFile(ctx context.Context, source string) (*Result, error) {
	module, err := analyzer.Parse(ctx, []byte(source))
	if err != nil {
		return nil, err
	}

	lines := splitLines(source)

	defs := module.Definitions()
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].StartLine > defs[j].StartLine
	})

	orch := orchestrator.New(p.provider, p.cfg.MaxCorrectionPasses, p.logger)
	delay := time.Duration(p.cfg.RateLimitDelay * float64(time.Second))

	processed := 0
	totalCorrections := 0

	for _, def := range defs {
		if def.HasDocstring() {
			continue
		}

		facts := module.Analyze(def, lines)

		docstring, corrections, err := orch.Generate(ctx, facts)
		totalCorrections += corrections
		if err != nil {
			return nil, fmt.Errorf("generation failed for %s: %w", def.Name, err)
		}
		if docstring == "" {
			continue
		}

		newLines, err := splicer.Insert(lines, def, docstring)
		if err != nil {
			if errors.Is(err, splicer.ErrUnparseableSignature) {
				p.logger.Warn("skipping definition with unparseable signature",
					"definition", def.Name, "line", def.StartLine)
				continue
			}
			return nil, err
		}
		lines = newLines
		processed++

		p.logger.Info("docstring inserted",
			"definition", def.Name,
			"line", def.StartLine,
			"corrections", corrections)

		if delay > 0 {
			p.sleep(delay)
		}
	}

	documented := strings.Join(lines, "\n") + "\n"

	if _, err := analyzer.Parse(ctx, []byte(documented)); err != nil {
		return nil, fmt.Errorf("documented output no longer parses: %w", err)
	}

	return &Result{
		Original:           source,
		Documented:         documented,
		FunctionsProcessed: processed,
		CorrectionsMade:    totalCorrections,
	}, nil
}

// CountDefinitions returns the number of function and class definitions in
// source, or 0 when it does not parse.
func CountDefinitions(ctx context.Context, source string) int {
	module, err := analyzer.Parse(ctx, []byte(source))
	if err != nil {
		return 0
	}
	return len(module.Definitions())
}

// splitLines splits source into lines without a trailing empty element, so
// rejoining with a single appended newline round-trips the common case.
func splitLines(source string) []string {
	lines := strings.Split(source, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
