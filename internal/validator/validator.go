package validator

import (
	"fmt"
	"sort"
	"strings"

	"docagent/internal/analyzer"
)

// Violation is one reported mismatch between a documentation block and its
// fact record. Violations have no identity beyond their message text.
type Violation string

// Validate cross-checks a documentation block against the analyzer's facts.
// It is a pure function; an empty result signals acceptance. Violations come
// out in rule order (Raises, generator labeling, async mention, mutable
// defaults), which callers may rely on for display only.
func Validate(block *Block, facts *analyzer.DefinitionFacts) []Violation {
	var violations []Violation
	lower := strings.ToLower(block.Raw)

	// 1. Every exception in the Raises section must be backed by the code.
	allowed := make(map[string]bool)
	for _, name := range facts.ExplicitRaises {
		allowed[name] = true
	}
	for _, name := range facts.BuiltinRisks {
		allowed[name] = true
	}
	if raises := block.Section("Raises"); len(raises) > 0 {
		for _, line := range raises {
			excName := strings.TrimSpace(strings.SplitN(line, ":", 2)[0])
			if excName != "" && !allowed[excName] {
				violations = append(violations, Violation(fmt.Sprintf(
					"Hallucinated raise: '%s' not found in code. Allowed: %s",
					excName, formatAllowed(allowed))))
			}
		}
		if strings.Contains(strings.ToLower(raises[0]), "none") {
			violations = append(violations, "Must not include 'Raises: None'.")
		}
	}

	// 2. Generators must be labeled with Yields, never bare Returns.
	if facts.IsGenerator {
		if strings.Contains(lower, "returns:") && !strings.Contains(lower, "yields:") {
			violations = append(violations, "Generator function must use 'Yields:' instead of 'Returns:'.")
		}
	} else if strings.Contains(lower, "yields:") {
		violations = append(violations, "Non-generator function should not use 'Yields:'.")
	}

	// 3. Async definitions must mention coroutine behaviour.
	if facts.Kind == analyzer.KindAsyncFunction && !strings.Contains(lower, "coroutine") {
		violations = append(violations, "Async function docstring must mention coroutine behaviour.")
	}

	// 4. Mutable defaults must be addressed by name somewhere in the block.
	if len(facts.MutableDefaults) > 0 {
		mentioned := false
		for _, param := range facts.MutableDefaults {
			if strings.Contains(block.Raw, param) {
				mentioned = true
				break
			}
		}
		if !mentioned {
			violations = append(violations, Violation(fmt.Sprintf(
				"Mutable default arguments [%s] should be mentioned with a warning.",
				strings.Join(facts.MutableDefaults, ", "))))
		}
	}

	return violations
}

func formatAllowed(allowed map[string]bool) string {
	if len(allowed) == 0 {
		return "none"
	}
	names := make([]string, 0, len(allowed))
	for name := range allowed {
		names = append(names, name)
	}
	sort.Strings(names)
	return "[" + strings.Join(names, ", ") + "]"
}
