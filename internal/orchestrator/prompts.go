package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"

	"docagent/internal/analyzer"
)

const systemPrompt = `You are a Python docstring generation expert. Your ONLY job is to produce
Google-style docstrings for the function or class you are given.

STRICT RULES — violating ANY of these rules is a critical failure:

1. OUTPUT ONLY THE DOCSTRING — start with triple quotes and end with triple quotes.
   Do NOT include the function signature, body, or any code outside the docstring.
2. Use Google-style format with sections: Summary, Args, Returns/Yields, Raises,
   Warning (for mutable defaults), Note (for async/coroutine).
3. ONLY document behaviour that is EXPLICITLY present in the source code.
4. For the Raises section, ONLY list exceptions that appear in explicit "raise"
   statements or are well-known implied exceptions from builtins
   (e.g. open->FileNotFoundError, dict[key]->KeyError, int()->ValueError).
5. NEVER include "Raises: None" or invent exceptions not in the code.
6. NEVER narrow types when the code has no type hints. If a parameter has no
   annotation, describe it by its usage, not by an assumed type.
7. If the function is a GENERATOR (contains yield), use "Yields:" NOT "Returns:".
8. If the function is ASYNC, mention that it is a coroutine in the summary or
   in a Note section.
9. If a parameter has a MUTABLE DEFAULT (list, dict, set), add a Warning section.
10. Keep the summary line concise (one line if possible).
11. Triple-quote style: use triple double quotes (""").`

const clarifyPrompt = "Your response did not contain a valid triple-quoted docstring. " +
	"Please output ONLY the docstring wrapped in triple double quotes."

// buildGenerationPrompt builds the initial user request from the fact record.
func buildGenerationPrompt(facts *analyzer.DefinitionFacts) string {
	kind := "function"
	if facts.Kind == analyzer.KindClass {
		kind = "class"
	}

	parts := []string{
		fmt.Sprintf("Generate a Google-style docstring for the following Python %s:\n", kind),
		fmt.Sprintf("```python\n%s\n```\n", facts.SourceText),
		"Static analysis results:",
	}

	if len(facts.Parameters) > 0 {
		parts = append(parts, "  Parameters: "+formatParams(facts.Parameters))
	}
	if facts.ReturnAnnotation != "" {
		parts = append(parts, "  Return annotation: "+facts.ReturnAnnotation)
	}
	if facts.Kind == analyzer.KindAsyncFunction {
		parts = append(parts, "  This is an ASYNC function — mention coroutine behaviour.")
	}
	if facts.IsGenerator {
		parts = append(parts, "  This is a GENERATOR — use 'Yields:' NOT 'Returns:'.")
	}
	if len(facts.ExplicitRaises) > 0 {
		parts = append(parts, "  Explicit raises: "+strings.Join(facts.ExplicitRaises, ", "))
	}
	if len(facts.BuiltinRisks) > 0 {
		parts = append(parts, "  Builtin exception risks: "+strings.Join(facts.BuiltinRisks, ", "))
	}
	if len(facts.MutableDefaults) > 0 {
		parts = append(parts, fmt.Sprintf(
			"  Mutable defaults on: %s — add a Warning section.",
			strings.Join(facts.MutableDefaults, ", ")))
	}
	if len(facts.ExplicitRaises) == 0 && len(facts.BuiltinRisks) == 0 {
		parts = append(parts, "  No exceptions detected — do NOT include a Raises section.")
	}

	parts = append(parts, "\nOutput ONLY the docstring (triple-quoted). Nothing else.")
	return strings.Join(parts, "\n")
}

// buildCorrectionPrompt restates every violation plus the original fact record
// so the collaborator can regenerate against the real code, not its own prior
// output.
func buildCorrectionPrompt(violations []string, facts *analyzer.DefinitionFacts) string {
	var sb strings.Builder
	sb.WriteString("Your previous docstring had the following violations:\n\n")
	for _, v := range violations {
		sb.WriteString("  - " + v + "\n")
	}
	sb.WriteString("\nHere is the original function source:\n")
	sb.WriteString("```python\n" + facts.SourceText + "\n```\n\n")
	sb.WriteString("Here is the static analysis:\n")
	sb.WriteString("- Explicit raises: " + orNone(strings.Join(facts.ExplicitRaises, ", ")) + "\n")
	sb.WriteString("- Builtin exception risks: " + orNone(strings.Join(facts.BuiltinRisks, ", ")) + "\n")
	sb.WriteString(fmt.Sprintf("- Is async: %t\n", facts.Kind == analyzer.KindAsyncFunction))
	sb.WriteString(fmt.Sprintf("- Is generator: %t\n", facts.IsGenerator))
	sb.WriteString("- Mutable defaults: " + orNone(strings.Join(facts.MutableDefaults, ", ")) + "\n")
	sb.WriteString("- Parameters: " + orNone(formatParams(facts.Parameters)) + "\n")
	sb.WriteString("- Return annotation: " + orNone(facts.ReturnAnnotation) + "\n")
	sb.WriteString("\nRegenerate the docstring fixing ALL violations. Output ONLY the corrected\ndocstring (triple-quoted).")
	return sb.String()
}

func formatParams(params []analyzer.Param) string {
	if len(params) == 0 {
		return ""
	}
	data, err := json.Marshal(params)
	if err != nil {
		return ""
	}
	return string(data)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
