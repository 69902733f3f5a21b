// Package splicer inserts an accepted documentation block into a source file's
// line array as the first statement of a definition's body.
package splicer

import (
	"errors"
	"strings"

	"docagent/internal/analyzer"
)

// ErrUnparseableSignature is returned when a single-line definition's closing
// colon cannot be located. The input lines are returned untouched so the
// caller can skip the definition instead of corrupting it.
var ErrUnparseableSignature = errors.New("cannot locate signature colon")

// Insert splices docstring immediately before the definition's first body
// statement and returns the new line array. A single-line definition is first
// expanded into signature and body lines. The splice shifts absolute line
// numbers of everything below the insertion point, so callers must process
// definitions in descending start-line order to keep not-yet-processed
// definitions' recorded line numbers valid.
func Insert(lines []string, def *analyzer.Definition, docstring string) ([]string, error) {
	out := make([]string, len(lines))
	copy(out, lines)

	defIdx := def.StartLine - 1
	bodyIdx := def.BodyLine - 1
	if defIdx < 0 || defIdx >= len(out) || bodyIdx < 0 || bodyIdx >= len(out) {
		return lines, ErrUnparseableSignature
	}

	if bodyIdx == defIdx {
		raw := out[defIdx]
		colon := signatureColon(raw)
		if colon == -1 {
			return lines, ErrUnparseableSignature
		}

		sig := raw[:colon+1]
		bodyText := strings.TrimSpace(raw[colon+1:])
		defIndent := len(raw) - len(strings.TrimLeft(raw, " \t"))
		bodyIndent := strings.Repeat(" ", defIndent+4)

		expanded := make([]string, 0, len(out)+1)
		expanded = append(expanded, out[:defIdx]...)
		expanded = append(expanded, sig, bodyIndent+bodyText)
		expanded = append(expanded, out[defIdx+1:]...)
		out = expanded
		bodyIdx = defIdx + 1
	}

	bodyLine := out[bodyIdx]
	indent := strings.Repeat(" ", len(bodyLine)-len(strings.TrimLeft(bodyLine, " \t")))

	block := formatDocstring(docstring, indent)

	result := make([]string, 0, len(out)+len(block))
	result = append(result, out[:bodyIdx]...)
	result = append(result, block...)
	result = append(result, out[bodyIdx:]...)
	return result, nil
}

// signatureColon finds the colon that closes a def or class signature.
func signatureColon(line string) int {
	for _, keyword := range []string{"def ", "class "} {
		if start := strings.Index(line, keyword); start != -1 {
			if rel := strings.Index(line[start:], ":"); rel != -1 {
				return start + rel
			}
		}
	}
	return -1
}

// formatDocstring renders the block at the target indentation. Single-line
// content collapses to one delimiter-wrapped line; blank interior lines stay
// empty rather than indented.
func formatDocstring(docstring, indent string) []string {
	docLines := strings.Split(docstring, "\n")
	if len(docLines) == 1 {
		return []string{indent + `"""` + docLines[0] + `"""`}
	}

	block := make([]string, 0, len(docLines)+2)
	block = append(block, indent+`"""`)
	for _, dl := range docLines {
		if strings.TrimSpace(dl) != "" {
			block = append(block, indent+strings.TrimSpace(dl))
		} else {
			block = append(block, "")
		}
	}
	block = append(block, indent+`"""`)
	return block
}
