package validator

import (
	"strings"
	"unicode"
)

// sectionHeaders are the Google-style headers the block parser recognizes.
var sectionHeaders = []string{"Summary", "Args", "Returns", "Yields", "Raises", "Warning", "Note"}

// Block is a candidate documentation block: the raw text the collaborator
// produced plus a map of recognized sections. Blocks are transient, one per
// generation attempt, and are consumed immediately by Validate.
type Block struct {
	Raw      string
	Sections map[string][]string
}

// NewBlock parses the recognized section headers out of raw.
func NewBlock(raw string) *Block {
	b := &Block{Raw: raw, Sections: make(map[string][]string)}
	for _, header := range sectionHeaders {
		if lines := extractSection(raw, header); len(lines) > 0 {
			b.Sections[header] = lines
		}
	}
	return b
}

// Section returns the stripped content lines beneath a section header, or nil
// when the section is absent.
func (b *Block) Section(name string) []string {
	return b.Sections[name]
}

// extractSection pulls out the lines beneath a section header. Content lines
// are collected stripped; collection stops at a blank line or at the next
// header-looking line once any content has been seen.
func extractSection(text, name string) []string {
	var (
		sectionLines []string
		inSection    bool
	)
	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, name+":") && !inSection {
			inSection = true
			continue
		}
		if !inSection {
			continue
		}
		if stripped == "" || isHeaderLine(line, stripped) {
			if len(sectionLines) > 0 {
				break
			}
			continue
		}
		sectionLines = append(sectionLines, stripped)
	}
	return sectionLines
}

// isHeaderLine reports whether an unindented "Word:" line opens a new section.
func isHeaderLine(line, stripped string) bool {
	if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
		return false
	}
	if stripped == "" || !strings.Contains(stripped, ":") {
		return false
	}
	head := strings.ReplaceAll(strings.SplitN(stripped, ":", 2)[0], " ", "")
	if head == "" {
		return false
	}
	for _, r := range head {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
