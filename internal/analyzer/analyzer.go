package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// ErrSyntax is returned when the source text is not well-formed Python.
var ErrSyntax = errors.New("source is not valid Python")

// Module is a parsed Python source file. It owns the syntax tree and the raw
// bytes every node's content is resolved against.
type Module struct {
	source []byte
	tree   *sitter.Tree
	root   *sitter.Node
}

// Definition is one function, async function or class construct addressable by
// a contiguous line range. Line numbers are 1-indexed and reference the file
// the module was parsed from.
type Definition struct {
	Name      string
	Kind      Kind
	StartLine int
	EndLine   int
	// BodyLine is the line of the first body statement. For single-line
	// definitions it equals StartLine.
	BodyLine int

	node *sitter.Node
}

// Parse parses source as a Python module. A tree that contains any error node
// fails with ErrSyntax before any definition is analyzed.
func Parse(ctx context.Context, source []byte) (*Module, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source: %w", err)
	}
	root := tree.RootNode()
	if root.HasError() {
		return nil, ErrSyntax
	}
	return &Module{source: source, tree: tree, root: root}, nil
}

// Definitions returns every function/class definition in the module, at any
// nesting depth, in document order.
func (m *Module) Definitions() []*Definition {
	var defs []*Definition
	walk(m.root, func(n *sitter.Node) {
		switch n.Type() {
		case "function_definition", "class_definition":
			if d := m.newDefinition(n); d != nil {
				defs = append(defs, d)
			}
		}
	})
	return defs
}

// HasDocstring reports whether the definition's body already begins with a
// string expression statement.
func (d *Definition) HasDocstring() bool {
	first := firstBodyStatement(d.node)
	if first == nil || first.Type() != "expression_statement" {
		return false
	}
	return first.NamedChildCount() > 0 && first.NamedChild(0).Type() == "string"
}

// Analyze derives the fact record for one definition. It is deterministic and
// total: a bodyless node yields a degenerate record with empty fact sets.
// sourceLines is the current line array of the file being processed; for
// not-yet-spliced definitions it is identical to the original over the
// definition's range.
func (m *Module) Analyze(d *Definition, sourceLines []string) *DefinitionFacts {
	facts := &DefinitionFacts{
		Name:      d.Name,
		Kind:      d.Kind,
		StartLine: d.StartLine,
		EndLine:   d.EndLine,
	}

	end := d.EndLine
	if end > len(sourceLines) {
		end = len(sourceLines)
	}
	if d.StartLine >= 1 && d.StartLine <= end {
		facts.SourceText = dedent(strings.Join(sourceLines[d.StartLine-1:end], "\n"))
	}

	switch d.Kind {
	case KindFunction, KindAsyncFunction:
		facts.IsGenerator = containsYield(d.node)
		facts.ExplicitRaises = collectExplicitRaises(m, d.node)
		facts.BuiltinRisks = collectBuiltinRisks(m, d.node)
		facts.MutableDefaults = collectMutableDefaults(m, d.node)
		facts.HasReturnValue = hasReturnValue(d.node)
		facts.Parameters = m.extractParams(d.node)
		if ret := d.node.ChildByFieldName("return_type"); ret != nil {
			facts.ReturnAnnotation = ret.Content(m.source)
		}
	case KindClass:
		// Classes carry only identity and source facts.
	}

	return facts
}

func (m *Module) newDefinition(n *sitter.Node) *Definition {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	kind := KindFunction
	if n.Type() == "class_definition" {
		kind = KindClass
	} else if isAsync(n) {
		kind = KindAsyncFunction
	}

	d := &Definition{
		Name:      nameNode.Content(m.source),
		Kind:      kind,
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
		BodyLine:  int(n.StartPoint().Row) + 1,
		node:      n,
	}
	if first := firstBodyStatement(n); first != nil {
		d.BodyLine = int(first.StartPoint().Row) + 1
	}
	return d
}

// Fact collection

// collectExplicitRaises gathers the exception names of every raise statement
// with an operand, resolving direct names, constructor calls and dotted
// attribute access. The result is sorted and deduplicated.
func collectExplicitRaises(m *Module, n *sitter.Node) []string {
	raises := map[string]bool{}
	walk(n, func(child *sitter.Node) {
		if child.Type() != "raise_statement" || child.NamedChildCount() == 0 {
			return
		}
		exc := child.NamedChild(0)
		var name string
		switch exc.Type() {
		case "call":
			name = dottedName(exc.ChildByFieldName("function"), m.source)
		case "identifier", "attribute":
			name = dottedName(exc, m.source)
		}
		if name != "" {
			raises[name] = true
		}
	})
	return sortedKeys(raises)
}

// collectBuiltinRisks maps recognized risky call and access patterns to the
// exceptions they imply. The table is fixed: only known call names produce
// entries, so false positives cannot occur.
func collectBuiltinRisks(m *Module, n *sitter.Node) []string {
	risks := map[string]bool{}
	walk(n, func(child *sitter.Node) {
		switch child.Type() {
		case "call":
			switch dottedName(child.ChildByFieldName("function"), m.source) {
			case "open":
				risks["FileNotFoundError"] = true
				risks["PermissionError"] = true
			case "int", "float":
				risks["ValueError"] = true
			}
		case "subscript":
			risks["KeyError"] = true
		}
	})
	return sortedKeys(risks)
}

// collectMutableDefaults reproduces the language's right-aligned default
// binding: the last N positional parameters receive the N supplied defaults,
// so the alignment offset is paramCount-defaultCount. Keyword-only defaults
// are matched by index independently.
func collectMutableDefaults(m *Module, n *sitter.Node) []string {
	params := n.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}

	var (
		mutable        []string
		positional     []string
		posDefaults    []*sitter.Node
		kwNames        []string
		kwDefaults     []*sitter.Node
		afterSeparator bool
	)

	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case "keyword_separator", "list_splat_pattern":
			afterSeparator = true
		case "identifier", "typed_parameter":
			name := paramName(p, m.source)
			if afterSeparator {
				kwNames = append(kwNames, name)
				kwDefaults = append(kwDefaults, nil)
			} else {
				positional = append(positional, name)
			}
		case "default_parameter", "typed_default_parameter":
			name := paramName(p, m.source)
			value := p.ChildByFieldName("value")
			if afterSeparator {
				kwNames = append(kwNames, name)
				kwDefaults = append(kwDefaults, value)
			} else {
				positional = append(positional, name)
				posDefaults = append(posDefaults, value)
			}
		}
	}

	offset := len(positional) - len(posDefaults)
	for i, value := range posDefaults {
		if isMutableExpr(value, m.source) {
			mutable = append(mutable, positional[offset+i])
		}
	}
	for i, value := range kwDefaults {
		if value != nil && isMutableExpr(value, m.source) {
			mutable = append(mutable, kwNames[i])
		}
	}
	return mutable
}

func (m *Module) extractParams(n *sitter.Node) []Param {
	paramsNode := n.ChildByFieldName("parameters")
	if paramsNode == nil {
		return nil
	}

	var (
		params      []Param
		keywordOnly bool
	)
	for i := 0; i < int(paramsNode.NamedChildCount()); i++ {
		p := paramsNode.NamedChild(i)
		switch p.Type() {
		case "keyword_separator":
			keywordOnly = true
		case "identifier":
			if name := p.Content(m.source); name != "self" && name != "cls" {
				params = append(params, Param{Name: name, KeywordOnly: keywordOnly})
			}
		case "typed_parameter":
			param := Param{Name: paramName(p, m.source), KeywordOnly: keywordOnly}
			if t := p.ChildByFieldName("type"); t != nil {
				param.Type = t.Content(m.source)
			}
			params = append(params, param)
		case "default_parameter", "typed_default_parameter":
			param := Param{Name: paramName(p, m.source), KeywordOnly: keywordOnly}
			if t := p.ChildByFieldName("type"); t != nil {
				param.Type = t.Content(m.source)
			}
			params = append(params, param)
		case "list_splat_pattern":
			keywordOnly = true
			if p.NamedChildCount() > 0 {
				params = append(params, Param{Name: "*" + p.NamedChild(0).Content(m.source)})
			}
		case "dictionary_splat_pattern":
			if p.NamedChildCount() > 0 {
				params = append(params, Param{Name: "**" + p.NamedChild(0).Content(m.source)})
			}
		}
	}
	return params
}

// Helpers

func isAsync(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "async" {
			return true
		}
	}
	return false
}

func containsYield(n *sitter.Node) bool {
	found := false
	walk(n, func(child *sitter.Node) {
		if child.Type() == "yield" {
			found = true
		}
	})
	return found
}

func hasReturnValue(n *sitter.Node) bool {
	found := false
	walk(n, func(child *sitter.Node) {
		if child.Type() == "return_statement" && child.NamedChildCount() > 0 {
			found = true
		}
	})
	return found
}

func isMutableExpr(n *sitter.Node, source []byte) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "list", "dictionary", "set":
		return true
	case "call":
		switch dottedName(n.ChildByFieldName("function"), source) {
		case "list", "dict", "set":
			return true
		}
	}
	return false
}

// paramName returns the identifier of a parameter node regardless of whether
// it carries a type annotation or default value.
func paramName(p *sitter.Node, source []byte) string {
	if name := p.ChildByFieldName("name"); name != nil {
		return name.Content(source)
	}
	if p.NamedChildCount() > 0 {
		return p.NamedChild(0).Content(source)
	}
	return p.Content(source)
}

// dottedName resolves an identifier or attribute chain to its dotted form,
// e.g. "errors.ConfigError".
func dottedName(n *sitter.Node, source []byte) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "identifier":
		return n.Content(source)
	case "attribute":
		obj := dottedName(n.ChildByFieldName("object"), source)
		attr := n.ChildByFieldName("attribute")
		if obj == "" || attr == nil {
			return ""
		}
		return obj + "." + attr.Content(source)
	}
	return ""
}

// firstBodyStatement returns the first non-comment statement of a definition's
// body block, or nil when the node has no body.
func firstBodyStatement(n *sitter.Node) *sitter.Node {
	body := n.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		if child.Type() != "comment" {
			return child
		}
	}
	return nil
}

func walk(n *sitter.Node, fn func(*sitter.Node)) {
	fn(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), fn)
	}
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// dedent strips the longest common leading whitespace from every non-blank
// line, mirroring how nested definitions are presented to the collaborator.
func dedent(text string) string {
	lines := strings.Split(text, "\n")
	margin := -1
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		indent := len(line) - len(trimmed)
		if margin < 0 || indent < margin {
			margin = indent
		}
	}
	if margin <= 0 {
		return text
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		if len(line) >= margin && strings.TrimLeft(line[:margin], " \t") == "" {
			out[i] = line[margin:]
		} else {
			out[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.Join(out, "\n")
}
