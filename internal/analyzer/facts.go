package analyzer

// Kind classifies a definition. The three cases are closed: every consumer
// switches exhaustively over them.
type Kind int

const (
	KindFunction Kind = iota
	KindAsyncFunction
	KindClass
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindAsyncFunction:
		return "async function"
	case KindClass:
		return "class"
	}
	return "unknown"
}

// Param describes one parameter of a function definition.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	KeywordOnly bool   `json:"keyword_only,omitempty"`
}

// DefinitionFacts aggregates the statically observable properties of a single
// definition. It is built once per definition and never mutated afterwards;
// SourceText in particular anchors correction prompts to the original code even
// as the surrounding file changes during processing.
type DefinitionFacts struct {
	Name             string
	Kind             Kind
	IsGenerator      bool
	Parameters       []Param
	ReturnAnnotation string
	ExplicitRaises   []string
	BuiltinRisks     []string
	MutableDefaults  []string
	HasReturnValue   bool
	SourceText       string
	StartLine        int
	EndLine          int
}
