package analyzer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseSource(t *testing.T, source string) (*Module, map[string]*Definition) {
	t.Helper()
	module, err := Parse(context.Background(), []byte(source))
	require.NoError(t, err)

	defs := make(map[string]*Definition)
	for _, d := range module.Definitions() {
		defs[d.Name] = d
	}
	return module, defs
}

func analyzeOne(t *testing.T, source, name string) *DefinitionFacts {
	t.Helper()
	module, defs := parseSource(t, source)
	def, ok := defs[name]
	require.True(t, ok, "definition %s should be found", name)
	return module.Analyze(def, strings.Split(source, "\n"))
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := Parse(context.Background(), []byte("def broken(:\n    pass\n"))
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestDefinitions_NestedAndOrdered(t *testing.T) {
	source := `class Outer:
    def method(self):
        def inner():
            pass
        return inner

async def top():
    pass
`
	_, defs := parseSource(t, source)
	assert.Len(t, defs, 4)
	assert.Contains(t, defs, "Outer")
	assert.Contains(t, defs, "method")
	assert.Contains(t, defs, "inner")
	assert.Contains(t, defs, "top")

	assert.Equal(t, KindClass, defs["Outer"].Kind)
	assert.Equal(t, KindFunction, defs["method"].Kind)
	assert.Equal(t, KindAsyncFunction, defs["top"].Kind)
	assert.Equal(t, 1, defs["Outer"].StartLine)
	assert.Equal(t, 7, defs["top"].StartLine)
}

func TestAnalyze_ExplicitRaises(t *testing.T) {
	source := `def risky(flag):
    if flag:
        raise BetaError("late")
    raise AlphaError
    raise AlphaError("again")
`
	facts := analyzeOne(t, source, "risky")
	assert.Equal(t, []string{"AlphaError", "BetaError"}, facts.ExplicitRaises)
}

func TestAnalyze_DottedRaise(t *testing.T) {
	source := `def load():
    raise errors.ConfigError("bad")
`
	facts := analyzeOne(t, source, "load")
	assert.Equal(t, []string{"errors.ConfigError"}, facts.ExplicitRaises)
}

func TestAnalyze_MutableDefaults(t *testing.T) {
	t.Run("right alignment", func(t *testing.T) {
		// Two defaults bind to the last two of three positional parameters.
		source := `def f(a, b=[], c=0):
    pass
`
		facts := analyzeOne(t, source, "f")
		assert.Equal(t, []string{"b"}, facts.MutableDefaults)
	})

	t.Run("constructor calls", func(t *testing.T) {
		source := `def g(cache=dict(), limit=10):
    pass
`
		facts := analyzeOne(t, source, "g")
		assert.Equal(t, []string{"cache"}, facts.MutableDefaults)
	})

	t.Run("keyword only", func(t *testing.T) {
		source := `def h(a, *, opts={}, name="x"):
    pass
`
		facts := analyzeOne(t, source, "h")
		assert.Equal(t, []string{"opts"}, facts.MutableDefaults)
	})

	t.Run("no mutable defaults", func(t *testing.T) {
		source := `def k(a, b=1, c="x"):
    pass
`
		facts := analyzeOne(t, source, "k")
		assert.Empty(t, facts.MutableDefaults)
	})
}

func TestAnalyze_BuiltinRisks(t *testing.T) {
	source := `def read_value(path, data, key):
    f = open(path)
    n = int(data)
    return f, n, data[key]
`
	facts := analyzeOne(t, source, "read_value")
	assert.Equal(t,
		[]string{"FileNotFoundError", "KeyError", "PermissionError", "ValueError"},
		facts.BuiltinRisks)
}

func TestAnalyze_NoFalsePositiveRisks(t *testing.T) {
	source := `def quiet(x):
    return compute(x)
`
	facts := analyzeOne(t, source, "quiet")
	assert.Empty(t, facts.BuiltinRisks)
	assert.Empty(t, facts.ExplicitRaises)
}

func TestAnalyze_GeneratorAndAsync(t *testing.T) {
	source := `def gen(items):
    for item in items:
        yield item

async def fetch(url):
    return await client.get(url)
`
	genFacts := analyzeOne(t, source, "gen")
	assert.True(t, genFacts.IsGenerator)
	assert.Equal(t, KindFunction, genFacts.Kind)

	fetchFacts := analyzeOne(t, source, "fetch")
	assert.False(t, fetchFacts.IsGenerator)
	assert.Equal(t, KindAsyncFunction, fetchFacts.Kind)
	assert.True(t, fetchFacts.HasReturnValue)
}

func TestAnalyze_YieldFrom(t *testing.T) {
	source := `def chain(parts):
    yield from parts
`
	facts := analyzeOne(t, source, "chain")
	assert.True(t, facts.IsGenerator)
}

func TestAnalyze_Parameters(t *testing.T) {
	source := `def handler(self, name: str, count=3, *args, mode: str = "fast", **kwargs) -> bool:
    return True
`
	facts := analyzeOne(t, source, "handler")

	require.Len(t, facts.Parameters, 5)
	assert.Equal(t, Param{Name: "name", Type: "str"}, facts.Parameters[0])
	assert.Equal(t, Param{Name: "count"}, facts.Parameters[1])
	assert.Equal(t, Param{Name: "*args"}, facts.Parameters[2])
	assert.Equal(t, Param{Name: "mode", Type: "str", KeywordOnly: true}, facts.Parameters[3])
	assert.Equal(t, Param{Name: "**kwargs"}, facts.Parameters[4])
	assert.Equal(t, "bool", facts.ReturnAnnotation)
}

func TestAnalyze_BareReturn(t *testing.T) {
	source := `def early(flag):
    if flag:
        return
    print(flag)
`
	facts := analyzeOne(t, source, "early")
	assert.False(t, facts.HasReturnValue)
}

func TestAnalyze_ClassHasEmptyFactSets(t *testing.T) {
	source := `class Config:
    def load(self):
        raise ValueError("bad")
`
	facts := analyzeOne(t, source, "Config")
	assert.Equal(t, KindClass, facts.Kind)
	assert.Empty(t, facts.ExplicitRaises)
	assert.Empty(t, facts.BuiltinRisks)
	assert.Empty(t, facts.MutableDefaults)
	assert.Empty(t, facts.Parameters)
	assert.False(t, facts.IsGenerator)
}

func TestAnalyze_SourceTextDedented(t *testing.T) {
	source := `class Box:
    def get(self):
        return self.value
`
	facts := analyzeOne(t, source, "get")
	assert.True(t, strings.HasPrefix(facts.SourceText, "def get(self):"))
	assert.Contains(t, facts.SourceText, "\n    return self.value")
	assert.Equal(t, 2, facts.StartLine)
	assert.Equal(t, 3, facts.EndLine)
}

func TestHasDocstring(t *testing.T) {
	source := `def documented():
    """Already described."""
    return 1

def bare():
    return 2
`
	_, defs := parseSource(t, source)
	assert.True(t, defs["documented"].HasDocstring())
	assert.False(t, defs["bare"].HasDocstring())
}

func TestAnalyze_Deterministic(t *testing.T) {
	source := `def risky(d, k):
    if not d:
        raise KeyError("missing")
    raise ValueError("bad")
    return int(d[k])
`
	first := analyzeOne(t, source, "risky")
	second := analyzeOne(t, source, "risky")
	assert.Equal(t, first, second)
}
