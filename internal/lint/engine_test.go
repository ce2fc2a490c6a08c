package lint

import (
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/INTENTIUS/chant-sub001"
)

func TestEngine_RunAppliesSeverityOverride(t *testing.T) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "f.go", `package p

var Policy = alpha.Policy{
	BucketArn: Ref("X"),
}
`, parser.ParseComments)
	require.NoError(t, err)

	cfg := Config{Rules: map[string]RuleOverride{"COR003": {Severity: chant.SeverityInfo}}}
	eng := NewEngine(cfg, nil, nil)

	diags := eng.Run(Context{File: file, Fset: fset, FilePath: "f.go"})
	found := false
	for _, d := range diags {
		if d.RuleID == "COR003" {
			found = true
			assert.Equal(t, chant.SeverityInfo, d.Severity)
		}
	}
	assert.True(t, found)
}

func TestEngine_OffDisablesRule(t *testing.T) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "f.go", `package p

var Policy = alpha.Policy{
	BucketArn: Ref("X"),
}
`, parser.ParseComments)
	require.NoError(t, err)

	cfg := Config{Rules: map[string]RuleOverride{"COR003": {Off: true}}}
	eng := NewEngine(cfg, nil, nil)

	diags := eng.Run(Context{File: file, Fset: fset, FilePath: "f.go"})
	for _, d := range diags {
		assert.NotEqual(t, "COR003", d.RuleID)
	}
}

func TestEngine_OverrideFirstMatchWins(t *testing.T) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "special.go", `package p

var Policy = alpha.Policy{
	BucketArn: Ref("X"),
}
`, parser.ParseComments)
	require.NoError(t, err)

	cfg := Config{
		Overrides: []PathOverride{
			{PathPattern: "special.go", Rules: map[string]RuleOverride{"COR003": {Off: true}}},
			{PathPattern: "*.go", Rules: map[string]RuleOverride{"COR003": {Severity: chant.SeverityInfo}}},
		},
	}
	eng := NewEngine(cfg, nil, nil)
	diags := eng.Run(Context{File: file, Fset: fset, FilePath: "special.go"})
	for _, d := range diags {
		assert.NotEqual(t, "COR003", d.RuleID)
	}
}

type panickingRule struct{}

func (panickingRule) ID() string                     { return "PANIC001" }
func (panickingRule) DefaultSeverity() chant.Severity { return chant.SeverityError }
func (panickingRule) Category() Category              { return CategoryStyle }
func (panickingRule) Check(Context, map[string]any) []chant.Diagnostic {
	panic("boom")
}

func TestEngine_RulePanicContained(t *testing.T) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "f.go", `package p`, parser.ParseComments)
	require.NoError(t, err)

	eng := &Engine{Core: []Rule{panickingRule{}}}
	diags := eng.Run(Context{File: file, Fset: fset, FilePath: "f.go"})
	require.Len(t, diags, 1)
	assert.Equal(t, "PANIC001", diags[0].RuleID)
	assert.Contains(t, diags[0].Message, "panicked")
}

func TestApplyFixes_DescendingRangeOrder(t *testing.T) {
	content := "import \"a\"\nimport \"a\"\n"
	// The earlier range is listed first; applied in ascending order it would
	// shorten the content and invalidate the later range.
	diags := []chant.Diagnostic{
		{File: "f.go", Fix: &chant.Fix{Kind: chant.FixTextEdit, Range: [2]int{0, 11}, Replacement: ""}},
		{File: "f.go", Fix: &chant.Fix{Kind: chant.FixTextEdit, Range: [2]int{11, 22}, Replacement: "import \"b\"\n"}},
	}
	edited, writes, err := ApplyFixes(diags, func(string) (string, error) { return content, nil })
	require.NoError(t, err)
	assert.Empty(t, writes)
	assert.Equal(t, "import \"b\"\n", edited["f.go"])
}

func TestMerged_LaterLayerOverridesByID(t *testing.T) {
	base := ruleStub{id: "X001", sev: chant.SeverityWarning}
	override := ruleStub{id: "X001", sev: chant.SeverityError}
	eng := &Engine{Core: []Rule{base}, Local: []Rule{override}}
	merged := eng.merged()
	require.Len(t, merged, 1)
	assert.Equal(t, chant.SeverityError, merged[0].DefaultSeverity())
}

type ruleStub struct {
	id  string
	sev chant.Severity
}

func (r ruleStub) ID() string                     { return r.id }
func (r ruleStub) DefaultSeverity() chant.Severity { return r.sev }
func (r ruleStub) Category() Category              { return CategoryStyle }
func (r ruleStub) Check(Context, map[string]any) []chant.Diagnostic { return nil }
