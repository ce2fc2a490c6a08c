package lexicon

import (
	"context"
	"testing"

	corecmd "github.com/lex00/wetwire-core-go/cmd"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/INTENTIUS/chant-sub001"
)

type stubBuilder struct{}

func (stubBuilder) Build(context.Context, string, corecmd.BuildOptions) error { return nil }

type stubLinter struct{}

func (stubLinter) Lint(context.Context, string, corecmd.LintOptions) ([]corecmd.Issue, error) {
	return nil, nil
}

type stubSerializer struct{}

func (stubSerializer) Name() string       { return "stub" }
func (stubSerializer) RulePrefix() string { return "STB" }
func (stubSerializer) Serialize(map[string]chant.Declarable, []chant.LexiconOutput) (any, error) {
	return "{}", nil
}

type stubLexicon struct{}

func (stubLexicon) Name() string                 { return "stub" }
func (stubLexicon) Version() string               { return "0.1.0" }
func (stubLexicon) Serializer() chant.Serializer  { return stubSerializer{} }
func (stubLexicon) Builder() corecmd.Builder      { return stubBuilder{} }
func (stubLexicon) Linter() corecmd.Linter        { return stubLinter{} }

type grapherLexicon struct {
	stubLexicon
}

type stubGrapher struct{ called bool }

func (g *stubGrapher) Graph(packages []string, format string) error {
	g.called = true
	return nil
}

func (grapherLexicon) Grapher() Grapher { return &stubGrapher{} }

func TestCreateRootCommand_HasBuildLintVersion(t *testing.T) {
	root := CreateRootCommand(stubLexicon{})
	names := commandNames(root)
	assert.Contains(t, names, "version")
	assert.Contains(t, names, "build")
	assert.Contains(t, names, "lint")
	assert.NotContains(t, names, "graph")
}

func TestCreateRootCommand_AddsGraphWhenOptionalGrapherImplemented(t *testing.T) {
	root := CreateRootCommand(grapherLexicon{})
	assert.Contains(t, commandNames(root), "graph")
}

func TestNewGraphCommand_RequiresAtLeastOnePackage(t *testing.T) {
	g := &stubGrapher{}
	cmd := newGraphCommand(g)
	cmd.SetArgs([]string{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.False(t, g.called)
}

func TestNewGraphCommand_InvokesGrapher(t *testing.T) {
	g := &stubGrapher{}
	cmd := newGraphCommand(g)
	cmd.SetArgs([]string{"pkg1", "pkg2"})
	require.NoError(t, cmd.Execute())
	assert.True(t, g.called)
}

func commandNames(root *cobra.Command) []string {
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	return names
}
