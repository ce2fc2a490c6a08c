package lexicon

import (
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"

	corecmd "github.com/lex00/wetwire-core-go/cmd"

	"github.com/INTENTIUS/chant-sub001"
	"github.com/INTENTIUS/chant-sub001/internal/build"
	"github.com/INTENTIUS/chant-sub001/internal/discover"
	"github.com/INTENTIUS/chant-sub001/internal/lint"
)

// DriverBuilder adapts a *build.Driver to corecmd.Builder, the same role
// the teacher's awsBuilder plays for template.Builder: discover, build,
// then write or print the serialized result.
type DriverBuilder struct {
	Driver *build.Driver
	// Lexicon selects which of the BuildResult's per-lexicon outputs to
	// print/write; empty prints every lexicon's output.
	Lexicon string
}

func (b DriverBuilder) Build(_ context.Context, path string, opts corecmd.BuildOptions) error {
	result := b.Driver.Build(path)
	for _, err := range result.Errors {
		fmt.Fprintln(os.Stderr, err.Error())
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("build failed with %d error(s)", len(result.Errors))
	}
	for _, w := range result.Warnings {
		fmt.Fprintln(os.Stderr, "warning: "+w)
	}

	for lex, artifact := range selectOutputs(result, b.Lexicon) {
		content, name := renderArtifact(artifact)
		if opts.Output == "" || opts.Output == "-" {
			fmt.Println(content)
			continue
		}
		target := opts.Output
		if len(result.Outputs) > 1 {
			target = filepath.Join(filepath.Dir(opts.Output), lex+"-"+name)
		}
		if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing output for %s: %w", lex, err)
		}
	}
	return nil
}

func selectOutputs(result *chant.BuildResult, lexicon string) map[string]any {
	if lexicon == "" {
		return result.Outputs
	}
	if v, ok := result.Outputs[lexicon]; ok {
		return map[string]any{lexicon: v}
	}
	return nil
}

func renderArtifact(artifact any) (content, filename string) {
	switch a := artifact.(type) {
	case string:
		return a, "output.json"
	case chant.MultiFileArtifact:
		return a.Primary, "output.json"
	default:
		return fmt.Sprintf("%v", a), "output.json"
	}
}

// EngineLinter adapts a *lint.Engine to corecmd.Linter.
type EngineLinter struct {
	Engine          *lint.Engine
	LexiconPackages map[string]string
}

func (l EngineLinter) Lint(_ context.Context, path string, opts corecmd.LintOptions) ([]corecmd.Issue, error) {
	graph, err := discover.Discover(discover.Options{Dirs: []string{path}, LexiconPackages: l.LexiconPackages})
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}

	var issues []corecmd.Issue
	for _, file := range graph.SourceFiles {
		fset := token.NewFileSet()
		parsed, parseErr := parser.ParseFile(fset, file, nil, parser.ParseComments)
		if parseErr != nil {
			continue
		}
		diags := l.Engine.Run(lint.Context{
			File: parsed, Fset: fset, FilePath: file,
			Entities:      graph,
			BarrelExports: barrelExportsOf(graph),
		})
		for _, d := range diags {
			issues = append(issues, corecmd.Issue{
				File: d.File, Line: d.Line, Column: d.Column,
				Severity: string(d.Severity), Message: d.Message, Rule: d.RuleID,
			})
		}
	}

	if !opts.Verbose {
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "%s:%d:%d: %s (%s)\n", issue.File, issue.Line, issue.Column, issue.Message, issue.Rule)
		}
	}
	return issues, nil
}

// barrelExportsOf returns the sorted entity names of graph: every name the
// project's barrel can serve, since NewBarrelTable is built over exactly
// this same set. Used to populate lint.Context.BarrelExports so EVL008 can
// flag a Barrel.<Name> access naming something the barrel never exports.
func barrelExportsOf(graph *chant.EntityGraph) []string {
	names := graph.SortedEntityNames()
	sorted := make([]string, len(names))
	copy(sorted, names)
	return sorted
}
