// Package lexicon defines the plugin contract a concrete lexicon (e.g. an
// illustrative "alpha" resource catalog) implements to plug into the chant
// CLI, and generates the standard CLI commands from it.
//
// Grounded on the teacher's domain package: Domain's Name/Version/Builder/
// Linter/Initializer/Validator shape, the OptionalImporter/Lister/Grapher
// extension pattern, and CreateRootCommand's use of
// github.com/lex00/wetwire-core-go/cmd + github.com/spf13/cobra to turn an
// implementation into a full CLI without per-lexicon command boilerplate.
// Renamed Domain -> Lexicon to match this repo's vocabulary; Builder/Linter
// now operate over chant's multi-lexicon EntityGraph/BuildResult/
// Diagnostic types instead of a single AWS-specific template.
package lexicon

import (
	corecmd "github.com/lex00/wetwire-core-go/cmd"
	"github.com/spf13/cobra"

	"github.com/INTENTIUS/chant-sub001"
)

// Lexicon is a named, versioned contributor of resource types, a
// Serializer, and (optionally) lint rules, discoverable packages, and CLI
// extensions.
type Lexicon interface {
	Name() string
	Version() string
	Serializer() chant.Serializer
	Builder() corecmd.Builder
	Linter() corecmd.Linter
}

// OptionalGrapher is implemented by a Lexicon that wants a "graph"
// subcommand; a Lexicon that does not implement it gets no graph command.
type OptionalGrapher interface {
	Grapher() Grapher
}

// Grapher renders a dependency graph for packages.
type Grapher interface {
	Graph(packages []string, format string) error
}

// CreateRootCommand builds a cobra root command exposing build/lint for l,
// plus graph if l implements OptionalGrapher.
func CreateRootCommand(l Lexicon) *cobra.Command {
	root := corecmd.NewRootCommand("chant-"+l.Name(), "Infrastructure as code for "+l.Name())

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("chant-" + l.Name() + " " + l.Version())
		},
	})

	root.AddCommand(corecmd.NewBuildCommand(l.Builder()))
	root.AddCommand(corecmd.NewLintCommand(l.Linter()))

	if grapher, ok := l.(OptionalGrapher); ok {
		root.AddCommand(newGraphCommand(grapher.Grapher()))
	}

	return root
}

// Run builds and executes a CLI for l.
func Run(l Lexicon) error {
	return CreateRootCommand(l).Execute()
}

func newGraphCommand(g Grapher) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "graph [packages...]",
		Short: "Generate a dependency graph",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.Graph(args, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "dot", "Output format: dot, mermaid")
	return cmd
}
