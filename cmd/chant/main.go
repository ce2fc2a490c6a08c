// Command chant is the thin CLI harness over the core pipeline: discovery,
// build, and lint, wired through internal/lexicon's command generation the
// same way the teacher's cmd/wetwire-aws wires domain.AwsDomain. The CLI
// surface itself is explicitly out of scope (spec.md §1); this binary
// exists to demonstrate the two illustrative lexicons end to end, not as a
// deliverable interface.
package main

import (
	"fmt"
	"os"

	corecmd "github.com/lex00/wetwire-core-go/cmd"

	"github.com/INTENTIUS/chant-sub001"
	"github.com/INTENTIUS/chant-sub001/examples/lexicons/alpha"
	"github.com/INTENTIUS/chant-sub001/examples/lexicons/github"
	"github.com/INTENTIUS/chant-sub001/internal/build"
	"github.com/INTENTIUS/chant-sub001/internal/depgraph"
	"github.com/INTENTIUS/chant-sub001/internal/discover"
	"github.com/INTENTIUS/chant-sub001/internal/lexicon"
	"github.com/INTENTIUS/chant-sub001/internal/lint"
)

const version = "0.1.0"

// metaLexicon aggregates every illustrative lexicon registered with this
// binary into one CLI: its Builder/Linter resolve references across all of
// them, and it adds the "graph" command the individual lexicons don't
// bother exposing themselves.
type metaLexicon struct {
	packages map[string]string
	driver   *build.Driver
}

func newMetaLexicon() metaLexicon {
	packages := map[string]string{"alpha": "alpha", "github": "github"}
	driver := build.New(packages)
	driver.Register(alpha.Lexicon{}.Serializer())
	driver.Register(github.Lexicon{}.Serializer())
	return metaLexicon{packages: packages, driver: driver}
}

func (m metaLexicon) Name() string    { return "chant" }
func (m metaLexicon) Version() string { return version }

func (m metaLexicon) Serializer() chant.Serializer { return alpha.Lexicon{}.Serializer() }

func (m metaLexicon) Builder() corecmd.Builder {
	return lexicon.DriverBuilder{Driver: m.driver}
}

func (m metaLexicon) Linter() corecmd.Linter {
	eng := lint.NewEngine(lint.Config{Plugins: []string{"style"}}, nil, nil)
	return lexicon.EngineLinter{Engine: eng, LexiconPackages: m.packages}
}

func (m metaLexicon) Grapher() lexicon.Grapher { return graphAdapter{packages: m.packages} }

type graphAdapter struct {
	packages map[string]string
}

func (g graphAdapter) Graph(paths []string, format string) error {
	graph, err := discover.Discover(discover.Options{Dirs: paths, LexiconPackages: g.packages})
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	gen := depgraph.Generator{ClusterByLexicon: true}
	switch format {
	case "mermaid":
		gen.Format = depgraph.FormatMermaid
	default:
		gen.Format = depgraph.FormatDOT
	}

	out, err := gen.GenerateString(graph)
	if err != nil {
		return fmt.Errorf("rendering graph: %w", err)
	}
	fmt.Println(out)
	return nil
}

var _ lexicon.OptionalGrapher = metaLexicon{}

func main() {
	if err := lexicon.Run(newMetaLexicon()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
