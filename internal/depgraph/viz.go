package depgraph

import (
	"io"
	"strings"

	"github.com/emicklei/dot"

	"github.com/INTENTIUS/chant-sub001"
)

// Format selects the rendering format for Generate.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for GitHub/markdown rendering.
	FormatMermaid Format = "mermaid"
)

// Generator renders an EntityGraph's dependency edges as a visual graph.
type Generator struct {
	// Format selects dot or mermaid output. Defaults to FormatDOT.
	Format Format
	// ClusterByLexicon groups nodes into subgraphs by owning lexicon, useful
	// once a project spans more than one lexicon. A lexicon with a single
	// entity is not put in a subgraph.
	ClusterByLexicon bool
}

// Generate writes the rendered graph for g to w.
func (g *Generator) Generate(graph *chant.EntityGraph, w io.Writer) error {
	built := g.buildGraph(graph)

	format := g.Format
	if format == "" {
		format = FormatDOT
	}

	var output string
	if format == FormatMermaid {
		output = dot.MermaidGraph(built, dot.MermaidTopToBottom)
	} else {
		output = built.String()
	}

	_, err := w.Write([]byte(output))
	return err
}

// GenerateString is a convenience wrapper returning the rendered graph as a string.
func (g *Generator) GenerateString(graph *chant.EntityGraph) (string, error) {
	var sb strings.Builder
	if err := g.Generate(graph, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (g *Generator) buildGraph(graph *chant.EntityGraph) *dot.Graph {
	built := dot.NewGraph(dot.Directed)
	built.Attr("rankdir", "TB")

	built.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})
	built.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	if g.ClusterByLexicon {
		g.addClusteredNodes(built, graph)
	} else {
		g.addNodes(built, graph)
	}

	for name, deps := range graph.Dependencies {
		if _, ok := graph.Entities[name]; !ok {
			continue
		}
		for _, dep := range deps {
			if _, ok := graph.Entities[dep]; !ok {
				continue
			}
			from := built.Node(name)
			to := built.Node(dep)
			e := built.Edge(from, to)
			if graph.Entities[name].Lexicon != graph.Entities[dep].Lexicon {
				e.Attr("color", "blue")
			}
		}
	}

	return built
}

func (g *Generator) addNodes(built *dot.Graph, graph *chant.EntityGraph) {
	for _, name := range graph.SortedEntityNames() {
		d := graph.Entities[name]
		n := built.Node(name)
		n.Label(name + "\\n[" + d.EntityType + "]")
	}
}

func (g *Generator) addClusteredNodes(built *dot.Graph, graph *chant.EntityGraph) {
	byLexicon := make(map[string][]string)
	for _, name := range graph.SortedEntityNames() {
		d := graph.Entities[name]
		byLexicon[d.Lexicon] = append(byLexicon[d.Lexicon], name)
	}

	lexicons := make([]string, 0, len(byLexicon))
	for lex := range byLexicon {
		lexicons = append(lexicons, lex)
	}
	sortStrings(lexicons)

	for _, lex := range lexicons {
		names := byLexicon[lex]
		if len(names) > 1 {
			cluster := built.Subgraph("cluster_"+lex, dot.ClusterOption{})
			cluster.Attr("label", lex)
			cluster.Attr("style", "rounded")
			cluster.Attr("bgcolor", "lightyellow")
			for _, name := range names {
				n := cluster.Node(name)
				n.Label(name + "\\n[" + graph.Entities[name].EntityType + "]")
			}
		} else {
			for _, name := range names {
				n := built.Node(name)
				n.Label(name + "\\n[" + graph.Entities[name].EntityType + "]")
			}
		}
	}
}
