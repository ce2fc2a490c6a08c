// Package crossref implements the Cross-Lexicon Output Resolver (spec.md
// §4.4): auto-detecting, for every entity whose attributes reference an
// entity in a different lexicon, a synthesized LexiconOutput, while
// deferring to any explicit output naming the same (parent, attribute) pair.
//
// There is no teacher analogue (the teacher targets a single lexicon, AWS,
// so nothing ever crosses a lexicon boundary); this package is new code,
// written in the attribute-tree-walking idiom the teacher uses in
// internal/discover's findDepsWithVarRefs, generalized from "walk a
// composite literal's AST" to "walk an already-materialized Attrs tree".
package crossref

import (
	"sort"

	"github.com/INTENTIUS/chant-sub001"
)

// Detect walks every entity in graph and returns the auto-detected
// LexiconOutputs for attribute references that cross a lexicon boundary.
// Outputs are returned in a deterministic order: by referenced (source)
// entity name, then by attribute name, both ascending.
func Detect(graph *chant.EntityGraph) []chant.LexiconOutput {
	seen := make(map[string]bool)
	var outputs []chant.LexiconOutput

	for _, name := range graph.SortedEntityNames() {
		entity := graph.Entities[name]
		walk(entity.Attrs, entity.Lexicon, graph, seen, &outputs)
	}

	sort.Slice(outputs, func(i, j int) bool {
		if outputs[i].SourceParent != outputs[j].SourceParent {
			return outputs[i].SourceParent < outputs[j].SourceParent
		}
		return outputs[i].SourceAttribute < outputs[j].SourceAttribute
	})
	return outputs
}

func walk(v any, consumerLexicon string, graph *chant.EntityGraph, seen map[string]bool, outputs *[]chant.LexiconOutput) {
	switch val := v.(type) {
	case chant.AttrRef:
		parent, ok := val.Resolve(graph)
		if !ok {
			return // dangling reference; not this resolver's concern
		}
		if parent.Lexicon == consumerLexicon {
			return // same-lexicon consumer, never auto-detected
		}
		if val.Attribute == "" {
			return // whole-entity reference, not an attribute export
		}

		key := val.Parent + "\x00" + val.Attribute
		if seen[key] {
			return
		}
		seen[key] = true

		*outputs = append(*outputs, chant.LexiconOutput{
			SourceLexicon:   parent.Lexicon,
			SourceEntity:    val.Parent,
			SourceAttribute: val.Attribute,
			SourceParent:    val.Parent,
			OutputName:      chant.AutoOutputName(val.Parent, val.Attribute),
			Explicit:        false,
		})

	case chant.LexiconOutput:
		// Explicit outputs are never re-auto-detected; record the dedup key
		// so a later auto-detected pass for the same (parent, attribute)
		// defers to it, but do not descend further.
		seen[val.DedupKey()] = true

	case map[string]any:
		for _, key := range sortedKeys(val) {
			walk(val[key], consumerLexicon, graph, seen, outputs)
		}

	case []any:
		for _, elt := range val {
			walk(elt, consumerLexicon, graph, seen, outputs)
		}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge combines explicit outputs (collected by the build driver from the
// entities' attribute trees) with
// auto-detected ones, letting any explicit output silently win over an
// auto-detected output sharing its DedupKey, per spec.md §4.4.
func Merge(explicit, auto []chant.LexiconOutput) []chant.LexiconOutput {
	byKey := make(map[string]chant.LexiconOutput, len(explicit)+len(auto))
	var order []string

	for _, o := range explicit {
		key := o.DedupKey()
		if _, exists := byKey[key]; !exists {
			order = append(order, key)
		}
		byKey[key] = o
	}
	for _, o := range auto {
		key := o.DedupKey()
		if existing, exists := byKey[key]; exists {
			if existing.Explicit {
				continue // explicit already wins this key
			}
		} else {
			order = append(order, key)
		}
		byKey[key] = o
	}

	merged := make([]chant.LexiconOutput, 0, len(order))
	for _, key := range order {
		merged = append(merged, byKey[key])
	}
	return merged
}

// DeployOrder computes the deploy ordering rule from spec.md §4.4: lexicon Y
// depends on lexicon X iff some output sources from X and some entity
// outside X consumes it; approximated, per spec, as every other lexicon
// depending on any lexicon that sources at least one output.
func DeployOrder(lexicons []string, outputs []chant.LexiconOutput) []string {
	sourcing := make(map[string]bool)
	for _, o := range outputs {
		sourcing[o.SourceLexicon] = true
	}

	sorted := append([]string(nil), lexicons...)
	sort.Slice(sorted, func(i, j int) bool {
		iSources, jSources := sourcing[sorted[i]], sourcing[sorted[j]]
		if iSources != jSources {
			return iSources // sourcing lexicons deploy first
		}
		return sorted[i] < sorted[j]
	})
	return sorted
}
