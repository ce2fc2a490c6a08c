// Package build implements the Build Driver (spec.md §4.3): the pipeline
// that turns one project directory into a BuildResult, recursing into child
// projects, partitioning entities by lexicon, resolving cross-lexicon
// outputs, and invoking each lexicon's Serializer.
//
// Grounded on the teacher's internal/template.Builder.Build, which runs the
// analogous single-lexicon pipeline (topological sort, then per-resource
// serialize, then assemble a Template); generalized here to multiple
// lexicons, child-project recursion, and the cross-lexicon output merge the
// teacher never needed.
package build

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/INTENTIUS/chant-sub001"
	"github.com/INTENTIUS/chant-sub001/internal/crossref"
	"github.com/INTENTIUS/chant-sub001/internal/depgraph"
	"github.com/INTENTIUS/chant-sub001/internal/discover"
)

// Driver owns the registered serializers and discovery configuration shared
// across a build and any child-project recursion it triggers.
type Driver struct {
	Serializers     map[string]chant.Serializer
	LexiconPackages map[string]string
}

// New constructs a Driver with no serializers registered; call Register to
// add one per lexicon before calling Build.
func New(lexiconPackages map[string]string) *Driver {
	return &Driver{
		Serializers:     make(map[string]chant.Serializer),
		LexiconPackages: lexiconPackages,
	}
}

// Register wires a Serializer into the driver under its own Name().
func (d *Driver) Register(s chant.Serializer) {
	d.Serializers[s.Name()] = s
}

// Build runs the full pipeline against path, with a project directory
// containing the declarable source files to discover.
func (d *Driver) Build(path string) *chant.BuildResult {
	return d.build(path, nil)
}

func (d *Driver) build(path string, stack []string) *chant.BuildResult {
	result := chant.EmptyBuildResult()

	absPath, err := filepath.Abs(path)
	if err != nil {
		result.Errors = append(result.Errors, err)
		return result
	}

	// Step 1: Discovery.
	graph, err := discover.Discover(discover.Options{
		Dirs:            []string{absPath},
		LexiconPackages: d.LexiconPackages,
	})
	if err != nil {
		result.Errors = append(result.Errors, err)
		return result
	}
	for _, derr := range graph.Errors {
		result.Errors = append(result.Errors, derr)
	}
	result.SourceFileCount = len(graph.SourceFiles)

	if len(graph.Entities) == 0 {
		empty := chant.EmptyBuildResult()
		empty.Errors = result.Errors
		empty.SourceFileCount = result.SourceFileCount
		return empty
	}

	// Step 2: topological sort; sort errors are build errors, not aborts.
	order, sortErr := depgraph.Sort(graph.Dependencies, graph.Order)
	if sortErr != nil {
		result.Errors = append(result.Errors, sortErr)
		order = graph.Order // best-effort: fall back to discovery order
	}

	// Step 3: recurse into child projects, guarding against circular nesting.
	childStack := append(append([]string(nil), stack...), absPath)
	for _, name := range order {
		entity := graph.Entities[name]
		if entity.Kind != chant.KindChildProject {
			continue
		}
		childPath, _ := entity.Attrs["path"].(string)
		if childPath == "" {
			continue
		}
		resolvedChild, err := filepath.Abs(filepath.Join(absPath, childPath))
		if err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		if contains(stack, resolvedChild) || resolvedChild == absPath {
			result.Errors = append(result.Errors, &chant.BuildError{
				EntityName: name,
				Message:    fmt.Sprintf("Circular nested stack at %s", resolvedChild),
			})
			continue
		}
		childResult := d.build(resolvedChild, childStack)
		for k, v := range childResult.Outputs {
			result.Outputs[k] = v
		}
		for k, v := range childResult.Entities {
			result.Entities[k] = v
		}
		result.Errors = append(result.Errors, childResult.Errors...)
		result.Warnings = append(result.Warnings, childResult.Warnings...)
	}

	// Step 4: partition entities by lexicon. Property entities join their
	// owning lexicon's partition; the serializer inlines them.
	byLexicon := make(map[string]map[string]chant.Declarable)
	for _, name := range order {
		entity := graph.Entities[name]
		if entity.Kind == chant.KindChildProject {
			continue
		}
		result.Entities[name] = entity
		if byLexicon[entity.Lexicon] == nil {
			byLexicon[entity.Lexicon] = make(map[string]chant.Declarable)
		}
		byLexicon[entity.Lexicon][name] = entity
	}

	// Step 5: explicit outputs, collected by walking every entity's
	// attribute tree (and any nested props subtree) for a LexiconOutput
	// value materialized by discovery from a chant.Output(...) call.
	var explicit []chant.LexiconOutput
	for _, name := range graph.SortedEntityNames() {
		collectExplicitOutputs(graph.Entities[name].Attrs, name, graph, &explicit)
	}

	// Step 6: cross-lexicon auto-detection.
	auto := crossref.Detect(graph)

	// Step 7: merge, explicit wins.
	outputs := crossref.Merge(explicit, auto)

	// Step 8: group outputs by source lexicon and serialize each partition.
	outputsByLexicon := make(map[string][]chant.LexiconOutput)
	for _, o := range outputs {
		outputsByLexicon[o.SourceLexicon] = append(outputsByLexicon[o.SourceLexicon], o)
	}

	lexiconNames := make([]string, 0, len(byLexicon))
	for lex := range byLexicon {
		lexiconNames = append(lexiconNames, lex)
	}
	sort.Strings(lexiconNames)

	manifestOutputs := make(map[string]chant.ManifestOutput, len(outputs))
	for _, o := range outputs {
		manifestOutputs[o.OutputName] = chant.ManifestOutput{
			Source:    o.SourceLexicon,
			Entity:    o.SourceEntity,
			Attribute: o.SourceAttribute,
		}
	}

	for _, lex := range lexiconNames {
		serializer, ok := d.Serializers[lex]
		if !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("no serializer registered for lexicon %q", lex))
			continue
		}
		artifact, serErr := serializer.Serialize(byLexicon[lex], outputsByLexicon[lex])
		if serErr != nil {
			result.Errors = append(result.Errors, serErr)
			continue
		}
		result.Outputs[lex] = artifact
	}

	// Step 9: deploy order.
	deployOrder := crossref.DeployOrder(lexiconNames, outputs)

	result.Manifest = chant.Manifest{
		Lexicons:    lexiconNames,
		Outputs:     manifestOutputs,
		DeployOrder: deployOrder,
	}

	return result
}

// collectExplicitOutputs recurses into an entity's attribute tree, recording
// every LexiconOutput found. A missing SourceEntity/SourceParent is resolved
// to entityName, the entity owning the tree being walked; SourceLexicon is
// always backfilled from the referenced source entity itself, since a
// chant.Output(...) call only knows the AttrRef it was built from, not which
// lexicon declared that ref's target. Per spec.md §4.3 step 5.
func collectExplicitOutputs(v any, entityName string, graph *chant.EntityGraph, explicit *[]chant.LexiconOutput) {
	switch val := v.(type) {
	case chant.LexiconOutput:
		if val.SourceEntity == "" {
			val.SourceEntity = entityName
		}
		if val.SourceParent == "" {
			val.SourceParent = entityName
		}
		if source, ok := graph.Entities[val.SourceEntity]; ok {
			val.SourceLexicon = source.Lexicon
		}
		val.Explicit = true
		*explicit = append(*explicit, val)

	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectExplicitOutputs(val[k], entityName, graph, explicit)
		}

	case []any:
		for _, elt := range val {
			collectExplicitOutputs(elt, entityName, graph, explicit)
		}
	}
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
