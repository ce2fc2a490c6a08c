// Package serializer provides the default Serializer Contract (spec.md
// §4.7, §6.6) implementations: lexicon-agnostic JSON and YAML renderers
// over a Declarable's Attrs tree.
//
// Grounded on the teacher's internal/serialize.Resource, which walks a Go
// struct via reflection converting PascalCase fields, zero-value omission,
// and AttrRef-style GetAtt fields into a JSON-ready map. Attrs here are
// already a map[string]any (populated by discover's AST walk) rather than
// a live struct, so this package walks that map directly instead of using
// reflection, but keeps the same value-shaping rules: recurse into nested
// maps/slices, omit nils, and turn a symbolic reference into its rendered
// form rather than leaking the internal AttrRef/LexiconOutput types.
package serializer

import (
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/INTENTIUS/chant-sub001"
)

// JSONSerializer renders a lexicon's partition as an indented JSON document
// keyed by entity name, every AttrRef rewritten to a "Ref::Parent.Attribute"
// placeholder and every LexiconOutput to "Output::Name". Concrete lexicons
// are expected to provide their own Serializer for real wire formats; this
// one exists so a project can build and inspect output before any lexicon
// plugin is wired in, and as the illustrative fixtures' shared base.
type JSONSerializer struct {
	// LexiconName is returned by Name().
	LexiconName string
	// Prefix is returned by RulePrefix().
	Prefix string
}

func (s JSONSerializer) Name() string       { return s.LexiconName }
func (s JSONSerializer) RulePrefix() string { return s.Prefix }

// Serialize renders entities and outputs as a single JSON object:
// {"entities": {name: {...}}, "outputs": {outputName: {...}}}.
func (s JSONSerializer) Serialize(entities map[string]chant.Declarable, outputs []chant.LexiconOutput) (any, error) {
	doc := buildDocument(entities, outputs)
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// YAMLSerializer is the YAML twin of JSONSerializer, grounded on the
// teacher's internal/template.ToYAML (both template.Builder's JSON and YAML
// output walk the same built template value; here both serializers walk the
// same buildDocument value instead of each re-deriving it).
type YAMLSerializer struct {
	LexiconName string
	Prefix      string
}

func (s YAMLSerializer) Name() string       { return s.LexiconName }
func (s YAMLSerializer) RulePrefix() string { return s.Prefix }

func (s YAMLSerializer) Serialize(entities map[string]chant.Declarable, outputs []chant.LexiconOutput) (any, error) {
	doc := buildDocument(entities, outputs)
	b, err := yaml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func buildDocument(entities map[string]chant.Declarable, outputs []chant.LexiconOutput) map[string]any {
	names := make([]string, 0, len(entities))
	for name := range entities {
		names = append(names, name)
	}
	sort.Strings(names)

	renderedEntities := make(map[string]any, len(entities))
	for _, name := range names {
		d := entities[name]
		renderedEntities[name] = map[string]any{
			"type":  d.EntityType,
			"props": renderAttrs(d.Attrs),
		}
	}

	renderedOutputs := make(map[string]any, len(outputs))
	for _, o := range outputs {
		renderedOutputs[o.OutputName] = map[string]any{
			"value":    fmt.Sprintf("Ref::%s.%s", o.SourceParent, o.SourceAttribute),
			"explicit": o.Explicit,
		}
	}

	return map[string]any{"entities": renderedEntities, "outputs": renderedOutputs}
}

// renderAttrs strips internal bookkeeping keys (the "__file"/"__line"
// discovery metadata) and nil values, and recursively rewrites symbolic references into
// their JSON-safe rendered form.
func renderAttrs(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		if k == "__file" || k == "__line" {
			continue
		}
		if v == nil {
			continue
		}
		out[k] = renderValue(v)
	}
	return out
}

func renderValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case chant.AttrRef:
		if val.Attribute == "" {
			return fmt.Sprintf("Ref::%s", val.Parent)
		}
		return fmt.Sprintf("Ref::%s.%s", val.Parent, val.Attribute)
	case chant.LexiconOutput:
		return fmt.Sprintf("Output::%s", val.OutputName)
	case map[string]any:
		return renderAttrs(val)
	case []any:
		out := make([]any, len(val))
		for i, elt := range val {
			out[i] = renderValue(elt)
		}
		return out
	default:
		return val
	}
}
