package lint

import (
	"fmt"
	"go/ast"
	"go/token"
	"strings"

	"github.com/INTENTIUS/chant-sub001"
)

// This file keeps four of the teacher's WAW-prefixed style rules, rewritten
// against this package's Context instead of a bare *ast.File/*token.FileSet
// pair, as a worked example of a lexicon contributing its own style rules
// into the layered rule set (spec.md §4.5 step 1: "lexicon-contributed
// rules"). They are registered under the "style" plugin name rather than
// folded into DefaultRules, matching their origin as domain-specific
// conventions rather than core structural/evaluation rules.

// hardcodedPseudoRef flags a literal string matching a well-known
// pseudo-reference value that should be a named constant instead,
// generalizing the teacher's HardcodedPseudoParameter (WAW001) beyond
// AWS's own pseudo-parameter set.
type hardcodedPseudoRef struct{ Values map[string]string }

func (hardcodedPseudoRef) ID() string                     { return "STY001" }
func (hardcodedPseudoRef) DefaultSeverity() chant.Severity { return chant.SeverityWarning }
func (hardcodedPseudoRef) Category() Category              { return CategoryStyle }

func (r hardcodedPseudoRef) Check(ctx Context, _ map[string]any) []chant.Diagnostic {
	var diags []chant.Diagnostic
	ast.Inspect(ctx.File, func(n ast.Node) bool {
		lit, ok := n.(*ast.BasicLit)
		if !ok || lit.Kind != token.STRING {
			return true
		}
		value := strings.Trim(lit.Value, `"`)
		if constant, found := r.Values[value]; found {
			pos := ctx.Fset.Position(lit.Pos())
			diags = append(diags, diag(pos, fmt.Sprintf("use %s instead of %q", constant, value)))
		}
		return true
	})
	return diags
}

// duplicateDeclarableName flags two package-level vars declared with the
// same name in one file (WAW003 adapted: Go's own compiler already rejects
// two top-level declarations sharing a name within a package, so the only
// case left to catch is within a single file's own var specs before that
// point; ctx.Entities gates the check to files being linted as part of a
// discovered project, not bare syntax checks).
type duplicateDeclarableName struct{}

func (duplicateDeclarableName) ID() string                     { return "STY003" }
func (duplicateDeclarableName) DefaultSeverity() chant.Severity { return chant.SeverityError }
func (duplicateDeclarableName) Category() Category              { return CategoryStyle }

func (duplicateDeclarableName) Check(ctx Context, _ map[string]any) []chant.Diagnostic {
	if ctx.Entities == nil {
		return nil
	}
	counts := make(map[string]int)
	for _, decls := range splitNames(ctx.File) {
		counts[decls]++
	}
	var diags []chant.Diagnostic
	for name, n := range counts {
		if n > 1 {
			diags = append(diags, chant.Diagnostic{File: ctx.FilePath, Message: fmt.Sprintf("duplicate declaration of %q in this file", name)})
		}
	}
	return diags
}

func splitNames(file *ast.File) []string {
	var names []string
	for _, decl := range file.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.VAR {
			continue
		}
		for _, spec := range genDecl.Specs {
			if vs, ok := spec.(*ast.ValueSpec); ok {
				for _, n := range vs.Names {
					names = append(names, n.Name)
				}
			}
		}
	}
	return names
}

// avoidPointerLiteral flags `&lexicon.Type{...}` where a value literal
// would do, generalizing the teacher's WAW017 (avoid pointer assignments —
// use value types) beyond AWS resource types.
type avoidPointerLiteral struct{ LexiconPackages map[string]string }

func (avoidPointerLiteral) ID() string                     { return "STY017" }
func (avoidPointerLiteral) DefaultSeverity() chant.Severity { return chant.SeverityInfo }
func (avoidPointerLiteral) Category() Category              { return CategoryStyle }

func (r avoidPointerLiteral) Check(ctx Context, _ map[string]any) []chant.Diagnostic {
	var diags []chant.Diagnostic
	ast.Inspect(ctx.File, func(n ast.Node) bool {
		u, ok := n.(*ast.UnaryExpr)
		if !ok || u.Op != token.AND {
			return true
		}
		lit, ok := u.X.(*ast.CompositeLit)
		if !ok {
			return true
		}
		sel, ok := lit.Type.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		pkg, ok := sel.X.(*ast.Ident)
		if !ok {
			return true
		}
		if _, known := r.LexiconPackages[pkg.Name]; known {
			pos := ctx.Fset.Position(u.Pos())
			diags = append(diags, diag(pos, "prefer a value literal over a pointer to a lexicon-typed literal"))
		}
		return true
	})
	return diags
}

// preferJSONLiteral flags a bare map[string]any{...} literal passed where a
// typed lexicon document value is expected, generalizing the teacher's
// WAW018 (use Json{} instead of map[string]any{} for cleaner syntax).
type preferJSONLiteral struct{}

func (preferJSONLiteral) ID() string                     { return "STY018" }
func (preferJSONLiteral) DefaultSeverity() chant.Severity { return chant.SeverityInfo }
func (preferJSONLiteral) Category() Category              { return CategoryStyle }

func (preferJSONLiteral) Check(ctx Context, _ map[string]any) []chant.Diagnostic {
	var diags []chant.Diagnostic
	ast.Inspect(ctx.File, func(n ast.Node) bool {
		kv, ok := n.(*ast.KeyValueExpr)
		if !ok {
			return true
		}
		key, ok := kv.Key.(*ast.Ident)
		if !ok || !strings.Contains(strings.ToLower(key.Name), "policy") {
			return true
		}
		mt, ok := kv.Value.(*ast.CompositeLit)
		if !ok {
			return true
		}
		if _, isMap := mt.Type.(*ast.MapType); isMap {
			pos := ctx.Fset.Position(mt.Pos())
			diags = append(diags, diag(pos, "prefer a typed document value over an inline map literal for policy-like fields"))
		}
		return true
	})
	return diags
}

// StyleRules returns the illustrative lexicon-contributed rule set,
// registered under the plugin name "style" so a project opts in via
// Config.Plugins rather than getting it unconditionally.
func StyleRules(lexiconPackages map[string]string) []Rule {
	return []Rule{
		hardcodedPseudoRef{Values: map[string]string{
			"project.Region":  "ProjectRegion",
			"project.Account": "ProjectAccount",
		}},
		duplicateDeclarableName{},
		avoidPointerLiteral{LexiconPackages: lexiconPackages},
		preferJSONLiteral{},
	}
}

func init() {
	RegisterPlugin("style", StyleRules(nil)...)
}
