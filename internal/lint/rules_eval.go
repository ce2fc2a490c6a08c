package lint

import (
	"fmt"
	"go/ast"
	"go/token"

	"github.com/INTENTIUS/chant-sub001"
)

// This file adapts the EVL-prefixed static-evaluability rules from spec.md
// §4.6. The source language's rules target a dynamically-typed runtime
// where "is this statically evaluable" is a meaningful, non-trivial
// question; Go's compiler already rejects most of what these rules forbid
// (control flow can't appear inside a composite literal, computed property
// access doesn't exist on structs). Each rule below targets the residual
// slice of the concern that Go *does* allow and the catalog still wants
// caught: non-constant call arguments, loops textually surrounding a
// declarable var block, dynamic map-key expressions, and so on.

// nonLiteralExpression flags a field value inside a lexicon-typed composite
// literal that is a binary operation, the computed expression Go allows in
// that position (EVL001). Other expression forms, including arbitrary
// calls, are not flagged.
type nonLiteralExpression struct{ LexiconPackages map[string]string }

func (nonLiteralExpression) ID() string                     { return "EVL001" }
func (nonLiteralExpression) DefaultSeverity() chant.Severity { return chant.SeverityError }
func (nonLiteralExpression) Category() Category              { return CategoryEvaluation }

func (r nonLiteralExpression) Check(ctx Context, _ map[string]any) []chant.Diagnostic {
	var diags []chant.Diagnostic
	ast.Inspect(ctx.File, func(n ast.Node) bool {
		lit, ok := n.(*ast.CompositeLit)
		if !ok || !r.isLexiconLit(lit) {
			return true
		}
		for _, elt := range lit.Elts {
			kv, ok := elt.(*ast.KeyValueExpr)
			if !ok {
				continue
			}
			if be, ok := kv.Value.(*ast.BinaryExpr); ok {
				pos := ctx.Fset.Position(be.Pos())
				diags = append(diags, diag(pos, "field value must be statically evaluable, not a computed expression"))
			}
		}
		return true
	})
	return diags
}

func (r nonLiteralExpression) isLexiconLit(lit *ast.CompositeLit) bool {
	sel, ok := lit.Type.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	pkg, ok := sel.X.(*ast.Ident)
	if !ok {
		return false
	}
	_, known := r.LexiconPackages[pkg.Name]
	return known
}

// controlFlowResource forbids a for/if/switch statement whose body directly
// contains a declarable var declaration (EVL002).
type controlFlowResource struct{}

func (controlFlowResource) ID() string                     { return "EVL002" }
func (controlFlowResource) DefaultSeverity() chant.Severity { return chant.SeverityError }
func (controlFlowResource) Category() Category              { return CategoryEvaluation }

func (controlFlowResource) Check(ctx Context, _ map[string]any) []chant.Diagnostic {
	var diags []chant.Diagnostic
	var body *ast.BlockStmt
	var kind string

	report := func(pos token.Pos) {
		p := ctx.Fset.Position(pos)
		diags = append(diags, diag(p, fmt.Sprintf("declarable var inside %s is not statically evaluable", kind)))
	}

	ast.Inspect(ctx.File, func(n ast.Node) bool {
		switch s := n.(type) {
		case *ast.ForStmt:
			body, kind = s.Body, "a loop"
		case *ast.IfStmt:
			body, kind = s.Body, "a conditional"
		case *ast.SwitchStmt:
			body, kind = s.Body, "a switch"
		default:
			return true
		}
		for _, stmt := range body.List {
			if decl, ok := stmt.(*ast.DeclStmt); ok {
				if genDecl, ok := decl.Decl.(*ast.GenDecl); ok && genDecl.Tok == token.VAR {
					report(genDecl.Pos())
				}
			}
		}
		return true
	})
	return diags
}

// dynamicPropertyAccess forbids an IndexExpr whose index is neither a
// literal nor a plain identifier, the Go structural analogue of "computed property access must use a
// literal key" (EVL003).
type dynamicPropertyAccess struct{}

func (dynamicPropertyAccess) ID() string                     { return "EVL003" }
func (dynamicPropertyAccess) DefaultSeverity() chant.Severity { return chant.SeverityError }
func (dynamicPropertyAccess) Category() Category              { return CategoryEvaluation }

func (dynamicPropertyAccess) Check(ctx Context, _ map[string]any) []chant.Diagnostic {
	var diags []chant.Diagnostic
	ast.Inspect(ctx.File, func(n ast.Node) bool {
		idx, ok := n.(*ast.IndexExpr)
		if !ok {
			return true
		}
		switch idx.Index.(type) {
		case *ast.BasicLit, *ast.Ident:
			return true
		}
		pos := ctx.Fset.Position(idx.Pos())
		diags = append(diags, diag(pos, "index expression must use a literal or constant key"))
		return true
	})
	return diags
}

// spreadNonConst requires the source of a slice/map "spread" (in Go, the
// `...` variadic-expansion of a prior value) to be a plain identifier
// naming a const/var, not an inline call result (EVL004).
type spreadNonConst struct{}

func (spreadNonConst) ID() string                     { return "EVL004" }
func (spreadNonConst) DefaultSeverity() chant.Severity { return chant.SeverityWarning }
func (spreadNonConst) Category() Category              { return CategoryEvaluation }

func (spreadNonConst) Check(ctx Context, _ map[string]any) []chant.Diagnostic {
	var diags []chant.Diagnostic
	ast.Inspect(ctx.File, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok || !call.Ellipsis.IsValid() {
			return true
		}
		if len(call.Args) == 0 {
			return true
		}
		last := call.Args[len(call.Args)-1]
		if _, ok := last.(*ast.Ident); ok {
			return true
		}
		if _, ok := last.(*ast.SelectorExpr); ok {
			return true
		}
		pos := ctx.Fset.Position(last.Pos())
		diags = append(diags, diag(pos, "spread source must be a traceable identifier, not an inline expression"))
		return true
	})
	return diags
}

// resourceBlockBody requires a function literal passed where a declarable
// constructor callback is expected to have a single expression body, the Go
// analogue of "arrow function callbacks must have an expression body, not a
// block" (EVL005). Go function literals always have a block body, so this
// rule is satisfied by requiring the block contain exactly one return
// statement and nothing else.
type resourceBlockBody struct{}

func (resourceBlockBody) ID() string                     { return "EVL005" }
func (resourceBlockBody) DefaultSeverity() chant.Severity { return chant.SeverityWarning }
func (resourceBlockBody) Category() Category              { return CategoryEvaluation }

func (resourceBlockBody) Check(ctx Context, _ map[string]any) []chant.Diagnostic {
	var diags []chant.Diagnostic
	ast.Inspect(ctx.File, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		for _, arg := range call.Args {
			fl, ok := arg.(*ast.FuncLit)
			if !ok {
				continue
			}
			if len(fl.Body.List) != 1 {
				pos := ctx.Fset.Position(fl.Pos())
				diags = append(diags, diag(pos, "callback body should be a single return expression"))
				continue
			}
			if _, ok := fl.Body.List[0].(*ast.ReturnStmt); !ok {
				pos := ctx.Fset.Position(fl.Pos())
				diags = append(diags, diag(pos, "callback body should be a single return expression"))
			}
		}
		return true
	})
	return diags
}

// barrelUsage requires a package-level `Barrel` var to be initialized by
// the Go realization of the barrel factory call, `barrel.NewTable(...)`,
// exactly in that call shape (EVL006). It does not count how many Barrel
// vars a package declares.
type barrelUsage struct{}

func (barrelUsage) ID() string                     { return "EVL006" }
func (barrelUsage) DefaultSeverity() chant.Severity { return chant.SeverityError }
func (barrelUsage) Category() Category              { return CategoryEvaluation }

func (barrelUsage) Check(ctx Context, _ map[string]any) []chant.Diagnostic {
	var diags []chant.Diagnostic
	ast.Inspect(ctx.File, func(n ast.Node) bool {
		vs, ok := n.(*ast.ValueSpec)
		if !ok || len(vs.Names) != 1 || vs.Names[0].Name != "Barrel" || len(vs.Values) != 1 {
			return true
		}
		call, ok := vs.Values[0].(*ast.CallExpr)
		if !ok {
			pos := ctx.Fset.Position(vs.Pos())
			diags = append(diags, diag(pos, "Barrel must be initialized by a single factory call"))
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok || sel.Sel.Name != "NewTable" {
			pos := ctx.Fset.Position(call.Pos())
			diags = append(diags, diag(pos, "Barrel must be assigned barrel.NewTable(...) exactly"))
		}
		return true
	})
	return diags
}

// invalidSiblings requires a sibling-member access inside a composite
// factory function to reference a key the factory's return literal actually
// declares (EVL007). A "composite factory" is adapted here as any top-level
// function returning a map[string]any literal.
type invalidSiblings struct{}

func (invalidSiblings) ID() string                     { return "EVL007" }
func (invalidSiblings) DefaultSeverity() chant.Severity { return chant.SeverityError }
func (invalidSiblings) Category() Category              { return CategoryEvaluation }

func (invalidSiblings) Check(ctx Context, _ map[string]any) []chant.Diagnostic {
	var diags []chant.Diagnostic
	ast.Inspect(ctx.File, func(n ast.Node) bool {
		fn, ok := n.(*ast.FuncDecl)
		if !ok || fn.Body == nil {
			return true
		}
		keys := make(map[string]bool)
		var retLit *ast.CompositeLit
		for _, stmt := range fn.Body.List {
			ret, ok := stmt.(*ast.ReturnStmt)
			if !ok || len(ret.Results) != 1 {
				continue
			}
			if lit, ok := ret.Results[0].(*ast.CompositeLit); ok {
				retLit = lit
			}
		}
		if retLit == nil {
			return true
		}
		for _, elt := range retLit.Elts {
			if kv, ok := elt.(*ast.KeyValueExpr); ok {
				if lit, ok := kv.Key.(*ast.BasicLit); ok {
					keys[lit.Value] = true
				}
			}
		}
		ast.Inspect(retLit, func(m ast.Node) bool {
			idx, ok := m.(*ast.IndexExpr)
			if !ok {
				return true
			}
			if id, ok := idx.X.(*ast.Ident); ok && id.Name == "self" {
				if lit, ok := idx.Index.(*ast.BasicLit); ok && !keys[lit.Value] {
					pos := ctx.Fset.Position(idx.Pos())
					diags = append(diags, diag(pos, fmt.Sprintf("sibling reference %s is not a declared key of this composite", lit.Value)))
				}
			}
			return true
		})
		return true
	})
	return diags
}

// unresolvableBarrelRef requires every Barrel.<Name> access to name an
// entity the project's barrel actually exports (EVL008).
type unresolvableBarrelRef struct{}

func (unresolvableBarrelRef) ID() string                     { return "EVL008" }
func (unresolvableBarrelRef) DefaultSeverity() chant.Severity { return chant.SeverityError }
func (unresolvableBarrelRef) Category() Category              { return CategoryEvaluation }

func (unresolvableBarrelRef) Check(ctx Context, _ map[string]any) []chant.Diagnostic {
	if ctx.BarrelExports == nil {
		return nil
	}
	known := make(map[string]bool, len(ctx.BarrelExports))
	for _, n := range ctx.BarrelExports {
		known[n] = true
	}

	var diags []chant.Diagnostic
	ast.Inspect(ctx.File, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		if id, ok := sel.X.(*ast.Ident); ok && id.Name == "Barrel" {
			if !known[sel.Sel.Name] {
				pos := ctx.Fset.Position(sel.Pos())
				diags = append(diags, diag(pos, fmt.Sprintf("Barrel.%s is not a known project export", sel.Sel.Name)))
			}
		}
		return true
	})
	return diags
}

// compositeNoConstant flags a composite literal inside a function with at
// least one parameter when the literal does not reference that function's
// first parameter: such a literal is treated as self-contained and should
// move to its own file (EVL009). References to sibling keys or imported
// identifiers do not exempt a literal.
type compositeNoConstant struct{}

func (compositeNoConstant) ID() string                     { return "EVL009" }
func (compositeNoConstant) DefaultSeverity() chant.Severity { return chant.SeverityInfo }
func (compositeNoConstant) Category() Category              { return CategoryEvaluation }

func (compositeNoConstant) Check(ctx Context, _ map[string]any) []chant.Diagnostic {
	var diags []chant.Diagnostic
	ast.Inspect(ctx.File, func(n ast.Node) bool {
		fn, ok := n.(*ast.FuncDecl)
		if !ok || fn.Body == nil || len(fn.Type.Params.List) == 0 {
			return true
		}
		paramName := ""
		if len(fn.Type.Params.List[0].Names) > 0 {
			paramName = fn.Type.Params.List[0].Names[0].Name
		}
		ast.Inspect(fn.Body, func(m ast.Node) bool {
			lit, ok := m.(*ast.CompositeLit)
			if !ok {
				return true
			}
			if referencesIdent(lit, paramName) {
				return true
			}
			pos := ctx.Fset.Position(lit.Pos())
			diags = append(diags, diag(pos, "literal does not reference the factory's parameter; extract to its own file"))
			return true
		})
		return true
	})
	return diags
}

func referencesIdent(n ast.Node, name string) bool {
	if name == "" {
		return false
	}
	found := false
	ast.Inspect(n, func(m ast.Node) bool {
		if id, ok := m.(*ast.Ident); ok && id.Name == name {
			found = true
		}
		return !found
	})
	return found
}

// compositeNoTransform forbids calling one of the standard data-
// transformation methods (EVL010). It flags such a call anywhere in the
// file; it does not check whether the call sits inside a composite factory.
type compositeNoTransform struct{}

func (compositeNoTransform) ID() string                     { return "EVL010" }
func (compositeNoTransform) DefaultSeverity() chant.Severity { return chant.SeverityWarning }
func (compositeNoTransform) Category() Category              { return CategoryEvaluation }

var transformNames = map[string]bool{
	"Map": true, "Filter": true, "Reduce": true, "FlatMap": true,
	"ForEach": true, "Find": true, "Some": true, "Every": true,
	"Sort": true, "Reverse": true, "Splice": true, "Slice": true, "Concat": true,
}

func (compositeNoTransform) Check(ctx Context, _ map[string]any) []chant.Diagnostic {
	var diags []chant.Diagnostic
	ast.Inspect(ctx.File, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		name := callName(call)
		if transformNames[name] {
			pos := ctx.Fset.Position(call.Pos())
			diags = append(diags, diag(pos, fmt.Sprintf("%s is a data-transformation call; disallowed inside a composite factory", name)))
		}
		return true
	})
	return diags
}

func evalRules() []Rule {
	return []Rule{
		nonLiteralExpression{},
		controlFlowResource{},
		dynamicPropertyAccess{},
		spreadNonConst{},
		resourceBlockBody{},
		barrelUsage{},
		invalidSiblings{},
		unresolvableBarrelRef{},
		compositeNoConstant{},
		compositeNoTransform{},
	}
}
