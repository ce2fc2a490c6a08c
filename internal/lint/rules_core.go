package lint

import (
	"fmt"
	"go/ast"
	"go/token"
	"strings"
	"unicode"

	"github.com/INTENTIUS/chant-sub001"
)

// This file adapts the COR-prefixed structural rules from spec.md §4.6 into
// Go-expressible checks. Several of the original rules target
// TypeScript-only syntax (named barrel imports, `import type`, `as
// Value<T>` casts) that has no Go equivalent; those are adapted to the
// closest structurally-analogous Go concern rather than translated
// literally, per spec.md's note that the catalog is "a contract, not an
// algorithm".

// flatDeclarations forbids an inline composite literal as the value of a
// declarable field when that literal itself instantiates a lexicon type:
// such configuration must be a named, exported var instead (COR001).
type flatDeclarations struct{ LexiconPackages map[string]string }

func (flatDeclarations) ID() string                     { return "COR001" }
func (flatDeclarations) DefaultSeverity() chant.Severity { return chant.SeverityWarning }
func (flatDeclarations) Category() Category              { return CategoryStructural }

func (r flatDeclarations) Check(ctx Context, _ map[string]any) []chant.Diagnostic {
	var diags []chant.Diagnostic
	ast.Inspect(ctx.File, func(n ast.Node) bool {
		vs, ok := n.(*ast.ValueSpec)
		if !ok || len(vs.Values) != 1 {
			return true
		}
		lit, ok := unwrapUnary(vs.Values[0]).(*ast.CompositeLit)
		if !ok {
			return true
		}
		for _, elt := range lit.Elts {
			kv, ok := elt.(*ast.KeyValueExpr)
			if !ok {
				continue
			}
			nested, ok := unwrapUnary(kv.Value).(*ast.CompositeLit)
			if !ok {
				continue
			}
			if sel, ok := nested.Type.(*ast.SelectorExpr); ok {
				if pkg, ok := sel.X.(*ast.Ident); ok {
					if _, known := r.LexiconPackages[pkg.Name]; known {
						pos := ctx.Fset.Position(nested.Pos())
						diags = append(diags, diag(pos, "inline lexicon-typed literal; extract to a named exported var"))
					}
				}
			}
		}
		return true
	})
	return diags
}

// barrelImportStyle forbids dot and blank imports, which would pull a
// package's names into file scope instead of keeping them behind a package
// qualifier, mirroring the source language's "namespace import, not named
// import" requirement (COR002). Other renamed imports are allowed.
type barrelImportStyle struct{}

func (barrelImportStyle) ID() string                     { return "COR002" }
func (barrelImportStyle) DefaultSeverity() chant.Severity { return chant.SeverityError }
func (barrelImportStyle) Category() Category              { return CategoryStructural }

func (barrelImportStyle) Check(ctx Context, _ map[string]any) []chant.Diagnostic {
	var diags []chant.Diagnostic
	for _, imp := range ctx.File.Imports {
		if imp.Name == nil {
			continue
		}
		if imp.Name.Name == "." || imp.Name.Name == "_" {
			pos := ctx.Fset.Position(imp.Pos())
			diags = append(diags, diag(pos, "barrel-adjacent imports must not be dot or blank imported"))
		}
	}
	return diags
}

// noStringRef forbids calling a string-keyed reference helper ("Ref"/
// "GetAtt") with literal string arguments, instead of typed field access
// (COR003).
type noStringRef struct{}

func (noStringRef) ID() string                     { return "COR003" }
func (noStringRef) DefaultSeverity() chant.Severity { return chant.SeverityError }
func (noStringRef) Category() Category              { return CategoryStructural }

func (noStringRef) Check(ctx Context, _ map[string]any) []chant.Diagnostic {
	var diags []chant.Diagnostic
	ast.Inspect(ctx.File, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		fn := callName(call)
		if fn != "Ref" && fn != "GetAtt" {
			return true
		}
		for _, arg := range call.Args {
			if lit, ok := arg.(*ast.BasicLit); ok && lit.Kind == token.STRING {
				pos := ctx.Fset.Position(call.Pos())
				diags = append(diags, diag(pos, fmt.Sprintf("use typed property access instead of %s(%s)", fn, lit.Value)))
				break
			}
		}
		return true
	})
	return diags
}

// declarableNaming flags declarable names containing an underscore
// (snake_case), adapted from the source camelCase convention (COR005). It
// checks every entity in ctx.Entities, not only those declared in the file
// being linted, and reports nothing when ctx.Entities is nil.
type declarableNaming struct{}

func (declarableNaming) ID() string                     { return "COR005" }
func (declarableNaming) DefaultSeverity() chant.Severity { return chant.SeverityWarning }
func (declarableNaming) Category() Category              { return CategoryStructural }

func (declarableNaming) Check(ctx Context, _ map[string]any) []chant.Diagnostic {
	var diags []chant.Diagnostic
	if ctx.Entities == nil {
		return diags
	}
	for _, name := range ctx.Entities.SortedEntityNames() {
		if strings.Contains(name, "_") {
			diags = append(diags, chant.Diagnostic{
				File:    ctx.FilePath,
				Message: fmt.Sprintf("declarable name %q should be camelCase, not snake_case", name),
			})
		}
	}
	return diags
}

// exportRequired requires every lexicon-typed composite literal to be the
// value of a package-level var, never a bare expression statement or an
// argument built inline without a name (COR008).
type exportRequired struct{ LexiconPackages map[string]string }

func (exportRequired) ID() string                     { return "COR008" }
func (exportRequired) DefaultSeverity() chant.Severity { return chant.SeverityError }
func (exportRequired) Category() Category              { return CategoryStructural }

func (r exportRequired) Check(ctx Context, _ map[string]any) []chant.Diagnostic {
	var diags []chant.Diagnostic
	ast.Inspect(ctx.File, func(n ast.Node) bool {
		exprStmt, ok := n.(*ast.ExprStmt)
		if !ok {
			return true
		}
		lit, ok := unwrapUnary(exprStmt.X).(*ast.CompositeLit)
		if !ok {
			return true
		}
		sel, ok := lit.Type.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		if pkg, ok := sel.X.(*ast.Ident); ok {
			if _, known := r.LexiconPackages[pkg.Name]; known {
				pos := ctx.Fset.Position(lit.Pos())
				diags = append(diags, diag(pos, "lexicon-typed literal must be the initializer of an exported var"))
			}
		}
		return true
	})
	return diags
}

// fileDeclarableLimit caps the number of declarable instances per file
// (COR009), default 8, overridable via options["max"].
type fileDeclarableLimit struct{ Default int }

func (fileDeclarableLimit) ID() string                     { return "COR009" }
func (fileDeclarableLimit) DefaultSeverity() chant.Severity { return chant.SeverityWarning }
func (fileDeclarableLimit) Category() Category              { return CategoryStructural }

func (r fileDeclarableLimit) Check(ctx Context, options map[string]any) []chant.Diagnostic {
	max := r.Default
	if max == 0 {
		max = 8
	}
	if v, ok := options["max"].(int); ok && v > 0 {
		max = v
	}
	if ctx.Entities == nil {
		return nil
	}
	count := 0
	for _, name := range ctx.Entities.SortedEntityNames() {
		d := ctx.Entities.Entities[name]
		if f, _ := d.Attrs["__file"].(string); f == ctx.FilePath {
			count++
		}
	}
	if count > max {
		return []chant.Diagnostic{{
			File:    ctx.FilePath,
			Message: fmt.Sprintf("file declares %d declarables, exceeding the limit of %d", count, max),
		}}
	}
	return nil
}

// noUnusedDeclarableImport requires every lexicon-package import to be
// referenced somewhere in the file (COR010).
type noUnusedDeclarableImport struct{ LexiconPackages map[string]string }

func (noUnusedDeclarableImport) ID() string                     { return "COR010" }
func (noUnusedDeclarableImport) DefaultSeverity() chant.Severity { return chant.SeverityError }
func (noUnusedDeclarableImport) Category() Category              { return CategoryStructural }

func (r noUnusedDeclarableImport) Check(ctx Context, _ map[string]any) []chant.Diagnostic {
	used := make(map[string]bool)
	ast.Inspect(ctx.File, func(n ast.Node) bool {
		if sel, ok := n.(*ast.SelectorExpr); ok {
			if id, ok := sel.X.(*ast.Ident); ok {
				used[id.Name] = true
			}
		}
		return true
	})

	var diags []chant.Diagnostic
	for _, imp := range ctx.File.Imports {
		path := strings.Trim(imp.Path.Value, `"`)
		alias := path[strings.LastIndex(path, "/")+1:]
		if imp.Name != nil {
			alias = imp.Name.Name
		}
		if _, isLexicon := r.LexiconPackages[alias]; isLexicon && !used[alias] {
			pos := ctx.Fset.Position(imp.Pos())
			diags = append(diags, diag(pos, fmt.Sprintf("unused lexicon import %q", path)))
		}
	}
	return diags
}

// noCyclicDeclarableRef requires the per-file reference graph to be acyclic
// (COR011); the project-wide cycle is caught by the build driver, this rule
// flags it early, per-file, as a lint diagnostic.
type noCyclicDeclarableRef struct{}

func (noCyclicDeclarableRef) ID() string                     { return "COR011" }
func (noCyclicDeclarableRef) DefaultSeverity() chant.Severity { return chant.SeverityError }
func (noCyclicDeclarableRef) Category() Category              { return CategoryStructural }

func (noCyclicDeclarableRef) Check(ctx Context, _ map[string]any) []chant.Diagnostic {
	if ctx.Entities == nil {
		return nil
	}
	localDeps := make(map[string][]string)
	for _, name := range ctx.Entities.SortedEntityNames() {
		d := ctx.Entities.Entities[name]
		if f, _ := d.Attrs["__file"].(string); f != ctx.FilePath {
			continue
		}
		for _, dep := range ctx.Entities.Dependencies[name] {
			if other, ok := ctx.Entities.Entities[dep]; ok {
				if f2, _ := other.Attrs["__file"].(string); f2 == ctx.FilePath {
					localDeps[name] = append(localDeps[name], dep)
				}
			}
		}
	}
	if cycle := detectLocalCycle(localDeps); len(cycle) > 0 {
		return []chant.Diagnostic{{File: ctx.FilePath, Message: "cyclic declarable reference within file: " + strings.Join(cycle, " -> ")}}
	}
	return nil
}

func detectLocalCycle(deps map[string][]string) []string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var stack []string
	var found []string

	var visit func(string) bool
	visit = func(n string) bool {
		visited[n] = true
		onStack[n] = true
		stack = append(stack, n)
		for _, d := range deps[n] {
			if onStack[d] {
				for i, s := range stack {
					if s == d {
						found = append([]string(nil), stack[i:]...)
						found = append(found, d)
					}
				}
				return true
			}
			if !visited[d] && visit(d) {
				return true
			}
		}
		onStack[n] = false
		stack = stack[:len(stack)-1]
		return false
	}

	names := make([]string, 0, len(deps))
	for n := range deps {
		names = append(names, n)
	}
	for _, n := range names {
		if !visited[n] && visit(n) {
			return found
		}
	}
	return nil
}

// noRedundantTypeImport flags a second import of the same path under a
// different alias within one file, the Go analogue of a redundant
// `import type` alongside a namespace import (COR012). The fix deletes the
// redundant import spec.
type noRedundantTypeImport struct{}

func (noRedundantTypeImport) ID() string                     { return "COR012" }
func (noRedundantTypeImport) DefaultSeverity() chant.Severity { return chant.SeverityWarning }
func (noRedundantTypeImport) Category() Category              { return CategoryStructural }

func (noRedundantTypeImport) Check(ctx Context, _ map[string]any) []chant.Diagnostic {
	seen := make(map[string]bool)
	var diags []chant.Diagnostic
	for _, imp := range ctx.File.Imports {
		path := strings.Trim(imp.Path.Value, `"`)
		if seen[path] {
			pos := ctx.Fset.Position(imp.Pos())
			diags = append(diags, chant.Diagnostic{
				File: ctx.FilePath, Line: pos.Line, Column: pos.Column,
				Message: fmt.Sprintf("redundant duplicate import of %q", path),
				Fix: &chant.Fix{
					Kind:        chant.FixTextEdit,
					Range:       [2]int{int(imp.Pos()) - 1, int(imp.End()) - 1},
					Replacement: "",
				},
			})
		}
		seen[path] = true
	}
	return diags
}

// singleConcernFile flags a file that mixes resource-kind and property-kind
// declarables (COR013), a heuristic smell rather than an error.
type singleConcernFile struct{}

func (singleConcernFile) ID() string                     { return "COR013" }
func (singleConcernFile) DefaultSeverity() chant.Severity { return chant.SeverityInfo }
func (singleConcernFile) Category() Category              { return CategoryStructural }

func (singleConcernFile) Check(ctx Context, _ map[string]any) []chant.Diagnostic {
	if ctx.Entities == nil {
		return nil
	}
	var hasResource, hasProperty bool
	for _, name := range ctx.Entities.SortedEntityNames() {
		d := ctx.Entities.Entities[name]
		if f, _ := d.Attrs["__file"].(string); f != ctx.FilePath {
			continue
		}
		switch d.Kind {
		case chant.KindResource:
			hasResource = true
		case chant.KindProperty:
			hasProperty = true
		}
	}
	if hasResource && hasProperty {
		return []chant.Diagnostic{{File: ctx.FilePath, Message: "file mixes resource and property declarables; consider splitting"}}
	}
	return nil
}

// noRedundantValueCast forbids a type-asserting conversion expression
// wrapping a lexicon-typed composite literal, the Go analogue of the source
// language's `as Value<T>` assertion (COR015).
type noRedundantValueCast struct{}

func (noRedundantValueCast) ID() string                     { return "COR015" }
func (noRedundantValueCast) DefaultSeverity() chant.Severity { return chant.SeverityWarning }
func (noRedundantValueCast) Category() Category              { return CategoryStructural }

func (noRedundantValueCast) Check(ctx Context, _ map[string]any) []chant.Diagnostic {
	var diags []chant.Diagnostic
	ast.Inspect(ctx.File, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok || len(call.Args) != 1 {
			return true
		}
		if _, ok := unwrapUnary(call.Args[0]).(*ast.CompositeLit); !ok {
			return true
		}
		if _, ok := call.Fun.(*ast.Ident); ok {
			// A bare T(x) conversion wrapping a composite literal is a
			// redundant cast; legitimate constructor calls use CallExpr with
			// a selector, not an identifier conversion.
			pos := ctx.Fset.Position(call.Pos())
			diags = append(diags, diag(pos, "redundant type conversion wrapping a literal"))
		}
		return true
	})
	return diags
}

// staleBarrelTypes is the build-time analogue of regenerating a sibling
// `_.d.ts`: in Go this package has no generated type-declaration sibling,
// so this rule is satisfied by construction and always reports nothing. Kept as an
// explicit no-op rule (COR016) so a project's rule list still names it —
// removing a catalog entry silently would understate the rule count.
type staleBarrelTypes struct{}

func (staleBarrelTypes) ID() string                     { return "COR016" }
func (staleBarrelTypes) DefaultSeverity() chant.Severity { return chant.SeverityInfo }
func (staleBarrelTypes) Category() Category              { return CategoryStructural }
func (staleBarrelTypes) Check(Context, map[string]any) []chant.Diagnostic { return nil }

// compositeNameMatch requires a ChildProject's declared var name to match
// its Path field, compared case-insensitively after trimming leading and
// trailing '.' and '/' and removing inner slashes, the Go analogue of a
// `Composite<Props>(factory, "Name")` literal-name argument having to match
// its exported const name (COR017).
type compositeNameMatch struct{}

func (compositeNameMatch) ID() string                     { return "COR017" }
func (compositeNameMatch) DefaultSeverity() chant.Severity { return chant.SeverityWarning }
func (compositeNameMatch) Category() Category              { return CategoryStructural }

func (compositeNameMatch) Check(ctx Context, _ map[string]any) []chant.Diagnostic {
	if ctx.Entities == nil {
		return nil
	}
	var diags []chant.Diagnostic
	for _, name := range ctx.Entities.SortedEntityNames() {
		d := ctx.Entities.Entities[name]
		if d.Kind != chant.KindChildProject {
			continue
		}
		path, _ := d.Attrs["path"].(string)
		base := strings.Trim(path, "./")
		base = strings.ReplaceAll(base, "/", "")
		if base != "" && !strings.EqualFold(base, name) {
			diags = append(diags, chant.Diagnostic{File: ctx.FilePath, Message: fmt.Sprintf("child project var %q should match its path %q", name, path)})
		}
	}
	return diags
}

// compositePreferLexiconType discourages a locally-declared struct type
// whose field set duplicates a lexicon-provided type (COR018). Detecting
// true duplication requires cross-package type information this linter
// does not have; this rule is satisfied heuristically by flagging every
// locally declared exported struct type. It does not compare the type
// against any lexicon package's types.
type compositePreferLexiconType struct{}

func (compositePreferLexiconType) ID() string                     { return "COR018" }
func (compositePreferLexiconType) DefaultSeverity() chant.Severity { return chant.SeverityInfo }
func (compositePreferLexiconType) Category() Category              { return CategoryStructural }

func (compositePreferLexiconType) Check(ctx Context, _ map[string]any) []chant.Diagnostic {
	var diags []chant.Diagnostic
	ast.Inspect(ctx.File, func(n ast.Node) bool {
		ts, ok := n.(*ast.TypeSpec)
		if !ok {
			return true
		}
		if _, ok := ts.Type.(*ast.StructType); ok && isUpperName(ts.Name.Name) {
			pos := ctx.Fset.Position(ts.Pos())
			diags = append(diags, diag(pos, fmt.Sprintf("local struct type %q may duplicate a lexicon-provided type", ts.Name.Name)))
		}
		return true
	})
	return diags
}

// DefaultRules returns the core rule set the engine always includes,
// regardless of project config.
func DefaultRules() []Rule {
	return append(coreRules(nil), evalRules()...)
}

// CoreRulesFor returns the COR-prefixed rules configured against a specific
// lexicon package map, for callers that want lexicon-aware checks wired in.
func CoreRulesFor(lexiconPackages map[string]string) []Rule {
	return coreRules(lexiconPackages)
}

func coreRules(lexiconPackages map[string]string) []Rule {
	return []Rule{
		flatDeclarations{LexiconPackages: lexiconPackages},
		barrelImportStyle{},
		noStringRef{},
		declarableNaming{},
		exportRequired{LexiconPackages: lexiconPackages},
		fileDeclarableLimit{Default: 8},
		noUnusedDeclarableImport{LexiconPackages: lexiconPackages},
		noCyclicDeclarableRef{},
		noRedundantTypeImport{},
		singleConcernFile{},
		noRedundantValueCast{},
		staleBarrelTypes{},
		compositeNameMatch{},
		compositePreferLexiconType{},
	}
}

func diag(pos token.Position, msg string) chant.Diagnostic {
	return chant.Diagnostic{File: pos.Filename, Line: pos.Line, Column: pos.Column, Message: msg}
}

func unwrapUnary(e ast.Expr) ast.Expr {
	if u, ok := e.(*ast.UnaryExpr); ok {
		return u.X
	}
	return e
}

func callName(call *ast.CallExpr) string {
	switch fn := call.Fun.(type) {
	case *ast.Ident:
		return fn.Name
	case *ast.SelectorExpr:
		return fn.Sel.Name
	}
	return ""
}

func isUpperName(name string) bool {
	if name == "" {
		return false
	}
	return unicode.IsUpper(rune(name[0]))
}
