// Package lint implements the Lint Engine (spec.md §4.5): a rule-driven AST
// linter over discovered declarable source, with layered configuration
// (core ⊕ plugin ⊕ lexicon ⊕ project-local rules), per-file override
// resolution, and fix application.
//
// Grounded on the teacher's internal/lint package: the Rule/Issue/Severity
// shape aliased from github.com/lex00/wetwire-core-go/lint, the
// PackageAwareRule extension for cross-file context, and getRules'
// enable/filter logic. Generalized here from a single flat rule list into
// the layered, override-resolved, pluggable configuration spec.md requires,
// and from corelint.Issue into chant.Diagnostic (which additionally carries
// a structured Fix).
package lint

import (
	"fmt"
	"go/ast"
	"go/token"
	"path/filepath"
	"sort"
	"strings"

	corelint "github.com/lex00/wetwire-core-go/lint"

	"github.com/INTENTIUS/chant-sub001"
)

// Severity and Issue are aliased from the core lint package, the same way
// the teacher's internal/lint/linter.go aliases corelint types rather than
// redefining its own — callers that already depend on wetwire-core-go's
// reporting types can consume a Rule's lower-level findings directly.
type (
	Severity = corelint.Severity
	CoreIssue = corelint.Issue
)

const (
	SeverityError   = corelint.SeverityError
	SeverityWarning = corelint.SeverityWarning
	SeverityInfo    = corelint.SeverityInfo
)

// Category groups a Rule for reporting and override purposes.
type Category string

const (
	CategoryStructural  Category = "structural"
	CategoryEvaluation  Category = "evaluation"
	CategoryStyle       Category = "style"
	CategoryCorrectness Category = "correctness"
)

// Context bundles everything a Rule's Check may need, per spec.md §4.5: the
// parsed AST, the file path, an optional entities view scoped to this
// project, the owning lexicon tag, the project's known barrel exports, and
// a full project scan for rules needing cross-file information.
type Context struct {
	File     *ast.File
	Fset     *token.FileSet
	FilePath string
	// Entities is the discovered EntityGraph for the project being linted,
	// nil for file-local rules that don't need it.
	Entities *chant.EntityGraph
	// Lexicon is the owning lexicon name inferred for FilePath, "" if unknown.
	Lexicon string
	// BarrelExports lists every name the project barrel can resolve,
	// nil when the caller does not supply it.
	BarrelExports []string
	// ProjectScan, when non-nil, is the set of all Go files under the
	// project root. None of the built-in rules reads it; single-concern-file
	// and file-declarable-limit work from Entities instead.
	ProjectScan []string
}

// Rule is the core extensibility point: a single check, run once per file
// it applies to. Options carries the rule's resolved per-file options map
// from Config (nil if none).
type Rule interface {
	ID() string
	DefaultSeverity() chant.Severity
	Category() Category
	Check(ctx Context, options map[string]any) []chant.Diagnostic
}

// RuleOverride is one entry of Config.Rules: either "off" (Off=true) or an
// explicit severity, optionally with rule-specific Options.
type RuleOverride struct {
	Off      bool
	Severity chant.Severity
	Options  map[string]any
}

// PathOverride reconfigures rules for files matching PathPattern: a
// filepath.Match glob tested against the file's base name, or else a
// substring of the full path once leading/trailing '*' are stripped.
// First-match-wins across Config.Overrides.
type PathOverride struct {
	PathPattern string
	Rules       map[string]RuleOverride
}

// Config is a project's lint configuration.
type Config struct {
	Rules     map[string]RuleOverride
	Overrides []PathOverride
	// Plugins lists rule sets registered via RegisterPlugin under these
	// names, merged in after core rules but before lexicon-contributed ones.
	Plugins []string
}

// pluginRegistry holds rules contributed by RegisterPlugin, keyed by the
// plugin name a Config.Plugins entry names. Go has no portable dynamic
// .so loading the way the source ecosystem's "rule modules loaded by path"
// implies (plugin.Open is Linux/ELF-only and neither the teacher nor any
// example repo in the corpus uses it); RegisterPlugin is the static
// equivalent, called from an init() in the plugin's own package.
var pluginRegistry = make(map[string][]Rule)

// RegisterPlugin makes rules available under name for any Config whose
// Plugins list includes name.
func RegisterPlugin(name string, rules ...Rule) {
	pluginRegistry[name] = append(pluginRegistry[name], rules...)
}

// Engine runs the merged, override-resolved rule set against a file set.
type Engine struct {
	Config  Config
	Core    []Rule
	Lexicon []Rule
	Local   []Rule
}

// NewEngine builds an Engine from core rules plus any lexicon-contributed
// and project-local rules the caller supplies; plugin rules are resolved
// from cfg.Plugins against the process-wide registry.
func NewEngine(cfg Config, lexiconRules, localRules []Rule) *Engine {
	return &Engine{Config: cfg, Lexicon: lexiconRules, Local: localRules, Core: DefaultRules()}
}

// merged layers core ⊕ plugin ⊕ lexicon ⊕ project-local, later layers
// overriding earlier ones by ID, per spec.md §4.5 step 1.
func (e *Engine) merged() []Rule {
	byID := make(map[string]Rule)
	var order []string

	add := func(rules []Rule) {
		for _, r := range rules {
			if _, exists := byID[r.ID()]; !exists {
				order = append(order, r.ID())
			}
			byID[r.ID()] = r
		}
	}

	add(e.Core)
	for _, name := range e.Config.Plugins {
		add(pluginRegistry[name])
	}
	add(e.Lexicon)
	add(e.Local)

	out := make([]Rule, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

// resolve computes the effective (rule, severity, options) set for a single
// file path: base config first, then the first matching override wins.
func (e *Engine) resolve(path string) map[string]RuleOverride {
	effective := make(map[string]RuleOverride)
	for id, ov := range e.Config.Rules {
		effective[id] = ov
	}
	for _, ov := range e.Config.Overrides {
		matched, _ := filepath.Match(ov.PathPattern, filepath.Base(path))
		if !matched {
			matched = strings.Contains(path, strings.TrimSuffix(strings.TrimPrefix(ov.PathPattern, "*"), "*"))
		}
		if !matched {
			continue
		}
		for id, ruleOv := range ov.Rules {
			effective[id] = ruleOv
		}
		break // first-match-wins
	}
	return effective
}

// Run executes every effective rule against ctx, honoring Config overrides
// (off removes a rule; otherwise override severity, keep check).
func (e *Engine) Run(ctx Context) []chant.Diagnostic {
	rules := e.merged()
	overrides := e.resolve(ctx.FilePath)

	var diags []chant.Diagnostic
	for _, rule := range rules {
		severity := rule.DefaultSeverity()
		var options map[string]any
		if ov, ok := overrides[rule.ID()]; ok {
			if ov.Off {
				continue
			}
			if ov.Severity != "" {
				severity = ov.Severity
			}
			options = ov.Options
		}

		found := e.safeCheck(rule, ctx, options)
		for i := range found {
			if found[i].Severity == "" {
				found[i].Severity = severity
			}
			found[i].RuleID = rule.ID()
		}
		diags = append(diags, found...)
	}

	sort.Slice(diags, func(i, j int) bool {
		if diags[i].Line != diags[j].Line {
			return diags[i].Line < diags[j].Line
		}
		return diags[i].Column < diags[j].Column
	})
	return diags
}

// safeCheck recovers from a rule panic rather than aborting the whole run,
// surfacing it as a synthetic error diagnostic instead.
func (e *Engine) safeCheck(rule Rule, ctx Context, options map[string]any) (diags []chant.Diagnostic) {
	defer func() {
		if r := recover(); r != nil {
			diags = []chant.Diagnostic{{
				File:     ctx.FilePath,
				RuleID:   rule.ID(),
				Severity: chant.SeverityError,
				Message:  fmt.Sprintf("rule %s panicked: %v", rule.ID(), r),
			}}
		}
	}()
	return rule.Check(ctx, options)
}

// ApplyFixes groups diagnostics with a Fix by file, applies text-edit fixes
// in descending range order so earlier offsets stay valid, and returns the
// new file contents plus any write-file fixes to perform as sibling writes.
// read returns a file's current content for the text-edit base; it is
// injected so callers can supply an in-memory source during tests.
func ApplyFixes(diags []chant.Diagnostic, read func(path string) (string, error)) (map[string]string, []chant.FixWriteParams, error) {
	byFile := make(map[string][]chant.Diagnostic)
	var writes []chant.FixWriteParams

	for _, d := range diags {
		if d.Fix == nil {
			continue
		}
		switch d.Fix.Kind {
		case chant.FixWriteFile:
			if d.Fix.Params != nil {
				writes = append(writes, *d.Fix.Params)
			}
		case chant.FixTextEdit, "":
			byFile[d.File] = append(byFile[d.File], d)
		}
	}

	edited := make(map[string]string, len(byFile))
	for file, fileDiags := range byFile {
		sort.Slice(fileDiags, func(i, j int) bool {
			return fileDiags[i].Fix.Range[0] > fileDiags[j].Fix.Range[0]
		})
		content, err := read(file)
		if err != nil {
			return nil, nil, err
		}
		for _, d := range fileDiags {
			start, end := d.Fix.Range[0], d.Fix.Range[1]
			if start < 0 || end > len(content) || start > end {
				continue
			}
			content = content[:start] + d.Fix.Replacement + content[end:]
		}
		edited[file] = content
	}

	return edited, writes, nil
}
