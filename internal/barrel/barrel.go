// Package barrel implements the lazy namespace object described in
// spec.md §4.1: a per-directory table exposing the union of all
// declarable-carrying exports discovered so far, with load-on-first-access
// and caching semantics.
//
// There is no teacher analogue for a barrel (the teacher's discover.go
// resolves everything in a single pass against a flat resource map), so
// this package is new code written in the teacher's idiom: small,
// dependency-free, table-backed, with the same load-once-cache-forever
// discipline the teacher's module cache uses in internal/discover.
package barrel

import "sort"

// Loader supplies a value for a name not yet in the Table, called at most
// once per name until Reset clears that name.
type Loader func(name string) (any, bool)

// Table is a lazy namespace: a directory's declarable exports, loaded on
// first access and cached thereafter. A Table is owned by a single
// Discover call; it is not safe for concurrent use.
type Table struct {
	load   Loader
	cache  map[string]any
	loaded map[string]bool
	// known lists every exportable name up front, even before it has been
	// loaded, so Names() and unresolvable-reference checks do not require a
	// full load pass.
	known []string
}

// NewTable constructs a Table whose known export names are names, resolved
// lazily via load.
func NewTable(names []string, load Loader) *Table {
	known := append([]string(nil), names...)
	sort.Strings(known)
	return &Table{
		load:   load,
		cache:  make(map[string]any, len(names)),
		loaded: make(map[string]bool, len(names)),
		known:  known,
	}
}

// Get returns the value bound to name, loading it on first access. The
// second return is false if name is not a known export or the loader
// failed to produce a value for it.
func (t *Table) Get(name string) (any, bool) {
	if v, ok := t.cache[name]; ok {
		return v, true
	}
	if !t.Has(name) {
		return nil, false
	}
	if t.loaded[name] {
		return nil, false
	}
	t.loaded[name] = true
	v, ok := t.load(name)
	if !ok {
		return nil, false
	}
	t.cache[name] = v
	return v, true
}

// Names returns every known export name, sorted, regardless of whether it
// has been loaded yet.
func (t *Table) Names() []string {
	out := make([]string, len(t.known))
	copy(out, t.known)
	return out
}

// Has reports whether name is a known export of this barrel, without
// forcing a load.
func (t *Table) Has(name string) bool {
	for _, n := range t.known {
		if n == name {
			return true
		}
	}
	return false
}

// Reset clears the cache for name, forcing the next Get to reload it. This
// backs the second-pass "barrel replay" in discover: a file that textually
// depends on the barrel is re-executed, and its previously-cached exports
// must be recomputed rather than served stale.
func (t *Table) Reset(name string) {
	delete(t.cache, name)
	delete(t.loaded, name)
}
