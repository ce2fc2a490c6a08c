// Package depgraph implements the reference model's topological build order
// and cycle detection (spec.md §4.2): given a dependency map, produce a
// linear order with every dependency preceding its dependent, tie-broken by
// first appearance, or a BuildError carrying the offending cycle.
//
// Grounded on the teacher's internal/template.Builder.topologicalSort and
// detectCycle, lifted out of the single-lexicon template Builder into a
// standalone, reusable function, and changed to tie-break by first-seen
// order (recorded via Order) rather than the teacher's alphabetical
// sort.Strings, per spec.md's explicit tie-break rule.
package depgraph

import (
	"github.com/INTENTIUS/chant-sub001"
)

// Sort returns deps' keys in dependency order: every dependency precedes its
// dependent. order supplies the first-appearance tie-break among nodes that
// become ready simultaneously; it should list every key in deps, in the
// order those keys were first observed (e.g. EntityGraph construction
// order). If order omits a key it is treated as appearing after every
// listed key, in deps' own (unstable) iteration order.
//
// Cycle detection runs before the sort proper, per spec.md §4.2: when a
// cycle exists, Sort returns a *chant.BuildError whose Cycle field names the
// path, rather than a partial order.
func Sort(deps map[string][]string, order []string) ([]string, *chant.BuildError) {
	if cycle := DetectCycle(deps); len(cycle) > 0 {
		return nil, cycleError(deps, cycle)
	}

	rank := rankOf(deps, order)

	inDegree := make(map[string]int, len(deps))
	dependents := make(map[string][]string, len(deps))
	for node := range deps {
		inDegree[node] = 0
	}
	for node, dependsOn := range deps {
		for _, dep := range dependsOn {
			if _, tracked := deps[dep]; !tracked {
				continue // reference outside this graph; not ours to order
			}
			inDegree[node]++
			dependents[dep] = append(dependents[dep], node)
		}
	}

	ready := make([]string, 0, len(deps))
	for node, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, node)
		}
	}
	sortByRank(ready, rank)

	result := make([]string, 0, len(deps))
	for len(ready) > 0 {
		node := ready[0]
		ready = ready[1:]
		result = append(result, node)

		var newlyReady []string
		for _, dependent := range dependents[node] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				newlyReady = append(newlyReady, dependent)
			}
		}
		sortByRank(newlyReady, rank)
		ready = append(ready, newlyReady...)
		sortByRank(ready, rank)
	}

	if len(result) != len(deps) {
		// Shouldn't happen: DetectCycle already ran. Defensive fallback.
		return nil, cycleError(deps, DetectCycle(deps))
	}

	return result, nil
}

// rankOf builds a first-appearance rank map from order, falling back to a
// stable (but otherwise arbitrary) rank for any key in deps that order omits.
func rankOf(deps map[string][]string, order []string) map[string]int {
	rank := make(map[string]int, len(deps))
	for i, name := range order {
		if _, ok := rank[name]; !ok {
			rank[name] = i
		}
	}
	next := len(order)
	for node := range deps {
		if _, ok := rank[node]; !ok {
			rank[node] = next
			next++
		}
	}
	return rank
}

func sortByRank(nodes []string, rank map[string]int) {
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0 && rank[nodes[j-1]] > rank[nodes[j]]; j-- {
			nodes[j-1], nodes[j] = nodes[j], nodes[j-1]
		}
	}
}

// DetectCycle runs a depth-first traversal with an explicit recursion-stack
// set; the first back-edge found to a node already on the stack yields the
// path from that node to the current node as the canonical cycle. Returns
// nil if the graph is acyclic. Re-running DetectCycle on the same input
// (same map iteration notwithstanding) returns the same canonical cycle,
// because the DFS always starts from the lexicographically-first
// unvisited node.
func DetectCycle(deps map[string][]string) []string {
	names := make([]string, 0, len(deps))
	for node := range deps {
		names = append(names, node)
	}
	sortStrings(names)

	visited := make(map[string]bool, len(deps))
	onStack := make(map[string]bool, len(deps))
	var stack []string
	var cycle []string

	var visit func(node string) bool
	visit = func(node string) bool {
		visited[node] = true
		onStack[node] = true
		stack = append(stack, node)

		depNames := append([]string(nil), deps[node]...)
		sortStrings(depNames)
		for _, dep := range depNames {
			if _, tracked := deps[dep]; !tracked {
				continue
			}
			if onStack[dep] {
				cycle = extractCycle(stack, dep)
				return true
			}
			if !visited[dep] {
				if visit(dep) {
					return true
				}
			}
		}

		onStack[node] = false
		stack = stack[:len(stack)-1]
		return false
	}

	for _, node := range names {
		if !visited[node] {
			if visit(node) {
				return cycle
			}
		}
	}
	return nil
}

// extractCycle pulls the path from the first occurrence of target in stack
// through the end of stack, closing the loop back to target.
func extractCycle(stack []string, target string) []string {
	for i, n := range stack {
		if n == target {
			cycle := append([]string(nil), stack[i:]...)
			return append(cycle, target)
		}
	}
	return nil
}

func cycleError(deps map[string][]string, cycle []string) *chant.BuildError {
	entity := ""
	if len(cycle) > 0 {
		entity = cycle[0]
	}
	return &chant.BuildError{
		EntityName: entity,
		Message:    "Circular dependency detected: " + joinArrow(cycle),
		Cycle:      cycle,
	}
}

func joinArrow(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += " → "
		}
		out += p
	}
	return out
}

// sortStrings is a tiny insertion sort to avoid importing "sort" purely for
// small slices repeated inside the DFS hot path.
func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
