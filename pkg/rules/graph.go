package rules

import (
	"fmt"
	"sort"
	"sync"
)

// Graph is a registry of rules forming a directed acyclic dependency graph.
type Graph struct {
	mu    sync.RWMutex
	rules map[string]*Rule
	order []string // registration order
}

// NewGraph creates an empty rule graph.
func NewGraph() *Graph {
	return &Graph{
		rules: make(map[string]*Rule),
	}
}

// Register adds rules to the graph in order. Registration stops at the first
// rule that is a duplicate, has no function, or would close a dependency
// cycle; rules registered before it are kept.
//
// Dependencies may reference rules registered later. Call Validate once all
// rules are registered to catch dependencies that never appeared.
func (g *Graph) Register(rules ...*Rule) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, r := range rules {
		if r == nil || r.Name == "" {
			return fmt.Errorf("rule must have a name")
		}
		if r.Eval == nil {
			return fmt.Errorf("rule %q has no evaluation function", r.Name)
		}
		if _, exists := g.rules[r.Name]; exists {
			return &DuplicateRuleError{Name: r.Name}
		}

		g.rules[r.Name] = r
		if path := g.findCycle(r.Name); path != nil {
			delete(g.rules, r.Name)
			return &CycleError{Path: path}
		}
		g.order = append(g.order, r.Name)
	}

	return nil
}

// MustRegister is like Register but panics on error. It is intended for
// package-level rule sets built from constant definitions.
func (g *Graph) MustRegister(rules ...*Rule) {
	if err := g.Register(rules...); err != nil {
		panic(err)
	}
}

// findCycle returns a path from start back to itself, or nil when start is
// not on a cycle. Only registered rules are followed. Caller holds g.mu.
func (g *Graph) findCycle(start string) []string {
	visited := make(map[string]bool)
	var path []string

	var visit func(name string) bool
	visit = func(name string) bool {
		r, ok := g.rules[name]
		if !ok {
			return false
		}
		path = append(path, name)
		for _, dep := range r.DependsOn {
			if dep == start {
				path = append(path, start)
				return true
			}
			if visited[dep] {
				continue
			}
			visited[dep] = true
			if visit(dep) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}

	if visit(start) {
		return path
	}
	return nil
}

// Validate checks that every declared dependency is registered.
func (g *Graph) Validate() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, name := range g.order {
		for _, dep := range g.rules[name].DependsOn {
			if _, ok := g.rules[dep]; !ok {
				return &UnknownRuleError{Name: dep, ReferencedBy: name}
			}
		}
	}
	return nil
}

// Rule returns the named rule.
func (g *Graph) Rule(name string) (*Rule, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	r, ok := g.rules[name]
	return r, ok
}

// Names returns rule names in registration order.
func (g *Graph) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	names := make([]string, len(g.order))
	copy(names, g.order)
	return names
}

// Len returns the number of registered rules.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rules)
}

// TopologicalOrder returns rule names ordered so that every rule follows its
// dependencies. Ties are broken by name for a stable result.
func (g *Graph) TopologicalOrder() ([]string, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	names := make([]string, 0, len(g.rules))
	for name := range g.rules {
		names = append(names, name)
	}
	sort.Strings(names)

	visited := make(map[string]bool, len(names))
	result := make([]string, 0, len(names))

	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		deps := append([]string(nil), g.rules[name].DependsOn...)
		sort.Strings(deps)
		for _, dep := range deps {
			visit(dep)
		}
		result = append(result, name)
	}

	for _, name := range names {
		visit(name)
	}
	return result, nil
}

// NewEvaluation starts an evaluation of the graph over input.
func (g *Graph) NewEvaluation(input any) *Evaluation {
	return &Evaluation{
		graph:  g,
		input:  input,
		cache:  make(map[string]Result),
		counts: make(map[string]int),
	}
}
