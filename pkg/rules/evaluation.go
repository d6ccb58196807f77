package rules

import (
	"fmt"
)

// Result is the outcome of evaluating one rule.
type Result struct {
	// Value is the derived value, or the default when Defaulted is set.
	Value any

	// Defined is false when the rule had no satisfying derivation and no
	// default.
	Defined bool

	// Defaulted is true when Value came from the rule's declared default.
	Defaulted bool

	// Err explains why the rule had no derivation. It is kept when a
	// default was applied.
	Err error
}

// Evaluation memoizes rule results for a single input. It is not safe for
// concurrent use.
type Evaluation struct {
	graph  *Graph
	input  any
	cache  map[string]Result
	counts map[string]int
	stack  []string
}

// Input returns the document this evaluation runs over.
func (ev *Evaluation) Input() any {
	return ev.input
}

// Get returns the result of the named rule, computing it on first access.
//
// When called from inside a rule function, name must be one of that rule's
// declared dependencies.
func (ev *Evaluation) Get(name string) Result {
	if n := len(ev.stack); n > 0 {
		caller := ev.stack[n-1]
		if r, ok := ev.graph.Rule(caller); ok && !r.dependsOn(name) {
			return Result{Err: &UndeclaredDependencyError{Rule: caller, Dependency: name}}
		}
	}

	if res, ok := ev.cache[name]; ok {
		return res
	}

	r, ok := ev.graph.Rule(name)
	if !ok {
		return Result{Err: &UnknownRuleError{Name: name}}
	}

	res := ev.compute(r)
	ev.cache[name] = res
	return res
}

func (ev *Evaluation) compute(r *Rule) (res Result) {
	ev.counts[r.Name]++
	ev.stack = append(ev.stack, r.Name)

	defer func() {
		ev.stack = ev.stack[:len(ev.stack)-1]
		if p := recover(); p != nil {
			res = ev.settle(r, nil, &PanicError{Rule: r.Name, Value: p})
		}
	}()

	value, err := r.Eval(ev)
	if err != nil {
		err = &EvaluationError{Rule: r.Name, Cause: err}
	}
	return ev.settle(r, value, err)
}

func (ev *Evaluation) settle(r *Rule, value any, err error) Result {
	if err == nil && value != nil {
		return Result{Value: value, Defined: true}
	}
	if err == nil {
		err = fmt.Errorf("rule %q: %w", r.Name, ErrUndefined)
	}
	if def, ok := r.Default(); ok {
		return Result{Value: def, Defined: true, Defaulted: true, Err: err}
	}
	return Result{Err: err}
}

// Value returns the named rule's value, or an error when it is undefined.
// Rule functions use it to propagate undefinedness to their own result.
func (ev *Evaluation) Value(name string) (any, error) {
	res := ev.Get(name)
	if !res.Defined {
		return nil, res.Err
	}
	return res.Value, nil
}

// Bool returns the named rule as a boolean. Undefined and non-boolean
// results read as false.
func (ev *Evaluation) Bool(name string) bool {
	b, _ := ev.Get(name).Value.(bool)
	return b
}

// Float returns the named rule as a float64. The boolean is false when the
// rule is undefined or not numeric.
func (ev *Evaluation) Float(name string) (float64, bool) {
	res := ev.Get(name)
	if !res.Defined {
		return 0, false
	}
	switch v := res.Value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// Computations returns how many times the named rule function ran in this
// evaluation.
func (ev *Evaluation) Computations(name string) int {
	return ev.counts[name]
}

// All evaluates every registered rule in registration order and returns the
// results keyed by name.
func (ev *Evaluation) All() map[string]Result {
	names := ev.graph.Names()
	results := make(map[string]Result, len(names))
	for _, name := range names {
		results[name] = ev.Get(name)
	}
	return results
}

// Get returns the named rule's value as T.
func Get[T any](ev *Evaluation, name string) (T, error) {
	var zero T
	v, err := ev.Value(name)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("rule %q has type %T, want %T", name, v, zero)
	}
	return t, nil
}
