package rules

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUndefined is returned for rules that produced no value.
var ErrUndefined = errors.New("rule undefined")

// CycleError is returned when registering a rule would close a dependency cycle.
type CycleError struct {
	// Path lists the rules forming the cycle, starting and ending with the
	// same rule.
	Path []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("rule dependency cycle: %s", strings.Join(e.Path, " -> "))
}

// DuplicateRuleError is returned when a rule name is registered twice.
type DuplicateRuleError struct {
	Name string
}

// Error implements the error interface.
func (e *DuplicateRuleError) Error() string {
	return fmt.Sprintf("rule %q already registered", e.Name)
}

// UnknownRuleError reports a reference to a rule that is not registered.
type UnknownRuleError struct {
	Name         string // Missing rule
	ReferencedBy string // Rule declaring the dependency, empty for direct lookups
}

// Error implements the error interface.
func (e *UnknownRuleError) Error() string {
	if e.ReferencedBy != "" {
		return fmt.Sprintf("rule %q depends on unknown rule %q", e.ReferencedBy, e.Name)
	}
	return fmt.Sprintf("unknown rule %q", e.Name)
}

// UndeclaredDependencyError is returned when a rule reads another rule it did
// not list in DependsOn.
type UndeclaredDependencyError struct {
	Rule       string
	Dependency string
}

// Error implements the error interface.
func (e *UndeclaredDependencyError) Error() string {
	return fmt.Sprintf("rule %q read undeclared dependency %q", e.Rule, e.Dependency)
}

// PanicError wraps a panic raised by a rule function.
type PanicError struct {
	Rule  string
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("rule %q panicked: %v", e.Rule, e.Value)
}

// EvaluationError wraps the error a rule function returned.
type EvaluationError struct {
	Rule  string
	Cause error
}

// Error implements the error interface.
func (e *EvaluationError) Error() string {
	return fmt.Sprintf("rule %q: %v", e.Rule, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *EvaluationError) Unwrap() error {
	return e.Cause
}
