package rules

// Func derives a rule's value. Returning an error or a nil value leaves the
// rule undefined.
type Func func(ev *Evaluation) (any, error)

// Rule is a named computation over an evaluation input.
type Rule struct {
	// Name identifies the rule within its graph.
	Name string

	// Description is a short human readable summary, used in listings.
	Description string

	// DependsOn lists the rules this rule reads. Reading any other rule from
	// Eval is an error.
	DependsOn []string

	// Eval computes the rule value.
	Eval Func

	defaultValue any
	hasDefault   bool
}

// New creates a rule with the given name, function and dependencies.
func New(name string, eval Func, dependsOn ...string) *Rule {
	return &Rule{
		Name:      name,
		Eval:      eval,
		DependsOn: dependsOn,
	}
}

// WithDefault sets the value used when the rule has no satisfying derivation.
func (r *Rule) WithDefault(v any) *Rule {
	r.defaultValue = v
	r.hasDefault = true
	return r
}

// Describe sets the rule description.
func (r *Rule) Describe(description string) *Rule {
	r.Description = description
	return r
}

// Default returns the declared default and whether one was declared.
func (r *Rule) Default() (any, bool) {
	return r.defaultValue, r.hasDefault
}

func (r *Rule) dependsOn(name string) bool {
	for _, dep := range r.DependsOn {
		if dep == name {
			return true
		}
	}
	return false
}
