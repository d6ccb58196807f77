// Package rules implements a small evaluation core for named, dependent rules.
//
// A Graph holds rules keyed by name. Each rule declares the rules it reads
// and a pure function that derives its value from an Evaluation. Cycles are
// rejected when a rule is registered, and Validate reports dependencies that
// were never registered.
//
// An Evaluation is bound to one input document. Rule values are computed on
// first access and cached, so a rule consulted by the decision, by issue
// detection and by scoring is derived exactly once per evaluation.
//
// # Undefined values and defaults
//
// A rule whose function returns an error, returns a nil value, or panics has
// no satisfying derivation and is undefined. A rule declared WithDefault
// takes its default value instead. Undefined rules read through Bool are
// false, which is how a missing document field turns into "rule not
// satisfied" rather than a failed evaluation.
//
// # Collections
//
// SetOf builds deduplicated, unordered results for coverage counting. ListOf
// keeps generation order and duplicates for ordered outputs. Every and Some
// are the universal and existential quantifiers.
//
// # Basic Usage
//
//	g := rules.NewGraph()
//	err := g.Register(
//	    rules.New("has_name", func(ev *rules.Evaluation) (any, error) {
//	        return ev.Input().(Doc).Name != "", nil
//	    }),
//	    rules.New("admit", func(ev *rules.Evaluation) (any, error) {
//	        return ev.Bool("has_name"), nil
//	    }, "has_name").WithDefault(false),
//	)
//
//	ev := g.NewEvaluation(doc)
//	admit := ev.Bool("admit")
//
// A Graph is safe for concurrent use once registration is complete. An
// Evaluation is not; use one per goroutine.
package rules
