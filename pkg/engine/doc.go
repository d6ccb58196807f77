// Package engine evaluates compliance documents against risk-indicator
// configuration and produces a Decision.
//
// Two rule sets are built on the rules package: one for due-diligence
// statements and one for aggregated supply-chain data. Each is a static rule
// graph whose rules read the adapted document, the indicator snapshot and the
// evaluation date from the evaluation input. Every named rule is computed at
// most once per document; the decision, the issue checks, the score and the
// recommendations all read the same memoized results.
//
// # Evaluation Flow
//
//	raw document
//	     ↓
//	document.Adapt (typed optional fields)
//	     ↓
//	rule graph evaluation (validators, scoring)
//	     ↓
//	ordered issue checks → recommendations
//	     ↓
//	Decision + AuditRecord → AuditSink
//
// Evaluate never returns an error. Malformed documents, missing fields and
// empty collections all surface as issues on the decision, and a panic in a
// rule is converted into an evaluation_error issue.
//
// # Basic Usage
//
//	snap, err := indicators.Load("indicators.yaml")
//	if err != nil {
//	    return err // malformed configuration: refuse to evaluate
//	}
//	doc, err := document.Parse(data, document.FormatAuto)
//	...
//	decision := engine.Evaluate(doc, snap, engine.WithNow(time.Now()))
//
// Engine wraps Evaluate with a hot-reloadable indicator store, metrics and an
// audit sink.
package engine
