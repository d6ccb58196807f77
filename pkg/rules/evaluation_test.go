package rules

import (
	"errors"
	"testing"
)

func TestEvaluation_Memoization(t *testing.T) {
	g := NewGraph()
	g.MustRegister(
		New("formats_valid", constant(true)),
		New("admit", func(ev *Evaluation) (any, error) {
			return ev.Bool("formats_valid"), nil
		}, "formats_valid"),
		New("issues", func(ev *Evaluation) (any, error) {
			if !ev.Bool("formats_valid") {
				return []string{"invalid_field_formats"}, nil
			}
			return []string{}, nil
		}, "formats_valid"),
		New("score", func(ev *Evaluation) (any, error) {
			if ev.Bool("formats_valid") {
				return 1.0, nil
			}
			return 0.0, nil
		}, "formats_valid"),
	)

	ev := g.NewEvaluation(nil)
	ev.Get("admit")
	ev.Get("issues")
	ev.Get("score")
	ev.Get("formats_valid")

	if n := ev.Computations("formats_valid"); n != 1 {
		t.Errorf("formats_valid computed %d times, want 1", n)
	}
	if n := ev.Computations("admit"); n != 1 {
		t.Errorf("admit computed %d times, want 1", n)
	}
}

func TestEvaluation_Defaults(t *testing.T) {
	fieldAbsent := errors.New("field absent")

	g := NewGraph()
	g.MustRegister(
		New("needs_field", func(*Evaluation) (any, error) {
			return nil, fieldAbsent
		}),
		New("no_derivation", func(*Evaluation) (any, error) {
			return nil, nil
		}),
		New("admit", func(ev *Evaluation) (any, error) {
			v, err := ev.Value("needs_field")
			if err != nil {
				return nil, err
			}
			return v, nil
		}, "needs_field").WithDefault(false),
		New("undefined_without_default", func(ev *Evaluation) (any, error) {
			return ev.Value("no_derivation")
		}, "no_derivation"),
	)

	ev := g.NewEvaluation(nil)

	admit := ev.Get("admit")
	if !admit.Defined || !admit.Defaulted || admit.Value != false {
		t.Errorf("admit = %+v, want defaulted false", admit)
	}
	if !errors.Is(admit.Err, fieldAbsent) {
		t.Errorf("admit.Err = %v, want to wrap field absent", admit.Err)
	}

	res := ev.Get("undefined_without_default")
	if res.Defined {
		t.Errorf("expected undefined result, got %+v", res)
	}
	if !errors.Is(res.Err, ErrUndefined) {
		t.Errorf("Err = %v, want ErrUndefined", res.Err)
	}
	if ev.Bool("undefined_without_default") {
		t.Error("undefined rule must read as false")
	}
}

func TestEvaluation_UndeclaredDependency(t *testing.T) {
	g := NewGraph()
	g.MustRegister(
		New("secret", constant(true)),
		New("sneaky", func(ev *Evaluation) (any, error) {
			return ev.Value("secret")
		}),
	)

	ev := g.NewEvaluation(nil)
	res := ev.Get("sneaky")

	var undeclared *UndeclaredDependencyError
	if !errors.As(res.Err, &undeclared) {
		t.Fatalf("expected UndeclaredDependencyError, got %v", res.Err)
	}
	if undeclared.Rule != "sneaky" || undeclared.Dependency != "secret" {
		t.Errorf("got %+v", undeclared)
	}

	// A top-level lookup of the same rule is fine.
	if !ev.Bool("secret") {
		t.Error("secret should evaluate to true")
	}
}

func TestEvaluation_PanicRecovered(t *testing.T) {
	g := NewGraph()
	g.MustRegister(
		New("boom", func(*Evaluation) (any, error) {
			var m map[string]int
			m["x"] = 1
			return true, nil
		}).WithDefault(false),
	)

	ev := g.NewEvaluation(nil)
	res := ev.Get("boom")

	var p *PanicError
	if !errors.As(res.Err, &p) {
		t.Fatalf("expected PanicError, got %v", res.Err)
	}
	if res.Value != false || !res.Defaulted {
		t.Errorf("expected default after panic, got %+v", res)
	}
}

func TestEvaluation_UnknownRule(t *testing.T) {
	ev := NewGraph().NewEvaluation(nil)
	res := ev.Get("nope")

	var unknown *UnknownRuleError
	if !errors.As(res.Err, &unknown) {
		t.Fatalf("expected UnknownRuleError, got %v", res.Err)
	}
}

func TestEvaluation_TypedAccessors(t *testing.T) {
	g := NewGraph()
	g.MustRegister(
		New("ratio", constant(0.75)),
		New("count", constant(3)),
		New("label", constant("low")),
	)
	ev := g.NewEvaluation(nil)

	if f, ok := ev.Float("ratio"); !ok || f != 0.75 {
		t.Errorf("Float(ratio) = %v, %v", f, ok)
	}
	if f, ok := ev.Float("count"); !ok || f != 3 {
		t.Errorf("Float(count) = %v, %v", f, ok)
	}
	if _, ok := ev.Float("label"); ok {
		t.Error("Float(label) should fail")
	}

	label, err := Get[string](ev, "label")
	if err != nil || label != "low" {
		t.Errorf("Get[string] = %q, %v", label, err)
	}
	if _, err := Get[bool](ev, "label"); err == nil {
		t.Error("expected type mismatch error")
	}

	all := ev.All()
	if len(all) != 3 {
		t.Errorf("All() returned %d results, want 3", len(all))
	}
}
