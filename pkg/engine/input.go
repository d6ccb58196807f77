package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"mercator-hq/ddsguard/pkg/document"
	"mercator-hq/ddsguard/pkg/indicators"
	"mercator-hq/ddsguard/pkg/rules"
)

// evalInput is the value every rule reads through Evaluation.Input.
type evalInput struct {
	doc  *document.Document
	ind  *indicators.Snapshot
	now  time.Time
	lead int
}

func inputOf(ev *rules.Evaluation) *evalInput {
	return ev.Input().(*evalInput)
}

// errNotApplicable marks rules whose inputs are present but empty.
var errNotApplicable = errors.New("not applicable")

// fieldProblem describes why a string field is unusable, or returns "" when
// the field is absent and that is acceptable.
func fieldProblem(f document.Field[string], label string) string {
	if f.Present {
		if strings.TrimSpace(f.Value) == "" {
			return "blank " + label
		}
		return ""
	}
	var typeErr *document.FieldTypeError
	if errors.As(f.Err, &typeErr) {
		return fmt.Sprintf("%s must be a %s", label, typeErr.Want)
	}
	return ""
}

// nonBlank returns the trimmed value of a present, non-blank string field.
func nonBlank(f document.Field[string]) (string, bool) {
	if !f.Present {
		return "", false
	}
	v := strings.TrimSpace(f.Value)
	return v, v != ""
}
