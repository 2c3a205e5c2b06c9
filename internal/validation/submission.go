// internal/validation/submission.go
package validation

import "github.com/solatis/condfield/internal/types"

// Message codes reported by ValidateSubmission.
const (
	// CodeRequiredEmpty: a required dependent field was submitted empty.
	// The error is attached to the dependent field.
	CodeRequiredEmpty = "requiredbycondition1"

	// CodeRequiredAbsent: a required dependent field is missing from the
	// submission. The error is attached to the controlling field.
	CodeRequiredAbsent = "requiredbycondition2"

	// CodeExtraData: a field hidden under the selected option was submitted.
	CodeExtraData = "extradata"
)

// MessageArgs carries the placeholders of a localized message.
type MessageArgs struct {
	Field1 string `json:"field1"`
	Value1 string `json:"value1"`
	Field2 string `json:"field2"`
}

// Map returns the arguments keyed by placeholder name.
func (a MessageArgs) Map() map[string]string {
	return map[string]string{"field1": a.Field1, "value1": a.Value1, "field2": a.Field2}
}

// FieldError is one validation failure attached to a form input.
type FieldError struct {
	Input string      `json:"input"`
	Code  string      `json:"code"`
	Args  MessageArgs `json:"args"`
}

// ValidateSubmission checks the submitted values against the condition of
// the option selected on the controlling field. No selection means no
// condition-driven requirements. Returns ErrNotConditional when field is
// not a known controlling field.
func (s *Suppressor) ValidateSubmission(field string, values Values) ([]FieldError, error) {
	cf, err := s.controlling(field)
	if err != nil {
		return nil, err
	}
	selected := values.Text(cf.Shortname)
	cond, ok := cf.Set.Lookup(selected)
	if selected == "" || !ok {
		return nil, nil
	}

	input := types.InputName(cf.Shortname)
	var errs []FieldError

	for _, dep := range cond.Required {
		if values.Filled(dep) {
			continue
		}
		args := MessageArgs{Field1: cf.Name, Value1: selected, Field2: dep}
		if values.Has(dep) {
			errs = append(errs, FieldError{Input: types.InputName(dep), Code: CodeRequiredEmpty, Args: args})
			continue
		}
		args.Field2 = s.displayName(dep)
		errs = append(errs, FieldError{Input: input, Code: CodeRequiredAbsent, Args: args})
	}

	for _, dep := range append(append([]string(nil), cond.Hidden...), cond.HiddenCleared...) {
		if values.Has(dep) {
			errs = append(errs, FieldError{
				Input: input,
				Code:  CodeExtraData,
				Args:  MessageArgs{Field1: cf.Name, Value1: selected, Field2: s.displayName(dep)},
			})
			break
		}
	}
	return errs, nil
}
