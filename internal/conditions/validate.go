// internal/conditions/validate.go
package conditions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/solatis/condfield/internal/types"
)

// Authoring-time error codes. Each maps to a localized message key.
const (
	CodeEmpty          = "emptycondition"
	CodeMalformed      = "malformed"
	CodeOptionMismatch = "optionconditionmismatch"
	CodeNotAField      = "notaprofilefield"
	CodeHiddenRequired = "hiddenrequired"
	CodeLimits         = "limits"
)

// Definition is the subset of a field definition checked on save.
type Definition struct {
	Shortname  string
	Options    []string
	Conditions string
}

// FieldCatalog answers whether a shortname names a real field in the
// enclosing field group.
type FieldCatalog interface {
	HasField(shortname string) bool
}

// CatalogSet is a FieldCatalog backed by a set of shortnames.
type CatalogSet map[string]bool

// HasField implements FieldCatalog.
func (c CatalogSet) HasField(shortname string) bool {
	return c[shortname]
}

// DefinitionError is one authoring-time validation failure.
type DefinitionError struct {
	Code   string
	Option string
	Field  string
	Err    error
}

func (e *DefinitionError) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	if e.Option != "" {
		fmt.Fprintf(&b, " option=%q", e.Option)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field=%q", e.Field)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DefinitionError) Unwrap() error {
	return e.Err
}

// DefinitionErrors reports every violation found in one definition.
type DefinitionErrors []*DefinitionError

func (es DefinitionErrors) Error() string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.Error()
	}
	return "invalid condition configuration: " + strings.Join(parts, "; ")
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (es DefinitionErrors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}

// Codes returns the violation codes in report order.
func (es DefinitionErrors) Codes() []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Code
	}
	return out
}

// SplitOptions splits a newline separated option list, dropping carriage
// returns and blank lines.
func SplitOptions(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r", "")
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// ValidateDefinition checks a definition before it is saved and returns every
// violation found. A nil result means the definition may be stored.
func ValidateDefinition(def Definition, catalog FieldCatalog) []*DefinitionError {
	if strings.TrimSpace(def.Conditions) == "" {
		return []*DefinitionError{{Code: CodeEmpty, Err: types.ErrEmptyConditions}}
	}

	raws, err := decode(def.Conditions)
	if err != nil {
		return []*DefinitionError{{Code: CodeMalformed, Err: err}}
	}
	if len(raws) == 0 {
		return []*DefinitionError{{Code: CodeEmpty, Err: types.ErrEmptyConditions}}
	}

	var errs []*DefinitionError

	condOptions := make(map[string]bool, len(raws))
	for _, rc := range raws {
		if condOptions[rc.Option] {
			errs = append(errs, &DefinitionError{Code: CodeMalformed, Option: rc.Option, Err: types.ErrDuplicateOption})
		}
		condOptions[rc.Option] = true
	}
	current := make(map[string]bool, len(def.Options))
	for _, opt := range def.Options {
		current[opt] = true
		if !condOptions[opt] {
			errs = append(errs, &DefinitionError{Code: CodeOptionMismatch, Option: opt, Err: types.ErrOptionMismatch})
		}
	}
	for _, rc := range raws {
		if !current[rc.Option] {
			errs = append(errs, &DefinitionError{Code: CodeOptionMismatch, Option: rc.Option, Err: types.ErrOptionMismatch})
		}
	}

	for _, rc := range raws {
		for _, group := range [][]string{rc.RequiredFields, rc.HiddenFields, rc.HiddenClearedFields} {
			for _, f := range group {
				base := BaseShortname(f)
				if base == def.Shortname || (catalog != nil && !catalog.HasField(base)) {
					errs = append(errs, &DefinitionError{Code: CodeNotAField, Option: rc.Option, Field: f, Err: types.ErrNotAField})
				}
			}
		}

		if _, err := compileCondition(rc); err != nil {
			code := CodeLimits
			switch {
			case errors.Is(err, types.ErrHiddenRequired):
				code = CodeHiddenRequired
			case errors.Is(err, types.ErrMalformedConditions), errors.Is(err, types.ErrEmptyFieldID):
				code = CodeMalformed
			}
			errs = append(errs, &DefinitionError{Code: code, Option: rc.Option, Err: err})
		}
	}

	if len(raws) > types.MaxConditions {
		errs = append(errs, &DefinitionError{Code: CodeLimits, Err: types.ErrTooManyConditions})
	}

	return errs
}
