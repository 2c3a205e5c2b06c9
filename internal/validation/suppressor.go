// internal/validation/suppressor.go
package validation

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/solatis/condfield/internal/conditions"
	"github.com/solatis/condfield/internal/types"
)

/*
 * Cross-field required suppression.
 *
 * A form can carry several controlling fields. The Suppressor is built from
 * all of them and answers the one question the generic required check
 * needs: given the submitted values, is this field required right now?
 *
 * Hidden wins. A field hidden by any controlling field's current value is
 * never required, whether the requirement is native or comes from a
 * condition. This is the same predicate the engine applies client side.
 */

// ControllingField is one conditional field definition in a form.
// HideInitially hides the set's hidden union while nothing is selected.
type ControllingField struct {
	Shortname     string
	Name          string
	Set           *conditions.Set
	HideInitially bool
}

// Hides reports whether field is hidden while selected is the controlling
// value. This is the predicate the engine applies to rows.
func (f ControllingField) Hides(field, selected string) bool {
	if selected == conditions.NoSelection {
		return f.HideInitially && f.Set.HiddenUnion().Contains(field)
	}
	return f.Set.IsHiddenUnder(field, selected)
}

// Suppressor evaluates requirement and visibility across every controlling
// field of a form.
type Suppressor struct {
	fields []ControllingField
	byName map[string]int
	names  map[string]string
}

// NewSuppressor builds a Suppressor. names maps shortnames to display names
// and is used only for messages.
func NewSuppressor(fields []ControllingField, names map[string]string) *Suppressor {
	s := &Suppressor{
		fields: make([]ControllingField, 0, len(fields)),
		byName: make(map[string]int, len(fields)),
		names:  names,
	}
	for _, f := range fields {
		if f.Set == nil {
			f.Set = conditions.Empty()
		}
		s.byName[f.Shortname] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s
}

// Definition is the stored form of a controlling field.
type Definition struct {
	Shortname     string
	Name          string
	Conditions    string
	HideInitially bool
}

// FromDefinitions parses stored definitions into a Suppressor. Broken
// configurations are logged and contribute no rules.
func FromDefinitions(defs []Definition, names map[string]string, logger *slog.Logger) *Suppressor {
	fields := make([]ControllingField, 0, len(defs))
	for _, d := range defs {
		fields = append(fields, ControllingField{
			Shortname:     d.Shortname,
			Name:          d.Name,
			Set:           conditions.ParseOrEmpty(d.Conditions, d.Shortname, logger),
			HideInitially: d.HideInitially,
		})
	}
	return NewSuppressor(fields, names)
}

// Field returns the controlling field registered under shortname.
func (s *Suppressor) Field(shortname string) (ControllingField, bool) {
	i, ok := s.byName[shortname]
	if !ok {
		return ControllingField{}, false
	}
	return s.fields[i], true
}

// Fields returns the controlling fields in registration order.
func (s *Suppressor) Fields() []ControllingField {
	return append([]ControllingField(nil), s.fields...)
}

// HiddenSettings maps each hideable field's input name to the controlling
// fields and option values that hide it.
func (s *Suppressor) HiddenSettings() map[string]map[string][]string {
	out := make(map[string]map[string][]string)
	for _, f := range s.fields {
		for _, c := range f.Set.Conditions() {
			for _, subject := range append(append(conditions.FieldSet(nil), c.Hidden...), c.HiddenCleared...) {
				input := types.InputName(subject)
				if out[input] == nil {
					out[input] = make(map[string][]string)
				}
				out[input][f.Shortname] = append(out[input][f.Shortname], c.Option)
			}
		}
	}
	return out
}

// HiddenBy returns the controlling fields whose current value hides field.
func (s *Suppressor) HiddenBy(field string, values Values) []string {
	var out []string
	for _, f := range s.fields {
		if f.Hides(field, values.Text(f.Shortname)) {
			out = append(out, f.Shortname)
		}
	}
	return out
}

// IsRequiredUnderCurrentConditions reports whether field must be filled for
// the submitted values.
func (s *Suppressor) IsRequiredUnderCurrentConditions(field string, nativelyRequired bool, values Values) bool {
	if len(s.HiddenBy(field, values)) > 0 {
		return false
	}
	if nativelyRequired {
		return true
	}
	for _, f := range s.fields {
		if f.Set.IsRequiredUnder(field, values.Text(f.Shortname)) {
			return true
		}
	}
	return false
}

// Rule is one validation rule registered on a form input.
type Rule struct {
	Type    string
	Message string
}

// RuleRequired is the rule type of the generic required check.
const RuleRequired = "required"

// RequiredRules is the required-field registry of a form: the list of
// required input names and the rule table keyed by input name.
type RequiredRules struct {
	Required []string
	Rules    map[string][]Rule
}

// remove drops every required registration of input and reports whether
// anything was removed.
func (r *RequiredRules) remove(input string) bool {
	removed := false
	kept := r.Required[:0]
	for _, name := range r.Required {
		if name == input {
			removed = true
			continue
		}
		kept = append(kept, name)
	}
	r.Required = kept

	if rules, ok := r.Rules[input]; ok {
		keptRules := rules[:0]
		for _, rule := range rules {
			if rule.Type == RuleRequired {
				removed = true
				continue
			}
			keptRules = append(keptRules, rule)
		}
		r.Rules[input] = keptRules
	}
	return removed
}

// SuppressRequired removes the required registrations of every field hidden
// under the submitted values and returns the affected shortnames, sorted.
// It must run on every submission pass; the result depends on values.
func (s *Suppressor) SuppressRequired(form *RequiredRules, values Values) []string {
	if form == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, f := range s.fields {
		selected := values.Text(f.Shortname)
		for _, subject := range f.Set.HiddenUnion() {
			if seen[subject] || !f.Hides(subject, selected) {
				continue
			}
			seen[subject] = true
			if form.remove(types.InputName(subject)) {
				out = append(out, subject)
			}
		}
	}
	sort.Strings(out)
	return out
}

func (s *Suppressor) displayName(shortname string) string {
	if n, ok := s.names[shortname]; ok && n != "" {
		return n
	}
	return shortname
}

func (s *Suppressor) controlling(shortname string) (ControllingField, error) {
	f, ok := s.Field(shortname)
	if !ok {
		return ControllingField{}, fmt.Errorf("%w: %q", types.ErrNotConditional, shortname)
	}
	return f, nil
}
