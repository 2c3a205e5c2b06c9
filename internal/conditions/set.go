// internal/conditions/set.go
package conditions

/*
 * Condition set model.
 *
 * A Set is the parsed form of a controlling field's stored configuration:
 * one Condition per option plus an optional synthetic no-selection
 * condition. Derived unions (allReferenced, hiddenUnion) are computed once
 * in newSet and never change; a Set is immutable after construction, so
 * WithNoSelection returns a copy rather than mutating.
 *
 * Ordering: FieldSet keeps first-appearance order. Engine reconciliation
 * walks fields in this order so repeated runs touch handles in the same
 * sequence.
 */

// NoSelection is the option key of the synthetic condition that applies
// before the user has chosen anything.
const NoSelection = ""

// FieldSet is an ordered set of field shortnames.
type FieldSet []string

// Contains reports whether field is a member.
func (s FieldSet) Contains(field string) bool {
	for _, f := range s {
		if f == field {
			return true
		}
	}
	return false
}

// Condition holds the dependent-field sets for one option.
type Condition struct {
	Option        string
	Required      FieldSet
	Hidden        FieldSet
	HiddenCleared FieldSet
}

// Requires reports whether field must be filled under this condition.
func (c *Condition) Requires(field string) bool {
	return c != nil && c.Required.Contains(field)
}

// Hides reports whether field is hidden (with or without clearing).
func (c *Condition) Hides(field string) bool {
	return c != nil && (c.Hidden.Contains(field) || c.HiddenCleared.Contains(field))
}

// Clears reports whether field is hidden and reset to its default.
func (c *Condition) Clears(field string) bool {
	return c != nil && c.HiddenCleared.Contains(field)
}

// Set is an immutable, validated collection of conditions.
type Set struct {
	conditions    []Condition
	index         map[string]int
	noSelection   *Condition
	allReferenced FieldSet
	hiddenUnion   FieldSet
}

// newSet builds the derived unions. Callers have already validated conds.
func newSet(conds []Condition) *Set {
	s := &Set{
		conditions: conds,
		index:      make(map[string]int, len(conds)),
	}
	seenRef := make(map[string]bool)
	seenHidden := make(map[string]bool)
	for i, c := range conds {
		s.index[c.Option] = i
		for _, group := range []FieldSet{c.Hidden, c.HiddenCleared, c.Required} {
			for _, f := range group {
				if !seenRef[f] {
					seenRef[f] = true
					s.allReferenced = append(s.allReferenced, f)
				}
			}
		}
		for _, group := range []FieldSet{c.Hidden, c.HiddenCleared} {
			for _, f := range group {
				if !seenHidden[f] {
					seenHidden[f] = true
					s.hiddenUnion = append(s.hiddenUnion, f)
				}
			}
		}
	}
	return s
}

// Empty returns a set with no conditions. Every field stays visible and
// nothing extra is required.
func Empty() *Set {
	return newSet(nil)
}

// Len returns the number of option conditions, excluding no-selection.
func (s *Set) Len() int {
	return len(s.conditions)
}

// Conditions returns the option conditions in stored order.
func (s *Set) Conditions() []Condition {
	out := make([]Condition, len(s.conditions))
	copy(out, s.conditions)
	return out
}

// Options returns the option keys in stored order.
func (s *Set) Options() []string {
	out := make([]string, len(s.conditions))
	for i, c := range s.conditions {
		out[i] = c.Option
	}
	return out
}

// AllReferenced returns every field named by any condition.
func (s *Set) AllReferenced() FieldSet {
	return append(FieldSet(nil), s.allReferenced...)
}

// HiddenUnion returns every field hidden (or hidden and cleared) by any condition.
func (s *Set) HiddenUnion() FieldSet {
	return append(FieldSet(nil), s.hiddenUnion...)
}

// Lookup returns the condition for option. The empty option resolves to the
// synthetic no-selection condition when one is attached.
func (s *Set) Lookup(option string) (*Condition, bool) {
	if option == NoSelection {
		if s.noSelection != nil {
			return s.noSelection, true
		}
	}
	i, ok := s.index[option]
	if !ok {
		return nil, false
	}
	return &s.conditions[i], true
}

// IsHiddenUnder reports whether field is hidden when option is selected.
func (s *Set) IsHiddenUnder(field, option string) bool {
	c, ok := s.Lookup(option)
	return ok && c.Hides(field)
}

// IsRequiredUnder reports whether field is required when option is selected.
func (s *Set) IsRequiredUnder(field, option string) bool {
	c, ok := s.Lookup(option)
	return ok && c.Requires(field)
}

// WithNoSelection returns a copy of s carrying a synthetic no-selection
// condition whose required set is required. Fields in required that the set
// never references are dropped.
func (s *Set) WithNoSelection(required []string) *Set {
	cp := *s
	ns := &Condition{Option: NoSelection}
	for _, f := range dedupe(required) {
		if s.allReferenced.Contains(f) {
			ns.Required = append(ns.Required, f)
		}
	}
	cp.noSelection = ns
	return &cp
}

// NoSelectionCondition returns the synthetic condition, if attached.
func (s *Set) NoSelectionCondition() (*Condition, bool) {
	return s.noSelection, s.noSelection != nil
}

func dedupe(in []string) FieldSet {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make(FieldSet, 0, len(in))
	for _, f := range in {
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
