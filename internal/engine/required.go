// internal/engine/required.go
package engine

import "github.com/solatis/condfield/internal/conditions"

// toggleIndicators adds an indicator to every row required under the
// current selection and starts removal on every other row that shows one.
// Removal is committed only if the row is still not required when the
// fade completes.
func (e *Engine) toggleIndicators() {
	cond, _ := e.set.Lookup(e.selected)
	for _, f := range e.fields {
		h := e.handles[f]
		if cond.Requires(f) {
			h.AddRequiredIndicator(e.params.RequiredMarkup)
			continue
		}
		if h.HasRequiredIndicator() {
			h.RemoveRequiredIndicator(e.indicatorCommit(f))
		}
	}
}

func (e *Engine) indicatorCommit(f string) func() bool {
	return func() bool {
		r := e.active.Load()
		return !r.set.IsRequiredUnder(f, r.selected)
	}
}

// hiddenUnder reports whether f is hidden for selected according to the
// rules alone, independent of any row state.
func (e *Engine) hiddenUnder(set *conditions.Set, f, selected string) bool {
	if selected == conditions.NoSelection {
		return e.params.HideInitially && set.HiddenUnion().Contains(f)
	}
	return set.IsHiddenUnder(f, selected)
}

// RequiredFieldsToSuppress returns the referenced fields whose required
// registration must be dropped for a submission with selected. The list is
// computed from the rules on every call.
func (e *Engine) RequiredFieldsToSuppress(selected string) []string {
	set := e.active.Load().set
	var out []string
	for _, f := range set.AllReferenced() {
		if e.hiddenUnder(set, f, selected) {
			out = append(out, f)
		}
	}
	return out
}

// IsRequiredUnderCurrentConditions is the validation predicate shared with
// the generic required-field check: a hidden field is never required, any
// other field is required if it is natively required or the selected
// option's condition requires it.
func (e *Engine) IsRequiredUnderCurrentConditions(field, selected string, nativelyRequired bool) bool {
	set := e.active.Load().set
	if e.hiddenUnder(set, field, selected) {
		return false
	}
	return nativelyRequired || set.IsRequiredUnder(field, selected)
}
