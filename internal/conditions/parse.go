// internal/conditions/parse.go
package conditions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/solatis/condfield/internal/types"
)

/*
 * Condition set parsing and validation.
 *
 * Parse turns the stored JSON configuration into a Set, rejecting anything
 * that would violate the model invariants: required ∩ hidden = ∅ and
 * required ∩ hiddenCleared = ∅ for every option, unique non-empty options,
 * and the resource limits in types.
 *
 * Conflicts are reported here and never resolved at runtime: a field that
 * is both required and hidden would block submission forever.
 *
 * ParseOrEmpty is the render-time entry point. A broken stored value must
 * not take the form down, so it degrades to Empty() after logging.
 */

// Parse decodes and validates a stored condition configuration.
// An empty string or JSON null yields an empty set.
func Parse(raw string) (*Set, error) {
	raws, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if len(raws) > types.MaxConditions {
		return nil, types.ErrTooManyConditions
	}

	conds := make([]Condition, 0, len(raws))
	seen := make(map[string]bool, len(raws))
	for _, rc := range raws {
		c, err := compileCondition(rc)
		if err != nil {
			return nil, err
		}
		if seen[c.Option] {
			return nil, fmt.Errorf("%w: %q", types.ErrDuplicateOption, c.Option)
		}
		seen[c.Option] = true
		conds = append(conds, c)
	}

	return newSet(conds), nil
}

// ParseOrEmpty parses raw and falls back to Empty() on any error.
// The error is logged at warn level with the controlling field name.
func ParseOrEmpty(raw, field string, logger *slog.Logger) *Set {
	set, err := Parse(raw)
	if err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("ignoring invalid condition configuration",
			slog.String("field", field),
			slog.Any("error", err))
		return Empty()
	}
	return set
}

// decode unmarshals the stored list without validating it.
func decode(raw string) ([]types.RawCondition, error) {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var raws []types.RawCondition
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedConditions, err)
	}
	return raws, nil
}

// compileCondition validates one stored entry and converts it to a Condition.
// Enforces option presence, identifier limits, and the required/hidden invariant.
func compileCondition(rc types.RawCondition) (Condition, error) {
	if rc.Option == NoSelection {
		return Condition{}, fmt.Errorf("%w: empty option key", types.ErrMalformedConditions)
	}

	c := Condition{Option: rc.Option}
	groups := []struct {
		in  []string
		out *FieldSet
	}{
		{rc.RequiredFields, &c.Required},
		{rc.HiddenFields, &c.Hidden},
		{rc.HiddenClearedFields, &c.HiddenCleared},
	}
	for _, g := range groups {
		if len(g.in) > types.MaxFieldsPerSet {
			return Condition{}, types.ErrTooManyFields
		}
		for _, f := range g.in {
			if err := checkFieldID(f); err != nil {
				return Condition{}, err
			}
		}
		*g.out = dedupe(g.in)
	}

	if conflict := conflicts(c); len(conflict) > 0 {
		return Condition{}, fmt.Errorf("%w: option %q: %s",
			types.ErrHiddenRequired, c.Option, strings.Join(conflict, ", "))
	}
	return c, nil
}

// conflicts returns the required fields that the same condition also hides.
func conflicts(c Condition) []string {
	var out []string
	for _, f := range c.Required {
		if c.Hidden.Contains(f) || c.HiddenCleared.Contains(f) {
			out = append(out, f)
		}
	}
	return out
}

func checkFieldID(id string) error {
	if strings.TrimSpace(id) == "" {
		return types.ErrEmptyFieldID
	}
	if len(id) > types.MaxFieldIDLength {
		return types.ErrFieldIDTooLong
	}
	return nil
}

// BaseShortname strips editor sub-field notation: "bio[text]" -> "bio".
func BaseShortname(id string) string {
	if i := strings.IndexByte(id, '['); i >= 0 {
		return id[:i]
	}
	return id
}

// Encode serializes the option conditions back to the stored format.
// The synthetic no-selection condition is never written.
func (s *Set) Encode() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// MarshalJSON implements json.Marshaler using the stored wire layout.
// Empty sets are written as [] so older readers never see null.
func (s *Set) MarshalJSON() ([]byte, error) {
	out := make([]types.RawCondition, len(s.conditions))
	for i, c := range s.conditions {
		out[i] = types.RawCondition{
			Option:              c.Option,
			RequiredFields:      nonNil(c.Required),
			HiddenFields:        nonNil(c.Hidden),
			HiddenClearedFields: nonNil(c.HiddenCleared),
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler via Parse.
func (s *Set) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*s = *parsed
	return nil
}

func nonNil(fs FieldSet) []string {
	if fs == nil {
		return []string{}
	}
	return fs
}
