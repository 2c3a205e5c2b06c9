// internal/validation/values.go
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/solatis/condfield/internal/types"
)

/*
 * Submitted values and emptiness.
 *
 * Values is a decoded snapshot. Numbers are kept as json.Number so "0"
 * and 0 read back identically.
 *
 * Emptiness follows the form layer's required rule: absent, null, false,
 * the empty string, and an empty array are empty; the string "0" is filled.
 * Editor values are judged by their text.
 */

// Values is a decoded submitted snapshot keyed by input name.
type Values map[string]any

// Decode parses a snapshot. It must be a JSON object no larger than
// MaxSnapshotSize.
func Decode(snap types.Snapshot) (Values, error) {
	if len(snap) > types.MaxSnapshotSize {
		return nil, types.ErrSnapshotTooLarge
	}
	if len(bytes.TrimSpace(snap)) == 0 {
		return Values{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(snap))
	dec.UseNumber()
	var v Values
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if v == nil {
		v = Values{}
	}
	return v, nil
}

// Has reports whether the field's input was submitted at all.
func (v Values) Has(shortname string) bool {
	_, ok := v[types.InputName(shortname)]
	return ok
}

// Value returns the raw submitted value for shortname. Editor payloads are
// unwrapped to their text.
func (v Values) Value(shortname string) (any, bool) {
	input := types.InputName(shortname)
	raw, ok := v[input]
	if !ok {
		return nil, false
	}
	if m, isObj := raw.(map[string]any); isObj {
		if _, hasText := m["text"]; hasText {
			text, err := Resolve([]PathSegment{{Key: input}, {Key: "text"}}, map[string]any(v))
			if err == nil {
				return text, true
			}
		}
	}
	return raw, true
}

// Text returns the submitted value as a string, "" when absent.
func (v Values) Text(shortname string) string {
	raw, _ := v.Value(shortname)
	return Text(raw)
}

// Filled reports whether shortname was submitted with a non-empty value.
func (v Values) Filled(shortname string) bool {
	raw, ok := v.Value(shortname)
	return ok && !IsEmpty(raw)
}

// Text converts a submitted scalar to its string form.
func Text(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		if v {
			return "1"
		}
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// IsEmpty reports whether a submitted value counts as not filled in.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case bool:
		return !v
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return Text(v) == ""
	}
}
