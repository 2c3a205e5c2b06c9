// internal/conditions/migrate.go
package conditions

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/solatis/condfield/internal/types"
)

/*
 * Legacy option keying.
 *
 * Older releases keyed conditions by the option's position in the menu
 * ("option": 2). Current releases key by the literal label ("option": "B").
 * The two layouts are not interchangeable: reordering the menu silently
 * reassigns index-keyed conditions. Label keying is canonical; the index
 * layout is accepted here only to rewrite it once.
 */

// Format identifies a stored condition layout.
type Format int

const (
	FormatUnknown Format = iota
	FormatLabel
	FormatLegacyIndex
)

// DetectFormat inspects the option keys of a stored configuration.
// Empty input is reported as FormatLabel.
func DetectFormat(raw string) Format {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return FormatLabel
	}
	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return FormatUnknown
	}
	if len(entries) == 0 {
		return FormatLabel
	}
	format := FormatUnknown
	for i, e := range entries {
		f := optionFormat(e["option"])
		if f == FormatUnknown || (i > 0 && f != format) {
			return FormatUnknown
		}
		format = f
	}
	return format
}

// optionFormat classifies one option key: a string is a label, a JSON
// number an index. null, booleans and anything else are unknown.
func optionFormat(opt json.RawMessage) Format {
	opt = bytes.TrimSpace(opt)
	switch {
	case len(opt) == 0:
		return FormatUnknown
	case opt[0] == '"':
		return FormatLabel
	case opt[0] == '-' || (opt[0] >= '0' && opt[0] <= '9'):
		return FormatLegacyIndex
	default:
		return FormatUnknown
	}
}

// MigrateLegacy rewrites an index-keyed configuration to label keying using
// the field's option list. Label-keyed input is validated and re-encoded.
func MigrateLegacy(raw string, options []string) (string, error) {
	switch DetectFormat(raw) {
	case FormatLabel:
		set, err := Parse(raw)
		if err != nil {
			return "", err
		}
		return set.Encode()
	case FormatLegacyIndex:
	default:
		return "", types.ErrMalformedConditions
	}

	var legacy []types.LegacyRawCondition
	if err := json.Unmarshal([]byte(raw), &legacy); err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrMalformedConditions, err)
	}

	converted := make([]types.RawCondition, 0, len(legacy))
	for _, lc := range legacy {
		if lc.Option < 0 || lc.Option >= len(options) {
			return "", fmt.Errorf("%w: %d", types.ErrUnknownOption, lc.Option)
		}
		converted = append(converted, types.RawCondition{
			Option:         options[lc.Option],
			RequiredFields: lc.RequiredFields,
			HiddenFields:   lc.HiddenFields,
		})
	}

	b, err := json.Marshal(converted)
	if err != nil {
		return "", err
	}
	set, err := Parse(string(b))
	if err != nil {
		return "", err
	}
	return set.Encode()
}
