// Package types provides domain models shared across condfield components.
//
// Zero-dependency design: types.go, conditions.go and errors.go use only
// encoding/json so the condition model and the engine can be embedded in
// other binaries without pulling in storage or transport deps. ID utilities in
// ids.go import uuid but are isolated.
package types

import "encoding/json"

// FieldID identifies a stored field definition.
type FieldID int64

// RevisionID represents a UUIDv7 identifier for one saved revision of a
// field's condition set. String alias keeps JSON serialization plain.
type RevisionID string

// DatatypeConditional marks field definitions that carry a condition set.
const DatatypeConditional = "conditional"

// InputPrefix is prepended to a field shortname to form its input name in a
// rendered form and in a submitted snapshot.
const InputPrefix = "profile_field_"

// InputName returns the form input name for a field shortname.
func InputName(shortname string) string {
	return InputPrefix + shortname
}

// FieldRecord is the metadata returned by the other-fields lookup.
type FieldRecord struct {
	ID        FieldID `json:"id" db:"id"`
	Shortname string  `json:"shortname" db:"shortname"`
	Name      string  `json:"name" db:"name"`
}

// Snapshot is a submitted form, keyed by input name.
// json.RawMessage wrapper preserves original bytes; validation resolves
// individual values lazily through a field path.
type Snapshot json.RawMessage

// MarshalJSON implements json.Marshaler.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	return json.RawMessage(s).MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	return (*json.RawMessage)(s).UnmarshalJSON(data)
}

// Resource limits enforced when parsing stored condition sets.
const (
	// MaxConditions caps the number of options a controlling field may carry.
	// Select menus beyond a few hundred entries are not usable anyway.
	MaxConditions = 256

	// MaxFieldsPerSet caps each of the required/hidden/cleared sets.
	MaxFieldsPerSet = 256

	// MaxFieldIDLength matches the shortname column width.
	MaxFieldIDLength = 255

	// MaxSnapshotSize bounds a submitted form payload.
	MaxSnapshotSize = 1024 * 1024

	// MaxPathDepth bounds snapshot value resolution.
	MaxPathDepth = 8
)
