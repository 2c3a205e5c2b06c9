package types

// RawCondition is one entry of the stored condition configuration.
// Field names match the JSON written by the authoring dialog.
type RawCondition struct {
	Option              string   `json:"option"`
	RequiredFields      []string `json:"requiredfields"`
	HiddenFields        []string `json:"hiddenfields"`
	HiddenClearedFields []string `json:"hiddenclearedfields"`
}

// LegacyRawCondition is the index-keyed layout written by older releases,
// where Option is the zero-based position in the option list.
// Accepted only as migration input.
type LegacyRawCondition struct {
	Option         int      `json:"option"`
	RequiredFields []string `json:"requiredfields"`
	HiddenFields   []string `json:"hiddenfields"`
}
