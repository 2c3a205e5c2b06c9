// internal/validation/values_test.go
package validation

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/solatis/condfield/internal/types"
)

func mustDecode(t *testing.T, raw string) Values {
	t.Helper()
	v, err := Decode(types.Snapshot(raw))
	if err != nil {
		t.Fatalf("Decode(%s) error = %v", raw, err)
	}
	return v
}

func TestDecode(t *testing.T) {
	if v := mustDecode(t, ""); len(v) != 0 {
		t.Errorf("empty snapshot decoded to %v", v)
	}
	if v := mustDecode(t, "null"); v == nil || len(v) != 0 {
		t.Errorf("null snapshot decoded to %#v", v)
	}
	if _, err := Decode(types.Snapshot(`[1,2]`)); err == nil {
		t.Error("array snapshot should fail")
	}

	big := `{"profile_field_x":"` + strings.Repeat("a", types.MaxSnapshotSize) + `"}`
	if _, err := Decode(types.Snapshot(big)); !errors.Is(err, types.ErrSnapshotTooLarge) {
		t.Errorf("oversized snapshot error = %v, want ErrSnapshotTooLarge", err)
	}
}

func TestValues_Filled(t *testing.T) {
	v := mustDecode(t, `{
		"profile_field_zero": "0",
		"profile_field_numzero": 0,
		"profile_field_empty": "",
		"profile_field_null": null,
		"profile_field_false": false,
		"profile_field_true": true,
		"profile_field_bio": {"text": "", "format": "1"},
		"profile_field_note": {"text": "hi", "format": "1"},
		"profile_field_tags": [],
		"profile_field_picks": ["a"]
	}`)

	tests := []struct {
		field string
		want  bool
	}{
		{"zero", true},
		{"numzero", true},
		{"empty", false},
		{"null", false},
		{"false", false},
		{"true", true},
		{"bio", false},
		{"note", true},
		{"tags", false},
		{"picks", true},
		{"absent", false},
	}
	for _, tt := range tests {
		if got := v.Filled(tt.field); got != tt.want {
			t.Errorf("Filled(%q) = %v, want %v", tt.field, got, tt.want)
		}
	}

	if !v.Has("empty") || v.Has("absent") {
		t.Error("Has() must reflect presence, not content")
	}
	if got := v.Text("note"); got != "hi" {
		t.Errorf("Text(note) = %q, want editor text", got)
	}
	if got := v.Text("numzero"); got != "0" {
		t.Errorf("Text(numzero) = %q, want %q", got, "0")
	}
}

func TestText(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{json.Number("12.5"), "12.5"},
		{float64(3), "3"},
		{7, "7"},
		{int64(-2), "-2"},
		{true, "1"},
		{false, ""},
	}
	for _, tt := range tests {
		if got := Text(tt.in); got != tt.want {
			t.Errorf("Text(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
