// internal/validation/submission_test.go
package validation

import (
	"errors"
	"reflect"
	"testing"

	"github.com/solatis/condfield/internal/types"
)

func TestValidateSubmission(t *testing.T) {
	s := newTestSuppressor(t)

	tests := []struct {
		name     string
		snapshot string
		want     []FieldError
	}{
		{
			name:     "required field filled",
			snapshot: `{"profile_field_contact":"A","profile_field_phone":"555"}`,
		},
		{
			name:     "zero counts as filled",
			snapshot: `{"profile_field_contact":"A","profile_field_phone":"0"}`,
		},
		{
			name:     "required field empty",
			snapshot: `{"profile_field_contact":"A","profile_field_phone":""}`,
			want: []FieldError{{
				Input: "profile_field_phone",
				Code:  CodeRequiredEmpty,
				Args:  MessageArgs{Field1: "Contact method", Value1: "A", Field2: "phone"},
			}},
		},
		{
			name:     "required field absent",
			snapshot: `{"profile_field_contact":"A"}`,
			want: []FieldError{{
				Input: "profile_field_contact",
				Code:  CodeRequiredAbsent,
				Args:  MessageArgs{Field1: "Contact method", Value1: "A", Field2: "Phone number"},
			}},
		},
		{
			name:     "hidden field submitted",
			snapshot: `{"profile_field_contact":"B","profile_field_nickname":"Bo"}`,
			want: []FieldError{{
				Input: "profile_field_contact",
				Code:  CodeExtraData,
				Args:  MessageArgs{Field1: "Contact method", Value1: "B", Field2: "Nickname"},
			}},
		},
		{
			name:     "hidden fields blank",
			snapshot: `{"profile_field_contact":"B"}`,
		},
		{
			name:     "no selection",
			snapshot: `{"profile_field_contact":""}`,
		},
		{
			name:     "option without condition",
			snapshot: `{"profile_field_contact":"Z"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ValidateSubmission("contact", mustDecode(t, tt.snapshot))
			if err != nil {
				t.Fatalf("ValidateSubmission() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ValidateSubmission() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestValidateSubmission_EditorText(t *testing.T) {
	s := FromDefinitions([]Definition{{
		Shortname:  "kind",
		Name:       "Kind",
		Conditions: `[{"option":"long","requiredfields":["bio"],"hiddenfields":[]}]`,
	}}, nil, nil)

	errs, err := s.ValidateSubmission("kind", mustDecode(t, `{"profile_field_kind":"long","profile_field_bio":{"text":"","format":"1"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(errs) != 1 || errs[0].Code != CodeRequiredEmpty || errs[0].Input != "profile_field_bio" {
		t.Errorf("empty editor text: got %+v", errs)
	}

	errs, _ = s.ValidateSubmission("kind", mustDecode(t, `{"profile_field_kind":"long","profile_field_bio":{"text":"about me","format":"1"}}`))
	if len(errs) != 0 {
		t.Errorf("filled editor text: got %+v", errs)
	}
}

func TestValidateSubmission_UnknownField(t *testing.T) {
	s := newTestSuppressor(t)
	if _, err := s.ValidateSubmission("nope", Values{}); !errors.Is(err, types.ErrNotConditional) {
		t.Errorf("error = %v, want ErrNotConditional", err)
	}
}

func TestMessageArgs_Map(t *testing.T) {
	got := MessageArgs{Field1: "a", Value1: "b", Field2: "c"}.Map()
	want := map[string]string{"field1": "a", "value1": "b", "field2": "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Map() = %v, want %v", got, want)
	}
}
