package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/solatis/condfield/internal/conditions"
	"github.com/solatis/condfield/internal/core/db"
	"github.com/solatis/condfield/internal/types"
	"github.com/solatis/condfield/internal/validation"
)

const contactConditions = `[{"option":"A","requiredfields":["phone"],"hiddenfields":[],"hiddenclearedfields":[]},` +
	`{"option":"B","requiredfields":[],"hiddenfields":["phone"],"hiddenclearedfields":["nickname"]}]`

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	database, queries, err := db.Setup(ctx, "sqlite://"+filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("db.Setup: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return New(queries, nil)
}

// seed creates phone and nickname plus the conditional contact field.
func seed(t *testing.T, s *Store) (phone, contact types.FieldID) {
	t.Helper()
	ctx := context.Background()
	phone, err := s.CreateField(ctx, NewField{Shortname: "phone", Name: "Phone", Datatype: "text", SortOrder: 2})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateField(ctx, NewField{Shortname: "nickname", Name: "Nickname", Datatype: "text", SortOrder: 3}); err != nil {
		t.Fatal(err)
	}
	contact, err = s.CreateField(ctx, NewField{
		Shortname:  "contact",
		Name:       "Contact",
		Datatype:   types.DatatypeConditional,
		Options:    "A\nB",
		Conditions: contactConditions,
		SortOrder:  1,
	})
	if err != nil {
		t.Fatalf("CreateField(contact): %v", err)
	}
	return phone, contact
}

func TestStore_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, contact := seed(t, s)

	f, err := s.GetField(ctx, contact)
	if err != nil {
		t.Fatal(err)
	}
	if !f.IsConditional() || f.Shortname != "contact" {
		t.Fatalf("GetField = %+v", f)
	}
	if !f.RevisionID.Valid {
		t.Error("conditional field created without a revision")
	}
	if got := f.OptionList(); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Errorf("OptionList = %v", got)
	}

	byName, err := s.GetFieldByShortname(ctx, "contact")
	if err != nil || byName.ID != contact {
		t.Fatalf("GetFieldByShortname = %+v, %v", byName, err)
	}

	if _, err := s.GetField(ctx, 9999); !errors.Is(err, types.ErrFieldNotFound) {
		t.Errorf("GetField(missing) err = %v, want ErrFieldNotFound", err)
	}
}

func TestStore_CreateFieldRejectsBlankShortname(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateField(context.Background(), NewField{Shortname: "  "}); !errors.Is(err, types.ErrEmptyFieldID) {
		t.Errorf("err = %v, want ErrEmptyFieldID", err)
	}
}

func TestStore_ListOtherFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, contact := seed(t, s)

	others, err := s.ListOtherFields(ctx, contact)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, f := range others {
		names = append(names, f.Shortname)
	}
	if len(names) != 2 || names[0] != "phone" || names[1] != "nickname" {
		t.Errorf("ListOtherFields = %v, want [phone nickname] in sort order", names)
	}
}

func TestStore_SaveDefinitionRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, contact := seed(t, s)
	before, err := s.ListRevisions(ctx, contact)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		def      Definition
		wantCode string
		wantErr  error
	}{
		{
			name:     "hidden and required",
			def:      Definition{Options: "A", Conditions: `[{"option":"A","requiredfields":["phone"],"hiddenfields":["phone"]}]`},
			wantCode: conditions.CodeHiddenRequired,
			wantErr:  types.ErrHiddenRequired,
		},
		{
			name:     "unknown field",
			def:      Definition{Options: "A", Conditions: `[{"option":"A","requiredfields":["ghost"]}]`},
			wantCode: conditions.CodeNotAField,
			wantErr:  types.ErrNotAField,
		},
		{
			name:     "empty",
			def:      Definition{Options: "A"},
			wantCode: conditions.CodeEmpty,
			wantErr:  types.ErrEmptyConditions,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.SaveDefinition(ctx, contact, tt.def)
			var derrs conditions.DefinitionErrors
			if !errors.As(err, &derrs) {
				t.Fatalf("err = %v, want DefinitionErrors", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("errors.Is(%v) = false for %v", tt.wantErr, err)
			}
			found := false
			for _, c := range derrs.Codes() {
				found = found || c == tt.wantCode
			}
			if !found {
				t.Errorf("codes = %v, want %s", derrs.Codes(), tt.wantCode)
			}
		})
	}

	after, err := s.ListRevisions(ctx, contact)
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != len(before) {
		t.Errorf("rejected saves wrote revisions: %d -> %d", len(before), len(after))
	}
}

func TestStore_SaveDefinitionNotConditional(t *testing.T) {
	s := newTestStore(t)
	phone, _ := seed(t, s)
	_, err := s.SaveDefinition(context.Background(), phone, Definition{Options: "A", Conditions: contactConditions})
	if !errors.Is(err, types.ErrNotConditional) {
		t.Errorf("err = %v, want ErrNotConditional", err)
	}
}

func TestStore_SaveDefinitionRevisions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, contact := seed(t, s)

	rev, err := s.SaveDefinition(ctx, contact, Definition{
		Options:       "A\r\nB\n",
		HideInitially: true,
		Conditions:    contactConditions,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := types.ParseRevisionID(string(rev)); err != nil {
		t.Errorf("revision id %q: %v", rev, err)
	}

	revs, err := s.ListRevisions(ctx, contact)
	if err != nil {
		t.Fatal(err)
	}
	if len(revs) != 2 {
		t.Fatalf("len(revisions) = %d, want 2", len(revs))
	}
	if revs[0].RevisionID != rev {
		t.Errorf("newest revision = %s, want %s", revs[0].RevisionID, rev)
	}
	if !revs[0].HideInitially || revs[0].Options != "A\nB" {
		t.Errorf("revision = %+v", revs[0])
	}

	f, err := s.GetField(ctx, contact)
	if err != nil {
		t.Fatal(err)
	}
	if f.RevisionID.String != string(rev) || !f.HideInitially {
		t.Errorf("field not updated: %+v", f)
	}
}

func TestStore_LegacyKeying(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, contact := seed(t, s)

	legacy := `[{"option":0,"requiredfields":["phone"],"hiddenfields":[]},{"option":1,"requiredfields":[],"hiddenfields":["phone"]}]`
	if _, err := s.SaveDefinition(ctx, contact, Definition{Options: "A\nB", Conditions: legacy}); err != nil {
		t.Fatal(err)
	}
	f, err := s.GetField(ctx, contact)
	if err != nil {
		t.Fatal(err)
	}
	if conditions.DetectFormat(f.Conditions) != conditions.FormatLabel {
		t.Errorf("stored conditions still index keyed: %s", f.Conditions)
	}
	set, err := conditions.Parse(f.Conditions)
	if err != nil {
		t.Fatal(err)
	}
	if !set.IsHiddenUnder("phone", "B") || !set.IsRequiredUnder("phone", "A") {
		t.Errorf("migrated set lost rules: %s", f.Conditions)
	}

	migrated, err := s.MigrateLegacyConditions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(migrated) != 0 {
		t.Errorf("nothing left to migrate, got %v", migrated)
	}
}

func TestStore_Suppressor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s)

	sup, err := s.Suppressor(ctx)
	if err != nil {
		t.Fatal(err)
	}
	values := validation.Values{types.InputName("contact"): "B"}
	if sup.IsRequiredUnderCurrentConditions("phone", true, values) {
		t.Error("phone hidden under B must not be required")
	}

	errs, err := sup.ValidateSubmission("contact", validation.Values{types.InputName("contact"): "A"})
	if err != nil {
		t.Fatal(err)
	}
	if len(errs) != 1 || errs[0].Code != validation.CodeRequiredAbsent || errs[0].Args.Field2 != "Phone" {
		t.Errorf("ValidateSubmission = %+v", errs)
	}
}

func TestStore_SuppressorHideInitially(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, contact := seed(t, s)

	if _, err := s.SaveDefinition(ctx, contact, Definition{
		Options:       "A\nB",
		HideInitially: true,
		Conditions:    contactConditions,
	}); err != nil {
		t.Fatal(err)
	}

	sup, err := s.Suppressor(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if f, _ := sup.Field("contact"); !f.HideInitially {
		t.Error("hide-initially flag not carried into the suppressor")
	}
	if sup.IsRequiredUnderCurrentConditions("phone", true, validation.Values{}) {
		t.Error("phone is hidden while nothing is selected and must not be required")
	}
}
