// Package store persists field definitions and their condition revisions.
//
// Every write of a condition configuration goes through the same checks the
// authoring form applies: the configuration is validated against the current
// field catalog, legacy index-keyed input is rewritten to label keying, and
// the canonical encoding is stored together with a revision row keyed by a
// UUIDv7, so the revision list sorts by save time.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/solatis/condfield/internal/conditions"
	"github.com/solatis/condfield/internal/core/db"
	"github.com/solatis/condfield/internal/types"
	"github.com/solatis/condfield/internal/validation"
)

// FieldDefinition is one stored field row.
type FieldDefinition struct {
	ID            types.FieldID  `db:"id" json:"id"`
	Shortname     string         `db:"shortname" json:"shortname"`
	Name          string         `db:"name" json:"name"`
	Datatype      string         `db:"datatype" json:"datatype"`
	Options       string         `db:"options" json:"options"`
	HideInitially bool           `db:"hide_initially" json:"hide_initially"`
	Conditions    string         `db:"conditions" json:"conditions"`
	SortOrder     int            `db:"sortorder" json:"sortorder"`
	RevisionID    sql.NullString `db:"revision_id" json:"-"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// IsConditional reports whether the field carries a condition set.
func (f FieldDefinition) IsConditional() bool {
	return f.Datatype == types.DatatypeConditional
}

// OptionList returns the field's options, one per line in storage.
func (f FieldDefinition) OptionList() []string {
	return conditions.SplitOptions(f.Options)
}

// Revision is one saved condition configuration.
type Revision struct {
	RevisionID    types.RevisionID `db:"revision_id" json:"revision_id"`
	FieldID       types.FieldID    `db:"field_id" json:"field_id"`
	Options       string           `db:"options" json:"options"`
	HideInitially bool             `db:"hide_initially" json:"hide_initially"`
	Conditions    string           `db:"conditions" json:"conditions"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}

// NewField describes a field to create.
type NewField struct {
	Shortname     string
	Name          string
	Datatype      string
	Options       string
	HideInitially bool
	Conditions    string
	SortOrder     int
}

// Definition is the editable part of a conditional field.
type Definition struct {
	Options       string
	HideInitially bool
	Conditions    string
}

// Store reads and writes field definitions.
type Store struct {
	queries *db.Queries
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Store over loaded queries. A nil logger means slog.Default().
func New(queries *db.Queries, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		queries: queries,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateField inserts a field. A conditional field's configuration is
// validated and recorded as its first revision in the same transaction.
func (s *Store) CreateField(ctx context.Context, f NewField) (types.FieldID, error) {
	f.Shortname = strings.TrimSpace(f.Shortname)
	if f.Shortname == "" {
		return 0, types.ErrEmptyFieldID
	}
	if len(f.Shortname) > types.MaxFieldIDLength {
		return 0, types.ErrFieldIDTooLong
	}
	if f.Name == "" {
		f.Name = f.Shortname
	}

	var id types.FieldID
	err := s.queries.InTx(ctx, func(q *db.Queries) error {
		now := s.now()
		if err := q.Get(ctx, "create-field", &id,
			f.Shortname, f.Name, f.Datatype, f.Options, f.HideInitially, "", f.SortOrder, now); err != nil {
			return fmt.Errorf("failed to insert field %q: %w", f.Shortname, err)
		}
		if f.Datatype != types.DatatypeConditional {
			return nil
		}
		_, err := s.saveDefinition(ctx, q, id, Definition{
			Options:       f.Options,
			HideInitially: f.HideInitially,
			Conditions:    f.Conditions,
		})
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("field created", "field_id", id, "shortname", f.Shortname, "datatype", f.Datatype)
	return id, nil
}

// GetField returns the field with the given id.
func (s *Store) GetField(ctx context.Context, id types.FieldID) (FieldDefinition, error) {
	return getField(ctx, s.queries, "get-field", id)
}

// GetFieldByShortname returns the field with the given shortname.
func (s *Store) GetFieldByShortname(ctx context.Context, shortname string) (FieldDefinition, error) {
	return getField(ctx, s.queries, "get-field-by-shortname", shortname)
}

func getField(ctx context.Context, q *db.Queries, query string, key any) (FieldDefinition, error) {
	var f FieldDefinition
	err := q.Get(ctx, query, &f, key)
	if errors.Is(err, sql.ErrNoRows) {
		return FieldDefinition{}, fmt.Errorf("%w: %v", types.ErrFieldNotFound, key)
	}
	if err != nil {
		return FieldDefinition{}, fmt.Errorf("failed to load field %v: %w", key, err)
	}
	return f, nil
}

// ListOtherFields returns every field except exclude, in form order. This
// is the lookup the condition editor uses to offer dependent fields.
func (s *Store) ListOtherFields(ctx context.Context, exclude types.FieldID) ([]types.FieldRecord, error) {
	var out []types.FieldRecord
	if err := s.queries.Select(ctx, "list-other-fields", &out, exclude); err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}
	return out, nil
}

// ListFields returns every field in form order.
func (s *Store) ListFields(ctx context.Context) ([]types.FieldRecord, error) {
	return listFields(ctx, s.queries)
}

func listFields(ctx context.Context, q *db.Queries) ([]types.FieldRecord, error) {
	var out []types.FieldRecord
	if err := q.Select(ctx, "list-fields", &out); err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}
	return out, nil
}

// ListConditionalFields returns every conditional field definition.
func (s *Store) ListConditionalFields(ctx context.Context) ([]FieldDefinition, error) {
	var out []FieldDefinition
	if err := s.queries.Select(ctx, "list-conditional-fields", &out, types.DatatypeConditional); err != nil {
		return nil, fmt.Errorf("failed to list conditional fields: %w", err)
	}
	return out, nil
}

// Catalog returns the shortnames of every stored field.
func (s *Store) Catalog(ctx context.Context) (conditions.CatalogSet, error) {
	return catalog(ctx, s.queries)
}

func catalog(ctx context.Context, q *db.Queries) (conditions.CatalogSet, error) {
	fields, err := listFields(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make(conditions.CatalogSet, len(fields))
	for _, f := range fields {
		out[f.Shortname] = true
	}
	return out, nil
}

// Names maps every field shortname to its display name.
func (s *Store) Names(ctx context.Context) (map[string]string, error) {
	fields, err := s.ListFields(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.Shortname] = f.Name
	}
	return out, nil
}

// SaveDefinition validates def against the current catalog and stores it as
// a new revision of field id. Validation failures are returned as
// conditions.DefinitionErrors and nothing is written.
func (s *Store) SaveDefinition(ctx context.Context, id types.FieldID, def Definition) (types.RevisionID, error) {
	var rev types.RevisionID
	err := s.queries.InTx(ctx, func(q *db.Queries) error {
		var err error
		rev, err = s.saveDefinition(ctx, q, id, def)
		return err
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("condition definition saved", "field_id", id, "revision_id", rev)
	return rev, nil
}

func (s *Store) saveDefinition(ctx context.Context, q *db.Queries, id types.FieldID, def Definition) (types.RevisionID, error) {
	field, err := getField(ctx, q, "get-field", id)
	if err != nil {
		return "", err
	}
	if !field.IsConditional() {
		return "", fmt.Errorf("%w: %q", types.ErrNotConditional, field.Shortname)
	}

	options := conditions.SplitOptions(def.Options)
	raw := def.Conditions
	if conditions.DetectFormat(raw) == conditions.FormatLegacyIndex {
		migrated, err := conditions.MigrateLegacy(raw, options)
		if err != nil {
			return "", conditions.DefinitionErrors{{Code: conditions.CodeMalformed, Err: err}}
		}
		s.logger.Info("legacy condition keying rewritten", "field_id", id, "shortname", field.Shortname)
		raw = migrated
	}

	cat, err := catalog(ctx, q)
	if err != nil {
		return "", err
	}
	if errs := conditions.ValidateDefinition(conditions.Definition{
		Shortname:  field.Shortname,
		Options:    options,
		Conditions: raw,
	}, cat); len(errs) > 0 {
		return "", conditions.DefinitionErrors(errs)
	}

	set, err := conditions.Parse(raw)
	if err != nil {
		return "", err
	}
	encoded, err := set.Encode()
	if err != nil {
		return "", err
	}

	rev := types.NewRevisionID()
	now := s.now()
	if _, err := q.Exec(ctx, "update-field-definition",
		strings.Join(options, "\n"), def.HideInitially, encoded, string(rev), now, id); err != nil {
		return "", fmt.Errorf("failed to update field %d: %w", id, err)
	}
	if _, err := q.Exec(ctx, "insert-revision",
		string(rev), id, strings.Join(options, "\n"), def.HideInitially, encoded, now); err != nil {
		return "", fmt.Errorf("failed to record revision for field %d: %w", id, err)
	}
	return rev, nil
}

// ListRevisions returns the saved configurations of a field, newest first.
func (s *Store) ListRevisions(ctx context.Context, id types.FieldID) ([]Revision, error) {
	var out []Revision
	if err := s.queries.Select(ctx, "list-revisions", &out, id); err != nil {
		return nil, fmt.Errorf("failed to list revisions for field %d: %w", id, err)
	}
	return out, nil
}

// MigrateLegacyConditions rewrites every stored index-keyed configuration to
// label keying and returns the shortnames that changed. A field whose
// configuration cannot be migrated is logged and left untouched.
func (s *Store) MigrateLegacyConditions(ctx context.Context) ([]string, error) {
	fields, err := s.ListConditionalFields(ctx)
	if err != nil {
		return nil, err
	}
	var migrated []string
	for _, f := range fields {
		if conditions.DetectFormat(f.Conditions) != conditions.FormatLegacyIndex {
			continue
		}
		if _, err := s.SaveDefinition(ctx, f.ID, Definition{
			Options:       f.Options,
			HideInitially: f.HideInitially,
			Conditions:    f.Conditions,
		}); err != nil {
			s.logger.Warn("legacy conditions not migrated", "shortname", f.Shortname, "error", err)
			continue
		}
		migrated = append(migrated, f.Shortname)
	}
	return migrated, nil
}

// Suppressor builds the submission-time suppressor from every conditional
// field currently stored. Broken stored configurations contribute no rules.
func (s *Store) Suppressor(ctx context.Context) (*validation.Suppressor, error) {
	fields, err := s.ListConditionalFields(ctx)
	if err != nil {
		return nil, err
	}
	names, err := s.Names(ctx)
	if err != nil {
		return nil, err
	}
	defs := make([]validation.Definition, 0, len(fields))
	for _, f := range fields {
		defs = append(defs, validation.Definition{
			Shortname:     f.Shortname,
			Name:          f.Name,
			Conditions:    f.Conditions,
			HideInitially: f.HideInitially,
		})
	}
	return validation.FromDefinitions(defs, names, s.logger), nil
}
