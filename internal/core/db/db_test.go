package db

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testURL(t *testing.T) string {
	t.Helper()
	return "sqlite://" + filepath.Join(t.TempDir(), "condfield.db")
}

func TestDataSourceFor(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantDriver string
		wantPrefix string
		wantErr    bool
	}{
		{"sqlite relative", "sqlite://data/cf.db", "sqlite3", "file:data/cf.db?", false},
		{"sqlite absolute", "sqlite:///var/lib/cf.db", "sqlite3", "file:/var/lib/cf.db?", false},
		{"postgres", "postgres://u:p@localhost/cf", "postgres", "postgres://u:p@localhost/cf", false},
		{"unsupported", "mysql://localhost/cf", "", "", true},
		{"sqlite without path", "sqlite://", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, dsn, err := dataSourceFor(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("dataSourceFor(%q) err = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if driver != tt.wantDriver {
				t.Errorf("driver = %q, want %q", driver, tt.wantDriver)
			}
			if !strings.HasPrefix(dsn, tt.wantPrefix) {
				t.Errorf("dsn = %q, want prefix %q", dsn, tt.wantPrefix)
			}
		})
	}
}

func TestDataSourceFor_SqliteDefaultsRespectOverrides(t *testing.T) {
	_, dsn, err := dataSourceFor("sqlite://cf.db?_journal_mode=DELETE")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(dsn, "_journal_mode=DELETE") || strings.Contains(dsn, "_journal_mode=WAL") {
		t.Errorf("dsn = %q, explicit journal mode must win", dsn)
	}
	if !strings.Contains(dsn, "_foreign_keys=on") {
		t.Errorf("dsn = %q, want foreign keys enabled", dsn)
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	ctx := context.Background()
	database, err := Open(ctx, testURL(t))
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	if err := MigrateUp(database); err != nil {
		t.Fatalf("first MigrateUp: %v", err)
	}
	if err := MigrateUp(database); err != nil {
		t.Fatalf("second MigrateUp: %v", err)
	}

	statuses, err := MigrateStatus(database)
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) == 0 {
		t.Fatal("no migrations reported")
	}
	for _, s := range statuses {
		if !s.Applied {
			t.Errorf("migration %s not applied", s.ID)
		}
	}

	var n int
	if err := database.Get(&n, "SELECT COUNT(*) FROM fields"); err != nil {
		t.Fatalf("fields table missing: %v", err)
	}
}

func TestStripComments(t *testing.T) {
	in := "-- heading\nCREATE TABLE t (x INTEGER);\n  -- trailing\n"
	got := strings.TrimSpace(stripComments(in))
	if got != "CREATE TABLE t (x INTEGER);" {
		t.Errorf("stripComments = %q", got)
	}
}

func TestQueries_InTx(t *testing.T) {
	ctx := context.Background()
	database, queries, err := Setup(ctx, testURL(t))
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	now := time.Now().UTC()
	boom := errors.New("boom")

	err = queries.InTx(ctx, func(tx *Queries) error {
		var id int64
		if err := tx.Get(ctx, "create-field", &id, "color", "Color", "menu", "", false, "", 0, now); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx err = %v, want boom", err)
	}

	var rows []struct {
		ID        int64  `db:"id"`
		Shortname string `db:"shortname"`
		Name      string `db:"name"`
	}
	if err := queries.Select(ctx, "list-fields", &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Fatalf("rolled back insert is visible: %+v", rows)
	}

	err = queries.InTx(ctx, func(tx *Queries) error {
		var id int64
		return tx.Get(ctx, "create-field", &id, "color", "Color", "menu", "", false, "", 0, now)
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := queries.Select(ctx, "list-fields", &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Shortname != "color" {
		t.Fatalf("committed insert missing: %+v", rows)
	}
}

func TestQueries_UnknownName(t *testing.T) {
	ctx := context.Background()
	database, queries, err := Setup(ctx, testURL(t))
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	if _, err := queries.Exec(ctx, "no-such-query"); err == nil {
		t.Fatal("expected error for unknown query")
	}
}

func TestScanAppliedAt(t *testing.T) {
	want := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for _, v := range []interface{}{want, want.Format(time.RFC3339), []byte(want.Format(time.RFC3339))} {
		got, err := scanAppliedAt(v)
		if err != nil {
			t.Fatalf("scanAppliedAt(%T) error: %v", v, err)
		}
		if !got.Equal(want) {
			t.Errorf("scanAppliedAt(%T) = %v, want %v", v, got, want)
		}
	}

	if got, err := scanAppliedAt(nil); err != nil || got != nil {
		t.Errorf("scanAppliedAt(nil) = %v, %v", got, err)
	}
	if _, err := scanAppliedAt("yesterday"); err == nil {
		t.Error("scanAppliedAt(\"yesterday\") expected error")
	}
}
