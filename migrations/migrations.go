package migrations

import "embed"

// Schema migrations for the field definition store, one directory per
// driver. Files apply in lexical order.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

//go:embed postgres/*.sql
var PostgresMigrations embed.FS
