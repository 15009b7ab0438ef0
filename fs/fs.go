package appfs

import "embed"

// FS holds the SQL migrations applied by the admin migrate command.
//
//go:embed migrations/*.sql
var FS embed.FS
