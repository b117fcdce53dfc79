package migrations

import "embed"

// FS contains the embedded session store migrations.
//
//go:embed *.sql
var FS embed.FS
