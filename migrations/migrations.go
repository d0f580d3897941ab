// Package migrations embeds the ordered SQL schema files applied by `directoryctl migrate`.
package migrations

import "embed"

// FS holds every *.sql file in this directory.
//
//go:embed *.sql
var FS embed.FS
