// Package migrations embeds the versioned SQL schema applied by goose and
// registers the Go migrations that need application-side data rewrites.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
