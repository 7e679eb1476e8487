package migration

import "embed"

//go:embed postgresql
var FS embed.FS
