// migrations хранит SQL-миграции схемы, встроенные в бинарь (goose).
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
