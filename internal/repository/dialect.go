package repository

import (
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/dialect/sqlite3"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// sqliteTimeFormat is the first layout modernc.org/sqlite tries when it
// parses DATETIME columns back into time.Time.
const sqliteTimeFormat = "2006-01-02 15:04:05.999999999-07:00"

func init() {
	opts := sqlite3.DialectOptions()
	opts.TimeFormat = sqliteTimeFormat
	goqu.RegisterDialect(DialectSQLite, opts)
}
