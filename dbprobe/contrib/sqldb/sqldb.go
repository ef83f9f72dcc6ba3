// Package sqldb lets a service probe PostgreSQL or MySQL through the
// *sql.DB pool it already holds instead of dialing a new connection.
package sqldb

import (
	"database/sql"

	"github.com/BigKAA/dbprobe/dbprobe"
	"github.com/BigKAA/dbprobe/dbprobe/checks/mysqlcheck"
	"github.com/BigKAA/dbprobe/dbprobe/checks/pgcheck"
)

// Postgres returns a prober option that checks every postgres endpoint
// through db. The endpoint still supplies the target shown in reports.
// The pool is never closed by the prober.
func Postgres(db *sql.DB) dbprobe.Option {
	return dbprobe.WithTransport(pgcheck.New(pgcheck.WithDB(db)))
}

// MySQL is Postgres for MySQL pools.
func MySQL(db *sql.DB) dbprobe.Option {
	return dbprobe.WithTransport(mysqlcheck.New(mysqlcheck.WithDB(db)))
}
