package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/Archer-177/HighCostAtWork/internal/repository"

	_ "github.com/lib/pq"
)

const sqliteScheme = "sqlite://"

const (
	postgresApplicationName = "vials"
	postgresConnectTimeout  = "5"
	postgresMaxOpenConns    = 10
)

// Dialect derives the SQL dialect from the DATABASE_URL scheme.
func Dialect(dbURL string) (string, error) {
	switch {
	case strings.HasPrefix(dbURL, sqliteScheme):
		return repository.DialectSQLite, nil
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		return repository.DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported DATABASE_URL scheme: %q", dbURL)
	}
}

// Open connects to the store named by dbURL and reports its dialect.
func Open(dbURL string) (*sql.DB, string, error) {
	dialect, err := Dialect(dbURL)
	if err != nil {
		return nil, "", err
	}

	var db *sql.DB
	switch dialect {
	case repository.DialectSQLite:
		db, err = NewSQLiteConnection(strings.TrimPrefix(dbURL, sqliteScheme))
	default:
		db, err = NewPostgresConnection(dbURL)
	}
	if err != nil {
		return nil, "", err
	}

	return db, dialect, nil
}

func NewPostgresConnection(dbURL string) (*sql.DB, error) {
	dsn, err := postgresDSN(dbURL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(postgresMaxOpenConns)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not ping the database: %w", err)
	}

	return db, nil
}

// postgresDSN fills in the connection parameters the service relies on
// unless the URL already sets them.
func postgresDSN(dbURL string) (string, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
	}

	q := u.Query()
	if q.Get("application_name") == "" {
		q.Set("application_name", postgresApplicationName)
	}
	if q.Get("connect_timeout") == "" {
		q.Set("connect_timeout", postgresConnectTimeout)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}
