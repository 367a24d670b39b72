package database

import (
	"net/url"
	"path/filepath"
	"testing"

	"github.com/Archer-177/HighCostAtWork/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialect(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"sqlite://vials.db", repository.DialectSQLite, false},
		{"postgres://app@db:5432/vials", repository.DialectPostgres, false},
		{"postgresql://app@db/vials", repository.DialectPostgres, false},
		{"mysql://app@db/vials", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := Dialect(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	dsn, err := postgresDSN("postgres://app:secret@db:5432/vials?sslmode=disable")
	require.NoError(t, err)

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "db:5432", u.Host)
	assert.Equal(t, "/vials", u.Path)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.Equal(t, "vials", u.Query().Get("application_name"))
	assert.Equal(t, "5", u.Query().Get("connect_timeout"))

	dsn, err = postgresDSN("postgres://app@db/vials?connect_timeout=30&application_name=reports")
	require.NoError(t, err)
	u, err = url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "30", u.Query().Get("connect_timeout"))
	assert.Equal(t, "reports", u.Query().Get("application_name"))
}

func TestOpenSQLite(t *testing.T) {
	db, dialect, err := Open("sqlite://" + filepath.Join(t.TempDir(), "vials.db"))
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, repository.DialectSQLite, dialect)

	var foreignKeys int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys))
	assert.Equal(t, 1, foreignKeys)
}
