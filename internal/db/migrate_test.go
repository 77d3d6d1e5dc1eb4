package db

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"postgres://u:p@localhost:5432/rsvp", "pgx5://u:p@localhost:5432/rsvp", false},
		{"postgresql://localhost/rsvp?sslmode=disable", "pgx5://localhost/rsvp?sslmode=disable", false},
		{"pgx5://localhost/rsvp", "pgx5://localhost/rsvp", false},
		{"host=localhost dbname=rsvp", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := MigrationURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	require.NoError(t, err)
	assert.Contains(t, names, "migrations/000001_init.up.sql")
	assert.Contains(t, names, "migrations/000001_init.down.sql")

	up, err := fs.ReadFile(migrationFiles, "migrations/000001_init.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "EXCLUDE USING gist (resource_id WITH =, timespan WITH &&)")
}
