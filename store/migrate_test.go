package store

import (
	"fmt"
	"github.com/jackc/pgconn"
	"github.com/lefinal/bedwars-server/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestDBMigrationsToDo(t *testing.T) {
	tests := []struct {
		name     string
		version  dbVersion
		want     []dbVersion
		wantKind errors.Kind
	}{
		{
			name:    "fresh",
			version: dbVersionZero,
			want:    []dbVersion{"1.0", "1.1"},
		},
		{
			name:    "outdated",
			version: "1.0",
			want:    []dbVersion{"1.1"},
		},
		{
			name:    "latest",
			version: "1.1",
			want:    []dbVersion{},
		},
		{
			name:     "unknown",
			version:  "9.9",
			wantKind: errors.KindResourceNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dbMigrationsToDo(tt.version)
			if tt.wantKind != "" {
				require.Error(t, err, "should fail")
				assert.True(t, errors.Is(err, tt.wantKind), "should fail with expected kind")
				return
			}
			require.NoError(t, err, "should not fail")
			versions := make([]dbVersion, 0, len(got))
			for _, migration := range got {
				assert.NotEmpty(t, migration.up, "should have embedded migration")
				versions = append(versions, migration.version)
			}
			assert.Equal(t, tt.want, versions, "should return expected migrations")
		})
	}
}

func TestUpdateDBVersionQuery(t *testing.T) {
	insert, err := updateDBVersionQuery(dbVersionZero, "1.1")
	require.NoError(t, err, "should not fail")
	assert.Contains(t, insert, `INSERT INTO "bedwars"`, "should insert for fresh database")
	update, err := updateDBVersionQuery("1.0", "1.1")
	require.NoError(t, err, "should not fail")
	assert.Contains(t, update, `UPDATE "bedwars" SET "value"='1.1'`, "should update otherwise")
}

func TestIsUndefinedTable(t *testing.T) {
	assert.True(t, isUndefinedTable(fmt.Errorf("query: %w", &pgconn.PgError{Code: pgCodeUndefinedTable})),
		"should detect wrapped undefined table")
	assert.False(t, isUndefinedTable(&pgconn.PgError{Code: "23505"}), "should not detect other codes")
	assert.False(t, isUndefinedTable(fmt.Errorf("sad life")), "should not detect other errors")
}
