package migrations

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaCoversTables(t *testing.T) {
	for _, table := range []string{"usuarios", "libros", "requests", "logs"} {
		assert.Contains(t, Schema(), "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.Contains(t, Schema(), "role TEXT[] DEFAULT ARRAY['alumno']")
	assert.Contains(t, Schema(), "ALTER TABLE usuarios ADD COLUMN IF NOT EXISTS roles TEXT[]")
}

func TestApply(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS usuarios").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, Apply(context.Background(), sqlx.NewDb(db, "postgres")))

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))
	err = Apply(context.Background(), sqlx.NewDb(db, "postgres"))
	assert.ErrorContains(t, err, "apply schema")
	assert.NoError(t, mock.ExpectationsWereMet())
}
