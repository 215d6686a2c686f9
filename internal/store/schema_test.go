package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/forecast-cache/internal/weather"
)

func TestOnUpgradeClearsTable(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for i := int64(0); i < 4; i++ {
		_, err := s.Insert(ctx, record(day0+i*weather.DayMillis, 800, 1, 2))
		require.NoError(t, err)
	}

	require.NoError(t, s.OnUpgrade(ctx, DefaultSchemaVersion, DefaultSchemaVersion+1))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, DefaultSchemaVersion+1, s.Version())

	id, err := s.Insert(ctx, record(day0, 800, 1, 2))
	require.NoError(t, err)
	assert.EqualValues(t, 5, id, "ids continue after an upgrade")
}

func TestOpenWithNewVersionDropsCache(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "forecast.db")

	s, err := Open(ctx, path, Options{Version: 1})
	require.NoError(t, err)
	_, err = s.Insert(ctx, record(day0, 800, 1, 2))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// same version keeps the data
	s, err = Open(ctx, path, Options{Version: 1})
	require.NoError(t, err)
	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.NoError(t, s.Close())

	s, err = Open(ctx, path, Options{Version: 2})
	require.NoError(t, err)
	defer s.Close()

	count, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, 2, s.Version())
}

func TestOpenMalformedSchema(t *testing.T) {
	_, err := Open(context.Background(), ":memory:", Options{Schema: "CREATE TABLE forecast ("})

	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "create", se.Op)
}

func TestNewSchemaErrorOnCreateFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("PRAGMA user_version").
		WillReturnRows(sqlmock.NewRows([]string{"user_version"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("near \"(\": syntax error"))
	mock.ExpectRollback()

	_, err = New(context.Background(), db, Options{})

	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Error(), "syntax error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSchemaErrorOnVersionRead(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("PRAGMA user_version").WillReturnError(errors.New("disk I/O error"))

	_, err = New(context.Background(), db, Options{})

	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "read version", se.Op)
	assert.NoError(t, mock.ExpectationsWereMet())
}
