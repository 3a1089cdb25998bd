package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T, dialect Dialect) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLStore(db, dialect), mock
}

func TestSQLStore_Query(t *testing.T) {
	s, mock := newMockStore(t, Postgres)

	mock.ExpectQuery("select data_object_id, business_key from etk_data_object where business_key = $1").
		WithArgs("Incident").
		WillReturnRows(sqlmock.NewRows([]string{"data_object_id", "business_key"}).
			AddRow(int64(10), []byte("Incident")))

	rows, err := s.Query(context.Background(),
		"select data_object_id, business_key from etk_data_object where business_key = :bk",
		Params{"bk": "Incident"})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	id, ok, err := rows[0].Int64("DATA_OBJECT_ID")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(10), id)
	assert.Equal(t, "Incident", rows[0].String("business_key"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_QueryEmpty(t *testing.T) {
	s, mock := newMockStore(t, SQLite)
	mock.ExpectQuery("select 1 where 1 = ?").
		WithArgs(0).
		WillReturnRows(sqlmock.NewRows([]string{"one"}))

	rows, err := s.Query(context.Background(), "select 1 where 1 = :zero", Params{"zero": 0})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSQLStore_QueryDriverError(t *testing.T) {
	s, mock := newMockStore(t, Postgres)
	cause := errors.New("relation does not exist")
	mock.ExpectQuery("select * from missing").WillReturnError(cause)

	ctx := WithStatement(context.Background(), "probe")
	_, err := s.Query(ctx, "select * from missing", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDataAccess)
	assert.ErrorIs(t, err, cause)
	var dae *DataAccessError
	require.ErrorAs(t, err, &dae)
	assert.Equal(t, "probe", dae.Statement)
	assert.Equal(t, "query", dae.Op)
}

func TestSQLStore_QueryBindError(t *testing.T) {
	s, _ := newMockStore(t, Postgres)
	_, err := s.Query(context.Background(), "select :nope", nil)
	assert.ErrorIs(t, err, ErrBind)
	assert.ErrorIs(t, err, ErrDataAccess)
}

func TestSQLStore_Execute(t *testing.T) {
	s, mock := newMockStore(t, Postgres)
	mock.ExpectExec("update t_system_configuration set c_value = $1 where c_code = $2").
		WithArgs("on", "feature.flag").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := s.Execute(context.Background(),
		"update t_system_configuration set c_value = :v where c_code = :code",
		Params{"v": "on", "code": "feature.flag"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(sql.ErrConnDone)
	s := NewSQLStore(db, Postgres)

	err = s.Ping(context.Background())
	assert.ErrorIs(t, err, ErrDataAccess)
	assert.True(t, IsTransient(err))
}

func TestSQLStore_QuoteIdent(t *testing.T) {
	s, _ := newMockStore(t, Postgres)
	q, err := QuoteIdent(s, "T_INCIDENT")
	require.NoError(t, err)
	assert.Equal(t, `"t_incident"`, q)
}

func TestOpen_UnknownDialect(t *testing.T) {
	_, err := Open(context.Background(), Dialect{}, "whatever")
	assert.ErrorIs(t, err, ErrUnknownDialect)
	assert.ErrorIs(t, err, ErrDataAccess)
}

func TestOpen_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, SQLite, ":memory:", PoolConfig{MaxOpenConns: 1})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Execute(ctx, "create table t_lookup (id integer primary key, code text)", nil)
	require.NoError(t, err)
	n, err := s.Execute(ctx, "insert into t_lookup (id, code) values (:id, :code)", Params{"id": 1, "code": "OPEN"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rows, err := s.Query(ctx, "select code from t_lookup where id = :id", Params{"id": 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "OPEN", rows[0].String("CODE"))
	assert.NoError(t, s.Ping(ctx))
}
