package sqlseed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestUsers(t *testing.T) {
	now := time.Date(2021, 5, 17, 14, 22, 22, 0, time.UTC)
	users := Users(now)
	require.Len(t, users, 4)
	for i, u := range users {
		require.Equal(t, fmt.Sprintf("name%d", i+1), u.Name)
		require.Equal(t, fmt.Sprintf("email%d", i+1), u.Email)
		require.True(t, u.Birth.Equal(now))
		require.True(t, u.CreatedAt.Equal(now))
		require.True(t, u.UpdatedAt.Equal(now))
	}
}

func TestUsersSeedUp(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2021, 5, 17, 14, 22, 22, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "Users" ("name", "email", "birth", "createdAt", "updatedAt") VALUES ($1, $2, $3, $4, $5), ($6, $7, $8, $9, $10), ($11, $12, $13, $14, $15), ($16, $17, $18, $19, $20)`)).
		WithArgs(
			"name1", "email1", now, now, now,
			"name2", "email2", now, now, now,
			"name3", "email3", now, now, now,
			"name4", "email4", now, now, now,
		).
		WillReturnResult(sqlmock.NewResult(0, 4))

	err = UsersSeed().Up(context.Background(), NewQueryInterface(db, DialectPostgres, now))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersSeedDown(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`^DELETE FROM "Users"$`).WillReturnResult(sqlmock.NewResult(0, 12))

	err = UsersSeed().Down(context.Background(), NewQueryInterface(db, DialectPostgres, time.Now()))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersSeedPropagatesError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbErr := errors.New(`relation "Users" does not exist`)
	mock.ExpectExec(`INSERT INTO "Users"`).WillReturnError(dbErr)

	err = UsersSeed().Up(context.Background(), NewQueryInterface(db, DialectPostgres, time.Now()))
	require.ErrorIs(t, err, dbErr)
}

// usersTable is an in-memory stand-in for the Users table that understands
// the two statements the seed issues.
type usersTable struct {
	rows [][]any
}

func (u *usersTable) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	switch {
	case strings.HasPrefix(query, `INSERT INTO "Users"`):
		for i := 0; i+len(userColumns) <= len(args); i += len(userColumns) {
			u.rows = append(u.rows, args[i:i+len(userColumns)])
		}
		return sqlmock.NewResult(0, int64(len(args)/len(userColumns))), nil
	case query == `DELETE FROM "Users"`:
		n := len(u.rows)
		u.rows = nil
		return sqlmock.NewResult(0, int64(n)), nil
	default:
		return nil, fmt.Errorf("unexpected query %q", query)
	}
}

func TestUsersSeedRoundTrip(t *testing.T) {
	table := &usersTable{}
	now := time.Now()
	qi := NewQueryInterface(table, DialectPostgres, now)
	ctx := context.Background()

	require.NoError(t, UsersSeed().Up(ctx, qi))
	require.Len(t, table.rows, 4)
	for i, row := range table.rows {
		require.Equal(t, fmt.Sprintf("name%d", i+1), row[0])
		require.Equal(t, fmt.Sprintf("email%d", i+1), row[1])
		for _, ts := range row[2:] {
			require.Equal(t, now, ts)
		}
	}

	require.NoError(t, UsersSeed().Down(ctx, qi))
	require.Empty(t, table.rows)
}

func TestUsersSeedDownRemovesForeignRows(t *testing.T) {
	table := &usersTable{rows: [][]any{{"someone", "else"}}}
	qi := NewQueryInterface(table, DialectPostgres, time.Now())

	require.NoError(t, UsersSeed().Up(context.Background(), qi))
	require.Len(t, table.rows, 5)
	require.NoError(t, UsersSeed().Down(context.Background(), qi))
	require.Empty(t, table.rows)
}

func TestDefaultSeeds(t *testing.T) {
	seeds := DefaultSeeds()
	require.Equal(t, 1, seeds.Len())
	seed, ok := seeds.Lookup(UsersSeedName)
	require.True(t, ok)
	require.NotNil(t, seed.Down)
}
