package sqlseed

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	cases := []struct {
		in      string
		want    Dialect
		wantErr bool
	}{
		{"", DialectPostgres, false},
		{"postgres", DialectPostgres, false},
		{" MySQL ", DialectMySQL, false},
		{"sqlite", DialectSQLite, false},
		{"oracle", "", true},
	}
	for _, c := range cases {
		got, err := ParseDialect(c.in)
		if c.wantErr {
			require.Error(t, err, c.in)
			continue
		}
		require.NoError(t, err, c.in)
		require.Equal(t, c.want, got)
	}
}

func TestDialectForDriver(t *testing.T) {
	require.Equal(t, DialectPostgres, DialectForDriver("postgres"))
	require.Equal(t, DialectPostgres, DialectForDriver("pgx"))
	require.Equal(t, DialectPostgres, DialectForDriver(""))
	require.Equal(t, DialectMySQL, DialectForDriver("mysql"))
	require.Equal(t, DialectSQLite, DialectForDriver("sqlite3"))
}

func TestDialectPlaceholder(t *testing.T) {
	require.Equal(t, "$3", DialectPostgres.Placeholder(3))
	require.Equal(t, "?", DialectMySQL.Placeholder(3))
	require.Equal(t, "?", DialectSQLite.Placeholder(1))
}

func TestDialectQuote(t *testing.T) {
	require.Equal(t, `"Users"`, DialectPostgres.Quote("Users"))
	require.Equal(t, `"public"."Users"`, DialectPostgres.Quote("public.Users"))
	require.Equal(t, `"we""ird"`, DialectSQLite.Quote(`we"ird`))
	require.Equal(t, "`createdAt`", DialectMySQL.Quote("createdAt"))
	require.Equal(t, "`a``b`", DialectMySQL.Quote("a`b"))
}
