package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSNDefaults(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "harborlane", Name: "harborlane"})
	require.NoError(t, err)
	require.Contains(t, dsn, "host=localhost")
	require.Contains(t, dsn, "port=5432")
	require.Contains(t, dsn, "sslmode=disable")
}

func TestBuildPostgresDSNRequiresUserAndName(t *testing.T) {
	_, err := buildPostgresDSN(Config{User: "harborlane"})
	require.Error(t, err)
}

func TestBuildPostgresDSNRespectsOverride(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{DSN: "postgres://u:p@db/harborlane"})
	require.NoError(t, err)
	require.Equal(t, "postgres://u:p@db/harborlane", dsn)
}

func TestBuildMySQLDSNDefaults(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "harborlane", Password: "pw", Name: "harborlane"})
	require.NoError(t, err)
	require.Contains(t, dsn, "harborlane:pw@tcp(127.0.0.1:3306)/harborlane")
	require.Contains(t, dsn, "parseTime=True")
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}
