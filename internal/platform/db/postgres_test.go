package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnectRequiresDSN(t *testing.T) {
	_, err := Connect("", Pool{})
	require.EqualError(t, err, "postgres dsn is required")
}

func TestNilPostgresIsSafe(t *testing.T) {
	var pg *Postgres
	require.NoError(t, pg.Close())
	require.Error(t, pg.Ping(context.Background()))
}
