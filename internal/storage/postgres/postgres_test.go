package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPool_InvalidDSN(t *testing.T) {
	_, err := NewPool(context.Background(), "postgres://%zz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: invalid dsn")
}

func TestNewPool_KeeperSettings(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	assert.LessOrEqual(t, pool.Config().MaxConns, int32(maxConns))
	assert.Equal(t, maxConnIdleTime, pool.Config().MaxConnIdleTime)

	var name string
	require.NoError(t, pool.QueryRow(context.Background(), "SELECT current_setting('application_name')").Scan(&name))
	assert.Equal(t, applicationName, name)
}
