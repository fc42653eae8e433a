package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConnectionConfig(t *testing.T) {
	cfg := DefaultConnectionConfig()

	assert.Equal(t, 25, cfg.MaxOpenConns)
	assert.Equal(t, 10, cfg.MaxIdleConns)
	assert.Equal(t, time.Hour, cfg.ConnMaxLifetime)
	assert.Equal(t, 30*time.Minute, cfg.ConnMaxIdleTime)
	assert.Equal(t, 5*time.Second, cfg.PingTimeout)
}

func TestConnectionConfigFromEnv(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want func(c *ConnectionConfig)
	}{
		{
			name: "defaults",
			env:  map[string]string{},
			want: func(c *ConnectionConfig) {},
		},
		{
			name: "custom values",
			env: map[string]string{
				"DB_MAX_OPEN_CONNS":     "50",
				"DB_MAX_IDLE_CONNS":     "20",
				"DB_CONN_MAX_LIFETIME":  "2h",
				"DB_CONN_MAX_IDLE_TIME": "10m",
			},
			want: func(c *ConnectionConfig) {
				c.MaxOpenConns = 50
				c.MaxIdleConns = 20
				c.ConnMaxLifetime = 2 * time.Hour
				c.ConnMaxIdleTime = 10 * time.Minute
			},
		},
		{
			name: "invalid values keep defaults",
			env: map[string]string{
				"DB_MAX_OPEN_CONNS":    "lots",
				"DB_MAX_IDLE_CONNS":    "-1",
				"DB_CONN_MAX_LIFETIME": "0s",
			},
			want: func(c *ConnectionConfig) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME", "DB_CONN_MAX_IDLE_TIME"} {
				t.Setenv(key, tt.env[key])
			}

			want := DefaultConnectionConfig()
			tt.want(&want)
			assert.Equal(t, want, ConnectionConfigFromEnv())
		})
	}
}

func TestOpen_MissingDSN(t *testing.T) {
	db, err := Open(context.Background(), "", DefaultConnectionConfig())
	assert.Nil(t, db)
	assert.ErrorIs(t, err, ErrMissingDSN)
}

func TestConfigure_AppliesPoolLimits(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	cfg := DefaultConnectionConfig()
	cfg.MaxOpenConns = 7
	configure(db, cfg)

	assert.Equal(t, 7, db.Stats().MaxOpenConnections)
}

func TestOpen_Integration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	db, err := Open(context.Background(), dsn, DefaultConnectionConfig())
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	require.NoError(t, MigrateUp(context.Background(), db))
	assert.NoError(t, db.PingContext(context.Background()))
}
