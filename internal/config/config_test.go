package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_MAX_CONNS", "")
	t.Setenv("DB_MIN_CONNS", "")

	// Act
	cfg, err := Load()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, int32(25), cfg.Database.MaxConns)
	assert.Equal(t, int32(5), cfg.Database.MinConns)
	assert.Equal(t, 5*time.Second, cfg.Engine.ItemTimeout)
}

func TestLoad_PoolSizesFromEnv(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_MAX_CONNS", "40")
	t.Setenv("DB_MIN_CONNS", "10")

	// Act
	cfg, err := Load()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int32(40), cfg.Database.MaxConns)
	assert.Equal(t, int32(10), cfg.Database.MinConns)
}

func TestLoad_RejectsInvalidPoolSizes(t *testing.T) {
	tests := []struct {
		name     string
		maxConns string
		minConns string
	}{
		{name: "max below one", maxConns: "0", minConns: "0"},
		{name: "min negative", maxConns: "10", minConns: "-1"},
		{name: "min above max", maxConns: "5", minConns: "10"},
		{name: "max not a number", maxConns: "lots", minConns: "5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DB_PASSWORD", "secret")
			t.Setenv("DB_MAX_CONNS", tt.maxConns)
			t.Setenv("DB_MIN_CONNS", tt.minConns)

			// Act
			_, err := Load()

			// Assert
			assert.Error(t, err)
		})
	}
}

func TestLoad_RequiresPassword(t *testing.T) {
	t.Setenv("DB_PASSWORD", "")

	// Act
	_, err := Load()

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PASSWORD")
}
