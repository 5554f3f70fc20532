package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	// main.go builds the listen address as ":" + Port, so the default
	// must not carry its own colon.
	assert.Equal(t, "8084", cfg.Server.Port)
	assert.NotContains(t, cfg.Server.Port, ":")

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, 10, cfg.Catalog.ItemsPerPage)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("KAFKA_ENABLED", "false")
	t.Setenv("ITEMS_PER_PAGE", "25")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, 25, cfg.Catalog.ItemsPerPage)
}
