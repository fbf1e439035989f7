package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultTestDBConfig(t *testing.T) {
	t.Run("defaults to local test database port 55432", func(t *testing.T) {
		for _, k := range []string{"TEST_DB_HOST", "TEST_DB_PORT", "TEST_DB_USER", "TEST_DB_PASSWORD", "TEST_DB_NAME"} {
			t.Setenv(k, "")
		}

		cfg := DefaultTestDBConfig()
		assert.Equal(t, "localhost", cfg.Host)
		assert.Equal(t, "55432", cfg.Port)
		assert.Equal(t, "civicdesk", cfg.User)
		assert.Equal(t, "civicdesk", cfg.DBName)
	})

	t.Run("respects CI overrides", func(t *testing.T) {
		t.Setenv("TEST_DB_HOST", "postgres")
		t.Setenv("TEST_DB_PORT", "5432")
		t.Setenv("DB_SSL_MODE", "")

		cfg := DefaultTestDBConfig()
		assert.Equal(t, "postgres", cfg.Host)
		assert.Equal(t, "5432", cfg.Port)
		assert.Contains(t, cfg.DSN(), "@postgres:5432/")
		assert.Contains(t, cfg.DSN(), "sslmode=disable")
	})
}

func TestEnvBool(t *testing.T) {
	t.Setenv("TEST_REQUIRE_INFRA", "Yes")
	assert.True(t, requireDB())
	assert.True(t, requireRedis())

	t.Setenv("TEST_REQUIRE_INFRA", "0")
	t.Setenv("TEST_REQUIRE_DB", "")
	assert.False(t, requireDB())
}

func TestTestRedisDB(t *testing.T) {
	t.Setenv("TEST_REDIS_DB", "4")
	assert.Equal(t, 4, testRedisDB(t))

	t.Setenv("TEST_REDIS_DB", "nope")
	assert.Equal(t, 1, testRedisDB(t))
}
