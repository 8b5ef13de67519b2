package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

// clearEnv blanks every variable the loader reads so the host environment
// cannot leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "HTTP_ADDR", "GRPC_ADDR", "DATABASE_DRIVER", "DATABASE_URL", "JWT_SECRET",
		"TOKEN_TTL", "PASSWORD_HASH_ALGORITHM", "PASSWORD_HASH_COST", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":3000", c.EndpointAddrHTTP)
	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, DriverSQLite, c.DatabaseDriver)
	assert.Empty(t, c.SecretKey)
	assert.Equal(t, 24*time.Hour, c.TokenValidityDuration)
	assert.Equal(t, "bcrypt", c.PasswordHashAlgorithm)
	assert.Equal(t, 10, c.PasswordHashCost)
	assert.Error(t, c.Validate(), "defaults alone carry no signing secret")
}

func TestLoadConfig_NoSourcesKeepsDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "only-secret")

	c, err := LoadConfig(nil)
	require.NoError(t, err)

	var want Config
	want.LoadDefaults()
	want.SecretKey = "only-secret"
	assert.Equal(t, &want, c)
}

func TestLoadConfig_RequiresSecret(t *testing.T) {
	clearEnv(t)

	_, err := LoadConfig(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret key is empty")

	c, err := LoadConfig([]string{"-s", "from-flag"})
	require.NoError(t, err)
	assert.Equal(t, "from-flag", c.SecretKey)

	path := writeTempJSON(t, map[string]any{"secret_key": "from-json"})
	c, err = LoadConfig([]string{"-c", path})
	require.NoError(t, err)
	assert.Equal(t, "from-json", c.SecretKey)
}

func TestLoadConfig_Precedence(t *testing.T) {
	clearEnv(t)

	path := writeTempJSON(t, map[string]any{
		"endpoint_addr_http":      ":9000",
		"database_driver":         "postgres",
		"database_dsn":            "postgres://json",
		"secret_key":              "from-json",
		"token_validity_duration": "2h",
		"log_level":               "debug",
	})

	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("DATABASE_URL", "postgres://env")

	c, err := LoadConfig([]string{"-c", path, "-d", "postgres://flag", "-t", "30"})
	require.NoError(t, err)

	assert.Equal(t, ":9000", c.EndpointAddrHTTP, "json overrides default")
	assert.Equal(t, DriverPostgres, c.DatabaseDriver)
	assert.Equal(t, "from-env", c.SecretKey, "env overrides json")
	assert.Equal(t, "postgres://flag", c.DatabaseDSN, "flag overrides env")
	assert.Equal(t, 30*time.Minute, c.TokenValidityDuration, "flag overrides json")
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, ":50051", c.EndpointAddrGRPC, "untouched field keeps default")
}

func TestParseEnv_Port(t *testing.T) {
	clearEnv(t)

	t.Run("bare port", func(t *testing.T) {
		t.Setenv("PORT", "8081")
		c := &Config{}
		require.NoError(t, parseEnv(c))
		assert.Equal(t, ":8081", c.EndpointAddrHTTP)
	})

	t.Run("http addr wins", func(t *testing.T) {
		t.Setenv("PORT", "8081")
		t.Setenv("HTTP_ADDR", "127.0.0.1:9999")
		c := &Config{}
		require.NoError(t, parseEnv(c))
		assert.Equal(t, "127.0.0.1:9999", c.EndpointAddrHTTP)
	})

	t.Run("duration", func(t *testing.T) {
		t.Setenv("TOKEN_TTL", "90s")
		c := &Config{}
		require.NoError(t, parseEnv(c))
		assert.Equal(t, 90*time.Second, c.TokenValidityDuration)
	})

	t.Run("bad int", func(t *testing.T) {
		t.Setenv("PASSWORD_HASH_COST", "lots")
		err := parseEnv(&Config{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse env:")
	})
}

func TestParseFlags_TTLOnlyWhenGiven(t *testing.T) {
	c := &Config{TokenValidityDuration: 90 * time.Second}
	require.NoError(t, parseFlags(c, []string{"-s", "k"}))
	assert.Equal(t, 90*time.Second, c.TokenValidityDuration)
	assert.Equal(t, "k", c.SecretKey)
}

func TestParseJson_Errors(t *testing.T) {
	err := parseJson(&Config{}, []string{"-c", filepath.Join(t.TempDir(), "missing.json")})
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	err = parseJson(&Config{}, []string{"-config", bad})
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	var c Config
	c.LoadDefaults()
	c.DatabaseDriver = "mysql"
	c.SecretKey = ""
	c.TokenValidityDuration = 0

	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql")
	assert.Contains(t, err.Error(), "secret key")
	assert.Contains(t, err.Error(), "token validity")

	_, err = LoadConfig([]string{"-D", "oracle", "-s", "k"})
	require.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_DRIVER", "postgres")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, c.DatabaseDriver)
	assert.Empty(t, c.SecretKey)
}
