package server_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlor-chat/parlor/internal/server"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := server.NewConfig()

	assert.Equal(t, "localhost:9999", cfg.Addr)
	assert.Equal(t, "blocked_words.txt", cfg.BlocklistPath)
	assert.Equal(t, 4096, cfg.MaxMessageSize)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
	assert.Empty(t, cfg.Gateway.Addr, "gateway is disabled by default")
}

func TestLoadConfigAppliesEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", "127.0.0.1:7777")
	t.Setenv("BLOCKLIST_PATH", "/tmp/words.txt")
	t.Setenv("MAX_MESSAGE_SIZE", "1024")
	t.Setenv("RATE_LIMIT_BURST", "3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "5")
	t.Setenv("GATEWAY_ADDR", "127.0.0.1:7778")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, http://b.example")

	cfg, err := server.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7777", cfg.Addr)
	assert.Equal(t, "/tmp/words.txt", cfg.BlocklistPath)
	assert.Equal(t, 1024, cfg.MaxMessageSize)
	assert.Equal(t, 3, cfg.RateLimit.Burst)
	assert.Equal(t, 5*time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, "127.0.0.1:7778", cfg.Gateway.Addr)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Gateway.AllowedOrigins)
}

func TestLoadConfigIgnoresUnparsableEnvValues(t *testing.T) {
	t.Setenv("MAX_MESSAGE_SIZE", "not-a-number")
	t.Setenv("RATE_LIMIT_BURST", "-4")

	cfg, err := server.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 4096, cfg.MaxMessageSize)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
}

func TestNewConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parlor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: "0.0.0.0:9000"
blocklist_path: "words.txt"
max_message_size: 2048
rate_limit:
  burst: 20
  refill_interval_seconds: 2
gateway:
  addr: "0.0.0.0:9001"
  allowed_origins:
    - "http://chat.example"
`), 0o644))

	cfg, err := server.NewConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
	assert.Equal(t, "words.txt", cfg.BlocklistPath)
	assert.Equal(t, 2048, cfg.MaxMessageSize)
	assert.Equal(t, 20, cfg.RateLimit.Burst)
	assert.Equal(t, 2*time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, "0.0.0.0:9001", cfg.Gateway.Addr)
	assert.Equal(t, []string{"http://chat.example"}, cfg.Gateway.AllowedOrigins)
}

func TestLoadConfigEnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parlor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \"0.0.0.0:9000\"\n"), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SERVER_ADDR", "127.0.0.1:9100")

	cfg, err := server.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9100", cfg.Addr)
}

func TestNewConfigFromFileMissing(t *testing.T) {
	_, err := server.NewConfigFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
