package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	t.Run("file values over defaults", func(t *testing.T) {
		req := require.New(t)
		path := writeConfig(t, "port: 9000\nsecret: s3cret\nchat_hosts_only: true\nping_period: 20s\n")

		cfg, err := LoadFile(path)

		req.NoError(err)
		req.Equal(9000, cfg.Port)
		req.Equal("s3cret", cfg.Secret)
		req.True(cfg.ChatHostsOnly)
		req.Equal(20*time.Second, cfg.PingPeriod)
		req.Equal(60*time.Second, cfg.PongWait)
		req.Equal(16000, cfg.SampleRate)
		req.Equal("livestage:bus:", cfg.RedisChannelPrefix)
	})

	t.Run("environment wins over the file", func(t *testing.T) {
		req := require.New(t)
		path := writeConfig(t, "secret: from-file\n")
		t.Setenv("BROADCAST_SECRET", "from-env")
		t.Setenv("BROADCAST_REDIS_ADDR", "redis:6379")

		cfg, err := LoadFile(path)

		req.NoError(err)
		req.Equal("from-env", cfg.Secret)
		req.Equal("redis:6379", cfg.RedisAddr)
	})

	t.Run("missing secret is refused", func(t *testing.T) {
		_, err := LoadFile(writeConfig(t, "port: 8080\n"))
		require.Error(t, err)
	})

	t.Run("ping period must be shorter than pong wait", func(t *testing.T) {
		_, err := LoadFile(writeConfig(t, "secret: x\nping_period: 90s\npong_wait: 60s\n"))
		require.Error(t, err)
	})

	t.Run("missing file falls back to defaults", func(t *testing.T) {
		req := require.New(t)
		t.Setenv("BROADCAST_SECRET", "env-only")

		cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))

		req.NoError(err)
		req.Equal(8080, cfg.Port)
		req.Equal("release", cfg.Mode)
	})
}
