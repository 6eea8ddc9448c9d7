package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 30, cfg.Stream.Quality)
	assert.Equal(t, "tagged", cfg.Stream.Protocol)
	assert.True(t, cfg.Stream.LatencyTracking)
	assert.Equal(t, ":6666", cfg.Transport.ListenAddress)
	assert.Equal(t, 65507, cfg.Transport.MaxDatagramSize)
	assert.Equal(t, 1000000, cfg.Transport.ReceiveBufferSize)
	assert.Equal(t, 16<<20, cfg.Stream.MaxFrameBytes)
}

func TestValidate_RateLimitingDisabled_AllowsZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 0
	cfg.RateLimiting.HTTP.Burst = 0
	cfg.RateLimiting.WebSocket.ConnectionsPerMinute = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config to be valid when rate limiting disabled, got error: %v", err)
	}
}

func TestValidate_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"quality below range", func(c *Config) { c.Stream.Quality = -1 }},
		{"quality above range", func(c *Config) { c.Stream.Quality = 101 }},
		{"unknown role", func(c *Config) { c.Stream.Role = "relay" }},
		{"unknown protocol", func(c *Config) { c.Stream.Protocol = "rtp" }},
		{"unknown compression", func(c *Config) { c.Stream.Compression.Algorithm = "brotli" }},
		{"negative fps", func(c *Config) { c.Stream.MaxFPS = -1 }},
		{"zero frame limit", func(c *Config) { c.Stream.MaxFrameBytes = 0 }},
		{"datagram too large", func(c *Config) { c.Transport.MaxDatagramSize = 65508 }},
		{"datagram zero", func(c *Config) { c.Transport.MaxDatagramSize = 0 }},
		{"receive buffer smaller than datagram", func(c *Config) { c.Transport.ReceiveBufferSize = 1024 }},
		{"unknown source", func(c *Config) { c.Source.Kind = "camera" }},
		{"images without directory", func(c *Config) { c.Source.Kind = "images" }},
		{"zero width", func(c *Config) { c.Source.Width = 0 }},
		{"redis without address", func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.Address = ""
		}},
		{"auth without secret", func(c *Config) {
			c.Auth.Enabled = true
			c.Auth.JWTSecret = ""
		}},
		{"http rps must be > 0", func(c *Config) {
			c.RateLimiting.Enabled = true
			c.RateLimiting.HTTP.RequestsPerSecond = 0
		}},
		{"ws max concurrent must be >= 0", func(c *Config) {
			c.RateLimiting.Enabled = true
			c.RateLimiting.WebSocket.MaxConcurrent = -1
		}},
		{"sample rate above one", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.SampleRate = 2
		}},
		{"backup without interval", func(c *Config) {
			c.Backup.Enabled = true
			c.Backup.Interval = 0
		}},
		{"negative retention", func(c *Config) { c.Backup.RetentionDays = -1 }},
		{"server without read timeout", func(c *Config) {
			c.Server.Enabled = true
			c.Server.ReadTimeout = 0
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Stream, cfg.Stream)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
stream:
  role: producer
  quality: 75
  protocol: legacy
  compression:
    enabled: false
transport:
  peer_address: 10.0.0.2:6666
server:
  enabled: true
  address: ":9000"
  read_timeout: 5s
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "producer", cfg.Stream.Role)
	assert.Equal(t, 75, cfg.Stream.Quality)
	assert.Equal(t, "legacy", cfg.Stream.Protocol)
	assert.False(t, cfg.Stream.Compression.Enabled)
	assert.Equal(t, "10.0.0.2:6666", cfg.Transport.PeerAddress)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	// untouched keys keep their defaults
	assert.Equal(t, 65507, cfg.Transport.MaxDatagramSize)
	assert.True(t, cfg.Stream.LatencyTracking)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stream: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FRAMEWIRE_ROLE", "peer")
	t.Setenv("FRAMEWIRE_QUALITY", "55")
	t.Setenv("FRAMEWIRE_LISTEN_ADDRESS", "127.0.0.1:7000")
	t.Setenv("FRAMEWIRE_PEER_ADDRESS", "127.0.0.1:7001")
	t.Setenv("FRAMEWIRE_REDIS_ADDRESS", "redis:6379")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "peer", cfg.Stream.Role)
	assert.Equal(t, 55, cfg.Stream.Quality)
	assert.Equal(t, "127.0.0.1:7000", cfg.Transport.ListenAddress)
	assert.Equal(t, "127.0.0.1:7001", cfg.Transport.PeerAddress)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Address)
}

func TestLoad_EnvQualityMustBeNumeric(t *testing.T) {
	t.Setenv("FRAMEWIRE_QUALITY", "high")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_EnvQualityOutOfRange(t *testing.T) {
	t.Setenv("FRAMEWIRE_QUALITY", "150")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_SampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Stream, cfg.Stream)
	assert.Equal(t, DefaultConfig().Backup, cfg.Backup)
	assert.Equal(t, 7*24*time.Hour, cfg.Redis.ReportTTL)
}
