package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

const maxUDPPayload = 65507

type Config struct {
	Stream struct {
		Role            string  `yaml:"role"`
		Quality         int     `yaml:"quality"`
		Protocol        string  `yaml:"protocol"`
		LatencyTracking bool    `yaml:"latency_tracking"`
		MaxFPS          float64 `yaml:"max_fps"`
		// MaxFrameBytes caps a decompressed payload on the consumer side.
		MaxFrameBytes int `yaml:"max_frame_bytes"`

		Compression struct {
			Enabled   bool   `yaml:"enabled"`
			Algorithm string `yaml:"algorithm"`
			Level     int    `yaml:"level"`
		} `yaml:"compression"`
	} `yaml:"stream"`

	Transport struct {
		ListenAddress     string `yaml:"listen_address"`
		PeerAddress       string `yaml:"peer_address"`
		MaxDatagramSize   int    `yaml:"max_datagram_size"`
		ReceiveBufferSize int    `yaml:"receive_buffer_size"`
		SendBufferBytes   int    `yaml:"send_buffer_bytes"`
	} `yaml:"transport"`

	Source struct {
		Kind      string `yaml:"kind"`
		Width     int    `yaml:"width"`
		Height    int    `yaml:"height"`
		Frames    int    `yaml:"frames"`
		Color     string `yaml:"color"`
		Pattern   string `yaml:"pattern"`
		Directory string `yaml:"directory"`
		Loop      bool   `yaml:"loop"`
	} `yaml:"source"`

	Server struct {
		Enabled         bool          `yaml:"enabled"`
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Monitoring struct {
		PrometheusEnabled bool          `yaml:"prometheus_enabled"`
		MetricsInterval   time.Duration `yaml:"metrics_interval"`
	} `yaml:"monitoring"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Redis struct {
		Enabled   bool          `yaml:"enabled"`
		Address   string        `yaml:"address"`
		Password  string        `yaml:"password"`
		DB        int           `yaml:"db"`
		PoolSize  int           `yaml:"pool_size"`
		ReportTTL time.Duration `yaml:"report_ttl"`
	} `yaml:"redis"`

	Auth struct {
		Enabled         bool          `yaml:"enabled"`
		JWTSecret       string        `yaml:"jwt_secret"`
		AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
		RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
		AllowedOrigins  []string      `yaml:"allowed_origins"`
	} `yaml:"auth"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled"`

		HTTP struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
			MaxConcurrent     int     `yaml:"max_concurrent"` // global concurrent HTTP requests
		} `yaml:"http"`

		WebSocket struct {
			ConnectionsPerMinute int `yaml:"connections_per_minute"`
			MaxConcurrent        int `yaml:"max_concurrent_connections"`
		} `yaml:"websocket"`
	} `yaml:"rate_limiting"`

	Backup struct {
		Enabled       bool          `yaml:"enabled"`
		Directory     string        `yaml:"directory"`
		Interval      time.Duration `yaml:"interval"`
		RetentionDays int           `yaml:"retention_days"`
	} `yaml:"backup"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		ServiceName string  `yaml:"service_name"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Stream
	switch c.Stream.Role {
	case "producer", "consumer", "peer":
	default:
		return fmt.Errorf("stream.role must be producer, consumer or peer, got %q", c.Stream.Role)
	}
	if c.Stream.Quality < 0 || c.Stream.Quality > 100 {
		return fmt.Errorf("stream.quality must be within [0,100], got %d", c.Stream.Quality)
	}
	switch c.Stream.Protocol {
	case "tagged", "legacy":
	default:
		return fmt.Errorf("stream.protocol must be tagged or legacy, got %q", c.Stream.Protocol)
	}
	if c.Stream.MaxFPS < 0 {
		return fmt.Errorf("stream.max_fps must be >= 0")
	}
	if c.Stream.MaxFrameBytes <= 0 {
		return fmt.Errorf("stream.max_frame_bytes must be > 0")
	}
	switch c.Stream.Compression.Algorithm {
	case "", "none", "zlib", "zstd":
	default:
		return fmt.Errorf("stream.compression.algorithm must be zlib or zstd, got %q", c.Stream.Compression.Algorithm)
	}

	// Transport
	if c.Transport.MaxDatagramSize <= 0 || c.Transport.MaxDatagramSize > maxUDPPayload {
		return fmt.Errorf("transport.max_datagram_size must be within (0,%d]", maxUDPPayload)
	}
	if c.Transport.ReceiveBufferSize < c.Transport.MaxDatagramSize {
		return fmt.Errorf("transport.receive_buffer_size must be >= max_datagram_size")
	}
	if c.Transport.SendBufferBytes < 0 {
		return fmt.Errorf("transport.send_buffer_bytes must be >= 0")
	}

	// Source
	switch c.Source.Kind {
	case "synthetic":
		if c.Source.Width <= 0 || c.Source.Height <= 0 {
			return fmt.Errorf("source.width and source.height must be > 0")
		}
	case "images":
		if c.Source.Directory == "" {
			return fmt.Errorf("source.directory must not be empty when source.kind=images")
		}
	default:
		return fmt.Errorf("source.kind must be synthetic or images, got %q", c.Source.Kind)
	}
	if c.Source.Frames < 0 {
		return fmt.Errorf("source.frames must be >= 0")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Address == "" {
			return fmt.Errorf("server.address must not be empty")
		}
		if c.Server.ReadTimeout <= 0 {
			return fmt.Errorf("server.read_timeout must be > 0")
		}
		if c.Server.WriteTimeout <= 0 {
			return fmt.Errorf("server.write_timeout must be > 0")
		}
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	// Monitoring
	if c.Monitoring.MetricsInterval <= 0 {
		return fmt.Errorf("monitoring.metrics_interval must be > 0")
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	// Auth
	if c.Auth.Enabled {
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwt_secret must not be empty")
		}
		if c.Auth.AccessTokenTTL <= 0 {
			return fmt.Errorf("auth.access_token_ttl must be > 0")
		}
		if c.Auth.RefreshTokenTTL <= 0 {
			return fmt.Errorf("auth.refresh_token_ttl must be > 0")
		}
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.http.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.Burst <= 0 {
			return fmt.Errorf("rate_limiting.http.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.http.max_concurrent must be >= 0 when rate limiting is enabled")
		}
		if c.RateLimiting.WebSocket.ConnectionsPerMinute <= 0 {
			return fmt.Errorf("rate_limiting.websocket.connections_per_minute must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.WebSocket.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.websocket.max_concurrent_connections must be >= 0 when rate limiting is enabled")
		}
	}

	// Backup
	if c.Backup.Enabled {
		if c.Backup.Directory == "" {
			return fmt.Errorf("backup.directory must not be empty when backup.enabled=true")
		}
		if c.Backup.Interval <= 0 {
			return fmt.Errorf("backup.interval must be > 0 when backup.enabled=true")
		}
	}
	if c.Backup.RetentionDays < 0 {
		return fmt.Errorf("backup.retention_days must be >= 0")
	}

	// Tracing
	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be within [0,1]")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
// A missing file yields the defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Stream.Role = "consumer"
	cfg.Stream.Quality = 30
	cfg.Stream.Protocol = "tagged"
	cfg.Stream.LatencyTracking = true
	cfg.Stream.MaxFPS = 30
	cfg.Stream.MaxFrameBytes = 16 << 20
	cfg.Stream.Compression.Enabled = true
	cfg.Stream.Compression.Algorithm = "zlib"

	cfg.Transport.ListenAddress = ":6666"
	cfg.Transport.MaxDatagramSize = maxUDPPayload
	cfg.Transport.ReceiveBufferSize = 1000000
	cfg.Transport.SendBufferBytes = 1000000

	cfg.Source.Kind = "synthetic"
	cfg.Source.Width = 640
	cfg.Source.Height = 480
	cfg.Source.Color = "#3080c0"
	cfg.Source.Pattern = "gradient"

	cfg.Server.Enabled = false
	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 10 * time.Second

	cfg.Monitoring.PrometheusEnabled = true
	cfg.Monitoring.MetricsInterval = time.Second

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "console"

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.PoolSize = 10
	cfg.Redis.ReportTTL = 7 * 24 * time.Hour

	cfg.Auth.Enabled = false
	cfg.Auth.JWTSecret = "change-me-in-production"
	cfg.Auth.AccessTokenTTL = 15 * time.Minute
	cfg.Auth.RefreshTokenTTL = 7 * 24 * time.Hour
	cfg.Auth.AllowedOrigins = []string{"*"}

	// Rate limiting defaults (disabled by default)
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 50
	cfg.RateLimiting.HTTP.Burst = 100
	cfg.RateLimiting.WebSocket.ConnectionsPerMinute = 60

	cfg.Backup.Enabled = false
	cfg.Backup.Directory = "backups"
	cfg.Backup.Interval = time.Hour
	cfg.Backup.RetentionDays = 7

	cfg.Tracing.ServiceName = "framewire"
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	return cfg
}

func (c *Config) applyEnvOverrides() error {
	if addr := os.Getenv("FRAMEWIRE_LISTEN_ADDRESS"); addr != "" {
		c.Transport.ListenAddress = addr
	}
	if addr := os.Getenv("FRAMEWIRE_PEER_ADDRESS"); addr != "" {
		c.Transport.PeerAddress = addr
	}
	if role := os.Getenv("FRAMEWIRE_ROLE"); role != "" {
		c.Stream.Role = role
	}
	if q := os.Getenv("FRAMEWIRE_QUALITY"); q != "" {
		quality, err := strconv.Atoi(q)
		if err != nil {
			return fmt.Errorf("FRAMEWIRE_QUALITY must be an integer: %w", err)
		}
		c.Stream.Quality = quality
	}
	if level := os.Getenv("FRAMEWIRE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if secret := os.Getenv("FRAMEWIRE_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if addr := os.Getenv("FRAMEWIRE_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
		c.Redis.Enabled = true
	}
	return nil
}
