package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Presence PresenceConfig `yaml:"presence"`
	Worker   WorkerConfig   `yaml:"worker"`
}

// InstanceConfig identifies this fleet member
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	AuthToken    string        `yaml:"auth_token"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxConnections  int           `yaml:"max_connections"`
	MinConnections  int           `yaml:"min_connections"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
}

// ConnectionString returns the PostgreSQL connection string
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslMode,
	)
}

// KafkaConfig holds the player-event ingest configuration
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
	Enabled bool     `yaml:"enabled"`
}

// PresenceConfig holds snapshot distribution configuration. The publish
// interval is re-randomized within [PublishMinInterval, PublishMaxInterval]
// every cycle; SnapshotTTL must exceed PublishMaxInterval or a live
// instance's own entry can flap to absent between publishes.
type PresenceConfig struct {
	Channel            string        `yaml:"channel"`
	PublishMinInterval time.Duration `yaml:"publish_min_interval"`
	PublishMaxInterval time.Duration `yaml:"publish_max_interval"`
	SweepInterval      time.Duration `yaml:"sweep_interval"`
	SnapshotTTL        time.Duration `yaml:"snapshot_ttl"`
}

// WorkerConfig holds the repository worker pool configuration
type WorkerConfig struct {
	Count     int `yaml:"count"`
	QueueSize int `yaml:"queue_size"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply defaults
	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120 * time.Second
	}

	// Redis defaults
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 20
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = 2
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}

	// PostgreSQL defaults
	if c.Postgres.Host == "" {
		c.Postgres.Host = "localhost"
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.MaxConnections == 0 {
		c.Postgres.MaxConnections = 20
	}
	if c.Postgres.MinConnections == 0 {
		c.Postgres.MinConnections = 2
	}
	if c.Postgres.MaxConnLifetime == 0 {
		c.Postgres.MaxConnLifetime = 1 * time.Hour
	}
	if c.Postgres.MaxConnIdleTime == 0 {
		c.Postgres.MaxConnIdleTime = 30 * time.Minute
	}

	// Kafka defaults
	if len(c.Kafka.Brokers) == 0 {
		c.Kafka.Brokers = []string{"localhost:9092"}
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "player-events"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "analytics-" + c.Instance.ID
	}

	// Presence defaults
	if c.Presence.Channel == "" {
		c.Presence.Channel = "analytics:snapshots"
	}
	if c.Presence.PublishMinInterval == 0 {
		c.Presence.PublishMinInterval = 3 * time.Second
	}
	if c.Presence.PublishMaxInterval == 0 {
		c.Presence.PublishMaxInterval = 5 * time.Second
	}
	if c.Presence.SweepInterval == 0 {
		c.Presence.SweepInterval = 2 * time.Second
	}
	if c.Presence.SnapshotTTL == 0 {
		c.Presence.SnapshotTTL = 10 * time.Second
	}

	// Worker defaults
	if c.Worker.Count == 0 {
		c.Worker.Count = 4
	}
	if c.Worker.QueueSize == 0 {
		c.Worker.QueueSize = 256
	}
}

// Validate checks configuration invariants that defaults cannot repair
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return fmt.Errorf("instance.id is required")
	}
	if c.Presence.PublishMinInterval > c.Presence.PublishMaxInterval {
		return fmt.Errorf("presence.publish_min_interval %s exceeds publish_max_interval %s",
			c.Presence.PublishMinInterval, c.Presence.PublishMaxInterval)
	}
	if c.Presence.SnapshotTTL <= c.Presence.PublishMaxInterval {
		return fmt.Errorf("presence.snapshot_ttl %s must exceed publish_max_interval %s",
			c.Presence.SnapshotTTL, c.Presence.PublishMaxInterval)
	}
	return nil
}

// DefaultConfig returns a configuration with all defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}
