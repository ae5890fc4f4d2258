// Package config loads registry and discovery agent settings from the
// environment, with an optional TOML file for the agent.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the registry server settings.
type Config struct {
	HTTPAddr string // APPREG_HTTP_ADDR (default ":7000")
	GRPCAddr string // APPREG_GRPC_ADDR (default ":9090")
	NATSURL  string // APPREG_NATS_URL (optional, empty = no events)

	// AgentDeadAfter is how long a discovery agent may stay silent before
	// the roster marks it dead.
	AgentDeadAfter time.Duration // APPREG_AGENT_DEAD_AFTER (default 15m)

	// Export settings
	ExportInterval   time.Duration // APPREG_EXPORT_INTERVAL (default 5m; 0 = disabled)
	ExportS3Bucket   string        // APPREG_EXPORT_S3_BUCKET (enables S3 when set)
	ExportS3Endpoint string        // APPREG_EXPORT_S3_ENDPOINT (custom endpoint for MinIO)
	ExportS3Region   string        // APPREG_EXPORT_S3_REGION (default "us-east-1")
	ExportS3Key      string        // APPREG_EXPORT_S3_KEY (default "appreg/applications.jsonl")
	ExportGitRepo    string        // APPREG_EXPORT_GIT_REPO (enables git when set; path to clone)
	ExportGitFile    string        // APPREG_EXPORT_GIT_FILE (default "applications.jsonl")
	ExportGitBranch  string        // APPREG_EXPORT_GIT_BRANCH (default "main")
}

// Load reads the server configuration from the environment.
func Load() (*Config, error) {
	c := &Config{
		HTTPAddr:         envOrDefault("APPREG_HTTP_ADDR", ":7000"),
		GRPCAddr:         envOrDefault("APPREG_GRPC_ADDR", ":9090"),
		NATSURL:          os.Getenv("APPREG_NATS_URL"),
		ExportS3Bucket:   os.Getenv("APPREG_EXPORT_S3_BUCKET"),
		ExportS3Endpoint: os.Getenv("APPREG_EXPORT_S3_ENDPOINT"),
		ExportS3Region:   envOrDefault("APPREG_EXPORT_S3_REGION", "us-east-1"),
		ExportS3Key:      envOrDefault("APPREG_EXPORT_S3_KEY", "appreg/applications.jsonl"),
		ExportGitRepo:    os.Getenv("APPREG_EXPORT_GIT_REPO"),
		ExportGitFile:    envOrDefault("APPREG_EXPORT_GIT_FILE", "applications.jsonl"),
		ExportGitBranch:  envOrDefault("APPREG_EXPORT_GIT_BRANCH", "main"),
	}

	d, err := envDuration("APPREG_EXPORT_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}
	c.ExportInterval = d

	d, err = envDuration("APPREG_AGENT_DEAD_AFTER", "15m")
	if err != nil {
		return nil, err
	}
	c.AgentDeadAfter = d
	return c, nil
}

// ExportEnabled reports whether any export destination is configured.
func (c *Config) ExportEnabled() bool {
	return c.ExportInterval > 0 && (c.ExportS3Bucket != "" || c.ExportGitRepo != "")
}

// AgentConfig holds the discovery agent settings.
type AgentConfig struct {
	MasterURI        string        // ROS_MASTER_URI (default "http://localhost:11311")
	PackagePath      string        // ROS_PACKAGE_PATH (list of package roots)
	RegistryURL      string        // APPREG_URL (default "http://localhost:7000")
	NATSURL          string        // APPREG_NATS_URL (optional, run summaries)
	CallerID         string        // ROSDISCOVER_CALLER_ID (default "/rosservice")
	Workers          int           // ROSDISCOVER_WORKERS (default 4)
	HandshakeTimeout time.Duration // ROSDISCOVER_HANDSHAKE_TIMEOUT (default 5s)
	Interval         time.Duration // ROSDISCOVER_INTERVAL (default 0 = run once)
}

// DefaultAgentConfig returns the agent defaults.
func DefaultAgentConfig() *AgentConfig {
	return &AgentConfig{
		MasterURI:        "http://localhost:11311",
		RegistryURL:      "http://localhost:7000",
		CallerID:         "/rosservice",
		Workers:          4,
		HandshakeTimeout: 5 * time.Second,
	}
}

// LoadAgent builds the agent configuration from defaults, then the TOML file
// named by APPREG_CONFIG (if any), then the environment.
func LoadAgent() (*AgentConfig, error) {
	c := DefaultAgentConfig()
	if path := os.Getenv("APPREG_CONFIG"); path != "" {
		if err := c.loadFile(path); err != nil {
			return nil, err
		}
	}

	c.MasterURI = envOrDefault("ROS_MASTER_URI", c.MasterURI)
	c.PackagePath = envOrDefault("ROS_PACKAGE_PATH", c.PackagePath)
	c.RegistryURL = envOrDefault("APPREG_URL", c.RegistryURL)
	c.NATSURL = envOrDefault("APPREG_NATS_URL", c.NATSURL)
	c.CallerID = envOrDefault("ROSDISCOVER_CALLER_ID", c.CallerID)

	if v := os.Getenv("ROSDISCOVER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("ROSDISCOVER_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("ROSDISCOVER_HANDSHAKE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("ROSDISCOVER_HANDSHAKE_TIMEOUT: %w", err)
		}
		c.HandshakeTimeout = d
	}
	if v := os.Getenv("ROSDISCOVER_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("ROSDISCOVER_INTERVAL: %w", err)
		}
		c.Interval = d
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// fileAgentConfig mirrors AgentConfig with durations as strings, which is how
// they are written in the file ("5s", "1m").
type fileAgentConfig struct {
	MasterURI        *string `toml:"master_uri"`
	PackagePath      *string `toml:"package_path"`
	RegistryURL      *string `toml:"registry_url"`
	NATSURL          *string `toml:"nats_url"`
	CallerID         *string `toml:"caller_id"`
	Workers          *int    `toml:"workers"`
	HandshakeTimeout *string `toml:"handshake_timeout"`
	Interval         *string `toml:"interval"`
}

func (c *AgentConfig) loadFile(path string) error {
	var f fileAgentConfig
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}

	setString(&c.MasterURI, f.MasterURI)
	setString(&c.PackagePath, f.PackagePath)
	setString(&c.RegistryURL, f.RegistryURL)
	setString(&c.NATSURL, f.NATSURL)
	setString(&c.CallerID, f.CallerID)
	if f.Workers != nil {
		c.Workers = *f.Workers
	}
	if f.HandshakeTimeout != nil {
		d, err := time.ParseDuration(*f.HandshakeTimeout)
		if err != nil {
			return fmt.Errorf("config %s: handshake_timeout: %w", path, err)
		}
		c.HandshakeTimeout = d
	}
	if f.Interval != nil {
		d, err := time.ParseDuration(*f.Interval)
		if err != nil {
			return fmt.Errorf("config %s: interval: %w", path, err)
		}
		c.Interval = d
	}
	return nil
}

func (c *AgentConfig) validate() error {
	switch {
	case c.MasterURI == "":
		return fmt.Errorf("ROS_MASTER_URI is required")
	case c.RegistryURL == "":
		return fmt.Errorf("APPREG_URL is required")
	case c.Workers < 1:
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	case c.HandshakeTimeout <= 0:
		return fmt.Errorf("handshake timeout must be positive, got %s", c.HandshakeTimeout)
	case c.Interval < 0:
		return fmt.Errorf("interval must not be negative, got %s", c.Interval)
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func envDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
