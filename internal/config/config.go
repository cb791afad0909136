package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Database      Database      `mapstructure:"database"`
	Storage       Storage       `mapstructure:"storage"`
	Elasticsearch Elasticsearch `mapstructure:"elasticsearch"`
	LLM           LLM           `mapstructure:"llm"`
	IMAP          IMAP          `mapstructure:"imap"`
	Scraper       Scraper       `mapstructure:"scraper"`
	Server        Server        `mapstructure:"server"`
	Scheduler     Scheduler     `mapstructure:"scheduler"`
	MCP           MCP           `mapstructure:"mcp"`
}

// Database holds the document store connection.
type Database struct {
	Driver string `mapstructure:"driver"` // sqlite or postgres
	DSN    string `mapstructure:"dsn"`
	Debug  bool   `mapstructure:"debug"`
}

// Storage holds S3/MinIO storage configuration.
type Storage struct {
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Region          string `mapstructure:"region"`
}

// Elasticsearch holds ES connection configuration. Search falls back to
// filename matching when disabled.
type Elasticsearch struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Index     string   `mapstructure:"index"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

// LLM holds the completion provider. AI features are off unless Enabled.
type LLM struct {
	Enabled    bool          `mapstructure:"enabled"`
	Provider   string        `mapstructure:"provider"` // openai, anthropic or gemini
	Model      string        `mapstructure:"model"`
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	SocketPath string        `mapstructure:"socket_path"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// IMAP holds the mailbox polled by "email sync".
type IMAP struct {
	Addr       string        `mapstructure:"addr"`
	Username   string        `mapstructure:"username"`
	Password   string        `mapstructure:"password"`
	Folder     string        `mapstructure:"folder"`
	Insecure   bool          `mapstructure:"insecure"`
	MaxResults int           `mapstructure:"max_results"`
	Lookback   time.Duration `mapstructure:"lookback"`
}

// Scraper holds web clipping configuration.
type Scraper struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
	MaxBodySize int           `mapstructure:"max_body_size"`
}

// Server holds the HTTP API configuration.
type Server struct {
	Addr           string        `mapstructure:"addr"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	DownloadTTL    time.Duration `mapstructure:"download_ttl"`
}

// Scheduler controls background insight generation while serving.
type Scheduler struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// MCP holds MCP server configuration.
type MCP struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Database: Database{
			Driver: "sqlite",
			DSN:    "lifeadmin.db",
		},
		Storage: Storage{
			Endpoint:        "localhost:9000",
			Bucket:          "lifeadmin",
			AccessKeyID:     "minioadmin",
			SecretAccessKey: "minioadmin",
			UseSSL:          false,
		},
		Elasticsearch: Elasticsearch{
			Enabled:   false,
			Addresses: []string{"http://localhost:9200"},
			Index:     "lifeadmin-items",
		},
		LLM: LLM{
			Enabled:  false,
			Provider: "openai",
			Model:    "gpt-4o-mini",
			Timeout:  2 * time.Minute,
		},
		IMAP: IMAP{
			Folder:     "INBOX",
			MaxResults: 50,
			Lookback:   30 * 24 * time.Hour,
		},
		Scraper: Scraper{
			Timeout:     30 * time.Second,
			UserAgent:   "lifeadmin/1.0",
			MaxBodySize: 10 << 20,
		},
		Server: Server{
			Addr:           ":8080",
			MaxUploadBytes: 50 << 20,
			DownloadTTL:    15 * time.Minute,
		},
		Scheduler: Scheduler{
			Enabled:  true,
			Interval: 6 * time.Hour,
		},
		MCP: MCP{
			Name:    "lifeadmin",
			Version: "1.0.0",
		},
	}
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	if c.LLM.Enabled && c.LLM.APIKey == "" && c.LLM.SocketPath == "" && c.LLM.BaseURL == "" {
		return fmt.Errorf("llm.api_key is required when llm.enabled is set")
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval < time.Minute {
		return fmt.Errorf("scheduler.interval must be at least 1m, got %s", c.Scheduler.Interval)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}
	return nil
}
