package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults_AreValid(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.LLM.Enabled)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "INBOX", cfg.IMAP.Folder)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"llm without key", func(c *Config) { c.LLM.Enabled = true }, "llm.api_key"},
		{"llm over socket", func(c *Config) { c.LLM.Enabled = true; c.LLM.SocketPath = "/tmp/dmr.sock" }, ""},
		{"fast scheduler", func(c *Config) { c.Scheduler.Interval = time.Second }, "scheduler.interval"},
		{"disabled scheduler ignores interval", func(c *Config) { c.Scheduler.Enabled = false; c.Scheduler.Interval = 0 }, ""},
		{"no upload size", func(c *Config) { c.Server.MaxUploadBytes = 0 }, "max_upload_bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
