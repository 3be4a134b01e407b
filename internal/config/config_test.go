package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
		check   func(t *testing.T, c *Config)
	}{
		{
			name: "empty file uses defaults",
			src:  "",
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, Default(), c)
			},
		},
		{
			name: "partial blocks",
			src: `
log_level = "debug"
server {
  port = 9090
  seed = 42
}
player {
  poll_interval = "50ms"
}
`,
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "debug", c.LogLevel)
				assert.Equal(t, "localhost", c.Server.Host)
				assert.Equal(t, 9090, c.Server.Port)
				assert.Equal(t, int64(42), c.Server.Seed)
				assert.Equal(t, 50*time.Millisecond, c.Player.PollDuration())
				assert.Equal(t, 200*time.Millisecond, c.Player.BackoffDuration())
				assert.Equal(t, 5, c.Player.Retries)
			},
		},
		{name: "bad level", src: `log_level = "loud"`, wantErr: "invalid log level"},
		{name: "bad port", src: "server {\n  port = 70000\n}\n", wantErr: "port out of range"},
		{name: "bad duration", src: "player {\n  backoff = \"soon\"\n}\n", wantErr: "invalid backoff"},
		{name: "unknown attribute", src: `colour = "red"`, wantErr: "failed to decode HCL"},
		{name: "syntax error", src: `server {`, wantErr: "failed to parse HCL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse([]byte(tt.src), "test.hcl")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.hcl")
	written, err := WriteDefault(path)
	require.NoError(t, err)
	assert.Equal(t, path, written)

	c, got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.Equal(t, Default(), c)
}

func TestLoadMissingExplicitPath(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.hcl"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
