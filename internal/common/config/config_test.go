package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadWithPath(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "-E -b", cfg.Transfer.DownloadOptions)
	assert.Equal(t, "-b -e", cfg.Transfer.UploadOptions)
	assert.Equal(t, "sz", cfg.Transfer.RemoteCommand)
	assert.False(t, cfg.Transfer.RemoteCommandEnable)
	assert.True(t, cfg.Transfer.Autodetect)
	assert.Equal(t, 500*time.Millisecond, cfg.Transfer.ExitGrace)
	assert.Equal(t, 10*time.Millisecond, cfg.Transfer.PollInterval)
	assert.NotEmpty(t, cfg.Transfer.DownloadDir)
	assert.Equal(t, "pty", cfg.Connection.Kind)
	assert.Equal(t, "transfer.session", cfg.Events.Subject)

	if runtime.GOOS == "windows" {
		assert.Equal(t, "rz.exe", cfg.Transfer.DownloadCommand)
		assert.Equal(t, "sz.exe", cfg.Transfer.UploadCommand)
	} else {
		assert.Equal(t, "rz", cfg.Transfer.DownloadCommand)
		assert.Equal(t, "sz", cfg.Transfer.UploadCommand)
	}
}

func TestLoadFromFile(t *testing.T) {
	chdir(t, t.TempDir())
	dir := t.TempDir()
	content := `
transfer:
  downloadCommand: /opt/lrzsz/bin/lrz
  remoteCommandEnable: true
  remoteCommand: "sz -b"
  exitGrace: 250ms
connection:
  kind: telnet
  host: bbs.example.org
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	cfg, err := LoadWithPath(dir)
	require.NoError(t, err)

	assert.Equal(t, "/opt/lrzsz/bin/lrz", cfg.Transfer.DownloadCommand)
	assert.True(t, cfg.Transfer.RemoteCommandEnable)
	assert.Equal(t, "sz -b", cfg.Transfer.RemoteCommand)
	assert.Equal(t, 250*time.Millisecond, cfg.Transfer.ExitGrace)
	assert.Equal(t, "telnet", cfg.Connection.Kind)
	assert.Equal(t, 23, cfg.Connection.Port, "port defaults to the kind's well-known port")
}

func TestLoadExplicitFile(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("connection:\n  kind: ssh\n  host: h\n  port: 2222\n"), 0o644))

	cfg, err := LoadWithPath(path)
	require.NoError(t, err)
	assert.Equal(t, "ssh", cfg.Connection.Kind)
	assert.Equal(t, 2222, cfg.Connection.Port)
}

func TestLoadWithOverridesValidatesAfterOverride(t *testing.T) {
	chdir(t, t.TempDir())
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("connection:\n  kind: ssh\n"), 0o644))

	_, err := LoadWithPath(dir)
	require.Error(t, err, "ssh without a host is rejected")

	cfg, err := LoadWithOverrides(dir, func(c *Config) { c.Connection.Host = "h" })
	require.NoError(t, err)
	assert.Equal(t, "h", cfg.Connection.Host)
	assert.Equal(t, 22, cfg.Connection.Port)
}

func TestLoadEnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("XFERTERM_TRANSFER_DOWNLOAD_COMMAND", "lrz")
	t.Setenv("XFERTERM_LOGGING_LEVEL", "debug")

	cfg, err := LoadWithPath(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "lrz", cfg.Transfer.DownloadCommand)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	chdir(t, t.TempDir())
	base, err := LoadWithPath(t.TempDir())
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown kind",
			mutate:  func(c *Config) { c.Connection.Kind = "x25" },
			wantErr: "connection.kind",
		},
		{
			name:    "network kind without host",
			mutate:  func(c *Config) { c.Connection.Kind = "rlogin"; c.Connection.Host = "" },
			wantErr: "connection.host",
		},
		{
			name:    "serial without device",
			mutate:  func(c *Config) { c.Connection.Kind = "serial"; c.Connection.Device = "" },
			wantErr: "connection.device",
		},
		{
			name:    "remote command enabled but empty",
			mutate:  func(c *Config) { c.Transfer.RemoteCommandEnable = true; c.Transfer.RemoteCommand = "" },
			wantErr: "transfer.remoteCommand",
		},
		{
			name:    "zero poll interval",
			mutate:  func(c *Config) { c.Transfer.PollInterval = 0 },
			wantErr: "transfer.pollInterval",
		},
		{
			name:    "bad escape",
			mutate:  func(c *Config) { c.Terminal.Escape = "ctrl-x" },
			wantErr: "terminal.escape",
		},
		{
			name:   "kind is case insensitive",
			mutate: func(c *Config) { c.Connection.Kind = "SSH"; c.Connection.Host = "h" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			err := Validate(&cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseEscape(t *testing.T) {
	tests := []struct {
		in   string
		want byte
		ok   bool
	}{
		{"^]", 0x1d, true},
		{"^a", 0x01, true},
		{"^A", 0x01, true},
		{"^?", 0x7f, true},
		{"~", '~', true},
		{"^1", 0, false},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseEscape(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestRedacted(t *testing.T) {
	cfg := Config{Connection: ConnectionConfig{Password: "hunter2"}}
	assert.Equal(t, "********", cfg.Redacted().Connection.Password)
	assert.Equal(t, "hunter2", cfg.Connection.Password)
}

// chdir stands in for testing.T.Chdir (Go 1.24+): it switches the working
// directory for the test and restores it on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
