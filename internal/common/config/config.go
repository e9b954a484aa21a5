// Package config provides configuration management for xferterm.
// It supports loading configuration from environment variables, config files, and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration sections for xferterm.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Transfer   TransferConfig   `mapstructure:"transfer" yaml:"transfer"`
	Connection ConnectionConfig `mapstructure:"connection" yaml:"connection"`
	Terminal   TerminalConfig   `mapstructure:"terminal" yaml:"terminal"`
	History    HistoryConfig    `mapstructure:"history" yaml:"history"`
	Events     EventsConfig     `mapstructure:"events" yaml:"events"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	OutputPath string `mapstructure:"outputPath" yaml:"outputPath"`
}

// TransferConfig holds the helper program settings used by the transfer manager.
type TransferConfig struct {
	DownloadCommand string `mapstructure:"downloadCommand" yaml:"downloadCommand"`
	DownloadOptions string `mapstructure:"downloadOptions" yaml:"downloadOptions"`
	UploadCommand   string `mapstructure:"uploadCommand" yaml:"uploadCommand"`
	UploadOptions   string `mapstructure:"uploadOptions" yaml:"uploadOptions"`
	// DownloadDir is the working directory of every helper, so received files land there.
	DownloadDir string `mapstructure:"downloadDir" yaml:"downloadDir"`

	// RemoteCommandEnable sends RemoteCommand to the peer before a download
	// so the remote side starts its sender.
	RemoteCommandEnable bool   `mapstructure:"remoteCommandEnable" yaml:"remoteCommandEnable"`
	RemoteCommand       string `mapstructure:"remoteCommand" yaml:"remoteCommand"`

	Autodetect   bool          `mapstructure:"autodetect" yaml:"autodetect"`
	ExitGrace    time.Duration `mapstructure:"exitGrace" yaml:"exitGrace"`
	PollInterval time.Duration `mapstructure:"pollInterval" yaml:"pollInterval"`
}

// ConnectionConfig describes the backend the terminal is attached to.
type ConnectionConfig struct {
	Kind       string `mapstructure:"kind" yaml:"kind"` // raw, telnet, rlogin, ssh, serial, pty
	Host       string `mapstructure:"host" yaml:"host"`
	Port       int    `mapstructure:"port" yaml:"port"`
	User       string `mapstructure:"user" yaml:"user"`
	Password   string `mapstructure:"password" yaml:"password"`
	KeyFile    string `mapstructure:"keyFile" yaml:"keyFile"`
	KnownHosts string `mapstructure:"knownHosts" yaml:"knownHosts"`
	Device     string `mapstructure:"device" yaml:"device"`
	Baud       int    `mapstructure:"baud" yaml:"baud"`
	Command    string `mapstructure:"command" yaml:"command"`
	Term       string `mapstructure:"term" yaml:"term"`

	// Timeout bounds dialing and the login handshake.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Address returns host:port for the network connection kinds.
func (c *ConnectionConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TerminalConfig holds local terminal settings.
type TerminalConfig struct {
	// Escape is the command prefix key in caret notation, e.g. "^]".
	Escape string `mapstructure:"escape" yaml:"escape"`
	Title  string `mapstructure:"title" yaml:"title"`
}

// EscapeByte returns the configured escape key as a single byte.
func (t *TerminalConfig) EscapeByte() (byte, error) {
	return ParseEscape(t.Escape)
}

// HistoryConfig controls the persistent transfer history.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// EventsConfig controls session event publishing.
// An empty NATSURL selects the in-memory bus.
type EventsConfig struct {
	NATSURL string `mapstructure:"natsUrl" yaml:"natsUrl"`
	Subject string `mapstructure:"subject" yaml:"subject"`
}

var validKinds = map[string]bool{
	"raw": true, "telnet": true, "rlogin": true, "ssh": true, "serial": true, "pty": true,
}

var defaultPorts = map[string]int{
	"raw": 23, "telnet": 23, "rlogin": 513, "ssh": 22,
}

// DefaultPort returns the well-known port for a network connection kind, or 0.
func DefaultPort(kind string) int {
	return defaultPorts[kind]
}

// StateDir returns the per-user directory for logs and history.
func StateDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "xferterm")
	}
	return filepath.Join(os.TempDir(), "xferterm")
}

func helperName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

// defaultDownloadDir prefers the desktop and falls back to the home directory.
func defaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	desktop := filepath.Join(home, "Desktop")
	if info, err := os.Stat(desktop); err == nil && info.IsDir() {
		return desktop
	}
	return home
}

func defaultShell() string {
	if runtime.GOOS == "windows" {
		return "cmd.exe"
	}
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	// Logging goes to a file; the terminal is in raw mode while connected.
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", filepath.Join(StateDir(), "xferterm.log"))

	v.SetDefault("transfer.downloadCommand", helperName("rz"))
	v.SetDefault("transfer.downloadOptions", "-E -b")
	v.SetDefault("transfer.uploadCommand", helperName("sz"))
	v.SetDefault("transfer.uploadOptions", "-b -e")
	v.SetDefault("transfer.downloadDir", defaultDownloadDir())
	v.SetDefault("transfer.remoteCommandEnable", false)
	v.SetDefault("transfer.remoteCommand", "sz")
	v.SetDefault("transfer.autodetect", true)
	v.SetDefault("transfer.exitGrace", 500*time.Millisecond)
	v.SetDefault("transfer.pollInterval", 10*time.Millisecond)

	v.SetDefault("connection.kind", "pty")
	v.SetDefault("connection.host", "")
	v.SetDefault("connection.port", 0) // 0 picks the kind's well-known port
	v.SetDefault("connection.user", "")
	v.SetDefault("connection.password", "")
	v.SetDefault("connection.keyFile", "")
	v.SetDefault("connection.knownHosts", "")
	v.SetDefault("connection.device", "")
	v.SetDefault("connection.baud", 9600)
	v.SetDefault("connection.command", defaultShell())
	v.SetDefault("connection.term", "xterm")
	v.SetDefault("connection.timeout", 10*time.Second)

	v.SetDefault("terminal.escape", "^]")
	v.SetDefault("terminal.title", "xferterm")

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", filepath.Join(StateDir(), "history.db"))

	// Empty URL means use in-memory event bus
	v.SetDefault("events.natsUrl", "")
	v.SetDefault("events.subject", "transfer.session")
}

// Load reads configuration from environment variables, config file, and defaults.
// Environment variables use the prefix XFERTERM_ with snake_case naming.
func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath reads configuration from the given path or default locations.
// configPath may name a directory holding config.yaml or the file itself.
func LoadWithPath(configPath string) (*Config, error) {
	return LoadWithOverrides(configPath, nil)
}

// LoadWithOverrides is LoadWithPath with override applied to the loaded
// values before validation. Command-line flags use it.
func LoadWithOverrides(configPath string, override func(*Config)) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("XFERTERM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv does not handle camelCase to SNAKE_CASE conversion.
	_ = v.BindEnv("transfer.downloadCommand", "XFERTERM_TRANSFER_DOWNLOAD_COMMAND")
	_ = v.BindEnv("transfer.uploadCommand", "XFERTERM_TRANSFER_UPLOAD_COMMAND")
	_ = v.BindEnv("transfer.downloadDir", "XFERTERM_TRANSFER_DOWNLOAD_DIR")
	_ = v.BindEnv("transfer.remoteCommandEnable", "XFERTERM_TRANSFER_REMOTE_COMMAND_ENABLE")
	_ = v.BindEnv("connection.password", "XFERTERM_CONNECTION_PASSWORD")
	_ = v.BindEnv("events.natsUrl", "XFERTERM_EVENTS_NATS_URL", "NATS_URL")
	_ = v.BindEnv("logging.outputPath", "XFERTERM_LOGGING_OUTPUT_PATH")

	v.SetConfigType("yaml")
	if configPath != "" && strings.HasSuffix(configPath, ".yaml") {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		if configPath != "" {
			v.AddConfigPath(configPath)
		}
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "xferterm"))
		}
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if override != nil {
		override(&cfg)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration and fills derived values such as the
// connection port. It is exported so command-line overrides can be rechecked.
func Validate(cfg *Config) error {
	var errs []string

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, "logging.format must be one of: json, text, console")
	}

	if cfg.Transfer.DownloadCommand == "" {
		errs = append(errs, "transfer.downloadCommand is required")
	}
	if cfg.Transfer.UploadCommand == "" {
		errs = append(errs, "transfer.uploadCommand is required")
	}
	if cfg.Transfer.PollInterval <= 0 {
		errs = append(errs, "transfer.pollInterval must be positive")
	}
	if cfg.Transfer.ExitGrace < 0 {
		errs = append(errs, "transfer.exitGrace must not be negative")
	}
	if cfg.Transfer.RemoteCommandEnable && cfg.Transfer.RemoteCommand == "" {
		errs = append(errs, "transfer.remoteCommand is required when remoteCommandEnable is set")
	}

	conn := &cfg.Connection
	conn.Kind = strings.ToLower(conn.Kind)
	switch {
	case !validKinds[conn.Kind]:
		errs = append(errs, "connection.kind must be one of: raw, telnet, rlogin, ssh, serial, pty")
	case conn.Kind == "serial":
		if conn.Device == "" {
			errs = append(errs, "connection.device is required for serial connections")
		}
		if conn.Baud <= 0 {
			errs = append(errs, "connection.baud must be positive")
		}
	case conn.Kind == "pty":
		if conn.Command == "" {
			errs = append(errs, "connection.command is required for pty connections")
		}
	default:
		if conn.Host == "" {
			errs = append(errs, fmt.Sprintf("connection.host is required for %s connections", conn.Kind))
		}
		if conn.Port == 0 {
			conn.Port = DefaultPort(conn.Kind)
		}
		if conn.Port <= 0 || conn.Port > 65535 {
			errs = append(errs, "connection.port must be between 1 and 65535")
		}
	}

	if _, err := ParseEscape(cfg.Terminal.Escape); err != nil {
		errs = append(errs, "terminal.escape: "+err.Error())
	}

	if cfg.History.Enabled && cfg.History.Path == "" {
		errs = append(errs, "history.path is required when history is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// ParseEscape decodes a key given in caret notation ("^]") or as a single
// literal character.
func ParseEscape(s string) (byte, error) {
	switch {
	case len(s) == 1:
		return s[0], nil
	case len(s) == 2 && s[0] == '^':
		c := s[1]
		if c == '?' {
			return 0x7f, nil
		}
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c < '@' || c > '_' {
			return 0, fmt.Errorf("invalid caret sequence %q", s)
		}
		return c - '@', nil
	default:
		return 0, fmt.Errorf("expected a single key or caret notation, got %q", s)
	}
}

// Redacted returns a copy safe for printing.
func (c Config) Redacted() Config {
	if c.Connection.Password != "" {
		c.Connection.Password = "********"
	}
	return c
}
