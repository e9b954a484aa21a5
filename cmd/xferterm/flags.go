package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kandev/xferterm/internal/common/config"
)

// connectFlags are the command-line overrides for the connect command.
// Only flags given explicitly replace configured values.
type connectFlags struct {
	kind       string
	host       string
	port       int
	user       string
	keyFile    string
	knownHosts string
	device     string
	baud       int
	command    string
	term       string
	timeout    time.Duration

	downloadDir   string
	remoteCommand bool
	autodetect    bool
	logLevel      string
}

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "config file or directory (default ./config.yaml, ~/.config/xferterm/config.yaml)")
	return fs, configPath
}

func (f *connectFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.kind, "kind", "", "connection kind: raw, telnet, rlogin, ssh, serial, pty")
	fs.StringVar(&f.host, "host", "", "remote host")
	fs.IntVar(&f.port, "port", 0, "remote port (default depends on kind)")
	fs.StringVar(&f.user, "user", "", "remote user name")
	fs.StringVar(&f.keyFile, "key", "", "ssh private key file")
	fs.StringVar(&f.knownHosts, "known-hosts", "", `ssh known_hosts file, or "none"`)
	fs.StringVar(&f.device, "device", "", "serial device")
	fs.IntVar(&f.baud, "baud", 0, "serial line speed")
	fs.StringVar(&f.command, "command", "", "command run by the pty kind")
	fs.StringVar(&f.term, "term", "", "terminal type sent to the remote side")
	fs.DurationVar(&f.timeout, "timeout", 0, "connect timeout")
	fs.StringVar(&f.downloadDir, "download-dir", "", "directory received files are written to")
	fs.BoolVar(&f.remoteCommand, "remote-command", false, "send the remote sender command when a download starts")
	fs.BoolVar(&f.autodetect, "autodetect", true, "start a download when the remote side offers one")
	fs.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// apply copies every flag that was set on the command line into cfg.
func (f *connectFlags) apply(fs *flag.FlagSet, cfg *config.Config) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "kind":
			cfg.Connection.Kind = strings.ToLower(f.kind)
		case "host":
			cfg.Connection.Host = f.host
		case "port":
			cfg.Connection.Port = f.port
		case "user":
			cfg.Connection.User = f.user
		case "key":
			cfg.Connection.KeyFile = f.keyFile
		case "known-hosts":
			cfg.Connection.KnownHosts = f.knownHosts
		case "device":
			cfg.Connection.Device = f.device
		case "baud":
			cfg.Connection.Baud = f.baud
		case "command":
			cfg.Connection.Command = f.command
		case "term":
			cfg.Connection.Term = f.term
		case "timeout":
			cfg.Connection.Timeout = f.timeout
		case "download-dir":
			cfg.Transfer.DownloadDir = f.downloadDir
		case "remote-command":
			cfg.Transfer.RemoteCommandEnable = f.remoteCommand
		case "autodetect":
			cfg.Transfer.Autodetect = f.autodetect
		case "log-level":
			cfg.Logging.Level = f.logLevel
		}
	})
}

// loadConfig parses args with fs, then loads the configuration with the
// connect overrides applied before validation. overrides may be nil.
func loadConfig(fs *flag.FlagSet, configPath *string, args []string, overrides *connectFlags) (*config.Config, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	var apply func(*config.Config)
	if overrides != nil {
		apply = func(cfg *config.Config) { overrides.apply(fs, cfg) }
	}
	return config.LoadWithOverrides(*configPath, apply)
}
