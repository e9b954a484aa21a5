package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/kandev/xferterm/internal/common/config"
	"github.com/kandev/xferterm/internal/common/logger"
)

// KnownHostsDisabled as connection.knownHosts turns host key checking off.
const KnownHostsDisabled = "none"

type sshConn struct {
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func sshAuthMethods(cfg config.ConnectionConfig) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if cfg.KeyFile != "" {
		pem, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("parse key file %s: %w", cfg.KeyFile, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		password := cfg.Password
		methods = append(methods,
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}))
	}
	if len(methods) == 0 {
		return nil, errors.New("ssh: connection.password or connection.keyFile is required")
	}
	return methods, nil
}

func sshHostKeyCallback(cfg config.ConnectionConfig, log *logger.Logger) (ssh.HostKeyCallback, error) {
	path := cfg.KnownHosts
	if path == KnownHostsDisabled {
		log.Warn("ssh host key checking disabled")
		return ssh.InsecureIgnoreHostKey(), nil
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locate known_hosts: %w", err)
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}
	cb, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("load known_hosts %s: %w", path, err)
	}
	return cb, nil
}

func dialSSH(ctx context.Context, cfg config.ConnectionConfig, log *logger.Logger) (Conn, error) {
	auth, err := sshAuthMethods(cfg)
	if err != nil {
		return nil, err
	}
	hostKey, err := sshHostKeyCallback(cfg, log)
	if err != nil {
		return nil, err
	}
	clientCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         cfg.Timeout,
	}

	nc, err := dialTCP(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = nc.SetDeadline(deadline)
	}
	sc, chans, reqs, err := ssh.NewClientConn(nc, cfg.Address(), clientCfg)
	if err != nil {
		_ = nc.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", cfg.Address(), err)
	}
	_ = nc.SetDeadline(time.Time{})
	client := ssh.NewClient(sc, chans, reqs)

	c, err := openShell(client, cfg.Term)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	log.Info("connected", zap.String("addr", cfg.Address()), zap.String("user", cfg.User))
	return c, nil
}

func openShell(client *ssh.Client, term string) (*sshConn, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("ssh session: %w", err)
	}
	stdin, err := session.StdinPipe()
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("ssh stdin: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("ssh stdout: %w", err)
	}
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 38400,
		ssh.TTY_OP_OSPEED: 38400,
	}
	if err := session.RequestPty(term, 24, 80, modes); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("ssh pty request: %w", err)
	}
	if err := session.Shell(); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("ssh shell: %w", err)
	}
	return &sshConn{client: client, session: session, stdin: stdin, stdout: stdout}, nil
}

func (c *sshConn) Read(p []byte) (int, error) { return c.stdout.Read(p) }

func (c *sshConn) Send(p []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.stdin.Write(p)
	return err
}

func (c *sshConn) Protocol() Protocol { return SSH }

func (c *sshConn) Resize(cols, rows int) error {
	return c.session.WindowChange(rows, cols)
}

func (c *sshConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		_ = c.session.Close()
		err = c.client.Close()
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
	})
	return err
}
