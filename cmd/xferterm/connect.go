package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/kandev/xferterm/internal/backend"
	"github.com/kandev/xferterm/internal/common/config"
	"github.com/kandev/xferterm/internal/common/logger"
	"github.com/kandev/xferterm/internal/terminal"
)

const (
	readChunkSize = 32 * 1024
	// maxTicksPerCycle bounds back-to-back transfer cycles so keyboard and
	// peer input are never starved by a chatty helper.
	maxTicksPerCycle = 64
)

func runConnect(args []string, stderr io.Writer) error {
	fs, configPath := newFlagSet("connect", stderr)
	var overrides connectFlags
	overrides.register(fs)

	cfg, err := loadConfig(fs, configPath, args, &overrides)
	if err != nil {
		return err
	}

	log, err := logger.NewLogger(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	logger.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return connect(ctx, cfg, os.Stdin, os.Stdout, log)
}

// connect dials the configured backend and runs the terminal until the
// user quits, the peer hangs up or ctx is cancelled.
func connect(ctx context.Context, cfg *config.Config, stdin *os.File, stdout *os.File, log *logger.Logger) error {
	escape, err := cfg.Terminal.EscapeByte()
	if err != nil {
		return err
	}

	log.Info("Connecting",
		zap.String("kind", cfg.Connection.Kind),
		zap.String("address", cfg.Connection.Address()),
		zap.Any("config", cfg.Redacted().Connection))

	conn, err := backend.Dial(ctx, cfg.Connection, log)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	svc, err := provideServices(cfg, stdout, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	fd := int(stdin.Fd())
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("failed to enter raw mode: %w", err)
		}
		defer func() { _ = term.Restore(fd, oldState) }()
	}

	if r, ok := conn.(backend.Resizer); ok {
		stopResize := watchResize(int(stdout.Fd()), r, log)
		defer stopResize()
	}

	svc.title.Set(windowTitle(cfg))
	t := terminal.New(conn, stdout, cfg.Transfer, escape, svc.notifier, log)
	defer t.Close()

	fmt.Fprintf(stdout, "Connected. Press %s ? for help.\r\n", cfg.Terminal.Escape)
	err = runLoop(ctx, t, conn, stdin, cfg.Transfer.PollInterval, log)
	if errors.Is(err, errPeerClosed) {
		fmt.Fprint(stdout, "\r\nConnection closed.\r\n")
		return nil
	}
	return err
}

var errPeerClosed = errors.New("connection closed by peer")

// runLoop drives the terminal from a single goroutine. Reader goroutines
// hand over peer and keyboard chunks, and every wakeup is followed by
// transfer cycles for as long as they report activity. conn is closed on
// return.
func runLoop(ctx context.Context, t *terminal.Terminal, conn backend.Conn, stdin io.Reader,
	pollInterval time.Duration, log *logger.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	peer := make(chan []byte, 16)
	keys := make(chan []byte, 16)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pump(gctx, conn, peer) })
	// The keyboard reader cannot be interrupted; it is abandoned on exit.
	go func() { _ = pump(ctx, stdin, keys) }()

	g.Go(func() error {
		// Closing the connection is what unblocks the peer reader.
		defer func() {
			cancel()
			_ = conn.Close()
		}()
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				return nil
			case p, ok := <-peer:
				if !ok {
					return errPeerClosed
				}
				t.FromPeer(p)
			case p, ok := <-keys:
				if !ok {
					keys = nil
					continue
				}
				quit, err := t.FromUser(p)
				if err != nil {
					return fmt.Errorf("send to peer: %w", err)
				}
				if quit {
					log.Info("Quit requested")
					return nil
				}
			case <-ticker.C:
			}

			for i := 0; i < maxTicksPerCycle; i++ {
				if !t.Tick() {
					break
				}
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// pump copies chunks from r to out until r fails or ctx ends. out is
// closed on return. A clean EOF is not an error.
func pump(ctx context.Context, r io.Reader, out chan<- []byte) error {
	defer close(out)
	buf := make([]byte, readChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case out <- chunk:
			case <-ctx.Done():
				return nil
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}
