package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/kandev/xferterm/internal/common/config"
	"github.com/kandev/xferterm/internal/common/logger"
	"github.com/kandev/xferterm/internal/events/bus"
	"github.com/kandev/xferterm/internal/history"
	"github.com/kandev/xferterm/internal/notify"
	"github.com/kandev/xferterm/internal/transfer"
)

// services holds everything that observes transfer sessions.
type services struct {
	title    *notify.Title
	notifier notify.Multi
	cleanups []func()
}

func (s *services) Close() {
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		s.cleanups[i]()
	}
	s.cleanups = nil
}

// provideServices builds the window title, the event bus publisher and,
// when enabled, the history recorder. A history database that cannot be
// opened only disables history.
func provideServices(cfg *config.Config, screen io.Writer, log *logger.Logger) (*services, error) {
	s := &services{title: notify.NewTitle(screen, windowTitle(cfg))}
	s.notifier = append(s.notifier, s.title)

	eventBus, err := provideEventBus(cfg, log)
	if err != nil {
		return nil, err
	}
	s.cleanups = append(s.cleanups, eventBus.Close)
	s.notifier = append(s.notifier, notify.NewBusPublisher(eventBus, cfg.Events.Subject, clientName(), log))

	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			log.Warn("Transfer history disabled", zap.String("path", cfg.History.Path), zap.Error(err))
		} else {
			s.cleanups = append(s.cleanups, func() { _ = store.Close() })
			s.notifier = append(s.notifier, notify.NewHistoryRecorder(store, log))
		}
	}
	return s, nil
}

// provideEventBus connects to NATS when configured and otherwise uses the
// in-memory bus, where session events are only logged.
func provideEventBus(cfg *config.Config, log *logger.Logger) (bus.EventBus, error) {
	if cfg.Events.NATSURL != "" {
		eb, err := bus.NewNATSEventBus(cfg.Events.NATSURL, clientName(), log)
		if err != nil {
			return nil, err
		}
		return eb, nil
	}

	eb := bus.NewMemoryEventBus(log)
	_, err := eb.Subscribe(cfg.Events.Subject+".>", func(_ context.Context, e *bus.Event) error {
		log.Debug("Session event", zap.String("type", e.Type), zap.Any("data", e.Data))
		return nil
	})
	if err != nil {
		eb.Close()
		return nil, err
	}
	return eb, nil
}

func windowTitle(cfg *config.Config) string {
	conn := cfg.Connection
	switch conn.Kind {
	case "pty":
		return cfg.Terminal.Title
	case "serial":
		return fmt.Sprintf("%s - %s", conn.Device, cfg.Terminal.Title)
	default:
		return fmt.Sprintf("%s - %s", conn.Host, cfg.Terminal.Title)
	}
}

func clientName() string {
	host, err := os.Hostname()
	if err != nil {
		return "xferterm"
	}
	return "xferterm@" + host
}

var _ transfer.Notifier = notify.Multi(nil)
