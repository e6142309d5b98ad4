// File: internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fengtianyu/courtdash/internal/config"
)

// Manager owns the Chrome process allocator and the sessions (tabs) opened
// against it. Sessions must be closed before the allocator is cancelled or
// Chrome is killed out from under them.
type Manager struct {
	cfg         config.BrowserConfig
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// NewManager builds the exec allocator from the browser configuration. The
// Chrome process itself is only started lazily by the first session.
func NewManager(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) *Manager {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, execOptions(cfg)...)
	return &Manager{
		cfg:         cfg,
		logger:      logger.Named("browser"),
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		sessions:    make(map[string]*Session),
	}
}

// execOptions translates the application config into chromedp allocator
// options.
func execOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		// Required on hardened systems where the Chrome sandbox cannot
		// start ("Permission denied").
		chromedp.NoSandbox,
		// Recommended for stability in containers, where /dev/shm is tiny.
		chromedp.Flag("disable-dev-shm-usage", true),
		// Without this Chrome advertises itself through navigator.webdriver
		// and the portal's bot checks trip immediately.
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)

	// The chromedp defaults include Headless; a watched booking run wants a
	// visible window, so headful mode must turn it back off.
	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cfg.IgnoreTLSErrors {
		opts = append(opts, chromedp.IgnoreCertErrors)
	}

	// Additional flags from the config file's 'args' slice.
	for _, arg := range cfg.Args {
		if !strings.Contains(arg, "=") {
			opts = append(opts, chromedp.Flag(strings.TrimPrefix(arg, "--"), true))
			continue
		}
		parts := strings.SplitN(arg, "=", 2)
		opts = append(opts, chromedp.Flag(strings.TrimPrefix(parts[0], "--"), parts[1]))
	}
	return opts
}

// NewSession opens a fresh tab, applies the mobile persona to it and
// registers it with the manager.
func (m *Manager) NewSession(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, fmt.Errorf("browser manager is shut down")
	}
	m.mu.Unlock()

	session, err := newSession(ctx, m.allocCtx, m.cfg, m.logger)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[session.ID()] = session
	m.mu.Unlock()

	return session, nil
}

// Shutdown closes every open session concurrently, then tears down the
// allocator which kills the Chrome process.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = nil
	m.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, s := range sessions {
		g.Go(func() error { return s.Close(ctx) })
	}
	err := g.Wait()

	m.allocCancel()
	if err != nil {
		return fmt.Errorf("session shutdown: %w", err)
	}
	m.logger.Info("Browser manager shut down")
	return nil
}
