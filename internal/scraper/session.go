// Package scraper collects news articles from the exchange portal. The
// portal renders its listing with JavaScript, so a managed headless Chrome
// (rod) drives listing and article pages; a plain HTTP fetcher covers
// attachments and static fallbacks.
package scraper

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// SessionConfig holds browser settings for a scraping session.
type SessionConfig struct {
	Headless          bool
	ViewportWidth     int
	ViewportHeight    int
	NavigationTimeout time.Duration
	UserDataDir       string
}

// DefaultSessionConfig returns sensible defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Headless:          true,
		ViewportWidth:     1920,
		ViewportHeight:    1080,
		NavigationTimeout: 30 * time.Second,
	}
}

// Session owns one launched Chrome instance.
type Session struct {
	cfg      SessionConfig
	launcher *launcher.Launcher
	browser  *rod.Browser
	logger   *zap.Logger
}

// NewSession creates an unstarted session.
func NewSession(cfg SessionConfig, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ViewportWidth == 0 {
		cfg.ViewportWidth = 1920
	}
	if cfg.ViewportHeight == 0 {
		cfg.ViewportHeight = 1080
	}
	if cfg.NavigationTimeout == 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	return &Session{cfg: cfg, logger: logger}
}

// Start launches Chrome and connects the DevTools client.
func (s *Session) Start() error {
	l := launcher.New().Headless(s.cfg.Headless)
	if s.cfg.UserDataDir != "" {
		l = l.UserDataDir(s.cfg.UserDataDir)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	s.launcher = l

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	s.browser = browser

	s.logger.Debug("browser session started",
		zap.Bool("headless", s.cfg.Headless),
		zap.String("control_url", controlURL))
	return nil
}

// OpenPage navigates a fresh tab to url and waits for the load event. The
// page carries the session's navigation timeout.
func (s *Session) OpenPage(url string) (*rod.Page, error) {
	if s.browser == nil {
		return nil, fmt.Errorf("session not started")
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page = page.Timeout(s.cfg.NavigationTimeout)

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.cfg.ViewportWidth,
		Height:            s.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	if err := page.Navigate(url); err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to load %s: %w", url, err)
	}
	return page, nil
}

// Close shuts the browser down and cleans up the launcher's user data dir.
func (s *Session) Close() {
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			s.logger.Debug("browser close", zap.Error(err))
		}
		s.browser = nil
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
		s.launcher = nil
	}
}
