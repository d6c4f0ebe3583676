package rasterizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

// ChromeConfig holds headless Chrome settings.
type ChromeConfig struct {
	// Bin is the Chrome binary. Empty lets rod find or download one.
	Bin string
	// DebuggerURL connects to an already running Chrome instead of launching.
	DebuggerURL string
	Headless    bool
	NoSandbox   bool
	// Flags are extra launch flags such as "--disable-gpu".
	Flags          []string
	ViewportWidth  int
	ViewportHeight int
	LoadTimeout    time.Duration
}

// DefaultChromeConfig returns settings sized for an A4 sheet.
func DefaultChromeConfig() ChromeConfig {
	return ChromeConfig{
		Headless:       true,
		ViewportWidth:  1024,
		ViewportHeight: 1200,
		LoadTimeout:    30 * time.Second,
	}
}

// Chrome rasterizes the printable region by loading it in headless Chrome and
// screenshotting the matching element.
type Chrome struct {
	cfg ChromeConfig

	mu      sync.Mutex
	browser *rod.Browser
}

// NewChrome returns a Chrome rasterizer. The browser starts on first use.
func NewChrome(cfg ChromeConfig) *Chrome {
	return &Chrome{cfg: cfg}
}

func (c *Chrome) ensureStarted() (*rod.Browser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser != nil {
		if _, err := c.browser.Version(); err == nil {
			return c.browser, nil
		}
		slog.Warn("Stale Chrome connection detected, reconnecting")
		_ = c.browser.Close()
		c.browser = nil
	}

	controlURL := c.cfg.DebuggerURL
	if controlURL == "" {
		l := launcher.New().Headless(c.cfg.Headless).NoSandbox(c.cfg.NoSandbox)
		if c.cfg.Bin != "" {
			l = l.Bin(c.cfg.Bin)
		}
		for _, raw := range c.cfg.Flags {
			name, val, hasVal := strings.Cut(strings.TrimLeft(raw, "-"), "=")
			if hasVal {
				l = l.Set(flags.Flag(name), val)
			} else {
				l = l.Set(flags.Flag(name))
			}
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = u
	}

	// The browser outlives the request that started it.
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	slog.Info("Chrome rasterizer connected", "control_url", controlURL)

	c.browser = browser
	return browser, nil
}

// Rasterize opens req.URL in a fresh page at req.Scale device pixels per CSS
// pixel and captures the element matching req.Selector.
func (c *Chrome) Rasterize(ctx context.Context, req Request) (image.Image, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if req.URL == "" || req.Selector == "" {
		return nil, errors.New("chrome rasterizer needs a URL and a selector")
	}

	browser, err := c.ensureStarted()
	if err != nil {
		return nil, err
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer page.Close()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             c.cfg.ViewportWidth,
		Height:            c.cfg.ViewportHeight,
		DeviceScaleFactor: req.Scale,
	}); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	opaque := 1.0
	bg := req.Background
	if err := (proto.EmulationSetDefaultBackgroundColorOverride{
		Color: &proto.DOMRGBA{R: int(bg.R), G: int(bg.G), B: int(bg.B), A: &opaque},
	}).Call(page); err != nil {
		return nil, fmt.Errorf("set background: %w", err)
	}

	timed := page.Timeout(c.cfg.LoadTimeout)
	if err := timed.Navigate(req.URL); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	if err := timed.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait for load: %w", err)
	}

	el, err := timed.Element(req.Selector)
	if err != nil {
		return nil, fmt.Errorf("element %s not found: %w", req.Selector, err)
	}

	shot, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 100)
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}

	img, err := png.Decode(bytes.NewReader(shot))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}

// Close shuts the browser down.
func (c *Chrome) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browser == nil {
		return nil
	}
	err := c.browser.Close()
	c.browser = nil
	return err
}
