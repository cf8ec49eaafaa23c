// Package panelshell opens the consumer panel in a browser driven over the
// DevTools protocol.
package panelshell

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"pkt.systems/pslog"
	"pkt.systems/webchat/internal/logx"
	"pkt.systems/webchat/schema"
)

// ErrClosed is returned when opening through a closed browser.
var ErrClosed = errors.New("panel browser closed")

const defaultNavigateTimeout = 10 * time.Second

// Options configures the panel browser.
type Options struct {
	// PanelURL is the page the consumer panel lives at, token included.
	PanelURL        string
	Headless        bool
	ExecPath        string
	NavigateTimeout time.Duration
	Logger          pslog.Logger
}

// Browser implements core.ConsumerOpener by keeping one tab on the panel page.
type Browser struct {
	opts Options
	log  pslog.Logger

	mu          sync.Mutex
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	opens       int
	closed      bool
}

// New validates options. The browser process starts on the first open.
func New(opts Options) (*Browser, error) {
	raw := strings.TrimSpace(opts.PanelURL)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("panel url %q must be an absolute http(s) url", opts.PanelURL)
	}
	opts.PanelURL = raw
	if opts.NavigateTimeout <= 0 {
		opts.NavigateTimeout = defaultNavigateTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Browser{opts: opts, log: logger}, nil
}

// OpenConsumer brings the panel tab up, starting the browser when needed, and
// reloads the page so the panel reconnects and reports ready.
func (b *Browser) OpenConsumer(ctx context.Context, req schema.OpenRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	log := logx.WithProducer(ctx, req.Producer).With("attempt", req.Attempt)
	if b.tabCtx == nil || b.tabCtx.Err() != nil {
		if err := b.startLocked(); err != nil {
			log.Warn("panelshell start failed", "err", err)
			return err
		}
		log.Info("panelshell browser started", "headless", b.opts.Headless)
	}
	navCtx, cancel := context.WithTimeout(b.tabCtx, b.opts.NavigateTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(navCtx,
		chromedp.Navigate(b.opts.PanelURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		log.Warn("panelshell navigate failed", "err", err)
		return fmt.Errorf("open panel: %w", err)
	}
	b.opens++
	log.Info("panelshell panel opened", "opens", b.opens)
	return nil
}

// Opens reports how many times the panel page was loaded.
func (b *Browser) Opens() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opens
}

// Close shuts the browser down. Later opens fail with ErrClosed.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.stopLocked()
	b.log.Info("panelshell closed")
	return nil
}

func (b *Browser) startLocked() error {
	b.stopLocked()
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	if b.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.opts.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	// The first Run allocates the browser; it must not carry a deadline or
	// the browser dies with it.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return fmt.Errorf("start browser: %w", err)
	}
	b.allocCancel = allocCancel
	b.tabCtx = tabCtx
	b.tabCancel = tabCancel
	return nil
}

func (b *Browser) stopLocked() {
	if b.tabCancel != nil {
		b.tabCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	b.tabCtx = nil
	b.tabCancel = nil
	b.allocCancel = nil
}
