// Package chrome implements scraper.PageDriver on a real Chrome
// instance via chromedp.
package chrome

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"attractions-scraper/config"
	"attractions-scraper/scraper"
)

// opTimeout bounds element-level CDP calls that should already have the
// node resolved.
const opTimeout = 5 * time.Second

var errInvalidHandle = errors.New("chrome: handle is not a DOM node")

// Removes the common automation fingerprints before any page script
// runs in a fresh document.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
Object.defineProperty(navigator, 'languages', { get: () => ['he-IL', 'he', 'en-US', 'en'] });
Object.defineProperty(navigator, 'platform', { get: () => 'Win32' });
window.chrome = { runtime: {} };
`

// Session owns one browser and the single tab a job scrapes through.
// Refresh tears the tab down and opens a fresh one with new
// fingerprint jitter.
type Session struct {
	cfg *config.Config
	log *zap.Logger
	rng *rand.Rand

	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
}

// NewSession launches Chrome and opens the scraping tab.
func NewSession(cfg *config.Config, log *zap.Logger) (*Session, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	chromeBin := findChromeBinary(cfg.Browser.ChromeBin)
	log.Info("launching browser", zap.String("binary", chromeBin), zap.Bool("headless", cfg.Browser.Headless))

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Browser.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", cfg.Browser.Locale),
		chromedp.Flag("accept-lang", cfg.Browser.AcceptLanguage),
		chromedp.UserAgent(cfg.Browser.UserAgents[rng.Intn(len(cfg.Browser.UserAgents))]),
		chromedp.WindowSize(
			cfg.Browser.ViewportWidth+rng.Intn(100)-50,
			cfg.Browser.ViewportHeight+rng.Intn(100)-50,
		),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	s := &Session{
		cfg:         cfg,
		log:         log,
		rng:         rng,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
	}
	if err := s.newTab(); err != nil {
		allocCancel()
		return nil, err
	}
	return s, nil
}

func (s *Session) newTab() error {
	ctx, cancel := chromedp.NewContext(s.allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))

	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if _, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx); err != nil {
			return err
		}
		return emulation.SetTimezoneOverride(s.cfg.Browser.Timezone).Do(ctx)
	}))
	if err != nil {
		cancel()
		return fmt.Errorf("chrome: open tab: %w", err)
	}

	s.tabCtx, s.tabCancel = ctx, cancel
	return nil
}

// Refresh replaces the scraping tab. Called periodically by the job
// runner to shed long-session state.
func (s *Session) Refresh() error {
	s.log.Info("refreshing browser session")
	if s.tabCancel != nil {
		s.tabCancel()
	}
	return s.newTab()
}

// Close shuts the browser down.
func (s *Session) Close() {
	if s.tabCancel != nil {
		s.tabCancel()
	}
	s.allocCancel()
}

// run executes chromedp actions against the session tab, bounded by
// timeout and cancelled early if the caller's context ends.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads the URL and nudges the viewport like a human reader.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.log.Info("navigating", zap.String("url", url))

	err := s.run(ctx, s.cfg.PageLoadTimeout(),
		chromedp.Navigate(url),
		chromedp.Sleep(time.Duration(1500+s.rng.Intn(1500))*time.Millisecond),
	)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", scraper.ErrNavigation, url, err)
	}

	s.simulateScroll(ctx)
	return nil
}

func (s *Session) simulateScroll(ctx context.Context) {
	down := 100 + s.rng.Intn(400)
	up := 50 + s.rng.Intn(150)
	err := s.run(ctx, opTimeout,
		chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", down), nil),
		chromedp.Sleep(time.Duration(500+s.rng.Intn(1000))*time.Millisecond),
		chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, -%d)", up), nil),
	)
	if err != nil {
		s.log.Debug("scroll simulation failed", zap.Error(err))
	}
}

// WaitForSelector blocks up to timeout for the first matching node.
func (s *Session) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (scraper.Handle, error) {
	var nodes []*cdp.Node
	err := s.run(ctx, timeout,
		chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.AtLeast(1)))
	if err != nil || len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", scraper.ErrElementNotFound, selector)
	}
	return nodes[0], nil
}

// GetText returns the node's rendered text.
func (s *Session) GetText(ctx context.Context, h scraper.Handle) (string, error) {
	node, ok := h.(*cdp.Node)
	if !ok {
		return "", errInvalidHandle
	}
	var text string
	err := s.run(ctx, opTimeout,
		chromedp.Text([]cdp.NodeID{node.NodeID}, &text, chromedp.ByNodeID))
	if err != nil {
		return "", fmt.Errorf("chrome: text: %w", err)
	}
	return text, nil
}

// GetAttribute returns the named attribute, "" when the node lacks it.
func (s *Session) GetAttribute(ctx context.Context, h scraper.Handle, name string) (string, error) {
	node, ok := h.(*cdp.Node)
	if !ok {
		return "", errInvalidHandle
	}
	var value string
	var present bool
	err := s.run(ctx, opTimeout,
		chromedp.AttributeValue([]cdp.NodeID{node.NodeID}, name, &value, &present, chromedp.ByNodeID))
	if err != nil {
		return "", fmt.Errorf("chrome: attribute %s: %w", name, err)
	}
	if !present {
		return "", nil
	}
	return value, nil
}

// Click dispatches a click on the node.
func (s *Session) Click(ctx context.Context, h scraper.Handle) error {
	node, ok := h.(*cdp.Node)
	if !ok {
		return errInvalidHandle
	}
	err := s.run(ctx, opTimeout,
		chromedp.Click([]cdp.NodeID{node.NodeID}, chromedp.ByNodeID))
	if err != nil {
		return fmt.Errorf("chrome: click: %w", err)
	}
	return nil
}

// QueryAll returns every node currently matching the selector.
func (s *Session) QueryAll(ctx context.Context, selector string) ([]scraper.Handle, error) {
	var nodes []*cdp.Node
	err := s.run(ctx, opTimeout,
		chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return nil, fmt.Errorf("chrome: query %s: %w", selector, err)
	}
	handles := make([]scraper.Handle, len(nodes))
	for i, n := range nodes {
		handles[i] = n
	}
	return handles, nil
}

// CurrentURL returns the tab's address after any redirects.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, opTimeout, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("chrome: location: %w", err)
	}
	return url, nil
}

// Screenshot captures the full page to path.
func (s *Session) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := s.run(ctx, s.cfg.PageLoadTimeout(), chromedp.FullScreenshot(&buf, 90)); err != nil {
		return fmt.Errorf("chrome: screenshot: %w", err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("chrome: write screenshot: %w", err)
	}
	s.log.Info("screenshot saved", zap.String("path", path))
	return nil
}

// findChromeBinary locates the Chrome/Chromium binary.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
