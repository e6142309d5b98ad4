// File: internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/fengtianyu/courtdash/internal/config"
	"github.com/fengtianyu/courtdash/internal/engine"
)

// navigateTimeout bounds full page loads, which on the venue portal include
// a slow mini-program bootstrap.
const navigateTimeout = 45 * time.Second

var _ engine.Surface = (*Session)(nil)

// Session is one isolated browser tab driven over CDP. It implements the
// engine's Surface seam.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// newSession creates the tab, starts the browser if this is the first tab,
// and applies the mobile persona before any navigation happens.
func newSession(ctx context.Context, allocCtx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	id := uuid.New().String()
	sessionCtx, cancel := chromedp.NewContext(allocCtx)

	s := &Session{
		id:     id,
		ctx:    sessionCtx,
		cancel: cancel,
		logger: logger.With(zap.String("session_id", id[:8])),
	}

	// Persona overrides must land before the first document loads, or the
	// portal sees the desktop profile on its very first request.
	if err := s.run(ctx, navigateTimeout, personaFromConfig(cfg).Apply()); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to apply browser persona: %w", err)
	}

	s.logger.Info("Browser session initialized")
	return s, nil
}

// ID returns the unique identifier for this session.
func (s *Session) ID() string { return s.id }

// Close tears the tab down. Safe to call more than once.
func (s *Session) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()
	s.logger.Debug("Browser session closed")
	return nil
}

// run executes actions against the session, bounded by both the caller's
// context and the given timeout.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	tctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(tctx, actions...); err != nil {
		// Prefer the caller's cancellation cause over the derived one.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// Navigate loads the URL and waits for the document body to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating", zap.String("url", url))
	err := s.run(ctx, navigateTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// WaitVisible blocks until the target is visible or the timeout elapses.
func (s *Session) WaitVisible(ctx context.Context, target engine.Locator, timeout time.Duration) error {
	var err error
	if target.Kind == engine.ByTextRegex {
		var found bool
		err = s.run(ctx, timeout, chromedp.PollFunction(
			regexProbeFunc(target.Value), &found,
			chromedp.WithPollingTimeout(timeout)))
	} else {
		sel, opt := toQuery(target)
		err = s.run(ctx, timeout, chromedp.WaitVisible(sel, opt))
	}
	if err != nil {
		return fmt.Errorf("wait for %s: %w", target, err)
	}
	return nil
}

// Click clicks the target. Regex text targets are dispatched through the
// page's own click() since XPath 1.0 cannot express them.
func (s *Session) Click(ctx context.Context, target engine.Locator, timeout time.Duration) error {
	var err error
	if target.Kind == engine.ByTextRegex {
		var clicked bool
		err = s.run(ctx, timeout,
			chromedp.Evaluate(regexClickExpr(target.Value), &clicked))
		if err == nil && !clicked {
			err = fmt.Errorf("no element matched")
		}
	} else {
		sel, opt := toQuery(target)
		err = s.run(ctx, timeout, chromedp.Click(sel, opt, chromedp.NodeVisible))
	}
	if err != nil {
		return fmt.Errorf("click %s: %w", target, err)
	}
	return nil
}

// Fill clears the targeted input and types the value into it.
func (s *Session) Fill(ctx context.Context, target engine.Locator, value string, timeout time.Duration) error {
	sel, opt := toQuery(target)
	err := s.run(ctx, timeout,
		chromedp.WaitVisible(sel, opt),
		chromedp.Clear(sel, opt),
		chromedp.SendKeys(sel, value, opt),
	)
	if err != nil {
		return fmt.Errorf("fill %s: %w", target, err)
	}
	return nil
}

// FindText polls the page's rendered text for the regular expression and
// returns the matched fragment.
func (s *Session) FindText(ctx context.Context, pattern string, timeout time.Duration) (string, error) {
	var matched string
	err := s.run(ctx, timeout, chromedp.PollFunction(
		findTextFunc(pattern), &matched,
		chromedp.WithPollingTimeout(timeout)))
	if err != nil {
		return "", fmt.Errorf("no text matching %q within %v: %w", pattern, timeout, err)
	}
	return matched, nil
}

// Screenshot captures a full-page screenshot.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, navigateTimeout, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}

// toQuery maps a locator onto a chromedp selector. Text locators become
// XPath, which DOM.performSearch handles natively.
func toQuery(l engine.Locator) (string, chromedp.QueryOption) {
	switch l.Kind {
	case engine.ByXPath:
		return l.Value, chromedp.BySearch
	case engine.ByText:
		return textXPath(l.Value), chromedp.BySearch
	default:
		return l.Value, chromedp.ByQuery
	}
}

// textXPath builds an exact-text XPath for the uni-app markup, where most
// clickable things are custom elements with a single text node.
func textXPath(text string) string {
	return "//*[normalize-space(text())=" + xpathLiteral(text) + "]"
}

// xpathLiteral quotes a string for embedding in XPath 1.0, which has no
// escape sequences inside string literals.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	for i, p := range parts {
		parts[i] = `"` + p + `"`
	}
	return "concat(" + strings.Join(parts, `,'"',`) + ")"
}

// regexProbeFunc returns a JS function polling for the first leaf element
// whose trimmed text matches the pattern.
func regexProbeFunc(pattern string) string {
	return fmt.Sprintf(`function() {
	const re = new RegExp(%s);
	const walker = document.createTreeWalker(document.body, NodeFilter.SHOW_ELEMENT);
	let node;
	while ((node = walker.nextNode())) {
		if (node.childElementCount === 0 && re.test((node.textContent || '').trim())) {
			return true;
		}
	}
	return false;
}`, jsLiteral(pattern))
}

// regexClickExpr returns a JS expression that clicks the first leaf element
// whose trimmed text matches the pattern, reporting whether it found one.
func regexClickExpr(pattern string) string {
	return fmt.Sprintf(`(() => {
	const re = new RegExp(%s);
	const walker = document.createTreeWalker(document.body, NodeFilter.SHOW_ELEMENT);
	let node;
	while ((node = walker.nextNode())) {
		if (node.childElementCount === 0 && re.test((node.textContent || '').trim())) {
			node.scrollIntoView({block: 'center'});
			node.click();
			return true;
		}
	}
	return false;
})()`, jsLiteral(pattern))
}

// jsLiteral renders s as a JS string literal; JSON string encoding is a
// strict subset of it.
func jsLiteral(s string) string {
	b, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(s)
	if err != nil {
		// Unreachable for a plain string input.
		return `""`
	}
	return string(b)
}

// findTextFunc returns a JS polling function matching the pattern against
// the page's rendered text; the poll resolves to the matched fragment.
func findTextFunc(pattern string) string {
	return fmt.Sprintf(`function() {
	const text = document.body ? document.body.innerText : '';
	const m = text.match(new RegExp(%s));
	return m ? m[0] : false;
}`, jsLiteral(pattern))
}
