// File: internal/browser/persona.go
package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/fengtianyu/courtdash/internal/config"
)

// webdriverEvasion hides the single most-checked automation tell. Injected
// on every new document, before any portal script runs.
const webdriverEvasion = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`

// Persona is the device profile presented to the portal. The venue's booking
// site is a WeChat mini-program shell that rejects desktop profiles, so the
// defaults describe a phone.
type Persona struct {
	UserAgent string
	Width     int64
	Height    int64
	Locale    string
}

func personaFromConfig(cfg config.BrowserConfig) Persona {
	return Persona{
		UserAgent: cfg.UserAgent,
		Width:     cfg.ViewportWidth,
		Height:    cfg.ViewportHeight,
		Locale:    cfg.Locale,
	}
}

// Apply returns the CDP actions that install the persona on a session.
func (p Persona) Apply() chromedp.Action {
	return chromedp.Tasks{
		setUserAgent(p),
		setDeviceMetrics(p),
		setLocale(p),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(webdriverEvasion).Do(ctx)
			return err
		}),
	}
}

func setUserAgent(p Persona) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if p.UserAgent == "" {
			return nil
		}
		err := emulation.SetUserAgentOverride(p.UserAgent).
			WithPlatform("iPhone").
			WithAcceptLanguage(p.Locale).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("set user agent override: %w", err)
		}
		return nil
	})
}

func setDeviceMetrics(p Persona) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if p.Width <= 0 || p.Height <= 0 {
			return nil
		}
		err := emulation.SetDeviceMetricsOverride(p.Width, p.Height, 3.0, true).
			WithScreenOrientation(&emulation.ScreenOrientation{
				Type:  emulation.OrientationTypePortraitPrimary,
				Angle: 0,
			}).Do(ctx)
		if err != nil {
			return fmt.Errorf("set device metrics override: %w", err)
		}
		if err := emulation.SetTouchEmulationEnabled(true).WithMaxTouchPoints(5).Do(ctx); err != nil {
			return fmt.Errorf("set touch emulation: %w", err)
		}
		return nil
	})
}

func setLocale(p Persona) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if p.Locale == "" {
			return nil
		}
		locale := strings.ReplaceAll(p.Locale, "_", "-")
		if err := emulation.SetLocaleOverride().WithLocale(locale).Do(ctx); err != nil {
			return fmt.Errorf("set locale override: %w", err)
		}
		return nil
	})
}
