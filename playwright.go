package tendercrawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// GetPlaywright installs the driver when needed and starts playwright.
func (app *Crawler) GetPlaywright() (*playwright.Playwright, error) {
	if app.engine.ForceInstallPlaywright || !app.isLocalEnv {
		app.Logger.Info("Force Installing Playwright!")
		err := playwright.Install(&playwright.RunOptions{Browsers: []string{app.engine.BrowserType}})
		if err != nil {
			return nil, err
		}
	}
	return playwright.Run()
}

type pwBrowser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	engine  *Engine
}

// launchPlaywright starts a browser with a Korean desktop context.
func launchPlaywright(_ context.Context, app *Crawler) (Browser, error) {
	pw, err := app.GetPlaywright()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize playwright: %w", err)
	}

	launchOptions := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(app.isHeadless()),
	}
	if len(app.engine.Args) > 0 {
		launchOptions.Args = app.engine.Args
	}

	var browser playwright.Browser
	switch app.engine.BrowserType {
	case "chromium":
		browser, err = pw.Chromium.Launch(launchOptions)
	case "firefox":
		browser, err = pw.Firefox.Launch(launchOptions)
	case "webkit":
		browser, err = pw.WebKit.Launch(launchOptions)
	default:
		_ = pw.Stop()
		return nil, fmt.Errorf("unsupported browser type: %s", app.engine.BrowserType)
	}
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browserContext, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:       playwright.String(app.engine.UserAgent),
		Viewport:        &playwright.Size{Width: app.engine.ViewportWidth, Height: app.engine.ViewportHeight},
		Locale:          playwright.String(app.engine.Locale),
		TimezoneId:      playwright.String(app.engine.TimezoneID),
		AcceptDownloads: playwright.Bool(true),
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("could not create new browser context: %w", err)
	}

	return &pwBrowser{pw: pw, browser: browser, context: browserContext, engine: app.engine}, nil
}

func (b *pwBrowser) NewPage(_ context.Context) (Page, error) {
	page, err := b.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return &pwPage{page: page}, nil
}

func (b *pwBrowser) Close() error {
	var errs []error
	if err := b.context.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := b.browser.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := b.pw.Stop(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

type pwPage struct {
	page playwright.Page
}

func (p *pwPage) locator(loc Locator) playwright.Locator {
	if loc.HasText != "" {
		return p.page.Locator(loc.Selector, playwright.PageLocatorOptions{HasText: loc.HasText})
	}
	return p.page.Locator(loc.Selector)
}

func (p *pwPage) Goto(url string, timeout time.Duration) error {
	res, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return err
	}
	if res != nil && !res.Ok() {
		return fmt.Errorf("failed to load page: %d %s", res.Status(), res.StatusText())
	}
	return nil
}

func (p *pwPage) Evaluate(script string) (interface{}, error) {
	return p.page.Evaluate(script)
}

func (p *pwPage) Count(loc Locator) (int, error) {
	return p.locator(loc).Count()
}

func (p *pwPage) Click(loc Locator, nth int) error {
	return p.locator(loc).Nth(nth).Click()
}

func (p *pwPage) Fill(loc Locator, nth int, value string) error {
	return p.locator(loc).Nth(nth).Fill(value)
}

func (p *pwPage) Type(loc Locator, nth int, text string, delay time.Duration) error {
	el := p.locator(loc).Nth(nth)
	if err := el.Clear(); err != nil {
		return err
	}
	if err := el.Click(); err != nil {
		return err
	}
	return el.PressSequentially(text, playwright.LocatorPressSequentiallyOptions{
		Delay: playwright.Float(float64(delay.Milliseconds())),
	})
}

func (p *pwPage) WaitHidden(loc Locator, timeout time.Duration) error {
	err := p.locator(loc).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateHidden,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %s", ErrWaitTimeout, loc.Name)
	}
	return err
}

func (p *pwPage) Content() (string, error) {
	return p.page.Content()
}

func (p *pwPage) Screenshot(path string) error {
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}

func (p *pwPage) Close() error {
	return p.page.Close()
}
