package tendercrawler

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

const rodPollInterval = 200 * time.Millisecond

type rodBrowser struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	engine   *Engine
}

// launchRod starts a local Chrome through the rod launcher.
func launchRod(ctx context.Context, app *Crawler) (Browser, error) {
	headless := app.isHeadless()
	l := launcher.New().Context(ctx).Headless(headless).Devtools(!headless).NoSandbox(true)
	for _, arg := range app.engine.Args {
		name, value, _ := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if value != "" {
			l = l.Set(flags.Flag(name), value)
		} else {
			l = l.Set(flags.Flag(name))
		}
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect browser: %w", err)
	}
	return &rodBrowser{launcher: l, browser: browser, engine: app.engine}, nil
}

func (b *rodBrowser) NewPage(_ context.Context) (Page, error) {
	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      b.engine.UserAgent,
		AcceptLanguage: b.engine.Locale,
	})
	if err != nil {
		return nil, fmt.Errorf("error setting user agent: %w", err)
	}
	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             b.engine.ViewportWidth,
		Height:            b.engine.ViewportHeight,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("error setting viewport: %w", err)
	}
	if err := (proto.EmulationSetTimezoneOverride{TimezoneID: b.engine.TimezoneID}).Call(page); err != nil {
		return nil, fmt.Errorf("error setting timezone: %w", err)
	}
	if err := (proto.EmulationSetLocaleOverride{Locale: b.engine.Locale}).Call(page); err != nil {
		return nil, fmt.Errorf("error setting locale: %w", err)
	}

	return &rodPage{page: page}, nil
}

func (b *rodBrowser) Close() error {
	err := b.browser.Close()
	b.launcher.Kill()
	return err
}

type rodPage struct {
	page *rod.Page
}

// elements returns the matches of loc, keeping those whose text contains HasText.
func (p *rodPage) elements(loc Locator) (rod.Elements, error) {
	els, err := p.page.Elements(loc.Selector)
	if err != nil {
		return nil, err
	}
	if loc.HasText == "" {
		return els, nil
	}
	var matched rod.Elements
	for _, el := range els {
		text, err := el.Text()
		if err != nil {
			continue
		}
		if strings.Contains(text, loc.HasText) {
			matched = append(matched, el)
		}
	}
	return matched, nil
}

func (p *rodPage) nth(loc Locator, nth int) (*rod.Element, error) {
	els, err := p.elements(loc)
	if err != nil {
		return nil, err
	}
	if nth >= len(els) {
		return nil, fmt.Errorf("%w: %s #%d not found", ErrTransientUI, loc.Name, nth)
	}
	return els[nth], nil
}

func (p *rodPage) Goto(url string, timeout time.Duration) error {
	page := p.page.Timeout(timeout)
	defer page.CancelTimeout()

	e := proto.NetworkResponseReceived{}
	wait := page.WaitEvent(&e)
	if err := page.Navigate(url); err != nil {
		return err
	}
	wait()
	if e.Response != nil && e.Response.Status >= 400 {
		return fmt.Errorf("failed to load page: %d %s", e.Response.Status, e.Response.StatusText)
	}
	return page.WaitLoad()
}

func (p *rodPage) Evaluate(script string) (interface{}, error) {
	res, err := p.page.Eval(script)
	if err != nil {
		return nil, err
	}
	return res.Value.Val(), nil
}

func (p *rodPage) Count(loc Locator) (int, error) {
	els, err := p.elements(loc)
	if err != nil {
		return 0, err
	}
	return len(els), nil
}

func (p *rodPage) Click(loc Locator, nth int) error {
	el, err := p.nth(loc, nth)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) Fill(loc Locator, nth int, value string) error {
	el, err := p.nth(loc, nth)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(value)
}

func (p *rodPage) Type(loc Locator, nth int, text string, delay time.Duration) error {
	el, err := p.nth(loc, nth)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return err
	}
	if err := el.Input(""); err != nil {
		return err
	}
	for _, r := range text {
		if err := el.Input(string(r)); err != nil {
			return err
		}
		time.Sleep(delay)
	}
	return nil
}

func (p *rodPage) WaitHidden(loc Locator, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		visible, err := p.anyVisible(loc)
		if err != nil {
			return err
		}
		if !visible {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s", ErrWaitTimeout, loc.Name)
		}
		time.Sleep(rodPollInterval)
	}
}

func (p *rodPage) anyVisible(loc Locator) (bool, error) {
	els, err := p.elements(loc)
	if err != nil {
		return false, err
	}
	for _, el := range els {
		if ok, err := el.Visible(); err == nil && ok {
			return true, nil
		}
	}
	return false, nil
}

func (p *rodPage) Content() (string, error) {
	return p.page.HTML()
}

func (p *rodPage) Screenshot(path string) error {
	data, err := p.page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (p *rodPage) Close() error {
	return p.page.Close()
}
