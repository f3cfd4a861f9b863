package tendercrawler

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Browser is a launched browser session. Close releases everything it opened.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is the small set of page primitives the crawl controller drives.
type Page interface {
	Goto(url string, timeout time.Duration) error
	Evaluate(script string) (interface{}, error)
	Count(loc Locator) (int, error)
	Click(loc Locator, nth int) error
	Fill(loc Locator, nth int, value string) error
	// Type clears the element then types text with delay between key presses.
	Type(loc Locator, nth int, text string, delay time.Duration) error
	// WaitHidden returns ErrWaitTimeout when loc is still visible after timeout.
	WaitHidden(loc Locator, timeout time.Duration) error
	Content() (string, error)
	Screenshot(path string) error
	Close() error
}

// BrowserLauncher starts a browser session for an engine configuration.
type BrowserLauncher func(ctx context.Context, app *Crawler) (Browser, error)

// firstPresent returns the first locator of the chain matching at least one element.
func firstPresent(page Page, chain []Locator) (Locator, error) {
	for _, loc := range chain {
		n, err := page.Count(loc)
		if err != nil {
			continue
		}
		if n > 0 {
			return loc, nil
		}
	}
	names := make([]string, 0, len(chain))
	for _, loc := range chain {
		names = append(names, loc.Name)
	}
	return Locator{}, fmt.Errorf("%w: none of %v present", ErrTransientUI, names)
}

// waitForLoading waits for the loading mask to disappear. A timeout counts as settled.
func (app *Crawler) waitForLoading(page Page) {
	err := page.WaitHidden(app.selectors.LoadingMask, app.engine.LoadingTimeout)
	switch {
	case err == nil:
	case errors.Is(err, ErrWaitTimeout):
		app.Logger.Debug("Loading mask still visible after %s, continuing", app.engine.LoadingTimeout)
	default:
		app.Logger.Debug("Loading wait failed: %v", err)
	}
}

// settle waits for a fixed delay unless ctx ends first.
func settle(ctx context.Context, d time.Duration) error {
	return sleepContext(ctx, d)
}
