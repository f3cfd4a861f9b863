package tendercrawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/temoto/robotstxt"
)

// bootstrap runs the checks that must pass before a browser is launched.
func (app *Crawler) bootstrap(ctx context.Context) error {
	if !app.engine.CheckRobotsTxt {
		return nil
	}
	app.Logger.Info("Checking robots.txt")
	if !checkRobotsTxt(ctx, app.httpClient, app.BaseUrl, app.SearchUrl, app.engine.UserAgent) {
		app.Logger.Summary("Crawling is disallowed by robots.txt")
		return ErrRobotsDisallowed
	}
	return nil
}

// checkRobotsTxt reports whether userAgent may fetch target. Missing or broken
// robots.txt files allow everything.
func checkRobotsTxt(ctx context.Context, client *http.Client, baseURL, target, userAgent string) bool {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/robots.txt", nil)
	if err != nil {
		return true
	}
	req.Header.Set("User-Agent", userAgent)

	response, err := client.Do(req)
	if err != nil {
		return true
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return true
	}

	robotsData, err := robotstxt.FromResponse(response)
	if err != nil {
		return true
	}

	path := "/"
	if u, err := url.Parse(target); err == nil && u.Path != "" {
		path = u.Path
	}
	return robotsData.TestAgent(path, userAgent)
}

func (app *Crawler) getBaseUrl(urlString string) string {
	u, err := url.Parse(urlString)
	if err != nil {
		return urlString
	}
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host)
}
