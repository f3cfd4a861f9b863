package tendercrawler

import (
	"time"
)

const (
	PlayWrightEngine = "playwright"
	RodEngine        = "rod"
)

// Engine holds the browser and timing options of a crawl session.
type Engine struct {
	Adapter                string // playwright, rod
	BrowserType            string
	ForceInstallPlaywright bool
	Headless               *bool
	Args                   []string
	UserAgent              string
	Locale                 string
	TimezoneID             string
	ViewportWidth          int
	ViewportHeight         int

	Timeout         time.Duration // page navigation
	LoadingTimeout  time.Duration // loading mask wait
	InitialSettle   time.Duration
	NavigateSettle  time.Duration
	SearchSettle    time.Duration
	TypeDelay       time.Duration
	DocumentWorkers int

	MaxRetryAttempts int
	RetryBaseDelay   time.Duration
	RetryMultiplier  float64
	RetryMaxDelay    time.Duration

	StorageDir     string
	CheckRobotsTxt bool
}

func getDefaultEngine() Engine {
	return Engine{
		Adapter:     PlayWrightEngine,
		BrowserType: "chromium",
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--no-sandbox",
			"--disable-dev-shm-usage",
		},
		UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Locale:           "ko-KR",
		TimezoneID:       "Asia/Seoul",
		ViewportWidth:    1920,
		ViewportHeight:   1080,
		Timeout:          30 * time.Second,
		LoadingTimeout:   10 * time.Second,
		InitialSettle:    3 * time.Second,
		NavigateSettle:   2 * time.Second,
		SearchSettle:     2 * time.Second,
		TypeDelay:        50 * time.Millisecond,
		DocumentWorkers:  4,
		MaxRetryAttempts: 3,
		RetryBaseDelay:   2 * time.Second,
		RetryMultiplier:  2,
		RetryMaxDelay:    10 * time.Second,
		StorageDir:       "storage",
	}
}

func overrideEngineDefaults(defaultEngine *Engine, eng *Engine) {
	if eng.Adapter != "" {
		defaultEngine.Adapter = eng.Adapter
	}
	if eng.BrowserType != "" {
		defaultEngine.BrowserType = eng.BrowserType
	}
	if eng.ForceInstallPlaywright {
		defaultEngine.ForceInstallPlaywright = true
	}
	if eng.Headless != nil {
		defaultEngine.Headless = eng.Headless
	}
	if len(eng.Args) > 0 {
		defaultEngine.Args = eng.Args
	}
	if eng.UserAgent != "" {
		defaultEngine.UserAgent = eng.UserAgent
	}
	if eng.Locale != "" {
		defaultEngine.Locale = eng.Locale
	}
	if eng.TimezoneID != "" {
		defaultEngine.TimezoneID = eng.TimezoneID
	}
	if eng.ViewportWidth > 0 && eng.ViewportHeight > 0 {
		defaultEngine.ViewportWidth = eng.ViewportWidth
		defaultEngine.ViewportHeight = eng.ViewportHeight
	}
	if eng.Timeout > 0 {
		defaultEngine.Timeout = eng.Timeout
	}
	if eng.LoadingTimeout > 0 {
		defaultEngine.LoadingTimeout = eng.LoadingTimeout
	}
	if eng.InitialSettle > 0 {
		defaultEngine.InitialSettle = eng.InitialSettle
	}
	if eng.NavigateSettle > 0 {
		defaultEngine.NavigateSettle = eng.NavigateSettle
	}
	if eng.SearchSettle > 0 {
		defaultEngine.SearchSettle = eng.SearchSettle
	}
	if eng.TypeDelay > 0 {
		defaultEngine.TypeDelay = eng.TypeDelay
	}
	if eng.DocumentWorkers > 0 {
		defaultEngine.DocumentWorkers = eng.DocumentWorkers
	}
	if eng.MaxRetryAttempts > 0 {
		defaultEngine.MaxRetryAttempts = eng.MaxRetryAttempts
	}
	if eng.RetryBaseDelay > 0 {
		defaultEngine.RetryBaseDelay = eng.RetryBaseDelay
	}
	if eng.RetryMultiplier > 0 {
		defaultEngine.RetryMultiplier = eng.RetryMultiplier
	}
	if eng.RetryMaxDelay > 0 {
		defaultEngine.RetryMaxDelay = eng.RetryMaxDelay
	}
	if eng.StorageDir != "" {
		defaultEngine.StorageDir = eng.StorageDir
	}
	if eng.CheckRobotsTxt {
		defaultEngine.CheckRobotsTxt = true
	}
}

func (e Engine) retryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: e.MaxRetryAttempts,
		BaseDelay:   e.RetryBaseDelay,
		Multiplier:  e.RetryMultiplier,
		MaxDelay:    e.RetryMaxDelay,
	}
}

func (app *Crawler) SetAdapter(adapter string) *Crawler {
	app.engine.Adapter = adapter
	return app
}

func (app *Crawler) SetBrowserType(browserType string) *Crawler {
	app.engine.BrowserType = browserType
	return app
}

func (app *Crawler) SetHeadless(headless bool) *Crawler {
	app.engine.Headless = &headless
	return app
}

func (app *Crawler) SetTimeout(timeout time.Duration) *Crawler {
	app.engine.Timeout = timeout
	return app
}

func (app *Crawler) SetMaxRetryAttempts(attempts int) *Crawler {
	app.engine.MaxRetryAttempts = attempts
	return app
}

func (app *Crawler) EnableRobotsTxtCheck() *Crawler {
	app.engine.CheckRobotsTxt = true
	return app
}

// isHeadless falls back to headed mode on local machines, like the playwright devtools toggle.
func (app *Crawler) isHeadless() bool {
	if app.engine.Headless != nil {
		return *app.engine.Headless
	}
	return !app.isLocalEnv
}
