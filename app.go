package tendercrawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Crawler drives one tender portal. Search and Run open their own browser
// session, so a Crawler may be reused across runs but not concurrently.
type Crawler struct {
	Config      *configService
	Name        string
	SearchUrl   string
	BaseUrl     string
	Logger      Logger
	engine      *Engine
	selectors   SiteSelectors
	launcher    BrowserLauncher
	repository  Repository
	attachments AttachmentSource
	processor   *DocumentProcessor
	uploader    *bucketUploader
	analytics   *specAnalytics
	relay       *reportRelay
	httpClient  *http.Client
	isLocalEnv  bool
	now         func() time.Time

	mu    sync.Mutex
	state CrawlState
}

func NewCrawler(name, url string, engines ...Engine) *Crawler {
	defaultEngine := getDefaultEngine()
	if len(engines) > 0 {
		eng := engines[0]
		overrideEngineDefaults(&defaultEngine, &eng)
	}
	config := newConfig()

	crawler := &Crawler{
		Name:       name,
		SearchUrl:  url,
		engine:     &defaultEngine,
		Config:     config,
		selectors:  KepcoSelectors(),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		isLocalEnv: config.isLocalEnv(),
		now:        time.Now,
	}

	logger, err := newDefaultLogger(loggerOptions{
		SiteName:        name,
		StorageDir:      defaultEngine.StorageDir,
		Level:           config.GetString("LOG_LEVEL"),
		CloudProjectID:  crawler.cloudLoggingProject(),
		CredentialsPath: config.GetString("GCP_CREDENTIALS_PATH"),
	})
	if err != nil {
		fmt.Printf("Falling back to a silent logger: %v\n", err)
		crawler.Logger = newNopLogger()
	} else {
		crawler.Logger = logger
	}

	crawler.BaseUrl = config.EnvString("KEPCO_BASE_URL", crawler.getBaseUrl(url))
	crawler.processor = NewDocumentProcessor(nil, nil, defaultEngine.DocumentWorkers, crawler.Logger)
	return crawler
}

// NewKepcoCrawler builds a crawler from SITE_NAME, KEPCO_SEARCH_URL, BROWSER_ADAPTER
// and the optional PAGE_TIMEOUT and LOADING_TIMEOUT durations.
func NewKepcoCrawler(engines ...Engine) *Crawler {
	config := newConfig()
	eng := Engine{
		Adapter:        config.GetString("BROWSER_ADAPTER"),
		StorageDir:     config.GetString("STORAGE_DIR"),
		CheckRobotsTxt: config.GetBool("CHECK_ROBOTS_TXT"),
	}
	if workers := config.GetInt("DOCUMENT_WORKERS"); workers > 0 {
		eng.DocumentWorkers = workers
	}
	eng.Timeout = config.GetDuration("PAGE_TIMEOUT")
	eng.LoadingTimeout = config.GetDuration("LOADING_TIMEOUT")
	if len(engines) > 0 {
		overrideEngineDefaults(&eng, &engines[0])
	}
	return NewCrawler(config.GetString("SITE_NAME"), config.GetString("KEPCO_SEARCH_URL"), eng)
}

func (app *Crawler) cloudLoggingProject() string {
	if !app.Config.GetBool("CLOUD_LOGGING") {
		return ""
	}
	return app.Config.GetString("PROJECT_ID")
}

func (app *Crawler) SetLogger(logger Logger) *Crawler {
	app.Logger = logger
	app.processor.logger = logger
	app.processor.decoder.logger = logger
	return app
}

func (app *Crawler) SetRepository(repository Repository) *Crawler {
	app.repository = repository
	return app
}

func (app *Crawler) SetAttachmentSource(source AttachmentSource) *Crawler {
	app.attachments = source
	return app
}

func (app *Crawler) SetBrowserLauncher(launcher BrowserLauncher) *Crawler {
	app.launcher = launcher
	return app
}

func (app *Crawler) SetSelectors(selectors SiteSelectors) *Crawler {
	app.selectors = selectors
	return app
}

// ConnectBackends opens the optional collaborators named in the configuration:
// a repository (DB_DRIVER), an attachment source (ATTACHMENT_DIR or
// FETCH_ATTACHMENTS), a GCS bucket (GCS_BUCKET), a BigQuery table
// (BIGQUERY_DATASET and BIGQUERY_TABLE) and a report relay (RELAY_ENDPOINT).
func (app *Crawler) ConnectBackends(ctx context.Context) error {
	cfg := app.Config
	credentials := cfg.GetString("GCP_CREDENTIALS_PATH")

	switch driver := cfg.GetString("DB_DRIVER"); driver {
	case "":
		app.Logger.Info("No DB_DRIVER configured, results are kept in memory only")
	case "mongo":
		repo, err := NewMongoRepository(ctx, MongoConfig{
			Username: cfg.GetString("DB_USERNAME"),
			Password: cfg.GetString("DB_PASSWORD"),
			Host:     cfg.EnvString("DB_HOST", "localhost"),
			Port:     cfg.EnvString("DB_PORT", "27017"),
			Database: cfg.EnvString("DB_NAME", app.Name),
		}, app.Logger)
		if err != nil {
			return err
		}
		app.repository = repo
	case "datastore":
		repo, err := NewDatastoreRepository(ctx, cfg.GetString("PROJECT_ID"), credentials)
		if err != nil {
			return err
		}
		app.repository = repo
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	if dir := cfg.GetString("ATTACHMENT_DIR"); dir != "" {
		app.attachments = LocalAttachmentSource{Dir: dir}
	} else if cfg.GetBool("FETCH_ATTACHMENTS") {
		app.attachments = HTTPAttachmentSource{Client: app.httpClient, UserAgent: app.engine.UserAgent}
	}

	if bucket := cfg.GetString("GCS_BUCKET"); bucket != "" {
		uploader, err := newBucketUploader(ctx, bucket, credentials, app.Name, app.Logger)
		if err != nil {
			return err
		}
		app.uploader = uploader
	}

	dataset, table := cfg.GetString("BIGQUERY_DATASET"), cfg.GetString("BIGQUERY_TABLE")
	if dataset != "" && table != "" {
		analytics, err := newSpecAnalytics(ctx, cfg.GetString("PROJECT_ID"), dataset, table, credentials)
		if err != nil {
			return err
		}
		app.analytics = analytics
	}

	if endpoint := cfg.GetString("RELAY_ENDPOINT"); endpoint != "" {
		app.relay = &reportRelay{
			client:   app.httpClient,
			endpoint: endpoint,
			username: cfg.GetString("API_USERNAME"),
			password: cfg.GetString("API_PASSWORD"),
		}
	}
	return nil
}

// Close releases the backends opened by ConnectBackends and flushes the logger.
func (app *Crawler) Close(ctx context.Context) error {
	var errs []error
	if app.repository != nil {
		errs = append(errs, app.repository.Close(ctx))
	}
	if app.uploader != nil {
		errs = append(errs, app.uploader.Close())
	}
	if app.analytics != nil {
		errs = append(errs, app.analytics.Close())
	}
	errs = append(errs, app.Logger.Sync())
	return errors.Join(errs...)
}

func (app *Crawler) State() CrawlState {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.state
}

func (app *Crawler) setState(state CrawlState) {
	app.mu.Lock()
	prev := app.state
	app.state = state
	app.mu.Unlock()
	if prev != state {
		app.Logger.Debug("State %s -> %s", prev, state)
	}
}

func (app *Crawler) launchBrowser(ctx context.Context) (Browser, error) {
	if app.launcher != nil {
		return app.launcher(ctx, app)
	}
	switch app.engine.Adapter {
	case PlayWrightEngine:
		return launchPlaywright(ctx, app)
	case RodEngine:
		return launchRod(ctx, app)
	default:
		return nil, fmt.Errorf("unsupported browser adapter: %s", app.engine.Adapter)
	}
}
