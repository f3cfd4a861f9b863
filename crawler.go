package tendercrawler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Search opens a browser session, searches every keyword in order and returns
// the merged announcements. A keyword whose search keeps failing is skipped.
// Session level failures return an error wrapping ErrCrawlFailed.
func (app *Crawler) Search(ctx context.Context, req SearchRequest) (records []AnnouncementRecord, err error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	app.setState(StateNotStarted)

	if err := app.bootstrap(ctx); err != nil {
		app.setState(StateErrored)
		return nil, fmt.Errorf("%w: %w", ErrCrawlFailed, err)
	}

	browser, err := app.launchBrowser(ctx)
	if err != nil {
		app.setState(StateErrored)
		return nil, fmt.Errorf("%w: launch browser: %w", ErrCrawlFailed, err)
	}
	defer func() {
		if cerr := browser.Close(); cerr != nil {
			app.Logger.Warn("Failed to close browser: %v", cerr)
		}
	}()

	page, err := browser.NewPage(ctx)
	if err != nil {
		app.setState(StateErrored)
		return nil, fmt.Errorf("%w: open page: %w", ErrCrawlFailed, err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			app.Logger.Debug("Failed to close page: %v", cerr)
		}
	}()

	// Runs before the page and browser are released.
	defer func() {
		if r := recover(); r != nil {
			records, err = nil, fmt.Errorf("%w: panic: %v", ErrCrawlFailed, r)
		}
		if err != nil {
			app.setState(StateErrored)
			app.Logger.Error("Crawl failed: %v", err)
			app.captureScreenshot(page)
		}
	}()

	app.setState(StateBrowserReady)
	app.Logger.Info("Opening %s", app.SearchUrl)
	if err := page.Goto(app.SearchUrl, app.engine.Timeout); err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrCrawlFailed, app.SearchUrl, err)
	}
	app.waitForLoading(page)
	if err := settle(ctx, app.engine.InitialSettle); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCrawlFailed, err)
	}
	app.setState(StatePageLoaded)

	app.navigateToNotices(page)
	app.waitForLoading(page)
	if err := settle(ctx, app.engine.NavigateSettle); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCrawlFailed, err)
	}
	app.setState(StateNavigated)

	policy := app.engine.retryPolicy()
	policy.OnRetry = func(attempt int, wait time.Duration, err error) {
		app.Logger.Warn("Search attempt %d failed, retrying in %s: %v", attempt, wait, err)
	}

	var collected []AnnouncementRecord
	for _, keyword := range req.Keywords {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCrawlFailed, err)
		}
		app.setState(StateSearching)
		app.Logger.Info("Searching for %q", keyword)

		found, err := RetryValue(ctx, policy, func(ctx context.Context) ([]AnnouncementRecord, error) {
			return app.searchKeyword(ctx, page, keyword, req)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", ErrCrawlFailed, ctx.Err())
			}
			app.Logger.Html(app.getHtmlFromPage(page), "search_"+keyword, fmt.Sprintf("Search for %q failed: %v", keyword, err))
			continue
		}

		app.Logger.Info("Found %d announcements for %q", len(found), keyword)
		collected = append(collected, found...)
		app.setState(StateResultsCollected)
	}

	records = mergeAnnouncements(collected, req.MaxResults)
	app.setState(StateDone)
	return records, nil
}

// mergeAnnouncements keeps the first record of every announcement number in
// order of appearance and truncates to limit.
func mergeAnnouncements(records []AnnouncementRecord, limit int) []AnnouncementRecord {
	seen := make(map[string]bool, len(records))
	merged := make([]AnnouncementRecord, 0, len(records))
	for _, rec := range records {
		if seen[rec.AnnouncementNo] {
			continue
		}
		seen[rec.AnnouncementNo] = true
		merged = append(merged, rec)
	}
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func (app *Crawler) captureScreenshot(page Page) {
	path := app.screenshotPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		app.Logger.Warn("Failed to create screenshot directory: %v", err)
		return
	}
	if err := page.Screenshot(path); err != nil {
		app.Logger.Warn("Failed to take screenshot: %v", err)
		return
	}
	app.Logger.Info("Screenshot saved to %s", path)
}

// Run searches, fetches the attachments, persists the announcements with
// their attachment names, analyses the attachments and persists both the
// attachments and the specifications found. Persistence failures are logged only.
func (app *Crawler) Run(ctx context.Context, req SearchRequest) (*CrawlReport, error) {
	report := &CrawlReport{RunID: uuid.NewString(), StartedAt: app.now()}
	app.Logger.Info("Crawler Started! 🚀 run=%s keywords=%v", report.RunID, req.Keywords)

	records, err := app.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	records, jobs := app.collectDocuments(ctx, records)
	ids := app.persistAnnouncements(ctx, records)
	report.Announcements = records
	report.Documents = app.processor.Process(ctx, jobs)
	app.persistAttachments(ctx, report.Documents, ids)
	app.persistSpecifications(ctx, report.Documents, ids)

	report.FinishedAt = app.now()
	app.Logger.Summary("Run %s: %d announcements, %d documents, %d coal specifications in ⚡ %v",
		report.RunID, len(report.Announcements), len(report.Documents),
		len(relevantSpecs(report.Documents)), report.FinishedAt.Sub(report.StartedAt))
	return report, nil
}

// persistAnnouncements returns the stored id of every announcement saved.
func (app *Crawler) persistAnnouncements(ctx context.Context, records []AnnouncementRecord) map[string]string {
	ids := make(map[string]string, len(records))
	if app.repository == nil {
		return ids
	}
	for _, rec := range records {
		id, err := app.repository.UpsertAnnouncement(ctx, SourceKepco, rec)
		if err != nil {
			app.Logger.Error("DB save error for %s: %v", rec.AnnouncementNo, err)
			continue
		}
		app.Logger.Debug("Saved %s as %s", rec.AnnouncementNo, id)
		ids[rec.AnnouncementNo] = id
	}
	return ids
}

func (app *Crawler) persistSpecifications(ctx context.Context, docs []DocumentResult, ids map[string]string) {
	if app.repository == nil {
		return
	}
	for no, spec := range relevantSpecs(docs) {
		announcementID, ok := ids[no]
		if !ok {
			continue
		}
		if _, err := app.repository.UpsertSpecification(ctx, *spec, announcementID); err != nil {
			app.Logger.Error("DB save error for specification of %s: %v", no, err)
		}
	}
}

func (app *Crawler) persistAttachments(ctx context.Context, docs []DocumentResult, ids map[string]string) {
	if app.repository == nil {
		return
	}
	for _, doc := range docs {
		announcementID, ok := ids[doc.AnnouncementNo]
		if !ok {
			continue
		}
		if _, err := app.repository.UpsertAttachment(ctx, newAttachmentRecord(doc), announcementID); err != nil {
			app.Logger.Error("DB save error for %s of %s: %v", doc.FileName, doc.AnnouncementNo, err)
		}
	}
}

// collectDocuments fetches the attachments of every announcement. It returns
// copies of the records carrying the attachment names, leaving the input as is.
func (app *Crawler) collectDocuments(ctx context.Context, records []AnnouncementRecord) ([]AnnouncementRecord, []DocumentJob) {
	out := make([]AnnouncementRecord, len(records))
	copy(out, records)
	if app.attachments == nil {
		return out, nil
	}
	var jobs []DocumentJob
	for i, rec := range records {
		docs, err := app.attachments.Attachments(ctx, rec)
		if err != nil {
			app.Logger.Warn("Attachments of %s: %v", rec.AnnouncementNo, err)
		}
		names := make([]string, 0, len(rec.Attachments)+len(docs))
		names = append(names, rec.Attachments...)
		for _, doc := range docs {
			names = append(names, doc.Name)
			jobs = append(jobs, DocumentJob{AnnouncementNo: rec.AnnouncementNo, Document: doc})
		}
		if len(docs) > 0 {
			out[i].Attachments = names
		}
	}
	return out, jobs
}

// Publish exports the report into dir and ships it to the configured bucket,
// analytics table and relay. It returns the local files written.
func (app *Crawler) Publish(ctx context.Context, report *CrawlReport, dir string) ([]string, error) {
	files, err := ExportReport(*report, dir, app.Name)
	if err != nil {
		return files, err
	}
	app.Logger.Info("Results saved to %v", files)

	if app.uploader != nil {
		for _, file := range files {
			if _, err := app.uploader.Upload(ctx, file); err != nil {
				app.Logger.Error("Upload failed: %v", err)
			}
		}
	}
	if app.analytics != nil {
		n, err := app.analytics.Insert(ctx, *report)
		if err != nil {
			app.Logger.Error("BigQuery insert failed: %v", err)
		} else {
			app.Logger.Info("Inserted %d specification rows into BigQuery", n)
		}
	}
	if app.relay != nil {
		if err := app.relay.submitReport(ctx, report); err != nil {
			app.Logger.Error("Report relay failed: %v", err)
		}
	}
	return files, nil
}

// AnalyzeDocument decodes one local attachment and extracts its specification.
func (app *Crawler) AnalyzeDocument(doc RawDocument) DocumentResult {
	return app.processor.ProcessOne(DocumentJob{Document: doc})
}
