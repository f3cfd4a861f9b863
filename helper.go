package tendercrawler

import (
	"path/filepath"
	"strings"
	"time"
)

func isLocalEnv(env string) bool {
	return env == "local"
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// sanitizeFileName replaces characters not allowed in file names.
func sanitizeFileName(name string) string {
	invalidChars := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", " "}
	for _, char := range invalidChars {
		name = strings.ReplaceAll(name, char, "_")
	}
	if name == "" {
		return "unnamed"
	}
	return name
}

// generateExportFileName returns <dir>/<site>_results.<ext>.
func generateExportFileName(dir, siteName, ext string) string {
	return filepath.Join(dir, siteName+"_results."+ext)
}

func (app *Crawler) getHtmlFromPage(page Page) string {
	html, err := page.Content()
	if err != nil {
		app.Logger.Error("failed to get html from page: %v", err)
	}
	return html
}

func (app *Crawler) screenshotPath() string {
	return filepath.Join(app.engine.StorageDir, "logs", app.Name, "screenshots",
		"error_"+app.now().Format("150405")+".png")
}
