package tendercrawler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewKepcoCrawler_ReadsEnvironment(t *testing.T) {
	t.Setenv("STORAGE_DIR", t.TempDir())
	t.Setenv("SITE_NAME", "kepco-test")
	t.Setenv("BROWSER_ADAPTER", RodEngine)
	t.Setenv("DOCUMENT_WORKERS", "2")
	t.Setenv("PAGE_TIMEOUT", "45s")
	t.Setenv("LOADING_TIMEOUT", "1500ms")

	app := NewKepcoCrawler()

	assert.Equal(t, "kepco-test", app.Name)
	assert.Equal(t, RodEngine, app.engine.Adapter)
	assert.Equal(t, 2, app.engine.DocumentWorkers)
	assert.Equal(t, 45*time.Second, app.engine.Timeout)
	assert.Equal(t, 1500*time.Millisecond, app.engine.LoadingTimeout)
}

func TestNewKepcoCrawler_KeepsDefaultTimeouts(t *testing.T) {
	t.Setenv("STORAGE_DIR", t.TempDir())

	app := NewKepcoCrawler()

	assert.Equal(t, 30*time.Second, app.engine.Timeout)
	assert.Equal(t, 10*time.Second, app.engine.LoadingTimeout)
	assert.Equal(t, "https://srm.kepco.net/index.do", app.SearchUrl)
}
