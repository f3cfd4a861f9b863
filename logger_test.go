package tendercrawler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLogger_HtmlKeepsMessageVerbatim(t *testing.T) {
	dir := t.TempDir()
	l, err := newDefaultLogger(loggerOptions{SiteName: "kepco", StorageDir: dir, Level: "info"})
	require.NoError(t, err)

	l.Html("<html><body>grid</body></html>", "search_유연탄", "Search for 100% coal failed: %d rows")
	require.NoError(t, l.Sync())

	logs, err := filepath.Glob(filepath.Join(dir, "logs", "kepco", "*_application.log"))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	content, err := os.ReadFile(logs[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "Search for 100% coal failed: %d rows")
	assert.NotContains(t, string(content), "%!")

	dumps, err := filepath.Glob(filepath.Join(dir, "logs", "kepco", "html", "*.html"))
	require.NoError(t, err)
	assert.Len(t, dumps, 1)
}
