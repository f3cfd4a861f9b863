package tendercrawler

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportReport(t *testing.T) {
	dir := t.TempDir()
	gcv := 6000
	report := CrawlReport{
		RunID: "run-1",
		Announcements: []AnnouncementRecord{
			{AnnouncementNo: "R1", Title: "유연탄 구매", CrawledAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
			{AnnouncementNo: "R2", Title: "석탄 운송"},
		},
		Documents: []DocumentResult{
			{AnnouncementNo: "R1", FileName: "spec.hwp", Spec: &CoalSpecification{CalorificMin: &gcv}},
		},
	}

	files, err := ExportReport(report, dir, "kepco")

	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "kepco_results.json"), filepath.Join(dir, "kepco_results.csv")}, files)

	raw, err := os.ReadFile(files[0])
	require.NoError(t, err)
	var decoded CrawlReport
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Len(t, decoded.Announcements, 2)

	f, err := os.Open(files[1])
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, announcementCSVHeader, rows[0])
	assert.Equal(t, "R1", rows[1][0])
	assert.Equal(t, "2026-01-02T03:04:05Z", rows[1][9])
	assert.Equal(t, "true", rows[1][10])
	assert.Equal(t, `{"calorific_value_min":6000}`, rows[1][11])
	assert.Equal(t, "false", rows[2][10])
	assert.Empty(t, rows[2][11])
}
