package tendercrawler

import (
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSpecRows(t *testing.T) {
	minCV, ash := 6000, 12.5
	port := "보령"
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	report := CrawlReport{
		RunID: "run-1",
		Documents: []DocumentResult{
			{AnnouncementNo: "R1", FileName: "a.hwp", Relevance: RelevanceSignal{Keywords: []string{"석탄", "kcal"}, Relevant: true},
				Spec: &CoalSpecification{CalorificMin: &minCV, AshMax: &ash, DeliveryPort: &port}},
			{AnnouncementNo: "R2", FileName: "b.hwp"},
		},
	}

	rows := newSpecRows(report, now)

	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "run-1", row.RunID)
	assert.Equal(t, "a.hwp", row.FileName)
	assert.Equal(t, bigquery.NullInt64{Int64: 6000, Valid: true}, row.CalorificMin)
	assert.False(t, row.CalorificMax.Valid)
	assert.Equal(t, bigquery.NullFloat64{Float64: 12.5, Valid: true}, row.AshMax)
	assert.Equal(t, bigquery.NullString{StringVal: "보령", Valid: true}, row.DeliveryPort)
	assert.False(t, row.DeliveryTerms.Valid)
	assert.Equal(t, now, row.CreatedAt)
}

func TestBucketUploader_ObjectName(t *testing.T) {
	u := &bucketUploader{siteName: "kepco"}

	name := u.objectName("output/kepco_results.csv", time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC))

	assert.Equal(t, "tenders/kepco/2026-01-10/kepco_results.csv", name)
}
