package tendercrawler

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/compute/metadata"
	"google.golang.org/api/option"
)

// specRow is one analysed document in the analytics table.
type specRow struct {
	RunID          string               `bigquery:"run_id"`
	AnnouncementNo string               `bigquery:"announcement_no"`
	FileName       string               `bigquery:"file_name"`
	Keywords       []string             `bigquery:"keywords"`
	CalorificMin   bigquery.NullInt64   `bigquery:"calorific_value_min"`
	CalorificMax   bigquery.NullInt64   `bigquery:"calorific_value_max"`
	CalorificBasis bigquery.NullString  `bigquery:"calorific_basis"`
	SulfurMax      bigquery.NullFloat64 `bigquery:"sulfur_max"`
	AshMax         bigquery.NullFloat64 `bigquery:"ash_max"`
	MoistureMax    bigquery.NullFloat64 `bigquery:"moisture_max"`
	VolatileMatter bigquery.NullFloat64 `bigquery:"volatile_matter"`
	QuantityMT     bigquery.NullFloat64 `bigquery:"quantity_mt"`
	Origin         bigquery.NullString  `bigquery:"origin"`
	DeliveryTerms  bigquery.NullString  `bigquery:"delivery_terms"`
	DeliveryPort   bigquery.NullString  `bigquery:"delivery_port"`
	CreatedAt      time.Time            `bigquery:"created_at"`
}

// newSpecRows keeps the documents that produced a specification.
func newSpecRows(report CrawlReport, now time.Time) []*specRow {
	var rows []*specRow
	for _, doc := range report.Documents {
		if doc.Spec == nil {
			continue
		}
		s := doc.Spec
		row := &specRow{
			RunID:          report.RunID,
			AnnouncementNo: doc.AnnouncementNo,
			FileName:       doc.FileName,
			Keywords:       doc.Relevance.Keywords,
			SulfurMax:      nullFloat(s.SulfurMax),
			AshMax:         nullFloat(s.AshMax),
			MoistureMax:    nullFloat(s.MoistureMax),
			VolatileMatter: nullFloat(s.VolatileMatter),
			QuantityMT:     nullFloat(s.QuantityMT),
			CalorificBasis: nullString(s.CalorificBasis),
			Origin:         nullString(s.Origin),
			DeliveryPort:   nullString(s.DeliveryPort),
			CreatedAt:      now,
		}
		if s.CalorificMin != nil {
			row.CalorificMin = bigquery.NullInt64{Int64: int64(*s.CalorificMin), Valid: true}
		}
		if s.CalorificMax != nil {
			row.CalorificMax = bigquery.NullInt64{Int64: int64(*s.CalorificMax), Valid: true}
		}
		if s.DeliveryTerms != nil {
			row.DeliveryTerms = bigquery.NullString{StringVal: string(*s.DeliveryTerms), Valid: true}
		}
		rows = append(rows, row)
	}
	return rows
}

func nullFloat(v *float64) bigquery.NullFloat64 {
	if v == nil {
		return bigquery.NullFloat64{}
	}
	return bigquery.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v *string) bigquery.NullString {
	if v == nil {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: *v, Valid: true}
}

// specAnalytics streams extracted specifications into BigQuery.
type specAnalytics struct {
	client   *bigquery.Client
	inserter *bigquery.Inserter
	target   string
}

// newSpecAnalytics falls back to the metadata server for the project id when
// projectID is empty.
func newSpecAnalytics(ctx context.Context, projectID, dataset, table, credentialsPath string) (*specAnalytics, error) {
	if projectID == "" {
		id, err := metadata.ProjectID()
		if err != nil {
			return nil, fmt.Errorf("failed to get project ID: %w", err)
		}
		projectID = id
	}
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create BigQuery client: %w", err)
	}
	return &specAnalytics{
		client:   client,
		inserter: client.Dataset(dataset).Table(table).Inserter(),
		target:   fmt.Sprintf("%s.%s.%s", projectID, dataset, table),
	}, nil
}

func (a *specAnalytics) Insert(ctx context.Context, report CrawlReport) (int, error) {
	rows := newSpecRows(report, time.Now())
	if len(rows) == 0 {
		return 0, nil
	}
	if err := a.inserter.Put(ctx, rows); err != nil {
		return 0, fmt.Errorf("failed to insert %d rows into %s: %w", len(rows), a.target, err)
	}
	return len(rows), nil
}

func (a *specAnalytics) Close() error {
	return a.client.Close()
}
