package tendercrawler

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var announcementCSVHeader = []string{
	"announcement_no",
	"title",
	"organization",
	"method",
	"announce_date",
	"close_date",
	"status",
	"detail_url",
	"keyword_matched",
	"crawled_at",
	"relevant",
	"spec",
}

// ExportReport writes <site>_results.json and <site>_results.csv into dir and
// returns their paths.
func ExportReport(report CrawlReport, dir, siteName string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	jsonFile := generateExportFileName(dir, siteName, "json")
	if err := writeJSON(jsonFile, report); err != nil {
		return nil, err
	}
	csvFile := generateExportFileName(dir, siteName, "csv")
	if err := writeAnnouncementsCSV(csvFile, report); err != nil {
		return []string{jsonFile}, err
	}
	return []string{jsonFile, csvFile}, nil
}

func writeJSON(filename string, report CrawlReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(filename), err)
	}
	return nil
}

func writeAnnouncementsCSV(filename string, report CrawlReport) error {
	file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(announcementCSVHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	specs := relevantSpecs(report.Documents)
	for _, rec := range report.Announcements {
		row, err := announcementRow(rec, specs[rec.AnnouncementNo])
		if err != nil {
			return err
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write record to CSV: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// relevantSpecs returns the first extracted specification of each announcement.
func relevantSpecs(docs []DocumentResult) map[string]*CoalSpecification {
	specs := make(map[string]*CoalSpecification)
	for _, doc := range docs {
		if doc.Spec == nil {
			continue
		}
		if _, ok := specs[doc.AnnouncementNo]; !ok {
			specs[doc.AnnouncementNo] = doc.Spec
		}
	}
	return specs
}

func announcementRow(rec AnnouncementRecord, spec *CoalSpecification) ([]string, error) {
	specColumn := ""
	if spec != nil {
		data, err := json.Marshal(spec)
		if err != nil {
			return nil, fmt.Errorf("error marshalling spec of %s: %w", rec.AnnouncementNo, err)
		}
		specColumn = processEncodedString(string(data))
	}
	return []string{
		rec.AnnouncementNo,
		rec.Title,
		rec.Organization,
		rec.Method,
		rec.AnnounceDate,
		rec.CloseDate,
		rec.Status,
		rec.DetailURL,
		rec.KeywordMatched,
		rec.CrawledAt.Format("2006-01-02T15:04:05Z07:00"),
		fmt.Sprint(spec != nil),
		specColumn,
	}, nil
}

func processEncodedString(text string) string {
	replacer := strings.NewReplacer("\\n", "\n", "\\u003e", ">", "\\u003c", "<", "\\u0026", "&")
	return replacer.Replace(text)
}
