package tendercrawler

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxGridRows       = 50
	minPopulatedCells = 5
)

// GridRowsFromHTML returns the trimmed cell texts of every row matching rowSelector.
func GridRowsFromHTML(html, rowSelector, cellSelector string) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse result grid: %w", err)
	}

	var rows [][]string
	doc.Find(rowSelector).Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find(cellSelector).Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		rows = append(rows, cells)
	})
	return rows, nil
}

// ParseResultGrid maps grid rows to announcements in row order.
// Only the first 50 rows are read. Rows with fewer than 5 non blank cells or
// without an announcement number are skipped.
func ParseResultGrid(rows [][]string, baseURL string, crawledAt time.Time) []AnnouncementRecord {
	if len(rows) > maxGridRows {
		rows = rows[:maxGridRows]
	}

	var records []AnnouncementRecord
	for _, cells := range rows {
		if populatedCells(cells) < minPopulatedCells {
			continue
		}
		no := cellAt(cells, 0)
		if no == "" {
			continue
		}
		records = append(records, AnnouncementRecord{
			AnnouncementNo: no,
			Title:          cellAt(cells, 1),
			Organization:   cellAt(cells, 2),
			Method:         cellAt(cells, 3),
			AnnounceDate:   cellAt(cells, 4),
			CloseDate:      cellAt(cells, 5),
			Status:         cellAt(cells, 6),
			DetailURL:      detailURL(baseURL, no),
			CrawledAt:      crawledAt,
		})
	}
	return records
}

func detailURL(baseURL, no string) string {
	return strings.TrimRight(baseURL, "/") + "/notice/" + url.PathEscape(no)
}

func populatedCells(cells []string) int {
	n := 0
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	return n
}

func cellAt(cells []string, i int) string {
	if i < len(cells) {
		return strings.TrimSpace(cells[i])
	}
	return ""
}
