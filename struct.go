package tendercrawler

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const (
	SourceKepco         = "KEPCO"
	DefaultSequence     = "00"
	DefaultMaxResults   = 100
	DefaultSearchDays   = 30
	searchDateFormat    = "2006/01/02"
	closeDateTimeFormat = "2006/01/02 15:04"
)

// DefaultKeywords are the search terms used when a caller passes none.
var DefaultKeywords = []string{"유연탄", "석탄", "연료탄"}

// SearchRequest is the input of a crawl session.
type SearchRequest struct {
	Keywords   []string   `json:"keywords"`
	Start      *time.Time `json:"start,omitempty"`
	End        *time.Time `json:"end,omitempty"`
	MaxResults int        `json:"max_results"`
}

// NewSearchRequest builds a request covering the last days up to today.
// Empty keywords fall back to DefaultKeywords and a non-positive window to DefaultSearchDays.
func NewSearchRequest(keywords []string, days int) SearchRequest {
	if len(keywords) == 0 {
		keywords = append([]string(nil), DefaultKeywords...)
	}
	if days <= 0 {
		days = DefaultSearchDays
	}
	end := time.Now()
	start := end.AddDate(0, 0, -days)
	return SearchRequest{
		Keywords:   keywords,
		Start:      &start,
		End:        &end,
		MaxResults: DefaultMaxResults,
	}
}

func (r SearchRequest) Validate() error {
	if len(r.Keywords) == 0 {
		return errors.New("at least one keyword is required")
	}
	for i, kw := range r.Keywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("keyword %d is blank", i)
		}
	}
	if r.MaxResults <= 0 {
		return fmt.Errorf("max results must be positive, got %d", r.MaxResults)
	}
	if r.Start != nil && r.End != nil && truncateDay(*r.Start).After(truncateDay(*r.End)) {
		return fmt.Errorf("start date %s is after end date %s", r.Start.Format(searchDateFormat), r.End.Format(searchDateFormat))
	}
	return nil
}

// AnnouncementRecord is one row of the portal's result grid.
type AnnouncementRecord struct {
	AnnouncementNo string    `json:"announcement_no" bson:"announcement_no" bigquery:"announcement_no"`
	Title          string    `json:"title" bson:"title" bigquery:"title"`
	Organization   string    `json:"organization" bson:"organization" bigquery:"organization"`
	Method         string    `json:"method" bson:"method" bigquery:"method"`
	AnnounceDate   string    `json:"announce_date" bson:"announce_date" bigquery:"announce_date"`
	CloseDate      string    `json:"close_date" bson:"close_date" bigquery:"close_date"`
	Status         string    `json:"status" bson:"status" bigquery:"status"`
	DetailURL      string    `json:"detail_url" bson:"detail_url" bigquery:"detail_url"`
	KeywordMatched string    `json:"keyword_matched" bson:"keyword_matched" bigquery:"keyword_matched"`
	CrawledAt      time.Time `json:"crawled_at" bson:"crawled_at" bigquery:"crawled_at"`
	Attachments    []string  `json:"attachments,omitempty" bson:"attachments,omitempty" bigquery:"-"`
}

// RawDocument is an attachment as fetched. Name carries the extension hint.
// URL is empty for attachments read from disk.
type RawDocument struct {
	Name string
	URL  string
	Data []byte
}

type DeliveryTerm string

const (
	FOB DeliveryTerm = "FOB"
	CIF DeliveryTerm = "CIF"
	CFR DeliveryTerm = "CFR"
	DES DeliveryTerm = "DES"
	DAP DeliveryTerm = "DAP"
)

// CoalSpecification holds the values found in a tender document. Nil means not found.
type CoalSpecification struct {
	CalorificMin   *int          `json:"calorific_value_min,omitempty" bson:"calorific_value_min,omitempty"`
	CalorificMax   *int          `json:"calorific_value_max,omitempty" bson:"calorific_value_max,omitempty"`
	CalorificBasis *string       `json:"calorific_basis,omitempty" bson:"calorific_basis,omitempty"`
	SulfurMax      *float64      `json:"sulfur_max,omitempty" bson:"sulfur_max,omitempty"`
	AshMax         *float64      `json:"ash_max,omitempty" bson:"ash_max,omitempty"`
	MoistureMax    *float64      `json:"moisture_max,omitempty" bson:"moisture_max,omitempty"`
	VolatileMatter *float64      `json:"volatile_matter,omitempty" bson:"volatile_matter,omitempty"`
	QuantityMT     *float64      `json:"quantity_mt,omitempty" bson:"quantity_mt,omitempty"`
	Origin         *string       `json:"origin,omitempty" bson:"origin,omitempty"`
	DeliveryTerms  *DeliveryTerm `json:"delivery_terms,omitempty" bson:"delivery_terms,omitempty"`
	DeliveryPort   *string       `json:"delivery_port,omitempty" bson:"delivery_port,omitempty"`
}

// IsEmpty reports whether no field was extracted.
func (s CoalSpecification) IsEmpty() bool {
	return s.CalorificMin == nil && s.CalorificMax == nil && s.CalorificBasis == nil &&
		s.SulfurMax == nil && s.AshMax == nil && s.MoistureMax == nil &&
		s.VolatileMatter == nil && s.QuantityMT == nil && s.Origin == nil &&
		s.DeliveryTerms == nil && s.DeliveryPort == nil
}

type RelevanceSignal struct {
	Keywords []string `json:"keywords"`
	Relevant bool     `json:"relevant"`
}

// DocumentResult is the outcome of decoding and analysing one attachment.
type DocumentResult struct {
	AnnouncementNo string             `json:"announcement_no"`
	FileName       string             `json:"file_name"`
	FileURL        string             `json:"file_url,omitempty"`
	Text           string             `json:"-"`
	Relevance      RelevanceSignal    `json:"relevance"`
	Spec           *CoalSpecification `json:"spec,omitempty"`
	Err            error              `json:"-"`
}

// AttachmentRecord is the stored state of one attachment of an announcement.
type AttachmentRecord struct {
	FileName      string `json:"file_name" bson:"file_name"`
	FileType      string `json:"file_type" bson:"file_type"`
	FileURL       string `json:"file_url,omitempty" bson:"file_url"`
	ExtractedText string `json:"extracted_text" bson:"extracted_text"`
	IsParsed      bool   `json:"is_parsed" bson:"is_parsed"`
}

// newAttachmentRecord marks a document parsed when it decoded to some text.
func newAttachmentRecord(res DocumentResult) AttachmentRecord {
	return AttachmentRecord{
		FileName:      res.FileName,
		FileType:      strings.TrimPrefix(strings.ToLower(filepath.Ext(res.FileName)), "."),
		FileURL:       res.FileURL,
		ExtractedText: res.Text,
		IsParsed:      res.Err == nil && res.Text != "",
	}
}

type CrawlReport struct {
	RunID         string               `json:"run_id"`
	Announcements []AnnouncementRecord `json:"announcements"`
	Documents     []DocumentResult     `json:"documents"`
	StartedAt     time.Time            `json:"started_at"`
	FinishedAt    time.Time            `json:"finished_at"`
}

type CrawlState int

const (
	StateNotStarted CrawlState = iota
	StateBrowserReady
	StatePageLoaded
	StateNavigated
	StateSearching
	StateResultsCollected
	StateDone
	StateErrored
)

func (s CrawlState) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateBrowserReady:
		return "browser_ready"
	case StatePageLoaded:
		return "page_loaded"
	case StateNavigated:
		return "navigated"
	case StateSearching:
		return "searching"
	case StateResultsCollected:
		return "results_collected"
	case StateDone:
		return "done"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
