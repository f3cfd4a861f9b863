package tendercrawler

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

const (
	tenderKind = "Tender"
	specKind   = "TenderSpec"
	attachKind = "TenderAttachment"
)

type tenderEntity struct {
	Source         string    `datastore:"source"`
	AnnouncementNo string    `datastore:"announcement_no"`
	Sequence       string    `datastore:"announcement_sequence"`
	Title          string    `datastore:"title,noindex"`
	Organization   string    `datastore:"organization"`
	Method         string    `datastore:"method"`
	AnnounceDate   string    `datastore:"announce_date"`
	CloseAt        time.Time `datastore:"close_at"`
	Status         string    `datastore:"status"`
	DetailURL      string    `datastore:"detail_url,noindex"`
	KeywordMatched string    `datastore:"keyword_matched"`
	Attachments    []string  `datastore:"attachments,noindex"`
	CrawledAt      time.Time `datastore:"crawled_at"`
	UpdatedAt      time.Time `datastore:"updated_at"`
}

// specEntity flattens a CoalSpecification. Values not found are stored as zero
// and listed in Missing.
type specEntity struct {
	AnnouncementID string    `datastore:"announcement_id"`
	CommodityType  string    `datastore:"commodity_type"`
	CalorificMin   int       `datastore:"calorific_value_min"`
	CalorificMax   int       `datastore:"calorific_value_max"`
	CalorificBasis string    `datastore:"calorific_basis"`
	SulfurMax      float64   `datastore:"sulfur_max"`
	AshMax         float64   `datastore:"ash_max"`
	MoistureMax    float64   `datastore:"moisture_max"`
	VolatileMatter float64   `datastore:"volatile_matter"`
	QuantityMT     float64   `datastore:"quantity_mt"`
	Origin         string    `datastore:"origin"`
	DeliveryTerms  string    `datastore:"delivery_terms"`
	DeliveryPort   string    `datastore:"delivery_port"`
	Missing        []string  `datastore:"missing,noindex"`
	UpdatedAt      time.Time `datastore:"updated_at"`
}

// Extracted text can exceed the 1500 byte limit of indexed strings.
type attachmentEntity struct {
	AnnouncementID string    `datastore:"announcement_id"`
	FileName       string    `datastore:"file_name"`
	FileType       string    `datastore:"file_type"`
	FileURL        string    `datastore:"file_url,noindex"`
	ExtractedText  string    `datastore:"extracted_text,noindex"`
	IsParsed       bool      `datastore:"is_parsed"`
	UpdatedAt      time.Time `datastore:"updated_at"`
}

func newAttachmentEntity(att AttachmentRecord, announcementID string, now time.Time) *attachmentEntity {
	return &attachmentEntity{
		AnnouncementID: announcementID,
		FileName:       att.FileName,
		FileType:       att.FileType,
		FileURL:        att.FileURL,
		ExtractedText:  att.ExtractedText,
		IsParsed:       att.IsParsed,
		UpdatedAt:      now,
	}
}

func newTenderEntity(doc tenderDocument) *tenderEntity {
	e := &tenderEntity{
		Source:         doc.Source,
		AnnouncementNo: doc.AnnouncementNo,
		Sequence:       doc.Sequence,
		Title:          doc.Title,
		Organization:   doc.Organization,
		Method:         doc.Method,
		AnnounceDate:   doc.AnnounceDate,
		Status:         doc.Status,
		DetailURL:      doc.DetailURL,
		KeywordMatched: doc.KeywordMatched,
		Attachments:    doc.Attachments,
		CrawledAt:      doc.CrawledAt,
		UpdatedAt:      doc.UpdatedAt,
	}
	if doc.CloseAt != nil {
		e.CloseAt = *doc.CloseAt
	}
	return e
}

func newSpecEntity(spec CoalSpecification, announcementID string, now time.Time) *specEntity {
	e := &specEntity{AnnouncementID: announcementID, CommodityType: commodityCoal, UpdatedAt: now}
	if spec.CalorificMin != nil {
		e.CalorificMin = *spec.CalorificMin
	} else {
		e.Missing = append(e.Missing, "calorific_value_min")
	}
	if spec.CalorificMax != nil {
		e.CalorificMax = *spec.CalorificMax
	} else {
		e.Missing = append(e.Missing, "calorific_value_max")
	}
	e.CalorificBasis = stringOr(spec.CalorificBasis, "calorific_basis", &e.Missing)
	e.SulfurMax = floatOr(spec.SulfurMax, "sulfur_max", &e.Missing)
	e.AshMax = floatOr(spec.AshMax, "ash_max", &e.Missing)
	e.MoistureMax = floatOr(spec.MoistureMax, "moisture_max", &e.Missing)
	e.VolatileMatter = floatOr(spec.VolatileMatter, "volatile_matter", &e.Missing)
	e.QuantityMT = floatOr(spec.QuantityMT, "quantity_mt", &e.Missing)
	e.Origin = stringOr(spec.Origin, "origin", &e.Missing)
	if spec.DeliveryTerms != nil {
		e.DeliveryTerms = string(*spec.DeliveryTerms)
	} else {
		e.Missing = append(e.Missing, "delivery_terms")
	}
	e.DeliveryPort = stringOr(spec.DeliveryPort, "delivery_port", &e.Missing)
	return e
}

func floatOr(v *float64, name string, missing *[]string) float64 {
	if v == nil {
		*missing = append(*missing, name)
		return 0
	}
	return *v
}

func stringOr(v *string, name string, missing *[]string) string {
	if v == nil {
		*missing = append(*missing, name)
		return ""
	}
	return *v
}

// DatastoreRepository is the Repository backed by Cloud Datastore.
type DatastoreRepository struct {
	client *datastore.Client
	now    func() time.Time
}

func NewDatastoreRepository(ctx context.Context, projectID, credentialsPath string) (*DatastoreRepository, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}
	client, err := datastore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: create datastore client: %w", ErrPersistence, err)
	}
	return &DatastoreRepository{client: client, now: time.Now}, nil
}

func (r *DatastoreRepository) UpsertAnnouncement(ctx context.Context, source string, rec AnnouncementRecord) (string, error) {
	doc := newTenderDocument(source, rec, r.now())
	key := datastore.NameKey(tenderKind, doc.ID, nil)
	if _, err := r.client.Put(ctx, key, newTenderEntity(doc)); err != nil {
		return "", fmt.Errorf("%w: upsert announcement %s: %w", ErrPersistence, rec.AnnouncementNo, err)
	}
	return doc.ID, nil
}

func (r *DatastoreRepository) UpsertSpecification(ctx context.Context, spec CoalSpecification, announcementID string) (string, error) {
	query := datastore.NewQuery(specKind).
		FilterField("announcement_id", "=", announcementID).
		KeysOnly().
		Limit(1)
	keys, err := r.client.GetAll(ctx, query, nil)
	if err != nil {
		return "", fmt.Errorf("%w: look up specification of %s: %w", ErrPersistence, announcementID, err)
	}

	key := datastore.NameKey(specKind, uuid.NewString(), nil)
	if len(keys) > 0 {
		key = keys[0]
	}
	if _, err := r.client.Put(ctx, key, newSpecEntity(spec, announcementID, r.now())); err != nil {
		return "", fmt.Errorf("%w: upsert specification of %s: %w", ErrPersistence, announcementID, err)
	}
	return key.Name, nil
}

func (r *DatastoreRepository) UpsertAttachment(ctx context.Context, att AttachmentRecord, announcementID string) (string, error) {
	query := datastore.NewQuery(attachKind).
		FilterField("announcement_id", "=", announcementID).
		FilterField("file_name", "=", att.FileName).
		KeysOnly().
		Limit(1)
	keys, err := r.client.GetAll(ctx, query, nil)
	if err != nil {
		return "", fmt.Errorf("%w: look up attachment %s of %s: %w", ErrPersistence, att.FileName, announcementID, err)
	}

	key := datastore.NameKey(attachKind, uuid.NewString(), nil)
	if len(keys) > 0 {
		key = keys[0]
	}
	if _, err := r.client.Put(ctx, key, newAttachmentEntity(att, announcementID, r.now())); err != nil {
		return "", fmt.Errorf("%w: upsert attachment %s of %s: %w", ErrPersistence, att.FileName, announcementID, err)
	}
	return key.Name, nil
}

func (r *DatastoreRepository) Close(_ context.Context) error {
	return r.client.Close()
}
