package tendercrawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	tenderCollection = "tenders"
	specCollection   = "tender_specs"
	attachCollection = "tender_attachments"
	statusOpen       = "OPEN"
	commodityCoal    = "coal"
)

// Repository stores announcements, their attachments and the specifications
// found in them. Every upsert is idempotent.
type Repository interface {
	// UpsertAnnouncement keys the record by (source, announcement no, sequence "00") and returns its id.
	UpsertAnnouncement(ctx context.Context, source string, rec AnnouncementRecord) (string, error)
	// UpsertSpecification keeps at most one specification per announcement.
	UpsertSpecification(ctx context.Context, spec CoalSpecification, announcementID string) (string, error)
	// UpsertAttachment keys the attachment by (announcement id, file name).
	UpsertAttachment(ctx context.Context, att AttachmentRecord, announcementID string) (string, error)
	Close(ctx context.Context) error
}

// tenderDocument is the persisted shape of an announcement.
type tenderDocument struct {
	ID             string     `bson:"_id"`
	Source         string     `bson:"source"`
	AnnouncementNo string     `bson:"announcement_no"`
	Sequence       string     `bson:"announcement_sequence"`
	Title          string     `bson:"title"`
	Organization   string     `bson:"organization"`
	Method         string     `bson:"method"`
	AnnounceDate   string     `bson:"announce_date"`
	CloseAt        *time.Time `bson:"close_at,omitempty"`
	Status         string     `bson:"status"`
	DetailURL      string     `bson:"detail_url"`
	KeywordMatched string     `bson:"keyword_matched"`
	Attachments    []string   `bson:"attachments,omitempty"`
	CrawledAt      time.Time  `bson:"crawled_at"`
	UpdatedAt      time.Time  `bson:"updated_at"`
}

func tenderID(source, announcementNo, sequence string) string {
	return fmt.Sprintf("%s-%s-%s", source, announcementNo, sequence)
}

// newTenderDocument maps a grid row onto the stored shape. A close date that
// does not parse is left empty.
func newTenderDocument(source string, rec AnnouncementRecord, now time.Time) tenderDocument {
	doc := tenderDocument{
		ID:             tenderID(source, rec.AnnouncementNo, DefaultSequence),
		Source:         source,
		AnnouncementNo: rec.AnnouncementNo,
		Sequence:       DefaultSequence,
		Title:          rec.Title,
		Organization:   rec.Organization,
		Method:         rec.Method,
		AnnounceDate:   rec.AnnounceDate,
		Status:         statusOpen,
		DetailURL:      rec.DetailURL,
		KeywordMatched: rec.KeywordMatched,
		Attachments:    rec.Attachments,
		CrawledAt:      rec.CrawledAt,
		UpdatedAt:      now,
	}
	if closeAt, ok := parseCloseDate(rec.CloseDate); ok {
		doc.CloseAt = &closeAt
	}
	return doc
}

func parseCloseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(closeDateTimeFormat, value, kstLocation())
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func kstLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}

type specDocument struct {
	ID                string    `bson:"_id"`
	AnnouncementID    string    `bson:"announcement_id"`
	CommodityType     string    `bson:"commodity_type"`
	UpdatedAt         time.Time `bson:"updated_at"`
	CoalSpecification `bson:",inline"`
}

type attachmentDocument struct {
	ID               string    `bson:"_id"`
	AnnouncementID   string    `bson:"announcement_id"`
	AttachmentRecord `bson:",inline"`
	UpdatedAt        time.Time `bson:"updated_at"`
}

type MongoConfig struct {
	Username string
	Password string
	Host     string
	Port     string
	Database string
}

func (c MongoConfig) uri() string {
	if c.Username == "" {
		return fmt.Sprintf("mongodb://%s:%s", c.Host, c.Port)
	}
	return fmt.Sprintf("mongodb://%s:%s@%s:%s", c.Username, c.Password, c.Host, c.Port)
}

// MongoRepository is the Repository backed by MongoDB.
type MongoRepository struct {
	client *mongo.Client
	db     *mongo.Database
	logger Logger
	now    func() time.Time
}

func NewMongoRepository(ctx context.Context, cfg MongoConfig, logger Logger) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.uri()))
	if err != nil {
		return nil, fmt.Errorf("%w: connect mongo: %w", ErrPersistence, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: ping mongo: %w", ErrPersistence, err)
	}

	repo := &MongoRepository{
		client: client,
		db:     client.Database(cfg.Database),
		logger: logger,
		now:    time.Now,
	}
	repo.ensureUniqueIndex(ctx, tenderCollection, bson.D{
		{Key: "source", Value: 1},
		{Key: "announcement_no", Value: 1},
		{Key: "announcement_sequence", Value: 1},
	})
	repo.ensureUniqueIndex(ctx, specCollection, bson.D{{Key: "announcement_id", Value: 1}})
	repo.ensureUniqueIndex(ctx, attachCollection, bson.D{
		{Key: "announcement_id", Value: 1},
		{Key: "file_name", Value: 1},
	})
	return repo, nil
}

func (r *MongoRepository) ensureUniqueIndex(ctx context.Context, collection string, keys bson.D) {
	indexModel := mongo.IndexModel{
		Keys:    keys,
		Options: options.Index().SetUnique(true),
	}
	if _, err := r.db.Collection(collection).Indexes().CreateOne(ctx, indexModel); err != nil {
		r.logger.Error("Could not create index on %s: %v", collection, err)
	}
}

func (r *MongoRepository) UpsertAnnouncement(ctx context.Context, source string, rec AnnouncementRecord) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	doc := newTenderDocument(source, rec, r.now())
	_, err := r.db.Collection(tenderCollection).ReplaceOne(ctx, bson.D{{Key: "_id", Value: doc.ID}}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return "", fmt.Errorf("%w: upsert announcement %s: %w", ErrPersistence, rec.AnnouncementNo, err)
	}
	return doc.ID, nil
}

func (r *MongoRepository) UpsertSpecification(ctx context.Context, spec CoalSpecification, announcementID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := r.db.Collection(specCollection)

	id := uuid.NewString()
	var existing struct {
		ID string `bson:"_id"`
	}
	err := collection.FindOne(ctx, bson.D{{Key: "announcement_id", Value: announcementID}}).Decode(&existing)
	switch {
	case err == nil:
		id = existing.ID
	case errors.Is(err, mongo.ErrNoDocuments):
	default:
		return "", fmt.Errorf("%w: look up specification of %s: %w", ErrPersistence, announcementID, err)
	}

	doc := specDocument{
		ID:                id,
		AnnouncementID:    announcementID,
		CommodityType:     commodityCoal,
		UpdatedAt:         r.now(),
		CoalSpecification: spec,
	}
	if _, err := collection.ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}}, doc, options.Replace().SetUpsert(true)); err != nil {
		return "", fmt.Errorf("%w: upsert specification of %s: %w", ErrPersistence, announcementID, err)
	}
	return id, nil
}

func (r *MongoRepository) UpsertAttachment(ctx context.Context, att AttachmentRecord, announcementID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := r.db.Collection(attachCollection)

	id := uuid.NewString()
	var existing struct {
		ID string `bson:"_id"`
	}
	filter := bson.D{{Key: "announcement_id", Value: announcementID}, {Key: "file_name", Value: att.FileName}}
	err := collection.FindOne(ctx, filter).Decode(&existing)
	switch {
	case err == nil:
		id = existing.ID
	case errors.Is(err, mongo.ErrNoDocuments):
	default:
		return "", fmt.Errorf("%w: look up attachment %s of %s: %w", ErrPersistence, att.FileName, announcementID, err)
	}

	doc := attachmentDocument{
		ID:               id,
		AnnouncementID:   announcementID,
		AttachmentRecord: att,
		UpdatedAt:        r.now(),
	}
	if _, err := collection.ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}}, doc, options.Replace().SetUpsert(true)); err != nil {
		return "", fmt.Errorf("%w: upsert attachment %s of %s: %w", ErrPersistence, att.FileName, announcementID, err)
	}
	return id, nil
}

func (r *MongoRepository) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}
