package tendercrawler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSpecEntity(t *testing.T) {
	minCV, sulfur := 5800, 0.8
	term := CIF
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	e := newSpecEntity(CoalSpecification{CalorificMin: &minCV, SulfurMax: &sulfur, DeliveryTerms: &term}, "KEPCO-R1-00", now)

	assert.Equal(t, "KEPCO-R1-00", e.AnnouncementID)
	assert.Equal(t, commodityCoal, e.CommodityType)
	assert.Equal(t, 5800, e.CalorificMin)
	assert.Equal(t, 0.8, e.SulfurMax)
	assert.Equal(t, "CIF", e.DeliveryTerms)
	assert.Zero(t, e.AshMax)
	assert.Contains(t, e.Missing, "ash_max")
	assert.Contains(t, e.Missing, "calorific_value_max")
	assert.NotContains(t, e.Missing, "sulfur_max")
	assert.Len(t, e.Missing, 8)
}

func TestNewTenderEntity_KeepsCloseDate(t *testing.T) {
	doc := newTenderDocument(SourceKepco, AnnouncementRecord{AnnouncementNo: "R1", CloseDate: "2026/02/01 10:00"}, time.Now())

	e := newTenderEntity(doc)

	assert.Equal(t, doc.CloseAt.UTC(), e.CloseAt.UTC())
	assert.Equal(t, "R1", e.AnnouncementNo)

	doc.CloseAt = nil
	assert.True(t, newTenderEntity(doc).CloseAt.IsZero())
}

func TestNewAttachmentEntity(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	att := AttachmentRecord{FileName: "규격서.hwp", FileType: "hwp", FileURL: "https://srm.kepco.net/files/1", ExtractedText: "유연탄", IsParsed: true}

	e := newAttachmentEntity(att, "KEPCO-R1-00", now)

	assert.Equal(t, &attachmentEntity{
		AnnouncementID: "KEPCO-R1-00",
		FileName:       "규격서.hwp",
		FileType:       "hwp",
		FileURL:        "https://srm.kepco.net/files/1",
		ExtractedText:  "유연탄",
		IsParsed:       true,
		UpdatedAt:      now,
	}, e)
}

func TestNewTenderEntity_KeepsAttachmentNames(t *testing.T) {
	doc := newTenderDocument(SourceKepco, AnnouncementRecord{AnnouncementNo: "R1", Attachments: []string{"spec.hwp"}}, time.Now())

	assert.Equal(t, []string{"spec.hwp"}, doc.Attachments)
	assert.Equal(t, []string{"spec.hwp"}, newTenderEntity(doc).Attachments)
}
