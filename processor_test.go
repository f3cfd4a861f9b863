package tendercrawler

import (
	"context"
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utf16Bytes(s string) []byte {
	var buf []byte
	for _, u := range utf16.Encode([]rune(s)) {
		buf = binary.LittleEndian.AppendUint16(buf, u)
	}
	return buf
}

func TestDocumentProcessor_Process(t *testing.T) {
	p := NewDocumentProcessor(nil, nil, 2, nil)
	jobs := []DocumentJob{
		{AnnouncementNo: "R1", Document: RawDocument{Name: "spec.hwp", Data: utf16Bytes("유연탄 발열량 6000 kcal 이상")}},
		{AnnouncementNo: "R1", Document: RawDocument{Name: "price.xlsx", Data: []byte("PK")}},
		{AnnouncementNo: "R2", Document: RawDocument{Name: "memo.hwp", Data: utf16Bytes("some unrelated memo")}},
	}

	results := p.Process(context.Background(), jobs)

	require.Len(t, results, 3)

	assert.Equal(t, "spec.hwp", results[0].FileName)
	assert.NoError(t, results[0].Err)
	assert.True(t, results[0].Relevance.Relevant)
	require.NotNil(t, results[0].Spec)
	require.NotNil(t, results[0].Spec.CalorificMin)
	assert.Equal(t, 6000, *results[0].Spec.CalorificMin)

	assert.ErrorIs(t, results[1].Err, ErrUnsupportedDocumentType)
	assert.Nil(t, results[1].Spec)

	assert.Equal(t, "R2", results[2].AnnouncementNo)
	assert.NoError(t, results[2].Err)
	assert.False(t, results[2].Relevance.Relevant)
	assert.Nil(t, results[2].Spec)
}

func TestDocumentProcessor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewDocumentProcessor(nil, nil, 1, nil).Process(ctx, []DocumentJob{
		{AnnouncementNo: "R1", Document: RawDocument{Name: "a.hwp"}},
	})

	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}

func TestDocumentProcessor_ProcessOneKeepsURL(t *testing.T) {
	res := NewDocumentProcessor(nil, nil, 1, nil).ProcessOne(DocumentJob{
		AnnouncementNo: "R1",
		Document:       RawDocument{Name: "spec.hwp", URL: "https://srm.kepco.net/files/1", Data: utf16Bytes("유연탄 발열량 6000 kcal")},
	})

	assert.Equal(t, "https://srm.kepco.net/files/1", res.FileURL)
	assert.Equal(t, "유연탄 발열량 6000 kcal", res.Text)
}

func TestNewAttachmentRecord(t *testing.T) {
	tests := []struct {
		name string
		res  DocumentResult
		want AttachmentRecord
	}{
		{
			name: "decoded",
			res:  DocumentResult{FileName: "Spec.HWP", FileURL: "https://srm.kepco.net/files/1", Text: "유연탄"},
			want: AttachmentRecord{FileName: "Spec.HWP", FileType: "hwp", FileURL: "https://srm.kepco.net/files/1", ExtractedText: "유연탄", IsParsed: true},
		},
		{
			name: "no text recovered",
			res:  DocumentResult{FileName: "scan.hwpx"},
			want: AttachmentRecord{FileName: "scan.hwpx", FileType: "hwpx"},
		},
		{
			name: "unsupported",
			res:  DocumentResult{FileName: "price.xlsx", Err: ErrUnsupportedDocumentType},
			want: AttachmentRecord{FileName: "price.xlsx", FileType: "xlsx"},
		},
		{
			name: "no extension",
			res:  DocumentResult{FileName: "notice", Text: "본문"},
			want: AttachmentRecord{FileName: "notice", ExtractedText: "본문", IsParsed: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newAttachmentRecord(tt.res))
		})
	}
}
