package tendercrawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalAttachmentSource(t *testing.T) {
	dir := t.TempDir()
	noticeDir := filepath.Join(dir, "R2026-1")
	require.NoError(t, os.MkdirAll(noticeDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(noticeDir, "b_spec.hwp"), []byte("b"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(noticeDir, "a_notice.hwpx"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(noticeDir, "price.xlsx"), []byte("x"), 0644))

	src := LocalAttachmentSource{Dir: dir}

	docs, err := src.Attachments(context.Background(), AnnouncementRecord{AnnouncementNo: "R2026-1"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a_notice.hwpx", docs[0].Name)
	assert.Equal(t, []byte("b"), docs[1].Data)

	docs, err = src.Attachments(context.Background(), AnnouncementRecord{AnnouncementNo: "missing"})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestHTTPAttachmentSource(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/notice/R1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body>
<a href="/files/1">규격서.hwp</a>
<a href="/files/spec.hwpx">download</a>
<a href="/files/1">규격서.hwp</a>
<a href="/files/price.pdf">가격표.pdf</a>
</body></html>`))
	})
	mux.HandleFunc("/files/1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hwp-bytes"))
	})
	mux.HandleFunc("/files/spec.hwpx", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hwpx-bytes"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := HTTPAttachmentSource{Client: srv.Client()}

	docs, err := src.Attachments(context.Background(), AnnouncementRecord{AnnouncementNo: "R1", DetailURL: srv.URL + "/notice/R1"})

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, RawDocument{Name: "규격서.hwp", URL: srv.URL + "/files/1", Data: []byte("hwp-bytes")}, docs[0])
	assert.Equal(t, RawDocument{Name: "spec.hwpx", URL: srv.URL + "/files/spec.hwpx", Data: []byte("hwpx-bytes")}, docs[1])
}
