package tendercrawler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSearcher struct {
	searchFunc func(req SearchRequest) ([]AnnouncementRecord, error)
	got        []SearchRequest
}

func (m *mockSearcher) Search(_ context.Context, req SearchRequest) ([]AnnouncementRecord, error) {
	m.got = append(m.got, req)
	if m.searchFunc != nil {
		return m.searchFunc(req)
	}
	return nil, nil
}

func setupTestRouter(t *testing.T, searcher Searcher) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewRouter(NewCrawlHandler(searcher, newNopLogger()))
}

func postJSON(t *testing.T, router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, path, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestCrawlHandler_Health(t *testing.T) {
	router := setupTestRouter(t, &mockSearcher{})
	w := httptest.NewRecorder()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "/", nil)
	require.NoError(t, err)

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","service":"tendercrawler"}`, w.Body.String())
}

func TestCrawlHandler_CrawlKepco(t *testing.T) {
	searcher := &mockSearcher{searchFunc: func(req SearchRequest) ([]AnnouncementRecord, error) {
		return []AnnouncementRecord{{AnnouncementNo: "R1", KeywordMatched: req.Keywords[0]}}, nil
	}}
	router := setupTestRouter(t, searcher)

	w := postJSON(t, router, "/crawl/kepco", `{"keyword":"유연탄","days":7}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp crawlResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "R1", resp.Results[0].AnnouncementNo)

	require.Len(t, searcher.got, 1)
	req := searcher.got[0]
	assert.Equal(t, []string{"유연탄"}, req.Keywords)
	assert.Equal(t, DefaultMaxResults, req.MaxResults)
	require.NotNil(t, req.Start)
	assert.Equal(t, 7, int(req.End.Sub(*req.Start).Hours()/24))
}

func TestCrawlHandler_DefaultDaysAndEmptyResults(t *testing.T) {
	searcher := &mockSearcher{}
	router := setupTestRouter(t, searcher)

	w := postJSON(t, router, "/crawl/kepco", `{"keyword":"석탄"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":0,"results":[]}`, w.Body.String())
	req := searcher.got[0]
	assert.Equal(t, DefaultSearchDays, int(req.End.Sub(*req.Start).Hours()/24))
}

func TestCrawlHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{name: "missing keyword", body: `{"days":3}`, status: http.StatusBadRequest},
		{name: "malformed", body: `{`, status: http.StatusBadRequest},
		{name: "blank keyword", body: `{"keyword":"   "}`, status: http.StatusBadRequest},
		{name: "crawl failure", body: `{"keyword":"유연탄"}`, err: ErrCrawlFailed, status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &mockSearcher{searchFunc: func(SearchRequest) ([]AnnouncementRecord, error) {
				return nil, tt.err
			}}
			router := setupTestRouter(t, searcher)

			w := postJSON(t, router, "/crawl/kepco", tt.body)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), "detail")
			if tt.status == http.StatusBadRequest {
				assert.Empty(t, searcher.got)
			}
		})
	}
}

func TestCrawlHandler_RejectsConcurrentCrawl(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	searcher := &mockSearcher{searchFunc: func(SearchRequest) ([]AnnouncementRecord, error) {
		close(started)
		<-release
		return nil, errors.New("cancelled")
	}}
	router := setupTestRouter(t, searcher)

	done := make(chan int)
	go func() {
		done <- postJSON(t, router, "/crawl/kepco", `{"keyword":"유연탄"}`).Code
	}()
	<-started

	w := postJSON(t, router, "/crawl/kepco", `{"keyword":"석탄"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	close(release)
	assert.Equal(t, http.StatusInternalServerError, <-done)
}
