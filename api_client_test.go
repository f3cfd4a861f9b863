package tendercrawler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportRelay_SubmitReport(t *testing.T) {
	var got CrawlReport
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "relay", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	relay := &reportRelay{client: srv.Client(), endpoint: srv.URL, username: "relay", password: "secret"}

	err := relay.submitReport(context.Background(), &CrawlReport{
		RunID:         "run-1",
		Announcements: []AnnouncementRecord{{AnnouncementNo: "R1"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, "R1", got.Announcements[0].AnnouncementNo)
}

func TestReportRelay_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	relay := &reportRelay{client: srv.Client(), endpoint: srv.URL}

	err := relay.submitReport(context.Background(), &CrawlReport{RunID: "run-2"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
	assert.Contains(t, err.Error(), "quota exceeded")
}
