package tendercrawler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const contentType = "application/json"

// reportRelay posts finished reports to an HTTP endpoint with basic auth.
type reportRelay struct {
	client   *http.Client
	endpoint string
	username string
	password string
}

func (r *reportRelay) submitReport(ctx context.Context, report *CrawlReport) error {
	jsonPayload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("json conversion error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", report.RunID, err)
	}
	if r.username != "" {
		req.SetBasicAuth(r.username, r.password)
	}
	req.Header.Set("Content-Type", contentType)

	response, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: failed to submit request: %w", report.RunID, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
		return fmt.Errorf("API error for %s: status %d, body: %s", report.RunID, response.StatusCode, string(bodyBytes))
	}
	return nil
}
