package tendercrawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

const maxAttachmentSize = 50 << 20

// AttachmentSource returns the documents attached to an announcement.
type AttachmentSource interface {
	Attachments(ctx context.Context, rec AnnouncementRecord) ([]RawDocument, error)
}

// LocalAttachmentSource reads files saved under Dir/<announcement no>/.
type LocalAttachmentSource struct {
	Dir string
}

func (s LocalAttachmentSource) Attachments(_ context.Context, rec AnnouncementRecord) ([]RawDocument, error) {
	dir := filepath.Join(s.Dir, sanitizeFileName(rec.AnnouncementNo))
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments of %s: %w", rec.AnnouncementNo, err)
	}

	var docs []RawDocument
	for _, e := range entries {
		if e.IsDir() || !IsSupportedDocument(e.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return docs, fmt.Errorf("failed to read attachment %s: %w", e.Name(), err)
		}
		docs = append(docs, RawDocument{Name: e.Name(), Data: data})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// HTTPAttachmentSource scrapes the announcement detail page for document links
// and downloads them.
type HTTPAttachmentSource struct {
	Client    *http.Client
	UserAgent string
}

func (s HTTPAttachmentSource) Attachments(ctx context.Context, rec AnnouncementRecord) ([]RawDocument, error) {
	if rec.DetailURL == "" {
		return nil, nil
	}
	body, contentType, err := s.get(ctx, rec.DetailURL)
	if err != nil {
		return nil, err
	}

	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to create reader with correct encoding: %w", err)
	}
	document, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, err
	}

	links := attachmentLinks(document, rec.DetailURL)
	var docs []RawDocument
	for _, link := range links {
		data, _, err := s.get(ctx, link.url)
		if err != nil {
			return docs, fmt.Errorf("failed to download %s: %w", link.name, err)
		}
		docs = append(docs, RawDocument{Name: link.name, URL: link.url, Data: data})
	}
	return docs, nil
}

type attachmentLink struct {
	name string
	url  string
}

// attachmentLinks returns the unique .hwp/.hwpx links of a page, resolved against pageURL.
func attachmentLinks(document *goquery.Document, pageURL string) []attachmentLink {
	base, _ := url.Parse(pageURL)
	seen := make(map[string]bool)
	var links []attachmentLink
	document.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		name := strings.TrimSpace(a.Text())
		if !IsSupportedDocument(name) {
			name = path.Base(ref.Path)
		}
		if !IsSupportedDocument(name) {
			return
		}
		full := ref.String()
		if base != nil {
			full = base.ResolveReference(ref).String()
		}
		if seen[full] {
			return
		}
		seen[full] = true
		links = append(links, attachmentLink{name: name, url: full})
	})
	return links
}

func (s HTTPAttachmentSource) get(ctx context.Context, target string) ([]byte, string, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", err
	}
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, target)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentSize))
	if err != nil {
		return nil, "", err
	}
	return body, resp.Header.Get("Content-Type"), nil
}
