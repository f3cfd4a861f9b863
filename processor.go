package tendercrawler

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DocumentJob is one attachment of an announcement waiting to be analysed.
type DocumentJob struct {
	AnnouncementNo string
	Document       RawDocument
}

// DocumentProcessor decodes and analyses attachments concurrently.
type DocumentProcessor struct {
	decoder   *DocumentDecoder
	extractor *SpecExtractor
	limit     int
	logger    Logger
}

func NewDocumentProcessor(decoder *DocumentDecoder, extractor *SpecExtractor, limit int, logger Logger) *DocumentProcessor {
	if logger == nil {
		logger = newNopLogger()
	}
	if decoder == nil {
		decoder = NewDocumentDecoder(logger)
	}
	if extractor == nil {
		extractor = NewSpecExtractor()
	}
	if limit <= 0 {
		limit = 1
	}
	return &DocumentProcessor{decoder: decoder, extractor: extractor, limit: limit, logger: logger}
}

// Process returns one result per job, in job order. A failing job never stops the others.
func (p *DocumentProcessor) Process(ctx context.Context, jobs []DocumentJob) []DocumentResult {
	results := make([]DocumentResult, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = DocumentResult{AnnouncementNo: job.AnnouncementNo, FileName: job.Document.Name, Err: err}
				return nil
			}
			results[i] = p.ProcessOne(job)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (p *DocumentProcessor) ProcessOne(job DocumentJob) DocumentResult {
	res := DocumentResult{AnnouncementNo: job.AnnouncementNo, FileName: job.Document.Name, FileURL: job.Document.URL}

	text, err := p.decoder.Decode(job.Document)
	if err != nil {
		p.logger.Warn("Skipping %s of %s: %v", job.Document.Name, job.AnnouncementNo, err)
		res.Err = err
		return res
	}
	if text == "" {
		p.logger.Warn("Decode degraded: no text recovered from %s of %s", job.Document.Name, job.AnnouncementNo)
	}

	res.Text = text
	res.Relevance, res.Spec = p.extractor.Analyze(text)
	if res.Relevance.Relevant {
		p.logger.Info("%s of %s is coal related (%v)", job.Document.Name, job.AnnouncementNo, res.Relevance.Keywords)
	}
	return res
}
