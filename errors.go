package tendercrawler

import "errors"

var (
	// ErrTransientUI is returned when a page element is missing or not ready yet.
	// Operations failing with it are retried by the search step.
	ErrTransientUI = errors.New("transient ui failure")
	// ErrRetryExhausted is returned once a RetryPolicy has used all of its attempts.
	ErrRetryExhausted = errors.New("retry attempts exhausted")
	// ErrCrawlFailed marks an unrecoverable session level failure.
	ErrCrawlFailed = errors.New("crawl failed")
	// ErrUnsupportedDocumentType is returned by the decoder dispatch for unknown extensions.
	ErrUnsupportedDocumentType = errors.New("unsupported document type")
	// ErrPersistence wraps repository failures. The pipeline logs and swallows it.
	ErrPersistence = errors.New("persistence failure")
	// ErrWaitTimeout is returned by Page.WaitHidden when the element stays visible.
	ErrWaitTimeout = errors.New("wait timed out")
	// ErrRobotsDisallowed is returned when robots.txt forbids crawling the search page.
	ErrRobotsDisallowed = errors.New("crawling is disallowed by robots.txt")
)
