package tendercrawler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
)

// RunFunc performs one scheduled crawl.
type RunFunc func(ctx context.Context, req SearchRequest) error

// Scheduler runs crawls on cron expressions (minute hour dom month dow).
// A tick that fires while a crawl is still running is skipped.
type Scheduler struct {
	cron    *cron.Cron
	parser  cron.Parser
	run     RunFunc
	logger  Logger
	running sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewScheduler(run RunFunc, logger Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Scheduler{
		cron:   cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		parser: parser,
		run:    run,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob schedules a crawl of keywords over the last days.
func (s *Scheduler) AddJob(spec string, keywords []string, days int) (cron.EntryID, error) {
	if _, err := s.parser.Parse(spec); err != nil {
		return 0, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s.cron.AddFunc(spec, func() {
		s.trigger(keywords, days)
	})
}

// trigger reports whether the crawl ran.
func (s *Scheduler) trigger(keywords []string, days int) bool {
	if !s.running.TryLock() {
		s.logger.Warn("Previous crawl still running, skipping this tick")
		return false
	}
	defer s.running.Unlock()

	req := NewSearchRequest(keywords, days)
	s.logger.Info("Scheduled crawl started for %v", req.Keywords)
	if err := s.run(s.ctx, req); err != nil {
		s.logger.Error("Scheduled crawl failed: %v", err)
	}
	return true
}

func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler with %d jobs", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop cancels the running crawl and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}
