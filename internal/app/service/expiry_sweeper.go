package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sifan077/QRHub/internal/app/expiry"
	"github.com/sifan077/QRHub/internal/app/model"
	apprepository "github.com/sifan077/QRHub/internal/app/repository"
	"go.uber.org/zap"
)

const (
	defaultSweepHour        = 2
	defaultSweepInterval    = 24 * time.Hour
	defaultExpiringSoonDays = 2
)

// SweepResult holds the mappings found by one sweep.
type SweepResult struct {
	RanAt        time.Time
	Expired      []model.Mapping
	ExpiringSoon []model.Mapping
}

// Summary converts the result to its wire form.
func (r *SweepResult) Summary() *model.SweepSummary {
	return &model.SweepSummary{
		RanAt:        r.RanAt,
		Expired:      sweepEntries(r.Expired),
		ExpiringSoon: sweepEntries(r.ExpiringSoon),
	}
}

func sweepEntries(mappings []model.Mapping) []model.SweepEntry {
	entries := make([]model.SweepEntry, 0, len(mappings))
	for _, m := range mappings {
		entry := model.SweepEntry{ID: m.ID, URL: m.URL}
		if m.ExpiresAt != nil {
			entry.ExpiresAt = *m.ExpiresAt
		}
		entries = append(entries, entry)
	}
	return entries
}

// SweepReporter receives every completed sweep.
type SweepReporter interface {
	ReportSweep(ctx context.Context, result *SweepResult) error
}

// SweeperDeps configures an ExpirySweeper.
type SweeperDeps struct {
	Logger    *zap.Logger
	Repo      apprepository.MappingRepository
	Reporters []SweepReporter
	Metrics   MetricsRecorder
	// Hour is the local wall-clock hour of the first run; nil means 02:00.
	Hour             *int
	ExpiringSoonDays int
	Interval         time.Duration
	Now              func() time.Time
}

// ExpirySweeper periodically lists expired and soon-to-expire mappings and
// reports them. It never modifies mappings.
type ExpirySweeper struct {
	logger     *zap.Logger
	repo       apprepository.MappingRepository
	reporters  []SweepReporter
	metrics    MetricsRecorder
	hour       int
	windowDays int
	interval   time.Duration
	now        func() time.Time

	startOnce sync.Once
	stopOnce  sync.Once
	stopChan  chan struct{}
	done      chan struct{}
}

// NewExpirySweeper creates a new expiry sweeper.
func NewExpirySweeper(deps SweeperDeps) *ExpirySweeper {
	s := &ExpirySweeper{
		logger:     deps.Logger,
		repo:       deps.Repo,
		reporters:  deps.Reporters,
		metrics:    deps.Metrics,
		hour:       defaultSweepHour,
		windowDays: deps.ExpiringSoonDays,
		interval:   deps.Interval,
		now:        deps.Now,
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if deps.Hour != nil && *deps.Hour >= 0 && *deps.Hour <= 23 {
		s.hour = *deps.Hour
	}
	if s.windowDays <= 0 {
		s.windowDays = defaultExpiringSoonDays
	}
	if s.interval <= 0 {
		s.interval = defaultSweepInterval
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// NextRun returns the next occurrence of hour:00 local time at or after now.
func NextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if now.After(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start schedules the sweep loop. Calling it more than once has no effect.
func (s *ExpirySweeper) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

// Stop ends the sweep loop and waits for it to exit. A sweeper that was
// never started cannot be started afterwards.
func (s *ExpirySweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.startOnce.Do(func() { close(s.done) })
	<-s.done
}

func (s *ExpirySweeper) run() {
	defer close(s.done)

	now := s.now()
	first := NextRun(now, s.hour)
	s.logger.Info("expiry sweep scheduled",
		zap.Time("first_run", first),
		zap.Duration("interval", s.interval),
	)

	timer := time.NewTimer(first.Sub(now))
	defer timer.Stop()

	select {
	case <-timer.C:
		s.fire()
	case <-s.stopChan:
		s.logger.Info("expiry sweeper stopped")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.fire()
		case <-s.stopChan:
			s.logger.Info("expiry sweeper stopped")
			return
		}
	}
}

func (s *ExpirySweeper) fire() {
	if _, err := s.Sweep(context.Background()); err != nil {
		// The next scheduled run proceeds regardless.
		s.logger.Error("expiry sweep failed", zap.Error(err))
	}
}

// Sweep queries expired and expiring mappings once, reports them and returns
// the result to the caller.
func (s *ExpirySweeper) Sweep(ctx context.Context) (*SweepResult, error) {
	now := s.now()

	expired, err := s.repo.ListExpired(ctx, now)
	if err != nil {
		s.metrics.SweepFailed()
		return nil, fmt.Errorf("list expired mappings: %w", err)
	}

	expiringSoon, err := s.repo.ListExpiringSoon(ctx, now, s.windowDays)
	if err != nil {
		s.metrics.SweepFailed()
		return nil, fmt.Errorf("list expiring mappings: %w", err)
	}

	result := &SweepResult{
		RanAt:        now,
		Expired:      expired,
		ExpiringSoon: expiringSoon,
	}

	s.metrics.SweepCompleted(len(expired), len(expiringSoon))
	for _, reporter := range s.reporters {
		if err := reporter.ReportSweep(ctx, result); err != nil {
			s.logger.Error("failed to report expiry sweep", zap.Error(err))
		}
	}

	return result, nil
}

// LogSweepReporter writes sweep results to the structured log.
type LogSweepReporter struct {
	logger *zap.Logger
}

// NewLogSweepReporter returns a reporter that logs through logger.
func NewLogSweepReporter(logger *zap.Logger) *LogSweepReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSweepReporter{logger: logger}
}

func (r *LogSweepReporter) ReportSweep(_ context.Context, result *SweepResult) error {
	r.logSet("expired mappings found", "no expired mappings found", result.Expired, result.RanAt)
	r.logSet("mappings expiring soon", "no mappings expiring soon", result.ExpiringSoon, result.RanAt)
	return nil
}

func (r *LogSweepReporter) logSet(found, none string, mappings []model.Mapping, now time.Time) {
	if len(mappings) == 0 {
		r.logger.Info(none)
		return
	}

	r.logger.Info(found, zap.Int("count", len(mappings)))
	for _, m := range mappings {
		r.logger.Info(found,
			zap.String("id", m.ID),
			zap.String("url", m.URL),
			zap.String("expires_at", expiry.Format(m.ExpiresAt)),
			zap.Int("remaining_days", expiry.RemainingDays(m.ExpiresAt, now)),
		)
	}
}
