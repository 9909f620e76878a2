package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/directory-console/internal/core/domain"
	"github.com/kirillkom/directory-console/internal/core/ports"
	"github.com/kirillkom/directory-console/internal/core/synccache"
)

// PollPolicy controls how often a site's import jobs are polled.
//
// Interval applies while any job is non-terminal or of unknown status. After
// TerminalPollsBeforeRelax consecutive observations in which every job is
// terminal, the period becomes RelaxedInterval; zero stops polling until the
// slot is invalidated.
type PollPolicy struct {
	Interval                 time.Duration
	RelaxedInterval          time.Duration
	TerminalPollsBeforeRelax int
}

func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		Interval:                 3 * time.Second,
		RelaxedInterval:          30 * time.Second,
		TerminalPollsBeforeRelax: 3,
	}
}

func (p PollPolicy) normalize() PollPolicy {
	def := DefaultPollPolicy()
	if p.Interval <= 0 {
		p.Interval = def.Interval
	}
	if p.RelaxedInterval < 0 {
		p.RelaxedInterval = 0
	}
	if p.TerminalPollsBeforeRelax <= 0 {
		p.TerminalPollsBeforeRelax = def.TerminalPollsBeforeRelax
	}
	return p
}

// JobCondition is the job-level failure state shown next to a job.
type JobCondition string

const (
	ConditionNone     JobCondition = ""
	ConditionDegraded JobCondition = "degraded"
	ConditionFailed   JobCondition = "failed"
)

type JobView struct {
	Job      domain.ImportJob `json:"job"`
	Phase    string           `json:"phase"`
	Terminal bool             `json:"terminal"`
	// Elapsed runs until now for active jobs and stops at the last update for terminal ones.
	Elapsed time.Duration `json:"elapsed"`
	// Progressing is set when imported or closed counters grew since the previous observation.
	Progressing bool         `json:"progressing"`
	Condition   JobCondition `json:"condition,omitempty"`
}

type ImportBoard struct {
	SiteID       int64         `json:"site_id"`
	Jobs         []JobView     `json:"jobs"`
	HasData      bool          `json:"has_data"`
	Stale        bool          `json:"stale"`
	Error        string        `json:"error,omitempty"`
	AllTerminal  bool          `json:"all_terminal"`
	PollInterval time.Duration `json:"poll_interval"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

type TransitionRecorder interface {
	RecordJobTransition(from, to string)
}

type ImportMonitor struct {
	resources   *Resources
	coordinator *MutationCoordinator
	publisher   ports.TransitionPublisher
	recorder    TransitionRecorder
	policy      PollPolicy
	logger      *slog.Logger
	now         func() time.Time

	mu     sync.Mutex
	tracks map[int64]*siteTrack
}

type MonitorOption func(*ImportMonitor)

func WithTransitionPublisher(publisher ports.TransitionPublisher) MonitorOption {
	return func(m *ImportMonitor) { m.publisher = publisher }
}

func WithTransitionRecorder(recorder TransitionRecorder) MonitorOption {
	return func(m *ImportMonitor) { m.recorder = recorder }
}

func WithMonitorClock(now func() time.Time) MonitorOption {
	return func(m *ImportMonitor) { m.now = now }
}

func NewImportMonitor(
	resources *Resources,
	coordinator *MutationCoordinator,
	policy PollPolicy,
	logger *slog.Logger,
	opts ...MonitorOption,
) *ImportMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	m := &ImportMonitor{
		resources:   resources,
		coordinator: coordinator,
		policy:      policy.normalize(),
		logger:      logger,
		now:         time.Now,
		tracks:      make(map[int64]*siteTrack),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *ImportMonitor) Policy() PollPolicy { return m.policy }

// Board loads the import jobs of a site once and interprets them.
func (m *ImportMonitor) Board(ctx context.Context, siteID int64) (ImportBoard, error) {
	snap, err := m.resources.Load(ctx, synccache.ImportsKey(siteID))
	if err != nil {
		return ImportBoard{}, err
	}
	return m.observe(siteID, snap), nil
}

// ImportWatch is one live viewer of a site's import board.
type ImportWatch struct {
	sub    *synccache.Subscription
	boards chan ImportBoard
	done   chan struct{}
	once   sync.Once
}

// Boards delivers the latest board. A slow reader skips intermediate boards.
// The channel is closed when the watch ends.
func (w *ImportWatch) Boards() <-chan ImportBoard { return w.boards }

// Close stops the watch and releases its cache subscription.
func (w *ImportWatch) Close() {
	w.once.Do(func() {
		w.sub.Close()
	})
	<-w.done
}

// Watch subscribes to a site's import jobs, polling at the policy interval
// and adjusting it as the board changes. The watch ends when ctx is done or
// Close is called.
func (m *ImportMonitor) Watch(ctx context.Context, siteID int64) (*ImportWatch, error) {
	sub, err := m.resources.Subscribe(synccache.ImportsKey(siteID), m.policy.Interval)
	if err != nil {
		return nil, err
	}

	w := &ImportWatch{
		sub:    sub,
		boards: make(chan ImportBoard, 1),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(w.done)
		defer close(w.boards)
		for {
			select {
			case <-ctx.Done():
				w.once.Do(sub.Close)
				for range sub.Updates() {
				}
				return
			case snap, ok := <-sub.Updates():
				if !ok {
					return
				}
				board := m.observe(siteID, snap)
				sub.SetInterval(board.PollInterval)
				publishLatest(w.boards, board)
			}
		}
	}()

	m.logger.Info("import_watch_started", "site_id", siteID, "subscription_id", sub.ID())
	return w, nil
}

// publishLatest replaces whatever is buffered in ch with v.
func publishLatest[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

// siteTrack keeps the merged observation history of one site so that all
// viewers agree on counters, terminal states and transitions.
type siteTrack struct {
	seen     bool
	version  uint64
	jobs     map[int64]domain.ImportJob
	streak   int
	lastSeen ImportBoard
}

func (m *ImportMonitor) track(siteID int64) *siteTrack {
	t, ok := m.tracks[siteID]
	if !ok {
		t = &siteTrack{jobs: make(map[int64]domain.ImportJob)}
		m.tracks[siteID] = t
	}
	return t
}

func (m *ImportMonitor) observe(siteID int64, snap synccache.Snapshot) ImportBoard {
	m.mu.Lock()
	t := m.track(siteID)
	if t.seen && snap.Version == t.version {
		board := t.lastSeen
		m.mu.Unlock()
		return board
	}

	now := m.now()
	board := ImportBoard{
		SiteID:       siteID,
		Jobs:         []JobView{},
		Stale:        snap.Stale,
		PollInterval: m.policy.Interval,
		UpdatedAt:    snap.UpdatedAt,
	}
	if snap.Err != nil {
		board.Error = snap.Err.Error()
	}

	var transitions []domain.JobTransition
	var completed bool
	jobs, ok := synccache.Value[[]domain.ImportJob](snap)
	if ok {
		board.HasData = true
		allTerminal := true
		for _, observed := range jobs {
			prev, known := t.jobs[observed.ID]
			var merged domain.ImportJob
			if known {
				var regressions []string
				merged, regressions = mergeObservation(prev, observed)
				if len(regressions) > 0 {
					m.logger.Warn("import_job_regression_ignored",
						"site_id", siteID,
						"job_id", observed.ID,
						"fields", regressions,
					)
				}
			} else {
				merged = observed
			}
			t.jobs[observed.ID] = merged

			if (known && prev.Status != merged.Status) || (!known && t.seen) {
				from := domain.JobStatus("")
				if known {
					from = prev.Status
				}
				transitions = append(transitions, newTransition(siteID, from, merged, now))
				if merged.Status == domain.JobStatusCompleted {
					completed = true
				}
			}

			view := jobView(merged, now)
			if known {
				view.Progressing = merged.TotalImported > prev.TotalImported || merged.TotalClosed > prev.TotalClosed
			}
			if !view.Terminal {
				allTerminal = false
			}
			board.Jobs = append(board.Jobs, view)
		}
		board.AllTerminal = allTerminal

		switch {
		case snap.Stale:
			t.streak = 0
		case allTerminal:
			t.streak++
		default:
			t.streak = 0
		}
		if t.streak >= m.policy.TerminalPollsBeforeRelax {
			board.PollInterval = m.policy.RelaxedInterval
		}
	}

	t.seen = true
	t.version = snap.Version
	t.lastSeen = board
	m.mu.Unlock()

	m.emit(transitions)
	if completed && m.coordinator != nil {
		m.coordinator.Refresh(synccache.EstablishmentsKey(siteID))
	}
	return board
}

func (m *ImportMonitor) emit(transitions []domain.JobTransition) {
	for _, tr := range transitions {
		m.logger.Info("import_job_transition",
			"site_id", tr.SiteID,
			"job_id", tr.JobID,
			"from", string(tr.From),
			"to", string(tr.To),
			"total_imported", tr.TotalImported,
			"total_closed", tr.TotalClosed,
			"total_errors", tr.TotalErrors,
		)
		if m.recorder != nil {
			m.recorder.RecordJobTransition(string(tr.From), string(tr.To))
		}
		if m.publisher == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := m.publisher.PublishJobTransition(ctx, tr); err != nil {
			m.logger.Error("import_job_transition_publish_failed", "site_id", tr.SiteID, "job_id", tr.JobID, "error", err)
		}
		cancel()
	}
}

func newTransition(siteID int64, from domain.JobStatus, job domain.ImportJob, now time.Time) domain.JobTransition {
	return domain.JobTransition{
		EventID:       uuid.NewString(),
		SiteID:        siteID,
		JobID:         job.ID,
		From:          from,
		To:            job.Status,
		TotalImported: job.TotalImported,
		TotalClosed:   job.TotalClosed,
		TotalErrors:   job.TotalErrors,
		LastError:     job.LastError,
		ObservedAt:    now.UTC(),
	}
}

// mergeObservation applies next over prev without letting counters decrease
// or a job leave a terminal state. It names the fields the server regressed.
func mergeObservation(prev, next domain.ImportJob) (domain.ImportJob, []string) {
	merged := next
	var regressions []string

	if next.TotalImported < prev.TotalImported {
		merged.TotalImported = prev.TotalImported
		regressions = append(regressions, "total_imported")
	}
	if next.TotalClosed < prev.TotalClosed {
		merged.TotalClosed = prev.TotalClosed
		regressions = append(regressions, "total_closed")
	}
	if next.TotalErrors < prev.TotalErrors {
		merged.TotalErrors = prev.TotalErrors
		regressions = append(regressions, "total_errors")
	}

	prevPhase, nextPhase := prev.Status.Phase(), next.Status.Phase()
	switch {
	case prev.Status.IsTerminal() && next.Status != prev.Status:
		merged.Status = prev.Status
		regressions = append(regressions, "status")
	case prevPhase != domain.PhaseUnknown && nextPhase != domain.PhaseUnknown && nextPhase < prevPhase:
		merged.Status = prev.Status
		regressions = append(regressions, "status")
	}

	if next.UpdatedAt.Before(prev.UpdatedAt) {
		merged.UpdatedAt = prev.UpdatedAt
	}
	if merged.LastError == "" && prev.LastError != "" && prev.Status.IsTerminal() {
		merged.LastError = prev.LastError
	}
	return merged, regressions
}

func jobView(job domain.ImportJob, now time.Time) JobView {
	view := JobView{
		Job:      job,
		Phase:    job.Status.Phase().String(),
		Terminal: job.Status.IsTerminal(),
	}

	end := now
	if view.Terminal && !job.UpdatedAt.IsZero() {
		end = job.UpdatedAt
	}
	if !job.CreatedAt.IsZero() && end.After(job.CreatedAt) {
		view.Elapsed = end.Sub(job.CreatedAt)
	}

	switch {
	case job.Status == domain.JobStatusFailed:
		view.Condition = ConditionFailed
	case job.LastError != "" || job.TotalErrors > 0:
		view.Condition = ConditionDegraded
	}
	return view
}
