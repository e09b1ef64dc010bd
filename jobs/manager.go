package jobs

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"attractions-scraper/config"
	"attractions-scraper/scraper"
	"attractions-scraper/services"
	"attractions-scraper/storage"
	"attractions-scraper/utils"
)

// Job lookup and result errors.
var (
	ErrJobNotFound = errors.New("jobs: no such job")
	ErrJobNotDone  = errors.New("jobs: results not ready")
	ErrJobFailed   = errors.New("jobs: job failed")
	ErrNoInput     = errors.New("jobs: empty input")
)

// DriverSession is the browser session a job drives. Refresh replaces
// the underlying page between batches of requests.
type DriverSession interface {
	scraper.PageDriver
	Refresh() error
	Close()
}

// SessionFactory creates a fresh browser session for one job.
type SessionFactory func() (DriverSession, error)

// Manager is the central job registry. It accepts submissions, caps
// how many jobs run at once, and serves progress and results lookups.
type Manager struct {
	cfg      *config.Config
	log      *zap.Logger
	sessions SessionFactory
	sink     storage.RecordWriter

	pool *utils.WorkerPool

	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewManager creates a Manager. sink may be nil when no database
// persistence is configured.
func NewManager(cfg *config.Config, sessions SessionFactory, sink storage.RecordWriter, log *zap.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		log:      log,
		sessions: sessions,
		sink:     sink,
		pool:     utils.NewWorkerPool(cfg.Jobs.MaxConcurrent),
		jobs:     make(map[string]*Job),
	}
}

// SubmitURLBatch registers a job scraping each URL directly and
// schedules it. Returns the new job id.
func (m *Manager) SubmitURLBatch(urls []string, outputName string) (string, error) {
	if len(urls) == 0 {
		return "", ErrNoInput
	}
	job := m.register(ModeURLBatch, outputName, len(urls))
	m.schedule(job, &services.InputSet{URLs: urls})
	return job.ID(), nil
}

// SubmitSearchJob registers a job that resolves each item through maps
// search before scraping. mode selects first-hit or all-hits scraping.
func (m *Manager) SubmitSearchJob(items []services.SearchItem, mode Mode, outputName string) (string, error) {
	if len(items) == 0 {
		return "", ErrNoInput
	}
	if mode != ModeSearchFirst && mode != ModeSearchAll {
		mode = ModeSearchFirst
	}
	job := m.register(mode, outputName, len(items))
	m.schedule(job, &services.InputSet{Searches: items})
	return job.ID(), nil
}

// SubmitInput registers a job for a parsed input file, mixing direct
// URLs and search items.
func (m *Manager) SubmitInput(set *services.InputSet, mode Mode, outputName string) (string, error) {
	if len(set.URLs) == 0 && len(set.Searches) == 0 {
		return "", ErrNoInput
	}
	if mode == "" {
		mode = ModeURLBatch
		if len(set.Searches) > 0 {
			mode = ModeSearchFirst
		}
	}
	job := m.register(mode, outputName, len(set.URLs)+len(set.Searches))
	m.schedule(job, set)
	return job.ID(), nil
}

func (m *Manager) register(mode Mode, outputName string, totalItems int) *Job {
	id := newJobID()
	if outputName == "" {
		outputName = "run_" + time.Now().Format("20060102_150405") + "_" + id[:6]
	}
	job := newJob(id, mode, outputName, totalItems)

	m.mu.Lock()
	m.jobs[id] = job
	m.mu.Unlock()

	m.log.Info("job registered",
		zap.String("job_id", id),
		zap.String("mode", string(mode)),
		zap.String("output", outputName),
		zap.Int("items", totalItems))
	return job
}

func (m *Manager) schedule(job *Job, set *services.InputSet) {
	m.pool.Submit(func() {
		m.run(job, set)
	})
}

// Progress returns a snapshot of the job's state.
func (m *Manager) Progress(jobID string) (Progress, error) {
	job, err := m.lookup(jobID)
	if err != nil {
		return Progress{}, err
	}
	return job.Progress(), nil
}

// Results returns the final records of a completed job. While the job
// is still pending or running it reports ErrJobNotDone; a failed job
// surfaces its stored error.
func (m *Manager) Results(jobID string) (*Results, error) {
	job, err := m.lookup(jobID)
	if err != nil {
		return nil, err
	}

	p := job.Progress()
	switch p.Status {
	case StatusCompleted:
	case StatusFailed:
		return nil, fmt.Errorf("%w: %s", ErrJobFailed, p.Error)
	default:
		return nil, fmt.Errorf("%w: job is %s", ErrJobNotDone, p.Status)
	}

	job.mu.Lock()
	r := job.results
	job.mu.Unlock()
	if r == nil {
		return nil, ErrJobNotDone
	}
	return r, nil
}

// Cancel requests cooperative cancellation of a running job. It
// returns false for pending, terminal, or unknown jobs. The job keeps
// running until its current item finishes.
func (m *Manager) Cancel(jobID string) bool {
	job, err := m.lookup(jobID)
	if err != nil {
		return false
	}
	ok := job.requestCancel()
	if ok {
		m.log.Info("job cancellation requested", zap.String("job_id", jobID))
	}
	return ok
}

// List returns a snapshot of every registered job, newest first.
func (m *Manager) List() []Progress {
	m.mu.RLock()
	out := make([]Progress, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, job.Progress())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Wait blocks until every scheduled job has finished. Used by the CLI
// path, which submits one job and waits for it.
func (m *Manager) Wait() {
	m.pool.Wait()
}

func (m *Manager) lookup(jobID string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return job, nil
}

func newJobID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
