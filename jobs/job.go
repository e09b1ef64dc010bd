// Package jobs runs scraping work: each job owns a browser session, a
// rate controller and an item queue, processed strictly in order.
// Multiple jobs may run concurrently up to a configured cap.
package jobs

import (
	"context"
	"sync"
	"time"

	"attractions-scraper/models"
	"attractions-scraper/utils"
)

// Status is a job's lifecycle state. Transitions are one-way:
// pending → running → {completed, failed, cancelled}.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Mode describes how a job's input is interpreted.
type Mode string

const (
	// ModeURLBatch scrapes each input URL directly.
	ModeURLBatch Mode = "url_batch"
	// ModeSearchFirst resolves each search item and scrapes the first hit.
	ModeSearchFirst Mode = "search_first"
	// ModeSearchAll resolves each search item and scrapes every hit.
	ModeSearchAll Mode = "search_all"
)

// Progress is a point-in-time snapshot of a job. Counts always reflect
// work actually recorded; cancellation takes effect at the next item
// boundary, so a snapshot taken right after Cancel may still show the
// job running.
type Progress struct {
	ID         string         `json:"id"`
	Mode       Mode           `json:"mode"`
	OutputName string         `json:"output_name"`
	Status     Status         `json:"status"`
	TotalItems int            `json:"total_items"`
	Processed  int            `json:"processed"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	ByType     map[string]int `json:"by_type"`
	Error      string         `json:"error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Results is the final payload of a completed job.
type Results struct {
	Metadata Progress                       `json:"metadata"`
	Records  map[string][]models.Attraction `json:"records_by_type"`
	Failed   []models.FailedAttempt         `json:"failed_attractions"`
	Rate     utils.RateStats                `json:"rate"`
}

// Job is one registered unit of scraping work.
type Job struct {
	id         string
	mode       Mode
	outputName string
	createdAt  time.Time

	mu        sync.Mutex
	status    Status
	errMsg    string
	total     int
	processed int
	stats     models.Stats
	cancel    context.CancelFunc
	results   *Results
}

func newJob(id string, mode Mode, outputName string, totalItems int) *Job {
	return &Job{
		id:         id,
		mode:       mode,
		outputName: outputName,
		createdAt:  time.Now().UTC(),
		status:     StatusPending,
		total:      totalItems,
	}
}

// ID returns the job's opaque identifier.
func (j *Job) ID() string { return j.id }

func (j *Job) bindCancel(cancel context.CancelFunc) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cancel = cancel
}

func (j *Job) markRunning() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status == StatusPending {
		j.status = StatusRunning
	}
}

func (j *Job) finish(status Status, errMsg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return
	}
	j.status = status
	j.errMsg = errMsg
	j.cancel = nil
}

// requestCancel cancels the run context if the job is currently
// running. Pending and terminal jobs reject cancellation.
func (j *Job) requestCancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusRunning || j.cancel == nil {
		return false
	}
	j.cancel()
	return true
}

// observe updates progress counters from the live result set.
func (j *Job) observe(processed int, stats models.Stats) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.processed = processed
	j.stats = stats
}

// setTotal widens the queue after search resolution adds items.
func (j *Job) setTotal(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.total = n
}

func (j *Job) setResults(r *Results) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results = r
}

// Progress snapshots the job's current state.
func (j *Job) Progress() Progress {
	j.mu.Lock()
	defer j.mu.Unlock()
	byType := make(map[string]int, len(j.stats.ByType))
	for k, v := range j.stats.ByType {
		byType[k] = v
	}
	return Progress{
		ID:         j.id,
		Mode:       j.mode,
		OutputName: j.outputName,
		Status:     j.status,
		TotalItems: j.total,
		Processed:  j.processed,
		Succeeded:  j.stats.Successful,
		Failed:     j.stats.Failed,
		ByType:     byType,
		Error:      j.errMsg,
		CreatedAt:  j.createdAt,
	}
}
