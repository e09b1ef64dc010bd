package utils

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"attractions-scraper/config"
)

const (
	errorBackoffFactor  = 1.5
	maxDelayMultiplier  = 5.0
	successDecayFactor  = 0.9
	baseDelayMultiplier = 1.0
)

// RateController schedules adaptive delays between page requests.
// Errors geometrically inflate a delay multiplier; successes decay it
// back toward baseline, never below. Each job run owns one controller.
type RateController struct {
	cfg config.RateConfig
	log *zap.Logger
	rng *rand.Rand

	mu           sync.Mutex
	requestCount int
	errorCount   int
	multiplier   float64
}

// RateStats reports the controller's counters for job summaries.
type RateStats struct {
	TotalRequests int     `json:"total_requests"`
	Errors        int     `json:"errors"`
	Multiplier    float64 `json:"delay_multiplier"`
	ErrorRate     float64 `json:"error_rate"`
}

// NewRateController creates a controller with the given tuning.
func NewRateController(cfg config.RateConfig, log *zap.Logger) *RateController {
	return &RateController{
		cfg:        cfg,
		log:        log,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		multiplier: baseDelayMultiplier,
	}
}

// Wait suspends the caller before the next request. Every Nth call takes
// a long pause drawn from the wide interval; otherwise a base delay is
// drawn and scaled by the current multiplier. Returns early with the
// context error on cancellation.
func (rc *RateController) Wait(ctx context.Context) error {
	rc.mu.Lock()
	rc.requestCount++
	var delay time.Duration
	if rc.requestCount%rc.cfg.LongPauseEvery == 0 {
		delay = rc.randomDuration(rc.cfg.LongPauseMinSec, rc.cfg.LongPauseMaxSec)
		rc.log.Info("long pause",
			zap.Int("requests", rc.requestCount),
			zap.Duration("delay", delay))
	} else {
		base := rc.randomDuration(rc.cfg.BaseDelayMinSec, rc.cfg.BaseDelayMaxSec)
		delay = time.Duration(float64(base) * rc.multiplier)
		rc.log.Debug("rate delay",
			zap.Duration("delay", delay),
			zap.Float64("multiplier", rc.multiplier))
	}
	rc.mu.Unlock()

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// OnError inflates the delay multiplier by 50%, capped at 5x.
func (rc *RateController) OnError() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.errorCount++
	rc.multiplier = min(rc.multiplier*errorBackoffFactor, maxDelayMultiplier)
	rc.log.Warn("error detected, increasing delay multiplier",
		zap.Float64("multiplier", rc.multiplier))
}

// OnSuccess decays the multiplier toward baseline, floored at 1x.
func (rc *RateController) OnSuccess() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.multiplier > baseDelayMultiplier {
		rc.multiplier = max(rc.multiplier*successDecayFactor, baseDelayMultiplier)
		rc.log.Debug("success, decreasing delay multiplier",
			zap.Float64("multiplier", rc.multiplier))
	}
}

// RequestCount returns the number of Wait calls so far.
func (rc *RateController) RequestCount() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.requestCount
}

// Stats snapshots the controller's counters.
func (rc *RateController) Stats() RateStats {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	total := rc.requestCount
	if total == 0 {
		total = 1
	}
	return RateStats{
		TotalRequests: rc.requestCount,
		Errors:        rc.errorCount,
		Multiplier:    rc.multiplier,
		ErrorRate:     float64(rc.errorCount) / float64(total),
	}
}

func (rc *RateController) randomDuration(minSec, maxSec float64) time.Duration {
	span := maxSec - minSec
	sec := minSec + rc.rng.Float64()*span
	return time.Duration(sec * float64(time.Second))
}
