package jobs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"attractions-scraper/models"
	"attractions-scraper/scraper"
	"attractions-scraper/services"
	"attractions-scraper/storage"
	"attractions-scraper/utils"
)

// queueItem is one URL to scrape, optionally carrying the type hint of
// the search item that produced it.
type queueItem struct {
	url      string
	typeHint string
}

func (m *Manager) run(job *Job, set *services.InputSet) {
	ctx, cancel := context.WithCancel(context.Background())
	job.bindCancel(cancel)
	defer cancel()
	job.markRunning()

	log := m.log.With(zap.String("job_id", job.ID()))
	log.Info("job started", zap.String("mode", string(job.mode)))

	err := m.execute(ctx, job, set, log)
	switch {
	case errors.Is(err, context.Canceled):
		job.finish(StatusCancelled, "")
		log.Info("job cancelled")
	case err != nil:
		job.finish(StatusFailed, err.Error())
		log.Error("job failed", zap.Error(err))
	default:
		job.finish(StatusCompleted, "")
		log.Info("job completed")
	}
}

// execute drives the whole run. Any error it returns is fatal to the
// job; per-item errors are swallowed into the failed-attempts list and
// the loop continues.
func (m *Manager) execute(ctx context.Context, job *Job, set *services.InputSet, log *zap.Logger) error {
	session, err := m.sessions()
	if err != nil {
		return fmt.Errorf("open browser session: %w", err)
	}
	defer session.Close()

	store, err := storage.NewStore(m.cfg.Output.Dir, job.outputName, m.cfg.Output.CheckpointEnabled, log)
	if err != nil {
		return err
	}

	results, err := store.LoadCheckpoint()
	if err != nil {
		return err
	}
	if results == nil {
		results = models.NewResultSet()
	}

	seen := utils.NewURLSet()
	for _, u := range results.ProcessedURLs() {
		seen.Add(u)
	}

	rate := utils.NewRateController(m.cfg.Rate, log)
	retrier := &utils.Retrier{
		MaxAttempts: m.cfg.Retry.MaxAttempts,
		BaseDelay:   time.Duration(m.cfg.Retry.BaseDelaySec) * time.Second,
		Log:         log,
	}
	validator := services.NewValidator(log)
	extractor := scraper.NewExtractor(session, m.cfg, log)

	queue := make([]queueItem, 0, len(set.URLs))
	for _, u := range set.URLs {
		queue = append(queue, queueItem{url: u})
	}

	if len(set.Searches) > 0 {
		queue, err = m.resolveSearches(ctx, job, set.Searches, queue, session, rate, results, store, log)
		if err != nil {
			return err
		}
		job.setTotal(len(queue))
	}

	processed := 0
	sinceRefresh := 0
	for _, item := range queue {
		// Cancellation is polled here, between items, never mid-item.
		if err := ctx.Err(); err != nil {
			return err
		}

		if seen.Contains(item.url) {
			log.Debug("skipping already-recorded url", zap.String("url", item.url))
			processed++
			job.observe(processed, results.Stats())
			continue
		}

		if sinceRefresh >= m.cfg.Scrape.SessionRefreshEvery {
			if err := session.Refresh(); err != nil {
				return fmt.Errorf("session refresh: %w", err)
			}
			extractor = scraper.NewExtractor(session, m.cfg, log)
			sinceRefresh = 0
		}

		if err := rate.Wait(ctx); err != nil {
			return err
		}
		sinceRefresh++

		record, err := m.scrapeOne(ctx, session, extractor, retrier, validator, item, log)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("item failed", zap.String("url", item.url), zap.Error(err))
			results.AddFailed(item.url, err.Error())
			rate.OnError()
			m.captureErrorState(ctx, session, store, processed, log)
		} else {
			results.Add(record)
			seen.Add(item.url)
			rate.OnSuccess()
			if m.sink != nil {
				if werr := m.sink.Write([]models.Attraction{record}); werr != nil {
					log.Warn("database write failed", zap.Error(werr))
				}
			}
		}

		if cerr := store.Checkpoint(results); cerr != nil {
			return cerr
		}
		processed++
		job.observe(processed, results.Stats())
	}

	if err := store.Finalize(results); err != nil {
		return err
	}

	rs := rate.Stats()
	log.Info("run summary",
		zap.Int("requests", rs.TotalRequests),
		zap.Int("errors", rs.Errors),
		zap.Float64("error_rate", rs.ErrorRate))

	job.setResults(&Results{
		Metadata: job.Progress(),
		Records:  results.Attractions,
		Failed:   results.Failed,
		Rate:     rs,
	})
	return nil
}

// resolveSearches turns search items into place URLs via maps search.
// Items that yield nothing are recorded as failed attempts; the run
// continues.
func (m *Manager) resolveSearches(
	ctx context.Context,
	job *Job,
	items []services.SearchItem,
	queue []queueItem,
	session DriverSession,
	rate *utils.RateController,
	results *models.ResultSet,
	store *storage.Store,
	log *zap.Logger,
) ([]queueItem, error) {
	searcher := scraper.NewSearchScraper(session, m.cfg, log)
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := rate.Wait(ctx); err != nil {
			return nil, err
		}

		label := item.Name
		if item.City != "" {
			label += ", " + item.City
		}

		hits, err := searcher.Search(ctx, item.Name, item.City)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("search failed", zap.String("query", label), zap.Error(err))
			results.AddFailed(label, err.Error())
			rate.OnError()
			if cerr := store.Checkpoint(results); cerr != nil {
				return nil, cerr
			}
			continue
		}
		if len(hits) == 0 {
			log.Warn("no search results", zap.String("query", label))
			results.AddFailed(label, "no search results")
			if cerr := store.Checkpoint(results); cerr != nil {
				return nil, cerr
			}
			continue
		}

		rate.OnSuccess()
		if job.mode == ModeSearchFirst {
			hits = hits[:1]
		}
		for _, h := range hits {
			queue = append(queue, queueItem{url: h, typeHint: item.TypeHint})
		}
	}
	return queue, nil
}

// scrapeOne processes a single queue item: navigate (with retries),
// extract, classify, validate.
func (m *Manager) scrapeOne(
	ctx context.Context,
	session DriverSession,
	extractor *scraper.Extractor,
	retrier *utils.Retrier,
	validator *services.Validator,
	item queueItem,
	log *zap.Logger,
) (models.Attraction, error) {
	err := retrier.Do(ctx, "navigate", func() error {
		return session.Navigate(ctx, item.url)
	})
	if err != nil {
		return nil, err
	}

	raw := extractor.ExtractAll(ctx, item.url)

	if !raw.Present(models.FieldType) {
		raw[models.FieldType] = string(m.resolveType(raw, item))
	}

	record, err := validator.Build(raw)
	if err != nil {
		return nil, err
	}

	q := services.Quality(raw, record.Base().Type)
	log.Info("record built",
		zap.String("name", record.Base().Name),
		zap.String("type", string(record.Base().Type)),
		zap.Float64("completeness", q.Completeness))
	if len(q.MissingFields) > 0 {
		log.Debug("missing fields", zap.Strings("fields", q.MissingFields))
	}
	return record, nil
}

// resolveType picks the record type: an explicit hint from the input
// wins, otherwise the type is inferred from the page's category text
// and URL.
func (m *Manager) resolveType(raw models.RawFields, item queueItem) models.AttractionType {
	if item.typeHint != "" {
		if t, err := models.ParseAttractionType(item.typeHint); err == nil {
			return t
		}
	}
	category, _ := raw.String(models.FieldCategory)
	return services.InferType(category, item.url)
}

// ScrapeURL scrapes a single place synchronously, outside the job
// machinery: no registration, checkpoint, or rate delay. The one-shot
// API route uses it; the record still lands in the database sink.
func (m *Manager) ScrapeURL(ctx context.Context, url string) (models.Attraction, error) {
	session, err := m.sessions()
	if err != nil {
		return nil, fmt.Errorf("open browser session: %w", err)
	}
	defer session.Close()

	retrier := &utils.Retrier{
		MaxAttempts: m.cfg.Retry.MaxAttempts,
		BaseDelay:   time.Duration(m.cfg.Retry.BaseDelaySec) * time.Second,
		Log:         m.log,
	}
	extractor := scraper.NewExtractor(session, m.cfg, m.log)
	validator := services.NewValidator(m.log)

	record, err := m.scrapeOne(ctx, session, extractor, retrier, validator, queueItem{url: url}, m.log)
	if err != nil {
		return nil, err
	}
	if m.sink != nil {
		if werr := m.sink.Write([]models.Attraction{record}); werr != nil {
			m.log.Warn("database write failed", zap.Error(werr))
		}
	}
	return record, nil
}

// captureErrorState saves a screenshot of the failed page when
// configured, for post-mortem debugging.
func (m *Manager) captureErrorState(ctx context.Context, session DriverSession, store *storage.Store, itemIndex int, log *zap.Logger) {
	if !m.cfg.Scrape.ScreenshotOnError || ctx.Err() != nil {
		return
	}
	path := filepath.Join(store.Dir(), fmt.Sprintf("error_%d.png", itemIndex))
	if err := session.Screenshot(ctx, path); err != nil {
		log.Debug("error screenshot failed", zap.Error(err))
	}
}
