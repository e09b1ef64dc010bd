package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"attractions-scraper/config"
	"attractions-scraper/models"
	"attractions-scraper/scraper"
	"attractions-scraper/services"
)

// fakePage is the canned DOM of one URL.
type fakePage struct {
	texts    map[string]string
	elements map[string][]map[string]string
}

type fakeHandle struct {
	page     *fakePage
	selector string
	index    int
}

// fakeSession implements DriverSession over canned pages.
type fakeSession struct {
	pages      map[string]*fakePage
	failNav    map[string]bool
	current    *fakePage
	currentURL string
	refreshes  int
	closed     bool
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	if s.failNav[url] {
		return fmt.Errorf("%w: %s", scraper.ErrNavigation, url)
	}
	page, ok := s.pages[url]
	if !ok {
		return fmt.Errorf("%w: %s", scraper.ErrNavigation, url)
	}
	s.current = page
	s.currentURL = url
	return nil
}

func (s *fakeSession) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (scraper.Handle, error) {
	if s.current == nil {
		return nil, scraper.ErrElementNotFound
	}
	if _, ok := s.current.texts[selector]; ok {
		return fakeHandle{page: s.current, selector: selector, index: -1}, nil
	}
	return nil, scraper.ErrElementNotFound
}

func (s *fakeSession) GetText(ctx context.Context, h scraper.Handle) (string, error) {
	fh := h.(fakeHandle)
	return fh.page.texts[fh.selector], nil
}

func (s *fakeSession) GetAttribute(ctx context.Context, h scraper.Handle, name string) (string, error) {
	fh := h.(fakeHandle)
	if fh.index >= 0 {
		return fh.page.elements[fh.selector][fh.index][name], nil
	}
	return "", nil
}

func (s *fakeSession) Click(ctx context.Context, h scraper.Handle) error { return nil }

func (s *fakeSession) QueryAll(ctx context.Context, selector string) ([]scraper.Handle, error) {
	if s.current == nil {
		return nil, nil
	}
	items := s.current.elements[selector]
	handles := make([]scraper.Handle, len(items))
	for i := range items {
		handles[i] = fakeHandle{page: s.current, selector: selector, index: i}
	}
	return handles, nil
}

func (s *fakeSession) CurrentURL(ctx context.Context) (string, error) { return s.currentURL, nil }

func (s *fakeSession) Screenshot(ctx context.Context, path string) error { return nil }

func (s *fakeSession) Refresh() error {
	s.refreshes++
	return nil
}

func (s *fakeSession) Close() { s.closed = true }

func placePage(name string) *fakePage {
	return &fakePage{
		texts: map[string]string{"h1.DUwDvf": name},
	}
}

func testManagerConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()
	cfg.Browser.ElementWaitMs = 1
	cfg.Rate.BaseDelayMinSec = 0.001
	cfg.Rate.BaseDelayMaxSec = 0.002
	cfg.Rate.LongPauseEvery = 1000
	cfg.Rate.LongPauseMinSec = 0.001
	cfg.Rate.LongPauseMaxSec = 0.002
	cfg.Retry.MaxAttempts = 1
	cfg.Retry.BaseDelaySec = 0
	cfg.Scrape.ScreenshotOnError = false
	return cfg
}

func newTestManager(t *testing.T, session DriverSession) *Manager {
	cfg := testManagerConfig(t)
	sessions := func() (DriverSession, error) { return session, nil }
	return NewManager(cfg, sessions, nil, zap.NewNop())
}

func TestURLBatchJobIsolatesItemFailures(t *testing.T) {
	goodA := "https://www.google.com/maps/place/a"
	goodB := "https://www.google.com/maps/place/b"
	broken := "https://www.google.com/maps/place/broken"

	session := &fakeSession{
		pages: map[string]*fakePage{
			goodA: placePage("Place A"),
			goodB: placePage("Place B"),
		},
		failNav: map[string]bool{broken: true},
	}
	m := newTestManager(t, session)

	id, err := m.SubmitURLBatch([]string{goodA, broken, goodB}, "run1")
	if err != nil {
		t.Fatal(err)
	}
	m.Wait()

	p, err := m.Progress(id)
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != StatusCompleted {
		t.Fatalf("status = %q (%s); want completed", p.Status, p.Error)
	}
	if p.Succeeded != 2 || p.Failed != 1 || p.Processed != 3 {
		t.Errorf("progress = %+v; want 2 succeeded, 1 failed, 3 processed", p)
	}

	res, err := m.Results(id)
	if err != nil {
		t.Fatalf("Results() error: %v", err)
	}
	if len(res.Failed) != 1 || res.Failed[0].Input != broken {
		t.Errorf("failed attempts = %+v; want the broken url", res.Failed)
	}
	if !strings.Contains(res.Failed[0].Error, "navigation") {
		t.Errorf("failure reason = %q; want a navigation error", res.Failed[0].Error)
	}
	if len(res.Records["activities"]) != 2 {
		t.Errorf("records = %v; want both good places as activities", res.Records)
	}
	if res.Rate.Errors != 1 || res.Rate.TotalRequests != 3 {
		t.Errorf("rate stats = %+v; want 1 error over 3 requests", res.Rate)
	}
	if !session.closed {
		t.Error("session not closed after the job")
	}
}

func TestURLBatchSkipsDuplicates(t *testing.T) {
	u := "https://www.google.com/maps/place/a"
	session := &fakeSession{pages: map[string]*fakePage{u: placePage("Place A")}}
	m := newTestManager(t, session)

	id, err := m.SubmitURLBatch([]string{u, u}, "dups")
	if err != nil {
		t.Fatal(err)
	}
	m.Wait()

	p, _ := m.Progress(id)
	if p.Status != StatusCompleted || p.Succeeded != 1 || p.Processed != 2 {
		t.Errorf("progress = %+v; want 1 succeeded out of 2 processed", p)
	}
}

func TestSearchJobResolvesFirstHit(t *testing.T) {
	place := "https://www.google.com/maps/place/hakosem"
	searchPage := &fakePage{
		texts: map[string]string{"div[role='feed']": "feed"},
		elements: map[string][]map[string]string{
			"a[href*='/maps/place/']": {
				{"href": place},
				{"href": "https://www.google.com/maps/place/other"},
			},
		},
	}

	session := &fakeSession{pages: map[string]*fakePage{place: placePage("HaKosem")}}
	// Any search navigation lands on the canned feed.
	m := newTestManager(t, &searchSession{fakeSession: session, feed: searchPage})

	id, err := m.SubmitSearchJob([]services.SearchItem{
		{Name: "HaKosem", City: "Tel Aviv", TypeHint: "restaurant"},
	}, ModeSearchFirst, "search-run")
	if err != nil {
		t.Fatal(err)
	}
	m.Wait()

	p, _ := m.Progress(id)
	if p.Status != StatusCompleted {
		t.Fatalf("status = %q (%s); want completed", p.Status, p.Error)
	}
	if p.Succeeded != 1 || p.TotalItems != 1 {
		t.Errorf("progress = %+v; want exactly the first hit scraped", p)
	}

	res, err := m.Results(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records["restaurants"]) != 1 {
		t.Fatalf("records = %v; want the type hint honored", res.Records)
	}
	if res.Records["restaurants"][0].Base().Name != "HaKosem" {
		t.Errorf("record name = %q", res.Records["restaurants"][0].Base().Name)
	}
}

// searchSession routes search URLs to a canned result feed.
type searchSession struct {
	*fakeSession
	feed *fakePage
}

func (s *searchSession) Navigate(ctx context.Context, url string) error {
	if strings.HasPrefix(url, "https://www.google.com/maps/search/") {
		s.current = s.feed
		s.currentURL = url
		return nil
	}
	return s.fakeSession.Navigate(ctx, url)
}

func TestResultsGating(t *testing.T) {
	session := &fakeSession{failNav: map[string]bool{"https://www.google.com/maps/place/x": true}}
	m := newTestManager(t, session)

	if _, err := m.Results("nope"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Results(unknown) = %v; want ErrJobNotFound", err)
	}
	if m.Cancel("nope") {
		t.Error("Cancel(unknown) = true")
	}

	id, err := m.SubmitURLBatch([]string{"https://www.google.com/maps/place/x"}, "gating")
	if err != nil {
		t.Fatal(err)
	}
	m.Wait()

	// All items failed is still a completed run, with an empty record set.
	p, _ := m.Progress(id)
	if p.Status != StatusCompleted || p.Failed != 1 {
		t.Errorf("progress = %+v", p)
	}
	if m.Cancel(id) {
		t.Error("Cancel(terminal) = true; want rejection")
	}
}

func TestJobStateMachine(t *testing.T) {
	j := newJob("j1", ModeURLBatch, "out", 3)

	if got := j.Progress().Status; got != StatusPending {
		t.Fatalf("fresh job status = %q", got)
	}
	if j.requestCancel() {
		t.Error("cancel of a pending job accepted")
	}

	_, cancel := context.WithCancel(context.Background())
	j.bindCancel(cancel)
	j.markRunning()
	if got := j.Progress().Status; got != StatusRunning {
		t.Fatalf("status after markRunning = %q", got)
	}
	if !j.requestCancel() {
		t.Error("cancel of a running job rejected")
	}

	j.finish(StatusCancelled, "")
	if j.requestCancel() {
		t.Error("cancel of a terminal job accepted")
	}

	j.finish(StatusCompleted, "")
	if got := j.Progress().Status; got != StatusCancelled {
		t.Errorf("terminal status overwritten: %q", got)
	}

	j.observe(2, models.Stats{Successful: 1, Failed: 1, ByType: map[string]int{"activities": 1}})
	p := j.Progress()
	if p.Processed != 2 || p.Succeeded != 1 || p.ByType["activities"] != 1 {
		t.Errorf("progress = %+v", p)
	}
}

// blockingSession holds every navigation open until its context dies,
// simulating a page load that spans the cancellation request.
type blockingSession struct {
	*fakeSession
	started chan struct{}
	once    sync.Once
}

func (s *blockingSession) Navigate(ctx context.Context, url string) error {
	s.once.Do(func() { close(s.started) })
	<-ctx.Done()
	return ctx.Err()
}

func TestCancelDuringRunEndsCancelled(t *testing.T) {
	session := &blockingSession{fakeSession: &fakeSession{}, started: make(chan struct{})}
	m := newTestManager(t, session)

	id, err := m.SubmitURLBatch([]string{
		"https://www.google.com/maps/place/a",
		"https://www.google.com/maps/place/b",
	}, "cancel-run")
	if err != nil {
		t.Fatal(err)
	}

	<-session.started
	if !m.Cancel(id) {
		t.Fatal("Cancel(running) rejected")
	}
	m.Wait()

	p, err := m.Progress(id)
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != StatusCancelled {
		t.Fatalf("status = %q (%s); want cancelled", p.Status, p.Error)
	}
	// The interrupted item is abandoned, not booked as an attempt.
	if p.Processed != 0 || p.Succeeded != 0 || p.Failed != 0 {
		t.Errorf("progress = %+v; want no items counted", p)
	}
	if _, err := m.Results(id); !errors.Is(err, ErrJobNotDone) {
		t.Errorf("Results(cancelled) = %v; want ErrJobNotDone", err)
	}
	if !session.closed {
		t.Error("session not closed after cancellation")
	}
}

func TestSubmitRejectsEmptyInput(t *testing.T) {
	m := newTestManager(t, &fakeSession{})

	if _, err := m.SubmitURLBatch(nil, ""); !errors.Is(err, ErrNoInput) {
		t.Errorf("SubmitURLBatch(nil) = %v; want ErrNoInput", err)
	}
	if _, err := m.SubmitSearchJob(nil, ModeSearchFirst, ""); !errors.Is(err, ErrNoInput) {
		t.Errorf("SubmitSearchJob(nil) = %v; want ErrNoInput", err)
	}
}
