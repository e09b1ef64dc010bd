package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"attractions-scraper/config"
	"attractions-scraper/jobs"
)

func newTestServer(t *testing.T) (*Server, *jobs.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()
	cfg.Rate.BaseDelayMinSec = 0.001
	cfg.Rate.BaseDelayMaxSec = 0.002

	// No browser in unit tests; any scheduled job fails fast.
	sessions := func() (jobs.DriverSession, error) {
		return nil, errors.New("browser unavailable")
	}
	m := jobs.NewManager(cfg, sessions, nil, zap.NewNop())
	return &Server{Jobs: m, Log: zap.NewNop()}, m
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(s.Router(), http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("health = %d; want 200", w.Code)
	}
}

func TestScrapeURLValidation(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing url", `{}`, http.StatusBadRequest},
		{"malformed json", `{`, http.StatusBadRequest},
		{"non-maps url", `{"url": "https://example.com"}`, http.StatusBadRequest},
		// Synchronous scrape with no browser available.
		{"maps url without browser", `{"url": "https://www.google.com/maps/place/x"}`, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, "/api/scrape/url", tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d; want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestScrapeBatchFiltersLinks(t *testing.T) {
	s, m := newTestServer(t)
	router := s.Router()

	w := doRequest(router, http.MethodPost, "/api/scrape/batch",
		`{"urls": ["https://example.com", "https://www.google.com/maps/place/x"]}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d; want 202 (%s)", w.Code, w.Body.String())
	}

	var resp struct {
		JobID    string `json:"job_id"`
		Accepted int    `json:"accepted"`
		Skipped  int    `json:"skipped"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Accepted != 1 || resp.Skipped != 1 {
		t.Errorf("accepted/skipped = %d/%d; want 1/1", resp.Accepted, resp.Skipped)
	}

	all := doRequest(router, http.MethodGet, "/api/jobs", "")
	if all.Code != http.StatusOK || !strings.Contains(all.Body.String(), resp.JobID) {
		t.Errorf("job list missing submitted job: %s", all.Body.String())
	}

	// The job fails (no browser) and its results surface the error.
	m.Wait()
	res := doRequest(router, http.MethodGet, "/api/jobs/"+resp.JobID+"/results", "")
	if res.Code != http.StatusInternalServerError {
		t.Errorf("results of failed job = %d; want 500 (%s)", res.Code, res.Body.String())
	}
	if !strings.Contains(res.Body.String(), "browser unavailable") {
		t.Errorf("stored error not surfaced: %s", res.Body.String())
	}

	w = doRequest(router, http.MethodPost, "/api/scrape/batch", `{"urls": ["https://example.com"]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("all-invalid batch = %d; want 400", w.Code)
	}
}

func TestUnknownJobLookups(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	if w := doRequest(router, http.MethodGet, "/api/jobs/nope", ""); w.Code != http.StatusNotFound {
		t.Errorf("progress = %d; want 404", w.Code)
	}
	if w := doRequest(router, http.MethodGet, "/api/jobs/nope/results", ""); w.Code != http.StatusNotFound {
		t.Errorf("results = %d; want 404", w.Code)
	}
	if w := doRequest(router, http.MethodDelete, "/api/jobs/nope", ""); w.Code != http.StatusConflict {
		t.Errorf("cancel = %d; want 409", w.Code)
	}
}

func TestScrapeSearchRequiresItems(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	w := doRequest(router, http.MethodPost, "/api/scrape/search", `{"attractions": []}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty search = %d; want 400", w.Code)
	}

	w = doRequest(router, http.MethodPost, "/api/scrape/search",
		`{"attractions": [{"name": "HaKosem", "city": "Tel Aviv"}], "mode": "search_first"}`)
	if w.Code != http.StatusAccepted {
		t.Errorf("search submit = %d; want 202 (%s)", w.Code, w.Body.String())
	}
}
