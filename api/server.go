// Package api exposes job submission and monitoring over HTTP.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"attractions-scraper/jobs"
	"attractions-scraper/scraper"
	"attractions-scraper/services"
)

// Server wires the job manager to HTTP handlers.
type Server struct {
	Jobs *jobs.Manager
	Log  *zap.Logger
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/api/health", s.health)

	r.POST("/api/scrape/url", s.scrapeURL)
	r.POST("/api/scrape/batch", s.scrapeBatch)
	r.POST("/api/scrape/search", s.scrapeSearch)

	r.GET("/api/jobs", s.listJobs)
	r.GET("/api/jobs/:id", s.jobProgress)
	r.GET("/api/jobs/:id/results", s.jobResults)
	r.DELETE("/api/jobs/:id", s.cancelJob)

	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type scrapeURLRequest struct {
	URL string `json:"url" binding:"required"`
}

// scrapeURL scrapes one place synchronously and returns the record in
// the response. Batches go through the job queue instead.
func (s *Server) scrapeURL(c *gin.Context) {
	var req scrapeURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !services.IsMapsURL(req.URL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is not a Google Maps link"})
		return
	}

	record, err := s.Jobs.ScrapeURL(c.Request.Context(), req.URL)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, scraper.ErrNavigation) {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attraction": record})
}

type scrapeBatchRequest struct {
	URLs       []string `json:"urls" binding:"required"`
	OutputName string   `json:"output_name"`
}

func (s *Server) scrapeBatch(c *gin.Context) {
	var req scrapeBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	valid := make([]string, 0, len(req.URLs))
	for _, u := range req.URLs {
		if services.IsMapsURL(u) {
			valid = append(valid, u)
		}
	}
	if len(valid) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no valid Google Maps links in batch"})
		return
	}

	id, err := s.Jobs.SubmitURLBatch(valid, req.OutputName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": id, "accepted": len(valid), "skipped": len(req.URLs) - len(valid)})
}

type scrapeSearchRequest struct {
	Attractions []services.SearchItem `json:"attractions" binding:"required"`
	Mode        string                `json:"mode"`
	OutputName  string                `json:"output_name"`
}

func (s *Server) scrapeSearch(c *gin.Context) {
	var req scrapeSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := s.Jobs.SubmitSearchJob(req.Attractions, jobs.Mode(req.Mode), req.OutputName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": id})
}

func (s *Server) listJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": s.Jobs.List()})
}

func (s *Server) jobProgress(c *gin.Context) {
	p, err := s.Jobs.Progress(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

// jobResults serves the final records of a completed job. It answers
// 409 while the job is still pending or running, and surfaces the
// stored error for a failed job.
func (s *Server) jobResults(c *gin.Context) {
	res, err := s.Jobs.Results(c.Param("id"))
	switch {
	case errors.Is(err, jobs.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, jobs.ErrJobNotDone):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, jobs.ErrJobFailed):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, res)
	}
}

// cancelJob requests cooperative cancellation. The job stops at its
// next item boundary, so the response may precede the actual
// transition to cancelled.
func (s *Server) cancelJob(c *gin.Context) {
	id := c.Param("id")
	if s.Jobs.Cancel(id) {
		c.JSON(http.StatusOK, gin.H{"job_id": id, "cancelling": true})
		return
	}
	c.JSON(http.StatusConflict, gin.H{"job_id": id, "cancelling": false})
}
