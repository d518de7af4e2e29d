package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"ytkit/internal/core"
)

const defaultSearchLimit = 5

// SearchClient is the subset of stream.YtDlpClient the Search endpoint
// needs.
type SearchClient interface {
	Search(ctx context.Context, query string, limit int) ([]core.PlaylistItem, error)
}

// API handles the HTTP control endpoints over a JobManager.
type API struct {
	jobs   *JobManager
	hub    *wsHub
	search SearchClient
	log    zerolog.Logger
}

// NewAPI creates a new API handler. search is typically the same
// stream.YtDlpClient backing the JobManager's playlist client.
func NewAPI(jobs *JobManager, hub *wsHub, search SearchClient, log zerolog.Logger) *API {
	return &API{jobs: jobs, hub: hub, search: search, log: log.With().Str("component", "api").Logger()}
}

// StartDownload starts a new scheduler run for the requested playlist
// or single-item URL.
func (a *API) StartDownload(c *gin.Context) {
	var req DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, DownloadResponse{
			Status: "error",
			Error:  fmt.Sprintf("invalid request: %v", err),
		})
		return
	}

	a.log.Info().Str("url", req.URL).Msg("download request")

	jobID := a.jobs.StartDownload(req)

	c.JSON(http.StatusOK, DownloadResponse{Status: "queued", JobID: jobID})
}

// Status reports a job's current state and, once terminal, its
// per-item results.
func (a *API) Status(c *gin.Context) {
	id := c.Param("id")
	job := a.jobs.Get(id)
	if job == nil {
		c.JSON(http.StatusNotFound, JobStatusResponse{JobID: id, State: "not_found"})
		return
	}

	state, results, err := job.Snapshot()
	resp := JobStatusResponse{JobID: id, State: state.String(), Results: resultsToDTO(results)}
	if err != nil {
		resp.Error = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// Cancel stops a running job.
func (a *API) Cancel(c *gin.Context) {
	id := c.Param("id")
	if !a.jobs.Cancel(id) {
		c.JSON(http.StatusNotFound, DownloadResponse{Status: "error", JobID: id, Error: "job not found"})
		return
	}
	c.JSON(http.StatusOK, DownloadResponse{Status: "cancelled", JobID: id})
}

// Search resolves a text query to candidate items via the configured
// yt-dlp-backed playlist client, per spec.md §6's search surface.
func (a *API) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, SearchResponse{Error: "q query parameter is required"})
		return
	}

	items, err := a.search.Search(c.Request.Context(), query, defaultSearchLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, SearchResponse{Query: query, Error: err.Error()})
		return
	}

	results := make([]SearchResultDTO, len(items))
	for i, it := range items {
		results[i] = SearchResultDTO{ID: it.ID, URL: it.URL, Title: it.Title}
	}

	c.JSON(http.StatusOK, SearchResponse{Query: query, Count: len(results), Results: results})
}
