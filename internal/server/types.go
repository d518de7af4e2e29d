// Package server exposes an optional HTTP and WebSocket control surface
// over a scheduler.Scheduler, generalizing the teacher's Gin router and
// raw-socket event push into a JSON request/response API and a
// gorilla/websocket event feed.
package server

import "ytkit/internal/core"

// DownloadRequest is the request body for POST /downloads.
type DownloadRequest struct {
	URL            string `json:"url" binding:"required"`
	Output         string `json:"output"`
	Quality        string `json:"quality"`
	Filter         string `json:"filter"`
	MaxConnections int    `json:"max_connections"`
	Retries        int    `json:"retries"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	Format         string `json:"format"`
	AudioCodec     string `json:"audio_codec"`
	VideoCodec     string `json:"video_codec"`
}

// DownloadResponse is the response for POST /downloads.
type DownloadResponse struct {
	Status string `json:"status"`
	JobID  string `json:"job_id"`
	Error  string `json:"error,omitempty"`
}

// ResultDTO is the JSON rendering of a core.Result.
type ResultDTO struct {
	ItemID string `json:"item_id"`
	Title  string `json:"title"`
	Code   int    `json:"code"`
	Error  string `json:"error,omitempty"`
}

// JobStatusResponse is the response for GET /downloads/:id.
type JobStatusResponse struct {
	JobID   string      `json:"job_id"`
	State   string      `json:"state"`
	Results []ResultDTO `json:"results,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func resultsToDTO(results []core.Result) []ResultDTO {
	out := make([]ResultDTO, len(results))
	for i, r := range results {
		dto := ResultDTO{ItemID: r.Item.ID, Title: r.Item.Title, Code: r.Code}
		if r.Err != nil {
			dto.Error = r.Err.Error()
		}
		out[i] = dto
	}
	return out
}

// SearchResultDTO is one entry of a SearchResponse.
type SearchResultDTO struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// SearchResponse is the response for GET /search.
type SearchResponse struct {
	Query   string            `json:"query"`
	Count   int               `json:"count"`
	Results []SearchResultDTO `json:"results"`
	Error   string            `json:"error,omitempty"`
}

// eventDTO is the JSON rendering of a core.Message pushed over the
// WebSocket feed.
type eventDTO struct {
	Type    string         `json:"type"`
	ItemID  string         `json:"item_id,omitempty"`
	Title   string         `json:"title,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func messageToDTO(msg core.Message) eventDTO {
	dto := eventDTO{
		Type:    string(msg.Type),
		ItemID:  msg.Source.ID,
		Title:   msg.Source.Title,
		Details: msg.Details,
	}
	if msg.Err != nil {
		dto.Error = msg.Err.Error()
	}
	return dto
}
