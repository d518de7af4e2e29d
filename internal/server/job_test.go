package server

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ytkit/internal/core"
)

func TestJobManager_GetNonexistent(t *testing.T) {
	m := NewJobManager(context.Background(), &fakePlaylistClient{}, fakeStreamClient{}, fakeStreamClient{}, nil, nil, t.TempDir(), zerolog.Nop())

	if job := m.Get("nonexistent"); job != nil {
		t.Fatal("expected nil for unknown job")
	}
}

func TestJobManager_CancelNonexistent(t *testing.T) {
	m := NewJobManager(context.Background(), &fakePlaylistClient{}, fakeStreamClient{}, fakeStreamClient{}, nil, nil, t.TempDir(), zerolog.Nop())

	if m.Cancel("nonexistent") {
		t.Fatal("expected Cancel to report false for unknown job")
	}
}

func TestJobManager_StartDownloadRunsToCompletion(t *testing.T) {
	items := []core.PlaylistItem{{ID: "a", URL: "https://example.com/a"}}
	playlist := &fakePlaylistClient{items: items}
	m := NewJobManager(context.Background(), playlist, fakeStreamClient{}, fakeStreamClient{}, nil, nil, t.TempDir(), zerolog.Nop())

	id := m.StartDownload(DownloadRequest{URL: "https://example.com/playlist"})
	if id == "" {
		t.Fatal("expected a non-empty job id")
	}

	job := m.Get(id)
	if job == nil {
		t.Fatal("expected job to be tracked")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		state, _, _ := job.Snapshot()
		if state == JobDone || state == JobFailed {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	state, results, err := job.Snapshot()
	if state != JobDone {
		t.Fatalf("expected JobDone, got %v (err=%v)", state, err)
	}
	if len(results) != 1 || results[0].Code != 0 {
		t.Fatalf("expected a single successful result, got %+v", results)
	}
}

func TestJobManager_CancelStopsRunningJob(t *testing.T) {
	items := []core.PlaylistItem{{ID: "a", URL: "https://example.com/a"}}
	playlist := &fakePlaylistClient{items: items}
	m := NewJobManager(context.Background(), playlist, fakeStreamClient{}, fakeStreamClient{}, nil, nil, t.TempDir(), zerolog.Nop())

	id := m.StartDownload(DownloadRequest{URL: "https://example.com/playlist"})
	if !m.Cancel(id) {
		t.Fatal("expected Cancel to succeed for a tracked job")
	}

	state, _, _ := m.Get(id).Snapshot()
	if state != JobCancelled {
		t.Fatalf("expected JobCancelled immediately after Cancel, got %v", state)
	}
}

func TestJobManager_ActiveJobCount(t *testing.T) {
	m := NewJobManager(context.Background(), &fakePlaylistClient{items: nil}, fakeStreamClient{}, fakeStreamClient{}, nil, nil, t.TempDir(), zerolog.Nop())

	id := m.StartDownload(DownloadRequest{URL: "https://example.com/empty"})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if m.ActiveJobCount() == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if m.ActiveJobCount() != 0 {
		t.Fatalf("expected job %s to have completed and left the active count", id)
	}
}
