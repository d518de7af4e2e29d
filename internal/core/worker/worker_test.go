package worker

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ytkit/internal/core"
	"ytkit/internal/stream"
)

func testItem() core.PlaylistItem {
	return core.PlaylistItem{ID: "abc123", Title: "My Video", URL: "https://example.com/abc123"}
}

func TestWorker_SuccessfulRawDownload(t *testing.T) {
	dir := t.TempDir()
	format := core.VideoFormat{Container: "mp4", ContentLength: int64(len("helloworld"))}
	info := &core.VideoInfo{VideoDetails: core.VideoDetails{Title: "My Video"}}

	bs := newFakeByteStream(
		stream.Event{Type: stream.EventInfo, Info: info, Format: &format},
		stream.Event{Type: stream.EventData, Data: []byte("hello")},
		stream.Event{Type: stream.EventData, Data: []byte("world")},
		stream.Event{Type: stream.EventEnd},
	)

	client := &fakeStreamClient{info: info, bs: bs}
	w := New(testItem(), Config{Timeout: 2 * time.Second}, client, client, nil, dir, zerolog.Nop())

	result := w.Run(context.Background())
	if result.Code != 0 {
		t.Fatalf("expected code 0, got %d (err=%v)", result.Code, result.Err)
	}

	content, err := os.ReadFile(filepath.Join(dir, "My Video.mp4"))
	if err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	if string(content) != "helloworld" {
		t.Fatalf("expected 'helloworld', got %q", content)
	}
}

func TestWorker_GetInfoTimeout(t *testing.T) {
	client := &fakeStreamClient{infoDelay: make(chan struct{})}
	w := New(testItem(), Config{Timeout: 20 * time.Millisecond}, client, client, nil, t.TempDir(), zerolog.Nop())

	result := w.Run(context.Background())
	if result.Code != 1 {
		t.Fatalf("expected code 1, got %d", result.Code)
	}
	if core.KindOf(result.Err) != core.KindMetadata {
		t.Fatalf("expected KindMetadata, got %v", core.KindOf(result.Err))
	}
}

func TestWorker_KillMessageFailsWithCancelled(t *testing.T) {
	format := core.VideoFormat{Container: "mp4", ContentLength: 100}
	info := &core.VideoInfo{VideoDetails: core.VideoDetails{Title: "My Video"}}
	bs := newFakeByteStream(
		stream.Event{Type: stream.EventInfo, Info: info, Format: &format},
	)
	client := &fakeStreamClient{info: info, bs: bs}
	w := New(testItem(), Config{Timeout: 2 * time.Second}, client, client, nil, t.TempDir(), zerolog.Nop())

	go func() {
		time.Sleep(20 * time.Millisecond)
		w.Send([]byte(base64.StdEncoding.EncodeToString([]byte(`{"type":"kill"}`))))
	}()

	result := w.Run(context.Background())
	if result.Code != 1 {
		t.Fatalf("expected code 1, got %d", result.Code)
	}
	if core.KindOf(result.Err) != core.KindCancelled {
		t.Fatalf("expected KindCancelled, got %v", core.KindOf(result.Err))
	}
}

func TestWorker_InactivityTimeout(t *testing.T) {
	format := core.VideoFormat{Container: "mp4", ContentLength: 100}
	info := &core.VideoInfo{VideoDetails: core.VideoDetails{Title: "My Video"}}
	bs := newFakeByteStream(
		stream.Event{Type: stream.EventInfo, Info: info, Format: &format},
	)
	client := &fakeStreamClient{info: info, bs: bs}
	w := New(testItem(), Config{Timeout: 30 * time.Millisecond}, client, client, nil, t.TempDir(), zerolog.Nop())

	result := w.Run(context.Background())
	if result.Code != 1 {
		t.Fatalf("expected code 1, got %d", result.Code)
	}
	if core.KindOf(result.Err) != core.KindTimeout {
		t.Fatalf("expected KindTimeout, got %v", core.KindOf(result.Err))
	}
}

func TestWorker_StreamOpenFailureRoutesToFail(t *testing.T) {
	client := &fakeStreamClient{
		info:      &core.VideoInfo{VideoDetails: core.VideoDetails{Title: "My Video"}},
		streamErr: errStreamUnavailable,
	}
	w := New(testItem(), Config{Timeout: 2 * time.Second}, client, client, nil, t.TempDir(), zerolog.Nop())

	result := w.Run(context.Background())
	if result.Code != 1 {
		t.Fatalf("expected code 1, got %d", result.Code)
	}
	if core.KindOf(result.Err) != core.KindStream {
		t.Fatalf("expected KindStream, got %v", core.KindOf(result.Err))
	}
}
