package stream

import (
	"testing"

	"ytkit/internal/core"
)

func sampleFormats() []core.VideoFormat {
	return []core.VideoFormat{
		{Itag: 18, Container: "mp4", QualityLabel: "360p", Codecs: "avc1.42001E,mp4a.40.2", AudioBitrate: 96000},
		{Itag: 140, Container: "m4a", QualityLabel: "", Codecs: "mp4a.40.2", AudioBitrate: 128000},
		{Itag: 137, Container: "mp4", QualityLabel: "1080p", Codecs: "avc1.640028,none"},
	}
}

func TestSelectFormat_AudioOnlyFilter(t *testing.T) {
	f, err := SelectFormat(sampleFormats(), core.DownloadOptions{Filter: core.FilterAudioOnly})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Itag != 140 {
		t.Fatalf("expected itag 140, got %d", f.Itag)
	}
}

func TestSelectFormat_ContainerFilterExcludesAll(t *testing.T) {
	_, err := SelectFormat(sampleFormats(), core.DownloadOptions{FilterContainer: `^webm$`})
	if err == nil {
		t.Fatal("expected error when no format matches")
	}
}

func TestSelectFormat_UnfilterResolutionExcludesMatch(t *testing.T) {
	f, err := SelectFormat(sampleFormats(), core.DownloadOptions{
		Filter:             core.FilterVideo,
		UnfilterResolution: `1080p`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.QualityLabel == "1080p" {
		t.Fatalf("1080p should have been excluded, got %+v", f)
	}
}

func TestSelectFormat_QualityPreferencePicksByItag(t *testing.T) {
	f, err := SelectFormat(sampleFormats(), core.DownloadOptions{Quality: []string{"137"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Itag != 137 {
		t.Fatalf("expected itag 137, got %d", f.Itag)
	}
}

func TestSelectFormat_QualityFallsBackToFirstAccepted(t *testing.T) {
	f, err := SelectFormat(sampleFormats(), core.DownloadOptions{Quality: []string{"does-not-exist"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Itag != 18 {
		t.Fatalf("expected first accepted format (itag 18), got %d", f.Itag)
	}
}

func TestParseContentLength(t *testing.T) {
	n, ok := parseContentLength(map[string]string{"content-length": "1024"})
	if !ok || n != 1024 {
		t.Fatalf("expected 1024, got %d, ok=%v", n, ok)
	}

	_, ok = parseContentLength(map[string]string{})
	if ok {
		t.Fatal("expected not ok for missing header")
	}
}
