package cmd

import "testing"

func TestParseArgs_NoCommand(t *testing.T) {
	if _, err := ParseArgs(nil); err == nil {
		t.Fatal("expected an error when no command is given")
	}
}

func TestParseArgs_UnknownCommand(t *testing.T) {
	if _, err := ParseArgs([]string{"bogus"}); err == nil {
		t.Fatal("expected an error for an unknown command")
	}
}

func TestParseArgs_DownloadRequiresURL(t *testing.T) {
	if _, err := ParseArgs([]string{"download"}); err == nil {
		t.Fatal("expected an error when -url is missing")
	}
}

func TestParseArgs_DownloadPositionalURL(t *testing.T) {
	cfg, err := ParseArgs([]string{"download", "https://youtu.be/abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.URL != "https://youtu.be/abc" {
		t.Fatalf("expected positional URL to be picked up, got %q", cfg.URL)
	}
}

func TestParseArgs_DownloadFlags(t *testing.T) {
	cfg, err := ParseArgs([]string{
		"download",
		"-url", "https://youtu.be/abc",
		"-filter", "audioonly",
		"-filter-container", "mp4",
		"-maxconnections", "3",
		"-retries", "2",
		"-timeout", "30",
		"-format", "mp3",
		"-json",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Command != CommandDownload {
		t.Fatalf("expected CommandDownload, got %v", cfg.Command)
	}
	if cfg.MaxConnections != 3 || cfg.Retries != 2 || cfg.TimeoutSeconds != 30 {
		t.Fatalf("unexpected numeric flags: %+v", cfg)
	}
	if !cfg.JSON || cfg.Format != "mp3" {
		t.Fatalf("unexpected output flags: %+v", cfg)
	}

	opts := cfg.DownloadOptions()
	if string(opts.Filter) != "audioonly" || opts.FilterContainer != "mp4" {
		t.Fatalf("unexpected DownloadOptions: %+v", opts)
	}
}

func TestParseArgs_DownloadPlaylist(t *testing.T) {
	cfg, err := ParseArgs([]string{"download:playlist", "-url", "https://youtube.com/playlist?list=PL123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Command != CommandDownloadPlaylist {
		t.Fatalf("expected CommandDownloadPlaylist, got %v", cfg.Command)
	}
}

func TestParseArgs_SearchRequiresQuery(t *testing.T) {
	if _, err := ParseArgs([]string{"search"}); err == nil {
		t.Fatal("expected an error when -query is missing")
	}
}

func TestParseArgs_SearchFlags(t *testing.T) {
	cfg, err := ParseArgs([]string{"search", "-query", "lofi beats", "-limit", "5"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Query != "lofi beats" || cfg.Limit != 5 {
		t.Fatalf("unexpected search config: %+v", cfg)
	}
}

func TestConfig_DownloadOptionsCarriesQualityAsList(t *testing.T) {
	cfg := &Config{Quality: "720p"}
	opts := cfg.DownloadOptions()
	if len(opts.Quality) != 1 || opts.Quality[0] != "720p" {
		t.Fatalf("expected quality to be wrapped in a single-element list, got %+v", opts.Quality)
	}
}
