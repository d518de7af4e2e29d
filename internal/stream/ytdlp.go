package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"ytkit/internal/core"
)

// CookieConfig mirrors the teacher's youtube.Config: cookie-based auth
// passthrough is not named by spec.md, not excluded by any Non-goal,
// and is required in practice for age-restricted/region-locked
// content (see SPEC_FULL.md §12).
type CookieConfig struct {
	CookiesFromBrowser string
	CookiesFile        string
}

// CookieConfigFromEnv loads CookieConfig the way the teacher's
// youtube.LoadConfigFromEnv does.
func CookieConfigFromEnv() CookieConfig {
	return CookieConfig{
		CookiesFromBrowser: os.Getenv("YT_COOKIES_BROWSER"),
		CookiesFile:        os.Getenv("YT_COOKIES_FILE"),
	}
}

// YtDlpClient implements MetadataClient, StreamClient and
// PlaylistClient by shelling out to yt-dlp for resolution and
// streaming the resolved format URL over plain HTTP, grounded in the
// teacher's internal/platform/youtube/youtube.go (yt-dlp invocation
// shape, JSON parsing, --get-url selectors) and
// other_examples/daleiii-podsync-web's pkg/ytdl/ytdl.go (HTTP 429
// detection, progress-line regexes).
type YtDlpClient struct {
	cookies CookieConfig
	http    *http.Client
	log     zerolog.Logger
}

// NewYtDlpClient creates a client using the given HTTP client for byte
// streaming (nil selects http.DefaultClient).
func NewYtDlpClient(cookies CookieConfig, httpClient *http.Client, log zerolog.Logger) *YtDlpClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &YtDlpClient{cookies: cookies, http: httpClient, log: log}
}

func (c *YtDlpClient) cookieArgs() []string {
	if cf := strings.TrimSpace(c.cookies.CookiesFile); cf != "" {
		return []string{"--cookies", cf}
	}
	if cb := strings.TrimSpace(c.cookies.CookiesFromBrowser); cb != "" {
		return []string{"--cookies-from-browser", cb}
	}
	return nil
}

func (c *YtDlpClient) baseArgs() []string {
	args := []string{
		"--ignore-config",
		"--no-warnings",
		"--no-check-certificate",
		"--socket-timeout", "10",
	}
	return append(args, c.cookieArgs()...)
}

type ytDlpFormat struct {
	FormatID      string  `json:"format_id"`
	Ext           string  `json:"ext"`
	FormatNote    string  `json:"format_note"`
	VCodec        string  `json:"vcodec"`
	ACodec        string  `json:"acodec"`
	TBR           float64 `json:"tbr"`
	ABR           float64 `json:"abr"`
	FileSize      int64   `json:"filesize"`
	URL           string  `json:"url"`
	IsLive        bool    `json:"is_live"`
	Protocol      string  `json:"protocol"`
}

type ytDlpInfo struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Duration    float64       `json:"duration"`
	Uploader    string        `json:"uploader"`
	ChannelID   string        `json:"channel_id"`
	ID          string        `json:"id"`
	Formats     []ytDlpFormat `json:"formats"`
}

// GetInfo fetches VideoInfo via `yt-dlp -j --skip-download`.
func (c *YtDlpClient) GetInfo(ctx context.Context, url string) (*core.VideoInfo, error) {
	args := append(c.baseArgs(), "--no-playlist", "-j", "--skip-download", url)
	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, core.NewError(core.KindMetadata, err)
	}

	var raw ytDlpInfo
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, core.NewError(core.KindMetadata, fmt.Errorf("parse yt-dlp info: %w", err))
	}

	info := &core.VideoInfo{
		VideoDetails: core.VideoDetails{
			Title:         raw.Title,
			Author:        core.Author{Name: raw.Uploader, ChannelID: raw.ChannelID},
			LengthSeconds: int(raw.Duration),
			Description:   raw.Description,
			VideoID:       raw.ID,
		},
	}
	for _, f := range raw.Formats {
		info.Formats = append(info.Formats, core.VideoFormat{
			Container:     f.Ext,
			QualityLabel:  f.FormatNote,
			Codecs:        strings.TrimSuffix(f.VCodec+","+f.ACodec, ","),
			Itag:          formatIDToItag(f.FormatID),
			Bitrate:       int(f.TBR * 1000),
			AudioBitrate:  int(f.ABR * 1000),
			ContentLength: f.FileSize,
			IsLive:        f.IsLive,
			IsHLS:         strings.Contains(f.Protocol, "m3u8"),
			IsDashMPD:     strings.Contains(f.Protocol, "dash"),
		})
	}
	return info, nil
}

func formatIDToItag(id string) int {
	n, err := strconv.Atoi(id)
	if err != nil {
		return 0
	}
	return n
}

// DownloadFromInfo selects a format per opts, resolves its direct URL
// with `yt-dlp --get-url`, and opens an HTTP byte stream against it.
func (c *YtDlpClient) DownloadFromInfo(ctx context.Context, info *core.VideoInfo, opts core.DownloadOptions) (ByteStream, error) {
	format, err := SelectFormat(info.Formats, opts)
	if err != nil {
		return nil, core.NewError(core.KindMetadata, err)
	}

	selector := format.QualityLabel
	if format.Itag != 0 {
		selector = strconv.Itoa(format.Itag)
	}
	args := append(c.baseArgs(), "--no-playlist", "-f", selector, "--get-url", sourceURLOf(info))

	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, core.NewError(core.KindStream, err)
	}
	directURL := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])

	bs := newHTTPByteStream(ctx, c.http, directURL, info, &format)
	return bs, nil
}

func sourceURLOf(info *core.VideoInfo) string {
	if info.VideoDetails.VideoID == "" {
		return ""
	}
	return "https://www.youtube.com/watch?v=" + info.VideoDetails.VideoID
}

// ValidateID reports whether url looks like a YouTube playlist
// reference.
func (c *YtDlpClient) ValidateID(url string) bool {
	return strings.Contains(url, "list=") || isPlaylistID(url)
}

func isPlaylistID(s string) bool {
	return strings.HasPrefix(s, "PL") || strings.HasPrefix(s, "UU") || strings.HasPrefix(s, "OL")
}

// GetPlaylistID extracts the `list=` query parameter, or returns url
// unchanged if it is already a bare ID.
func (c *YtDlpClient) GetPlaylistID(url string) (string, error) {
	if isPlaylistID(url) {
		return url, nil
	}
	re := regexp.MustCompile(`[?&]list=([a-zA-Z0-9_-]+)`)
	m := re.FindStringSubmatch(url)
	if len(m) != 2 {
		return "", core.NewError(core.KindConfig, fmt.Errorf("not a playlist url: %s", url))
	}
	return m[1], nil
}

// Resolve lists every video in the playlist via `yt-dlp --flat-playlist`.
func (c *YtDlpClient) Resolve(ctx context.Context, id string, opts core.DownloadOptions) ([]core.PlaylistItem, error) {
	playlistURL := "https://www.youtube.com/playlist?list=" + id
	args := append(c.baseArgs(), "--yes-playlist", "--flat-playlist", "-j", playlistURL)

	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, core.NewError(core.KindMetadata, err)
	}

	var items []core.PlaylistItem
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	for i, line := range lines {
		if line == "" {
			continue
		}
		var entry struct {
			ID       string `json:"id"`
			Title    string `json:"title"`
			Uploader string `json:"uploader"`
			Channel  string `json:"channel_id"`
		}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		items = append(items, core.PlaylistItem{
			ID:     entry.ID,
			Title:  entry.Title,
			URL:    "https://www.youtube.com/watch?v=" + entry.ID,
			Author: core.Author{Name: entry.Uploader, ChannelID: entry.Channel},
			Index:  i,
		})
	}
	if len(items) == 0 {
		return nil, core.NewError(core.KindMetadata, fmt.Errorf("no videos found in playlist %s", id))
	}
	return items, nil
}

// Search runs `yt-dlp ytsearchN:query --flat-playlist -j`, carried
// forward from the teacher's youtube.Search per SPEC_FULL.md §12.
func (c *YtDlpClient) Search(ctx context.Context, query string, limit int) ([]core.PlaylistItem, error) {
	if limit <= 0 {
		limit = 5
	}
	args := append(c.baseArgs(), "--flat-playlist", "-j", fmt.Sprintf("ytsearch%d:%s", limit, query))
	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, core.NewError(core.KindMetadata, err)
	}

	var items []core.PlaylistItem
	for i, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		var entry struct {
			ID      string `json:"id"`
			Title   string `json:"title"`
			Channel string `json:"channel"`
		}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		items = append(items, core.PlaylistItem{
			ID:     entry.ID,
			Title:  entry.Title,
			URL:    "https://www.youtube.com/watch?v=" + entry.ID,
			Author: core.Author{Name: entry.Channel},
			Index:  i,
		})
	}
	return items, nil
}

func (c *YtDlpClient) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "yt-dlp", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if strings.Contains(string(out), "HTTP Error 429") {
			return nil, fmt.Errorf("yt-dlp rate limited: %w", err)
		}
		return nil, fmt.Errorf("yt-dlp failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// httpByteStream is a ByteStream backed by an HTTP response body,
// grounded in daleiii-podsync-web's progress-parsing shape but
// reading raw bytes directly instead of scraping a subprocess's
// stderr, since DownloadFromInfo already has a direct media URL.
type httpByteStream struct {
	events chan Event
	cancel context.CancelFunc
	once   sync.Once
}

func newHTTPByteStream(parent context.Context, client *http.Client, url string, info *core.VideoInfo, format *core.VideoFormat) *httpByteStream {
	ctx, cancel := context.WithCancel(parent)
	s := &httpByteStream{
		events: make(chan Event, 8),
		cancel: cancel,
	}
	go s.run(ctx, client, url, info, format)
	return s
}

func (s *httpByteStream) run(ctx context.Context, client *http.Client, url string, info *core.VideoInfo, format *core.VideoFormat) {
	defer close(s.events)

	s.events <- Event{Type: EventInfo, Info: info, Format: format}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		s.events <- Event{Type: EventError, Err: err}
		return
	}

	resp, err := client.Do(req)
	if err != nil {
		s.events <- Event{Type: EventError, Err: err}
		return
	}
	defer resp.Body.Close()

	headers := map[string]string{}
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		headers["content-length"] = cl
	}
	s.events <- Event{Type: EventResponse, Response: &Response{Headers: headers}}

	buf := make([]byte, 32*1024)
	r := bufio.NewReader(resp.Body)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case s.events <- Event{Type: EventData, Data: chunk}:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if err == io.EOF {
				s.events <- Event{Type: EventEnd}
				return
			}
			select {
			case <-ctx.Done():
			default:
				s.events <- Event{Type: EventError, Err: err}
			}
			return
		}
	}
}

func (s *httpByteStream) Events() <-chan Event { return s.events }

func (s *httpByteStream) Destroy() {
	s.once.Do(s.cancel)
}
