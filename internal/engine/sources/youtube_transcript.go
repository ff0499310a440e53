package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/anatolykoptev/go_digest/internal/engine"
	"golang.org/x/net/html"
)

// YouTube transcript fetching.
// Primary:  watch page → ytInitialPlayerResponse → captionTracks → timedtext XML
// Fallback: ANDROID Innertube /player → captionTracks

// ytInitialPlayerResponseMarker marks the start of the player response JSON in watch page HTML.
const ytInitialPlayerResponseMarker = "ytInitialPlayerResponse = "

// errNoCaptions marks a definitive "this video has no usable captions" answer,
// as opposed to a failed request.
var errNoCaptions = errors.New("no usable captions")

// Loader fetches transcripts and titles for YouTube videos.
// It implements engine.TranscriptLoader.
type Loader struct {
	httpClient *http.Client
	browser    *engine.BrowserClient
	langs      []string
	baseURL    string
}

// LoaderOption customizes a Loader.
type LoaderOption func(*Loader)

// WithYouTubeBaseURL points watch-page and /player requests at another host.
func WithYouTubeBaseURL(u string) LoaderOption {
	return func(l *Loader) { l.baseURL = strings.TrimRight(u, "/") }
}

// NewLoader builds a Loader from cfg. When cfg.BrowserClient is set, watch
// pages are fetched with its Chrome fingerprint.
func NewLoader(cfg engine.Config, opts ...LoaderOption) *Loader {
	cfg = cfg.WithDefaults()
	l := &Loader{
		httpClient: cfg.HTTPClient,
		browser:    cfg.BrowserClient,
		langs:      cfg.TranscriptLangs,
		baseURL:    ytBaseURL,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadTranscript returns the caption segments and title of ref.
// Missing captions yield engine.ErrTranscriptUnavailable; network or
// upstream failures yield engine.ErrProvider.
func (l *Loader) LoadTranscript(ctx context.Context, ref engine.VideoRef) (engine.Transcript, error) {
	id := ref.ID
	if id == "" {
		id = engine.ParseVideoID(ref.URL)
	}
	if id == "" {
		return engine.Transcript{}, fmt.Errorf("%w: not a YouTube video: %q", engine.ErrTranscriptUnavailable, ref.Locator())
	}
	engine.IncrYouTubeTranscript()

	video := engine.VideoRef{ID: id, Title: ref.Title, URL: engine.WatchURL(id), PublishedAt: ref.PublishedAt}

	segs, title, scrapeErr := l.viaWatchPage(ctx, id)
	if scrapeErr == nil {
		video.Title = firstNonEmpty(video.Title, title)
		return engine.Transcript{Video: video, Segments: segs}, nil
	}
	if ctx.Err() != nil {
		return engine.Transcript{}, ctx.Err()
	}
	slog.Warn("youtube: page scrape failed, trying player",
		slog.String("id", id), slog.Any("err", scrapeErr))
	if title != "" && video.Title == "" {
		video.Title = title
	}

	segs, title, playerErr := l.viaPlayer(ctx, id)
	if playerErr == nil {
		video.Title = firstNonEmpty(video.Title, title)
		return engine.Transcript{Video: video, Segments: segs}, nil
	}
	if ctx.Err() != nil {
		return engine.Transcript{}, ctx.Err()
	}

	engine.IncrYouTubeTranscriptError()
	if errors.Is(scrapeErr, errNoCaptions) || errors.Is(playerErr, errNoCaptions) {
		return engine.Transcript{}, fmt.Errorf("%w: %s: %w", engine.ErrTranscriptUnavailable, id, playerErr)
	}
	return engine.Transcript{}, engine.ProviderErr("youtube", fmt.Errorf("%s: page: %v; player: %w", id, scrapeErr, playerErr))
}

// viaWatchPage scrapes the watch page HTML and reads the caption tracks from
// ytInitialPlayerResponse. The page title is returned even when captions fail.
func (l *Loader) viaWatchPage(ctx context.Context, videoID string) ([]engine.Segment, string, error) {
	body, err := l.fetchWatchPage(ctx, videoID)
	if err != nil {
		return nil, "", fmt.Errorf("watch page: %w", err)
	}
	title := pageTitle(body)

	idx := bytes.Index(body, []byte(ytInitialPlayerResponseMarker))
	if idx < 0 {
		return nil, title, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	jsonData := extractJSON(body[idx+len(ytInitialPlayerResponseMarker):])
	if jsonData == nil {
		return nil, title, errors.New("failed to extract ytInitialPlayerResponse JSON")
	}

	var player playerResp
	if err := json.Unmarshal(jsonData, &player); err != nil {
		return nil, title, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	title = firstNonEmpty(player.title(), title)
	segs, err := l.fromTracks(ctx, player)
	return segs, title, err
}

// viaPlayer uses the ANDROID Innertube /player endpoint.
func (l *Loader) viaPlayer(ctx context.Context, videoID string) ([]engine.Segment, string, error) {
	body, err := l.postPlayer(ctx, videoID)
	if err != nil {
		return nil, "", fmt.Errorf("android innertube: %w", err)
	}
	var player playerResp
	if err := json.Unmarshal(body, &player); err != nil {
		return nil, "", fmt.Errorf("decode player: %w", err)
	}
	segs, err := l.fromTracks(ctx, player)
	return segs, player.title(), err
}

func (l *Loader) fromTracks(ctx context.Context, player playerResp) ([]engine.Segment, error) {
	tracks := player.tracks()
	if len(tracks) == 0 {
		if reason := player.unplayableReason(); reason != "" {
			return nil, fmt.Errorf("%w: %s", errNoCaptions, reason)
		}
		return nil, fmt.Errorf("%w: no caption tracks", errNoCaptions)
	}
	track, ok := pickBestTrack(tracks, l.langs)
	if !ok {
		return nil, fmt.Errorf("%w: all caption tracks require PoToken", errNoCaptions)
	}
	segs, err := l.fetchTimedText(ctx, track.BaseURL)
	if err != nil {
		return nil, err
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: empty caption track %s", errNoCaptions, track.LanguageCode)
	}
	return segs, nil
}

type browserResult struct {
	data   []byte
	status int
	err    error
}

// browserGet fetches url with the stealth client. The client takes no
// context, so the request runs on until its own timeout while browserGet
// returns as soon as ctx is done.
func (l *Loader) browserGet(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	done := make(chan browserResult, 1)
	go func() {
		data, _, status, err := l.browser.Do(http.MethodGet, url, headers, nil)
		done <- browserResult{data: data, status: status, err: err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		if r.status != http.StatusOK {
			return nil, fmt.Errorf("HTTP %d", r.status)
		}
		return r.data, nil
	}
}

func (l *Loader) fetchWatchPage(ctx context.Context, videoID string) ([]byte, error) {
	watchURL := l.baseURL + "/watch?v=" + videoID

	if l.browser != nil {
		headers := engine.ChromeHeaders()
		headers["accept-language"] = "en-US,en;q=0.9"
		return l.browserGet(ctx, watchURL, headers)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", engine.RandomUserAgent())
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, ytWatchPageLimit))
}

// fetchTimedText fetches and parses a YouTube timedtext XML caption URL.
func (l *Loader) fetchTimedText(ctx context.Context, trackURL string) ([]engine.Segment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trackURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", engine.UserAgentBot)
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch timedtext: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, ytTimedTextLimit))
	if err != nil {
		return nil, err
	}
	return parseTimedText(body)
}

func parseTimedText(body []byte) ([]engine.Segment, error) {
	var tt ytTimedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}
	segs := make([]engine.Segment, 0, len(tt.Lines))
	for _, line := range tt.Lines {
		text := engine.CleanHTML(line.Text)
		if text == "" {
			continue
		}
		segs = append(segs, engine.Segment{Start: line.Start, Duration: line.Dur, Text: text})
	}
	return segs, nil
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
// Tracks with &exp=xpe cannot be fetched server-side.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, ytPoTokenURLMarker)
}

// pickBestTrack selects the best usable caption track for the given language preferences.
// Skips tracks that require PoToken.
func pickBestTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, false
	}
	// 1. Manual track in preferred language
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang && t.Kind != ytCaptionKindAuto {
				return t, true
			}
		}
	}
	// 2. Auto-generated track in preferred language
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang {
				return t, true
			}
		}
	}
	// 3. Any English track
	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, true
		}
	}
	return usable[0], true
}

// extractJSON extracts a complete JSON object starting at b[0] == '{' by tracking brace depth.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr, escaped := false, false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}

// pageTitle reads og:title, falling back to <title> without the site suffix.
func pageTitle(body []byte) string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	var ogTitle, docTitle string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if ogTitle != "" {
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				if attr(n, "property") == "og:title" || attr(n, "name") == "title" {
					ogTitle = strings.TrimSpace(attr(n, "content"))
				}
			case "title":
				if docTitle == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					docTitle = strings.TrimSpace(n.FirstChild.Data)
				}
			case "script", "style":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if ogTitle != "" {
		return ogTitle
	}
	return strings.TrimSpace(strings.TrimSuffix(docTitle, "- YouTube"))
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
