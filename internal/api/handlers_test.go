package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anatolykoptev/go_digest/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockDigester struct {
	summarizeChannel func(ctx context.Context, channelID string, hours int) (engine.ChannelDigest, error)
	summarizeURL     func(ctx context.Context, locator string) (engine.VideoSummary, error)
}

func (m *mockDigester) SummarizeChannel(ctx context.Context, channelID string, hours int) (engine.ChannelDigest, error) {
	return m.summarizeChannel(ctx, channelID, hours)
}

func (m *mockDigester) SummarizeURL(ctx context.Context, locator string) (engine.VideoSummary, error) {
	return m.summarizeURL(ctx, locator)
}

func newTestServer(t *testing.T, d Digester) http.Handler {
	t.Helper()
	s, err := NewServer(DefaultConfig(), d)
	require.NoError(t, err)
	return s.Handler()
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestSummarizeVideosJSON(t *testing.T) {
	var gotChannel string
	var gotHours int
	d := &mockDigester{summarizeChannel: func(_ context.Context, id string, hours int) (engine.ChannelDigest, error) {
		gotChannel, gotHours = id, hours
		return engine.ChannelDigest{
			ChannelID: id,
			Summary:   "# Demo\nv1\n- point",
			Videos:    []engine.VideoSummary{{Video: engine.VideoRef{ID: "v1", Title: "Demo"}, Summary: "# Demo\nv1\n- point", Chunks: 3}},
		}, nil
	}}
	h := newTestServer(t, d)

	rec := get(t, h, "/api/summarize-videos/?channel_id=UC123")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "# Demo\nv1\n- point", body["summary"])
	assert.Equal(t, "UC123", gotChannel)
	assert.Equal(t, 24, gotHours, "timeframe_hours defaults to 24")

	get(t, h, "/api/summarize-videos/?channel_id=UC123&timeframe_hours=6")
	assert.Equal(t, 6, gotHours)
}

func TestSummarizeVideosStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		err    error
		status int
	}{
		{"missing credentials", "channel_id=UC1", fmt.Errorf("%w: YOUTUBE_API_KEY is not set", engine.ErrConfiguration), http.StatusInternalServerError},
		{"no videos", "channel_id=UC1", fmt.Errorf("%w: channel UC1", engine.ErrNoVideosFound), http.StatusNotFound},
		{"all failed", "channel_id=UC1", fmt.Errorf("%w: 2 videos: %w", engine.ErrAllVideosFailed, engine.ErrTranscriptUnavailable), http.StatusBadGateway},
		{"provider", "channel_id=UC1", engine.ProviderErr("llm", errors.New("429")), http.StatusBadGateway},
		{"timeout", "channel_id=UC1", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"llm timeout", "channel_id=UC1", engine.ProviderErr("llm", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"unknown", "channel_id=UC1", errors.New("boom"), http.StatusInternalServerError},
		{"missing channel", "", nil, http.StatusBadRequest},
		{"bad hours", "channel_id=UC1&timeframe_hours=abc", nil, http.StatusBadRequest},
		{"negative hours", "channel_id=UC1&timeframe_hours=-4", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			d := &mockDigester{summarizeChannel: func(context.Context, string, int) (engine.ChannelDigest, error) {
				called = true
				return engine.ChannelDigest{}, tt.err
			}}
			h := newTestServer(t, d)

			rec := get(t, h, "/api/summarize-videos/?"+tt.query)
			assert.Equal(t, tt.status, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
			if tt.err == nil {
				assert.False(t, called, "invalid input must not reach the digester")
			}
		})
	}
}

// discovery and summarizer stubs for wiring a real engine.Digester.
type emptyDiscovery struct{}

func (emptyDiscovery) LatestVideos(context.Context, string, int, int) []engine.VideoRef { return nil }

type countingSummarizer struct{ calls int }

func (c *countingSummarizer) SummarizeVideo(context.Context, engine.VideoRef) (engine.VideoSummary, error) {
	c.calls++
	return engine.VideoSummary{}, nil
}

func TestSummarizeVideosNoVideosSkipsPipeline(t *testing.T) {
	sum := &countingSummarizer{}
	cfg := engine.Config{YouTubeAPIKey: "yt", LLMAPIKey: "llm"}
	h := newTestServer(t, engine.NewDigester(cfg, emptyDiscovery{}, sum))

	rec := get(t, h, "/api/summarize-videos/?channel_id=UC123&timeframe_hours=24")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, sum.calls)
}

func TestSummarizeVideosMissingKeys(t *testing.T) {
	sum := &countingSummarizer{}
	h := newTestServer(t, engine.NewDigester(engine.Config{}, emptyDiscovery{}, sum))

	rec := get(t, h, "/api/summarize-videos/?channel_id=UC123")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "not set")
	assert.Zero(t, sum.calls)
}

func TestSummarizeVideosHTML(t *testing.T) {
	d := &mockDigester{summarizeChannel: func(_ context.Context, id string, hours int) (engine.ChannelDigest, error) {
		return engine.ChannelDigest{
			ChannelID:      id,
			TimeframeHours: hours,
			Summary:        "# Demo\nhttps://youtu.be/v1\n- **bold** point\n- <script>alert(1)</script>",
			Skipped: []engine.SkippedVideo{{
				Video:  engine.VideoRef{URL: "https://www.youtube.com/watch?v=bbbbbbbbbbb", Title: "Silent"},
				Reason: "transcript unavailable",
			}},
		}, nil
	}}
	h := newTestServer(t, d)

	rec := get(t, h, "/summarize-videos/?channel_id=UC123&timeframe_hours=12")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	page := rec.Body.String()
	assert.Contains(t, page, "<h1>Demo</h1>")
	assert.Contains(t, page, "<strong>bold</strong>")
	assert.NotContains(t, page, "<script>alert(1)</script>", "raw HTML from the LLM must not pass through")
	assert.Contains(t, page, "last 12h")
	assert.Contains(t, page, "Silent")
}

func TestSummarizeVideosHTMLError(t *testing.T) {
	d := &mockDigester{summarizeChannel: func(context.Context, string, int) (engine.ChannelDigest, error) {
		return engine.ChannelDigest{}, fmt.Errorf("%w: channel UC1", engine.ErrNoVideosFound)
	}}
	h := newTestServer(t, d)

	rec := get(t, h, "/summarize-videos/?channel_id=UC1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "404 Not Found")
	assert.Contains(t, rec.Body.String(), "no videos found")
}

func TestSummarizeVideoJSON(t *testing.T) {
	d := &mockDigester{summarizeURL: func(_ context.Context, locator string) (engine.VideoSummary, error) {
		if locator == "" {
			return engine.VideoSummary{}, fmt.Errorf("%w: url is required", engine.ErrInvalidInput)
		}
		if locator == "https://vimeo.com/1" {
			return engine.VideoSummary{}, fmt.Errorf("%w: not a YouTube video", engine.ErrTranscriptUnavailable)
		}
		return engine.VideoSummary{Video: engine.NewVideoRef(locator), Summary: "# T", Chunks: 1}, nil
	}}
	h := newTestServer(t, d)

	rec := get(t, h, "/api/summarize-video/?url=https://youtu.be/dQw4w9WgXcQ")
	require.Equal(t, http.StatusOK, rec.Code)
	var out engine.VideoSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "dQw4w9WgXcQ", out.Video.ID)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/summarize-video/").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, get(t, h, "/api/summarize-video/?url=https://vimeo.com/1").Code)
}

func TestIndexAndStatic(t *testing.T) {
	h := newTestServer(t, &mockDigester{})

	rec := get(t, h, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/summarize-videos/"`)
	assert.Contains(t, rec.Body.String(), `name="timeframe_hours"`)

	rec = get(t, h, "/static/style.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")

	assert.Equal(t, http.StatusNotFound, get(t, h, "/nope").Code)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t, &mockDigester{})

	rec := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "llm_calls ")
	assert.Contains(t, rec.Body.String(), "videos_skipped ")
}

func TestStaticDirOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "templates"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "static"), 0o755))
	for name, body := range map[string]string{
		"templates/index.html":   "custom index",
		"templates/summary.html": "{{.Summary}}",
		"templates/error.html":   "{{.Message}}",
		"static/app.js":          "console.log(1)",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	s, err := NewServer(Config{StaticDir: dir}, &mockDigester{})
	require.NoError(t, err)
	h := s.Handler()

	assert.Equal(t, "custom index", strings.TrimSpace(get(t, h, "/").Body.String()))
	assert.Equal(t, http.StatusOK, get(t, h, "/static/app.js").Code)

	_, err = NewServer(Config{StaticDir: filepath.Join(dir, "missing")}, &mockDigester{})
	assert.Error(t, err)
}

func TestRecoverMiddleware(t *testing.T) {
	d := &mockDigester{summarizeURL: func(context.Context, string) (engine.VideoSummary, error) {
		panic("boom")
	}}
	h := newTestServer(t, d)

	rec := get(t, h, "/api/summarize-video/?url=x")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
