package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go_digest/internal/engine"
	"golang.org/x/net/html"
)

// Channel video discovery via YouTube Data API v3 /search.

const (
	ytDataAPIBase   = "https://www.googleapis.com/youtube/v3"
	ytMaxResultsCap = 50 // Data API page limit
)

// --- YouTube Data API v3 types ---

type ytDataSearchResp struct {
	Items []ytDataItem `json:"items"`
}

type ytDataItem struct {
	ID      ytDataItemID      `json:"id"`
	Snippet ytDataItemSnippet `json:"snippet"`
}

type ytDataItemID struct {
	VideoID string `json:"videoId"`
}

type ytDataItemSnippet struct {
	Title        string    `json:"title"`
	ChannelTitle string    `json:"channelTitle"`
	PublishedAt  time.Time `json:"publishedAt"`
}

// Discovery lists a channel's recent uploads with the Data API.
// It implements engine.VideoDiscoverer.
type Discovery struct {
	apiKey      string
	fallbackKey string
	baseURL     string
	httpClient  *http.Client
	now         func() time.Time
}

// DiscoveryOption customizes a Discovery.
type DiscoveryOption func(*Discovery)

// WithDataAPIBaseURL points search requests at another host.
func WithDataAPIBaseURL(u string) DiscoveryOption {
	return func(d *Discovery) { d.baseURL = strings.TrimRight(u, "/") }
}

// WithClock overrides the time source used for the publishedAfter cutoff.
func WithClock(now func() time.Time) DiscoveryOption {
	return func(d *Discovery) { d.now = now }
}

// NewDiscovery builds a Discovery with the keys from cfg.
func NewDiscovery(cfg engine.Config, opts ...DiscoveryOption) *Discovery {
	cfg = cfg.WithDefaults()
	d := &Discovery{
		apiKey:      cfg.YouTubeAPIKey,
		fallbackKey: cfg.YouTubeAPIKeyFallback,
		baseURL:     ytDataAPIBase,
		httpClient:  cfg.HTTPClient,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// LatestVideos returns up to maxResults videos published on channelID in the
// last hours, newest first. Lookup failures are logged and yield an empty slice.
func (d *Discovery) LatestVideos(ctx context.Context, channelID string, hours, maxResults int) []engine.VideoRef {
	engine.IncrYouTubeSearch()
	videos, err := d.search(ctx, channelID, PublishedAfter(d.now(), hours), clampResults(maxResults))
	if err != nil {
		engine.IncrYouTubeSearchError()
		slog.Warn("youtube: channel search failed",
			slog.String("channel", channelID), slog.Int("hours", hours), slog.Any("err", err))
		return []engine.VideoRef{}
	}
	return videos
}

// PublishedAfter is the RFC 3339 UTC cutoff for a window of hours ending at now.
// Negative windows are treated as zero.
func PublishedAfter(now time.Time, hours int) string {
	return now.Add(-time.Duration(max(hours, 0)) * time.Hour).UTC().Format(time.RFC3339)
}

func clampResults(n int) int {
	if n <= 0 {
		return engine.DefaultMaxVideos
	}
	return min(n, ytMaxResultsCap)
}

// search tries the primary key, then the fallback key on any failure.
func (d *Discovery) search(ctx context.Context, channelID, after string, limit int) ([]engine.VideoRef, error) {
	if d.apiKey == "" {
		return nil, fmt.Errorf("%w: YOUTUBE_API_KEY is not set", engine.ErrConfiguration)
	}
	keys := []string{d.apiKey}
	if d.fallbackKey != "" {
		keys = append(keys, d.fallbackKey)
	}
	var lastErr error
	for _, key := range keys {
		videos, err := d.doSearch(ctx, channelID, after, limit, key)
		if err == nil {
			return videos, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		slog.Debug("youtube data API key failed, trying fallback", slog.Any("err", err))
	}
	return nil, lastErr
}

func (d *Discovery) doSearch(ctx context.Context, channelID, after string, limit int, apiKey string) ([]engine.VideoRef, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("channelId", channelID)
	params.Set("order", "date")
	params.Set("type", "video")
	params.Set("publishedAfter", after)
	params.Set("maxResults", strconv.Itoa(limit))
	params.Set("key", apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", engine.UserAgentBot)
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, engine.ProviderErr("youtube data API", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, engine.ProviderErr("youtube data API", fmt.Errorf("HTTP %d: %s", resp.StatusCode, body))
	}

	var result ytDataSearchResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, engine.ProviderErr("youtube data API", fmt.Errorf("decode: %w", err))
	}

	videos := make([]engine.VideoRef, 0, len(result.Items))
	for _, item := range result.Items {
		if item.ID.VideoID == "" {
			continue
		}
		videos = append(videos, engine.VideoRef{
			ID:          item.ID.VideoID,
			Title:       html.UnescapeString(item.Snippet.Title),
			URL:         engine.WatchURL(item.ID.VideoID),
			PublishedAt: item.Snippet.PublishedAt,
		})
		if len(videos) == limit {
			break
		}
	}
	return videos, nil
}
