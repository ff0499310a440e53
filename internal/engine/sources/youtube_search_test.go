package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/anatolykoptev/go_digest/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.FixedZone("CET", 3600))

const testSearchResp = `{"items":[
 {"id":{"videoId":"aaaaaaaaaaa"},"snippet":{"title":"Q&amp;A &#39;live&#39;","channelTitle":"Chan","publishedAt":"2024-03-10T09:00:00Z"}},
 {"id":{"kind":"youtube#playlist"},"snippet":{"title":"skip me"}},
 {"id":{"videoId":"bbbbbbbbbbb"},"snippet":{"title":"Second","channelTitle":"Chan","publishedAt":"2024-03-09T20:00:00Z"}}
]}`

type searchServer struct {
	mu      sync.Mutex
	queries []url.Values
	status  map[string]int // per-key status override
	body    string
}

func (s *searchServer) start(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		s.mu.Lock()
		s.queries = append(s.queries, q)
		s.mu.Unlock()
		if code, ok := s.status[q.Get("key")]; ok {
			w.WriteHeader(code)
			fmt.Fprint(w, `{"error":{"code":403,"message":"quotaExceeded"}}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, s.body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestDiscovery(srv *httptest.Server, primary, fallback string) *Discovery {
	cfg := engine.Config{YouTubeAPIKey: primary, YouTubeAPIKeyFallback: fallback, HTTPClient: srv.Client()}
	return NewDiscovery(cfg, WithDataAPIBaseURL(srv.URL), WithClock(func() time.Time { return fixedNow }))
}

func TestLatestVideos(t *testing.T) {
	s := &searchServer{body: testSearchResp}
	srv := s.start(t)

	videos := newTestDiscovery(srv, "key-1", "").LatestVideos(context.Background(), "UC123", 24, 5)

	require.Len(t, videos, 2)
	assert.Equal(t, "aaaaaaaaaaa", videos[0].ID)
	assert.Equal(t, "Q&A 'live'", videos[0].Title)
	assert.Equal(t, "https://www.youtube.com/watch?v=aaaaaaaaaaa", videos[0].URL)
	assert.Equal(t, time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), videos[0].PublishedAt.UTC())
	assert.Equal(t, "bbbbbbbbbbb", videos[1].ID)

	require.Len(t, s.queries, 1)
	q := s.queries[0]
	assert.Equal(t, "UC123", q.Get("channelId"))
	assert.Equal(t, "date", q.Get("order"))
	assert.Equal(t, "video", q.Get("type"))
	assert.Equal(t, "snippet", q.Get("part"))
	assert.Equal(t, "5", q.Get("maxResults"))
	assert.Equal(t, "key-1", q.Get("key"))
	assert.Equal(t, "2024-03-09T11:00:00Z", q.Get("publishedAfter"))
}

func TestLatestVideosFallbackKey(t *testing.T) {
	s := &searchServer{body: testSearchResp, status: map[string]int{"key-1": http.StatusForbidden}}
	srv := s.start(t)

	videos := newTestDiscovery(srv, "key-1", "key-2").LatestVideos(context.Background(), "UC123", 24, 5)

	assert.Len(t, videos, 2)
	require.Len(t, s.queries, 2)
	assert.Equal(t, "key-2", s.queries[1].Get("key"))
}

func TestLatestVideosFailureIsEmpty(t *testing.T) {
	s := &searchServer{status: map[string]int{"key-1": http.StatusForbidden}}
	srv := s.start(t)

	videos := newTestDiscovery(srv, "key-1", "").LatestVideos(context.Background(), "UC123", 24, 5)
	assert.NotNil(t, videos)
	assert.Empty(t, videos)
}

func TestLatestVideosEmptyChannel(t *testing.T) {
	s := &searchServer{body: `{"items":[]}`}
	srv := s.start(t)

	videos := newTestDiscovery(srv, "key-1", "").LatestVideos(context.Background(), "UCquiet", 24, 5)
	assert.Empty(t, videos)
}

func TestLatestVideosTruncatesToLimit(t *testing.T) {
	s := &searchServer{body: testSearchResp}
	srv := s.start(t)

	videos := newTestDiscovery(srv, "key-1", "").LatestVideos(context.Background(), "UC123", 24, 1)
	require.Len(t, videos, 1)
	assert.Equal(t, "aaaaaaaaaaa", videos[0].ID)
}

func TestPublishedAfter(t *testing.T) {
	tests := []struct {
		name  string
		hours int
		want  string
	}{
		{"one day", 24, "2024-03-09T11:00:00Z"},
		{"zero window", 0, "2024-03-10T11:00:00Z"},
		{"negative clamps", -5, "2024-03-10T11:00:00Z"},
		{"one week", 168, "2024-03-03T11:00:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PublishedAfter(fixedNow, tt.hours); got != tt.want {
				t.Errorf("PublishedAfter(%d) = %s, want %s", tt.hours, got, tt.want)
			}
		})
	}
}

func TestClampResults(t *testing.T) {
	for in, want := range map[int]int{0: engine.DefaultMaxVideos, -3: engine.DefaultMaxVideos, 7: 7, 500: 50} {
		if got := clampResults(in); got != want {
			t.Errorf("clampResults(%d) = %d, want %d", in, got, want)
		}
	}
}
