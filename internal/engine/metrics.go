package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	LLMCalls                  atomic.Int64
	LLMErrors                 atomic.Int64
	ChunkSummaries            atomic.Int64
	VideosSummarized          atomic.Int64
	VideosSkipped             atomic.Int64
	YouTubeSearchRequests     atomic.Int64
	YouTubeSearchErrors       atomic.Int64
	YouTubeTranscriptRequests atomic.Int64
	YouTubeTranscriptErrors   atomic.Int64
}

var metricKeys = []string{
	"llm_calls", "llm_errors",
	"chunk_summaries",
	"videos_summarized", "videos_skipped",
	"youtube_search_requests", "youtube_search_errors",
	"youtube_transcript_requests", "youtube_transcript_errors",
}

// GetMetrics returns a snapshot of all counters.
func GetMetrics() map[string]int64 {
	return map[string]int64{
		"llm_calls":                   metrics.LLMCalls.Load(),
		"llm_errors":                  metrics.LLMErrors.Load(),
		"chunk_summaries":             metrics.ChunkSummaries.Load(),
		"videos_summarized":           metrics.VideosSummarized.Load(),
		"videos_skipped":              metrics.VideosSkipped.Load(),
		"youtube_search_requests":     metrics.YouTubeSearchRequests.Load(),
		"youtube_search_errors":       metrics.YouTubeSearchErrors.Load(),
		"youtube_transcript_requests": metrics.YouTubeTranscriptRequests.Load(),
		"youtube_transcript_errors":   metrics.YouTubeTranscriptErrors.Load(),
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for sources/ sub-package.
func IncrYouTubeSearch()          { metrics.YouTubeSearchRequests.Add(1) }
func IncrYouTubeSearchError()     { metrics.YouTubeSearchErrors.Add(1) }
func IncrYouTubeTranscript()      { metrics.YouTubeTranscriptRequests.Add(1) }
func IncrYouTubeTranscriptError() { metrics.YouTubeTranscriptErrors.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 5*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
