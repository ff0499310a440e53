package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// VideoDiscoverer lists a channel's recent videos, newest first.
// Implementations return an empty slice on lookup failure.
type VideoDiscoverer interface {
	LatestVideos(ctx context.Context, channelID string, hours, maxResults int) []VideoRef
}

// VideoSummarizer runs the pipeline for one video.
type VideoSummarizer interface {
	SummarizeVideo(ctx context.Context, ref VideoRef) (VideoSummary, error)
}

// Digester ties discovery and the pipeline together for a channel request.
// Videos are processed one at a time in discovery order. A failing video is
// skipped and reported; the request fails only when every video fails.
type Digester struct {
	cfg        Config
	discovery  VideoDiscoverer
	summarizer VideoSummarizer
}

// NewDigester returns a Digester using cfg for credentials and limits.
func NewDigester(cfg Config, discovery VideoDiscoverer, summarizer VideoSummarizer) *Digester {
	return &Digester{cfg: cfg, discovery: discovery, summarizer: summarizer}
}

// Videos runs discovery only.
func (d *Digester) Videos(ctx context.Context, channelID string, hours, maxResults int) ([]VideoRef, error) {
	if err := d.cfg.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(channelID) == "" {
		return nil, fmt.Errorf("%w: channel_id is required", ErrInvalidInput)
	}
	if maxResults <= 0 {
		maxResults = d.maxVideos()
	}
	return d.discovery.LatestVideos(ctx, channelID, max(hours, 0), maxResults), nil
}

// SummarizeChannel discovers the channel's videos from the last hours and
// summarizes each. The combined summary joins per-video summaries with a
// blank line in discovery order.
func (d *Digester) SummarizeChannel(ctx context.Context, channelID string, hours int) (ChannelDigest, error) {
	return d.SummarizeChannelN(ctx, channelID, hours, d.maxVideos())
}

// SummarizeChannelN is SummarizeChannel with an explicit video cap.
func (d *Digester) SummarizeChannelN(ctx context.Context, channelID string, hours, maxResults int) (ChannelDigest, error) {
	videos, err := d.Videos(ctx, channelID, hours, maxResults)
	if err != nil {
		return ChannelDigest{}, err
	}
	if len(videos) == 0 {
		return ChannelDigest{}, fmt.Errorf("%w: channel %s, last %dh", ErrNoVideosFound, channelID, hours)
	}
	slog.Info("digest: videos discovered",
		slog.String("channel", channelID), slog.Int("hours", hours), slog.Int("count", len(videos)))

	digest := ChannelDigest{ChannelID: channelID, TimeframeHours: hours}
	var lastErr error
	for _, v := range videos {
		if err := ctx.Err(); err != nil {
			return ChannelDigest{}, err
		}
		summary, err := d.summarizer.SummarizeVideo(ctx, v)
		if err != nil {
			if ctx.Err() != nil {
				return ChannelDigest{}, ctx.Err()
			}
			lastErr = err
			metrics.VideosSkipped.Add(1)
			digest.Skipped = append(digest.Skipped, skipped(v, err))
			slog.Warn("digest: video skipped",
				slog.String("video", v.Locator()), slog.String("title", v.Title), slog.Any("error", err))
			continue
		}
		metrics.VideosSummarized.Add(1)
		digest.Videos = append(digest.Videos, summary)
	}

	if len(digest.Videos) == 0 {
		return ChannelDigest{}, fmt.Errorf("%w: %d videos: %w", ErrAllVideosFailed, len(videos), lastErr)
	}
	digest.Summary = CombineSummaries(digest.Videos)
	return digest, nil
}

// SummarizeURL summarizes a single caller-supplied video locator.
func (d *Digester) SummarizeURL(ctx context.Context, locator string) (VideoSummary, error) {
	if err := d.cfg.ValidateLLM(); err != nil {
		return VideoSummary{}, err
	}
	if strings.TrimSpace(locator) == "" {
		return VideoSummary{}, fmt.Errorf("%w: url is required", ErrInvalidInput)
	}
	summary, err := d.summarizer.SummarizeVideo(ctx, NewVideoRef(locator))
	if err != nil {
		return VideoSummary{}, err
	}
	metrics.VideosSummarized.Add(1)
	return summary, nil
}

func (d *Digester) maxVideos() int {
	if d.cfg.MaxVideos > 0 {
		return d.cfg.MaxVideos
	}
	return DefaultMaxVideos
}

// CombineSummaries joins per-video summaries with a blank line.
func CombineSummaries(videos []VideoSummary) string {
	parts := make([]string, 0, len(videos))
	for _, v := range videos {
		parts = append(parts, v.Summary)
	}
	return strings.Join(parts, "\n\n")
}

func skipped(v VideoRef, err error) SkippedVideo {
	s := SkippedVideo{Video: v, Reason: err.Error()}
	var pe *PipelineError
	if errors.As(err, &pe) {
		s.Stage = pe.Stage
		if pe.Video.Title != "" {
			s.Video.Title = pe.Video.Title
		}
	}
	return s
}
