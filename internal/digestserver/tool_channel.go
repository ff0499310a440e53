package digestserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anatolykoptev/go_digest/internal/engine"
	"github.com/anatolykoptev/go_digest/internal/toolutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ChannelInput struct {
	ChannelID      string `json:"channel_id" jsonschema:"YouTube channel ID (starts with UC)"`
	TimeframeHours *int   `json:"timeframe_hours,omitempty" jsonschema:"Lookback window in hours (default 24)"`
	MaxResults     int    `json:"max_results,omitempty" jsonschema:"Max videos to process (default 5, max 50)"`
}

type ChannelVideosOutput struct {
	ChannelID      string            `json:"channel_id"`
	TimeframeHours int               `json:"timeframe_hours"`
	Count          int               `json:"count"`
	Videos         []engine.VideoRef `json:"videos"`
}

func (in ChannelInput) normalize() (string, int, int, error) {
	id, err := toolutil.ChannelID(in.ChannelID)
	if err != nil {
		return "", 0, 0, err
	}
	hours, err := toolutil.HoursOrDefault(in.TimeframeHours)
	if err != nil {
		return "", 0, 0, err
	}
	return id, hours, toolutil.NormMaxResults(in.MaxResults), nil
}

func registerChannelDigest(server *mcp.Server, d Digester) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "channel_digest",
		Description: "Summarize the videos a YouTube channel published in the last N hours. Videos are processed one at a time, newest first; videos without transcripts are skipped and listed. Returns per-video summaries plus the combined Markdown digest.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input ChannelInput) (*mcp.CallToolResult, engine.ChannelDigest, error) {
		id, hours, maxResults, err := input.normalize()
		if err != nil {
			return nil, engine.ChannelDigest{}, err
		}
		out, err := d.SummarizeChannelN(ctx, id, hours, maxResults)
		if err != nil {
			slog.Warn("channel_digest error", slog.String("channel", id), slog.Any("error", err))
			return nil, engine.ChannelDigest{}, fmt.Errorf("channel digest failed: %w", err)
		}
		return nil, out, nil
	})
}

func registerChannelVideos(server *mcp.Server, d Digester) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "channel_videos",
		Description: "List the videos a YouTube channel published in the last N hours (title, ID, URL, publish time), newest first. Fast: no transcript or LLM processing.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input ChannelInput) (*mcp.CallToolResult, ChannelVideosOutput, error) {
		id, hours, maxResults, err := input.normalize()
		if err != nil {
			return nil, ChannelVideosOutput{}, err
		}
		videos, err := d.Videos(ctx, id, hours, maxResults)
		if err != nil {
			return nil, ChannelVideosOutput{}, fmt.Errorf("channel videos failed: %w", err)
		}
		return nil, ChannelVideosOutput{
			ChannelID:      id,
			TimeframeHours: hours,
			Count:          len(videos),
			Videos:         videos,
		}, nil
	})
}
