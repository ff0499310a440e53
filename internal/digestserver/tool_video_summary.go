package digestserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anatolykoptev/go_digest/internal/engine"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type VideoSummaryInput struct {
	URL string `json:"url" jsonschema:"YouTube video URL (watch, youtu.be, shorts, embed) or 11-character video ID"`
}

func registerVideoSummary(server *mcp.Server, d Digester) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_summary",
		Description: "Summarize one YouTube video from its transcript. The transcript is split into overlapping chunks, each chunk is summarized, then the chunk summaries are condensed into a Markdown summary headed by the video title and URL.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input VideoSummaryInput) (*mcp.CallToolResult, engine.VideoSummary, error) {
		if input.URL == "" {
			return nil, engine.VideoSummary{}, fmt.Errorf("url is required")
		}
		out, err := d.SummarizeURL(ctx, input.URL)
		if err != nil {
			slog.Warn("video_summary error", slog.String("url", input.URL), slog.Any("error", err))
			return nil, engine.VideoSummary{}, fmt.Errorf("video summary failed: %w", err)
		}
		return nil, out, nil
	})
}
