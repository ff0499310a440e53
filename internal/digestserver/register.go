package digestserver

import (
	"context"

	"github.com/anatolykoptev/go_digest/internal/engine"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Digester is the engine surface the tools need.
type Digester interface {
	SummarizeURL(ctx context.Context, locator string) (engine.VideoSummary, error)
	SummarizeChannelN(ctx context.Context, channelID string, hours, maxResults int) (engine.ChannelDigest, error)
	Videos(ctx context.Context, channelID string, hours, maxResults int) ([]engine.VideoRef, error)
}

// RegisterTools registers all digest tools on the given MCP server:
// video_summary, channel_digest, channel_videos.
func RegisterTools(server *mcp.Server, d Digester) {
	registerVideoSummary(server, d)
	registerChannelDigest(server, d)
	registerChannelVideos(server, d)
}
