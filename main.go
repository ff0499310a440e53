// go_digest — YouTube channel digest service.
//
// Summarizes a channel's recent uploads from their transcripts with an LLM:
// transcript → overlapping chunks → per-chunk summaries → one final summary.
// Serves a REST/HTML API on HTTP_PORT and MCP tools (video_summary,
// channel_digest, channel_videos) on MCP_PORT. With -url or -channel it runs
// once and prints the result.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/anatolykoptev/go_digest/internal/api"
	"github.com/anatolykoptev/go_digest/internal/digestserver"
	"github.com/anatolykoptev/go_digest/internal/engine"
	"github.com/anatolykoptev/go_digest/internal/engine/sources"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

var (
	videoURL  = flag.String("url", "", "summarize one video (URL or ID) and exit")
	channelID = flag.String("channel", "", "summarize a channel's recent videos and exit")
	hours     = flag.Int("hours", engine.DefaultHours, "lookback window for -channel, in hours")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}
	setupLogger(env.Str("LOG_LEVEL", "info"), env.Str("LOG_FORMAT", "text"))

	cfg := loadConfig()
	digester := newDigester(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch {
	case *videoURL != "":
		err = printVideo(ctx, digester, *videoURL)
	case *channelID != "":
		err = printChannel(ctx, digester, *channelID, *hours)
	default:
		err = serve(ctx, digester)
	}
	if err != nil {
		slog.Error("go_digest failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func loadConfig() engine.Config {
	fetchTimeout := env.Duration("FETCH_TIMEOUT", 15*time.Second)
	c := engine.Config{
		YouTubeAPIKey:         env.Str("YOUTUBE_API_KEY", ""),
		YouTubeAPIKeyFallback: env.Str("YOUTUBE_API_KEY_FALLBACK", ""),
		LLMAPIKey:             env.Str("LLM_API_KEY", env.Str("OPENAI_API_KEY", "")),
		LLMAPIKeyFallbacks:    env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:            env.Str("LLM_API_BASE", "https://api.openai.com/v1"),
		LLMModel:              env.Str("LLM_MODEL", "gpt-3.5-turbo"),
		LLMTemperature:        env.Float("LLM_TEMPERATURE", 0.5),
		LLMMaxTokens:          env.Int("LLM_MAX_TOKENS", 2048),
		LLMTimeout:            env.Duration("LLM_TIMEOUT", 60*time.Second),
		ChunkSize:             env.Int("CHUNK_SIZE", engine.DefaultChunkSize),
		ChunkOverlap:          env.Int("CHUNK_OVERLAP", engine.DefaultChunkOverlap),
		PaceInterval:          env.Duration("PACE_INTERVAL", engine.MinPaceInterval),
		MaxVideos:             env.Int("MAX_VIDEOS", engine.DefaultMaxVideos),
		TranscriptLangs:       env.List("TRANSCRIPT_LANGS", "en"),
		FetchTimeout:          fetchTimeout,
		HTTPClient: &http.Client{
			Timeout: fetchTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}
	c = c.WithDefaults()

	bc, err := engine.NewBrowserClient(env.Str("WEBSHARE_API_KEY", ""))
	if err != nil {
		slog.Warn("stealth client init failed, watch pages use plain HTTP", slog.Any("error", err))
	} else {
		c.BrowserClient = bc
		slog.Info("stealth browser client initialized")
	}

	c.LLMClient = engine.NewLLMClient(c)
	if err := c.Validate(); err != nil {
		slog.Warn("configuration incomplete, requests will fail until set", slog.Any("error", err))
	}
	return c
}

func newDigester(cfg engine.Config) *engine.Digester {
	gen := engine.NewLLMGenerator(cfg.LLMClient, cfg.LLMTimeout)
	summarizer := engine.NewSummarizer(gen, sources.NewLoader(cfg),
		engine.WithChunking(cfg.ChunkSize, cfg.ChunkOverlap),
		engine.WithPace(cfg.PaceInterval),
	)
	return engine.NewDigester(cfg, sources.NewDiscovery(cfg), summarizer)
}

// serve runs the REST server and, unless MCP_PORT=off, the MCP server.
func serve(ctx context.Context, d *engine.Digester) error {
	apiCfg := api.DefaultConfig()
	apiCfg.Port = env.Str("HTTP_PORT", apiCfg.Port)
	apiCfg.StaticDir = env.Str("STATIC_DIR", "")
	srv, err := api.NewServer(apiCfg, d)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })

	if mcpPort := env.Str("MCP_PORT", "8892"); mcpPort != "off" {
		server := mcp.NewServer(&mcp.Implementation{
			Name:    "go_digest",
			Version: version,
		}, nil)
		digestserver.RegisterTools(server, d)
		slog.Info("starting go_digest mcp", slog.String("port", mcpPort), slog.Int("tools", 3))

		g.Go(func() error {
			return mcpserver.Run(server, mcpserver.Config{
				Name:         "go_digest",
				Version:      version,
				Port:         mcpPort,
				WriteTimeout: 600 * time.Second,
				Metrics:      engine.FormatMetrics,
			})
		})
	}
	return g.Wait()
}

func printVideo(ctx context.Context, d *engine.Digester, locator string) error {
	out, err := d.SummarizeURL(ctx, locator)
	if err != nil {
		return err
	}
	fmt.Println(out.Summary)
	return nil
}

func printChannel(ctx context.Context, d *engine.Digester, channel string, h int) error {
	out, err := d.SummarizeChannel(ctx, channel, h)
	if err != nil {
		return err
	}
	fmt.Println(out.Summary)
	for _, s := range out.Skipped {
		fmt.Fprintf(os.Stderr, "skipped %s (%s): %s\n", s.Video.Locator(), s.Video.Title, s.Reason)
	}
	return nil
}

func setupLogger(level, format string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}
