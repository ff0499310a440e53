package engine

import (
	"fmt"
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
)

// Pipeline defaults. The chunk window matches the LLM's comfortable input size;
// MinPaceInterval is the provider-imposed floor between successive LLM calls.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 30
	DefaultMaxVideos    = 5
	DefaultHours        = 24
	MinPaceInterval     = 500 * time.Millisecond
)

// Config holds all engine configuration. It is built once in main and
// passed to every constructor that needs it.
type Config struct {
	YouTubeAPIKey         string
	YouTubeAPIKeyFallback string
	LLMAPIKey             string
	LLMAPIKeyFallbacks    []string
	LLMAPIBase            string
	LLMModel              string
	LLMTemperature        float64
	LLMMaxTokens          int
	LLMTimeout            time.Duration // per generation call; 0 = none
	ChunkSize             int
	ChunkOverlap          int
	PaceInterval          time.Duration
	MaxVideos             int
	TranscriptLangs       []string
	FetchTimeout          time.Duration
	HTTPClient            *http.Client
	BrowserClient         *BrowserClient // nil = plain HTTP for watch pages
	LLMClient             *llm.Client
}

// Validate reports ErrConfiguration when either required credential is absent
// or the chunk window is unusable.
func (c Config) Validate() error {
	if c.YouTubeAPIKey == "" {
		return fmt.Errorf("%w: YOUTUBE_API_KEY is not set", ErrConfiguration)
	}
	return c.ValidateLLM()
}

// ValidateLLM checks what a single-video summary needs: the LLM credential and
// the chunk window. It does not require the Data API key.
func (c Config) ValidateLLM() error {
	if c.LLMAPIKey == "" {
		return fmt.Errorf("%w: LLM_API_KEY is not set", ErrConfiguration)
	}
	return c.validateChunking()
}

// validateChunking accepts the zero window, which means package defaults.
func (c Config) validateChunking() error {
	if c.ChunkSize == 0 && c.ChunkOverlap == 0 {
		return nil
	}
	if c.ChunkOverlap <= 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: CHUNK_OVERLAP=%d must be in (0, CHUNK_SIZE=%d)",
			ErrConfiguration, c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

// WithDefaults fills zero values with the package defaults.
func (c Config) WithDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.ChunkOverlap <= 0 || c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = min(DefaultChunkOverlap, c.ChunkSize-1)
	}
	if c.PaceInterval < MinPaceInterval {
		c.PaceInterval = MinPaceInterval
	}
	if c.MaxVideos <= 0 {
		c.MaxVideos = DefaultMaxVideos
	}
	if len(c.TranscriptLangs) == 0 {
		c.TranscriptLangs = []string{"en"}
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 15 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.FetchTimeout}
	}
	return c
}
