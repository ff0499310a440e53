package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
)

// Generator turns a rendered prompt into generated text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// LLMGenerator calls an OpenAI-compatible chat endpoint through go-kit's client.
type LLMGenerator struct {
	client  *llm.Client
	timeout time.Duration
}

// NewLLMGenerator wraps client. A positive timeout bounds each call.
func NewLLMGenerator(client *llm.Client, timeout time.Duration) *LLMGenerator {
	return &LLMGenerator{client: client, timeout: timeout}
}

// NewLLMClient builds the go-kit client from cfg.
func NewLLMClient(cfg Config) *llm.Client {
	return llm.NewClient(cfg.LLMAPIBase, cfg.LLMAPIKey, cfg.LLMModel,
		llm.WithFallbackKeys(cfg.LLMAPIKeyFallbacks),
		llm.WithMaxTokens(cfg.LLMMaxTokens),
		llm.WithTemperature(cfg.LLMTemperature),
		llm.WithHTTPClient(&http.Client{Timeout: cfg.LLMTimeout}),
	)
}

// Generate sends prompt as a single user message.
func (g *LLMGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	metrics.LLMCalls.Add(1)
	resp, err := g.client.Complete(ctx, "", prompt)
	if err != nil {
		metrics.LLMErrors.Add(1)
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return "", ProviderErr("llm", err)
	}
	out := stripFences(resp)
	slog.Debug("llm: generated",
		slog.Int("prompt_chars", len(prompt)),
		slog.String("preview", TruncateRunes(out, 120, "...")))
	return out, nil
}

// stripFences removes a markdown code fence wrapping the whole LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], " \t") {
		s = s[nl+1:] // language tag, e.g. ```markdown
	}
	return strings.TrimSpace(s)
}
