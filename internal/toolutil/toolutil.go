// Package toolutil provides input normalisation shared by the REST handlers
// and the MCP tools.
package toolutil

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_digest/internal/engine"
)

// MaxResultsCap bounds a caller-supplied video count.
const MaxResultsCap = 50

// ParseHours parses a timeframe_hours query value: empty → engine.DefaultHours.
func ParseHours(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return engine.DefaultHours, nil
	}
	h, err := strconv.Atoi(raw)
	if err != nil || h < 0 {
		return 0, fmt.Errorf("%w: timeframe_hours must be a non-negative integer, got %q", engine.ErrInvalidInput, raw)
	}
	return h, nil
}

// HoursOrDefault resolves an optional hours field.
func HoursOrDefault(h *int) (int, error) {
	if h == nil {
		return engine.DefaultHours, nil
	}
	if *h < 0 {
		return 0, fmt.Errorf("%w: timeframe_hours must be non-negative", engine.ErrInvalidInput)
	}
	return *h, nil
}

// NormMaxResults caps n at MaxResultsCap; zero or negative → 0 (caller default).
func NormMaxResults(n int) int {
	if n <= 0 {
		return 0
	}
	return min(n, MaxResultsCap)
}

// ChannelID trims and requires a channel identifier.
func ChannelID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", fmt.Errorf("%w: channel_id is required", engine.ErrInvalidInput)
	}
	return id, nil
}
