package engine

import (
	"errors"
	"fmt"
)

// Error taxonomy. Callers match with errors.Is; the HTTP layer maps each
// sentinel to one status code.
var (
	ErrConfiguration         = errors.New("configuration error")
	ErrNoVideosFound         = errors.New("no videos found")
	ErrTranscriptUnavailable = errors.New("transcript unavailable")
	ErrProvider              = errors.New("provider error")
	ErrInvalidInput          = errors.New("invalid input")
	ErrAllVideosFailed       = errors.New("all videos failed")
)

// Stage is a step of one video's pipeline run.
type Stage string

const (
	StagePending          Stage = "pending"
	StageTranscriptLoaded Stage = "transcript_loaded"
	StageChunked          Stage = "chunked"
	StageChunkSummarizing Stage = "chunk_summarizing"
	StageAggregating      Stage = "aggregating"
	StageDone             Stage = "done"
	StageFailed           Stage = "failed"
)

// PipelineError records where a video's run failed. Stage is the stage that
// was in progress; Chunk is the 1-based chunk index during chunk_summarizing.
type PipelineError struct {
	Video VideoRef
	Stage Stage
	Chunk int
	Err   error
}

func (e *PipelineError) Error() string {
	if e.Stage == StageChunkSummarizing && e.Chunk > 0 {
		return fmt.Sprintf("summarize %s: %s chunk %d: %v", e.Video.Locator(), e.Stage, e.Chunk, e.Err)
	}
	return fmt.Sprintf("summarize %s: %s: %v", e.Video.Locator(), e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// ProviderErr tags err as an upstream service failure.
func ProviderErr(service string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrProvider, service, err)
}
