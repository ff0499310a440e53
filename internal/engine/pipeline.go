package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// TranscriptLoader fetches a video's transcript and title.
type TranscriptLoader interface {
	LoadTranscript(ctx context.Context, ref VideoRef) (Transcript, error)
}

// Summarizer runs the two-stage pipeline for one video at a time:
// transcript → chunks → per-chunk summaries → final summary.
type Summarizer struct {
	gen       Generator
	loader    TranscriptLoader
	chunkSize int
	overlap   int
	pace      time.Duration
}

// SummarizerOption customizes a Summarizer.
type SummarizerOption func(*Summarizer)

// WithChunking sets the chunk window and overlap in characters.
func WithChunking(size, overlap int) SummarizerOption {
	return func(s *Summarizer) {
		s.chunkSize = size
		s.overlap = overlap
	}
}

// WithPace sets the minimum spacing between LLM calls of one run.
func WithPace(d time.Duration) SummarizerOption {
	return func(s *Summarizer) { s.pace = d }
}

// NewSummarizer builds a Summarizer with the package defaults.
func NewSummarizer(gen Generator, loader TranscriptLoader, opts ...SummarizerOption) *Summarizer {
	s := &Summarizer{
		gen:       gen,
		loader:    loader,
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		pace:      MinPaceInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SummarizeChunk summarizes one transcript chunk with ChunkSummaryPrompt.
func (s *Summarizer) SummarizeChunk(ctx context.Context, chunk string) (string, error) {
	prompt, err := ChunkSummaryPrompt.Render(map[string]string{"Input": chunk})
	if err != nil {
		return "", err
	}
	out, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	metrics.ChunkSummaries.Add(1)
	return out, nil
}

// SummarizeAll joins the chunk summaries with a blank line and condenses them
// into the final summary with VideoSummaryPrompt.
func (s *Summarizer) SummarizeAll(ctx context.Context, summaries []string, title, locator string) (string, error) {
	prompt, err := VideoSummaryPrompt.Render(map[string]string{
		"Responses": strings.Join(summaries, "\n\n"),
		"Title":     title,
		"URL":       locator,
	})
	if err != nil {
		return "", err
	}
	return s.gen.Generate(ctx, prompt)
}

// SummarizeVideo runs the full pipeline for ref. Any failure aborts the run;
// no partial summary is returned.
func (s *Summarizer) SummarizeVideo(ctx context.Context, ref VideoRef) (VideoSummary, error) {
	var out VideoSummary
	err := TrackOperation(ctx, "summarize:"+ref.Locator(), func(ctx context.Context) error {
		var err error
		out, err = s.summarizeVideo(ctx, ref)
		return err
	})
	if err != nil {
		return VideoSummary{}, err
	}
	return out, nil
}

func (s *Summarizer) summarizeVideo(ctx context.Context, ref VideoRef) (VideoSummary, error) {
	run := pipelineRun{video: ref, stage: StagePending}

	transcript, err := s.loader.LoadTranscript(ctx, ref)
	if err != nil {
		return VideoSummary{}, run.fail(err, 0)
	}
	video := transcript.Video
	if video.Title == "" {
		video.Title = ref.Title
	}
	if video.URL == "" {
		video.URL = ref.Locator()
	}
	run.video = video
	run.advance(StageTranscriptLoaded)

	chunks, err := Chunk(transcript.Text(), s.chunkSize, s.overlap)
	if err != nil {
		return VideoSummary{}, run.fail(err, 0)
	}
	if len(chunks) == 0 {
		return VideoSummary{}, run.fail(fmt.Errorf("%w: empty transcript", ErrTranscriptUnavailable), 0)
	}
	run.advance(StageChunked)
	slog.Info("pipeline: transcript chunked",
		slog.String("video", video.Locator()), slog.Int("chunks", len(chunks)))

	pacer := NewPacer(s.pace)
	run.advance(StageChunkSummarizing)
	summaries := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		if err := pacer.Wait(ctx); err != nil {
			return VideoSummary{}, run.fail(err, i+1)
		}
		summary, err := s.SummarizeChunk(ctx, chunk)
		pacer.Done()
		if err != nil {
			return VideoSummary{}, run.fail(err, i+1)
		}
		summaries = append(summaries, summary)
	}

	run.advance(StageAggregating)
	if err := pacer.Wait(ctx); err != nil {
		return VideoSummary{}, run.fail(err, 0)
	}
	final, err := s.SummarizeAll(ctx, summaries, video.Title, video.Locator())
	if err != nil {
		return VideoSummary{}, run.fail(err, 0)
	}
	run.advance(StageDone)

	return VideoSummary{Video: video, Summary: final, Chunks: len(chunks)}, nil
}

// pipelineRun tracks the stage of one video's run for logging and errors.
type pipelineRun struct {
	video VideoRef
	stage Stage
}

func (r *pipelineRun) advance(next Stage) {
	slog.Debug("pipeline: stage",
		slog.String("video", r.video.Locator()),
		slog.String("from", string(r.stage)),
		slog.String("to", string(next)))
	r.stage = next
}

func (r *pipelineRun) fail(err error, chunk int) error {
	failed := &PipelineError{Video: r.video, Stage: r.stage, Chunk: chunk, Err: err}
	r.advance(StageFailed)
	return failed
}
