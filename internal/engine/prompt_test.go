package engine

import (
	"strings"
	"testing"
)

func TestChunkSummaryPromptRender(t *testing.T) {
	out, err := ChunkSummaryPrompt.Render(map[string]string{"Input": "the <chunk> text & more"})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(out, "the <chunk> text & more") {
		t.Errorf("rendered prompt lost or escaped the chunk text:\n%s", out)
	}
	if strings.Contains(out, "{{") || strings.Contains(out, "<no value>") {
		t.Errorf("unsubstituted slot in prompt:\n%s", out)
	}
}

func TestVideoSummaryPromptRender(t *testing.T) {
	out, err := VideoSummaryPrompt.Render(map[string]string{
		"Responses": "first\n\nsecond",
		"Title":     "Demo",
		"URL":       "https://www.youtube.com/watch?v=abcdefghijk",
	})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	for _, want := range []string{"first\n\nsecond", "# Demo", "https://www.youtube.com/watch?v=abcdefghijk"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered prompt missing %q", want)
		}
	}
}

func TestPromptMissingSlot(t *testing.T) {
	_, err := VideoSummaryPrompt.Render(map[string]string{"Responses": "x", "Title": "t"})
	if err == nil {
		t.Fatal("expected error for missing URL slot")
	}
	if !strings.Contains(err.Error(), "video_summary/v1") {
		t.Errorf("error should name the template: %v", err)
	}
}

func TestPromptIDs(t *testing.T) {
	if ChunkSummaryPrompt.ID() == VideoSummaryPrompt.ID() {
		t.Error("prompt templates must have distinct IDs")
	}
	if got := ChunkSummaryPrompt.ID(); got != "chunk_summary/v1" {
		t.Errorf("ChunkSummaryPrompt.ID() = %q", got)
	}
}
