package engine

import (
	"fmt"
	"strings"
	"text/template"
)

// LLM prompt templates — data only, no logic.

// PromptTemplate is a named, versioned instruction with explicit slots.
// Rendering fails on a missing slot rather than emitting "<no value>".
type PromptTemplate struct {
	Name    string
	Version string
	Slots   []string
	tmpl    *template.Template
}

func newPrompt(name, version, text string, slots ...string) PromptTemplate {
	return PromptTemplate{
		Name:    name,
		Version: version,
		Slots:   slots,
		tmpl:    template.Must(template.New(name + "/" + version).Option("missingkey=error").Parse(text)),
	}
}

// ID is "name/version", used in logs.
func (p PromptTemplate) ID() string { return p.Name + "/" + p.Version }

// Render substitutes vars into the template. Every declared slot must be present.
func (p PromptTemplate) Render(vars map[string]string) (string, error) {
	for _, s := range p.Slots {
		if _, ok := vars[s]; !ok {
			return "", fmt.Errorf("prompt %s: missing slot %q", p.ID(), s)
		}
	}
	var sb strings.Builder
	if err := p.tmpl.Execute(&sb, vars); err != nil {
		return "", fmt.Errorf("prompt %s: %w", p.ID(), err)
	}
	return sb.String(), nil
}

// ChunkSummaryPrompt summarizes one transcript chunk.
// Slots: Input.
var ChunkSummaryPrompt = newPrompt("chunk_summary", "v1", `Please provide a summarized but comprehensive response based on the following part of a YouTube video transcript:

{{.Input}}

Ensure the summary includes the names of key companies and relevant details such as software, engines or library packages.`,
	"Input")

// VideoSummaryPrompt condenses the ordered chunk summaries into the final summary.
// Slots: Responses, Title, URL.
var VideoSummaryPrompt = newPrompt("video_summary", "v1", `Please provide a concise summary of the following responses for the video "{{.Title}}" ({{.URL}}):

{{.Responses}}

Output format:
- First line: the video title as a Markdown heading: # {{.Title}}
- Second line: the video URL: {{.URL}}
- Then the key details and the names of companies mentioned, as bullet points or short paragraphs.
Keep the summary concise and informative.`,
	"Responses", "Title", "URL")
