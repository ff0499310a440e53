package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/anatolykoptev/go_digest/internal/engine"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed assets
var embedded embed.FS

// Raw HTML in LLM output is omitted: the default renderer is not unsafe.
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

type summaryPage struct {
	ChannelID      string
	TimeframeHours int
	Summary        template.HTML
	Skipped        []engine.SkippedVideo
}

type errorPage struct {
	Status  int
	Title   string
	Message string
}

func parsePages(assets fs.FS) (*template.Template, error) {
	t, err := template.ParseFS(assets, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	for _, name := range []string{"index.html", "summary.html", "error.html"} {
		if t.Lookup(name) == nil {
			return nil, fmt.Errorf("parse templates: %s missing", name)
		}
	}
	return t, nil
}

func markdownToHTML(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// render buffers the page so a template error can still produce a 500.
func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("api: render failed", slog.String("template", name), slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, status int, err error) {
	s.render(w, status, "error.html", errorPage{
		Status:  status,
		Title:   http.StatusText(status),
		Message: err.Error(),
	})
}
