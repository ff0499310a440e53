package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/anatolykoptev/go_digest/internal/engine"
	"github.com/anatolykoptev/go_digest/internal/toolutil"
)

type summaryResponse struct {
	Summary string                `json:"summary"`
	Videos  []engine.VideoSummary `json:"videos,omitempty"`
	Skipped []engine.SkippedVideo `json:"skipped,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(engine.FormatMetrics()))
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, "index.html", nil)
}

func (s *Server) handleSummarizeVideosJSON(w http.ResponseWriter, r *http.Request) {
	digest, err := s.channelDigest(r)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		Summary: digest.Summary,
		Videos:  digest.Videos,
		Skipped: digest.Skipped,
	})
}

func (s *Server) handleSummarizeVideosHTML(w http.ResponseWriter, r *http.Request) {
	digest, err := s.channelDigest(r)
	if err != nil {
		s.renderError(w, statusFor(err), err)
		return
	}
	body, err := markdownToHTML(digest.Summary)
	if err != nil {
		s.renderError(w, http.StatusInternalServerError, err)
		return
	}
	s.render(w, http.StatusOK, "summary.html", summaryPage{
		ChannelID:      digest.ChannelID,
		TimeframeHours: digest.TimeframeHours,
		Summary:        body,
		Skipped:        digest.Skipped,
	})
}

func (s *Server) handleSummarizeVideoJSON(w http.ResponseWriter, r *http.Request) {
	out, err := s.digester.SummarizeURL(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) channelDigest(r *http.Request) (engine.ChannelDigest, error) {
	q := r.URL.Query()
	channelID, err := toolutil.ChannelID(q.Get("channel_id"))
	if err != nil {
		return engine.ChannelDigest{}, err
	}
	hours, err := toolutil.ParseHours(q.Get("timeframe_hours"))
	if err != nil {
		return engine.ChannelDigest{}, err
	}
	digest, err := s.digester.SummarizeChannel(r.Context(), channelID, hours)
	if err != nil {
		slog.Warn("api: channel digest failed",
			slog.String("channel", channelID), slog.Int("hours", hours), slog.Any("error", err))
	}
	return digest, err
}

// statusFor maps the engine error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrConfiguration):
		return http.StatusInternalServerError
	case errors.Is(err, engine.ErrNoVideosFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrAllVideosFailed):
		return http.StatusBadGateway
	case errors.Is(err, engine.ErrTranscriptUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, engine.ErrProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
