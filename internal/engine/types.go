package engine

import (
	"regexp"
	"strings"
	"time"
)

// VideoRef identifies one video. Title may be empty until the transcript is loaded.
type VideoRef struct {
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title,omitempty"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at,omitempty,omitzero"`
}

// Locator returns the URL when known, otherwise the bare ID.
func (v VideoRef) Locator() string {
	if v.URL != "" {
		return v.URL
	}
	return v.ID
}

// WatchURL is the canonical watch page for a video ID.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

var (
	videoIDRE     = regexp.MustCompile(`(?:youtube\.com/(?:watch\?(?:.*&)?v=|shorts/|embed/|live/)|youtu\.be/)([a-zA-Z0-9_-]{11})`)
	bareVideoIDRE = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
)

// ParseVideoID pulls the 11-char video ID from a YouTube URL or accepts a bare ID.
// Returns "" when the locator is not recognised.
func ParseVideoID(locator string) string {
	locator = strings.TrimSpace(locator)
	if bareVideoIDRE.MatchString(locator) {
		return locator
	}
	if m := videoIDRE.FindStringSubmatch(locator); len(m) >= 2 {
		return m[1]
	}
	return ""
}

// NewVideoRef builds a VideoRef from a caller-supplied locator.
// Unrecognised locators keep the raw value so the loader can report them.
func NewVideoRef(locator string) VideoRef {
	locator = strings.TrimSpace(locator)
	id := ParseVideoID(locator)
	if id == "" {
		return VideoRef{URL: locator}
	}
	return VideoRef{ID: id, URL: WatchURL(id)}
}

// Segment is one caption line.
type Segment struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"dur"`
	Text     string  `json:"text"`
}

// Transcript is a video's time-ordered caption text.
type Transcript struct {
	Video    VideoRef
	Segments []Segment
}

// Text joins the segments with single spaces.
func (t Transcript) Text() string {
	var sb strings.Builder
	for _, s := range t.Segments {
		if s.Text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// VideoSummary is the final summary for one video.
type VideoSummary struct {
	Video   VideoRef `json:"video"`
	Summary string   `json:"summary"`
	Chunks  int      `json:"chunks"`
}

// SkippedVideo is a video omitted from a digest, with the reason.
type SkippedVideo struct {
	Video  VideoRef `json:"video"`
	Stage  Stage    `json:"stage,omitempty"`
	Reason string   `json:"reason"`
}

// ChannelDigest is the combined result for one channel request.
type ChannelDigest struct {
	ChannelID      string         `json:"channel_id"`
	TimeframeHours int            `json:"timeframe_hours"`
	Videos         []VideoSummary `json:"videos"`
	Skipped        []SkippedVideo `json:"skipped,omitempty"`
	Summary        string         `json:"summary"`
}
