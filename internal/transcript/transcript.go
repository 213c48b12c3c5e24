// Package transcript accumulates ordered recognition results and renders
// the finished meeting transcript.
package transcript

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Segment is one chunk's contribution to the transcript.
type Segment struct {
	// Seq is the chunk sequence number.
	Seq uint64 `json:"seq"`

	// Text is the normalized transcription, never empty for a stored
	// segment.
	Text string `json:"text"`

	// Backend names the recognition backend that produced Text.
	Backend string `json:"backend,omitempty"`

	// Start and End position the segment in the session audio.
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
}

// Stats summarises a finished transcript.
type Stats struct {
	// Segments counts non-empty segments.
	Segments int `json:"segments"`

	// Words counts whitespace-separated words across all segments.
	Words int `json:"words"`

	// Characters counts runes across all segments, including spaces
	// between segments.
	Characters int `json:"characters"`
}

// Store collects segments in arrival order. The pipeline already releases
// results in sequence order, so append order is transcript order. Safe for
// concurrent use.
type Store struct {
	mu       sync.Mutex
	segments []Segment
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Append adds one segment. Segments with empty text are dropped; their
// sequence slots were already consumed upstream, so the gap carries no
// ordering information.
func (s *Store) Append(seg Segment) {
	if seg.Text == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments = append(s.segments, seg)
}

// Segments returns a copy of all stored segments.
func (s *Store) Segments() []Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Segment(nil), s.segments...)
}

// Text joins the segment texts with single spaces.
func (s *Store) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	parts := make([]string, len(s.segments))
	for i, seg := range s.segments {
		parts[i] = seg.Text
	}
	return strings.Join(parts, " ")
}

// Len returns the number of stored segments.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.segments)
}

// Stats computes the transcript statistics.
func (s *Store) Stats() Stats {
	text := s.Text()
	return Stats{
		Segments:   s.Len(),
		Words:      len(strings.Fields(text)),
		Characters: utf8.RuneCountInString(text),
	}
}

// Final is a completed session transcript ready for persistence.
type Final struct {
	// SessionID identifies the recording session.
	SessionID string

	// StartedAt is when recording began.
	StartedAt time.Time

	// Duration is the captured audio length.
	Duration time.Duration

	// Segments are the ordered transcript segments.
	Segments []Segment

	// Stats summarises the transcript.
	Stats Stats

	// DroppedFrames is the number of capture frames lost to queue
	// overflow.
	DroppedFrames uint64

	// Participants and Summary are caller-supplied annotations carried
	// into the persisted documents when set.
	Participants []string
	Summary      string
}

// Finalize snapshots the store into a Final.
func (s *Store) Finalize(sessionID string, startedAt time.Time, duration time.Duration, droppedFrames uint64) Final {
	return Final{
		SessionID:     sessionID,
		StartedAt:     startedAt,
		Duration:      duration,
		Segments:      s.Segments(),
		Stats:         s.Stats(),
		DroppedFrames: droppedFrames,
	}
}

// formatOffset renders a duration as HH:MM:SS for transcript timestamps.
func formatOffset(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}
