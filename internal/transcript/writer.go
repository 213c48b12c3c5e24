package transcript

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// WriteText renders f as the human-readable transcript document: a header,
// one timestamped line per non-empty segment, and a statistics footer.
func WriteText(w io.Writer, f Final) error {
	var err error
	write := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	write("Meeting Transcription\n")
	write("Generated on: %s\n", f.StartedAt.Format("2006-01-02 15:04:05"))
	write("Duration: %s\n", formatOffset(f.Duration))
	if len(f.Participants) > 0 {
		write("Participants: %s\n", strings.Join(f.Participants, ", "))
	}
	write("%s\n\n", "----------------------------------------")

	for _, seg := range f.Segments {
		if seg.Text == "" {
			continue
		}
		write("[%s] %s\n", formatOffset(seg.Start), seg.Text)
	}

	write("\n%s\n", "----------------------------------------")
	write("Segments: %d  Words: %d  Characters: %d\n",
		f.Stats.Segments, f.Stats.Words, f.Stats.Characters)
	if f.DroppedFrames > 0 {
		write("Dropped frames: %d\n", f.DroppedFrames)
	}
	if f.Summary != "" {
		write("\nSummary:\n%s\n", f.Summary)
	}
	return err
}

// jsonDocument is the persisted JSON shape.
type jsonDocument struct {
	MeetingInfo struct {
		SessionID string `json:"session_id"`
		Date      string `json:"date"`
		Time      string `json:"time"`
		Duration  string `json:"duration"`
	} `json:"meeting_info"`
	Transcription string    `json:"transcription"`
	Participants  []string  `json:"participants,omitempty"`
	Summary       string    `json:"summary,omitempty"`
	Segments      []Segment `json:"segments"`
	Stats         Stats     `json:"stats"`
	DroppedFrames uint64    `json:"dropped_frames,omitempty"`
}

// WriteJSON renders f as the machine-readable transcript document.
func WriteJSON(w io.Writer, f Final) error {
	var doc jsonDocument
	doc.MeetingInfo.SessionID = f.SessionID
	doc.MeetingInfo.Date = f.StartedAt.Format("2006-01-02")
	doc.MeetingInfo.Time = f.StartedAt.Format("15:04:05")
	doc.MeetingInfo.Duration = formatOffset(f.Duration)
	doc.Transcription = joinSegments(f.Segments)
	doc.Participants = f.Participants
	doc.Summary = f.Summary
	doc.Segments = f.Segments
	doc.Stats = f.Stats
	doc.DroppedFrames = f.DroppedFrames

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// joinSegments joins non-empty segment texts with single spaces.
func joinSegments(segments []Segment) string {
	out := ""
	for _, seg := range segments {
		if seg.Text == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += seg.Text
	}
	return out
}

// Format selects which documents Save writes.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatBoth Format = "both"
)

// Save writes f into dir in the selected format(s) and returns the paths
// written. File names embed the session start time and the session ID so
// parallel sessions never collide.
func Save(dir string, format Format, f Final) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("transcript: create output dir: %w", err)
	}

	base := fmt.Sprintf("meeting_%s_%s", f.StartedAt.Format("2006-01-02_15-04-05"), shortID(f.SessionID))

	var paths []string
	if format == FormatText || format == FormatBoth {
		path := filepath.Join(dir, base+".txt")
		if err := saveFile(path, f, WriteText); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	if format == FormatJSON || format == FormatBoth {
		path := filepath.Join(dir, base+".json")
		if err := saveFile(path, f, WriteJSON); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func saveFile(path string, f Final, render func(io.Writer, Final) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("transcript: create %q: %w", path, err)
	}
	if err := render(file, f); err != nil {
		file.Close()
		return fmt.Errorf("transcript: write %q: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("transcript: close %q: %w", path, err)
	}
	return nil
}

// shortID returns the first eight characters of a session ID for file
// naming.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
