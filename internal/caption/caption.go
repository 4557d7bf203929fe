package caption

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Line is a single timestamped caption line. Immutable once parsed.
type Line struct {
	Seconds int
	Text    string
}

// Timestamp renders the line's offset as M:SS or H:MM:SS.
func (l Line) Timestamp() string {
	h := l.Seconds / 3600
	m := (l.Seconds % 3600) / 60
	s := l.Seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// tsPattern matches a leading bracketed [M:SS] or [H:MM:SS] timestamp.
var tsPattern = regexp.MustCompile(`^\[(?:(\d+):)?(\d{1,2}):(\d{2})\]\s*`)

// Parse reads timestamped caption lines from r. Lines without a
// recognizable timestamp prefix are skipped: the matcher can only work with
// lines it can anchor in time.
func Parse(r io.Reader) ([]Line, error) {
	var lines []Line
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		m := tsPattern.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		text := strings.TrimSpace(raw[len(m[0]):])
		if text == "" {
			continue
		}
		secs := 0
		if m[1] != "" {
			h, _ := strconv.Atoi(m[1])
			secs += h * 3600
		}
		mm, _ := strconv.Atoi(m[2])
		ss, _ := strconv.Atoi(m[3])
		secs += mm*60 + ss
		lines = append(lines, Line{Seconds: secs, Text: text})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan captions: %w", err)
	}
	return lines, nil
}

// LoadFile parses the subtitle file for a video. A missing file is returned
// as os.ErrNotExist-wrapped error; callers treat it as "cannot match", not
// as a pipeline failure.
func LoadFile(dir, videoID string) ([]Line, error) {
	path := filepath.Join(dir, videoID+".txt")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open subtitle %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// FullText joins all caption texts into the transcript string handed to the
// LLM prompts, one line per caption with its timestamp prefix preserved.
func FullText(lines []Line) string {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString("[")
		sb.WriteString(l.Timestamp())
		sb.WriteString("] ")
		sb.WriteString(l.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// ListVideos returns the video ids that have a subtitle file under dir,
// sorted by filename.
func ListVideos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read subtitle dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".txt"))
	}
	return ids, nil
}
