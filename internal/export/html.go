package export

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/danbi-lab/sonar/internal/review"
	"github.com/danbi-lab/sonar/internal/store"
)

// Exporter renders the merged signals, per-profile verdicts and review
// decisions into one static HTML page for offline browsing.
type Exporter struct {
	tmpl *template.Template
}

func New() (*Exporter, error) {
	tmpl, err := template.New("review").Funcs(template.FuncMap{
		"tsLink": tsLink,
		"fmtTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02 15:04")
		},
	}).Parse(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return &Exporter{tmpl: tmpl}, nil
}

type videoGroup struct {
	VideoID string
	Signals []signalRow
}

type signalRow struct {
	store.StoredSignal
	Decision *review.Decision
}

type pageData struct {
	GeneratedAt string
	Total       int
	Videos      []videoGroup
}

// Write renders the page to path. Signals are grouped by video; a review
// decision is attached when the store has one for the signal's key.
func (e *Exporter) Write(path string, signals []store.StoredSignal, decisions map[string]review.Decision) error {
	byVideo := make(map[string][]signalRow)
	for _, st := range signals {
		row := signalRow{StoredSignal: st}
		if d, ok := decisions[st.Key]; ok {
			row.Decision = &d
		}
		byVideo[st.Signal.VideoID] = append(byVideo[st.Signal.VideoID], row)
	}

	videoIDs := make([]string, 0, len(byVideo))
	for id := range byVideo {
		videoIDs = append(videoIDs, id)
	}
	sort.Strings(videoIDs)

	data := pageData{
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05"),
		Total:       len(signals),
	}
	for _, id := range videoIDs {
		rows := byVideo[id]
		sort.Slice(rows, func(i, j int) bool { return rows[i].Signal.Asset < rows[j].Signal.Asset })
		data.Videos = append(data.Videos, videoGroup{VideoID: id, Signals: rows})
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir export dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	if err := e.tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("render export: %w", err)
	}
	return nil
}

// tsLink builds a YouTube deep link at the matched timestamp.
func tsLink(videoID string, seconds int) string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s&t=%ds", videoID, seconds)
}

const pageTemplate = `<!DOCTYPE html>
<html lang="ko">
<head>
<meta charset="utf-8">
<title>sonar signal review</title>
<style>
body { font-family: -apple-system, "Apple SD Gothic Neo", sans-serif; margin: 2rem; background: #f7f7f8; }
h1 { font-size: 1.4rem; }
h2 { font-size: 1.1rem; margin-top: 2rem; border-bottom: 1px solid #ddd; padding-bottom: .3rem; }
table { border-collapse: collapse; width: 100%; background: #fff; }
th, td { border: 1px solid #e2e2e6; padding: .4rem .6rem; text-align: left; vertical-align: top; font-size: .85rem; }
th { background: #efeff2; }
.type-BUY, .type-STRONG_BUY, .type-POSITIVE { color: #0a7a2f; font-weight: 600; }
.type-SELL, .type-STRONG_SELL, .type-CONCERN { color: #b4231f; font-weight: 600; }
.type-HOLD, .type-NEUTRAL { color: #666; }
.status-approved { color: #0a7a2f; }
.status-rejected { color: #b4231f; }
.status-pending { color: #996c00; }
.verdict { font-size: .78rem; color: #444; }
.meta { color: #888; font-size: .8rem; }
</style>
</head>
<body>
<h1>sonar signal review</h1>
<p class="meta">{{.Total}} signals · generated {{.GeneratedAt}}</p>
{{range .Videos}}
<h2>{{.VideoID}}</h2>
<table>
<tr><th>asset</th><th>type</th><th>conf</th><th>quote</th><th>timestamp</th><th>verdicts</th><th>review</th></tr>
{{range .Signals}}
<tr>
<td>{{.Signal.Asset}}</td>
<td class="type-{{.Signal.Type}}">{{.Signal.Type}}</td>
<td>{{.Signal.Confidence}} ({{.Signal.SourceCount}})</td>
<td>{{.Signal.Content}}</td>
<td>{{if .Signal.Match}}<a href="{{tsLink .Signal.VideoID .Signal.Match.Seconds}}">{{.Signal.Match.Seconds}}s</a> ({{printf "%.2f" .Signal.Match.Score}}){{else}}—{{end}}</td>
<td>{{range .Verdicts}}<div class="verdict">[{{.Profile}}] {{.Verdict}} {{printf "%.2f" .Confidence}} — {{.Reason}}</div>{{end}}</td>
<td>{{if .Decision}}<span class="status-{{.Decision.Status}}">{{.Decision.Status}}</span>{{with .Decision.Reason}}<br>{{.}}{{end}}<br><span class="meta">{{fmtTime .Decision.Time}}</span>{{else}}<span class="status-pending">pending</span>{{end}}</td>
</tr>
{{end}}
</table>
{{end}}
</body>
</html>
`
