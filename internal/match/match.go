package match

import (
	"regexp"
	"strings"

	"github.com/danbi-lab/sonar/internal/caption"
	"github.com/danbi-lab/sonar/internal/signal"
)

// DefaultMinScore is the acceptance threshold below which no timestamp is
// recorded. A signal with no timestamp beats a signal with a wrong one.
const DefaultMinScore = 0.2

// Composite score weights.
const (
	weightQuoteSim     = 0.30
	weightKeywords     = 0.35
	weightAssetBonus   = 0.20
	weightPrefixBonus  = 0.15
	weightContextSim   = 0.30
	quotePrefixRunes   = 20
	windowPrefixRunes  = 30
)

// Matcher locates the best caption timestamp for a merged signal using
// sliding-window fuzzy comparison over the video's caption lines.
type Matcher struct {
	minScore float64
}

func New(minScore float64) *Matcher {
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	return &Matcher{minScore: minScore}
}

// window is one candidate text span; it carries the timestamp of its first
// line.
type window struct {
	seconds int
	text    string
}

// Find returns the best-scoring caption window for the signal, or nil when
// nothing clears the threshold.
func (m *Matcher) Find(sig signal.Merged, lines []caption.Line) *signal.Match {
	if len(lines) == 0 || strings.TrimSpace(sig.Content) == "" {
		return nil
	}

	windows := buildWindows(lines)
	keywords := extractKeywords(sig)

	var best *signal.Match
	for _, w := range windows {
		score := m.score(sig, keywords, w.text)
		if best == nil || score > best.Score {
			best = &signal.Match{Seconds: w.seconds, Score: score, MatchedText: w.text}
		}
	}

	if best == nil || best.Score < m.minScore {
		return nil
	}
	return best
}

// buildWindows produces the candidate spans: every single line, runs of 3
// (stride 1), runs of 5 (stride 2) and runs of 10 (stride 5).
func buildWindows(lines []caption.Line) []window {
	var windows []window
	for _, l := range lines {
		windows = append(windows, window{seconds: l.Seconds, text: l.Text})
	}
	windows = append(windows, runs(lines, 3, 1)...)
	windows = append(windows, runs(lines, 5, 2)...)
	windows = append(windows, runs(lines, 10, 5)...)
	return windows
}

func runs(lines []caption.Line, size, stride int) []window {
	if len(lines) < size {
		return nil
	}
	var out []window
	for start := 0; start+size <= len(lines); start += stride {
		texts := make([]string, size)
		for i := 0; i < size; i++ {
			texts[i] = lines[start+i].Text
		}
		out = append(out, window{
			seconds: lines[start].Seconds,
			text:    strings.Join(texts, " "),
		})
	}
	return out
}

var (
	hangulToken = regexp.MustCompile(`[가-힣]{2,}`)
	asciiToken  = regexp.MustCompile(`[A-Za-z]{2,}`)
	priceToken  = regexp.MustCompile(`\d[\d,.]*\s*(?:원|달러|만원|억|천만|퍼센트|%|\$|k)`)
)

// extractKeywords pulls the comparison vocabulary from the quote, the merged
// context and the asset name.
func extractKeywords(sig signal.Merged) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(tok string) {
		tok = strings.ToLower(tok)
		if tok == "" || seen[tok] {
			return
		}
		seen[tok] = true
		out = append(out, tok)
	}

	source := sig.Content
	if sig.Context != "" {
		source += " " + sig.Context
	}
	for _, tok := range hangulToken.FindAllString(source, -1) {
		add(tok)
	}
	for _, tok := range asciiToken.FindAllString(source, -1) {
		add(tok)
	}
	for _, tok := range priceToken.FindAllString(source, -1) {
		add(strings.Join(strings.Fields(tok), ""))
	}

	add(sig.Asset)
	for _, part := range strings.Fields(sig.Asset) {
		if len([]rune(part)) >= 2 {
			add(part)
		}
	}
	return out
}

// score computes the composite score for one candidate window.
func (m *Matcher) score(sig signal.Merged, keywords []string, candidate string) float64 {
	score := weightQuoteSim * similarity(sig.Content, candidate)
	score += weightKeywords * keywordOverlap(keywords, candidate)

	candLower := strings.ToLower(candidate)
	if sig.Asset != "" && strings.Contains(candLower, strings.ToLower(sig.Asset)) {
		score += weightAssetBonus
	}

	if prefixContained(sig.Content, candidate) {
		score += weightPrefixBonus
	}

	if sig.Context != "" {
		score += weightContextSim * similarity(sig.Context, candidate)
	}
	return score
}

// keywordOverlap is the fraction of keywords found as substrings of the
// candidate.
func keywordOverlap(keywords []string, candidate string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	candLower := strings.ToLower(candidate)
	found := 0
	for _, kw := range keywords {
		if strings.Contains(candLower, kw) {
			found++
		}
	}
	return float64(found) / float64(len(keywords))
}

// prefixContained checks the quote's first 20 runes against the candidate,
// and the candidate's first 30 runes against the quote.
func prefixContained(quote, candidate string) bool {
	q := strings.TrimSpace(quote)
	c := strings.TrimSpace(candidate)
	if q == "" || c == "" {
		return false
	}
	if strings.Contains(c, runePrefix(q, quotePrefixRunes)) {
		return true
	}
	return strings.Contains(q, runePrefix(c, windowPrefixRunes))
}

func runePrefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
