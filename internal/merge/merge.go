package merge

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/danbi-lab/sonar/internal/signal"
)

// actionKeywords mark quotes that carry an explicit instruction. Quotes
// containing one outrank narrative quotes during content selection.
var actionKeywords = []string{
	"매수", "매도", "담아라", "팔아라", "들고가라", "빼라", "올인", "몰빵",
}

// Merger reduces raw signals to one merged signal per (video, asset) pair.
type Merger struct {
	norm *signal.Normalizer
}

func New(norm *signal.Normalizer) *Merger {
	return &Merger{norm: norm}
}

// Merge groups raws by video id and normalized asset and reduces each group.
// Output order is deterministic: sorted by video id, then asset.
func (m *Merger) Merge(raws []signal.Raw) []signal.Merged {
	type group struct {
		videoID string
		asset   string
		members []signal.Raw
		indices []int
	}

	groups := make(map[string]*group)
	var order []string
	for i, r := range raws {
		asset := m.norm.Normalize(r.Asset)
		key := r.VideoID + "||" + asset
		g, ok := groups[key]
		if !ok {
			g = &group{videoID: r.VideoID, asset: asset}
			groups[key] = g
			order = append(order, key)
		}
		g.members = append(g.members, r)
		g.indices = append(g.indices, i)
	}

	sort.Strings(order)

	merged := make([]signal.Merged, 0, len(order))
	for _, key := range order {
		g := groups[key]
		merged = append(merged, mergeGroup(g.videoID, g.asset, g.members, g.indices))
	}
	return merged
}

// mergeGroup reduces one (video, asset) group to its representative signal.
func mergeGroup(videoID, asset string, members []signal.Raw, indices []int) signal.Merged {
	if len(members) == 1 {
		r := members[0]
		return signal.Merged{
			VideoID:     videoID,
			Asset:       asset,
			Type:        r.Type,
			Confidence:  r.Confidence,
			Content:     r.Content,
			Context:     r.Context,
			SourceCount: 1,
			SourceIdx:   indices,
		}
	}

	dominant := dominantType(members)

	return signal.Merged{
		VideoID:     videoID,
		Asset:       asset,
		Type:        dominant,
		Confidence:  resolveConfidence(members, dominant),
		Content:     selectContent(members),
		Context:     mergeContexts(members),
		SourceCount: len(members),
		SourceIdx:   indices,
	}
}

// dominantType scores every type present as the sum of
// typePriority x confidenceWeight over its members and returns the maximum.
// Ties break toward the type with more members, then toward whichever type
// was scored first. The score itself is a pure sum, so member order only
// matters in the double-tie case.
func dominantType(members []signal.Raw) signal.Type {
	scores := make(map[signal.Type]int)
	counts := make(map[signal.Type]int)
	var seen []signal.Type
	for _, m := range members {
		if _, ok := scores[m.Type]; !ok {
			seen = append(seen, m.Type)
		}
		scores[m.Type] += m.Type.Priority() * m.Confidence.Weight()
		counts[m.Type]++
	}

	best := seen[0]
	for _, t := range seen[1:] {
		switch {
		case scores[t] > scores[best]:
			best = t
		case scores[t] == scores[best] && counts[t] > counts[best]:
			best = t
		}
	}
	return best
}

// selectContent picks the quote that best represents the group: scored by
// length band, presence of an action keyword, and the member's type
// priority. First-seen wins ties.
func selectContent(members []signal.Raw) string {
	best := ""
	bestScore := -1.0
	for _, m := range members {
		score := contentScore(m)
		if score > bestScore {
			bestScore = score
			best = m.Content
		}
	}
	return best
}

func contentScore(m signal.Raw) float64 {
	n := utf8.RuneCountInString(m.Content)
	var score float64
	switch {
	case n >= 50 && n <= 200:
		score = 3
	case n >= 20 && n < 50:
		score = 2
	case n > 200:
		score = 1
	}
	for _, kw := range actionKeywords {
		if strings.Contains(m.Content, kw) {
			score += 2
			break
		}
	}
	score += 0.5 * float64(m.Type.Priority())
	return score
}

// mergeContexts joins all distinct non-empty contexts with " | ".
func mergeContexts(members []signal.Raw) string {
	seen := make(map[string]bool)
	var parts []string
	for _, m := range members {
		ctx := strings.TrimSpace(m.Context)
		if ctx == "" || seen[ctx] {
			continue
		}
		seen[ctx] = true
		parts = append(parts, ctx)
	}
	return strings.Join(parts, " | ")
}

// resolveConfidence is a majority vote among members of the dominant type.
// If no member carries the dominant type (cannot happen for groups built
// here, but callers may hand in corrected signals), it falls back to the
// rounded average weight of all members.
func resolveConfidence(members []signal.Raw, dominant signal.Type) signal.Confidence {
	votes := make(map[signal.Confidence]int)
	total, n := 0, 0
	for _, m := range members {
		total += m.Confidence.Weight()
		n++
		if m.Type == dominant {
			votes[m.Confidence]++
		}
	}

	if len(votes) > 0 {
		best := signal.Confidence("")
		for _, c := range []signal.Confidence{signal.ConfidenceHigh, signal.ConfidenceMedium, signal.ConfidenceLow} {
			if votes[c] > 0 && (best == "" || votes[c] > votes[best]) {
				best = c
			}
		}
		return best
	}

	avg := (total + n/2) / n // round half up
	return signal.ConfidenceFromWeight(avg)
}
