package merge

import (
	"strings"
	"testing"

	"github.com/danbi-lab/sonar/internal/signal"
)

func newMerger() *Merger {
	return New(signal.NewNormalizer(nil))
}

func TestMergeSingletonPassthrough(t *testing.T) {
	raw := signal.Raw{
		VideoID:    "v1",
		Asset:      "테슬라",
		Type:       signal.TypeBuy,
		Confidence: signal.ConfidenceLow,
		Content:    "지금 사야 합니다",
		Context:    "실적 발표 직후",
	}

	merged := newMerger().Merge([]signal.Raw{raw})
	if len(merged) != 1 {
		t.Fatalf("got %d merged, want 1", len(merged))
	}
	m := merged[0]
	if m.Type != raw.Type || m.Confidence != raw.Confidence || m.Content != raw.Content || m.Context != raw.Context {
		t.Errorf("singleton changed: %+v", m)
	}
	if m.SourceCount != 1 {
		t.Errorf("SourceCount = %d, want 1", m.SourceCount)
	}
}

func TestMergeDominantTypeWeighted(t *testing.T) {
	// BUY(7) x HIGH(3) = 21 beats HOLD(5) x LOW(1) = 5.
	raws := []signal.Raw{
		{VideoID: "v1", Asset: "테슬라", Type: signal.TypeBuy, Confidence: signal.ConfidenceHigh, Content: "사세요"},
		{VideoID: "v1", Asset: "테슬라", Type: signal.TypeHold, Confidence: signal.ConfidenceLow, Content: "들고계세요"},
	}

	merged := newMerger().Merge(raws)
	if len(merged) != 1 {
		t.Fatalf("got %d merged, want 1", len(merged))
	}
	if merged[0].Type != signal.TypeBuy {
		t.Errorf("dominant = %s, want BUY", merged[0].Type)
	}
	if merged[0].SourceCount != 2 {
		t.Errorf("SourceCount = %d, want 2", merged[0].SourceCount)
	}
}

func TestMergeDominantTypeOrderIndependent(t *testing.T) {
	raws := []signal.Raw{
		{VideoID: "v", Asset: "a", Type: signal.TypeSell, Confidence: signal.ConfidenceHigh, Content: "팔아라 지금"},
		{VideoID: "v", Asset: "a", Type: signal.TypeBuy, Confidence: signal.ConfidenceLow, Content: "사도 됩니다"},
		{VideoID: "v", Asset: "a", Type: signal.TypeSell, Confidence: signal.ConfidenceMedium, Content: "빼라"},
	}

	forward := newMerger().Merge(raws)[0].Type

	reversed := []signal.Raw{raws[2], raws[1], raws[0]}
	backward := newMerger().Merge(reversed)[0].Type

	if forward != backward {
		t.Errorf("dominant type depends on order: %s vs %s", forward, backward)
	}
}

func TestMergeUniformTypeGroup(t *testing.T) {
	raws := []signal.Raw{
		{VideoID: "v", Asset: "a", Type: signal.TypeConcern, Confidence: signal.ConfidenceHigh, Content: "걱정됩니다"},
		{VideoID: "v", Asset: "a", Type: signal.TypeConcern, Confidence: signal.ConfidenceLow, Content: "불안합니다"},
		{VideoID: "v", Asset: "a", Type: signal.TypeConcern, Confidence: signal.ConfidenceLow, Content: "리스크가 큽니다"},
	}

	m := newMerger().Merge(raws)[0]
	if m.Type != signal.TypeConcern {
		t.Errorf("uniform group dominant = %s, want CONCERN", m.Type)
	}
}

func TestMergeGroupsByNormalizedAsset(t *testing.T) {
	// 이더륨 and Ethereum both normalize to 이더리움 and must merge.
	raws := []signal.Raw{
		{VideoID: "v1", Asset: "이더륨", Type: signal.TypeBuy, Confidence: signal.ConfidenceHigh, Content: "사야죠"},
		{VideoID: "v1", Asset: "Ethereum", Type: signal.TypeBuy, Confidence: signal.ConfidenceMedium, Content: "담아라 지금"},
	}

	merged := newMerger().Merge(raws)
	if len(merged) != 1 {
		t.Fatalf("got %d merged, want 1 (alias grouping failed)", len(merged))
	}
	if merged[0].Asset != "이더리움" {
		t.Errorf("asset = %q, want 이더리움", merged[0].Asset)
	}
}

func TestMergeSeparateVideosStaySeparate(t *testing.T) {
	raws := []signal.Raw{
		{VideoID: "v1", Asset: "애플", Type: signal.TypeBuy, Confidence: signal.ConfidenceHigh, Content: "x"},
		{VideoID: "v2", Asset: "애플", Type: signal.TypeSell, Confidence: signal.ConfidenceHigh, Content: "y"},
	}
	if got := len(newMerger().Merge(raws)); got != 2 {
		t.Errorf("got %d merged, want 2", got)
	}
}

func TestContentSelectionPrefersActionKeyword(t *testing.T) {
	// Same type and similar length; the action keyword should decide.
	plain := strings.Repeat("주가 전망 이야기 ", 5)   // ~40 runes, no keyword
	action := strings.Repeat("지금 당장 ", 3) + "매수 하세요" // ~25 runes, keyword

	raws := []signal.Raw{
		{VideoID: "v", Asset: "a", Type: signal.TypeBuy, Confidence: signal.ConfidenceMedium, Content: plain},
		{VideoID: "v", Asset: "a", Type: signal.TypeBuy, Confidence: signal.ConfidenceMedium, Content: action},
	}

	m := newMerger().Merge(raws)[0]
	if m.Content != action {
		t.Errorf("content = %q, want the action-keyword quote", m.Content)
	}
}

func TestContentSelectionLengthBand(t *testing.T) {
	short := "사자"                             // <20 runes: band 0
	ideal := strings.Repeat("가", 60)          // 50-200 runes: band 3
	long := strings.Repeat("나", 250)          // >200 runes: band 1

	raws := []signal.Raw{
		{VideoID: "v", Asset: "a", Type: signal.TypeHold, Confidence: signal.ConfidenceMedium, Content: short},
		{VideoID: "v", Asset: "a", Type: signal.TypeHold, Confidence: signal.ConfidenceMedium, Content: long},
		{VideoID: "v", Asset: "a", Type: signal.TypeHold, Confidence: signal.ConfidenceMedium, Content: ideal},
	}

	m := newMerger().Merge(raws)[0]
	if m.Content != ideal {
		t.Errorf("content length band not respected, got %d runes", len([]rune(m.Content)))
	}
}

func TestMergeContexts(t *testing.T) {
	raws := []signal.Raw{
		{VideoID: "v", Asset: "a", Type: signal.TypeBuy, Confidence: signal.ConfidenceHigh, Content: "x", Context: "실적 발표"},
		{VideoID: "v", Asset: "a", Type: signal.TypeBuy, Confidence: signal.ConfidenceHigh, Content: "y", Context: "실적 발표"},
		{VideoID: "v", Asset: "a", Type: signal.TypeBuy, Confidence: signal.ConfidenceHigh, Content: "z", Context: "차트 분석"},
	}

	m := newMerger().Merge(raws)[0]
	if m.Context != "실적 발표 | 차트 분석" {
		t.Errorf("merged context = %q", m.Context)
	}
}

func TestResolveConfidenceMajority(t *testing.T) {
	raws := []signal.Raw{
		{VideoID: "v", Asset: "a", Type: signal.TypeBuy, Confidence: signal.ConfidenceHigh, Content: "a"},
		{VideoID: "v", Asset: "a", Type: signal.TypeBuy, Confidence: signal.ConfidenceLow, Content: "b"},
		{VideoID: "v", Asset: "a", Type: signal.TypeBuy, Confidence: signal.ConfidenceLow, Content: "c"},
		{VideoID: "v", Asset: "a", Type: signal.TypeSell, Confidence: signal.ConfidenceHigh, Content: "d"},
	}

	m := newMerger().Merge(raws)[0]
	if m.Type != signal.TypeBuy {
		t.Fatalf("dominant = %s, want BUY", m.Type)
	}
	if m.Confidence != signal.ConfidenceLow {
		t.Errorf("confidence = %s, want LOW (majority among BUY members)", m.Confidence)
	}
}
