package signal

import (
	"strings"

	"golang.org/x/text/width"
)

// Normalizer resolves free-text asset labels to canonical names. Influencer
// captions spell the same asset many ways (ticker, English name, Korean
// name, common misspellings); grouping for the merge step has to converge on
// one spelling per asset.
type Normalizer struct {
	aliases map[string]string
}

// builtinAliases covers the spellings observed across channels. Keys are
// pre-normalized (lower-case, width-folded, no surrounding space).
var builtinAliases = map[string]string{
	// crypto
	"btc":      "비트코인",
	"bitcoin":  "비트코인",
	"비트":     "비트코인",
	"eth":      "이더리움",
	"ethereum": "이더리움",
	"이더":     "이더리움",
	"이더륨":   "이더리움",
	"이디리움": "이더리움",
	"xrp":      "리플",
	"ripple":   "리플",
	"sol":      "솔라나",
	"solana":   "솔라나",
	"doge":     "도지코인",
	"dogecoin": "도지코인",
	"도지":     "도지코인",
	// US equities
	"tsla":    "테슬라",
	"tesla":   "테슬라",
	"aapl":    "애플",
	"apple":   "애플",
	"nvda":    "엔비디아",
	"nvidia":  "엔비디아",
	"msft":    "마이크로소프트",
	"googl":   "구글",
	"google":  "구글",
	"amzn":    "아마존",
	"amazon":  "아마존",
	"pltr":    "팔란티어",
	// KR equities
	"삼전":       "삼성전자",
	"samsung":    "삼성전자",
	"하이닉스":   "sk하이닉스",
	"sk hynix":   "sk하이닉스",
}

// NewNormalizer builds a normalizer from the builtin alias table plus any
// config-supplied extras. Extra aliases override builtins on key collision.
func NewNormalizer(extra map[string]string) *Normalizer {
	aliases := make(map[string]string, len(builtinAliases)+len(extra))
	for k, v := range builtinAliases {
		aliases[fold(k)] = v
	}
	for k, v := range extra {
		aliases[fold(k)] = v
	}
	return &Normalizer{aliases: aliases}
}

// Normalize maps an asset label to its canonical name. Unknown assets pass
// through lower-cased. Idempotent: canonical names never re-map to something
// else because alias values are looked up once more and must be stable.
func (n *Normalizer) Normalize(asset string) string {
	key := fold(asset)
	if canon, ok := n.aliases[key]; ok {
		return canon
	}
	return key
}

// fold lower-cases, trims, collapses inner whitespace runs to single spaces
// and folds full-width forms (ＢＴＣ, full-width digits) to their narrow
// equivalents. Caption encoders on some channels emit full-width ASCII.
func fold(s string) string {
	s = width.Narrow.String(s)
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}
