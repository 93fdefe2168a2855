// Package score implements BM25-style term scoring plus the recency and
// length-normalization boosts applied on top of it, and the edit-distance
// primitives used for fuzzy query scoring.
package score

import (
	"math"
	"time"

	"github.com/hbollon/go-edlib"

	"github.com/heffrey78/claude-tools/corpus"
)

// Scorer holds the BM25-style saturation constants. The zero value is not
// usable; construct with New.
type Scorer struct {
	K1 float64
	B  float64
}

// New returns a Scorer with the standard BM25 defaults (k1=1.2, b=0.75).
func New() *Scorer {
	return &Scorer{K1: 1.2, B: 0.75}
}

// TFNorm applies BM25-style term-frequency saturation: diminishing returns
// for repeated occurrences, adjusted by how long the conversation is
// relative to the corpus average.
func (s *Scorer) TFNorm(tf int, convLen int, avgLen float64) float64 {
	if avgLen <= 0 {
		avgLen = 1
	}
	t := float64(tf)
	return t / (t + s.K1*(1-s.B+s.B*float64(convLen)/avgLen))
}

// IDF computes inverse document frequency with the usual BM25 smoothing,
// so a term appearing in every conversation contributes roughly zero.
func IDF(numDocs, docFreq int) float64 {
	return math.Log(1 + (float64(numDocs-docFreq)+0.5)/(float64(docFreq)+0.5))
}

// RecencyBoost returns a factor in (1, 2] that decays with age: it
// approaches 2 as a conversation's last activity nears now, and decays
// toward 1 as it ages. A zero lastTS gets the neutral factor 1.0.
func RecencyBoost(lastTS, now time.Time) float64 {
	if lastTS.IsZero() {
		return 1.0
	}
	ageDays := now.Sub(lastTS).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return 1 + math.Exp(-ageDays/30)
}

// LengthNorm downweights conversations shorter than 3 messages, so a
// single stray line does not dominate results.
func LengthNorm(msgCount int) float64 {
	if msgCount < 3 {
		return 0.5
	}
	return 1.0
}

// RoleWeight is uniform across roles. Per-role weighting (e.g. favoring
// matches in assistant messages over user messages) is a documented
// extension point, not currently differentiated.
func RoleWeight(_ corpus.Role) float64 { return 1.0 }

// TermScore computes one leaf term's contribution to a conversation's
// score, before the recency and length adjustments are applied.
func (s *Scorer) TermScore(tf, docFreq, numDocs, convLen int, avgLen float64) float64 {
	return s.TFNorm(tf, convLen, avgLen) * IDF(numDocs, docFreq)
}

// ConversationScore combines a summed term score with the recency and
// length boosts for one candidate conversation.
func (s *Scorer) ConversationScore(termScore float64, lastTS, now time.Time, msgCount int) float64 {
	return termScore * RecencyBoost(lastTS, now) * LengthNorm(msgCount)
}

// BlockMatchScore converts an edit distance (0 for an exact/regex match)
// into a per-block contribution for regex- and fuzzy-only queries.
func BlockMatchScore(distance int) float64 {
	return 1.0 / (1.0 + float64(distance))
}

// EditDistance returns the Levenshtein edit distance between a and b,
// used to decide whether a fuzzy term is within its edit budget and to
// weight the resulting match.
func EditDistance(a, b string) int {
	return edlib.LevenshteinDistance(a, b)
}

// WithinBudget reports whether term matches candidate within the given
// edit budget.
func WithinBudget(term, candidate string, budget int) bool {
	return EditDistance(term, candidate) <= budget
}
