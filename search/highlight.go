package search

import (
	"regexp"
	"strings"

	"github.com/heffrey78/claude-tools/corpus"
	"github.com/heffrey78/claude-tools/query"
	"github.com/heffrey78/claude-tools/score"
	"github.com/heffrey78/claude-tools/tokenize"
)

// Highlight is one matched byte span within a message's rendered text.
type Highlight struct {
	MessageIdx int
	Start      int
	End        int
}

// maxHighlightsPerMessage bounds how many spans are returned per message so
// a pathological match (every token matches a one-char fuzzy term) doesn't
// balloon the response.
const maxHighlightsPerMessage = 5

// computeHighlights walks every leaf of ast against conv's messages and
// returns the distinct matched message indices plus up to
// maxHighlightsPerMessage spans per message.
func computeHighlights(conv *corpus.Conversation, ast *query.Node) ([]int, map[int][]Highlight) {
	spans := make(map[int][]Highlight)
	if ast != nil {
		for _, leaf := range ast.Leaves() {
			for mi, msg := range conv.Messages {
				for _, b := range msg.Content {
					text := b.SearchableText()
					if text == "" {
						continue
					}
					addSpans(spans, mi, leaf, text)
				}
			}
		}
	}

	matched := make([]int, 0, len(spans))
	for mi := range spans {
		matched = append(matched, mi)
	}
	sortInts(matched)
	return matched, spans
}

func addSpans(spans map[int][]Highlight, mi int, leaf *query.Node, text string) {
	if len(spans[mi]) >= maxHighlightsPerMessage {
		return
	}
	switch leaf.Kind {
	case query.KindTerm, query.KindPhrase:
		needle := strings.ToLower(leaf.Text)
		hay := strings.ToLower(text)
		idx := strings.Index(hay, needle)
		if idx >= 0 {
			spans[mi] = append(spans[mi], Highlight{MessageIdx: mi, Start: idx, End: idx + len(needle)})
		}
	case query.KindRegex:
		addRegexSpans(spans, mi, leaf.Compiled, text)
	case query.KindFuzzy:
		addFuzzySpans(spans, mi, leaf.Text, leaf.EditBudget, text)
	}
}

func addRegexSpans(spans map[int][]Highlight, mi int, re *regexp.Regexp, text string) {
	for _, loc := range re.FindAllStringIndex(text, maxHighlightsPerMessage) {
		spans[mi] = append(spans[mi], Highlight{MessageIdx: mi, Start: loc[0], End: loc[1]})
		if len(spans[mi]) >= maxHighlightsPerMessage {
			return
		}
	}
}

func addFuzzySpans(spans map[int][]Highlight, mi int, term string, budget int, text string) {
	target := strings.ToLower(term)
	best := -1
	bestDist := budget + 1
	for _, tok := range tokenize.Tokenize(text) {
		d := score.EditDistance(target, tok.Term)
		if d <= budget && d < bestDist {
			bestDist = d
			best = tok.Offset
		}
	}
	if best >= 0 {
		spans[mi] = append(spans[mi], Highlight{MessageIdx: mi, Start: best, End: best + len(target)})
	}
}

func sortInts(xs []int) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}
