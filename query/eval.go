package query

import "regexp"

// Matcher decides, for one conversation, whether each kind of leaf node
// matches. The search orchestrator supplies a Matcher backed by the index's
// per-conversation term occurrences for Term/Phrase, and a block scan for
// Regex/Fuzzy.
type Matcher interface {
	MatchTerm(text string) bool
	MatchPhrase(text string) bool
	MatchRegex(re *regexp.Regexp) bool
	MatchFuzzy(text string, editBudget int) bool
}

// Eval evaluates the AST against a Matcher for one conversation. A nil node
// (empty query) always matches.
func Eval(n *Node, m Matcher) bool {
	if n == nil {
		return true
	}
	switch n.Kind {
	case KindAnd:
		for _, c := range n.Children {
			if !Eval(c, m) {
				return false
			}
		}
		return true
	case KindOr:
		for _, c := range n.Children {
			if Eval(c, m) {
				return true
			}
		}
		return false
	case KindNot:
		return !Eval(n.Children[0], m)
	case KindTerm:
		return m.MatchTerm(n.Text)
	case KindPhrase:
		return m.MatchPhrase(n.Text)
	case KindRegex:
		return m.MatchRegex(n.Compiled)
	case KindFuzzy:
		return m.MatchFuzzy(n.Text, n.EditBudget)
	default:
		return false
	}
}
