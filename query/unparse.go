package query

import "strings"

// Unparse renders an AST back to a query string such that
// Parse(Unparse(ast)) produces an equivalent AST. Equivalence, not
// byte-identical text, is the contract — e.g. redundant parentheses are
// not reproduced.
func Unparse(n *Node) string {
	if n == nil {
		return ""
	}
	return unparse(n, 0)
}

// precedence: Or(0) < And(1) < Not(2) < atom(3). A child is parenthesised
// only when its precedence is lower than its parent's, matching the
// grammar's binding order.
func precedenceOf(n *Node) int {
	switch n.Kind {
	case KindOr:
		return 0
	case KindAnd:
		return 1
	case KindNot:
		return 2
	default:
		return 3
	}
}

func unparse(n *Node, parentPrec int) string {
	switch n.Kind {
	case KindTerm:
		return n.Text
	case KindPhrase:
		return `"` + n.Text + `"`
	case KindRegex:
		if strings.ContainsAny(n.Pattern, " \t\n\r") {
			return `regex:"` + n.Pattern + `"`
		}
		return "regex:" + n.Pattern
	case KindFuzzy:
		if strings.ContainsAny(n.Text, " \t\n\r") {
			return `fuzzy:"` + n.Text + `"`
		}
		return "fuzzy:" + n.Text
	case KindNot:
		// The operand of NOT is an atom, so anything but a leaf is wrapped.
		inner := unparse(n.Children[0], precedenceOf(n)+1)
		return wrapIfNeeded("NOT "+inner, precedenceOf(n), parentPrec)
	case KindAnd:
		parts := make([]string, len(n.Children))
		for i, c := range n.Children {
			parts[i] = unparse(c, precedenceOf(n))
		}
		return wrapIfNeeded(strings.Join(parts, " AND "), precedenceOf(n), parentPrec)
	case KindOr:
		parts := make([]string, len(n.Children))
		for i, c := range n.Children {
			parts[i] = unparse(c, precedenceOf(n))
		}
		return wrapIfNeeded(strings.Join(parts, " OR "), precedenceOf(n), parentPrec)
	default:
		return ""
	}
}

func wrapIfNeeded(s string, ownPrec, parentPrec int) string {
	if ownPrec < parentPrec {
		return "(" + s + ")"
	}
	return s
}
