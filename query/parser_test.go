package query

import (
	"testing"

	"github.com/heffrey78/claude-tools/engineerr"
)

func TestParseEmptyQuery(t *testing.T) {
	n, err := Parse("")
	if err != nil {
		t.Fatal(err)
	}
	if n != nil {
		t.Errorf("expected nil AST for empty query, got %+v", n)
	}
}

func TestParseBareword(t *testing.T) {
	n, err := Parse("rust")
	if err != nil {
		t.Fatal(err)
	}
	if n.Kind != KindTerm || n.Text != "rust" {
		t.Errorf("got %+v", n)
	}
}

func TestParseImplicitAnd(t *testing.T) {
	n, err := Parse("rust error")
	if err != nil {
		t.Fatal(err)
	}
	if n.Kind != KindAnd || len(n.Children) != 2 {
		t.Fatalf("got %+v", n)
	}
}

func TestParseBooleanWithExclusion(t *testing.T) {
	n, err := Parse(`(rust OR python) AND error NOT syntax`)
	if err != nil {
		t.Fatal(err)
	}
	if n.Kind != KindAnd {
		t.Fatalf("expected top-level AND, got %v", n.Kind)
	}
	if len(n.Children) != 3 {
		t.Fatalf("expected 3 AND children, got %d: %+v", len(n.Children), n.Children)
	}
	if n.Children[0].Kind != KindOr {
		t.Errorf("expected first child OR, got %v", n.Children[0].Kind)
	}
	last := n.Children[2]
	if last.Kind != KindNot {
		t.Errorf("expected last child NOT, got %v", last.Kind)
	}
}

func TestParseLowercaseKeywordsAreBarewords(t *testing.T) {
	n, err := Parse("and or not")
	if err != nil {
		t.Fatal(err)
	}
	// All three should be parsed as plain terms joined by implicit AND,
	// since AND/OR/NOT are only recognised uppercase.
	if n.Kind != KindAnd || len(n.Children) != 3 {
		t.Fatalf("got %+v", n)
	}
	for _, c := range n.Children {
		if c.Kind != KindTerm {
			t.Errorf("expected term, got %v", c.Kind)
		}
	}
}

func TestParsePhrase(t *testing.T) {
	n, err := Parse(`"async fn"`)
	if err != nil {
		t.Fatal(err)
	}
	if n.Kind != KindPhrase || n.Text != "async fn" {
		t.Errorf("got %+v", n)
	}
}

func TestParseRegex(t *testing.T) {
	n, err := Parse(`regex:async\s+fn`)
	if err != nil {
		t.Fatal(err)
	}
	if n.Kind != KindRegex || n.Compiled == nil {
		t.Fatalf("got %+v", n)
	}
	if !n.Compiled.MatchString("async   fn") {
		t.Error("expected compiled regex to match")
	}
}

func TestParseBadRegex(t *testing.T) {
	_, err := Parse(`regex:(unclosed`)
	if err == nil {
		t.Fatal("expected error")
	}
	if engineerr.KindOf(err) != engineerr.KindBadRegex {
		t.Errorf("expected BadRegex, got %v", engineerr.KindOf(err))
	}
}

func TestParseFuzzyEditBudget(t *testing.T) {
	n, err := Parse("fuzzy:foo")
	if err != nil {
		t.Fatal(err)
	}
	if n.Kind != KindFuzzy || n.EditBudget != 1 {
		t.Errorf("got %+v, want budget 1 for <=4 char term", n)
	}

	n, err = Parse("fuzzy:longer")
	if err != nil {
		t.Fatal(err)
	}
	if n.EditBudget != 2 {
		t.Errorf("got budget %d, want 2 for >4 char term", n.EditBudget)
	}
}

func TestParseUnbalancedParens(t *testing.T) {
	for _, q := range []string{"(rust", "rust)", "()"} {
		_, err := Parse(q)
		if err == nil {
			t.Errorf("query %q: expected QuerySyntax error", q)
			continue
		}
		if engineerr.KindOf(err) != engineerr.KindQuerySyntax {
			t.Errorf("query %q: expected QuerySyntax, got %v", q, engineerr.KindOf(err))
		}
	}
}

func TestParseDeterministic(t *testing.T) {
	const q = `(rust OR python) AND error NOT syntax`
	n1, err1 := Parse(q)
	n2, err2 := Parse(q)
	if err1 != nil || err2 != nil {
		t.Fatal(err1, err2)
	}
	if Unparse(n1) != Unparse(n2) {
		t.Error("expected deterministic parse")
	}
}

func TestUnparseRoundTrip(t *testing.T) {
	queries := []string{
		"rust",
		"rust error",
		"rust OR python",
		`(rust OR python) AND error`,
		"NOT syntax",
		`"async fn"`,
		`fuzzy:longer`,
	}
	for _, q := range queries {
		n1, err := Parse(q)
		if err != nil {
			t.Fatalf("%q: %v", q, err)
		}
		roundtripped := Unparse(n1)
		n2, err := Parse(roundtripped)
		if err != nil {
			t.Fatalf("%q -> %q: reparse failed: %v", q, roundtripped, err)
		}
		if Unparse(n1) != Unparse(n2) {
			t.Errorf("%q: round trip mismatch: %q vs %q", q, Unparse(n1), Unparse(n2))
		}
	}
}
