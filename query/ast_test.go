package query

import "testing"

func leafTexts(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Text
	}
	return out
}

func TestPositiveLeavesExcludesDirectNegation(t *testing.T) {
	n, err := Parse(`rust NOT python`)
	if err != nil {
		t.Fatal(err)
	}

	leaves := leafTexts(n.Leaves())
	if len(leaves) != 2 {
		t.Fatalf("expected Leaves to include both terms, got %v", leaves)
	}

	positive := leafTexts(n.PositiveLeaves())
	if len(positive) != 1 || positive[0] != "rust" {
		t.Errorf("expected PositiveLeaves to exclude the negated term, got %v", positive)
	}
}

func TestPositiveLeavesDoubleNegationIsPositive(t *testing.T) {
	n, err := Parse(`NOT (NOT rust)`)
	if err != nil {
		t.Fatal(err)
	}

	positive := leafTexts(n.PositiveLeaves())
	if len(positive) != 1 || positive[0] != "rust" {
		t.Errorf("expected a doubly-negated leaf to count as positive, got %v", positive)
	}
}

func TestPositiveLeavesTopLevelNegationIsEmpty(t *testing.T) {
	n, err := Parse(`NOT rust`)
	if err != nil {
		t.Fatal(err)
	}

	if positive := n.PositiveLeaves(); len(positive) != 0 {
		t.Errorf("expected no positive leaves under a bare NOT, got %v", leafTexts(positive))
	}
}
