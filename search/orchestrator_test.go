package search

import (
	"context"
	"testing"
	"time"

	"github.com/heffrey78/claude-tools/corpus"
	"github.com/heffrey78/claude-tools/filter"
	"github.com/heffrey78/claude-tools/index"
)

func conv(id string, lastTS time.Time, texts ...string) *corpus.Conversation {
	c := &corpus.Conversation{
		ID:                 id,
		LastTS:             lastTS,
		FirstTS:            lastTS,
		MessageCountByRole: map[corpus.Role]int{},
		ToolNames:          map[string]struct{}{},
		Models:             map[string]struct{}{},
	}
	for _, text := range texts {
		c.Messages = append(c.Messages, corpus.Message{
			Role:    corpus.RoleUser,
			Content: []corpus.Block{{Kind: corpus.BlockText, Text: text}},
		})
	}
	return c
}

func buildCorpusAndIndex(t *testing.T, convs ...*corpus.Conversation) (*corpus.Corpus, *index.Index) {
	t.Helper()
	c := &corpus.Corpus{Conversations: convs}
	ix, err := index.Build(context.Background(), c)
	if err != nil {
		t.Fatal(err)
	}
	return c, ix
}

func TestSearchBooleanWithExclusion(t *testing.T) {
	now := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	c1 := conv("c1", now, "rust error handling")
	c2 := conv("c2", now, "python error syntax")
	corp, ix := buildCorpusAndIndex(t, c1, c2)

	resp, err := Search(context.Background(), ix, corp, Query{
		Text: `(rust OR python) AND error NOT syntax`,
		Now:  now,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ConversationID != "c1" {
		t.Fatalf("expected only c1 to match, got %+v", resp.Results)
	}
}

func TestSearchTopLevelNegationMatchesNothing(t *testing.T) {
	now := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	c1 := conv("c1", now, "rust error handling")
	c2 := conv("c2", now, "python error syntax")
	corp, ix := buildCorpusAndIndex(t, c1, c2)

	resp, err := Search(context.Background(), ix, corp, Query{Text: "NOT rust", Now: now})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 0 {
		t.Fatalf("expected a bare top-level negation to match nothing, got %+v", resp.Results)
	}
}

func TestScoreTermQueryExcludesNegatedLeaf(t *testing.T) {
	now := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	// Both convs match "rust OR NOT python" via the rust branch alone, so
	// whether python scores should not change the outcome's ranking: c1's
	// extra "python" occurrence sits under NOT and must not inflate its
	// score relative to c2's.
	c1 := conv("c1", now, "rust python")
	c2 := conv("c2", now, "rust")
	corp, ix := buildCorpusAndIndex(t, c1, c2)

	resp, err := Search(context.Background(), ix, corp, Query{Text: "rust OR NOT python", Now: now})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected both conversations to match, got %+v", resp.Results)
	}
	var scores = map[string]float64{}
	for _, r := range resp.Results {
		scores[r.ConversationID] = r.Score
	}
	if scores["c1"] != scores["c2"] {
		t.Errorf("expected equal scores since the negated python leaf must not contribute, got c1=%v c2=%v", scores["c1"], scores["c2"])
	}
}

func TestSearchRegexMatch(t *testing.T) {
	now := time.Now()
	c1 := conv("c1", now, "panic: async function failed")
	c2 := conv("c2", now, "no match here")
	corp, ix := buildCorpusAndIndex(t, c1, c2)

	resp, err := Search(context.Background(), ix, corp, Query{Text: `regex:async\s+function`, Now: now})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ConversationID != "c1" {
		t.Fatalf("expected only c1 to match, got %+v", resp.Results)
	}
}

func TestSearchEmptyQueryRanksByRecency(t *testing.T) {
	now := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	older := conv("older", now.Add(-48*time.Hour), "hello")
	newer := conv("newer", now.Add(-time.Hour), "hello")
	corp, ix := buildCorpusAndIndex(t, older, newer)

	resp, err := Search(context.Background(), ix, corp, Query{Text: "", Now: now})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected both conversations to match empty query, got %+v", resp.Results)
	}
	if resp.Results[0].ConversationID != "newer" {
		t.Errorf("expected newer conversation ranked first, got %+v", resp.Results)
	}
}

func TestSearchRelativeDateFilter(t *testing.T) {
	now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)
	recent := conv("recent", now.Add(-time.Hour), "rust")
	stale := conv("stale", now.Add(-60*24*time.Hour), "rust")
	corp, ix := buildCorpusAndIndex(t, recent, stale)

	after := now.Add(-7 * 24 * time.Hour)
	resp, err := Search(context.Background(), ix, corp, Query{
		Text:   "rust",
		Filter: &filter.Set{AfterTS: after},
		Now:    now,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ConversationID != "recent" {
		t.Fatalf("expected only recent to match after date filter, got %+v", resp.Results)
	}
}

func TestSearchEmptyCorpusError(t *testing.T) {
	corp := &corpus.Corpus{}
	ix, _ := index.Build(context.Background(), corp)
	_, err := Search(context.Background(), ix, corp, Query{Text: "anything"})
	if err == nil {
		t.Fatal("expected EmptyCorpus error")
	}
}

func TestSearchCancellation(t *testing.T) {
	now := time.Now()
	convs := make([]*corpus.Conversation, 0, 200)
	for i := 0; i < 200; i++ {
		convs = append(convs, conv("c"+string(rune('a'+i%26)), now, "rust"))
	}
	corp, ix := buildCorpusAndIndex(t, convs...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Search(ctx, ix, corp, Query{Text: "rust", Now: now})
	if err == nil {
		t.Fatal("expected Cancelled error for an already-cancelled context")
	}
}

func TestSearchMaxResults(t *testing.T) {
	now := time.Now()
	c1 := conv("c1", now, "rust")
	c2 := conv("c2", now.Add(-time.Minute), "rust")
	c3 := conv("c3", now.Add(-2*time.Minute), "rust")
	corp, ix := buildCorpusAndIndex(t, c1, c2, c3)

	resp, err := Search(context.Background(), ix, corp, Query{Text: "rust", Now: now, MaxResults: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 {
		t.Errorf("expected MaxResults to cap results at 2, got %d", len(resp.Results))
	}
}
