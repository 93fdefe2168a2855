// Package search composes the query parser, filter evaluator, inverted
// index, and scorer into a single ranked search pipeline with result
// highlighting.
package search

import (
	"container/heap"
	"context"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/heffrey78/claude-tools/corpus"
	"github.com/heffrey78/claude-tools/engineerr"
	"github.com/heffrey78/claude-tools/filter"
	"github.com/heffrey78/claude-tools/index"
	"github.com/heffrey78/claude-tools/query"
	"github.com/heffrey78/claude-tools/score"
	"github.com/heffrey78/claude-tools/tokenize"
)

const (
	// cancelBatchSize is how many candidates a worker scores between
	// cooperative cancellation checks.
	cancelBatchSize = 64
	// minSearchWorkers/maxSearchWorkers bound the scoring concurrency
	// derived from NumCPU.
	minSearchWorkers = 4
	maxSearchWorkers = 16
)

// searchWorkers returns the scoring concurrency limit, scaled to the
// machine's CPU count with a floor and ceiling.
func searchWorkers() int {
	n := runtime.NumCPU()
	if n < minSearchWorkers {
		return minSearchWorkers
	}
	if n > maxSearchWorkers {
		return maxSearchWorkers
	}
	return n
}

// Query bundles the inputs to a single search call.
type Query struct {
	Text       string
	Filter     *filter.Set
	Now        time.Time // zero means time.Now()
	MaxResults int       // 0 means unbounded
}

// Result is one ranked conversation match.
type Result struct {
	ConversationID  string
	Score           float64
	MatchedMessages []int
	Highlights      map[int][]Highlight
}

// Summary reports how a query was executed, for diagnostics and display.
type Summary struct {
	ParsedQuery     string
	FiltersApplied  bool
	TotalCandidates int
	MatchedCount    int
	Elapsed         time.Duration
}

// Response is the full output of a Search call.
type Response struct {
	Results []Result
	Summary Summary
}

// Search runs query q against idx/corp and returns ranked results.
//
// The candidate set is partitioned across a bounded worker pool; each
// worker scores its own slice and sorts it locally, and a final heap-merge
// recombines the sorted partitions into the ranked result list.
//
// Error surface: QuerySyntax and BadRegex from a malformed query string,
// Cancelled if ctx is done before completion, EmptyCorpus if corp has no
// conversations.
func Search(ctx context.Context, idx *index.Index, corp *corpus.Corpus, q Query) (*Response, error) {
	start := time.Now()

	if corp.Empty() {
		return nil, engineerr.New(engineerr.KindEmptyCorpus, "corpus has no conversations to search")
	}

	ast, err := query.Parse(q.Text)
	if err != nil {
		return nil, err
	}

	now := q.Now
	if now.IsZero() {
		now = time.Now()
	}

	candidates := filter.Apply(q.Filter, corp.Conversations)

	var termSets map[string]map[int32]struct{}
	textQuery := ast != nil && ast.HasTextLeaf()
	if textQuery {
		termSets = collectTermSets(idx, ast.Leaves())
		candidates = restrictToCandidateUnion(candidates, idx, termSets)
	}

	totalCandidates := len(candidates)
	sc := score.New()
	less := resultLess(corp)

	partials, err := scorePartitions(ctx, candidates, idx, ast, textQuery, termSets, sc, now, less)
	if err != nil {
		return nil, err
	}

	results := mergePartials(partials, less)

	if q.MaxResults > 0 && len(results) > q.MaxResults {
		results = results[:q.MaxResults]
	}

	return &Response{
		Results: results,
		Summary: Summary{
			ParsedQuery:     query.Unparse(ast),
			FiltersApplied:  q.Filter != nil,
			TotalCandidates: totalCandidates,
			MatchedCount:    len(results),
			Elapsed:         time.Since(start),
		},
	}, nil
}

// scorePartitions splits candidates across a bounded worker pool (spec
// §5: "candidate set is partitioned across workers; each worker computes
// scores for its slice"), grounded on content_search_exec.go's
// bounded-parallel-plus-context-cancellation shape but built with
// errgroup and a semaphore.Weighted instead of a hand-rolled channel
// semaphore. Each returned slice is sorted independently with less so the
// caller can heap-merge them without re-sorting the whole result set.
func scorePartitions(ctx context.Context, candidates []*corpus.Conversation, idx *index.Index, ast *query.Node, textQuery bool, termSets map[string]map[int32]struct{}, sc *score.Scorer, now time.Time, less func(a, b Result) bool) ([][]Result, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	workers := searchWorkers()
	if workers > len(candidates) {
		workers = len(candidates)
	}
	chunks := partitionConversations(candidates, workers)

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(workers))
	partials := make([][]Result, len(chunks))

	for ci, chunk := range chunks {
		ci, chunk := ci, chunk
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return engineerr.Wrap(engineerr.KindCancelled, "search cancelled", err)
			}
			defer sem.Release(1)

			out := make([]Result, 0, len(chunk))
			for i, conv := range chunk {
				if i > 0 && i%cancelBatchSize == 0 {
					select {
					case <-gctx.Done():
						return engineerr.Wrap(engineerr.KindCancelled, "search cancelled", gctx.Err())
					default:
					}
				}

				ordinal, hasOrdinal := idx.OrdinalOf(conv.ID)
				m := &convMatcher{ordinal: ordinal, hasOrdinal: hasOrdinal, conv: conv, termSets: termSets}
				if !query.Eval(ast, m) {
					continue
				}

				var s float64
				switch {
				case ast == nil:
					s = 0
				case textQuery:
					s = scoreTermQuery(sc, idx, ordinal, conv, ast, now)
				default:
					s = scoreBlockQuery(sc, conv, ast, now)
				}

				matched, spans := computeHighlights(conv, ast)
				out = append(out, Result{
					ConversationID:  conv.ID,
					Score:           s,
					MatchedMessages: matched,
					Highlights:      spans,
				})
			}

			sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
			partials[ci] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return partials, nil
}

// partitionConversations splits candidates into up to n roughly-equal
// contiguous slices.
func partitionConversations(candidates []*corpus.Conversation, n int) [][]*corpus.Conversation {
	if n <= 0 {
		n = 1
	}
	total := len(candidates)
	chunkSize := (total + n - 1) / n
	if chunkSize == 0 {
		chunkSize = 1
	}
	chunks := make([][]*corpus.Conversation, 0, n)
	for start := 0; start < total; start += chunkSize {
		end := start + chunkSize
		if end > total {
			end = total
		}
		chunks = append(chunks, candidates[start:end])
	}
	return chunks
}

// heapItem is one in-flight element of a k-way merge: the next unmerged
// result from partition src, at offset idx within it.
type heapItem struct {
	result   Result
	src, idx int
}

// resultHeap is a container/heap over heapItems ordered by less.
type resultHeap struct {
	items []heapItem
	less  func(a, b Result) bool
}

func (h *resultHeap) Len() int { return len(h.items) }
func (h *resultHeap) Less(i, j int) bool {
	return h.less(h.items[i].result, h.items[j].result)
}
func (h *resultHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *resultHeap) Push(x any)    { h.items = append(h.items, x.(heapItem)) }
func (h *resultHeap) Pop() any {
	old := h.items
	n := len(old)
	it := old[n-1]
	h.items = old[:n-1]
	return it
}

// mergePartials performs the final heap-merge of each worker's
// independently-sorted partition into one ranked result list (spec §5).
func mergePartials(partials [][]Result, less func(a, b Result) bool) []Result {
	h := &resultHeap{less: less}
	total := 0
	for src, p := range partials {
		total += len(p)
		if len(p) > 0 {
			heap.Push(h, heapItem{result: p[0], src: src, idx: 0})
		}
	}

	out := make([]Result, 0, total)
	for h.Len() > 0 {
		top := heap.Pop(h).(heapItem)
		out = append(out, top.result)
		if next := top.idx + 1; next < len(partials[top.src]) {
			heap.Push(h, heapItem{result: partials[top.src][next], src: top.src, idx: next})
		}
	}
	return out
}

// resultLess returns the tie-break comparator: score descending, then
// last_ts descending, then conversation id ascending. Workers sort their
// own partitions with it before mergePartials recombines them.
func resultLess(corp *corpus.Corpus) func(a, b Result) bool {
	byID := make(map[string]*corpus.Conversation, len(corp.Conversations))
	for _, c := range corp.Conversations {
		byID[c.ID] = c
	}
	return func(a, b Result) bool {
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		ca, cb := byID[a.ConversationID], byID[b.ConversationID]
		if ca != nil && cb != nil && !ca.LastTS.Equal(cb.LastTS) {
			return ca.LastTS.After(cb.LastTS)
		}
		return a.ConversationID < b.ConversationID
	}
}

// collectTermSets resolves each Term/Phrase leaf's text to the set of
// conversation ordinals whose postings contain it, used by convMatcher's
// fast-path MatchTerm, by scoreTermQuery's per-term frequency lookups, and
// by restrictToCandidateUnion's posting-union candidate restriction.
func collectTermSets(idx *index.Index, leaves []*query.Node) map[string]map[int32]struct{} {
	sets := make(map[string]map[int32]struct{})
	for _, leaf := range leaves {
		if leaf.Kind != query.KindTerm && leaf.Kind != query.KindPhrase {
			continue
		}
		for _, term := range tokenize.Terms(leaf.Text) {
			if _, ok := sets[term]; ok {
				continue
			}
			set := make(map[int32]struct{})
			for _, p := range idx.Lookup(term) {
				set[p.ConvOrdinal] = struct{}{}
			}
			sets[term] = set
		}
	}
	return sets
}

// restrictToCandidateUnion narrows candidates to the union of posting-list
// conversation ordinals across every leaf term in the query (spec §4.H:
// candidates are the union of posting lists for leaf terms, restricted by
// the filter set, and only then filtered by evaluating the AST). A leaf
// nested under NOT still contributes its postings to this union — the
// union decides which conversations are even eligible to be evaluated, not
// which ones match, so a query of "NOT rust" alone narrows candidates to
// conversations that mention "rust" and then (correctly) matches none of
// them, rather than falling through to every non-rust conversation in the
// filtered corpus.
func restrictToCandidateUnion(candidates []*corpus.Conversation, idx *index.Index, termSets map[string]map[int32]struct{}) []*corpus.Conversation {
	union := make(map[int32]struct{})
	for _, set := range termSets {
		for ord := range set {
			union[ord] = struct{}{}
		}
	}
	out := make([]*corpus.Conversation, 0, len(candidates))
	for _, conv := range candidates {
		ordinal, hasOrdinal := idx.OrdinalOf(conv.ID)
		if !hasOrdinal {
			continue
		}
		if _, ok := union[ordinal]; ok {
			out = append(out, conv)
		}
	}
	return out
}

// scoreTermQuery sums each positive (non-negated) leaf term's BM25-style
// contribution for one conversation, then applies the recency and length
// boosts. Leaves nested under NOT are excluded: a query excluding a term
// should not also inflate the score of a conversation that happens to
// contain it.
func scoreTermQuery(sc *score.Scorer, idx *index.Index, ordinal int32, conv *corpus.Conversation, ast *query.Node, now time.Time) float64 {
	var total float64
	seen := make(map[string]struct{})
	for _, leaf := range ast.PositiveLeaves() {
		if leaf.Kind != query.KindTerm && leaf.Kind != query.KindPhrase {
			continue
		}
		for _, term := range tokenize.Terms(leaf.Text) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			tf := termFrequency(idx, term, ordinal)
			if tf == 0 {
				continue
			}
			docFreq := idx.DocFreq(term)
			total += sc.TermScore(tf, docFreq, idx.NumDocs(), conv.MessageCount(), idx.AvgConvLength)
		}
	}
	return sc.ConversationScore(total, conv.LastTS, now, conv.MessageCount())
}

// termFrequency counts a term's postings belonging to one conversation
// ordinal. Postings are sorted by ConvOrdinal first, so this could
// binary-search the boundary; a linear scan is used for simplicity since
// per-term posting lists are scanned once per candidate conversation.
func termFrequency(idx *index.Index, term string, ordinal int32) int {
	count := 0
	for _, p := range idx.Lookup(term) {
		if p.ConvOrdinal == ordinal {
			count++
		}
	}
	return count
}

// scoreBlockQuery scores a regex/fuzzy-only query by scanning the
// conversation's blocks directly, since these query kinds bypass the
// index. As with scoreTermQuery, only positive (non-negated) leaves
// contribute, so a regex or fuzzy leaf under NOT does not inflate the
// score of a conversation that happens to contain it.
func scoreBlockQuery(sc *score.Scorer, conv *corpus.Conversation, ast *query.Node, now time.Time) float64 {
	var total float64
	for _, leaf := range ast.PositiveLeaves() {
		switch leaf.Kind {
		case query.KindRegex:
			total += bestRegexScore(conv, leaf.Compiled)
		case query.KindFuzzy:
			total += bestFuzzyScore(conv, leaf.Text, leaf.EditBudget)
		}
	}
	return sc.ConversationScore(total, conv.LastTS, now, conv.MessageCount())
}

func bestRegexScore(conv *corpus.Conversation, re *regexp.Regexp) float64 {
	var best float64
	for _, msg := range conv.Messages {
		for _, b := range msg.Content {
			if re.MatchString(b.SearchableText()) {
				if s := score.BlockMatchScore(0); s > best {
					best = s
				}
			}
		}
	}
	return best
}

func bestFuzzyScore(conv *corpus.Conversation, term string, budget int) float64 {
	target := strings.ToLower(term)
	var best float64
	for _, msg := range conv.Messages {
		for _, b := range msg.Content {
			for _, tok := range tokenize.Tokenize(b.SearchableText()) {
				d := score.EditDistance(target, tok.Term)
				if d > budget {
					continue
				}
				if s := score.BlockMatchScore(d); s > best {
					best = s
				}
			}
		}
	}
	return best
}

// convMatcher implements query.Matcher for one candidate conversation.
type convMatcher struct {
	ordinal    int32
	hasOrdinal bool
	conv       *corpus.Conversation
	termSets   map[string]map[int32]struct{}
}

func (m *convMatcher) MatchTerm(text string) bool {
	if !m.hasOrdinal {
		return false
	}
	for _, term := range tokenize.Terms(text) {
		set, ok := m.termSets[term]
		if !ok {
			return false
		}
		if _, ok := set[m.ordinal]; !ok {
			return false
		}
	}
	return true
}

func (m *convMatcher) MatchPhrase(text string) bool {
	needle := strings.ToLower(text)
	for _, msg := range m.conv.Messages {
		for _, b := range msg.Content {
			if strings.Contains(strings.ToLower(b.SearchableText()), needle) {
				return true
			}
		}
	}
	return false
}

func (m *convMatcher) MatchRegex(re *regexp.Regexp) bool {
	for _, msg := range m.conv.Messages {
		for _, b := range msg.Content {
			if re.MatchString(b.SearchableText()) {
				return true
			}
		}
	}
	return false
}

func (m *convMatcher) MatchFuzzy(text string, editBudget int) bool {
	target := strings.ToLower(text)
	for _, msg := range m.conv.Messages {
		for _, b := range msg.Content {
			for _, tok := range tokenize.Tokenize(b.SearchableText()) {
				if score.WithinBudget(target, tok.Term, editBudget) {
					return true
				}
			}
		}
	}
	return false
}
