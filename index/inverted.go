// Package index implements a hand-built inverted index over a Corpus:
// term interning, per-term document frequency, and sorted posting lists
// that support linear-merge intersection.
package index

import "sort"

// Posting is one occurrence of a term in the corpus. ConvOrdinal indexes
// into Index.Conversations — a compact integer ordinal stored per
// posting instead of the conversation-id string, to keep postings small.
type Posting struct {
	ConvOrdinal int32
	MessageIdx  int32
	BlockIdx    int32
	Position    int32 // byte offset within the block
}

// TermEntry is one row of the inverted index: a term's document frequency
// and its full posting list, sorted by (ConvOrdinal, MessageIdx, BlockIdx,
// Position).
type TermEntry struct {
	DocFreq  int
	Postings []Posting
}

// Index is the immutable, built inverted index for one Corpus snapshot.
type Index struct {
	// Conversations maps ordinal -> conversation ID, so postings can be
	// resolved back to a Corpus without storing the string per posting.
	Conversations []string

	// ordinalOf is the reverse lookup built alongside Conversations.
	ordinalOf map[string]int32

	Terms map[string]*TermEntry

	// ConvLength is the message count of each conversation, indexed by
	// ordinal, used by the scorer's length-normalization term.
	ConvLength []int

	// AvgConvLength is the mean of ConvLength across all conversations,
	// used by the BM25-style tf-norm term.
	AvgConvLength float64
}

// OrdinalOf returns the compact ordinal for a conversation ID, or (-1,
// false) if the ID is not present in this index.
func (ix *Index) OrdinalOf(convID string) (int32, bool) {
	o, ok := ix.ordinalOf[convID]
	if !ok {
		return -1, false
	}
	return o, true
}

// ConvID resolves an ordinal back to its conversation ID.
func (ix *Index) ConvID(ordinal int32) string {
	if int(ordinal) < 0 || int(ordinal) >= len(ix.Conversations) {
		return ""
	}
	return ix.Conversations[ordinal]
}

// Lookup returns the posting list for a term, or nil if the term is absent.
func (ix *Index) Lookup(term string) []Posting {
	e, ok := ix.Terms[term]
	if !ok {
		return nil
	}
	return e.Postings
}

// DocFreq returns the document frequency of a term (0 if absent).
func (ix *Index) DocFreq(term string) int {
	e, ok := ix.Terms[term]
	if !ok {
		return 0
	}
	return e.DocFreq
}

// NumDocs returns the total number of conversations in the index.
func (ix *Index) NumDocs() int { return len(ix.Conversations) }

// sortPostings sorts a posting slice by (ConvOrdinal, MessageIdx, BlockIdx,
// Position), the order required for linear-merge intersection.
func sortPostings(p []Posting) {
	sort.Slice(p, func(i, j int) bool {
		a, b := p[i], p[j]
		if a.ConvOrdinal != b.ConvOrdinal {
			return a.ConvOrdinal < b.ConvOrdinal
		}
		if a.MessageIdx != b.MessageIdx {
			return a.MessageIdx < b.MessageIdx
		}
		if a.BlockIdx != b.BlockIdx {
			return a.BlockIdx < b.BlockIdx
		}
		return a.Position < b.Position
	})
}

// docFreqOf counts the number of distinct conversation ordinals referenced
// by a sorted posting list.
func docFreqOf(postings []Posting) int {
	if len(postings) == 0 {
		return 0
	}
	count := 1
	last := postings[0].ConvOrdinal
	for _, p := range postings[1:] {
		if p.ConvOrdinal != last {
			count++
			last = p.ConvOrdinal
		}
	}
	return count
}
