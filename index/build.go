package index

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/heffrey78/claude-tools/corpus"
	"github.com/heffrey78/claude-tools/tokenize"
)

// Build constructs an Index from a Corpus. Each conversation is tokenized
// by an independent worker producing a local partial index; a single merge
// step concatenates and sorts the posting lists.
func Build(ctx context.Context, c *corpus.Corpus) (*Index, error) {
	n := len(c.Conversations)

	conversations := make([]string, n)
	ordinalOf := make(map[string]int32, n)
	convLength := make([]int, n)
	for i, conv := range c.Conversations {
		conversations[i] = conv.ID
		ordinalOf[conv.ID] = int32(i)
		convLength[i] = conv.MessageCount()
	}

	partials := make([]map[string][]Posting, n)

	g, ctx := errgroup.WithContext(ctx)
	// Parallel over conversations: each worker produces a partial index,
	// then a single merger concatenates and sorts the postings.
	for i, conv := range c.Conversations {
		i, conv := i, conv
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			partials[i] = tokenizeConversation(int32(i), conv)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	terms := make(map[string]*TermEntry)
	for _, partial := range partials {
		for term, postings := range partial {
			e, ok := terms[term]
			if !ok {
				e = &TermEntry{}
				terms[term] = e
			}
			e.Postings = append(e.Postings, postings...)
		}
	}

	var totalLen int
	for _, l := range convLength {
		totalLen += l
	}
	avgLen := 0.0
	if n > 0 {
		avgLen = float64(totalLen) / float64(n)
	}

	for _, e := range terms {
		sortPostings(e.Postings)
		e.DocFreq = docFreqOf(e.Postings)
	}

	return &Index{
		Conversations: conversations,
		ordinalOf:     ordinalOf,
		Terms:         terms,
		ConvLength:    convLength,
		AvgConvLength: avgLen,
	}, nil
}

// tokenizeConversation builds one conversation's partial term->postings map
// by streaming through every textual/tool-result block of every message.
// Tool-result output text is indexed as searchable content the same as
// plain text.
func tokenizeConversation(ordinal int32, conv *corpus.Conversation) map[string][]Posting {
	partial := make(map[string][]Posting)
	for mi, msg := range conv.Messages {
		for bi, block := range msg.Content {
			text := block.SearchableText()
			if text == "" {
				continue
			}
			for _, tok := range tokenize.Tokenize(text) {
				partial[tok.Term] = append(partial[tok.Term], Posting{
					ConvOrdinal: ordinal,
					MessageIdx:  int32(mi),
					BlockIdx:    int32(bi),
					Position:    int32(tok.Offset),
				})
			}
		}
	}
	return partial
}
