// Package analytics computes corpus-wide analytics in a single pass:
// basic counts, temporal histograms, model usage, tool usage, project
// breakdown, and quality bundles. Results are keyed on corpus hash and
// memoised, the same shape as the teacher's StatsCache but built
// in-memory from a live Corpus instead of a persisted JSON file.
package analytics

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/heffrey78/claude-tools/corpus"
)

// Basic is the corpus-wide count bundle.
type Basic struct {
	Conversations int
	Messages      int
	SubAgents     int
	Projects      int
}

// Temporal is the time-of-day/day-of-week/daily bundle.
type Temporal struct {
	// PeakHour maps hour-of-day (0-23, from Timestamp.Hour(), mod 24) to
	// message count.
	PeakHour [24]int
	// Weekday maps day-of-week (0=Sunday..6=Saturday) to message count.
	Weekday [7]int
	// Daily maps a "2006-01-02" date key to message count, covering the
	// corpus span.
	Daily map[string]int
}

// ModelUsage tracks conversations and messages attributed to one model.
type ModelUsage struct {
	Conversations int
	Messages      int
}

// ToolUsage tracks counts per tool name and per (tool, role) pair.
type ToolUsage struct {
	ByTool     map[string]int
	ByToolRole map[string]map[corpus.Role]int
}

// ProjectUsage tracks messages and tool-uses for one project.
type ProjectUsage struct {
	Messages      int
	ToolUses      int
	Conversations int
}

// Quality is the derived-quality bundle.
type Quality struct {
	AvgDuration    time.Duration
	MedianDuration time.Duration
	AvgMessages    float64
	// CompletionRate is the fraction of conversations whose last message
	// role is assistant — the spec's one pinned definition; no alternate
	// definition should be substituted.
	CompletionRate float64
	TotalEstCost   float64
}

// Bundles is the full output of a single analytics pass.
type Bundles struct {
	CorpusHash uint64
	Basic      Basic
	Temporal   Temporal
	Models     map[string]ModelUsage
	Tools      ToolUsage
	Projects   map[string]ProjectUsage
	Quality    Quality
}

// perConvAccumulator is the partial result contributed by one worker.
type perConvAccumulator struct {
	messages   int
	subAgent   bool
	peakHour   [24]int
	weekday    [7]int
	daily      map[string]int
	models     map[string]ModelUsage
	byTool     map[string]int
	byToolRole map[string]map[corpus.Role]int
	projects   map[string]ProjectUsage
	duration   time.Duration
	completed  bool
	estCost    float64
}

func newAccumulator() *perConvAccumulator {
	return &perConvAccumulator{
		daily:      make(map[string]int),
		models:     make(map[string]ModelUsage),
		byTool:     make(map[string]int),
		byToolRole: make(map[string]map[corpus.Role]int),
		projects:   make(map[string]ProjectUsage),
	}
}

// Cache memoises the last computed Bundles, keyed by corpus hash, so
// repeated Analytics requests against an unchanged Corpus skip the
// single-pass aggregation. The zero value is ready to use.
type Cache struct {
	mu     sync.Mutex
	hash   uint64
	valid  bool
	result *Bundles
}

// Compute returns the analytics Bundles for c, reusing a memoised result
// if c.Hash matches the last computation.
func (ca *Cache) Compute(ctx context.Context, c *corpus.Corpus) (*Bundles, error) {
	ca.mu.Lock()
	if ca.valid && ca.hash == c.Hash {
		result := ca.result
		ca.mu.Unlock()
		return result, nil
	}
	ca.mu.Unlock()

	result, err := computeFresh(ctx, c)
	if err != nil {
		return nil, err
	}

	ca.mu.Lock()
	ca.hash = c.Hash
	ca.valid = true
	ca.result = result
	ca.mu.Unlock()

	return result, nil
}

// Compute runs the single-pass analytics aggregation over c with no
// memoisation. Callers that want caching across repeated calls should use
// a Cache instead.
func Compute(ctx context.Context, c *corpus.Corpus) (*Bundles, error) {
	return computeFresh(ctx, c)
}

func computeFresh(ctx context.Context, c *corpus.Corpus) (*Bundles, error) {
	n := len(c.Conversations)
	partials := make([]*perConvAccumulator, n)

	g, ctx := errgroup.WithContext(ctx)
	for i, conv := range c.Conversations {
		i, conv := i, conv
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			partials[i] = accumulate(conv)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := &Bundles{
		CorpusHash: c.Hash,
		Temporal:   Temporal{Daily: make(map[string]int)},
		Models:     make(map[string]ModelUsage),
		Tools: ToolUsage{
			ByTool:     make(map[string]int),
			ByToolRole: make(map[string]map[corpus.Role]int),
		},
		Projects: make(map[string]ProjectUsage),
	}

	var durations []time.Duration
	var completedCount int

	for _, p := range partials {
		b.Basic.Conversations++
		b.Basic.Messages += p.messages
		if p.subAgent {
			b.Basic.SubAgents++
		}
		for h := 0; h < 24; h++ {
			b.Temporal.PeakHour[h] += p.peakHour[h]
		}
		for w := 0; w < 7; w++ {
			b.Temporal.Weekday[w] += p.weekday[w]
		}
		for day, count := range p.daily {
			b.Temporal.Daily[day] += count
		}
		for model, usage := range p.models {
			agg := b.Models[model]
			agg.Conversations += usage.Conversations
			agg.Messages += usage.Messages
			b.Models[model] = agg
		}
		for tool, count := range p.byTool {
			b.Tools.ByTool[tool] += count
		}
		for tool, byRole := range p.byToolRole {
			dst, ok := b.Tools.ByToolRole[tool]
			if !ok {
				dst = make(map[corpus.Role]int)
				b.Tools.ByToolRole[tool] = dst
			}
			for role, count := range byRole {
				dst[role] += count
			}
		}
		for proj, usage := range p.projects {
			agg := b.Projects[proj]
			agg.Messages += usage.Messages
			agg.ToolUses += usage.ToolUses
			agg.Conversations += usage.Conversations
			b.Projects[proj] = agg
		}
		if p.duration > 0 {
			durations = append(durations, p.duration)
		}
		if p.completed {
			completedCount++
		}
		b.Quality.TotalEstCost += p.estCost
	}

	projectSet := make(map[string]struct{})
	for _, conv := range c.Conversations {
		projectSet[conv.Project] = struct{}{}
	}
	b.Basic.Projects = len(projectSet)

	if b.Basic.Conversations > 0 {
		b.Quality.AvgMessages = float64(b.Basic.Messages) / float64(b.Basic.Conversations)
		b.Quality.CompletionRate = float64(completedCount) / float64(b.Basic.Conversations)
	}
	if len(durations) > 0 {
		b.Quality.AvgDuration = averageDuration(durations)
		b.Quality.MedianDuration = medianDuration(durations)
	}

	return b, nil
}

func accumulate(conv *corpus.Conversation) *perConvAccumulator {
	a := newAccumulator()
	a.subAgent = conv.IsSubAgent
	a.messages = conv.MessageCount()
	a.duration = conv.Duration()
	a.completed = conv.FinalRole() == corpus.RoleAssistant
	a.estCost = conv.EstCost

	projUsage := ProjectUsage{Conversations: 1}

	for _, msg := range conv.Messages {
		if msg.HasTimestamp() {
			a.peakHour[msg.Timestamp.Hour()%24]++
			a.weekday[int(msg.Timestamp.Weekday())]++
			a.daily[msg.Timestamp.Format("2006-01-02")]++
		}
		projUsage.Messages++

		if msg.Role == corpus.RoleAssistant && msg.Model != "" {
			usage := a.models[msg.Model]
			usage.Messages++
			a.models[msg.Model] = usage
		}

		for _, block := range msg.Content {
			if block.Kind != corpus.BlockToolUse || block.ToolName == "" {
				continue
			}
			a.byTool[block.ToolName]++
			if a.byToolRole[block.ToolName] == nil {
				a.byToolRole[block.ToolName] = make(map[corpus.Role]int)
			}
			a.byToolRole[block.ToolName][msg.Role]++
			projUsage.ToolUses++
		}
	}

	for model := range conv.Models {
		usage := a.models[model]
		usage.Conversations++
		a.models[model] = usage
	}

	a.projects[conv.Project] = projUsage
	return a
}

func averageDuration(ds []time.Duration) time.Duration {
	var total time.Duration
	for _, d := range ds {
		total += d
	}
	return total / time.Duration(len(ds))
}

func medianDuration(ds []time.Duration) time.Duration {
	sorted := make([]time.Duration, len(ds))
	copy(sorted, ds)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
