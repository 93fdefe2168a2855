// Package timeline builds per-project activity bins over a sliding time
// window, with project ranking, tool tallies, and a trend indicator, plus
// a content-hash-keyed cache (Cache, in cache.go) so switching between
// periods against an unchanged corpus reuses prior work instead of
// rebuilding from scratch.
package timeline

import (
	"sort"
	"time"

	"github.com/heffrey78/claude-tools/corpus"
	"github.com/heffrey78/claude-tools/engineerr"
)

// Bin is one half-open sub-interval [Start, End) of a window, with
// per-project counters.
type Bin struct {
	Start, End                  time.Time
	Messages                    int
	ToolUses                    map[string]int
	FirstActivity, LastActivity time.Time
}

// NamedCount pairs a name (project or tool) with a tally, used for ranked
// lists.
type NamedCount struct {
	Name  string
	Count int
}

// ProjectTimeline is one project's bins across the window, plus derived
// aggregates.
type ProjectTimeline struct {
	Project       string
	Bins          []Bin
	TotalMessages int
	// Trend is the sign of (second-half messages - first-half messages):
	// -1, 0, or +1.
	Trend int
	// TopTools is populated only when the request asked for detailed
	// output (spec §6 Timeline input "detailed" flag).
	TopTools []NamedCount
}

// ToolTally is one entry of the window-wide top-tools list, with its
// per-project contribution.
type ToolTally struct {
	Name      string
	Count     int
	ByProject map[string]int
}

// Artifact is the full result of a timeline build: the window, bin size,
// per-project bins, project ranking, and top-tools list, tagged with the
// corpus hash it was built from (§3 invariant 3).
type Artifact struct {
	CorpusHash uint64

	WindowStart, WindowEnd time.Time
	Span                   time.Duration
	BinSize                time.Duration

	Projects map[string]*ProjectTimeline
	// Ranking lists project names ordered by total activity in the
	// window, descending, ties broken by most-recent bin with activity.
	Ranking  []string
	TopTools []ToolTally

	Detailed bool
}

const defaultTopToolsN = 10

// Build aggregates corp's messages into per-project bins across
// [now-span, now), distributing each message into the bin containing its
// timestamp (a message exactly on a bin boundary belongs to the later
// bin, per half-open semantics). detailed controls whether per-project
// top-tools lists are populated.
func Build(corp *corpus.Corpus, span, binSize time.Duration, now time.Time, detailed bool) (*Artifact, error) {
	if span <= 0 || binSize <= 0 {
		return nil, engineerr.New(engineerr.KindInvalidPeriod, "span and bin size must be positive")
	}
	if span%binSize != 0 {
		return nil, engineerr.New(engineerr.KindInvalidPeriod, "span must be an exact multiple of bin size")
	}

	windowStart := now.Add(-span)
	numBins := int(span / binSize)

	art := &Artifact{
		CorpusHash:  corp.Hash,
		WindowStart: windowStart,
		WindowEnd:   now,
		Span:        span,
		BinSize:     binSize,
		Projects:    make(map[string]*ProjectTimeline),
		Detailed:    detailed,
	}

	for _, conv := range corp.Conversations {
		if !intersectsWindow(conv, windowStart, now) {
			continue
		}
		pt := art.Projects[conv.Project]
		if pt == nil {
			pt = &ProjectTimeline{Project: conv.Project, Bins: makeBins(windowStart, binSize, numBins)}
			art.Projects[conv.Project] = pt
		}
		for _, msg := range conv.Messages {
			if !msg.HasTimestamp() {
				continue
			}
			ts := msg.Timestamp
			if ts.Before(windowStart) || !ts.Before(now) {
				continue
			}
			idx := binIndex(ts, windowStart, binSize, numBins)
			bin := &pt.Bins[idx]
			bin.Messages++
			pt.TotalMessages++
			if bin.FirstActivity.IsZero() || ts.Before(bin.FirstActivity) {
				bin.FirstActivity = ts
			}
			if ts.After(bin.LastActivity) {
				bin.LastActivity = ts
			}
			for _, block := range msg.Content {
				if block.Kind == corpus.BlockToolUse && block.ToolName != "" {
					bin.ToolUses[block.ToolName]++
				}
			}
		}
	}

	finalize(art, detailed)
	return art, nil
}

// intersectsWindow reports whether a conversation's [FirstTS, LastTS]
// overlaps the half-open window [windowStart, windowEnd).
func intersectsWindow(conv *corpus.Conversation, windowStart, windowEnd time.Time) bool {
	if conv.FirstTS.IsZero() && conv.LastTS.IsZero() {
		return false
	}
	return conv.FirstTS.Before(windowEnd) && !conv.LastTS.Before(windowStart)
}

// binIndex floors (ts-windowStart)/binSize and clamps to [0, numBins-1], so
// a timestamp exactly on a boundary falls into the later bin.
func binIndex(ts, windowStart time.Time, binSize time.Duration, numBins int) int {
	idx := int(ts.Sub(windowStart) / binSize)
	if idx < 0 {
		idx = 0
	}
	if idx >= numBins {
		idx = numBins - 1
	}
	return idx
}

// makeBins preallocates numBins half-open bins starting at start.
func makeBins(start time.Time, binSize time.Duration, numBins int) []Bin {
	bins := make([]Bin, numBins)
	for i := range bins {
		bins[i].Start = start.Add(time.Duration(i) * binSize)
		bins[i].End = bins[i].Start.Add(binSize)
		bins[i].ToolUses = make(map[string]int)
	}
	return bins
}

// finalize computes ranking, trend, and top-tools from the filled-in
// per-project bins. It is shared between a fresh Build and the cache's
// derive-from-coarser path, so both produce identical numbers (spec §8
// property 6).
func finalize(art *Artifact, detailed bool) {
	for _, pt := range art.Projects {
		pt.Trend = trendOf(pt.Bins)
		if detailed {
			pt.TopTools = topToolsForProject(pt.Bins, defaultTopToolsN)
		}
	}
	art.Ranking = rankProjects(art.Projects)
	art.TopTools = topToolsAcross(art.Projects, defaultTopToolsN)
}

// trendOf returns the sign of (second-half messages - first-half
// messages) across a project's bins.
func trendOf(bins []Bin) int {
	half := len(bins) / 2
	var first, second int
	for i, b := range bins {
		if i < half {
			first += b.Messages
		} else {
			second += b.Messages
		}
	}
	switch {
	case second > first:
		return 1
	case second < first:
		return -1
	default:
		return 0
	}
}

// rankProjects orders project names by TotalMessages descending, ties
// broken by which project's most-recent active bin is later.
func rankProjects(projects map[string]*ProjectTimeline) []string {
	names := make([]string, 0, len(projects))
	for name := range projects {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := projects[names[i]], projects[names[j]]
		if a.TotalMessages != b.TotalMessages {
			return a.TotalMessages > b.TotalMessages
		}
		la, lb := lastActiveBinIndex(a.Bins), lastActiveBinIndex(b.Bins)
		if la != lb {
			return la > lb
		}
		return names[i] < names[j]
	})
	return names
}

func lastActiveBinIndex(bins []Bin) int {
	for i := len(bins) - 1; i >= 0; i-- {
		if bins[i].Messages > 0 {
			return i
		}
	}
	return -1
}

func topToolsForProject(bins []Bin, topN int) []NamedCount {
	totals := make(map[string]int)
	for _, b := range bins {
		for tool, count := range b.ToolUses {
			totals[tool] += count
		}
	}
	return topNamedCounts(totals, topN)
}

func topToolsAcross(projects map[string]*ProjectTimeline, topN int) []ToolTally {
	totals := make(map[string]int)
	byProject := make(map[string]map[string]int)
	for name, pt := range projects {
		for _, b := range pt.Bins {
			for tool, count := range b.ToolUses {
				totals[tool] += count
				dst, ok := byProject[tool]
				if !ok {
					dst = make(map[string]int)
					byProject[tool] = dst
				}
				dst[name] += count
			}
		}
	}
	ranked := topNamedCounts(totals, topN)
	tallies := make([]ToolTally, len(ranked))
	for i, nc := range ranked {
		tallies[i] = ToolTally{Name: nc.Name, Count: nc.Count, ByProject: byProject[nc.Name]}
	}
	return tallies
}

func topNamedCounts(totals map[string]int, topN int) []NamedCount {
	out := make([]NamedCount, 0, len(totals))
	for name, count := range totals {
		out = append(out, NamedCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}
