package timeline

import (
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/heffrey78/claude-tools/corpus"
)

// defaultCapacity is the Timeline Cache's fixed LRU capacity (spec §4.L).
const defaultCapacity = 16

// binKey is the cache's storage key: span and bin size. The corpus hash
// is validated against each Artifact's own CorpusHash field at lookup
// time rather than folded into the key, so a stale entry left behind by
// a corpus refresh is dropped on lookup instead of silently shadowing
// the new corpus under a key nothing will ever look up again.
type binKey struct {
	Span time.Duration
	Bin  time.Duration
}

// Cache is the content-hash-keyed store of TimelineArtifacts described in
// spec §4.L: get_exact for identical (span, bin) requests, and
// get_filtered to derive a requested period from a cached coarser-span,
// finer-or-equal-bin artifact without a full rebuild. Eviction is LRU
// with a small fixed capacity; the zero value is not usable, use NewCache.
type Cache struct {
	lru    *lru.Cache[binKey, *Artifact]
	logger *slog.Logger
}

// NewCache builds a Cache with the given capacity (defaultCapacity if
// capacity <= 0). logger may be nil, in which case slog.Default() is used.
func NewCache(capacity int, logger *slog.Logger) (*Cache, error) {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	l, err := lru.New[binKey, *Artifact](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l, logger: logger}, nil
}

// Put stores a built Artifact under its own (span, bin) key.
func (c *Cache) Put(a *Artifact) {
	c.lru.Add(binKey{Span: a.Span, Bin: a.BinSize}, a)
}

// GetExact returns the artifact cached for the exact (span, bin) pair, if
// one exists and its corpus hash matches corpusHash. A hash mismatch
// drops the stale entry and reports a miss.
func (c *Cache) GetExact(corpusHash uint64, span, bin time.Duration) (*Artifact, bool) {
	key := binKey{Span: span, Bin: bin}
	a, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	if a.CorpusHash != corpusHash {
		c.logger.Debug("dropping stale timeline cache entry", slog.Duration("span", span), slog.Duration("bin", bin))
		c.lru.Remove(key)
		return nil, false
	}
	return a, true
}

// GetFiltered looks for a cached artifact with the same corpus hash, a
// larger span, and a finer-or-equal bin size that evenly divides
// requestedBin, and derives the requested artifact from it by summing
// bins and slicing to the requested window. It reports false if no such
// artifact is cached (the caller should fall back to a fresh Build,
// which always produces identical numbers — spec §8 property 6 / §9).
func (c *Cache) GetFiltered(corpusHash uint64, requestedSpan, requestedBin time.Duration, now time.Time) (*Artifact, bool) {
	var best *Artifact
	var bestKey binKey
	found := false

	for _, key := range c.lru.Keys() {
		if key.Span <= requestedSpan || key.Bin > requestedBin {
			continue
		}
		if requestedBin%key.Bin != 0 {
			continue
		}
		a, ok := c.lru.Peek(key)
		if !ok {
			continue
		}
		if a.CorpusHash != corpusHash {
			c.logger.Debug("dropping stale timeline cache entry", slog.Duration("span", key.Span), slog.Duration("bin", key.Bin))
			c.lru.Remove(key)
			continue
		}
		if !found || key.Span < bestKey.Span || (key.Span == bestKey.Span && key.Bin < bestKey.Bin) {
			best, bestKey, found = a, key, true
		}
	}

	if !found {
		return nil, false
	}
	return deriveFromCoarser(best, requestedSpan, requestedBin, now), true
}

// Request resolves period against corp, consulting the cache before doing
// any work (spec §2 data flow / §4.L: "first asks L; on miss, K reads B
// and writes L"). It tries an exact cache hit first, then a
// derive-from-coarser hit, and only calls Build on a full miss — the
// freshly built artifact is always stored back with Put so a later
// request against the same (or a derivable) period reuses it.
func (c *Cache) Request(period Period, corp *corpus.Corpus, now time.Time, detailed bool) (*Artifact, error) {
	span, bin, err := period.SpanBin()
	if err != nil {
		return nil, err
	}

	if a, ok := c.GetExact(corp.Hash, span, bin); ok {
		return a, nil
	}

	if a, ok := c.GetFiltered(corp.Hash, span, bin, now); ok {
		c.Put(a)
		return a, nil
	}

	a, err := Build(corp, span, bin, now, detailed)
	if err != nil {
		return nil, err
	}
	c.Put(a)
	return a, nil
}

// deriveFromCoarser builds a requested (requestedSpan, requestedBin)
// artifact from a cached source artifact whose span is larger and whose
// bin size is finer-or-equal and evenly divides requestedBin. Source
// bins are merged ratio-at-a-time into the new, coarser bins, then the
// same finalize() used by a fresh Build computes ranking/trend/top-tools
// so the two paths never disagree.
func deriveFromCoarser(source *Artifact, requestedSpan, requestedBin time.Duration, now time.Time) *Artifact {
	windowStart := now.Add(-requestedSpan)
	numBins := int(requestedSpan / requestedBin)

	derived := &Artifact{
		CorpusHash:  source.CorpusHash,
		WindowStart: windowStart,
		WindowEnd:   now,
		Span:        requestedSpan,
		BinSize:     requestedBin,
		Projects:    make(map[string]*ProjectTimeline),
		Detailed:    source.Detailed,
	}

	for name, srcPT := range source.Projects {
		dstPT := &ProjectTimeline{Project: name, Bins: makeBins(windowStart, requestedBin, numBins)}
		for _, srcBin := range srcPT.Bins {
			if srcBin.Messages == 0 && len(srcBin.ToolUses) == 0 {
				continue
			}
			if srcBin.Start.Before(windowStart) || !srcBin.Start.Before(now) {
				continue
			}
			idx := binIndex(srcBin.Start, windowStart, requestedBin, numBins)
			dst := &dstPT.Bins[idx]
			dst.Messages += srcBin.Messages
			dstPT.TotalMessages += srcBin.Messages
			for tool, count := range srcBin.ToolUses {
				dst.ToolUses[tool] += count
			}
			if !srcBin.FirstActivity.IsZero() && (dst.FirstActivity.IsZero() || srcBin.FirstActivity.Before(dst.FirstActivity)) {
				dst.FirstActivity = srcBin.FirstActivity
			}
			if srcBin.LastActivity.After(dst.LastActivity) {
				dst.LastActivity = srcBin.LastActivity
			}
		}
		if dstPT.TotalMessages > 0 {
			derived.Projects[name] = dstPT
		}
	}

	finalize(derived, derived.Detailed)
	return derived
}
