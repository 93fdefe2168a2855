// Package filter evaluates structured predicates against Conversations
// without touching the search index, so callers can prune the candidate
// set before scoring.
package filter

import (
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/heffrey78/claude-tools/corpus"
)

// Set is a structured predicate bundle. Zero values mean "unbounded" for
// every field except ExcludeSubAgents.
type Set struct {
	Roles       []corpus.Role
	Models      []string
	ToolNames   []string
	ProjectGlob string

	// AfterTS/BeforeTS bound first_ts/last_ts. The range is half-open,
	// inclusive only on the lower bound: a conversation passes iff
	// first_ts >= AfterTS and last_ts < BeforeTS.
	AfterTS  time.Time
	BeforeTS time.Time

	// MinMessages/MaxMessages and MinDuration/MaxDuration are
	// closed-inclusive ranges. A zero Max means unbounded.
	MinMessages int
	MaxMessages int
	MinDuration time.Duration
	MaxDuration time.Duration

	// ExcludeSubAgents, when true, drops sessions spawned as sub-agents.
	ExcludeSubAgents bool
}

// Matches reports whether c passes every bound set in f.
func (f *Set) Matches(c *corpus.Conversation) bool {
	if f == nil {
		return true
	}

	if len(f.Roles) > 0 && !anyRole(c, f.Roles) {
		return false
	}
	if len(f.Models) > 0 && !anyModel(c, f.Models) {
		return false
	}
	if len(f.ToolNames) > 0 && !anyTool(c, f.ToolNames) {
		return false
	}
	if f.ProjectGlob != "" {
		matched, err := doublestar.Match(f.ProjectGlob, c.Project)
		if err != nil || !matched {
			return false
		}
	}
	if !f.AfterTS.IsZero() && c.FirstTS.Before(f.AfterTS) {
		return false
	}
	if !f.BeforeTS.IsZero() && !c.LastTS.Before(f.BeforeTS) {
		return false
	}
	count := c.MessageCount()
	if f.MinMessages > 0 && count < f.MinMessages {
		return false
	}
	if f.MaxMessages > 0 && count > f.MaxMessages {
		return false
	}
	dur := c.Duration()
	if f.MinDuration > 0 && dur < f.MinDuration {
		return false
	}
	if f.MaxDuration > 0 && dur > f.MaxDuration {
		return false
	}
	if f.ExcludeSubAgents && c.IsSubAgent {
		return false
	}
	return true
}

func anyRole(c *corpus.Conversation, roles []corpus.Role) bool {
	for _, r := range roles {
		if c.HasRole(r) {
			return true
		}
	}
	return false
}

func anyModel(c *corpus.Conversation, models []string) bool {
	for _, m := range models {
		if c.HasModel(m) {
			return true
		}
	}
	return false
}

func anyTool(c *corpus.Conversation, tools []string) bool {
	for _, t := range tools {
		if c.HasTool(t) {
			return true
		}
	}
	return false
}

// Apply filters a slice of conversations, preserving order.
func Apply(f *Set, convs []*corpus.Conversation) []*corpus.Conversation {
	if f == nil {
		return convs
	}
	out := make([]*corpus.Conversation, 0, len(convs))
	for _, c := range convs {
		if f.Matches(c) {
			out = append(out, c)
		}
	}
	return out
}
