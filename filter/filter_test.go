package filter

import (
	"testing"
	"time"

	"github.com/heffrey78/claude-tools/corpus"
)

func conv(project string, first, last time.Time, msgCount int, tools ...string) *corpus.Conversation {
	toolSet := make(map[string]struct{})
	for _, t := range tools {
		toolSet[t] = struct{}{}
	}
	return &corpus.Conversation{
		ID:                 project + "-conv",
		Project:            project,
		FirstTS:            first,
		LastTS:             last,
		Messages:           make([]corpus.Message, msgCount),
		MessageCountByRole: map[corpus.Role]int{corpus.RoleUser: msgCount},
		ToolNames:          toolSet,
		Models:             map[string]struct{}{},
	}
}

func TestFilterDateRangeHalfOpen(t *testing.T) {
	a := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	in := conv("p", a, a.Add(time.Hour), 1)
	atBoundary := conv("p", b, b, 1)
	before := conv("p", a.Add(-time.Hour), a, 1)

	f := &Set{AfterTS: a, BeforeTS: b}

	if !f.Matches(in) {
		t.Error("expected conversation starting exactly at AfterTS to match")
	}
	if f.Matches(atBoundary) {
		t.Error("expected conversation with last_ts == BeforeTS to be excluded (half-open)")
	}
	if f.Matches(before) {
		t.Error("expected conversation entirely before AfterTS to be excluded")
	}
}

func TestFilterMessageCountClosedInclusive(t *testing.T) {
	f := &Set{MinMessages: 2, MaxMessages: 4}
	for n, want := range map[int]bool{1: false, 2: true, 3: true, 4: true, 5: false} {
		c := conv("p", time.Time{}, time.Time{}, n)
		if got := f.Matches(c); got != want {
			t.Errorf("messages=%d: got %v, want %v", n, got, want)
		}
	}
}

func TestFilterDurationClosedInclusive(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &Set{MinDuration: time.Hour, MaxDuration: 3 * time.Hour}

	cases := []struct {
		dur  time.Duration
		want bool
	}{
		{30 * time.Minute, false},
		{time.Hour, true},
		{2 * time.Hour, true},
		{3 * time.Hour, true},
		{4 * time.Hour, false},
	}
	for _, tc := range cases {
		c := conv("p", start, start.Add(tc.dur), 1)
		if got := f.Matches(c); got != tc.want {
			t.Errorf("duration=%v: got %v, want %v", tc.dur, got, tc.want)
		}
	}
}

func TestFilterProjectGlob(t *testing.T) {
	f := &Set{ProjectGlob: "api-*"}
	if !f.Matches(conv("api-gateway", time.Time{}, time.Time{}, 1)) {
		t.Error("expected api-gateway to match api-*")
	}
	if f.Matches(conv("web-frontend", time.Time{}, time.Time{}, 1)) {
		t.Error("expected web-frontend to not match api-*")
	}
}

func TestFilterToolNames(t *testing.T) {
	f := &Set{ToolNames: []string{"Bash", "Grep"}}
	if !f.Matches(conv("p", time.Time{}, time.Time{}, 1, "Bash")) {
		t.Error("expected conversation using Bash to match")
	}
	if f.Matches(conv("p", time.Time{}, time.Time{}, 1, "Read")) {
		t.Error("expected conversation using only Read to not match")
	}
}

func TestFilterExcludeSubAgents(t *testing.T) {
	c := conv("p", time.Time{}, time.Time{}, 1)
	c.IsSubAgent = true

	f := &Set{ExcludeSubAgents: true}
	if f.Matches(c) {
		t.Error("expected sub-agent session to be excluded")
	}

	f2 := &Set{}
	if !f2.Matches(c) {
		t.Error("expected sub-agent session to match when ExcludeSubAgents is false")
	}
}

func TestFilterNilSetMatchesEverything(t *testing.T) {
	var f *Set
	c := conv("p", time.Time{}, time.Time{}, 1)
	if !f.Matches(c) {
		t.Error("expected nil filter set to match everything")
	}
}

func TestApplyPreservesOrder(t *testing.T) {
	convs := []*corpus.Conversation{
		conv("a", time.Time{}, time.Time{}, 1),
		conv("b", time.Time{}, time.Time{}, 10),
		conv("c", time.Time{}, time.Time{}, 2),
	}
	f := &Set{MaxMessages: 5}
	got := Apply(f, convs)
	if len(got) != 2 || got[0].Project != "a" || got[1].Project != "c" {
		t.Errorf("got %+v", got)
	}
}
