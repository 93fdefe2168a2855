package dateresolve

import (
	"testing"
	"time"

	"github.com/heffrey78/claude-tools/engineerr"
)

var fixedNow = time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)

func TestResolveISODate(t *testing.T) {
	got, err := Resolve("2025-06-19", fixedNow)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2025, 6, 19, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestResolveRelativeDaysAgo(t *testing.T) {
	got, err := Resolve("7 days ago", fixedNow)
	if err != nil {
		t.Fatal(err)
	}
	want := fixedNow.Add(-7 * 24 * time.Hour)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestResolveRelativeSingularUnit(t *testing.T) {
	got, err := Resolve("1 hour ago", fixedNow)
	if err != nil {
		t.Fatal(err)
	}
	want := fixedNow.Add(-time.Hour)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestResolveNamedAnchors(t *testing.T) {
	got, err := Resolve("yesterday", fixedNow)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2025, 6, 19, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestResolveUnparseable(t *testing.T) {
	_, err := Resolve("sometime soonish", fixedNow)
	if err == nil {
		t.Fatal("expected error")
	}
	if engineerr.KindOf(err) != engineerr.KindBadDate {
		t.Errorf("expected BadDate, got %v", engineerr.KindOf(err))
	}
}

func TestResolveScenario3(t *testing.T) {
	// now = 2025-06-20T12:00:00Z, after="7 days ago" should bound C1
	// (last_ts 2025-06-19) in and exclude C2 (last_ts 2025-05-01).
	after, err := Resolve("7 days ago", fixedNow)
	if err != nil {
		t.Fatal(err)
	}
	c1 := time.Date(2025, 6, 19, 10, 0, 0, 0, time.UTC)
	c2 := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	if c1.Before(after) {
		t.Error("expected C1 first_ts to be on/after the 7-days-ago bound")
	}
	if !c2.Before(after) {
		t.Error("expected C2 first_ts to be before the 7-days-ago bound")
	}
}
