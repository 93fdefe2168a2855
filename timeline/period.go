package timeline

import (
	"time"

	"github.com/heffrey78/claude-tools/engineerr"
)

// Period names the fixed windows the external Timeline interface accepts.
// Each resolves to a (span, bin size) pair per spec §6.
type Period string

const (
	PeriodLast24h   Period = "last-24h"
	PeriodLast48h   Period = "last-48h"
	PeriodLastWeek  Period = "last-week"
	PeriodLastMonth Period = "last-month"
)

// SpanBin resolves a Period to its (span, bin size) pair. last-month uses
// the same 30-day month approximation as dateresolve, so query filters and
// timeline windows stay consistent.
func (p Period) SpanBin() (span, bin time.Duration, err error) {
	switch p {
	case PeriodLast24h:
		return 24 * time.Hour, time.Hour, nil
	case PeriodLast48h:
		return 48 * time.Hour, 2 * time.Hour, nil
	case PeriodLastWeek:
		return 7 * 24 * time.Hour, 6 * time.Hour, nil
	case PeriodLastMonth:
		return 30 * 24 * time.Hour, 24 * time.Hour, nil
	default:
		return 0, 0, engineerr.New(engineerr.KindInvalidPeriod, "unknown timeline period "+string(p))
	}
}
