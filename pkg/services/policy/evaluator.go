// Package policy turns raw resource metadata into stale/not-stale verdicts.
package policy

import (
	"time"

	"github.com/de-tools/site-warden/pkg/models/domain"
)

// Evaluator applies configured thresholds to scanned records. It is pure:
// no I/O, no clock of its own.
type Evaluator struct {
	thresholds map[domain.ResourceType]domain.Threshold
}

func NewEvaluator(thresholds []domain.Threshold) *Evaluator {
	byType := make(map[domain.ResourceType]domain.Threshold, len(thresholds))
	for _, t := range thresholds {
		byType[t.Resource] = t
	}
	return &Evaluator{thresholds: byType}
}

// Threshold returns the configured threshold for a resource type.
func (e *Evaluator) Threshold(rt domain.ResourceType) (domain.Threshold, bool) {
	t, ok := e.thresholds[rt]
	return t, ok
}

// Evaluate produces the verdict for one record at the given instant.
//
// Age-based types: stale when ageDays >= threshold days. A record with no
// activity timestamp is never stale — flagging unknown data would produce
// false positives with compliance consequences — so it gets a missing-data
// warning and is excluded from stale counts.
//
// Schedule-based types: staleness does not apply; the record is flagged
// when its configured run time falls inside the peak-hours window.
func (e *Evaluator) Evaluate(record domain.ResourceRecord, now time.Time) domain.Verdict {
	threshold, ok := e.thresholds[record.Type]
	if !ok {
		return domain.Verdict{}
	}

	if record.Type.IsScheduleBased() {
		return evaluateSchedule(record, threshold)
	}
	return evaluateAge(record, threshold, now)
}

func evaluateAge(record domain.ResourceRecord, threshold domain.Threshold, now time.Time) domain.Verdict {
	if record.LastActivityAt == nil {
		return domain.Verdict{Reason: domain.ReasonMissingData}
	}

	age := daysBetween(*record.LastActivityAt, now)
	if age >= threshold.Days {
		return domain.Verdict{Stale: true, AgeDays: age, Reason: domain.ReasonAged}
	}
	return domain.Verdict{AgeDays: age}
}

func evaluateSchedule(record domain.ResourceRecord, threshold domain.Threshold) domain.Verdict {
	if record.ScheduledAt == nil {
		// Unreadable schedules are a data-quality case, same as a missing
		// activity timestamp.
		return domain.Verdict{Reason: domain.ReasonMissingData}
	}
	if threshold.Window.Contains(*record.ScheduledAt) {
		return domain.Verdict{Stale: true, Reason: domain.ReasonWithinWindow}
	}
	return domain.Verdict{}
}

// daysBetween is the whole number of days from then to now, floored at
// zero so clock skew never yields a negative age.
func daysBetween(then, now time.Time) int {
	d := now.Sub(then)
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}
