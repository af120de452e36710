package policy

import (
	"testing"
	"time"

	"github.com/de-tools/site-warden/pkg/models/domain"
	"github.com/stretchr/testify/assert"
)

var testWindow = domain.PeakWindow{
	Start: domain.TimeOfDay{Hour: 8, Minute: 0},
	End:   domain.TimeOfDay{Hour: 18, Minute: 0},
}

func newTestEvaluator(days int) *Evaluator {
	var thresholds []domain.Threshold
	for _, rt := range domain.AllResourceTypes() {
		thresholds = append(thresholds, domain.Threshold{
			Resource: rt,
			Days:     days,
			Window:   testWindow,
			Mode:     domain.ModeLogOnly,
		})
	}
	return NewEvaluator(thresholds)
}

func timePtr(t time.Time) *time.Time { return &t }

func TestEvaluate_AgeBased(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	evaluator := newTestEvaluator(365)

	tests := []struct {
		name     string
		activity *time.Time
		expected domain.Verdict
	}{
		{
			name:     "recent activity is not stale",
			activity: timePtr(now.AddDate(0, 0, -100)),
			expected: domain.Verdict{AgeDays: 100},
		},
		{
			name:     "old activity is stale",
			activity: timePtr(now.AddDate(0, 0, -400)),
			expected: domain.Verdict{Stale: true, AgeDays: 400, Reason: domain.ReasonAged},
		},
		{
			name:     "age exactly at threshold is stale",
			activity: timePtr(now.AddDate(0, 0, -365)),
			expected: domain.Verdict{Stale: true, AgeDays: 365, Reason: domain.ReasonAged},
		},
		{
			name:     "one day short of threshold is not stale",
			activity: timePtr(now.AddDate(0, 0, -364)),
			expected: domain.Verdict{AgeDays: 364},
		},
		{
			name:     "missing activity warns instead of flagging",
			activity: nil,
			expected: domain.Verdict{Reason: domain.ReasonMissingData},
		},
		{
			name:     "future activity clamps to zero age",
			activity: timePtr(now.AddDate(0, 0, 2)),
			expected: domain.Verdict{AgeDays: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := domain.ResourceRecord{
				Type:           domain.ResourceUsers,
				ID:             "user-1",
				LastActivityAt: tt.activity,
			}
			assert.Equal(t, tt.expected, evaluator.Evaluate(record, now))
		})
	}
}

func TestEvaluate_ScheduleBased(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	evaluator := newTestEvaluator(730)

	tests := []struct {
		name     string
		runAt    *domain.TimeOfDay
		expected domain.Verdict
	}{
		{
			name:     "inside the peak window is flagged",
			runAt:    &domain.TimeOfDay{Hour: 9, Minute: 30},
			expected: domain.Verdict{Stale: true, Reason: domain.ReasonWithinWindow},
		},
		{
			name:     "window start is flagged",
			runAt:    &domain.TimeOfDay{Hour: 8, Minute: 0},
			expected: domain.Verdict{Stale: true, Reason: domain.ReasonWithinWindow},
		},
		{
			name:     "outside the window passes",
			runAt:    &domain.TimeOfDay{Hour: 22, Minute: 0},
			expected: domain.Verdict{},
		},
		{
			name:     "unreadable schedule warns",
			runAt:    nil,
			expected: domain.Verdict{Reason: domain.ReasonMissingData},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := domain.ResourceRecord{
				Type:        domain.ResourceExtracts,
				ID:          "task-1",
				ScheduledAt: tt.runAt,
			}
			assert.Equal(t, tt.expected, evaluator.Evaluate(record, now))
		})
	}
}

func TestEvaluate_UnconfiguredTypeGetsEmptyVerdict(t *testing.T) {
	evaluator := NewEvaluator(nil)
	record := domain.ResourceRecord{
		Type:           domain.ResourceUsers,
		LastActivityAt: timePtr(time.Now().AddDate(-10, 0, 0)),
	}
	assert.Equal(t, domain.Verdict{}, evaluator.Evaluate(record, time.Now()))
}
