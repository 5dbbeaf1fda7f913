package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sukru-can1/agent1go/internal/model"
)

func TestScoreOrdersCriticalBeforeOlderHighPriority(t *testing.T) {
	now := time.Now().UTC()
	older := now.Add(-time.Hour)

	critical := model.Score(model.PriorityCritical, now)
	high := model.Score(model.PriorityHigh, older)

	assert.Less(t, critical, high, "CRITICAL must sort before HIGH regardless of age")
}

func TestScorePreservesFIFOWithinSamePriority(t *testing.T) {
	earlier := time.Now().UTC()
	later := earlier.Add(time.Second)

	assert.Less(t, model.Score(model.PriorityMedium, earlier), model.Score(model.PriorityMedium, later))
}

func TestNewEventDefaultsPendingAndEmptyPayload(t *testing.T) {
	ev := model.NewEvent(model.SourceMail, "message_received", model.PriorityHigh, nil)

	assert.Equal(t, model.StatusPending, ev.Status)
	assert.NotEmpty(t, ev.ID)
	assert.NotNil(t, ev.Payload)
	assert.Empty(t, ev.Payload)
}

func TestEventScoreMatchesPackageScore(t *testing.T) {
	ev := model.NewEvent(model.SourceChat, "chat_message", model.PriorityLow, nil)
	assert.Equal(t, model.Score(ev.Priority, ev.CreatedAt), ev.Score())
}

func TestPriorityStringNames(t *testing.T) {
	cases := map[model.Priority]string{
		model.PriorityCritical:   "CRITICAL",
		model.PriorityHigh:       "HIGH",
		model.PriorityMedium:     "MEDIUM",
		model.PriorityLow:        "LOW",
		model.PriorityBackground: "BACKGROUND",
		model.Priority(99):       "UNKNOWN",
	}
	for p, want := range cases {
		assert.Equal(t, want, p.String())
	}
}

func TestSafeDefaultClassification(t *testing.T) {
	result := model.SafeDefault("message_received", model.PriorityHigh)
	assert.Equal(t, "message_received", result.Category)
	assert.Equal(t, model.PriorityHigh, result.Urgency)
	assert.Equal(t, model.ComplexityModerate, result.Complexity)
	assert.True(t, result.NeedsResponse)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestDraftFinalBodyPrefersEditedBody(t *testing.T) {
	edited := "edited reply"
	d := &model.Draft{DraftBody: "original reply", EditedBody: &edited}
	assert.Equal(t, "edited reply", d.FinalBody())
}

func TestDraftFinalBodyFallsBackWhenEditedBodyEmpty(t *testing.T) {
	empty := ""
	d := &model.Draft{DraftBody: "original reply", EditedBody: &empty}
	assert.Equal(t, "original reply", d.FinalBody())

	d2 := &model.Draft{DraftBody: "original reply", EditedBody: nil}
	assert.Equal(t, "original reply", d2.FinalBody())
}

func TestIsAnomalyWithoutBaselineRequiresThree(t *testing.T) {
	assert.False(t, model.IsAnomaly(2, nil))
	assert.True(t, model.IsAnomaly(3, nil))
}

func TestIsAnomalyWithBaselineUsesMeanPlusTwoStddev(t *testing.T) {
	baseline := &model.Baseline{MeanCount: 5, StddevCount: 1}
	assert.False(t, model.IsAnomaly(7, baseline)) // threshold = 7, not > 7
	assert.True(t, model.IsAnomaly(8, baseline))
}

func TestIsAnomalyBaselineThresholdFloorsAtTwo(t *testing.T) {
	baseline := &model.Baseline{MeanCount: 0, StddevCount: 0}
	assert.False(t, model.IsAnomaly(2, baseline))
	assert.True(t, model.IsAnomaly(3, baseline))
}
