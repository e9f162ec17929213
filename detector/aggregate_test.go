package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smelldet/smelldet/models"
)

func scoredFor(kind models.IssueKind, line, column int, score float64) scoredCandidate {
	return scoredCandidate{
		cand: matchCandidate{
			kind:   kind,
			line:   line,
			column: column,
			text:   "snippet",
			rule: &PatternRule{
				Kind:        kind,
				KindName:    kind.String(),
				Rationale:   "because",
				FixTemplate: "fix it",
			},
		},
		score: score,
	}
}

func TestClassifyThresholdFilter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConfidenceThreshold = 0.75

	alerts, err := classifyAndAggregate([]scoredCandidate{
		scoredFor(models.KindUnwrapAbuse, 1, 1, 0.70),
		scoredFor(models.KindUnwrapAbuse, 2, 1, 0.80),
	}, cfg)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, 2, alerts[0].Line)
}

func TestClassifyTierBoundaries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConfidenceThreshold = 0

	testCases := []struct {
		name     string
		score    float64
		expected models.SeverityTier
	}{
		{"exactly critical cutoff", 0.90, models.SeverityCritical},
		{"just below critical", 0.89, models.SeverityHigh},
		{"exactly high cutoff", 0.80, models.SeverityHigh},
		{"just below high", 0.79, models.SeverityMedium},
		{"exactly medium cutoff", 0.65, models.SeverityMedium},
		{"just below medium", 0.64, models.SeverityLow},
		{"top of range", 1.0, models.SeverityCritical},
		{"bottom of range", 0.0, models.SeverityLow},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			alerts, err := classifyAndAggregate(
				[]scoredCandidate{scoredFor(models.KindUnwrapAbuse, 1, 1, tc.score)}, cfg)
			require.NoError(t, err)
			require.Len(t, alerts, 1)
			assert.Equal(t, tc.expected, alerts[0].Severity)
		})
	}
}

func TestClassifyDeduplication(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConfidenceThreshold = 0

	// Same location and kind: keep the highest score.
	alerts, err := classifyAndAggregate([]scoredCandidate{
		scoredFor(models.KindUnwrapAbuse, 3, 5, 0.70),
		scoredFor(models.KindUnwrapAbuse, 3, 5, 0.82),
		scoredFor(models.KindUnwrapAbuse, 3, 5, 0.75),
	}, cfg)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.InDelta(t, 0.82, alerts[0].Confidence, 1e-9)

	// Different kinds at the same location are distinct alerts.
	alerts, err = classifyAndAggregate([]scoredCandidate{
		scoredFor(models.KindUnwrapAbuse, 3, 5, 0.70),
		scoredFor(models.KindCloneAbuse, 3, 5, 0.70),
	}, cfg)
	require.NoError(t, err)
	assert.Len(t, alerts, 2)
}

func TestClassifySortOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConfidenceThreshold = 0

	alerts, err := classifyAndAggregate([]scoredCandidate{
		scoredFor(models.KindCloneAbuse, 5, 2, 0.70),
		scoredFor(models.KindUnwrapAbuse, 1, 9, 0.70),
		scoredFor(models.KindUnwrapAbuse, 1, 3, 0.70),
		scoredFor(models.KindMagicNumber, 5, 2, 0.70),
	}, cfg)
	require.NoError(t, err)
	require.Len(t, alerts, 4)

	assert.Equal(t, []int{1, 1, 5, 5}, []int{alerts[0].Line, alerts[1].Line, alerts[2].Line, alerts[3].Line})
	assert.Equal(t, 3, alerts[0].Column)
	assert.Equal(t, 9, alerts[1].Column)
	// Same position: lower kind value first.
	assert.Equal(t, models.KindMagicNumber, alerts[2].Kind)
	assert.Equal(t, models.KindCloneAbuse, alerts[3].Kind)
}

func TestClassifyInvariantViolation(t *testing.T) {
	cfg := DefaultConfig()

	_, err := classifyAndAggregate([]scoredCandidate{
		scoredFor(models.KindUnwrapAbuse, 1, 1, 1.5),
	}, cfg)
	require.ErrorIs(t, err, ErrInternal)

	_, err = classifyAndAggregate([]scoredCandidate{
		scoredFor(models.KindUnwrapAbuse, 1, 1, -0.1),
	}, cfg)
	require.ErrorIs(t, err, ErrInternal)
}

func TestClassifyEmptyInput(t *testing.T) {
	alerts, err := classifyAndAggregate(nil, DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestTruncateSnippet(t *testing.T) {
	assert.Equal(t, "short", truncateSnippet("short", 10))
	assert.Equal(t, "abcde...", truncateSnippet("abcdefgh", 5))
}
