package detector

import (
	"fmt"
	"sort"

	"github.com/smelldet/smelldet/models"
)

// scoredCandidate pairs a match with its confidence score.
type scoredCandidate struct {
	cand  matchCandidate
	score float64
}

type alertKey struct {
	line   int
	column int
	kind   models.IssueKind
}

// classifyAndAggregate turns scored candidates into the final alert list:
// candidates below the confidence threshold are dropped, survivors are
// bucketed into severity tiers, overlapping matches at the same
// location+kind are merged keeping the highest score, and the result is
// sorted by (line, column, kind). An empty result is not an error.
func classifyAndAggregate(scored []scoredCandidate, cfg DetectConfig) ([]models.Alert, error) {
	best := make(map[alertKey]scoredCandidate, len(scored))
	order := make([]alertKey, 0, len(scored))

	for _, sc := range scored {
		if sc.score < 0 || sc.score > 1 {
			return nil, fmt.Errorf("%w: confidence %g outside [0,1] at %d:%d",
				ErrInternal, sc.score, sc.cand.line, sc.cand.column)
		}
		if sc.score < cfg.ConfidenceThreshold {
			continue
		}

		key := alertKey{line: sc.cand.line, column: sc.cand.column, kind: sc.cand.kind}
		prev, seen := best[key]
		if !seen {
			best[key] = sc
			order = append(order, key)
			continue
		}
		if sc.score > prev.score {
			best[key] = sc
		}
	}

	alerts := make([]models.Alert, 0, len(order))
	for _, key := range order {
		sc := best[key]
		alerts = append(alerts, models.Alert{
			Kind:         sc.cand.kind,
			KindName:     sc.cand.rule.KindName,
			Severity:     cfg.Cutoffs.Tier(sc.score),
			Confidence:   sc.score,
			Line:         sc.cand.line,
			Column:       sc.cand.column,
			Snippet:      truncateSnippet(sc.cand.text, cfg.MaxSnippetLength),
			Rationale:    sc.cand.rule.Rationale,
			SuggestedFix: sc.cand.rule.FixTemplate,
		})
	}

	sort.Slice(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.Kind < b.Kind
	})

	return alerts, nil
}

func truncateSnippet(text string, maxLength int) string {
	if len(text) <= maxLength {
		return text
	}
	return text[:maxLength] + "..."
}
