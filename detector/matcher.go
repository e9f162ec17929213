package detector

import "github.com/smelldet/smelldet/models"

// matchCandidate is an unscored hit: what matched, where, and the rule
// that produced it. The rule pointer is borrowed for the duration of
// aggregation and never outlives the scan.
type matchCandidate struct {
	kind   models.IssueKind
	line   int // 1-based
	column int // 1-based
	text   string
	rule   *PatternRule
}

// findCandidates evaluates every rule against every line. A rule may match
// zero or more times per line. Matching is purely lexical: false positives
// on commented-out code or string literals are accepted, not corrected.
// Lines beyond maxLineLength are truncated before matching to bound
// worst-case pattern-engine cost. Candidates come back in line order, then
// rule order; no deduplication happens here.
func findCandidates(lines []string, rules []PatternRule, maxLineLength int) []matchCandidate {
	candidates := make([]matchCandidate, 0, 16)

	for i, line := range lines {
		if len(line) > maxLineLength {
			line = line[:maxLineLength]
		}
		for ri := range rules {
			rule := &rules[ri]
			for _, loc := range rule.re.FindAllStringIndex(line, -1) {
				candidates = append(candidates, matchCandidate{
					kind:   rule.Kind,
					line:   i + 1,
					column: loc[0] + 1,
					text:   line[loc[0]:loc[1]],
					rule:   rule,
				})
			}
		}
	}

	return candidates
}
