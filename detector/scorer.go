package detector

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/smelldet/smelldet/models"
)

// Scoring adjustments. The scorer is a pure function of (candidate, file
// context): it starts from the rule's base weight and applies these fixed,
// documented heuristics, so identical input always yields an identical
// score. Adjustments are bounded so the result stays inside [scoreFloor,
// scoreCeiling] by construction; the aggregator still verifies the [0,1]
// invariant and surfaces a violation as ErrInternal.
const (
	// Identical matched text repeated across a file points at a systemic
	// habit rather than an incidental slip.
	repetitionStep     = 0.02
	repetitionBoostMax = 0.10

	// A literal that already appears in a named constant declaration
	// elsewhere in the file was probably named on purpose.
	namedConstPenalty = 0.15

	// Matches inside test-looking files or next to test markers are held
	// to a lower standard.
	testContextPenalty = 0.20

	// Fractional values strictly inside (0,1) are very often behavioral
	// thresholds.
	unitIntervalBoost = 0.05

	scoreFloor   = 0.01
	scoreCeiling = 0.99

	// testMarkerWindow is the surrounding-line window consulted for test
	// markers.
	testMarkerWindow = 2
)

var (
	numberPattern     = regexp.MustCompile(`\d+\.?\d*(?:[eE][+-]?\d+)?`)
	constDeclPattern  = regexp.MustCompile(`(?:const|static|final)\s+[A-Za-z_][^=\n]*=\s*(\d+\.?\d*(?:[eE][+-]?\d+)?)`)
	testMarkerPattern = regexp.MustCompile(`#\[test\]|func Test[A-Z_]|\bdef test_`)
)

// fileContext carries the per-file signals the scorer consults: repetition
// counts, literals bound to named constants, and test-path detection. It
// is built once per file and read-only afterwards.
type fileContext struct {
	lines       []string
	testPath    bool
	repeats     map[repeatKey]int
	constValues map[string]struct{}
}

type repeatKey struct {
	kind models.IssueKind
	text string
}

func newFileContext(lines []string, path string, candidates []matchCandidate) *fileContext {
	fc := &fileContext{
		lines:       lines,
		testPath:    isTestPath(path),
		repeats:     make(map[repeatKey]int, len(candidates)),
		constValues: make(map[string]struct{}, 8),
	}

	for _, c := range candidates {
		fc.repeats[repeatKey{kind: c.kind, text: c.text}]++
	}

	for _, line := range lines {
		if m := constDeclPattern.FindStringSubmatch(line); m != nil {
			fc.constValues[m[1]] = struct{}{}
		}
	}

	return fc
}

func isTestPath(path string) bool {
	if path == "" {
		return false
	}
	base := filepath.Base(path)
	return strings.Contains(base, "_test.") ||
		strings.HasPrefix(base, "test_") ||
		strings.Contains(filepath.ToSlash(path), "/tests/")
}

// nearTestMarker reports whether any line in the surrounding window looks
// like a test declaration. line is 1-based.
func (fc *fileContext) nearTestMarker(line int) bool {
	lo := line - 1 - testMarkerWindow
	if lo < 0 {
		lo = 0
	}
	hi := line - 1 + testMarkerWindow
	if hi > len(fc.lines)-1 {
		hi = len(fc.lines) - 1
	}
	for i := lo; i <= hi; i++ {
		if testMarkerPattern.MatchString(fc.lines[i]) {
			return true
		}
	}
	return false
}

// scoreCandidate converts a raw match plus contextual signals into a
// confidence score. The score is a ranking heuristic; no probabilistic
// meaning is claimed.
func scoreCandidate(c matchCandidate, fc *fileContext) float64 {
	score := c.rule.BaseWeight

	if n := fc.repeats[repeatKey{kind: c.kind, text: c.text}]; n > 1 {
		boost := repetitionStep * float64(n-1)
		if boost > repetitionBoostMax {
			boost = repetitionBoostMax
		}
		score += boost
	}

	if lit := lastNumber(c.text); lit != "" {
		if _, named := fc.constValues[lit]; named {
			score -= namedConstPenalty
		}
		if isThresholdKind(c.kind) {
			if v, err := strconv.ParseFloat(lit, 64); err == nil && v > 0 && v < 1 {
				score += unitIntervalBoost
			}
		}
	}

	if fc.testPath || fc.nearTestMarker(c.line) {
		score -= testContextPenalty
	}

	if score < scoreFloor {
		score = scoreFloor
	}
	if score > scoreCeiling {
		score = scoreCeiling
	}
	return score
}

// lastNumber extracts the trailing numeric literal of a matched snippet,
// which for comparison patterns is the compared value.
func lastNumber(text string) string {
	nums := numberPattern.FindAllString(text, -1)
	if len(nums) == 0 {
		return ""
	}
	return nums[len(nums)-1]
}

func isThresholdKind(kind models.IssueKind) bool {
	return kind == models.KindMagicNumber || kind == models.KindHardcodedThreshold
}
