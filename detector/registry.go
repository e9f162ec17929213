package detector

import (
	"fmt"
	"regexp"

	"github.com/smelldet/smelldet/models"
)

// RuleID identifies a registered rule within its registry.
type RuleID int

// PatternRule couples an IssueKind with a compiled textual pattern, a base
// severity weight in [0,1], and the report metadata emitted with every
// alert the rule produces.
type PatternRule struct {
	Kind        models.IssueKind
	KindName    string // defaults to Kind.String() at registration
	Pattern     string
	BaseWeight  float64
	Rationale   string
	FixTemplate string

	re *regexp.Regexp
}

// Registry holds the catalog of detectable issue kinds. It is explicitly
// constructed (no process-wide singleton) so independent registries can
// coexist, e.g. for test isolation, and is immutable once the caller stops
// registering rules.
type Registry struct {
	rules       []PatternRule
	kindWeights map[models.IssueKind]float64
	kindNames   map[models.IssueKind]string
	nextCustom  models.IssueKind
}

// NewRegistry returns a registry populated with the built-in rule set.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	for _, rule := range builtinRules() {
		if _, err := r.Register(rule); err != nil {
			// Built-in rules are fixed at compile time; a failure here is a
			// programming defect, not an input error.
			panic(err)
		}
	}
	return r
}

// NewEmptyRegistry returns a registry with no rules.
func NewEmptyRegistry() *Registry {
	return &Registry{
		kindWeights: make(map[models.IssueKind]float64, 16),
		kindNames:   make(map[models.IssueKind]string, 16),
		nextCustom:  models.KindCustomBase,
	}
}

// Register compiles and appends a rule. It fails if the pattern does not
// compile or if the rule's kind was already registered with a different
// base weight.
func (r *Registry) Register(rule PatternRule) (RuleID, error) {
	if rule.BaseWeight < 0 || rule.BaseWeight > 1 {
		return 0, fmt.Errorf("%w: rule %q base weight %g outside [0,1]",
			ErrInvalidConfig, rule.Pattern, rule.BaseWeight)
	}

	re, err := regexp.Compile(rule.Pattern)
	if err != nil {
		return 0, &PatternError{Pattern: rule.Pattern, Err: err}
	}
	rule.re = re

	if rule.KindName == "" {
		rule.KindName = rule.Kind.String()
	}

	if weight, seen := r.kindWeights[rule.Kind]; seen && weight != rule.BaseWeight {
		return 0, fmt.Errorf("%w: kind %s registered twice with conflicting base weights %g and %g",
			ErrInvalidConfig, rule.KindName, weight, rule.BaseWeight)
	}
	r.kindWeights[rule.Kind] = rule.BaseWeight
	r.kindNames[rule.Kind] = rule.KindName

	r.rules = append(r.rules, rule)
	return RuleID(len(r.rules) - 1), nil
}

// NewKind allocates a fresh custom issue kind named for display in reports.
func (r *Registry) NewKind(name string) models.IssueKind {
	kind := r.nextCustom
	r.nextCustom++
	r.kindNames[kind] = name
	return kind
}

// KindName resolves the display name of a kind registered here.
func (r *Registry) KindName(kind models.IssueKind) string {
	if name, ok := r.kindNames[kind]; ok {
		return name
	}
	return kind.String()
}

// Rules returns the rules in registration order. The returned slice is a
// copy; rules themselves stay read-only after registration.
func (r *Registry) Rules() []PatternRule {
	out := make([]PatternRule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Built-in base weights. These feed the confidence scorer as starting
// points, not final scores.
const (
	weightMagicNumber        = 0.90
	weightHardcodedTimeout   = 0.85
	weightConcurrencyAbuse   = 0.80
	weightSleepAbuse         = 0.75
	weightHardcodedThreshold = 0.70
	weightErrorShortcut      = 0.70
	weightCloneAbuse         = 0.70
)

func builtinRules() []PatternRule {
	return []PatternRule{
		{
			Kind:        models.KindMagicNumber,
			Pattern:     `if\s+.*?[<>=]=?\s*0\.[3-9][0-9]*`,
			BaseWeight:  weightMagicNumber,
			Rationale:   "fractional literal compared in a conditional looks like a behavioral threshold",
			FixTemplate: "extract the literal to a named constant or configuration value",
		},
		{
			Kind:        models.KindHardcodedThreshold,
			Pattern:     `(?:if|while|for)\s+.*?[<>=]=?\s*\d{2,}\b`,
			BaseWeight:  weightHardcodedThreshold,
			Rationale:   "multi-digit literal compared in a conditional",
			FixTemplate: "move the threshold into configuration",
		},
		{
			Kind:        models.KindHardcodedTimeout,
			Pattern:     `Duration::from_secs\(\s*\d{2,}\s*\)`,
			BaseWeight:  weightHardcodedTimeout,
			Rationale:   "hardcoded timeout duration",
			FixTemplate: "move the duration into configuration",
		},
		{
			Kind:        models.KindHardcodedTimeout,
			Pattern:     `\d{2,}\s*\*\s*time\.(?:Second|Minute|Hour)`,
			BaseWeight:  weightHardcodedTimeout,
			Rationale:   "hardcoded timeout duration",
			FixTemplate: "move the duration into configuration",
		},
		{
			Kind:        models.KindConcurrencyPrimitiveAbuse,
			Pattern:     `Arc<RwLock<[^>]+>>`,
			BaseWeight:  weightConcurrencyAbuse,
			Rationale:   "nested synchronization primitives suggest over-engineered sharing",
			FixTemplate: "simplify with owned types or narrower locking",
		},
		{
			Kind:        models.KindConcurrencyPrimitiveAbuse,
			Pattern:     `Mutex<HashMap<[^>]+>>`,
			BaseWeight:  weightConcurrencyAbuse,
			Rationale:   "nested synchronization primitives suggest over-engineered sharing",
			FixTemplate: "simplify with owned types or narrower locking",
		},
		{
			Kind:        models.KindUnwrapAbuse,
			Pattern:     `\.unwrap\(\)`,
			BaseWeight:  weightErrorShortcut,
			Rationale:   "error shortcut discards failure handling",
			FixTemplate: "handle the error explicitly instead of unwrapping",
		},
		{
			Kind:        models.KindSleepAbuse,
			Pattern:     `(?:std::thread::sleep|tokio::time::sleep|time\.Sleep)\(`,
			BaseWeight:  weightSleepAbuse,
			Rationale:   "sleep call likely used in place of real synchronization",
			FixTemplate: "use proper synchronization or async delays instead of blocking sleeps",
		},
		{
			Kind:        models.KindCloneAbuse,
			Pattern:     `\.clone\(\)`,
			BaseWeight:  weightCloneAbuse,
			Rationale:   "explicit clone of data that may not need copying",
			FixTemplate: "borrow or share instead of cloning",
		},
	}
}
