package detector

import (
	"fmt"

	"github.com/smelldet/smelldet/models"
)

const (
	// DefaultConfidenceThreshold is an ordinary tuning constant, the
	// reciprocal of the golden ratio.
	DefaultConfidenceThreshold = 0.618

	DefaultMaxSnippetLength = 500
	DefaultMaxLineLength    = 2048
	DefaultMaxFileBytes     = 4 << 20
)

// TierCutoffs maps confidence scores to severity tiers. The cutoffs are a
// configuration surface rather than constants buried in the classifier, so
// the tool does not flag itself for hardcoded thresholds.
type TierCutoffs struct {
	Critical float64 `yaml:"critical" json:"critical"`
	High     float64 `yaml:"high" json:"high"`
	Medium   float64 `yaml:"medium" json:"medium"`
}

// DefaultTierCutoffs returns the default confidence-to-tier table.
func DefaultTierCutoffs() TierCutoffs {
	return TierCutoffs{Critical: 0.90, High: 0.80, Medium: 0.65}
}

// Tier buckets a score under the cutoff table.
func (tc TierCutoffs) Tier(score float64) models.SeverityTier {
	switch {
	case score >= tc.Critical:
		return models.SeverityCritical
	case score >= tc.High:
		return models.SeverityHigh
	case score >= tc.Medium:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func (tc TierCutoffs) validate() error {
	if tc.Medium < 0 || tc.Medium > tc.High || tc.High > tc.Critical || tc.Critical > 1 {
		return fmt.Errorf("%w: tier cutoffs must satisfy 0 <= medium <= high <= critical <= 1, got %+v",
			ErrInvalidConfig, tc)
	}
	return nil
}

// DetectConfig is the caller-supplied scan configuration. It is a value
// type with no shared mutable state; it is read-only during scanning, so
// reusing one instance across scans is safe.
type DetectConfig struct {
	// ConfidenceThreshold suppresses alerts scoring below it.
	ConfidenceThreshold float64

	// MaxSnippetLength truncates reported snippets.
	MaxSnippetLength int

	// MaxLineLength truncates lines before matching to bound worst-case
	// pattern-engine cost.
	MaxLineLength int

	// MaxFileBytes caps per-file input in batch scans.
	MaxFileBytes int64

	// EnabledKinds toggles detection families. A nil map enables every
	// registered kind.
	EnabledKinds map[models.IssueKind]bool

	// CustomRules are appended to the registry before scanning.
	CustomRules []PatternRule

	// Cutoffs is the confidence-to-tier table.
	Cutoffs TierCutoffs
}

// DefaultConfig returns the default detection configuration.
func DefaultConfig() DetectConfig {
	return DetectConfig{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		MaxSnippetLength:    DefaultMaxSnippetLength,
		MaxLineLength:       DefaultMaxLineLength,
		MaxFileBytes:        DefaultMaxFileBytes,
		Cutoffs:             DefaultTierCutoffs(),
	}
}

// withDefaults fills zero-valued size limits and cutoffs so a sparsely
// populated literal behaves sensibly. A zero confidence threshold is left
// alone: 0 is a legal threshold meaning "report everything".
func (c DetectConfig) withDefaults() DetectConfig {
	if c.MaxSnippetLength == 0 {
		c.MaxSnippetLength = DefaultMaxSnippetLength
	}
	if c.MaxLineLength == 0 {
		c.MaxLineLength = DefaultMaxLineLength
	}
	if c.MaxFileBytes == 0 {
		c.MaxFileBytes = DefaultMaxFileBytes
	}
	if c.Cutoffs == (TierCutoffs{}) {
		c.Cutoffs = DefaultTierCutoffs()
	}
	return c
}

// Validate checks that every field is inside its domain.
func (c DetectConfig) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: confidence threshold %g outside [0,1]", ErrInvalidConfig, c.ConfidenceThreshold)
	}
	if c.MaxSnippetLength <= 0 {
		return fmt.Errorf("%w: max snippet length %d must be positive", ErrInvalidConfig, c.MaxSnippetLength)
	}
	if c.MaxLineLength <= 0 {
		return fmt.Errorf("%w: max line length %d must be positive", ErrInvalidConfig, c.MaxLineLength)
	}
	if c.MaxFileBytes <= 0 {
		return fmt.Errorf("%w: max file bytes %d must be positive", ErrInvalidConfig, c.MaxFileBytes)
	}
	return c.Cutoffs.validate()
}

func (c DetectConfig) kindEnabled(kind models.IssueKind) bool {
	if c.EnabledKinds == nil {
		return true
	}
	return c.EnabledKinds[kind]
}
