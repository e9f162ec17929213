// Package detector implements the pattern-based code-smell engine: a rule
// registry, a lexical matcher, a deterministic confidence scorer, and an
// aggregator that turns scored matches into severity-ranked alerts.
//
// Scanning a single text is a pure, synchronous computation. The engine
// performs no I/O beyond reading file content in ScanFiles and claims no
// soundness or completeness: it is a best-effort heuristic lint layer, not
// a verifier.
package detector

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/smelldet/smelldet/models"
)

// Detector is the single entry point wiring the registry, matcher, scorer
// and aggregator together. It is immutable after construction and safe for
// concurrent use.
type Detector struct {
	cfg      DetectConfig
	registry *Registry
	rules    []PatternRule
}

// New builds a detector over the built-in rule set plus any custom rules
// from the config. It fails fast with ErrInvalidConfig for out-of-domain
// config values and with a PatternError for malformed custom patterns.
func New(cfg DetectConfig) (*Detector, error) {
	return NewWithRegistry(cfg, NewRegistry())
}

// NewWithRegistry builds a detector over an explicitly constructed
// registry, so tests and embedders can supply isolated rule sets.
func NewWithRegistry(cfg DetectConfig, registry *Registry) (*Detector, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	for _, rule := range cfg.CustomRules {
		if _, err := registry.Register(rule); err != nil {
			return nil, err
		}
	}

	var enabled []PatternRule
	for _, rule := range registry.Rules() {
		if cfg.kindEnabled(rule.Kind) {
			enabled = append(enabled, rule)
		}
	}

	return &Detector{cfg: cfg, registry: registry, rules: enabled}, nil
}

// Config returns the configuration the detector was built with.
func (d *Detector) Config() DetectConfig {
	return d.cfg
}

// ScanCode scans a whole-file text and returns severity-ranked alerts in
// (line, column, kind) order. An input with no findings yields an empty
// slice, not an error.
func (d *Detector) ScanCode(src string) ([]models.Alert, error) {
	return d.scanText(src, "")
}

func (d *Detector) scanText(src, path string) ([]models.Alert, error) {
	lines := strings.Split(src, "\n")

	candidates := findCandidates(lines, d.rules, d.cfg.MaxLineLength)
	fc := newFileContext(lines, path, candidates)

	scored := make([]scoredCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = scoredCandidate{cand: c, score: scoreCandidate(c, fc)}
	}

	alerts, err := classifyAndAggregate(scored, d.cfg)
	if err != nil {
		return nil, err
	}

	if path != "" {
		for i := range alerts {
			alerts[i].File = path
		}
	}
	return alerts, nil
}

// ScanFiles fans ScanCode out per file over a bounded worker pool and
// concatenates the results, attaching file identity to every alert.
// Per-file failures (unreadable file, size cap exceeded) are isolated and
// reported alongside the successful alerts; one bad file never aborts the
// batch. The aggregated report is re-sorted by (file, line, column, kind)
// after fan-in, so output does not depend on worker completion order.
func (d *Detector) ScanFiles(ctx context.Context, paths []string) ([]models.Alert, []FileError) {
	type fileResult struct {
		alerts []models.Alert
		err    error
	}

	results := make([]fileResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].err = err
				return nil
			}

			info, err := os.Stat(path)
			if err != nil {
				results[i].err = err
				return nil
			}
			if info.Size() > d.cfg.MaxFileBytes {
				results[i].err = fmt.Errorf("%w: %d bytes", ErrFileTooLarge, info.Size())
				return nil
			}

			data, err := os.ReadFile(path)
			if err != nil {
				results[i].err = err
				return nil
			}

			alerts, err := d.scanText(string(data), path)
			if err != nil {
				results[i].err = err
				return nil
			}
			results[i].alerts = alerts
			return nil
		})
	}
	// Errors are recorded per file; Wait only synchronizes the pool.
	_ = g.Wait()

	var alerts []models.Alert
	var fileErrs []FileError
	for i, res := range results {
		if res.err != nil {
			fileErrs = append(fileErrs, FileError{Path: paths[i], Err: res.err})
			continue
		}
		alerts = append(alerts, res.alerts...)
	}

	SortAlerts(alerts)
	return alerts, fileErrs
}

// SortAlerts orders alerts deterministically by (file, line, column,
// kind) ascending.
func SortAlerts(alerts []models.Alert) {
	sort.Slice(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.Kind < b.Kind
	})
}
