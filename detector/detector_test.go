package detector

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smelldet/smelldet/models"
)

func newDetector(t *testing.T, cfg DetectConfig) *Detector {
	t.Helper()
	det, err := New(cfg)
	require.NoError(t, err)
	return det
}

func TestScanCodeMagicNumber(t *testing.T) {
	det := newDetector(t, DefaultConfig())

	src := "if confidence > 0.85 {\n\treturn true\n}"
	alerts, err := det.ScanCode(src)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	alert := alerts[0]
	assert.Equal(t, models.KindMagicNumber, alert.Kind)
	assert.Equal(t, models.SeverityCritical, alert.Severity)
	assert.Equal(t, 1, alert.Line)
	assert.GreaterOrEqual(t, alert.Confidence, 0.9)
	assert.NotEmpty(t, alert.Rationale)
	assert.NotEmpty(t, alert.SuggestedFix)
}

func TestScanCodeHardcodedTimeout(t *testing.T) {
	det := newDetector(t, DefaultConfig())

	alerts, err := det.ScanCode("let t = Duration::from_secs(30);")
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	assert.Equal(t, models.KindHardcodedTimeout, alerts[0].Kind)
	assert.Equal(t, models.SeverityHigh, alerts[0].Severity)
	assert.InDelta(t, 0.85, alerts[0].Confidence, 1e-9)
}

func TestScanCodeGoTimeout(t *testing.T) {
	det := newDetector(t, DefaultConfig())

	alerts, err := det.ScanCode("client.Timeout = 30 * time.Second")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.KindHardcodedTimeout, alerts[0].Kind)
}

func TestScanCodeConcurrencyAbuse(t *testing.T) {
	det := newDetector(t, DefaultConfig())

	src := strings.Join([]string{
		"state: Arc<RwLock<State>>,",
		"index: Mutex<HashMap<String, u64>>,",
	}, "\n")
	alerts, err := det.ScanCode(src)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	for _, alert := range alerts {
		assert.Equal(t, models.KindConcurrencyPrimitiveAbuse, alert.Kind)
	}
}

func TestScanCodeRepetitionRaisesConfidence(t *testing.T) {
	det := newDetector(t, DefaultConfig())

	single, err := det.ScanCode("x.unwrap();")
	require.NoError(t, err)
	require.Len(t, single, 1)

	many, err := det.ScanCode(strings.Repeat("x.unwrap();\n", 5))
	require.NoError(t, err)
	require.Len(t, many, 5)

	assert.Greater(t, many[0].Confidence, single[0].Confidence)
}

func TestScanCodeCleanInput(t *testing.T) {
	det := newDetector(t, DefaultConfig())

	alerts, err := det.ScanCode("package main\n\nfunc main() {}\n")
	require.NoError(t, err)
	assert.Empty(t, alerts)

	alerts, err = det.ScanCode("")
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestScanCodeThresholdSuppression(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConfidenceThreshold = 0.8

	det := newDetector(t, cfg)
	alerts, err := det.ScanCode("data.clone();")
	require.NoError(t, err)
	assert.Empty(t, alerts)

	cfg.ConfidenceThreshold = 0
	det = newDetector(t, cfg)
	alerts, err = det.ScanCode("data.clone();")
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

func TestScanCodeThresholdMonotonic(t *testing.T) {
	src := strings.Join([]string{
		"if confidence > 0.85 {",
		"x.unwrap();",
		"data.clone();",
		"std::thread::sleep(dur);",
	}, "\n")

	loose := DefaultConfig()
	loose.ConfidenceThreshold = 0.5
	strict := DefaultConfig()
	strict.ConfidenceThreshold = 0.8

	looseAlerts, err := newDetector(t, loose).ScanCode(src)
	require.NoError(t, err)
	strictAlerts, err := newDetector(t, strict).ScanCode(src)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(strictAlerts), len(looseAlerts))
	// Raising the threshold only removes alerts, never adds or changes them.
	for _, sa := range strictAlerts {
		assert.Contains(t, looseAlerts, sa)
	}
}

func TestScanCodeIdempotent(t *testing.T) {
	det := newDetector(t, DefaultConfig())
	src := "if score > 0.75 { x.unwrap(); }\nstd::thread::sleep(d);"

	first, err := det.ScanCode(src)
	require.NoError(t, err)
	second, err := det.ScanCode(src)
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON))
}

func TestScanCodeOrderIndependentOfRegistration(t *testing.T) {
	ruleA := PatternRule{Kind: models.KindUnwrapAbuse, Pattern: `\.unwrap\(\)`, BaseWeight: 0.7}
	ruleB := PatternRule{Kind: models.KindSleepAbuse, Pattern: `sleep\(`, BaseWeight: 0.75}

	cfg := DefaultConfig()
	cfg.ConfidenceThreshold = 0

	forward := NewEmptyRegistry()
	_, err := forward.Register(ruleA)
	require.NoError(t, err)
	_, err = forward.Register(ruleB)
	require.NoError(t, err)

	backward := NewEmptyRegistry()
	_, err = backward.Register(ruleB)
	require.NoError(t, err)
	_, err = backward.Register(ruleA)
	require.NoError(t, err)

	src := "sleep(10); x.unwrap();"

	detForward, err := NewWithRegistry(cfg, forward)
	require.NoError(t, err)
	detBackward, err := NewWithRegistry(cfg, backward)
	require.NoError(t, err)

	alertsForward, err := detForward.ScanCode(src)
	require.NoError(t, err)
	alertsBackward, err := detBackward.ScanCode(src)
	require.NoError(t, err)

	assert.Equal(t, alertsForward, alertsBackward)
}

func TestNewInvalidThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConfidenceThreshold = 1.1
	_, err := New(cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)

	cfg.ConfidenceThreshold = -0.2
	_, err = New(cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewMalformedCustomRule(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CustomRules = []PatternRule{
		{Kind: models.KindCustomBase, Pattern: `(bad`, BaseWeight: 0.5},
	}

	_, err := New(cfg)
	require.Error(t, err)

	var perr *PatternError
	assert.True(t, errors.As(err, &perr))
}

func TestNewCustomRuleDetects(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConfidenceThreshold = 0
	cfg.CustomRules = []PatternRule{
		{
			Kind:       models.KindCustomBase,
			KindName:   "TodoBomb",
			Pattern:    `TODO|FIXME`,
			BaseWeight: 0.4,
			Rationale:  "deferred work marker",
		},
	}

	det := newDetector(t, cfg)
	alerts, err := det.ScanCode("// TODO handle errors")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "TodoBomb", alerts[0].KindName)
	assert.True(t, alerts[0].Kind.IsCustom())
}

func TestEnabledKindsFilter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnabledKinds = map[models.IssueKind]bool{
		models.KindHardcodedTimeout: true,
	}

	det := newDetector(t, cfg)
	src := "x.unwrap();\nlet t = Duration::from_secs(30);"
	alerts, err := det.ScanCode(src)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.KindHardcodedTimeout, alerts[0].Kind)
}

func TestScanFiles(t *testing.T) {
	dir := t.TempDir()

	fileA := filepath.Join(dir, "a.rs")
	require.NoError(t, os.WriteFile(fileA, []byte("x.unwrap();\n"), 0o644))
	fileB := filepath.Join(dir, "b.rs")
	require.NoError(t, os.WriteFile(fileB, []byte("if p > 0.85 {\n"), 0o644))
	missing := filepath.Join(dir, "missing.rs")

	det := newDetector(t, DefaultConfig())
	alerts, fileErrs := det.ScanFiles(context.Background(), []string{fileB, missing, fileA})

	require.Len(t, fileErrs, 1)
	assert.Equal(t, missing, fileErrs[0].Path)

	require.Len(t, alerts, 2)
	// Sorted by file regardless of input order.
	assert.Equal(t, fileA, alerts[0].File)
	assert.Equal(t, fileB, alerts[1].File)
}

func TestScanFilesSizeCap(t *testing.T) {
	dir := t.TempDir()
	big := filepath.Join(dir, "big.rs")
	require.NoError(t, os.WriteFile(big, []byte(strings.Repeat("x.unwrap();\n", 100)), 0o644))

	cfg := DefaultConfig()
	cfg.MaxFileBytes = 16
	det := newDetector(t, cfg)

	alerts, fileErrs := det.ScanFiles(context.Background(), []string{big})
	assert.Empty(t, alerts)
	require.Len(t, fileErrs, 1)
	assert.ErrorIs(t, fileErrs[0].Err, ErrFileTooLarge)
}

func TestScanFilesCancelledContext(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.rs")
	require.NoError(t, os.WriteFile(file, []byte("x.unwrap();\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	det := newDetector(t, DefaultConfig())
	alerts, fileErrs := det.ScanFiles(ctx, []string{file})
	assert.Empty(t, alerts)
	require.Len(t, fileErrs, 1)
	assert.ErrorIs(t, fileErrs[0].Err, context.Canceled)
}

func TestSortAlerts(t *testing.T) {
	alerts := []models.Alert{
		{File: "b.go", Line: 1, Column: 1},
		{File: "a.go", Line: 2, Column: 1},
		{File: "a.go", Line: 1, Column: 5},
		{File: "a.go", Line: 1, Column: 1, Kind: models.KindCloneAbuse},
		{File: "a.go", Line: 1, Column: 1, Kind: models.KindMagicNumber},
	}

	SortAlerts(alerts)

	assert.Equal(t, "a.go", alerts[0].File)
	assert.Equal(t, models.KindMagicNumber, alerts[0].Kind)
	assert.Equal(t, models.KindCloneAbuse, alerts[1].Kind)
	assert.Equal(t, 5, alerts[2].Column)
	assert.Equal(t, 2, alerts[3].Line)
	assert.Equal(t, "b.go", alerts[4].File)
}
