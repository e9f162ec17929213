package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/smelldet/smelldet/cache"
	"github.com/smelldet/smelldet/detector"
	"github.com/smelldet/smelldet/models"
)

const cacheDirName = cache.CacheDir

// Report is the JSON structure emitted with --output json.
type Report struct {
	Target    string         `json:"target"`
	Summary   Summary        `json:"summary"`
	Alerts    []models.Alert `json:"alerts"`
	FileStats []FileStat     `json:"file_stats,omitempty"`
	Errors    []ReportError  `json:"errors,omitempty"`
}

// Summary contains overall statistics
type Summary struct {
	TotalAlerts int `json:"total_alerts"`
	Critical    int `json:"critical"`
	High        int `json:"high"`
	Medium      int `json:"medium"`
	Low         int `json:"low"`
}

// FileStat is the per-file alert count in the JSON report.
type FileStat struct {
	Filename string `json:"filename"`
	Count    int    `json:"count"`
}

// ReportError is one file the scan could not read.
type ReportError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// runScan is the shared body of the root, scan and scan-magic commands. A
// non-empty onlyKinds restricts detection to those kinds.
func runScan(target string, onlyKinds []models.IssueKind) int {
	if _, err := os.Stat(target); os.IsNotExist(err) {
		slog.Error("Path does not exist", "path", target)
		return exitFatal
	}

	config, err := LoadCLIConfig(configPath, ignoreFile)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		return exitFatal
	}
	applyFlagOverrides(config)

	failTier, err := models.ParseSeverityTier(config.FailOn)
	if err != nil {
		slog.Error("Invalid fail-on tier", "error", err)
		return exitFatal
	}

	registry := detector.NewRegistry()
	dcfg, err := config.BuildDetectConfig(registry, onlyKinds)
	if err != nil {
		slog.Error("Invalid detection config", "error", err)
		return exitFatal
	}

	det, err := detector.NewWithRegistry(dcfg, registry)
	if err != nil {
		slog.Error("Failed to build detector", "error", err)
		return exitFatal
	}

	files, err := collectFiles(target, config)
	if err != nil {
		slog.Error("Error scanning target", "error", err)
		return exitFatal
	}

	if enableCache {
		openResultCache(target)
		defer closeResultCache()
	}

	alerts, fileErrs := scanFiles(det, files)

	if config.Output.Format == "json" {
		renderJSON(target, alerts, fileErrs)
	} else {
		renderText(alerts, fileErrs)
	}

	return selectExitCode(alerts, fileErrs, failTier)
}

// applyFlagOverrides layers explicit CLI flags over the file config.
func applyFlagOverrides(config *Config) {
	if threshold >= 0 {
		config.ConfidenceThreshold = threshold
	}
	if failOn != "" {
		config.FailOn = failOn
	}
	if outputFormat != "" {
		config.Output.Format = outputFormat
	}
}

func openResultCache(target string) {
	var err error
	resultCache, err = cache.Open(projectRoot(target))
	if err != nil {
		slog.Warn("Failed to open cache database", "error", err)
		return
	}

	if clearCache {
		if err := resultCache.Clear(); err != nil {
			slog.Warn("Failed to clear cache", "error", err)
		} else {
			slog.Info("Cache cleared")
		}
	}
}

func closeResultCache() {
	if resultCache != nil {
		_ = resultCache.Close()
		resultCache = nil
	}
}

// scanFiles runs the detector over files, serving unchanged files from the
// result cache when it is open. Files whose hash cannot be computed are
// handed to the detector anyway so the failure surfaces as a FileError.
func scanFiles(det *detector.Detector, files []string) ([]models.Alert, []detector.FileError) {
	if resultCache == nil {
		return det.ScanFiles(context.Background(), files)
	}

	var cached []models.Alert
	var stale []string
	hashes := make(map[string]string, len(files))

	for _, path := range files {
		hash, err := cache.FileHash(path)
		if err != nil {
			stale = append(stale, path)
			continue
		}
		hashes[path] = hash
		if alerts, ok := resultCache.Get(path, hash); ok {
			cached = append(cached, alerts...)
			continue
		}
		stale = append(stale, path)
	}

	alerts, fileErrs := det.ScanFiles(context.Background(), stale)

	byFile := make(map[string][]models.Alert, len(stale))
	for _, alert := range alerts {
		byFile[alert.File] = append(byFile[alert.File], alert)
	}
	failed := make(map[string]bool, len(fileErrs))
	for _, fe := range fileErrs {
		failed[fe.Path] = true
	}
	for _, path := range stale {
		hash, ok := hashes[path]
		if !ok || failed[path] {
			continue
		}
		if err := resultCache.Put(path, hash, byFile[path]); err != nil {
			slog.Warn("Failed to cache scan result", "path", path, "error", err)
		}
	}

	alerts = append(alerts, cached...)
	detector.SortAlerts(alerts)
	return alerts, fileErrs
}

// collectFiles resolves the scan target into the list of files to scan,
// honoring exclude globs and the include-extension list.
func collectFiles(target string, config *Config) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{target}, nil
	}

	var files []string
	err = filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(target, path)
		if relErr != nil {
			rel = path
		}
		if rel == "." {
			return nil
		}

		if isExcluded(rel, config.Paths.ExcludePatterns) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		if hasIncludedExtension(path, config.Paths.IncludeExtensions) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func isExcluded(rel string, patterns []string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func hasIncludedExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, included := range extensions {
		if ext == included {
			return true
		}
	}
	return false
}

// projectRoot finds the project root (directory with go.mod)
func projectRoot(path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	// If it's a file, start from its directory
	if info, err := os.Stat(absPath); err == nil && !info.IsDir() {
		absPath = filepath.Dir(absPath)
	}

	current := absPath
	for {
		if _, err := os.Stat(filepath.Join(current, "go.mod")); err == nil {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return absPath
		}
		current = parent
	}
}

func renderJSON(target string, alerts []models.Alert, fileErrs []detector.FileError) {
	report := Report{
		Target:    target,
		Summary:   summarize(alerts),
		Alerts:    alerts,
		FileStats: fileStats(alerts),
	}
	if report.Alerts == nil {
		report.Alerts = []models.Alert{}
	}
	for _, fe := range fileErrs {
		report.Errors = append(report.Errors, ReportError{Path: fe.Path, Error: fe.Err.Error()})
	}

	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(report); err != nil {
		slog.Error("Error encoding JSON", "error", err)
		os.Exit(exitFatal)
	}
}

func renderText(alerts []models.Alert, fileErrs []detector.FileError) {
	if len(alerts) == 0 && len(fileErrs) == 0 {
		fmt.Println("✅ No code smells found!")
		return
	}

	fmt.Print(buildTierOutput(alerts))

	for _, fe := range fileErrs {
		fmt.Printf("⚠️  %s: %v\n", fe.Path, fe.Err)
	}

	s := summarize(alerts)
	fmt.Printf("Summary: %d CRITICAL, %d HIGH, %d MEDIUM, %d LOW\n",
		s.Critical, s.High, s.Medium, s.Low)
}

// buildTierOutput groups alerts by severity tier, highest first. Within a
// tier alerts keep their (file, line, column, kind) order.
func buildTierOutput(alerts []models.Alert) string {
	tiers := []models.SeverityTier{
		models.SeverityCritical,
		models.SeverityHigh,
		models.SeverityMedium,
		models.SeverityLow,
	}

	var sb strings.Builder
	sb.Grow(len(alerts) * 200)

	for _, tier := range tiers {
		var inTier []models.Alert
		for _, alert := range alerts {
			if alert.Severity == tier {
				inTier = append(inTier, alert)
			}
		}
		if len(inTier) == 0 {
			continue
		}

		sb.WriteString(tierIcon(tier))
		sb.WriteString(" ")
		sb.WriteString(strings.ToUpper(tier.String()))
		sb.WriteString(" (")
		sb.WriteString(strconv.Itoa(len(inTier)))
		sb.WriteString(" alerts):\n")
		sb.WriteString(strings.Repeat("─", 50) + "\n")
		addTierAlerts(&sb, inTier)
		sb.WriteString("\n")
	}
	return sb.String()
}

func addTierAlerts(sb *strings.Builder, alerts []models.Alert) {
	for _, alert := range alerts {
		sb.WriteString("\t")
		sb.WriteString(alert.File)
		sb.WriteString(":")
		sb.WriteString(strconv.Itoa(alert.Line))
		sb.WriteString(":")
		sb.WriteString(strconv.Itoa(alert.Column))
		sb.WriteString(" [")
		sb.WriteString(alert.KindName)
		sb.WriteString("] (confidence ")
		sb.WriteString(strconv.FormatFloat(alert.Confidence, 'f', 2, 64))
		sb.WriteString(")\n")
		sb.WriteString("\t\t")
		sb.WriteString(alert.Rationale)
		sb.WriteString("\n")
		if alert.SuggestedFix != "" {
			sb.WriteString("\t\t")
			sb.WriteString(alert.SuggestedFix)
			sb.WriteString("\n")
		}
	}
}

func tierIcon(tier models.SeverityTier) string {
	switch tier {
	case models.SeverityCritical:
		return "🔴"
	case models.SeverityHigh:
		return "🟠"
	case models.SeverityMedium:
		return "🟡"
	case models.SeverityLow:
		return "🟢"
	default:
		return "⚪"
	}
}

// fileStats counts alerts per file. Alerts arrive sorted by file, so runs
// of the same filename are contiguous.
func fileStats(alerts []models.Alert) []FileStat {
	var stats []FileStat
	for _, alert := range alerts {
		if n := len(stats); n > 0 && stats[n-1].Filename == alert.File {
			stats[n-1].Count++
			continue
		}
		stats = append(stats, FileStat{Filename: alert.File, Count: 1})
	}
	return stats
}

func summarize(alerts []models.Alert) Summary {
	s := Summary{TotalAlerts: len(alerts)}
	for _, alert := range alerts {
		switch alert.Severity {
		case models.SeverityCritical:
			s.Critical++
		case models.SeverityHigh:
			s.High++
		case models.SeverityMedium:
			s.Medium++
		case models.SeverityLow:
			s.Low++
		}
	}
	return s
}

func selectExitCode(alerts []models.Alert, fileErrs []detector.FileError, failTier models.SeverityTier) int {
	for _, alert := range alerts {
		if alert.Severity >= failTier {
			return exitFindings
		}
	}
	if len(fileErrs) > 0 {
		return exitPartial
	}
	return exitClean
}
