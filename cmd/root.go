package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/smelldet/smelldet/cache"
	"github.com/smelldet/smelldet/detector"
	"github.com/smelldet/smelldet/models"
	"github.com/smelldet/smelldet/version"
)

// Exit codes. Partial means the scan finished but some files could not be
// read; findings win over partial when both apply.
const (
	exitClean    = 0
	exitFindings = 1
	exitFatal    = 2
	exitPartial  = 3
)

var (
	outputFormat string
	configPath   string
	threshold    float64
	failOn       string
	logLevel     string
	verbose      bool
	enableCache  bool
	clearCache   bool
	ignoreFile   string
	logger       *slog.Logger
	resultCache  *cache.Cache
)

var rootCmd = &cobra.Command{
	Use:   "smelldet [path]",
	Short: "smelldet - Sniff out hardcoded bullshit before it ships",
	Long: `smelldet is a pattern-based code smell detector.
It scans source text for magic numbers, hardcoded thresholds and timeouts,
error-handling shortcuts, and over-engineered concurrency, then ranks each
finding with a deterministic confidence score.

Perfect for CI/CD pipelines, code reviews, and keeping your codebase honest.`,
	Example: `
  smelldet .                           # Scan current directory
  smelldet ./src                       # Scan specific directory
  smelldet main.go                     # Scan single file
  smelldet --output json .             # JSON output for CI/CD
  smelldet --threshold 0.8 .           # Only report confident findings`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runScan(targetArg(args), nil))
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a file or directory for code smells",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runScan(targetArg(args), nil))
	},
}

var scanMagicCmd = &cobra.Command{
	Use:   "scan-magic [path]",
	Short: "Scan only for magic numbers, thresholds and timeouts",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runScan(targetArg(args), []models.IssueKind{
			models.KindMagicNumber,
			models.KindHardcodedThreshold,
			models.KindHardcodedTimeout,
		}))
	},
}

var initConfigCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Creates a .smelldet.yaml configuration file with default settings.`,
	Run: func(cmd *cobra.Command, args []string) {
		createDefaultConfig()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("smelldet version %s\n", version.Version))
		sb.WriteString(fmt.Sprintf("Commit: %s\n", version.CommitHash))
		sb.WriteString(fmt.Sprintf("Built: %s\n", version.BuiltAt))
		fmt.Print(sb.String())
	},
}

var listRulesCmd = &cobra.Command{
	Use:   "list-rules",
	Short: "List all built-in detection rules",
	Long:  `Shows every built-in pattern rule, its issue kind and base weight.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Built-in Rules:")
		fmt.Println("====================")
		for _, rule := range detector.NewRegistry().Rules() {
			fmt.Printf("• %-28s %.2f  %s\n", rule.KindName, rule.BaseWeight, rule.Pattern)
		}
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats [path]",
	Short: "Show cache statistics",
	Long:  `Shows statistics about the cached scan results.`,
	Run: func(cmd *cobra.Command, args []string) {
		target := targetArg(args)

		c, err := cache.Open(projectRoot(target))
		if err != nil {
			slog.Error("Failed to open cache database", "error", err)
			os.Exit(exitFatal)
		}
		defer func() { _ = c.Close() }()

		stats, err := c.Stats()
		if err != nil {
			slog.Error("Failed to read cache statistics", "error", err)
			os.Exit(exitFatal)
		}

		var sb strings.Builder
		sb.WriteString("Cache Statistics:\n")
		sb.WriteString("====================\n")
		sb.WriteString(fmt.Sprintf("Cached files:    %d\n", stats.Files))
		sb.WriteString(fmt.Sprintf("Cached alerts:   %d\n", stats.Alerts))
		sb.WriteString(fmt.Sprintf("Cache hits:      %d\n", stats.Hits))
		sb.WriteString(fmt.Sprintf("Cache misses:    %d\n", stats.Misses))
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Cache location: %s\n", c.Dir()))

		if fileInfo, err := os.Stat(filepath.Join(c.Dir(), cache.CacheFile)); err == nil {
			sb.WriteString(fmt.Sprintf("Cache size:     %.2f MB\n", float64(fileInfo.Size())/(1024*1024)))
		}
		fmt.Print(sb.String())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "Output format: text, json")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().Float64VarP(&threshold, "threshold", "t", -1, "Confidence threshold in [0,1]; findings below it are suppressed")
	rootCmd.PersistentFlags().StringVar(&failOn, "fail-on", "", "Severity tier that makes the exit code non-zero: low, medium, high, critical")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&enableCache, "enable-cache", false, "Enable result cache for faster subsequent runs")
	rootCmd.PersistentFlags().BoolVar(&clearCache, "clear-cache", false, "Clear the cache before scanning")
	rootCmd.PersistentFlags().StringVar(&ignoreFile, "ignore-file", ".smelldetignore", "Path to ignore file")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(scanMagicCmd)
	rootCmd.AddCommand(initConfigCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(listRulesCmd)
	rootCmd.AddCommand(statsCmd)

	cobra.OnInitialize(initLogger)
}

func initLogger() {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: verbose,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Only show message and custom attrs
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey || a.Key == slog.SourceKey {
				return slog.Attr{}
			}
			return a
		},
	}

	if outputFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
}

func Execute() error {
	return rootCmd.Execute()
}

func targetArg(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}

func createDefaultConfig() {
	config := DefaultCLIConfig()

	yamlData, err := yaml.Marshal(config)
	if err != nil {
		slog.Error("Failed to marshal config", "error", err)
	}

	const configFile = ".smelldet.yaml"
	const configFileMode = 0644
	err = os.WriteFile(configFile, yamlData, configFileMode)
	if err != nil {
		slog.Error("Failed to write config file", "error", err)
	}

	fmt.Printf("Created default configuration file: %s\n", configFile)
	fmt.Println("\tEdit this file to customize your scan settings")
	fmt.Println("")
	fmt.Println("Example usage:")
	fmt.Println("  smelldet --config=.smelldet.yaml .")
}
