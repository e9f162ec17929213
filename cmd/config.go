package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/smelldet/smelldet/detector"
	"github.com/smelldet/smelldet/models"
)

// Config is the project configuration file consumed by the CLI before any
// text reaches the engine.
type Config struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold" json:"confidence_threshold"`

	// FailOn is the severity tier at or above which the exit code becomes
	// non-zero.
	FailOn string `yaml:"fail_on" json:"fail_on"`

	// Kinds toggles detection families by name. Unlisted kinds stay
	// enabled.
	Kinds map[string]bool `yaml:"kinds,omitempty" json:"kinds,omitempty"`

	Paths struct {
		ExcludePatterns   []string `yaml:"exclude_patterns" json:"exclude_patterns"`
		IncludeExtensions []string `yaml:"include_extensions" json:"include_extensions"`
	} `yaml:"paths" json:"paths"`

	Output struct {
		Format           string `yaml:"format" json:"format"`
		MaxSnippetLength int    `yaml:"max_snippet_length" json:"max_snippet_length"`
	} `yaml:"output" json:"output"`

	// Cutoffs overrides the confidence-to-tier table when present.
	Cutoffs *detector.TierCutoffs `yaml:"cutoffs,omitempty" json:"cutoffs,omitempty"`

	CustomRules []CustomRule `yaml:"custom_rules,omitempty" json:"custom_rules,omitempty"`
}

// CustomRule is the file-format shape of a user-supplied pattern rule.
type CustomRule struct {
	Name      string  `yaml:"name" json:"name"`
	Kind      string  `yaml:"kind,omitempty" json:"kind,omitempty"` // built-in kind name; empty allocates a custom kind named Name
	Pattern   string  `yaml:"pattern" json:"pattern"`
	Weight    float64 `yaml:"weight" json:"weight"`
	Rationale string  `yaml:"rationale,omitempty" json:"rationale,omitempty"`
	Fix       string  `yaml:"fix,omitempty" json:"fix,omitempty"`
}

// DefaultCLIConfig returns the default CLI configuration.
func DefaultCLIConfig() *Config {
	config := &Config{
		ConfidenceThreshold: detector.DefaultConfidenceThreshold,
		FailOn:              models.SeverityCritical.String(),
	}

	config.Paths.ExcludePatterns = []string{
		"**/vendor/**",
		"**/.git/**",
		"**/node_modules/**",
		"**/target/**",
		"**/testdata/**",
		"**/" + cacheDirName + "/**",
	}
	config.Paths.IncludeExtensions = []string{
		".go", ".rs", ".py", ".js", ".ts", ".java", ".c", ".cc", ".cpp", ".h",
	}

	config.Output.Format = "text"
	config.Output.MaxSnippetLength = detector.DefaultMaxSnippetLength

	return config
}

// findConfigPath searches for a config file in common locations
func findConfigPath() string {
	locations := []string{
		".smelldet.yaml",
		".smelldet.yml",
		".smelldet.json",
		"smelldet.yaml",
		"smelldet.yml",
		"smelldet.json",
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	home, _ := os.UserHomeDir()
	if home == "" {
		return ""
	}
	for _, loc := range locations {
		configPath := filepath.Join(home, ".config", "smelldet", loc)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}
	return ""
}

// LoadCLIConfig loads configuration from a file or returns the default.
func LoadCLIConfig(path, ignorePath string) (*Config, error) {
	resolvedPath := resolveConfigPath(path)
	if resolvedPath == "" {
		config := DefaultCLIConfig()
		mergeIgnorePatterns(config, ignorePath)
		return config, nil
	}

	file, err := os.Open(resolvedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultCLIConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	defer func() { _ = file.Close() }()

	config, err := decodeConfigFile(file, resolvedPath)
	if err != nil {
		return nil, err
	}

	applyConfigDefaults(config)
	mergeIgnorePatterns(config, ignorePath)
	return config, nil
}

// applyConfigDefaults fills fields the file left unset.
func applyConfigDefaults(config *Config) {
	defaults := DefaultCLIConfig()

	if config.ConfidenceThreshold == 0 {
		config.ConfidenceThreshold = defaults.ConfidenceThreshold
	}
	if config.FailOn == "" {
		config.FailOn = defaults.FailOn
	}
	if len(config.Paths.ExcludePatterns) == 0 {
		config.Paths.ExcludePatterns = defaults.Paths.ExcludePatterns
	}
	if len(config.Paths.IncludeExtensions) == 0 {
		config.Paths.IncludeExtensions = defaults.Paths.IncludeExtensions
	}
	if config.Output.Format == "" {
		config.Output.Format = defaults.Output.Format
	}
	if config.Output.MaxSnippetLength == 0 {
		config.Output.MaxSnippetLength = defaults.Output.MaxSnippetLength
	}
}

func resolveConfigPath(path string) string {
	if path != "" {
		return path
	}
	return findConfigPath()
}

func decodeConfigFile(r io.ReadSeeker, path string) (*Config, error) {
	config := &Config{}
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".json":
		if err := json.NewDecoder(r).Decode(config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case ".yaml", ".yml":
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read YAML config: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		if err := tryJSONThenYAML(r, config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

func tryJSONThenYAML(r io.ReadSeeker, config *Config) error {
	if err := json.NewDecoder(r).Decode(config); err == nil {
		return nil
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to reset file position: %w", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read config for YAML parsing: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config (tried JSON and YAML): %w", err)
	}
	return nil
}

func mergeIgnorePatterns(config *Config, ignorePath string) {
	if ignorePath == "" {
		return
	}
	patterns, err := loadIgnoreFile(ignorePath)
	if err != nil {
		return
	}
	config.Paths.ExcludePatterns = append(config.Paths.ExcludePatterns, patterns...)
}

// loadIgnoreFile loads glob patterns from an ignore file like .gitignore
func loadIgnoreFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	lines, err := readLines(file)
	if err != nil {
		return nil, err
	}

	return parseIgnoreLines(lines), nil
}

func readLines(r io.Reader) ([]string, error) {
	const maxLineSize = 1024 * 1024
	scanner := bufio.NewScanner(r)
	buf := make([]byte, maxLineSize)
	scanner.Buffer(buf, maxLineSize)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func parseIgnoreLines(lines []string) []string {
	patterns := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Bare directory entries become recursive globs.
		if !strings.ContainsAny(line, "*?[") {
			line = "**/" + strings.TrimSuffix(line, "/") + "/**"
		}
		patterns = append(patterns, line)
	}

	return patterns
}

// BuildDetectConfig translates the file config plus CLI overrides into the
// engine configuration.
func (c *Config) BuildDetectConfig(registry *detector.Registry, onlyKinds []models.IssueKind) (detector.DetectConfig, error) {
	dcfg := detector.DefaultConfig()
	dcfg.ConfidenceThreshold = c.ConfidenceThreshold
	if c.Output.MaxSnippetLength > 0 {
		dcfg.MaxSnippetLength = c.Output.MaxSnippetLength
	}
	if c.Cutoffs != nil {
		dcfg.Cutoffs = *c.Cutoffs
	}

	enabled := make(map[models.IssueKind]bool, len(models.BuiltinKinds()))
	for _, kind := range models.BuiltinKinds() {
		enabled[kind] = true
	}
	for name, on := range c.Kinds {
		kind, ok := models.KindFromName(name)
		if !ok {
			return dcfg, fmt.Errorf("%w: unknown issue kind %q", detector.ErrInvalidConfig, name)
		}
		enabled[kind] = on
	}

	for _, custom := range c.CustomRules {
		rule, err := custom.toPatternRule(registry)
		if err != nil {
			return dcfg, err
		}
		dcfg.CustomRules = append(dcfg.CustomRules, rule)
		enabled[rule.Kind] = true
	}

	if len(onlyKinds) > 0 {
		restricted := make(map[models.IssueKind]bool, len(onlyKinds))
		for _, kind := range onlyKinds {
			restricted[kind] = enabled[kind]
		}
		enabled = restricted
	}
	dcfg.EnabledKinds = enabled

	return dcfg, nil
}

func (cr CustomRule) toPatternRule(registry *detector.Registry) (detector.PatternRule, error) {
	rule := detector.PatternRule{
		Pattern:     cr.Pattern,
		BaseWeight:  cr.Weight,
		Rationale:   cr.Rationale,
		FixTemplate: cr.Fix,
	}

	if cr.Kind != "" {
		kind, ok := models.KindFromName(cr.Kind)
		if !ok {
			return rule, fmt.Errorf("%w: custom rule %q references unknown kind %q",
				detector.ErrInvalidConfig, cr.Name, cr.Kind)
		}
		rule.Kind = kind
		return rule, nil
	}

	if cr.Name == "" {
		return rule, fmt.Errorf("%w: custom rule needs a name or a built-in kind", detector.ErrInvalidConfig)
	}
	rule.Kind = registry.NewKind(cr.Name)
	rule.KindName = cr.Name
	return rule, nil
}
