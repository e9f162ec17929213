// Package plugin exposes the detector as a golangci-lint module plugin, so
// the same rules run inside an existing lint pipeline.
package plugin

import (
	"fmt"
	"go/token"
	"os"

	"github.com/golangci/plugin-module-register/register"
	"golang.org/x/tools/go/analysis"

	"github.com/smelldet/smelldet/detector"
	"github.com/smelldet/smelldet/models"
)

func init() {
	register.Plugin("smelldet", New)
}

// Settings is the plugin configuration accepted from .golangci.yml.
type Settings struct {
	Threshold float64         `json:"threshold"`
	Kinds     map[string]bool `json:"kinds"`
}

type smellPlugin struct {
	detector *detector.Detector
}

// New builds the plugin from decoded settings.
func New(settings any) (register.LinterPlugin, error) {
	s, err := register.DecodeSettings[Settings](settings)
	if err != nil {
		return nil, err
	}

	cfg := detector.DefaultConfig()
	if s.Threshold > 0 {
		cfg.ConfidenceThreshold = s.Threshold
	}
	if len(s.Kinds) > 0 {
		enabled := make(map[models.IssueKind]bool, len(models.BuiltinKinds()))
		for _, kind := range models.BuiltinKinds() {
			enabled[kind] = true
		}
		for name, on := range s.Kinds {
			kind, ok := models.KindFromName(name)
			if !ok {
				return nil, fmt.Errorf("unknown issue kind %q", name)
			}
			enabled[kind] = on
		}
		cfg.EnabledKinds = enabled
	}

	det, err := detector.New(cfg)
	if err != nil {
		return nil, err
	}
	return &smellPlugin{detector: det}, nil
}

func (p *smellPlugin) BuildAnalyzers() ([]*analysis.Analyzer, error) {
	return []*analysis.Analyzer{
		{
			Name: "smelldet",
			Doc:  "detects magic numbers, hardcoded thresholds and other code smells",
			Run:  p.run,
		},
	}, nil
}

func (p *smellPlugin) GetLoadMode() string {
	return register.LoadModeSyntax
}

// run re-reads each file's raw text: the rules are lexical, so the parsed
// AST carries no extra signal here.
func (p *smellPlugin) run(pass *analysis.Pass) (any, error) {
	for _, file := range pass.Files {
		tf := pass.Fset.File(file.Pos())
		if tf == nil {
			continue
		}

		data, err := os.ReadFile(tf.Name())
		if err != nil {
			continue
		}

		alerts, err := p.detector.ScanCode(string(data))
		if err != nil {
			return nil, err
		}

		for _, alert := range alerts {
			if alert.Line < 1 || alert.Line > tf.LineCount() {
				continue
			}
			pos := tf.LineStart(alert.Line) + token.Pos(alert.Column-1)
			pass.Report(analysis.Diagnostic{
				Pos:     pos,
				Message: fmt.Sprintf("%s: %s (confidence %.2f)", alert.KindName, alert.Rationale, alert.Confidence),
			})
		}
	}
	return nil, nil
}
