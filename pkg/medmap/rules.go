package medmap

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/periop-ai/platform/pkg/common/models"
	"gopkg.in/yaml.v3"
)

// Rule maps complication labels that miss the table to a treatment by
// substring match.
type Rule struct {
	Name       string   `yaml:"name" json:"name"`
	Contains   []string `yaml:"contains" json:"contains"`
	Medication string   `yaml:"medication" json:"medication"`
	Dosage     string   `yaml:"dosage" json:"dosage"`
	Duration   string   `yaml:"duration" json:"duration"`
	Enabled    bool     `yaml:"enabled" json:"enabled"`
}

type RulesConfig struct {
	Rules []Rule `yaml:"rules" json:"rules"`
}

func LoadRules(path string) (RulesConfig, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultRules(), err
	}

	var cfg RulesConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return RulesConfig{}, err
	}

	if len(cfg.Rules) == 0 {
		return RulesConfig{}, errors.New("no fallback rules configured")
	}

	return cfg, nil
}

func DefaultRules() RulesConfig {
	return RulesConfig{Rules: []Rule{
		{Name: "Infection", Contains: []string{"infect"}, Medication: "Antibiotics", Dosage: "500 mg/day", Duration: "7 days", Enabled: true},
		{Name: "Bleeding", Contains: []string{"bleed"}, Medication: "Blood Transfusion + Hemostatic Agent", Dosage: "2 units", Duration: "1 days", Enabled: true},
		{Name: "Organ Failure", Contains: []string{"organ", "failure"}, Medication: "IV Fluids + Vasopressors", Dosage: "2 L/day", Duration: "5 days", Enabled: true},
	}}
}

// Match returns the first enabled rule whose substrings hit the label.
func (c RulesConfig) Match(label string) (models.Recommendation, bool) {
	needle := strings.ToLower(label)
	for _, rule := range c.Rules {
		if !rule.Enabled {
			continue
		}
		for _, fragment := range rule.Contains {
			if fragment != "" && strings.Contains(needle, strings.ToLower(fragment)) {
				return models.Recommendation{
					Medication: rule.Medication,
					Dosage:     rule.Dosage,
					Duration:   rule.Duration,
					Source:     "rule",
				}, true
			}
		}
	}
	return models.Recommendation{}, false
}

// DefaultRecommendation is returned when neither the table nor the rules
// cover a label. Deterministic so restarts answer identically.
func DefaultRecommendation() models.Recommendation {
	return models.Recommendation{
		Medication: "Pain Management",
		Dosage:     "100 mg/day",
		Duration:   "1 days",
		Source:     "rule",
	}
}
