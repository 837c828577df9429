package medmap

import "github.com/periop-ai/platform/pkg/common/models"

// Recommender resolves a complication label against the table first, then
// the fallback rules, then the deterministic default. It never fails.
type Recommender struct {
	table *Table
	rules RulesConfig
}

func NewRecommender(table *Table, rules RulesConfig) *Recommender {
	if table == nil {
		table = Default()
	}
	return &Recommender{table: table, rules: rules}
}

func (r *Recommender) Recommend(label string) models.Recommendation {
	if rec, ok := r.table.Lookup(label); ok {
		return rec
	}
	if rec, ok := r.rules.Match(label); ok {
		return rec
	}
	return DefaultRecommendation()
}

func (r *Recommender) TableSource() string {
	return r.table.Source()
}
