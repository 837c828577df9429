package serving

import (
	"context"
	"reflect"
	"testing"

	"github.com/periop-ai/platform/pkg/medmap"
	"github.com/periop-ai/platform/pkg/ml/tree"
	"github.com/periop-ai/platform/pkg/pipeline"
)

func testPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	var a pipeline.Artifact
	a.Model.Type = "classification"
	a.Model.Algorithm = "decision_tree"
	a.Model.Version = "test"
	a.Model.Classes = []string{"Bleeding", "Infection", "None"}
	a.Model.Features = testSchema()
	a.Model.Tree = tree.DecisionTree{Nodes: []tree.Node{
		{Feature: 0, Threshold: 1, Left: 1, Right: 2},
		{Feature: 1, Threshold: 1, Left: 3, Right: 4},
		{Feature: -1, Counts: []float64{12, 2, 2}},
		{Feature: -1, Counts: []float64{0, 1, 9}},
		{Feature: -1, Counts: []float64{1, 8, 1}},
	}}
	p, err := pipeline.New(a)
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}
	return p
}

func testService(t *testing.T) *Service {
	t.Helper()
	recommender := medmap.NewRecommender(medmap.Default(), medmap.DefaultRules())
	return NewService(testPipeline(t), recommender, nil, nil, nil)
}

func record(bloodLoss, wbc float64, vitals string) map[string]interface{} {
	return map[string]interface{}{
		"Blood_Loss_ml":     bloodLoss,
		"Postop_WBC":        wbc,
		"Vital_Instability": vitals,
	}
}

func TestServicePredict(t *testing.T) {
	svc := testService(t)

	preds, err := svc.Predict(context.Background(), []map[string]interface{}{
		record(700, 9, "Yes"),
		record(350, 15, "No"),
		record(300, 9, "No"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"Bleeding", "Infection", "None"}
	if len(preds) != len(want) {
		t.Fatalf("expected %d predictions, got %d", len(want), len(preds))
	}
	for i, p := range preds {
		if p.Complication != want[i] {
			t.Fatalf("prediction %d: expected %s, got %s", i, want[i], p.Complication)
		}
		if len(p.Probabilities) != 3 {
			t.Fatalf("prediction %d: expected 3 class probabilities, got %v", i, p.Probabilities)
		}
	}
}

func TestServicePredictValidationError(t *testing.T) {
	svc := testService(t)

	bad := record(700, 9, "Yes")
	delete(bad, "Postop_WBC")
	_, err := svc.Predict(context.Background(), []map[string]interface{}{bad})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !IsValidationError(err) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}

func TestServicePredictRecommend(t *testing.T) {
	svc := testService(t)

	results, err := svc.PredictRecommend(context.Background(), []map[string]interface{}{record(700, 9, "Yes")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	r := results[0]
	if r.Complication != "Bleeding" {
		t.Fatalf("expected Bleeding, got %s", r.Complication)
	}
	if r.Recommendation.Medication == "" || r.Recommendation.Dosage == "" || r.Recommendation.Duration == "" {
		t.Fatalf("expected all recommendation fields populated, got %+v", r.Recommendation)
	}
	if r.Recommendation.Medication != "Blood Transfusion + Hemostatic Agent" {
		t.Fatalf("expected the table's bleeding entry, got %+v", r.Recommendation)
	}
}

func TestServiceRecommendLabelFallback(t *testing.T) {
	svc := testService(t)

	rec := svc.RecommendLabel("Anastomotic Leak")
	if rec.Source != "rule" {
		t.Fatalf("expected fallback source rule, got %s", rec.Source)
	}
	if rec.Medication != "Pain Management" {
		t.Fatalf("expected deterministic default, got %+v", rec)
	}
	if !reflect.DeepEqual(rec, svc.RecommendLabel("Anastomotic Leak")) {
		t.Fatal("expected repeated lookups to be identical")
	}
}

func TestServiceRecommendBatchOrder(t *testing.T) {
	svc := testService(t)

	results, err := svc.Recommend(context.Background(), []map[string]interface{}{
		record(300, 9, "No"),
		record(700, 9, "Yes"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Complication != "None" || results[1].Complication != "Bleeding" {
		t.Fatalf("expected results in request order, got %+v", results)
	}
}

func TestServiceRecentPredictionsDisabled(t *testing.T) {
	svc := testService(t)

	if _, err := svc.RecentPredictions(context.Background(), 10); err != ErrAuditDisabled {
		t.Fatalf("expected ErrAuditDisabled, got %v", err)
	}
}

func TestServiceModelInfo(t *testing.T) {
	svc := testService(t)

	info := svc.ModelInfo()
	if info.Algorithm != "decision_tree" {
		t.Fatalf("unexpected algorithm: %s", info.Algorithm)
	}
	if len(info.Classes) != 3 || len(info.Features) != 3 {
		t.Fatalf("unexpected model info: %+v", info)
	}
}
