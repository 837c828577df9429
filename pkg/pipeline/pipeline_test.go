package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/periop-ai/platform/pkg/ml/tree"
)

func testArtifact() Artifact {
	var a Artifact
	a.Model.Type = "classification"
	a.Model.Algorithm = "decision_tree"
	a.Model.Version = "2024-11-03"
	a.Model.Classes = []string{"Bleeding", "Infection", "None"}
	a.Model.Features = FeatureSchema{
		Numeric: []NumericFeature{
			{Name: "Blood_Loss_ml", Mean: 300, Std: 200},
			{Name: "Postop_WBC", Mean: 9, Std: 3},
		},
		Categorical: []CategoricalFeature{
			{Name: "Vital_Instability", Categories: []string{"No", "Yes"}},
		},
	}
	a.Model.Tree = tree.DecisionTree{Nodes: []tree.Node{
		{Feature: 0, Threshold: 1, Left: 1, Right: 2},
		{Feature: 1, Threshold: 1, Left: 3, Right: 4},
		{Feature: -1, Counts: []float64{12, 2, 2}},
		{Feature: -1, Counts: []float64{0, 1, 9}},
		{Feature: -1, Counts: []float64{1, 8, 1}},
	}}
	return a
}

func patient(bloodLoss, wbc float64, vitals string) map[string]interface{} {
	return map[string]interface{}{
		"Blood_Loss_ml":     bloodLoss,
		"Postop_WBC":        wbc,
		"Vital_Instability": vitals,
	}
}

func TestVectorScalesAndEncodes(t *testing.T) {
	p, err := New(testArtifact())
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}

	sample, err := p.Vector(patient(700, 12, "Yes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{2, 1, 0, 1}
	if !reflect.DeepEqual(sample, want) {
		t.Fatalf("expected sample %v, got %v", want, sample)
	}
}

func TestVectorMissingFeature(t *testing.T) {
	p, err := New(testArtifact())
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}

	record := patient(700, 12, "Yes")
	delete(record, "Postop_WBC")
	if _, err := p.Vector(record); err == nil {
		t.Fatal("expected error for missing feature")
	}
}

func TestVectorUnknownCategoryEncodesZeros(t *testing.T) {
	p, err := New(testArtifact())
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}

	sample, err := p.Vector(patient(300, 9, "Unknown"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sample[2] != 0 || sample[3] != 0 {
		t.Fatalf("expected zero one-hot block for unknown category, got %v", sample)
	}

	label, _, err := p.Predict(patient(300, 9, "Unknown"))
	if err != nil {
		t.Fatalf("prediction should survive unknown category: %v", err)
	}
	if label == "" {
		t.Fatal("expected a label")
	}
}

func TestPredict(t *testing.T) {
	p, err := New(testArtifact())
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}

	cases := []struct {
		record map[string]interface{}
		want   string
	}{
		{patient(700, 9, "Yes"), "Bleeding"},
		{patient(350, 15, "No"), "Infection"},
		{patient(300, 9, "No"), "None"},
	}
	for _, tc := range cases {
		label, probs, err := p.Predict(tc.record)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if label != tc.want {
			t.Fatalf("expected %s, got %s", tc.want, label)
		}
		if probs[label] <= 0 {
			t.Fatalf("expected positive probability for %s, got %v", label, probs)
		}
	}
}

func TestPredictAcceptsStringNumerics(t *testing.T) {
	p, err := New(testArtifact())
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}

	label, _, err := p.Predict(map[string]interface{}{
		"Blood_Loss_ml":     "700",
		"Postop_WBC":        "9",
		"Vital_Instability": "Yes",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != "Bleeding" {
		t.Fatalf("expected Bleeding, got %s", label)
	}
}

func TestPredictDeterministic(t *testing.T) {
	p, err := New(testArtifact())
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}

	record := patient(350, 15, "No")
	firstLabel, firstProbs, err := p.Predict(record)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		label, probs, err := p.Predict(record)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if label != firstLabel || !reflect.DeepEqual(probs, firstProbs) {
			t.Fatal("expected identical output for identical input")
		}
	}
}

func TestLoadArtifactRoundTrip(t *testing.T) {
	content, err := json.Marshal(testArtifact())
	if err != nil {
		t.Fatalf("failed to marshal artifact: %v", err)
	}
	path := filepath.Join(t.TempDir(), "pipeline.json")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write artifact: %v", err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load artifact: %v", err)
	}
	if got := p.Info().Algorithm; got != "decision_tree" {
		t.Fatalf("expected decision_tree, got %s", got)
	}
	if got := len(p.Info().Features); got != 3 {
		t.Fatalf("expected 3 feature names, got %d", got)
	}
}

func TestLoadArtifactMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing artifact file")
	}
}

func TestLoadArtifactRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for corrupt artifact")
	}
}

func TestLoadArtifactRejectsMissingClasses(t *testing.T) {
	artifact := testArtifact()
	artifact.Model.Classes = nil
	content, _ := json.Marshal(artifact)
	path := filepath.Join(t.TempDir(), "pipeline.json")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write artifact: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for artifact without classes")
	}
}
