package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/periop-ai/platform/pkg/ml/tree"
)

// NumericFeature carries the standard-scaler statistics fitted offline.
type NumericFeature struct {
	Name string  `json:"name"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// CategoricalFeature lists the one-hot categories seen during training.
// Values outside the list encode as an all-zeros block, matching an encoder
// fitted with unknown categories ignored.
type CategoricalFeature struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
}

type FeatureSchema struct {
	Numeric     []NumericFeature     `json:"numeric"`
	Categorical []CategoricalFeature `json:"categorical"`
}

// Names returns all feature names in schema order: numerics then categoricals,
// the column order the trainer used.
func (s FeatureSchema) Names() []string {
	names := make([]string, 0, len(s.Numeric)+len(s.Categorical))
	for _, f := range s.Numeric {
		names = append(names, f.Name)
	}
	for _, f := range s.Categorical {
		names = append(names, f.Name)
	}
	return names
}

// Width is the length of the transformed sample vector.
func (s FeatureSchema) Width() int {
	width := len(s.Numeric)
	for _, f := range s.Categorical {
		width += len(f.Categories)
	}
	return width
}

// Artifact is the serialized pipeline exported by the offline training step.
type Artifact struct {
	Model struct {
		Type      string            `json:"type"`
		Algorithm string            `json:"algorithm"`
		Version   string            `json:"version"`
		Classes   []string          `json:"classes"`
		Features  FeatureSchema     `json:"features"`
		Tree      tree.DecisionTree `json:"tree"`
	} `json:"model"`
}

func (a Artifact) validate() error {
	if len(a.Model.Classes) == 0 {
		return fmt.Errorf("artifact missing classes")
	}
	if len(a.Model.Features.Numeric)+len(a.Model.Features.Categorical) == 0 {
		return fmt.Errorf("artifact missing feature schema")
	}
	return a.Model.Tree.Validate(a.Model.Features.Width(), len(a.Model.Classes))
}

func LoadArtifact(path string) (Artifact, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Artifact{}, fmt.Errorf("reading model artifact: %w", err)
	}

	var artifact Artifact
	if err := json.Unmarshal(content, &artifact); err != nil {
		return Artifact{}, fmt.Errorf("decoding model artifact: %w", err)
	}
	if err := artifact.validate(); err != nil {
		return Artifact{}, fmt.Errorf("invalid model artifact: %w", err)
	}
	return artifact, nil
}
