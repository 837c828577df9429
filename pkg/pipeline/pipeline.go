package pipeline

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/periop-ai/platform/pkg/common/models"
)

// Pipeline holds a loaded artifact and answers predictions. It is read-only
// after construction and safe for concurrent use.
type Pipeline struct {
	artifact Artifact
}

func New(artifact Artifact) (*Pipeline, error) {
	if err := artifact.validate(); err != nil {
		return nil, err
	}
	return &Pipeline{artifact: artifact}, nil
}

func Load(path string) (*Pipeline, error) {
	artifact, err := LoadArtifact(path)
	if err != nil {
		return nil, err
	}
	return New(artifact)
}

func (p *Pipeline) Schema() FeatureSchema {
	return p.artifact.Model.Features
}

func (p *Pipeline) Classes() []string {
	return p.artifact.Model.Classes
}

func (p *Pipeline) Info() models.ModelInfo {
	return models.ModelInfo{
		Type:      p.artifact.Model.Type,
		Algorithm: p.artifact.Model.Algorithm,
		Version:   p.artifact.Model.Version,
		Classes:   p.artifact.Model.Classes,
		Features:  p.artifact.Model.Features.Names(),
	}
}

// Vector applies the frozen preprocessing to one feature map: numerics are
// standard-scaled, categoricals one-hot encoded, in training column order.
func (p *Pipeline) Vector(features map[string]interface{}) ([]float64, error) {
	schema := p.artifact.Model.Features
	sample := make([]float64, 0, schema.Width())

	for _, f := range schema.Numeric {
		raw, ok := features[f.Name]
		if !ok {
			return nil, fmt.Errorf("missing feature %s", f.Name)
		}
		value, err := ToFloat(raw)
		if err != nil {
			return nil, fmt.Errorf("feature %s: %w", f.Name, err)
		}
		if f.Std > 0 {
			value = (value - f.Mean) / f.Std
		} else {
			value = value - f.Mean
		}
		sample = append(sample, value)
	}

	for _, f := range schema.Categorical {
		raw, ok := features[f.Name]
		if !ok {
			return nil, fmt.Errorf("missing feature %s", f.Name)
		}
		value := fmt.Sprintf("%v", raw)
		for _, category := range f.Categories {
			if value == category {
				sample = append(sample, 1)
			} else {
				sample = append(sample, 0)
			}
		}
	}

	return sample, nil
}

// Predict runs the pipeline for one feature map and returns the predicted
// label with the class probability distribution.
func (p *Pipeline) Predict(features map[string]interface{}) (string, map[string]float64, error) {
	sample, err := p.Vector(features)
	if err != nil {
		return "", nil, err
	}
	return p.PredictSample(sample)
}

// PredictSample classifies an already-transformed sample vector.
func (p *Pipeline) PredictSample(sample []float64) (string, map[string]float64, error) {
	probs, err := p.artifact.Model.Tree.PredictProba(sample)
	if err != nil {
		return "", nil, err
	}

	classes := p.artifact.Model.Classes
	best := 0
	byClass := make(map[string]float64, len(classes))
	for i, class := range classes {
		byClass[class] = probs[i]
		if probs[i] > probs[best] {
			best = i
		}
	}
	return classes[best], byClass, nil
}

// ToFloat coerces JSON feature values to float64. Form clients post numbers
// as strings, so string coercion is accepted.
func ToFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
}
