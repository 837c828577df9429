package tree

import "fmt"

const leafFeature = -1

// Node is one node of a fitted classification tree. Interior nodes route on
// feature <= threshold; leaves carry per-class sample counts.
type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Counts    []float64 `json:"counts,omitempty"`
}

func (n Node) Leaf() bool {
	return n.Feature == leafFeature
}

type DecisionTree struct {
	Nodes []Node `json:"nodes"`
}

func (t DecisionTree) Validate(featureCount, classCount int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	for i, node := range t.Nodes {
		if node.Leaf() {
			if len(node.Counts) != classCount {
				return fmt.Errorf("leaf %d has %d class counts, want %d", i, len(node.Counts), classCount)
			}
			continue
		}
		if node.Feature < 0 || node.Feature >= featureCount {
			return fmt.Errorf("node %d routes on feature %d, outside [0,%d)", i, node.Feature, featureCount)
		}
		if node.Left < 0 || node.Left >= len(t.Nodes) || node.Right < 0 || node.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has child outside the node table", i)
		}
	}
	return nil
}

// PredictProba walks the tree for one sample and returns the normalized class
// distribution at the reached leaf.
func (t DecisionTree) PredictProba(sample []float64) ([]float64, error) {
	idx := 0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		node := t.Nodes[idx]
		if node.Leaf() {
			return normalize(node.Counts), nil
		}
		if node.Feature >= len(sample) {
			return nil, fmt.Errorf("sample has %d features, node routes on %d", len(sample), node.Feature)
		}
		if sample[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
	return nil, fmt.Errorf("no leaf reached after %d steps", len(t.Nodes))
}

// Predict returns the index of the most probable class.
func (t DecisionTree) Predict(sample []float64) (int, error) {
	probs, err := t.PredictProba(sample)
	if err != nil {
		return 0, err
	}
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return best, nil
}

func normalize(counts []float64) []float64 {
	var total float64
	for _, c := range counts {
		total += c
	}
	probs := make([]float64, len(counts))
	if total == 0 {
		return probs
	}
	for i, c := range counts {
		probs[i] = c / total
	}
	return probs
}
