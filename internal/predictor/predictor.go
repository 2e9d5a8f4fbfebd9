package predictor

import (
	"fmt"
	"math"

	"credit-risk/internal/encoder"
	"credit-risk/internal/models"
)

// Outcome is the binary decision of the classifier.
type Outcome int

const (
	NoDefault Outcome = iota
	Default
)

// Label returns the user-facing decision text.
func (o Outcome) Label() string {
	if o == Default {
		return models.LabelDefault
	}
	return models.LabelNoDefault
}

// Class returns the training-data class code.
func (o Outcome) Class() string {
	if o == Default {
		return models.ClassDefault
	}
	return models.ClassNoDefault
}

func (o Outcome) String() string {
	return o.Label()
}

// Model is an immutable loaded classifier, safe for concurrent readers.
type Model struct {
	artifact Artifact
	// positive is true when the linear term is the logit of PositiveClass.
	positive bool
}

func newModel(a Artifact) *Model {
	return &Model{
		artifact: a,
		positive: a.PositiveClass == a.Classes[1],
	}
}

func (m *Model) Name() string       { return m.artifact.Name }
func (m *Model) Version() string    { return m.artifact.Version }
func (m *Model) Threshold() float64 { return m.artifact.Threshold }

// FeatureNames returns the ordered feature list the model was trained on.
func (m *Model) FeatureNames() []string {
	return append([]string(nil), m.artifact.Features...)
}

// WithThreshold returns a copy using a different decision threshold.
func (m *Model) WithThreshold(threshold float64) (*Model, error) {
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("threshold %v must be within (0, 1)", threshold)
	}
	a := m.artifact
	a.Threshold = threshold
	return newModel(a), nil
}

// ProbabilityOfDefault returns P(positive class | features) in [0, 1].
func (m *Model) ProbabilityOfDefault(features []float64) (float64, error) {
	if len(features) != len(m.artifact.Features) {
		return 0, fmt.Errorf("%w: model expects %d features, got %d",
			encoder.ErrSchemaMismatch, len(m.artifact.Features), len(features))
	}

	z := m.artifact.Intercept
	for i, x := range features {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("feature %q is not finite", m.artifact.Features[i])
		}
		if s := m.artifact.Scaler; s != nil {
			x = (x - s.Mean[i]) / s.Scale[i]
		}
		z += m.artifact.Coefficients[i] * x
	}

	p := sigmoid(z)
	if !m.positive {
		p = 1 - p
	}
	return p, nil
}

// Classify thresholds ProbabilityOfDefault.
func (m *Model) Classify(features []float64) (Outcome, error) {
	p, err := m.ProbabilityOfDefault(features)
	if err != nil {
		return NoDefault, err
	}
	return m.Decide(p), nil
}

// Decide maps a probability onto an outcome using the model threshold.
func (m *Model) Decide(p float64) Outcome {
	if p >= m.artifact.Threshold {
		return Default
	}
	return NoDefault
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
