// Package predictor loads the pre-trained loan default classifier and
// serves read-only predictions from it.
package predictor

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"credit-risk/internal/common/errors"

	"gopkg.in/yaml.v3"
)

const KindLogistic = "logistic"

// Artifact is the serialized model. YAML and JSON documents decode alike.
type Artifact struct {
	Kind          string    `yaml:"kind"`
	Name          string    `yaml:"name"`
	Version       string    `yaml:"version"`
	Features      []string  `yaml:"features"`
	Classes       []string  `yaml:"classes"`
	PositiveClass string    `yaml:"positive_class"`
	Threshold     float64   `yaml:"threshold"`
	Scaler        *Scaler   `yaml:"scaler,omitempty"`
	Coefficients  []float64 `yaml:"coefficients"`
	Intercept     float64   `yaml:"intercept"`
}

// Scaler standardizes inputs as (x - mean) / scale before the linear term.
type Scaler struct {
	Mean  []float64 `yaml:"mean"`
	Scale []float64 `yaml:"scale"`
}

// Load reads and validates a model artifact from disk.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewModelLoadFailedError(path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, errors.NewModelLoadFailedError(path, err)
	}
	return m, nil
}

// Parse decodes and validates an artifact. Unknown keys are rejected.
func Parse(data []byte) (*Model, error) {
	var a Artifact
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return newModel(a), nil
}

// Validate checks the artifact is internally consistent.
func (a *Artifact) Validate() error {
	if a.Kind != KindLogistic {
		return fmt.Errorf("unsupported model kind %q", a.Kind)
	}
	if a.Version == "" {
		return fmt.Errorf("model version is required")
	}
	if len(a.Features) == 0 {
		return fmt.Errorf("model has no features")
	}

	seen := make(map[string]struct{}, len(a.Features))
	for _, f := range a.Features {
		if _, dup := seen[f]; dup {
			return fmt.Errorf("duplicate feature %q", f)
		}
		seen[f] = struct{}{}
	}

	if len(a.Coefficients) != len(a.Features) {
		return fmt.Errorf("got %d coefficients for %d features", len(a.Coefficients), len(a.Features))
	}
	if len(a.Classes) != 2 {
		return fmt.Errorf("binary classifier needs 2 classes, got %d", len(a.Classes))
	}
	if a.PositiveClass == "" {
		a.PositiveClass = a.Classes[1]
	}
	if a.PositiveClass != a.Classes[0] && a.PositiveClass != a.Classes[1] {
		return fmt.Errorf("positive class %q is not one of %v", a.PositiveClass, a.Classes)
	}
	if a.Threshold == 0 {
		a.Threshold = 0.5
	}
	if a.Threshold <= 0 || a.Threshold >= 1 {
		return fmt.Errorf("threshold %v must be within (0, 1)", a.Threshold)
	}

	if a.Scaler != nil {
		if len(a.Scaler.Mean) != len(a.Features) || len(a.Scaler.Scale) != len(a.Features) {
			return fmt.Errorf("scaler width does not match %d features", len(a.Features))
		}
		for i, s := range a.Scaler.Scale {
			if s == 0 || math.IsNaN(s) || math.IsInf(s, 0) {
				return fmt.Errorf("scaler scale for %q must be finite and non-zero", a.Features[i])
			}
		}
	}

	for i, c := range a.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("coefficient for %q is not finite", a.Features[i])
		}
	}
	if math.IsNaN(a.Intercept) || math.IsInf(a.Intercept, 0) {
		return fmt.Errorf("intercept is not finite")
	}

	return nil
}
