package encoder

import (
	"fmt"

	"credit-risk/internal/models"
)

// Feature is one named slot of an encoded vector.
type Feature struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Vector is an encoded feature vector bound to its schema.
type Vector struct {
	schema *Schema
	values []float64
}

// Values returns a copy of the raw slot values in schema order.
func (v Vector) Values() []float64 {
	return append([]float64(nil), v.values...)
}

// Len returns the slot count.
func (v Vector) Len() int {
	return len(v.values)
}

// Get returns the value of a named slot.
func (v Vector) Get(name string) (float64, bool) {
	if v.schema == nil {
		return 0, false
	}
	i, ok := v.schema.Index(name)
	if !ok {
		return 0, false
	}
	return v.values[i], true
}

// Map returns the slots as ordered name/value pairs.
func (v Vector) Map() []Feature {
	out := make([]Feature, len(v.values))
	for i, value := range v.values {
		out[i] = Feature{Name: v.schema.names[i], Value: value}
	}
	return out
}

// Encode maps a loan application onto the schema. Continuous slots are
// copied, the indicator of each non-reference category is set to 1 and
// every other indicator stays 0.
func (s *Schema) Encode(raw models.RawInput) (Vector, error) {
	return s.EncodeValues(
		map[string]float64{
			FieldIncome:        raw.Income,
			FieldEmpLength:     float64(raw.EmploymentLength),
			FieldAmount:        raw.LoanAmount,
			FieldRate:          raw.InterestRate,
			FieldPercentIncome: raw.PercentIncome,
			FieldCredLength:    float64(raw.CreditHistoryLength),
		},
		map[string]string{
			FieldHome:     raw.HomeOwnership,
			FieldIntent:   raw.LoanIntent,
			FieldAgeGroup: raw.AgeGroup,
		},
	)
}

// EncodeValues encodes a record given as continuous values and categorical
// labels keyed by field. Every schema field must be present; extra keys
// are a schema mismatch.
func (s *Schema) EncodeValues(continuous map[string]float64, categories map[string]string) (Vector, error) {
	if len(continuous) != len(s.continuous) {
		return Vector{}, fmt.Errorf("%w: expected %d continuous values, got %d", ErrSchemaMismatch, len(s.continuous), len(continuous))
	}
	if len(categories) != len(s.categoricals) {
		return Vector{}, fmt.Errorf("%w: expected %d categorical values, got %d", ErrSchemaMismatch, len(s.categoricals), len(categories))
	}

	values := make([]float64, len(s.names))

	for _, name := range s.continuous {
		v, ok := continuous[name]
		if !ok {
			return Vector{}, fmt.Errorf("%w: missing continuous feature %q", ErrSchemaMismatch, name)
		}
		values[s.index[name]] = v
	}

	for _, cat := range s.categoricals {
		label, ok := categories[cat.Field]
		if !ok {
			return Vector{}, fmt.Errorf("%w: missing categorical feature %q", ErrSchemaMismatch, cat.Field)
		}
		level, err := s.Canonical(cat.Field, label)
		if err != nil {
			return Vector{}, err
		}
		if slot := s.levelSlot[cat.Field][level]; slot >= 0 {
			values[slot] = 1
		}
	}

	return Vector{schema: s, values: values}, nil
}

// Canonicalize rewrites the categorical labels of raw to their trained
// spellings, failing on unknown categories.
func (s *Schema) Canonicalize(raw models.RawInput) (models.RawInput, error) {
	var err error
	if raw.HomeOwnership, err = s.Canonical(FieldHome, raw.HomeOwnership); err != nil {
		return raw, err
	}
	if raw.LoanIntent, err = s.Canonical(FieldIntent, raw.LoanIntent); err != nil {
		return raw, err
	}
	if raw.AgeGroup, err = s.Canonical(FieldAgeGroup, raw.AgeGroup); err != nil {
		return raw, err
	}
	return raw, nil
}
