// Package collector gathers the typed, range-constrained fields of a loan
// application from HTML forms and JSON payloads.
package collector

import (
	"credit-risk/internal/common/validation"
	"credit-risk/internal/encoder"
)

type Kind string

const (
	KindNumber   Kind = "number"
	KindInteger  Kind = "integer"
	KindCategory Kind = "category"
)

// FieldSpec describes one input widget.
type FieldSpec struct {
	Name    string      `json:"name"`
	Label   string      `json:"label"`
	Kind    Kind        `json:"kind"`
	Min     float64     `json:"min,omitempty"`
	Max     float64     `json:"max,omitempty"`
	Step    float64     `json:"step,omitempty"`
	Default interface{} `json:"default"`
	Options []string    `json:"options,omitempty"`
}

// IsNumeric reports whether the field carries a number.
func (f FieldSpec) IsNumeric() bool {
	return f.Kind == KindNumber || f.Kind == KindInteger
}

// Clamp limits v to the field range.
func (f FieldSpec) Clamp(v float64) float64 {
	if v < f.Min {
		return f.Min
	}
	if v > f.Max {
		return f.Max
	}
	return v
}

// Widget order follows the prediction sidebar.
var loanFields = []FieldSpec{
	{
		Name: encoder.FieldAgeGroup, Label: "Age Group", Kind: KindCategory,
		Default: "20-24", Options: encoder.AgeGroupLevels,
	},
	{
		Name: encoder.FieldIncome, Label: "Annual Income (in $)", Kind: KindNumber,
		Min: 3000, Max: 2500000, Step: 1, Default: 90000.0,
	},
	{
		Name: encoder.FieldHome, Label: "Home Ownership", Kind: KindCategory,
		Default: "Mortgage", Options: []string{"Mortgage", "Rent", "Own", "Other"},
	},
	{
		Name: encoder.FieldEmpLength, Label: "Employment Length (years)", Kind: KindInteger,
		Min: 0, Max: 50, Step: 1, Default: 7,
	},
	{
		Name: encoder.FieldIntent, Label: "Loan Intent", Kind: KindCategory,
		Default: "Debtconsolidation",
		Options: []string{"Debtconsolidation", "Education", "Medical", "Venture", "Personal", "Homeimprovement"},
	},
	{
		Name: encoder.FieldAmount, Label: "Loan Amount (in $)", Kind: KindNumber,
		Min: 500, Max: 35000, Step: 1, Default: 10000.0,
	},
	{
		Name: encoder.FieldRate, Label: "Interest Rate (%)", Kind: KindNumber,
		Min: 5.0, Max: 25.0, Step: 0.01, Default: 5.0,
	},
	{
		Name: encoder.FieldCredLength, Label: "Credit History Length (years)", Kind: KindInteger,
		Min: 0, Max: 30, Step: 1, Default: 15,
	},
}

// inputSchema is the JSON schema machine callers are validated against.
// Categorical fields are type-checked only; unknown labels are reported by
// the encoder as invalid categories.
func inputSchema(fields []FieldSpec) validation.JSONSchema {
	schema := validation.JSONSchema{
		Type:                 "object",
		Properties:           make(map[string]validation.Property, len(fields)),
		AdditionalProperties: true,
	}

	for _, f := range fields {
		prop := validation.Property{Description: f.Label, Default: f.Default}
		switch f.Kind {
		case KindCategory:
			prop.Type = "string"
		default:
			prop.Type = string(f.Kind)
			prop.Minimum = validation.Float(f.Min)
			prop.Maximum = validation.Float(f.Max)
		}
		schema.Properties[f.Name] = prop
		schema.Required = append(schema.Required, f.Name)
	}

	return schema
}
