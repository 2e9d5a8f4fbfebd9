package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loanSchema() JSONSchema {
	return JSONSchema{
		Type: "object",
		Properties: map[string]Property{
			"income":     {Type: "number", Minimum: Float(3000), Maximum: Float(2500000)},
			"emp_length": {Type: "integer", Minimum: Float(0), Maximum: Float(50)},
			"home":       {Type: "string"},
		},
		Required:             []string{"income"},
		AdditionalProperties: true,
	}
}

func TestValidateInput_Valid(t *testing.T) {
	res := ValidateInput(map[string]interface{}{
		"income":     3000.0,
		"emp_length": 7,
		"home":       "Rent",
		"extra":      "process variable",
	}, loanSchema())

	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
}

func TestValidateInput_Errors(t *testing.T) {
	tests := []struct {
		name      string
		input     map[string]interface{}
		wantField string
	}{
		{
			name:      "missing required",
			input:     map[string]interface{}{"home": "Rent"},
			wantField: "income",
		},
		{
			name:      "below minimum",
			input:     map[string]interface{}{"income": 2999.99},
			wantField: "income",
		},
		{
			name:      "above maximum",
			input:     map[string]interface{}{"income": 100000, "emp_length": 51},
			wantField: "emp_length",
		},
		{
			name:      "wrong type",
			input:     map[string]interface{}{"income": "lots"},
			wantField: "income",
		},
		{
			name:      "fractional integer",
			input:     map[string]interface{}{"income": 5000, "emp_length": 2.5},
			wantField: "emp_length",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateInput(tt.input, loanSchema())
			require.False(t, res.Valid)
			assert.True(t, res.HasErrors(tt.wantField), "errors: %v", res.GetErrorMessages())
			assert.NotEmpty(t, res.GetErrorsForField(tt.wantField))
			assert.Contains(t, res.Summary(), tt.wantField)
		})
	}
}

func TestValidateInput_ClosedSchemaRejectsExtras(t *testing.T) {
	schema := loanSchema()
	schema.AdditionalProperties = false

	res := ValidateInput(map[string]interface{}{"income": 5000, "colour": "blue"}, schema)
	assert.False(t, res.Valid)
}
