// internal/models/loan.go
package models

import (
	"fmt"
	"strconv"
)

// Decision labels shown to users.
const (
	LabelDefault   = "Default"
	LabelNoDefault = "No Default"
)

// Model classes as stored in the training data's status column.
const (
	ClassDefault   = "Y"
	ClassNoDefault = "N"
)

// RawInput is one loan application as entered by a user. PercentIncome is
// derived from LoanAmount / Income by the collector.
type RawInput struct {
	Income              float64 `json:"income"`
	EmploymentLength    int     `json:"emp_length"`
	LoanAmount          float64 `json:"amount"`
	InterestRate        float64 `json:"rate"`
	PercentIncome       float64 `json:"percent_income"`
	CreditHistoryLength int     `json:"cred_length"`
	HomeOwnership       string  `json:"home"`
	LoanIntent          string  `json:"intent"`
	AgeGroup            string  `json:"age_group"`
}

// Column is a named cell of the input parameters table.
type Column struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Columns returns the record as an ordered one-row table.
func (r RawInput) Columns() []Column {
	return []Column{
		{Name: "income", Value: formatNumber(r.Income)},
		{Name: "emp_length", Value: fmt.Sprintf("%d", r.EmploymentLength)},
		{Name: "amount", Value: formatNumber(r.LoanAmount)},
		{Name: "rate", Value: formatNumber(r.InterestRate)},
		{Name: "percent_income", Value: formatNumber(r.PercentIncome)},
		{Name: "cred_length", Value: fmt.Sprintf("%d", r.CreditHistoryLength)},
		{Name: "home", Value: r.HomeOwnership},
		{Name: "intent", Value: r.LoanIntent},
		{Name: "age_group", Value: r.AgeGroup},
	}
}

// Shape reports rows x columns of the input table.
func (r RawInput) Shape() [2]int {
	return [2]int{1, len(r.Columns())}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Prediction is the outcome of one scoring request.
type Prediction struct {
	Label           string  `json:"label"`
	Class           string  `json:"class"`
	Probability     float64 `json:"probability"`
	ProbabilityText string  `json:"probability_text"`
	ModelName       string  `json:"model_name"`
	ModelVersion    string  `json:"model_version"`
	RequestID       string  `json:"request_id,omitempty"`
	Cached          bool    `json:"cached"`
}

// IsDefault reports whether the model predicted a default.
func (p Prediction) IsDefault() bool {
	return p.Class == ClassDefault
}
