package collector

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"credit-risk/internal/common/errors"
	"credit-risk/internal/common/validation"
	"credit-risk/internal/encoder"
	"credit-risk/internal/models"
)

// Collector builds RawInput records. It holds no per-request state.
type Collector struct {
	fields   []FieldSpec
	byName   map[string]FieldSpec
	schema   validation.JSONSchema
	defaults models.RawInput
}

// New returns the loan application collector. It panics if a field
// default is invalid, since no form could be rendered.
func New() *Collector {
	c, err := newCollector(loanFields)
	if err != nil {
		panic(err)
	}
	return c
}

func newCollector(fields []FieldSpec) (*Collector, error) {
	c := &Collector{
		fields: fields,
		byName: make(map[string]FieldSpec, len(fields)),
		schema: inputSchema(fields),
	}

	values := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		c.byName[f.Name] = f
		if err := checkDefault(f); err != nil {
			return nil, err
		}
		values[f.Name] = f.Default
	}

	defaults, err := c.build(values)
	if err != nil {
		return nil, fmt.Errorf("collector defaults: %w", err)
	}
	c.defaults = defaults
	return c, nil
}

func checkDefault(f FieldSpec) error {
	if !f.IsNumeric() {
		s, ok := f.Default.(string)
		if !ok {
			return fmt.Errorf("field %s: default %v is not a string", f.Name, f.Default)
		}
		for _, o := range f.Options {
			if o == s {
				return nil
			}
		}
		return fmt.Errorf("field %s: default %q is not an option", f.Name, s)
	}

	v, ok := toFloat(f.Default)
	if !ok {
		return fmt.Errorf("field %s: default %v is not a number", f.Name, f.Default)
	}
	if v < f.Min || v > f.Max {
		return fmt.Errorf("field %s: default %v outside [%v, %v]", f.Name, v, f.Min, f.Max)
	}
	return nil
}

// Fields returns the widget specs in display order.
func (c *Collector) Fields() []FieldSpec {
	return append([]FieldSpec(nil), c.fields...)
}

// InputSchema returns the JSON schema used by FromMap.
func (c *Collector) InputSchema() validation.JSONSchema {
	return c.schema
}

// Defaults returns the record a fresh form shows.
func (c *Collector) Defaults() models.RawInput {
	return c.defaults
}

// FromForm reads an HTML form submission. Missing fields take their
// defaults and numbers outside a field's range are clamped to it, the way
// the input widgets behave. Unparseable numbers are rejected.
func (c *Collector) FromForm(form url.Values) (models.RawInput, error) {
	values := make(map[string]interface{}, len(c.fields))
	var problems []string

	for _, f := range c.fields {
		text := strings.TrimSpace(form.Get(f.Name))
		if text == "" {
			values[f.Name] = f.Default
			continue
		}

		if !f.IsNumeric() {
			values[f.Name] = text
			continue
		}

		v, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			problems = append(problems, fmt.Sprintf("%s: %q is not a number", f.Name, text))
			continue
		}
		if f.Kind == KindInteger && v != math.Trunc(v) {
			problems = append(problems, fmt.Sprintf("%s: %q is not a whole number", f.Name, text))
			continue
		}
		values[f.Name] = f.Clamp(v)
	}

	if len(problems) > 0 {
		return models.RawInput{}, errors.NewInputValidationError(strings.Join(problems, "; "))
	}

	return c.build(values)
}

// FromMap reads a JSON object or job variables. Every field is required
// and validated against InputSchema; nothing is clamped or defaulted.
// A supplied percent_income is ignored and recomputed.
func (c *Collector) FromMap(vars map[string]interface{}) (models.RawInput, error) {
	result := validation.ValidateInput(vars, c.schema)
	if !result.Valid {
		return models.RawInput{}, errors.NewInputValidationError(result.Summary()).
			WithMetadata("errors", result.Errors)
	}

	values := make(map[string]interface{}, len(c.fields))
	for _, f := range c.fields {
		values[f.Name] = vars[f.Name]
	}
	return c.build(values)
}

func (c *Collector) build(values map[string]interface{}) (models.RawInput, error) {
	num := func(name string) (float64, error) {
		v, ok := toFloat(values[name])
		if !ok {
			return 0, errors.NewInputValidationError(fmt.Sprintf("%s: expected a number, got %T", name, values[name]))
		}
		return v, nil
	}
	str := func(name string) string {
		s, _ := values[name].(string)
		return s
	}

	raw := models.RawInput{
		HomeOwnership: str(encoder.FieldHome),
		LoanIntent:    str(encoder.FieldIntent),
		AgeGroup:      str(encoder.FieldAgeGroup),
	}

	var err error
	if raw.Income, err = num(encoder.FieldIncome); err != nil {
		return models.RawInput{}, err
	}
	if raw.LoanAmount, err = num(encoder.FieldAmount); err != nil {
		return models.RawInput{}, err
	}
	if raw.InterestRate, err = num(encoder.FieldRate); err != nil {
		return models.RawInput{}, err
	}
	emp, err := num(encoder.FieldEmpLength)
	if err != nil {
		return models.RawInput{}, err
	}
	cred, err := num(encoder.FieldCredLength)
	if err != nil {
		return models.RawInput{}, err
	}
	raw.EmploymentLength = int(emp)
	raw.CreditHistoryLength = int(cred)

	raw.PercentIncome = PercentIncome(raw.LoanAmount, raw.Income)
	return raw, nil
}

// PercentIncome returns amount / income rounded to 2 decimals. The float64
// quotient is rounded at its exact binary value, so 500/20000 (stored just
// above 0.025) gives 0.03 while the exact tie 500/4000 gives 0.12.
func PercentIncome(amount, income float64) float64 {
	if income == 0 {
		return 0
	}
	f, _ := strconv.ParseFloat(strconv.FormatFloat(amount/income, 'f', 2, 64), 64)
	return f
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
