// Package encoder turns a loan application into the fixed-width numeric
// feature vector the classifier was trained on.
//
// The schema is closed: every continuous slot and every one-hot indicator
// slot is known up front, each categorical field drops its first level (in
// sorted order) as the reference, and encoding writes straight into the
// precomputed slot positions. Missing indicators are zero by construction
// and unknown categories are rejected.
package encoder

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidCategory matches any categorical value outside the known levels.
	ErrInvalidCategory = errors.New("invalid category")
	// ErrSchemaMismatch matches any disagreement between a vector or
	// feature list and the schema.
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// Field names of the loan schema.
const (
	FieldIncome        = "income"
	FieldEmpLength     = "emp_length"
	FieldAmount        = "amount"
	FieldRate          = "rate"
	FieldPercentIncome = "percent_income"
	FieldCredLength    = "cred_length"

	FieldHome     = "home"
	FieldIntent   = "intent"
	FieldAgeGroup = "age_group"
)

var (
	HomeLevels = []string{"Mortgage", "Other", "Own", "Rent"}

	IntentLevels = []string{
		"Debtconsolidation", "Education", "Homeimprovement",
		"Medical", "Personal", "Venture",
	}

	AgeGroupLevels = []string{
		"20-24", "25-29", "30-34", "35-39", "40-44", "45-49", "50-54", "55-59",
		"60-64", "65-69", "70-74", "75-79", "80-84", "85-89", "90-94", "95-99",
	}

	ContinuousFeatures = []string{
		FieldIncome, FieldEmpLength, FieldAmount,
		FieldRate, FieldPercentIncome, FieldCredLength,
	}
)

// Categorical is a closed, sorted level set. Levels[0] is the reference.
type Categorical struct {
	Field  string
	Levels []string
}

// Reference returns the dropped level.
func (c Categorical) Reference() string {
	return c.Levels[0]
}

// Indicators returns the one-hot column names, reference excluded.
func (c Categorical) Indicators() []string {
	out := make([]string, 0, len(c.Levels)-1)
	for _, level := range c.Levels[1:] {
		out = append(out, c.Field+"_"+level)
	}
	return out
}

// Schema is the closed, ordered list of feature slots. It is immutable
// after construction and safe for concurrent use.
type Schema struct {
	continuous   []string
	categoricals []Categorical
	names        []string
	index        map[string]int
	// field -> canonical level -> slot, -1 for the reference level
	levelSlot map[string]map[string]int
	// field -> normalized spelling -> canonical level
	lookup map[string]map[string]string
}

// NewSchema builds a schema from continuous slot names followed by the
// indicator slots of each categorical field, in argument order. Levels are
// sorted so the reference is always the first level in sorted order.
func NewSchema(continuous []string, categoricals ...Categorical) (*Schema, error) {
	s := &Schema{
		continuous: append([]string(nil), continuous...),
		index:      make(map[string]int),
		levelSlot:  make(map[string]map[string]int),
		lookup:     make(map[string]map[string]string),
	}

	add := func(name string) error {
		if _, dup := s.index[name]; dup {
			return fmt.Errorf("duplicate feature %q", name)
		}
		s.index[name] = len(s.names)
		s.names = append(s.names, name)
		return nil
	}

	for _, name := range continuous {
		if err := add(name); err != nil {
			return nil, err
		}
	}

	for _, cat := range categoricals {
		if len(cat.Levels) < 2 {
			return nil, fmt.Errorf("categorical %q needs at least two levels", cat.Field)
		}
		if _, dup := s.levelSlot[cat.Field]; dup {
			return nil, fmt.Errorf("duplicate categorical %q", cat.Field)
		}

		levels := append([]string(nil), cat.Levels...)
		sort.Strings(levels)
		cat = Categorical{Field: cat.Field, Levels: levels}

		slots := map[string]int{levels[0]: -1}
		lookup := map[string]string{normalize(levels[0]): levels[0]}
		for _, level := range levels[1:] {
			key := normalize(level)
			if _, dup := lookup[key]; dup {
				return nil, fmt.Errorf("categorical %q has ambiguous level %q", cat.Field, level)
			}
			lookup[key] = level
			if err := add(cat.Field + "_" + level); err != nil {
				return nil, err
			}
			slots[level] = len(s.names) - 1
		}

		s.categoricals = append(s.categoricals, cat)
		s.levelSlot[cat.Field] = slots
		s.lookup[cat.Field] = lookup
	}

	return s, nil
}

// MustSchema is NewSchema that panics on error, for package-level schemas.
func MustSchema(continuous []string, categoricals ...Categorical) *Schema {
	s, err := NewSchema(continuous, categoricals...)
	if err != nil {
		panic(err)
	}
	return s
}

var loanSchema = MustSchema(
	ContinuousFeatures,
	Categorical{Field: FieldHome, Levels: HomeLevels},
	Categorical{Field: FieldIntent, Levels: IntentLevels},
	Categorical{Field: FieldAgeGroup, Levels: AgeGroupLevels},
)

// LoanSchema returns the schema of the loan default classifier.
func LoanSchema() *Schema {
	return loanSchema
}

// Names returns the slot names in order.
func (s *Schema) Names() []string {
	return append([]string(nil), s.names...)
}

// Len returns the slot count.
func (s *Schema) Len() int {
	return len(s.names)
}

// Index returns the position of a slot.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Continuous returns the continuous slot names.
func (s *Schema) Continuous() []string {
	return append([]string(nil), s.continuous...)
}

// Categoricals returns the categorical fields with their sorted levels.
func (s *Schema) Categoricals() []Categorical {
	out := make([]Categorical, len(s.categoricals))
	for i, c := range s.categoricals {
		out[i] = Categorical{Field: c.Field, Levels: append([]string(nil), c.Levels...)}
	}
	return out
}

// Levels returns the sorted levels of a categorical field.
func (s *Schema) Levels(field string) []string {
	for _, c := range s.categoricals {
		if c.Field == field {
			return append([]string(nil), c.Levels...)
		}
	}
	return nil
}

// Canonical resolves a user-supplied label to the trained spelling.
// Matching ignores case, spaces, underscores and hyphens.
func (s *Schema) Canonical(field, value string) (string, error) {
	lookup, ok := s.lookup[field]
	if !ok {
		return "", fmt.Errorf("%w: unknown categorical field %q", ErrSchemaMismatch, field)
	}
	level, ok := lookup[normalize(value)]
	if !ok {
		return "", &CategoryError{Field: field, Value: value, Allowed: s.Levels(field)}
	}
	return level, nil
}

// Verify checks that names equals the schema slot list exactly.
func (s *Schema) Verify(names []string) error {
	if len(names) != len(s.names) {
		return fmt.Errorf("%w: expected %d features, got %d", ErrSchemaMismatch, len(s.names), len(names))
	}
	for i, name := range names {
		if name != s.names[i] {
			return fmt.Errorf("%w: feature %d is %q, expected %q", ErrSchemaMismatch, i, name, s.names[i])
		}
	}
	return nil
}

// CategoryError reports a categorical value outside the known levels.
type CategoryError struct {
	Field   string
	Value   string
	Allowed []string
}

func (e *CategoryError) Error() string {
	return fmt.Sprintf("invalid category %q for %s (allowed: %s)", e.Value, e.Field, strings.Join(e.Allowed, ", "))
}

func (e *CategoryError) Is(target error) bool {
	return target == ErrInvalidCategory
}

func normalize(label string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '\t':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(label)))
}
