package encoder

import (
	"errors"
	"strings"
	"testing"

	"credit-risk/internal/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trainedFeatures is the column list the classifier was fitted on.
var trainedFeatures = []string{
	"income", "emp_length", "amount", "rate", "percent_income", "cred_length",
	"home_Other", "home_Own", "home_Rent",
	"intent_Education", "intent_Homeimprovement", "intent_Medical", "intent_Personal", "intent_Venture",
	"age_group_25-29", "age_group_30-34", "age_group_35-39", "age_group_40-44", "age_group_45-49",
	"age_group_50-54", "age_group_55-59", "age_group_60-64", "age_group_65-69", "age_group_70-74",
	"age_group_75-79", "age_group_80-84", "age_group_85-89", "age_group_90-94", "age_group_95-99",
}

func baseInput() models.RawInput {
	return models.RawInput{
		Income:              90000,
		EmploymentLength:    7,
		LoanAmount:          10000,
		InterestRate:        5.0,
		PercentIncome:       0.11,
		CreditHistoryLength: 15,
		HomeOwnership:       "Rent",
		LoanIntent:          "Venture",
		AgeGroup:            "20-24",
	}
}

func TestLoanSchema_MatchesTrainedFeatures(t *testing.T) {
	s := LoanSchema()

	assert.Equal(t, 29, s.Len())
	if diff := cmp.Diff(trainedFeatures, s.Names()); diff != "" {
		t.Fatalf("schema names mismatch (-want +got):\n%s", diff)
	}
	assert.NoError(t, s.Verify(trainedFeatures))

	i, ok := s.Index("age_group_95-99")
	require.True(t, ok)
	assert.Equal(t, 28, i)

	_, ok = s.Index("home_Mortgage")
	assert.False(t, ok, "reference level must not have a slot")
}

func TestEncode_SpecExample(t *testing.T) {
	vec, err := LoanSchema().Encode(baseInput())
	require.NoError(t, err)
	require.Equal(t, 29, vec.Len())

	want := make([]float64, 29)
	copy(want, []float64{90000, 7, 10000, 5.0, 0.11, 15})
	want[8] = 1  // home_Rent
	want[13] = 1 // intent_Venture

	if diff := cmp.Diff(want, vec.Values()); diff != "" {
		t.Fatalf("vector mismatch (-want +got):\n%s", diff)
	}

	for _, name := range []string{"home_Other", "home_Own"} {
		v, _ := vec.Get(name)
		assert.Zero(t, v, name)
	}
	for _, name := range LoanSchema().Names() {
		if strings.HasPrefix(name, "age_group_") {
			v, _ := vec.Get(name)
			assert.Zero(t, v, name)
		}
	}
}

func TestEncode_OldestAgeBand(t *testing.T) {
	in := baseInput()
	in.AgeGroup = "95-99"

	vec, err := LoanSchema().Encode(in)
	require.NoError(t, err)

	for _, f := range vec.Map() {
		if !strings.HasPrefix(f.Name, "age_group_") {
			continue
		}
		if f.Name == "age_group_95-99" {
			assert.Equal(t, 1.0, f.Value)
		} else {
			assert.Zero(t, f.Value, f.Name)
		}
	}
}

func TestEncode_ExactlyOneIndicatorPerField(t *testing.T) {
	s := LoanSchema()

	for _, home := range HomeLevels {
		for _, intent := range IntentLevels {
			for _, age := range AgeGroupLevels {
				in := baseInput()
				in.HomeOwnership, in.LoanIntent, in.AgeGroup = home, intent, age

				vec, err := s.Encode(in)
				require.NoError(t, err)
				require.Equal(t, s.Len(), vec.Len())
				require.Equal(t, s.Names(), names(vec.Map()))

				for _, cat := range s.Categoricals() {
					value := map[string]string{FieldHome: home, FieldIntent: intent, FieldAgeGroup: age}[cat.Field]
					set := 0
					for _, ind := range cat.Indicators() {
						v, _ := vec.Get(ind)
						if v == 1 {
							set++
							assert.Equal(t, cat.Field+"_"+value, ind)
						}
					}
					if value == cat.Reference() {
						assert.Zero(t, set, "%s=%s is the reference", cat.Field, value)
					} else {
						assert.Equal(t, 1, set, "%s=%s", cat.Field, value)
					}
				}
			}
		}
	}
}

func TestEncode_Idempotent(t *testing.T) {
	s := LoanSchema()
	a, err := s.Encode(baseInput())
	require.NoError(t, err)
	b, err := s.Encode(baseInput())
	require.NoError(t, err)

	assert.True(t, cmp.Equal(a.Values(), b.Values()))
}

func TestEncode_AcceptsSpellingVariants(t *testing.T) {
	s := LoanSchema()
	want, err := s.Encode(baseInput())
	require.NoError(t, err)

	variants := []models.RawInput{baseInput(), baseInput(), baseInput()}
	variants[0].HomeOwnership, variants[0].LoanIntent = "RENT", "venture"
	variants[1].LoanIntent, variants[1].AgeGroup = " Venture ", "20 - 24"
	variants[2].HomeOwnership = "rent"

	for _, in := range variants {
		got, err := s.Encode(in)
		require.NoError(t, err)
		assert.Equal(t, want.Values(), got.Values())
	}

	in := baseInput()
	in.LoanIntent = "debt_consolidation"
	vec, err := s.Encode(in)
	require.NoError(t, err)
	for _, ind := range []string{"intent_Education", "intent_Homeimprovement", "intent_Medical", "intent_Personal", "intent_Venture"} {
		v, _ := vec.Get(ind)
		assert.Zero(t, v, ind)
	}

	canon, err := s.Canonicalize(models.RawInput{HomeOwnership: "own", LoanIntent: "HomeImprovement", AgeGroup: "40_44"})
	require.NoError(t, err)
	assert.Equal(t, "Own", canon.HomeOwnership)
	assert.Equal(t, "Homeimprovement", canon.LoanIntent)
	assert.Equal(t, "40-44", canon.AgeGroup)
}

func TestEncode_InvalidCategory(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.RawInput)
		field  string
	}{
		{"unknown home", func(r *models.RawInput) { r.HomeOwnership = "Castle" }, FieldHome},
		{"unknown intent", func(r *models.RawInput) { r.LoanIntent = "Holiday" }, FieldIntent},
		{"band outside range", func(r *models.RawInput) { r.AgeGroup = "100-104" }, FieldAgeGroup},
		{"empty age group", func(r *models.RawInput) { r.AgeGroup = "" }, FieldAgeGroup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput()
			tt.mutate(&in)

			_, err := LoanSchema().Encode(in)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidCategory)

			var catErr *CategoryError
			require.True(t, errors.As(err, &catErr))
			assert.Equal(t, tt.field, catErr.Field)
			assert.NotEmpty(t, catErr.Allowed)
		})
	}
}

func TestEncodeValues_SchemaMismatch(t *testing.T) {
	s := LoanSchema()
	cats := map[string]string{FieldHome: "Rent", FieldIntent: "Venture", FieldAgeGroup: "20-24"}

	_, err := s.EncodeValues(map[string]float64{FieldIncome: 1}, cats)
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	numeric := map[string]float64{
		FieldIncome: 1, FieldEmpLength: 1, FieldAmount: 1, FieldRate: 1, FieldPercentIncome: 1, "colour": 1,
	}
	_, err = s.EncodeValues(numeric, cats)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestVerify_Mismatch(t *testing.T) {
	s := LoanSchema()

	short := trainedFeatures[:28]
	assert.ErrorIs(t, s.Verify(short), ErrSchemaMismatch)

	swapped := append([]string(nil), trainedFeatures...)
	swapped[6], swapped[7] = swapped[7], swapped[6]
	err := s.Verify(swapped)
	require.ErrorIs(t, err, ErrSchemaMismatch)
	assert.Contains(t, err.Error(), "feature 6")

	withReference := append([]string(nil), trainedFeatures...)
	withReference[14] = "age_group_20-24"
	assert.ErrorIs(t, s.Verify(withReference), ErrSchemaMismatch)
}

func TestNewSchema_SortsLevelsAndRejectsDuplicates(t *testing.T) {
	s, err := NewSchema([]string{"x"}, Categorical{Field: "colour", Levels: []string{"Red", "Blue", "Green"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "colour_Green", "colour_Red"}, s.Names())
	assert.Equal(t, "Blue", s.Categoricals()[0].Reference())

	_, err = NewSchema([]string{"x", "x"})
	assert.Error(t, err)

	_, err = NewSchema(nil, Categorical{Field: "c", Levels: []string{"A"}})
	assert.Error(t, err)

	_, err = NewSchema(nil, Categorical{Field: "c", Levels: []string{"Big-One", "bigone"}})
	assert.Error(t, err)
}

func names(fs []Feature) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Name
	}
	return out
}
