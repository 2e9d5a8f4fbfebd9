package web

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"credit-risk/internal/collector"
	"credit-risk/internal/common/errors"
	"credit-risk/internal/common/logger"
	"credit-risk/internal/dataset"
	"credit-risk/internal/models"
	"credit-risk/internal/predictor"
	"credit-risk/internal/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSource struct{}

func (failingSource) Name() string { return "csv:missing.csv" }
func (failingSource) Head(context.Context, int) (*dataset.Table, error) {
	return nil, errors.NewDatasetLoadFailedError("csv:missing.csv", stderrors.New("no such file"))
}

func newTestServer(t *testing.T, src dataset.Source, checks ...Check) *Server {
	t.Helper()

	model, err := predictor.Load(filepath.Join("..", "..", "configs", "model.yaml"))
	require.NoError(t, err)

	pipeline, err := scoring.New(scoring.Options{Predictor: model, Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)

	if src == nil {
		src = dataset.NewCSVSource(filepath.Join("..", "..", "data", "loan_df.csv"))
	}

	s, err := NewServer(Options{
		Pipeline:  pipeline,
		Collector: collector.New(),
		Dataset:   src,
		Checks:    checks,
		Logger:    logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, req *http.Request) (*http.Response, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	res := rec.Result()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, string(body)
}

func exampleForm() url.Values {
	return url.Values{
		"age_group":   {"20-24"},
		"income":      {"90000"},
		"home":        {"Rent"},
		"emp_length":  {"7"},
		"intent":      {"Venture"},
		"amount":      {"10000"},
		"rate":        {"5.0"},
		"cred_length": {"15"},
	}
}

func postForm(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHomePage(t *testing.T) {
	s := newTestServer(t, nil)

	res, body := do(t, s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "text/html")

	assert.Contains(t, body, "<h1>Credit Risk Analysis</h1>")
	assert.Contains(t, body, "Building a Predictive Model for Loan Default Status")
	assert.Contains(t, body, "<em>By DataMinds</em>")
	assert.Contains(t, body, "Train Data Sample:")
	assert.Contains(t, body, "<th>percent_income</th>")
	assert.Contains(t, body, "<td>54400</td>", "fifth row is shown")
	assert.NotContains(t, body, "<td>9900</td>", "sixth row is not shown")
}

func TestHomePage_DatasetFailure(t *testing.T) {
	s := newTestServer(t, failingSource{})

	res, body := do(t, s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "Credit Risk Analysis")
	assert.Contains(t, body, `class="error"`)
}

func TestUnknownPath(t *testing.T) {
	s := newTestServer(t, nil)

	res, _ := do(t, s, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestPredictPage_GetEchoesInputWithoutPredicting(t *testing.T) {
	s := newTestServer(t, nil)

	res, body := do(t, s, httptest.NewRequest(http.MethodGet, "/predict", nil))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "Enter Input Parameters")
	assert.Contains(t, body, "Input Parameters:")
	assert.Contains(t, body, "Shape of input data: (1, 9)")
	assert.Contains(t, body, `<option value="Mortgage" selected>`)
	assert.Contains(t, body, `max="2500000"`)
	assert.Contains(t, body, "<td>0.11</td>")
	assert.NotContains(t, body, "The model predicts")

	_, body = do(t, s, httptest.NewRequest(http.MethodGet, "/predict?home=Rent&income=9999999", nil))
	assert.Contains(t, body, `<option value="Rent" selected>`)
	assert.Contains(t, body, "<td>2500000</td>", "income is clamped to its range")
}

func TestPredictPage_PostPredicts(t *testing.T) {
	s := newTestServer(t, nil)

	res, body := do(t, s, postForm(exampleForm()))
	require.Equal(t, http.StatusOK, res.StatusCode, body)

	assert.Contains(t, body, "Shape of input data: (1, 9)")
	assert.Contains(t, body, "Prediction: ['N']")
	assert.Contains(t, body, "The model predicts: No Default")
	assert.Contains(t, body, "Probability of Default: 0.02")
	assert.Contains(t, body, "<td>Venture</td>")
}

func TestPredictPage_Errors(t *testing.T) {
	s := newTestServer(t, nil)

	form := exampleForm()
	form.Set("intent", "Vacation")
	res, body := do(t, s, postForm(form))
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Contains(t, body, "Unknown category value")
	assert.NotContains(t, body, "The model predicts")

	form = exampleForm()
	form.Set("income", "lots")
	res, body = do(t, s, postForm(form))
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Contains(t, body, "income")
	assert.Contains(t, body, "Enter Input Parameters")
}

func TestPredictAPI(t *testing.T) {
	s := newTestServer(t, nil)

	payload := `{"income": 90000, "emp_length": 7, "home": "RENT", "intent": "venture",
		"amount": 10000, "rate": 5.0, "cred_length": 15, "age_group": "20-24"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predictions", strings.NewReader(payload))
	res, body := do(t, s, req)
	require.Equal(t, http.StatusOK, res.StatusCode, body)

	var got predictionResponse
	require.NoError(t, json.Unmarshal([]byte(body), &got))

	assert.Equal(t, [2]int{1, 9}, got.Shape)
	assert.Equal(t, "Rent", got.Input.HomeOwnership)
	assert.Equal(t, "Venture", got.Input.LoanIntent)
	assert.Equal(t, 0.11, got.Input.PercentIncome)
	assert.Equal(t, models.LabelNoDefault, got.Prediction.Label)
	assert.Equal(t, "0.02", got.Prediction.ProbabilityText)
	assert.NotEmpty(t, got.Prediction.RequestID)
}

func TestPredictAPI_Errors(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name     string
		body     string
		wantCode errors.ErrorCode
	}{
		{"malformed json", `{"income":`, errors.ErrCodeInputValidationFailed},
		{"not an object", `[1, 2]`, errors.ErrCodeInputValidationFailed},
		{"missing field", `{"income": 90000}`, errors.ErrCodeInputValidationFailed},
		{"out of range", `{"income": 100, "emp_length": 7, "home": "Rent", "intent": "Venture",
			"amount": 10000, "rate": 5.0, "cred_length": 15, "age_group": "20-24"}`, errors.ErrCodeInputValidationFailed},
		{"unknown category", `{"income": 90000, "emp_length": 7, "home": "Castle", "intent": "Venture",
			"amount": 10000, "rate": 5.0, "cred_length": 15, "age_group": "20-24"}`, errors.ErrCodeInvalidCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/predictions", strings.NewReader(tt.body))
			res, body := do(t, s, req)
			assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)

			var got struct {
				Error struct {
					Code errors.ErrorCode `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal([]byte(body), &got))
			assert.Equal(t, tt.wantCode, got.Error.Code)
		})
	}
}

func TestSchemaAPI(t *testing.T) {
	s := newTestServer(t, nil)

	res, body := do(t, s, httptest.NewRequest(http.MethodGet, "/api/v1/schema", nil))
	require.Equal(t, http.StatusOK, res.StatusCode)

	var got schemaResponse
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Len(t, got.Features, 29)
	assert.Equal(t, "income", got.Features[0])
	assert.Equal(t, "age_group_95-99", got.Features[28])
	assert.Len(t, got.Categories["age_group"], 16)
	assert.Len(t, got.Fields, 8)
	assert.Equal(t, "1.2.0", got.ModelVersion)
}

func TestHealthAndReady(t *testing.T) {
	healthy := newTestServer(t, nil, Check{Name: "redis", Probe: func(context.Context) error { return nil }})

	res, body := do(t, healthy, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `"status":"healthy"`)

	res, _ = do(t, healthy, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, res.StatusCode)

	down := newTestServer(t, nil, Check{Name: "redis", Probe: func(context.Context) error {
		return stderrors.New("connection refused")
	}})
	res, body = do(t, down, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	assert.Contains(t, body, "connection refused")
}

func TestMetricsAndStatic(t *testing.T) {
	s := newTestServer(t, nil)
	do(t, s, postForm(exampleForm()))

	res, body := do(t, s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "predictions_total")

	res, body = do(t, s, httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "table.data")
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t, nil)
	s.cfg.Address = "127.0.0.1:0"
	s.cfg.ShutdownTimeout = 1000

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	assert.NoError(t, <-done)
}
