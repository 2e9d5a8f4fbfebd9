package web

import (
	"encoding/json"
	"net/http"
	"time"

	"credit-risk/internal/collector"
	"credit-risk/internal/common/errors"
	"credit-risk/internal/common/metrics"
	"credit-risk/internal/models"
)

const maxRequestBytes = 64 << 10

type predictionResponse struct {
	Input      models.RawInput   `json:"input"`
	Shape      [2]int            `json:"shape"`
	Prediction models.Prediction `json:"prediction"`
}

type schemaResponse struct {
	ModelName    string                `json:"model_name"`
	ModelVersion string                `json:"model_version"`
	Features     []string              `json:"features"`
	Categories   map[string][]string   `json:"categories"`
	Fields       []collector.FieldSpec `json:"fields"`
}

type errorResponse struct {
	Error *errors.StandardError `json:"error"`
}

func (s *Server) predictAPIHandler(w http.ResponseWriter, r *http.Request) {
	var vars map[string]interface{}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.UseNumber()
	if err := dec.Decode(&vars); err != nil {
		s.writeError(w, errors.NewInputValidationError("request body must be a JSON object: "+err.Error()))
		return
	}

	raw, err := s.collector.FromMap(vars)
	if err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.pipeline.Predict(r.Context(), raw, metrics.SurfaceAPI)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, predictionResponse{
		Input:      res.Input,
		Shape:      res.Input.Shape(),
		Prediction: res.Prediction,
	})
}

func (s *Server) schemaAPIHandler(w http.ResponseWriter, r *http.Request) {
	schema := s.pipeline.Schema()

	categories := make(map[string][]string)
	for _, cat := range schema.Categoricals() {
		categories[cat.Field] = cat.Levels
	}

	writeJSON(w, http.StatusOK, schemaResponse{
		ModelName:    s.pipeline.ModelName(),
		ModelVersion: s.pipeline.ModelVersion(),
		Features:     schema.Names(),
		Categories:   categories,
		Fields:       s.collector.Fields(),
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// readyHandler reports not ready while any dependency probe fails.
func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]interface{}{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	}

	failed := make(map[string]string)
	for _, check := range s.checks {
		if err := check.Probe(r.Context()); err != nil {
			failed[check.Name] = err.Error()
		}
	}
	if len(failed) > 0 {
		status = http.StatusServiceUnavailable
		body["status"] = "not ready"
		body["checks"] = failed
	}

	writeJSON(w, status, body)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	stdErr := errors.AsStandardError(err)
	if stdErr.Code == errors.ErrCodeInputValidationFailed {
		metrics.PredictionFailures.WithLabelValues(string(stdErr.Code), metrics.SurfaceAPI).Inc()
	}
	writeJSON(w, errors.HTTPStatus(stdErr.Code), errorResponse{Error: stdErr})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
