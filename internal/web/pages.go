package web

import (
	"bytes"
	"net/http"

	"credit-risk/internal/collector"
	"credit-risk/internal/common/errors"
	"credit-risk/internal/common/metrics"
	"credit-risk/internal/dataset"
	"credit-risk/internal/models"
)

type pageData struct {
	Title        string
	Page         string
	ModelName    string
	ModelVersion string
}

type homeView struct {
	pageData
	Sample      *dataset.Table
	SampleError string
}

type formField struct {
	Spec  collector.FieldSpec
	Value string
}

type predictView struct {
	pageData
	Fields     []formField
	Input      *models.RawInput
	Prediction *models.Prediction
	Error      *errors.StandardError
}

func (s *Server) page(title, page string) pageData {
	return pageData{
		Title:        title,
		Page:         page,
		ModelName:    s.pipeline.ModelName(),
		ModelVersion: s.pipeline.ModelVersion(),
	}
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	view := homeView{pageData: s.page("Credit Risk Analysis", "home")}

	sample, err := s.dataset.Head(r.Context(), s.sampleRows)
	if err != nil {
		stdErr := errors.AsStandardError(err)
		s.logger.Error("Failed to load train data sample", map[string]interface{}{
			"source": s.dataset.Name(),
			"error":  stdErr,
		})
		view.SampleError = stdErr.Message
	} else {
		view.Sample = sample
	}

	s.render(w, "home.html", http.StatusOK, view)
}

// predictPageHandler echoes the collected input on GET and additionally
// scores it on POST, the form's Predict button.
func (s *Server) predictPageHandler(w http.ResponseWriter, r *http.Request) {
	view := predictView{pageData: s.page("Prediction", "prediction")}
	status := http.StatusOK

	if err := r.ParseForm(); err != nil {
		view.Error = errors.NewInputValidationError(err.Error())
		view.Fields = s.formFields(s.collector.Defaults())
		s.render(w, "predict.html", http.StatusBadRequest, view)
		return
	}

	raw, err := s.collector.FromForm(r.Form)
	if err != nil {
		view.Error = errors.AsStandardError(err)
		view.Fields = s.formFields(s.collector.Defaults())
		metrics.PredictionFailures.WithLabelValues(string(view.Error.Code), metrics.SurfaceWeb).Inc()
		s.render(w, "predict.html", errors.HTTPStatus(view.Error.Code), view)
		return
	}

	view.Fields = s.formFields(raw)
	view.Input = &raw

	if r.Method == http.MethodPost {
		res, err := s.pipeline.Predict(r.Context(), raw, metrics.SurfaceWeb)
		if err != nil {
			view.Error = errors.AsStandardError(err)
			status = errors.HTTPStatus(view.Error.Code)
		} else {
			view.Input = &res.Input
			view.Prediction = &res.Prediction
		}
	}

	s.render(w, "predict.html", status, view)
}

func (s *Server) formFields(raw models.RawInput) []formField {
	values := make(map[string]string)
	for _, c := range raw.Columns() {
		values[c.Name] = c.Value
	}

	specs := s.collector.Fields()
	fields := make([]formField, 0, len(specs))
	for _, spec := range specs {
		fields = append(fields, formField{Spec: spec, Value: values[spec.Name]})
	}
	return fields
}

func (s *Server) render(w http.ResponseWriter, name string, status int, data interface{}) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("Failed to render template", map[string]interface{}{
			"template": name,
			"error":    err,
		})
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
