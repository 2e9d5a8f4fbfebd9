// Package scoring runs one loan application through canonicalize, encode
// and predict. Every surface (web, API, job worker, CLI) goes through a
// Pipeline.
package scoring

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"credit-risk/internal/common/database"
	"credit-risk/internal/common/errors"
	"credit-risk/internal/common/logger"
	"credit-risk/internal/common/metrics"
	"credit-risk/internal/common/observability"
	"credit-risk/internal/encoder"
	"credit-risk/internal/models"
	"credit-risk/internal/predictor"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Predictor is the read-only model handle the pipeline scores with.
type Predictor interface {
	Name() string
	Version() string
	Threshold() float64
	FeatureNames() []string
	ProbabilityOfDefault(features []float64) (float64, error)
	Decide(p float64) predictor.Outcome
}

type Options struct {
	Schema        *encoder.Schema
	Predictor     Predictor
	Cache         Cache
	KeyPrefix     string
	Observability *observability.Observability
	Logger        logger.Logger
}

type Pipeline struct {
	schema    *encoder.Schema
	predictor Predictor
	cache     Cache
	keyPrefix string
	obs       *observability.Observability
	logger    logger.Logger
}

// Result carries the canonical input and its encoding along with the
// prediction, so callers can echo what was scored.
type Result struct {
	Input      models.RawInput
	Vector     encoder.Vector
	Prediction models.Prediction
}

// New checks the predictor's feature list against the schema once, so a
// mismatched artifact fails at startup rather than per request.
func New(opts Options) (*Pipeline, error) {
	if opts.Predictor == nil {
		return nil, fmt.Errorf("predictor is required")
	}
	if opts.Schema == nil {
		opts.Schema = encoder.LoanSchema()
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	if opts.Observability == nil {
		opts.Observability = &observability.Observability{}
	}

	if err := opts.Schema.Verify(opts.Predictor.FeatureNames()); err != nil {
		return nil, errors.NewSchemaMismatchError(err)
	}

	metrics.ModelInfo.WithLabelValues(opts.Predictor.Name(), opts.Predictor.Version()).
		Set(float64(opts.Schema.Len()))

	return &Pipeline{
		schema:    opts.Schema,
		predictor: opts.Predictor,
		cache:     opts.Cache,
		keyPrefix: opts.KeyPrefix,
		obs:       opts.Observability,
		logger:    opts.Logger,
	}, nil
}

func (p *Pipeline) Schema() *encoder.Schema {
	return p.schema
}

func (p *Pipeline) ModelName() string {
	return p.predictor.Name()
}

func (p *Pipeline) ModelVersion() string {
	return p.predictor.Version()
}

// Predict scores raw. Errors are always *errors.StandardError.
func (p *Pipeline) Predict(ctx context.Context, raw models.RawInput, surface string) (*Result, error) {
	startTime := time.Now()
	requestID := uuid.NewString()

	ctx, span := p.obs.StartSpan(ctx, "scoring.predict",
		attribute.String("surface", surface),
		attribute.String("request_id", requestID),
		attribute.String("model.version", p.predictor.Version()),
	)
	defer span.End()

	result, err := p.predict(ctx, raw, surface)
	metrics.PredictionDuration.WithLabelValues(surface).Observe(time.Since(startTime).Seconds())

	if err != nil {
		stdErr := classify(err)
		span.RecordError(stdErr)
		span.SetStatus(codes.Error, string(stdErr.Code))
		metrics.PredictionFailures.WithLabelValues(string(stdErr.Code), surface).Inc()
		p.logger.Warn("Prediction failed", map[string]interface{}{
			"requestId": requestID,
			"surface":   surface,
			"errorCode": stdErr.Code,
			"error":     stdErr.Details,
		})
		return nil, stdErr
	}

	result.Prediction.RequestID = requestID
	metrics.PredictionsTotal.WithLabelValues(result.Prediction.Label, surface).Inc()
	span.SetAttributes(
		attribute.String("prediction.label", result.Prediction.Label),
		attribute.Bool("prediction.cached", result.Prediction.Cached),
	)

	p.logger.Info("Prediction served", map[string]interface{}{
		"requestId":   requestID,
		"surface":     surface,
		"label":       result.Prediction.Label,
		"probability": result.Prediction.ProbabilityText,
		"cached":      result.Prediction.Cached,
		"duration":    time.Since(startTime).String(),
	})

	return result, nil
}

func (p *Pipeline) predict(ctx context.Context, raw models.RawInput, surface string) (*Result, error) {
	canonical, err := p.schema.Canonicalize(raw)
	if err != nil {
		return nil, err
	}

	_, encodeSpan := p.obs.StartSpan(ctx, "encoder.encode")
	vec, err := p.schema.Encode(canonical)
	encodeSpan.End()
	if err != nil {
		return nil, err
	}
	p.obs.RecordEncoded(ctx, surface)

	result := &Result{Input: canonical, Vector: vec}

	key := cacheKey(p.keyPrefix, p.predictor.Name(), p.predictor.Version(), p.predictor.Threshold(), vec.Values())
	if cached, ok := p.lookup(ctx, key); ok {
		result.Prediction = *cached
		result.Prediction.Cached = true
		return result, nil
	}

	_, predictSpan := p.obs.StartSpan(ctx, "predictor.classify")
	prob, err := p.predictor.ProbabilityOfDefault(vec.Values())
	predictSpan.End()
	if err != nil {
		return nil, err
	}

	outcome := p.predictor.Decide(prob)
	result.Prediction = models.Prediction{
		Label:           outcome.Label(),
		Class:           outcome.Class(),
		Probability:     prob,
		ProbabilityText: fmt.Sprintf("%.2f", prob),
		ModelName:       p.predictor.Name(),
		ModelVersion:    p.predictor.Version(),
	}

	p.store(ctx, key, result.Prediction)
	return result, nil
}

func (p *Pipeline) lookup(ctx context.Context, key string) (*models.Prediction, bool) {
	if p.cache == nil {
		return nil, false
	}

	cached, err := p.cache.Get(ctx, key)
	switch {
	case err == nil:
		metrics.PredictionCache.WithLabelValues("hit").Inc()
		return cached, true
	case stderrors.Is(err, database.ErrCacheMiss):
		metrics.PredictionCache.WithLabelValues("miss").Inc()
	default:
		metrics.PredictionCache.WithLabelValues("error").Inc()
		p.logger.Warn("Prediction cache unavailable", map[string]interface{}{
			"error": errors.NewCacheUnavailableError(err),
		})
	}
	return nil, false
}

func (p *Pipeline) store(ctx context.Context, key string, pred models.Prediction) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Set(ctx, key, &pred); err != nil {
		metrics.PredictionCache.WithLabelValues("error").Inc()
		p.logger.Warn("Failed to cache prediction", map[string]interface{}{
			"error": errors.NewCacheUnavailableError(err),
		})
	}
}

// classify maps pipeline failures onto error codes.
func classify(err error) *errors.StandardError {
	var stdErr *errors.StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}

	var catErr *encoder.CategoryError
	switch {
	case stderrors.As(err, &catErr):
		return errors.NewInvalidCategoryError(catErr.Field, catErr.Value, err)
	case stderrors.Is(err, encoder.ErrSchemaMismatch):
		return errors.NewSchemaMismatchError(err)
	default:
		return errors.NewPredictionFailedError(err)
	}
}
