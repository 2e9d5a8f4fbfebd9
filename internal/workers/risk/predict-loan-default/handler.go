package predictloandefault

import (
	"context"
	"fmt"
	"time"

	"credit-risk/internal/collector"
	"credit-risk/internal/common/config"
	"credit-risk/internal/common/errors"
	"credit-risk/internal/common/logger"
	"credit-risk/internal/common/metrics"
	"credit-risk/internal/common/observability"
	"credit-risk/internal/models"
	"credit-risk/internal/scoring"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "predict-loan-default"

// Scorer runs the scoring pipeline for one application.
type Scorer interface {
	Predict(ctx context.Context, raw models.RawInput, surface string) (*scoring.Result, error)
}

type Handler struct {
	config    *Config
	logger    logger.Logger
	scorer    Scorer
	collector *collector.Collector
	errors    *errors.ErrorHandler
	obs       *observability.Observability
}

type HandlerOptions struct {
	AppConfig     *config.Config
	CustomConfig  *Config
	Scorer        Scorer
	Collector     *collector.Collector
	Logger        logger.Logger
	Observability *observability.Observability // optional
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Scorer == nil {
		return nil, fmt.Errorf("scorer is required for %s", TaskType)
	}

	var loggerInstance logger.Logger
	if opts.Logger != nil {
		loggerInstance = opts.Logger
	} else {
		loggerInstance = logger.NewStructured("info", "json")
	}
	loggerInstance = loggerInstance.WithFields(map[string]interface{}{"worker": TaskType})

	c := opts.Collector
	if c == nil {
		c = collector.New()
	}

	obs := opts.Observability
	if obs == nil {
		obs = &observability.Observability{}
	}

	return &Handler{
		config:    workerConfig,
		logger:    loggerInstance,
		scorer:    opts.Scorer,
		collector: c,
		errors:    errors.NewErrorHandler(loggerInstance).WithMaxRetries(workerConfig.MaxRetries),
		obs:       obs,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing loan default prediction", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err)
		h.record(ctx, startTime, "failed")
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		h.record(ctx, startTime, "failed")
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	h.record(ctx, startTime, "completed")
}

func (h *Handler) record(ctx context.Context, start time.Time, status string) {
	h.obs.RecordJobProcessed(ctx, status)
	h.obs.RecordJobDuration(ctx, time.Since(start), status)
}

// parseInput reads the application from the job variables. Every field is
// required; other process variables are ignored.
func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInputValidationError(fmt.Sprintf("failed to parse job variables: %v", err))
	}

	raw, err := h.collector.FromMap(variables)
	if err != nil {
		return nil, err
	}

	return &Input{Application: raw}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.scorer.Predict(ctx, input.Application, metrics.SurfaceWorker)
	if err != nil {
		return nil, err
	}

	p := res.Prediction
	return &Output{
		RiskLabel:            p.Label,
		RiskClass:            p.Class,
		IsDefault:            p.IsDefault(),
		ProbabilityOfDefault: p.Probability,
		ProbabilityText:      p.ProbabilityText,
		PercentIncome:        res.Input.PercentIncome,
		ModelName:            p.ModelName,
		ModelVersion:         p.ModelVersion,
		RequestID:            p.RequestID,
		Cached:               p.Cached,
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(outputVariables(output))
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	h.logger.Info("Completed loan default prediction", map[string]interface{}{
		"jobKey":      job.GetKey(),
		"riskLabel":   output.RiskLabel,
		"probability": output.ProbabilityText,
		"requestId":   output.RequestID,
	})
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := errors.AsStandardError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, stdErr)
}

func outputVariables(output *Output) map[string]interface{} {
	return map[string]interface{}{
		"riskLabel":            output.RiskLabel,
		"riskClass":            output.RiskClass,
		"isDefault":            output.IsDefault,
		"probabilityOfDefault": output.ProbabilityOfDefault,
		"probabilityText":      output.ProbabilityText,
		"percentIncome":        output.PercentIncome,
		"modelName":            output.ModelName,
		"modelVersion":         output.ModelVersion,
		"requestId":            output.RequestID,
		"cached":               output.Cached,
	}
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

// WorkerConfig renders the handler settings for camunda.StartWorker.
func (h *Handler) WorkerConfig() config.WorkerConfig {
	return config.WorkerConfig{
		Enabled:       h.config.Enabled,
		MaxJobsActive: h.config.MaxJobsActive,
		Timeout:       int(h.config.Timeout / time.Millisecond),
		MaxRetries:    h.config.MaxRetries,
	}
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	if appConfig == nil {
		return DefaultConfig()
	}

	// Entries built without the loader may leave fields unset.
	workerCfg := config.GetWorkerConfig(appConfig, TaskType)
	cfg := DefaultConfig()
	cfg.Enabled = workerCfg.Enabled
	if workerCfg.MaxJobsActive > 0 {
		cfg.MaxJobsActive = workerCfg.MaxJobsActive
	}
	if workerCfg.Timeout > 0 {
		cfg.Timeout = config.GetDuration(workerCfg.Timeout)
	}
	if workerCfg.MaxRetries >= 0 {
		cfg.MaxRetries = workerCfg.MaxRetries
	}
	return cfg
}
