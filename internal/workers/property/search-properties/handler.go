// internal/workers/property/search-properties/handler.go
package searchproperties

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"property-browser/internal/common/camunda"
	"property-browser/internal/common/errors"
	"property-browser/internal/common/logger"
	"property-browser/internal/common/metrics"
	"property-browser/internal/common/observability"
	"property-browser/internal/filter"
	"property-browser/internal/orchestrator"
	"property-browser/internal/sorting"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "search-properties"

type Handler struct {
	config       *Config
	orchestrator *orchestrator.Orchestrator
	errors       *errors.ErrorHandler
	obs          *observability.Observability
	logger       logger.Logger
}

func NewHandler(config *Config, orch *orchestrator.Orchestrator, obs *observability.Observability, log logger.Logger) *Handler {
	if config == nil {
		config = DefaultConfig()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		orchestrator: orch,
		errors:       errors.NewErrorHandler(log),
		obs:          obs,
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()
	ctx, span := h.obs.StartSpan(ctx, TaskType)
	defer span.End()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.Key,
		"processInstanceKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, errors.NewValidationError(fmt.Sprintf("parse input: %v", err)), start)
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err, start)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output, h.logger); err != nil {
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.obs.RecordJobProcessed(ctx, TaskType, "completed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "completed")
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error, start time.Time) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "failed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "failed")
	h.errors.HandleJobError(ctx, client, job, err)
}

// Execute parses the filters, runs the query and sorts the result.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.NewValidationError("input cannot be nil")
	}

	spec, err := filter.ParseRaw(input.Filters)
	if err != nil {
		return nil, err
	}

	key := h.config.DefaultSort
	if input.SortBy != "" {
		if key, err = sorting.ParseKey(input.SortBy); err != nil {
			return nil, err
		}
	}

	props, err := h.orchestrator.Run(ctx, spec, key)
	if err != nil {
		return nil, err
	}

	h.logger.Info("search completed", map[string]interface{}{
		"activeFilters": spec.ActiveCount(),
		"sortBy":        string(key),
		"results":       len(props),
	})

	return &Output{
		Properties:    props,
		TotalCount:    len(props),
		ActiveFilters: spec.ActiveCount(),
		Filters:       spec,
		SortBy:        string(key),
	}, nil
}
