// internal/workers/property/get-property/handler.go
package getproperty

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"property-browser/internal/common/camunda"
	"property-browser/internal/common/errors"
	"property-browser/internal/common/logger"
	"property-browser/internal/common/metrics"
	"property-browser/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "get-property"

type Handler struct {
	config     *Config
	properties store.PropertyStore
	saved      store.SavedPropertyStore
	errors     *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, properties store.PropertyStore, saved store.SavedPropertyStore, log logger.Logger) *Handler {
	if config == nil {
		config = DefaultConfig()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		properties: properties,
		saved:      saved,
		errors:     errors.NewErrorHandler(log),
		logger:     log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, errors.NewValidationError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output, h.logger); err != nil {
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}

// Execute loads one property and whether it is bookmarked. A failed saved
// lookup is logged and reported as not saved.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.PropertyID <= 0 {
		return nil, errors.NewValidationError("propertyId must be a positive integer")
	}

	p, err := h.properties.GetByID(ctx, input.PropertyID)
	if err != nil {
		return nil, err
	}

	isSaved, err := h.saved.IsSaved(ctx, input.PropertyID)
	if err != nil {
		h.logger.Warn("saved lookup failed", map[string]interface{}{
			"propertyId": input.PropertyID,
			"error":      err,
		})
		isSaved = false
	}

	return &Output{Property: *p, IsSaved: isSaved}, nil
}
