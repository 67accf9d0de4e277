// internal/workers/saved/toggle-saved/handler.go
package togglesaved

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"property-browser/internal/common/camunda"
	"property-browser/internal/common/errors"
	"property-browser/internal/common/logger"
	"property-browser/internal/common/metrics"
	"property-browser/internal/reconcile"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "toggle-saved"

type Handler struct {
	config     *Config
	reconciler *reconcile.Reconciler
	errors     *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, reconciler *reconcile.Reconciler, log logger.Logger) *Handler {
	if config == nil {
		config = DefaultConfig()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		reconciler: reconciler,
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

// Execute saves, unsaves or flips the bookmark for a property. An empty
// action means toggle.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.PropertyID <= 0 {
		return nil, errors.NewValidationError("propertyId must be a positive integer")
	}

	action := strings.ToLower(strings.TrimSpace(input.Action))
	if action == "" {
		action = ActionToggle
	}

	var (
		saved bool
		err   error
	)
	switch action {
	case ActionSave:
		_, err = h.reconciler.Save(ctx, input.PropertyID)
		saved = true
	case ActionUnsave:
		_, err = h.reconciler.Unsave(ctx, input.PropertyID)
	case ActionToggle:
		saved, err = h.reconciler.Toggle(ctx, input.PropertyID)
	default:
		return nil, errors.NewValidationError(fmt.Sprintf("unknown action %q", input.Action))
	}
	if err != nil {
		return nil, err
	}

	h.logger.Info("saved state changed", map[string]interface{}{
		"propertyId": input.PropertyID,
		"action":     action,
		"saved":      saved,
	})
	return &Output{PropertyID: input.PropertyID, Saved: saved, Action: action}, nil
}
