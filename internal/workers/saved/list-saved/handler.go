// internal/workers/saved/list-saved/handler.go
package listsaved

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"property-browser/internal/common/camunda"
	"property-browser/internal/common/errors"
	"property-browser/internal/common/logger"
	"property-browser/internal/common/metrics"
	"property-browser/internal/reconcile"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "list-saved"

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
	if job.Variables != "" {
		if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
			h.fail(ctx, client, job, errors.NewValidationError(fmt.Sprintf("parse input: %v", err)))
			return
		}
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

// Execute returns the bookmarked listings, optionally dropping bookmarks
// whose listing was deleted first.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		input = &Input{}
	}

	pruned := []int{}
	if input.Prune {
		ids, err := h.reconciler.Prune(ctx)
		if err != nil {
			return nil, err
		}
		pruned = ids
	}

	view, err := h.reconciler.SavedView(ctx)
	if err != nil {
		return nil, err
	}

	return &Output{
		Properties:         view.Properties,
		SavedProperties:    view.Saved,
		MissingPropertyIDs: view.Missing,
		FailedPropertyIDs:  view.Failed,
		PrunedPropertyIDs:  pruned,
		TotalCount:         len(view.Properties),
	}, nil
}
