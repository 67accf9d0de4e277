// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"property-browser/internal/common/config"
	"property-browser/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// StartWorker opens a job worker for taskType. It returns nil when the worker
// is disabled in configuration.
func StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler worker.JobHandler, log logger.Logger) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return jobWorker
}

// completeRetry bounds how long a worker keeps resending a completion after
// a transient broker error. The handler's context deadline still applies.
var completeRetry = &RetryConfig{
	MaxRetries: 3,
	BaseDelay:  200 * time.Millisecond,
	MaxDelay:   2 * time.Second,
}

// CompleteJob completes job with output as its variables, retrying transient
// broker errors.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}, log logger.Logger) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		log.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
		return err
	}

	attempts := 0
	err = executeWithRetry(ctx, completeRetry, func(ctx context.Context) error {
		attempts++
		_, err := cmd.Send(ctx)
		return err
	}, "complete job")
	if err != nil {
		log.Error("failed to send complete job command", map[string]interface{}{
			"jobKey":   job.Key,
			"attempts": attempts,
			"error":    err,
		})
		return err
	}
	return nil
}
