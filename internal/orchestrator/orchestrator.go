// Package orchestrator turns filter and sort choices into property result
// sets. Run is the one-shot query used by workers; Session tracks the state of
// an interactive browse.
package orchestrator

import (
	"context"
	"time"

	"property-browser/internal/common/config"
	"property-browser/internal/common/errors"
	"property-browser/internal/common/logger"
	"property-browser/internal/common/metrics"
	"property-browser/internal/common/observability"
	"property-browser/internal/models"
	"property-browser/internal/sorting"
	"property-browser/internal/store"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	ModeAll    = "all"
	ModeSearch = "search"

	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
	OutcomeStale  = "stale"
)

// Options bound how hard a single load tries.
type Options struct {
	MaxRetries   int
	RetryBackoff time.Duration
	QueryTimeout time.Duration
}

// DefaultOptions matches the shipped configuration.
var DefaultOptions = Options{
	MaxRetries:   2,
	RetryBackoff: 200 * time.Millisecond,
	QueryTimeout: 10 * time.Second,
}

func OptionsFromConfig(cfg config.OrchestratorConfig) Options {
	return Options{
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: time.Duration(cfg.RetryBackoffMs) * time.Millisecond,
		QueryTimeout: time.Duration(cfg.QueryTimeoutMs) * time.Millisecond,
	}
}

type Orchestrator struct {
	store  store.PropertyStore
	opts   Options
	logger logger.Logger
	obs    *observability.Observability
}

// New builds an orchestrator over ps. obs may be nil.
func New(ps store.PropertyStore, opts Options, log logger.Logger, obs *observability.Observability) *Orchestrator {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Orchestrator{
		store:  ps,
		opts:   opts,
		logger: logger.ForComponent(log, "orchestrator"),
		obs:    obs,
	}
}

// Run loads the properties matching spec and orders them by key.
func (o *Orchestrator) Run(ctx context.Context, spec models.FilterSpec, key sorting.Key) ([]models.Property, error) {
	props, err := o.fetch(ctx, spec)
	if err != nil {
		return nil, err
	}
	return sorting.Sort(props, key), nil
}

func modeFor(spec models.FilterSpec) string {
	if spec.IsEmpty() {
		return ModeAll
	}
	return ModeSearch
}

// fetch issues GetAll for an empty spec and Search otherwise, retrying
// retryable failures with exponential backoff.
func (o *Orchestrator) fetch(ctx context.Context, spec models.FilterSpec) ([]models.Property, error) {
	spec = spec.Normalize()
	mode := modeFor(spec)
	start := time.Now()

	ctx, span := o.obs.StartSpan(ctx, "orchestrator."+mode,
		attribute.Int("filters.active", spec.ActiveCount()),
	)
	defer span.End()

	var (
		props   []models.Property
		err     error
		backoff = o.opts.RetryBackoff
	)
	for attempt := 0; ; attempt++ {
		props, err = o.query(ctx, mode, spec)
		if err == nil || !errors.IsRetryable(err) || attempt >= o.opts.MaxRetries || ctx.Err() != nil {
			break
		}

		o.logger.Warn("property query failed, retrying", map[string]interface{}{
			"mode":    mode,
			"attempt": attempt + 1,
			"backoff": backoff.String(),
			"error":   err,
		})
		if !sleep(ctx, backoff) {
			break
		}
		backoff *= 2
	}

	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.QueryOutcomes.WithLabelValues(mode, outcome).Inc()
	o.obs.RecordQuery(ctx, mode, outcome, time.Since(start))

	if err != nil {
		return nil, err
	}
	return props, nil
}

func (o *Orchestrator) query(ctx context.Context, mode string, spec models.FilterSpec) ([]models.Property, error) {
	if o.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.QueryTimeout)
		defer cancel()
	}

	var (
		props []models.Property
		err   error
	)
	if mode == ModeAll {
		props, err = o.store.GetAll(ctx)
	} else {
		props, err = o.store.Search(ctx, spec)
	}
	return props, errors.Backend("orchestrator", mode, err)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
