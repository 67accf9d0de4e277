// Package reconcile joins bookmarks with the listings they point at.
package reconcile

import (
	"context"
	stderrors "errors"
	"sync"

	"property-browser/internal/common/errors"
	"property-browser/internal/common/logger"
	"property-browser/internal/common/metrics"
	"property-browser/internal/models"
	"property-browser/internal/store"
)

const DefaultMaxConcurrency = 8

// View is the resolved saved list. Properties follow the bookmark order.
type View struct {
	Properties []models.Property      `json:"properties"`
	Saved      []models.SavedProperty `json:"saved"`
	Missing    []int                  `json:"missingPropertyIds"`
	Failed     []int                  `json:"failedPropertyIds"`
}

type Reconciler struct {
	properties     store.PropertyStore
	saved          store.SavedPropertyStore
	maxConcurrency int
	logger         logger.Logger
}

func New(properties store.PropertyStore, saved store.SavedPropertyStore, maxConcurrency int, log logger.Logger) *Reconciler {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Reconciler{
		properties:     properties,
		saved:          saved,
		maxConcurrency: maxConcurrency,
		logger:         logger.ForComponent(log, "reconciler"),
	}
}

type lookup struct {
	property *models.Property
	err      error
}

// Resolve fetches the property behind every bookmark. Lookups run
// concurrently and all finish before the view is built; a failed lookup drops
// its bookmark instead of failing the whole view.
func (r *Reconciler) Resolve(ctx context.Context, saved []models.SavedProperty) (*View, error) {
	results := make([]lookup, len(saved))
	sem := make(chan struct{}, r.maxConcurrency)

	var wg sync.WaitGroup
	for i, bookmark := range saved {
		wg.Add(1)
		go func(i, propertyID int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			p, err := r.properties.GetByID(ctx, propertyID)
			results[i] = lookup{property: p, err: err}
		}(i, bookmark.PropertyID)
	}
	wg.Wait()

	// Only a lookup cut short by ctx fails the view. Once every lookup has
	// an answer the view is complete even if ctx expired meanwhile.
	if err := ctx.Err(); err != nil && anyInterrupted(results) {
		return nil, errors.Backend("reconcile", "resolve", err)
	}

	view := &View{
		Properties: make([]models.Property, 0, len(saved)),
		Saved:      make([]models.SavedProperty, 0, len(saved)),
		Missing:    []int{},
		Failed:     []int{},
	}
	for i, res := range results {
		pid := saved[i].PropertyID
		switch {
		case res.err == nil && res.property != nil:
			view.Properties = append(view.Properties, *res.property)
			view.Saved = append(view.Saved, saved[i])
		case stderrors.Is(res.err, errors.ErrNotFound):
			view.Missing = append(view.Missing, pid)
			metrics.ReconcileDropped.WithLabelValues("missing").Inc()
		default:
			view.Failed = append(view.Failed, pid)
			metrics.ReconcileDropped.WithLabelValues("failed").Inc()
			r.logger.Warn("saved property lookup failed", map[string]interface{}{
				"propertyId": pid,
				"error":      res.err,
			})
		}
	}

	if len(view.Missing) > 0 {
		r.logger.Info("saved properties point at deleted listings", map[string]interface{}{
			"propertyIds": view.Missing,
		})
	}
	return view, nil
}

func anyInterrupted(results []lookup) bool {
	for _, res := range results {
		if stderrors.Is(res.err, context.Canceled) || stderrors.Is(res.err, context.DeadlineExceeded) {
			return true
		}
	}
	return false
}

// SavedView resolves every bookmark, most recently saved first.
func (r *Reconciler) SavedView(ctx context.Context) (*View, error) {
	saved, err := r.saved.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, saved)
}

// Save bookmarks an existing property.
func (r *Reconciler) Save(ctx context.Context, propertyID int) (*models.SavedProperty, error) {
	if _, err := r.properties.GetByID(ctx, propertyID); err != nil {
		return nil, err
	}
	return r.saved.Save(ctx, propertyID)
}

// Unsave removes the bookmark for propertyID.
func (r *Reconciler) Unsave(ctx context.Context, propertyID int) (*models.SavedProperty, error) {
	return r.saved.Unsave(ctx, propertyID)
}

// Toggle flips the saved state of propertyID and returns the new state. A
// concurrent flip that lands first is treated as already done.
func (r *Reconciler) Toggle(ctx context.Context, propertyID int) (bool, error) {
	isSaved, err := r.saved.IsSaved(ctx, propertyID)
	if err != nil {
		return false, err
	}

	if isSaved {
		_, err := r.Unsave(ctx, propertyID)
		if err != nil && !stderrors.Is(err, errors.ErrNotFound) {
			return true, err
		}
		return false, nil
	}

	_, err = r.Save(ctx, propertyID)
	if err != nil && !stderrors.Is(err, errors.ErrAlreadySaved) {
		return false, err
	}
	return true, nil
}

// Prune deletes bookmarks whose property no longer exists and returns the
// affected property IDs. Bookmarks whose lookup failed for any other reason
// are kept.
func (r *Reconciler) Prune(ctx context.Context) ([]int, error) {
	saved, err := r.saved.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	view, err := r.Resolve(ctx, saved)
	if err != nil {
		return nil, err
	}

	missing := make(map[int]bool, len(view.Missing))
	for _, pid := range view.Missing {
		missing[pid] = true
	}

	pruned := []int{}
	for _, bookmark := range saved {
		if !missing[bookmark.PropertyID] {
			continue
		}
		if err := r.saved.Delete(ctx, bookmark.ID); err != nil && !stderrors.Is(err, errors.ErrNotFound) {
			return pruned, err
		}
		pruned = append(pruned, bookmark.PropertyID)
	}

	if len(pruned) > 0 {
		r.logger.Info("pruned stale bookmarks", map[string]interface{}{"propertyIds": pruned})
	}
	return pruned, nil
}
