// internal/workers/property/search-properties/handler_test.go
package searchproperties

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"property-browser/internal/common/config"
	"property-browser/internal/common/errors"
	"property-browser/internal/common/logger"
	"property-browser/internal/models"
	"property-browser/internal/orchestrator"
	"property-browser/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func createTestHandler(t *testing.T) *Handler {
	log := createTestLogger(t)
	orch := orchestrator.New(memory.NewSeededPropertyStore(log), orchestrator.DefaultOptions, log, nil)
	return NewHandler(DefaultConfig(), orch, nil, log)
}

func ids(props []models.Property) []int {
	out := make([]int, len(props))
	for i, p := range props {
		out[i] = p.ID
	}
	return out
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name           string
		input          *Input
		validateOutput func(t *testing.T, output *Output)
	}{
		{
			name:  "no filters returns everything newest first",
			input: &Input{},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, []int{7, 1, 5, 10, 3, 9, 2, 4, 6, 8}, ids(output.Properties))
				assert.Equal(t, 10, output.TotalCount)
				assert.Zero(t, output.ActiveFilters)
				assert.Equal(t, "newest", output.SortBy)
			},
		},
		{
			name: "condos in range",
			input: &Input{Filters: map[string]interface{}{
				"priceMin":      float64(300000),
				"priceMax":      "600,000",
				"propertyTypes": []interface{}{"Condo"},
			}},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, []int{7, 1, 9}, ids(output.Properties))
				assert.Equal(t, 3, output.ActiveFilters)
				assert.Equal(t, 600000, *output.Filters.PriceMax)
			},
		},
		{
			name:  "sorted by price high",
			input: &Input{SortBy: "price-high"},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, []int{4, 2, 9, 8, 6, 10, 1, 3, 7, 5}, ids(output.Properties))
				assert.Equal(t, "price-high", output.SortBy)
			},
		},
		{
			name:  "text query",
			input: &Input{Filters: map[string]interface{}{"query": "bungalow"}},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, []int{8}, ids(output.Properties))
			},
		},
		{
			name:  "no matches",
			input: &Input{Filters: map[string]interface{}{"propertyTypes": "Castle"}},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Empty(t, output.Properties)
				assert.Zero(t, output.TotalCount)
			},
		},
	}

	h := createTestHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := h.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			tt.validateOutput(t, output)
		})
	}
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_Errors(t *testing.T) {
	h := createTestHandler(t)

	_, err := h.Execute(context.Background(), nil)
	assert.True(t, stderrors.Is(err, errors.ErrValidationFailed))

	_, err = h.Execute(context.Background(), &Input{SortBy: "cheapest"})
	assert.True(t, stderrors.Is(err, errors.ErrValidationFailed))

	_, err = h.Execute(context.Background(), &Input{Filters: map[string]interface{}{
		"priceMin": float64(900000),
		"priceMax": float64(100000),
	}})
	assert.True(t, stderrors.Is(err, errors.ErrInvalidFilter))
}

// ==========================
// Config Tests
// ==========================

func TestFromWorkerConfig(t *testing.T) {
	cfg := FromWorkerConfig(config.WorkerConfig{Timeout: 5000})
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, DefaultConfig().DefaultSort, cfg.DefaultSort)

	assert.Equal(t, DefaultConfig().Timeout, FromWorkerConfig(config.WorkerConfig{}).Timeout)
}
