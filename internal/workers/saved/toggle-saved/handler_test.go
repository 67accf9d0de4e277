// internal/workers/saved/toggle-saved/handler_test.go
package togglesaved

import (
	"context"
	stderrors "errors"
	"testing"

	"property-browser/internal/common/errors"
	"property-browser/internal/common/logger"
	"property-browser/internal/kv"
	"property-browser/internal/reconcile"
	"property-browser/internal/store/fixtures"
	"property-browser/internal/store/local"
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

func createTestHandler(t *testing.T) (*Handler, *local.SavedPropertyStore) {
	log := createTestLogger(t)
	saved := local.NewSavedPropertyStore(kv.NewMemory(), log, local.WithSeed(fixtures.SavedProperties()))
	r := reconcile.New(memory.NewSeededPropertyStore(log), saved, 0, log)
	return NewHandler(DefaultConfig(), r, log), saved
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name      string
		input     *Input
		wantSaved bool
		wantErr   error
	}{
		{"save unsaved", &Input{PropertyID: 3, Action: "save"}, true, nil},
		{"save twice", &Input{PropertyID: 2, Action: "save"}, false, errors.ErrAlreadySaved},
		{"unsave saved", &Input{PropertyID: 7, Action: "UNSAVE"}, false, nil},
		{"unsave never saved", &Input{PropertyID: 9, Action: "unsave"}, false, errors.ErrNotFound},
		{"toggle on", &Input{PropertyID: 5}, true, nil},
		{"toggle off", &Input{PropertyID: 2, Action: "toggle"}, false, nil},
		{"unknown property", &Input{PropertyID: 404, Action: "save"}, false, errors.ErrNotFound},
		{"unknown action", &Input{PropertyID: 1, Action: "star"}, false, errors.ErrValidationFailed},
		{"invalid id", &Input{PropertyID: -1}, false, errors.ErrValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, saved := createTestHandler(t)
			ctx := context.Background()

			output, err := h.Execute(ctx, tt.input)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, stderrors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSaved, output.Saved)
			assert.Equal(t, tt.input.PropertyID, output.PropertyID)

			isSaved, err := saved.IsSaved(ctx, tt.input.PropertyID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSaved, isSaved)
		})
	}
}

func TestHandler_Execute_SaveThenUnsaveRestoresState(t *testing.T) {
	h, saved := createTestHandler(t)
	ctx := context.Background()

	before, err := saved.GetAll(ctx)
	require.NoError(t, err)

	_, err = h.Execute(ctx, &Input{PropertyID: 6, Action: ActionSave})
	require.NoError(t, err)
	_, err = h.Execute(ctx, &Input{PropertyID: 6, Action: ActionUnsave})
	require.NoError(t, err)

	after, err := saved.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
