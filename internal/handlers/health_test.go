package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jwebster45206/combat-engine/internal/services/queue"
	"github.com/jwebster45206/combat-engine/internal/storage"
	"github.com/jwebster45206/combat-engine/pkg/combat"
	queuePkg "github.com/jwebster45206/combat-engine/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name            string
		pingErr         error
		expectedStatus  int
		expectedHealth  string
		expectedStorage string
	}{
		{
			name:            "healthy",
			expectedStatus:  http.StatusOK,
			expectedHealth:  "healthy",
			expectedStorage: "healthy",
		},
		{
			name:            "unhealthy storage",
			pingErr:         errors.New("connection failed"),
			expectedStatus:  http.StatusServiceUnavailable,
			expectedHealth:  "degraded",
			expectedStorage: "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sto := storage.NewMockStorage()
			sto.SetPingError(tt.pingErr)
			h := NewHealthHandler(sto, nil, combat.FallbackReject, testLogger())

			rec := do(h, http.MethodGet, "/health", "")
			require.Equal(t, tt.expectedStatus, rec.Code)

			var resp HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.expectedHealth, resp.Status)
			assert.Equal(t, tt.expectedStorage, resp.Components["storage"])
			assert.Equal(t, "combat-engine", resp.Service)
			assert.Equal(t, "reject", resp.Fallback)
			assert.False(t, resp.Timestamp.IsZero())
			assert.Equal(t, "disabled", resp.Components["queue"])
			assert.Nil(t, resp.QueueDepth)
		})
	}
}

func TestHealthHandler_QueueDepth(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := queue.NewClient("redis://"+mr.Addr(), testLogger())
	require.NoError(t, err)
	defer client.Close()

	q := queue.NewCombatQueue(client)
	for i := 0; i < 3; i++ {
		require.NoError(t, q.EnqueueRequest(context.Background(), queuePkg.NewRequest(combat.Request{AttackerID: 1, TargetID: 2, Method: combat.MethodMelee})))
	}

	h := NewHealthHandler(storage.NewMockStorage(), q, combat.FallbackMiss, testLogger())

	rec := do(h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Components["queue"])
	require.NotNil(t, resp.QueueDepth)
	assert.Equal(t, 3, *resp.QueueDepth)

	// Redis going away degrades the service.
	mr.Close()
	rec = do(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Components["queue"])
}
