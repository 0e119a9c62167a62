package fdc_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IANDYI/nutrition-service/internal/adapters/fdc"
	"github.com/IANDYI/nutrition-service/internal/core/domain"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...fdc.Option) *fdc.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := fdc.NewClient(server.URL+"/fdc/v1", "secret", zap.NewNop(), opts...)
	require.NoError(t, err)
	return client
}

func TestSearchByCode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/fdc/v1/foods/search", r.URL.Path)
		assert.Equal(t, "012345678905", r.URL.Query().Get("query"))
		assert.Equal(t, domain.BrandedDataType, r.URL.Query().Get("dataType"))
		assert.Equal(t, "1", r.URL.Query().Get("pageSize"))
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		assert.False(t, r.URL.Query().Has("api_key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"totalHits":1,"foods":[{"fdcId":2345,"description":"GRANOLA BAR","gtinUpc":"012345678905"}]}`))
	})

	candidates, err := client.SearchByCode(context.Background(), "012345678905", domain.BrandedDataType, 1)

	require.NoError(t, err)
	assert.Equal(t, []domain.FoodCandidate{{ID: 2345, Description: "GRANOLA BAR"}}, candidates)
}

func TestClient_DroppedConnectionDoesNotLeakAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		require.NoError(t, err)
		_ = conn.Close()
	}))
	t.Cleanup(server.Close)

	client, err := fdc.NewClient(server.URL, "SECRET-KEY-123", zap.NewNop())
	require.NoError(t, err)

	_, err = client.SearchByCode(context.Background(), "012345678905", domain.BrandedDataType, 1)

	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET-KEY-123")
	assert.NotContains(t, err.Error(), "api_key")
}

func TestSearchByCode_NoMatches(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"totalHits":0,"foods":[]}`))
	})

	candidates, err := client.SearchByCode(context.Background(), "999", domain.BrandedDataType, 1)

	require.NoError(t, err)
	assert.NotNil(t, candidates)
	assert.Empty(t, candidates)
}

func TestGetDetails_FullFormat(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fdc/v1/food/2345", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"fdcId":           2345,
			"description":     "GRANOLA BAR",
			"servingSize":     40.0,
			"servingSizeUnit": "g",
			"foodNutrients": []map[string]any{
				{"nutrient": map[string]any{"id": 1008, "name": "Energy", "unitName": "KCAL"}, "amount": 450.0},
				{"nutrient": map[string]any{"id": 1003, "name": "Protein", "unitName": "G"}},
				{"type": "FoodNutrient"},
			},
		})
	})

	details, err := client.GetDetails(context.Background(), 2345)

	require.NoError(t, err)
	assert.Equal(t, 2345, details.ID)
	assert.Equal(t, "GRANOLA BAR", details.Description)
	require.NotNil(t, details.ServingSize)
	assert.Equal(t, 40.0, *details.ServingSize)
	require.Len(t, details.Nutrients, 2)

	energy := details.Nutrient(domain.NutrientEnergy)
	require.NotNil(t, energy)
	require.NotNil(t, energy.Amount)
	assert.Equal(t, 450.0, *energy.Amount)
	assert.Equal(t, "KCAL", energy.Unit)

	protein := details.Nutrient(domain.NutrientProtein)
	require.NotNil(t, protein)
	assert.Nil(t, protein.Amount)
}

func TestGetDetails_AbridgedFormat(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"description": "APPLE JUICE",
			"foodNutrients": [
				{"nutrientId": 1079, "nutrientName": "Fiber", "unitName": "G", "value": 0.2}
			]
		}`))
	})

	details, err := client.GetDetails(context.Background(), 77)

	require.NoError(t, err)
	assert.Equal(t, 77, details.ID)
	assert.Nil(t, details.ServingSize)
	fiber := details.Nutrient(domain.NutrientFiber)
	require.NotNil(t, fiber)
	assert.Equal(t, 0.2, *fiber.Amount)
}

func TestGetDetails_StatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	details, err := client.GetDetails(context.Background(), 1)

	assert.Nil(t, details)
	var statusErr *fdc.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Equal(t, "rate limited", statusErr.Body)
}

func TestSearchByCode_MalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"foods":`))
	})

	_, err := client.SearchByCode(context.Background(), "1", domain.BrandedDataType, 1)

	assert.Error(t, err)
}

func TestClient_Timeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}, fdc.WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))

	_, err := client.SearchByCode(context.Background(), "1", domain.BrandedDataType, 1)

	assert.Error(t, err)
}

func TestClient_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, fdc.WithBreakerSettings(gobreaker.Settings{
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 2
		},
	}))

	for i := 0; i < 3; i++ {
		_, _ = client.GetDetails(context.Background(), 1)
	}

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, gobreaker.StateOpen, client.BreakerState())
	_, err := client.GetDetails(context.Background(), 1)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}
