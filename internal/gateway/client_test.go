package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendSuccess(t *testing.T) {
	conversationID := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "how tall is the tower", req.Message)
		assert.Equal(t, conversationID.String(), req.ConversationID)
		assert.Equal(t, 5, req.MaxResults)

		json.NewEncoder(w).Encode(ChatResponse{
			Response:       "300 meters",
			ConversationID: req.ConversationID,
			ModelUsed:      "haiku",
			FromCache:      true,
			TokenOptimization: &TokenOptimization{
				TokensSaved:      120,
				CompressionRatio: 0.4,
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, 0)
	resp, err := client.Send(context.Background(), "how tall is the tower", conversationID, 5)

	require.NoError(t, err)
	assert.Equal(t, "300 meters", resp.Response)
	assert.Equal(t, "haiku", resp.ModelUsed)
	assert.True(t, resp.FromCache)
	assert.Equal(t, 120, resp.TokenOptimization.TokensSaved)
}

func TestClient_SendServiceErrorWithDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"detail": "vector index rebuilding"})
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, 0)
	_, err := client.Send(context.Background(), "q", uuid.New(), 5)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusServiceUnavailable, svcErr.StatusCode)
	assert.Equal(t, "vector index rebuilding", svcErr.Detail)
	assert.Equal(t, "vector index rebuilding", svcErr.Error())
}

func TestClient_SendServiceErrorWithoutDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, 0)
	_, err := client.Send(context.Background(), "q", uuid.New(), 5)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Empty(t, svcErr.Detail)
	assert.Contains(t, svcErr.Error(), "500")
}

func TestClient_SendNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing is listening anymore

	client := NewClient(server.URL, 0, 0)
	_, err := client.Send(context.Background(), "q", uuid.New(), 5)

	var netErr *NetworkError
	assert.ErrorAs(t, err, &netErr)
}

func TestClient_SendTimeout(t *testing.T) {
	block := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	client := NewClient(server.URL, 50*time.Millisecond, 50*time.Millisecond)
	_, err := client.Send(context.Background(), "q", uuid.New(), 5)

	var timeoutErr *TimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
}

func TestClient_CheckHealthHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		json.NewEncoder(w).Encode(HealthStatus{
			Status:      "healthy",
			Database:    "connected",
			Collections: 3,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, 0)
	status := client.CheckHealth(context.Background())

	assert.True(t, status.Healthy())
	assert.Equal(t, "connected", status.Database)
	assert.Equal(t, 3, status.Collections)
}

func TestClient_CheckHealthNeverFails(t *testing.T) {
	t.Run("hanging request resolves unhealthy", func(t *testing.T) {
		block := make(chan struct{})

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-block
		}))
		defer server.Close()
		defer close(block)

		client := NewClient(server.URL, time.Second, 50*time.Millisecond)
		status := client.CheckHealth(context.Background())

		assert.Equal(t, "unhealthy", status.Status)
		assert.Equal(t, "disconnected", status.Database)
		assert.NotEmpty(t, status.Message)
	})

	t.Run("unreachable service resolves unhealthy", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		client := NewClient(server.URL, 0, 0)
		status := client.CheckHealth(context.Background())
		assert.Equal(t, "unhealthy", status.Status)
	})

	t.Run("error status resolves unhealthy", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewClient(server.URL, 0, 0)
		status := client.CheckHealth(context.Background())
		assert.Equal(t, "unhealthy", status.Status)
	})
}

func TestClient_TimeoutTiersAreIndependent(t *testing.T) {
	// The send tier stays generous while the quick tier trips, so a slow
	// chat backend is not abandoned just because health probes are strict.
	slow := 80 * time.Millisecond
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(slow)
		if r.URL.Path == "/chat" {
			json.NewEncoder(w).Encode(ChatResponse{Response: "slow but fine"})
			return
		}
		json.NewEncoder(w).Encode(HealthStatus{Status: "healthy", Database: "connected"})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, 20*time.Millisecond)

	resp, err := client.Send(context.Background(), "q", uuid.New(), 5)
	require.NoError(t, err)
	assert.Equal(t, "slow but fine", resp.Response)

	status := client.CheckHealth(context.Background())
	assert.Equal(t, "unhealthy", status.Status)
}

func TestClient_ListCollections(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections", r.URL.Path)
		json.NewEncoder(w).Encode(map[string][]string{"collections": {"docs", "faq"}})
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, 0)
	collections, err := client.ListCollections(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"docs", "faq"}, collections)
}

func TestClient_Stats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stats", r.URL.Path)
		json.NewEncoder(w).Encode(CollectionStats{
			Collections: map[string]int{"docs": 10},
			TotalChunks: 10,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, 0)
	stats, err := client.Stats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 10, stats.TotalChunks)
}
