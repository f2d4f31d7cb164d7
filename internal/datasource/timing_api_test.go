package datasource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/gridline/internal/config"
)

func testClient(baseURL string) *TimingAPIClient {
	return NewTimingAPIClient(config.DataSourceConfig{
		BaseURL:         baseURL,
		TimeoutSeconds:  5,
		MaxRetries:      1,
		RateLimitPerSec: 1000,
		CacheTTLSeconds: 60,
	}, nil)
}

func TestFetchSessions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sessions", r.URL.Path)
		assert.Equal(t, "2025", r.URL.Query().Get("year"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"session_key":9001,"meeting_key":1201,"session_name":"Race","session_type":"Race","circuit_short_name":"Monza","year":2025}]`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	defer client.Close()

	sessions, err := client.FetchSessions(context.Background(), 2025)
	if err != nil {
		t.Fatalf("FetchSessions failed: %v", err)
	}
	assert.Len(t, sessions, 1)
	assert.Equal(t, 9001, sessions[0].SessionKey)
	assert.Equal(t, "Monza", sessions[0].CircuitName)
}

func TestFetchResultsCachesResponses(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Write([]byte(`[{"session_key":9001,"driver_number":1,"position":1,"status":"Finished"}]`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	defer client.Close()

	for i := 0; i < 3; i++ {
		results, err := client.FetchResults(context.Background(), 9001)
		if err != nil {
			t.Fatalf("FetchResults failed: %v", err)
		}
		assert.Len(t, results, 1)
		if results[0].Position == nil || *results[0].Position != 1 {
			t.Fatal("position not decoded")
		}
	}

	assert.Equal(t, int64(1), atomic.LoadInt64(&hits), "repeated fetches must hit the cache")
}

func TestFetchErrorCodes(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode string
	}{
		{"unauthorized", http.StatusUnauthorized, ErrCodeAuthenticationFailed},
		{"missing session", http.StatusNotFound, ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := testClient(server.URL)
			defer client.Close()

			_, err := client.FetchLaps(context.Background(), 9001)
			var dsErr *DataSourceError
			if !errors.As(err, &dsErr) {
				t.Fatalf("expected DataSourceError, got %v", err)
			}
			assert.Equal(t, tt.wantCode, dsErr.Code)
			assert.Equal(t, "timing_api", dsErr.Source)
		})
	}
}

func TestFetchInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	defer client.Close()

	_, err := client.FetchStints(context.Background(), 9001)
	var dsErr *DataSourceError
	if !errors.As(err, &dsErr) {
		t.Fatalf("expected DataSourceError, got %v", err)
	}
	assert.Equal(t, ErrCodeInvalidData, dsErr.Code)
}

func TestAPIKeyHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewTimingAPIClient(config.DataSourceConfig{
		BaseURL:         server.URL,
		APIKey:          "secret-token",
		TimeoutSeconds:  5,
		RateLimitPerSec: 1000,
	}, nil)
	defer client.Close()

	if _, err := client.FetchDrivers(context.Background(), 9001); err != nil {
		t.Fatalf("FetchDrivers failed: %v", err)
	}
}
