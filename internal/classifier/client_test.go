package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/itsupport-service/internal/domain"
)

func TestClassifyDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "printer jam", body["query"])

		_, _ = w.Write([]byte(`{"request_type":"Hardware Request","urgency":"High","auto_approval":"Yes",
			"route_to":"Hardware Team","response_message":"On it"}`))
	}))
	defer server.Close()

	got, err := NewClient(server.URL, time.Second, server.Client()).Classify(context.Background(), "printer jam")
	require.NoError(t, err)
	assert.Equal(t, domain.Classification{
		RequestType:  "Hardware Request",
		Urgency:      domain.UrgencyHigh,
		AutoApproval: true,
		RouteTo:      "Hardware Team",
		ResponseMsg:  "On it",
	}, got)
}

func TestClassifyAppliesFallbacks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"urgency":"urgent","auto_approval":"yes"}`))
	}))
	defer server.Close()

	got, err := NewClient(server.URL, time.Second, nil).Classify(context.Background(), "something")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultRequestType, got.RequestType)
	assert.Equal(t, domain.UrgencyLow, got.Urgency)
	assert.False(t, got.AutoApproval, "only the exact value Yes approves")
	assert.Equal(t, domain.DefaultRouteTo, got.RouteTo)
	assert.Equal(t, domain.DefaultResponseMsg, got.ResponseMsg)
}

func TestClassifyFailures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			_, err := NewClient(server.URL, time.Second, nil).Classify(context.Background(), "x")
			assert.Error(t, err)
		})
	}
}

func TestClassifyTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	start := time.Now()
	_, err := NewClient(server.URL, 50*time.Millisecond, nil).Classify(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}
