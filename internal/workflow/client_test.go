package workflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/itsupport-service/internal/config"
)

func TestStartPostsInstance(t *testing.T) {
	var got StartRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/workflow/rest/v1/workflow-instances", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient(config.WorkflowConfig{BaseURL: server.URL + "/", TimeoutSeconds: 5}, nil)
	req := StartRequest{
		DefinitionID: "def",
		Context: Context{
			TicketID:      "t-1",
			RequestType:   "Hardware Request",
			EmployeeName:  "alice",
			RequestedDate: "2024-05-01",
		},
	}
	require.NoError(t, client.Start(context.Background(), req))
	assert.Equal(t, req, got)
}

func TestStartRawJSONShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "def", body["definitionId"])
		ctx := body["context"].(map[string]any)
		assert.Equal(t, "t-1", ctx["ticketID"])
		assert.Contains(t, ctx, "requestedDate")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewClient(config.WorkflowConfig{BaseURL: server.URL}, nil)
	require.NoError(t, client.Start(context.Background(), StartRequest{
		DefinitionID: "def",
		Context:      Context{TicketID: "t-1"},
	}))
}

func TestStartFailsOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "definition not found", http.StatusNotFound)
	}))
	defer server.Close()

	err := NewClient(config.WorkflowConfig{BaseURL: server.URL}, nil).Start(context.Background(), StartRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestStartWithoutBaseURL(t *testing.T) {
	assert.Error(t, NewClient(config.WorkflowConfig{}, nil).Start(context.Background(), StartRequest{}))
}

func TestStartUsesClientCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/workflow/rest/v1/workflow-instances", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(config.WorkflowConfig{
		BaseURL:      server.URL,
		TokenURL:     server.URL + "/oauth/token",
		ClientID:     "id",
		ClientSecret: "secret",
	}, nil)
	require.NoError(t, client.Start(context.Background(), StartRequest{DefinitionID: "def"}))
}
