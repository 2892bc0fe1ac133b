// Package workflow starts hardware-approval workflow instances on the
// business-process-automation service.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/spec-kit/itsupport-service/internal/config"
)

const (
	instancesPath = "/workflow/rest/v1/workflow-instances"
	maxErrorBody  = 512
)

// Context carries the ticket fields the workflow definition expects.
type Context struct {
	TicketID      string `json:"ticketID"`
	RequestType   string `json:"requestType"`
	EmployeeName  string `json:"employeeName"`
	RequestedDate string `json:"requestedDate"`
}

// StartRequest is the body of a workflow-instance creation call.
type StartRequest struct {
	DefinitionID string  `json:"definitionId"`
	Context      Context `json:"context"`
}

// Starter launches workflow instances.
type Starter interface {
	Start(ctx context.Context, req StartRequest) error
}

// Client posts workflow-instance creation requests.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
}

// NewClient builds a client from configuration. When a token URL is set,
// requests are authorized with OAuth2 client credentials.
func NewClient(cfg config.WorkflowConfig, base *http.Client) *Client {
	if base == nil {
		base = &http.Client{}
	}
	httpClient := base
	if cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		// The token source fetches tokens with base and caches them.
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		httpClient = cc.Client(ctx)
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    cfg.Timeout(),
	}
}

// Start creates one workflow instance. Any non-2xx answer is a failure.
func (c *Client) Start(ctx context.Context, start StartRequest) error {
	if c.baseURL == "" {
		return fmt.Errorf("start workflow: base URL not configured")
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(start)
	if err != nil {
		return fmt.Errorf("start workflow: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+instancesPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("start workflow: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("start workflow: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
