// Package classifier talks to the external AI endpoint that labels tickets.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spec-kit/itsupport-service/internal/domain"
)

// autoApprovalYes is the only value the endpoint uses to grant auto approval.
const autoApprovalYes = "Yes"

const maxErrorBody = 512

// Classifier turns a ticket description into a classification.
type Classifier interface {
	Classify(ctx context.Context, description string) (domain.Classification, error)
}

// Client calls the classification endpoint over HTTP.
type Client struct {
	httpClient *http.Client
	url        string
	timeout    time.Duration
}

// NewClient builds a client for the endpoint at url. Each call is bounded by
// timeout regardless of the caller's deadline.
func NewClient(url string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{httpClient: httpClient, url: url, timeout: timeout}
}

type classifyRequest struct {
	Query string `json:"query"`
}

// response mirrors the endpoint's wire format; every field is optional.
type response struct {
	RequestType     *string `json:"request_type"`
	Urgency         *string `json:"urgency"`
	AutoApproval    *string `json:"auto_approval"`
	RouteTo         *string `json:"route_to"`
	ResponseMessage *string `json:"response_message"`
}

// Classify posts the description and decodes the result, filling defaults for
// absent fields.
func (c *Client) Classify(ctx context.Context, description string) (domain.Classification, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(classifyRequest{Query: description})
	if err != nil {
		return domain.Classification{}, fmt.Errorf("classify: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return domain.Classification{}, fmt.Errorf("classify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Classification{}, fmt.Errorf("classify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Classification{}, fmt.Errorf("classify: HTTP %d: %s", resp.StatusCode, errorBody(resp.Body))
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Classification{}, fmt.Errorf("classify: decode response: %w", err)
	}
	return body.toClassification(), nil
}

func (r response) toClassification() domain.Classification {
	result := domain.Classification{
		RequestType: domain.DefaultRequestType,
		Urgency:     domain.DefaultUrgency,
		RouteTo:     domain.DefaultRouteTo,
		ResponseMsg: domain.DefaultResponseMsg,
	}
	if r.RequestType != nil && *r.RequestType != "" {
		result.RequestType = *r.RequestType
	}
	if r.Urgency != nil {
		if u, ok := domain.ParseUrgency(*r.Urgency); ok {
			result.Urgency = u
		}
	}
	if r.AutoApproval != nil {
		result.AutoApproval = *r.AutoApproval == autoApprovalYes
	}
	if r.RouteTo != nil && *r.RouteTo != "" {
		result.RouteTo = *r.RouteTo
	}
	if r.ResponseMessage != nil && *r.ResponseMessage != "" {
		result.ResponseMsg = *r.ResponseMessage
	}
	return result
}

func errorBody(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(raw))
}
