package reports

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxPayloadBytes = 16 << 20

// Source supplies raw report payloads.
type Source interface {
	Fetch(ctx context.Context, req Request) ([]byte, error)
}

// HTTPSource reads reports from the upstream SSOT reporting API.
type HTTPSource struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPSource targets baseURL, authenticating with a bearer token when set.
func NewHTTPSource(baseURL, token string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// Fetch calls GET <base>/api/v1/ssot-reports/<slug> with the request dates.
func (s *HTTPSource) Fetch(ctx context.Context, req Request) ([]byte, error) {
	query := url.Values{}
	if req.StartDate != "" {
		query.Set("start_date", req.StartDate)
	}
	if req.EndDate != "" {
		query.Set("end_date", req.EndDate)
	}
	if req.AsOfDate != "" {
		query.Set("as_of_date", req.AsOfDate)
	}
	endpoint := s.baseURL + "/api/v1/ssot-reports/" + req.Type.Slug()
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("reports: build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if s.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %s returned %d", ErrUpstream, req.Type.Slug(), resp.StatusCode)
	}
	return body, nil
}
