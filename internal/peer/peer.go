// Package peer talks to remote analysis peers over HTTP. Retries, timeouts
// and circuit breaking come from the shared service client; this package
// only speaks the wire shapes.
package peer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/querywarden/querywarden/internal/analysis"
	"github.com/querywarden/querywarden/internal/client"
)

const maxBodySize = 1 << 20

// Client analyzes queries against one remote peer.
type Client struct {
	name  string
	base  string
	token string
	http  *http.Client
	svc   *client.Client
}

// New builds a peer client. name keys the peer's circuit breaker; base is
// the peer's root URL without a trailing slash.
func New(name, base, token string, svc *client.Client) *Client {
	return &Client{
		name:  name,
		base:  base,
		token: token,
		http:  &http.Client{},
		svc:   svc,
	}
}

func (c *Client) Name() string { return c.name }

// Analyze submits a query to the peer's analyze endpoint. A 4xx from the
// peer comes back as a peer-validation error and is never retried.
func (c *Client) Analyze(ctx context.Context, req analysis.Request) (analysis.Result, error) {
	resp := c.svc.Do(ctx, c.name, func(ctx context.Context) (any, error) {
		return c.post(ctx, "/v1/analyze", req)
	})
	if !resp.OK() {
		return analysis.Result{}, analysis.NewError(resp.Code, fmt.Sprintf("peer %s", c.name), fmt.Errorf("%s", resp.Error))
	}
	result, ok := resp.Data.(analysis.Result)
	if !ok {
		return analysis.Result{}, analysis.NewError(analysis.CodeInternalInconsistency,
			fmt.Sprintf("peer %s returned unexpected payload", c.name), nil)
	}
	return result, nil
}

// post performs one attempt. Non-2xx maps to StatusError so the service
// client can tell 5xx/429 (retry) from other 4xx (reject).
func (c *Client) post(ctx context.Context, path string, payload any) (analysis.Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return analysis.Result{}, fmt.Errorf("marshal peer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return analysis.Result{}, fmt.Errorf("build peer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "querywarden-peer/1.0")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return analysis.Result{}, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		return analysis.Result{}, fmt.Errorf("read peer response: %w", err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return analysis.Result{}, &client.StatusError{
			StatusCode: httpResp.StatusCode,
			Message:    errorMessage(data),
		}
	}

	var envelope struct {
		Status string          `json:"status"`
		Data   analysis.Result `json:"data"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return analysis.Result{}, fmt.Errorf("parse peer response: %w", err)
	}
	if envelope.Status != "success" {
		return analysis.Result{}, fmt.Errorf("peer reported failure: %s", envelope.Error)
	}
	return envelope.Data, nil
}

func errorMessage(body []byte) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}

// Pool tries peers in order until one answers. Validation rejections stop
// the walk; availability failures move on to the next peer.
type Pool struct {
	peers []*Client
}

func NewPool(peers []*Client) *Pool { return &Pool{peers: peers} }

func (p *Pool) Empty() bool { return p == nil || len(p.peers) == 0 }

func (p *Pool) Analyze(ctx context.Context, req analysis.Request) (analysis.Result, error) {
	if p.Empty() {
		return analysis.Result{}, analysis.NewError(analysis.CodeProviderUnavailable, "no analysis peers configured", nil)
	}
	var lastErr error
	for _, peer := range p.peers {
		result, err := peer.Analyze(ctx, req)
		if err == nil {
			return result, nil
		}
		if analysis.CodeOf(err) == analysis.CodePeerValidation {
			return analysis.Result{}, err
		}
		lastErr = err
	}
	return analysis.Result{}, lastErr
}
