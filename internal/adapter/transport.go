package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Transport is the seam between an adapter and the network. Grounded
// on Toolkit/Commons/http/client.go's generic HTTP client and the
// teacher's preference (cmd/superagent/main.go's CommandExecutor/
// HealthChecker) for injecting an interface at process boundaries so
// tests never need a live network.
type Transport interface {
	Do(ctx context.Context, url string, headers map[string]string, body []byte) (status int, respBody []byte, err error)
}

// httpTransport is the default Transport, a thin wrapper over
// net/http.Client — the same layering the teacher uses underneath its
// own retry/rate-limit client.
type httpTransport struct {
	client *http.Client
}

// NewHTTPTransport builds the default network Transport with the given
// per-call timeout.
func NewHTTPTransport(timeout time.Duration) Transport {
	return &httpTransport{client: &http.Client{Timeout: timeout}}
}

func (t *httpTransport) Do(ctx context.Context, url string, headers map[string]string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// wireMessage is the JSON shape of one chat message on the wire.
type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// wireErrorBody is the common envelope providers use for error bodies.
type wireErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
		Type    string `json:"type"`
	} `json:"error"`
}

func classifyHTTPStatus(provider string, status int, body []byte) error {
	var parsed wireErrorBody
	_ = json.Unmarshal(body, &parsed)
	msg := parsed.Error.Message
	if msg == "" {
		msg = string(body)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewError(provider, KindUnauthorized, msg, nil)
	case status == http.StatusTooManyRequests:
		return NewRateLimited(provider, 0, msg)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return NewError(provider, KindBadRequest, msg, nil)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return NewError(provider, KindTimeout, msg, nil)
	case status >= 500:
		return NewError(provider, KindUpstream, msg, nil)
	default:
		return NewError(provider, KindUpstream, fmt.Sprintf("unexpected status %d: %s", status, msg), nil)
	}
}
