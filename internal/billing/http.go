package billing

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Response is an upstream reply.
type Response interface {
	StatusCode() int
	ReadBody() ([]byte, error)
}

// Requester issues GET requests against the portal. A zero timeout leaves the
// call bounded only by ctx. Implementations must be safe for concurrent use.
type Requester interface {
	Get(ctx context.Context, endpoint string, params url.Values, timeout time.Duration) (Response, error)
}

// NewHTTPClient creates an HTTP client with optional TLS configuration.
// A zero timeout means no client-wide deadline; per-call bounds are applied
// by HTTPRequester.
func NewHTTPClient(timeout time.Duration, skipTLSVerify bool) *http.Client {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}

	if skipTLSVerify {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// HTTPRequester implements Requester over an *http.Client.
type HTTPRequester struct {
	Client *http.Client
}

// NewHTTPRequester wraps client, or a default client when nil.
func NewHTTPRequester(client *http.Client) *HTTPRequester {
	if client == nil {
		client = NewHTTPClient(0, false)
	}
	return &HTTPRequester{Client: client}
}

// Get implements Requester. The body is read eagerly so the per-call
// deadline also covers the transfer.
func (r *HTTPRequester) Get(ctx context.Context, endpoint string, params url.Values, timeout time.Duration) (Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", u.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u.Path, err)
	}
	return &bufferedResponse{status: resp.StatusCode, body: body}, nil
}

type bufferedResponse struct {
	status int
	body   []byte
}

func (r *bufferedResponse) StatusCode() int { return r.status }

func (r *bufferedResponse) ReadBody() ([]byte, error) { return r.body, nil }
