// Package client sends notification requests to the dispatch endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pushboard-backend/internal/dispatch/domain"
	pushdomain "pushboard-backend/internal/push/domain"
)

// Timeout bounds every dispatch round trip.
const Timeout = 10 * time.Second

// DefaultPath is where the server mounts the dispatch endpoint.
const DefaultPath = "/api/notification"

// maxBody caps how much of a reply is read.
const maxBody = 1 << 20

// Client posts notification requests to a dispatch server.
type Client struct {
	baseURL    string
	path       string
	timeout    time.Duration
	httpClient *http.Client
}

// New creates a client for the server at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		path:       DefaultPath,
		timeout:    Timeout,
		httpClient: &http.Client{},
	}
}

// Send asks the server to deliver message to sub. It makes exactly one
// request and never retries.
func (c *Client) Send(ctx context.Context, sub *pushdomain.PushSubscription, message string) (*domain.Ack, error) {
	if sub == nil {
		return nil, &Error{Kind: KindClientUnsupported, Name: "TypeError", Detail: "no push subscription"}
	}
	if message == "" {
		return nil, &Error{Kind: KindClientUnsupported, Name: "TypeError", Detail: "message is empty"}
	}

	body, err := json.Marshal(pushdomain.NotificationRequest{Subscription: sub, Message: message})
	if err != nil {
		return nil, &Error{Kind: KindClientUnsupported, Name: "TypeError", Detail: err.Error(), Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.path, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindClientUnsupported, Name: "TypeError", Detail: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, classify(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.PushServiceError{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       respBody,
		}
	}
	return &domain.Ack{StatusCode: resp.StatusCode, Header: resp.Header, Body: respBody}, nil
}

func classify(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return &Error{Kind: KindTimeout, Name: "TimeoutError", Detail: err.Error(), Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindAborted, Name: "AbortError", Detail: err.Error(), Err: err}
	}

	cause := err
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		cause = urlErr.Err
	}
	return &Error{Kind: KindTransport, Name: fmt.Sprintf("%T", cause), Detail: cause.Error(), Err: err}
}

// PublicKeyPath is where the server publishes its VAPID public key.
const PublicKeyPath = "/api/push/vapid-public-key"

// FetchPublicKey asks the server for the applicationServerKey it signs
// dispatches with.
func (c *Client) FetchPublicKey(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+PublicKeyPath, nil)
	if err != nil {
		return "", &Error{Kind: KindClientUnsupported, Name: "TypeError", Detail: err.Error(), Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classify(err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", classify(err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &domain.PushServiceError{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
	}

	var payload struct {
		PublicKey string `json:"publicKey"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.PublicKey == "" {
		return "", &Error{Kind: KindTransport, Name: "SyntaxError", Detail: "server returned no public key", Err: err}
	}
	return payload.PublicKey, nil
}
