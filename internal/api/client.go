package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/saravenpi/haggle/internal/session"
)

const (
	RouteListConversations session.Route = "conversations.list"
	RouteStartConversation session.Route = "conversations.start"
	RouteGetConversation   session.Route = "conversations.get"
	RouteMarkRead          session.Route = "conversations.read"
	RouteReadReceipts      session.Route = "conversations.receipts"
	RouteRecentMessages    session.Route = "messages.recent"
	RouteOlderMessages     session.Route = "messages.older"
	RouteSendMessage       session.Route = "messages.send"
	RouteSendImage         session.Route = "messages.image"
	RouteDeleteMessage     session.Route = "messages.delete"
)

// UserRoutes lists every route signed with the user's token.
func UserRoutes() []session.Route {
	return []session.Route{
		RouteListConversations, RouteStartConversation, RouteGetConversation, RouteMarkRead,
		RouteReadReceipts, RouteRecentMessages, RouteOlderMessages, RouteSendMessage,
		RouteSendImage, RouteDeleteMessage,
	}
}

type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	BreakerFailures   uint32
	BreakerTimeout    time.Duration
}

// Client talks to the marketplace REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	signers    *session.Signers
	log        *zap.Logger
}

func NewClient(baseURL string, signers *session.Signers, logger *zap.Logger, opts Options) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	var transport http.RoundTripper = http.DefaultTransport
	transport = newBreakerTransport(transport, logger, opts)
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		transport = limitedTransport{next: transport, limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		signers: signers,
		log:     logger,
	}
}

type request struct {
	route       session.Route
	method      string
	path        string
	body        io.Reader
	contentType string
}

// send performs req and returns the raw body of a 2xx response.
func (c *Client) send(ctx context.Context, r request) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if c.signers != nil {
		if err := c.signers.Sign(r.route, req); err != nil {
			return nil, fmt.Errorf("failed to sign request: %w", err)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("request failed",
			zap.String("route", string(r.route)),
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	c.log.Debug("request done",
		zap.String("route", string(r.route)),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(r.route, resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrNetwork, err)
	}
	return data, nil
}

func (c *Client) sendJSON(ctx context.Context, r request, in, out any) error {
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		r.body = bytes.NewReader(body)
		r.contentType = "application/json"
	}

	data, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", r.route, err)
	}
	return nil
}

type limitedTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
}

func (t limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(req)
}

type upstreamStatusError struct {
	status int
}

func (e upstreamStatusError) Error() string {
	return fmt.Sprintf("upstream status %d", e.status)
}

type breakerTransport struct {
	next http.RoundTripper
	cb   *gobreaker.CircuitBreaker
}

func newBreakerTransport(next http.RoundTripper, logger *zap.Logger, opts Options) breakerTransport {
	failures := opts.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	st := gobreaker.Settings{
		Name:        "marketplace-api",
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("circuit breaker state", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}
	return breakerTransport{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

// RoundTrip counts transport errors and 5xx responses against the breaker. A 5xx response
// is still handed back to the caller so its error body can be decoded.
func (t breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	res, err := t.cb.Execute(func() (interface{}, error) {
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return resp, upstreamStatusError{status: resp.StatusCode}
		}
		return resp, nil
	})

	var statusErr upstreamStatusError
	if err != nil && !errors.As(err, &statusErr) {
		return nil, err
	}
	if resp, ok := res.(*http.Response); ok {
		return resp, nil
	}
	return nil, errors.New("invalid roundtrip result")
}
