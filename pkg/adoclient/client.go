// Package adoclient implements the ADO HTTP Client (C1): typed
// GET/POST/PATCH/DELETE against Azure DevOps REST, scoped to a fixed
// (organization, project), with bearer token injection, proactive rate
// limiting, retry-with-backoff, circuit breaking, and the normative
// HTTP-status error mapping (spec §4.1).
package adoclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/adomcp/bridge/pkg/adoerrors"
	"github.com/adomcp/bridge/pkg/collab"
	"github.com/adomcp/bridge/pkg/config"
)

// Client is the stateless-beyond-the-token-cache ADO REST client (spec
// §5 "The ADO HTTP Client is stateless beyond the token cache"). One
// Client instance is scoped to a single (organization, project) pair.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiVersion string
	org        string
	project    string

	tokens collab.TokenProvider
	logger collab.Logger

	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker

	getDeadline   time.Duration
	writeDeadline time.Duration

	retryMaxAttempts int
	retryBackoffBase time.Duration
	retryBackoffCap  time.Duration
	retryJitter      float64
}

// Options configures a Client. Zero-valued fields fall back to the
// defaults named in spec §4.1/§5.
type Options struct {
	BaseURL    string
	APIVersion string
	Org        string
	Project    string

	HTTPClient *http.Client
	Tokens     collab.TokenProvider
	Logger     collab.Logger

	RateLimitPerSecond float64
	RateLimitBurst     int

	BreakerConsecutiveFailures uint32
	BreakerOpenTimeout         time.Duration

	GetDeadline   time.Duration
	WriteDeadline time.Duration

	RetryMaxAttempts int
	RetryBackoffBase time.Duration
	RetryBackoffCap  time.Duration
	RetryJitter      float64
}

// New constructs a Client. The circuit breaker trips after
// BreakerConsecutiveFailures consecutive upstream failures and stays open
// for BreakerOpenTimeout before probing again, so a misbehaving upstream
// can't be hammered by every concurrent caller at once.
func New(opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.APIVersion == "" {
		opts.APIVersion = "7.1"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://dev.azure.com"
	}
	if opts.GetDeadline == 0 {
		opts.GetDeadline = 30 * time.Second
	}
	if opts.WriteDeadline == 0 {
		opts.WriteDeadline = 60 * time.Second
	}
	if opts.RetryMaxAttempts == 0 {
		opts.RetryMaxAttempts = 3
	}
	if opts.RetryBackoffBase == 0 {
		opts.RetryBackoffBase = 500 * time.Millisecond
	}
	if opts.RetryBackoffCap == 0 {
		opts.RetryBackoffCap = 5 * time.Second
	}
	if opts.RetryJitter == 0 {
		opts.RetryJitter = 0.25
	}
	if opts.RateLimitPerSecond == 0 {
		opts.RateLimitPerSecond = 10
	}
	if opts.RateLimitBurst == 0 {
		opts.RateLimitBurst = 20
	}
	if opts.BreakerConsecutiveFailures == 0 {
		opts.BreakerConsecutiveFailures = 5
	}
	if opts.BreakerOpenTimeout == 0 {
		opts.BreakerOpenTimeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = collab.NoopLogger{}
	}

	breakerSettings := gobreaker.Settings{
		Name: "ado-client",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerConsecutiveFailures
		},
		Timeout: opts.BreakerOpenTimeout,
	}

	return &Client{
		httpClient:       opts.HTTPClient,
		baseURL:          opts.BaseURL,
		apiVersion:       opts.APIVersion,
		org:              opts.Org,
		project:          opts.Project,
		tokens:           opts.Tokens,
		logger:           opts.Logger,
		limiter:          rate.NewLimiter(rate.Limit(opts.RateLimitPerSecond), opts.RateLimitBurst),
		breaker:          gobreaker.NewCircuitBreaker(breakerSettings),
		getDeadline:      opts.GetDeadline,
		writeDeadline:    opts.WriteDeadline,
		retryMaxAttempts: opts.RetryMaxAttempts,
		retryBackoffBase: opts.RetryBackoffBase,
		retryBackoffCap:  opts.RetryBackoffCap,
		retryJitter:      opts.RetryJitter,
	}
}

// contentTypeJSONPatch is used for field-update PATCH bodies; everything
// else uses application/json (spec §4.1).
const contentTypeJSONPatch = "application/json-patch+json"
const contentTypeJSON = "application/json"

// Get issues a GET against relPath (relative to
// https://dev.azure.com/{org}/{project}/_apis/), retrying idempotent
// failures per spec §4.1, and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, relPath string, out any) error {
	return c.doWithRetry(ctx, func(ctx context.Context) error {
		return c.doOnce(ctx, http.MethodGet, relPath, nil, contentTypeJSON, out, c.getDeadline)
	}, true)
}

// Post issues a POST with a JSON body, decoding the JSON response into out.
func (c *Client) Post(ctx context.Context, relPath string, body any, out any) error {
	return c.doWithRetry(ctx, func(ctx context.Context) error {
		return c.doOnce(ctx, http.MethodPost, relPath, body, contentTypeJSON, out, c.writeDeadline)
	}, false)
}

// Patch issues a PATCH with body encoded using contentType ("" defaults
// to application/json-patch+json, the shape every field-update PATCH
// uses per spec §4.1).
func (c *Client) Patch(ctx context.Context, relPath string, body any, contentType string, out any) error {
	if contentType == "" {
		contentType = contentTypeJSONPatch
	}
	return c.doWithRetry(ctx, func(ctx context.Context) error {
		return c.doOnce(ctx, http.MethodPatch, relPath, body, contentType, out, c.writeDeadline)
	}, false)
}

// Delete issues a DELETE against relPath (used for both work-item removal
// and, with destroy=true in relPath's query string, permanent deletion).
func (c *Client) Delete(ctx context.Context, relPath string, out any) error {
	return c.doWithRetry(ctx, func(ctx context.Context) error {
		return c.doOnce(ctx, http.MethodDelete, relPath, nil, contentTypeJSON, out, c.writeDeadline)
	}, false)
}

func (c *Client) doOnce(ctx context.Context, method, relPath string, body any, contentType string, out any, deadline time.Duration) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return adoerrors.Wrap(adoerrors.Network, "rate limiter wait", err)
	}

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	url := c.resolveURL(relPath)

	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return adoerrors.Wrap(adoerrors.Validation, "encoding request body", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return adoerrors.Wrap(adoerrors.Validation, "building request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	token, err := c.tokens.GetToken(ctx, config.ADOTokenResource)
	if err != nil {
		return adoerrors.Wrap(adoerrors.Auth, "acquiring bearer token", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	result, breakerErr := c.breaker.Execute(func() (any, error) {
		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return nil, classifyTransportError(doErr)
		}
		defer resp.Body.Close()

		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, adoerrors.Wrap(adoerrors.Network, "reading response body", readErr)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, errorForStatus(resp.StatusCode, resp.Header.Get("Retry-After"), respBody)
		}
		return respBody, nil
	})
	if breakerErr != nil {
		if breakerErr == gobreaker.ErrOpenState || breakerErr == gobreaker.ErrTooManyRequests {
			return adoerrors.Wrap(adoerrors.Upstream, "ado circuit breaker open", breakerErr)
		}
		return breakerErr
	}

	if out == nil {
		return nil
	}
	respBody, _ := result.([]byte)
	if len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return adoerrors.Wrap(adoerrors.Upstream, "decoding response body", err)
	}
	return nil
}

func (c *Client) resolveURL(relPath string) string {
	return fmt.Sprintf("%s/%s/%s/_apis/%s", c.baseURL, c.org, c.project, relPath)
}

func classifyTransportError(err error) *adoerrors.Error {
	return adoerrors.Wrap(adoerrors.Network, "ado request transport failure", err)
}
