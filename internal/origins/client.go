// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

package origins

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/votarena/internal/metrics"
	"github.com/tomtom215/votarena/internal/models"
)

// maxErrorBodySize limits how much of an upstream error response is read for
// diagnostics, preventing unbounded allocation on large error pages.
const maxErrorBodySize = 64 * 1024

// originClient is the shared HTTP layer for NetworkPerCall adapters. It owns
// the per-call timeout, an outbound rate limiter, and the translation of
// transport failures into the origin error taxonomy.
type originClient struct {
	http    *http.Client
	limiter *rate.Limiter
	timeout time.Duration
}

// newOriginClient builds a client with the given per-call timeout and rate
// limit. rps <= 0 disables throttling.
func newOriginClient(timeout time.Duration, rps float64, burst int) *originClient {
	var limiter *rate.Limiter
	if rps > 0 {
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return &originClient{
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
		timeout: timeout,
	}
}

// getJSON performs a GET against the origin and decodes the JSON body into
// out. key is the lookup key used for error context. A 404 maps to
// NotFoundError; timeouts and transport failures map to UnavailableError.
func (c *originClient) getJSON(ctx context.Context, source models.Source, reqURL, key string, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &UnavailableError{Source: source, Reason: "rate limiter wait aborted", Err: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return &UnavailableError{Source: source, Reason: "create request failed", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.OriginRequestDuration.WithLabelValues(string(source)).Observe(time.Since(start).Seconds())
	if err != nil {
		if isTimeout(err) {
			metrics.OriginRequests.WithLabelValues(string(source), "unavailable").Inc()
			return &UnavailableError{Source: source, Reason: "request timeout", Err: err}
		}
		metrics.OriginRequests.WithLabelValues(string(source), "unavailable").Inc()
		return &UnavailableError{Source: source, Reason: "transport error", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		metrics.OriginRequests.WithLabelValues(string(source), "not_found").Inc()
		return &NotFoundError{Source: source, Key: key}
	case resp.StatusCode != http.StatusOK:
		body := readBodyForError(resp.Body)
		metrics.OriginRequests.WithLabelValues(string(source), "unavailable").Inc()
		return &UnavailableError{
			Source: source,
			Reason: "status " + resp.Status + ": " + string(body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.OriginRequests.WithLabelValues(string(source), "unavailable").Inc()
		return &UnavailableError{Source: source, Reason: "decode response failed", Err: err}
	}

	metrics.OriginRequests.WithLabelValues(string(source), "success").Inc()
	return nil
}

// isTimeout classifies context deadline and net-level timeout errors.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// readBodyForError reads at most maxErrorBodySize bytes for error reporting.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		body = append(body, []byte("... (truncated)")...)
	}
	return body
}
