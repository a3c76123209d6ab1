// Package adapters defines the unified Protocol Adapter contract
// (spec §4.6, §9 "Inheritance trees for adapters... become a single
// adapter interface") and the HTTP-outcome classification and retry
// machinery every concrete adapter shares.
package adapters

import (
	"context"
	"math/rand"
	"time"

	"github.com/relayhq/llmgateway/gateway"
)

// Adapter is the one contract every protocol adapter implements.
// wireRequest/wireResponse are the plain structs transform.go
// produces/consumes (OpenAIRequest, AnthropicRequest, ...); adapters
// are the only layer that knows how to turn one into a real SDK call.
type Adapter interface {
	Call(ctx context.Context, wireRequest any) (wireResponse any, err error)
	Capabilities() gateway.Capabilities
	Close() error
}

// RetryPolicy bounds an adapter's retry behavior (§4.6 "exponential
// backoff with jitter; maximum attempts and maximum delay come from
// configuration").
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func (p RetryPolicy) defaults() RetryPolicy {
	if p.MaxRetries == 0 {
		p.MaxRetries = 2
	}
	if p.BaseDelay == 0 {
		p.BaseDelay = 250 * time.Millisecond
	}
	if p.MaxDelay == 0 {
		p.MaxDelay = 10 * time.Second
	}
	return p
}

// ClassifyStatus maps an HTTP status code to the gateway.Kind and
// retryability §4.6 specifies: 2xx success (nil, not applicable);
// 408/429/502/503/504 retryable; 401/403 fatal-auth; 400/404
// fatal-request; 409/422 UpstreamFatal (§9 Open Questions: "classify
// them as UpstreamFatal unless a provider documents otherwise"); any
// other status, including any other 5xx, is UpstreamFatal and never
// retried.
func ClassifyStatus(status int) (kind gateway.Kind, retryable bool) {
	switch status {
	case 200, 201, 202, 204:
		return "", false
	case 429:
		return gateway.KindRateLimited, true
	case 408, 502, 503, 504:
		return gateway.KindUpstreamError, true
	case 401, 403:
		return gateway.KindAuthError, false
	case 400, 404:
		return gateway.KindBadRequest, false
	case 409, 422:
		return gateway.KindUpstreamFatal, false
	default:
		if status >= 500 {
			return gateway.KindUpstreamFatal, false
		}
		return gateway.KindUpstreamFatal, false
	}
}

// Attempt is one upstream call attempt; it reports the HTTP status it
// observed (0 if the failure never reached an HTTP exchange, e.g. a
// context deadline) alongside the usual (response, error) pair.
type Attempt func(ctx context.Context) (response any, httpStatus int, err error)

// WithRetry runs attempt up to policy.MaxRetries+1 times, retrying
// only on a retryable classification and backing off exponentially
// with full jitter between tries (§4.6).
func WithRetry(ctx context.Context, policy RetryPolicy, attempt Attempt) (any, error) {
	policy = policy.defaults()

	var lastErr error
	for try := 0; try <= policy.MaxRetries; try++ {
		resp, status, err := attempt(ctx)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		kind, retryable := ClassifyStatus(status)
		if !retryable || try == policy.MaxRetries {
			if kind != "" {
				return nil, errorForKind(kind, err.Error()).WithCause(err)
			}
			return nil, err
		}

		delay := backoffWithJitter(policy.BaseDelay, policy.MaxDelay, try)
		select {
		case <-ctx.Done():
			return nil, gateway.NewTimeout("context cancelled during retry backoff").WithCause(ctx.Err())
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

// errorForKind builds a *gateway.Error of the given kind through the
// matching named constructor, so adapters never have to know about
// gateway's internal newErr.
func errorForKind(kind gateway.Kind, msg string) *gateway.Error {
	switch kind {
	case gateway.KindRateLimited:
		return gateway.NewRateLimited(msg)
	case gateway.KindAuthError:
		return gateway.NewAuthError(msg)
	case gateway.KindBadRequest:
		return gateway.NewBadRequest(msg)
	case gateway.KindUpstreamFatal:
		return gateway.NewUpstreamFatal(msg)
	case gateway.KindTimeout:
		return gateway.NewTimeout(msg)
	default:
		return gateway.NewUpstreamError(msg)
	}
}

func backoffWithJitter(base, max time.Duration, try int) time.Duration {
	d := base << try
	if d <= 0 || d > max {
		d = max
	}
	// full jitter (AWS architecture blog's recommended strategy): a
	// uniform random delay in [0, d], not d itself, to avoid every
	// retrying worker waking up in lockstep.
	return time.Duration(rand.Int63n(int64(d) + 1))
}
