package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"regexp"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/pulsedex-labs/pqs/domain"
)

// Default patterns matched against error messages. Deployments with unusual
// upstreams can override them through NewClassifier.
const (
	DefaultTransientPattern = `(?i)timeout|network|ECONN|EAI_AGAIN|ENOTFOUND|temporarily unavailable|offline|connection re(set|fused)|bad data`
	DefaultRateLimitPattern = `(?i)\b429\b|rate limit`
)

// Classification describes how the provider pool should treat a call failure.
type Classification struct {
	// Transient failures open the endpoint circuit breaker and are retried
	// across endpoints. Non-transient failures propagate immediately.
	Transient bool
	// RateLimited failures use the longer rate-limit cooldown.
	RateLimited bool
}

// Classifier classifies RPC call errors. It is a pure function of the error.
type Classifier struct {
	transient   *regexp.Regexp
	rateLimited *regexp.Regexp
}

// NewClassifier compiles a classifier from the given message patterns.
func NewClassifier(transientPattern, rateLimitPattern string) (*Classifier, error) {
	transient, err := regexp.Compile(transientPattern)
	if err != nil {
		return nil, err
	}
	rateLimited, err := regexp.Compile(rateLimitPattern)
	if err != nil {
		return nil, err
	}
	return &Classifier{transient: transient, rateLimited: rateLimited}, nil
}

// DefaultClassifier returns a classifier with the default patterns.
func DefaultClassifier() *Classifier {
	classifier, err := NewClassifier(DefaultTransientPattern, DefaultRateLimitPattern)
	if err != nil {
		panic(err)
	}
	return classifier
}

// Classify classifies the given call error.
func (c *Classifier) Classify(err error) Classification {
	if err == nil {
		return Classification{}
	}

	// A locally rejected cooldown call is transient at the pool level so the
	// retry loop moves on to the next endpoint.
	if errors.Is(err, domain.ErrRPCCooldown) {
		return Classification{Transient: true}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Classification{Transient: true}
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == http.StatusTooManyRequests {
			return Classification{Transient: true, RateLimited: true}
		}
		if httpErr.StatusCode >= http.StatusInternalServerError {
			return Classification{Transient: true}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Classification{Transient: true}
	}

	message := err.Error()
	if c.rateLimited.MatchString(message) {
		return Classification{Transient: true, RateLimited: true}
	}
	if c.transient.MatchString(message) {
		return Classification{Transient: true}
	}

	return Classification{}
}
