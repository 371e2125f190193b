package client

import "context"

// NodeClient re-exports the internal client interface for test fakes.
type NodeClient = nodeClient

// WithDialFunc overrides how the pool dials endpoints. Test-only.
func (p *Pool) WithDialFunc(dial func(ctx context.Context, url string) (NodeClient, error)) {
	p.dial = dial
}

// EndpointFailedUntil returns the circuit-breaker deadline of the i-th endpoint.
func (p *Pool) EndpointFailedUntil(i int) int64 {
	return p.endpoints[i].failedUntil.Load()
}
