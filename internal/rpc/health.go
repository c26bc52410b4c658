package rpc

import (
	"context"
	"time"

	"github.com/Mohsinsiddi/casper-erc20/internal/node"
)

// HealthTimeout bounds a single health check.
const HealthTimeout = 5 * time.Second

// PingFunc measures a node's status round trip and returns the height of
// its last added block.
type PingFunc func(ctx context.Context, addr string) (time.Duration, uint64, error)

// NodePing pings addr through the node JSON-RPC client.
func NodePing(ctx context.Context, addr string) (time.Duration, uint64, error) {
	return node.NewClient(addr).Ping(ctx)
}

// HealthCheck pings a single node and returns whether it's healthy. A
// node is healthy if it responds within HealthTimeout and its height is
// within staleBlockThreshold of best (pass 0 to skip the recency check).
func HealthCheck(ctx context.Context, ping PingFunc, addr string, best uint64) (Endpoint, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, HealthTimeout)
	defer cancel()

	latency, height, err := ping(timeoutCtx, addr)

	ep := Endpoint{
		URL:     addr,
		Latency: latency,
		Height:  height,
		Healthy: err == nil,
		Checked: true,
	}
	if err == nil && best > height && best-height > staleBlockThreshold {
		ep.Healthy = false
	}
	return ep, err
}
