package rpc

import (
	"context"
	"sync"
	"time"
)

// BenchmarkResult holds the result of a single node benchmark.
type BenchmarkResult struct {
	URL     string
	Latency time.Duration
	Height  uint64
	Err     error
}

// Benchmark health-checks all addrs in parallel. Results keep the order
// of addrs.
func Benchmark(ctx context.Context, ping PingFunc, addrs []string) []BenchmarkResult {
	results := make([]BenchmarkResult, len(addrs))
	var wg sync.WaitGroup

	for i, addr := range addrs {
		wg.Add(1)
		go func(idx int, a string) {
			defer wg.Done()
			ep, err := HealthCheck(ctx, ping, a, 0)
			results[idx] = BenchmarkResult{
				URL:     a,
				Latency: ep.Latency,
				Height:  ep.Height,
				Err:     err,
			}
		}(i, addr)
	}

	wg.Wait()
	return results
}

// ResultsToEndpoints converts benchmark results to picker Endpoints. All
// returned endpoints have Checked: true since they have been actively
// tested.
func ResultsToEndpoints(results []BenchmarkResult) []Endpoint {
	endpoints := make([]Endpoint, 0, len(results))
	for _, r := range results {
		endpoints = append(endpoints, Endpoint{
			URL:     r.URL,
			Latency: r.Latency,
			Height:  r.Height,
			Healthy: r.Err == nil,
			Checked: true,
		})
	}
	return endpoints
}

// SelectBest picks a node address from addrs using algorithm. A single
// address is returned without being contacted.
func SelectBest(ctx context.Context, ping PingFunc, addrs []string, algorithm string) (string, error) {
	if len(addrs) == 0 {
		return "", ErrNoHealthyNode
	}
	if len(addrs) == 1 {
		return addrs[0], nil
	}
	algo, err := ParseAlgorithm(algorithm)
	if err != nil {
		return "", err
	}

	endpoints := ResultsToEndpoints(Benchmark(ctx, ping, addrs))
	winner, err := NewPicker(algo).Pick(endpoints)
	if err != nil {
		return "", err
	}
	return winner.URL, nil
}
