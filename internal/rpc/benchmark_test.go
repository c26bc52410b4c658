package rpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePing serves canned results keyed by address.
func fakePing(results map[string]BenchmarkResult) PingFunc {
	return func(_ context.Context, addr string) (time.Duration, uint64, error) {
		r, ok := results[addr]
		if !ok {
			return 0, 0, errors.New("connection refused")
		}
		return r.Latency, r.Height, r.Err
	}
}

func TestBenchmarkPreservesOrder(t *testing.T) {
	ping := fakePing(map[string]BenchmarkResult{
		"http://a:7777": {Latency: 20 * time.Millisecond, Height: 10},
		"http://b:7777": {Latency: 5 * time.Millisecond, Height: 11},
	})

	results := Benchmark(context.Background(), ping, []string{"http://b:7777", "http://down:7777", "http://a:7777"})
	require.Len(t, results, 3)

	assert.Equal(t, "http://b:7777", results[0].URL)
	assert.Equal(t, uint64(11), results[0].Height)
	assert.Equal(t, "http://down:7777", results[1].URL)
	assert.Error(t, results[1].Err)
	assert.Equal(t, "http://a:7777", results[2].URL)
	assert.Equal(t, 20*time.Millisecond, results[2].Latency)
}

func TestResultsToEndpoints(t *testing.T) {
	endpoints := ResultsToEndpoints([]BenchmarkResult{
		{URL: "http://ok:7777", Latency: 50 * time.Millisecond, Height: 7},
		{URL: "http://down:7777", Err: errors.New("timeout")},
	})
	require.Len(t, endpoints, 2)

	assert.Equal(t, Endpoint{URL: "http://ok:7777", Latency: 50 * time.Millisecond, Height: 7, Healthy: true, Checked: true}, endpoints[0])
	assert.False(t, endpoints[1].Healthy)
	assert.True(t, endpoints[1].Checked)
}

func TestResultsToEndpointsEmpty(t *testing.T) {
	assert.Empty(t, ResultsToEndpoints(nil))
}

func TestSelectBestSingleAddress(t *testing.T) {
	ping := func(context.Context, string) (time.Duration, uint64, error) {
		t.Fatal("single address should not be pinged")
		return 0, 0, nil
	}
	addr, err := SelectBest(context.Background(), ping, []string{"http://only:7777"}, "fastest")
	require.NoError(t, err)
	assert.Equal(t, "http://only:7777", addr)
}

func TestSelectBestNoAddresses(t *testing.T) {
	_, err := SelectBest(context.Background(), fakePing(nil), nil, "fastest")
	assert.ErrorIs(t, err, ErrNoHealthyNode)
}

func TestSelectBestFastestSkipsDownAndStale(t *testing.T) {
	ping := fakePing(map[string]BenchmarkResult{
		"http://slow:7777":  {Latency: 80 * time.Millisecond, Height: 500},
		"http://stale:7777": {Latency: 2 * time.Millisecond, Height: 480},
	})
	addr, err := SelectBest(context.Background(), ping,
		[]string{"http://down:7777", "http://stale:7777", "http://slow:7777"}, "fastest")
	require.NoError(t, err)
	assert.Equal(t, "http://slow:7777", addr)
}

func TestSelectBestAllDown(t *testing.T) {
	_, err := SelectBest(context.Background(), fakePing(nil), []string{"http://a:7777", "http://b:7777"}, "failover")
	assert.ErrorIs(t, err, ErrNoHealthyNode)
}

func TestSelectBestUnknownAlgorithm(t *testing.T) {
	_, err := SelectBest(context.Background(), fakePing(nil), []string{"http://a:7777", "http://b:7777"}, "lottery")
	assert.Error(t, err)
}
