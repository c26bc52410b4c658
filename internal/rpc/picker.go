// Package rpc chooses among several Casper node addresses by latency and
// block height.
package rpc

import (
	"errors"
	"sync"
	"time"
)

// ErrNoHealthyNode is returned when no healthy node is available.
var ErrNoHealthyNode = errors.New("no healthy node available")

// Algorithm defines how a node is selected.
type Algorithm string

const (
	AlgorithmFastest    Algorithm = "fastest"
	AlgorithmRoundRobin Algorithm = "round-robin"
	AlgorithmFailover   Algorithm = "failover"

	// Discard nodes more than this many blocks behind the highest.
	staleBlockThreshold = 3
	// Cache the winner for this long before picking again.
	cacheTTL = 5 * time.Minute
)

// ParseAlgorithm maps a config value to an Algorithm. Empty means fastest.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(s); a {
	case "":
		return AlgorithmFastest, nil
	case AlgorithmFastest, AlgorithmRoundRobin, AlgorithmFailover:
		return a, nil
	}
	return "", errors.New("unknown node selection algorithm: " + s)
}

// Endpoint is a node address with its measured attributes.
type Endpoint struct {
	URL     string
	Latency time.Duration
	Height  uint64 // height of the last block the node added
	Healthy bool   // meaningful only when Checked == true
	Checked bool   // true when the node has been health-checked
}

// Picker selects a node according to the configured algorithm.
type Picker struct {
	algo        Algorithm
	mu          sync.Mutex
	rrIndex     int
	cachedURL   string
	cacheExpiry time.Time
	now         func() time.Time
}

// NewPicker creates a new Picker with the given algorithm.
func NewPicker(algo Algorithm) *Picker {
	return &Picker{algo: algo, now: time.Now}
}

// Pick selects an endpoint from the provided list according to the
// algorithm.
func (p *Picker) Pick(endpoints []Endpoint) (*Endpoint, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoHealthyNode
	}

	switch p.algo {
	case AlgorithmRoundRobin:
		return p.pickRoundRobin(endpoints)
	case AlgorithmFailover:
		return p.pickFailover(endpoints)
	default:
		return p.pickFastest(endpoints)
	}
}

// pickFastest selects the best scoring healthy node that is not stale,
// caching the winner for cacheTTL.
func (p *Picker) pickFastest(endpoints []Endpoint) (*Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	candidates := healthyEndpoints(endpoints)
	if p.cachedURL != "" && p.now().Before(p.cacheExpiry) {
		for _, e := range candidates {
			if e.URL == p.cachedURL {
				return e, nil
			}
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoHealthyNode
	}

	best := maxHeight(candidates)
	var winner *Endpoint
	var bestScore float64
	for _, e := range candidates {
		if best-e.Height > staleBlockThreshold {
			continue
		}
		s := score(e, best)
		if winner == nil || s > bestScore {
			winner = e
			bestScore = s
		}
	}
	if winner == nil {
		return nil, ErrNoHealthyNode
	}

	p.cachedURL = winner.URL
	p.cacheExpiry = p.now().Add(cacheTTL)
	return winner, nil
}

// pickRoundRobin cycles through all healthy endpoints.
func (p *Picker) pickRoundRobin(endpoints []Endpoint) (*Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	healthy := healthyEndpoints(endpoints)
	if len(healthy) == 0 {
		return nil, ErrNoHealthyNode
	}

	idx := p.rrIndex % len(healthy)
	p.rrIndex = (idx + 1) % len(healthy)
	return healthy[idx], nil
}

// pickFailover returns the first endpoint not known to be unhealthy, in
// configured order.
func (p *Picker) pickFailover(endpoints []Endpoint) (*Endpoint, error) {
	for i := range endpoints {
		e := &endpoints[i]
		if e.Checked && !e.Healthy {
			continue
		}
		return e, nil
	}
	return nil, ErrNoHealthyNode
}

// --- scoring ---

// score favours low latency; every block behind the highest node costs a
// point.
func score(e *Endpoint, best uint64) float64 {
	var s float64
	if e.Latency > 0 {
		s += 1.0 / e.Latency.Seconds()
	}
	s -= float64(best - e.Height)
	return s
}

func maxHeight(endpoints []*Endpoint) uint64 {
	var best uint64
	for _, e := range endpoints {
		if e.Height > best {
			best = e.Height
		}
	}
	return best
}

// healthyEndpoints returns endpoints eligible for selection. An endpoint
// that was never checked stays a candidate.
func healthyEndpoints(endpoints []Endpoint) []*Endpoint {
	var out []*Endpoint
	for i := range endpoints {
		e := &endpoints[i]
		if !e.Checked || e.Healthy {
			out = append(out, e)
		}
	}
	return out
}
