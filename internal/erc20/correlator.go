package erc20

import (
	"strings"
	"sync"

	"github.com/Mohsinsiddi/casper-erc20/internal/events"
	"github.com/Mohsinsiddi/casper-erc20/internal/log"
	"github.com/Mohsinsiddi/casper-erc20/internal/node"
)

// OperationKind is a state changing contract call. Its value is the
// event_type the contract writes when the call succeeds.
type OperationKind string

const (
	Approve      OperationKind = "erc20_approve"
	Transfer     OperationKind = "erc20_transfer"
	TransferFrom OperationKind = "erc20_transfer_from"
	Mint         OperationKind = "erc20_mint"
)

// AllKinds lists every OperationKind.
var AllKinds = []OperationKind{Approve, Transfer, TransferFrom, Mint}

// ParseOperationKind accepts either the event_type ("erc20_transfer") or
// the short name ("transfer", "transfer-from").
func ParseOperationKind(s string) (OperationKind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	if !strings.HasPrefix(s, "erc20_") {
		s = "erc20_" + s
	}
	for _, k := range AllKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// PendingOperation is a submitted deploy that has not been reported by
// the event stream yet.
type PendingOperation struct {
	DeployHash string
	Kind       OperationKind
}

// DeployStatus is the outcome passed to an EventCallback.
type DeployStatus struct {
	DeployHash string
	Success    bool
	Error      string
}

// EventCallback receives correlated deploy outcomes. result is the event
// the contract wrote for a successful deploy, and nil for a failed one.
// For a failure, kind is the kind the deploy was submitted as; for a
// success it is the event's own event_type.
type EventCallback func(kind OperationKind, status DeployStatus, result map[string]string)

// Correlator matches DeployProcessed events against the deploys this
// client submitted. Submit may be called from any goroutine; HandleEvent
// is called from the single event delivery goroutine. Callbacks run
// without the lock held.
type Correlator struct {
	mu          sync.Mutex
	pending     []PendingOperation
	packageHash string
	active      bool
	generation  uint64
	kinds       map[OperationKind]bool
	callback    EventCallback

	metrics *Metrics
	log     log.Log
}

// NewCorrelator returns an inactive Correlator. m may be nil.
func NewCorrelator(m *Metrics) *Correlator {
	return &Correlator{metrics: m, log: log.New("erc20")}
}

// SetPackageHash sets the contract package hash events must carry.
func (c *Correlator) SetPackageHash(hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.packageHash = normalizePackageHash(hash)
}

// Submit records a deploy as pending. A hash that is already pending is
// ignored.
func (c *Correlator) Submit(kind OperationKind, deployHash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.pending {
		if p.DeployHash == deployHash {
			c.log.Debugf("deploy %s already pending", deployHash)
			return
		}
	}
	c.pending = append(c.pending, PendingOperation{DeployHash: deployHash, Kind: kind})
	c.metrics.submitted(kind)
	c.metrics.setPending(len(c.pending))
}

// Start activates the correlator for kinds and returns the generation of
// this activation. It fails with ErrAlreadySubscribed when already active.
func (c *Correlator) Start(kinds []OperationKind, cb EventCallback) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		return 0, ErrAlreadySubscribed
	}
	c.kinds = make(map[OperationKind]bool, len(kinds))
	for _, k := range kinds {
		c.kinds[k] = true
	}
	c.callback = cb
	c.active = true
	c.generation++
	return c.generation, nil
}

// Stop deactivates the correlator and clears the pending list.
func (c *Correlator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// stopGeneration stops the correlator only if gen is still the current
// activation, so a stale subscription cannot stop its successor.
func (c *Correlator) stopGeneration(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active && c.generation == gen {
		c.stopLocked()
	}
}

func (c *Correlator) stopLocked() {
	c.active = false
	c.pending = nil
	c.kinds = nil
	c.callback = nil
	c.metrics.setPending(0)
}

// Active reports whether a subscription is listening.
func (c *Correlator) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Pending returns a copy of the outstanding operations in submission
// order.
func (c *Correlator) Pending() []PendingOperation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]PendingOperation(nil), c.pending...)
}

type match struct {
	kind  OperationKind
	event map[string]string
}

// HandleEvent correlates one DeployProcessed event. Events for deploys
// that are not pending are ignored. The deploy stays in Pending until every
// callback for the event has returned.
func (c *Correlator) HandleEvent(ev events.DeployProcessed) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	idx := -1
	for i, p := range c.pending {
		if p.DeployHash == ev.DeployHash {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return
	}
	op := c.pending[idx]
	gen, cb, kinds, pkg := c.generation, c.callback, c.kinds, c.packageHash
	c.mu.Unlock()
	defer c.remove(gen, ev.DeployHash)

	switch outcome := ev.ExecutionResult.Outcome.(type) {
	case node.Failure:
		c.log.Debugf("deploy %s failed: %s", ev.DeployHash, outcome.ErrorMessage)
		c.metrics.processed(op.Kind, false)
		c.fire(gen, cb, op.Kind, DeployStatus{DeployHash: ev.DeployHash, Error: outcome.ErrorMessage}, nil)
	case node.Success:
		c.metrics.processed(op.Kind, true)
		for _, m := range c.matches(outcome.Transforms, pkg, kinds) {
			c.metrics.delivered(m.kind)
			c.fire(gen, cb, m.kind, DeployStatus{DeployHash: ev.DeployHash, Success: true}, m.event)
		}
	}
}

// remove drops a processed deploy unless a teardown already cleared the
// generation it belonged to.
func (c *Correlator) remove(gen uint64, deployHash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active || c.generation != gen {
		return
	}
	for i, p := range c.pending {
		if p.DeployHash == deployHash {
			c.pending = append(c.pending[:i:i], c.pending[i+1:]...)
			break
		}
	}
	c.metrics.setPending(len(c.pending))
}

// matches returns the contract events among transforms, in order.
func (c *Correlator) matches(transforms []node.Transform, pkg string, kinds map[OperationKind]bool) []match {
	var out []match
	for _, t := range transforms {
		if t.WriteCLValue == nil {
			continue
		}
		m, err := t.WriteCLValue.StringMap()
		if err != nil {
			c.log.Debugf("transform %s: %v", t.Key, err)
			continue
		}
		if normalizePackageHash(m["contract_package_hash"]) != pkg || pkg == "" {
			continue
		}
		kind := OperationKind(m["event_type"])
		if !kinds[kind] {
			continue
		}
		out = append(out, match{kind: kind, event: m})
	}
	return out
}

func (c *Correlator) fire(gen uint64, cb EventCallback, kind OperationKind, status DeployStatus, result map[string]string) {
	if cb == nil {
		return
	}
	c.mu.Lock()
	live := c.active && c.generation == gen
	c.mu.Unlock()
	if !live {
		return
	}
	cb(kind, status, result)
}

func normalizePackageHash(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	for _, prefix := range []string{"contract-package-wasm", "contract-package-", "hash-"} {
		if strings.HasPrefix(h, prefix) {
			return strings.TrimPrefix(h, prefix)
		}
	}
	return h
}
