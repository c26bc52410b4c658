// Package events subscribes to a Casper node's event stream and decodes
// DeployProcessed notifications.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/r3labs/sse/v2"
	"gopkg.in/cenkalti/backoff.v1"

	"github.com/Mohsinsiddi/casper-erc20/internal/log"
	"github.com/Mohsinsiddi/casper-erc20/internal/node"
)

// MainPath is the node endpoint carrying deploy and block events.
const MainPath = "/events/main"

// DeployProcessed reports that a deploy was executed in a block.
type DeployProcessed struct {
	DeployHash      string               `json:"deploy_hash"`
	Account         string               `json:"account"`
	BlockHash       string               `json:"block_hash"`
	ExecutionResult node.ExecutionResult `json:"execution_result"`
}

// Success reports whether the deploy executed without error.
func (d DeployProcessed) Success() bool {
	_, ok := d.ExecutionResult.Outcome.(node.Success)
	return ok
}

// Decode parses one event stream message. ok is false for any message that
// is not a DeployProcessed event, such as the initial ApiVersion message.
func Decode(data []byte) (ev DeployProcessed, ok bool, err error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return DeployProcessed{}, false, fmt.Errorf("event envelope: %w", err)
	}
	body, ok := envelope["DeployProcessed"]
	if !ok {
		return DeployProcessed{}, false, nil
	}
	if err := json.Unmarshal(body, &ev); err != nil {
		return DeployProcessed{}, false, fmt.Errorf("DeployProcessed: %w", err)
	}
	if ev.DeployHash == "" {
		return DeployProcessed{}, false, errors.New("DeployProcessed: missing deploy_hash")
	}
	if ev.ExecutionResult.Outcome == nil {
		return DeployProcessed{}, false, errors.New("DeployProcessed: missing execution_result")
	}
	return ev, true, nil
}

// DefaultMaxEventSize bounds a single event stream message. DeployProcessed
// events of deploys with many transforms easily exceed the 64KB default of
// the SSE reader.
const DefaultMaxEventSize = 16 << 20

// ErrStreamClosed is returned when the node keeps closing the event stream
// and reconnecting gives up.
var ErrStreamClosed = errors.New("event stream closed by node")

// Stream is a node event stream. It satisfies the erc20.EventSource
// interface.
type Stream struct {
	URL          string
	MaxEventSize int

	newBackOff func() backoff.BackOff
	log        log.Log
}

// NewStream returns a Stream for addr. A bare node address such as
// http://localhost:18101 gets MainPath appended.
func NewStream(addr string) *Stream {
	addr = strings.TrimRight(addr, "/")
	if !strings.Contains(addr, "/events") {
		addr += MainPath
	}
	return &Stream{
		URL:          addr,
		MaxEventSize: DefaultMaxEventSize,
		log:          log.New("events"),
	}
}

// Subscribe delivers every DeployProcessed event to handler, one at a time
// in arrival order. Messages that fail to decode are skipped. Subscribe
// blocks until ctx is done and returns nil on cancellation.
//
// Failed connections are retried with exponential backoff. A stream the
// node closes cleanly is reopened the same way; once the backoff gives up
// without a DeployProcessed event in between, ErrStreamClosed is returned.
func (s *Stream) Subscribe(ctx context.Context, handler func(DeployProcessed)) error {
	size := s.MaxEventSize
	if size <= 0 {
		size = DefaultMaxEventSize
	}
	client := sse.NewClient(s.URL, sse.ClientMaxBufferSize(size))
	client.ReconnectStrategy = backoff.WithContext(s.backOff(), ctx)
	client.ReconnectNotify = func(err error, next time.Duration) {
		s.log.Warnf("event stream %s: %v, reconnecting in %s", s.URL, err, next)
	}

	reopen := backoff.WithContext(s.backOff(), ctx)
	reopen.Reset()
	for {
		delivered := false
		s.log.Debugf("subscribing to %s", s.URL)
		err := client.SubscribeRawWithContext(ctx, func(msg *sse.Event) {
			if msg == nil || len(msg.Data) == 0 {
				return
			}
			ev, ok, err := Decode(msg.Data)
			if err != nil {
				s.log.Debugf("skipping malformed event %s: %v", msg.ID, err)
				return
			}
			if !ok {
				s.log.Debugf("skipping event %s", firstKey(msg.Data))
				return
			}
			delivered = true
			handler(ev)
		})
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("event stream %s: %w", s.URL, err)
		}

		// The node ended the response without an error.
		if delivered {
			reopen.Reset()
		}
		next := reopen.NextBackOff()
		if next == backoff.Stop {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: %s", ErrStreamClosed, s.URL)
		}
		s.log.Warnf("event stream %s closed by node, reconnecting in %s", s.URL, next)
		t := time.NewTimer(next)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

func (s *Stream) backOff() backoff.BackOff {
	if s.newBackOff == nil {
		return backoff.NewExponentialBackOff()
	}
	return s.newBackOff()
}

func firstKey(data []byte) string {
	var envelope map[string]json.RawMessage
	if json.Unmarshal(data, &envelope) != nil {
		return "?"
	}
	for k := range envelope {
		return k
	}
	return "?"
}
