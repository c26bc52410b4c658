package events

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/cenkalti/backoff.v1"

	"github.com/Mohsinsiddi/casper-erc20/internal/node"
)

const (
	failurePayload = `{"DeployProcessed":{"deploy_hash":"0xabc","account":"01aa","block_hash":"b1",
		"execution_result":{"Failure":{"effect":{"transforms":[]},"cost":"1","error_message":"out of gas"}}}}`
	successPayload = `{"DeployProcessed":{"deploy_hash":"d2","account":"01aa","block_hash":"b2",
		"execution_result":{"Success":{"effect":{"transforms":[
			{"key":"uref-1-007","transform":{"WriteCLValue":{"cl_type":{"Map":{"key":"String","value":"String"}},"bytes":"",
				"parsed":[{"key":"event_type","value":"erc20_transfer"}]}}}]},"cost":"2"}}}}`
)

// ---------------------------------------------------------------------------
// Decode
// ---------------------------------------------------------------------------

func TestDecodeFailure(t *testing.T) {
	ev, ok, err := Decode([]byte(failurePayload))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0xabc", ev.DeployHash)
	assert.False(t, ev.Success())
	f, isFailure := ev.ExecutionResult.Outcome.(node.Failure)
	require.True(t, isFailure)
	assert.Equal(t, "out of gas", f.ErrorMessage)
}

func TestDecodeSuccess(t *testing.T) {
	ev, ok, err := Decode([]byte(successPayload))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, ev.Success())
	s := ev.ExecutionResult.Outcome.(node.Success)
	require.Len(t, s.Transforms, 1)
	m, err := s.Transforms[0].WriteCLValue.StringMap()
	require.NoError(t, err)
	assert.Equal(t, "erc20_transfer", m["event_type"])
}

func TestDecodeOtherKinds(t *testing.T) {
	for _, data := range []string{
		`{"ApiVersion":"1.4.8"}`,
		`{"BlockAdded":{"block_hash":"b"}}`,
		`{"FinalitySignature":{}}`,
	} {
		_, ok, err := Decode([]byte(data))
		assert.NoError(t, err, data)
		assert.False(t, ok, data)
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, data := range []string{
		`not json`,
		`{"DeployProcessed":{"deploy_hash":"d","execution_result":{}}}`,
		`{"DeployProcessed":{"execution_result":{"Failure":{"error_message":"x"}}}}`,
		`{"DeployProcessed":[]}`,
	} {
		_, ok, err := Decode([]byte(data))
		assert.Error(t, err, data)
		assert.False(t, ok, data)
	}
}

// ---------------------------------------------------------------------------
// Stream
// ---------------------------------------------------------------------------

func TestNewStreamPath(t *testing.T) {
	assert.Equal(t, "http://localhost:18101/events/main", NewStream("http://localhost:18101").URL)
	assert.Equal(t, "http://localhost:18101/events/main", NewStream("http://localhost:18101/").URL)
	assert.Equal(t, "http://n:9999/events/main", NewStream("http://n:9999/events/main").URL)
}

// sseServer serves scripted connections: the n-th request (from 0) gets
// conns[n] messages, later requests repeat the last script. Every response
// but the last ends cleanly; with hold the last stays open until the client
// goes away.
type sseServer struct {
	*httptest.Server
	connections atomic.Int32
}

func newSSEServer(t *testing.T, hold bool, conns ...[]string) *sseServer {
	t.Helper()
	srv := &sseServer{}
	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, MainPath, r.URL.Path)
		n := int(srv.connections.Add(1)) - 1
		last := n >= len(conns)-1
		if last {
			n = len(conns) - 1
		}
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		for i, m := range conns[n] {
			fmt.Fprintf(w, "id:%d\ndata:%s\n\n", i, m)
		}
		flusher.Flush()
		if last && hold {
			<-r.Context().Done()
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func oneLine(s string) string {
	return strings.NewReplacer("\n", "", "\t", "").Replace(s)
}

func fastStream(url string, b func() backoff.BackOff) *Stream {
	s := NewStream(url)
	s.newBackOff = b
	return s
}

func TestStreamSubscribeDeliversDeployProcessedOnly(t *testing.T) {
	srv := newSSEServer(t, true, []string{
		`{"ApiVersion":"1.4.8"}`,
		`garbage`,
		oneLine(failurePayload),
		`{"BlockAdded":{}}`,
		oneLine(successPayload),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var got []DeployProcessed
	err := NewStream(srv.URL).Subscribe(ctx, func(ev DeployProcessed) {
		got = append(got, ev)
		if len(got) == 2 {
			cancel()
		}
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "0xabc", got[0].DeployHash)
	assert.Equal(t, "d2", got[1].DeployHash)
}

func TestDecodeMissingExecutionResult(t *testing.T) {
	_, ok, err := Decode([]byte(`{"DeployProcessed":{"deploy_hash":"d"}}`))
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestStreamLargeEventKeepsConnection(t *testing.T) {
	big := `{"DeployProcessed":{"deploy_hash":"other","account":"01aa","block_hash":"b0",` +
		`"execution_result":{"Failure":{"effect":{"transforms":[]},"cost":"1","error_message":"` +
		strings.Repeat("x", 200<<10) + `"}}}}`
	srv := newSSEServer(t, true, []string{big, oneLine(failurePayload)})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var got []string
	err := NewStream(srv.URL).Subscribe(ctx, func(ev DeployProcessed) {
		got = append(got, ev.DeployHash)
		if len(got) == 2 {
			cancel()
		}
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"other", "0xabc"}, got)
	assert.EqualValues(t, 1, srv.connections.Load())
}

func TestStreamReopensAfterCleanClose(t *testing.T) {
	srv := newSSEServer(t, true,
		[]string{`{"ApiVersion":"1.4.8"}`},
		[]string{`{"ApiVersion":"1.4.8"}`, oneLine(failurePayload)},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var got []string
	s := fastStream(srv.URL, func() backoff.BackOff { return backoff.NewConstantBackOff(5 * time.Millisecond) })
	err := s.Subscribe(ctx, func(ev DeployProcessed) {
		got = append(got, ev.DeployHash)
		cancel()
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"0xabc"}, got)
	assert.EqualValues(t, 2, srv.connections.Load())
}

func TestStreamClosedRepeatedly(t *testing.T) {
	srv := newSSEServer(t, false, []string{`{"ApiVersion":"1.4.8"}`})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := fastStream(srv.URL, func() backoff.BackOff {
		return backoff.WithMaxTries(backoff.NewConstantBackOff(time.Millisecond), 2)
	})
	err := s.Subscribe(ctx, func(DeployProcessed) { t.Error("no DeployProcessed expected") })
	require.ErrorIs(t, err, ErrStreamClosed)
	assert.EqualValues(t, 3, srv.connections.Load())
	assert.NoError(t, ctx.Err())
}

func TestStreamCancelledWhileNodeDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := NewStream(srv.URL).Subscribe(ctx, func(DeployProcessed) {})
	assert.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
