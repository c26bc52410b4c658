package node

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jrpc "github.com/AdamSLevy/jsonrpc2/v14"

	"github.com/Mohsinsiddi/casper-erc20/internal/log"
)

// ErrValueNotFound is returned when global state has nothing under the
// queried key, e.g. a dictionary item that was never written.
var ErrValueNotFound = errors.New("value not found")

// DefaultTimeout bounds every node request.
const DefaultTimeout = 15 * time.Second

// Client makes JSON-RPC requests to a Casper node's /rpc endpoint. Client
// embeds a jsonrpc2.Client, and thus also the http.Client, so transport
// settings can be tuned directly.
type Client struct {
	URL string
	jrpc.Client

	log log.Log
}

// RPCPath is the node's JSON-RPC endpoint.
const RPCPath = "/rpc"

// NewClient returns a Client for the node at addr. Both
// http://localhost:11101 and http://localhost:11101/rpc are accepted.
func NewClient(addr string) *Client {
	c := &Client{URL: RPCURL(addr), log: log.New("node")}
	c.Timeout = DefaultTimeout
	return c
}

// RPCURL returns addr with RPCPath appended when it is missing.
func RPCURL(addr string) string {
	addr = strings.TrimRight(addr, "/")
	if strings.HasSuffix(addr, RPCPath) {
		return addr
	}
	return addr + RPCPath
}

func (c *Client) request(ctx context.Context, method string, params, result interface{}) error {
	c.log.Debugf("%s -> %s", method, c.URL)
	if err := c.Client.Request(ctx, c.URL, method, params, result); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%s: %w: %v", method, ErrValueNotFound, err)
		}
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// A jrpc.Error carries the node's message; anything else is a transport
// failure.
func isNotFound(err error) bool {
	var rpcErr jrpc.Error
	if !errors.As(err, &rpcErr) {
		return false
	}
	msg := rpcErr.Message
	return strings.Contains(msg, "ValueNotFound") ||
		strings.Contains(msg, "Failed to find base key") ||
		strings.Contains(msg, "No such dictionary item") ||
		strings.Contains(msg, "No such deploy")
}

// StateRootHash returns the state root hash of the latest block.
func (c *Client) StateRootHash(ctx context.Context) (string, error) {
	var res struct {
		StateRootHash string `json:"state_root_hash"`
	}
	if err := c.request(ctx, "chain_get_state_root_hash", nil, &res); err != nil {
		return "", err
	}
	if res.StateRootHash == "" {
		return "", fmt.Errorf("chain_get_state_root_hash: empty state root hash")
	}
	return res.StateRootHash, nil
}

// QueryItem returns the value stored under key, following path through
// named keys.
func (c *Client) QueryItem(ctx context.Context, stateRootHash, key string, path []string) (StoredValue, error) {
	if path == nil {
		path = []string{}
	}
	params := map[string]interface{}{
		"state_root_hash": stateRootHash,
		"key":             key,
		"path":            path,
	}
	var res struct {
		StoredValue StoredValue `json:"stored_value"`
	}
	if err := c.request(ctx, "state_get_item", params, &res); err != nil {
		return StoredValue{}, err
	}
	return res.StoredValue, nil
}

// DictionaryItem returns the value stored under itemKey in the dictionary
// seeded by seedURef.
func (c *Client) DictionaryItem(ctx context.Context, stateRootHash, seedURef, itemKey string) (StoredValue, error) {
	params := map[string]interface{}{
		"state_root_hash": stateRootHash,
		"dictionary_identifier": map[string]interface{}{
			"URef": map[string]string{
				"seed_uref":           seedURef,
				"dictionary_item_key": itemKey,
			},
		},
	}
	var res struct {
		DictionaryKey string      `json:"dictionary_key"`
		StoredValue   StoredValue `json:"stored_value"`
	}
	if err := c.request(ctx, "state_get_dictionary_item", params, &res); err != nil {
		return StoredValue{}, err
	}
	return res.StoredValue, nil
}

// AccountInfo returns the account owned by publicKey (tagged hex).
func (c *Client) AccountInfo(ctx context.Context, publicKey string) (Account, error) {
	params := map[string]interface{}{"public_key": publicKey}
	var res struct {
		Account Account `json:"account"`
	}
	if err := c.request(ctx, "state_get_account_info", params, &res); err != nil {
		return Account{}, err
	}
	return res.Account, nil
}

// Deploy returns a deploy and any execution results known for it.
func (c *Client) Deploy(ctx context.Context, deployHash string) (DeployInfo, error) {
	params := map[string]interface{}{"deploy_hash": deployHash}
	var res DeployInfo
	if err := c.request(ctx, "info_get_deploy", params, &res); err != nil {
		return DeployInfo{}, err
	}
	return res, nil
}

// Status returns the node status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var res Status
	if err := c.request(ctx, "info_get_status", nil, &res); err != nil {
		return Status{}, err
	}
	return res, nil
}

// Ping measures a status round trip and returns the height of the last
// block the node added.
func (c *Client) Ping(ctx context.Context) (latency time.Duration, height uint64, err error) {
	start := time.Now()
	st, err := c.Status(ctx)
	latency = time.Since(start)
	if err != nil {
		return latency, 0, err
	}
	if st.LastAddedBlockInfo == nil {
		return latency, 0, fmt.Errorf("node has no blocks yet")
	}
	return latency, st.LastAddedBlockInfo.Height, nil
}
