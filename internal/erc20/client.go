// Package erc20 is a client for an ERC-20 style token contract installed on
// a Casper network. It reads the contract's named keys and dictionaries,
// submits contract calls and correlates their DeployProcessed events.
package erc20

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/Mohsinsiddi/casper-erc20/internal/dispatch"
	"github.com/Mohsinsiddi/casper-erc20/internal/events"
	"github.com/Mohsinsiddi/casper-erc20/internal/keys"
	"github.com/Mohsinsiddi/casper-erc20/internal/log"
	"github.com/Mohsinsiddi/casper-erc20/internal/node"
)

// DefaultContractName prefixes the contract's package and contract hash
// named keys.
const DefaultContractName = "erc20"

// Named keys read by the client.
const (
	BalancesKey   = "balances"
	AllowancesKey = "allowances"
)

// Contract fields readable with Query.
const (
	FieldName        = "name"
	FieldSymbol      = "symbol"
	FieldDecimals    = "decimals"
	FieldTotalSupply = "total_supply"
)

// ErrDeployFailed is returned by WaitForDeploy when the deploy executed
// with an error.
var ErrDeployFailed = errors.New("deploy failed")

// StateQuerier reads global state from a node.
type StateQuerier interface {
	StateRootHash(ctx context.Context) (string, error)
	QueryItem(ctx context.Context, stateRootHash, key string, path []string) (node.StoredValue, error)
	DictionaryItem(ctx context.Context, stateRootHash, seedURef, itemKey string) (node.StoredValue, error)
	AccountInfo(ctx context.Context, publicKey string) (node.Account, error)
	Deploy(ctx context.Context, deployHash string) (node.DeployInfo, error)
}

// Dispatcher builds, signs and submits deploys, returning their hash.
type Dispatcher interface {
	Install(ctx context.Context, req dispatch.InstallRequest) (string, error)
	Call(ctx context.Context, req dispatch.CallRequest) (string, error)
}

// EventSource delivers DeployProcessed events until ctx is done.
type EventSource interface {
	Subscribe(ctx context.Context, handler func(events.DeployProcessed)) error
}

// Config locates the network and the contract.
type Config struct {
	NodeAddress        string
	ChainName          string
	EventStreamAddress string
	ContractName       string
	CasperClient       string // casper-client binary, default from PATH
}

// Option customizes a Client.
type Option func(*Client)

// WithStateQuerier replaces the node client.
func WithStateQuerier(q StateQuerier) Option { return func(c *Client) { c.state = q } }

// WithDispatcher replaces the casper-client dispatcher.
func WithDispatcher(d Dispatcher) Option { return func(c *Client) { c.dispatcher = d } }

// WithEventSource replaces the node event stream.
func WithEventSource(s EventSource) Option { return func(c *Client) { c.events = s } }

// WithMetrics records deploy and event counts in m.
func WithMetrics(m *Metrics) Option { return func(c *Client) { c.metrics = m } }

// Client talks to one contract. BindContract must be called before any
// query or call, and must not run concurrently with them.
type Client struct {
	contractName string

	state      StateQuerier
	dispatcher Dispatcher
	events     EventSource
	metrics    *Metrics
	corr       *Correlator

	contractHash string
	packageHash  string
	namedKeys    map[string]string

	log log.Log
}

// NewClient returns a Client for cfg. Collaborators default to a node
// JSON-RPC client, a casper-client dispatcher and, when
// cfg.EventStreamAddress is set, the node's event stream.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		contractName: cfg.ContractName,
		log:          log.New("erc20"),
	}
	if c.contractName == "" {
		c.contractName = DefaultContractName
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.state == nil {
		c.state = node.NewClient(cfg.NodeAddress)
	}
	if c.dispatcher == nil {
		d := dispatch.NewCasperClient(cfg.NodeAddress, cfg.ChainName)
		if cfg.CasperClient != "" {
			d.Binary = cfg.CasperClient
		}
		c.dispatcher = d
	}
	if c.events == nil && cfg.EventStreamAddress != "" {
		c.events = events.NewStream(cfg.EventStreamAddress)
	}
	c.corr = NewCorrelator(c.metrics)
	return c
}

// ContractName returns the prefix of the contract's named keys.
func (c *Client) ContractName() string { return c.contractName }

// ContractHash returns the bound contract hash, "hash-" prefixed.
func (c *Client) ContractHash() string { return c.contractHash }

// PackageHash returns the bound contract's package hash without prefix.
func (c *Client) PackageHash() string { return c.packageHash }

// NamedKeys returns a copy of the named keys read on bind.
func (c *Client) NamedKeys() map[string]string {
	out := make(map[string]string, len(c.namedKeys))
	for k, v := range c.namedKeys {
		out[k] = v
	}
	return out
}

func (c *Client) namedKeyList() []string {
	return []string{
		BalancesKey,
		AllowancesKey,
		c.contractName + "_package_hash",
		c.contractName + "_package_hash_wrapped",
		c.contractName + "_contract_hash",
		c.contractName + "_contract_hash_wrapped",
		c.contractName + "_package_access_token",
	}
}

// InstallArgs are optional token parameters passed to the installer.
// Empty fields are not sent.
type InstallArgs struct {
	Name        string
	Symbol      string
	Decimals    *uint8
	TotalSupply *uint256.Int
}

func (a InstallArgs) sessionArgs(contractName string) []dispatch.Arg {
	args := []dispatch.Arg{{Name: "contract_name", Type: "string", Value: contractName}}
	if a.Name != "" {
		args = append(args, dispatch.Arg{Name: "name", Type: "string", Value: a.Name})
	}
	if a.Symbol != "" {
		args = append(args, dispatch.Arg{Name: "symbol", Type: "string", Value: a.Symbol})
	}
	if a.Decimals != nil {
		args = append(args, dispatch.Arg{Name: "decimals", Type: "u8", Value: fmt.Sprint(*a.Decimals)})
	}
	if a.TotalSupply != nil {
		args = append(args, dispatch.Arg{Name: "total_supply", Type: "u256", Value: a.TotalSupply.Dec()})
	}
	return args
}

// Install submits the contract wasm and returns the deploy hash.
func (c *Client) Install(ctx context.Context, kp keys.KeyPair, paymentAmount, wasmPath string, args InstallArgs) (string, error) {
	hash, err := c.dispatcher.Install(ctx, dispatch.InstallRequest{
		SecretKeyPath: kp.SecretKeyPath,
		PaymentAmount: paymentAmount,
		WasmPath:      wasmPath,
		Args:          args.sessionArgs(c.contractName),
	})
	if err := submissionError("install", hash, err); err != nil {
		return "", err
	}
	c.log.Debugf("install deploy %s", hash)
	return hash, nil
}

// BindContract reads the contract stored under contractHash and binds the
// client to it, replacing any previous binding.
func (c *Client) BindContract(ctx context.Context, contractHash string) error {
	key := formatContractHash(contractHash)
	root, err := c.state.StateRootHash(ctx)
	if err != nil {
		return err
	}
	sv, err := c.state.QueryItem(ctx, root, key, nil)
	if err != nil {
		return fmt.Errorf("contract %s: %w", key, err)
	}
	if sv.Contract == nil {
		return fmt.Errorf("%w: %s is not a contract", ErrDecodeFailed, key)
	}

	wanted := make(map[string]bool)
	for _, name := range c.namedKeyList() {
		wanted[name] = true
	}
	namedKeys := make(map[string]string)
	for _, nk := range sv.Contract.NamedKeys {
		if wanted[nk.Name] {
			namedKeys[nk.Name] = nk.Key
		}
	}

	c.contractHash = key
	c.packageHash = normalizePackageHash(sv.Contract.ContractPackageHash)
	c.namedKeys = namedKeys
	c.corr.SetPackageHash(c.packageHash)
	c.log.Debugf("bound %s (package %s, %d named keys)", key, c.packageHash, len(namedKeys))
	return nil
}

func formatContractHash(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return contractHashPrefix + strings.TrimPrefix(h, contractHashPrefix)
}

// Query reads a named value stored under the contract, such as "name".
func (c *Client) Query(ctx context.Context, field string) (node.CLValue, error) {
	if c.contractHash == "" {
		return node.CLValue{}, ErrNotBound
	}
	root, err := c.state.StateRootHash(ctx)
	if err != nil {
		return node.CLValue{}, err
	}
	sv, err := c.state.QueryItem(ctx, root, c.contractHash, []string{field})
	if err != nil {
		return node.CLValue{}, fmt.Errorf("%s: %w", field, err)
	}
	if sv.CLValue == nil {
		return node.CLValue{}, fmt.Errorf("%w: %s is not a CLValue", ErrDecodeFailed, field)
	}
	return *sv.CLValue, nil
}

// Name returns the token name.
func (c *Client) Name(ctx context.Context) (string, error) {
	return c.queryString(ctx, FieldName)
}

// Symbol returns the token symbol.
func (c *Client) Symbol(ctx context.Context) (string, error) {
	return c.queryString(ctx, FieldSymbol)
}

// Decimals returns the number of decimals of the token.
func (c *Client) Decimals(ctx context.Context) (uint8, error) {
	v, err := c.Query(ctx, FieldDecimals)
	if err != nil {
		return 0, err
	}
	d, err := v.Uint8()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return d, nil
}

// TotalSupply returns the token supply.
func (c *Client) TotalSupply(ctx context.Context) (*uint256.Int, error) {
	v, err := c.Query(ctx, FieldTotalSupply)
	if err != nil {
		return nil, err
	}
	return decodeU256(v)
}

func (c *Client) queryString(ctx context.Context, field string) (string, error) {
	v, err := c.Query(ctx, field)
	if err != nil {
		return "", err
	}
	s, err := v.StringValue()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return s, nil
}

// BalanceOf returns the balance of account, a hex public key. An account
// that never held tokens has a zero balance.
func (c *Client) BalanceOf(ctx context.Context, account string) (*uint256.Int, error) {
	if c.contractHash == "" {
		return nil, ErrNotBound
	}
	key, err := BalanceKey(account)
	if err != nil {
		return nil, err
	}
	return c.dictionaryU256(ctx, BalancesKey, key)
}

// Allowance returns how much spender may transfer from owner's balance.
// Both are hex public keys.
func (c *Client) Allowance(ctx context.Context, owner, spender string) (*uint256.Int, error) {
	if c.contractHash == "" {
		return nil, ErrNotBound
	}
	key, err := AllowanceKey(owner, spender)
	if err != nil {
		return nil, err
	}
	return c.dictionaryU256(ctx, AllowancesKey, key)
}

func (c *Client) dictionaryU256(ctx context.Context, dict, itemKey string) (*uint256.Int, error) {
	seed, ok := c.namedKeys[dict]
	if !ok {
		return nil, fmt.Errorf("%w: contract has no %q named key", ErrDecodeFailed, dict)
	}
	root, err := c.state.StateRootHash(ctx)
	if err != nil {
		return nil, err
	}
	sv, err := c.state.DictionaryItem(ctx, root, seed, itemKey)
	if errors.Is(err, node.ErrValueNotFound) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s[%s]: %w", dict, itemKey, err)
	}
	if sv.CLValue == nil {
		return nil, fmt.Errorf("%w: %s[%s] is not a CLValue", ErrDecodeFailed, dict, itemKey)
	}
	return decodeU256(*sv.CLValue)
}

func decodeU256(v node.CLValue) (*uint256.Int, error) {
	n, err := v.U256()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return n, nil
}

// Approve lets spender transfer up to amount from the caller's balance.
func (c *Client) Approve(ctx context.Context, kp keys.KeyPair, spender Recipient, amount *uint256.Int, paymentAmount string) (string, error) {
	return c.call(ctx, Approve, kp, "approve", paymentAmount,
		dispatch.Arg{Name: "spender", Type: "key", Value: spender.Key()},
		amountArg(amount),
	)
}

// Transfer moves amount from the caller to recipient.
func (c *Client) Transfer(ctx context.Context, kp keys.KeyPair, recipient Recipient, amount *uint256.Int, paymentAmount string) (string, error) {
	return c.call(ctx, Transfer, kp, "transfer", paymentAmount,
		dispatch.Arg{Name: "recipient", Type: "key", Value: recipient.Key()},
		amountArg(amount),
	)
}

// TransferFrom moves amount from owner to recipient using the caller's
// allowance.
func (c *Client) TransferFrom(ctx context.Context, kp keys.KeyPair, owner, recipient Recipient, amount *uint256.Int, paymentAmount string) (string, error) {
	return c.call(ctx, TransferFrom, kp, "transfer_from", paymentAmount,
		dispatch.Arg{Name: "owner", Type: "key", Value: owner.Key()},
		dispatch.Arg{Name: "recipient", Type: "key", Value: recipient.Key()},
		amountArg(amount),
	)
}

// Mint creates amount new tokens for to.
func (c *Client) Mint(ctx context.Context, kp keys.KeyPair, to Recipient, amount *uint256.Int, paymentAmount string) (string, error) {
	return c.call(ctx, Mint, kp, "mint", paymentAmount,
		dispatch.Arg{Name: "to", Type: "key", Value: to.Key()},
		amountArg(amount),
	)
}

func amountArg(amount *uint256.Int) dispatch.Arg {
	if amount == nil {
		amount = new(uint256.Int)
	}
	return dispatch.Arg{Name: "amount", Type: "u256", Value: amount.Dec()}
}

func (c *Client) call(ctx context.Context, kind OperationKind, kp keys.KeyPair, entryPoint, paymentAmount string, args ...dispatch.Arg) (string, error) {
	if c.contractHash == "" {
		return "", ErrNotBound
	}
	hash, err := c.dispatcher.Call(ctx, dispatch.CallRequest{
		SecretKeyPath: kp.SecretKeyPath,
		PaymentAmount: paymentAmount,
		ContractHash:  c.contractHash,
		EntryPoint:    entryPoint,
		Args:          args,
	})
	if err := submissionError(entryPoint, hash, err); err != nil {
		return "", err
	}
	c.corr.Submit(kind, hash)
	c.log.Debugf("%s deploy %s pending", entryPoint, hash)
	return hash, nil
}

func submissionError(op, hash string, err error) error {
	switch {
	case err != nil && errors.Is(err, ErrSubmissionFailed):
		return fmt.Errorf("%s: %w", op, err)
	case err != nil:
		return fmt.Errorf("%s: %w: %v", op, ErrSubmissionFailed, err)
	case hash == "":
		return fmt.Errorf("%s: %w: no deploy hash", op, ErrSubmissionFailed)
	}
	return nil
}

// Pending returns the deploys submitted by this client that have not been
// reported yet.
func (c *Client) Pending() []PendingOperation {
	return c.corr.Pending()
}

// Track adds a deploy submitted by another process to the pending list so
// an active subscription reports it.
func (c *Client) Track(kind OperationKind, deployHash string) error {
	raw, err := hex.DecodeString(strings.TrimPrefix(deployHash, "deploy-"))
	if err != nil || len(raw) != 32 {
		return fmt.Errorf("invalid deploy hash %q", deployHash)
	}
	c.corr.Submit(kind, hex.EncodeToString(raw))
	return nil
}

// Subscription is an active event listener.
type Subscription struct {
	cancel context.CancelFunc
	stop   func()
	once   sync.Once
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// StopListening cancels the event stream and clears the pending deploys.
// No callback fires after it returns. It is safe to call more than once,
// including from a callback.
func (s *Subscription) StopListening() {
	s.once.Do(func() {
		s.stop()
		s.cancel()
	})
}

// Done is closed once the event stream has shut down.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err returns the error that ended the event stream, if any.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Subscribe starts delivering outcomes of this client's pending deploys
// to cb. Successful deploys are reported once per contract event whose
// event_type is in kinds. Only one subscription may be active at a time.
func (c *Client) Subscribe(ctx context.Context, kinds []OperationKind, cb EventCallback) (*Subscription, error) {
	if c.events == nil {
		return nil, ErrNoEventStream
	}
	gen, err := c.corr.Start(kinds, cb)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		cancel: cancel,
		stop:   func() { c.corr.stopGeneration(gen) },
		done:   make(chan struct{}),
	}
	go func() {
		defer close(sub.done)
		err := c.events.Subscribe(ctx, c.corr.HandleEvent)
		if err != nil {
			c.log.Errorf("event stream: %v", err)
		}
		sub.mu.Lock()
		sub.err = err
		sub.mu.Unlock()
		sub.StopListening()
	}()
	return sub, nil
}

// ContractHashFromAccount returns the contract hash the installer stored
// under "<contract>_contract_hash" in the named keys of the installing
// account.
func (c *Client) ContractHashFromAccount(ctx context.Context, publicKey string) (string, error) {
	pk, err := parseAccount(publicKey)
	if err != nil {
		return "", err
	}
	acct, err := c.state.AccountInfo(ctx, pk.Hex())
	if err != nil {
		return "", err
	}
	name := c.contractName + "_contract_hash"
	hash, ok := acct.NamedKey(name)
	if !ok {
		return "", fmt.Errorf("account %s: named key %q: %w", pk.AccountHashString(), name, node.ErrValueNotFound)
	}
	return hash, nil
}

// WaitForDeploy polls the node every interval until the deploy has an
// execution result. A failed deploy returns the result together with an
// error wrapping ErrDeployFailed.
func (c *Client) WaitForDeploy(ctx context.Context, deployHash string, interval time.Duration) (node.BlockExecutionResult, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		info, err := c.state.Deploy(ctx, deployHash)
		switch {
		case errors.Is(err, node.ErrValueNotFound):
			c.log.Debugf("deploy %s not known yet", deployHash)
		case err != nil:
			return node.BlockExecutionResult{}, err
		case len(info.ExecutionResults) > 0:
			res := info.ExecutionResults[0]
			if f, ok := res.Result.Outcome.(node.Failure); ok {
				return res, fmt.Errorf("deploy %s: %w: %s", deployHash, ErrDeployFailed, f.ErrorMessage)
			}
			return res, nil
		}

		select {
		case <-ctx.Done():
			return node.BlockExecutionResult{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
