// Package dispatch submits deploys through the casper-client binary, which
// builds, signs and sends them to a node.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/Mohsinsiddi/casper-erc20/internal/log"
)

// DefaultBinary is looked up on PATH when no binary is configured.
const DefaultBinary = "casper-client"

// ErrSubmissionFailed is returned when a deploy was not accepted, i.e. no
// deploy hash came back.
var ErrSubmissionFailed = errors.New("deploy submission failed")

// Arg is a runtime argument passed to a session.
type Arg struct {
	Name  string
	Type  string // casper-client simple type: string, u8, u256, key, ...
	Value string
}

// Flag renders the argument in the name:type='value' form.
func (a Arg) Flag() (string, error) {
	if a.Name == "" || a.Type == "" {
		return "", fmt.Errorf("session arg %q: name and type are required", a.Name)
	}
	if strings.ContainsRune(a.Value, '\'') {
		return "", fmt.Errorf("session arg %q: value may not contain a single quote", a.Name)
	}
	return fmt.Sprintf("%s:%s='%s'", a.Name, a.Type, a.Value), nil
}

// InstallRequest is a module bytes deploy.
type InstallRequest struct {
	SecretKeyPath string
	PaymentAmount string
	WasmPath      string
	Args          []Arg
}

// CallRequest is a deploy calling an entry point of a stored contract.
type CallRequest struct {
	SecretKeyPath string
	PaymentAmount string
	ContractHash  string
	EntryPoint    string
	Args          []Arg
}

// Runner executes name with args and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// CasperClient submits deploys with `casper-client put-deploy`. It
// satisfies the erc20.Dispatcher interface.
type CasperClient struct {
	Binary      string
	NodeAddress string
	ChainName   string

	run Runner
	log log.Log
}

// NewCasperClient returns a CasperClient for the given node and chain.
func NewCasperClient(nodeAddress, chainName string) *CasperClient {
	return &CasperClient{
		Binary:      DefaultBinary,
		NodeAddress: nodeAddress,
		ChainName:   chainName,
		run:         execRunner,
		log:         log.New("dispatch"),
	}
}

// WithRunner replaces the process runner. Tests use it to avoid spawning
// casper-client.
func (c *CasperClient) WithRunner(r Runner) *CasperClient {
	c.run = r
	return c
}

// Install submits a module bytes deploy and returns its hash.
func (c *CasperClient) Install(ctx context.Context, req InstallRequest) (string, error) {
	if req.WasmPath == "" {
		return "", fmt.Errorf("install: wasm path is required")
	}
	args, err := c.commonArgs(req.SecretKeyPath, req.PaymentAmount)
	if err != nil {
		return "", err
	}
	args = append(args, "--session-path", req.WasmPath)
	if args, err = appendSessionArgs(args, req.Args); err != nil {
		return "", err
	}
	return c.putDeploy(ctx, args)
}

// Call submits a stored contract call and returns the deploy hash.
func (c *CasperClient) Call(ctx context.Context, req CallRequest) (string, error) {
	if req.EntryPoint == "" {
		return "", fmt.Errorf("call: entry point is required")
	}
	hash := strings.TrimPrefix(req.ContractHash, "hash-")
	if hash == "" {
		return "", fmt.Errorf("call %s: contract hash is required", req.EntryPoint)
	}
	args, err := c.commonArgs(req.SecretKeyPath, req.PaymentAmount)
	if err != nil {
		return "", err
	}
	args = append(args,
		"--session-hash", "hash-"+hash,
		"--session-entry-point", req.EntryPoint,
	)
	if args, err = appendSessionArgs(args, req.Args); err != nil {
		return "", err
	}
	return c.putDeploy(ctx, args)
}

func (c *CasperClient) commonArgs(secretKeyPath, paymentAmount string) ([]string, error) {
	if secretKeyPath == "" {
		return nil, fmt.Errorf("secret key path is required")
	}
	if paymentAmount == "" {
		return nil, fmt.Errorf("payment amount is required")
	}
	return []string{
		"put-deploy",
		"--node-address", strings.TrimSuffix(strings.TrimRight(c.NodeAddress, "/"), "/rpc"),
		"--chain-name", c.ChainName,
		"--secret-key", secretKeyPath,
		"--payment-amount", paymentAmount,
	}, nil
}

func appendSessionArgs(args []string, session []Arg) ([]string, error) {
	for _, a := range session {
		flag, err := a.Flag()
		if err != nil {
			return nil, err
		}
		args = append(args, "--session-arg", flag)
	}
	return args, nil
}

func (c *CasperClient) putDeploy(ctx context.Context, args []string) (string, error) {
	binary := c.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	c.log.Debugf("%s %s", binary, strings.Join(args, " "))

	out, err := c.run(ctx, binary, args...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}
	hash, err := ParseDeployHash(out)
	if err != nil {
		return "", err
	}
	c.log.Debugf("deploy %s submitted", hash)
	return hash, nil
}

// ParseDeployHash extracts result.deploy_hash from casper-client output.
// Any non-JSON preamble before the response object is ignored.
func ParseDeployHash(out []byte) (string, error) {
	if i := bytes.IndexByte(out, '{'); i > 0 {
		out = out[i:]
	}
	var res struct {
		Result struct {
			DeployHash string `json:"deploy_hash"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(out, &res); err != nil {
		return "", fmt.Errorf("%w: unreadable casper-client output: %v", ErrSubmissionFailed, err)
	}
	if res.Error != nil {
		return "", fmt.Errorf("%w: %s (code %d)", ErrSubmissionFailed, res.Error.Message, res.Error.Code)
	}
	if res.Result.DeployHash == "" {
		return "", fmt.Errorf("%w: no deploy hash returned", ErrSubmissionFailed)
	}
	return res.Result.DeployHash, nil
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}
