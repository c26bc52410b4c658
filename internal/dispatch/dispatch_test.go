package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okOutput = `{"jsonrpc":"2.0","id":-123,"result":{"api_version":"1.4.8","deploy_hash":"5f2a"}}`

type recorder struct {
	name string
	args []string
	out  string
	err  error
}

func (r *recorder) run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.name = name
	r.args = args
	return []byte(r.out), r.err
}

func newTestClient(rec *recorder) *CasperClient {
	return NewCasperClient("http://localhost:11101/rpc", "casper-net-1").WithRunner(rec.run)
}

// ---------------------------------------------------------------------------
// Arg
// ---------------------------------------------------------------------------

func TestArgFlag(t *testing.T) {
	f, err := Arg{Name: "amount", Type: "u256", Value: "100"}.Flag()
	require.NoError(t, err)
	assert.Equal(t, "amount:u256='100'", f)

	f, err = Arg{Name: "name", Type: "string", Value: "My Token"}.Flag()
	require.NoError(t, err)
	assert.Equal(t, "name:string='My Token'", f)
}

func TestArgFlagRejects(t *testing.T) {
	_, err := Arg{Type: "u256", Value: "1"}.Flag()
	assert.Error(t, err)
	_, err = Arg{Name: "amount", Value: "1"}.Flag()
	assert.Error(t, err)
	_, err = Arg{Name: "name", Type: "string", Value: "it's"}.Flag()
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Install / Call
// ---------------------------------------------------------------------------

func TestInstallArgs(t *testing.T) {
	rec := &recorder{out: okOutput}
	hash, err := newTestClient(rec).Install(context.Background(), InstallRequest{
		SecretKeyPath: "/keys/secret_key.pem",
		PaymentAmount: "200000000000",
		WasmPath:      "/wasm/erc20_token.wasm",
		Args:          []Arg{{Name: "contract_name", Type: "string", Value: "erc20"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "5f2a", hash)
	assert.Equal(t, DefaultBinary, rec.name)
	assert.Equal(t, []string{
		"put-deploy",
		"--node-address", "http://localhost:11101",
		"--chain-name", "casper-net-1",
		"--secret-key", "/keys/secret_key.pem",
		"--payment-amount", "200000000000",
		"--session-path", "/wasm/erc20_token.wasm",
		"--session-arg", "contract_name:string='erc20'",
	}, rec.args)
}

func TestCallArgs(t *testing.T) {
	rec := &recorder{out: okOutput}
	c := newTestClient(rec)
	c.Binary = "/opt/casper/bin/casper-client"
	hash, err := c.Call(context.Background(), CallRequest{
		SecretKeyPath: "/keys/secret_key.pem",
		PaymentAmount: "1000000000",
		ContractHash:  "hash-abcd",
		EntryPoint:    "transfer",
		Args: []Arg{
			{Name: "recipient", Type: "key", Value: "account-hash-11"},
			{Name: "amount", Type: "u256", Value: "5"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "5f2a", hash)
	assert.Equal(t, "/opt/casper/bin/casper-client", rec.name)
	assert.Equal(t, []string{
		"put-deploy",
		"--node-address", "http://localhost:11101",
		"--chain-name", "casper-net-1",
		"--secret-key", "/keys/secret_key.pem",
		"--payment-amount", "1000000000",
		"--session-hash", "hash-abcd",
		"--session-entry-point", "transfer",
		"--session-arg", "recipient:key='account-hash-11'",
		"--session-arg", "amount:u256='5'",
	}, rec.args)
}

func TestCallBareContractHash(t *testing.T) {
	rec := &recorder{out: okOutput}
	_, err := newTestClient(rec).Call(context.Background(), CallRequest{
		SecretKeyPath: "k", PaymentAmount: "1", ContractHash: "abcd", EntryPoint: "mint",
	})
	require.NoError(t, err)
	assert.Contains(t, rec.args, "hash-abcd")
}

func TestCallValidation(t *testing.T) {
	rec := &recorder{out: okOutput}
	c := newTestClient(rec)
	ctx := context.Background()

	_, err := c.Call(ctx, CallRequest{SecretKeyPath: "k", PaymentAmount: "1", ContractHash: "hash-a"})
	assert.Error(t, err)
	_, err = c.Call(ctx, CallRequest{SecretKeyPath: "k", PaymentAmount: "1", EntryPoint: "mint"})
	assert.Error(t, err)
	_, err = c.Call(ctx, CallRequest{PaymentAmount: "1", ContractHash: "hash-a", EntryPoint: "mint"})
	assert.Error(t, err)
	_, err = c.Install(ctx, InstallRequest{SecretKeyPath: "k", WasmPath: "w"})
	assert.Error(t, err)
	assert.Nil(t, rec.args, "nothing may be run for an invalid request")
}

func TestSubmissionFailures(t *testing.T) {
	req := CallRequest{SecretKeyPath: "k", PaymentAmount: "1", ContractHash: "hash-a", EntryPoint: "mint"}
	cases := map[string]*recorder{
		"process error": {err: errors.New("exit status 1")},
		"empty hash":    {out: `{"jsonrpc":"2.0","id":1,"result":{"api_version":"1.4.8","deploy_hash":""}}`},
		"rpc error":     {out: `{"jsonrpc":"2.0","id":1,"error":{"code":-32008,"message":"invalid deploy"}}`},
		"not json":      {out: "error: connection refused"},
	}
	for name, rec := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := newTestClient(rec).Call(context.Background(), req)
			assert.ErrorIs(t, err, ErrSubmissionFailed)
		})
	}
}

func TestParseDeployHashSkipsPreamble(t *testing.T) {
	hash, err := ParseDeployHash([]byte("warning: something\n" + okOutput))
	require.NoError(t, err)
	assert.Equal(t, "5f2a", hash)
}
