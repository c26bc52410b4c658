package e2e_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var binaryPath string

const (
	contractHash = "hash-00000000000000000000000000000000000000000000000000000000000000c1"
	packageHash  = "00000000000000000000000000000000000000000000000000000000000000a1"
	deployHash   = "4f1c000000000000000000000000000000000000000000000000000000000d01"
	publicKey    = "010102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20"
)

func TestMain(m *testing.M) {
	tmp, err := os.MkdirTemp("", "casper-erc20-e2e")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmp)

	binaryPath = filepath.Join(tmp, "erc20")
	moduleRoot, err := filepath.Abs(filepath.Join("..", ".."))
	if err != nil {
		panic(err)
	}
	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Dir = moduleRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("build failed: " + string(out))
	}

	os.Exit(m.Run())
}

// runCLI runs the binary in an empty working directory with its config in
// configDir. env entries override the inherited environment.
func runCLI(t *testing.T, configDir string, env []string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Dir = t.TempDir()
	cmd.Env = append(os.Environ(), "CASPER_ERC20_CONFIG_DIR="+configDir)
	cmd.Env = append(cmd.Env, env...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// fakeNode answers the JSON-RPC methods the CLI reads.
func fakeNode(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
			Params struct {
				Path []string `json:"path"`
			} `json:"params"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}

		var result string
		switch req.Method {
		case "chain_get_state_root_hash":
			result = `{"state_root_hash":"0000000000000000000000000000000000000000000000000000000000000f00"}`
		case "info_get_status":
			result = `{"chainspec_name":"casper-net-1","api_version":"1.5.6","last_added_block_info":{"height":812}}`
		case "state_get_dictionary_item":
			result = `{"stored_value":{"CLValue":{"cl_type":"U256","parsed":"42"}}}`
		case "state_get_item":
			result = storedItem(req.Params.Path)
		default:
			t.Errorf("unexpected method %s", req.Method)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":%s}`, req.ID, result)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func storedItem(path []string) string {
	if len(path) == 0 {
		return `{"stored_value":{"Contract":{
			"contract_package_hash":"contract-package-wasm` + packageHash + `",
			"named_keys":[
				{"name":"balances","key":"uref-00000000000000000000000000000000000000000000000000000000000000b1-007"},
				{"name":"allowances","key":"uref-00000000000000000000000000000000000000000000000000000000000000b2-007"}
			]}}}`
	}
	values := map[string]string{
		"name":         `{"cl_type":"String","parsed":"Casper Test Token"}`,
		"symbol":       `{"cl_type":"String","parsed":"CTT"}`,
		"decimals":     `{"cl_type":"U8","parsed":9}`,
		"total_supply": `{"cl_type":"U256","parsed":"1000000000"}`,
	}
	return `{"stored_value":{"CLValue":` + values[path[0]] + `}}`
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), nil, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "erc20")
	assert.Contains(t, out, "0.3.0")
}

func TestHelpListsCommands(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), nil, "--help")
	require.NoError(t, err)
	for _, c := range []string{"install", "contract-hash", "bind", "info", "balance", "allowance",
		"approve", "transfer", "transfer-from", "mint", "watch", "wallet", "node", "config"} {
		assert.Contains(t, out, c)
	}
}

func TestConfigSetAndShow(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, nil, "config", "set", "chain_name", "casper-test")
	require.NoError(t, err)

	out, err := runCLI(t, dir, nil, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "casper-test")

	out, err = runCLI(t, dir, []string{"CHAIN_NAME=from-env"}, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "from-env")
}

func TestInfoWithoutContract(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), []string{"CONTRACT_HASH="}, "info")
	require.Error(t, err)
	assert.Contains(t, out, "no contract hash")
}

func TestInfoAndBalance(t *testing.T) {
	node := fakeNode(t)
	env := []string{"NODE_ADDRESS=" + node.URL, "CONTRACT_HASH=" + contractHash}
	dir := t.TempDir()

	out, err := runCLI(t, dir, env, "info")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Casper Test Token")
	assert.Contains(t, out, "CTT")
	assert.Contains(t, out, "1000000000")

	out, err = runCLI(t, dir, env, "balance", publicKey)
	require.NoError(t, err, out)
	assert.Contains(t, out, "42")

	out, err = runCLI(t, dir, env, "balance", "not-a-key")
	require.Error(t, err)
	assert.Contains(t, out, "invalid account identifier")
}

func TestNodeStatus(t *testing.T) {
	node := fakeNode(t)
	out, err := runCLI(t, t.TempDir(), []string{"NODE_ADDRESS=" + node.URL}, "node", "status")
	require.NoError(t, err, out)
	assert.Contains(t, out, "812")
	assert.Contains(t, out, "casper-net-1")
}

func TestTransferSendsDeploy(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake casper-client is a shell script")
	}
	node := fakeNode(t)

	bin := t.TempDir()
	argsFile := filepath.Join(bin, "args")
	script := filepath.Join(bin, "casper-client")
	require.NoError(t, os.WriteFile(script, []byte(`#!/bin/sh
echo "$@" > `+argsFile+`
echo '{"jsonrpc":"2.0","id":1,"result":{"api_version":"1.5.6","deploy_hash":"`+deployHash+`"}}'
`), 0o755))

	keyDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(keyDir, "public_key_hex"), []byte(publicKey), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(keyDir, "secret_key.pem"), []byte("secret"), 0o600))

	env := []string{
		"NODE_ADDRESS=" + node.URL,
		"CONTRACT_HASH=" + contractHash,
		"CASPER_CLIENT=" + script,
		"CHAIN_NAME=casper-test",
	}
	out, err := runCLI(t, t.TempDir(), env, "transfer", publicKey, "25", "--yes", "--key-dir", keyDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, deployHash)
	assert.Contains(t, out, "erc20 watch erc20_transfer:"+deployHash)

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	got := string(args)
	assert.True(t, strings.HasPrefix(got, "put-deploy"), got)
	assert.Contains(t, got, "--node-address "+node.URL)
	assert.Contains(t, got, "--chain-name casper-test")
	assert.Contains(t, got, "--session-hash "+contractHash)
	assert.Contains(t, got, "--session-entry-point transfer")
	assert.Contains(t, got, "amount:u256='25'")
}
