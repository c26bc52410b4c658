package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Mohsinsiddi/casper-erc20/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11101", cfg.NodeAddress)
	assert.Equal(t, "http://localhost:18101/events/main", cfg.EventStreamAddress)
	assert.Equal(t, "casper-net-1", cfg.ChainName)
	assert.Equal(t, "erc20", cfg.ContractName)
	assert.Equal(t, "fastest", cfg.RPCAlgorithm)
	assert.Equal(t, "200000000000", cfg.Payments.Install)
	assert.Equal(t, "1000000000", cfg.Payments.TransferFrom)
}

func TestSaveAndReloadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	cfg.ChainName = "casper-test"
	cfg.DefaultWallet = "master"
	cfg.ContractHash = "hash-abcd"
	cfg.Payments.Mint = "5000000000"

	require.NoError(t, cfg.Save())

	reloaded, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "casper-test", reloaded.ChainName)
	assert.Equal(t, "master", reloaded.DefaultWallet)
	assert.Equal(t, "hash-abcd", reloaded.ContractHash)
	assert.Equal(t, "5000000000", reloaded.Payments.Mint)
	assert.Equal(t, "1000000000", reloaded.Payments.Approve)
}

func TestConfigFileCreatedOnSave(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)
	require.NoError(t, cfg.Save())

	info, err := os.Stat(filepath.Join(dir, "config.json"))
	require.NoError(t, err, "config.json should be created on save")
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestConfigDir(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)
	assert.Equal(t, dir, cfg.Dir())
}

func TestConfigDirFromEnv(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "env")
	t.Setenv(config.DirEnv, dir)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Dir())
	assert.DirExists(t, dir)
}

func TestLoadFromNonExistentDir(t *testing.T) {
	dir := t.TempDir() + "/subdir"
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	// Should create dir and return defaults.
	assert.Equal(t, "casper-net-1", cfg.ChainName)
}

func TestLoadCorruptConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{"), 0o600))
	_, err := config.Load(dir)
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Environment overrides
// ---------------------------------------------------------------------------

func TestApplyEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)
	cfg.ChainName = "from-file"

	t.Setenv("CHAIN_NAME", "casper-test")
	t.Setenv("NODE_ADDRESS", "http://node:7777/rpc")
	t.Setenv("TRANSFER_FROM_PAYMENT_AMOUNT", "42")
	t.Setenv("CONTRACT_HASH", "   ")

	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "casper-test", cfg.ChainName)
	assert.Equal(t, "http://node:7777/rpc", cfg.NodeAddress)
	assert.Equal(t, "42", cfg.Payments.TransferFrom)
	assert.Empty(t, cfg.ContractHash, "blank values are ignored")
}

func TestApplyEnvDotEnv(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)

	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"WASM_PATH=/wasm/erc20_token.wasm\n"+
			"MASTER_KEY_PAIR_PATH=/keys/master\n"+
			"MINT_PAYMENT_AMOUNT=7\n"+
			"CONTRACT_NAME=from-dotenv\n"), 0o600))
	t.Setenv("CONTRACT_NAME", "from-process")

	require.NoError(t, cfg.ApplyEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "/wasm/erc20_token.wasm", cfg.WasmPath)
	assert.Equal(t, "/keys/master", cfg.MasterKeyPairPath)
	assert.Equal(t, "7", cfg.Payments.Mint)
	assert.Equal(t, "from-process", cfg.ContractName, "process environment wins over .env")
}

// ---------------------------------------------------------------------------
// Set / Values
// ---------------------------------------------------------------------------

func TestSetKnownKeys(t *testing.T) {
	cfg, _ := config.Load(t.TempDir())

	require.NoError(t, cfg.Set("chain_name", "casper"))
	require.NoError(t, cfg.Set("payments.approve", "99"))
	require.NoError(t, cfg.Set("rpc_algorithm", "failover"))

	assert.Equal(t, "casper", cfg.ChainName)
	assert.Equal(t, "99", cfg.Payments.Approve)
	assert.Equal(t, "failover", cfg.RPCAlgorithm)
}

func TestSetRejects(t *testing.T) {
	cfg, _ := config.Load(t.TempDir())
	assert.Error(t, cfg.Set("nope", "x"))
	assert.Error(t, cfg.Set("rpc_algorithm", "slowest"))
}

func TestValuesCoverKeys(t *testing.T) {
	cfg, _ := config.Load(t.TempDir())
	values := cfg.Values()
	assert.Len(t, values, len(config.Keys()))
	assert.Equal(t, [2]string{"node_address", "http://localhost:11101"}, values[0])
}

// ---------------------------------------------------------------------------
// Nodes
// ---------------------------------------------------------------------------

func TestAddAndRemoveNodes(t *testing.T) {
	cfg, _ := config.Load(t.TempDir())

	require.NoError(t, cfg.AddNode("http://n1:11101"))
	require.NoError(t, cfg.AddNode("http://n2:11101"))
	assert.Error(t, cfg.AddNode("http://n1:11101"))
	assert.Error(t, cfg.AddNode(cfg.NodeAddress))

	assert.Equal(t, []string{"http://localhost:11101", "http://n1:11101", "http://n2:11101"}, cfg.NodeAddresses())

	require.NoError(t, cfg.RemoveNode("http://n1:11101"))
	assert.Error(t, cfg.RemoveNode("http://n1:11101"))
	assert.Equal(t, []string{"http://localhost:11101", "http://n2:11101"}, cfg.NodeAddresses())
}

func TestWalletsPath(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)
	assert.Equal(t, filepath.Join(dir, "wallets.json"), cfg.WalletsPath())
}
