package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultNodeAddress        = "http://localhost:11101"
	defaultEventStreamAddress = "http://localhost:18101/events/main"
	defaultChainName          = "casper-net-1"
	defaultContractName       = "erc20"
	defaultAlgorithm          = "fastest"
	defaultInstallPayment     = "200000000000"
	defaultCallPayment        = "1000000000"

	// DirEnv overrides the default config directory.
	DirEnv = "CASPER_ERC20_CONFIG_DIR"

	configFile  = "config.json"
	walletsFile = "wallets.json"
)

// Load reads config from dir (or creates defaults). dir defaults to
// $CASPER_ERC20_CONFIG_DIR, then ~/.casper-erc20.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = os.Getenv(DirEnv)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".casper-erc20")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	path := filepath.Join(dir, configFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.configDir = dir
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	return saveJSON(filepath.Join(c.configDir, configFile), c)
}

// ApplyEnv overrides config values from the environment. Each dotenv file
// that exists is read first; variables already set in the process
// environment win over the files. Empty values are ignored.
func (c *Config) ApplyEnv(dotenv ...string) error {
	fileVars := make(map[string]string)
	for _, path := range dotenv {
		vars, err := godotenv.Read(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		for k, v := range vars {
			if _, seen := fileVars[k]; !seen {
				fileVars[k] = v
			}
		}
	}

	for _, f := range fields {
		v, ok := os.LookupEnv(f.env)
		if !ok {
			v = fileVars[f.env]
		}
		if v = strings.TrimSpace(v); v != "" {
			*f.value(c) = v
		}
	}
	return nil
}

// Set assigns a config value by its JSON key, e.g. "chain_name" or
// "payments.mint".
func (c *Config) Set(key, value string) error {
	if key == "rpc_algorithm" && !slices.Contains(Algorithms, value) {
		return fmt.Errorf("unknown algorithm %q (want one of %s)", value, strings.Join(Algorithms, ", "))
	}
	for _, f := range fields {
		if f.key == key {
			*f.value(c) = value
			return nil
		}
	}
	return fmt.Errorf("unknown config key %q (want one of %s)", key, strings.Join(Keys(), ", "))
}

// Values returns every settable key with its current value, in a stable
// order.
func (c *Config) Values() [][2]string {
	out := make([][2]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, [2]string{f.key, *f.value(c)})
	}
	return out
}

// Keys returns the settable config keys, sorted.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, f.key)
	}
	sort.Strings(keys)
	return keys
}

// AddNode adds an extra node address used by node selection.
func (c *Config) AddNode(addr string) error {
	if addr == c.NodeAddress || slices.Contains(c.Nodes, addr) {
		return fmt.Errorf("node %s already configured", addr)
	}
	c.Nodes = append(c.Nodes, addr)
	return nil
}

// RemoveNode removes an extra node address.
func (c *Config) RemoveNode(addr string) error {
	idx := slices.Index(c.Nodes, addr)
	if idx == -1 {
		return fmt.Errorf("node %s not found", addr)
	}
	c.Nodes = slices.Delete(c.Nodes, idx, idx+1)
	return nil
}

// NodeAddresses returns the primary node address followed by the extra
// ones, without duplicates.
func (c *Config) NodeAddresses() []string {
	var out []string
	for _, a := range append([]string{c.NodeAddress}, c.Nodes...) {
		if a != "" && !slices.Contains(out, a) {
			out = append(out, a)
		}
	}
	return out
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// WalletsPath returns the path of wallets.json.
func (c *Config) WalletsPath() string {
	return filepath.Join(c.configDir, walletsFile)
}

// --- helpers ---

// Algorithms are the accepted rpc_algorithm values.
var Algorithms = []string{"fastest", "round-robin", "failover"}

// field binds a JSON key to its environment variable.
type field struct {
	key   string
	env   string
	value func(*Config) *string
}

var fields = []field{
	{"node_address", "NODE_ADDRESS", func(c *Config) *string { return &c.NodeAddress }},
	{"event_stream_address", "EVENT_STREAM_ADDRESS", func(c *Config) *string { return &c.EventStreamAddress }},
	{"chain_name", "CHAIN_NAME", func(c *Config) *string { return &c.ChainName }},
	{"contract_name", "CONTRACT_NAME", func(c *Config) *string { return &c.ContractName }},
	{"contract_hash", "CONTRACT_HASH", func(c *Config) *string { return &c.ContractHash }},
	{"wasm_path", "WASM_PATH", func(c *Config) *string { return &c.WasmPath }},
	{"master_key_pair_path", "MASTER_KEY_PAIR_PATH", func(c *Config) *string { return &c.MasterKeyPairPath }},
	{"casper_client", "CASPER_CLIENT", func(c *Config) *string { return &c.CasperClient }},
	{"default_wallet", "DEFAULT_WALLET", func(c *Config) *string { return &c.DefaultWallet }},
	{"rpc_algorithm", "RPC_ALGORITHM", func(c *Config) *string { return &c.RPCAlgorithm }},
	{"payments.install", "INSTALL_PAYMENT_AMOUNT", func(c *Config) *string { return &c.Payments.Install }},
	{"payments.approve", "APPROVE_PAYMENT_AMOUNT", func(c *Config) *string { return &c.Payments.Approve }},
	{"payments.transfer", "TRANSFER_PAYMENT_AMOUNT", func(c *Config) *string { return &c.Payments.Transfer }},
	{"payments.transfer_from", "TRANSFER_FROM_PAYMENT_AMOUNT", func(c *Config) *string { return &c.Payments.TransferFrom }},
	{"payments.mint", "MINT_PAYMENT_AMOUNT", func(c *Config) *string { return &c.Payments.Mint }},
}

func defaults(dir string) *Config {
	return &Config{
		NodeAddress:        defaultNodeAddress,
		EventStreamAddress: defaultEventStreamAddress,
		ChainName:          defaultChainName,
		ContractName:       defaultContractName,
		RPCAlgorithm:       defaultAlgorithm,
		Payments: Payments{
			Install:      defaultInstallPayment,
			Approve:      defaultCallPayment,
			Transfer:     defaultCallPayment,
			TransferFrom: defaultCallPayment,
			Mint:         defaultCallPayment,
		},
		configDir: dir,
	}
}

func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
