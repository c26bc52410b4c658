package config

// Config holds all casper-erc20 configuration.
type Config struct {
	NodeAddress        string   `json:"node_address"`
	Nodes              []string `json:"nodes,omitempty"` // extra node addresses for node selection
	EventStreamAddress string   `json:"event_stream_address"`
	ChainName          string   `json:"chain_name"`
	ContractName       string   `json:"contract_name"`
	ContractHash       string   `json:"contract_hash,omitempty"`
	WasmPath           string   `json:"wasm_path,omitempty"`
	MasterKeyPairPath  string   `json:"master_key_pair_path,omitempty"`
	CasperClient       string   `json:"casper_client,omitempty"` // casper-client binary
	DefaultWallet      string   `json:"default_wallet,omitempty"`
	RPCAlgorithm       string   `json:"rpc_algorithm"` // "fastest" | "round-robin" | "failover"
	Payments           Payments `json:"payments"`

	// internal: config dir path used for Save()
	configDir string
}

// Payments are the motes paid for each kind of deploy.
type Payments struct {
	Install      string `json:"install"`
	Approve      string `json:"approve"`
	Transfer     string `json:"transfer"`
	TransferFrom string `json:"transfer_from"`
	Mint         string `json:"mint"`
}
