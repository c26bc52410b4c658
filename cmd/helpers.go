package cmd

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/casper-erc20/internal/config"
	"github.com/Mohsinsiddi/casper-erc20/internal/erc20"
	"github.com/Mohsinsiddi/casper-erc20/internal/keys"
	"github.com/Mohsinsiddi/casper-erc20/internal/log"
	"github.com/Mohsinsiddi/casper-erc20/internal/node"
	"github.com/Mohsinsiddi/casper-erc20/internal/rpc"
	"github.com/Mohsinsiddi/casper-erc20/internal/ui"
	"github.com/Mohsinsiddi/casper-erc20/internal/wallet"
)

var errNoContract = errors.New("no contract hash: pass --contract, set CONTRACT_HASH, or run `erc20 bind <hash>`")

var errNoSigner = errors.New("no signing key: pass --wallet or --key-dir, import a wallet, or set MASTER_KEY_PAIR_PATH")

// contractFlag overrides the configured contract hash.
var contractFlag string

func init() {
	rootCmd.PersistentFlags().StringVar(&contractFlag, "contract", "", "contract hash (default: config contract_hash)")
}

func errorLine(err error) string {
	return ui.Err(err.Error())
}

// nodeAddress returns the node to talk to. With several configured nodes
// the best one is picked by the configured algorithm; the primary node
// is the fallback.
func nodeAddress(ctx context.Context) string {
	addrs := cfg.NodeAddresses()
	if len(addrs) <= 1 {
		return cfg.NodeAddress
	}
	ctx, cancel := context.WithTimeout(ctx, config.NodeSelectTimeout)
	defer cancel()
	addr, err := rpc.SelectBest(ctx, rpc.NodePing, addrs, cfg.RPCAlgorithm)
	if err != nil {
		log.New("cmd").Warnf("node selection: %v; using %s", err, cfg.NodeAddress)
		return cfg.NodeAddress
	}
	log.New("cmd").Debugf("selected node %s", addr)
	return addr
}

// newClient builds an unbound token client from the config.
func newClient(ctx context.Context, opts ...erc20.Option) *erc20.Client {
	return erc20.NewClient(erc20.Config{
		NodeAddress:        nodeAddress(ctx),
		ChainName:          cfg.ChainName,
		EventStreamAddress: cfg.EventStreamAddress,
		ContractName:       cfg.ContractName,
		CasperClient:       cfg.CasperClient,
	}, opts...)
}

// contractHash is the --contract flag or the configured contract hash.
func contractHash() (string, error) {
	if contractFlag != "" {
		return contractFlag, nil
	}
	if cfg.ContractHash != "" {
		return cfg.ContractHash, nil
	}
	return "", errNoContract
}

// boundClient returns a client bound to the contract.
func boundClient(ctx context.Context, opts ...erc20.Option) (*erc20.Client, error) {
	hash, err := contractHash()
	if err != nil {
		return nil, err
	}
	c := newClient(ctx, opts...)
	bctx, cancel := context.WithTimeout(ctx, config.QueryTimeout)
	defer cancel()
	if err := c.BindContract(bctx, hash); err != nil {
		return nil, fmt.Errorf("binding %s: %w", hash, err)
	}
	return c, nil
}

func newWalletManager() *wallet.Manager {
	return wallet.NewManager(
		wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath())),
		wallet.WithSecretStore(wallet.DefaultKeystore(cfg.Dir())),
	)
}

// signerFlags select the key that signs a deploy.
type signerFlags struct {
	wallet string
	keyDir string
}

func (f *signerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.wallet, "wallet", "", "wallet that signs the deploy (default: the default wallet)")
	cmd.Flags().StringVar(&f.keyDir, "key-dir", "", "casper-client keygen directory to sign with instead of a wallet")
	cmd.MarkFlagsMutuallyExclusive("wallet", "key-dir")
}

// keyPair resolves the signing key: --key-dir, --wallet, the configured
// default wallet, the wallet marked default, then MASTER_KEY_PAIR_PATH.
// cleanup removes any secret key material written for the deploy.
func (f *signerFlags) keyPair() (keys.KeyPair, func(), error) {
	noop := func() {}
	if f.keyDir != "" {
		kp, err := keys.LoadKeyPair(f.keyDir)
		return kp, noop, err
	}

	mgr := newWalletManager()
	name := f.wallet
	if name == "" {
		name = cfg.DefaultWallet
	}
	if name == "" {
		if w := mgr.Default(); w != nil {
			name = w.Name
		}
	}
	if name != "" {
		return mgr.KeyPair(name)
	}

	if cfg.MasterKeyPairPath != "" {
		kp, err := keys.LoadKeyPair(cfg.MasterKeyPairPath)
		return kp, noop, err
	}
	return keys.KeyPair{}, noop, errNoSigner
}

// parseAmount reads a decimal token amount in the smallest unit.
func parseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(strings.ReplaceAll(s, "_", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}

// parseKinds maps --kinds values to operation kinds; none means all.
func parseKinds(names []string) ([]erc20.OperationKind, error) {
	if len(names) == 0 {
		return erc20.AllKinds, nil
	}
	kinds := make([]erc20.OperationKind, 0, len(names))
	for _, n := range names {
		k, ok := erc20.ParseOperationKind(n)
		if !ok {
			return nil, fmt.Errorf("unknown operation %q", n)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// parseTracked reads a "<kind>:<deploy-hash>" argument.
func parseTracked(s string) (erc20.OperationKind, string, error) {
	name, hash, ok := strings.Cut(s, ":")
	if !ok || hash == "" {
		return "", "", fmt.Errorf("want <kind>:<deploy-hash>, got %q", s)
	}
	kind, ok := erc20.ParseOperationKind(name)
	if !ok {
		return "", "", fmt.Errorf("unknown operation %q", name)
	}
	return kind, hash, nil
}

// awaitDeploy polls the node until the deploy executed and prints the
// outcome.
func awaitDeploy(ctx context.Context, c *erc20.Client, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, config.DeployWaitTimeout)
	defer cancel()

	spin := ui.NewSpinner("waiting for deploy " + ui.TruncateHash(hash))
	spin.Start()
	res, err := c.WaitForDeploy(ctx, hash, config.DeployPollInterval)
	spin.Stop()

	if err != nil && !errors.Is(err, erc20.ErrDeployFailed) {
		return err
	}
	fmt.Println(ui.KeyValueBlock("Deploy executed", executionPairs(hash, res)))
	return err
}

func executionPairs(hash string, res node.BlockExecutionResult) [][2]string {
	pairs := [][2]string{{"Deploy", hash}, {"Block", res.BlockHash}}
	switch o := res.Result.Outcome.(type) {
	case node.Success:
		pairs = append(pairs, [2]string{"Result", ui.StyleSuccess.Render("success")}, [2]string{"Cost", o.Cost})
	case node.Failure:
		pairs = append(pairs, [2]string{"Result", ui.StyleError.Render(o.ErrorMessage)}, [2]string{"Cost", o.Cost})
	}
	return pairs
}

func sortPairs(pairs [][2]string) {
	slices.SortFunc(pairs, func(a, b [2]string) int { return strings.Compare(a[0], b[0]) })
}

// updateConfig applies change to config.json and to the running config.
// The file is reloaded first so values from .env and the environment are
// not persisted.
func updateConfig(change func(*config.Config) error) error {
	fileCfg, err := config.Load(cfg.Dir())
	if err != nil {
		return err
	}
	if err := change(fileCfg); err != nil {
		return err
	}
	if err := fileCfg.Save(); err != nil {
		return err
	}
	return change(cfg)
}
