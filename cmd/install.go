package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/casper-erc20/internal/config"
	"github.com/Mohsinsiddi/casper-erc20/internal/erc20"
	"github.com/Mohsinsiddi/casper-erc20/internal/ui"
)

var (
	installSigner      signerFlags
	installWasm        string
	installName        string
	installSymbol      string
	installDecimals    uint8
	installTotalSupply string
	installPayment     string
	installWait        bool
	installSave        bool
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the token contract",
	Long: `Sends the contract wasm in a deploy signed by the chosen key. With --wait
the command polls until the deploy executed, then looks up the new
contract hash in the installing account's named keys.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		wasm := installWasm
		if wasm == "" {
			wasm = cfg.WasmPath
		}
		if wasm == "" {
			return errors.New("no wasm: pass --wasm or set WASM_PATH")
		}

		var a erc20.InstallArgs
		a.Name, a.Symbol = installName, installSymbol
		if cmd.Flags().Changed("decimals") {
			a.Decimals = &installDecimals
		}
		if installTotalSupply != "" {
			supply, err := parseAmount(installTotalSupply)
			if err != nil {
				return err
			}
			a.TotalSupply = supply
		}

		kp, cleanup, err := installSigner.keyPair()
		if err != nil {
			return err
		}
		defer cleanup()

		payment := installPayment
		if payment == "" {
			payment = cfg.Payments.Install
		}

		c := newClient(ctx)
		hash, err := c.Install(ctx, kp, payment, wasm, a)
		if err != nil {
			return err
		}
		fmt.Println(ui.Success("Install deploy sent: " + ui.Addr(hash)))
		if !installWait {
			fmt.Println(ui.Hint("Find the contract once it executed with: erc20 contract-hash " + kp.PublicKey.Hex()))
			return nil
		}

		if err := awaitDeploy(ctx, c, hash); err != nil {
			return err
		}
		qctx, cancel := context.WithTimeout(ctx, config.QueryTimeout)
		defer cancel()
		contract, err := c.ContractHashFromAccount(qctx, kp.PublicKey.Hex())
		if err != nil {
			return err
		}
		fmt.Println(ui.Success("Contract installed: " + ui.Addr(contract)))
		return saveContractHash(contract, installSave)
	},
}

var (
	contractHashSigner signerFlags
	contractHashSave   bool
)

var contractHashCmd = &cobra.Command{
	Use:   "contract-hash [public-key]",
	Short: "Look up the contract hash stored by the installer",
	Long: `Reads the "<contract_name>_contract_hash" named key of the installing
account. Without an argument the signing key's account is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var pk string
		if len(args) == 1 {
			pk = args[0]
		} else {
			kp, cleanup, err := contractHashSigner.keyPair()
			if err != nil {
				return err
			}
			cleanup()
			pk = kp.PublicKey.Hex()
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), config.QueryTimeout)
		defer cancel()
		hash, err := newClient(ctx).ContractHashFromAccount(ctx, pk)
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return saveContractHash(hash, contractHashSave)
	},
}

var bindCmd = &cobra.Command{
	Use:   "bind <contract-hash>",
	Short: "Check a contract and make it the default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), config.QueryTimeout)
		defer cancel()

		c := newClient(ctx)
		if err := c.BindContract(ctx, args[0]); err != nil {
			return err
		}
		pairs := [][2]string{
			{"Contract", c.ContractHash()},
			{"Package", c.PackageHash()},
		}
		for name, key := range c.NamedKeys() {
			pairs = append(pairs, [2]string{name, key})
		}
		sortPairs(pairs[2:])
		fmt.Println(ui.KeyValueBlock("Bound "+c.ContractName(), pairs))
		return saveContractHash(c.ContractHash(), true)
	},
}

func saveContractHash(hash string, save bool) error {
	if !save {
		return nil
	}
	err := updateConfig(func(c *config.Config) error {
		c.ContractHash = hash
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Println(ui.Meta("Saved as contract_hash in " + cfg.Dir()))
	return nil
}

func init() {
	installSigner.register(installCmd)
	f := installCmd.Flags()
	f.StringVar(&installWasm, "wasm", "", "contract wasm (default: config wasm_path)")
	f.StringVar(&installName, "name", "", "token name")
	f.StringVar(&installSymbol, "symbol", "", "token symbol")
	f.Uint8Var(&installDecimals, "decimals", 0, "token decimals")
	f.StringVar(&installTotalSupply, "total-supply", "", "initial supply minted to the installer")
	f.StringVar(&installPayment, "payment", "", "payment in motes (default: config payments.install)")
	f.BoolVar(&installWait, "wait", false, "wait for the deploy and print the contract hash")
	f.BoolVar(&installSave, "save", false, "with --wait, save the contract hash to the config")

	contractHashSigner.register(contractHashCmd)
	contractHashCmd.Flags().BoolVar(&contractHashSave, "save", false, "save the contract hash to the config")
}
