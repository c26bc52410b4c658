package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/casper-erc20/internal/config"
	"github.com/Mohsinsiddi/casper-erc20/internal/keys"
	"github.com/Mohsinsiddi/casper-erc20/internal/ui"
	"github.com/Mohsinsiddi/casper-erc20/internal/wallet"
)

var walletRemoveYes bool

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage signing keys",
}

var walletImportCmd = &cobra.Command{
	Use:   "import <name> <key-dir>",
	Short: "Import a casper-client keygen directory",
	Long: `Imports the key pair in a directory written by "casper-client keygen".
The secret key is moved into the OS keychain (or an encrypted file when no
keychain is available; set ` + wallet.PasswordEnv + ` to skip the prompt).
The first imported wallet becomes the default.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, dir := args[0], args[1]
		w, err := newWalletManager().Import(name, dir)
		if err != nil {
			return err
		}
		pk, err := keys.ParsePublicKey(w.PublicKey)
		if err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Wallet %q imported: %s", name, ui.Addr(pk.AccountHashString()))))
		if !w.IsDefault {
			fmt.Println(ui.Hint("Set as default with: erc20 wallet default " + name))
		}
		return nil
	},
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List wallets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wallets := newWalletManager().List()
		if len(wallets) == 0 {
			fmt.Println(ui.Info("No wallets yet."))
			fmt.Println(ui.Hint("Import one with: erc20 wallet import alice ./keys/alice"))
			return nil
		}

		t := ui.NewTable(
			ui.Column{Title: "Name", Width: 16},
			ui.Column{Title: "Public key", Width: 68},
			ui.Column{Title: "Default", Width: 7},
		)
		for _, w := range wallets {
			def := ""
			if w.IsDefault {
				def = "✓"
			}
			t.AddRow(w.Name, w.PublicKey, def)
		}
		fmt.Println(t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("%d wallet(s)", len(wallets))))
		return nil
	},
}

var walletRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a wallet and its secret key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if !walletRemoveYes && !ui.Confirm(os.Stdin, os.Stdout, fmt.Sprintf("Remove wallet %q and its secret key?", name)) {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}
		if err := newWalletManager().Remove(name); err != nil {
			return err
		}
		err := updateConfig(func(c *config.Config) error {
			if c.DefaultWallet == name {
				c.DefaultWallet = ""
			}
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Wallet %q removed.", name)))
		return nil
	},
}

var walletDefaultCmd = &cobra.Command{
	Use:   "default [name]",
	Short: "Set the wallet that signs deploys by default",
	Long:  "Sets the default wallet. Without a name an interactive picker is shown.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := newWalletManager()

		var name string
		if len(args) == 1 {
			name = args[0]
		} else {
			var items []ui.PickerItem
			for _, w := range mgr.List() {
				items = append(items, ui.PickerItem{Label: w.Name, SubLabel: w.PublicKey, Value: w.Name, Current: w.IsDefault})
			}
			if len(items) == 0 {
				return wallet.ErrWalletNotFound
			}
			picked, err := ui.PickItem("Default wallet", items)
			if err != nil {
				return err
			}
			if picked == "" {
				fmt.Println(ui.Meta("Cancelled."))
				return nil
			}
			name = picked
		}

		if err := mgr.SetDefault(name); err != nil {
			return err
		}
		err := updateConfig(func(c *config.Config) error {
			c.DefaultWallet = name
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Default wallet set to %q.", name)))
		return nil
	},
}

func init() {
	walletRemoveCmd.Flags().BoolVarP(&walletRemoveYes, "yes", "y", false, "remove without asking")
	walletCmd.AddCommand(walletImportCmd, walletListCmd, walletRemoveCmd, walletDefaultCmd)
}
