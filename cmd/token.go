package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/casper-erc20/internal/config"
	"github.com/Mohsinsiddi/casper-erc20/internal/ui"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the token's name, symbol, decimals and supply",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), config.QueryTimeout)
		defer cancel()

		c, err := boundClient(ctx)
		if err != nil {
			return err
		}
		name, err := c.Name(ctx)
		if err != nil {
			return err
		}
		symbol, err := c.Symbol(ctx)
		if err != nil {
			return err
		}
		decimals, err := c.Decimals(ctx)
		if err != nil {
			return err
		}
		supply, err := c.TotalSupply(ctx)
		if err != nil {
			return err
		}

		fmt.Println(ui.KeyValueBlock(name, [][2]string{
			{"Symbol", symbol},
			{"Decimals", fmt.Sprint(decimals)},
			{"Total supply", supply.Dec()},
			{"Contract", c.ContractHash()},
			{"Package", c.PackageHash()},
		}))
		return nil
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance <public-key>",
	Short: "Show an account's token balance",
	Long:  "Shows the balance of an account given by its hex public key. An account that never held tokens has a zero balance.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), config.QueryTimeout)
		defer cancel()

		c, err := boundClient(ctx)
		if err != nil {
			return err
		}
		bal, err := c.BalanceOf(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s\n", ui.Addr(ui.TruncateHash(args[0])), ui.Val(bal.Dec()))
		return nil
	},
}

var allowanceCmd = &cobra.Command{
	Use:   "allowance <owner-public-key> <spender-public-key>",
	Short: "Show how much a spender may transfer from an owner",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), config.QueryTimeout)
		defer cancel()

		c, err := boundClient(ctx)
		if err != nil {
			return err
		}
		amount, err := c.Allowance(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s → %s  %s\n", ui.Addr(ui.TruncateHash(args[0])), ui.Addr(ui.TruncateHash(args[1])), ui.Val(amount.Dec()))
		return nil
	},
}
