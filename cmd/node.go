package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/casper-erc20/internal/config"
	"github.com/Mohsinsiddi/casper-erc20/internal/log"
	"github.com/Mohsinsiddi/casper-erc20/internal/node"
	"github.com/Mohsinsiddi/casper-erc20/internal/rpc"
	"github.com/Mohsinsiddi/casper-erc20/internal/ui"
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Inspect and manage node addresses",
}

var nodeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Ping every configured node",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), config.NodeSelectTimeout)
		defer cancel()

		results := rpc.Benchmark(ctx, rpc.NodePing, cfg.NodeAddresses())
		t := ui.NewTable(
			ui.Column{Title: "Node", Width: 36},
			ui.Column{Title: "Latency", Width: 10},
			ui.Column{Title: "Height", Width: 10},
			ui.Column{Title: "Status", Width: 30},
		)
		for _, r := range results {
			status := "ok"
			if r.Err != nil {
				status = r.Err.Error()
			}
			t.AddRow(r.URL, r.Latency.Round(time.Millisecond).String(), fmt.Sprint(r.Height), status)
		}
		fmt.Println(t.Render())

		st, err := node.NewClient(cfg.NodeAddress).Status(ctx)
		if err != nil {
			log.New("cmd").Debugf("status of %s: %v", cfg.NodeAddress, err)
			return nil
		}
		fmt.Println(ui.Meta(fmt.Sprintf("%s · api %s", st.ChainspecName, st.APIVersion)))
		if st.ChainspecName != "" && st.ChainspecName != cfg.ChainName {
			fmt.Println(ui.Warn(fmt.Sprintf("node runs %q but chain_name is %q", st.ChainspecName, cfg.ChainName)))
		}
		return nil
	},
}

var nodeBestCmd = &cobra.Command{
	Use:   "best",
	Short: "Show the node the configured algorithm picks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), config.NodeSelectTimeout)
		defer cancel()

		addr, err := rpc.SelectBest(ctx, rpc.NodePing, cfg.NodeAddresses(), cfg.RPCAlgorithm)
		if err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("%s (%s)", ui.Addr(addr), cfg.RPCAlgorithm)))
		return nil
	},
}

var nodeAddCmd = &cobra.Command{
	Use:   "add <address>",
	Short: "Add a node used for node selection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := updateConfig(func(c *config.Config) error { return c.AddNode(args[0]) })
		if err != nil {
			return err
		}
		fmt.Println(ui.Success("Added node " + args[0]))
		return nil
	},
}

var nodeRemoveCmd = &cobra.Command{
	Use:   "remove <address>",
	Short: "Remove a node added with `node add`",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := updateConfig(func(c *config.Config) error { return c.RemoveNode(args[0]) })
		if err != nil {
			return err
		}
		fmt.Println(ui.Success("Removed node " + args[0]))
		return nil
	},
}

func init() {
	nodeCmd.AddCommand(nodeStatusCmd, nodeBestCmd, nodeAddCmd, nodeRemoveCmd)
}
