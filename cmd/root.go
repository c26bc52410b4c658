package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/casper-erc20/internal/config"
	"github.com/Mohsinsiddi/casper-erc20/internal/log"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/casper-erc20/cmd.Version=1.2.3" .
var Version = "0.3.0"

// dotenvFile is read from the working directory on every run.
const dotenvFile = ".env"

var (
	cfgDir  string
	cfg     *config.Config
	verbose bool
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "erc20",
	Short: "ERC-20 tokens on the Casper network",
	Long: `erc20 installs, queries and calls an ERC-20 style token contract on a
Casper network.

Reads go to the node's JSON-RPC endpoint; calls are signed and sent with
casper-client. Settings come from the config directory, then .env, then
the environment (NODE_ADDRESS, CHAIN_NAME, CONTRACT_HASH, ...).`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log.Debug = verbose
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return cfg.ApplyEnv(dotenvFile)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, errorLine(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", "", "config directory (default: $"+config.DirEnv+" or ~/.casper-erc20)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		installCmd,
		contractHashCmd,
		bindCmd,
		infoCmd,
		balanceCmd,
		allowanceCmd,
		approveCmd,
		transferCmd,
		transferFromCmd,
		mintCmd,
		watchCmd,
		walletCmd,
		nodeCmd,
		configCmd,
		versionCmd,
	)
}
