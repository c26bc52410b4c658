package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/casper-erc20/internal/config"
	"github.com/Mohsinsiddi/casper-erc20/internal/erc20"
	"github.com/Mohsinsiddi/casper-erc20/internal/keys"
	"github.com/Mohsinsiddi/casper-erc20/internal/ui"
)

// callSpec describes one token entry point exposed as a command. The
// last positional argument is always the amount; the others are
// recipients.
type callSpec struct {
	use     string
	short   string
	kind    erc20.OperationKind
	roles   []string // names of the recipient arguments, in order
	payment func(config.Payments) string
	submit  func(ctx context.Context, c *erc20.Client, kp keys.KeyPair, to []erc20.Recipient, amount *uint256.Int, payment string) (string, error)
}

var (
	approveCmd = newCallCmd(callSpec{
		use:     "approve <spender> <amount>",
		short:   "Allow a spender to transfer tokens from the signer",
		kind:    erc20.Approve,
		roles:   []string{"Spender"},
		payment: func(p config.Payments) string { return p.Approve },
		submit: func(ctx context.Context, c *erc20.Client, kp keys.KeyPair, to []erc20.Recipient, amount *uint256.Int, payment string) (string, error) {
			return c.Approve(ctx, kp, to[0], amount, payment)
		},
	})

	transferCmd = newCallCmd(callSpec{
		use:     "transfer <recipient> <amount>",
		short:   "Transfer tokens from the signer",
		kind:    erc20.Transfer,
		roles:   []string{"Recipient"},
		payment: func(p config.Payments) string { return p.Transfer },
		submit: func(ctx context.Context, c *erc20.Client, kp keys.KeyPair, to []erc20.Recipient, amount *uint256.Int, payment string) (string, error) {
			return c.Transfer(ctx, kp, to[0], amount, payment)
		},
	})

	transferFromCmd = newCallCmd(callSpec{
		use:     "transfer-from <owner> <recipient> <amount>",
		short:   "Transfer tokens from an owner who approved the signer",
		kind:    erc20.TransferFrom,
		roles:   []string{"Owner", "Recipient"},
		payment: func(p config.Payments) string { return p.TransferFrom },
		submit: func(ctx context.Context, c *erc20.Client, kp keys.KeyPair, to []erc20.Recipient, amount *uint256.Int, payment string) (string, error) {
			return c.TransferFrom(ctx, kp, to[0], to[1], amount, payment)
		},
	})

	mintCmd = newCallCmd(callSpec{
		use:     "mint <recipient> <amount>",
		short:   "Mint new tokens (installer only)",
		kind:    erc20.Mint,
		roles:   []string{"Recipient"},
		payment: func(p config.Payments) string { return p.Mint },
		submit: func(ctx context.Context, c *erc20.Client, kp keys.KeyPair, to []erc20.Recipient, amount *uint256.Int, payment string) (string, error) {
			return c.Mint(ctx, kp, to[0], amount, payment)
		},
	})
)

type callFlags struct {
	signer  signerFlags
	payment string
	yes     bool
	wait    bool
	listen  bool
}

const recipientHelp = `
Recipients are a hex public key, account-hash-<hex> or hash-<hex> for a
contract. Amounts are in the token's smallest unit.`

func newCallCmd(op callSpec) *cobra.Command {
	var f callFlags
	cmd := &cobra.Command{
		Use:   op.use,
		Short: op.short,
		Long:  op.short + "." + recipientHelp,
		Args:  cobra.ExactArgs(len(op.roles) + 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd.Context(), op, &f, args)
		},
	}
	f.signer.register(cmd)
	cmd.Flags().StringVar(&f.payment, "payment", "", "payment in motes (default: from config)")
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "send without asking")
	cmd.Flags().BoolVar(&f.wait, "wait", false, "poll the node until the deploy executed")
	cmd.Flags().BoolVar(&f.listen, "listen", false, "report the deploy's contract event from the event stream")
	cmd.MarkFlagsMutuallyExclusive("wait", "listen")
	return cmd
}

func runCall(ctx context.Context, op callSpec, f *callFlags, args []string) error {
	recipients := make([]erc20.Recipient, len(op.roles))
	for i := range op.roles {
		r, err := erc20.ParseRecipient(args[i])
		if err != nil {
			return err
		}
		recipients[i] = r
	}
	amount, err := parseAmount(args[len(args)-1])
	if err != nil {
		return err
	}
	payment := f.payment
	if payment == "" {
		payment = op.payment(cfg.Payments)
	}

	kp, cleanup, err := f.signer.keyPair()
	if err != nil {
		return err
	}
	defer cleanup()

	c, err := boundClient(ctx)
	if err != nil {
		return err
	}

	pairs := [][2]string{{"Signer", kp.PublicKey.AccountHashString()}}
	for i, role := range op.roles {
		pairs = append(pairs, [2]string{role, recipients[i].String()})
	}
	pairs = append(pairs,
		[2]string{"Amount", amount.Dec()},
		[2]string{"Payment", payment + " motes"},
		[2]string{"Contract", c.ContractHash()},
	)
	fmt.Println(ui.KeyValueBlock(string(op.kind), pairs))
	if !f.yes && !ui.Confirm(os.Stdin, os.Stdout, "Send deploy?") {
		fmt.Println(ui.Meta("Cancelled."))
		return nil
	}

	var outcome chan erc20.DeployStatus
	var sub *erc20.Subscription
	if f.listen {
		outcome = make(chan erc20.DeployStatus, 1)
		sub, err = c.Subscribe(ctx, erc20.AllKinds, func(kind erc20.OperationKind, status erc20.DeployStatus, result map[string]string) {
			select {
			case outcome <- status:
			default:
			}
		})
		if err != nil {
			return err
		}
		defer sub.StopListening()
	}

	hash, err := op.submit(ctx, c, kp, recipients, amount, payment)
	if err != nil {
		return err
	}
	fmt.Println(ui.Success("Deploy sent: " + ui.Addr(hash)))

	switch {
	case f.wait:
		return awaitDeploy(ctx, c, hash)
	case f.listen:
		return awaitEvent(ctx, sub, outcome)
	}
	fmt.Println(ui.Hint(fmt.Sprintf("Follow it with: erc20 watch %s:%s", op.kind, hash)))
	return nil
}

// awaitEvent blocks until the event stream reports the deploy.
func awaitEvent(ctx context.Context, sub *erc20.Subscription, outcome <-chan erc20.DeployStatus) error {
	timeout := time.NewTimer(config.DeployWaitTimeout)
	defer timeout.Stop()

	spin := ui.NewSpinner("listening for the deploy on the event stream")
	spin.Start()
	var st erc20.DeployStatus
	var err error
	select {
	case st = <-outcome:
	case <-sub.Done():
		select {
		case st = <-outcome:
		default:
			err = sub.Err()
			if err == nil {
				err = erc20.ErrNoEventStream
			}
		}
	case <-timeout.C:
		err = fmt.Errorf("no event within %s", config.DeployWaitTimeout)
	case <-ctx.Done():
		err = ctx.Err()
	}
	spin.Stop()

	if err != nil {
		return err
	}
	if !st.Success {
		fmt.Println(ui.Err("Deploy failed: " + st.Error))
		return fmt.Errorf("deploy %s: %w: %s", st.DeployHash, erc20.ErrDeployFailed, st.Error)
	}
	fmt.Println(ui.Success("Deploy processed"))
	return nil
}
