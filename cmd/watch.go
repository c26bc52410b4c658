package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/casper-erc20/internal/erc20"
	"github.com/Mohsinsiddi/casper-erc20/internal/log"
	"github.com/Mohsinsiddi/casper-erc20/internal/ui"
)

var (
	watchKinds       []string
	watchPlain       bool
	watchMetricsAddr string
)

var watchCmd = &cobra.Command{
	Use:   "watch [kind:deploy-hash ...]",
	Short: "Report the outcome of token deploys from the node's event stream",
	Long: `Listens on the node's event stream and reports each tracked deploy once
it has been processed: the contract event it wrote on success, or the
execution error on failure.

Deploys are tracked by kind and hash, as printed by approve, transfer,
transfer-from and mint.

Keyboard controls:
  ↑↓ / j k   navigate rows
  c           copy selected deploy hash
  q           quit

Examples:
  erc20 watch transfer:4f1c...
  erc20 watch --plain mint:0abc... approve:9d2e...
  erc20 watch --metrics-addr :9102 transfer:4f1c...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kinds, err := parseKinds(watchKinds)
		if err != nil {
			return err
		}
		type tracked struct {
			kind erc20.OperationKind
			hash string
		}
		var deploys []tracked
		for _, a := range args {
			kind, hash, err := parseTracked(a)
			if err != nil {
				return err
			}
			deploys = append(deploys, tracked{kind, hash})
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reg := prometheus.NewRegistry()
		c, err := boundClient(ctx, erc20.WithMetrics(erc20.NewMetrics(reg)))
		if err != nil {
			return err
		}
		if watchMetricsAddr != "" {
			srv := serveMetrics(watchMetricsAddr, reg)
			defer srv.Close()
		}

		var prog *tea.Program
		cb := func(kind erc20.OperationKind, status erc20.DeployStatus, result map[string]string) {
			msg := ui.EventMsg{
				Kind:       string(kind),
				DeployHash: status.DeployHash,
				Success:    status.Success,
				Error:      status.Error,
				At:         time.Now(),
			}
			if prog != nil {
				prog.Send(msg)
				return
			}
			fmt.Println(ui.PlainEventLine(msg))
		}
		if !watchPlain {
			names := make([]string, len(kinds))
			for i, k := range kinds {
				names[i] = string(k)
			}
			prog = tea.NewProgram(ui.NewEventsModel(c.ContractHash(), names), tea.WithContext(ctx))
		}

		sub, err := c.Subscribe(ctx, kinds, cb)
		if err != nil {
			return err
		}
		defer sub.StopListening()
		for _, d := range deploys {
			if err := c.Track(d.kind, d.hash); err != nil {
				return err
			}
		}

		if watchPlain {
			fmt.Println(ui.Info(fmt.Sprintf("Listening on %s for %d deploy(s)", cfg.EventStreamAddress, len(c.Pending()))))
			select {
			case <-sub.Done():
				return sub.Err()
			case <-ctx.Done():
				return nil
			}
		}

		go func() {
			prog.Send(ui.StreamStatusMsg{Connected: true, Pending: len(c.Pending())})
			<-sub.Done()
			msg := ui.StreamStatusMsg{ErrMsg: "event stream closed"}
			if err := sub.Err(); err != nil {
				msg.ErrMsg = err.Error()
			}
			prog.Send(msg)
		}()
		if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return err
		}
		return nil
	},
}

// serveMetrics exposes the watch registry on addr/metrics.
func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.New("cmd").Errorf("metrics server: %v", err)
		}
	}()
	return srv
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchKinds, "kinds", nil, "event kinds to report (default: all)")
	watchCmd.Flags().BoolVar(&watchPlain, "plain", false, "print one line per event instead of the live view")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9102")
}

