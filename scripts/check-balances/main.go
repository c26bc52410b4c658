// check-balances: reads the token balance of a set of accounts on every
// configured node in parallel and prints a summary table. Nodes that lag
// behind or answer differently show up side by side.
//
// Run from the module root:
//
//	go run ./scripts/check-balances <public-key> [public-key...]
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/Mohsinsiddi/casper-erc20/internal/config"
	"github.com/Mohsinsiddi/casper-erc20/internal/erc20"
	"github.com/Mohsinsiddi/casper-erc20/internal/ui"
)

const rpcTimeout = 12 * time.Second

type result struct {
	node    string
	account string
	balance string
	err     string
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: check-balances <public-key> [public-key...]")
		os.Exit(2)
	}
	accounts := os.Args[1:]

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := cfg.ApplyEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.ContractHash == "" {
		fmt.Fprintln(os.Stderr, "CONTRACT_HASH is not set")
		os.Exit(1)
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []result
	)
	add := func(r result) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}

	for _, addr := range cfg.NodeAddresses() {
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
			defer cancel()

			c := erc20.NewClient(erc20.Config{NodeAddress: addr, ContractName: cfg.ContractName})
			if err := c.BindContract(ctx, cfg.ContractHash); err != nil {
				for _, a := range accounts {
					add(result{node: addr, account: a, balance: "-", err: shortErr(err)})
				}
				return
			}
			for _, a := range accounts {
				r := result{node: addr, account: a}
				if bal, err := c.BalanceOf(ctx, a); err != nil {
					r.balance = "-"
					r.err = shortErr(err)
				} else {
					r.balance = bal.Dec()
				}
				add(r)
			}
		}(addr)
	}

	wg.Wait()

	printTable(results)
}

func printTable(results []result) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.node != b.node {
			return a.node < b.node
		}
		return a.account < b.account
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NODE\tACCOUNT\tBALANCE\tNOTE")
	fmt.Fprintln(w, strings.Repeat("-", 24)+"\t"+
		strings.Repeat("-", 14)+"\t"+
		strings.Repeat("-", 24)+"\t"+
		strings.Repeat("-", 12))

	lastNode := ""
	for _, r := range results {
		if r.node != lastNode {
			if lastNode != "" {
				fmt.Fprintln(w, "\t\t\t")
			}
			lastNode = r.node
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.node, ui.TruncateHash(r.account), r.balance, r.err)
	}
	w.Flush()
}

func shortErr(err error) string {
	s := err.Error()
	if len(s) > 40 {
		return s[:40] + "…"
	}
	return s
}
