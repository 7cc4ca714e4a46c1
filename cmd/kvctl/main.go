// cmd/kvctl is the CLI entry-point built with Cobra.
//
// Usage:
//
//	kvctl put mykey "hello world"  --server http://localhost:8090
//	kvctl get mykey                --server http://localhost:8090
//	kvctl delete mykey             --server http://localhost:8090
//	kvctl view list                --server http://localhost:8090
//	kvctl view add localhost:8091  --server http://localhost:8090
//	kvctl view remove localhost:8091 --server http://localhost:8090
//
// Causal context is threaded between commands via a small local file
// (see causalFile) so that a sequence of kvctl invocations from the same
// shell observes its own writes, the way a long-lived client would keep
// its causal-metadata in memory between requests.
package main

import (
	"context"
	"distributed-kvstore/internal/clock"
	"distributed-kvstore/internal/sdk"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverAddr string
	timeout    time.Duration
)

func main() {
	root := &cobra.Command{
		Use:   "kvctl",
		Short: "CLI client for the causally consistent key-value store",
	}

	root.PersistentFlags().StringVarP(&serverAddr, "server", "s",
		"http://localhost:8090", "replica address")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second,
		"HTTP request timeout")

	root.AddCommand(putCmd(), getCmd(), deleteCmd(), viewCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ─── put ───────────────────────────────────────────────────────────────────

func putCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Store a key-value pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := sdk.New(serverAddr, timeout)
			causal := loadCausal()
			resp, err := c.Put(context.Background(), args[0], args[1], causal)
			if err != nil {
				return err
			}
			saveCausal(resp.CausalMetadata)
			prettyPrint(resp)
			return nil
		},
	}
}

// ─── get ───────────────────────────────────────────────────────────────────

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Retrieve a value by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := sdk.New(serverAddr, timeout)
			causal := loadCausal()
			resp, err := c.Get(context.Background(), args[0], causal)
			if err == sdk.ErrNotFound {
				fmt.Printf("key %q not found\n", args[0])
				return nil
			}
			if err == sdk.ErrCausalPending {
				fmt.Println("replica has not yet observed your causal context, retry")
				return nil
			}
			if err != nil {
				return err
			}
			saveCausal(resp.CausalMetadata)
			prettyPrint(resp)
			return nil
		},
	}
}

// ─── delete ──────────────────────────────────────────────────────────────────

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := sdk.New(serverAddr, timeout)
			causal := loadCausal()
			resp, err := c.Delete(context.Background(), args[0], causal)
			if err == sdk.ErrNotFound {
				fmt.Printf("key %q not found\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			saveCausal(resp.CausalMetadata)
			fmt.Printf("deleted %q\n", args[0])
			return nil
		},
	}
}

// ─── view ────────────────────────────────────────────────────────────────────

func viewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "View (membership) management commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the current view",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := sdk.New(serverAddr, timeout)
			view, err := c.ViewList(context.Background())
			if err != nil {
				return err
			}
			for _, addr := range view {
				fmt.Println(addr)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <address>",
		Short: "Add a replica to the view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := sdk.New(serverAddr, timeout)
			return c.ViewAdd(context.Background(), args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <address>",
		Short: "Remove a replica from the view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := sdk.New(serverAddr, timeout)
			return c.ViewRemove(context.Background(), args[0])
		},
	})

	return cmd
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func prettyPrint(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}

// causalFile stores the last causal-metadata kvctl observed, so a sequence
// of commands from the same shell behaves like one long-lived client
// instead of forgetting its causal context between invocations.
func causalFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "kvctl-causal.json")
}

func loadCausal() clock.VectorClock {
	data, err := os.ReadFile(causalFile())
	if err != nil {
		return nil
	}
	var vc clock.VectorClock
	if err := json.Unmarshal(data, &vc); err != nil {
		return nil
	}
	return vc
}

func saveCausal(vc clock.VectorClock) {
	if vc == nil {
		return
	}
	data, err := json.Marshal(vc)
	if err != nil {
		return
	}
	_ = os.WriteFile(causalFile(), data, 0o644)
}
