package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/stepwise/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage saved sessions",
	Long:  `List, inspect, and remove the snapshots kept by the configured store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List saved sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStorage(cfg.Store, logger)
		if err != nil {
			return err
		}
		defer st.close()

		keys, err := st.backend.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(keys) == 0 {
			fmt.Fprintln(out, "No saved sessions found.")
			return nil
		}
		fmt.Fprintln(out, "Saved sessions:")
		for _, k := range keys {
			fmt.Fprintln(out, "- "+k)
		}
		return nil
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-key>",
	Short: "Show what a saved session holds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		plain, _ := cmd.Flags().GetBool("plain")

		st, err := openStorage(cfg.Store, logger)
		if err != nil {
			return err
		}
		defer st.close()

		snap, err := st.backend.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load session %q: %w", args[0], err)
		}
		if snap == nil {
			return fmt.Errorf("session %q not found", args[0])
		}

		out := cmd.OutOrStdout()
		if asJSON {
			data, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal snapshot: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		rendered, err := tui.NewRenderer(plain)(tui.SnapshotSummary(snap))
		if err != nil {
			return err
		}
		fmt.Fprint(out, rendered)
		return nil
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-key>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStorage(cfg.Store, logger)
		if err != nil {
			return err
		}
		defer st.close()

		out := cmd.OutOrStdout()
		var errs []error
		for _, key := range args {
			if err := st.store.Clear(cmd.Context(), key); err != nil {
				errs = append(errs, fmt.Errorf("failed to remove %q: %w", key, err))
				continue
			}
			fmt.Fprintf(out, "Removed session %q\n", key)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd, sessionInspectCmd, sessionRmCmd)

	sessionInspectCmd.Flags().Bool("json", false, "Print the raw snapshot as JSON")
	sessionInspectCmd.Flags().Bool("plain", false, "Disable markdown rendering")
}
