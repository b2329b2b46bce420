package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/internal/presentation/tui"
	"github.com/aretw0/stepwise/pkg/observability"
	"github.com/aretw0/stepwise/pkg/runner"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <flow.yaml>",
	Short: "Run a wizard in the terminal",
	Long: `Runs the flow interactively. Progress is saved after every committed step,
so running again with the same session resumes where it stopped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalogPath, _ := cmd.Flags().GetString("catalog")
		key, _ := cmd.Flags().GetString("session")
		entity, _ := cmd.Flags().GetString("entity")
		plain, _ := cmd.Flags().GetBool("plain")

		flow, provider, err := loadFlow(args[0], catalogPath, logger)
		if err != nil {
			return err
		}
		st, err := openStorage(cfg.Store, logger)
		if err != nil {
			return err
		}
		defer st.close()

		if key == "" {
			key = stepwise.SessionKey(flow.Name, entity)
		}
		a := &app{
			flow:     flow,
			provider: provider,
			storage:  st,
			hooks:    observability.LogHooks(logger),
		}
		wz, err := a.newWizard(key)
		if err != nil {
			return err
		}
		defer wz.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		if !plain {
			tui.PrintBanner(out)
		}
		r := runner.New(
			runner.WithInput(cmd.InOrStdin()),
			runner.WithOutput(out),
			runner.WithRenderer(tui.NewRenderer(plain)),
			runner.WithLogger(logger),
		)

		// Run blocks on stdin, so an interrupt has to be observed here.
		errc := make(chan error, 1)
		go func() { errc <- r.Run(ctx, wz) }()
		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
			fmt.Fprintln(out, "\nInterrupted. Progress saved.")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("catalog", "", "Catalog file replacing the one inside the flow")
	runCmd.Flags().String("session", "", "Session key (default <flow>:<entity>)")
	runCmd.Flags().String("entity", "", "Entity being edited; empty creates a new one")
	runCmd.Flags().Bool("plain", false, "Disable colors and markdown rendering")
}
