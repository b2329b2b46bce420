package main

import (
	"fmt"

	"github.com/aretw0/stepwise/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <flow.yaml>",
	Short: "Check a flow file for consistency",
	Long: `Compiles the flow and its catalog and reports every problem found:
unknown gate references, parents that do not precede their children, and
catalog items whose parent is missing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalogPath, _ := cmd.Flags().GetString("catalog")
		showGraph, _ := cmd.Flags().GetBool("graph")

		flow, _, err := loadFlow(args[0], catalogPath, logger)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		out := cmd.OutOrStdout()
		if showGraph {
			fmt.Fprint(out, graph.GenerateMermaid(flow.Steps, nil))
			return nil
		}
		fmt.Fprintf(out, "Flow %q is valid (%d steps)\n", flow.Name, len(flow.Steps))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().String("catalog", "", "Catalog file replacing the one inside the flow")
	validateCmd.Flags().Bool("graph", false, "Print the step graph as a Mermaid diagram")
}
