package main

import (
	"fmt"

	"github.com/aretw0/chatflow/pkg/adapters/file"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Check the flow files for consistency",
	Long: `Loads every flow under the flows directory and reports broken edges, missing
nodes and invalid configurations. Exits non-zero when any flow is invalid.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := v.GetString("flows.dir")
		if len(args) > 0 {
			dir = args[0]
		}

		repo, err := file.Open(dir)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		out := cmd.OutOrStdout()
		for _, tenant := range repo.Tenants() {
			flows := repo.All(tenant)
			fmt.Fprintf(out, "%s: %d flow(s)\n", tenant, len(flows))
		}
		fmt.Fprintln(out, "All flows are valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
