package main

import (
	"fmt"

	"github.com/aretw0/chatflow/internal/presentation/graph"
	"github.com/aretw0/chatflow/pkg/adapters/file"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <flow-id>",
	Short: "Export a flow as a Mermaid diagram",
	Long: `Outputs a Mermaid diagram (graph TD) of one flow. With --conversation the
node that conversation is parked at is highlighted, read from the configured store.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tenant, _ := cmd.Flags().GetString("tenant")
		conversationID, _ := cmd.Flags().GetString("conversation")

		if conversationID == "" {
			repo, err := file.Open(v.GetString("flows.dir"))
			if err != nil {
				return err
			}
			flow, err := repo.GetFlow(cmd.Context(), tenant, args[0])
			if err != nil {
				return fmt.Errorf("flow %s/%s: %w", tenant, args[0], err)
			}
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(flow, nil))
			return nil
		}

		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := buildApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		flow, err := a.bot.Flows().GetFlow(cmd.Context(), tenant, args[0])
		if err != nil {
			return fmt.Errorf("flow %s/%s: %w", tenant, args[0], err)
		}
		state, err := a.bot.Execution(cmd.Context(), conversationID)
		if err != nil {
			return err
		}
		var overlay *graph.GraphOverlay
		if state != nil && state.FlowID == flow.ID && state.TenantID == tenant {
			overlay = graph.OverlayFromState(state)
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(flow, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("tenant", "t", "default", "Tenant owning the flow")
	graphCmd.Flags().String("conversation", "", "Highlight where this conversation is parked")
}
