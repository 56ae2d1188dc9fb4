package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/chatflow/pkg/runner"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to a tenant's flows in the terminal",
	Long: `Opens an interactive conversation against the configured flows and store.
Type /reset to abandon the running flow. With --json every line read is a JSON
message and every outcome is written as one JSON object.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		tenant, _ := cmd.Flags().GetString("tenant")
		conversationID, _ := cmd.Flags().GetString("conversation")
		jsonMode, _ := cmd.Flags().GetBool("json")

		a, err := buildApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		opts := []runner.Option{
			runner.WithLogger(logger),
			runner.WithTenant(tenant),
		}
		if conversationID != "" {
			opts = append(opts, runner.WithConversationID(conversationID))
		}
		if jsonMode {
			opts = append(opts, runner.WithInputHandler(runner.NewJSONHandler(os.Stdin, cmd.OutOrStdout())))
		} else {
			opts = append(opts, runner.WithInputHandler(runner.NewTextHandler(os.Stdin, cmd.OutOrStdout())))
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		r := runner.New(a.bot, opts...)
		logger.Debug("Chat started", "tenant", tenant, "conversation", r.ConversationID())
		return r.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("tenant", "t", runner.DefaultTenant, "Tenant whose flows answer")
	chatCmd.Flags().String("conversation", "", "Resume this conversation id instead of starting a new one")
	chatCmd.Flags().Bool("json", false, "Read and write JSON lines")
}
