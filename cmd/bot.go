package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot (long polling)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "bot")
		if err != nil {
			return err
		}
		defer env.Close()

		return runBot(ctx, env)
	},
}

func init() {
	rootCmd.AddCommand(botCmd)
}
