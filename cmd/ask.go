package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/violation-assistant/internal/validate"
)

var askNoLog bool

var askCmd = &cobra.Command{
	Use:   "ask <description>",
	Short: "Analyze one violation description and print the response",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		text := validate.Sanitize(strings.Join(args, " "))
		if msg := validate.TextLength(text, cfg.Text.MinLength, cfg.Text.MaxLength); msg != "" {
			return fmt.Errorf("invalid description: %s", msg)
		}

		if askNoLog {
			cfg.Sheets.Driver = "none"
		}

		env, err := initPipeline(ctx, "analyze")
		if err != nil {
			return err
		}
		defer env.Close()

		out, err := env.Pipeline.Run(ctx, text)
		if err != nil {
			return err
		}

		zap.L().Debug("ask complete",
			zap.Bool("success", out.Result.Success),
			zap.Bool("logged", out.Logged),
			zap.Int("fragments", len(out.Record.Fragments)),
		)
		fmt.Fprintln(cmd.OutOrStdout(), out.Response)
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVar(&askNoLog, "no-log", false, "skip the interaction log")
	rootCmd.AddCommand(askCmd)
}
