package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var sheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "Interaction log utilities",
}

var sheetsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that the interaction log can be opened and read",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := initSheetLogger()
		if err != nil {
			return err
		}
		if logger == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "interaction log disabled (sheets.driver=none)")
			return nil
		}

		if !logger.TestConnection(cmd.Context()) {
			return eris.Errorf("sheets: connection check failed for driver %s", cfg.Sheets.Driver)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "interaction log reachable (driver=%s)\n", cfg.Sheets.Driver)
		return nil
	},
}

func init() {
	sheetsCmd.AddCommand(sheetsCheckCmd)
	rootCmd.AddCommand(sheetsCmd)
}
