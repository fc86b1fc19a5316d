package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newNormativeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normative",
		Short: "Maintain the normative code reference table",
	}
	cmd.AddCommand(newNormativeLoadCmd(app))
	return cmd
}

func newNormativeLoadCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "load <file.csv>",
		Short: "Upsert code,type[,name] rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening normatives file: %w", err)
			}
			defer f.Close()

			n, err := app.Normatives.LoadCSV(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d normative entries\n", n)
			return nil
		},
	}
}
