package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/smeta/internal/cli/formatter"
)

func newEstimateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "estimate",
		Aliases: []string{"est"},
		Short:   "Manage estimates",
	}

	cmd.AddCommand(
		newEstimateCreateCmd(app),
		newEstimateListCmd(app),
		newEstimateDeleteCmd(app),
	)
	return cmd
}

func newEstimateCreateCmd(app *App) *cobra.Command {
	var name, org string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an empty estimate",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := app.Estimates.Create(cmd.Context(), org, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created estimate %s %s\n", formatter.Bold(e.Name), formatter.Dim(e.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Estimate name")
	cmd.Flags().StringVar(&org, "org", "default", "Organization ID")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newEstimateListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List estimates",
		RunE: func(cmd *cobra.Command, args []string) error {
			estimates, err := app.Estimates.List(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatEstimateList(estimates))
			return nil
		},
	}
}

func newEstimateDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <estimate>",
		Short: "Delete an estimate with all sections, items and its snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveEstimateID(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}
			if err := app.Estimates.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted estimate %s\n", id)
			return nil
		},
	}
}
