package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/smeta/internal/cli/formatter"
	"github.com/alexanderramin/smeta/internal/domain"
)

func newReviewCmd(app *App) *cobra.Command {
	var estimate string

	cmd := &cobra.Command{
		Use:   "review",
		Short: "List rows awaiting manual classification",
		RunE: func(cmd *cobra.Command, args []string) error {
			estID, err := resolveEstimateID(cmd.Context(), app, estimate)
			if err != nil {
				return err
			}
			items, err := app.Imports.ListUnclassified(cmd.Context(), estID)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatReviewList(items))
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&estimate, "estimate", "e", "", "Estimate ID or prefix")

	cmd.AddCommand(newReviewResolveCmd(app, &estimate))
	return cmd
}

func newReviewResolveCmd(app *App, estimate *string) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <item> <label>",
		Short: "Label a row by hand (work, material, equipment, labor)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			label, err := domain.ParseLabel(args[1])
			if err != nil {
				return err
			}
			estID, err := resolveEstimateID(ctx, app, *estimate)
			if err != nil {
				return err
			}
			itemID, err := resolveReviewItemID(ctx, app, estID, args[0])
			if err != nil {
				return err
			}
			item, err := app.Imports.ResolveItem(ctx, itemID, label)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", item.Name,
				formatter.ClassificationBadge(item.ClassificationLabel, item.ClassificationConfidence, item.ClassificationSource))
			return nil
		},
	}
}
