package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/smeta/internal/cli/formatter"
	"github.com/alexanderramin/smeta/internal/service"
)

func newItemCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Manage line items",
	}
	cmd.AddCommand(newItemAddCmd(app))
	return cmd
}

func newItemAddCmd(app *App) *cobra.Command {
	var estimate, section, parentItem, number, code, name, unit string
	var quantity, price float64

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a line item and classify it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			estID, err := resolveEstimateID(ctx, app, estimate)
			if err != nil {
				return err
			}
			in := service.CreateLineItemInput{
				EstimateID: estID,
				Number:     number,
				Code:       code,
				Name:       name,
				Unit:       unit,
				Quantity:   quantity,
				Price:      optionalFloat(cmd.Flags(), "price", price),
			}
			if section != "" {
				sid, err := resolveSectionID(ctx, app, estID, section)
				if err != nil {
					return err
				}
				in.SectionID = &sid
			}
			if parentItem != "" {
				in.ParentItemID = &parentItem
			}

			item, err := app.Structure.CreateLineItem(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added item %s %s  %s\n",
				formatter.Dim(item.ID), item.Name,
				formatter.ClassificationBadge(item.ClassificationLabel, item.ClassificationConfidence, item.ClassificationSource))
			return nil
		},
	}

	cmd.Flags().StringVarP(&estimate, "estimate", "e", "", "Estimate ID or prefix")
	cmd.Flags().StringVar(&section, "section", "", "Section number or ID")
	cmd.Flags().StringVar(&parentItem, "parent-item", "", "Parent line item ID")
	cmd.Flags().StringVar(&number, "number", "", "Position number")
	cmd.Flags().StringVar(&code, "code", "", "Normative code")
	cmd.Flags().StringVar(&name, "name", "", "Item name")
	cmd.Flags().StringVar(&unit, "unit", "", "Unit of measure")
	cmd.Flags().Float64Var(&quantity, "qty", 0, "Quantity")
	cmd.Flags().Float64Var(&price, "price", 0, "Unit price")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
