package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/smeta/internal/cli/formatter"
	"github.com/alexanderramin/smeta/internal/snapshot"
)

func newSnapshotCmd(app *App) *cobra.Command {
	var estimate string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Generate or show the published estimate tree",
	}
	cmd.PersistentFlags().StringVarP(&estimate, "estimate", "e", "", "Estimate ID or prefix")

	cmd.AddCommand(
		newSnapshotGenerateCmd(app, &estimate),
		newSnapshotShowCmd(app, &estimate),
	)
	return cmd
}

func newSnapshotGenerateCmd(app *App, estimate *string) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Rebuild the snapshot now",
		RunE: func(cmd *cobra.Command, args []string) error {
			estID, err := resolveEstimateID(cmd.Context(), app, *estimate)
			if err != nil {
				return err
			}
			path, err := app.Snapshots.Generate(cmd.Context(), estID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Snapshot written to %s\n", path)
			return nil
		},
	}
}

func newSnapshotShowCmd(app *App, estimate *string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the current snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			estID, err := resolveEstimateID(cmd.Context(), app, *estimate)
			if err != nil {
				return err
			}
			p, err := app.Snapshots.Load(cmd.Context(), estID)
			if err != nil {
				return err
			}
			if asJSON {
				data, err := snapshot.Encode(p)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			sections, items := p.Counts()
			fmt.Fprintln(cmd.OutOrStdout(), formatter.Header("Snapshot " + formatter.TruncID(p.EstimateID)))
			fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim(fmt.Sprintf("%d sections, %d items, generated %s",
				sections, items, formatter.HumanTimestamp(p.GeneratedAt))))
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTree(formatter.SnapshotTree(p)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON payload")
	return cmd
}
