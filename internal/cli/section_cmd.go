package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/smeta/internal/cli/formatter"
	"github.com/alexanderramin/smeta/internal/service"
)

func newSectionCmd(app *App) *cobra.Command {
	var estimate string

	cmd := &cobra.Command{
		Use:     "section",
		Aliases: []string{"sec"},
		Short:   "Edit the section tree of an estimate",
		Long: `Edit the section tree of an estimate.

Sections are addressed by their number ("2.1") or by ID. Every structural
change renumbers the affected scopes and refreshes the estimate snapshot.`,
	}
	cmd.PersistentFlags().StringVarP(&estimate, "estimate", "e", "", "Estimate ID or prefix")

	cmd.AddCommand(
		newSectionAddCmd(app, &estimate),
		newSectionMoveCmd(app, &estimate),
		newSectionRenameCmd(app, &estimate),
		newSectionDeleteCmd(app, &estimate),
		newSectionTreeCmd(app, &estimate),
		newSectionRenumberCmd(app, &estimate),
	)
	return cmd
}

func newSectionAddCmd(app *App, estimate *string) *cobra.Command {
	var name, parent string
	var position int

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a section, appended unless --position is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			estID, err := resolveEstimateID(ctx, app, *estimate)
			if err != nil {
				return err
			}
			in := service.CreateSectionInput{EstimateID: estID, Name: name}
			if parent != "" {
				pid, err := resolveSectionID(ctx, app, estID, parent)
				if err != nil {
					return err
				}
				in.ParentID = &pid
			}
			if in.Order, err = optionalOrder(cmd.Flags(), "position", position); err != nil {
				return err
			}

			s, err := app.Structure.CreateSection(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added section %s %s\n", formatter.Bold(s.SectionNumber), s.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Section name")
	cmd.Flags().StringVar(&parent, "parent", "", "Parent section number or ID")
	cmd.Flags().IntVar(&position, "position", 0, "1-based position among siblings")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newSectionMoveCmd(app *App, estimate *string) *cobra.Command {
	var parent string
	var root bool
	var position int

	cmd := &cobra.Command{
		Use:   "move <section>",
		Short: "Move a section to another parent and/or position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			estID, err := resolveEstimateID(ctx, app, *estimate)
			if err != nil {
				return err
			}
			id, err := resolveSectionID(ctx, app, estID, args[0])
			if err != nil {
				return err
			}
			order, err := positionToOrder(position)
			if err != nil {
				return err
			}

			var parentID *string
			switch {
			case root && parent != "":
				return fmt.Errorf("--root and --parent are mutually exclusive")
			case parent != "":
				pid, err := resolveSectionID(ctx, app, estID, parent)
				if err != nil {
					return err
				}
				parentID = &pid
			case !root:
				current, err := currentParent(cmd, app, estID, id)
				if err != nil {
					return err
				}
				parentID = current
			}

			s, err := app.Structure.MoveSection(ctx, id, parentID, order)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Section %s is now %s\n", s.Name, formatter.Bold(s.SectionNumber))
			return nil
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "New parent section number or ID")
	cmd.Flags().BoolVar(&root, "root", false, "Move to the top level")
	cmd.Flags().IntVar(&position, "position", 1, "1-based position among the new siblings")
	return cmd
}

// currentParent keeps a section under its parent when move only changes position.
func currentParent(cmd *cobra.Command, app *App, estimateID, sectionID string) (*string, error) {
	sections, err := app.Structure.ListSections(cmd.Context(), estimateID)
	if err != nil {
		return nil, err
	}
	for _, s := range sections {
		if s.ID == sectionID {
			return s.ParentSectionID, nil
		}
	}
	return nil, fmt.Errorf("section not found: %q", sectionID)
}

func newSectionRenameCmd(app *App, estimate *string) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "rename <section>",
		Short: "Rename a section without renumbering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			estID, err := resolveEstimateID(ctx, app, *estimate)
			if err != nil {
				return err
			}
			id, err := resolveSectionID(ctx, app, estID, args[0])
			if err != nil {
				return err
			}
			if err := app.Structure.RenameSection(ctx, id, name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed section %s to %s\n", args[0], name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New section name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newSectionDeleteCmd(app *App, estimate *string) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <section>",
		Aliases: []string{"rm"},
		Short:   "Delete a section with its subsections and items",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			estID, err := resolveEstimateID(ctx, app, *estimate)
			if err != nil {
				return err
			}
			id, err := resolveSectionID(ctx, app, estID, args[0])
			if err != nil {
				return err
			}
			if err := app.Structure.DeleteSection(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted section %s\n", args[0])
			return nil
		},
	}
}

func newSectionTreeCmd(app *App, estimate *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Show the section tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			estID, err := resolveEstimateID(ctx, app, *estimate)
			if err != nil {
				return err
			}
			sections, err := app.Structure.ListSections(ctx, estID)
			if err != nil {
				return err
			}
			if len(sections) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("No sections yet."))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTree(formatter.SectionTree(sections)))
			return nil
		},
	}
}

func newSectionRenumberCmd(app *App, estimate *string) *cobra.Command {
	return &cobra.Command{
		Use:   "renumber",
		Short: "Rewrite every section number from the tree shape",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			estID, err := resolveEstimateID(ctx, app, *estimate)
			if err != nil {
				return err
			}
			if err := app.Structure.RenumberAll(ctx, estID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Renumbered all sections")
			return nil
		},
	}
}
