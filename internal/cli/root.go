package cli

import (
	"github.com/spf13/cobra"

	"github.com/alexanderramin/smeta/internal/service"
)

// App holds references to all service interfaces used by CLI commands.
type App struct {
	Estimates  service.EstimateService
	Structure  service.StructureService
	Imports    service.ImportService
	Snapshots  service.SnapshotService
	Normatives service.NormativeService
}

// NewRootCmd creates the top-level "smeta" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "smeta",
		Short:         "Construction estimate structure engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newEstimateCmd(app),
		newSectionCmd(app),
		newItemCmd(app),
		newImportCmd(app),
		newReviewCmd(app),
		newSnapshotCmd(app),
		newNormativeCmd(app),
	)

	return root
}
