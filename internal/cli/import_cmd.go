package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/smeta/internal/cli/formatter"
	"github.com/alexanderramin/smeta/internal/domain"
)

// importPollInterval is how often "import run" checks a queued session.
var importPollInterval = 200 * time.Millisecond

func newImportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import estimate files (CSV, XLSX, XML)",
	}

	cmd.AddCommand(
		newImportRunCmd(app),
		newImportStartCmd(app),
		newImportCancelCmd(app),
		newImportStatusCmd(app),
	)
	return cmd
}

func newImportRunCmd(app *App) *cobra.Command {
	var estimate string

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Import a file and wait for the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			estID, err := resolveEstimateID(ctx, app, estimate)
			if err != nil {
				return err
			}
			sess, err := app.Imports.Start(ctx, estID, args[0])
			if err != nil {
				return err
			}
			sess, err = waitForImport(ctx, app, sess)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatImportSession(sess))
			if sess.Status == domain.ImportFailed {
				return fmt.Errorf("import failed: %s", sess.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&estimate, "estimate", "e", "", "Estimate ID or prefix")
	return cmd
}

func waitForImport(ctx context.Context, app *App, sess *domain.ImportSession) (*domain.ImportSession, error) {
	ticker := time.NewTicker(importPollInterval)
	defer ticker.Stop()
	for !sess.Status.Terminal() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
		var err error
		if sess, err = app.Imports.Status(ctx, sess.ID); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

func newImportStartCmd(app *App) *cobra.Command {
	var estimate string

	cmd := &cobra.Command{
		Use:   "start <file>",
		Short: "Queue an import and print its session ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			estID, err := resolveEstimateID(ctx, app, estimate)
			if err != nil {
				return err
			}
			sess, err := app.Imports.Start(ctx, estID, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Import session %s %s\n", sess.ID, formatter.ImportStatusPill(sess.Status))
			return nil
		},
	}

	cmd.Flags().StringVarP(&estimate, "estimate", "e", "", "Estimate ID or prefix")
	return cmd
}

func newImportCancelCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <session>",
		Short: "Cancel a pending or running import",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Imports.Cancel(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancelled import %s\n", args[0])
			return nil
		},
	}
}

func newImportStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status <session>",
		Short: "Show an import session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.Imports.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatImportSession(sess))
			return nil
		},
	}
}
