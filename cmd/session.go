package cmd

import (
	"encoding/json"
	"fmt"

	statusadapter "github.com/bnema/coachsync/internal/adapters/render/status"
	"github.com/spf13/cobra"
)

func newSessionCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "session",
		Aliases: []string{"status"},
		Short:   "Show the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.ready(cmd.Context()); err != nil {
				return err
			}
			status := app.service.Status(cmd.Context())

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}

			rendered, err := app.statusRenderer(statusadapter.View{Session: &status}, statusadapter.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render session: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")

	return cmd
}
