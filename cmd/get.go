package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

func newGetCmd(app *app) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Send an authenticated GET to the backend and print the JSON body",
		Long:  "get calls the backend with the stored session. An expired access token is refreshed once and the request replayed; a failed refresh signs the device out.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := app.requireAPI()
			if err != nil {
				return err
			}
			if err := app.ready(cmd.Context()); err != nil {
				return err
			}

			path := args[0]
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}

			var body json.RawMessage
			fetch := func(ctx context.Context) error {
				raw, err := api.Raw(ctx, http.MethodGet, path, nil)
				body = raw
				return err
			}
			if quiet {
				err = fetch(cmd.Context())
			} else {
				err = runFetchSpinner(cmd.Context(), cmd.ErrOrStderr(), "Fetching "+path+"...", fetch)
			}
			if err != nil {
				return err
			}

			var out bytes.Buffer
			if len(body) == 0 {
				return nil
			}
			if err := json.Indent(&out, body, "", "  "); err != nil {
				out.Reset()
				out.Write(body)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out.String())
			return err
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not show the progress spinner")

	return cmd
}
