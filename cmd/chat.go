package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/bnema/coachsync/internal/adapters/realtime/pgnotify"
	statusadapter "github.com/bnema/coachsync/internal/adapters/render/status"
	postgresrepo "github.com/bnema/coachsync/internal/adapters/repo/postgres"
	"github.com/bnema/coachsync/internal/application"
	"github.com/bnema/coachsync/internal/config"
	"github.com/bnema/coachsync/internal/domain"
	"github.com/spf13/cobra"
)

func newChatCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "List, read and write chat rooms",
	}

	cmd.AddCommand(
		newChatRoomsCmd(app),
		newChatHistoryCmd(app),
		newChatSendCmd(app),
		newChatReadCmd(app),
		newChatOpenCmd(app),
		newChatSetupCmd(app),
	)

	return cmd
}

func newChatRoomsCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "List the rooms you belong to",
		RunE: func(cmd *cobra.Command, _ []string) error {
			stack, err := openChatCommand(cmd, app)
			if err != nil {
				return err
			}
			defer func() { _ = stack.Close() }()

			rooms, err := stack.chat.Rooms(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				if rooms == nil {
					rooms = []domain.RoomID{}
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(rooms)
			}
			if len(rooms) == 0 {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "No rooms.")
				return err
			}
			for _, room := range rooms {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), room); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")

	return cmd
}

func newChatHistoryCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history <room>",
		Short: "Print the messages of a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			room, err := parseRoomID(args[0])
			if err != nil {
				return err
			}
			stack, err := openChatCommand(cmd, app)
			if err != nil {
				return err
			}
			defer func() { _ = stack.Close() }()

			msgs, err := stack.chat.History(cmd.Context(), room)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(msgs)
			}

			rendered, err := app.statusRenderer(statusadapter.View{Room: &statusadapter.RoomView{
				ID:       room,
				Self:     app.sessions.Read().UserID,
				Messages: msgs,
			}}, statusadapter.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render room: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")

	return cmd
}

func newChatSendCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "send <room> <message>...",
		Short: "Send a message to a room",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			room, err := parseRoomID(args[0])
			if err != nil {
				return err
			}
			stack, err := openChatCommand(cmd, app)
			if err != nil {
				return err
			}
			defer func() { _ = stack.Close() }()

			msg, err := stack.chat.Send(cmd.Context(), application.SendMessageCommand{
				RoomID:  room,
				Content: strings.Join(args[1:], " "),
			})
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Sent message %d to room %d\n", msg.ID, msg.RoomID)
			return err
		},
	}
}

func newChatReadCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "read <room>",
		Short: "Mark incoming messages in a room as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			room, err := parseRoomID(args[0])
			if err != nil {
				return err
			}
			stack, err := openChatCommand(cmd, app)
			if err != nil {
				return err
			}
			defer func() { _ = stack.Close() }()

			if err := stack.chat.MarkRead(cmd.Context(), room); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Room %d marked as read\n", room)
			return err
		},
	}
}

func newChatOpenCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "open <room>",
		Short: "Open a live room view with a composer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			room, err := parseRoomID(args[0])
			if err != nil {
				return err
			}
			stack, err := openChatCommand(cmd, app)
			if err != nil {
				return err
			}
			defer func() { _ = stack.Close() }()

			return runChatTUI(cmd, app, stack, room)
		},
	}
}

func newChatSetupCmd(app *app) *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Install the change trigger used by the pgnotify transport",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if printOnly {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(pgnotify.TriggerSQL))
				return err
			}
			if app.cfg.Database.URL == "" {
				return fmt.Errorf("%s is required (env %s)", config.KeyDatabaseURL, config.EnvName(config.KeyDatabaseURL))
			}

			db, err := postgresrepo.Open(cmd.Context(), app.cfg.Database.URL, app.logger.Named("postgres"))
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := pgnotify.InstallTrigger(cmd.Context(), db); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Change trigger installed on %s\n", postgresrepo.RedactDSN(app.cfg.Database.URL))
			return err
		},
	}

	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the trigger SQL instead of running it")

	return cmd
}

func openChatCommand(cmd *cobra.Command, app *app) (*chatStack, error) {
	if err := app.ready(cmd.Context()); err != nil {
		return nil, err
	}
	if app.sessions.Read().UserID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	return app.openChat(cmd.Context())
}

func parseRoomID(raw string) (domain.RoomID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid room id %q", raw)
	}
	return domain.RoomID(id), nil
}
