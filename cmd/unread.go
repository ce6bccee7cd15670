package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	statusadapter "github.com/bnema/coachsync/internal/adapters/render/status"
	"github.com/bnema/coachsync/internal/application"
	"github.com/bnema/coachsync/internal/domain"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newUnreadCmd(app *app) *cobra.Command {
	var (
		watch  bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "unread",
		Short: "Show the unread message count across your rooms",
		Long:  "unread subscribes to live message changes and recounts on every change, falling back to polling while the realtime channel is down. With --watch it keeps printing updates until interrupted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.ready(cmd.Context()); err != nil {
				return err
			}
			user := app.sessions.Read().UserID
			if user == "" {
				return domain.ErrNotAuthenticated
			}

			stack, err := app.openChat(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = stack.Close() }()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return stack.tracker.Run(gctx)
			})
			g.Go(func() error {
				defer cancel()
				if err := stack.tracker.SetIdentity(gctx, user); err != nil {
					return err
				}
				write := func(snap application.UnreadSnapshot) error {
					return writeUnread(cmd.OutOrStdout(), app, snap, asJSON)
				}
				if watch {
					return watchUnread(gctx, stack.tracker, write)
				}
				snap, err := firstCount(gctx, stack.tracker, app.cfg.API.Timeout)
				if err != nil {
					return err
				}
				return write(snap)
			})

			err = g.Wait()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep printing updates until interrupted")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")

	return cmd
}

// firstCount waits for the first snapshot backed by a completed count.
func firstCount(ctx context.Context, tracker *application.UnreadTracker, timeout time.Duration) (application.UnreadSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return application.UnreadSnapshot{}, fmt.Errorf("no unread count within %s", timeout)
			}
			return application.UnreadSnapshot{}, ctx.Err()
		case snap := <-tracker.Updates():
			if !snap.RecomputedAt.IsZero() {
				return snap, nil
			}
		}
	}
}

func watchUnread(ctx context.Context, tracker *application.UnreadTracker, write func(application.UnreadSnapshot) error) error {
	var last *application.UnreadSnapshot
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-tracker.Updates():
			if snap.RecomputedAt.IsZero() {
				continue
			}
			if last != nil && last.Count == snap.Count && last.Health == snap.Health {
				last = &snap
				continue
			}
			last = &snap
			if err := write(snap); err != nil {
				return err
			}
		}
	}
}

func writeUnread(out io.Writer, app *app, snap application.UnreadSnapshot, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(out).Encode(snap)
	}

	rendered, err := app.statusRenderer(statusadapter.View{Unread: &snap}, statusadapter.RenderOptions{
		Now:        app.now(),
		StaleAfter: app.cfg.Unread.StaleAfter,
	})
	if err != nil {
		return fmt.Errorf("render unread: %w", err)
	}
	_, err = fmt.Fprintln(out, rendered)
	return err
}
