package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/coachsync/internal/application"
	"github.com/bnema/coachsync/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type View struct {
	Session *application.SessionStatus
	Unread  *application.UnreadSnapshot
	Room    *RoomView
}

type RoomView struct {
	ID       domain.RoomID
	Self     domain.UserID
	Messages []domain.ChatMessage
	Typing   []domain.UserID
}

type RenderOptions struct {
	Now time.Time
	// StaleAfter flags an unread count older than this. Zero disables it.
	StaleAfter time.Duration
}

func renderView(view View, opts RenderOptions, s styles) string {
	var sections []string

	if view.Session != nil {
		sections = append(sections, renderSession(*view.Session, opts, s))
	}
	if view.Unread != nil {
		sections = append(sections, renderUnread(*view.Unread, opts, s))
	}
	if view.Room != nil {
		sections = append(sections, renderRoom(*view.Room, s))
	}

	if len(sections) == 0 {
		return s.empty.Render("Nothing to show.")
	}

	for i := 1; i < len(sections); i++ {
		sections[i] = s.section.Render(sections[i])
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderSession(status application.SessionStatus, opts RenderOptions, s styles) string {
	lines := []string{s.title.Render("Session")}

	if !status.IsAuthenticated {
		lines = append(lines, s.empty.Render("Signed out."))
		if status.LastError != "" {
			lines = append(lines, s.warning.Render("last error: "+status.LastError))
		}
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	if status.Profile != nil {
		lines = append(lines, s.name.Render(profileTitle(*status.Profile)))
	}
	lines = append(lines,
		keyValue("user", string(status.UserID), s),
		keyValue("device", valueOr(status.DeviceID, "unassigned"), s),
		tokenLine(status, opts, s),
	)
	if status.LastError != "" {
		lines = append(lines, s.warning.Render("last error: "+status.LastError))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func tokenLine(status application.SessionStatus, opts RenderOptions, s styles) string {
	label := s.key.Render("token:")
	switch {
	case !status.HasToken:
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.warning.Render("missing"))
	case status.ExpiresAt.IsZero():
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.detail.Render("present"))
	case status.Expired:
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.degraded.Render("expired, refreshes on next request"))
	default:
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.detail.Render(formatExpiry(status.ExpiresAt, opts.Now)))
	}
}

func renderUnread(snap application.UnreadSnapshot, opts RenderOptions, s styles) string {
	badge := s.badge.Render(fmt.Sprintf("%d", snap.Count))
	line := lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.title.Render("Unread"),
		" ",
		badge,
		" ",
		s.meta.Render(fmt.Sprintf("across %d %s", snap.Rooms, plural(snap.Rooms, "room", "rooms"))),
	)

	health := lipgloss.JoinHorizontal(lipgloss.Top, s.key.Render("connection:"), " ", healthStyle(snap.Health, s).Render(snap.Health.String()))
	if !snap.RecomputedAt.IsZero() && !opts.Now.IsZero() {
		health += " " + s.meta.Render("(updated "+formatAgo(snap.RecomputedAt, opts.Now)+")")
	}
	if isStale(snap, opts) {
		health += " " + s.warning.Render("[stale]")
	}

	return lipgloss.JoinVertical(lipgloss.Left, line, health)
}

// RenderRoom renders a room transcript directly, for views that already run
// inside a bubbletea program.
func RenderRoom(room RoomView) string {
	return renderRoom(room, newStyles())
}

// RenderUnreadLine renders the compact unread badge used in status bars.
func RenderUnreadLine(snap application.UnreadSnapshot) string {
	s := newStyles()
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.key.Render("unread:"),
		" ",
		s.badge.Render(fmt.Sprintf("%d", snap.Count)),
		" ",
		healthStyle(snap.Health, s).Render(snap.Health.String()),
	)
}

func renderRoom(room RoomView, s styles) string {
	lines := []string{
		s.title.Render(fmt.Sprintf("Room %d", room.ID)),
		s.header.Render(fmt.Sprintf("messages: %d", len(room.Messages))),
	}

	if len(room.Messages) == 0 {
		lines = append(lines, s.empty.Render("No messages yet."))
	}
	for _, msg := range room.Messages {
		lines = append(lines, messageLine(msg, room.Self, s))
	}

	if len(room.Typing) > 0 {
		names := make([]string, len(room.Typing))
		for i, user := range room.Typing {
			names[i] = string(user)
		}
		verb := "is"
		if len(names) > 1 {
			verb = "are"
		}
		lines = append(lines, s.typing.Render(fmt.Sprintf("%s %s typing...", strings.Join(names, ", "), verb)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func messageLine(msg domain.ChatMessage, self domain.UserID, s styles) string {
	stamp := s.meta.Render(msg.CreatedAt.Local().Format("15:04"))
	sender := string(msg.SenderID)
	style := s.other
	if msg.SenderID == self {
		sender = "you"
		style = s.own
	}

	line := lipgloss.JoinHorizontal(lipgloss.Top, stamp, " ", s.key.Render(sender+":"), " ", style.Render(msg.Content))
	if msg.IsUnreadFor(self) {
		line += " " + s.warning.Render("*")
	}
	return line
}

func healthStyle(health domain.ConnectionHealth, s styles) lipgloss.Style {
	switch health {
	case domain.HealthLive:
		return s.healthy
	case domain.HealthPolling, domain.HealthReconnecting:
		return s.degraded
	default:
		return s.connected
	}
}

func isStale(snap application.UnreadSnapshot, opts RenderOptions) bool {
	if opts.StaleAfter <= 0 || opts.Now.IsZero() || snap.Health == domain.HealthIdle {
		return false
	}
	if snap.RecomputedAt.IsZero() {
		return true
	}
	return opts.Now.Sub(snap.RecomputedAt) > opts.StaleAfter
}

func formatExpiry(expiresAt, now time.Time) string {
	if now.IsZero() {
		return "expires " + expiresAt.Format(time.RFC3339)
	}
	if !expiresAt.After(now) {
		return "expired"
	}

	remaining := expiresAt.Sub(now)
	if remaining < time.Hour {
		minutes := max(int(math.Ceil(remaining.Minutes())), 1)
		return fmt.Sprintf("expires in %d %s (%s)", minutes, plural(minutes, "minute", "minutes"), expiresAt.Format("15:04"))
	}
	if remaining < 24*time.Hour {
		hours := max(int(math.Ceil(remaining.Hours())), 1)
		return fmt.Sprintf("expires in %d %s (%s)", hours, plural(hours, "hour", "hours"), expiresAt.Format("15:04"))
	}

	days := max(int(math.Ceil(remaining.Hours()/24)), 1)
	return fmt.Sprintf("expires in %d %s (%s)", days, plural(days, "day", "days"), expiresAt.Format("15:04 on 02 Jan"))
}

func formatAgo(at, now time.Time) string {
	elapsed := now.Sub(at)
	switch {
	case elapsed < time.Second:
		return "just now"
	case elapsed < time.Minute:
		seconds := int(elapsed.Seconds())
		return fmt.Sprintf("%d %s ago", seconds, plural(seconds, "second", "seconds"))
	case elapsed < time.Hour:
		minutes := int(elapsed.Minutes())
		return fmt.Sprintf("%d %s ago", minutes, plural(minutes, "minute", "minutes"))
	default:
		return "at " + at.Format("15:04")
	}
}

func profileTitle(p domain.Profile) string {
	name := p.DisplayName()
	if p.Role == "" {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, p.Role)
}

func keyValue(key, value string, s styles) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, s.key.Render(key+":"), " ", s.detail.Render(value))
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
