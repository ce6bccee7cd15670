package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	statusadapter "github.com/bnema/coachsync/internal/adapters/render/status"
	"github.com/bnema/coachsync/internal/application"
	"github.com/bnema/coachsync/internal/domain"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const typingRefreshInterval = 500 * time.Millisecond

type roomMessagesMsg []domain.ChatMessage

type unreadMsg application.UnreadSnapshot

type typingTickMsg struct{}

type scrollToBottomMsg struct{}

type sentMsg struct {
	err error
}

type markedReadMsg struct {
	err error
}

// viewportTarget confirms a scroll once the viewport has rendered the
// requested message.
type viewportTarget struct {
	program  atomic.Pointer[tea.Program]
	rendered atomic.Int64
}

func (t *viewportTarget) ScrollToLatest(id domain.MessageID) bool {
	if domain.MessageID(t.rendered.Load()) != id {
		return false
	}
	p := t.program.Load()
	if p == nil {
		return false
	}
	p.Send(scrollToBottomMsg{})
	return true
}

type chatModel struct {
	ctx      context.Context
	room     domain.RoomID
	self     domain.UserID
	stream   *application.RoomStream
	follower *application.ScrollFollower
	target   *viewportTarget
	logger   *zap.Logger

	viewport viewport.Model
	input    textinput.Model
	ready    bool
	sending  string

	messages []domain.ChatMessage
	typing   []domain.UserID
	unread   *application.UnreadSnapshot
	err      error
}

func newChatModel(ctx context.Context, room domain.RoomID, self domain.UserID, stream *application.RoomStream, target *viewportTarget, logger *zap.Logger) chatModel {
	input := textinput.New()
	input.Placeholder = "Write a message, enter to send, esc to quit"
	input.Prompt = "> "
	input.CharLimit = 4000
	input.Focus()

	return chatModel{
		ctx:      ctx,
		room:     room,
		self:     self,
		stream:   stream,
		follower: application.NewScrollFollower(target, nil),
		target:   target,
		logger:   logger,
		input:    input,
		messages: stream.Messages(),
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, typingTick(), m.markRead())
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.FocusMsg:
		m.follow()

	case tea.WindowSizeMsg:
		height := max(msg.Height-3, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.input.Width = max(msg.Width-4, 10)
		m.refreshTranscript()
		m.follow()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.follower.Stop()
			return m, tea.Quit
		case tea.KeyEnter:
			content := m.input.Value()
			if strings.TrimSpace(content) == "" || m.sending != "" {
				return m, nil
			}
			m.sending = content
			return m, m.send(content)
		}

		var cmd tea.Cmd
		before := m.input.Value()
		m.input, cmd = m.input.Update(msg)
		if value := m.input.Value(); value != before {
			m.stream.Compose(value)
		}
		return m, cmd

	case roomMessagesMsg:
		m.messages = msg
		m.refreshTranscript()
		m.follow()
		if domain.CountUnread(m.messages, m.self) > 0 {
			cmds = append(cmds, m.markRead())
		}

	case unreadMsg:
		snap := application.UnreadSnapshot(msg)
		m.unread = &snap

	case typingTickMsg:
		m.typing = m.stream.TypingUsers()
		m.refreshTranscript()
		cmds = append(cmds, typingTick())

	case scrollToBottomMsg:
		if m.ready {
			m.viewport.GotoBottom()
		}

	case sentMsg:
		// The composer keeps its text until the send settles so a failed
		// message can be resent as is.
		sent := m.sending
		m.sending = ""
		m.err = msg.err
		if msg.err != nil {
			m.logger.Debug("send from composer failed", zap.Error(msg.err))
			break
		}
		if m.input.Value() == sent {
			m.input.Reset()
		}

	case markedReadMsg:
		if msg.err != nil {
			m.err = msg.err
		}
	}

	if m.ready {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m chatModel) View() string {
	if !m.ready {
		return "Opening room..."
	}

	status := fmt.Sprintf("room %d", m.room)
	if m.unread != nil {
		status += "  " + statusadapter.RenderUnreadLine(*m.unread)
	}
	if m.err != nil {
		status += "  " + lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Render(m.err.Error())
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), status, m.input.View())
}

func (m *chatModel) refreshTranscript() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(statusadapter.RenderRoom(statusadapter.RoomView{
		ID:       m.room,
		Self:     m.self,
		Messages: m.messages,
		Typing:   m.typing,
	}))
	if len(m.messages) > 0 {
		m.target.rendered.Store(int64(m.messages[len(m.messages)-1].ID))
	}
}

func (m chatModel) follow() {
	if len(m.messages) == 0 {
		return
	}
	m.follower.Follow(m.ctx, m.messages)
}

func (m chatModel) send(content string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.stream.Send(m.ctx, content)
		return sentMsg{err: err}
	}
}

func (m chatModel) markRead() tea.Cmd {
	return func() tea.Msg {
		return markedReadMsg{err: m.stream.MarkRead(m.ctx)}
	}
}

func typingTick() tea.Cmd {
	return tea.Tick(typingRefreshInterval, func(time.Time) tea.Msg {
		return typingTickMsg{}
	})
}

func runChatTUI(cmd *cobra.Command, app *app, stack *chatStack, room domain.RoomID) error {
	self := app.sessions.Read().UserID

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	stream, err := stack.chat.OpenRoom(ctx, room, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := stream.Close(); err != nil {
			app.logger.Debug("close room", zap.Error(err))
		}
	}()

	target := &viewportTarget{}
	p := tea.NewProgram(
		newChatModel(ctx, room, self, stream, target, app.logger.Named("tui")),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
		tea.WithAltScreen(),
		tea.WithReportFocus(),
	)
	target.program.Store(p)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return stack.tracker.Run(gctx)
	})
	g.Go(func() error {
		return stack.tracker.SetIdentity(gctx, self)
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case msgs := <-stream.Changes():
				p.Send(roomMessagesMsg(msgs))
			case snap := <-stack.tracker.Updates():
				p.Send(unreadMsg(snap))
			}
		}
	})

	_, runErr := p.Run()
	cancel()
	waitErr := g.Wait()

	if errors.Is(runErr, tea.ErrProgramKilled) || errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	if errors.Is(waitErr, context.Canceled) {
		waitErr = nil
	}
	return errors.Join(runErr, waitErr)
}
