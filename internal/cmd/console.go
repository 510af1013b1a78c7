package cmd

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tmuxwire/tmuxwire/internal/control"
	"github.com/tmuxwire/tmuxwire/internal/engine"
	"github.com/tmuxwire/tmuxwire/internal/protocol"
	"github.com/tmuxwire/tmuxwire/internal/style"
)

var consoleCmd = &cobra.Command{
	Use:     "console",
	GroupID: GroupCore,
	Short:   "Interactive control-mode console",
	Long: `A full-screen console on one control-mode connection: type tmux
commands at the prompt and watch replies and asynchronous notifications
interleave in arrival order.

Arguments are split shell-style, so quoting works as expected:

  tmux> new-session -d -s work
  tmux> send-keys -t work 'echo hello' Enter

Ctrl+C or Esc quits. The connection closes on exit; the tmux server
and its sessions stay up.`,
	Args: cobra.NoArgs,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

func runConsole(cmd *cobra.Command, args []string) error {
	cfg, err := settings()
	if err != nil {
		return err
	}

	cl := control.NewClient(controlConfig(cfg))
	defer cl.Close()
	if err := cl.Connect(); err != nil {
		return err
	}

	_, err = tea.NewProgram(newConsoleModel(cl), tea.WithAltScreen()).Run()
	return err
}

// consoleEvent carries one notification into the update loop.
type consoleEvent protocol.Notification

// consoleReply carries one command result into the update loop.
type consoleReply struct {
	res *engine.Result
	err error
}

type consoleModel struct {
	client   *control.Client
	viewport viewport.Model
	input    textinput.Model
	lines    []string
	ready    bool
}

func newConsoleModel(cl *control.Client) consoleModel {
	ti := textinput.New()
	ti.Placeholder = "tmux command"
	ti.Prompt = style.Bold.Render("tmux> ")
	ti.Focus()

	return consoleModel{
		client: cl,
		input:  ti,
		lines: []string{
			style.Dim.Render("connected; notifications stream in as they happen"),
		},
	}
}

func (m consoleModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, listenEvents(m.client))
}

// listenEvents waits for the next notification.
func listenEvents(cl *control.Client) tea.Cmd {
	return func() tea.Msg {
		return consoleEvent(<-cl.Notifications())
	}
}

// submitCommand runs one command line without blocking the UI.
func submitCommand(cl *control.Client, line string) tea.Cmd {
	return func() tea.Msg {
		argv, err := protocol.SplitLine(line)
		if err != nil {
			return consoleReply{err: err}
		}
		res, err := cl.Execute(context.Background(), argv...)
		return consoleReply{res: res, err: err}
	}
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		inputCmd tea.Cmd
		vpCmd    tea.Cmd
	)
	m.input, inputCmd = m.input.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				return m, tea.Batch(inputCmd, vpCmd)
			}
			m.input.SetValue("")
			m.push(style.Bold.Render("tmux> ") + line)
			return m, tea.Batch(inputCmd, vpCmd, submitCommand(m.client, line))
		}

	case tea.WindowSizeMsg:
		footer := 2
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-footer)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - footer
		}
		m.input.Width = msg.Width - 10
		m.refresh()

	case consoleEvent:
		m.push(formatNotification(protocol.Notification(msg)))
		return m, tea.Batch(inputCmd, vpCmd, listenEvents(m.client))

	case consoleReply:
		m.pushReply(msg)
	}

	return m, tea.Batch(inputCmd, vpCmd)
}

func (m consoleModel) View() string {
	if !m.ready {
		return "starting..."
	}
	return m.viewport.View() + "\n" + m.input.View() + "\n" +
		style.Dim.Render("Enter: run  Ctrl+C: quit")
}

// push appends one line to the transcript and keeps the view pinned to
// the bottom.
func (m *consoleModel) push(line string) {
	m.lines = append(m.lines, line)
	m.refresh()
}

func (m *consoleModel) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

func (m *consoleModel) pushReply(r consoleReply) {
	if r.err != nil {
		m.push(style.ErrorPrefix + " " + r.err.Error())
		return
	}
	for _, l := range r.res.Stdout {
		m.push("  " + l)
	}
	for _, l := range r.res.Stderr {
		m.push("  " + style.Error.Render(l))
	}
	if len(r.res.Stdout) == 0 && len(r.res.Stderr) == 0 {
		if r.res.Success() {
			m.push(style.Dim.Render("  ok"))
		} else {
			m.push("  " + style.Error.Render("error"))
		}
	}
}
