package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/vango-dev/memo/pkg/compose"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#87CEEB"))

	skipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func topCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Watch per-component render and skip counts",
		Long: `Run the blog workload and show a live table of call sites with
their render and skip counts.

Keys:
  space  pause or resume the workload
  q      quit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			interval, _ := cfg.TickInterval()

			s := newSession(cfg, logger)
			if err := s.sched.Mount(cmd.Context()); err != nil {
				return err
			}
			defer s.sched.Unmount()

			p := tea.NewProgram(newTopModel(cmd.Context(), s, interval), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}
	return cmd
}

type topModel struct {
	ctx      context.Context
	session  *session
	interval time.Duration
	step     int
	paused   bool
	sites    []compose.SiteStats
	last     compose.CycleReport
	err      error
}

type stepMsg struct{}

func newTopModel(ctx context.Context, s *session, interval time.Duration) *topModel {
	return &topModel{
		ctx:      ctx,
		session:  s,
		interval: interval,
		sites:    s.sched.Sites(),
	}
}

func (m *topModel) Init() tea.Cmd {
	return m.next()
}

func (m *topModel) next() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return stepMsg{} })
}

func (m *topModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
		}

	case stepMsg:
		if !m.paused {
			m.err = m.session.step(m.ctx, m.step)
			m.step++
			m.sites = m.session.sched.Sites()
			if cycles := m.session.recorder.Cycles(); len(cycles) > 0 {
				m.last = cycles[len(cycles)-1]
			}
		}
		return m, m.next()
	}
	return m, nil
}

func (m *topModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("vango-memo top"))
	status := fmt.Sprintf("  step %d, %d cycles", m.step, m.session.sched.Cycles())
	if m.paused {
		status += " (paused)"
	}
	b.WriteString(status)
	b.WriteString("\n\n")

	width := len("call site")
	for _, s := range m.sites {
		width = max(width, len(s.Path))
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %8s %8s %6s", width, "call site", "renders", "skips", "cut")))
	b.WriteString("\n")
	for _, s := range m.sites {
		cut := "-"
		if total := s.Renders + s.Skips; total > 0 {
			cut = fmt.Sprintf("%.0f%%", float64(s.Skips)/float64(total)*100)
		}
		row := fmt.Sprintf("%-*s %8d %8d %6s", width, s.Path, s.Renders, s.Skips, cut)
		if s.Skips > s.Renders {
			row = skipStyle.Render(row)
		}
		b.WriteString(row)
		b.WriteString("\n")
	}

	if m.last.ID > 0 {
		fmt.Fprintf(&b, "\nlast cycle #%d %s: %d rendered, %d skipped\n",
			m.last.ID, m.last.Cause, len(m.last.Rendered), len(m.last.Skipped))
	}
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("space: pause • q: quit"))
	return b.String()
}
