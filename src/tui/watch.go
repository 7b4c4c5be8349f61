// Package tui provides the terminal dashboard for watching recent builds.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"relay-agent/src/contracts"
	"relay-agent/src/store"
)

// maxRows caps how many builds the dashboard shows.
const maxRows = 50

type refreshMsg []contracts.BuildRecord

type refreshErrMsg struct{ err error }

type tickMsg time.Time

// WatchModel is the bubbletea model listing recent builds from the store.
type WatchModel struct {
	store    store.Store
	table    table.Model
	interval time.Duration
	err      error
}

// NewWatchModel creates a dashboard polling the store at the given interval.
func NewWatchModel(st store.Store, interval time.Duration) WatchModel {
	columns := []table.Column{
		{Title: "SHA", Width: 10},
		{Title: "KIND", Width: 12},
		{Title: "REF", Width: 22},
		{Title: "STATE", Width: 9},
		{Title: "DESCRIPTION", Width: 38},
		{Title: "STARTED", Width: 19},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(maxRows/2),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).Foreground(colorTitle)
	styles.Selected = styles.Selected.Foreground(colorTitle).Bold(true)
	t.SetStyles(styles)

	return WatchModel{
		store:    st,
		table:    t,
		interval: interval,
	}
}

func (m WatchModel) Init() tea.Cmd {
	return m.refresh
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case refreshMsg:
		m.err = nil
		m.table.SetRows(buildRows(msg))
		return m, m.scheduleTick()

	case refreshErrMsg:
		m.err = msg.err
		return m, m.scheduleTick()

	case tickMsg:
		return m, m.refresh
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m WatchModel) View() string {
	s := titleStyle.Render("relay — recent builds") + "\n"
	s += tableStyle.Render(m.table.View()) + "\n"
	if m.err != nil {
		s += helpStyle.Render("store error: "+m.err.Error()) + "\n"
	}
	s += helpStyle.Render("q: quit")
	return s
}

// refresh loads the latest builds from the store.
func (m WatchModel) refresh() tea.Msg {
	recs, err := m.store.ListRecent(context.Background(), maxRows)
	if err != nil {
		return refreshErrMsg{err: err}
	}
	return refreshMsg(recs)
}

func (m WatchModel) scheduleTick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// buildRows renders records into table rows, newest first.
func buildRows(recs []contracts.BuildRecord) []table.Row {
	rows := make([]table.Row, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, table.Row{
			Truncate(rec.SHA, 10),
			string(rec.Kind),
			Truncate(rec.Ref, 22),
			stateStyle(rec.State).Render(string(rec.State)),
			Truncate(rec.Description, 38),
			rec.StartedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return rows
}

// RunWatch runs the dashboard until the user quits.
func RunWatch(st store.Store, interval time.Duration) error {
	p := tea.NewProgram(NewWatchModel(st, interval))
	_, err := p.Run()
	return err
}
