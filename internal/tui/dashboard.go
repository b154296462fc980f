// Package tui renders the operator dashboard served over SSH: one row per
// registered asset with its latest price, block flag and breaker state.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"oracle-aggregator/internal/decimals"
	"oracle-aggregator/internal/domain"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Reader is the aggregator surface the dashboard polls.
type Reader interface {
	Assets(ctx context.Context) ([]domain.Asset, error)
	LastPrice(ctx context.Context, asset domain.Asset) (*domain.PriceData, error)
	Decimals(ctx context.Context) (uint32, error)
	BreakerStatus(ctx context.Context, asset domain.Asset) (domain.BreakerState, error)
}

const fetchTimeout = 10 * time.Second

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	tableBorder = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240"))
)

var columns = []table.Column{
	{Title: "Asset", Width: 28},
	{Title: "Price", Width: 24},
	{Title: "Updated", Width: 20},
	{Title: "Status", Width: 24},
}

type snapshotMsg struct {
	rows []table.Row
	err  error
	at   time.Time
}

type tickMsg time.Time

type Model struct {
	reader   Reader
	username string
	refresh  time.Duration

	table   table.Model
	width   int
	height  int
	updated time.Time
	err     error
}

func New(reader Reader, username string, refresh time.Duration) Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).Bold(true)
	s.Selected = s.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	t.SetStyles(s)

	return Model{reader: reader, username: username, refresh: refresh, table: t}
}

// SetSize fits the table to the terminal, keeping room for the title and
// status lines.
func (m *Model) SetSize(width, height int) {
	m.width, m.height = width, height
	if h := height - 6; h > 3 {
		m.table.SetHeight(h)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, m.load()
		}
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil
	case snapshotMsg:
		m.err = msg.err
		if msg.err == nil {
			m.table.SetRows(msg.rows)
			m.updated = msg.at
		}
		return m, nil
	case tickMsg:
		return m, tea.Batch(m.load(), m.tick())
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	title := titleStyle.Render("oracle aggregator")
	if m.username != "" {
		title += statusStyle.Render(" " + m.username)
	}
	status := statusStyle.Render("loading...")
	if !m.updated.IsZero() {
		status = statusStyle.Render("updated " + m.updated.UTC().Format(time.TimeOnly) + " UTC  r refresh  q quit")
	}
	if m.err != nil {
		status = errorStyle.Render("error: " + m.err.Error())
	}
	return title + "\n" + tableBorder.Render(m.table.View()) + "\n" + status + "\n"
}

func (m Model) load() tea.Cmd {
	reader := m.reader
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		rows, err := Snapshot(ctx, reader)
		return snapshotMsg{rows: rows, err: err, at: time.Now()}
	}
}

func (m Model) tick() tea.Cmd {
	if m.refresh <= 0 {
		return nil
	}
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Snapshot resolves every registered asset into a table row. Per-asset
// failures are shown in the row rather than failing the whole table.
func Snapshot(ctx context.Context, reader Reader) ([]table.Row, error) {
	assets, err := reader.Assets(ctx)
	if err != nil {
		return nil, err
	}
	dec, err := reader.Decimals(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]table.Row, 0, len(assets))
	for _, asset := range assets {
		rows = append(rows, assetRow(ctx, reader, asset, dec))
	}
	return rows, nil
}

func assetRow(ctx context.Context, reader Reader, asset domain.Asset, dec uint32) table.Row {
	price, updated := "-", "-"
	status := "ok"

	p, err := reader.LastPrice(ctx, asset)
	switch {
	case errors.Is(err, domain.ErrAssetBlocked):
		status = "blocked"
	case err != nil:
		status = "error"
	case p != nil:
		price = decimals.Format(p.Price, dec)
		updated = time.Unix(int64(p.Timestamp), 0).UTC().Format("2006-01-02 15:04:05")
	default:
		status = "no price"
	}

	if st, err := reader.BreakerStatus(ctx, asset); err == nil && st.Tripped {
		status = fmt.Sprintf("tripped until %s", time.Unix(int64(st.Until), 0).UTC().Format(time.TimeOnly))
	}
	return table.Row{asset.String(), price, updated, status}
}
