// Package tui renders a live table of nearby devices.
package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"bluescout/device"
	"bluescout/rssi"
)

const refreshInterval = 500 * time.Millisecond

// Ensure *Model satisfies tea.Model.
var _ tea.Model = (*Model)(nil)

// Scanner is the scan session the dashboard drives.
type Scanner interface {
	Start(ctx context.Context) error
	Stop() error
	Scanning() bool
	Devices() []device.Record
	Err() error
}

// Deps are the dashboard's dependencies.
type Deps struct {
	Ctx       context.Context
	Scanner   Scanner
	ExportDir string
	Premium   bool
}

// Model is the root Bubble Tea model of the dashboard.
type Model struct {
	deps    Deps
	table   table.Model
	records []device.Record
	status  string
	failed  bool
	width   int
	height  int
	now     func() time.Time
}

func New(deps Deps) *Model {
	if deps.Ctx == nil {
		deps.Ctx = context.Background()
	}
	t := table.New(
		table.WithColumns(columns(100)),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorBorder).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))
	t.SetStyles(s)

	return &Model{
		deps:   deps,
		table:  t,
		status: "Press s to scan",
		now:    time.Now,
	}
}

func (m *Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetColumns(columns(msg.Width))
		h := msg.Height - 8
		if h < 5 {
			h = 5
		}
		m.table.SetHeight(h)
		return m, nil

	case tickMsg:
		m.refresh()
		return m, tick()

	case scanToggledMsg:
		switch {
		case msg.err != nil:
			m.setError(msg.err)
		case msg.started:
			m.setStatus("Scanning...")
		default:
			m.setStatus(fmt.Sprintf("Scan stopped, %d devices", len(m.deps.Scanner.Devices())))
		}
		m.refresh()
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setStatus("Exported to " + msg.path)
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.deps.Scanner.Scanning() {
				_ = m.deps.Scanner.Stop()
			}
			return m, tea.Quit
		case "s":
			return m, m.toggleScan()
		case "e":
			return m, m.export()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) toggleScan() tea.Cmd {
	sc := m.deps.Scanner
	ctx := m.deps.Ctx
	if sc.Scanning() {
		return func() tea.Msg { return scanToggledMsg{started: false, err: sc.Stop()} }
	}
	return func() tea.Msg {
		if err := sc.Start(ctx); err != nil {
			return scanToggledMsg{err: err}
		}
		return scanToggledMsg{started: true}
	}
}

func (m *Model) export() tea.Cmd {
	records := m.deps.Scanner.Devices()
	now := m.now()
	path := filepath.Join(m.deps.ExportDir, device.ExportFileName(now))
	return func() tea.Msg {
		return exportedMsg{path: path, err: device.SaveExport(path, records, now)}
	}
}

func (m *Model) refresh() {
	if err := m.deps.Scanner.Err(); err != nil {
		m.setError(err)
	}
	if !m.deps.Scanner.Scanning() && m.status == "Scanning..." {
		m.setStatus(fmt.Sprintf("Scan complete, %d devices", len(m.deps.Scanner.Devices())))
	}
	m.records = m.deps.Scanner.Devices()
	m.table.SetRows(Rows(m.records))
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.failed = false
}

func (m *Model) setError(err error) {
	m.status = "Error: " + err.Error()
	m.failed = true
}

func (m *Model) View() string {
	var b strings.Builder

	title := "bluescout"
	if m.deps.Premium {
		title += " (premium)"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	st := device.Stats(m.records)
	b.WriteString(statsStyle.Render(fmt.Sprintf(
		"%d devices  BLE %d  Classic %d  Paired %d  Phones %d  Audio %d  Wearables %d",
		st.Total, st.BLE, st.Classic, st.Bonded, st.Phones, st.Audio, st.Wearables)))
	b.WriteString("\n")

	b.WriteString(frameStyle.Render(m.table.View()))
	b.WriteString("\n")

	if m.failed {
		b.WriteString(errorStyle.Render(m.status))
	} else {
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("s start/stop scan • e export • ↑/↓ select • q quit"))
	return b.String()
}

func columns(width int) []table.Column {
	nameW := width - 17 - 12 - 16 - 6 - 16 - 8 - 16
	if nameW < 16 {
		nameW = 16
	}
	return []table.Column{
		{Title: "Name", Width: nameW},
		{Title: "Address", Width: 17},
		{Title: "Type", Width: 12},
		{Title: "Manufacturer", Width: 16},
		{Title: "RSSI", Width: 6},
		{Title: "Quality", Width: 16},
		{Title: "Distance", Width: 8},
	}
}

// Rows renders records as table rows in their snapshot order.
func Rows(records []device.Record) []table.Row {
	rows := make([]table.Row, 0, len(records))
	for _, r := range records {
		q := r.Quality()
		rows = append(rows, table.Row{
			r.Type.Icon() + " " + r.Name,
			r.Address,
			r.Type.DisplayName(),
			r.Manufacturer,
			strconv.Itoa(r.RSSI),
			strings.Repeat("▮", rssi.Bars(r.RSSI)) + " " + q.String(),
			fmt.Sprintf("%.1fm", r.Distance()),
		})
	}
	return rows
}
