package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/lipgloss/tree"

	"bluescout/assigned"
	"bluescout/device"
	"bluescout/gatt"
	"bluescout/tracking"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	highStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	mediumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func renderDevices(records []device.Record) string {
	if len(records) == 0 {
		return "No devices found."
	}
	t := newTable("Name", "Address", "Type", "Class", "Manufacturer", "RSSI", "Signal", "Distance", "Paired")
	for _, r := range records {
		paired := ""
		if r.Bonded() {
			paired = "yes"
		}
		t.Row(
			r.Type.Icon()+" "+r.Name,
			r.Address,
			r.Type.DisplayName(),
			r.ClassLabel,
			r.Manufacturer,
			strconv.Itoa(r.RSSI),
			r.Quality().String(),
			fmt.Sprintf("%.1fm", r.Distance()),
			paired,
		)
	}
	return t.String()
}

func renderStats(s device.Statistics) string {
	return fmt.Sprintf("%d devices: %d BLE, %d classic, %d paired, %d phones, %d audio, %d wearables, %d unknown",
		s.Total, s.BLE, s.Classic, s.Bonded, s.Phones, s.Audio, s.Wearables, s.Unknown)
}

func renderTree(addr string, services []gatt.Service) string {
	root := tree.Root(addr)
	for _, s := range services {
		node := tree.Root(fmt.Sprintf("%s %s (%s) [%s]", s.Name, shortUUID(s.UUID), s.Kind(), s.Level))
		for _, c := range s.Characteristics {
			line := fmt.Sprintf("%s %s [%s]", c.Name, shortUUID(c.UUID), c.Properties)
			if c.Permissions != 0 {
				line += " perms=" + c.Permissions.String()
			}
			if c.Descriptors > 0 {
				line += fmt.Sprintf(" descriptors=%d", c.Descriptors)
			}
			node.Child(line)
		}
		root.Child(node)
	}
	return root.String()
}

// shortUUID prints assigned numbers as 0xNNNN and anything else in full.
func shortUUID(id string) string {
	if short, ok := assigned.Short16(id); ok {
		return "0x" + short
	}
	return id
}

func renderTracked(t *tracking.Tracker) string {
	addrs := t.Tracked()
	if len(addrs) == 0 {
		return "No devices tracked."
	}
	tb := newTable("Address", "Samples", "Last RSSI", "Last distance", "Last seen")
	for _, addr := range addrs {
		h := t.History(addr)
		last := h[len(h)-1]
		tb.Row(
			addr,
			strconv.Itoa(len(h)),
			strconv.Itoa(last.RSSI),
			fmt.Sprintf("%.1fm", last.Distance),
			last.At.Format(time.TimeOnly),
		)
	}
	return tb.String()
}

func renderReport(r gatt.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Security level: %s (%s)\n", r.Overall, r.Overall.Description())
	fmt.Fprintf(&b, "%d services, %d characteristics, %d findings\n", r.Services, r.Characteristics, len(r.Findings))
	if len(r.Findings) == 0 {
		return b.String()
	}

	t := newTable("Severity", "Characteristic", "Issue", "Recommendation").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 0 {
				if r.Findings[row].Severity == gatt.SeverityHigh {
					return cellStyle.Inherit(highStyle)
				}
				return cellStyle.Inherit(mediumStyle)
			}
			return cellStyle
		})
	for _, f := range r.Findings {
		t.Row(f.Severity.String(), f.Characteristic, f.Issue, f.Recommendation)
	}
	b.WriteString(t.String())
	return b.String()
}

func renderKV(pairs [][2]string) string {
	t := table.New().Border(lipgloss.HiddenBorder()).StyleFunc(func(_, col int) lipgloss.Style {
		if col == 0 {
			return headerStyle
		}
		return cellStyle
	})
	for _, p := range pairs {
		t.Row(p[0], p[1])
	}
	return t.String()
}
