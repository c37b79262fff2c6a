package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bluescout/classify"
	"bluescout/device"
	"bluescout/rssi"
)

type fakeScanner struct {
	mu       sync.Mutex
	scanning bool
	starts   int
	stops    int
	startErr error
	err      error
	records  []device.Record
}

func (f *fakeScanner) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.starts++
	f.scanning = true
	return nil
}

func (f *fakeScanner) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.scanning = false
	return nil
}

func (f *fakeScanner) Scanning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scanning
}

func (f *fakeScanner) Devices() []device.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records
}

func (f *fakeScanner) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := f.err
	f.err = nil
	return err
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var lockRecord = device.Record{
	Address:      "AA:BB:CC:00:00:01",
	Name:         "Front Door Lock",
	RSSI:         -59,
	TxPower:      rssi.TxPowerUnknown,
	Type:         classify.SmartLock,
	Manufacturer: "Unknown",
	BLE:          true,
}

func TestRows(t *testing.T) {
	rows := Rows([]device.Record{lockRecord})
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, "🔒 Front Door Lock", r[0])
	assert.Equal(t, "AA:BB:CC:00:00:01", r[1])
	assert.Equal(t, "Smart Lock", r[2])
	assert.Equal(t, "-59", r[4])
	assert.True(t, strings.HasSuffix(r[5], "Good"))
	assert.Equal(t, "1.0m", r[6])
}

func TestToggleScan(t *testing.T) {
	sc := &fakeScanner{}
	m := New(Deps{Scanner: sc})

	_, cmd := m.Update(key("s"))
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, scanToggledMsg{started: true}, msg)
	m.Update(msg)
	assert.Equal(t, "Scanning...", m.status)
	assert.Equal(t, 1, sc.starts)

	sc.records = []device.Record{lockRecord}
	_, cmd = m.Update(key("s"))
	m.Update(cmd())
	assert.Equal(t, 1, sc.stops)
	assert.Contains(t, m.status, "1 devices")
	assert.Len(t, m.table.Rows(), 1)
}

func TestStartError(t *testing.T) {
	sc := &fakeScanner{startErr: errors.New("bluetooth radio unavailable")}
	m := New(Deps{Scanner: sc})

	_, cmd := m.Update(key("s"))
	m.Update(cmd())
	assert.True(t, m.failed)
	assert.Contains(t, m.View(), "bluetooth radio unavailable")
}

func TestTickRefreshes(t *testing.T) {
	sc := &fakeScanner{records: []device.Record{lockRecord}, err: errors.New("scan failed: busy")}
	m := New(Deps{Scanner: sc})

	_, cmd := m.Update(tickMsg(time.Now()))
	assert.NotNil(t, cmd)
	assert.Len(t, m.table.Rows(), 1)
	assert.True(t, m.failed)
	assert.Contains(t, m.View(), "1 devices")
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	sc := &fakeScanner{records: []device.Record{lockRecord}}
	m := New(Deps{Scanner: sc, ExportDir: dir})
	m.now = func() time.Time { return time.Date(2026, 3, 1, 9, 5, 7, 0, time.Local) }

	_, cmd := m.Update(key("e"))
	msg := cmd()
	m.Update(msg)

	path := filepath.Join(dir, "bluescout_scan_20260301_090507.json")
	assert.Equal(t, exportedMsg{path: path}, msg)
	_, err := os.Stat(path)
	assert.NoError(t, err)
	assert.Contains(t, m.status, path)
}

func TestQuitStopsScan(t *testing.T) {
	sc := &fakeScanner{scanning: true}
	m := New(Deps{Scanner: sc})

	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Equal(t, 1, sc.stops)
}
