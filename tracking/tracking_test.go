package tracking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bluescout/device"
	"bluescout/rssi"
)

func rec(addr string, signal int) device.Record {
	return device.Record{Address: addr, Name: "Tag " + addr, RSSI: signal, TxPower: rssi.TxPowerUnknown}
}

type gate struct{ premium bool }

var errNoPremium = errors.New("premium required")

func (g gate) Require(string) error {
	if g.premium {
		return nil
	}
	return errNoPremium
}

func TestObserveAlertsOnApproach(t *testing.T) {
	tr := New(10, 2.0, nil)
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	// -79 dBm is 10m, -59 dBm is 1m with the reference power
	assert.Empty(t, tr.Observe([]device.Record{rec("A", -79)}, at))

	alerts := tr.Observe([]device.Record{rec("A", -59), rec("B", -59)}, at.Add(time.Minute))
	require.Len(t, alerts, 2)
	assert.Equal(t, "A", alerts[0].Address)
	assert.InDelta(t, 1.0, alerts[0].Distance, 0.001)

	// still near: no repeat
	assert.Empty(t, tr.Observe([]device.Record{rec("A", -60)}, at.Add(2*time.Minute)))

	// away and back again re-arms
	assert.Empty(t, tr.Observe([]device.Record{rec("A", -85)}, at.Add(3*time.Minute)))
	alerts = tr.Observe([]device.Record{rec("A", -55)}, at.Add(4*time.Minute))
	require.Len(t, alerts, 1)
	assert.Equal(t, at.Add(4*time.Minute), alerts[0].At)
}

func TestHistoryIsBounded(t *testing.T) {
	tr := New(3, 2.0, nil)
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := range 5 {
		tr.Observe([]device.Record{rec("A", -60-i)}, at.Add(time.Duration(i)*time.Second))
	}

	h := tr.History("A")
	require.Len(t, h, 3)
	assert.Equal(t, -62, h[0].RSSI)
	assert.Equal(t, -64, h[2].RSSI)
	assert.Equal(t, at.Add(4*time.Second), h[2].At)

	assert.Empty(t, tr.History("missing"))
	assert.Equal(t, []string{"A"}, tr.Tracked())
}

func TestRunRequiresPremium(t *testing.T) {
	tr := New(10, 2.0, nil)
	err := tr.Run(context.Background(), gate{}, "@every 1m", nil, nil)
	assert.ErrorIs(t, err, errNoPremium)
}

func TestRunRejectsBadSchedule(t *testing.T) {
	tr := New(10, 2.0, nil)
	err := tr.Run(context.Background(), gate{premium: true}, "whenever", nil, nil)
	assert.Error(t, err)
}

func TestRunScansUntilCancelled(t *testing.T) {
	tr := New(10, 2.0, nil)
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	scans := 0
	var alerts []Alert
	scan := func(context.Context) ([]device.Record, error) {
		mu.Lock()
		defer mu.Unlock()
		scans++
		return []device.Record{rec("A", -59)}, nil
	}
	onAlert := func(a Alert) {
		mu.Lock()
		defer mu.Unlock()
		alerts = append(alerts, a)
		cancel()
	}

	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx, gate{premium: true}, "@every 1h", scan, onAlert) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, scans)
	require.Len(t, alerts, 1)
	assert.Equal(t, "A", alerts[0].Address)
	assert.Len(t, tr.History("A"), 1)
}
