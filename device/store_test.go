package device

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bluescout/classify"
	"bluescout/rssi"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sighting(addr, name string, r int) Sighting {
	return Sighting{Address: addr, Name: name, RSSI: r, TxPower: rssi.TxPowerUnknown, BLE: true, Connectable: true}
}

func TestUpsertDerivesFields(t *testing.T) {
	s := NewStore()
	sg := sighting("00:1A:7D:01:02:03", "Kitchen Speaker", -55)
	sg.Services = []string{"180F"}
	sg.ManufacturerData = map[uint16][]byte{76: {0x02, 0x15}}
	sg.TxPower = -8

	rec := s.Upsert(sg, t0)
	assert.Equal(t, classify.Speaker, rec.Type)
	assert.Equal(t, "Apple", rec.Manufacturer)
	assert.Equal(t, "Unknown", rec.ClassLabel)
	assert.Equal(t, []string{"0000180f-0000-1000-8000-00805f9b34fb"}, rec.Services)
	assert.Equal(t, "-8 dBm", rec.Advertisement["TX Power"])
	assert.Equal(t, "0000180f", rec.Advertisement["Services"])
	assert.Equal(t, "0215", rec.Advertisement["Manufacturer 76"])
	assert.Equal(t, rssi.Good, rec.Quality())
}

func TestResightingKeepsFirstSeen(t *testing.T) {
	s := NewStore()
	s.Upsert(sighting("AA:BB:CC:DD:EE:01", "Pixel Phone", -70), t0)

	later := t0.Add(5 * time.Second)
	rec := s.Upsert(sighting("AA:BB:CC:DD:EE:01", "Fitbit", -40), later)
	assert.Equal(t, t0, rec.FirstSeen)
	assert.Equal(t, later, rec.LastSeen)
	assert.Equal(t, classify.Wearable, rec.Type)
	assert.Equal(t, -40, rec.RSSI)

	// a late callback never moves last-seen backwards
	rec = s.Upsert(sighting("AA:BB:CC:DD:EE:01", "Fitbit", -41), t0.Add(time.Second))
	assert.Equal(t, later, rec.LastSeen)
	assert.Equal(t, t0, rec.FirstSeen)
	assert.Equal(t, 1, s.Len())
}

func TestNameFallsBackToPrevious(t *testing.T) {
	s := NewStore()
	s.Upsert(sighting("AA:BB:CC:DD:EE:02", "AirPods", -60), t0)
	rec := s.Upsert(sighting("AA:BB:CC:DD:EE:02", "", -61), t0.Add(time.Second))
	assert.Equal(t, "AirPods", rec.Name)
	assert.Equal(t, classify.Headphones, rec.Type)

	rec = s.Upsert(sighting("AA:BB:CC:DD:EE:03", "", -61), t0)
	assert.Equal(t, UnknownName, rec.Name)
	assert.Equal(t, classify.Unknown, rec.Type)
}

func TestSnapshotSortedAndReset(t *testing.T) {
	s := NewStore()
	s.Upsert(sighting("A", "a", -80), t0)
	s.Upsert(sighting("B", "b", -40), t0)
	s.Upsert(sighting("C", "c", -60), t0)

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []string{"B", "C", "A"}, []string{snap[0].Address, snap[1].Address, snap[2].Address})

	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Snapshot())
	// old snapshot is unaffected
	assert.Len(t, snap, 3)

	_, ok := s.Get("B")
	assert.False(t, ok)
}

func TestConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			s.Upsert(sighting("AA:BB:CC:DD:EE:FF", "Watch", -50-i%30), t0.Add(time.Duration(i)*time.Millisecond))
		}
	}()
	for i := 0; i < 500; i++ {
		for _, r := range s.Snapshot() {
			assert.Equal(t, "Watch", r.Name)
			assert.Equal(t, t0, r.FirstSeen)
		}
	}
	wg.Wait()
	rec, ok := s.Get("AA:BB:CC:DD:EE:FF")
	require.True(t, ok)
	assert.Equal(t, classify.Wearable, rec.Type)
}

func TestStats(t *testing.T) {
	s := NewStore()
	s.Upsert(sighting("1", "iPhone", -50), t0)
	s.Upsert(sighting("2", "JBL Go", -50), t0)
	s.Upsert(sighting("3", "Buds", -50), t0)
	classic := sighting("4", "", -50)
	classic.BLE = false
	classic.Bond = BondPaired
	s.Upsert(classic, t0)

	st := Stats(s.Snapshot())
	assert.Equal(t, Statistics{Total: 4, BLE: 3, Classic: 1, Bonded: 1, Phones: 1, Audio: 2, Unknown: 1}, st)
}

func TestUpsertAll(t *testing.T) {
	s := NewStore()
	assert.Nil(t, s.UpsertAll(nil, t0))
	s.Upsert(sighting("A", "Pixel Phone", -70), t0)

	recs := s.UpsertAll([]Sighting{
		sighting("B", "JBL Flip", -40),
		sighting("A", "", -55),
		sighting("C", "Galaxy Watch", -90),
	}, t0.Add(time.Second))
	require.Len(t, recs, 3)
	assert.Equal(t, "Pixel Phone", recs[1].Name)
	assert.Equal(t, t0, recs[1].FirstSeen)

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []string{"B", "A", "C"}, []string{snap[0].Address, snap[1].Address, snap[2].Address})
}
