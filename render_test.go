package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"bluescout/classify"
	"bluescout/device"
	"bluescout/gatt"
	"bluescout/rssi"
	"bluescout/tracking"
)

func TestRenderDevices(t *testing.T) {
	assert.Equal(t, "No devices found.", renderDevices(nil))

	out := renderDevices([]device.Record{{
		Address:      "AA:BB:CC:00:00:01",
		Name:         "Front Door Lock",
		RSSI:         -59,
		TxPower:      rssi.TxPowerUnknown,
		Type:         classify.SmartLock,
		Manufacturer: "Apple",
		Bond:         device.BondPaired,
	}})
	assert.Contains(t, out, "Front Door Lock")
	assert.Contains(t, out, "AA:BB:CC:00:00:01")
	assert.Contains(t, out, "Smart Lock")
	assert.Contains(t, out, "1.0m")
	assert.Contains(t, out, "yes")
}

func TestRenderTreeAndReport(t *testing.T) {
	services := gatt.Build([]gatt.RawService{{
		UUID:    "180d",
		Primary: true,
		Characteristics: []gatt.RawCharacteristic{
			{UUID: "2a37", Properties: gatt.PropNotify, Descriptors: 1},
			{UUID: "2a39", Properties: gatt.PropWrite},
		},
	}}, nil)

	tree := renderTree("AA:BB:CC:00:00:01", services)
	assert.Contains(t, tree, "AA:BB:CC:00:00:01")
	assert.Contains(t, tree, "Heart Rate")
	assert.Contains(t, tree, "Heart Rate Measurement")
	assert.Contains(t, tree, "descriptors=1")
	assert.Contains(t, tree, "0x180d")
	assert.Contains(t, tree, "0x2a37")

	report := renderReport(gatt.Assess(services))
	assert.Contains(t, report, "Security level: LOW")
	assert.Contains(t, report, gatt.IssueUnencryptedWrite)
	assert.Contains(t, report, gatt.IssueNotifyNoMITM)
}

func TestRenderReportClean(t *testing.T) {
	out := renderReport(gatt.Assess(nil))
	assert.Contains(t, out, "Security level: HIGH")
	assert.Contains(t, out, "0 findings")
}

func TestShortUUID(t *testing.T) {
	assert.Equal(t, "0x180f", shortUUID("0000180f-0000-1000-8000-00805f9b34fb"))
	assert.Equal(t, "a1b2c3d4-e5f6-1111-2222-333344445555", shortUUID("a1b2c3d4-e5f6-1111-2222-333344445555"))
}

func TestRenderTracked(t *testing.T) {
	tr := tracking.New(5, 1.0, nil)
	assert.Equal(t, "No devices tracked.", renderTracked(tr))

	at := time.Date(2024, 3, 1, 12, 30, 0, 0, time.Local)
	rec := device.Record{Address: "AA:BB:CC:00:00:09", Name: "Tile", RSSI: -70, TxPower: rssi.TxPowerUnknown}
	tr.Observe([]device.Record{rec}, at)
	rec.RSSI = -59
	tr.Observe([]device.Record{rec}, at.Add(time.Minute))

	out := renderTracked(tr)
	assert.Contains(t, out, "AA:BB:CC:00:00:09")
	assert.Contains(t, out, "-59")
	assert.Contains(t, out, "1.0m")
	assert.Contains(t, out, "12:31:00")
}
