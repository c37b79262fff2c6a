// Package device keeps the records of devices seen during a scan session.
package device

import (
	"fmt"
	"strings"
	"time"

	"bluescout/classify"
	"bluescout/rssi"
)

// UnknownName is the display name of a device that never advertised one.
const UnknownName = "Unknown Device"

// BondState is the pairing state reported by the platform.
type BondState int

const (
	BondNone BondState = iota
	BondPairing
	BondPaired
)

func (b BondState) String() string {
	switch b {
	case BondPairing:
		return "pairing"
	case BondPaired:
		return "paired"
	default:
		return "none"
	}
}

// Sighting is one advertisement or discovery result as delivered by a platform adapter.
type Sighting struct {
	Address          string
	Name             string
	RSSI             int
	TxPower          int
	Services         []string
	ManufacturerData map[uint16][]byte
	Class            *uint32
	Bond             BondState
	BLE              bool
	Connectable      bool
}

// Record is the merged view of a device.
type Record struct {
	Address       string
	Name          string
	RSSI          int
	Bond          BondState
	Type          classify.Type
	ClassLabel    string
	Manufacturer  string
	Services      []string
	BLE           bool
	Connectable   bool
	TxPower       int
	Advertisement map[string]string
	FirstSeen     time.Time
	LastSeen      time.Time
}

func (r Record) Bonded() bool { return r.Bond == BondPaired }

func (r Record) Quality() rssi.Quality { return rssi.QualityOf(r.RSSI) }

// Distance is the estimated distance in meters.
func (r Record) Distance() float64 { return rssi.Distance(r.RSSI, r.TxPower) }

// advertisementMap renders the raw advertisement fields the way they are shown to users.
func advertisementMap(s Sighting) map[string]string {
	data := make(map[string]string)
	if s.Name != "" {
		data["Name"] = s.Name
	}
	if s.TxPower != rssi.TxPowerUnknown {
		data["TX Power"] = fmt.Sprintf("%d dBm", s.TxPower)
	}
	if len(s.Services) > 0 {
		short := make([]string, len(s.Services))
		for i, u := range s.Services {
			short[i] = u
			if len(u) > 8 {
				short[i] = u[:8]
			}
		}
		data["Services"] = strings.Join(short, ", ")
	}
	for id, v := range s.ManufacturerData {
		data[fmt.Sprintf("Manufacturer %d", id)] = fmt.Sprintf("%X", v)
	}
	return data
}
