// Package assigned holds Bluetooth SIG assigned numbers used to name services and
// characteristics.
package assigned

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// BaseUUID is the Bluetooth base UUID short-form identifiers expand into.
const BaseUUID = "00000000-0000-1000-8000-00805f9b34fb"

var services = map[string]string{
	"00001800-0000-1000-8000-00805f9b34fb": "Generic Access",
	"00001801-0000-1000-8000-00805f9b34fb": "Generic Attribute",
	"0000180a-0000-1000-8000-00805f9b34fb": "Device Information",
	"0000180d-0000-1000-8000-00805f9b34fb": "Heart Rate",
	"0000180f-0000-1000-8000-00805f9b34fb": "Battery Service",
	"00001810-0000-1000-8000-00805f9b34fb": "Blood Pressure",
	"00001812-0000-1000-8000-00805f9b34fb": "Human Interface Device",
	"00001816-0000-1000-8000-00805f9b34fb": "Cycling Speed and Cadence",
	"00001818-0000-1000-8000-00805f9b34fb": "Cycling Power",
	"00001819-0000-1000-8000-00805f9b34fb": "Location and Navigation",
	"0000181a-0000-1000-8000-00805f9b34fb": "Environmental Sensing",
	"0000181c-0000-1000-8000-00805f9b34fb": "User Data",
	"0000181d-0000-1000-8000-00805f9b34fb": "Weight Scale",
	"00001822-0000-1000-8000-00805f9b34fb": "Pulse Oximeter",
	"00001826-0000-1000-8000-00805f9b34fb": "Fitness Machine",
}

var characteristics = map[string]string{
	"00002a00-0000-1000-8000-00805f9b34fb": "Device Name",
	"00002a01-0000-1000-8000-00805f9b34fb": "Appearance",
	"00002a19-0000-1000-8000-00805f9b34fb": "Battery Level",
	"00002a24-0000-1000-8000-00805f9b34fb": "Model Number",
	"00002a25-0000-1000-8000-00805f9b34fb": "Serial Number",
	"00002a26-0000-1000-8000-00805f9b34fb": "Firmware Revision",
	"00002a27-0000-1000-8000-00805f9b34fb": "Hardware Revision",
	"00002a28-0000-1000-8000-00805f9b34fb": "Software Revision",
	"00002a29-0000-1000-8000-00805f9b34fb": "Manufacturer Name",
	"00002a37-0000-1000-8000-00805f9b34fb": "Heart Rate Measurement",
	"00002a38-0000-1000-8000-00805f9b34fb": "Body Sensor Location",
}

// Canonical returns the lowercase 128-bit form of a UUID. 16- and 32-bit short forms
// (with or without a 0x prefix) are expanded against BaseUUID. Input that is not a
// UUID is returned lower-cased and trimmed.
func Canonical(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	short := strings.TrimPrefix(s, "0x")
	switch len(short) {
	case 4:
		short = "0000" + short
		fallthrough
	case 8:
		if isHex(short) {
			return short + BaseUUID[8:]
		}
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return s
	}
	return u.String()
}

// Short16 returns the 16-bit alias of a UUID built on the base UUID, e.g. "180d".
func Short16(s string) (string, bool) {
	c := Canonical(s)
	if len(c) != len(BaseUUID) || c[8:] != BaseUUID[8:] || c[:4] != "0000" {
		return "", false
	}
	return c[4:8], true
}

// From16 expands a 16-bit assigned number.
func From16(v uint16) string {
	return fmt.Sprintf("%08x", uint32(v)) + BaseUUID[8:]
}

// ServiceName resolves a service UUID, reporting whether it is known.
func ServiceName(id string) (string, bool) {
	name, ok := services[Canonical(id)]
	return name, ok
}

// CharacteristicName resolves a characteristic UUID, reporting whether it is known.
func CharacteristicName(id string) (string, bool) {
	name, ok := characteristics[Canonical(id)]
	return name, ok
}

// KnownServices lists every service UUID in the table.
func KnownServices() []string {
	out := make([]string, 0, len(services))
	for id := range services {
		out = append(out, id)
	}
	return out
}

func isHex(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
