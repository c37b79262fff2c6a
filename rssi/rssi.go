// Package rssi turns received signal strength into a quality bucket and a rough
// distance. The distance is a monotonic proxy from the log-distance path-loss model, not
// a measurement.
package rssi

import (
	"math"
)

// TxPowerUnknown marks an advertisement without a TX power level.
const TxPowerUnknown = math.MinInt

// ReferencePower is the typical calibrated power at one meter, in dBm.
const ReferencePower = -59

// Quality is a signal strength bucket.
type Quality int

const (
	VeryWeak Quality = iota
	Weak
	Fair
	Good
	Excellent
)

func (q Quality) String() string {
	switch q {
	case Excellent:
		return "Excellent"
	case Good:
		return "Good"
	case Fair:
		return "Fair"
	case Weak:
		return "Weak"
	default:
		return "Very Weak"
	}
}

// QualityOf buckets an RSSI value. Each bucket includes its upper bound.
func QualityOf(rssi int) Quality {
	switch {
	case rssi >= -50:
		return Excellent
	case rssi >= -60:
		return Good
	case rssi >= -70:
		return Fair
	case rssi >= -80:
		return Weak
	default:
		return VeryWeak
	}
}

// Bars maps the quality bucket to a 0-4 signal bar count.
func Bars(rssi int) int {
	return int(QualityOf(rssi))
}

// Distance estimates meters from the transmitter.
func Distance(rssi, txPower int) float64 {
	if txPower == TxPowerUnknown {
		txPower = ReferencePower
	}
	return math.Pow(10, float64(txPower-rssi)/20)
}
