package classify

// Type is the heuristic device category.
type Type int

const (
	Unknown Type = iota
	Phone
	Computer
	Headphones
	Speaker
	Wearable
	Peripheral
	TV
	Car
	SmartLock
	Beacon
	IoT
)

var typeNames = [...]struct {
	enum    string
	display string
	icon    string
}{
	Unknown:    {"UNKNOWN", "Unknown", "❓"},
	Phone:      {"PHONE", "Phone", "📱"},
	Computer:   {"COMPUTER", "Computer", "💻"},
	Headphones: {"HEADPHONES", "Headphones", "🎧"},
	Speaker:    {"SPEAKER", "Speaker", "🔊"},
	Wearable:   {"WEARABLE", "Wearable", "⌚"},
	Peripheral: {"PERIPHERAL", "Peripheral", "🖱️"},
	TV:         {"TV", "TV", "📺"},
	Car:        {"CAR", "Car", "🚗"},
	SmartLock:  {"SMART_LOCK", "Smart Lock", "🔒"},
	Beacon:     {"BEACON", "Beacon", "📍"},
	IoT:        {"IOT", "IoT Device", "🔌"},
}

func (t Type) valid() bool { return t >= Unknown && int(t) < len(typeNames) }

// String returns the enum name used in exports, e.g. "SMART_LOCK".
func (t Type) String() string {
	if !t.valid() {
		return typeNames[Unknown].enum
	}
	return typeNames[t].enum
}

// DisplayName returns a human readable label.
func (t Type) DisplayName() string {
	if !t.valid() {
		return typeNames[Unknown].display
	}
	return typeNames[t].display
}

func (t Type) Icon() string {
	if !t.valid() {
		return typeNames[Unknown].icon
	}
	return typeNames[t].icon
}

// IsAudio reports whether the type plays audio.
func (t Type) IsAudio() bool {
	return t == Headphones || t == Speaker
}
