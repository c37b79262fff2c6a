// Package gatt builds a named view of a device's attribute table and rates how well it
// is protected.
package gatt

import "bluescout/assigned"

const (
	UnknownService        = "Unknown Service"
	UnknownCharacteristic = "Unknown"
)

// RawCharacteristic is a characteristic as discovered by the platform.
type RawCharacteristic struct {
	UUID        string
	Properties  Property
	Permissions Permission
	WriteType   WriteType
	Descriptors int
}

// RawService is a service as discovered by the platform, characteristics in handle order.
type RawService struct {
	UUID            string
	Primary         bool
	Characteristics []RawCharacteristic
}

// Characteristic is a resolved characteristic.
type Characteristic struct {
	UUID        string
	Name        string
	Properties  Property
	Permissions Permission
	WriteType   WriteType
	Descriptors int
}

func (c Characteristic) Readable() bool { return c.Properties.Has(PropRead) }

func (c Characteristic) Writable() bool {
	return c.Properties.Has(PropWrite | PropWriteNoResponse)
}

func (c Characteristic) Notifies() bool  { return c.Properties.Has(PropNotify) }
func (c Characteristic) Indicates() bool { return c.Properties.Has(PropIndicate) }

// Service is a resolved service owning its characteristics.
type Service struct {
	UUID            string
	Name            string
	Primary         bool
	Characteristics []Characteristic
	Level           Level
}

func (s Service) Kind() string {
	if s.Primary {
		return "Primary"
	}
	return "Secondary"
}

// ProgressFunc receives the percentage of services and characteristics processed.
type ProgressFunc func(percent int)

// ItemCount is the number of progress steps Build takes for raw.
func ItemCount(raw []RawService) int {
	n := 0
	for _, s := range raw {
		n += 1 + len(s.Characteristics)
	}
	return n
}

// Build resolves names, decodes flags and rates every service. progress, when not nil,
// is called after each characteristic and after each service with a non-decreasing
// percentage; the last call reports 100. An empty table reports 100 once.
func Build(raw []RawService, progress ProgressFunc) []Service {
	report := func(int) {}
	if progress != nil {
		report = progress
	}

	total := ItemCount(raw)
	if total == 0 {
		report(100)
		return []Service{}
	}

	out := make([]Service, 0, len(raw))
	done := 0
	for _, rs := range raw {
		chars := make([]Characteristic, 0, len(rs.Characteristics))
		for _, rc := range rs.Characteristics {
			id := assigned.Canonical(rc.UUID)
			name, ok := assigned.CharacteristicName(id)
			if !ok {
				name = UnknownCharacteristic
			}
			chars = append(chars, Characteristic{
				UUID:        id,
				Name:        name,
				Properties:  rc.Properties,
				Permissions: rc.Permissions.Known(),
				WriteType:   rc.WriteType,
				Descriptors: rc.Descriptors,
			})
			done++
			report(done * 100 / total)
		}

		id := assigned.Canonical(rs.UUID)
		name, ok := assigned.ServiceName(id)
		if !ok {
			name = UnknownService
		}
		out = append(out, Service{
			UUID:            id,
			Name:            name,
			Primary:         rs.Primary,
			Characteristics: chars,
			Level:           ServiceLevel(chars),
		})
		done++
		report(done * 100 / total)
	}
	return out
}
