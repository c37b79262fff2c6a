package bluez

import (
	"context"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"

	"bluescout/device"
)

// Adapter wraps the BlueZ adapter (e.g. /org/bluez/hci0).
type Adapter struct {
	conn *dbus.Conn
	path dbus.ObjectPath
}

// DefaultAdapter returns the first BlueZ adapter (hci0).
func DefaultAdapter(conn *dbus.Conn) (*Adapter, error) {
	objs, err := managedObjects(conn)
	if err != nil {
		return nil, err
	}
	var first dbus.ObjectPath
	for path, ifaces := range objs {
		p := string(path)
		if _, ok := ifaces[ifaceAdapter]; !ok {
			continue
		}
		if strings.HasPrefix(p, adapterPrefix) && strings.Count(p, "/") == 3 {
			if first == "" || path < first {
				first = path
			}
		}
	}
	if first == "" {
		return nil, fmt.Errorf("no BlueZ adapter found")
	}
	return &Adapter{conn: conn, path: first}, nil
}

// Powered reports whether the adapter radio is on.
func (a *Adapter) Powered(ctx context.Context) (bool, error) {
	var v dbus.Variant
	err := a.conn.Object(bluezDest, a.path).
		CallWithContext(ctx, ifaceProperties+".Get", 0, ifaceAdapter, "Powered").
		Store(&v)
	if err != nil {
		return false, fmt.Errorf("read Powered: %w", err)
	}
	on, _ := v.Value().(bool)
	return on, nil
}

// StartDiscovery starts discovery on every transport allowed by the filter.
func (a *Adapter) StartDiscovery() error {
	return a.conn.Object(bluezDest, a.path).Call(ifaceAdapter+".StartDiscovery", 0).Err
}

// StopDiscovery stops discovery.
func (a *Adapter) StopDiscovery() error {
	return a.conn.Object(bluezDest, a.path).Call(ifaceAdapter+".StopDiscovery", 0).Err
}

// SetDiscoveryFilter selects the transport ("auto", "bredr" or "le") and asks
// BlueZ to report every advertisement so RSSI keeps updating.
func (a *Adapter) SetDiscoveryFilter(transport string) error {
	filter := map[string]any{
		"Transport":     transport,
		"DuplicateData": true,
	}
	return a.conn.Object(bluezDest, a.path).Call(ifaceAdapter+".SetDiscoveryFilter", 0, filter).Err
}

// Paired lists the devices bonded with this adapter.
func (a *Adapter) Paired() ([]device.Sighting, error) {
	objs, err := managedObjects(a.conn)
	if err != nil {
		return nil, err
	}
	return pairedFromObjects(a.path, objs), nil
}

func pairedFromObjects(adapter dbus.ObjectPath, objs Objects) []device.Sighting {
	var out []device.Sighting
	for path, ifaces := range objs {
		props, ok := ifaces[ifaceDevice]
		if !ok || !isDevicePath(adapter, path) {
			continue
		}
		sg := SightingFromProps(AddrFromPath(path), props)
		if sg.Bond == device.BondPaired {
			out = append(out, sg)
		}
	}
	return out
}

// Path returns the adapter object path.
func (a *Adapter) Path() dbus.ObjectPath {
	return a.path
}
