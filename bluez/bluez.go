// Package bluez drives the BlueZ daemon over D-Bus (Linux only, pure Go).
package bluez

import (
	"fmt"
	"sort"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	bluezDest     = "org.bluez"
	bluezRoot     = "/"
	adapterPrefix = "/org/bluez/"

	ifaceAdapter        = "org.bluez.Adapter1"
	ifaceDevice         = "org.bluez.Device1"
	ifaceService        = "org.bluez.GattService1"
	ifaceCharacteristic = "org.bluez.GattCharacteristic1"
	ifaceDescriptor     = "org.bluez.GattDescriptor1"
	ifaceProperties     = "org.freedesktop.DBus.Properties"
	ifaceObjectManager  = "org.freedesktop.DBus.ObjectManager"
)

// Objects is the reply of ObjectManager.GetManagedObjects.
type Objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

func managedObjects(conn *dbus.Conn) (Objects, error) {
	var out Objects
	err := conn.Object(bluezDest, bluezRoot).Call(ifaceObjectManager+".GetManagedObjects", 0).Store(&out)
	if err != nil {
		return nil, fmt.Errorf("GetManagedObjects: %w", err)
	}
	return out, nil
}

// under returns the paths strictly below parent that carry iface, in path order.
// BlueZ names attribute objects by zero-padded handle, so path order is handle order.
func (o Objects) under(parent dbus.ObjectPath, iface string) []dbus.ObjectPath {
	prefix := string(parent) + "/"
	var out []dbus.ObjectPath
	for path, ifaces := range o {
		if !strings.HasPrefix(string(path), prefix) {
			continue
		}
		if _, ok := ifaces[iface]; ok {
			out = append(out, path)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AddrFromPath extracts MAC from device path dev_AA_BB_CC_DD_EE_FF -> AA:BB:CC:DD:EE:FF.
func AddrFromPath(path dbus.ObjectPath) string {
	s := string(path)
	i := strings.LastIndex(s, "/")
	if i < 0 {
		return ""
	}
	s = s[i+1:]
	if !strings.HasPrefix(s, "dev_") {
		return ""
	}
	s = s[4:]
	return strings.ReplaceAll(s, "_", ":")
}

// PathFromAddr converts MAC to device object path (e.g. AA:BB:CC:DD:EE:FF -> dev_AA_BB_CC_DD_EE_FF).
func PathFromAddr(adapterPath dbus.ObjectPath, addr string) dbus.ObjectPath {
	s := strings.ReplaceAll(strings.ToUpper(addr), ":", "_")
	return dbus.ObjectPath(string(adapterPath) + "/dev_" + s)
}

func isDevicePath(adapter, path dbus.ObjectPath) bool {
	rest, ok := strings.CutPrefix(string(path), string(adapter)+"/")
	return ok && strings.HasPrefix(rest, "dev_") && !strings.Contains(rest, "/")
}
