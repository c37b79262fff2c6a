package bluez

import (
	"maps"
	"strings"

	"github.com/godbus/dbus/v5"

	"bluescout/device"
	"bluescout/rssi"
)

// SightingFromProps decodes the org.bluez.Device1 properties of one device.
// addr is used when the Address property is missing.
func SightingFromProps(addr string, props map[string]dbus.Variant) device.Sighting {
	sg := device.Sighting{
		Address:     addr,
		TxPower:     rssi.TxPowerUnknown,
		Connectable: true,
	}

	if v, ok := str(props, "Address"); ok && v != "" {
		sg.Address = v
	}
	sg.Name = displayName(sg.Address, props)

	if v, ok := props["RSSI"].Value().(int16); ok {
		sg.RSSI = int(v)
	}
	if v, ok := props["TxPower"].Value().(int16); ok {
		sg.TxPower = int(v)
	}
	if v, ok := props["UUIDs"].Value().([]string); ok {
		sg.Services = v
	}
	if v, ok := props["Class"].Value().(uint32); ok {
		class := v
		sg.Class = &class
	}
	sg.ManufacturerData = manufacturerData(props["ManufacturerData"])

	paired, _ := props["Paired"].Value().(bool)
	bonded, _ := props["Bonded"].Value().(bool)
	if paired || bonded {
		sg.Bond = device.BondPaired
	}

	addrType, _ := str(props, "AddressType")
	sg.BLE = sg.Class == nil || addrType == "random"
	return sg
}

// displayName prefers Name over Alias. BlueZ fills Alias with the dashed
// address when a device never sent a name, which is not a name.
func displayName(addr string, props map[string]dbus.Variant) string {
	if n, ok := str(props, "Name"); ok && n != "" {
		return n
	}
	alias, ok := str(props, "Alias")
	if !ok || alias == "" || strings.EqualFold(alias, strings.ReplaceAll(addr, ":", "-")) {
		return ""
	}
	return alias
}

func str(props map[string]dbus.Variant, key string) (string, bool) {
	v, ok := props[key]
	if !ok {
		return "", false
	}
	s, ok := v.Value().(string)
	return s, ok
}

func manufacturerData(v dbus.Variant) map[uint16][]byte {
	raw, ok := v.Value().(map[uint16]dbus.Variant)
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make(map[uint16][]byte, len(raw))
	for id, data := range raw {
		if b, ok := data.Value().([]byte); ok {
			out[id] = b
		}
	}
	return out
}

// mergeProps applies a PropertiesChanged body to cached properties.
func mergeProps(cached, changed map[string]dbus.Variant, invalidated []string) map[string]dbus.Variant {
	out := make(map[string]dbus.Variant, len(cached)+len(changed))
	maps.Copy(out, cached)
	maps.Copy(out, changed)
	for _, k := range invalidated {
		delete(out, k)
	}
	return out
}
