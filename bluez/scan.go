package bluez

import (
	"errors"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"

	"bluescout/device"
)

// ErrBusClosed is reported when the D-Bus connection goes away mid-scan.
var ErrBusClosed = errors.New("d-bus connection closed")

// ScanHandler receives discovery results. Failed is called at most once, after
// which no more sightings are delivered.
type ScanHandler struct {
	Sighting func(device.Sighting)
	Failed   func(error)
}

// Discovery is a running scan.
type Discovery struct {
	conn    *dbus.Conn
	adapter *Adapter
	handler ScanHandler
	signals chan *dbus.Signal
	matches [][]dbus.MatchOption

	// props caches every device's properties so partial updates can be
	// turned into complete sightings.
	props map[dbus.ObjectPath]map[string]dbus.Variant

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// StartScan starts discovery on every transport and returns once BlueZ accepted
// it. Devices BlueZ already knows about and currently hears are reported first.
func StartScan(conn *dbus.Conn, adapter *Adapter, h ScanHandler) (*Discovery, error) {
	d := &Discovery{
		conn:    conn,
		adapter: adapter,
		handler: h,
		signals: make(chan *dbus.Signal, 64),
		props:   make(map[dbus.ObjectPath]map[string]dbus.Variant),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		matches: [][]dbus.MatchOption{
			{dbus.WithMatchInterface(ifaceObjectManager), dbus.WithMatchMember("InterfacesAdded")},
			{dbus.WithMatchInterface(ifaceObjectManager), dbus.WithMatchMember("InterfacesRemoved")},
			{
				dbus.WithMatchInterface(ifaceProperties),
				dbus.WithMatchMember("PropertiesChanged"),
				dbus.WithMatchArg(0, ifaceDevice),
			},
		},
	}

	for _, m := range d.matches {
		if err := conn.AddMatchSignal(m...); err != nil {
			d.removeMatches()
			return nil, fmt.Errorf("AddMatch: %w", err)
		}
	}
	conn.Signal(d.signals)

	// non-fatal: older BlueZ versions reject DuplicateData
	_ = adapter.SetDiscoveryFilter("auto")
	if err := adapter.StartDiscovery(); err != nil {
		d.release()
		return nil, fmt.Errorf("StartDiscovery: %w", err)
	}

	if objs, err := managedObjects(conn); err == nil {
		for path, ifaces := range objs {
			if props, ok := ifaces[ifaceDevice]; ok && isDevicePath(adapter.path, path) {
				d.props[path] = props
			}
		}
	}

	go d.loop()
	return d, nil
}

func (d *Discovery) loop() {
	defer close(d.done)

	for path, props := range d.props {
		if _, heard := props["RSSI"]; heard {
			d.handler.Sighting(SightingFromProps(AddrFromPath(path), props))
		}
	}

	for {
		select {
		case <-d.stop:
			return
		case sig, ok := <-d.signals:
			if !ok {
				d.handler.Failed(ErrBusClosed)
				return
			}
			d.handle(sig)
		}
	}
}

func (d *Discovery) handle(sig *dbus.Signal) {
	switch sig.Name {
	case ifaceObjectManager + ".InterfacesAdded":
		if len(sig.Body) < 2 {
			return
		}
		path, ok := sig.Body[0].(dbus.ObjectPath)
		if !ok || !isDevicePath(d.adapter.path, path) {
			return
		}
		ifaces, ok := sig.Body[1].(map[string]map[string]dbus.Variant)
		if !ok {
			return
		}
		props, ok := ifaces[ifaceDevice]
		if !ok {
			return
		}
		d.props[path] = props
		d.handler.Sighting(SightingFromProps(AddrFromPath(path), props))

	case ifaceObjectManager + ".InterfacesRemoved":
		if len(sig.Body) < 1 {
			return
		}
		if path, ok := sig.Body[0].(dbus.ObjectPath); ok {
			delete(d.props, path)
		}

	case ifaceProperties + ".PropertiesChanged":
		if len(sig.Body) < 2 || !isDevicePath(d.adapter.path, sig.Path) {
			return
		}
		if iface, _ := sig.Body[0].(string); iface != ifaceDevice {
			return
		}
		changed, ok := sig.Body[1].(map[string]dbus.Variant)
		if !ok {
			return
		}
		var invalidated []string
		if len(sig.Body) > 2 {
			invalidated, _ = sig.Body[2].([]string)
		}
		props := mergeProps(d.props[sig.Path], changed, invalidated)
		d.props[sig.Path] = props
		if _, heard := props["RSSI"]; heard {
			d.handler.Sighting(SightingFromProps(AddrFromPath(sig.Path), props))
		}
	}
}

// Stop ends discovery. It is safe to call more than once.
func (d *Discovery) Stop() error {
	var err error
	d.stopOnce.Do(func() {
		close(d.stop)
		<-d.done
		err = d.release()
	})
	return err
}

func (d *Discovery) release() error {
	d.conn.RemoveSignal(d.signals)
	d.removeMatches()
	if err := d.adapter.StopDiscovery(); err != nil {
		return fmt.Errorf("StopDiscovery: %w", err)
	}
	return nil
}

func (d *Discovery) removeMatches() {
	for _, m := range d.matches {
		_ = d.conn.RemoveMatchSignal(m...)
	}
}
