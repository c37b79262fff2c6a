//go:build !linux

package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"

	"bluescout/assigned"
	"bluescout/device"
	"bluescout/gatt"
	"bluescout/rssi"
	"bluescout/session"
)

// classicAudio are the audio profile UUIDs the classifier looks for; the
// assigned tables only carry GATT services.
var classicAudio = []uint16{0x110a, 0x110b}

// platform drives the native stack through tinygo bluetooth. It serves as both
// the scan radio and the GATT client.
type platform struct {
	adapter *bluetooth.Adapter
	log     *logrus.Entry
	probes  []bluetooth.UUID

	enableOnce sync.Once
	enableErr  error

	mu       sync.Mutex
	seen     map[string]bluetooth.Address
	scanDone chan struct{}
	dev      *bluetooth.Device
	onLink   func(connected bool)
}

func newPlatform(log *logrus.Entry) (*platform, error) {
	p := &platform{
		adapter: bluetooth.DefaultAdapter,
		log:     log,
		seen:    make(map[string]bluetooth.Address),
	}
	ids := assigned.KnownServices()
	for _, v := range classicAudio {
		ids = append(ids, assigned.From16(v))
	}
	for _, id := range ids {
		if u, err := bluetooth.ParseUUID(id); err == nil {
			p.probes = append(p.probes, u)
		}
	}
	return p, nil
}

func (p *platform) Ready(context.Context) error {
	p.enableOnce.Do(func() {
		p.enableErr = p.adapter.Enable()
		if p.enableErr != nil {
			return
		}
		p.adapter.SetConnectHandler(func(_ bluetooth.Device, connected bool) {
			p.mu.Lock()
			onLink := p.onLink
			p.mu.Unlock()
			if onLink != nil {
				onLink(connected)
			}
		})
		p.log.Info("BLE ready")
	})
	if p.enableErr != nil {
		return fmt.Errorf("BLE init failed: %w", p.enableErr)
	}
	return nil
}

func (p *platform) StartScan(_ context.Context, emit session.Emitter) error {
	done := make(chan struct{})
	p.mu.Lock()
	p.scanDone = done
	p.mu.Unlock()

	go func() {
		defer close(done)
		err := p.adapter.Scan(func(_ *bluetooth.Adapter, r bluetooth.ScanResult) {
			addr := r.Address.String()
			p.mu.Lock()
			p.seen[addr] = r.Address
			p.mu.Unlock()
			emit(session.AdvertisementSeen{Sighting: p.sighting(addr, r)})
		})
		if err != nil {
			emit(session.ScanFailed{Err: err})
		}
	}()
	return nil
}

func (p *platform) sighting(addr string, r bluetooth.ScanResult) device.Sighting {
	sg := device.Sighting{
		Address:     addr,
		Name:        r.LocalName(),
		RSSI:        int(r.RSSI),
		TxPower:     rssi.TxPowerUnknown,
		BLE:         true,
		Connectable: true,
	}
	for _, u := range p.probes {
		if r.HasServiceUUID(u) {
			sg.Services = append(sg.Services, u.String())
		}
	}
	if md := r.ManufacturerData(); len(md) > 0 {
		sg.ManufacturerData = make(map[uint16][]byte, len(md))
		for _, el := range md {
			sg.ManufacturerData[el.CompanyID] = el.Data
		}
	}
	return sg
}

func (p *platform) StopScan() error {
	p.mu.Lock()
	done := p.scanDone
	p.scanDone = nil
	p.mu.Unlock()
	if done == nil {
		return nil
	}
	err := p.adapter.StopScan()
	<-done
	return err
}

// Paired is not available through tinygo bluetooth.
func (p *platform) Paired(context.Context) ([]device.Sighting, error) {
	return nil, fmt.Errorf("list paired devices: %w", errors.ErrUnsupported)
}

func (p *platform) Connect(_ context.Context, addr string, emit session.Emitter) error {
	if err := p.Ready(context.Background()); err != nil {
		return err
	}
	p.mu.Lock()
	target, ok := p.seen[addr]
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s has not been seen in a scan", addr)
	}

	dev, err := p.adapter.Connect(target, bluetooth.ConnectionParams{})
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.dev = &dev
	p.onLink = func(connected bool) {
		if !connected {
			emit(session.ConnectionStateChanged{Address: addr, Connected: false})
		}
	}
	p.mu.Unlock()

	emit(session.ConnectionStateChanged{Address: addr, Connected: true})
	go func() {
		services, err := discover(dev)
		if err != nil {
			emit(session.ExploreFailed{Err: err})
			return
		}
		emit(session.ServicesDiscovered{Address: addr, Services: services})
	}()
	return nil
}

// discover reads the attribute table. tinygo bluetooth does not expose
// characteristic flags, so properties and permissions stay zero.
func discover(dev bluetooth.Device) ([]gatt.RawService, error) {
	services, err := dev.DiscoverServices(nil)
	if err != nil {
		return nil, fmt.Errorf("discover services: %w", err)
	}
	out := make([]gatt.RawService, 0, len(services))
	for _, s := range services {
		rs := gatt.RawService{UUID: s.UUID().String(), Primary: true}
		chars, err := s.DiscoverCharacteristics(nil)
		if err != nil {
			return nil, fmt.Errorf("discover characteristics of %s: %w", s.UUID().String(), err)
		}
		for _, c := range chars {
			rs.Characteristics = append(rs.Characteristics, gatt.RawCharacteristic{UUID: c.UUID().String()})
		}
		out = append(out, rs)
	}
	return out, nil
}

func (p *platform) Disconnect() error {
	p.mu.Lock()
	dev := p.dev
	p.dev = nil
	p.onLink = nil
	p.mu.Unlock()
	if dev == nil {
		return nil
	}
	return dev.Disconnect()
}

func (p *platform) Close() error {
	_ = p.StopScan()
	return p.Disconnect()
}
