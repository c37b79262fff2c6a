//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"

	"bluescout/bluez"
	"bluescout/device"
	"bluescout/gatt"
	"bluescout/session"
)

var errPoweredOff = errors.New("adapter is powered off")

// platform drives BlueZ over the system bus. It serves as both the scan radio
// and the GATT client.
type platform struct {
	conn *dbus.Conn
	log  *logrus.Entry

	mu        sync.Mutex
	adapter   *bluez.Adapter
	client    *bluez.Client
	discovery *bluez.Discovery
}

func newPlatform(log *logrus.Entry) (*platform, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("dbus: %w", err)
	}
	return &platform{conn: conn, log: log}, nil
}

// ensureAdapter looks the adapter up on first use so commands that never touch
// the radio work without one.
func (p *platform) ensureAdapter() (*bluez.Adapter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.adapter != nil {
		return p.adapter, nil
	}
	a, err := bluez.DefaultAdapter(p.conn)
	if err != nil {
		return nil, err
	}
	p.adapter = a
	p.client = bluez.NewClient(p.conn, a.Path())
	p.log.WithField("adapter", a.Path()).Info("BLE ready (BlueZ)")
	return a, nil
}

func (p *platform) Ready(ctx context.Context) error {
	a, err := p.ensureAdapter()
	if err != nil {
		return err
	}
	on, err := a.Powered(ctx)
	if err != nil {
		return err
	}
	if !on {
		return errPoweredOff
	}
	return nil
}

func (p *platform) StartScan(_ context.Context, emit session.Emitter) error {
	a, err := p.ensureAdapter()
	if err != nil {
		return err
	}
	d, err := bluez.StartScan(p.conn, a, bluez.ScanHandler{
		Sighting: func(sg device.Sighting) { emit(session.AdvertisementSeen{Sighting: sg}) },
		Failed:   func(err error) { emit(session.ScanFailed{Err: err}) },
	})
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.discovery = d
	p.mu.Unlock()
	return nil
}

func (p *platform) StopScan() error {
	p.mu.Lock()
	d := p.discovery
	p.discovery = nil
	p.mu.Unlock()
	if d == nil {
		return nil
	}
	return d.Stop()
}

func (p *platform) Paired(context.Context) ([]device.Sighting, error) {
	a, err := p.ensureAdapter()
	if err != nil {
		return nil, err
	}
	return a.Paired()
}

func (p *platform) Connect(ctx context.Context, addr string, emit session.Emitter) error {
	if _, err := p.ensureAdapter(); err != nil {
		return err
	}
	p.mu.Lock()
	c := p.client
	p.mu.Unlock()
	return c.Connect(ctx, addr, bluez.ConnectHandler{
		Connected: func(up bool) {
			emit(session.ConnectionStateChanged{Address: addr, Connected: up})
		},
		Services: func(s []gatt.RawService) {
			emit(session.ServicesDiscovered{Address: addr, Services: s})
		},
		Failed: func(err error) { emit(session.ExploreFailed{Err: err}) },
	})
}

func (p *platform) Disconnect() error {
	p.mu.Lock()
	c := p.client
	p.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.Disconnect()
}

func (p *platform) Close() error {
	_ = p.StopScan()
	_ = p.Disconnect()
	return p.conn.Close()
}
