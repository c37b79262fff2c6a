// Package session runs scan and GATT explore sessions. Platform adapters push
// typed events into a session; a single goroutine per session reduces them
// into state that readers observe through snapshots.
package session

import (
	"context"
	"errors"

	"bluescout/device"
	"bluescout/gatt"
)

var (
	ErrRadioUnavailable = errors.New("bluetooth radio unavailable")
	ErrAlreadyScanning  = errors.New("scan already in progress")
	ErrNotConnected     = errors.New("not connected")
	ErrDisconnected     = errors.New("device disconnected")
)

// Event is something a platform adapter observed.
type Event interface {
	event()
}

type AdvertisementSeen struct {
	Sighting device.Sighting
}

type ScanFailed struct {
	Err error
}

type ConnectionStateChanged struct {
	Address   string
	Connected bool
}

type ServicesDiscovered struct {
	Address  string
	Services []gatt.RawService
}

type ExploreFailed struct {
	Err error
}

func (AdvertisementSeen) event()      {}
func (ScanFailed) event()             {}
func (ConnectionStateChanged) event() {}
func (ServicesDiscovered) event()     {}
func (ExploreFailed) event()          {}

// Emitter delivers an event to the session that owns it. Emitting after the
// session has ended is a no-op.
type Emitter func(Event)

// Radio is the scanning side of a platform adapter.
type Radio interface {
	// Ready reports whether the adapter is present and powered.
	Ready(ctx context.Context) error
	// StartScan begins discovery and returns once it is running. Results are
	// delivered through emit until StopScan.
	StartScan(ctx context.Context, emit Emitter) error
	StopScan() error
	// Paired lists devices bonded with this host.
	Paired(ctx context.Context) ([]device.Sighting, error)
}

// GattClient is the connection side of a platform adapter.
type GattClient interface {
	// Connect opens a connection to addr. Connection changes and the discovered
	// attribute table are delivered through emit.
	Connect(ctx context.Context, addr string, emit Emitter) error
	Disconnect() error
}

// Gate decides whether a premium feature may run.
type Gate interface {
	Require(feature string) error
}
