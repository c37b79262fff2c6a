package session

import (
	"context"
	"errors"
	"sync"

	"bluescout/device"
)

type fakeRadio struct {
	mu       sync.Mutex
	readyErr error
	startErr error
	emit     Emitter
	starts   int
	stops    int
	paired   []device.Sighting
}

func (f *fakeRadio) Ready(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readyErr
}

func (f *fakeRadio) StartScan(_ context.Context, emit Emitter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.starts++
	f.emit = emit
	return nil
}

func (f *fakeRadio) StopScan() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeRadio) Paired(context.Context) ([]device.Sighting, error) {
	return f.paired, nil
}

func (f *fakeRadio) send(ev Event) {
	f.mu.Lock()
	emit := f.emit
	f.mu.Unlock()
	emit(ev)
}

func (f *fakeRadio) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}

type fakeClient struct {
	mu          sync.Mutex
	connectErr  error
	emits       []Emitter
	addrs       []string
	disconnects int
}

func (f *fakeClient) Connect(_ context.Context, addr string, emit Emitter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	f.addrs = append(f.addrs, addr)
	f.emits = append(f.emits, emit)
	return nil
}

func (f *fakeClient) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	return nil
}

// send delivers ev through the emitter of the i-th connection.
func (f *fakeClient) send(i int, ev Event) {
	f.mu.Lock()
	emit := f.emits[i]
	f.mu.Unlock()
	emit(ev)
}

func (f *fakeClient) disconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects
}

type fakeGate struct{ premium bool }

var errNoPremium = errors.New("premium required")

func (g fakeGate) Require(string) error {
	if g.premium {
		return nil
	}
	return errNoPremium
}
