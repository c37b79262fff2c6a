package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"bluescout/gatt"
	"bluescout/logger"
)

// ConnectionState is where an explore session is in its lifecycle.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Exploring
	ExplorationComplete
	Error
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Exploring:
		return "exploring"
	case ExplorationComplete:
		return "exploration complete"
	case Error:
		return "error"
	default:
		return "disconnected"
	}
}

// Update is published whenever the state or progress changes.
type Update struct {
	Address  string
	State    ConnectionState
	Progress int
}

// FeatureExplore is the premium feature name checked before connecting.
const FeatureExplore = "GATT exploration"

// ErrExplorerClosed is returned by Connect after Close.
var ErrExplorerClosed = errors.New("explorer closed")

const updateBuffer = 64

// Explorer connects to one device at a time and builds its attribute tree.
type Explorer struct {
	client  GattClient
	gate    Gate
	log     *logrus.Entry
	updates chan Update

	mu       sync.Mutex
	conn     *exploreConn
	address  string
	state    ConnectionState
	services []gatt.Service
	progress int
	report   gatt.Report
	err      error
	closed   bool
}

type exploreConn struct {
	id       ulid.ULID
	address  string
	events   chan Event
	stopped  chan struct{}
	finished chan struct{}
	once     sync.Once
	log      *logrus.Entry
}

func (c *exploreConn) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.stopped:
	}
}

func (c *exploreConn) finish() {
	c.once.Do(func() { close(c.finished) })
}

func NewExplorer(client GattClient, gate Gate, log *logrus.Entry) *Explorer {
	if log == nil {
		log = logger.Discard()
	}
	return &Explorer{
		client:  client,
		gate:    gate,
		log:     log,
		updates: make(chan Update, updateBuffer),
	}
}

// Connect drops any current connection and starts exploring addr.
func (e *Explorer) Connect(ctx context.Context, addr string) error {
	_, err := e.connect(ctx, addr)
	return err
}

func (e *Explorer) connect(ctx context.Context, addr string) (*exploreConn, error) {
	if err := e.gate.Require(FeatureExplore); err != nil {
		return nil, err
	}
	if err := e.Disconnect(); err != nil {
		e.log.WithError(err).Warn("disconnect previous device")
	}

	id := ulid.Make()
	c := &exploreConn{
		id:       id,
		address:  addr,
		events:   make(chan Event, eventBuffer),
		stopped:  make(chan struct{}),
		finished: make(chan struct{}),
		log:      e.log.WithFields(logrus.Fields{"session": id.String(), "address": addr}),
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrExplorerClosed
	}
	e.conn = c
	e.address = addr
	e.services = nil
	e.progress = 0
	e.report = gatt.Report{}
	e.err = nil
	e.setState(Connecting)
	e.mu.Unlock()

	go e.reduce(c)

	c.log.Info("connecting")
	if err := e.client.Connect(ctx, addr, c.emit); err != nil {
		e.end(c, Error, nil)
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	return c, nil
}

// Explore connects to addr and blocks until its attribute tree is built, the
// connection fails or ctx is done.
func (e *Explorer) Explore(ctx context.Context, addr string) ([]gatt.Service, gatt.Report, error) {
	c, err := e.connect(ctx, addr)
	if err != nil {
		return nil, gatt.Report{}, err
	}

	select {
	case <-c.finished:
	case <-ctx.Done():
		if err := e.Disconnect(); err != nil {
			c.log.WithError(err).Warn("disconnect after cancel")
		}
		return nil, gatt.Report{}, ctx.Err()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn != c || e.state != ExplorationComplete {
		err := e.err
		e.err = nil
		if err == nil {
			err = ErrNotConnected
		}
		return nil, gatt.Report{}, err
	}
	return slices.Clone(e.services), e.report, nil
}

// Disconnect closes the current connection. It is safe to call at any time.
func (e *Explorer) Disconnect() error {
	e.mu.Lock()
	c := e.conn
	if c == nil {
		if e.state != Disconnected {
			e.setState(Disconnected)
		}
		e.mu.Unlock()
		return nil
	}
	e.teardown(c, Disconnected, nil)
	e.mu.Unlock()

	c.log.Info("disconnected")
	if err := e.client.Disconnect(); err != nil {
		return fmt.Errorf("disconnect %s: %w", c.address, err)
	}
	return nil
}

// end tears c down after a failure and releases the connection.
func (e *Explorer) end(c *exploreConn, state ConnectionState, err error) {
	e.mu.Lock()
	if e.conn != c {
		e.mu.Unlock()
		return
	}
	e.teardown(c, state, err)
	e.mu.Unlock()

	if err != nil {
		c.log.WithError(err).Warn("exploration ended")
	}
	if derr := e.client.Disconnect(); derr != nil {
		c.log.WithError(derr).Debug("release connection")
	}
}

// teardown must be called with e.mu held.
func (e *Explorer) teardown(c *exploreConn, state ConnectionState, err error) {
	close(c.stopped)
	c.finish()
	e.conn = nil
	e.services = nil
	e.progress = 0
	e.report = gatt.Report{}
	e.err = err
	e.setState(state)
}

func (e *Explorer) reduce(c *exploreConn) {
	for {
		select {
		case ev := <-c.events:
			e.apply(c, ev)
		case <-c.stopped:
			return
		}
	}
}

func (e *Explorer) apply(c *exploreConn, ev Event) {
	switch ev := ev.(type) {
	case ConnectionStateChanged:
		if !ev.Connected {
			e.end(c, Disconnected, ErrDisconnected)
			return
		}
		e.mu.Lock()
		if e.conn == c && e.state == Connecting {
			e.setState(Connected)
		}
		e.mu.Unlock()
		c.log.Info("connected")

	case ServicesDiscovered:
		e.mu.Lock()
		if e.conn != c {
			e.mu.Unlock()
			return
		}
		e.setState(Exploring)
		e.mu.Unlock()

		services := gatt.Build(ev.Services, func(percent int) {
			e.mu.Lock()
			defer e.mu.Unlock()
			if e.conn == c {
				e.progress = percent
				e.publish()
			}
		})
		report := gatt.Assess(services)

		e.mu.Lock()
		if e.conn == c {
			e.services = services
			e.report = report
			e.setState(ExplorationComplete)
			c.finish()
		}
		e.mu.Unlock()
		c.log.WithFields(logrus.Fields{
			"services":        report.Services,
			"characteristics": report.Characteristics,
			"level":           report.Overall.String(),
		}).Info("exploration complete")

	case ExploreFailed:
		e.end(c, Error, fmt.Errorf("explore %s: %w", c.address, ev.Err))

	default:
		c.log.Debugf("ignoring %T", ev)
	}
}

// setState must be called with e.mu held.
func (e *Explorer) setState(s ConnectionState) {
	e.state = s
	e.publish()
}

// publish must be called with e.mu held. When the reader falls behind the
// oldest pending update is discarded, so the latest one is always delivered.
func (e *Explorer) publish() {
	if e.closed {
		return
	}
	u := Update{Address: e.address, State: e.state, Progress: e.progress}
	for {
		select {
		case e.updates <- u:
			return
		default:
		}
		select {
		case <-e.updates:
		default:
		}
	}
}

// Updates delivers state and progress changes. It is closed by Close.
func (e *Explorer) Updates() <-chan Update { return e.updates }

// Close disconnects and closes the Updates channel. Further calls are no-ops.
func (e *Explorer) Close() error {
	err := e.Disconnect()
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.updates)
	}
	return err
}

func (e *Explorer) State() ConnectionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Explorer) Address() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.address
}

func (e *Explorer) Services() []gatt.Service {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.services)
}

func (e *Explorer) Progress() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progress
}

func (e *Explorer) Report() gatt.Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.report
}

// Err returns the failure that ended the last connection. Each failure is
// returned once.
func (e *Explorer) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.err
	e.err = nil
	return err
}
