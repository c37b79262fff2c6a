package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"bluescout/device"
	"bluescout/logger"
)

const (
	DefaultScanDuration = 15 * time.Second

	eventBuffer = 256
)

// Scanner owns one scan at a time and is the only writer of its store.
type Scanner struct {
	radio    Radio
	store    *device.Store
	duration time.Duration
	log      *logrus.Entry
	now      func() time.Time

	scanning atomic.Bool

	mu   sync.Mutex
	run  *scanRun
	last *scanRun
	err  error
}

type scanRun struct {
	id      ulid.ULID
	events  chan Event
	stopped chan struct{}
	done    chan struct{}
	timer   *time.Timer
	cancel  context.CancelFunc
	log     *logrus.Entry
	dropped atomic.Int64
}

// emit never blocks on advertisements: when the reducer falls behind they are
// dropped and counted. Other events wait for room or for the run to stop.
func (r *scanRun) emit(ev Event) {
	if _, ok := ev.(AdvertisementSeen); ok {
		select {
		case r.events <- ev:
		case <-r.stopped:
		default:
			r.dropped.Add(1)
		}
		return
	}
	select {
	case r.events <- ev:
	case <-r.stopped:
	}
}

// NewScanner returns a scanner that stops itself after duration. A zero
// duration means DefaultScanDuration.
func NewScanner(radio Radio, store *device.Store, duration time.Duration, log *logrus.Entry) *Scanner {
	if duration <= 0 {
		duration = DefaultScanDuration
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Scanner{
		radio:    radio,
		store:    store,
		duration: duration,
		log:      log,
		now:      time.Now,
	}
}

// Start clears the store and begins a scan. It fails without side effects if
// the radio is not ready or a scan is already running.
func (s *Scanner) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.run != nil {
		return ErrAlreadyScanning
	}
	if err := s.radio.Ready(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrRadioUnavailable, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	id := ulid.Make()
	r := &scanRun{
		id:      id,
		events:  make(chan Event, eventBuffer),
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
		cancel:  cancel,
		log:     s.log.WithField("session", id.String()),
	}

	if err := s.radio.StartScan(runCtx, r.emit); err != nil {
		close(r.stopped)
		cancel()
		return fmt.Errorf("start scan: %w", err)
	}

	s.store.Reset()
	s.err = nil
	s.run = r
	s.last = r
	s.scanning.Store(true)
	r.timer = time.AfterFunc(s.duration, func() {
		if err := s.stopRun(r); err != nil {
			r.log.WithError(err).Warn("stop after timeout")
		}
	})

	go s.reduce(runCtx, r)

	r.log.WithField("duration", s.duration).Info("scan started")
	return nil
}

// Stop ends the running scan and waits for pending events to be applied.
// Calling it when no scan is running is a no-op.
func (s *Scanner) Stop() error {
	s.mu.Lock()
	r := s.run
	s.mu.Unlock()
	return s.stopRun(r)
}

func (s *Scanner) stopRun(r *scanRun) error {
	stopped, err := s.halt(r)
	if !stopped {
		return nil
	}
	<-r.done
	r.log.WithFields(logrus.Fields{
		"devices": s.store.Len(),
		"dropped": r.dropped.Load(),
	}).Info("scan stopped")
	return err
}

// halt releases the radio for r if r is still the running scan.
func (s *Scanner) halt(r *scanRun) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r == nil || s.run != r {
		return false, nil
	}
	s.run = nil
	s.scanning.Store(false)
	r.timer.Stop()
	close(r.stopped)
	r.cancel()

	if err := s.radio.StopScan(); err != nil {
		return true, fmt.Errorf("stop scan: %w", err)
	}
	return true, nil
}

func (s *Scanner) reduce(ctx context.Context, r *scanRun) {
	defer close(r.done)

	ctxDone := ctx.Done()
	for {
		select {
		case ev := <-r.events:
			s.applyPending(r, ev)
		case <-ctxDone:
			ctxDone = nil
			go s.stopRun(r)
		case <-r.stopped:
			s.drain(r)
			return
		}
	}
}

// applyPending applies ev together with up to a buffer's worth of events
// already queued behind it, publishing one snapshot per run of consecutive
// advertisements.
func (s *Scanner) applyPending(r *scanRun, ev Event) {
	var batch []device.Sighting
	for n := 0; ; n++ {
		if seen, ok := ev.(AdvertisementSeen); ok {
			batch = append(batch, seen.Sighting)
		} else {
			s.upsert(r, batch)
			batch = batch[:0]
			s.apply(r, ev)
		}
		if n == eventBuffer {
			break
		}
		next, ok := poll(r.events)
		if !ok {
			break
		}
		ev = next
	}
	s.upsert(r, batch)
}

func poll(events <-chan Event) (Event, bool) {
	select {
	case ev := <-events:
		return ev, true
	default:
		return nil, false
	}
}

func (s *Scanner) upsert(r *scanRun, batch []device.Sighting) {
	for _, rec := range s.store.UpsertAll(batch, s.now()) {
		r.log.WithFields(logrus.Fields{
			"address": rec.Address,
			"rssi":    rec.RSSI,
			"type":    rec.Type.String(),
		}).Debug("advertisement")
	}
}

func (s *Scanner) drain(r *scanRun) {
	var batch []device.Sighting
	for {
		select {
		case ev := <-r.events:
			if seen, ok := ev.(AdvertisementSeen); ok {
				batch = append(batch, seen.Sighting)
			}
		default:
			s.store.UpsertAll(batch, s.now())
			return
		}
	}
}

func (s *Scanner) apply(r *scanRun, ev Event) {
	switch ev := ev.(type) {
	case ScanFailed:
		r.log.WithError(ev.Err).Warn("scan failed")
		s.mu.Lock()
		s.err = fmt.Errorf("scan failed: %w", ev.Err)
		s.mu.Unlock()
		if _, err := s.halt(r); err != nil {
			r.log.WithError(err).Warn("release radio")
		}
	default:
		r.log.Debugf("ignoring %T", ev)
	}
}

func (s *Scanner) Scanning() bool {
	return s.scanning.Load()
}

// Done is closed once the most recent scan has finished.
func (s *Scanner) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last != nil {
		return s.last.done
	}
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Err returns the failure that ended the last scan. Each failure is returned once.
func (s *Scanner) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.err
	s.err = nil
	return err
}

// Devices returns the current snapshot, strongest signal first.
func (s *Scanner) Devices() []device.Record {
	return s.store.Snapshot()
}

// Paired returns records for the devices bonded with this host. The scan
// store is not touched.
func (s *Scanner) Paired(ctx context.Context) ([]device.Record, error) {
	sightings, err := s.radio.Paired(ctx)
	if err != nil {
		return nil, fmt.Errorf("list paired devices: %w", err)
	}
	st := device.NewStore()
	now := s.now()
	for _, sg := range sightings {
		sg.Bond = device.BondPaired
		st.Upsert(sg, now)
	}
	return st.Snapshot(), nil
}
