// Package tracking follows devices across repeated scans, keeping a bounded
// signal history per device and raising proximity alerts.
package tracking

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"bluescout/device"
	"bluescout/logger"
)

// FeatureTracking is the premium feature name checked by Run.
const FeatureTracking = "device tracking"

// Sample is one observation of a device.
type Sample struct {
	At       time.Time
	RSSI     int
	Distance float64
}

// Alert is raised when a device comes within the alert distance.
type Alert struct {
	Address  string
	Name     string
	Distance float64
	At       time.Time
}

func (a Alert) String() string {
	return fmt.Sprintf("%s (%s) within %.1fm", a.Name, a.Address, a.Distance)
}

// Gate decides whether a premium feature may run.
type Gate interface {
	Require(feature string) error
}

// ScanFunc runs one scan and returns what it saw.
type ScanFunc func(ctx context.Context) ([]device.Record, error)

type Tracker struct {
	size      int
	threshold float64
	log       *logrus.Entry

	mu      sync.Mutex
	history map[string][]Sample
	near    map[string]bool
}

// New keeps up to size samples per device and alerts at threshold meters.
func New(size int, threshold float64, log *logrus.Entry) *Tracker {
	if size <= 0 {
		size = 1
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Tracker{
		size:      size,
		threshold: threshold,
		log:       log,
		history:   make(map[string][]Sample),
		near:      make(map[string]bool),
	}
}

// Observe records one sample per record and returns the alerts raised by this
// round. A device alerts once when it comes within range and again only after
// it has been seen out of range.
func (t *Tracker) Observe(records []device.Record, at time.Time) []Alert {
	t.mu.Lock()
	defer t.mu.Unlock()

	var alerts []Alert
	for _, r := range records {
		d := r.Distance()
		h := append(t.history[r.Address], Sample{At: at, RSSI: r.RSSI, Distance: d})
		if len(h) > t.size {
			h = slices.Clone(h[len(h)-t.size:])
		}
		t.history[r.Address] = h

		inRange := d <= t.threshold
		if inRange && !t.near[r.Address] {
			alerts = append(alerts, Alert{Address: r.Address, Name: r.Name, Distance: d, At: at})
		}
		t.near[r.Address] = inRange
	}
	return alerts
}

// History returns the samples of addr, oldest first.
func (t *Tracker) History(addr string) []Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.history[addr])
}

// Tracked returns every address with history, sorted.
func (t *Tracker) Tracked() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.history))
	for addr := range t.history {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// Run scans once immediately and then on schedule until ctx is done. Rounds
// that would overlap a running scan are skipped.
func (t *Tracker) Run(ctx context.Context, gate Gate, schedule string, scan ScanFunc, onAlert func(Alert)) error {
	if err := gate.Require(FeatureTracking); err != nil {
		return err
	}
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return fmt.Errorf("tracking schedule %q: %w", schedule, err)
	}

	round := func() {
		records, err := scan(ctx)
		if err != nil {
			if ctx.Err() == nil {
				t.log.WithError(err).Warn("tracking scan failed")
			}
			return
		}
		alerts := t.Observe(records, time.Now())
		t.log.WithFields(logrus.Fields{
			"devices": len(records),
			"alerts":  len(alerts),
		}).Info("tracking round")
		for _, a := range alerts {
			onAlert(a)
		}
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(sched, cron.FuncJob(round))

	round()
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
