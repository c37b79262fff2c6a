package device

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"bluescout/assigned"
	"bluescout/classify"
)

// Store maps addresses to records. Writers are serialized; readers see immutable
// snapshots that are replaced as a whole on every write.
type Store struct {
	mu         sync.Mutex
	byAddr     map[string]Record
	snap       atomic.Pointer[[]Record]
	classifier *classify.Classifier
}

// NewStore returns an empty store using the default classifier.
func NewStore() *Store {
	return NewStoreWith(classify.New())
}

func NewStoreWith(c *classify.Classifier) *Store {
	s := &Store{
		byAddr:     make(map[string]Record),
		classifier: c,
	}
	s.snap.Store(&[]Record{})
	return s
}

// Upsert merges a sighting seen at now and returns the resulting record.
func (s *Store) Upsert(sg Sighting, now time.Time) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, seen := s.byAddr[sg.Address]
	rec := derive(s.classifier, sg, prev, seen, now)
	s.byAddr[sg.Address] = rec
	s.publish()
	return rec
}

// UpsertAll merges a batch of sightings and publishes one snapshot for the
// whole batch.
func (s *Store) UpsertAll(sgs []Sighting, now time.Time) []Record {
	if len(sgs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := make([]Record, 0, len(sgs))
	for _, sg := range sgs {
		prev, seen := s.byAddr[sg.Address]
		rec := derive(s.classifier, sg, prev, seen, now)
		s.byAddr[sg.Address] = rec
		recs = append(recs, rec)
	}
	s.publish()
	return recs
}

func derive(c *classify.Classifier, sg Sighting, prev Record, seen bool, now time.Time) Record {
	services := make([]string, 0, len(sg.Services))
	for _, u := range sg.Services {
		services = append(services, assigned.Canonical(u))
	}

	name := sg.Name
	if name == "" && seen && prev.Name != UnknownName {
		name = prev.Name
	}

	rec := Record{
		Address:       sg.Address,
		Name:          name,
		RSSI:          sg.RSSI,
		Bond:          sg.Bond,
		Type:          c.Classify(name, services, sg.Class),
		ClassLabel:    classify.ClassLabel(sg.Class),
		Manufacturer:  classify.Manufacturer(sg.Address, sg.ManufacturerData),
		Services:      services,
		BLE:           sg.BLE,
		Connectable:   sg.Connectable,
		TxPower:       sg.TxPower,
		Advertisement: advertisementMap(sg),
		FirstSeen:     now,
		LastSeen:      now,
	}
	if rec.Name == "" {
		rec.Name = UnknownName
	}
	if seen {
		rec.FirstSeen = prev.FirstSeen
		if now.Before(prev.LastSeen) {
			rec.LastSeen = prev.LastSeen
		}
	}
	return rec
}

// publish must be called with mu held.
func (s *Store) publish() {
	list := make([]Record, 0, len(s.byAddr))
	for _, r := range s.byAddr {
		list = append(list, r)
	}
	slices.SortFunc(list, func(a, b Record) int {
		if a.RSSI != b.RSSI {
			return b.RSSI - a.RSSI
		}
		if a.Address < b.Address {
			return -1
		}
		if a.Address > b.Address {
			return 1
		}
		return 0
	})
	s.snap.Store(&list)
}

// Reset drops every record. A new scan session starts from an empty store.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.byAddr)
	s.publish()
}

// Snapshot returns the records sorted by RSSI, strongest first. The records must be
// treated as read-only.
func (s *Store) Snapshot() []Record {
	return slices.Clone(*s.snap.Load())
}

func (s *Store) Len() int {
	return len(*s.snap.Load())
}

func (s *Store) Get(addr string) (Record, bool) {
	for _, r := range *s.snap.Load() {
		if r.Address == addr {
			return r, true
		}
	}
	return Record{}, false
}
