// Package license owns the premium flag. Keys are checked for format only,
// so any well-formed key unlocks premium.
package license

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
)

const (
	// PremiumKey is the preference key the premium flag is stored under.
	PremiumKey = "nullsec_bluetooth_premium"

	MsgActivated     = "Premium activated!"
	MsgInvalidFormat = "Invalid key format"
)

var keyPattern = regexp.MustCompile(`^NSBT-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

var ErrPremiumRequired = errors.New("premium license required")

// Store persists the premium flag.
type Store interface {
	Bool(key string) (bool, error)
	SetBool(key string, value bool) error
}

type Gate struct {
	store   Store
	mu      sync.RWMutex
	premium bool
}

// New loads the persisted flag from store.
func New(store Store) (*Gate, error) {
	premium, err := store.Bool(PremiumKey)
	if err != nil {
		return nil, fmt.Errorf("load premium flag: %w", err)
	}
	return &Gate{store: store, premium: premium}, nil
}

// ValidKey reports whether key has the NSBT-XXXX-XXXX-XXXX-XXXX shape.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

// Activate validates key and persists the premium flag on success.
func (g *Gate) Activate(key string) (bool, string) {
	if !ValidKey(key) {
		return false, MsgInvalidFormat
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.store.SetBool(PremiumKey, true); err != nil {
		return false, err.Error()
	}
	g.premium = true
	return true, MsgActivated
}

func (g *Gate) IsPremium() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.premium
}

// Require returns an error wrapping ErrPremiumRequired unless premium is active.
func (g *Gate) Require(feature string) error {
	if g.IsPremium() {
		return nil
	}
	return fmt.Errorf("%s: %w", feature, ErrPremiumRequired)
}
