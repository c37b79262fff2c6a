package tui

import "time"

// tickMsg drives the periodic table refresh.
type tickMsg time.Time

// scanToggledMsg reports the result of starting or stopping a scan.
type scanToggledMsg struct {
	started bool
	err     error
}

// exportedMsg reports the result of an export.
type exportedMsg struct {
	path string
	err  error
}
