// Package fix tracks whether the positioning provider currently holds a
// usable fix, from the stream of status events and sample arrival times.
package fix

import (
	"sync"
	"time"

	"github.com/geopaparazzi/tracklog/pkg/core"
)

// DefaultTimeout is the window within which a sample arrival keeps the
// fix alive. It must stay an order of magnitude above the sample
// arrival interval or the check is meaningless.
const DefaultTimeout = 10 * time.Second

// satStillOverride is the satellites-used count above which a fix is
// assumed even without fresh samples. A stationary receiver stops
// emitting movement-triggered updates while still holding a valid fix.
const satStillOverride = 2

// Tracker derives the fix state. All methods are safe for concurrent
// use; the status-event path and the sample path run on different
// goroutines.
type Tracker struct {
	mu sync.Mutex

	timeout     time.Duration
	lastArrival time.Time
	hasFix      bool

	providerEnabled bool
	listening       bool

	maxSats   int
	visible   int
	usedInFix int

	// onFixLost fires on the fix -> no fix edge so the owner can
	// invalidate its cached sample. Called without the lock held.
	onFixLost func()

	now func() time.Time
}

// New creates a Tracker. timeout <= 0 selects DefaultTimeout. onFixLost
// may be nil.
func New(timeout time.Duration, onFixLost func()) *Tracker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Tracker{
		timeout:   timeout,
		onFixLost: onFixLost,
		now:       time.Now,
	}
}

// OnSample records the arrival of a new sample.
func (t *Tracker) OnSample() {
	t.mu.Lock()
	t.lastArrival = t.now()
	t.mu.Unlock()
}

// OnProviderEnabled records that the provider was switched on.
func (t *Tracker) OnProviderEnabled() {
	t.mu.Lock()
	t.providerEnabled = true
	t.mu.Unlock()
}

// OnProviderDisabled records that the provider was switched off and
// drops the fix.
func (t *Tracker) OnProviderDisabled() {
	t.mu.Lock()
	t.providerEnabled = false
	lost := t.hasFix
	t.hasFix = false
	t.mu.Unlock()
	if lost && t.onFixLost != nil {
		t.onFixLost()
	}
}

// SetListening records whether location updates are currently requested.
func (t *Tracker) SetListening(on bool) {
	t.mu.Lock()
	t.listening = on
	t.mu.Unlock()
}

// OnStatusEvent recomputes the fix state from a provider status event.
// It returns the resulting fix state.
func (t *Tracker) OnStatusEvent(kind core.ProviderEventKind, usedInFix, visible, maxSats int) bool {
	t.mu.Lock()

	t.usedInFix = usedInFix
	t.visible = visible
	t.maxSats = maxSats

	var tmpFix bool
	switch kind {
	case core.EventFirstFix:
		tmpFix = true
		t.lastArrival = t.now()
	case core.EventStopped:
		tmpFix = false
	default:
		tmpFix = t.now().Sub(t.lastArrival) < t.timeout
	}

	if !tmpFix && usedInFix > satStillOverride {
		// standing still: no new samples but the fix is good, refresh
		// the arrival stamp so the next check passes too
		tmpFix = true
		t.lastArrival = t.now()
	}

	lost := t.hasFix && !tmpFix
	t.hasFix = tmpFix
	t.mu.Unlock()

	if lost && t.onFixLost != nil {
		t.onFixLost()
	}
	return tmpFix
}

// HasFix reports whether the current coordinates are trustworthy.
func (t *Tracker) HasFix() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hasFix
}

// Status maps the tracker state onto the published service status.
func (t *Tracker) Status() core.ServiceStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case !t.providerEnabled:
		return core.StatusOff
	case !t.listening:
		return core.StatusOnNotListening
	case !t.hasFix:
		return core.StatusListeningNoFix
	default:
		return core.StatusHasFix
	}
}

// Satellites returns the last reported satellite diagnostics.
func (t *Tracker) Satellites() core.SatelliteInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return core.SatelliteInfo{Max: t.maxSats, Visible: t.visible, UsedInFix: t.usedInFix}
}
