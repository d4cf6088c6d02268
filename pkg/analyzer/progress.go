package analyzer

import "sync/atomic"

// ProgressFunc is called after each unit is analyzed with the number of
// units done, the total, and the finished unit's key.
type ProgressFunc func(current, total int, key string)

// Tracker counts analyzed units. It is safe for concurrent use.
type Tracker struct {
	total    atomic.Int32
	current  atomic.Int32
	findings atomic.Int32
	callback ProgressFunc
}

// NewTracker creates a tracker invoking callback on each Tick.
func NewTracker(callback ProgressFunc) *Tracker {
	return &Tracker{callback: callback}
}

// Add increments the total by n as units are discovered.
func (t *Tracker) Add(n int) {
	t.total.Add(int32(n))
}

// Tick marks a unit done and records how many diagnostics it produced.
func (t *Tracker) Tick(key string, findings int) {
	t.findings.Add(int32(findings))
	current := int(t.current.Add(1))
	if t.callback != nil {
		t.callback(current, int(t.total.Load()), key)
	}
}

// Current returns the number of finished units.
func (t *Tracker) Current() int { return int(t.current.Load()) }

// Total returns the number of units expected.
func (t *Tracker) Total() int { return int(t.total.Load()) }

// Findings returns the number of diagnostics seen so far.
func (t *Tracker) Findings() int { return int(t.findings.Load()) }
