// Package property implements the reactive cells the runtime evaluates
// bindings on: lazy pull-based evaluation, dependency discovery during reads,
// dirty marking on writes, two-way links with a single canonical storage cell,
// change watchers, and time-driven animations that settle into plain values.
//
// Everything in this package is single-threaded: one Tracker and all of its
// properties belong to one goroutine.
package property

import "time"

// Tracker holds the evaluation-context stack used for dependency discovery,
// the queue of pending change notifications, and the animation clock. Every
// Property belongs to exactly one Tracker.
type Tracker struct {
	active  []*Property
	pending []func()
	anims   []*Property
	now     time.Duration

	delivering bool
}

// NewTracker returns an empty tracker with the animation clock at zero.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Now returns the current animation clock.
func (tr *Tracker) Now() time.Duration { return tr.now }

// Tick advances the animation clock and re-evaluates every active animation.
// Animations past their target time settle into plain values and stop.
// Callbacks of watched properties changed by the tick are delivered before
// Tick returns.
func (tr *Tracker) Tick(dt time.Duration) {
	tr.now += dt
	running := append([]*Property(nil), tr.anims...)
	for _, p := range running {
		if p.anim == nil {
			continue
		}
		p.st = bindingDirty
		p.refresh()
	}
	tr.deliver()
}

// context returns the property whose binding is currently being evaluated,
// if any.
func (tr *Tracker) context() *Property {
	if len(tr.active) == 0 {
		return nil
	}
	return tr.active[len(tr.active)-1]
}

func (tr *Tracker) push(p *Property) { tr.active = append(tr.active, p) }

func (tr *Tracker) pop() { tr.active = tr.active[:len(tr.active)-1] }

func (tr *Tracker) schedule(f func()) { tr.pending = append(tr.pending, f) }

// deliver drains the notification queue. It is a no-op while a binding is
// being evaluated; the outermost write or read delivers instead.
func (tr *Tracker) deliver() {
	if tr.delivering || len(tr.active) > 0 {
		return
	}
	tr.delivering = true
	for len(tr.pending) > 0 {
		f := tr.pending[0]
		tr.pending = tr.pending[1:]
		f()
	}
	tr.delivering = false
}

func (tr *Tracker) addAnim(p *Property) {
	for _, q := range tr.anims {
		if q == p {
			return
		}
	}
	tr.anims = append(tr.anims, p)
}

func (tr *Tracker) delAnim(p *Property) {
	for i, q := range tr.anims {
		if q == p {
			tr.anims = append(tr.anims[:i], tr.anims[i+1:]...)
			return
		}
	}
}
