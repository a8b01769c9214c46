package interp

import "time"

// Platform creates window adapters for component instances. The default is
// headless: no rendering, no real event loop. Rendering backends implement
// this seam.
type Platform interface {
	NewWindow(title string) (WindowAdapter, error)
}

// WindowAdapter is the per-instance window handle.
type WindowAdapter interface {
	Show() error
	Hide() error
	// Run drives the event loop: the adapter calls tick with the elapsed time
	// since the previous call until tick returns false or the window closes.
	Run(tick func(dt time.Duration) bool) error
}

type headlessPlatform struct{}

func (headlessPlatform) NewWindow(string) (WindowAdapter, error) {
	return &headlessWindow{}, nil
}

// headlessWindow has no surface and no event source; Run returns immediately.
type headlessWindow struct{}

func (*headlessWindow) Show() error { return nil }

func (*headlessWindow) Hide() error { return nil }

func (*headlessWindow) Run(func(dt time.Duration) bool) error { return nil }
