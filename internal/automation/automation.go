// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package automation drives an external presentation application over
// inter-process calls. Copying slides through the application keeps their
// layouts, themes, animations and notes intact.
package automation

// Launcher starts an automation host. Probe is cheap and does not start the
// application; Launch does.
type Launcher interface {
	// Name identifies the application (e.g. "powerpoint").
	Name() string

	// Probe reports whether the application can be automated on this
	// machine. It returns nil when Launch is expected to succeed.
	Probe() error

	// Launch starts the application. The caller must Quit the host.
	Launch() (Host, error)
}

// Host is a running application instance owned by one merge run.
type Host interface {
	// Open opens the presentation at path without modifying it on disk.
	Open(path string) (Presentation, error)

	// Quit closes the application and releases its process.
	Quit() error
}

// Presentation is an open document inside a Host.
type Presentation interface {
	// SlideCount returns the number of slides.
	SlideCount() (int, error)

	// CopySlide copies the slide at the 1-based index to the clipboard.
	CopySlide(index int) error

	// PasteSlide appends the clipboard slide at the end.
	PasteSlide() error

	// Truncate deletes slides from the end until count remain.
	Truncate(count int) error

	// SaveAs writes the presentation to path.
	SaveAs(path string) error

	// Close closes the presentation without saving.
	Close() error
}
