// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package automation

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

const (
	progPowerPoint = "PowerPoint.Application"

	// MsoTriState values.
	msoTrue  = -1
	msoFalse = 0

	// PpSaveAsFileType for a .pptx package.
	ppSaveAsOpenXMLPresentation = 24

	// sFalse is returned by CoInitializeEx when COM is already initialised
	// on the thread.
	sFalse = 0x00000001
)

// PowerPoint automates Microsoft PowerPoint through COM. It is only
// available on Windows with PowerPoint installed; elsewhere Probe fails.
type PowerPoint struct{}

// Name implements Launcher.
func (PowerPoint) Name() string { return "powerpoint" }

// Probe initialises COM and looks up the PowerPoint ProgID without
// starting the application.
func (PowerPoint) Probe() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := initCOM(); err != nil {
		return fmt.Errorf("initialising COM: %w", err)
	}
	defer ole.CoUninitialize()

	if _, err := ole.CLSIDFromProgID(progPowerPoint); err != nil {
		return fmt.Errorf("%s is not registered: %w", progPowerPoint, err)
	}
	return nil
}

// Launch starts PowerPoint. COM apartments are per thread, so the calling
// goroutine stays locked to its OS thread until Quit.
func (PowerPoint) Launch() (Host, error) {
	runtime.LockOSThread()
	if err := initCOM(); err != nil {
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("initialising COM: %w", err)
	}

	fail := func(err error) (Host, error) {
		ole.CoUninitialize()
		runtime.UnlockOSThread()
		return nil, err
	}

	unknown, err := oleutil.CreateObject(progPowerPoint)
	if err != nil {
		return fail(fmt.Errorf("starting %s: %w", progPowerPoint, err))
	}
	app, err := unknown.QueryInterface(ole.IID_IDispatch)
	unknown.Release()
	if err != nil {
		return fail(fmt.Errorf("querying %s dispatch: %w", progPowerPoint, err))
	}

	v, err := oleutil.GetProperty(app, "Presentations")
	if err != nil {
		_, _ = oleutil.CallMethod(app, "Quit")
		app.Release()
		return fail(fmt.Errorf("getting Presentations: %w", err))
	}

	return &pptHost{app: app, presentations: v.ToIDispatch()}, nil
}

func initCOM() error {
	err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED)
	if err == nil {
		return nil
	}
	var oleErr *ole.OleError
	if errors.As(err, &oleErr) && oleErr.Code() == sFalse {
		return nil
	}
	return err
}

type pptHost struct {
	app           *ole.IDispatch
	presentations *ole.IDispatch
	quit          bool
}

func (h *pptHost) Open(path string) (Presentation, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	// Open(FileName, ReadOnly, Untitled, WithWindow)
	v, err := oleutil.CallMethod(h.presentations, "Open", abs, msoTrue, msoFalse, msoTrue)
	if err != nil {
		return nil, fmt.Errorf("opening %s in PowerPoint: %w", abs, err)
	}
	pres := v.ToIDispatch()

	sv, err := oleutil.GetProperty(pres, "Slides")
	if err != nil {
		_, _ = oleutil.CallMethod(pres, "Close")
		pres.Release()
		return nil, fmt.Errorf("getting slides of %s: %w", abs, err)
	}
	return &pptPresentation{path: abs, pres: pres, slides: sv.ToIDispatch()}, nil
}

func (h *pptHost) Quit() error {
	if h.quit {
		return nil
	}
	h.quit = true
	defer runtime.UnlockOSThread()
	defer ole.CoUninitialize()

	h.presentations.Release()
	_, err := oleutil.CallMethod(h.app, "Quit")
	h.app.Release()
	if err != nil {
		return fmt.Errorf("quitting PowerPoint: %w", err)
	}
	return nil
}

type pptPresentation struct {
	path   string
	pres   *ole.IDispatch
	slides *ole.IDispatch
	closed bool
}

func (p *pptPresentation) SlideCount() (int, error) {
	v, err := oleutil.GetProperty(p.slides, "Count")
	if err != nil {
		return 0, fmt.Errorf("counting slides of %s: %w", p.path, err)
	}
	return int(v.Val), nil
}

func (p *pptPresentation) CopySlide(index int) error {
	v, err := oleutil.CallMethod(p.slides, "Item", index)
	if err != nil {
		return fmt.Errorf("getting slide %d of %s: %w", index, p.path, err)
	}
	slide := v.ToIDispatch()
	defer slide.Release()

	if _, err := oleutil.CallMethod(slide, "Copy"); err != nil {
		return fmt.Errorf("copying slide %d of %s: %w", index, p.path, err)
	}
	return nil
}

func (p *pptPresentation) PasteSlide() error {
	v, err := oleutil.CallMethod(p.slides, "Paste")
	if err != nil {
		return fmt.Errorf("pasting into %s: %w", p.path, err)
	}
	if d := v.ToIDispatch(); d != nil {
		d.Release()
	}
	return nil
}

func (p *pptPresentation) Truncate(count int) error {
	for {
		n, err := p.SlideCount()
		if err != nil {
			return err
		}
		if n <= count {
			return nil
		}
		v, err := oleutil.CallMethod(p.slides, "Item", n)
		if err != nil {
			return fmt.Errorf("getting slide %d of %s: %w", n, p.path, err)
		}
		slide := v.ToIDispatch()
		_, err = oleutil.CallMethod(slide, "Delete")
		slide.Release()
		if err != nil {
			return fmt.Errorf("deleting slide %d of %s: %w", n, p.path, err)
		}
	}
}

func (p *pptPresentation) SaveAs(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	if _, err := oleutil.CallMethod(p.pres, "SaveAs", abs, ppSaveAsOpenXMLPresentation); err != nil {
		return fmt.Errorf("saving %s: %w", abs, err)
	}
	return nil
}

func (p *pptPresentation) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.slides.Release()
	_, err := oleutil.CallMethod(p.pres, "Close")
	p.pres.Release()
	if err != nil {
		return fmt.Errorf("closing %s: %w", p.path, err)
	}
	return nil
}
