// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/pdiddy/docmerge/internal/inputs"
	"github.com/pdiddy/docmerge/internal/office"
	"github.com/pdiddy/docmerge/internal/pptx"
	"github.com/pdiddy/docmerge/pkg/types"
)

// StrategyLibrary is the name of the OOXML library fallback strategy.
const StrategyLibrary = "library"

// defaultBoxHeight is used for text shapes whose slide, layout and master
// declare no geometry (one inch).
const defaultBoxHeight int64 = 914400

// LibraryStrategy rebuilds presentations from their text. Each source
// slide becomes a new slide on the blank layout, and every text run of
// every text shape becomes a plain text box at the shape's position.
// Non-text shapes, formatting, layouts, themes, animations and notes are
// dropped.
type LibraryStrategy struct {
	detect    func() (office.Runtime, error)
	office    office.Runtime
	officeErr error
	probed    bool
}

// NewLibraryStrategy returns the fallback strategy. detect finds an office
// runtime for converting legacy .ppt inputs; it is called at most once, on
// the first legacy input. A nil detect disables conversion.
func NewLibraryStrategy(detect func() (office.Runtime, error)) *LibraryStrategy {
	return &LibraryStrategy{detect: detect}
}

func (s *LibraryStrategy) Name() string             { return StrategyLibrary }
func (s *LibraryStrategy) Format() types.Format     { return types.FormatPresentation }
func (s *LibraryStrategy) Fidelity() types.Fidelity { return types.FidelityDegraded }

// Probe implements Strategy. The OOXML library is compiled in.
func (s *LibraryStrategy) Probe() error { return nil }

func (s *LibraryStrategy) Remediation() string {
	return "the library strategy is built in; legacy .ppt inputs additionally need LibreOffice (soffice) on PATH"
}

// Merge implements Strategy.
func (s *LibraryStrategy) Merge(ctx context.Context, in []string, out string, log *slog.Logger) ([]types.SourceResult, error) {
	log.Warn("library merge keeps plain text only; layouts, formatting, images, animations and notes are dropped")

	tmpDir, err := os.MkdirTemp("", "docmerge-ppt-")
	if err != nil {
		return nil, fmt.Errorf("creating conversion directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	sources := pending(in)
	acc := pptx.NewBuilder()
	sized := false

	for i, path := range in {
		if err := ctx.Err(); err != nil {
			return sources, err
		}
		log.Info("processing input", "path", path)

		// Parse fully before appending so a corrupt input adds nothing.
		deck, err := s.open(path, tmpDir, log)
		if err != nil {
			fail(log, &sources[i], err)
			continue
		}
		if !sized {
			acc.SetSize(deck.Width, deck.Height)
			sized = true
		}
		appendDeck(acc, deck)
		sources[i].Status = types.SourceMerged
		sources[i].Units = len(deck.Slides)
	}

	if !sized {
		return sources, ErrAllInputsFailed
	}
	if err := acc.Save(out); err != nil {
		return sources, err
	}
	return sources, nil
}

func (s *LibraryStrategy) open(path, tmpDir string, log *slog.Logger) (*pptx.Deck, error) {
	if !inputs.IsLegacyPresentation(path) {
		return pptx.Open(path)
	}

	rt, err := s.runtime()
	if err != nil {
		return nil, fmt.Errorf("legacy .ppt needs conversion: %w", err)
	}
	converted, err := rt.Convert(path, tmpDir, "pptx")
	if err != nil {
		return nil, err
	}
	log.Debug("converted legacy presentation", "path", path, "runtime", rt.Name())
	return pptx.Open(converted)
}

func (s *LibraryStrategy) runtime() (office.Runtime, error) {
	if !s.probed {
		s.probed = true
		if s.detect == nil {
			s.officeErr = fmt.Errorf("office conversion disabled")
		} else {
			s.office, s.officeErr = s.detect()
		}
	}
	return s.office, s.officeErr
}

// appendDeck appends one new slide per source slide. Each run becomes its
// own text box at the source shape's frame.
func appendDeck(acc *pptx.Builder, deck *pptx.Deck) {
	width, _ := acc.Size()
	for _, slide := range deck.Slides {
		ns := acc.AddSlide()
		for _, shape := range slide.Shapes {
			frame := pptx.Frame{CX: width, CY: defaultBoxHeight}
			if shape.Frame != nil {
				frame = *shape.Frame
			}
			for _, para := range shape.Paragraphs {
				for _, run := range para.Runs {
					ns.AddTextBox(frame, run.Text)
				}
			}
		}
	}
}
