// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pdiddy/docmerge/internal/automation"
	"github.com/pdiddy/docmerge/pkg/types"
)

// StrategyAutomation is the name of the application automation strategy.
const StrategyAutomation = "automation"

// AutomationStrategy merges presentations by driving an external
// application. The first input that opens becomes the accumulator, so the
// output inherits its template and theme; slides of later inputs are copied
// and pasted after it.
type AutomationStrategy struct {
	launcher automation.Launcher
}

// NewAutomationStrategy returns a strategy backed by launcher.
func NewAutomationStrategy(launcher automation.Launcher) *AutomationStrategy {
	return &AutomationStrategy{launcher: launcher}
}

func (s *AutomationStrategy) Name() string             { return StrategyAutomation }
func (s *AutomationStrategy) Format() types.Format     { return types.FormatPresentation }
func (s *AutomationStrategy) Fidelity() types.Fidelity { return types.FidelityFull }
func (s *AutomationStrategy) Probe() error             { return s.launcher.Probe() }

func (s *AutomationStrategy) Remediation() string {
	return "automation requires Windows with Microsoft PowerPoint installed"
}

// Merge implements Strategy. The host is quit on every return path.
func (s *AutomationStrategy) Merge(ctx context.Context, inputs []string, out string, log *slog.Logger) (sources []types.SourceResult, err error) {
	host, err := s.launcher.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching %s: %w", s.launcher.Name(), err)
	}
	defer func() {
		if qerr := host.Quit(); qerr != nil {
			log.Warn("automation host did not quit cleanly", "host", s.launcher.Name(), "error", qerr)
		}
	}()

	sources = pending(inputs)

	var (
		base      automation.Presentation
		baseCount int
		next      int
	)
	for ; next < len(inputs) && base == nil; next++ {
		if err := ctx.Err(); err != nil {
			return sources, err
		}
		p, n, err := openCounted(host, inputs[next])
		if err != nil {
			fail(log, &sources[next], err)
			continue
		}
		base, baseCount = p, n
		sources[next].Status = types.SourceBase
		sources[next].Units = n
		log.Info("using base presentation", "path", inputs[next], "slides", n)
	}
	if base == nil {
		return sources, ErrAllInputsFailed
	}
	defer func() {
		if cerr := base.Close(); cerr != nil {
			log.Warn("closing base presentation", "error", cerr)
		}
	}()

	for i := next; i < len(inputs); i++ {
		if err := ctx.Err(); err != nil {
			return sources, err
		}
		log.Info("processing input", "path", inputs[i])
		n, err := appendSlides(host, base, inputs[i])
		if err != nil {
			if terr := base.Truncate(baseCount); terr != nil {
				return sources, fmt.Errorf("rolling back partial copy of %s: %w", inputs[i], terr)
			}
			fail(log, &sources[i], err)
			continue
		}
		baseCount += n
		sources[i].Status = types.SourceMerged
		sources[i].Units = n
	}

	if err := base.SaveAs(out); err != nil {
		return sources, err
	}
	return sources, nil
}

// openCounted opens path and reads its slide count, closing it again on
// failure.
func openCounted(host automation.Host, path string) (automation.Presentation, int, error) {
	p, err := host.Open(path)
	if err != nil {
		return nil, 0, err
	}
	n, err := p.SlideCount()
	if err != nil {
		_ = p.Close()
		return nil, 0, err
	}
	return p, n, nil
}

// appendSlides copies every slide of path, in order, to the end of base and
// closes path without saving.
func appendSlides(host automation.Host, base automation.Presentation, path string) (int, error) {
	src, n, err := openCounted(host, path)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	for i := 1; i <= n; i++ {
		if err := src.CopySlide(i); err != nil {
			return 0, err
		}
		if err := base.PasteSlide(); err != nil {
			return 0, err
		}
	}
	return n, nil
}
