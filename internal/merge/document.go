// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/pdiddy/docmerge/pkg/types"
)

// StrategyPDFCPU is the name of the PDF page-stream strategy.
const StrategyPDFCPU = "pdfcpu"

// pageStream abstracts the PDF library for testing.
type pageStream interface {
	Validate(path string) error
	PageCount(path string) (int, error)
	Merge(inputs []string, out string) error
}

// pdfcpuStream is the production pageStream backed by pdfcpu.
type pdfcpuStream struct {
	conf *model.Configuration
}

func newPDFCPUStream() *pdfcpuStream {
	// Keep pdfcpu from creating its config directory under the user's home.
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &pdfcpuStream{conf: conf}
}

func (p *pdfcpuStream) Validate(path string) error {
	if err := api.ValidateFile(path, p.conf); err != nil {
		return fmt.Errorf("validating %s: %w", path, err)
	}
	return nil
}

func (p *pdfcpuStream) PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("counting pages of %s: %w", path, err)
	}
	return n, nil
}

func (p *pdfcpuStream) Merge(inputs []string, out string) error {
	if err := api.MergeCreateFile(inputs, out, false, p.conf); err != nil {
		return fmt.Errorf("merging %d files: %w", len(inputs), err)
	}
	return nil
}

// DocumentStrategy concatenates the page streams of PDF inputs without
// transforming page content.
type DocumentStrategy struct {
	pdf pageStream
}

// NewDocumentStrategy returns the pdfcpu-backed document strategy.
func NewDocumentStrategy() *DocumentStrategy {
	return &DocumentStrategy{pdf: newPDFCPUStream()}
}

func (s *DocumentStrategy) Name() string             { return StrategyPDFCPU }
func (s *DocumentStrategy) Format() types.Format     { return types.FormatDocument }
func (s *DocumentStrategy) Fidelity() types.Fidelity { return types.FidelityFull }

// Probe implements Strategy. pdfcpu is compiled in.
func (s *DocumentStrategy) Probe() error { return nil }

func (s *DocumentStrategy) Remediation() string {
	return "the pdfcpu strategy is built in; rebuild docmerge if it is missing"
}

// Merge implements Strategy. Inputs that fail validation are skipped before
// the merge, so the output holds exactly the pages of the valid inputs.
func (s *DocumentStrategy) Merge(ctx context.Context, inputs []string, out string, log *slog.Logger) ([]types.SourceResult, error) {
	sources := pending(inputs)
	valid := make([]string, 0, len(inputs))

	for i, path := range inputs {
		if err := ctx.Err(); err != nil {
			return sources, err
		}
		log.Info("processing input", "path", path)

		if err := s.pdf.Validate(path); err != nil {
			fail(log, &sources[i], err)
			continue
		}
		n, err := s.pdf.PageCount(path)
		if err != nil {
			fail(log, &sources[i], err)
			continue
		}
		valid = append(valid, path)
		sources[i].Status = types.SourceMerged
		sources[i].Units = n
	}

	switch len(valid) {
	case 0:
		return sources, ErrAllInputsFailed
	case 1:
		// A single document is its own concatenation.
		return sources, copyFile(valid[0], out)
	default:
		return sources, s.pdf.Merge(valid, out)
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}
