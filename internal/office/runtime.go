// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package office detects a local LibreOffice installation and uses it in
// headless mode to convert legacy binary presentations to OOXML.
package office

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	binSoffice     = "soffice"
	binLibreoffice = "libreoffice"
)

// Runtime converts documents with an office suite binary.
type Runtime interface {
	// Name returns the binary name ("soffice" or "libreoffice").
	Name() string

	// Available reports whether the binary exists on PATH and answers a
	// version query.
	Available() bool

	// Convert converts src into the given target extension (e.g. "pptx"),
	// writing into outDir. It returns the path of the converted file.
	Convert(src, outDir, target string) (string, error)
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(name string, args ...string) error
	RunCaptured(name string, args []string, stderr io.Writer) error
	Stat(path string) (os.FileInfo, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunSilent(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

func (o *osExecutor) RunCaptured(name string, args []string, stderr io.Writer) error {
	cmd := exec.Command(name, args...)
	cmd.Stderr = stderr
	return cmd.Run()
}

func (o *osExecutor) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

// runtime implements Runtime for one LibreOffice binary. Both names share
// the same command line; distributions install one or the other.
type runtime struct {
	bin  string
	exec executor
}

func (r *runtime) Name() string { return r.bin }

func (r *runtime) Available() bool {
	if _, err := r.exec.LookPath(r.bin); err != nil {
		return false
	}
	return r.exec.RunSilent(r.bin, "--headless", "--version") == nil
}

func (r *runtime) Convert(src, outDir, target string) (string, error) {
	args := []string{"--headless", "--convert-to", target, "--outdir", outDir, src}

	var stderr strings.Builder
	if err := r.exec.RunCaptured(r.bin, args, &stderr); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("converting %s with %s: %w: %s", src, r.bin, err, msg)
		}
		return "", fmt.Errorf("converting %s with %s: %w", src, r.bin, err)
	}

	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	out := filepath.Join(outDir, base+"."+target)
	if _, err := r.exec.Stat(out); err != nil {
		return "", fmt.Errorf("%s produced no output for %s: %w", r.bin, src, err)
	}
	return out, nil
}

var defaultExec = &osExecutor{}

// DetectRuntime tries soffice first, falls back to libreoffice. Returns an
// error if neither is available.
func DetectRuntime() (Runtime, error) {
	return detectRuntime(defaultExec)
}

func detectRuntime(exec executor) (Runtime, error) {
	for _, bin := range []string{binSoffice, binLibreoffice} {
		rt := &runtime{bin: bin, exec: exec}
		if rt.Available() {
			return rt, nil
		}
	}
	return nil, fmt.Errorf(
		"no office runtime available: neither %s nor %s found or operational",
		binSoffice, binLibreoffice,
	)
}
