// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docmerge/internal/pptx"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// writeDeck saves a presentation with one slide per entry of slides. Each
// slide holds one text box per string.
func writeDeck(t *testing.T, path string, slides ...[]string) {
	t.Helper()
	b := pptx.NewBuilder()
	for _, texts := range slides {
		s := b.AddSlide()
		for i, text := range texts {
			s.AddTextBox(pptx.Frame{X: int64(i) * 1000, Y: 500, CX: 4000, CY: 800}, text)
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, b.Save(path))
}

// deckTexts returns the first text box of every slide of the deck at path.
func deckTexts(t *testing.T, path string) []string {
	t.Helper()
	deck, err := pptx.Open(path)
	require.NoError(t, err)
	out := make([]string, 0, len(deck.Slides))
	for _, s := range deck.Slides {
		if len(s.Shapes) == 0 {
			out = append(out, "")
			continue
		}
		out = append(out, s.Shapes[0].Paragraphs[0].Text())
	}
	return out
}

// writePDF writes a minimal valid PDF with the given number of blank pages.
func writePDF(t *testing.T, path string, pages int) {
	t.Helper()
	var b strings.Builder
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, b.Len())
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	b.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	for range pages {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>")
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(offsets)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
