// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pptx reads and writes OOXML presentation packages (.pptx).
//
// The reader exposes the text content of each slide: top-level shapes that
// carry a text body, with their paragraphs, runs and position. The builder
// creates new packages from an embedded blank template and appends slides
// holding plain text boxes. Neither side round-trips formatting, pictures,
// charts, notes or animations.
package pptx

// EMU per inch. OOXML measures positions in English Metric Units.
const emuPerInch = 914400

const (
	// DefaultWidth and DefaultHeight are the 4:3 slide size of the blank
	// template (10in x 7.5in).
	DefaultWidth  int64 = 10 * emuPerInch
	DefaultHeight int64 = 7.5 * emuPerInch
)

// Frame is a shape's position and size in EMU.
type Frame struct {
	X  int64
	Y  int64
	CX int64
	CY int64
}

// Run is a span of text within a paragraph.
type Run struct {
	Text string
}

// Paragraph is an ordered list of runs.
type Paragraph struct {
	Runs []Run
}

// Text returns the concatenated run text.
func (p Paragraph) Text() string {
	var s string
	for _, r := range p.Runs {
		s += r.Text
	}
	return s
}

// Shape is a top-level slide shape that carries a text frame.
type Shape struct {
	ID   int
	Name string

	// Frame is the shape's own geometry or, for a placeholder, the
	// geometry inherited from its layout or master. It is nil when nothing
	// in that chain declares one.
	Frame *Frame

	Paragraphs []Paragraph
}

// Slide holds the text shapes of one slide in document order.
type Slide struct {
	// Part is the package part name, e.g. "ppt/slides/slide3.xml".
	Part   string
	Shapes []Shape
}

// Deck is the parsed content of a presentation package.
type Deck struct {
	Width  int64
	Height int64
	Slides []Slide
}
