// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pptx

import (
	"archive/zip"
	"bytes"
	"embed"
	"encoding/xml"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"text/template"
)

//go:embed all:template
var templateFS embed.FS

const templateRoot = "template"

// Builder assembles a new presentation package. Every slide uses the
// template's single blank layout.
type Builder struct {
	width  int64
	height int64
	slides []*SlideBuilder
}

// SlideBuilder collects the text boxes of one new slide.
type SlideBuilder struct {
	boxes []textBox
}

type textBox struct {
	ID    int
	Frame Frame
	Text  string
}

// NewBuilder returns an empty presentation with the default 4:3 slide size.
func NewBuilder() *Builder {
	return &Builder{width: DefaultWidth, height: DefaultHeight}
}

// SetSize sets the slide size in EMU. Non-positive values are ignored.
func (b *Builder) SetSize(cx, cy int64) {
	if cx > 0 && cy > 0 {
		b.width, b.height = cx, cy
	}
}

// Size returns the slide size in EMU.
func (b *Builder) Size() (cx, cy int64) {
	return b.width, b.height
}

// AddSlide appends an empty slide and returns it for population.
func (b *Builder) AddSlide() *SlideBuilder {
	s := &SlideBuilder{}
	b.slides = append(b.slides, s)
	return s
}

// SlideCount returns the number of slides added so far.
func (b *Builder) SlideCount() int {
	return len(b.slides)
}

// AddTextBox adds a text box at f holding text as a single paragraph.
func (s *SlideBuilder) AddTextBox(f Frame, text string) {
	// id 1 is the slide's shape tree group.
	s.boxes = append(s.boxes, textBox{ID: len(s.boxes) + 2, Frame: f, Text: text})
}

// Save writes the package to path.
func (b *Builder) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := b.Write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

// Write writes the package as a zip stream to w.
func (b *Builder) Write(w io.Writer) error {
	zw := zip.NewWriter(w)

	parts, err := b.parts()
	if err != nil {
		return err
	}
	for _, p := range parts {
		fw, err := zw.Create(p.name)
		if err != nil {
			return fmt.Errorf("adding part %s: %w", p.name, err)
		}
		if _, err := fw.Write(p.data); err != nil {
			return fmt.Errorf("writing part %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing package: %w", err)
	}
	return nil
}

type part struct {
	name string
	data []byte
}

// parts renders the generated parts followed by the static template parts.
// The content types part goes first, as OPC readers expect.
func (b *Builder) parts() ([]part, error) {
	slideNames := make([]string, len(b.slides))
	for i := range b.slides {
		slideNames[i] = fmt.Sprintf("slide%d.xml", i+1)
	}

	var parts []part
	render := func(name string, tmpl *template.Template, data any) error {
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return fmt.Errorf("rendering %s: %w", name, err)
		}
		parts = append(parts, part{name: name, data: buf.Bytes()})
		return nil
	}

	if err := render("[Content_Types].xml", contentTypesTmpl, slideNames); err != nil {
		return nil, err
	}
	if err := render(defaultPresentationPart, presentationTmpl, presentationData{
		Width:  b.width,
		Height: b.height,
		Slides: len(b.slides),
	}); err != nil {
		return nil, err
	}
	if err := render("ppt/_rels/presentation.xml.rels", presentationRelsTmpl, presentationRelsData{
		Slides:         slideNames,
		SlideRel:       relSlide,
		SlideMasterRel: relSlideMaster,
		ThemeRel:       relTheme,
		PresPropsRel:   relPresProps,
		ViewPropsRel:   relViewProps,
		TableStyleRel:  relTableStyles,
	}); err != nil {
		return nil, err
	}
	for i, s := range b.slides {
		if err := render("ppt/slides/"+slideNames[i], slideTmpl, s.boxes); err != nil {
			return nil, err
		}
		if err := render("ppt/slides/_rels/"+slideNames[i]+".rels", slideRelsTmpl, relSlideLayout); err != nil {
			return nil, err
		}
	}

	err := fs.WalkDir(templateFS, templateRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := templateFS.ReadFile(p)
		if err != nil {
			return err
		}
		name := strings.TrimPrefix(p, templateRoot+"/")
		parts = append(parts, part{name: path.Clean(name), data: data})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading template: %w", err)
	}
	return parts, nil
}

type presentationData struct {
	Width  int64
	Height int64
	Slides int
}

type presentationRelsData struct {
	Slides         []string
	SlideRel       string
	SlideMasterRel string
	ThemeRel       string
	PresPropsRel   string
	ViewPropsRel   string
	TableStyleRel  string
}

// firstSlideRel is the relationship number of the first slide; rId1-rId5
// are taken by the master, theme and property parts.
const firstSlideRel = 6

// escapeText escapes s for use as XML character data.
func escapeText(s string) string {
	var buf strings.Builder
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

var funcs = template.FuncMap{
	"xml":     escapeText,
	"slideID": func(i int) int { return 256 + i },
	"relID":   func(i int) string { return fmt.Sprintf("rId%d", firstSlideRel+i) },
	"seq": func(n int) []int {
		s := make([]int, n)
		for i := range s {
			s[i] = i
		}
		return s
	},
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

const pmlNamespaces = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`

const emptyGroup = `<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
	`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`

const ctPML = "application/vnd.openxmlformats-officedocument.presentationml."

var contentTypesTmpl = template.Must(template.New("ct").Funcs(funcs).Parse(xmlHeader +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/ppt/presentation.xml" ContentType="` + ctPML + `presentation.main+xml"/>` +
	`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="` + ctPML + `slideMaster+xml"/>` +
	`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="` + ctPML + `slideLayout+xml"/>` +
	`<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>` +
	`<Override PartName="/ppt/presProps.xml" ContentType="` + ctPML + `presProps+xml"/>` +
	`<Override PartName="/ppt/viewProps.xml" ContentType="` + ctPML + `viewProps+xml"/>` +
	`<Override PartName="/ppt/tableStyles.xml" ContentType="` + ctPML + `tableStyles+xml"/>` +
	`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>` +
	`<Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/>` +
	`{{range .}}<Override PartName="/ppt/slides/{{.}}" ContentType="` + ctPML + `slide+xml"/>{{end}}` +
	`</Types>`))

var presentationTmpl = template.Must(template.New("pres").Funcs(funcs).Parse(xmlHeader +
	`<p:presentation ` + pmlNamespaces + ` saveSubsetFonts="1">` +
	`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>` +
	`{{if .Slides}}<p:sldIdLst>{{range $i := seq .Slides}}<p:sldId id="{{slideID $i}}" r:id="{{relID $i}}"/>{{end}}</p:sldIdLst>{{end}}` +
	`<p:sldSz cx="{{.Width}}" cy="{{.Height}}"/>` +
	`<p:notesSz cx="6858000" cy="9144000"/>` +
	`</p:presentation>`))

var presentationRelsTmpl = template.Must(template.New("presrels").Funcs(funcs).Parse(xmlHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="{{.SlideMasterRel}}" Target="slideMasters/slideMaster1.xml"/>` +
	`<Relationship Id="rId2" Type="{{.PresPropsRel}}" Target="presProps.xml"/>` +
	`<Relationship Id="rId3" Type="{{.ViewPropsRel}}" Target="viewProps.xml"/>` +
	`<Relationship Id="rId4" Type="{{.ThemeRel}}" Target="theme/theme1.xml"/>` +
	`<Relationship Id="rId5" Type="{{.TableStyleRel}}" Target="tableStyles.xml"/>` +
	`{{$rel := .SlideRel}}{{range $i, $s := .Slides}}<Relationship Id="{{relID $i}}" Type="{{$rel}}" Target="slides/{{$s}}"/>{{end}}` +
	`</Relationships>`))

var slideTmpl = template.Must(template.New("slide").Funcs(funcs).Parse(xmlHeader +
	`<p:sld ` + pmlNamespaces + `><p:cSld><p:spTree>` + emptyGroup +
	`{{range .}}<p:sp>` +
	`<p:nvSpPr><p:cNvPr id="{{.ID}}" name="TextBox {{.ID}}"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>` +
	`<p:spPr><a:xfrm><a:off x="{{.Frame.X}}" y="{{.Frame.Y}}"/><a:ext cx="{{.Frame.CX}}" cy="{{.Frame.CY}}"/></a:xfrm>` +
	`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:noFill/></p:spPr>` +
	`<p:txBody><a:bodyPr wrap="square" rtlCol="0"><a:spAutoFit/></a:bodyPr><a:lstStyle/>` +
	`<a:p><a:r><a:rPr lang="en-US" dirty="0"/><a:t>{{xml .Text}}</a:t></a:r></a:p>` +
	`</p:txBody></p:sp>{{end}}` +
	`</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`))

var slideRelsTmpl = template.Must(template.New("sliderels").Parse(xmlHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="{{.}}" Target="../slideLayouts/slideLayout1.xml"/>` +
	`</Relationships>`))
