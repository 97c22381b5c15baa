// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pptx

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

const (
	nsRelationships = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	relOfficeDocument = nsRelationships + "/officeDocument"
	relSlide          = nsRelationships + "/slide"
	relSlideLayout    = nsRelationships + "/slideLayout"
	relSlideMaster    = nsRelationships + "/slideMaster"
	relTheme          = nsRelationships + "/theme"
	relPresProps      = nsRelationships + "/presProps"
	relViewProps      = nsRelationships + "/viewProps"
	relTableStyles    = nsRelationships + "/tableStyles"

	defaultPresentationPart = "ppt/presentation.xml"
)

// ErrNotPresentation is returned when a package has no presentation part.
var ErrNotPresentation = errors.New("not a presentation package")

type xmlRelationships struct {
	Items []xmlRelationship `xml:"Relationship"`
}

type xmlRelationship struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}

type xmlPresentation struct {
	SlideIDs []struct {
		RelID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
	Size *struct {
		CX int64 `xml:"cx,attr"`
		CY int64 `xml:"cy,attr"`
	} `xml:"sldSz"`
}

type xmlSlide struct {
	Shapes []xmlShape `xml:"cSld>spTree>sp"`
}

type xmlShape struct {
	CNvPr struct {
		ID   int    `xml:"id,attr"`
		Name string `xml:"name,attr"`
	} `xml:"nvSpPr>cNvPr"`
	Ph   *xmlPlaceholder `xml:"nvSpPr>nvPr>ph"`
	Xfrm *struct {
		Off struct {
			X int64 `xml:"x,attr"`
			Y int64 `xml:"y,attr"`
		} `xml:"off"`
		Ext struct {
			CX int64 `xml:"cx,attr"`
			CY int64 `xml:"cy,attr"`
		} `xml:"ext"`
	} `xml:"spPr>xfrm"`
	TxBody *struct {
		Paragraphs []struct {
			Runs []struct {
				Text string `xml:"t"`
			} `xml:"r"`
		} `xml:"p"`
	} `xml:"txBody"`
}

type xmlPlaceholder struct {
	Type string `xml:"type,attr"`
	Idx  string `xml:"idx,attr"`
}

// kind folds placeholder types that a master represents with one shape.
// An omitted type means "obj".
func (ph *xmlPlaceholder) kind() string {
	switch ph.Type {
	case "", "obj", "body", "subTitle":
		return "body"
	case "title", "ctrTitle":
		return "title"
	default:
		return ph.Type
	}
}

// Open parses the presentation package at path.
func Open(path string) (*Deck, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening presentation %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	deck, err := Read(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("reading presentation %s: %w", path, err)
	}
	return deck, nil
}

// Read parses a presentation package from r.
func Read(r io.ReaderAt, size int64) (*Deck, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("opening package: %w", err)
	}
	pkg := &pkgReader{
		files:  make(map[string]*zip.File, len(zr.File)),
		shapes: make(map[string][]xmlShape),
	}
	for _, f := range zr.File {
		pkg.files[strings.TrimPrefix(f.Name, "/")] = f
	}

	presPart, err := pkg.presentationPart()
	if err != nil {
		return nil, err
	}

	var pres xmlPresentation
	if err := pkg.decode(presPart, &pres); err != nil {
		return nil, err
	}
	rels, err := pkg.relationships(presPart)
	if err != nil {
		return nil, err
	}

	deck := &Deck{Width: DefaultWidth, Height: DefaultHeight}
	if pres.Size != nil && pres.Size.CX > 0 && pres.Size.CY > 0 {
		deck.Width, deck.Height = pres.Size.CX, pres.Size.CY
	}

	for _, id := range pres.SlideIDs {
		rel, ok := rels[id.RelID]
		if !ok || rel.Type != relSlide {
			return nil, fmt.Errorf("slide relationship %q not found in %s", id.RelID, presPart)
		}
		part := resolveTarget(presPart, rel.Target)
		slide, err := pkg.slide(part)
		if err != nil {
			return nil, err
		}
		deck.Slides = append(deck.Slides, slide)
	}
	return deck, nil
}

type pkgReader struct {
	files map[string]*zip.File

	// shapes caches the decoded shape trees of layouts and masters.
	shapes map[string][]xmlShape
}

func (p *pkgReader) decode(part string, v any) error {
	f, ok := p.files[part]
	if !ok {
		return fmt.Errorf("part %s missing from package", part)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening part %s: %w", part, err)
	}
	defer rc.Close()

	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("parsing part %s: %w", part, err)
	}
	return nil
}

// relationships returns the relationships of part keyed by id. A part
// without a relationships file has none.
func (p *pkgReader) relationships(part string) (map[string]xmlRelationship, error) {
	relsPart := path.Join(path.Dir(part), "_rels", path.Base(part)+".rels")
	out := make(map[string]xmlRelationship)
	if _, ok := p.files[relsPart]; !ok {
		return out, nil
	}
	var rels xmlRelationships
	if err := p.decode(relsPart, &rels); err != nil {
		return nil, err
	}
	for _, r := range rels.Items {
		out[r.ID] = r
	}
	return out, nil
}

func (p *pkgReader) presentationPart() (string, error) {
	var root xmlRelationships
	if _, ok := p.files["_rels/.rels"]; ok {
		if err := p.decode("_rels/.rels", &root); err != nil {
			return "", err
		}
	}
	for _, r := range root.Items {
		if r.Type == relOfficeDocument {
			part := resolveTarget("", r.Target)
			if _, ok := p.files[part]; ok {
				return part, nil
			}
		}
	}
	if _, ok := p.files[defaultPresentationPart]; ok {
		return defaultPresentationPart, nil
	}
	return "", ErrNotPresentation
}

func (p *pkgReader) slide(part string) (Slide, error) {
	var xs xmlSlide
	if err := p.decode(part, &xs); err != nil {
		return Slide{}, err
	}

	var chain [][]xmlShape
	slide := Slide{Part: part}
	for _, sp := range xs.Shapes {
		if sp.TxBody == nil {
			continue
		}
		shape := Shape{ID: sp.CNvPr.ID, Name: sp.CNvPr.Name, Frame: sp.frame()}
		if shape.Frame == nil && sp.Ph != nil {
			if chain == nil {
				var err error
				if chain, err = p.inheritance(part); err != nil {
					return Slide{}, err
				}
			}
			shape.Frame = inheritedFrame(sp.Ph, chain)
		}
		for _, xp := range sp.TxBody.Paragraphs {
			para := Paragraph{Runs: make([]Run, 0, len(xp.Runs))}
			for _, xr := range xp.Runs {
				para.Runs = append(para.Runs, Run{Text: xr.Text})
			}
			shape.Paragraphs = append(shape.Paragraphs, para)
		}
		slide.Shapes = append(slide.Shapes, shape)
	}
	return slide, nil
}

func (sp *xmlShape) frame() *Frame {
	if sp.Xfrm == nil {
		return nil
	}
	return &Frame{
		X:  sp.Xfrm.Off.X,
		Y:  sp.Xfrm.Off.Y,
		CX: sp.Xfrm.Ext.CX,
		CY: sp.Xfrm.Ext.CY,
	}
}

// inheritance returns the shape trees a slide's placeholders inherit
// geometry from: its layout, then that layout's master. Missing parts end
// the chain early.
func (p *pkgReader) inheritance(slidePart string) ([][]xmlShape, error) {
	chain := [][]xmlShape{}
	layout, err := p.related(slidePart, relSlideLayout)
	if err != nil || layout == "" {
		return chain, err
	}
	shapes, err := p.shapeTree(layout)
	if err != nil {
		return nil, err
	}
	chain = append(chain, shapes)

	master, err := p.related(layout, relSlideMaster)
	if err != nil || master == "" {
		return chain, err
	}
	if shapes, err = p.shapeTree(master); err != nil {
		return nil, err
	}
	return append(chain, shapes), nil
}

// related returns the first part of relType that part links to, or "" if
// there is none in the package.
func (p *pkgReader) related(part, relType string) (string, error) {
	rels, err := p.relationships(part)
	if err != nil {
		return "", err
	}
	for _, r := range rels {
		if r.Type != relType {
			continue
		}
		target := resolveTarget(part, r.Target)
		if _, ok := p.files[target]; ok {
			return target, nil
		}
	}
	return "", nil
}

func (p *pkgReader) shapeTree(part string) ([]xmlShape, error) {
	if shapes, ok := p.shapes[part]; ok {
		return shapes, nil
	}
	var xs xmlSlide
	if err := p.decode(part, &xs); err != nil {
		return nil, err
	}
	p.shapes[part] = xs.Shapes
	return xs.Shapes, nil
}

// inheritedFrame walks chain for the placeholder matching ph and returns
// the first declared frame. Each level is matched by idx, then by type, and
// a matched placeholder's own ph is used for the next level.
func inheritedFrame(ph *xmlPlaceholder, chain [][]xmlShape) *Frame {
	for _, shapes := range chain {
		match := findPlaceholder(ph, shapes)
		if match == nil {
			continue
		}
		if f := match.frame(); f != nil {
			return f
		}
		ph = match.Ph
	}
	return nil
}

func findPlaceholder(ph *xmlPlaceholder, shapes []xmlShape) *xmlShape {
	if ph.Idx != "" {
		for i := range shapes {
			if shapes[i].Ph != nil && shapes[i].Ph.Idx == ph.Idx {
				return &shapes[i]
			}
		}
	}
	for i := range shapes {
		if shapes[i].Ph != nil && shapes[i].Ph.kind() == ph.kind() {
			return &shapes[i]
		}
	}
	return nil
}

// resolveTarget resolves a relationship target against the part that owns
// the relationship. Absolute targets are package-rooted.
func resolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Join(path.Dir(source), target)
}
