// Package pdftest builds small, valid PDF files for tests.
//
// The generated files use a single monospaced Type1 font where every glyph
// is 600/1000 em wide, so a string of n characters at size s is exactly
// n*0.6*s points wide. That keeps expected coordinates easy to compute.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// GlyphWidth is the advance width of every glyph, in thousandths of an em.
const GlyphWidth = 600

// Text is a string drawn at a baseline position.
type Text struct {
	X, Y float64
	Size float64
	S    string
}

// Page is one page of the generated document.
type Page struct {
	Width, Height float64
	Texts         []Text
}

// Letter returns a US Letter page with the given texts.
func Letter(texts ...Text) Page {
	return Page{Width: 612, Height: 792, Texts: texts}
}

// Build writes a PDF containing the pages in order.
func Build(pages ...Page) []byte {
	var objects []string

	// 1: catalog, 2: pages, 3: font, then a (page, content) pair per page.
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}

	widths := strings.TrimSpace(strings.Repeat(fmt.Sprintf("%d ", GlyphWidth), 95))
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /Courier /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [%s] >>", widths),
	)

	for i, p := range pages {
		var content strings.Builder
		for _, t := range p.Texts {
			fmt.Fprintf(&content, "BT /F1 %g Tf 1 0 0 1 %g %g Tm (%s) Tj ET\n", t.Size, t.X, t.Y, escape(t.S))
		}
		stream := content.String()
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
				p.Width, p.Height, 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(stream), stream),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
