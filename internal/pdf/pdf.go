// Package pdf renders generated study notes (markdown) into a printable
// PDF document.
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// run is a span of inline text with styling resolved.
type run struct {
	text string
	bold bool
}

// block is one renderable unit extracted from the markdown AST.
type block struct {
	heading bool
	bullet  bool
	runs    []run
}

// Render converts markdown notes into PDF bytes.
func Render(markdown string) ([]byte, error) {
	blocks := parseBlocks([]byte(markdown))

	doc := fpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.SetHeaderFunc(func() {
		doc.SetFont("Helvetica", "B", 20)
		doc.SetTextColor(44, 62, 80)
		doc.CellFormat(0, 10, "Lecture Notes", "", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "I", 10)
		doc.SetTextColor(127, 140, 141)
		doc.CellFormat(0, 10, "Generated by Lecture-to-Notes Pro", "", 0, "R", false, 0, "")
		doc.Ln(12)
		doc.SetDrawColor(233, 64, 87)
		doc.SetLineWidth(1.5)
		doc.Line(10, 32, 200, 32)
		doc.Ln(10)
	})
	doc.SetFooterFunc(func() {
		doc.SetY(-15)
		doc.SetFont("Helvetica", "I", 8)
		doc.SetTextColor(150, 150, 150)
		doc.CellFormat(0, 10, fmt.Sprintf("Page %d", doc.PageNo()), "", 0, "C", false, 0, "")
	})

	doc.AddPage()
	doc.SetAutoPageBreak(true, 15)

	for _, b := range blocks {
		if b.heading {
			writeChapterTitle(doc, tr, plainText(b.runs))
			continue
		}
		writeBody(doc, tr, b)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("unable to render PDF: %w", err)
	}

	return buf.Bytes(), nil
}

func writeChapterTitle(doc *fpdf.Fpdf, tr func(string) string, title string) {
	doc.SetFont("Helvetica", "B", 14)
	doc.SetTextColor(255, 255, 255)
	doc.SetFillColor(44, 62, 80)
	doc.CellFormat(0, 10, "  "+tr(title), "", 1, "L", true, 0, "")
	doc.Ln(5)
}

func writeBody(doc *fpdf.Fpdf, tr func(string) string, b block) {
	doc.SetTextColor(20, 20, 20)

	hasBold := false
	for _, r := range b.runs {
		if r.bold {
			hasBold = true
			break
		}
	}

	if hasBold {
		for _, r := range b.runs {
			if r.bold {
				doc.SetFont("Helvetica", "B", 11)
			} else {
				doc.SetFont("Helvetica", "", 11)
			}
			doc.Write(6, tr(r.text))
		}
		doc.Ln(6)
		return
	}

	doc.SetFont("Helvetica", "", 11)
	line := plainText(b.runs)
	if b.bullet {
		doc.SetX(15)
		line = string(rune(149)) + " " + line
	} else {
		doc.SetX(10)
	}
	doc.MultiCell(0, 6, tr(line), "", "L", false)
	doc.Ln(2)
}

func plainText(runs []run) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.text)
	}
	return b.String()
}

// parseBlocks walks the markdown AST and flattens it into headings,
// paragraphs and bullet items.
func parseBlocks(source []byte) []block {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var blocks []block

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			blocks = append(blocks, block{heading: true, runs: inlineRuns(node, source, false)})
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph, *ast.TextBlock:
			bullet := false
			if _, ok := n.Parent().(*ast.ListItem); ok {
				bullet = true
			}
			blocks = append(blocks, block{bullet: bullet, runs: inlineRuns(n, source, false)})
			return ast.WalkSkipChildren, nil
		}

		return ast.WalkContinue, nil
	})

	return blocks
}

// inlineRuns flattens the inline children of a block node into styled
// runs, resolving strong emphasis to bold.
func inlineRuns(n ast.Node, source []byte, bold bool) []run {
	var runs []run

	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch node := child.(type) {
		case *ast.Text:
			t := string(node.Segment.Value(source))
			if t != "" {
				runs = append(runs, run{text: t, bold: bold})
			}
			if node.SoftLineBreak() || node.HardLineBreak() {
				runs = append(runs, run{text: " ", bold: bold})
			}
		case *ast.Emphasis:
			runs = append(runs, inlineRuns(node, source, bold || node.Level >= 2)...)
		case *ast.CodeSpan:
			runs = append(runs, run{text: string(node.Text(source)), bold: bold})
		case *ast.Link:
			runs = append(runs, inlineRuns(node, source, bold)...)
		default:
			if child.Type() == ast.TypeInline {
				runs = append(runs, run{text: string(child.Text(source)), bold: bold})
			}
		}
	}

	return runs
}
