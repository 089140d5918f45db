// Copyright 2021, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"encoding/hex"
	"fmt"
	"io"
	"math"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontfamily"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// PDFOptions tunes the PDF rendering.
type PDFOptions struct {
	// AlternateColor is the background of every second row.
	AlternateColor Color
	FontSize       float64
	Landscape      bool
	PrintPageNum   bool
}

// DefaultPDFOptions are used for the zero PDFOptions.
var DefaultPDFOptions = PDFOptions{
	AlternateColor: Color{Color: props.Color{Red: 230, Green: 230, Blue: 230}},
	FontSize:       8,
	Landscape:      true,
}

// WritePDF writes the entries as a PDF table.
func WritePDF(w io.Writer, title string, entries []Entry, opts PDFOptions) error {
	if opts.FontSize <= 0 {
		opts.FontSize = DefaultPDFOptions.FontSize
	}
	if opts.AlternateColor == (Color{}) {
		opts.AlternateColor = DefaultPDFOptions.AlternateColor
	}
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = e.Fields()
	}
	gridSize := gridSizes(Headers, rows)
	var maxGrid int
	for _, g := range gridSize {
		maxGrid += g
	}

	orient := orientation.Vertical
	if opts.Landscape {
		orient = orientation.Horizontal
	}
	b := config.NewBuilder().
		WithOrientation(orient).
		WithPageSize(pagesize.A4).
		WithMaxGridSize(maxGrid).
		WithTitle(title, true)
	if opts.PrintPageNum {
		b = b.WithPageNumber()
	}
	m := maroto.New(b.Build())

	lineHeight := opts.FontSize * 0.6
	if title != "" {
		m.AddRows(text.NewRow(lineHeight*2, title, props.Text{
			Family: fontfamily.Arial, Style: fontstyle.Bold,
			Size: opts.FontSize * 1.5, Align: align.Center,
		}))
	}
	m.AddRows(tableRow(Headers, gridSize, lineHeight*1.2, props.Text{
		Family: fontfamily.Arial, Style: fontstyle.Bold,
		Size: opts.FontSize * 1.375, Align: align.Center,
	}, nil))
	content := props.Text{Family: fontfamily.Courier, Style: fontstyle.Normal, Size: opts.FontSize, Align: align.Left}
	for i, fields := range rows {
		var bg *props.Color
		if i%2 == 1 {
			bg = &opts.AlternateColor.Color
		}
		m.AddRows(tableRow(fields, gridSize, lineHeight, content, bg))
	}

	doc, err := m.Generate()
	if err != nil {
		return err
	}
	_, err = w.Write(doc.GetBytes())
	return err
}

func tableRow(fields []string, gridSize []int, height float64, prop props.Text, bg *props.Color) core.Row {
	cols := make([]core.Col, len(fields))
	for i, f := range fields {
		cols[i] = text.NewCol(gridSize[i], f, prop)
	}
	r := row.New(height).Add(cols...)
	if bg != nil {
		r = r.WithStyle(&props.Cell{BackgroundColor: bg})
	}
	return r
}

// gridSizes distributes the grid among the columns proportionally to
// the average width of their content.
func gridSizes(headers []string, rows [][]string) []int {
	widths := make([]float64, len(headers))
	var avg float64
	for i, s := range headers {
		widths[i] = float64(len(s))
		avg += widths[i]
	}
	for _, row := range rows {
		for i, s := range row {
			if i < len(widths) {
				widths[i] += float64(len(s))
				avg += float64(len(s))
			}
		}
	}
	avg /= float64(len(widths))
	gridSize := make([]int, len(headers))
	for i, w := range widths {
		gridSize[i] = int(math.Round(4 * w / avg))
		if gridSize[i] == 0 {
			gridSize[i] = 1
		}
	}
	return gridSize
}

// Color is an RRGGBB flag value.
type Color struct {
	props.Color
}

func (c *Color) String() string {
	return fmt.Sprintf("%02x%02x%02x", c.Red, c.Green, c.Blue)
}

// Set parses RRGGBB.
func (c *Color) Set(s string) error {
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(b) != 3 {
		return fmt.Errorf("%q: want RRGGBB", s)
	}
	c.Red, c.Green, c.Blue = int(b[0]), int(b[1]), int(b[2])
	return nil
}
