// Package chart renders project cost breakdowns as SVG.
package chart

import (
	"fmt"
	"html"
	"strings"
)

var segmentNames = [3]string{"Design", "Print", "Material"}

// GenerateCostBreakdownSVG generates a horizontal stacked bar chart.
// Layout: one row per project, segments for design, print and material cost,
// scaled so that the most expensive project fills opts.BarWidth.
// Returns "" when data is empty.
func GenerateCostBreakdownSVG(data []Data, opts *Options) string {
	if opts == nil {
		opts = DefaultOptions()
	}

	if len(data) == 0 {
		return ""
	}

	// find the largest total for scaling
	maxTotal := 0.0
	for _, d := range data {
		if d.Total() > maxTotal {
			maxTotal = d.Total()
		}
	}

	// compute dimensions
	titleHeight := 0
	if opts.Title != "" {
		titleHeight = opts.FontSize + 8 // title text + padding
	}
	legendHeight := opts.FontSize + 8
	rowHeight := opts.BarHeight + opts.BarPadding
	totalWidth := 8 * opts.FontSize // room for the "$1234.56" label
	width := opts.LabelWidth + opts.BarWidth + totalWidth + opts.BarPadding*2
	height := titleHeight + legendHeight + len(data)*rowHeight + opts.BarPadding

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`+"\n", width, height))
	sb.WriteString(fmt.Sprintf(`  <style>.label{font-family:%s;font-size:%dpx;fill:#666}.title{font-family:%s;font-size:%dpx;fill:#333;font-weight:bold}</style>`+"\n",
		opts.FontFamily, opts.FontSize, opts.FontFamily, opts.FontSize))

	if opts.Title != "" {
		sb.WriteString(fmt.Sprintf(`  <text x="%d" y="%d" class="title">%s</text>`+"\n",
			opts.BarPadding, opts.FontSize, html.EscapeString(opts.Title)))
	}

	// legend
	legendY := titleHeight
	legendX := opts.LabelWidth
	for i, name := range segmentNames {
		sb.WriteString(fmt.Sprintf(`  <rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>`+"\n",
			legendX, legendY, opts.FontSize, opts.FontSize, opts.Colors[i]))
		sb.WriteString(fmt.Sprintf(`  <text x="%d" y="%d" class="label">%s</text>`+"\n",
			legendX+opts.FontSize+4, legendY+opts.FontSize-1, name))
		legendX += opts.FontSize + 4 + len(name)*opts.FontSize
	}

	// bars
	for row, d := range data {
		y := titleHeight + legendHeight + row*rowHeight
		label := html.EscapeString(d.Label)
		textY := y + (opts.BarHeight+opts.FontSize)/2 - 1

		sb.WriteString(fmt.Sprintf(`  <text x="%d" y="%d" class="label">%s</text>`+"\n",
			opts.BarPadding, textY, label))

		x := opts.LabelWidth
		for i, value := range [3]float64{d.Design, d.Print, d.Material} {
			w := 0
			if maxTotal > 0 {
				w = int(value / maxTotal * float64(opts.BarWidth))
			}
			// skip zero-width segments
			if w <= 0 {
				continue
			}
			sb.WriteString(fmt.Sprintf(`  <rect x="%d" y="%d" width="%d" height="%d" fill="%s" data-segment="%s" data-value="%.2f">`+"\n",
				x, y, w, opts.BarHeight, opts.Colors[i], strings.ToLower(segmentNames[i]), value))
			sb.WriteString(fmt.Sprintf(`    <title>%s %s: $%.2f</title>`+"\n", label, segmentNames[i], value))
			sb.WriteString(`  </rect>` + "\n")
			x += w
		}

		sb.WriteString(fmt.Sprintf(`  <text x="%d" y="%d" class="label">$%.2f</text>`+"\n",
			x+opts.BarPadding, textY, d.Total()))
	}

	sb.WriteString(`</svg>`)
	return sb.String()
}
