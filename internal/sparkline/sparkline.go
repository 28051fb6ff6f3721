// Package sparkline maps a numeric series onto plot coordinates for compact trend lines.
package sparkline

import (
	"strconv"
	"strings"
)

// Default plot box of a token card sparkline
const (
	DefaultWidth  = 80.0
	DefaultHeight = 20.0
)

// Point is a plot coordinate. Y grows downwards, so larger values get smaller Y.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Points is an ordered polyline
type Points []Point

// Normalize min-max scales series into a width x height box.
//
// x is spread evenly from 0 to width (a single point sits at x=0) and y is
// inverted so the maximum lands on 0 and the minimum on height. A flat
// series is drawn along the vertical midpoint. An empty series yields an
// empty result.
func Normalize(series []float64, width, height float64) Points {
	n := len(series)
	if n == 0 {
		return Points{}
	}

	lo, hi := series[0], series[0]
	for _, v := range series[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	span := hi - lo
	flat := span == 0
	if flat {
		span = 1
	}

	out := make(Points, n)
	for i, v := range series {
		var x float64
		if n > 1 {
			x = float64(i) / float64(n-1) * width
		}
		y := height - (v-lo)/span*height
		if flat {
			y = height / 2
		}
		out[i] = Point{X: x, Y: y}
	}
	return out
}

// NormalizeDefault normalizes into the default card box
func NormalizeDefault(series []float64) Points {
	return Normalize(series, DefaultWidth, DefaultHeight)
}

// SVG renders the points as an SVG polyline "points" attribute ("x,y x,y ...")
func (p Points) SVG() string {
	var b strings.Builder
	for i, pt := range p {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(pt.X, 'f', -1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(pt.Y, 'f', -1, 64))
	}
	return b.String()
}

// Direction summarises a series from its first to its last value
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

// Trend compares the last value of series with the first
func Trend(series []float64) Direction {
	if len(series) < 2 {
		return DirectionFlat
	}
	first, last := series[0], series[len(series)-1]
	switch {
	case last > first:
		return DirectionUp
	case last < first:
		return DirectionDown
	default:
		return DirectionFlat
	}
}
