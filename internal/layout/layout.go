package layout

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

// DefaultTolerance is the maximum vertical distance, in image pixels, between
// a fragment's top edge and a row key for the fragment to join that row.
const DefaultTolerance = 10.0

// Box is a bounding box in image pixel coordinates
type Box struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Fragment is a single recognized text token with its position
type Fragment struct {
	Text string `json:"text"`
	Box  Box    `json:"box"`
}

// Line is a visual row of fragments, ordered left to right
type Line struct {
	Top       float64    `json:"top"`
	Fragments []Fragment `json:"fragments"`
	Text      string     `json:"text"`
}

type row struct {
	key       float64
	fragments []Fragment
}

// Reconstruct groups fragments into lines using DefaultTolerance
func Reconstruct(fragments []Fragment) []Line {
	return ReconstructWithTolerance(fragments, DefaultTolerance)
}

// ReconstructWithTolerance groups fragments into visual rows and returns them
// top to bottom.
//
// Rows are keyed by the top edge of the fragment that opened them. A fragment
// joins the first row, in creation order, whose key is strictly closer than
// tolerance to its own top edge; otherwise it opens a new row. The input order
// of fragments only matters for that tie-break.
func ReconstructWithTolerance(fragments []Fragment, tolerance float64) []Line {
	rows := make([]*row, 0)
	for _, f := range fragments {
		var target *row
		for _, r := range rows {
			if math.Abs(r.key-f.Box.Top) < tolerance {
				target = r
				break
			}
		}
		if target == nil {
			target = &row{key: f.Box.Top}
			rows = append(rows, target)
		}
		target.fragments = append(target.fragments, f)
	}

	slices.SortStableFunc(rows, func(a, b *row) int {
		return cmp.Compare(a.key, b.key)
	})

	lines := make([]Line, 0, len(rows))
	for _, r := range rows {
		slices.SortStableFunc(r.fragments, func(a, b Fragment) int {
			return cmp.Compare(a.Box.Left, b.Box.Left)
		})
		texts := make([]string, len(r.fragments))
		for i, f := range r.fragments {
			texts[i] = f.Text
		}
		lines = append(lines, Line{
			Top:       r.key,
			Fragments: r.fragments,
			Text:      strings.Join(texts, " "),
		})
	}
	return lines
}

// Join returns the line texts separated by newlines
func Join(lines []Line) string {
	return strings.Join(Texts(lines), "\n")
}

// Texts returns the text of every line
func Texts(lines []Line) []string {
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}
	return texts
}
