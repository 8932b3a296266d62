package scanning

import (
	"context"

	"github.com/zombor/struk/internal/layout"
)

// Frame is an element's bounding box in image pixels
type Frame struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Element is a single recognized word or token
type Element struct {
	Text  string `json:"text"`
	Frame *Frame `json:"frame,omitempty"` // nil when the engine reported no position
}

// Line is a line as grouped by the OCR engine
type Line struct {
	Text     string    `json:"text"`
	Elements []Element `json:"elements"`
}

// Block is a paragraph or region as grouped by the OCR engine
type Block struct {
	Text  string `json:"text"`
	Lines []Line `json:"lines"`
}

// Result is the raw output of a Recognizer
type Result struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks"`
}

// Fragments flattens every element of every block and line. The engine's own
// grouping is discarded; elements without a frame are placed at the origin.
func (r *Result) Fragments() []layout.Fragment {
	fragments := make([]layout.Fragment, 0)
	for _, block := range r.Blocks {
		for _, line := range block.Lines {
			for _, el := range line.Elements {
				f := layout.Fragment{Text: el.Text}
				if el.Frame != nil {
					f.Box = layout.Box{
						Left:   el.Frame.Left,
						Top:    el.Frame.Top,
						Width:  el.Frame.Width,
						Height: el.Frame.Height,
					}
				}
				fragments = append(fragments, f)
			}
		}
	}
	return fragments
}

// Recognizer defines the interface for optical character recognition
type Recognizer interface {
	// Recognize extracts positioned text from a receipt image or PDF
	Recognize(ctx context.Context, imageData []byte, contentType string) (*Result, error)
	// Close releases any resources held by the recognizer
	Close() error
}
