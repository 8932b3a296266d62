package scanning

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract implements the Recognizer interface using a local Tesseract
// installation. A gosseract client is not safe for concurrent use, so calls
// are serialized.
type Tesseract struct {
	mu            sync.Mutex
	client        *gosseract.Client
	minConfidence float64
}

// NewTesseract creates a Tesseract Recognizer for the given languages
// (for example "ind", "eng"). Words below minConfidence (0-100) are dropped.
func NewTesseract(languages []string, minConfidence float64) (*Tesseract, error) {
	client := gosseract.NewClient()
	if len(languages) > 0 {
		if err := client.SetLanguage(languages...); err != nil {
			client.Close()
			return nil, fmt.Errorf("setting tesseract languages: %w", err)
		}
	}
	return &Tesseract{client: client, minConfidence: minConfidence}, nil
}

// Recognize runs Tesseract over the image and groups the word boxes by the
// block, paragraph and line numbers Tesseract assigned them.
func (t *Tesseract) Recognize(ctx context.Context, imageData []byte, contentType string) (*Result, error) {
	pngData, err := toPNG(imageData, contentType)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := t.client.SetImageFromBytes(pngData); err != nil {
		return nil, fmt.Errorf("loading image into tesseract: %w", err)
	}
	boxes, err := t.client.GetBoundingBoxesVerbose()
	if err != nil {
		return nil, fmt.Errorf("getting word boxes: %w", err)
	}

	return groupBoxes(boxes, t.minConfidence), nil
}

type lineKey struct {
	block, paragraph, line int
}

func groupBoxes(boxes []gosseract.BoundingBox, minConfidence float64) *Result {
	result := &Result{Blocks: make([]Block, 0)}
	blockIdx := make(map[int]int)
	lineIdx := make(map[lineKey]int)

	for _, box := range boxes {
		word := strings.TrimSpace(box.Word)
		if word == "" || box.Confidence < minConfidence {
			continue
		}

		bi, ok := blockIdx[box.BlockNum]
		if !ok {
			bi = len(result.Blocks)
			blockIdx[box.BlockNum] = bi
			result.Blocks = append(result.Blocks, Block{})
		}
		block := &result.Blocks[bi]

		key := lineKey{box.BlockNum, box.ParNum, box.LineNum}
		li, ok := lineIdx[key]
		if !ok {
			li = len(block.Lines)
			lineIdx[key] = li
			block.Lines = append(block.Lines, Line{})
		}
		line := &block.Lines[li]

		r := box.Box
		line.Elements = append(line.Elements, Element{
			Text: word,
			Frame: &Frame{
				Left:   float64(r.Min.X),
				Top:    float64(r.Min.Y),
				Width:  float64(r.Dx()),
				Height: float64(r.Dy()),
			},
		})
	}

	fillText(result)
	return result
}

// Close releases the Tesseract client
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}
