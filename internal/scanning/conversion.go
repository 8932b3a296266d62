package scanning

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// ocrLayoutPrompt asks a vision model to behave like a layout-aware OCR engine
const ocrLayoutPrompt = `You are an OCR engine. Read every piece of printed text in this receipt image and report it with its position.

Split the text into blocks (visual regions), each block into lines, and each line into elements (single words or numbers exactly as printed).
For every element report its bounding box in image pixels: left, top, width, height, measured from the top-left corner of the image.

Return ONLY valid JSON in this exact format:
{
  "text": "all text, lines separated by \n",
  "blocks": [
    {
      "text": "block text",
      "lines": [
        {
          "text": "line text",
          "elements": [
            {"text": "word", "frame": {"left": 0, "top": 0, "width": 0, "height": 0}}
          ]
        }
      ]
    }
  ]
}

Important:
- Copy text exactly as printed, including separators such as "." and "," inside numbers
- Do not translate, correct or summarize anything
- If you cannot determine a box for an element, omit its "frame"
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

var (
	// ErrNoImageData is returned when an upload is empty
	ErrNoImageData = errors.New("no image data")
	// ErrUnsupportedImage is returned when an upload cannot be decoded as
	// an image or rendered as a PDF
	ErrUnsupportedImage = errors.New("unsupported image")
)

// toPNG normalizes a receipt upload to PNG. PDFs are rendered from their
// first page; HEIC/HEIF is decoded with a pure Go decoder.
func toPNG(data []byte, contentType string) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrNoImageData
	}

	mimeType := normalizeMimeType(contentType)

	var (
		img image.Image
		err error
	)
	switch {
	case mimeType == "application/pdf":
		img, err = renderPDF(data)
	case mimeType == "image/png" && !isHEIC(data):
		return data, nil
	case isHEIC(data) || strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif"):
		img, err = heic.Decode(bytes.NewReader(data))
		if err != nil {
			err = fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	default:
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			err = fmt.Errorf("decoding %s image: %w", mimeType, err)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedImage, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func normalizeMimeType(contentType string) string {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType == "" {
		return "image/jpeg"
	}
	return mimeType
}

// renderPDF renders the first page; receipts are single page
func renderPDF(data []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

// isHEIC checks for an ISO BMFF ftyp box with a HEIC/HEIF brand
func isHEIC(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}
