package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseResult reads an OCR result saved as JSON, in the same layout the
// vision models are asked to produce.
func ParseResult(data []byte) (*Result, error) {
	return parseOCRJSON(string(data))
}

// parseOCRJSON parses the OCR layout JSON returned by a vision model
func parseOCRJSON(text string) (*Result, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Models sometimes wrap the object in prose
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var result Result
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	fillText(&result)
	return &result, nil
}

// fillText rebuilds missing line, block and page text from the elements
func fillText(r *Result) {
	blockTexts := make([]string, 0, len(r.Blocks))
	for i := range r.Blocks {
		block := &r.Blocks[i]
		lineTexts := make([]string, 0, len(block.Lines))
		for j := range block.Lines {
			line := &block.Lines[j]
			if strings.TrimSpace(line.Text) == "" {
				words := make([]string, len(line.Elements))
				for k, el := range line.Elements {
					words[k] = el.Text
				}
				line.Text = strings.Join(words, " ")
			}
			lineTexts = append(lineTexts, line.Text)
		}
		if strings.TrimSpace(block.Text) == "" {
			block.Text = strings.Join(lineTexts, "\n")
		}
		blockTexts = append(blockTexts, block.Text)
	}
	if strings.TrimSpace(r.Text) == "" {
		r.Text = strings.Join(blockTexts, "\n")
	}
}
