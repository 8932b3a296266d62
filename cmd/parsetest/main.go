// Command parsetest runs the line reconstruction and receipt parser on a
// saved OCR result, a plain text file or a receipt image, and prints what
// the service would return for it.
//
//	parsetest receipt.json
//	parsetest --lines receipt.txt
//	parsetest --tesseract-lang ind struk.jpg
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/struk/internal/layout"
	"github.com/zombor/struk/internal/parsing"
	"github.com/zombor/struk/internal/scanning"
)

type output struct {
	Lines   []string              `json:"lines,omitempty"`
	Receipt parsing.ParsedReceipt `json:"receipt"`
}

func main() {
	fs := ff.NewFlagSet("parsetest")
	var (
		yTolerance    = fs.Float64Long("y-tolerance", layout.DefaultTolerance, "Vertical distance under which words share a line")
		tesseractLang = fs.StringLong("tesseract-lang", "ind+eng", "Tesseract languages for image input, joined with '+'")
		showLines     = fs.BoolLong("lines", "Include the reconstructed lines in the output")
		verbose       = fs.BoolLong("verbose", "Log progress to stderr")
	)

	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("STRUK")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	path := "-"
	if args := fs.GetArgs(); len(args) > 0 {
		path = args[0]
	}

	text, err := readInput(path, *yTolerance, strings.Split(*tesseractLang, "+"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	out := output{Receipt: parsing.ParseReceiptText(text)}
	if *showLines {
		out.Lines = strings.Split(text, "\n")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// readInput returns receipt text, one printed line per text line
func readInput(path string, tolerance float64, langs []string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case "", ".txt":
		return string(data), nil
	case ".json":
		result, err := scanning.ParseResult(data)
		if err != nil {
			return "", fmt.Errorf("reading OCR result: %w", err)
		}
		return linesFromResult(result, tolerance), nil
	}

	slog.Debug("Running Tesseract", "file", path, "languages", langs)
	tess, err := scanning.NewTesseract(langs, 0)
	if err != nil {
		return "", err
	}
	defer tess.Close()

	contentType := mime.TypeByExtension(ext)
	result, err := tess.Recognize(context.Background(), data, contentType)
	if err != nil {
		return "", fmt.Errorf("recognizing %s: %w", path, err)
	}
	return linesFromResult(result, tolerance), nil
}

func linesFromResult(result *scanning.Result, tolerance float64) string {
	fragments := result.Fragments()
	if len(fragments) == 0 {
		return result.Text
	}
	lines := layout.ReconstructWithTolerance(fragments, tolerance)
	slog.Debug("Reconstructed lines", "fragments", len(fragments), "lines", len(lines))
	return layout.Join(lines)
}
