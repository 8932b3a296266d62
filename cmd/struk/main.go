package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/struk/internal/layout"
	"github.com/zombor/struk/internal/receipt"
	"github.com/zombor/struk/internal/scanning"
	"github.com/zombor/struk/internal/transaction"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// envFile finds --env-file before flag parsing so the file can feed the
// environment that ff reads.
func envFile(args []string) string {
	for i, arg := range args {
		for _, prefix := range []string{"--env-file=", "-env-file="} {
			if v, ok := strings.CutPrefix(arg, prefix); ok {
				return v
			}
		}
		if (arg == "--env-file" || arg == "-env-file") && i+1 < len(args) {
			return args[i+1]
		}
	}
	return os.Getenv("STRUK_ENV_FILE")
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	if path := envFile(os.Args[1:]); path != "" {
		if err := godotenv.Load(path); err != nil {
			fmt.Fprintf(os.Stderr, "error: loading env file: %v\n", err)
			os.Exit(1)
		}
	} else {
		_ = godotenv.Load()
	}

	fs := ff.NewFlagSet("struk")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		dbPath        = fs.StringLong("db", "struk.db", "Database file path")
		storagePath   = fs.StringLong("storage", "./images", "Receipt image directory")
		ocrEngine     = fs.StringLong("ocr", "tesseract", "OCR engine: 'tesseract', 'gemini', 'ollama' or 'none'")
		tesseractLang = fs.StringLong("tesseract-lang", "ind+eng", "Tesseract languages, joined with '+'")
		minConfidence = fs.Float64Long("tesseract-min-confidence", 30, "Drop Tesseract words below this confidence")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "qwen2.5vl", "Ollama vision model name")
		yTolerance    = fs.Float64Long("y-tolerance", layout.DefaultTolerance, "Vertical distance under which words share a line")
		retention     = fs.DurationLong("unclaimed-retention", 24*time.Hour, "Keep receipt images no transaction references for this long")
		authUser      = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass      = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		logLevel      = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		_             = fs.StringLong("env-file", "", "Load environment variables from this file first (default .env if present)")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("STRUK"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid log level %q\n", *logLevel)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	slog.Info("Initializing database...", "path", *dbPath)
	db, err := transaction.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var recognizer scanning.Recognizer
	switch *ocrEngine {
	case "tesseract":
		langs := strings.Split(*tesseractLang, "+")
		slog.Info("Initializing Tesseract...", "languages", langs)
		recognizer, err = scanning.NewTesseract(langs, *minConfidence)
		if err != nil {
			slog.Error("Failed to initialize Tesseract", "error", err)
			os.Exit(1)
		}
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini...", "model", *geminiModel)
		recognizer, err = scanning.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama...", "url", *ollamaURL, "model", *ollamaModel)
		recognizer, err = scanning.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	case "none":
		slog.Warn("No OCR engine configured; only text parsing is available")
	default:
		slog.Error("Invalid OCR engine", "engine", *ocrEngine, "valid", "tesseract, gemini, ollama or none")
		os.Exit(1)
	}
	if recognizer != nil {
		defer recognizer.Close()
	}

	slog.Info("Initializing storage...", "path", *storagePath)
	store, err := receipt.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	service := receipt.NewService(db, recognizer, store, *yTolerance)
	go sweepUnclaimed(service, *retention)
	server := receipt.NewServer(service, receipt.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	})

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

// sweepUnclaimed removes abandoned scans and released images once an hour
func sweepUnclaimed(service *receipt.Service, retention time.Duration) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		if _, err := service.SweepUnclaimed(retention); err != nil {
			slog.Error("Failed to sweep unclaimed files", "error", err)
		}
		<-ticker.C
	}
}
