package receipt

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/struk/internal/layout"
	"github.com/zombor/struk/internal/ledger"
	"github.com/zombor/struk/internal/parsing"
	"github.com/zombor/struk/internal/scanning"
	"github.com/zombor/struk/internal/transaction"
)

// ManualStoreName is used when a transaction is saved without a store
const ManualStoreName = "Transaksi Manual"

var (
	// ErrNoRecognizer is returned by ScanReceipt when no OCR engine is configured
	ErrNoRecognizer = errors.New("no OCR engine configured")

	// ErrInvalidType is returned for a transaction type other than income or expense
	ErrInvalidType = errors.New("invalid transaction type")

	// ErrNoFile is returned when a transaction has no stored receipt image
	ErrNoFile = errors.New("transaction has no receipt file")

	// ErrUnknownFile is returned when a draft names a file that is not in storage
	ErrUnknownFile = errors.New("unknown receipt file")
)

// IDGenerator generates unique IDs for stored files and transactions
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Scan is the reviewable result of reading a receipt. Nothing is persisted
// beyond the uploaded image until the reviewed draft is added.
type Scan struct {
	Filename    string                `json:"filename,omitempty"`
	ContentType string                `json:"content_type,omitempty"`
	RawText     string                `json:"raw_text"`
	Lines       []string              `json:"lines"`
	Receipt     parsing.ParsedReceipt `json:"receipt"`
}

// Service handles the scan, review and save flow
type Service struct {
	db          transaction.DB
	recognizer  scanning.Recognizer
	storage     Storage
	parser      *parsing.Parser
	tolerance   float64
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with UUID ids and the wall clock.
// recognizer may be nil, in which case only text parsing is available.
func NewService(db transaction.DB, recognizer scanning.Recognizer, storage Storage, tolerance float64) *Service {
	return NewServiceWithDeps(db, recognizer, storage, tolerance, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db transaction.DB, recognizer scanning.Recognizer, storage Storage, tolerance float64, idGen IDGenerator, timeSrc TimeSource) *Service {
	if tolerance <= 0 {
		tolerance = layout.DefaultTolerance
	}
	return &Service{
		db:          db,
		recognizer:  recognizer,
		storage:     storage,
		parser:      parsing.New(parsing.DefaultRules()),
		tolerance:   tolerance,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	spaceRuns   = regexp.MustCompile(`\s+`)
)

// sanitizeFilename shortens phone-generated names and strips anything odd
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = unsafeChars.ReplaceAllString(base, "")
	base = spaceRuns.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	return base + unsafeChars.ReplaceAllString(ext, "")
}

// ScanReceipt stores the uploaded image, runs OCR on it, rebuilds the
// printed lines and parses them into a draft for review.
func (s *Service) ScanReceipt(ctx context.Context, filename string, data []byte, contentType string) (*Scan, error) {
	if s.recognizer == nil {
		return nil, ErrNoRecognizer
	}

	name := fmt.Sprintf("%s_%s", s.idGenerator.Generate(), sanitizeFilename(filename))
	savedName, err := s.storage.Save(name, data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	result, err := s.recognizer.Recognize(ctx, data, contentType)
	if err != nil {
		slog.Error("Failed to recognize receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		if delErr := s.storage.Delete(savedName); delErr != nil {
			slog.Warn("Failed to clean up file", "filename", savedName, "error", delErr)
		}
		return nil, fmt.Errorf("recognizing receipt: %w", err)
	}

	scan := s.scanFromResult(result)
	scan.Filename = savedName
	scan.ContentType = contentType

	slog.Info("Scanned receipt",
		"filename", savedName,
		"lines", len(scan.Lines),
		"items", len(scan.Receipt.Items),
		"store", scan.Receipt.StoreName,
	)
	return scan, nil
}

func (s *Service) scanFromResult(result *scanning.Result) *Scan {
	fragments := result.Fragments()
	if len(fragments) == 0 {
		// engine gave plain text only
		return s.ParseText(result.Text)
	}

	lines := layout.Texts(layout.ReconstructWithTolerance(fragments, s.tolerance))
	text := strings.Join(lines, "\n")
	return &Scan{
		RawText: text,
		Lines:   lines,
		Receipt: s.parser.Parse(text),
	}
}

// ParseText parses already recognized or hand-edited receipt text
func (s *Service) ParseText(text string) *Scan {
	lines := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return &Scan{
		RawText: text,
		Lines:   lines,
		Receipt: s.parser.Parse(text),
	}
}

// AddTransaction saves a reviewed draft, filling in defaults for anything
// left empty.
func (s *Service) AddTransaction(draft transaction.Draft) (*transaction.Transaction, error) {
	if draft.Type == "" {
		draft.Type = transaction.Expense
	}
	if !draft.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, draft.Type)
	}

	if draft.Filename != "" {
		if err := s.checkFile(draft.Filename); err != nil {
			return nil, err
		}
	}

	now := s.timeSource.Now()
	tx := &transaction.Transaction{
		ID:          s.idGenerator.Generate(),
		Type:        draft.Type,
		StoreName:   strings.TrimSpace(draft.StoreName),
		Date:        strings.TrimSpace(draft.Date),
		Total:       strings.TrimSpace(draft.Total),
		Items:       draft.Items,
		Filename:    draft.Filename,
		ContentType: draft.ContentType,
		CreatedAt:   now,
	}
	if tx.StoreName == "" {
		tx.StoreName = ManualStoreName
	}
	if tx.Date == "" {
		tx.Date = now.Format(time.RFC3339)
	}
	if tx.Items == nil {
		tx.Items = []parsing.LineItem{}
	}

	if err := s.db.SaveTransaction(tx); err != nil {
		return nil, fmt.Errorf("saving transaction: %w", err)
	}
	slog.Info("Saved transaction", "id", tx.ID, "type", tx.Type, "store", tx.StoreName, "total", tx.Total)
	return tx, nil
}

// checkFile accepts only bare names of files already in storage, the form
// ScanReceipt hands out.
func (s *Service) checkFile(name string) error {
	if filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrUnknownFile, name)
	}
	if _, err := s.storage.Get(name); err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
			return fmt.Errorf("%w: %q", ErrUnknownFile, name)
		}
		return fmt.Errorf("checking receipt file: %w", err)
	}
	return nil
}

// GetTransaction retrieves a transaction by ID
func (s *Service) GetTransaction(id string) (*transaction.Transaction, error) {
	tx, err := s.db.GetTransaction(id)
	if err != nil {
		return nil, fmt.Errorf("getting transaction: %w", err)
	}
	return tx, nil
}

// ListTransactions returns all transactions in the order they were saved
func (s *Service) ListTransactions() ([]*transaction.Transaction, error) {
	txs, err := s.db.ListTransactions()
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return txs, nil
}

// DeleteTransaction removes a transaction. Its receipt image is left in
// storage so an edited draft can be saved again with the same file;
// SweepUnclaimed removes it once nothing references it.
func (s *Service) DeleteTransaction(id string) error {
	tx, err := s.db.GetTransaction(id)
	if err != nil {
		return fmt.Errorf("getting transaction for deletion: %w", err)
	}

	if err := s.db.DeleteTransaction(id); err != nil {
		return fmt.Errorf("deleting transaction from database: %w", err)
	}

	if tx.Filename != "" {
		// restart the retention window from the moment the file was released
		if err := s.storage.Touch(tx.Filename, s.timeSource.Now()); err != nil {
			slog.Warn("Failed to release file", "filename", tx.Filename, "error", err)
		}
	}
	return nil
}

// SweepUnclaimed deletes stored files that no transaction references and
// that have not been modified for at least retention. This covers scans
// that were never saved and images of deleted transactions.
func (s *Service) SweepUnclaimed(retention time.Duration) (int, error) {
	txs, err := s.db.ListTransactions()
	if err != nil {
		return 0, fmt.Errorf("listing transactions: %w", err)
	}
	claimed := make(map[string]bool, len(txs))
	for _, tx := range txs {
		if tx.Filename != "" {
			claimed[tx.Filename] = true
		}
	}

	files, err := s.storage.List()
	if err != nil {
		return 0, fmt.Errorf("listing receipt files: %w", err)
	}

	cutoff := s.timeSource.Now().Add(-retention)
	removed := 0
	for _, f := range files {
		if claimed[f.Name] || f.ModTime.After(cutoff) {
			continue
		}
		if err := s.storage.Delete(f.Name); err != nil {
			slog.Warn("Failed to delete unclaimed file", "filename", f.Name, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		slog.Info("Removed unclaimed receipt files", "count", removed)
	}
	return removed, nil
}

// GetTransactionFile retrieves the receipt image of a transaction
func (s *Service) GetTransactionFile(id string) ([]byte, string, error) {
	tx, err := s.db.GetTransaction(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting transaction: %w", err)
	}
	if tx.Filename == "" {
		return nil, "", ErrNoFile
	}

	data, err := s.storage.Get(tx.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting transaction file: %w", err)
	}

	contentType := tx.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, contentType, nil
}

// Ledger builds the ledger view over every stored transaction
func (s *Service) Ledger() (*ledger.Ledger, error) {
	txs, err := s.ListTransactions()
	if err != nil {
		return nil, err
	}
	return ledger.Build(txs, s.timeSource.Now()), nil
}

// ExportLedger renders the ledger as an XLSX workbook
func (s *Service) ExportLedger() ([]byte, error) {
	l, err := s.Ledger()
	if err != nil {
		return nil, err
	}
	data, err := ledger.ExportXLSX(l)
	if err != nil {
		return nil, fmt.Errorf("exporting ledger: %w", err)
	}
	return data, nil
}
