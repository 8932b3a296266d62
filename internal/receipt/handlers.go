package receipt

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/struk/internal/scanning"
	"github.com/zombor/struk/internal/transaction"
)

// maxUploadSize covers high-resolution phone photos
const maxUploadSize = int64(50 << 20)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// jsonError writes a {"error": ...} body
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// detectContentType falls back to the file extension when the client sent none
func detectContentType(header string, filename string) string {
	contentType := strings.ToLower(strings.TrimSpace(header))
	if contentType != "" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "ok")
}

// handleScanReceipt runs OCR on an uploaded receipt and returns the draft
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "File is too large. Maximum size is 50MB.", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		jsonError(w, "No file was selected. Please choose a file to upload.", http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	contentType := detectContentType(header.Header.Get("Content-Type"), header.Filename)
	scan, err := s.service.ScanReceipt(r.Context(), header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error scanning receipt", "filename", header.Filename, "error", err)
		code := http.StatusBadGateway
		switch {
		case errors.Is(err, ErrNoRecognizer):
			code = http.StatusServiceUnavailable
		case errors.Is(err, scanning.ErrNoImageData):
			code = http.StatusBadRequest
		case errors.Is(err, scanning.ErrUnsupportedImage):
			code = http.StatusUnsupportedMediaType
		}
		jsonError(w, err.Error(), code)
		return
	}

	writeJSON(w, http.StatusCreated, scan)
}

// handleParseText parses edited receipt text without OCR
func (s *Server) handleParseText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, s.service.ParseText(req.Text))
}

// handleListTransactions returns every stored transaction
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.service.ListTransactions()
	if err != nil {
		slog.Error("Error listing transactions", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if txs == nil {
		txs = []*transaction.Transaction{}
	}

	writeJSON(w, http.StatusOK, txs)
}

// handleAddTransaction saves a reviewed scan or a manual entry
func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var draft transaction.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tx, err := s.service.AddTransaction(draft)
	if err != nil {
		slog.Error("Error adding transaction", "error", err)
		if errors.Is(err, ErrInvalidType) || errors.Is(err, ErrUnknownFile) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		jsonError(w, "Error saving transaction", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, tx)
}

// handleGetTransaction returns a single transaction
func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.service.GetTransaction(r.PathValue("id"))
	if err != nil {
		s.notFoundOr500(w, err, "Transaction not found")
		return
	}

	writeJSON(w, http.StatusOK, tx)
}

// handleGetTransactionFile returns the receipt image of a transaction
func (s *Server) handleGetTransactionFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetTransactionFile(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrNoFile) || errors.Is(err, fs.ErrNotExist) {
			corsError(w, "File not found", http.StatusNotFound)
			return
		}
		s.notFoundOr500(w, err, "File not found")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteTransaction deletes a transaction
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteTransaction(r.PathValue("id")); err != nil {
		s.notFoundOr500(w, err, "Transaction not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	l, err := s.service.Ledger()
	if err != nil {
		slog.Error("Error building ledger", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleMonthlyLedger(w http.ResponseWriter, r *http.Request) {
	l, err := s.service.Ledger()
	if err != nil {
		slog.Error("Error building ledger", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, l.Monthly())
}

func (s *Server) handleExportLedger(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.ExportLedger()
	if err != nil {
		slog.Error("Error exporting ledger", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="ledger.xlsx"`)
	w.Write(data)
}

func (s *Server) notFoundOr500(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, transaction.ErrNotFound) {
		corsError(w, notFound, http.StatusNotFound)
		return
	}
	slog.Error("Error handling transaction", "error", err)
	corsError(w, "Internal server error", http.StatusInternalServerError)
}
