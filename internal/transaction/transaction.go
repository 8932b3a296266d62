package transaction

import (
	"errors"
	"time"

	"github.com/zombor/struk/internal/parsing"
)

// Type tells income from expense
type Type string

const (
	Income  Type = "income"
	Expense Type = "expense"
)

// Valid reports whether t is a known transaction type
func (t Type) Valid() bool {
	return t == Income || t == Expense
}

// ErrNotFound is returned when a transaction does not exist
var ErrNotFound = errors.New("transaction not found")

// Transaction is a reviewed receipt or manual entry persisted in the ledger.
// Date and Total are kept as entered; normalization happens when the ledger
// is built.
type Transaction struct {
	ID          string             `json:"id"`
	Type        Type               `json:"type"`
	StoreName   string             `json:"store_name"`
	Date        string             `json:"date"`
	Total       string             `json:"total"`
	Items       []parsing.LineItem `json:"items"`
	Filename    string             `json:"filename,omitempty"`     // stored receipt image, if any
	ContentType string             `json:"content_type,omitempty"` // of the stored image
	CreatedAt   time.Time          `json:"created_at"`
}

// Draft is a transaction before it is given an ID
type Draft struct {
	Type        Type               `json:"type"`
	StoreName   string             `json:"store_name"`
	Date        string             `json:"date"`
	Total       string             `json:"total"`
	Items       []parsing.LineItem `json:"items"`
	Filename    string             `json:"filename,omitempty"`
	ContentType string             `json:"content_type,omitempty"`
}
