// Package ledger turns stored transactions into the daily and monthly views
// of the household ledger.
package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/struk/internal/transaction"
)

// Detail is one item line shown under a ledger entry
type Detail struct {
	ItemName  string `json:"item_name"`
	ItemPrice int64  `json:"item_price"`
}

// Entry is a transaction with its date and total normalized
type Entry struct {
	ID        string           `json:"id"`
	StoreName string           `json:"store_name"`
	Type      transaction.Type `json:"type"`
	Date      time.Time        `json:"date"`
	Total     decimal.Decimal  `json:"total"`
	Details   []Detail         `json:"details"`
}

// Ledger holds every entry, newest first, with running totals
type Ledger struct {
	Entries  []Entry         `json:"entries"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Balance  decimal.Decimal `json:"balance"`
}

// Day groups the entries of a single calendar day
type Day struct {
	Date    time.Time       `json:"date"`
	Total   decimal.Decimal `json:"total"`
	Entries []Entry         `json:"entries"`
}

// Month summarizes one calendar month. Total adds income and expenses
// together, matching the monthly view's running figure.
type Month struct {
	Month    time.Time       `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Total    decimal.Decimal `json:"total"`
	Days     []Day           `json:"days"`
}

// Build normalizes transactions into a ledger. Dates that cannot be read
// are placed at now; anything that is not income counts as an expense.
func Build(transactions []*transaction.Transaction, now time.Time) *Ledger {
	l := &Ledger{
		Entries:  make([]Entry, 0, len(transactions)),
		Income:   decimal.Zero,
		Expenses: decimal.Zero,
	}

	for _, t := range transactions {
		amount := ParseAmount(t.Total)
		if t.Type == transaction.Income {
			l.Income = l.Income.Add(amount)
		} else {
			l.Expenses = l.Expenses.Add(amount)
		}

		details := make([]Detail, 0, len(t.Items))
		for _, item := range t.Items {
			d := Detail{ItemName: item.Name}
			if item.TotalItemPrice != nil {
				d.ItemPrice = *item.TotalItemPrice
			}
			details = append(details, d)
		}

		l.Entries = append(l.Entries, Entry{
			ID:        t.ID,
			StoreName: t.StoreName,
			Type:      t.Type,
			Date:      ParseDate(t.Date, now),
			Total:     amount,
			Details:   details,
		})
	}

	sort.SliceStable(l.Entries, func(i, j int) bool {
		return l.Entries[i].Date.After(l.Entries[j].Date)
	})
	l.Balance = l.Income.Sub(l.Expenses)
	return l
}

// Monthly groups the entries by month and day, newest first
func (l *Ledger) Monthly() []Month {
	months := make([]Month, 0)
	monthIdx := make(map[time.Time]int)

	for _, e := range l.Entries {
		loc := e.Date.Location()
		monthKey := time.Date(e.Date.Year(), e.Date.Month(), 1, 0, 0, 0, 0, loc)
		mi, ok := monthIdx[monthKey]
		if !ok {
			mi = len(months)
			monthIdx[monthKey] = mi
			months = append(months, Month{
				Month:    monthKey,
				Income:   decimal.Zero,
				Expenses: decimal.Zero,
				Total:    decimal.Zero,
			})
		}
		m := &months[mi]

		if e.Type == transaction.Income {
			m.Income = m.Income.Add(e.Total)
		} else {
			m.Expenses = m.Expenses.Add(e.Total)
		}
		m.Total = m.Total.Add(e.Total)

		dayKey := time.Date(e.Date.Year(), e.Date.Month(), e.Date.Day(), 0, 0, 0, 0, loc)
		if n := len(m.Days); n == 0 || !m.Days[n-1].Date.Equal(dayKey) {
			m.Days = append(m.Days, Day{Date: dayKey, Total: decimal.Zero})
		}
		day := &m.Days[len(m.Days)-1]
		day.Total = day.Total.Add(e.Total)
		day.Entries = append(day.Entries, e)
	}

	sort.SliceStable(months, func(i, j int) bool {
		return months[i].Month.After(months[j].Month)
	})
	return months
}
