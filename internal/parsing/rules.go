package parsing

import (
	"regexp"
	"strconv"
	"strings"
)

// Rules holds the locale-specific heuristics used by the Parser. Each rule can
// be replaced independently of the section state machine.
type Rules struct {
	// SectionStart lists markers that open the item section when contained in a line
	SectionStart []string
	// SectionEnd lists prefixes that close the item section
	SectionEnd []string
	// Date matches a transaction date anywhere in a line
	Date *regexp.Regexp
	// Total captures the digits of a total amount in its first group
	Total *regexp.Regexp
	// ItemLine captures a leading quantity and the rest of an item line
	ItemLine *regexp.Regexp
	// Number matches price-like substrings
	Number *regexp.Regexp
	// AddressMarkers disqualify a line from being the store name
	AddressMarkers []string
	// StoreNameWindow is how many leading lines are considered for the store name
	StoreNameWindow int
	// UnknownStore is returned when no store name can be found
	UnknownStore string
}

var (
	// The word form requires a month name so item lines such as
	// "2 Kopi 15000" are not mistaken for dates.
	dateRule = regexp.MustCompile(
		`\b(\d{1,2}\s(?i:jan|feb|mar|apr|mei|may|jun|jul|agu|aug|sep|okt|oct|nov|des|dec)[a-zA-Z]{0,6}\s\d{2,4})\b` +
			`|(\d{1,2}[./-]\d{1,2}[./-]\d{2,4})`)
	totalRule    = regexp.MustCompile(`(?i)total\s*:?\s*([\d,.]+)`)
	itemLineRule = regexp.MustCompile(`^(\d+)\s+(.*)`)
	numberRule   = regexp.MustCompile(`[\d.,]+`)
	leadingDigit = regexp.MustCompile(`^\d`)
)

// DefaultRules returns the rules tuned for Indonesian point-of-sale receipts
func DefaultRules() Rules {
	return Rules{
		SectionStart:    []string{"check no"},
		SectionEnd:      []string{"subtotal", "total", "payment"},
		Date:            dateRule,
		Total:           totalRule,
		ItemLine:        itemLineRule,
		Number:          numberRule,
		AddressMarkers:  []string{"jl", "ruko", "no", "www.", ".com", "telp", "(", ")"},
		StoreNameWindow: 5,
		UnknownStore:    "Toko tidak terdeteksi",
	}
}

// IsSectionStart reports whether line opens the item section
func (r Rules) IsSectionStart(line string) bool {
	lower := strings.ToLower(line)
	for _, marker := range r.SectionStart {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// IsSectionEnd reports whether line closes the item section
func (r Rules) IsSectionEnd(line string) bool {
	lower := strings.ToLower(line)
	for _, prefix := range r.SectionEnd {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// MatchDate returns the first date found in line
func (r Rules) MatchDate(line string) (string, bool) {
	loc := r.Date.FindStringIndex(line)
	if loc == nil {
		return "", false
	}
	return line[loc[0]:loc[1]], true
}

// MatchTotal returns the total amount on line with separators removed
func (r Rules) MatchTotal(line string) (string, bool) {
	m := r.Total.FindStringSubmatch(strings.ToLower(line))
	if len(m) < 2 || m[1] == "" {
		return "", false
	}
	return stripSeparators(m[1]), true
}

// IsAddressLine reports whether line looks like an address or contact line
func (r Rules) IsAddressLine(line string) bool {
	lower := strings.ToLower(line)
	for _, marker := range r.AddressMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// ParseNumber parses a receipt amount where '.' and ',' are thousands
// separators. It fails when nothing but separators is left or the value
// does not fit in an int64.
func ParseNumber(s string) (int64, bool) {
	n, err := strconv.ParseInt(stripSeparators(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func stripSeparators(s string) string {
	return strings.NewReplacer(".", "", ",", "").Replace(s)
}
