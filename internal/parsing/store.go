package parsing

import "strings"

// StoreName picks the store name from raw receipt lines using DefaultRules
func StoreName(lines []string) string {
	return defaultParser.rules.StoreName(lines)
}

// StoreName returns the first of the leading lines that is not blank, does
// not start with a digit, is not the check number line and carries no
// address or contact marker. It falls back to the first line, then to
// UnknownStore.
func (r Rules) StoreName(lines []string) string {
	for i := 0; i < len(lines) && i < r.StoreNameWindow; i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || leadingDigit.MatchString(line) || r.IsSectionStart(line) {
			continue
		}
		if !r.IsAddressLine(line) {
			return line
		}
	}

	if len(lines) > 0 {
		if first := strings.TrimSpace(lines[0]); first != "" {
			return first
		}
	}
	return r.UnknownStore
}
