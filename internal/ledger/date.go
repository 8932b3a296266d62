package ledger

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var monthNames = map[string]time.Month{
	"jan": time.January, "januari": time.January, "january": time.January,
	"feb": time.February, "februari": time.February, "february": time.February,
	"mar": time.March, "maret": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"mei": time.May, "may": time.May,
	"jun": time.June, "juni": time.June, "june": time.June,
	"jul": time.July, "juli": time.July, "july": time.July,
	"agu": time.August, "agt": time.August, "agustus": time.August, "aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"okt": time.October, "oktober": time.October, "oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"des": time.December, "desember": time.December, "dec": time.December, "december": time.December,
}

var (
	isoDate = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	dmyDate = regexp.MustCompile(`\b(\d{1,2})[\s./-]+([a-z]+|\d{1,2})[\s./-]+(\d{4}|\d{2})\b`)
)

// ParseDate turns a free-form receipt date into a calendar date in now's
// location. Day-first numeric dates are tried before month-first ones; when
// nothing can be read, now is returned.
func ParseDate(s string, now time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return now
	}
	loc := now.Location()

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc)
	}
	s = strings.ToLower(s)

	if m := isoDate.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if t, ok := validDate(y, mo, d, loc); ok {
			return t
		}
	}

	cleaned := strings.ReplaceAll(s, ",", " ")
	if m := dmyDate.FindStringSubmatch(cleaned); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, ok := parseMonth(m[2])
		year, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
		if ok {
			if t, ok := validDate(year, month, day, loc); ok {
				return t
			}
			if t, ok := validDate(year, day, month, loc); ok {
				return t
			}
		}
	}

	return now
}

func parseMonth(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	if m, ok := monthNames[s]; ok {
		return int(m), true
	}
	if len(s) > 3 {
		if m, ok := monthNames[s[:3]]; ok {
			return int(m), true
		}
	}
	return 0, false
}

// validDate rejects dates time.Date would silently normalize, like 31 February
func validDate(year, month, day int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}
