package parsing

import (
	"strconv"
	"strings"
)

// LineItem is a purchased item extracted from a receipt line
type LineItem struct {
	Name           string `json:"name"`
	Quantity       *int   `json:"quantity,omitempty"`
	UnitPrice      *int64 `json:"unit_price,omitempty"`
	TotalItemPrice *int64 `json:"total_item_price,omitempty"`
	RawLine        string `json:"raw_line"`
}

// ParsedReceipt is the structured result of parsing receipt text.
// Date and Total are nil when nothing was found.
type ParsedReceipt struct {
	StoreName string     `json:"store_name"`
	Date      *string    `json:"date"`
	Total     *string    `json:"total"`
	Items     []LineItem `json:"items"`
}

// section is the region of the receipt the current line belongs to
type section int

const (
	headerOrFooter section = iota
	itemSection
)

func (s section) String() string {
	if s == itemSection {
		return "items"
	}
	return "header-or-footer"
}

type sectionEvent int

const (
	sectionEnd sectionEvent = iota
	sectionStart
)

// on applies a section event. Either event is accepted from any section.
func (s section) on(e sectionEvent) section {
	switch e {
	case sectionEnd:
		return headerOrFooter
	case sectionStart:
		return itemSection
	}
	return s
}

// Parser extracts structured receipt data from OCR text. It holds no
// per-call state and is safe for concurrent use.
type Parser struct {
	rules Rules
}

// New creates a Parser using the given rules
func New(rules Rules) *Parser {
	return &Parser{rules: rules}
}

var defaultParser = New(DefaultRules())

// ParseReceiptText parses newline separated receipt text using DefaultRules
func ParseReceiptText(rawText string) ParsedReceipt {
	return defaultParser.Parse(rawText)
}

// Rules returns the rules the parser was built with
func (p *Parser) Rules() Rules {
	return p.rules
}

type parseState struct {
	section section
	date    *string
	total   *string
	items   []LineItem
	// pending is a price seen before its name. It stays resolvable only
	// until another item is appended.
	pending *LineItem
}

func (st *parseState) push(item LineItem) {
	st.pending = nil
	st.items = append(st.items, item)
}

// Parse never fails; fields that cannot be found are left empty.
func (p *Parser) Parse(rawText string) ParsedReceipt {
	lines := strings.Split(rawText, "\n")
	st := &parseState{section: headerOrFooter, items: make([]LineItem, 0)}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if p.rules.IsSectionEnd(trimmed) {
			st.section = st.section.on(sectionEnd)
		}

		if st.section == itemSection {
			p.parseItemLine(st, trimmed)
		} else {
			p.parseHeaderLine(st, trimmed)
		}

		if p.rules.IsSectionStart(trimmed) {
			st.section = st.section.on(sectionStart)
		}
	}

	return ParsedReceipt{
		StoreName: p.rules.StoreName(lines),
		Date:      st.date,
		Total:     st.total,
		Items:     st.items,
	}
}

func (p *Parser) parseHeaderLine(st *parseState, line string) {
	if st.date == nil {
		if d, ok := p.rules.MatchDate(line); ok {
			st.date = &d
		}
	}
	if t, ok := p.rules.MatchTotal(line); ok {
		st.total = &t
	}
}

func (p *Parser) parseItemLine(st *parseState, line string) {
	if d, ok := p.rules.MatchDate(line); ok {
		if st.date == nil {
			st.date = &d
		}
		return
	}

	m := p.rules.ItemLine.FindStringSubmatch(line)
	if m == nil {
		return
	}
	quantity, err := strconv.Atoi(m[1])
	if err != nil {
		return
	}
	rest := m[2]
	numbers := p.rules.Number.FindAllString(rest, -1)

	if len(numbers) == 0 {
		if st.pending != nil {
			item := *st.pending
			item.Name = strings.TrimSpace(rest)
			item.Quantity = &quantity
			item.RawLine = line
			st.push(item)
		}
		return
	}

	name := strings.TrimSpace(rest[:strings.Index(rest, numbers[0])])
	if price, ok := ParseNumber(numbers[0]); ok && name != "" {
		st.push(LineItem{
			Name:           name,
			Quantity:       &quantity,
			TotalItemPrice: &price,
			RawLine:        line,
		})
	}

	if len(numbers) > 1 {
		if price, ok := ParseNumber(numbers[1]); ok {
			one := 1
			st.pending = &LineItem{
				Quantity:       &one,
				TotalItemPrice: &price,
			}
		}
	}
}
