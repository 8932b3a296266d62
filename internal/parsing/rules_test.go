package parsing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Rules", func() {
	var rules Rules

	BeforeEach(func() {
		rules = DefaultRules()
	})

	DescribeTable("MatchDate",
		func(line string, expected string, found bool) {
			date, ok := rules.MatchDate(line)
			Expect(ok).To(Equal(found))
			Expect(date).To(Equal(expected))
		},
		Entry("slashes", "Tgl 12/05/2024 10:31", "12/05/2024", true),
		Entry("dots and short year", "13.05.24", "13.05.24", true),
		Entry("dashes", "1-2-2025", "1-2-2025", true),
		Entry("indonesian month", "Kamis, 5 Mei 2024", "5 Mei 2024", true),
		Entry("long month", "17 Agustus 1945", "17 Agustus 1945", true),
		Entry("english month", "03 Dec 23", "03 Dec 23", true),
		Entry("item line", "2 Kopi 15000", "", false),
		Entry("thousands separators", "1.500.000", "", false),
		Entry("no date", "Terima kasih", "", false),
	)

	DescribeTable("MatchTotal",
		func(line string, expected string, found bool) {
			total, ok := rules.MatchTotal(line)
			Expect(ok).To(Equal(found))
			Expect(total).To(Equal(expected))
		},
		Entry("colon", "TOTAL: 20.000", "20000", true),
		Entry("no colon", "total 15,500", "15500", true),
		Entry("inside subtotal", "Subtotal 9.000", "9000", true),
		Entry("separators only", "Total : .", "", true),
		Entry("no amount", "Total belanja", "", false),
		Entry("no keyword", "Tunai 50.000", "", false),
	)

	DescribeTable("IsSectionEnd",
		func(line string, expected bool) {
			Expect(rules.IsSectionEnd(line)).To(Equal(expected))
		},
		Entry("subtotal", "SUBTOTAL 10.000", true),
		Entry("total", "Total: 5", true),
		Entry("payment", "Payment CASH", true),
		Entry("not a prefix", "Grand total 5", false),
		Entry("item", "1 Kopi 5000", false),
	)

	DescribeTable("IsSectionStart",
		func(line string, expected bool) {
			Expect(rules.IsSectionStart(line)).To(Equal(expected))
		},
		Entry("lower case", "check no 001", true),
		Entry("mixed case anywhere", "Meja 4 / Check No: 12", true),
		Entry("missing", "Kasir: Budi", false),
	)

	DescribeTable("ParseNumber",
		func(s string, expected int64, ok bool) {
			n, parsed := ParseNumber(s)
			Expect(parsed).To(Equal(ok))
			Expect(n).To(Equal(expected))
		},
		Entry("plain", "15000", int64(15000), true),
		Entry("dot separators", "1.500.000", int64(1500000), true),
		Entry("comma separators", "25,500", int64(25500), true),
		Entry("mixed", "1,500.00", int64(150000), true),
		Entry("separators only", ".,", int64(0), false),
		Entry("empty", "", int64(0), false),
		Entry("overflow", "99999999999999999999", int64(0), false),
	)
})

var _ = Describe("StoreName", func() {
	DescribeTable("picks the store line",
		func(lines []string, expected string) {
			Expect(StoreName(lines)).To(Equal(expected))
		},
		Entry("first line", []string{"Toko Maju", "Jl. Sudirman"}, "Toko Maju"),
		Entry("skips blank and numeric lines", []string{"", "  ", "0812 3456", "Warung Bu Sri"}, "Warung Bu Sri"),
		Entry("skips address and contact lines",
			[]string{"Jl. Merdeka 10", "Ruko Blok A", "Telp 021-555", "www.kopi.id", "Kopi Kenangan"}, "Kopi Kenangan"),
		Entry("skips the check number line", []string{"Check No 12", "Bakmi GM"}, "Bakmi GM"),
		Entry("skips parentheses", []string{"(Cabang Utama)", "Sate Khas"}, "Sate Khas"),
		Entry("trims the result", []string{"   Roti Bakar  "}, "Roti Bakar"),
		Entry("only looks at the first five lines",
			[]string{"  Jl. A  ", "Jl. B", "Jl. C", "Jl. D", "Jl. E", "Toko Late"}, "Jl. A"),
		Entry("falls back to the first line", []string{"123 Main", "Telp 1"}, "123 Main"),
		Entry("falls back to the unknown name", []string{""}, "Toko tidak terdeteksi"),
		Entry("handles no lines", []string{}, "Toko tidak terdeteksi"),
	)
})
