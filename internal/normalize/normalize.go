// Package normalize turns raw regex captures into canonical field values.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Kind selects the normalization and scoring rules of a field.
type Kind string

const (
	KindDate      Kind = "date"
	KindNumber    Kind = "number"
	KindParty     Kind = "party"
	KindINN       Kind = "inn"
	KindPlate     Kind = "plate"
	KindDocNumber Kind = "docnumber"
	KindPerson    Kind = "person"
	KindText      Kind = "text"
)

var allKinds = map[Kind]bool{
	KindDate: true, KindNumber: true, KindParty: true, KindINN: true,
	KindPlate: true, KindDocNumber: true, KindPerson: true, KindText: true,
}

// ParseKind validates a kind name from a pattern table.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !allKinds[k] {
		return "", fmt.Errorf("unknown field kind %q", s)
	}
	return k, nil
}

// Value normalizes raw for kind. ok is false when the value must be dropped.
func Value(kind Kind, raw string) (value string, ok bool) {
	switch kind {
	case KindDate:
		value = Date(raw)
	case KindNumber:
		value = Numeric(raw)
	case KindParty:
		value = Party(raw)
	case KindINN:
		return INN(raw)
	case KindPlate:
		value = Plate(raw)
	case KindDocNumber:
		value = DocNumber(raw)
	case KindPerson, KindText:
		value = Text(raw)
	default:
		value = strings.TrimSpace(raw)
	}
	return value, value != ""
}

var (
	reDMY = regexp.MustCompile(`^(\d{1,2})[./-](\d{1,2})[./-](\d{4}|\d{2})$`)
	reYMD = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
)

// Date converts DD.MM.YYYY, DD/MM/YYYY, DD-MM-YYYY and YYYY-MM-DD to ISO.
// Two-digit years are read as 20YY. Anything else is returned unchanged.
func Date(raw string) string {
	s := strings.TrimSpace(raw)
	var d, m, y int
	if mm := reYMD.FindStringSubmatch(s); mm != nil {
		y, _ = strconv.Atoi(mm[1])
		m, _ = strconv.Atoi(mm[2])
		d, _ = strconv.Atoi(mm[3])
	} else if mm := reDMY.FindStringSubmatch(s); mm != nil {
		d, _ = strconv.Atoi(mm[1])
		m, _ = strconv.Atoi(mm[2])
		y, _ = strconv.Atoi(mm[3])
		if len(mm[3]) == 2 {
			y += 2000
		}
	} else {
		return s
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m || t.Year() != y {
		return s
	}
	return t.Format(time.DateOnly)
}

// Numeric keeps digits and separators; comma becomes the decimal dot.
func Numeric(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == ',':
			b.WriteByte('.')
		}
	}
	return strings.Trim(b.String(), ".")
}

const quoteChars = `"'«»“”„`

// Text collapses whitespace and strips surrounding quotes.
func Text(raw string) string {
	s := strings.Join(strings.Fields(raw), " ")
	return strings.TrimSpace(strings.Trim(s, quoteChars))
}

var legalForms = map[string]bool{
	"ооо": true, "зао": true, "оао": true, "пао": true, "ао": true, "ип": true,
}

// Party normalizes an organization name: quotes removed, legal form upper-cased.
func Party(raw string) string {
	words := strings.Fields(strings.Map(func(r rune) rune {
		if strings.ContainsRune(quoteChars, r) {
			return ' '
		}
		return r
	}, raw))
	for i, w := range words {
		if legalForms[strings.ToLower(w)] {
			words[i] = strings.ToUpper(w)
		}
	}
	return strings.Trim(strings.Join(words, " "), " ,;")
}

// INN keeps digits only; anything but 10 or 12 digits is dropped.
func INN(raw string) (string, bool) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, raw)
	if len(digits) != 10 && len(digits) != 12 {
		return "", false
	}
	return digits, true
}

// DocNumber trims noise around a document number and fixes suffix misreads.
func DocNumber(raw string) string {
	s := strings.Trim(strings.Join(strings.Fields(raw), ""), ".,;:")
	return FixDocNumber(strings.ToUpper(s))
}

// Plate canonicalizes a vehicle registration number.
func Plate(raw string) string {
	return FixPlate(strings.Join(strings.Fields(raw), ""))
}
