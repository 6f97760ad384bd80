package normalize

import (
	"strings"
	"unicode"
)

// docNumberSuffixes fixes digits read in place of a trailing series letter.
var docNumberSuffixes = []struct{ from, to string }{
	{"/6", "/Б"},
	{"/8", "/В"},
	{"/0", "/О"},
	{"/9", "/Р"},
}

// latinLookalikes maps Latin letters that print like plate letters.
var latinLookalikes = map[rune]rune{
	'A': 'А', 'B': 'В', 'E': 'Е', 'K': 'К', 'M': 'М', 'H': 'Н',
	'O': 'О', 'P': 'Р', 'C': 'С', 'T': 'Т', 'Y': 'У', 'X': 'Х',
}

var (
	digitAsLetter = map[rune]rune{'0': 'О', '8': 'В', '3': 'З'}
	letterAsDigit = map[rune]rune{'О': '0', 'В': '8', 'З': '3'}
)

// FixDocNumber applies the document-number suffix corrections.
func FixDocNumber(s string) string {
	for _, c := range docNumberSuffixes {
		if strings.HasSuffix(s, c.from) {
			return strings.TrimSuffix(s, c.from) + c.to
		}
	}
	return s
}

// FixPlate upper-cases, maps Latin look-alikes to Cyrillic and swaps
// digits and letters where the plate layout L DDD LL DD(D) expects the other class.
func FixPlate(s string) string {
	runes := []rune(strings.ToUpper(s))
	for i, r := range runes {
		if c, ok := latinLookalikes[r]; ok {
			runes[i] = c
		}
	}
	if len(runes) != 8 && len(runes) != 9 {
		return string(runes)
	}
	for i, r := range runes {
		wantLetter := i == 0 || i == 4 || i == 5
		if wantLetter {
			if c, ok := digitAsLetter[r]; ok {
				runes[i] = c
			}
			continue
		}
		if c, ok := letterAsDigit[r]; ok {
			runes[i] = c
		}
	}
	return string(runes)
}

// FixMisreads applies the corrections registered for kind before scoring.
func FixMisreads(kind Kind, s string) string {
	switch kind {
	case KindDocNumber:
		return FixDocNumber(strings.TrimRightFunc(s, unicode.IsSpace))
	case KindPlate:
		return FixPlate(strings.Join(strings.Fields(s), ""))
	default:
		return s
	}
}
