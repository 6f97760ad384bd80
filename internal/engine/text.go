package engine

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^[ \t]*[_\-=|]{3,}[ \t]*$`)
)

// CleanText collapses noisy whitespace in recognized text.
// Conservative: keeps line breaks; collapses >2 newlines into a single blank line.
func CleanText(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reBoxNoise.ReplaceAllString(s, "")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

var (
	reDate   = regexp.MustCompile(`\d{1,2}[./]\d{1,2}[./]\d{2,4}|\d{4}-\d{2}-\d{2}`)
	reNumber = regexp.MustCompile(`\d{3,}`)
)

// HeuristicConfidence scores text for engines that report no confidence of their own.
func HeuristicConfidence(txt string) float64 {
	if strings.TrimSpace(txt) == "" {
		return 0
	}
	score := 30.0
	if reDate.MatchString(txt) {
		score += 20
	}
	if reNumber.MatchString(txt) {
		score += 15
	}
	if cyrillicShare(txt) >= 0.5 {
		score += 15
	}
	if len([]rune(txt)) > 120 { // enough content
		score += 10
	}
	if strings.Contains(txt, "№") {
		score += 10
	}
	return Clamp(score)
}

func cyrillicShare(s string) float64 {
	var letters, cyr int
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Cyrillic, r) {
			cyr++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(cyr) / float64(letters)
}

// Blend weights an engine-reported confidence higher than the heuristic when present.
func Blend(native, heuristic float64) float64 {
	if native <= 0 {
		return Clamp(heuristic)
	}
	return Clamp(0.7*native + 0.3*heuristic)
}
