package extractor

import (
	"regexp"
	"strings"
	"unicode"
)

// headingMaxRunes is the cutoff under which a line stands alone: short lines
// are headings or list items and a newline ends them. Longer lines are wrapped
// prose, so the newline joins them to the next line.
const headingMaxRunes = 25

var enumMarkerRe = regexp.MustCompile(`^(\(\d+\)|\d+[.)]|[A-Za-z][.)]|[가-힣][.)])\s+`)

// SegmentSentences splits raw document text into sentence fragments:
// heading-aware newline handling, terminator splitting, enumeration marker
// stripping, and a junk filter. Deterministic.
func SegmentSentences(text string) []string {
	var blocks []string
	var buf strings.Builder
	flush := func() {
		if buf.Len() > 0 {
			blocks = append(blocks, buf.String())
			buf.Reset()
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString(" ")
		}
		buf.WriteString(trimmed)
		// The accumulated block decides, not the physical line: wrapped prose
		// often ends on a short line and must stay joined to what it follows.
		if len([]rune(buf.String())) <= headingMaxRunes {
			flush()
		}
	}
	flush()

	var out []string
	for _, block := range blocks {
		for _, frag := range splitTerminators(block) {
			frag = stripEnumMarker(frag)
			if isJunkFragment(frag) {
				continue
			}
			out = append(out, frag)
		}
	}
	return out
}

// splitTerminators cuts after `.`, `!`, `?` when followed by whitespace or
// end of block. Korean enders (다. 요. 까? 죠.) end with the same terminator
// runes, so one set covers both scripts.
func splitTerminators(block string) []string {
	runes := []rune(block)
	var out []string
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		atEnd := i == len(runes)-1
		if !atEnd && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		frag := strings.TrimSpace(string(runes[start : i+1]))
		if frag != "" {
			out = append(out, frag)
		}
		start = i + 1
	}
	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		out = append(out, rest)
	}
	return out
}

func stripEnumMarker(frag string) string {
	return strings.TrimSpace(enumMarkerRe.ReplaceAllString(frag, ""))
}

// isJunkFragment drops fragments too short to carry meaning: one rune or
// fewer, or at most one alphanumeric/Hangul rune.
func isJunkFragment(frag string) bool {
	runes := []rune(frag)
	if len(runes) <= 1 {
		return true
	}
	meaningful := 0
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			meaningful++
			if meaningful > 1 {
				return false
			}
		}
	}
	return true
}
