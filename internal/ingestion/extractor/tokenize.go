package extractor

import (
	"strings"
	"unicode"
)

type lang int

const (
	langKorean lang = iota
	langEnglish
	langOther
)

func detectLang(sentence string) lang {
	hangul, latin := 0, 0
	for _, r := range sentence {
		switch {
		case unicode.Is(unicode.Hangul, r):
			hangul++
		case unicode.IsLetter(r) && r < 0x250:
			latin++
		}
	}
	if hangul > 0 {
		return langKorean
	}
	if latin > 0 {
		return langEnglish
	}
	return langOther
}

// Josa suffixes, longest first so 으로/에서 win over 로/서.
var koreanParticles = []string{
	"에게서", "으로는", "으로서", "으로써", "이라는",
	"에서", "에게", "으로", "부터", "까지", "처럼", "보다", "라는", "마다", "조차", "마저",
	"은", "는", "이", "가", "을", "를", "에", "의", "로", "와", "과", "도", "만", "께", "야",
}

var koreanStopwords = map[string]struct{}{
	"그리고": {}, "그러나": {}, "하지만": {}, "또한": {}, "그래서": {}, "따라서": {},
	"이것": {}, "그것": {}, "저것": {}, "여기": {}, "거기": {}, "저기": {},
	"우리": {}, "너희": {}, "자신": {}, "때문": {}, "경우": {}, "정도": {},
	"하는": {}, "있는": {}, "없는": {}, "되는": {}, "대한": {}, "위한": {},
	"한다": {}, "있다": {}, "없다": {}, "된다": {}, "이다": {}, "것이다": {},
}

var englishStopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "if": {},
	"of": {}, "in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "from": {},
	"by": {}, "with": {}, "about": {}, "as": {}, "into": {}, "through": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"it": {}, "its": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"he": {}, "she": {}, "they": {}, "we": {}, "you": {}, "i": {},
	"not": {}, "no": {}, "so": {}, "than": {}, "then": {}, "there": {},
	"can": {}, "will": {}, "would": {}, "should": {}, "could": {}, "may": {},
	"has": {}, "have": {}, "had": {}, "do": {}, "does": {}, "did": {},
	"which": {}, "who": {}, "what": {}, "when": {}, "where": {}, "how": {},
	"also": {}, "such": {}, "other": {}, "more": {}, "most": {}, "some": {},
}

// Tokenize extracts keyword candidates from one sentence. Korean sentences
// get a lexicon-free noun-phrase heuristic, English sentences a stopword-
// bounded chunk heuristic, anything else becomes a single whole-sentence
// token.
func Tokenize(sentence string) []string {
	switch detectLang(sentence) {
	case langKorean:
		return tokenizeKorean(sentence)
	case langEnglish:
		return tokenizeEnglish(sentence)
	default:
		s := strings.TrimSpace(sentence)
		if s == "" {
			return nil
		}
		return []string{s}
	}
}

func tokenizeKorean(sentence string) []string {
	words := strings.Fields(sentence)
	var tokens []string
	var phrase []string
	flushPhrase := func() {
		if len(phrase) > 0 {
			tokens = append(tokens, strings.Join(phrase, " "))
			phrase = nil
		}
	}
	for _, word := range words {
		core := extractHangulCore(word)
		core = stripParticle(core)
		if len([]rune(core)) <= 1 {
			flushPhrase()
			continue
		}
		if _, stop := koreanStopwords[core]; stop {
			flushPhrase()
			continue
		}
		phrase = append(phrase, core)
	}
	flushPhrase()
	return tokens
}

// extractHangulCore keeps the leading Hangul/alphanumeric run of a word and
// drops punctuation and anything after a script break.
func extractHangulCore(word string) string {
	var b strings.Builder
	for _, r := range word {
		if unicode.Is(unicode.Hangul, r) || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		break
	}
	return b.String()
}

func stripParticle(core string) string {
	for _, particle := range koreanParticles {
		if !strings.HasSuffix(core, particle) {
			continue
		}
		stem := strings.TrimSuffix(core, particle)
		if len([]rune(stem)) >= 2 {
			return stem
		}
	}
	return core
}

func tokenizeEnglish(sentence string) []string {
	words := strings.Fields(strings.ToLower(sentence))
	var tokens []string
	var chunk []string
	flushChunk := func() {
		if len(chunk) > 0 {
			tokens = append(tokens, strings.Join(chunk, " "))
			chunk = nil
		}
	}
	for _, word := range words {
		cleaned := strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if cleaned == "" || len([]rune(cleaned)) <= 1 {
			flushChunk()
			continue
		}
		if _, stop := englishStopwords[cleaned]; stop {
			flushChunk()
			continue
		}
		chunk = append(chunk, cleaned)
	}
	flushChunk()
	return tokens
}

// tokenWords counts the whitespace-separated words of a sentence, the unit
// the chunker budgets on.
func tokenWords(sentence string) int {
	return len(strings.Fields(sentence))
}
