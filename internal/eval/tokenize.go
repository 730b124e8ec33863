package eval

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// #region stopwords
// stopwords contains common English words excluded from token matching.
// Negations are kept: "no" and "not" flip the meaning of an answer.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "be": true, "been": true,
	"being": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "shall": true,
	"and": true, "or": true, "but": true, "if": true,
	"then": true, "than": true, "so": true, "as": true, "at": true,
	"by": true, "for": true, "from": true, "in": true, "into": true,
	"of": true, "on": true, "to": true, "with": true, "about": true,
	"it": true, "its": true, "this": true, "that": true,
	"which": true, "there": true, "these": true, "those": true,
}

// #endregion stopwords

// #region token
type token struct {
	text    string
	value   float64
	numeric bool
}

// symbolRunes become single-rune tokens even when glued to a number.
var symbolRunes = map[rune]bool{
	'%': true, '$': true, '€': true, '£': true, '¥': true, '°': true,
}

var thousandsPattern = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+(\.\d+)?$`)

type runeClass int

const (
	classSeparator runeClass = iota
	classDigit
	classLetter
	classHan
	classHiragana
	classKatakana
	classHangul
	classSymbol
	classMark
)

func classify(r rune) runeClass {
	switch {
	case symbolRunes[r]:
		return classSymbol
	case r >= '0' && r <= '9':
		return classDigit
	case unicode.Is(unicode.Han, r):
		return classHan
	case unicode.Is(unicode.Hiragana, r):
		return classHiragana
	case unicode.Is(unicode.Katakana, r) || r == 'ー':
		return classKatakana
	case unicode.Is(unicode.Hangul, r):
		return classHangul
	case unicode.IsLetter(r) || unicode.IsDigit(r):
		return classLetter
	case unicode.Is(unicode.M, r):
		return classMark
	default:
		return classSeparator
	}
}

// #endregion token

// #region tokenize
// tokenize splits normalized text into unique tokens in first-seen order.
// Punctuation separates tokens. Runs of one script form a token, except Han
// which is split per character since CJK text carries no spaces. Numbers keep
// their sign, decimal point and thousands separators and are parsed.
func tokenize(text string) []token {
	runes := []rune(text)
	var raw []string
	var cur []rune
	curClass := classSeparator

	flush := func() {
		if len(cur) > 0 {
			raw = append(raw, string(cur))
		}
		cur = cur[:0]
		curClass = classSeparator
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		c := classify(r)

		// A leading minus directly before a digit starts a negative number.
		if r == '-' && curClass == classSeparator && i+1 < len(runes) && classify(runes[i+1]) == classDigit {
			cur = append(cur, r)
			curClass = classDigit
			continue
		}
		// Decimal points and thousands separators stay inside numbers.
		if (r == '.' || r == ',') && curClass == classDigit && len(cur) > 0 && i+1 < len(runes) && classify(runes[i+1]) == classDigit {
			cur = append(cur, r)
			continue
		}

		switch c {
		case classSeparator:
			flush()
		case classSymbol:
			flush()
			raw = append(raw, string(r))
		case classMark:
			if curClass != classSeparator {
				cur = append(cur, r)
			}
		case classHan:
			flush()
			raw = append(raw, string(r))
		default:
			if c != curClass {
				flush()
			}
			cur = append(cur, r)
			curClass = c
		}
	}
	flush()

	seen := make(map[string]bool, len(raw))
	tokens := make([]token, 0, len(raw))
	for _, w := range raw {
		for _, part := range splitNumberList(w) {
			tok := makeToken(part)
			if seen[tok.text] {
				continue
			}
			seen[tok.text] = true
			tokens = append(tokens, tok)
		}
	}
	return dropStopwords(tokens)
}

// splitNumberList splits a comma-joined digit run that is not a thousands
// grouping into its numbers, so "1,2,3" reads like "1, 2, 3".
func splitNumberList(w string) []string {
	if !strings.ContainsRune(w, ',') || thousandsPattern.MatchString(w) {
		return []string{w}
	}
	parts := strings.Split(w, ",")
	for _, p := range parts {
		if _, ok := parseNumber(p); !ok {
			return []string{w}
		}
	}
	return parts
}

// makeToken parses numeric words. Numeric tokens are re-rendered so that
// "1,000" and "1000" share one spelling.
func makeToken(w string) token {
	if v, ok := parseNumber(w); ok {
		return token{text: strconv.FormatFloat(v, 'f', -1, 64), value: v, numeric: true}
	}
	return token{text: w}
}

func parseNumber(w string) (float64, bool) {
	if w == "" || w == "-" {
		return 0, false
	}
	s := w
	if strings.ContainsRune(s, ',') {
		if !thousandsPattern.MatchString(s) {
			return 0, false
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	for _, r := range s {
		if r != '-' && r != '.' && (r < '0' || r > '9') {
			return 0, false
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// dropStopwords removes stopwords unless nothing would be left.
func dropStopwords(tokens []token) []token {
	kept := make([]token, 0, len(tokens))
	for _, t := range tokens {
		if !t.numeric && stopwords[t.text] {
			continue
		}
		kept = append(kept, t)
	}
	if len(kept) == 0 {
		return tokens
	}
	return kept
}

// #endregion tokenize
