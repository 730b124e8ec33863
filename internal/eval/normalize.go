package eval

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// #region mapping-table
// runeMap canonicalizes punctuation that NFKC leaves alone: dash variants,
// CJK brackets and quotes, ideographic punctuation.
var runeMap = map[rune]rune{
	// dashes and minus signs
	'\u2010': '-', '\u2012': '-', '\u2013': '-', '\u2014': '-', '\u2015': '-',
	'\u2212': '-', '\u2E3A': '-', '\u2E3B': '-',
	// wave dashes
	'\u301C': '~', '\u3030': '~',
	// brackets
	'[': '(', ']': ')', '{': '(', '}': ')',
	'\u3008': '(', '\u3009': ')', '\u300A': '(', '\u300B': ')',
	'\u300C': '(', '\u300D': ')', '\u300E': '(', '\u300F': ')',
	'\u3010': '(', '\u3011': ')', '\u3014': '(', '\u3015': ')',
	'\u3016': '(', '\u3017': ')', '\u3018': '(', '\u3019': ')',
	'\u301A': '(', '\u301B': ')', '\u27E8': '(', '\u27E9': ')',
	// quotes
	'\u201C': '"', '\u201D': '"', '\u201E': '"', '\u201F': '"',
	'\u00AB': '"', '\u00BB': '"',
	'\u2018': '\'', '\u2019': '\'', '\u201A': '\'', '\u201B': '\'', '`': '\'',
	// CJK punctuation
	'\u3001': ',', '\u3002': '.', '\u30FB': ' ', '\u00B7': ' ',
}

// dropped runes vanish entirely (soft hyphen, zero-width characters, BOM).
var dropped = map[rune]bool{
	'\u00AD': true, '\u200B': true, '\u200C': true, '\u200D': true,
	'\u2060': true, '\uFEFF': true,
}

// defaultSynonyms maps unit words and domain abbreviations onto one spelling.
// Keys and values are canonicalized when a Normalizer is built.
var defaultSynonyms = map[string]string{
	"percent":     "%",
	"pct":         "%",
	"kilograms":   "kg",
	"kilogram":    "kg",
	"kgs":         "kg",
	"grams":       "g",
	"gram":        "g",
	"kilometers":  "km",
	"kilometer":   "km",
	"kilometres":  "km",
	"kilometre":   "km",
	"meters":      "m",
	"meter":       "m",
	"metres":      "m",
	"metre":       "m",
	"centimeters": "cm",
	"centimeter":  "cm",
	"millimeters": "mm",
	"millimeter":  "mm",
	"minutes":     "min",
	"mins":        "min",
	"hours":       "h",
	"hrs":         "h",
	"hr":          "h",
	"seconds":     "s",
	"secs":        "s",
	"dollars":     "$",
	"dollar":      "$",
	"usd":         "$",
	"yen":         "円",
	"jpy":         "円",
	"celsius":     "°c",
	"approx":      "approximately",
	"approx.":     "approximately",
	"ca.":         "approximately",
	"&":           "and",
	"w/":          "with",
	"w/o":         "without",
	"e-mail":      "email",
	"vs":          "versus",
	"vs.":         "versus",
}

// #endregion mapping-table

// #region normalizer
// Normalizer canonicalizes text before matching. It is immutable after
// construction and safe for concurrent use.
type Normalizer struct {
	synonyms map[string]string
}

var defaultNormalizer = NewNormalizer(nil)

// Normalize canonicalizes text with the built-in synonym table.
// It never panics and Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	return defaultNormalizer.Normalize(text)
}

// NewNormalizer builds a normalizer from the built-in table plus extra synonyms.
// Entries that would make normalization non-idempotent (cycles, values that
// expand back into keys) are dropped.
func NewNormalizer(extra map[string]string) *Normalizer {
	table := make(map[string]string, len(defaultSynonyms)+len(extra))
	add := func(k, v string) {
		ck := canonicalText(k)
		cv := canonicalText(v)
		if ck == "" || strings.ContainsRune(ck, ' ') || ck == cv {
			return
		}
		table[ck] = cv
	}
	for k, v := range defaultSynonyms {
		add(k, v)
	}
	for k, v := range extra {
		add(k, v)
	}

	resolved := make(map[string]string, len(table))
	for k := range table {
		v, ok := expand(table, k, map[string]bool{})
		if !ok {
			continue
		}
		resolved[k] = v
	}

	// A value field that still hits a key through its trimmed core would be
	// rewritten on a second pass. Collect first so the outcome does not depend
	// on map iteration order.
	var unstable []string
	for k, v := range resolved {
		for _, f := range strings.Fields(v) {
			_, exact := resolved[f]
			_, core := resolved[trimCore(f)]
			if exact || core {
				unstable = append(unstable, k)
				break
			}
		}
	}
	for _, k := range unstable {
		delete(resolved, k)
	}
	return &Normalizer{synonyms: resolved}
}

// expand follows synonym chains until every field of the value is not a key.
func expand(table map[string]string, key string, visiting map[string]bool) (string, bool) {
	if visiting[key] {
		return "", false
	}
	visiting[key] = true
	defer delete(visiting, key)

	fields := strings.Fields(table[key])
	for i, f := range fields {
		if _, isKey := table[f]; !isKey {
			continue
		}
		sub, ok := expand(table, f, visiting)
		if !ok {
			return "", false
		}
		fields[i] = sub
	}
	return strings.Join(strings.Fields(strings.Join(fields, " ")), " "), true
}

// Normalize canonicalizes text: NFKC, casefold, punctuation mapping,
// whitespace compression, then whole-word synonym expansion.
func (n *Normalizer) Normalize(text string) string {
	canon := canonicalText(text)
	if canon == "" {
		return ""
	}
	fields := strings.Fields(canon)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, n.substitute(f)...)
	}
	return strings.Join(out, " ")
}

// substitute rewrites one whitespace-delimited field. Surrounding ASCII
// punctuation is preserved when only the core of the field is a known word.
func (n *Normalizer) substitute(field string) []string {
	if v, ok := n.synonyms[field]; ok {
		return strings.Fields(v)
	}
	core := trimCore(field)
	if core == "" || core == field {
		return []string{field}
	}
	v, ok := n.synonyms[core]
	if !ok {
		return []string{field}
	}
	start := strings.Index(field, core)
	prefix, suffix := field[:start], field[start+len(core):]
	repl := strings.Fields(v)
	if len(repl) == 0 {
		if joined := prefix + suffix; joined != "" {
			return []string{joined}
		}
		return nil
	}
	repl[0] = prefix + repl[0]
	repl[len(repl)-1] = repl[len(repl)-1] + suffix
	return repl
}

// trimCore strips ASCII punctuation around a word. '%' and '&' are kept
// because they are words of their own.
func trimCore(field string) string {
	return strings.TrimFunc(field, func(r rune) bool {
		return r < unicode.MaxASCII && unicode.IsPunct(r) && r != '%' && r != '$' && r != '&'
	})
}

// #endregion normalizer

// #region canonical-text
// canonicalText applies the synonym-free part of normalization.
func canonicalText(text string) string {
	s := strings.ToValidUTF8(text, "")

	// NFKC, casefold and dropping invisible runes can each expose new
	// compositions for the others; iterate to a fixed point.
	for i := 0; i < 8; i++ {
		next := norm.NFKC.String(cases.Fold().String(norm.NFKC.String(s)))
		next = strings.Join(strings.Fields(strings.Map(mapRune, next)), " ")
		if next == s {
			break
		}
		s = next
	}
	return s
}

func mapRune(r rune) rune {
	if dropped[r] {
		return -1
	}
	if m, ok := runeMap[r]; ok {
		return m
	}
	if unicode.IsSpace(r) || unicode.IsControl(r) {
		return ' '
	}
	return r
}

// #endregion canonical-text
