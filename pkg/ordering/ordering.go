// Package ordering implements the natural, script-aware total order used for
// category and channel names.
//
// A string is first classified by composition (lower weight sorts first):
//
//	1 pure numeral            "10", "001"
//	2 numeral + CJK           "010北京", "航拍中国第一季"
//	3 numeral + Latin         "CCTV1", "a10b"
//	4 numeral + Latin + CJK   "CCTV5体育"
//	5 pure Latin              "CGTN"
//	6 pure CJK                "北京卫视"
//	7 symbol-bearing          "CCTV-5+", "#999"
//	8 other                   "", "  ", Latin+CJK without numerals
//
// Numerals are ASCII digits and the CJK numerals 零一二三四五六七八九十.
// Within a class the string is split into runs of symbols, digits, Latin
// letters and CJK characters, compared token by token: digit runs and CJK
// numerals by integer value, Latin letters case-insensitively with the
// original casing as tiebreak, other CJK characters by lowercase pinyin,
// symbol runs by code point. Equal token sequences fall back to rune
// length, then to a plain byte comparison so that the order is total.
package ordering

import (
	"slices"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/mozillazg/go-pinyin"
)

const (
	classNumeral = iota + 1
	classNumeralCJK
	classNumeralLatin
	classNumeralLatinCJK
	classLatin
	classCJK
	classSymbol
	classOther
)

// tokenKind values are ordered: CJK < Latin < number < symbol.
type tokenKind uint8

const (
	kindCJK tokenKind = iota
	kindLatin
	kindNumber
	kindSymbol
)

var cjkNumerals = map[rune]int{
	'零': 0, '一': 1, '二': 2, '三': 3, '四': 4,
	'五': 5, '六': 6, '七': 7, '八': 8, '九': 9, '十': 10,
}

type token struct {
	kind tokenKind
	text string // number: digits without leading zeros; CJK: pinyin; symbol: raw run
	low  rune   // Latin only
	orig rune   // Latin only
}

// Key is the precomputed comparison key of a string. Building keys once and
// comparing them is cheaper than calling Compare repeatedly while sorting.
type Key struct {
	class  int
	tokens []token
	length int
	raw    string
}

// KeyOf computes the comparison key of s.
func KeyOf(s string) Key {
	return Key{
		class:  classify(s),
		tokens: tokenize(s),
		length: utf8.RuneCountInString(s),
		raw:    s,
	}
}

// Compare returns -1, 0 or +1 depending on whether a sorts before, equal to
// or after b.
func Compare(a, b string) int {
	if a == b {
		return 0
	}
	return CompareKeys(KeyOf(a), KeyOf(b))
}

// Less reports whether a sorts before b.
func Less(a, b string) bool { return Compare(a, b) < 0 }

// CompareKeys compares two precomputed keys.
func CompareKeys(a, b Key) int {
	if a.class != b.class {
		return cmpInt(a.class, b.class)
	}
	n := min(len(a.tokens), len(b.tokens))
	for i := 0; i < n; i++ {
		if c := compareToken(a.tokens[i], b.tokens[i]); c != 0 {
			return c
		}
	}
	if len(a.tokens) != len(b.tokens) {
		return cmpInt(len(a.tokens), len(b.tokens))
	}
	if a.length != b.length {
		return cmpInt(a.length, b.length)
	}
	return strings.Compare(a.raw, b.raw)
}

// Sort sorts ss in place.
func Sort(ss []string) {
	SortFunc(ss, func(s string) string { return s })
}

// SortFunc sorts items in place by the name returned from name. Keys are
// computed once per item.
func SortFunc[T any](items []T, name func(T) string) {
	type keyed struct {
		key  Key
		item T
	}
	tmp := make([]keyed, len(items))
	for i, it := range items {
		tmp[i] = keyed{KeyOf(name(it)), it}
	}
	slices.SortStableFunc(tmp, func(x, y keyed) int { return CompareKeys(x.key, y.key) })
	for i := range tmp {
		items[i] = tmp[i].item
	}
}

func classify(s string) int {
	var hasSymbol, hasNum, hasLatin, hasCJK bool
	for _, r := range s {
		switch {
		case isSymbol(r):
			hasSymbol = true
		case isASCIIDigit(r):
			hasNum = true
		case isLatin(r):
			hasLatin = true
		case isCJK(r):
			hasCJK = true
			if _, ok := cjkNumerals[r]; ok {
				hasNum = true
			}
		}
	}

	if hasSymbol {
		return classSymbol
	}
	if hasNum {
		switch {
		case !hasLatin && !hasCJK:
			return classNumeral
		case !hasLatin && hasCJK:
			return classNumeralCJK
		case hasLatin && !hasCJK:
			return classNumeralLatin
		default:
			return classNumeralLatinCJK
		}
	}
	switch {
	case hasLatin && !hasCJK:
		return classLatin
	case hasCJK && !hasLatin:
		return classCJK
	}
	return classOther
}

func tokenize(s string) []token {
	out := make([]token, 0, len(s))
	rs := []rune(s)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case isSymbol(r):
			j := i
			for j < len(rs) && isSymbol(rs[j]) {
				j++
			}
			out = append(out, token{kind: kindSymbol, text: string(rs[i:j])})
			i = j
		case isASCIIDigit(r):
			j := i
			for j < len(rs) && isASCIIDigit(rs[j]) {
				j++
			}
			out = append(out, token{kind: kindNumber, text: trimZeros(string(rs[i:j]))})
			i = j
		case isLatin(r):
			out = append(out, token{kind: kindLatin, low: unicode.ToLower(r), orig: r})
			i++
		case isCJK(r):
			if v, ok := cjkNumerals[r]; ok {
				out = append(out, token{kind: kindNumber, text: strconv.Itoa(v)})
			} else {
				out = append(out, token{kind: kindCJK, text: pinyinOf(r)})
			}
			i++
		default:
			// whitespace, underscore and non-Latin/non-CJK letters carry no weight
			i++
		}
	}
	return out
}

func compareToken(a, b token) int {
	if a.kind != b.kind {
		return cmpInt(int(a.kind), int(b.kind))
	}
	switch a.kind {
	case kindNumber:
		if len(a.text) != len(b.text) {
			return cmpInt(len(a.text), len(b.text))
		}
		return strings.Compare(a.text, b.text)
	case kindLatin:
		if a.low != b.low {
			return cmpInt(int(a.low), int(b.low))
		}
		return cmpInt(int(a.orig), int(b.orig))
	default:
		return strings.Compare(a.text, b.text)
	}
}

var (
	pinyinArgs  = pinyin.NewArgs()
	pinyinCache sync.Map // rune → string
)

func pinyinOf(r rune) string {
	if v, ok := pinyinCache.Load(r); ok {
		return v.(string)
	}
	py := string(r)
	if got := pinyin.LazyPinyin(string(r), pinyinArgs); len(got) > 0 && got[0] != "" {
		py = strings.ToLower(got[0])
	}
	pinyinCache.Store(r, py)
	return py
}

func trimZeros(digits string) string {
	t := strings.TrimLeft(digits, "0")
	if t == "" {
		return "0"
	}
	return t
}

func isASCIIDigit(r rune) bool { return r >= '0' && r <= '9' }

func isLatin(r rune) bool { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }

func isCJK(r rune) bool { return r >= 0x4e00 && r <= 0x9fa5 }

func isSymbol(r rune) bool {
	return !(unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' || unicode.IsSpace(r))
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
