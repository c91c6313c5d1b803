package graph

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

const (
	zwnj = '\u200C'
	zwj  = '\u200D'
)

// CheckIdentifierName reports why name is not an ECMAScript IdentifierName,
// or "" when it is. Reserved words are IdentifierNames.
func CheckIdentifierName(name string) string {
	if name == "" {
		return "name is empty"
	}
	if !utf8.ValidString(name) {
		return "name is not valid UTF-8"
	}
	for i, r := range name {
		if i == 0 {
			if !isIDStart(r) {
				return "name must start with a letter, '$' or '_'"
			}
			continue
		}
		if !isIDPart(r) {
			return "name contains " + quoteRune(r)
		}
	}
	return ""
}

// IsIdentifierName reports whether name can be used as a binding name.
func IsIdentifierName(name string) bool {
	return CheckIdentifierName(name) == ""
}

func isIDStart(r rune) bool {
	return r == '$' || r == '_' ||
		unicode.In(r, unicode.L, unicode.Nl, unicode.Other_ID_Start)
}

func isIDPart(r rune) bool {
	return isIDStart(r) || r == zwnj || r == zwj ||
		unicode.In(r, unicode.Mn, unicode.Mc, unicode.Nd, unicode.Pc, unicode.Other_ID_Continue)
}

func quoteRune(r rune) string {
	if unicode.IsPrint(r) {
		return fmt.Sprintf("%q", r)
	}
	return fmt.Sprintf("U+%04X", r)
}
