package searchdata

import (
	"html"
	"strings"
)

// CleanText decodes the HTML entities Doxygen writes into labels and
// scopes and turns non-breaking spaces into plain ones.
func CleanText(s string) string {
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(s)
}

// SplitScope separates the scope text Doxygen shows next to a search hit
// into the owning scope and the overload qualifier.
//
//	cisco::efm_sdk::LinkOptions                      -> "cisco::efm_sdk", ""
//	cisco::efm_sdk::Link::Link(LinkOptions &&o) ATTR -> "cisco::efm_sdk::Link", "(LinkOptions &&o) ATTR"
//	make_error_code():&#160;error_code.h             -> "error_code.h", "()"
func SplitScope(label, raw string) (scope, qualifier string) {
	text := CleanText(raw)

	open := -1
	if label != "" {
		// Labels such as operator() contain parentheses themselves.
		if i := strings.LastIndex(text, label+"("); i >= 0 {
			open = i + len(label)
		}
	}
	if open < 0 {
		open = strings.IndexByte(text, '(')
	}
	if open < 0 {
		// Type pages name the symbol itself; its owner is the enclosing scope.
		return ownerScope(label, text), ""
	}
	close := matchParen(text, open)
	if close < 0 {
		return text, ""
	}

	name := strings.TrimSpace(text[:open])
	params := text[open : close+1]
	rest := strings.TrimSpace(text[close+1:])

	// File-scope functions are shown as "name(): file".
	if strings.HasPrefix(rest, ":") && !strings.HasPrefix(rest, "::") {
		return strings.TrimSpace(rest[1:]), params
	}

	qualifier = params
	if rest != "" {
		qualifier += " " + rest
	}
	return ownerScope(label, name), qualifier
}

// ownerScope strips a trailing label from a qualified name.
func ownerScope(label, name string) string {
	switch {
	case label == "":
		return name
	case name == label:
		return ""
	case strings.HasSuffix(name, "::"+label):
		return strings.TrimSuffix(name, "::"+label)
	default:
		return name
	}
}

// matchParen returns the index of the parenthesis closing the one at open, or -1.
func matchParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// CleanAnchor makes an anchor relative to the documentation root instead of
// the search/ directory the fragments live in.
func CleanAnchor(raw string) string {
	return strings.TrimPrefix(CleanText(raw), "../")
}
