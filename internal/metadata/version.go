package metadata

import (
	"strconv"
	"strings"
	"unicode"
)

type versionPart struct {
	numeric bool
	text    string
	num     int
}

// qualifierRank orders well-known Maven qualifiers; unknown qualifiers sort
// after the release and compare lexically among themselves.
var qualifierRank = map[string]int{
	"alpha":     1,
	"a":         1,
	"beta":      2,
	"b":         2,
	"milestone": 3,
	"m":         3,
	"rc":        4,
	"cr":        4,
	"snapshot":  5,
	"":          6,
	"ga":        6,
	"final":     6,
	"release":   6,
	"sp":        7,
}

func splitVersion(s string) []versionPart {
	var parts []versionPart
	var buf strings.Builder
	numeric := false
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		p := versionPart{numeric: numeric, text: buf.String()}
		if numeric {
			p.num, _ = strconv.Atoi(p.text)
		}
		parts = append(parts, p)
		buf.Reset()
	}
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsDigit(r):
			if buf.Len() > 0 && !numeric {
				flush()
			}
			numeric = true
			buf.WriteRune(r)
		case unicode.IsLetter(r):
			if buf.Len() > 0 && numeric {
				flush()
			}
			numeric = false
			buf.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	// 1.0.0 == 1.0 == 1
	for len(parts) > 0 {
		last := parts[len(parts)-1]
		if (last.numeric && last.num == 0) || (!last.numeric && qualifierRank[last.text] == qualifierRank[""]) {
			parts = parts[:len(parts)-1]
			continue
		}
		break
	}
	return parts
}

// CompareVersion compares two Maven-style versions.
// Returns -1 if a < b, 0 if equal, 1 if a > b.
func CompareVersion(a, b string) int {
	ap, bp := splitVersion(a), splitVersion(b)
	n := max(len(ap), len(bp))
	for i := range n {
		var x, y *versionPart
		if i < len(ap) {
			x = &ap[i]
		}
		if i < len(bp) {
			y = &bp[i]
		}
		if c := comparePart(x, y); c != 0 {
			return c
		}
	}
	return 0
}

// comparePart compares single components; a nil part is the implicit
// release marker, so 1.0 > 1.0-rc1 and 1.0.1 > 1.0. A missing numeric
// component counts as zero.
func comparePart(x, y *versionPart) int {
	switch {
	case x == nil && y == nil:
		return 0
	case x == nil:
		return -comparePart(y, nil)
	}
	if y == nil {
		if x.numeric {
			return cmpInt(x.num, 0)
		}
		return compareQualifier(x.text, "")
	}
	switch {
	case x.numeric && y.numeric:
		return cmpInt(x.num, y.num)
	case x.numeric:
		return 1
	case y.numeric:
		return -1
	default:
		return compareQualifier(x.text, y.text)
	}
}

func compareQualifier(a, b string) int {
	ra, okA := qualifierRank[a]
	rb, okB := qualifierRank[b]
	if !okA {
		ra = qualifierRank["sp"] + 1
	}
	if !okB {
		rb = qualifierRank["sp"] + 1
	}
	if ra != rb {
		return cmpInt(ra, rb)
	}
	return strings.Compare(a, b)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
