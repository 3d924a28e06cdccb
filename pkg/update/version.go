package update

import (
	"strconv"
	"strings"
	"unicode"
)

// NormalizeVersion trims whitespace and any leading non-digit prefix such as
// "v" or "release-".
func NormalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	return strings.TrimLeftFunc(v, func(r rune) bool { return !unicode.IsDigit(r) })
}

// IsNewer reports whether remote is a later version than local. Versions are
// dotted integers; a component that is not a plain number counts as 0 and
// the shorter version is padded with zeros.
func IsNewer(remote, local string) bool {
	r, l := components(remote), components(local)
	for len(r) < len(l) {
		r = append(r, 0)
	}
	for len(l) < len(r) {
		l = append(l, 0)
	}
	for i := range r {
		if r[i] != l[i] {
			return r[i] > l[i]
		}
	}
	return false
}

func components(v string) []int {
	parts := strings.Split(NormalizeVersion(v), ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || strings.HasPrefix(p, "+") {
			n = 0
		}
		out[i] = n
	}
	return out
}
