// Package matcher implements the small pattern DSL used to select proxies by
// structural attribute. A pattern is either a plain regex (searched against
// the proxy remark) or a structural prefix form:
//
//	!!GROUP=<target>!!<trailing>
//	!!GROUPID=<range>!!<trailing>
//	!!INSERT=<range>!!<trailing>
//	!!TYPE=<name>!!<trailing>
//	!!PORT=<range>!!<trailing>
//	!!SERVER=<target>!!<trailing>
//
// The optional trailing segment after the second "!!" is itself a regex
// re-applied to the remark.
package matcher

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/subforge/subforge/internal/model"
)

// Apply evaluates a full pattern against a node: structural filter first,
// then the trailing remark regex when one exists. Plain patterns go straight
// to the remark regex.
func Apply(pattern string, p *model.Proxy) bool {
	ok, trailing := applyStructural(pattern, p)
	if !ok {
		return false
	}
	if trailing == "" {
		return true
	}
	return FindString(p.Remark, trailing)
}

// Trailing evaluates only the structural half of a pattern and hands back
// the trailing remark regex. Rename and emoji preprocessing use this to gate
// on structure while applying the trailing part as a rewrite expression
// instead of a plain match.
func Trailing(pattern string, p *model.Proxy) (string, bool) {
	ok, trailing := applyStructural(pattern, p)
	return trailing, ok
}

// applyStructural handles the !!KEY= prefix forms and returns the trailing
// regex (empty when satisfied-by-default). For a plain pattern the whole
// input becomes the trailing regex.
func applyStructural(pattern string, p *model.Proxy) (bool, string) {
	key, arg, trailing, ok := splitStructural(pattern)
	if !ok {
		return true, pattern
	}
	switch key {
	case "GROUP":
		return FindString(p.Group, arg), trailing
	case "GROUPID":
		return MatchRange(arg, p.GroupID), trailing
	case "INSERT":
		// Inserted nodes carry negative group ids; the range is written
		// against the positive insertion index.
		return MatchRange(arg, -p.GroupID), trailing
	case "TYPE":
		if p.Type == model.TypeUnknown {
			return false, trailing
		}
		return strings.EqualFold(p.TypeName(), arg), trailing
	case "PORT":
		return MatchRange(arg, int(p.Port)), trailing
	case "SERVER":
		return FindString(p.Hostname, arg), trailing
	default:
		// Unknown structural key: treat the whole pattern as a remark regex,
		// matching the permissive behavior of plain patterns.
		return true, pattern
	}
}

// splitStructural parses "!!KEY=arg!!trailing". The second "!!" and the
// trailing segment are optional.
func splitStructural(pattern string) (key, arg, trailing string, ok bool) {
	if !strings.HasPrefix(pattern, "!!") {
		return "", "", "", false
	}
	rest := pattern[2:]
	eq := strings.IndexByte(rest, '=')
	if eq <= 0 {
		return "", "", "", false
	}
	key = strings.ToUpper(rest[:eq])
	rest = rest[eq+1:]
	if idx := strings.Index(rest, "!!"); idx >= 0 {
		return key, rest[:idx], rest[idx+2:], true
	}
	return key, rest, "", true
}

// FindString reports whether target matches text as a case-insensitive regex
// search; a pattern that fails to compile degrades to a case-insensitive
// substring check instead of erroring.
func FindString(text, target string) bool {
	if target == "" {
		return true
	}
	re, err := regexp.Compile("(?i)" + target)
	if err != nil {
		return strings.Contains(strings.ToLower(text), strings.ToLower(target))
	}
	return re.MatchString(text)
}

// MatchRange evaluates a comma-separated integer range expression against a
// target. Terms: "5" exact, "1-5" inclusive range, "100-" at-most, "100+"
// at-least; a "!" prefix turns a term into an exclusion that overrides the
// verdict (so "!1-5" alone is true for everything outside [1,5]).
func MatchRange(rangeExpr string, target int) bool {
	match := false
	for _, term := range strings.Split(rangeExpr, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		neg := false
		if strings.HasPrefix(term, "!") {
			neg = true
			term = term[1:]
		}
		lo, hi, ok := parseRangeTerm(term)
		if !ok {
			continue
		}
		in := target >= lo && target <= hi
		if neg {
			// Exclusion list semantics: default to true, knocked out when
			// the target falls inside a negated term.
			match = true
			if in {
				return false
			}
		} else if in {
			match = true
		}
	}
	return match
}

const (
	rangeMin = -1 << 31
	rangeMax = 1<<31 - 1
)

func parseRangeTerm(term string) (lo, hi int, ok bool) {
	if term == "" {
		return 0, 0, false
	}
	// "N+" means [N, +inf).
	if strings.HasSuffix(term, "+") {
		n, err := strconv.Atoi(term[:len(term)-1])
		if err != nil {
			return 0, 0, false
		}
		return n, rangeMax, true
	}
	// Exact integer, possibly negative.
	if n, err := strconv.Atoi(term); err == nil {
		return n, n, true
	}
	// "A-B" or "N-" (the leading rune may be a minus sign for negatives, so
	// search for the separator after the first byte).
	sep := strings.IndexByte(term[1:], '-')
	if sep < 0 {
		return 0, 0, false
	}
	sep++
	loStr, hiStr := term[:sep], term[sep+1:]
	n, err := strconv.Atoi(loStr)
	if err != nil {
		return 0, 0, false
	}
	if hiStr == "" {
		// "N-" means (-inf, N].
		return rangeMin, n, true
	}
	m, err := strconv.Atoi(hiStr)
	if err != nil {
		return 0, 0, false
	}
	return n, m, true
}
