package pipeline

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Words that mark a claim as conceptual rather than hands-on
var qualifierWords = []string{"conceptual", "exposure", "coursework"}

var bulletPrefixes = []string{"- ", "* ", "• ", "+ "}

// ParseSkills extracts skill names from a bulleted list such as scanner
// output. Lines that are not list items are ignored. For items like
// "**Kubernetes**: container orchestration" only the head is kept.
func ParseSkills(list string) []string {
	var skills []string
	seen := make(map[string]bool)

	for line := range strings.SplitSeq(list, "\n") {
		item, ok := listItem(strings.TrimSpace(line))
		if !ok {
			continue
		}

		item = strings.ReplaceAll(item, "**", "")
		item = strings.ReplaceAll(item, "__", "")
		for _, sep := range []string{":", " - ", " (", " – "} {
			if i := strings.Index(item, sep); i > 0 {
				item = item[:i]
			}
		}
		item = strings.Trim(strings.TrimSpace(item), ".,;")

		key := strings.ToLower(item)
		if item == "" || seen[key] {
			continue
		}
		seen[key] = true
		skills = append(skills, item)
	}
	return skills
}

// listItem strips a bullet or "1." style marker
func listItem(line string) (string, bool) {
	for _, p := range bulletPrefixes {
		if rest, ok := strings.CutPrefix(line, p); ok {
			return strings.TrimSpace(rest), true
		}
	}

	digits := 0
	for digits < len(line) && line[digits] >= '0' && line[digits] <= '9' {
		digits++
	}
	if digits > 0 && digits+1 < len(line) && (line[digits] == '.' || line[digits] == ')') && line[digits+1] == ' ' {
		return strings.TrimSpace(line[digits+2:]), true
	}
	return "", false
}

// Mentions reports whether text names skill as a whole term, ignoring case.
// Term boundaries are non-alphanumeric characters, so "Go" does not match
// "Google" and "C++" matches "C++, Rust".
func Mentions(text, skill string) bool {
	skill = strings.ToLower(strings.TrimSpace(skill))
	if skill == "" {
		return false
	}
	text = strings.ToLower(text)

	for offset := 0; ; {
		i := strings.Index(text[offset:], skill)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(skill)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return true
		}
		offset = start + 1
	}
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r := lastRune(text[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r := []rune(text[i:])[0]
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func lastRune(s string) rune {
	r := []rune(s)
	return r[len(r)-1]
}

// hasQualifier reports whether a clause frames its skills as conceptual.
// "Familiar with" is not a qualifier: it claims working use of a tool.
func hasQualifier(clause string) bool {
	lower := strings.ToLower(clause)
	for _, q := range qualifierWords {
		if strings.Contains(lower, q) {
			return true
		}
	}
	return false
}

// UnsupportedSkills returns the skills that none of the evidence texts mention
func UnsupportedSkills(skills []string, evidence ...string) []string {
	var unsupported []string
	for _, skill := range skills {
		supported := false
		for _, e := range evidence {
			if Mentions(e, skill) {
				supported = true
				break
			}
		}
		if !supported {
			unsupported = append(unsupported, skill)
		}
	}
	return unsupported
}

// StripUnsupported removes claims of unsupported skills from a resume.
// Each line is split into clauses on ";" and "," outside parentheses, after
// any bullet marker and "Label:" head. A clause naming an unsupported skill
// is dropped unless the clause itself carries a conceptual qualifier, so a
// qualifier never shields the rest of its line. A line left with no clauses
// is dropped whole. It returns the cleaned text and the lines or clauses
// that were removed.
func StripUnsupported(resume string, unsupported []string) (string, []string) {
	if len(unsupported) == 0 {
		return resume, nil
	}

	var kept, removed []string
	for line := range strings.SplitSeq(resume, "\n") {
		if !mentionsAny(line, unsupported) {
			kept = append(kept, line)
			continue
		}

		cleaned, dropped, ok := stripClauses(line, unsupported)
		if !ok {
			removed = append(removed, strings.TrimSpace(line))
			continue
		}
		kept = append(kept, cleaned)
		removed = append(removed, dropped...)
	}
	return strings.Join(kept, "\n"), removed
}

func mentionsAny(text string, skills []string) bool {
	for _, s := range skills {
		if Mentions(text, s) {
			return true
		}
	}
	return false
}

// claimed reports whether text names an unsupported skill without a qualifier
func claimed(text string, unsupported []string) bool {
	return mentionsAny(text, unsupported) && !hasQualifier(text)
}

type clause struct {
	text string
	sep  string // separator that followed the clause, empty for the last
}

// stripClauses rebuilds line without its unqualified clauses. ok is false
// when nothing would remain of the line.
func stripClauses(line string, unsupported []string) (string, []string, bool) {
	line = strings.TrimRight(line, " \t\r")
	prefix, body := splitMarker(line)

	if label, rest, found := strings.Cut(body, ":"); found && isLabel(label, rest) {
		if claimed(label, unsupported) {
			return "", nil, false
		}
		prefix += label + ": "
		body = rest
	}

	var keep []clause
	var dropped []string
	firstDropped := false
	for i, c := range splitClauses(body) {
		c.text = strings.TrimSpace(c.text)
		if c.text == "" {
			continue
		}
		if claimed(c.text, unsupported) {
			dropped = append(dropped, c.text)
			if i == 0 {
				firstDropped = true
			}
			continue
		}
		keep = append(keep, c)
	}
	if len(keep) == 0 {
		return "", nil, false
	}

	var b strings.Builder
	b.WriteString(prefix)
	for i, c := range keep {
		text := c.text
		if i == 0 && firstDropped {
			text = capitalize(text)
		}
		b.WriteString(text)
		if i < len(keep)-1 {
			b.WriteString(c.sep + " ")
		}
	}
	return b.String(), dropped, true
}

// isLabel reports whether a "head: rest" split is a list label rather than
// a clause or a URL scheme
func isLabel(head, rest string) bool {
	return !strings.ContainsAny(head, ",;") &&
		!strings.HasPrefix(rest, "//") &&
		strings.TrimSpace(rest) != ""
}

// splitMarker separates leading indentation and a list marker from the text
func splitMarker(line string) (string, string) {
	trimmed := strings.TrimLeft(line, " \t")
	if item, ok := listItem(trimmed); ok {
		return line[:len(line)-len(item)], item
	}
	return line[:len(line)-len(trimmed)], trimmed
}

// splitClauses cuts text on ";" and "," that are not inside parentheses
func splitClauses(text string) []clause {
	var clauses []clause
	depth, start := 0, 0
	for i, r := range text {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		case ';', ',':
			if depth == 0 {
				clauses = append(clauses, clause{text: text[start:i], sep: string(r)})
				start = i + 1
			}
		}
	}
	return append(clauses, clause{text: text[start:]})
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
