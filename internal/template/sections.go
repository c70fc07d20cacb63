// Package template models INI-style base configs as an ordered list of
// (header, body lines) segments so renderers can splice generated sections
// without repeated substring search. Newline style (CRLF/LF) and unrelated
// sections survive a round trip untouched.
package template

import "strings"

// Section is one bracketed segment of an INI-style document. Header is the
// text inside the brackets; the preamble before the first header has an
// empty Header.
type Section struct {
	Header string
	Lines  []string
}

type Document struct {
	sections        []Section
	newline         string
	trailingNewline bool
}

// ParseINI splits a base config into ordered sections. It never fails; text
// with no bracketed header at all becomes a single preamble section, which
// matches the degrade-to-untouched policy for malformed templates.
func ParseINI(text string) *Document {
	d := &Document{newline: detectNewline(text)}
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	d.trailingNewline = strings.HasSuffix(normalized, "\n")
	normalized = strings.TrimSuffix(normalized, "\n")

	current := Section{}
	flush := func() {
		if current.Header != "" || len(current.Lines) > 0 {
			d.sections = append(d.sections, current)
		}
	}
	if normalized == "" {
		return d
	}
	for _, line := range strings.Split(normalized, "\n") {
		if header, ok := parseSectionHeader(line); ok {
			flush()
			current = Section{Header: header}
			continue
		}
		current.Lines = append(current.Lines, line)
	}
	flush()
	return d
}

// Body returns the lines of the first section whose header matches,
// case-insensitively.
func (d *Document) Body(header string) ([]string, bool) {
	for i := range d.sections {
		if strings.EqualFold(d.sections[i].Header, header) {
			return d.sections[i].Lines, true
		}
	}
	return nil, false
}

// Replace swaps the body of every section matching header, or appends a new
// section at the end when the template has none. Duplicate headers all get
// the new body so a splice never resurrects stale rules from a later copy.
func (d *Document) Replace(header string, lines []string) {
	replaced := false
	for i := range d.sections {
		if strings.EqualFold(d.sections[i].Header, header) {
			d.sections[i].Lines = lines
			replaced = true
		}
	}
	if !replaced {
		d.sections = append(d.sections, Section{Header: header, Lines: lines})
	}
}

// Append adds lines to the end of the matching section, creating it when
// absent. Used when the caller wants generated content merged under the
// template's own entries instead of overwriting them.
func (d *Document) Append(header string, lines []string) {
	for i := range d.sections {
		if strings.EqualFold(d.sections[i].Header, header) {
			d.sections[i].Lines = append(d.sections[i].Lines, lines...)
			return
		}
	}
	d.sections = append(d.sections, Section{Header: header, Lines: lines})
}

func (d *Document) String() string {
	var b strings.Builder
	for _, sec := range d.sections {
		if sec.Header != "" {
			b.WriteString("[")
			b.WriteString(sec.Header)
			b.WriteString("]\n")
		}
		for _, line := range sec.Lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	out := b.String()
	if !d.trailingNewline {
		out = strings.TrimSuffix(out, "\n")
	}
	if d.newline == "\r\n" {
		out = strings.ReplaceAll(out, "\n", "\r\n")
	}
	return out
}

func parseSectionHeader(line string) (string, bool) {
	trim := strings.TrimSpace(line)
	if len(trim) < 3 || trim[0] != '[' || trim[len(trim)-1] != ']' {
		return "", false
	}
	return strings.TrimSpace(trim[1 : len(trim)-1]), true
}

func detectNewline(s string) string {
	if strings.Contains(s, "\r\n") {
		return "\r\n"
	}
	return "\n"
}
