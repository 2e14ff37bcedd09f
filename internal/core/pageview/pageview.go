// Package pageview holds the decoded dump record and the line parser
package pageview

import (
	"strconv"
	"strings"

	"pageviews/internal/core/domaincode"
	perr "pageviews/internal/platform/errors"
)

// Row is one decoded line of an hourly dump
// Language, Domain and Mobile are derived from DomainCode alone
// Domain is "" when the code is not recognized
type Row struct {
	DomainCode string `json:"domain_code"`
	PageTitle  string `json:"page_title"`
	Views      uint32 `json:"views"`
	Language   string `json:"language"`
	Domain     string `json:"domain,omitempty"`
	Mobile     bool   `json:"mobile"`
}

// HasDomain reports whether the row's domain code resolved to a known project
func (r Row) HasDomain() bool { return r.Domain != "" }

// NewRow builds a row and fills the derived fields from code
func NewRow(code, title string, views uint32) Row {
	d := domaincode.Decode(code)
	return Row{
		DomainCode: code,
		PageTitle:  title,
		Views:      views,
		Language:   d.Language,
		Domain:     d.Domain(),
		Mobile:     d.Mobile,
	}
}

// Parser turns dump lines into rows
// The zero value keeps titles exactly as written
type Parser struct {
	// Unquote strips "..." around titles and unescapes \"
	Unquote bool
}

// Parse decodes one line; lineNo is carried on errors (1-based)
// Fields are separated by spaces or tabs; only the first three are read
func (p Parser) Parse(lineNo int, line string) (Row, error) {
	code, rest := nextField(line)
	title, rest := nextField(rest)
	views, _ := nextField(rest)
	if views == "" {
		return Row{}, perr.Parsef(lineNo, "line %d: expected at least 3 fields: %q", lineNo, line)
	}
	n, err := strconv.ParseUint(views, 10, 32)
	if err != nil {
		return Row{}, perr.Parsef(lineNo, "line %d: invalid view count %q: %q", lineNo, views, line)
	}
	if p.Unquote {
		title = Unquote(title)
	}
	return NewRow(code, title, uint32(n)), nil
}

// ParseLine parses with default options and no line number
func ParseLine(line string) (Row, error) { return Parser{}.Parse(0, line) }

// Unquote removes the quotes the dumps put around some titles
// "" becomes the empty string and \" becomes "
func Unquote(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	return strings.ReplaceAll(s[1:len(s)-1], `\"`, `"`)
}

// fields break only on ASCII space and tab; other spaces (U+00A0, U+3000) are title text
func isSep(c byte) bool { return c == ' ' || c == '\t' }

func nextField(s string) (field, rest string) {
	i := 0
	for i < len(s) && isSep(s[i]) {
		i++
	}
	s = s[i:]
	for i = 0; i < len(s); i++ {
		if isSep(s[i]) {
			return s[:i], s[i:]
		}
	}
	return s, ""
}
