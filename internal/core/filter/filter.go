// Package filter compiles the per-call filter configuration into line and
// row predicates
package filter

import (
	"fmt"
	"regexp"

	"pageviews/internal/core/pageview"
	perr "pageviews/internal/platform/errors"
	"pageviews/internal/platform/validate"
)

// Config is the caller supplied filter configuration
// Every field is optional; empty sets and nil pointers are not configured
type Config struct {
	LineRegex   string   `json:"line_regex,omitempty" validate:"omitempty,regexp"`
	PageTitle   string   `json:"page_title,omitempty" validate:"omitempty,regexp"`
	DomainCodes []string `json:"domain_codes,omitempty"`
	MinViews    *uint32  `json:"min_views,omitempty"`
	MaxViews    *uint32  `json:"max_views,omitempty"`
	Languages   []string `json:"languages,omitempty"`
	Domains     []string `json:"domains,omitempty"`
	Mobile      *bool    `json:"mobile,omitempty"`
}

// Filter is a compiled Config, safe for concurrent use
// A nil *Filter accepts everything
type Filter struct {
	line    *regexp.Regexp
	title   *regexp.Regexp
	codes   set
	langs   set
	domains set
	min     uint32
	max     uint32
	bounded bool
	mobile  *bool
	post    bool
}

type set map[string]struct{}

func newSet(vals []string) set {
	if len(vals) == 0 {
		return nil
	}
	s := make(set, len(vals))
	for _, v := range vals {
		s[v] = struct{}{}
	}
	return s
}

func (s set) has(v string) bool {
	_, ok := s[v]
	return ok
}

// Compile validates c and builds the predicates
// Errors carry perr.ErrorCodeFilterConfig and the offending field
func Compile(c Config) (*Filter, error) {
	if err := validate.Struct(c, perr.ErrorCodeFilterConfig); err != nil {
		return nil, perr.WithOp(err, "filter.compile")
	}

	f := &Filter{
		codes:   newSet(c.DomainCodes),
		langs:   newSet(c.Languages),
		domains: newSet(c.Domains),
		min:     0,
		max:     ^uint32(0),
	}
	var err error
	if c.LineRegex != "" {
		if f.line, err = compile("line_regex", c.LineRegex); err != nil {
			return nil, err
		}
	}
	if c.PageTitle != "" {
		if f.title, err = compile("page_title", c.PageTitle); err != nil {
			return nil, err
		}
	}
	if c.MinViews != nil {
		f.min, f.bounded = *c.MinViews, true
	}
	if c.MaxViews != nil {
		f.max, f.bounded = *c.MaxViews, true
	}
	if c.Mobile != nil {
		m := *c.Mobile
		f.mobile = &m
	}
	f.post = f.codes != nil || f.title != nil || f.bounded ||
		f.langs != nil || f.domains != nil || f.mobile != nil
	return f, nil
}

// MustCompile is Compile for static configurations; it panics on error
func MustCompile(c Config) *Filter {
	f, err := Compile(c)
	if err != nil {
		panic(fmt.Sprintf("filter: %v", err))
	}
	return f
}

func compile(field, pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, perr.WithField(perr.Wrapf(err, perr.ErrorCodeFilterConfig, "invalid %s", field), field)
	}
	return re, nil
}

// AcceptLine applies line_regex to a raw line
func (f *Filter) AcceptLine(line string) bool {
	if f == nil || f.line == nil {
		return true
	}
	return f.line.MatchString(line)
}

// Accept reports whether every configured row predicate holds
func (f *Filter) Accept(r pageview.Row) bool {
	if f == nil || !f.post {
		return true
	}
	if f.bounded && (r.Views < f.min || r.Views > f.max) {
		return false
	}
	if f.codes != nil && !f.codes.has(r.DomainCode) {
		return false
	}
	if f.mobile != nil && r.Mobile != *f.mobile {
		return false
	}
	if f.langs != nil && !f.langs.has(r.Language) {
		return false
	}
	if f.domains != nil && (!r.HasDomain() || !f.domains.has(r.Domain)) {
		return false
	}
	if f.title != nil && !f.title.MatchString(r.PageTitle) {
		return false
	}
	return true
}

// HasLineFilter reports whether a line_regex is configured
func (f *Filter) HasLineFilter() bool { return f != nil && f.line != nil }

// HasRowFilter reports whether any row predicate is configured
func (f *Filter) HasRowFilter() bool { return f != nil && f.post }
