package module

import (
	"flag"
	"strconv"
	"strings"

	"pageviews/internal/adapters/ingest/dumps"
	"pageviews/internal/core/filter"
	perr "pageviews/internal/platform/errors"
	pstrings "pageviews/internal/platform/strings"
)

// Input names one dump: a local path or a URL
type Input struct {
	Path string
	URL  string
}

// String returns the path or URL
func (in Input) String() string {
	if in.Path != "" {
		return in.Path
	}
	return in.URL
}

// ResolveInput picks exactly one of -file, -url, -hour; an hour resolves under the configured base URL
func (m *Module) ResolveInput(file, url, hour string) (Input, error) {
	n := 0
	for _, s := range []string{file, url, hour} {
		if s != "" {
			n++
		}
	}
	if n != 1 {
		return Input{}, perr.InvalidArgf("exactly one of -file, -url, -hour is required")
	}
	switch {
	case file != "":
		return Input{Path: file}, nil
	case url != "":
		return Input{URL: url}, nil
	}
	h, err := dumps.ParseHour(hour)
	if err != nil {
		return Input{}, perr.WithField(err, "hour")
	}
	return Input{URL: m.HourURL(h)}, nil
}

// FilterFlags binds filter options to a flag set
// unset flags keep the PV_FILTER_* defaults
type FilterFlags struct {
	def       filter.Config
	lineRegex *string
	title     *string
	codes     *string
	langs     *string
	domains   *string
	minViews  *string
	maxViews  *string
	mobile    *string
}

// BindFilterFlags registers -line-regex, -title, -codes, -langs, -domains, -min-views, -max-views, -mobile
func BindFilterFlags(fs *flag.FlagSet, def filter.Config) *FilterFlags {
	return &FilterFlags{
		def:       def,
		lineRegex: fs.String("line-regex", def.LineRegex, "keep raw lines matching this regexp"),
		title:     fs.String("title", def.PageTitle, "keep rows whose page title matches this regexp"),
		codes:     fs.String("codes", strings.Join(def.DomainCodes, ","), "comma separated domain codes to keep"),
		langs:     fs.String("langs", strings.Join(def.Languages, ","), "comma separated languages to keep"),
		domains:   fs.String("domains", strings.Join(def.Domains, ","), "comma separated domains to keep, e.g. wikipedia.org"),
		minViews:  fs.String("min-views", u32String(def.MinViews), "minimum views, inclusive"),
		maxViews:  fs.String("max-views", u32String(def.MaxViews), "maximum views, inclusive"),
		mobile:    fs.String("mobile", boolString(def.Mobile), "true for mobile only, false for desktop only"),
	}
}

// Config returns the filter configuration; malformed numbers or booleans are FilterConfig errors
func (f *FilterFlags) Config() (filter.Config, error) {
	c := filter.Config{
		LineRegex:   *f.lineRegex,
		PageTitle:   *f.title,
		DomainCodes: pstrings.SplitCSV(*f.codes),
		Languages:   pstrings.SplitCSV(*f.langs),
		Domains:     pstrings.SplitCSV(*f.domains),
	}
	var err error
	if c.MinViews, err = parseU32(*f.minViews, "min_views"); err != nil {
		return c, err
	}
	if c.MaxViews, err = parseU32(*f.maxViews, "max_views"); err != nil {
		return c, err
	}
	if s := strings.TrimSpace(*f.mobile); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return c, perr.WithField(perr.FilterConfigf("mobile: %q is not a boolean", s), "mobile")
		}
		c.Mobile = &b
	}
	return c, nil
}

func parseU32(s, field string) (*uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return nil, perr.WithField(perr.Wrapf(err, perr.ErrorCodeFilterConfig, "%s: %q", field, s), field)
	}
	u := uint32(v)
	return &u, nil
}

func u32String(v *uint32) string {
	if v == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*v), 10)
}

func boolString(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}
