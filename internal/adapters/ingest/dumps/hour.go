package dumps

import (
	"fmt"
	"strings"
	"time"

	perr "pageviews/internal/platform/errors"
)

// DefaultBaseURL is the public pageview dump root
const DefaultBaseURL = "https://dumps.wikimedia.org/other/pageviews"

// HourRef identifies one hourly dump (UTC)
type HourRef struct {
	Year  int
	Month int
	Day   int
	Hour  int
}

// NewHourRef creates an HourRef from a time.Time, converting to UTC
func NewHourRef(t time.Time) HourRef {
	ut := t.UTC()
	return HourRef{Year: ut.Year(), Month: int(ut.Month()), Day: ut.Day(), Hour: ut.Hour()}
}

// ParseHour accepts "2006-01-02T15" or "2006-01-02-15"
func ParseHour(s string) (HourRef, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02T15", "2006-01-02-15"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewHourRef(t), nil
		}
	}
	return HourRef{}, perr.WithField(perr.InvalidArgf("dumps: bad hour %q (want YYYY-MM-DDTHH)", s), "hour")
}

// Time returns the start of the hour
func (h HourRef) Time() time.Time {
	return time.Date(h.Year, time.Month(h.Month), h.Day, h.Hour, 0, 0, 0, time.UTC)
}

// String returns the hour as YYYY-MM-DDTHH
func (h HourRef) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d", h.Year, h.Month, h.Day, h.Hour)
}

// FileName is the dump's published name: pageviews-YYYYMMDD-HH0000.gz
func (h HourRef) FileName() string {
	return fmt.Sprintf("pageviews-%04d%02d%02d-%02d0000.gz", h.Year, h.Month, h.Day, h.Hour)
}

// URLForHour builds <base>/YYYY/YYYY-MM/pageviews-YYYYMMDD-HH0000.gz
func URLForHour(base string, h HourRef) string {
	if base == "" {
		base = DefaultBaseURL
	}
	return fmt.Sprintf("%s/%04d/%04d-%02d/%s", strings.TrimRight(base, "/"), h.Year, h.Year, h.Month, h.FileName())
}

// hourFromFileName reverses FileName
func hourFromFileName(name string) (time.Time, bool) {
	t, err := time.Parse("pageviews-20060102-150405.gz", name)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
