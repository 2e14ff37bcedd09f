package dumps

import (
	"testing"
	"time"

	perr "pageviews/internal/platform/errors"
)

func TestHourRef(t *testing.T) {
	h := NewHourRef(time.Date(2024, 3, 7, 9, 41, 0, 0, time.FixedZone("x", 3600)))
	if h != (HourRef{2024, 3, 7, 8}) {
		t.Fatalf("NewHourRef = %+v", h)
	}
	if got := h.String(); got != "2024-03-07T08" {
		t.Fatalf("String = %q", got)
	}
	if got := h.FileName(); got != "pageviews-20240307-080000.gz" {
		t.Fatalf("FileName = %q", got)
	}
	want := "https://dumps.wikimedia.org/other/pageviews/2024/2024-03/pageviews-20240307-080000.gz"
	if got := URLForHour("", h); got != want {
		t.Fatalf("URLForHour = %q, want %q", got, want)
	}
	if got := URLForHour("http://mirror/pv/", h); got != "http://mirror/pv/2024/2024-03/pageviews-20240307-080000.gz" {
		t.Fatalf("URLForHour custom base = %q", got)
	}
	ts, ok := hourFromFileName(h.FileName())
	if !ok || !ts.Equal(h.Time()) {
		t.Fatalf("hourFromFileName = %v %v", ts, ok)
	}
	if _, ok := hourFromFileName("other.gz"); ok {
		t.Fatalf("unexpected parse of foreign name")
	}
}

func TestParseHour(t *testing.T) {
	for _, s := range []string{"2024-01-02T15", "2024-01-02-15", " 2024-01-02T15 "} {
		h, err := ParseHour(s)
		if err != nil || h != (HourRef{2024, 1, 2, 15}) {
			t.Fatalf("ParseHour(%q) = %+v, %v", s, h, err)
		}
	}
	if _, err := ParseHour("yesterday"); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("bad hour: %v", err)
	}
}
