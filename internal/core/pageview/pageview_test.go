package pageview

import (
	"strings"
	"testing"

	perr "pageviews/internal/platform/errors"
)

func TestParseLine(t *testing.T) {
	cases := []struct {
		name string
		line string
		want Row
	}{
		{
			name: "mobile wikipedia",
			line: "en.m Copenhagen 54 0",
			want: Row{DomainCode: "en.m", PageTitle: "Copenhagen", Views: 54, Language: "en", Domain: "wikipedia.org", Mobile: true},
		},
		{
			name: "utf8 title",
			line: `ja \(^o^)/チエ 1 0`,
			want: Row{DomainCode: "ja", PageTitle: `\(^o^)/チエ`, Views: 1, Language: "ja", Domain: "wikipedia.org"},
		},
		{
			name: "wikibooks",
			line: "uk.b Ядро_Linux/Модулі 2 0",
			want: Row{DomainCode: "uk.b", PageTitle: "Ядро_Linux/Модулі", Views: 2, Language: "uk", Domain: "wikibooks.org"},
		},
		{
			name: "three fields only",
			line: "fr Paris 3",
			want: Row{DomainCode: "fr", PageTitle: "Paris", Views: 3, Language: "fr", Domain: "wikipedia.org"},
		},
		{
			name: "extra fields ignored",
			line: "en.m Rust_(programming_language) 42 - extra tokens",
			want: Row{DomainCode: "en.m", PageTitle: "Rust_(programming_language)", Views: 42, Language: "en", Domain: "wikipedia.org", Mobile: true},
		},
		{
			name: "unknown code falls back",
			line: "xx.unknown Foo 5 0",
			want: Row{DomainCode: "xx.unknown", PageTitle: "Foo", Views: 5, Language: "xx"},
		},
		{
			name: "quoted title kept verbatim",
			line: `vi.m "\"Hello,_World!\"" 1 0`,
			want: Row{DomainCode: "vi.m", PageTitle: `"\"Hello,_World!\""`, Views: 1, Language: "vi", Domain: "wikipedia.org", Mobile: true},
		},
		{
			name: "max uint32",
			line: "en Big 4294967295 0",
			want: Row{DomainCode: "en", PageTitle: "Big", Views: 4294967295, Language: "en", Domain: "wikipedia.org"},
		},
		{
			name: "ideographic space inside title",
			line: "ja 東京\u3000タワー 5 0",
			want: Row{DomainCode: "ja", PageTitle: "東京\u3000タワー", Views: 5, Language: "ja", Domain: "wikipedia.org"},
		},
		{
			name: "no-break space inside title",
			line: "en Foo\u00a0Bar 7 0",
			want: Row{DomainCode: "en", PageTitle: "Foo\u00a0Bar", Views: 7, Language: "en", Domain: "wikipedia.org"},
		},
		{
			name: "next line char inside title",
			line: "de A\u0085B 1",
			want: Row{DomainCode: "de", PageTitle: "A\u0085B", Views: 1, Language: "de", Domain: "wikipedia.org"},
		},
		{
			name: "tabs and repeated spaces",
			line: "de\tBerlin  7",
			want: Row{DomainCode: "de", PageTitle: "Berlin", Views: 7, Language: "de", Domain: "wikipedia.org"},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := ParseLine(c.line)
			if err != nil {
				t.Fatalf("ParseLine(%q) error: %v", c.line, err)
			}
			if got != c.want {
				t.Fatalf("ParseLine(%q) = %+v, want %+v", c.line, got, c.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"single token", "badline"},
		{"two tokens", "en Main_Page"},
		{"empty", ""},
		{"blank", "   "},
		{"non numeric views", "en Main_Page many 0"},
		{"unicode space is not a separator", "en\u3000Main_Page 3"},
		{"negative views", "en Main_Page -1 0"},
		{"overflow", "en Main_Page 4294967296 0"},
		{"float views", "en Main_Page 1.5 0"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Parser{}.Parse(17, c.line)
			if err == nil {
				t.Fatalf("Parse(%q) expected error", c.line)
			}
			if !perr.IsCode(err, perr.ErrorCodeParse) {
				t.Fatalf("Parse(%q) code = %v, want parse", c.line, perr.CodeOf(err))
			}
			if perr.LineOf(err) != 17 {
				t.Fatalf("Parse(%q) line = %d, want 17", c.line, perr.LineOf(err))
			}
			if perr.IsFatal(err) {
				t.Fatalf("parse errors must not be fatal")
			}
			if !strings.Contains(err.Error(), "line 17") {
				t.Fatalf("error should name the line: %v", err)
			}
		})
	}
}

func TestParserUnquote(t *testing.T) {
	p := Parser{Unquote: true}
	row, err := p.Parse(1, `vi.m "\"Hello,_World!\"_(chương_trình_máy_tính)" 1 0`)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if want := `"Hello,_World!"_(chương_trình_máy_tính)`; row.PageTitle != want {
		t.Fatalf("PageTitle = %q, want %q", row.PageTitle, want)
	}
}

func TestUnquote(t *testing.T) {
	cases := map[string]string{
		"":                   "",
		`""`:                 "",
		"Greater_Tokyo_Area": "Greater_Tokyo_Area",
		`"Pryp\"jat'"`:       `Pryp"jat'`,
		`"`:                  `"`,
		`"open`:              `"open`,
	}
	for in, want := range cases {
		if got := Unquote(in); got != want {
			t.Fatalf("Unquote(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewRowDerivedFields(t *testing.T) {
	a := NewRow("en.m", "A", 1)
	b := NewRow("en.m", "B", 2)
	if a.Language != b.Language || a.Domain != b.Domain || a.Mobile != b.Mobile {
		t.Fatalf("derived fields must depend only on the domain code")
	}
	if !a.HasDomain() || NewRow("zz.qq", "x", 1).HasDomain() {
		t.Fatalf("HasDomain mismatch")
	}
}
