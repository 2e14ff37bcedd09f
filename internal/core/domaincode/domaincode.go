// Package domaincode decodes the site token of an hourly pageview dump line
// into language, project domain and access mode
//
// Grammar:
//
//	lang            desktop page on wikipedia.org
//	project         desktop page on a wikimedia.org hosted project
//	lang.m          mobile page on wikipedia.org
//	project.m       mobile page on a wikimedia.org hosted project (commons, meta, ...)
//	lang.suffix     desktop page on a companion project (b, d, f, n, q, s, v, voy, w, wd)
//	""              wikifunctions.org
//
// Any other shape decodes to the raw prefix with ProjectUnknown and mobile=false
package domaincode

import "strings"

// Project identifies the wiki family a domain code belongs to
type Project uint8

// Known projects; ProjectUnknown is the fallback for unrecognized codes
const (
	ProjectUnknown Project = iota
	ProjectWikipedia
	ProjectWikibooks
	ProjectWiktionary
	ProjectFoundation
	ProjectWikinews
	ProjectWikiquote
	ProjectWikisource
	ProjectWikiversity
	ProjectWikivoyage
	ProjectMediaWiki
	ProjectWikidata
	ProjectWikifunctions
	ProjectCommons
	ProjectMeta
	ProjectIncubator
	ProjectSpecies
	ProjectStrategy
	ProjectOutreach
	ProjectUsability
	ProjectQuality

	projectCount
)

var projectDomains = [projectCount]string{
	ProjectUnknown:       "",
	ProjectWikipedia:     "wikipedia.org",
	ProjectWikibooks:     "wikibooks.org",
	ProjectWiktionary:    "wiktionary.org",
	ProjectFoundation:    "wikimediafoundation.org",
	ProjectWikinews:      "wikinews.org",
	ProjectWikiquote:     "wikiquote.org",
	ProjectWikisource:    "wikisource.org",
	ProjectWikiversity:   "wikiversity.org",
	ProjectWikivoyage:    "wikivoyage.org",
	ProjectMediaWiki:     "mediawiki.org",
	ProjectWikidata:      "wikidata.org",
	ProjectWikifunctions: "wikifunctions.org",
	ProjectCommons:       "commons.wikimedia.org",
	ProjectMeta:          "meta.wikimedia.org",
	ProjectIncubator:     "incubator.wikimedia.org",
	ProjectSpecies:       "species.wikimedia.org",
	ProjectStrategy:      "strategy.wikimedia.org",
	ProjectOutreach:      "outreach.wikimedia.org",
	ProjectUsability:     "usability.wikimedia.org",
	ProjectQuality:       "quality.wikimedia.org",
}

// Domain returns the project's host domain, "" for ProjectUnknown
func (p Project) Domain() string {
	if p >= projectCount {
		return ""
	}
	return projectDomains[p]
}

// String returns the domain, or "unknown"
func (p Project) String() string {
	if d := p.Domain(); d != "" {
		return d
	}
	return "unknown"
}

// suffixes maps the companion project suffix to its project
// "m" is absent: it is the mobile marker
var suffixes = map[string]Project{
	"b":   ProjectWikibooks,
	"d":   ProjectWiktionary,
	"f":   ProjectFoundation,
	"n":   ProjectWikinews,
	"q":   ProjectWikiquote,
	"s":   ProjectWikisource,
	"v":   ProjectWikiversity,
	"voy": ProjectWikivoyage,
	"w":   ProjectMediaWiki,
	"wd":  ProjectWikidata,
}

// hosted are projects living under wikimedia.org; their prefix is not a language
var hosted = map[string]Project{
	"commons":   ProjectCommons,
	"meta":      ProjectMeta,
	"incubator": ProjectIncubator,
	"species":   ProjectSpecies,
	"strategy":  ProjectStrategy,
	"outreach":  ProjectOutreach,
	"usability": ProjectUsability,
	"quality":   ProjectQuality,
}

const (
	mobileMarker = "m"
	hostedLang   = "en"
	emptyToken   = `""`
)

// Decoded is the result of decoding a domain code
type Decoded struct {
	Language string
	Project  Project
	Mobile   bool
}

// Domain returns the decoded host domain, "" when unknown
func (d Decoded) Domain() string { return d.Project.Domain() }

// Known reports whether the code resolved to a project
func (d Decoded) Known() bool { return d.Project != ProjectUnknown }

// Decode maps a domain code to language, project and mobile flag
// It is total: every input yields a value, unknown shapes use the fallback
func Decode(code string) Decoded {
	if code == emptyToken {
		return Decoded{Language: hostedLang, Project: ProjectWikifunctions}
	}

	prefix, suffix, found := strings.Cut(code, ".")
	if !found {
		if code == "" {
			return fallback(code)
		}
		if p, ok := hosted[code]; ok {
			return Decoded{Language: hostedLang, Project: p}
		}
		return Decoded{Language: code, Project: ProjectWikipedia}
	}
	if prefix == "" || strings.Contains(suffix, ".") {
		return fallback(prefix)
	}

	if suffix == mobileMarker {
		if p, ok := hosted[prefix]; ok {
			return Decoded{Language: hostedLang, Project: p, Mobile: true}
		}
		return Decoded{Language: prefix, Project: ProjectWikipedia, Mobile: true}
	}
	if p, ok := suffixes[suffix]; ok {
		return Decoded{Language: prefix, Project: p}
	}
	return fallback(prefix)
}

func fallback(prefix string) Decoded {
	return Decoded{Language: prefix, Project: ProjectUnknown}
}

// Projects returns every known project in declaration order
func Projects() []Project {
	out := make([]Project, 0, projectCount-1)
	for p := ProjectWikipedia; p < projectCount; p++ {
		out = append(out, p)
	}
	return out
}
