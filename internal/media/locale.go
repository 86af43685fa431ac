package media

import (
	"strings"

	"golang.org/x/text/language"
)

// Locale is a canonical language tag such as "en" or "fr-FR".
type Locale string

const DefaultLocale Locale = "en"

// ParseLocale canonicalizes s. Underscore separators ("fr_FR") are accepted.
// Unparseable input falls back to DefaultLocale.
func ParseLocale(s string) Locale {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "-")
	if s == "" {
		return DefaultLocale
	}
	tag, err := language.Parse(s)
	if err != nil {
		return DefaultLocale
	}
	return Locale(tag.String())
}

// Language returns the base language subtag ("fr" for "fr-FR").
func (l Locale) Language() string {
	tag, err := language.Parse(string(l))
	if err != nil {
		return string(DefaultLocale)
	}
	base, _ := tag.Base()
	return base.String()
}

// Region returns the region subtag when one was given explicitly.
func (l Locale) Region() string {
	tag, err := language.Parse(string(l))
	if err != nil {
		return ""
	}
	region, conf := tag.Region()
	if conf != language.Exact {
		return ""
	}
	return region.String()
}

// AcceptLanguage renders the locale as a "lang-COUNTRY" header value,
// deriving the country from the language when none was given.
func (l Locale) AcceptLanguage() string {
	lang := l.Language()
	region := l.Region()
	if region == "" {
		if tag, err := language.Parse(lang); err == nil {
			r, _ := tag.Region()
			region = r.String()
		}
	}
	if region == "" || region == "ZZ" {
		return lang
	}
	return lang + "-" + region
}

// SameLanguage compares base languages.
func (l Locale) SameLanguage(o Locale) bool {
	return l.Language() == o.Language()
}

func (l Locale) String() string { return string(l) }
