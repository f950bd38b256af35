// Package i18n localizes user-facing messages. English and Russian are
// bundled; anything else falls back to the configured default locale.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

var (
	supported = []language.Tag{language.English, language.Russian}
	matcher   = language.NewMatcher(supported)
	cat       = buildCatalog()
)

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, tr := range messages {
		_ = b.SetString(language.English, key, tr.en)
		_ = b.SetString(language.Russian, key, tr.ru)
	}
	return b
}

// Localizer formats message keys for one language.
type Localizer struct {
	tag language.Tag
	p   *message.Printer
}

func New(tag language.Tag) *Localizer {
	return &Localizer{tag: tag, p: message.NewPrinter(tag, message.Catalog(cat))}
}

// ParseLocale maps a locale name such as "ru" or "en-US" onto a bundled
// language, defaulting to English.
func ParseLocale(s string) language.Tag {
	tag, err := language.Parse(s)
	if err != nil {
		return language.English
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return language.English
	}
	return supported[idx]
}

// FromAcceptLanguage picks the best bundled language for an Accept-Language
// header, or fallback when nothing matches.
func FromAcceptLanguage(header string, fallback language.Tag) *Localizer {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return New(fallback)
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return New(fallback)
	}
	return New(supported[idx])
}

func (l *Localizer) Tag() language.Tag { return l.tag }

// T renders the message for key with the given arguments.
func (l *Localizer) T(key string, args ...any) string {
	return l.p.Sprintf(key, args...)
}

// ContextKey is where request middleware stores the request's *Localizer.
const ContextKey = "localizer"
