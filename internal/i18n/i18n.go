// Package i18n resolves label keys used by field descriptors and table
// columns into display strings for one locale.
package i18n

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Resolver turns a label key into a display string. Unknown keys resolve to
// themselves so literal labels pass through untouched.
type Resolver interface {
	Label(key string) string
}

// Identity is a Resolver that returns every key unchanged.
type Identity struct{}

func (Identity) Label(key string) string { return key }

// Translations maps a label key to its text per language.
type Translations map[string]map[language.Tag]string

// Catalog resolves labels through a golang.org/x/text message catalog.
type Catalog struct {
	tag     language.Tag
	printer *message.Printer
	known   map[string]struct{}
}

// NewCatalog builds a catalog for the given locale. The locale is matched
// against the languages present in t; unmatched locales fall back to English.
func NewCatalog(locale string, t Translations) (*Catalog, error) {
	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	known := make(map[string]struct{}, len(t))
	for key, byLang := range t {
		for lang, text := range byLang {
			if err := builder.SetString(lang, key, text); err != nil {
				return nil, fmt.Errorf("i18n: set %q for %s: %w", key, lang, err)
			}
		}
		known[key] = struct{}{}
	}

	tag := language.English
	if locale != "" {
		parsed, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("i18n: parse locale %q: %w", locale, err)
		}
		if langs := builder.Languages(); len(langs) > 0 {
			if matched, _, conf := language.NewMatcher(langs).Match(parsed); conf != language.No {
				tag = matched
			}
		}
	}

	return &Catalog{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(builder)),
		known:   known,
	}, nil
}

// Tag returns the matched locale.
func (c *Catalog) Tag() language.Tag { return c.tag }

// Label returns the translation of key, or key itself when no translation
// exists.
func (c *Catalog) Label(key string) string {
	if _, ok := c.known[key]; !ok {
		return key
	}
	return c.printer.Sprintf(message.Key(key, key))
}
