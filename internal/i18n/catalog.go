// internal/i18n/catalog.go
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

/*
 * Localized messages.
 *
 * Catalogs live in locales/<locale>/<namespace>.yaml and are embedded in the
 * binary. Every locale is completed with the base locale's strings at load
 * time, so a lookup for a known key always produces text.
 *
 * Message arguments are positional: %[1]s is the controlling field name,
 * %[2]s the selected option, %[3]s the dependent field. Translations may
 * reorder or omit them.
 */

// BaseLocale is the source locale every other catalog falls back to.
const BaseLocale = "en"

type catalogFile struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

// Bundle holds every loaded locale and the x/text catalog built from it.
type Bundle struct {
	locales map[string]map[string]string
	tags    []language.Tag
	matcher language.Matcher
	builder *catalog.Builder
}

//go:embed locales/*/*.yaml
var embeddedFS embed.FS

var defaultBundle = mustLoadEmbedded()

// Default returns the bundle built from the embedded catalogs.
func Default() *Bundle {
	return defaultBundle
}

// LoadEmbedded loads the catalogs embedded in this package.
func LoadEmbedded() (*Bundle, error) {
	return Load(embeddedFS)
}

// Load reads locales/*/*.yaml from fsys.
func Load(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	locales := make(map[string]map[string]string)
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if dir := path.Base(path.Dir(p)); file.Locale != dir {
			return nil, fmt.Errorf("catalog %s: locale %q must match path locale %q", p, file.Locale, dir)
		}
		if len(file.Messages) == 0 {
			return nil, fmt.Errorf("catalog %s: messages map is required", p)
		}
		msgs, ok := locales[file.Locale]
		if !ok {
			msgs = make(map[string]string)
			locales[file.Locale] = msgs
		}
		for key, value := range file.Messages {
			key = strings.TrimSpace(key)
			if key == "" {
				return nil, fmt.Errorf("catalog %s: message key cannot be blank", p)
			}
			if _, dup := msgs[key]; dup {
				return nil, fmt.Errorf("catalog %s: duplicate key %q in locale %q", p, key, file.Locale)
			}
			msgs[key] = value
		}
	}

	base, ok := locales[BaseLocale]
	if !ok {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	for locale, msgs := range locales {
		if locale == BaseLocale {
			continue
		}
		for key, value := range base {
			if _, ok := msgs[key]; !ok {
				msgs[key] = value
			}
		}
	}

	b := &Bundle{locales: locales, builder: catalog.NewBuilder(catalog.Fallback(language.English))}

	// The base locale goes first so the matcher falls back to it.
	names := make([]string, 0, len(locales))
	for locale := range locales {
		if locale != BaseLocale {
			names = append(names, locale)
		}
	}
	sort.Strings(names)
	names = append([]string{BaseLocale}, names...)

	for _, locale := range names {
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("parse locale tag %q: %w", locale, err)
		}
		b.tags = append(b.tags, tag)
		for key, value := range locales[locale] {
			if err := b.builder.SetString(tag, key, value); err != nil {
				return nil, fmt.Errorf("register %s/%s: %w", locale, key, err)
			}
		}
	}
	b.matcher = language.NewMatcher(b.tags)
	return b, nil
}

func mustLoadEmbedded() *Bundle {
	b, err := LoadEmbedded()
	if err != nil {
		panic(err)
	}
	return b
}

// Locales returns the loaded locales, base locale first.
func (b *Bundle) Locales() []string {
	out := make([]string, 0, len(b.tags))
	for _, t := range b.tags {
		out = append(out, t.String())
	}
	return out
}

// Match picks the best loaded locale for a locale name or an
// Accept-Language header value.
func (b *Bundle) Match(preferred string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(preferred)
	if err != nil || len(tags) == 0 {
		return b.tags[0]
	}
	_, idx, _ := b.matcher.Match(tags...)
	return b.tags[idx]
}

// Printer returns a printer for the best match of preferred.
func (b *Bundle) Printer(preferred string) *message.Printer {
	return message.NewPrinter(b.Match(preferred), message.Catalog(b.builder))
}

// Message returns the localized text for key. Arguments are passed only
// when the message declares placeholders.
func (b *Bundle) Message(preferred, key string, args ...any) string {
	tag := b.Match(preferred)
	raw, ok := b.locales[tag.String()][key]
	if !ok {
		return key
	}
	p := message.NewPrinter(tag, message.Catalog(b.builder))
	if !strings.Contains(raw, "%") {
		return p.Sprintf(key)
	}
	return p.Sprintf(key, args...)
}

// FieldMessage localizes a validation message with its three standard
// arguments.
func (b *Bundle) FieldMessage(preferred, code, field1, value1, field2 string) string {
	return b.Message(preferred, code, field1, value1, field2)
}
