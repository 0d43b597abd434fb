package authz

import (
	"strings"

	"golang.org/x/text/language"

	"atrium/internal/config"
)

// Locales resolves the locale segment of a UI path against the
// configured locale set, falling back to the default when the first
// segment is not a recognized code.
type Locales struct {
	supported []string
	matcher   language.Matcher
	def       string
}

func NewLocales(cfg config.LocaleConfig) *Locales {
	supported := cfg.Supported
	if len(supported) == 0 {
		supported = []string{"en"}
	}

	def := cfg.Default
	if def == "" {
		def = supported[0]
	}

	tags := make([]language.Tag, 0, len(supported))
	codes := make([]string, 0, len(supported))
	for _, code := range supported {
		tag, err := language.Parse(code)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		codes = append(codes, code)
	}
	if len(tags) == 0 {
		tags = []language.Tag{language.English}
		codes = []string{"en"}
	}

	return &Locales{
		supported: codes,
		matcher:   language.NewMatcher(tags),
		def:       def,
	}
}

// Default returns the fallback locale code.
func (l *Locales) Default() string {
	return l.def
}

// Split separates a path into its locale segment and the remainder.
// `/es/admin/users` yields ("es", "/admin/users"); a path with no
// recognized locale segment yields the default locale and the path
// unchanged.
func (l *Locales) Split(path string) (locale, rest string) {
	trimmed := strings.TrimPrefix(path, "/")
	seg := trimmed
	remainder := ""
	if i := strings.Index(trimmed, "/"); i >= 0 {
		seg = trimmed[:i]
		remainder = trimmed[i:]
	}

	if code, ok := l.match(seg); ok {
		if remainder == "" {
			remainder = "/"
		}
		return code, remainder
	}

	return l.def, path
}

// match reports whether a path segment names a supported locale and
// returns its canonical configured code (e.g. "en-US" maps to "en").
func (l *Locales) match(seg string) (string, bool) {
	if seg == "" {
		return "", false
	}
	tag, err := language.Parse(seg)
	if err != nil {
		return "", false
	}
	_, idx, conf := l.matcher.Match(tag)
	if conf < language.High {
		return "", false
	}
	return l.supported[idx], true
}

// Prefix joins a locale code and a path into a locale-prefixed path.
func Prefix(locale, path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "/" + locale + path
}
