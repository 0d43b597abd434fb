package authz

import (
	"testing"

	"atrium/internal/config"
)

func testLocales() *Locales {
	return NewLocales(config.LocaleConfig{
		Supported: []string{"en", "fr", "es"},
		Default:   "en",
	})
}

func TestSplit_RecognizedLocaleSegment(t *testing.T) {
	l := testLocales()

	locale, rest := l.Split("/es/admin/users")
	if locale != "es" || rest != "/admin/users" {
		t.Fatalf("Split(/es/admin/users) = (%q, %q)", locale, rest)
	}
}

func TestSplit_BareLocale(t *testing.T) {
	l := testLocales()

	locale, rest := l.Split("/fr")
	if locale != "fr" || rest != "/" {
		t.Fatalf("Split(/fr) = (%q, %q)", locale, rest)
	}
}

func TestSplit_UnknownSegmentKeepsPath(t *testing.T) {
	l := testLocales()

	locale, rest := l.Split("/admin/users")
	if locale != "en" || rest != "/admin/users" {
		t.Fatalf("Split(/admin/users) = (%q, %q)", locale, rest)
	}
}

// A regional variant resolves to its configured base code.
func TestSplit_RegionalVariantCanonicalizes(t *testing.T) {
	l := testLocales()

	locale, rest := l.Split("/en-US/login")
	if locale != "en" || rest != "/login" {
		t.Fatalf("Split(/en-US/login) = (%q, %q)", locale, rest)
	}
}

// Unrelated languages must not fuzzy-match into the supported set.
func TestSplit_UnsupportedLanguageFallsBack(t *testing.T) {
	l := testLocales()

	locale, rest := l.Split("/de/admin")
	if locale != "en" || rest != "/de/admin" {
		t.Fatalf("Split(/de/admin) = (%q, %q)", locale, rest)
	}
}

func TestSplit_RootPath(t *testing.T) {
	l := testLocales()

	locale, rest := l.Split("/")
	if locale != "en" || rest != "/" {
		t.Fatalf("Split(/) = (%q, %q)", locale, rest)
	}
}

func TestNewLocales_EmptyConfigDefaultsToEnglish(t *testing.T) {
	l := NewLocales(config.LocaleConfig{})

	if l.Default() != "en" {
		t.Fatalf("Default() = %q, want en", l.Default())
	}
}

func TestPrefix(t *testing.T) {
	if got := Prefix("fr", "/login"); got != "/fr/login" {
		t.Fatalf("Prefix(fr, /login) = %q", got)
	}
	if got := Prefix("en", "login"); got != "/en/login" {
		t.Fatalf("Prefix(en, login) = %q", got)
	}
}
