// Package locale provides localized string maps and the flattening rule used
// by the Open311 representation. A localized value is a map of locale code to
// text, e.g. {"en": "Water Leakage", "sw": "Uvujaji wa Maji"}.
package locale

import (
	"sort"
)

// DefaultLocale is the fallback language code when none is configured.
const DefaultLocale = "en"

// Config holds the supported locales for the deployment.
type Config struct {
	// Default is the locale required on every localized field.
	Default string

	// Supported lists all accepted locale codes, default included.
	Supported []string
}

// DefaultConfig returns an english-only locale configuration.
func DefaultConfig() Config {
	return Config{Default: DefaultLocale, Supported: []string{DefaultLocale}}
}

// IsSupported reports whether code is an accepted locale.
func (c Config) IsSupported(code string) bool {
	for _, l := range c.Supported {
		if l == code {
			return true
		}
	}
	return false
}

// Localized maps a locale code to its text value. It serializes to JSON as a
// plain object and to PostgreSQL as jsonb.
type Localized map[string]string

// Get returns the value for the given locale, empty string when absent.
func (l Localized) Get(code string) string {
	if l == nil {
		return ""
	}
	return l[code]
}

// IsEmpty reports whether no locale carries a non-empty value.
func (l Localized) IsEmpty() bool {
	for _, v := range l {
		if v != "" {
			return false
		}
	}
	return true
}

// Locales returns the locale codes present, default first, the rest sorted.
// Deterministic ordering keeps flattened output and keyword lists stable.
func (l Localized) Locales(defaultLocale string) []string {
	codes := make([]string, 0, len(l))
	if _, ok := l[defaultLocale]; ok {
		codes = append(codes, defaultLocale)
	}
	rest := make([]string, 0, len(l))
	for code := range l {
		if code != defaultLocale {
			rest = append(rest, code)
		}
	}
	sort.Strings(rest)
	return append(codes, rest...)
}

// Values returns the non-empty values, default locale first, the rest in
// sorted locale order.
func (l Localized) Values(defaultLocale string) []string {
	values := make([]string, 0, len(l))
	for _, code := range l.Locales(defaultLocale) {
		if v := l[code]; v != "" {
			values = append(values, v)
		}
	}
	return values
}

// Flatten converts a localized map into suffixed keys: the default locale
// value goes under the bare path, every other locale under "path_locale".
// Empty values are dropped.
func (l Localized) Flatten(path, defaultLocale string) map[string]string {
	flat := make(map[string]string, len(l))
	for code, value := range l {
		if value == "" {
			continue
		}
		if code == defaultLocale {
			flat[path] = value
		} else {
			flat[path+"_"+code] = value
		}
	}
	return flat
}
