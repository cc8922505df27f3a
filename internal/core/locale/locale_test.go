package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalized_IsEmpty(t *testing.T) {
	assert.True(t, Localized(nil).IsEmpty())
	assert.True(t, Localized{}.IsEmpty())
	assert.True(t, Localized{"en": ""}.IsEmpty())
	assert.False(t, Localized{"en": "Water Leakage"}.IsEmpty())
}

func TestLocalized_Locales(t *testing.T) {
	l := Localized{"sw": "Uvujaji", "en": "Leakage", "fr": "Fuite"}

	// Default first, rest sorted
	assert.Equal(t, []string{"en", "fr", "sw"}, l.Locales("en"))
	assert.Equal(t, []string{"sw", "en", "fr"}, l.Locales("sw"))
}

func TestLocalized_Values(t *testing.T) {
	l := Localized{"en": "Rowe", "sw": "Gana", "fr": ""}

	// Empty values dropped, default locale first
	assert.Equal(t, []string{"Rowe", "Gana"}, l.Values("en"))
}

func TestLocalized_Flatten(t *testing.T) {
	l := Localized{"en": "Rowe", "sw": "Gana", "fr": ""}

	flat := l.Flatten("service_name", "en")

	assert.Equal(t, map[string]string{
		"service_name":    "Rowe",
		"service_name_sw": "Gana",
	}, flat)
}

func TestConfig_IsSupported(t *testing.T) {
	cfg := Config{Default: "en", Supported: []string{"en", "sw"}}

	assert.True(t, cfg.IsSupported("en"))
	assert.True(t, cfg.IsSupported("sw"))
	assert.False(t, cfg.IsSupported("fr"))
}
