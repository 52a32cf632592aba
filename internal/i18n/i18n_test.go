package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForMatchesSupportedLanguages(t *testing.T) {
	for _, tc := range []struct {
		lang     string
		rtl      bool
		expected string
	}{
		{"en", false, "Missile Warning"},
		{"he", true, "אזעקת טילים"},
		{"ru", false, "Ракетная тревога"},
		{"ar", true, "إنذار صواريخ"},
	} {
		t.Run(tc.lang, func(t *testing.T) {
			cat := For(tc.lang)
			assert.Equal(t, tc.expected, cat.WarningTitle())
			assert.Equal(t, tc.rtl, cat.RTL())
		})
	}
}

func TestForFallsBackToEnglish(t *testing.T) {
	for _, lang := range []string{"fr", "xx", "", "zz-ZZ"} {
		t.Run("lang "+lang, func(t *testing.T) {
			cat := For(lang)
			assert.Equal(t, "Missile Warning", cat.WarningTitle())
			assert.False(t, cat.RTL())
		})
	}
}

func TestForMatchesRegionalVariants(t *testing.T) {
	// A regional code resolves to its base catalog.
	cat := For("he-IL")
	assert.Equal(t, "אזעקת טילים", cat.WarningTitle())
	assert.True(t, cat.RTL())
}

func TestWarningMessage(t *testing.T) {
	cat := For("en")

	t.Run("single warning names the area", func(t *testing.T) {
		msg := cat.WarningMessage(1, "Tel Aviv")
		assert.Equal(t, "Missile warning issued for Tel Aviv.", msg)
	})

	t.Run("multiple warnings carry the count", func(t *testing.T) {
		msg := cat.WarningMessage(3, "Haifa")
		assert.Contains(t, msg, "3")
		assert.Contains(t, msg, "Haifa")
	})
}

func TestErrorMessage(t *testing.T) {
	cat := For("en")
	assert.Equal(t, "Missile Warning Monitor Error", cat.ErrorTitle())
	assert.Contains(t, cat.ErrorMessage("HTTP 500"), "HTTP 500")
}

func TestEveryCatalogIsComplete(t *testing.T) {
	for tag, m := range catalogs {
		t.Run(tag.String(), func(t *testing.T) {
			assert.NotEmpty(t, m.warningTitle)
			assert.NotEmpty(t, m.warningOne)
			assert.NotEmpty(t, m.warningMany)
			assert.NotEmpty(t, m.errorTitle)
			assert.NotEmpty(t, m.errorMessage)
			assert.NotEmpty(t, m.clampNoticeTitle)
		})
	}
}
