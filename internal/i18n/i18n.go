// Package i18n provides the localized notification text for the supported
// languages (en, he, ru, ar).
package i18n

import (
	"fmt"

	"golang.org/x/text/language"
)

var supported = []language.Tag{
	language.English, // first entry is the fallback
	language.Hebrew,
	language.Russian,
	language.Arabic,
}

var matcher = language.NewMatcher(supported)

type messages struct {
	warningTitle    string
	warningOne      string // header
	warningMany     string // count, first header
	errorTitle      string
	errorMessage    string // cause
	clampNoticeTitle string
}

var catalogs = map[language.Tag]messages{
	language.English: {
		warningTitle:    "Missile Warning",
		warningOne:      "Missile warning issued for %s.",
		warningMany:     "%d missile warnings issued. First area: %s.",
		errorTitle:      "Missile Warning Monitor Error",
		errorMessage:    "Failed to fetch missile warnings: %s",
		clampNoticeTitle: "Settings Adjusted",
	},
	language.Hebrew: {
		warningTitle:    "אזעקת טילים",
		warningOne:      "התרעה על ירי טילים באזור %s.",
		warningMany:     "%d התרעות על ירי טילים. אזור ראשון: %s.",
		errorTitle:      "שגיאה בניטור התרעות",
		errorMessage:    "שליפת ההתרעות נכשלה: %s",
		clampNoticeTitle: "ההגדרות עודכנו",
	},
	language.Russian: {
		warningTitle:    "Ракетная тревога",
		warningOne:      "Объявлена ракетная тревога: %s.",
		warningMany:     "Объявлено тревог: %d. Первый район: %s.",
		errorTitle:      "Ошибка службы оповещения",
		errorMessage:    "Не удалось получить данные о тревогах: %s",
		clampNoticeTitle: "Настройки изменены",
	},
	language.Arabic: {
		warningTitle:    "إنذار صواريخ",
		warningOne:      "صدر إنذار صواريخ للمنطقة %s.",
		warningMany:     "صدرت %d إنذارات صواريخ. المنطقة الأولى: %s.",
		errorTitle:      "خطأ في خدمة الإنذار",
		errorMessage:    "فشل في جلب الإنذارات: %s",
		clampNoticeTitle: "تم تعديل الإعدادات",
	},
}

// Catalog resolves notification text for one language.
type Catalog struct {
	tag language.Tag
	m   messages
}

// For returns the catalog best matching the given language code. Unknown
// codes fall back to English.
func For(lang string) *Catalog {
	tag, _ := language.MatchStrings(matcher, lang)

	// MatchStrings may return a narrowed variant; map back to the base
	// catalog tag.
	base, _ := tag.Base()
	for _, s := range supported {
		if b, _ := s.Base(); b == base {
			return &Catalog{tag: s, m: catalogs[s]}
		}
	}
	return &Catalog{tag: language.English, m: catalogs[language.English]}
}

// RTL reports whether the language lays out right-to-left.
func (c *Catalog) RTL() bool {
	return c.tag == language.Hebrew || c.tag == language.Arabic
}

// WarningTitle is the notification title for an active warning.
func (c *Catalog) WarningTitle() string {
	return c.m.warningTitle
}

// WarningMessage summarizes a non-empty warning set: the first record's
// header plus the count when more than one warning is active.
func (c *Catalog) WarningMessage(count int, firstHeader string) string {
	if count <= 1 {
		return fmt.Sprintf(c.m.warningOne, firstHeader)
	}
	return fmt.Sprintf(c.m.warningMany, count, firstHeader)
}

// ErrorTitle is the notification title for a failed poll cycle.
func (c *Catalog) ErrorTitle() string {
	return c.m.errorTitle
}

// ErrorMessage carries the failure's message.
func (c *Catalog) ErrorMessage(cause string) string {
	return fmt.Sprintf(c.m.errorMessage, cause)
}

// ClampNoticeTitle is the title for a settings clamp notice.
func (c *Catalog) ClampNoticeTitle() string {
	return c.m.clampNoticeTitle
}
