// Package i18n localises notification text. Translations are compiled
// into the binary; unknown languages fall back to English.
package i18n

import "fmt"

// DefaultLang is used when a key or language is not found
const DefaultLang = "en"

// Supported reports whether lang has its own translations
func Supported(lang string) bool {
	return lang == "en" || lang == "af" || lang == "zu"
}

// Translate returns the string for key in lang. Extra args are applied
// with fmt.Sprintf. Unknown keys are returned unchanged.
func Translate(key, lang string, args ...interface{}) string {
	if lang == "" {
		lang = DefaultLang
	}

	langMap, ok := translations[key]
	if !ok {
		return key
	}

	tmpl, ok := langMap[lang]
	if !ok {
		tmpl, ok = langMap[DefaultLang]
		if !ok {
			return key
		}
	}

	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}
