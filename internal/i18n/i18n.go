// Package i18n holds the UI labels and picks a display language for a request.
package i18n

import (
	_ "embed"
	"log/slog"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Default is the primary language. Every label exists in it.
const Default = "ru"

// Supported lists the display languages in menu order.
var Supported = []string{"ru", "en", "he"}

//go:embed labels.yaml
var labelsYAML []byte

var (
	labels  map[string]map[string]string
	matcher = language.NewMatcher([]language.Tag{language.Russian, language.English, language.Hebrew})
)

func init() {
	if err := yaml.Unmarshal(labelsYAML, &labels); err != nil {
		panic("i18n: parse labels.yaml: " + err.Error())
	}
}

func IsSupported(lang string) bool {
	for _, l := range Supported {
		if l == lang {
			return true
		}
	}
	return false
}

// T returns the label for key in lang, falling back to the primary
// language and then to the key itself.
func T(lang, key string) string {
	if s, ok := labels[lang][key]; ok {
		return s
	}
	if s, ok := labels[Default][key]; ok {
		return s
	}
	slog.Debug("Missing label", "lang", lang, "key", key)
	return key
}

// Dir is the text direction for lang.
func Dir(lang string) string {
	if lang == "he" {
		return "rtl"
	}
	return "ltr"
}

// Negotiate picks a supported language from an Accept-Language header.
// It returns "" when nothing matches.
func Negotiate(acceptLanguage string) string {
	if acceptLanguage == "" {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return ""
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return ""
	}
	return Supported[idx]
}

// Pick returns the first supported language among candidates, or fallback.
func Pick(fallback string, candidates ...string) string {
	for _, c := range candidates {
		if IsSupported(c) {
			return c
		}
	}
	if IsSupported(fallback) {
		return fallback
	}
	return Default
}
