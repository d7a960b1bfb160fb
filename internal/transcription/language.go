package transcription

import (
	"strings"

	"golang.org/x/text/language"
)

// NormalizeLanguage canonicalizes the language reported by the speech service
// into a BCP-47 tag. Speech services are inconsistent here: some return
// two-letter codes, some full names, some region-qualified tags. Unrecognized
// values pass through lowercased rather than being dropped, so the original
// signal survives for operators even when it cannot be canonicalized.
func NormalizeLanguage(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if tag, err := language.Parse(value); err == nil {
		return tag.String()
	}
	if base, ok := wordToTag[strings.ToLower(value)]; ok {
		return base
	}
	return strings.ToLower(value)
}

// wordToTag covers the full-word language names the speech services in use
// are known to emit instead of codes.
var wordToTag = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
}
