// Package langmeta provides language display metadata (native and English
// names, emoji flags) for table headers and translation prompts.
package langmeta

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Meta describes language display metadata.
type Meta struct {
	Code string
	Name string
	Flag string
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Valid reports whether code parses as a BCP 47 language tag with a known
// base language.
func Valid(code string) bool {
	tag, err := language.Parse(canonicalize(code))
	if err != nil {
		return false
	}
	base, conf := tag.Base()
	return conf != language.No && base.String() != "und"
}

// Resolve returns best-effort metadata for a language code, supporting
// variants like pt_BR and pt-BR. Unknown codes are passed through as the
// name with no flag.
func Resolve(lang string) Meta {
	code := canonicalize(lang)
	tag, err := language.Parse(code)
	if err != nil {
		return Meta{Code: lang, Name: lang}
	}
	name := display.Self.Name(tag)
	if name == "" {
		return Meta{Code: lang, Name: lang}
	}
	region, _ := tag.Region()
	return Meta{Code: code, Name: name, Flag: flagFromRegion(region.String())}
}

// EnglishName returns the English name of a language, or the code itself
// when it is unknown.
func EnglishName(lang string) string {
	tag, err := language.Parse(canonicalize(lang))
	if err != nil {
		return lang
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return lang
}

// flagFromRegion converts a two-letter region into its regional indicator
// emoji pair.
func flagFromRegion(region string) string {
	if len(region) != 2 {
		return ""
	}
	region = strings.ToUpper(region)
	var sb strings.Builder
	for _, c := range region {
		if c < 'A' || c > 'Z' {
			return ""
		}
		sb.WriteRune(0x1F1E6 + (c - 'A'))
	}
	return sb.String()
}
