// Package i18n translates lehrer's own user-facing strings: CLI messages
// and the column headings of rendered tables.
//
// Catalogs are gettext .po files embedded under locales/{lang}/LC_MESSAGES.
// Call Init once at startup; T and N pass the msgid through until then.
package i18n

import (
	"embed"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

//go:embed all:locales
var locales embed.FS

const domain = "lehrer"

var (
	po   *gotext.Locale
	lang = "en"
)

// Init loads the catalog for lang. An empty lang is detected from
// LANGUAGE, LC_ALL, LC_MESSAGES and LANG, in that order.
func Init(l string) {
	if l == "" {
		l = detectLanguage()
	}
	lang = l

	po = gotext.NewLocaleFSWithPath(l, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// Language returns the language passed to (or detected by) Init.
func Language() string { return lang }

// T translates msgid, returning it unchanged when no translation exists.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N is the plural form of T.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		// LANGUAGE is a colon-separated preference list
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		// "uk_UA.UTF-8" -> "uk_UA"
		if idx := strings.IndexByte(val, '.'); idx >= 0 {
			val = val[:idx]
		}
		if val == "C" || val == "POSIX" || val == "" {
			continue
		}
		return val
	}
	return "en"
}
