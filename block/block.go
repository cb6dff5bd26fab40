// Package block splits a raw fenced block into its structural parts: an
// optional language options header, the original text and the translation.
//
// A block looks like this:
//
//	de
//	uk
//
//	Guten Tag. Wie geht's?
//
//	Good day. How are you?
//
// Fragments are separated by blank lines. The first fragment is an options
// header only when every one of its lines is a two-letter code.
package block

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Separator selects how many blank lines delimit two fragments.
type Separator string

const (
	// SeparatorSingle splits on one or more blank lines.
	SeparatorSingle Separator = "single"
	// SeparatorDouble splits on two or more blank lines, so a paragraph may
	// keep a single blank line for readability.
	SeparatorDouble Separator = "double"
)

var (
	singleBlank = regexp.MustCompile(`\n[ \t\r]*\n`)
	doubleBlank = regexp.MustCompile(`\n[ \t\r]*\n[ \t\r]*\n`)
)

// ParseSeparator validates a separator name. An empty name selects
// SeparatorSingle.
func ParseSeparator(s string) (Separator, error) {
	switch Separator(strings.ToLower(strings.TrimSpace(s))) {
	case "", SeparatorSingle:
		return SeparatorSingle, nil
	case SeparatorDouble:
		return SeparatorDouble, nil
	default:
		return "", fmt.Errorf("unknown separator %q (valid: single, double)", s)
	}
}

// Options is a language pair declared in a block header. Empty fields are
// undefined: no Source means the translation backend detects the language,
// no Target means the configured default applies.
type Options struct {
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
}

// TextBlock is the result of Detect.
type TextBlock struct {
	Options Options
	// HasOptions reports whether the first fragment was consumed as an
	// options header.
	HasOptions  bool
	Original    string
	Translation string
}

// NeedsTranslation reports whether the translation must be produced by a
// translation backend.
func (b TextBlock) NeedsTranslation() bool {
	return b.Translation == ""
}

// Fragments trims raw and splits it into non-empty trimmed fragments.
func Fragments(raw string, sep Separator) []string {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), "\r\n", "\n")
	if raw == "" {
		return nil
	}

	re := singleBlank
	if sep == SeparatorDouble {
		re = doubleBlank
	}

	var out []string
	for _, frag := range re.Split(raw, -1) {
		if frag = strings.TrimSpace(frag); frag != "" {
			out = append(out, frag)
		}
	}
	return out
}

// Detect splits raw into options, original and translation. A single
// fragment is always the original text, never an options header.
func Detect(raw string, sep Separator) TextBlock {
	frags := Fragments(raw, sep)

	var b TextBlock
	if len(frags) >= 2 {
		if opts, ok := ParseOptions(frags[0]); ok {
			b.Options = opts
			b.HasOptions = true
			frags = frags[1:]
		}
	}

	if len(frags) > 0 {
		b.Original = frags[0]
	}
	if len(frags) > 1 {
		b.Translation = frags[1]
	}
	return b
}

// ParseOptions interprets candidate as an options header. The header is
// accepted only when every trimmed line is exactly two characters long:
// one line declares the target, two or more declare source and target
// (extra lines are ignored). Any other block yields (Options{}, false).
//
// The check is structural, so a two-character line of prose is read as a
// language code.
func ParseOptions(candidate string) (Options, bool) {
	lines := strings.Split(strings.ReplaceAll(candidate, "\r\n", "\n"), "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) != 2 {
			return Options{}, false
		}
		lines[i] = strings.ToLower(line)
	}

	if len(lines) == 1 {
		return Options{Target: lines[0]}, true
	}
	return Options{Source: lines[0], Target: lines[1]}, true
}

// WithDefaults fills an undefined target with target and an undefined source
// with source. Declared values always win.
func (o Options) WithDefaults(source, target string) Options {
	if o.Source == "" {
		o.Source = source
	}
	if o.Target == "" {
		o.Target = target
	}
	return o
}
