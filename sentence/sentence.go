// Package sentence splits free-form text into sentences.
//
// Tokenize runs three ordered passes. Each pass relies on the previous one:
//
//  1. normalize: NFC, ellipsis expansion, "!.."/"?.." collapsing, protection
//     of digit separators ("10.000", "3,5") and a forced terminal at the end
//     of every line that lacks one.
//  2. match: per line, a sentence ends at a run of terminal marks and
//     closing quotes followed by whitespace or the end of the line.
//  3. clean: protected separators are restored, runs of three or more dots
//     become "…", and forced terminals are dropped after ':', ';' and ','
//     or turned into '.' otherwise.
//
// A sentence wrapped across a hard line break without punctuation is split
// in two.
package sentence

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Private-use runes stand in for characters that must survive matching
// without acting as sentence boundaries.
const (
	protectedDot   = '\uE000'
	protectedComma = '\uE001'
	forcedStop     = '\uE002'
)

const ellipsis = "…"

var (
	// "!.." and "?..." lose their trailing dots.
	fusedEllipsis = regexp.MustCompile(`([!?])\.{2,}`)
	dotRun        = regexp.MustCompile(`\.{3,}`)
)

// Tokenize returns the sentences of text in reading order. Sentences are
// trimmed and never empty; empty input yields nil.
func Tokenize(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var out []string
	for _, line := range normalize(text) {
		for _, s := range match(line) {
			if s = clean(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// normalize returns the trimmed, non-empty lines of text with punctuation
// rewritten for matching.
func normalize(text string) []string {
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, ellipsis, "...")
	text = fusedEllipsis.ReplaceAllString(text, "$1")
	text = protectDigits(text)

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !endsTerminated(line) {
			line += string(forcedStop)
		}
		lines = append(lines, line)
	}
	return lines
}

// protectDigits replaces '.' and ',' between two digits, and "..." between
// two digits, with placeholders.
func protectDigits(text string) string {
	rs := []rune(text)
	for i := 1; i < len(rs)-1; i++ {
		if !unicode.IsDigit(rs[i-1]) {
			continue
		}
		switch rs[i] {
		case ',':
			if unicode.IsDigit(rs[i+1]) {
				rs[i] = protectedComma
			}
		case '.':
			if unicode.IsDigit(rs[i+1]) {
				rs[i] = protectedDot
				continue
			}
			if i+3 < len(rs) && rs[i+1] == '.' && rs[i+2] == '.' && unicode.IsDigit(rs[i+3]) {
				rs[i], rs[i+1], rs[i+2] = protectedDot, protectedDot, protectedDot
				i += 2
			}
		}
	}
	return string(rs)
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == forcedStop
}

// isCloser reports runes that may trail a terminal mark without hiding it,
// as in `Er rief: "Halt!"`.
func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '»', '«', '“', '”', '’', '„':
		return true
	}
	return false
}

func endsTerminated(line string) bool {
	rs := []rune(line)
	i := len(rs) - 1
	for i >= 0 && isCloser(rs[i]) {
		i--
	}
	return i >= 0 && isTerminal(rs[i])
}

// match splits a normalized line at runs of terminal marks, plus any
// closing quotes or brackets, that are followed by whitespace. Whatever remains at the end of the line forms the
// last sentence.
func match(line string) []string {
	rs := []rune(line)

	var out []string
	start := 0
	for i := 0; i < len(rs); i++ {
		if !isTerminal(rs[i]) {
			continue
		}
		j := i
		for j < len(rs) && isTerminal(rs[j]) {
			j++
		}
		for j < len(rs) && isCloser(rs[j]) {
			j++
		}
		if j < len(rs) && !unicode.IsSpace(rs[j]) {
			i = j - 1
			continue
		}
		out = append(out, string(rs[start:j]))
		for j < len(rs) && unicode.IsSpace(rs[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if start < len(rs) {
		out = append(out, string(rs[start:]))
	}
	return out
}

// clean undoes the normalization placeholders in a matched sentence.
func clean(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasSuffix(s, string(forcedStop)) {
		s = strings.TrimSuffix(s, string(forcedStop))
		s = strings.TrimRightFunc(s, unicode.IsSpace)
		if !strings.HasSuffix(s, ":") && !strings.HasSuffix(s, ";") && !strings.HasSuffix(s, ",") {
			s += "."
		}
	}
	// A forced stop can only trail a line, but keep stray ones out of output.
	s = strings.ReplaceAll(s, string(forcedStop), "")

	s = strings.NewReplacer(string(protectedDot), ".", string(protectedComma), ",").Replace(s)
	s = dotRun.ReplaceAllString(s, ellipsis)
	return strings.TrimSpace(s)
}
