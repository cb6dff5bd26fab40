package sentence

import (
	"reflect"
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: nil},
		{name: "whitespace only", in: " \n\t ", want: nil},
		{
			name: "exclamation and question",
			in:   "Hello, world! How are you?",
			want: []string{"Hello, world!", "How are you?"},
		},
		{
			name: "thousands separator is not a boundary",
			in:   "10.000 Meter sind weit.",
			want: []string{"10.000 Meter sind weit."},
		},
		{
			name: "decimal comma kept",
			in:   "Es kostet 3,50 Euro. Das ist billig.",
			want: []string{"Es kostet 3,50 Euro.", "Das ist billig."},
		},
		{
			name: "line without punctuation gets a period",
			in:   "Erste Zeile\nZweite Zeile.",
			want: []string{"Erste Zeile.", "Zweite Zeile."},
		},
		{
			name: "forced period dropped after colon",
			in:   "Beispiele:\nEins. Zwei.",
			want: []string{"Beispiele:", "Eins.", "Zwei."},
		},
		{
			name: "forced period dropped after comma and semicolon",
			in:   "erstens,\nzweitens;\ndrittens",
			want: []string{"erstens,", "zweitens;", "drittens."},
		},
		{
			name: "ellipsis character expanded and restored",
			in:   "Ich weiß… Vielleicht.",
			want: []string{"Ich weiß…", "Vielleicht."},
		},
		{
			name: "three dots collapse to ellipsis",
			in:   "Warte... Was?",
			want: []string{"Warte…", "Was?"},
		},
		{
			name: "fused ellipsis after question mark",
			in:   "Wirklich?.. Ja!.. Gut.",
			want: []string{"Wirklich?", "Ja!", "Gut."},
		},
		{
			name: "repeated terminal marks stay together",
			in:   "Was?! Nein!!! Doch.",
			want: []string{"Was?!", "Nein!!!", "Doch."},
		},
		{
			name: "dot inside word is not a boundary",
			in:   "Siehe example.com für mehr. Danke.",
			want: []string{"Siehe example.com für mehr.", "Danke."},
		},
		{
			name: "closing quote after terminal ends the line",
			in:   "Er rief: \"Halt!\"\nDann ging er.",
			want: []string{"Er rief: \"Halt!\"", "Dann ging er."},
		},
		{
			name: "closing quote after terminal inside a line",
			in:   "Er rief: \"Halt!\" Dann ging er.",
			want: []string{"Er rief: \"Halt!\"", "Dann ging er."},
		},
		{
			name: "closing bracket after terminal inside a line",
			in:   "(Wirklich?) Ja. »Gut.« Danke.",
			want: []string{"(Wirklich?)", "Ja.", "»Gut.«", "Danke."},
		},
		{
			name: "digit ellipsis digit",
			in:   "Zähle 1...5 langsam.",
			want: []string{"Zähle 1…5 langsam."},
		},
		{
			name: "blank lines and indentation ignored",
			in:   "  Eins.\n\n   Zwei.  ",
			want: []string{"Eins.", "Zwei."},
		},
		{
			name: "multiple spaces between sentences",
			in:   "Eins.   Zwei.\tDrei.",
			want: []string{"Eins.", "Zwei.", "Drei."},
		},
		{
			name: "cyrillic",
			in:   "Добрий день. Як справи?",
			want: []string{"Добрий день.", "Як справи?"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Tokenize(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Tokenize(%q) = %#v, want %#v", tc.in, got, tc.want)
			}
		})
	}
}

func TestTokenizeIdempotent(t *testing.T) {
	inputs := []string{
		"Hello, world! How are you?",
		"10.000 Meter sind weit. Es kostet 3,50 Euro.",
		"Warte... Was?! Wirklich?.. Ja.",
		"Erste Zeile\nZweite Zeile. Dritte",
		"Добрий день. Як справи?",
		"Er rief: \"Halt!\"\nDann ging er.",
		"(Wirklich?) Ja.",
	}

	for _, in := range inputs {
		first := Tokenize(in)
		second := Tokenize(strings.Join(first, " "))
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("re-tokenizing %q: %#v != %#v", in, second, first)
		}
	}
}

func TestTokenizeNoPlaceholdersLeak(t *testing.T) {
	for _, s := range Tokenize("1.000,5 und 2,5. Ende\nnoch 3...4") {
		if strings.ContainsAny(s, string([]rune{protectedDot, protectedComma, forcedStop})) {
			t.Fatalf("placeholder leaked into %q", s)
		}
	}
}

func TestTokenizeSentencesNonEmptyAndTrimmed(t *testing.T) {
	for _, s := range Tokenize(" . ! ?\n   \nA .  B !  ") {
		if s == "" || s != strings.TrimSpace(s) {
			t.Fatalf("bad sentence %q", s)
		}
	}
}
