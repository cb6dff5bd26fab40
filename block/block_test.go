package block

import (
	"reflect"
	"testing"
)

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   Options
		wantOK bool
	}{
		{name: "single line is target", in: "uk", want: Options{Target: "uk"}, wantOK: true},
		{name: "two lines", in: "de\nuk", want: Options{Source: "de", Target: "uk"}, wantOK: true},
		{name: "extra lines ignored", in: "de\nuk\nen", want: Options{Source: "de", Target: "uk"}, wantOK: true},
		{name: "lines are trimmed", in: "  de \n\tuk", want: Options{Source: "de", Target: "uk"}, wantOK: true},
		{name: "codes are lower-cased", in: "DE\nUK", want: Options{Source: "de", Target: "uk"}, wantOK: true},
		{name: "prose rejected", in: "Guten Tag.", wantOK: false},
		{name: "one long line rejects whole block", in: "de\nGuten Tag.", wantOK: false},
		{name: "three letter code rejected", in: "deu", wantOK: false},
		{name: "empty rejected", in: "", wantOK: false},
		{name: "non-ascii counted by rune", in: "йо", want: Options{Target: "йо"}, wantOK: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseOptions(tc.in)
			if ok != tc.wantOK {
				t.Fatalf("ParseOptions(%q) ok = %v, want %v", tc.in, ok, tc.wantOK)
			}
			if got != tc.want {
				t.Fatalf("ParseOptions(%q) = %#v, want %#v", tc.in, got, tc.want)
			}
			if ok && got.Target == "" {
				t.Fatalf("ParseOptions(%q) accepted without target", tc.in)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want TextBlock
	}{
		{
			name: "empty",
			raw:  "   \n\n  ",
			want: TextBlock{},
		},
		{
			name: "single fragment is original",
			raw:  "Hallo Welt.",
			want: TextBlock{Original: "Hallo Welt."},
		},
		{
			name: "single two-letter fragment is still original",
			raw:  "uk",
			want: TextBlock{Original: "uk"},
		},
		{
			name: "original and translation",
			raw:  "Hallo.\n\nHello.",
			want: TextBlock{Original: "Hallo.", Translation: "Hello."},
		},
		{
			name: "options original translation",
			raw:  "de\nuk\n\nGuten Tag.\n\nGuten Tag translated.",
			want: TextBlock{
				Options:     Options{Source: "de", Target: "uk"},
				HasOptions:  true,
				Original:    "Guten Tag.",
				Translation: "Guten Tag translated.",
			},
		},
		{
			name: "single-line options",
			raw:  "uk\n\nHello.",
			want: TextBlock{Options: Options{Target: "uk"}, HasOptions: true, Original: "Hello."},
		},
		{
			name: "whitespace-only separator lines and extra blanks",
			raw:  "\n\nHallo.\n  \n\n\nHello.\n\n",
			want: TextBlock{Original: "Hallo.", Translation: "Hello."},
		},
		{
			name: "fragments beyond translation are ignored",
			raw:  "a.\n\nb.\n\nc.",
			want: TextBlock{Original: "a.", Translation: "b."},
		},
		{
			name: "crlf input",
			raw:  "de\r\n\r\nHallo.\r\n\r\nHello.",
			want: TextBlock{Options: Options{Target: "de"}, HasOptions: true, Original: "Hallo.", Translation: "Hello."},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Detect(tc.raw, SeparatorSingle)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Detect(%q) = %#v, want %#v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestDetectDoubleSeparator(t *testing.T) {
	raw := "Erster Absatz.\n\nNoch im Absatz.\n\n\nFirst paragraph.\n\nStill inside."

	got := Detect(raw, SeparatorDouble)
	if got.Original != "Erster Absatz.\n\nNoch im Absatz." {
		t.Fatalf("Original = %q", got.Original)
	}
	if got.Translation != "First paragraph.\n\nStill inside." {
		t.Fatalf("Translation = %q", got.Translation)
	}

	single := Detect(raw, SeparatorSingle)
	if single.Original != "Erster Absatz." || single.Translation != "Noch im Absatz." {
		t.Fatalf("single separator split = %#v", single)
	}
}

func TestDetectRoundTrip(t *testing.T) {
	opts := "en\nde"
	original := "The cat sleeps. It is warm."
	translation := "Die Katze schläft. Es ist warm."

	got := Detect(opts+"\n\n"+original+"\n\n"+translation, SeparatorSingle)
	if !got.HasOptions || got.Options != (Options{Source: "en", Target: "de"}) {
		t.Fatalf("options = %#v (has=%v)", got.Options, got.HasOptions)
	}
	if got.Original != original || got.Translation != translation {
		t.Fatalf("round trip = %#v", got)
	}
	if got.NeedsTranslation() {
		t.Fatal("NeedsTranslation() = true with translation present")
	}
}

func TestParseSeparator(t *testing.T) {
	for in, want := range map[string]Separator{"": SeparatorSingle, "single": SeparatorSingle, " Double ": SeparatorDouble} {
		got, err := ParseSeparator(in)
		if err != nil || got != want {
			t.Fatalf("ParseSeparator(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseSeparator("triple"); err == nil {
		t.Fatal("ParseSeparator(triple) expected error")
	}
}

func TestOptionsWithDefaults(t *testing.T) {
	got := Options{Target: "en"}.WithDefaults("de", "uk")
	if got != (Options{Source: "de", Target: "en"}) {
		t.Fatalf("WithDefaults = %#v", got)
	}
	if got := (Options{}).WithDefaults("", "uk"); got != (Options{Target: "uk"}) {
		t.Fatalf("WithDefaults(empty) = %#v", got)
	}
}
