package table

import (
	"fmt"
	"reflect"
	"testing"
)

func seq(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s %d.", prefix, i+1)
	}
	return out
}

func TestAlignEqualLengths(t *testing.T) {
	for n := 0; n <= 5; n++ {
		got := Align(seq("orig", n), seq("trans", n))
		if len(got) != n {
			t.Fatalf("n=%d: got %d rows", n, len(got))
		}
		for i, r := range got {
			if r.Index != i+1 {
				t.Fatalf("n=%d: row %d has index %d", n, i, r.Index)
			}
			if r.Original == "" || r.Translation == "" {
				t.Fatalf("n=%d: unexpected padding in %#v", n, r)
			}
		}
		if got.Padded() != 0 {
			t.Fatalf("n=%d: Padded() = %d, want 0", n, got.Padded())
		}
	}
}

func TestAlignUnequalLengths(t *testing.T) {
	for a := 0; a <= 4; a++ {
		for b := 0; b <= 4; b++ {
			got := Align(seq("orig", a), seq("trans", b))
			want := max(a, b)
			if len(got) != want {
				t.Fatalf("a=%d b=%d: got %d rows, want %d", a, b, len(got), want)
			}
			for i, r := range got {
				if r.Index != i+1 {
					t.Fatalf("a=%d b=%d: row %d index %d", a, b, i, r.Index)
				}
				if i >= min(a, b) && r.Original != "" && r.Translation != "" {
					t.Fatalf("a=%d b=%d: row %d should be padded: %#v", a, b, i, r)
				}
			}
			if got.Padded() != want-min(a, b) {
				t.Fatalf("a=%d b=%d: Padded() = %d", a, b, got.Padded())
			}
		}
	}
}

func TestAlignKeepsPositions(t *testing.T) {
	got := Align([]string{"Eins.", "Zwei.", "Drei."}, []string{"One."})
	want := Table{
		{Index: 1, Original: "Eins.", Translation: "One."},
		{Index: 2, Original: "Zwei."},
		{Index: 3, Original: "Drei."},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Align() = %#v, want %#v", got, want)
	}
}
