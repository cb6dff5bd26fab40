// Package table aligns two sentence sequences into numbered rows.
package table

// Row is one aligned pair. Index is 1-based; either side may be empty when
// one sequence is shorter than the other.
type Row struct {
	Index       int    `json:"index"`
	Original    string `json:"original"`
	Translation string `json:"translation"`
}

// Table is an ordered list of rows with contiguous indices starting at 1.
type Table []Row

// Align zips originals and translations by position, padding the shorter
// side with empty strings. Sentence i of one language is assumed to match
// sentence i of the other; no similarity matching is attempted.
func Align(originals, translations []string) Table {
	n := max(len(originals), len(translations))
	if n == 0 {
		return Table{}
	}

	t := make(Table, n)
	for i := range t {
		t[i].Index = i + 1
		if i < len(originals) {
			t[i].Original = originals[i]
		}
		if i < len(translations) {
			t[i].Translation = translations[i]
		}
	}
	return t
}

// Padded returns the number of rows with an empty side.
func (t Table) Padded() int {
	n := 0
	for _, r := range t {
		if r.Original == "" || r.Translation == "" {
			n++
		}
	}
	return n
}
