// Package render writes a pipeline result as an HTML fragment, a Markdown
// table, aligned plain text or JSON.
package render

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/minios-linux/lehrer/i18n"
	"github.com/minios-linux/lehrer/langmeta"
	"github.com/minios-linux/lehrer/pipeline"
)

// Format names an output format.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
)

// Formats lists the accepted --format values.
func Formats() []string {
	return []string{string(FormatHTML), string(FormatMarkdown), string(FormatText), string(FormatJSON)}
}

// ParseFormat accepts a format name, case-insensitively. "md" and "txt" are
// accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "html":
		return FormatHTML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown format %q (want one of %s)", s, strings.Join(Formats(), ", "))
}

//go:embed templates/*.html
var templatesFS embed.FS

var tmpl = template.Must(template.New("").ParseFS(templatesFS, "templates/*.html"))

// Column describes one language column of the header.
type Column struct {
	Code  string
	Label string
}

// Header returns the source and target columns of res. An undefined source
// is shown as "auto".
func Header(res *pipeline.Result) (src, dst Column) {
	src = Column{Code: "auto", Label: "auto"}
	if res.Options.Source != "" {
		src = column(res.Options.Source)
	}
	dst = Column{Label: i18n.T("Translation")}
	if res.Options.Target != "" {
		dst = column(res.Options.Target)
	}
	return src, dst
}

func column(code string) Column {
	m := langmeta.Resolve(code)
	label := m.Name
	if m.Flag != "" {
		label = m.Flag + " " + label
	}
	return Column{Code: m.Code, Label: label}
}

// Write dispatches on f.
func Write(w io.Writer, f Format, res *pipeline.Result) error {
	switch f {
	case FormatHTML:
		return HTML(w, res)
	case FormatMarkdown:
		return Markdown(w, res)
	case FormatText:
		return Text(w, res)
	case FormatJSON:
		return JSON(w, res)
	}
	return fmt.Errorf("unknown format %q", f)
}

// HTML writes the table fragment. Cell text is escaped.
func HTML(w io.Writer, res *pipeline.Result) error {
	src, dst := Header(res)
	return tmpl.ExecuteTemplate(w, "table", struct {
		Source, Target Column
		Rows           any
	}{src, dst, res.Rows})
}

// Markdown writes a GitHub-flavored Markdown table.
func Markdown(w io.Writer, res *pipeline.Result) error {
	src, dst := Header(res)
	var b strings.Builder
	fmt.Fprintf(&b, "| # | %s | %s |\n", mdCell(src.Label), mdCell(dst.Label))
	b.WriteString("|---:|---|---|\n")
	for _, r := range res.Rows {
		fmt.Fprintf(&b, "| %d | %s | %s |\n", r.Index, mdCell(r.Original), mdCell(r.Translation))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func mdCell(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", "<br>")
}

// Text writes space-aligned columns. Widths are display widths, so wide
// CJK runes and emoji flags line up in a terminal.
func Text(w io.Writer, res *pipeline.Result) error {
	src, dst := Header(res)
	rows := [][3]string{{"#", src.Label, dst.Label}}
	for _, r := range res.Rows {
		rows = append(rows, [3]string{fmt.Sprint(r.Index), r.Original, r.Translation})
	}

	var widths [3]int
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	var b strings.Builder
	for n, row := range rows {
		line := runewidth.FillLeft(row[0], widths[0]) + "  " +
			runewidth.FillRight(row[1], widths[1]) + "  " + row[2]
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteByte('\n')
		if n == 0 {
			b.WriteString(strings.Repeat("-", widths[0]) + "  " +
				strings.Repeat("-", widths[1]) + "  " +
				strings.Repeat("-", max(widths[2], 1)) + "\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// JSON writes res as indented JSON.
func JSON(w io.Writer, res *pipeline.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
