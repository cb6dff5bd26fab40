// Package mdfile finds lehrer blocks in Markdown documents.
//
// A lehrer block is a fenced code block (``` or ~~~) whose info string is
// the configured fence name, "lang" by default:
//
//	```lang
//	de
//	uk
//
//	Guten Tag.
//	```
//
// An optional YAML front matter key "lehrer" sets per-document defaults
// for blocks that leave the source or target undefined:
//
//	---
//	lehrer:
//	  source: de
//	  target: uk
//	---
package mdfile

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/lehrer/block"
)

// DefaultFence is the info string the original Obsidian plugin registered.
const DefaultFence = "lang"

// Block is one fenced lehrer block.
type Block struct {
	// Line is the 1-based line number of the opening fence.
	Line int
	// EndLine is the 1-based line number of the closing fence, or of the
	// last line of the document for an unclosed fence.
	EndLine int
	// Body is the text between the fences, without the fence lines.
	Body string
}

// File is a parsed Markdown document.
type File struct {
	lines  []string
	Blocks []Block
	// Defaults come from the "lehrer" front matter key.
	Defaults block.Options
}

// frontmatterBlock matches a YAML front matter block at the start of the file.
var frontmatterBlock = regexp.MustCompile(`(?s)^---\r?\n(.*?)\r?\n---\r?\n?`)

// fenceOpen matches an opening fence: up to three spaces of indentation, at
// least three backticks or tildes, then the info string.
var fenceOpen = regexp.MustCompile("^ {0,3}(`{3,}|~{3,})[ \t]*([^`]*)$")

// ParseFile reads and parses a Markdown document.
func ParseFile(path, fence string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := Parse(data, fence)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse collects the blocks whose info string's first word equals fence.
// Other fenced blocks are skipped whole, so a lehrer fence quoted inside a
// longer fence is not picked up.
func Parse(data []byte, fence string) (*File, error) {
	if fence == "" {
		fence = DefaultFence
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	f := &File{lines: strings.Split(text, "\n")}

	if m := frontmatterBlock.FindStringSubmatch(text); m != nil {
		var fm struct {
			Lehrer block.Options `yaml:"lehrer"`
		}
		if err := yaml.Unmarshal([]byte(m[1]), &fm); err != nil {
			return nil, fmt.Errorf("parsing front matter: %w", err)
		}
		f.Defaults = block.Options{
			Source: strings.ToLower(strings.TrimSpace(fm.Lehrer.Source)),
			Target: strings.ToLower(strings.TrimSpace(fm.Lehrer.Target)),
		}
	}

	for i := 0; i < len(f.lines); i++ {
		m := fenceOpen.FindStringSubmatch(f.lines[i])
		if m == nil {
			continue
		}
		marker, info := m[1], strings.Fields(m[2])
		end := closingFence(f.lines, i+1, marker)

		if len(info) > 0 && info[0] == fence {
			bodyEnd := min(end, len(f.lines))
			f.Blocks = append(f.Blocks, Block{
				Line:    i + 1,
				EndLine: min(end+1, len(f.lines)),
				Body:    strings.Join(f.lines[i+1:bodyEnd], "\n"),
			})
		}
		i = end
	}
	return f, nil
}

// closingFence returns the index of the line closing a fence opened with
// marker, or len(lines) if the fence runs to the end of the document.
func closingFence(lines []string, from int, marker string) int {
	for j := from; j < len(lines); j++ {
		s := strings.TrimRight(lines[j], " \t")
		trimmed := strings.TrimLeft(s, " ")
		if len(s)-len(trimmed) > 3 {
			continue
		}
		if len(trimmed) >= len(marker) && strings.Trim(trimmed, marker[:1]) == "" {
			return j
		}
	}
	return len(lines)
}

// Replace returns the document with every block, fences included, replaced
// by what fn returns for it. Everything else is kept byte for byte, apart
// from CRLF line endings which become LF.
func (f *File) Replace(fn func(Block) (string, error)) ([]byte, error) {
	var b strings.Builder
	next := 0
	for _, blk := range f.Blocks {
		for _, l := range f.lines[next : blk.Line-1] {
			b.WriteString(l)
			b.WriteByte('\n')
		}
		out, err := fn(blk)
		if err != nil {
			return nil, fmt.Errorf("block at line %d: %w", blk.Line, err)
		}
		b.WriteString(strings.TrimRight(out, "\n"))
		b.WriteByte('\n')
		next = blk.EndLine
	}
	rest := f.lines[min(next, len(f.lines)):]
	b.WriteString(strings.Join(rest, "\n"))

	out := b.String()
	if len(rest) == 0 {
		out = strings.TrimSuffix(out, "\n")
	}
	return []byte(out), nil
}

// WriteFile replaces the blocks like Replace and writes the result to path.
func (f *File) WriteFile(path string, fn func(Block) (string, error)) error {
	data, err := f.Replace(fn)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
