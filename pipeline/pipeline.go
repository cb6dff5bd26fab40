// Package pipeline turns one raw fenced block into an aligned table:
// detect blocks, parse options, tokenize both texts, translate missing
// sentences and align the rows.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/minios-linux/lehrer/block"
	"github.com/minios-linux/lehrer/sentence"
	"github.com/minios-linux/lehrer/table"
	"github.com/minios-linux/lehrer/translate"
)

// ErrTranslation marks a run that failed because the translation backend
// failed. No table is produced in that case.
var ErrTranslation = errors.New("translation failed")

// Result is what a renderer consumes.
type Result struct {
	// Options is the language pair, parsed once from the block header with
	// the runner defaults applied. Source may be empty (auto).
	Options block.Options `json:"options"`
	// Declared reports whether the block carried an options header.
	Declared bool `json:"declared"`
	// Translated reports whether the translation column came from the
	// translation backend.
	Translated bool        `json:"translated"`
	Rows       table.Table `json:"rows"`
}

// Runner holds everything a run needs. The zero value splits on single
// blank lines and never translates.
type Runner struct {
	Separator block.Separator
	// Defaults fill the undefined fields of a block's options.
	Defaults block.Options
	// Orchestrator fills in a missing translation. Nil leaves the
	// translation column empty.
	Orchestrator *translate.Orchestrator
	Logger       zerolog.Logger
}

// Run executes the pipeline on raw. An empty block yields an empty table.
func (r *Runner) Run(ctx context.Context, raw string) (*Result, error) {
	tb := block.Detect(raw, r.Separator)

	res := &Result{
		Options:  tb.Options.WithDefaults(r.Defaults.Source, r.Defaults.Target),
		Declared: tb.HasOptions,
	}

	originals := sentence.Tokenize(tb.Original)

	var translations []string
	switch {
	case !tb.NeedsTranslation():
		translations = sentence.Tokenize(tb.Translation)
	case len(originals) == 0 || r.Orchestrator == nil:
		// nothing to translate, or translation disabled
	default:
		out, err := r.Orchestrator.TranslateAll(ctx, res.Options, originals)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", ErrTranslation, err)
		}
		translations = out
		res.Translated = true
		res.Options.Target = r.Orchestrator.Pair(res.Options).Target
	}

	res.Rows = table.Align(originals, translations)

	r.Logger.Debug().
		Bool("declared", res.Declared).
		Bool("translated", res.Translated).
		Int("original", len(originals)).
		Int("translation", len(translations)).
		Int("rows", len(res.Rows)).
		Msg("block rendered")

	if len(originals) != len(translations) && len(translations) > 0 {
		r.Logger.Warn().
			Int("original", len(originals)).
			Int("translation", len(translations)).
			Int("padded", res.Rows.Padded()).
			Msg("sentence counts differ; rows are aligned by position")
	}
	return res, nil
}
