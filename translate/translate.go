// Package translate fills in missing translations sentence by sentence
// using one of several HTTP translation backends: the free Google web
// endpoint, DeepL, and any OpenAI-compatible chat endpoint.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/minios-linux/lehrer/block"
)

// ---------------------------------------------------------------------------
// Provider IDs
// ---------------------------------------------------------------------------

const (
	ProviderGoogle = "google"
	ProviderDeepL  = "deepl"
	ProviderOpenAI = "openai"
)

// DefaultTarget is the target language used when neither the block nor the
// configuration declares one.
const DefaultTarget = "uk"

// ErrNoAPIKey is returned by New for providers that need a key.
var ErrNoAPIKey = errors.New("API key not configured")

// LangPair is the language pair of a single translation call. An empty
// Source lets the backend detect the language.
type LangPair struct {
	Source string
	Target string
}

func (p LangPair) String() string {
	src := p.Source
	if src == "" {
		src = "auto"
	}
	return src + "->" + p.Target
}

// Translator translates one piece of text. Implementations must be safe for
// concurrent use; one instance is shared for the lifetime of the process.
type Translator interface {
	Translate(ctx context.Context, text string, pair LangPair) (string, error)
	// Name returns the backend name.
	Name() string
}

// ---------------------------------------------------------------------------
// Provider configuration
// ---------------------------------------------------------------------------

// Provider holds the configuration for a translation backend.
type Provider struct {
	// ID is the provider identifier (google, deepl, openai).
	ID string
	// Name is the display name.
	Name string
	// BaseURL is the API base URL.
	BaseURL string
	// APIKey is the authentication key (empty for keyless services).
	APIKey string
	// Model is the chat model for OpenAI-compatible endpoints.
	Model string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the per-request timeout.
	Timeout time.Duration
	// MaxRetries is the number of retries on 429 and 5xx. Default: 3.
	MaxRetries int
}

// DefaultProviders returns the pre-configured provider definitions.
func DefaultProviders() map[string]Provider {
	return map[string]Provider{
		ProviderGoogle: {
			ID:      ProviderGoogle,
			Name:    "Google Translate",
			BaseURL: "https://translate.googleapis.com",
			Timeout: 30 * time.Second,
		},
		ProviderDeepL: {
			ID:      ProviderDeepL,
			Name:    "DeepL",
			BaseURL: "https://api-free.deepl.com",
			Timeout: 60 * time.Second,
		},
		ProviderOpenAI: {
			ID:      ProviderOpenAI,
			Name:    "OpenAI-compatible",
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
			Timeout: 120 * time.Second,
		},
	}
}

// ProviderIDs lists the known provider IDs.
func ProviderIDs() []string {
	return []string{ProviderGoogle, ProviderDeepL, ProviderOpenAI}
}

func (p Provider) effectiveTimeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return 60 * time.Second
}

func (p Provider) effectiveMaxRetries() int {
	if p.MaxRetries > 0 {
		return p.MaxRetries
	}
	return 3
}

// New builds the translator for prov. Fields left empty in prov are taken
// from DefaultProviders.
func New(prov Provider, log zerolog.Logger) (Translator, error) {
	def, ok := DefaultProviders()[prov.ID]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (valid: %s)", prov.ID, strings.Join(ProviderIDs(), ", "))
	}
	if prov.Name == "" {
		prov.Name = def.Name
	}
	if prov.BaseURL == "" {
		prov.BaseURL = def.BaseURL
	}
	if prov.Model == "" {
		prov.Model = def.Model
	}
	if prov.Timeout == 0 {
		prov.Timeout = def.Timeout
	}

	c := newClient(prov, log)
	switch prov.ID {
	case ProviderGoogle:
		return &googleTranslator{c: c}, nil
	case ProviderDeepL:
		if prov.APIKey == "" {
			return nil, fmt.Errorf("%s: %w", prov.Name, ErrNoAPIKey)
		}
		return &deeplTranslator{c: c}, nil
	default:
		// Local OpenAI-compatible servers (Ollama, llama.cpp) need no key.
		if prov.APIKey == "" && prov.BaseURL == def.BaseURL {
			return nil, fmt.Errorf("%s: %w", prov.Name, ErrNoAPIKey)
		}
		return &openAITranslator{c: c}, nil
	}
}

// ---------------------------------------------------------------------------
// Orchestration
// ---------------------------------------------------------------------------

// Orchestrator translates a sentence sequence through a shared Translator.
type Orchestrator struct {
	// Translator is the backend, usually wrapped in a Cache.
	Translator Translator
	// DefaultTarget replaces an undefined target (DefaultTarget if empty).
	DefaultTarget string
	// OnProgress is called after each sentence is translated.
	OnProgress func(done, total int)
	// Logger receives per-sentence debug output.
	Logger zerolog.Logger
}

// Pair resolves the language pair used for opts.
func (o *Orchestrator) Pair(opts block.Options) LangPair {
	target := o.DefaultTarget
	if target == "" {
		target = DefaultTarget
	}
	opts = opts.WithDefaults("", target)
	return LangPair{Source: opts.Source, Target: opts.Target}
}

// TranslateAll translates sentences one at a time, in order. The first
// failing sentence aborts the whole call; no partial result is returned.
func (o *Orchestrator) TranslateAll(ctx context.Context, opts block.Options, sentences []string) ([]string, error) {
	if o.Translator == nil {
		return nil, errors.New("no translator configured")
	}
	pair := o.Pair(opts)

	out := make([]string, 0, len(sentences))
	for i, s := range sentences {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tr, err := o.Translator.Translate(ctx, s, pair)
		if err != nil {
			return nil, fmt.Errorf("sentence %d of %d (%s): %w", i+1, len(sentences), pair, err)
		}
		o.Logger.Debug().
			Str("provider", o.Translator.Name()).
			Str("pair", pair.String()).
			Int("sentence", i+1).
			Msg("translated")
		out = append(out, strings.TrimSpace(tr))
		if o.OnProgress != nil {
			o.OnProgress(i+1, len(sentences))
		}
	}
	return out, nil
}
