// lehrer renders language-learning blocks as sentence-aligned tables of
// original text and translation.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/minios-linux/lehrer/block"
	"github.com/minios-linux/lehrer/config"
	"github.com/minios-linux/lehrer/i18n"
	"github.com/minios-linux/lehrer/langmeta"
	"github.com/minios-linux/lehrer/mdfile"
	"github.com/minios-linux/lehrer/pipeline"
	"github.com/minios-linux/lehrer/render"
	"github.com/minios-linux/lehrer/sentence"
	"github.com/minios-linux/lehrer/server"
	"github.com/minios-linux/lehrer/settings"
	"github.com/minios-linux/lehrer/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// logger is replaced in the root PersistentPreRunE once the config is known.
var logger = newLogger(config.LogConfig{Level: "info", Format: "console"}, false)

func newLogger(lc config.LogConfig, verbose bool) zerolog.Logger {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil || lc.Level == "" {
		level = zerolog.InfoLevel
	}
	if verbose && level > zerolog.DebugLevel {
		level = zerolog.DebugLevel
	}

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	if lc.Format == "json" {
		out = os.Stderr
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func logInfo(format string, args ...any) {
	logger.Info().Msgf(format, args...)
}

func logWarning(format string, args ...any) {
	logger.Warn().Msgf(format, args...)
}

func logError(format string, args ...any) {
	logger.Error().Msgf(format, args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	configPath string
	verbose    bool
	uiLang     string

	// cfg is loaded by the root PersistentPreRunE.
	cfg *config.Config
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lehrer",
		Short: "Sentence-aligned translation tables for language learners",
		Long: `lehrer: sentence-aligned translation tables for language learners.

A block is plain text with an optional language header:

  de
  uk

  Guten Tag. Wie geht es dir?

  Добрий день. Як справи?

The first fragment names the source and target languages (or only the
target). The next fragment is the original text, the one after it the
translation. A missing translation is fetched from the configured
provider, one sentence at a time.

Commands:
  render      Render lehrer blocks from a Markdown file or a raw block
  sentences   Print the sentences of a text, one per line
  serve       Serve the renderer over HTTP
  auth        Manage provider API keys

Providers:
  google   Google Translate web endpoint (no key)
  deepl    DeepL API (key required)
  openai   Any OpenAI-compatible chat endpoint`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			i18n.Init(uiLang)
			c, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = c
			logger = newLogger(cfg.Log, verbose)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ./"+config.FileName+")")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&uiLang, "lang", "", "Interface language (default: from LANGUAGE/LC_ALL/LANG)")

	root.AddCommand(
		newRenderCmd(),
		newSentencesCmd(),
		newServeCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "lehrer version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// Shared pipeline flags
// ---------------------------------------------------------------------------

type pipelineFlags struct {
	provider    string
	apiKey      string
	model       string
	baseURL     string
	target      string
	source      string
	separator   string
	timeout     time.Duration
	proxy       string
	noTranslate bool
}

func (pf *pipelineFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&pf.provider, "provider", "", "Translation provider: "+strings.Join(translate.ProviderIDs(), ", "))
	fs.StringVar(&pf.apiKey, "api-key", "", "API key (or "+settings.EnvAPIKey+" env var)")
	fs.StringVar(&pf.model, "model", "", "Chat model (openai provider)")
	fs.StringVar(&pf.baseURL, "base-url", "", "Custom API base URL")
	fs.StringVarP(&pf.target, "target", "t", "", "Target language for blocks that declare none")
	fs.StringVarP(&pf.source, "source", "s", "", "Source language for blocks that declare none (default: auto)")
	fs.StringVar(&pf.separator, "separator", "", "Fragment separator: single or double blank line")
	fs.DurationVar(&pf.timeout, "timeout", 0, "Request timeout (0 = provider default)")
	fs.StringVar(&pf.proxy, "proxy", "", "HTTP/HTTPS proxy URL")
	fs.BoolVar(&pf.noTranslate, "no-translate", false, "Never call the provider; missing translations stay empty")
}

func registerProviderCompletion(cmd *cobra.Command) {
	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"google\tGoogle Translate web endpoint (no key)",
			"deepl\tDeepL API (key required)",
			"openai\tOpenAI-compatible chat endpoint",
		}, cobra.ShellCompDirectiveNoFileComp
	})
}

// apply copies the set flags over c and validates the result.
func (pf *pipelineFlags) apply(c *config.Config) error {
	if pf.provider != "" {
		c.Provider.Name = strings.ToLower(pf.provider)
	}
	if pf.model != "" {
		c.Provider.Model = pf.model
	}
	if pf.baseURL != "" {
		c.Provider.BaseURL = pf.baseURL
	}
	if pf.separator != "" {
		c.Separator = strings.ToLower(pf.separator)
	}
	if pf.timeout > 0 {
		c.Provider.Timeout = pf.timeout
	}
	if pf.proxy != "" {
		c.Provider.Proxy = pf.proxy
	}
	for _, code := range []string{pf.target, pf.source} {
		if code != "" && (len(code) != 2 || !langmeta.Valid(code)) {
			return fmt.Errorf(i18n.T("%q is not a two-letter language code"), code)
		}
	}
	return c.Validate()
}

// defaults returns the fallback options for blocks: flags first, then the
// document's front matter, then the config file. The config's target is
// left to the orchestrator, so it only names a block that gets translated.
func (pf *pipelineFlags) defaults(c *config.Config, doc block.Options) block.Options {
	return block.Options{Source: strings.ToLower(pf.source), Target: strings.ToLower(pf.target)}.
		WithDefaults(doc.Source, doc.Target).
		WithDefaults(c.DefaultSource, "")
}

// newRunner wires provider, cache and orchestrator into a pipeline runner.
func (pf *pipelineFlags) newRunner(c *config.Config) (*pipeline.Runner, error) {
	r := &pipeline.Runner{
		Separator: c.SeparatorPolicy(),
		Defaults:  pf.defaults(c, block.Options{}),
		Logger:    logger.With().Str("component", "pipeline").Logger(),
	}
	if pf.noTranslate {
		return r, nil
	}

	prov := c.TranslateProvider(settings.ResolveAPIKey(pf.apiKey, c.Provider.Name))
	if prov.BaseURL == "" {
		if info := settings.Get(c.Provider.Name); info != nil {
			prov.BaseURL = info.BaseURL
		}
	}
	tr, err := translate.New(prov, logger.With().Str("provider", prov.ID).Logger())
	if err != nil {
		if errors.Is(err, translate.ErrNoAPIKey) {
			return nil, fmt.Errorf("%w: "+i18n.T("run 'lehrer auth set %s' or pass --api-key"), err, prov.ID)
		}
		return nil, err
	}

	r.Orchestrator = &translate.Orchestrator{
		Translator:    translate.NewCache(tr, c.Cache.Size, logger),
		DefaultTarget: c.DefaultTarget,
		Logger:        logger,
		OnProgress: func(done, total int) {
			logger.Debug().Int("done", done).Int("total", total).Msg(i18n.T("translating"))
		},
	}
	return r, nil
}

// readInput reads path, or stdin for "" and "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// parseDocument parses the Markdown document at path, or stdin for "" and "-".
func parseDocument(cmd *cobra.Command, path string) (*mdfile.File, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, err
		}
		return mdfile.Parse(data, cfg.Fence)
	}
	return mdfile.ParseFile(path, cfg.Fence)
}

// logCacheStats reports the translation cache counters of r, if it has one.
func logCacheStats(r *pipeline.Runner) {
	if r.Orchestrator == nil {
		return
	}
	c, ok := r.Orchestrator.Translator.(*translate.Cache)
	if !ok {
		return
	}
	hits, misses, entries := c.Stats()
	logger.Debug().Int("hits", hits).Int("misses", misses).Int("entries", entries).Msg("translation cache")
}

// ---------------------------------------------------------------------------
// render
// ---------------------------------------------------------------------------

type renderArgs struct {
	pipelineFlags
	format string
	raw    bool
	output string
}

func newRenderCmd() *cobra.Command {
	var a renderArgs

	cmd := &cobra.Command{
		Use:   "render [FILE|-]",
		Short: "Render lehrer blocks as tables",
		Long: `Render every fenced lehrer block of a Markdown file (or stdin).

Blocks are fenced code blocks whose info string is the configured fence
name ("lang" by default). A "lehrer:" key in the document's front matter
sets default source and target languages.

Examples:
  # Render all blocks of a lesson as Markdown tables
  lehrer render lesson.md --format markdown

  # Render a single raw block from stdin
  echo -e "de\nuk\n\nGuten Tag." | lehrer render --block

  # Write a copy of the lesson with every block replaced by an HTML table
  lehrer render lesson.md --format html -o lesson.rendered.md`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			return runRender(cmd, a, path)
		},
	}

	a.register(cmd.Flags())
	cmd.Flags().StringVarP(&a.format, "format", "f", string(render.FormatText), "Output format: "+strings.Join(render.Formats(), ", "))
	cmd.Flags().BoolVar(&a.raw, "block", false, "Treat the input as one raw block instead of Markdown")
	cmd.Flags().StringVarP(&a.output, "output", "o", "", "Write the document with blocks replaced by tables to this file")
	registerProviderCompletion(cmd)
	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return render.Formats(), cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

// blockResult is one rendered block in --format json document output.
type blockResult struct {
	Line int `json:"line"`
	*pipeline.Result
}

func runRender(cmd *cobra.Command, a renderArgs, path string) error {
	format, err := render.ParseFormat(a.format)
	if err != nil {
		return err
	}
	if err := a.apply(cfg); err != nil {
		return err
	}
	runner, err := a.newRunner(cfg)
	if err != nil {
		return err
	}
	defer logCacheStats(runner)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()

	if a.raw {
		data, err := readInput(cmd, path)
		if err != nil {
			return err
		}
		res, err := runner.Run(ctx, string(data))
		if err != nil {
			return err
		}
		return render.Write(out, format, res)
	}

	doc, err := parseDocument(cmd, path)
	if err != nil {
		return err
	}
	if len(doc.Blocks) == 0 {
		logWarning(i18n.T("No %q blocks found"), cfg.Fence)
		return nil
	}
	runner.Defaults = a.defaults(cfg, doc.Defaults)
	logger.Debug().Int("blocks", len(doc.Blocks)).Str("fence", cfg.Fence).Msg("document parsed")

	run := func(b mdfile.Block) (*pipeline.Result, error) {
		res, err := runner.Run(ctx, b.Body)
		if err != nil {
			return nil, fmt.Errorf(i18n.T("block at line %d: %w"), b.Line, err)
		}
		return res, nil
	}

	if a.output != "" {
		if format == render.FormatJSON {
			return errors.New(i18n.T("--output needs an html, markdown or text format"))
		}
		err := doc.WriteFile(a.output, func(b mdfile.Block) (string, error) {
			res, err := run(b)
			if err != nil {
				return "", err
			}
			var sb strings.Builder
			if format == render.FormatText {
				sb.WriteString("```\n")
			}
			if err := render.Write(&sb, format, res); err != nil {
				return "", err
			}
			if format == render.FormatText {
				sb.WriteString("```\n")
			}
			return sb.String(), nil
		})
		if err != nil {
			return err
		}
		logInfo(i18n.N("Rendered %d block into %s", "Rendered %d blocks into %s", len(doc.Blocks)), len(doc.Blocks), a.output)
		return nil
	}

	if format == render.FormatJSON {
		results := make([]blockResult, 0, len(doc.Blocks))
		for _, b := range doc.Blocks {
			res, err := run(b)
			if err != nil {
				return err
			}
			results = append(results, blockResult{Line: b.Line, Result: res})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	for i, b := range doc.Blocks {
		res, err := run(b)
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(out)
		}
		if format == render.FormatText && len(doc.Blocks) > 1 {
			fmt.Fprintf(out, i18n.T("Block at line %d")+"\n\n", b.Line)
		}
		if err := render.Write(out, format, res); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// sentences
// ---------------------------------------------------------------------------

func newSentencesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sentences [FILE|-]",
		Short: "Split text into sentences, one per line",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			data, err := readInput(cmd, path)
			if err != nil {
				return err
			}
			w := bufio.NewWriter(cmd.OutOrStdout())
			for _, s := range sentence.Tokenize(string(data)) {
				fmt.Fprintln(w, s)
			}
			return w.Flush()
		},
	}
}

// ---------------------------------------------------------------------------
// serve
// ---------------------------------------------------------------------------

func newServeCmd() *cobra.Command {
	var (
		pf     pipelineFlags
		listen string
		slow   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the renderer over HTTP",
		Long: `Start an HTTP server for editor plugins.

Endpoints:
  POST /v1/render      block as text/plain, or JSON {"block": "...", "separator": "double"}
                       ?format=html|markdown|text returns a rendered table instead of JSON
  POST /v1/sentences   text as text/plain, or JSON {"text": "..."}
  GET  /healthz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				cfg.Server.Listen = listen
			}
			if err := pf.apply(cfg); err != nil {
				return err
			}
			runner, err := pf.newRunner(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(server.Options{
				Runner:         runner,
				AllowedOrigins: cfg.Server.AllowedOrigins,
				MaxBodyBytes:   cfg.Server.MaxBodyBytes,
				Slow:           slow,
				Logger:         logger.With().Str("component", "http").Logger(),
			})
			err = srv.Run(ctx, cfg.Server.Listen)
			logCacheStats(runner)
			return err
		},
	}

	pf.register(cmd.Flags())
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default from config: 127.0.0.1:8740)")
	cmd.Flags().DurationVar(&slow, "slow", 2*time.Second, "Log requests slower than this as warnings (0 = off)")
	registerProviderCompletion(cmd)
	return cmd
}

// ---------------------------------------------------------------------------
// auth
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider API keys",
		Long: `Manage API keys for translation providers.

Keys are stored in $XDG_DATA_HOME/lehrer/auth.json (mode 0600).
` + settings.EnvAPIKey + ` and --api-key override the stored key.

Examples:
  lehrer auth set deepl                     Prompt for a DeepL key
  lehrer auth set openai --key sk-...       Store an OpenAI key
  lehrer auth set openai --base-url http://localhost:11434/v1
  lehrer auth list                          Show stored keys
  lehrer auth remove deepl                  Remove the DeepL key`,
	}

	cmd.AddCommand(
		newAuthSetCmd(),
		newAuthListCmd(),
		newAuthRemoveCmd(),
	)
	return cmd
}

func newAuthSetCmd() *cobra.Command {
	var key, baseURL string

	cmd := &cobra.Command{
		Use:       "set PROVIDER",
		Short:     "Store an API key for a provider",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{translate.ProviderDeepL, translate.ProviderOpenAI},
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.ToLower(args[0])
			if _, ok := translate.DefaultProviders()[id]; !ok {
				return fmt.Errorf(i18n.T("unknown provider %q (valid: %s)"), id, strings.Join(translate.ProviderIDs(), ", "))
			}

			if key == "" && baseURL == "" {
				existing := settings.Get(id)
				if existing != nil && existing.Key != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), i18n.T("Current key: %s")+"\n", settings.MaskKey(existing.Key))
				}
				fmt.Fprint(cmd.ErrOrStderr(), i18n.T("Enter API key: "))
				scanner := bufio.NewScanner(cmd.InOrStdin())
				if !scanner.Scan() {
					return errors.New(i18n.T("no input received"))
				}
				key = strings.TrimSpace(scanner.Text())
				if key == "" {
					return errors.New(i18n.T("no API key provided"))
				}
			}

			if err := settings.SetAPIKey(id, key, baseURL); err != nil {
				return fmt.Errorf(i18n.T("saving API key: %w"), err)
			}
			logInfo(i18n.T("Credentials for %s saved to %s"), id, settings.FilePath())
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "API key (prompted when omitted)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Endpoint override (OpenAI-compatible servers)")
	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show stored credentials",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			ids := settings.Providers()
			if len(ids) == 0 {
				fmt.Fprintln(out, i18n.T("No stored credentials."))
			}
			for _, id := range ids {
				info := settings.Get(id)
				status := i18n.T("no key")
				if info.Key != "" {
					status = settings.MaskKey(info.Key)
				}
				if info.BaseURL != "" {
					status += "  " + info.BaseURL
				}
				fmt.Fprintf(out, "%-8s %s\n", id, status)
			}
			if env := os.Getenv(settings.EnvAPIKey); env != "" {
				fmt.Fprintf(out, "%s: %s (%s)\n", settings.EnvAPIKey, settings.MaskKey(env), i18n.T("overrides stored keys"))
			}
		},
	}
}

func newAuthRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove PROVIDER",
		Aliases: []string{"rm"},
		Short:   "Remove stored credentials for a provider",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.ToLower(args[0])
			if settings.Get(id) == nil {
				logWarning(i18n.T("No credentials stored for %s"), id)
				return nil
			}
			if err := settings.Remove(id); err != nil {
				return err
			}
			logInfo(i18n.T("Removed credentials for %s"), id)
			return nil
		},
	}
}
