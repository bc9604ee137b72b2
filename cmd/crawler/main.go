// Command crawler fetches news article URLs (given directly or
// enumerated from feeds), extracts their content, and writes one JSON
// record per article.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"newscrawl/internal/adapt"
	"newscrawl/internal/config"
	"newscrawl/internal/extract"
	"newscrawl/internal/feed"
	"newscrawl/internal/fetcher"
	"newscrawl/internal/models"
	"newscrawl/internal/pipeline"
	"newscrawl/internal/resolver"
)

type cliFlags struct {
	configPath string
	feeds      []string
	query      string
	outputPath string
	render     bool
	verbose    bool
}

var flags cliFlags

var rootCmd = &cobra.Command{
	Use:   "crawler [URL...]",
	Short: "Extract article content from news URLs and feeds",
	Long: `Fetches every given URL (plus all entries of the given feeds),
extracts title, text, metadata and images, and writes one JSON line per
successfully processed article.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && len(flags.feeds) == 0 {
			return fmt.Errorf("provide at least one URL or --feed")
		}
		return nil
	},
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.Flags().StringArrayVarP(&flags.feeds, "feed", "f", nil, "RSS/Atom feed URL to enumerate (repeatable)")
	rootCmd.Flags().StringVarP(&flags.query, "query", "q", "", "query label attached to every record")
	rootCmd.Flags().StringVarP(&flags.outputPath, "output", "o", "-", "output file for JSON lines (- for stdout)")
	rootCmd.Flags().BoolVar(&flags.render, "render", true, "allow escalation to headless-browser rendering")
	rootCmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")
}

func run(cmd *cobra.Command, args []string) error {
	log := newLogger(flags.verbose)

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, closeOut, err := openOutput(flags.outputPath)
	if err != nil {
		return err
	}
	defer closeOut()

	client, err := fetcher.NewClient(cfg, log)
	if err != nil {
		return fmt.Errorf("create fetch client: %w", err)
	}

	var renderer pipeline.Renderer
	if flags.render {
		renderer = fetcher.NewRenderer(cfg, log)
	}

	res := resolver.New(cfg)
	controller := adapt.NewController(cfg, adapt.NewPolicyStore(), res, client, log)
	sink := newJSONLineSink(out)

	p := pipeline.New(cfg, res, extract.NewEngine(cfg), controller, client, renderer, sink, log)

	requests, err := collectRequests(ctx, cfg, args, log)
	if err != nil {
		return err
	}
	if len(requests) == 0 {
		log.Warn().Msg("nothing to crawl")
		return nil
	}

	log.Info().Int("urls", len(requests)).Msg("crawl started")
	p.Run(ctx, requests)

	failures := p.Failures()
	log.Info().
		Int("succeeded", len(requests)-len(failures)).
		Int("failed", len(failures)).
		Msg("crawl finished")
	for _, f := range failures {
		log.Warn().Str("url", f.URL).Str("reason", f.Reason).
			Int("retries", f.RetryCount).Msg("failed url")
	}
	return nil
}

// collectRequests merges the positional URLs with the entries of every
// --feed, keeping feed-supplied metadata as extraction fallbacks.
func collectRequests(ctx context.Context, cfg config.CrawlConfig, urls []string, log zerolog.Logger) ([]pipeline.Request, error) {
	requests := make([]pipeline.Request, 0, len(urls))
	for _, u := range urls {
		requests = append(requests, pipeline.Request{
			URL:  u,
			Meta: models.RequestMeta{Query: flags.query},
		})
	}

	reader := feed.NewReader(cfg.UserAgent)
	for _, feedURL := range flags.feeds {
		items, err := reader.Fetch(ctx, feedURL, flags.query)
		if err != nil {
			// One broken feed should not abort the whole run.
			log.Error().Str("feed", feedURL).Err(err).Msg("feed fetch failed")
			continue
		}
		log.Info().Str("feed", feedURL).Int("items", len(items)).Msg("feed enumerated")
		for _, item := range items {
			requests = append(requests, pipeline.Request{URL: item.Link, Meta: item.Meta})
		}
	}
	return requests, nil
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// jsonLineSink writes each record as one JSON line. Workers emit
// concurrently, so encoding is serialized.
type jsonLineSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newJSONLineSink(w io.Writer) *jsonLineSink {
	return &jsonLineSink{enc: json.NewEncoder(w)}
}

func (s *jsonLineSink) Emit(ctx context.Context, record models.ArticleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(record)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
