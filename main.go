package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/ragprep/ragprep/models"
	"github.com/ragprep/ragprep/pkg/chunker"
	"github.com/ragprep/ragprep/pkg/extractor"
	"github.com/ragprep/ragprep/pkg/pipeline"
	"github.com/ragprep/ragprep/pkg/store"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	app := &cli.App{
		Name:  "ragprep",
		Usage: "prepare raw documents for embedding: extract, convert, chunk",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logging"},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			extractCommand(),
			chunkCommand(),
			ingestCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

// loadConfig resolves the effective config: file if given, defaults otherwise.
func loadConfig(c *cli.Context) (models.Config, error) {
	if path := c.String("config"); path != "" {
		return models.LoadConfig(path)
	}
	return models.DefaultConfig(), nil
}

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "extract the main content region from an HTML file",
		ArgsUsage: "<file.html>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "base-url", Usage: "resolve relative URLs against this base"},
			&cli.BoolFlag{Name: "readability", Usage: "use readability extraction instead of the heuristic pipeline"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write cleaned HTML to a file instead of stdout"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one input file")
			}

			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if base := c.String("base-url"); base != "" {
				cfg.Extraction.BaseURL = base
				cfg.Extraction.ResolveRelativeURLs = true
			}

			ext, err := extractor.New(cfg.Extraction, log.Logger)
			if err != nil {
				return err
			}
			if c.Bool("readability") {
				ext.SetMode(extractor.ModeReadability)
			}

			data, err := os.ReadFile(c.Args().First())
			if err != nil {
				return fmt.Errorf("failed to read input file: %w", err)
			}

			meta := make(map[string]string)
			cleaned, err := ext.Extract(string(data), meta)
			if err != nil {
				return err
			}
			if title, ok := meta["title"]; ok {
				log.Info().Str("title", title).Msg("extracted content")
			}

			return writeOutput(c.String("output"), []byte(cleaned))
		},
	}
}

func chunkCommand() *cli.Command {
	return &cli.Command{
		Name:      "chunk",
		Usage:     "split a Markdown file into chunks and print them as YAML",
		ArgsUsage: "<file.md>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "min", Usage: "minimum chunk size in tokens"},
			&cli.IntFlag{Name: "target", Usage: "target chunk size in tokens"},
			&cli.IntFlag{Name: "max", Usage: "maximum chunk size in tokens"},
			&cli.Float64Flag{Name: "overlap", Usage: "overlap fraction carried between chunks"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write YAML to a file instead of stdout"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one input file")
			}

			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			applyChunkFlags(c, &cfg.Chunking)

			ck, err := chunker.New(cfg.Chunking, nil)
			if err != nil {
				return err
			}

			path := c.Args().First()
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read input file: %w", err)
			}

			docID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			chunks, err := ck.Chunk(string(data), docID, nil)
			if err != nil {
				return err
			}

			out, err := yaml.Marshal(chunks)
			if err != nil {
				return fmt.Errorf("failed to marshal chunks: %w", err)
			}
			return writeOutput(c.String("output"), out)
		},
	}
}

func applyChunkFlags(c *cli.Context, cfg *models.ChunkingConfig) {
	if c.IsSet("min") {
		cfg.MinTokens = c.Int("min")
	}
	if c.IsSet("target") {
		cfg.TargetTokens = c.Int("target")
	}
	if c.IsSet("max") {
		cfg.MaxTokens = c.Int("max")
	}
	if c.IsSet("overlap") {
		cfg.OverlapPercentage = c.Float64("overlap")
	}
}

// ingestJob and ingestResult carry work through the ingest worker pool.
type ingestJob struct {
	Path string
}

type ingestResult struct {
	Path       string
	DocumentID string
	Chunks     int
	Err        error
}

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "run files through the full pipeline and persist the chunks",
		ArgsUsage: "<files...>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", Usage: "SQLite database path (overrides config)"},
			&cli.StringFlag{Name: "out", Usage: "directory for YAML chunk artifacts (overrides config)"},
			&cli.IntFlag{Name: "workers", Value: 4, Usage: "number of concurrent workers"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("expected at least one input file")
			}

			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if db := c.String("db"); db != "" {
				cfg.DBPath = db
			}
			if out := c.String("out"); out != "" {
				cfg.OutputDir = out
			}

			p, err := pipeline.New(cfg, log.Logger)
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()
			p.SetStore(st)

			if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			workers := c.Int("workers")
			if workers < 1 {
				workers = 1
			}

			jobs := make(chan ingestJob, c.NArg())
			results := make(chan ingestResult, c.NArg())

			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go ingestWorker(p, cfg.OutputDir, &wg, jobs, results)
			}

			for _, path := range c.Args().Slice() {
				jobs <- ingestJob{Path: path}
			}
			close(jobs)

			wg.Wait()
			close(results)

			failed := 0
			for res := range results {
				if res.Err != nil {
					failed++
					log.Error().Err(res.Err).Str("path", res.Path).Msg("ingest failed")
					continue
				}
				log.Info().
					Str("path", res.Path).
					Str("document_id", res.DocumentID).
					Int("chunks", res.Chunks).
					Msg("ingested")
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, c.NArg())
			}
			return nil
		},
	}
}

// ingestWorker processes jobs until the channel closes. Each document runs
// through the pipeline independently; one bad file never stops the batch.
func ingestWorker(p *pipeline.Pipeline, outDir string, wg *sync.WaitGroup, jobs <-chan ingestJob, results chan<- ingestResult) {
	defer wg.Done()
	for job := range jobs {
		res := ingestResult{Path: job.Path}

		data, err := os.ReadFile(job.Path)
		if err != nil {
			res.Err = fmt.Errorf("failed to read file: %w", err)
			results <- res
			continue
		}

		var out *pipeline.Result
		switch strings.ToLower(filepath.Ext(job.Path)) {
		case ".html", ".htm":
			out, err = p.IngestHTML("file://"+job.Path, string(data))
		default:
			out, err = p.IngestMarkdown("file://"+job.Path, string(data))
		}
		if err != nil {
			res.Err = err
			results <- res
			continue
		}

		if err := writeArtifact(outDir, out); err != nil {
			res.Err = err
			results <- res
			continue
		}

		res.DocumentID = out.DocumentID
		res.Chunks = len(out.Chunks)
		results <- res
	}
}

// chunkArtifact is the YAML document written per ingested file.
type chunkArtifact struct {
	DocumentID string                   `yaml:"document_id"`
	Metadata   *models.DocumentMetadata `yaml:"metadata,omitempty"`
	Chunks     []models.DocumentChunk   `yaml:"chunks"`
}

func writeArtifact(outDir string, res *pipeline.Result) error {
	data, err := yaml.Marshal(chunkArtifact{
		DocumentID: res.DocumentID,
		Metadata:   res.Metadata,
		Chunks:     res.Chunks,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	path := filepath.Join(outDir, res.DocumentID+".yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
