// Package main is the codedigest command line tool: scan a codebase,
// summarize it through the configured provider chain, and write the
// report.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/loomshed/codedigest"
	"github.com/loomshed/codedigest/internal/config"
	"github.com/loomshed/codedigest/internal/observability"
	"github.com/loomshed/codedigest/internal/pipeline"
	"github.com/loomshed/codedigest/internal/report"
	"github.com/loomshed/codedigest/internal/scanner"
)

type cliFlags struct {
	configPath string
	output     string
	format     string
	workers    int
	chunkSize  int
	noFallback bool
	logLevel   string
	logFile    string
	quiet      bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &cliFlags{}

	cmd := &cobra.Command{
		Use:   "codedigest [path]",
		Short: "Summarize a codebase with AI providers",
		Long: "codedigest walks a codebase, summarizes each source file through a\n" +
			"fallback chain of AI providers, and aggregates the results into a\n" +
			"master report.",
		Args:    cobra.MaximumNArgs(1),
		Version: codedigest.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			return run(cmd, root, flags)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "path to YAML config file")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file path")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "output format: markdown, json, or text")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "number of parallel workers")
	cmd.Flags().IntVar(&flags.chunkSize, "chunk-size", 0, "chunk size in tokens")
	cmd.Flags().BoolVar(&flags.noFallback, "no-fallback", false, "disable provider fallback")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.Flags().StringVar(&flags.logFile, "log-file", "", "write logs to a rotating file")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "suppress the usage summary")

	return cmd
}

// buildConfig layers the configuration sources: file defaults, then
// flags, then environment autodetection for a missing model chain.
func buildConfig(flags *cliFlags) (*config.Config, error) {
	cfg := config.Default()
	if flags.configPath != "" {
		loaded, err := config.LoadFromFile(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if flags.output != "" {
		cfg.Output.Path = flags.output
	}
	if flags.format != "" {
		cfg.Output.Format = flags.format
	}
	if flags.workers > 0 {
		cfg.Processing.MaxWorkers = flags.workers
	}
	if flags.chunkSize > 0 {
		cfg.Chunking.ChunkSize = flags.chunkSize
	}
	if flags.noFallback {
		cfg.Processing.FallbackEnabled = false
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logFile != "" {
		cfg.Logging.File = flags.logFile
	}

	if len(cfg.Models) == 0 {
		cfg.Models = config.FromEnvironment()
	}
	if len(cfg.Models) == 0 {
		return nil, fmt.Errorf("no models configured: provide a config file or set " +
			"OPENAI_API_KEY, ANTHROPIC_API_KEY, or PPLX_API_KEY")
	}
	return cfg, cfg.Validate()
}

func run(cmd *cobra.Command, root string, flags *cliFlags) error {
	cfg, err := buildConfig(flags)
	if err != nil {
		return err
	}

	logFormat := cfg.Logging.Format
	if logFormat == "" || flags.configPath == "" {
		// Text logs on a terminal, JSON when piped.
		if term.IsTerminal(int(os.Stderr.Fd())) {
			logFormat = "text"
		} else {
			logFormat = "json"
		}
	}
	logger := observability.NewLogger(observability.Config{
		Level:    cfg.Logging.Level,
		Format:   logFormat,
		FilePath: cfg.Logging.File,
	})

	model := ""
	if len(cfg.Models) > 0 {
		model = cfg.Models[0].Model
	}

	engine, err := codedigest.New(cfg.Models,
		codedigest.WithLogger(logger),
		codedigest.WithRetryAttempts(cfg.Processing.RetryAttempts),
		codedigest.WithFallback(cfg.Processing.FallbackEnabled),
		codedigest.WithChunkSizeThreshold(cfg.Chunking.ChunkSize),
	)
	if err != nil {
		return err
	}

	sc := scanner.New(
		scanner.WithLogger(logger),
		scanner.WithMaxFileSize(cfg.Filtering.MaxFileSize),
		scanner.WithIncludePatterns(cfg.Filtering.IncludePatterns),
		scanner.WithExcludePatterns(cfg.Filtering.ExcludePatterns),
	)

	p := pipeline.New(engine, sc, pipeline.Config{
		ChunkSize:    cfg.Chunking.ChunkSize,
		ChunkOverlap: cfg.Chunking.ChunkOverlap,
		MaxWorkers:   cfg.Processing.MaxWorkers,
		FileTimeout:  cfg.Processing.Timeout,
		Model:        model,
	}, logger)

	result, err := p.Run(cmd.Context(), root)
	if err != nil {
		return err
	}

	content, err := report.Render(&report.Data{
		Root:           result.Root,
		GeneratedAt:    time.Now(),
		MasterSummary:  result.MasterSummary,
		FileSummaries:  result.FileSummaries,
		FilesProcessed: result.Stats.FilesProcessed,
		ChunksCreated:  result.Stats.ChunksCreated,
		FallbacksUsed:  result.Stats.FallbacksUsed,
		Errors:         result.Stats.Errors,
		ProcessingTime: result.Stats.ProcessingTime,
		Usage:          result.Usage,
	}, cfg.Output.Format)
	if err != nil {
		return err
	}
	if err := report.Write(cfg.Output.Path, content); err != nil {
		return err
	}

	if !flags.quiet {
		usage := result.Usage
		fmt.Fprintf(cmd.OutOrStdout(), "Summary written to %s\n", cfg.Output.Path)
		fmt.Fprintf(cmd.OutOrStdout(), "Files: %d  Chunks: %d  Requests: %d  Tokens: %d  Est. cost: $%.4f\n",
			result.Stats.FilesProcessed, result.Stats.ChunksCreated,
			usage.TotalRequests, usage.TotalTokensUsed, usage.EstimatedCost)
		if len(result.Stats.Errors) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Errors: %d (see report)\n", len(result.Stats.Errors))
		}
	}
	return nil
}
