// Package pipeline orchestrates a summarization run: scan the codebase,
// summarize every file through a bounded worker pool, chunk the large
// ones, and reduce the results into a master summary. Per-file failures
// are collected and never abort the run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loomshed/codedigest/internal/chunker"
	"github.com/loomshed/codedigest/internal/report"
	"github.com/loomshed/codedigest/internal/scanner"
	"github.com/loomshed/codedigest/internal/tokenizer"
	"github.com/loomshed/codedigest/pkg/types"
)

// Summarizer is the engine surface the pipeline drives. The root
// package's Engine satisfies it.
type Summarizer interface {
	Summarize(ctx context.Context, req *types.SummaryRequest) *types.SummaryResponse
	Aggregate(ctx context.Context, summaries []string) *types.SummaryResponse
	UsageSnapshot() *types.UsageSnapshot
}

// Config controls one pipeline run.
type Config struct {
	// ChunkSize is the chunker's token budget. Files above ChunkSize*4
	// tokens are chunked before summarization.
	ChunkSize    int
	ChunkOverlap int

	// MaxWorkers bounds concurrent file processing.
	MaxWorkers int

	// FileTimeout bounds one file's summarization, chunks included.
	FileTimeout time.Duration

	// Model selects the tokenizer encoding for size decisions.
	Model string
}

// Stats accumulates run counters.
type Stats struct {
	FilesProcessed int           `json:"files_processed"`
	ChunksCreated  int           `json:"chunks_created"`
	FallbacksUsed  int           `json:"fallbacks_used"`
	Errors         []string      `json:"errors"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// Result is the outcome of one run.
type Result struct {
	RunID         string               `json:"run_id"`
	Root          string               `json:"root"`
	MasterSummary string               `json:"master_summary"`
	FileSummaries map[string]string    `json:"file_summaries"`
	Files         []scanner.FileInfo   `json:"files"`
	Stats         Stats                `json:"stats"`
	Usage         *types.UsageSnapshot `json:"usage"`
}

// Pipeline runs summarization over a scanned file set.
type Pipeline struct {
	engine  Summarizer
	scanner *scanner.Scanner
	chunker *chunker.Chunker
	cfg     Config
	logger  *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// New creates a Pipeline. Zero config fields get working defaults.
func New(engine Summarizer, sc *scanner.Scanner, cfg Config, logger *slog.Logger) *Pipeline {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 2000
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 8
	}
	if cfg.FileTimeout <= 0 {
		cfg.FileTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		engine:  engine,
		scanner: sc,
		chunker: chunker.New(cfg.ChunkSize, cfg.ChunkOverlap, cfg.Model),
		cfg:     cfg,
		logger:  logger,
	}
}

// Run scans root and summarizes everything found.
func (p *Pipeline) Run(ctx context.Context, root string) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)

	logger.Info("scanning codebase", "root", root)
	files, err := p.scanner.Scan(root)
	if err != nil {
		return nil, fmt.Errorf("scan codebase: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no suitable files found in %s", root)
	}
	logger.Info("processing files", "count", len(files), "workers", p.cfg.MaxWorkers)

	fileSummaries := p.processFiles(ctx, logger, files)

	logger.Info("aggregating summaries")
	master := p.masterSummary(ctx, logger, files, fileSummaries)

	p.mu.Lock()
	stats := p.stats
	p.mu.Unlock()
	stats.ProcessingTime = time.Since(start)

	return &Result{
		RunID:         runID,
		Root:          root,
		MasterSummary: master,
		FileSummaries: fileSummaries,
		Files:         files,
		Stats:         stats,
		Usage:         p.engine.UsageSnapshot(),
	}, nil
}

// processFiles fans the file list out over the worker pool.
func (p *Pipeline) processFiles(ctx context.Context, logger *slog.Logger, files []scanner.FileInfo) map[string]string {
	summaries := make(map[string]string, len(files))
	var summariesMu sync.Mutex

	work := make(chan scanner.FileInfo)
	var wg sync.WaitGroup
	for w := 0; w < p.cfg.MaxWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for fi := range work {
				summary := p.processFile(ctx, logger, fi)

				summariesMu.Lock()
				summaries[fi.RelPath] = summary
				summariesMu.Unlock()

				p.mu.Lock()
				p.stats.FilesProcessed++
				p.mu.Unlock()
			}
		}()
	}

	for _, fi := range files {
		work <- fi
	}
	close(work)
	wg.Wait()

	return summaries
}

func (p *Pipeline) processFile(ctx context.Context, logger *slog.Logger, fi scanner.FileInfo) string {
	fileCtx, cancel := context.WithTimeout(ctx, p.cfg.FileTimeout)
	defer cancel()

	raw, err := os.ReadFile(fi.Path)
	if err != nil {
		return p.recordError(fmt.Sprintf("Failed to process %s: %v", fi.RelPath, err))
	}
	content := string(raw)
	if strings.TrimSpace(content) == "" {
		return "Empty file"
	}

	if tokenizer.CountTokens(content, p.cfg.Model) > p.cfg.ChunkSize*4 {
		return p.processLargeFile(fileCtx, logger, fi, content)
	}

	resp := p.engine.Summarize(fileCtx, &types.SummaryRequest{
		Content:    content,
		Identifier: fi.RelPath,
		Language:   fi.Language,
		ChunkType:  types.ChunkTypeFile,
		Metadata:   map[string]any{"size": fi.Size, "extension": fi.Extension},
	})
	p.trackFallback(logger, resp, fi.RelPath)
	if resp.Failed() {
		return p.recordError(fmt.Sprintf("Failed to process %s: %s", fi.RelPath, resp.Error))
	}
	return resp.Summary
}

// processLargeFile chunks the content and summarizes each chunk,
// tolerating individual chunk failures.
func (p *Pipeline) processLargeFile(ctx context.Context, logger *slog.Logger, fi scanner.FileInfo, content string) string {
	chunks := p.chunker.ChunkFile(fi.Language, content)

	p.mu.Lock()
	p.stats.ChunksCreated += len(chunks)
	p.mu.Unlock()

	var chunkSummaries []string
	for _, ch := range chunks {
		meta := map[string]any{}
		for k, v := range ch.Metadata {
			meta[k] = v
		}
		resp := p.engine.Summarize(ctx, &types.SummaryRequest{
			Content:    ch.Content,
			Identifier: fmt.Sprintf("%s:%d-%d", fi.RelPath, ch.StartLine, ch.EndLine),
			Language:   ch.Language,
			ChunkType:  ch.Type,
			Metadata:   meta,
		})
		p.trackFallback(logger, resp, fi.RelPath)
		if resp.Failed() {
			logger.Warn("chunk summarization failed",
				"file", fi.RelPath,
				"lines", fmt.Sprintf("%d-%d", ch.StartLine, ch.EndLine),
				"error", resp.Error)
			continue
		}
		chunkSummaries = append(chunkSummaries, resp.Summary)
	}

	if len(chunkSummaries) == 0 {
		return p.recordError(fmt.Sprintf("Could not summarize file %s (all chunks failed)", fi.RelPath))
	}
	return "File summary (chunked):\n" + strings.Join(chunkSummaries, "\n\n")
}

// masterSummary aggregates the valid per-file summaries; if aggregation
// itself fails, it degrades to a grouped-by-language concatenation.
func (p *Pipeline) masterSummary(ctx context.Context, logger *slog.Logger, files []scanner.FileInfo, fileSummaries map[string]string) string {
	var valid []string
	for _, fi := range files {
		summary, ok := fileSummaries[fi.RelPath]
		if ok && !strings.HasPrefix(summary, "Error:") {
			valid = append(valid, summary)
		}
	}
	if len(valid) == 0 {
		return "No valid summaries could be generated."
	}

	resp := p.engine.Aggregate(ctx, valid)
	p.trackFallback(logger, resp, "aggregation")
	if resp.Failed() {
		logger.Warn("aggregation failed, using grouped fallback", "error", resp.Error)
		p.recordError(fmt.Sprintf("Aggregation failed: %s", resp.Error))
		return report.FallbackSummary(files, fileSummaries)
	}
	return resp.Summary
}

func (p *Pipeline) trackFallback(logger *slog.Logger, resp *types.SummaryResponse, what string) {
	if !resp.FallbackUsed || resp.Failed() {
		return
	}
	p.mu.Lock()
	p.stats.FallbacksUsed++
	p.mu.Unlock()
	logger.Info("used fallback provider", "provider", resp.ProviderUsed, "for", what)
}

// recordError appends to the run's error list and returns the
// error-prefixed summary placeholder.
func (p *Pipeline) recordError(msg string) string {
	p.mu.Lock()
	p.stats.Errors = append(p.stats.Errors, msg)
	p.mu.Unlock()
	return "Error: " + msg
}
