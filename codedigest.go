// Package codedigest summarizes codebases with interchangeable LLM
// backends. Files are scanned, large ones split into semantically
// coherent chunks, each unit summarized by the first healthy provider in
// a configured fallback chain, and the per-file summaries reduced into a
// master report.
//
// The Engine in this package is the request core: ordered failover
// across providers, per-provider retry with exponential backoff,
// token-budget-aware truncation, and hierarchical aggregation. The
// surrounding tool (scanner, chunker, pipeline, report) lives under
// internal/ and is driven by cmd/codedigest.
//
// Basic usage:
//
//	engine, err := codedigest.New([]codedigest.ModelConfig{
//		{Provider: "openai", Model: "gpt-4", APIKey: key},
//		{Provider: "anthropic", Model: "claude-3-sonnet-20240229", APIKey: key2},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	resp := engine.Summarize(ctx, &codedigest.SummaryRequest{
//		Content:    source,
//		Identifier: "pkg/server/server.go",
//		Language:   "golang",
//		ChunkType:  codedigest.ChunkTypeFile,
//	})
package codedigest

import (
	"github.com/loomshed/codedigest/pkg/types"
)

// Version is the current library version.
const Version = "0.3.1"

// Re-exported types so library consumers only import the root package.
type (
	ModelConfig     = types.ModelConfig
	SummaryRequest  = types.SummaryRequest
	SummaryResponse = types.SummaryResponse
	UsageSnapshot   = types.UsageSnapshot
	ProviderStats   = types.ProviderStats
)

// Chunk type labels for SummaryRequest.ChunkType.
const (
	ChunkTypeFile     = types.ChunkTypeFile
	ChunkTypeFunction = types.ChunkTypeFunction
	ChunkTypeClass    = types.ChunkTypeClass
	ChunkTypeBlock    = types.ChunkTypeBlock
	ChunkTypeUnknown  = types.ChunkTypeUnknown
)
