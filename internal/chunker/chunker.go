// Package chunker splits source files into semantically coherent chunks.
// Languages with declaration patterns (python, rust, golang,
// javascript/typescript) are cut at function/class boundaries; anything
// else falls back to token-budget chunking with line overlap.
package chunker

import (
	"regexp"
	"sort"
	"strings"

	"github.com/loomshed/codedigest/internal/tokenizer"
)

// minChunkTokens drops declaration chunks too small to be worth a
// provider request.
const minChunkTokens = 50

// Chunk is one unit of a split file.
type Chunk struct {
	Content   string            `json:"content"`
	StartLine int               `json:"start_line"`
	EndLine   int               `json:"end_line"`
	Type      string            `json:"type"` // function, class, struct, block, ...
	Language  string            `json:"language"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type declPattern struct {
	kind  string
	regex *regexp.Regexp
}

// Declaration patterns per language, tried in order. A match opens a
// block that runs to the end of its indentation level (python) or until
// its braces balance.
var languagePatterns = map[string][]declPattern{
	"python": {
		{"function", regexp.MustCompile(`(?m)^(async\s+)?def\s+\w+.*:`)},
		{"class", regexp.MustCompile(`(?m)^class\s+\w+.*:`)},
	},
	"rust": {
		{"function", regexp.MustCompile(`(?m)^(pub\s+)?(async\s+)?fn\s+\w+.*\{`)},
		{"struct", regexp.MustCompile(`(?m)^(pub\s+)?struct\s+\w+.*\{`)},
		{"impl", regexp.MustCompile(`(?m)^impl.*\{`)},
		{"mod", regexp.MustCompile(`(?m)^(pub\s+)?mod\s+\w+`)},
	},
	"golang": {
		{"function", regexp.MustCompile(`(?m)^func\s+(\([^)]*\)\s+)?\w+.*\{`)},
		{"type", regexp.MustCompile(`(?m)^type\s+\w+.*`)},
	},
	"javascript": {
		{"function", regexp.MustCompile(`(?m)^(async\s+)?function\s+\w+.*\{`)},
		{"class", regexp.MustCompile(`(?m)^class\s+\w+.*\{`)},
		{"const", regexp.MustCompile(`(?m)^(export\s+)?const\s+\w+\s*=`)},
	},
}

// Chunker splits file content under a token budget.
type Chunker struct {
	chunkSize int
	overlap   int
	model     string
}

// New creates a Chunker. chunkSize and overlap are token counts; model
// selects the tokenizer encoding.
func New(chunkSize, overlap int, model string) *Chunker {
	return &Chunker{chunkSize: chunkSize, overlap: overlap, model: model}
}

// ChunkFile splits content according to the file's language.
func (c *Chunker) ChunkFile(language, content string) []Chunk {
	switch language {
	case "python", "rust", "golang":
		return c.chunkByPatterns(content, language)
	case "javascript", "typescript":
		return c.chunkByPatterns(content, "javascript")
	default:
		return c.chunkGeneric(content, language)
	}
}

func (c *Chunker) chunkByPatterns(content, language string) []Chunk {
	lines := strings.Split(content, "\n")
	var chunks []Chunk

	for _, p := range languagePatterns[language] {
		for _, loc := range p.regex.FindAllStringIndex(content, -1) {
			startLine := strings.Count(content[:loc[0]], "\n")
			endLine := findBlockEnd(lines, startLine, language)

			chunkContent := strings.Join(lines[startLine:endLine], "\n")
			if tokenizer.CountTokens(chunkContent, c.model) <= minChunkTokens {
				continue
			}
			chunks = append(chunks, Chunk{
				Content:   chunkContent,
				StartLine: startLine,
				EndLine:   endLine,
				Type:      p.kind,
				Language:  language,
				Metadata:  map[string]string{"pattern_type": p.kind},
			})
		}
	}

	if len(chunks) == 0 {
		return c.chunkGeneric(content, language)
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].StartLine < chunks[j].StartLine
	})
	return c.optimize(chunks)
}

// findBlockEnd locates the end of the block opened at startLine: the
// first line back at or below the opening indentation for python, or the
// line where braces balance for brace languages.
func findBlockEnd(lines []string, startLine int, language string) int {
	if startLine >= len(lines) {
		return startLine
	}

	if language == "python" {
		baseIndent := indentOf(lines[startLine])
		for i := startLine + 1; i < len(lines); i++ {
			trimmed := strings.TrimSpace(lines[i])
			if trimmed == "" {
				continue
			}
			if indentOf(lines[i]) <= baseIndent {
				return i
			}
		}
		return len(lines)
	}

	braces := 0
	for i := startLine; i < len(lines); i++ {
		braces += strings.Count(lines[i], "{") - strings.Count(lines[i], "}")
		if i > startLine && braces <= 0 {
			return i + 1
		}
	}
	return len(lines)
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

// chunkGeneric cuts content into token-budget blocks, carrying a
// line-proportional overlap into each following chunk.
func (c *Chunker) chunkGeneric(content, language string) []Chunk {
	lines := strings.Split(content, "\n")
	var chunks []Chunk
	var current []string
	currentTokens := 0

	for i, line := range lines {
		lineTokens := tokenizer.CountTokens(line, c.model)

		if currentTokens+lineTokens > c.chunkSize && len(current) > 0 {
			chunks = append(chunks, Chunk{
				Content:   strings.Join(current, "\n"),
				StartLine: i - len(current),
				EndLine:   i,
				Type:      "block",
				Language:  language,
			})

			overlapLines := len(current) * c.overlap / c.chunkSize
			if overlapLines > 0 {
				current = append([]string(nil), current[len(current)-overlapLines:]...)
			} else {
				current = nil
			}
			currentTokens = 0
			for _, l := range current {
				currentTokens += tokenizer.CountTokens(l, c.model)
			}
		}

		current = append(current, line)
		currentTokens += lineTokens
	}

	if len(current) > 0 {
		chunks = append(chunks, Chunk{
			Content:   strings.Join(current, "\n"),
			StartLine: len(lines) - len(current),
			EndLine:   len(lines),
			Type:      "block",
			Language:  language,
		})
	}
	return chunks
}

// optimize re-splits chunks that grew past 1.5x the budget.
func (c *Chunker) optimize(chunks []Chunk) []Chunk {
	var out []Chunk
	for _, chunk := range chunks {
		if tokenizer.CountTokens(chunk.Content, c.model) > c.chunkSize*3/2 {
			out = append(out, c.chunkGeneric(chunk.Content, chunk.Language)...)
		} else {
			out = append(out, chunk)
		}
	}
	return out
}
