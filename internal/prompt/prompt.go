// Package prompt holds the chat prompt templates used by the
// summarization engine. Template choice affects prompt text only, never
// control flow.
package prompt

import (
	"fmt"

	"github.com/loomshed/codedigest/pkg/types"
)

const fileSystemPrompt = "You are a senior software engineer analyzing code. " +
	"Provide a concise, technical summary of the given code file. " +
	"Focus on:\n" +
	"- Primary purpose and functionality\n" +
	"- Key data structures and their roles\n" +
	"- Public API/interface (functions, methods, exports)\n" +
	"- Important algorithms or business logic\n" +
	"- Dependencies and integrations\n" +
	"- Notable patterns or architectural decisions\n\n" +
	"Be precise and use technical terminology. " +
	"Limit response to 300 tokens maximum."

const chunkSystemPrompt = "You are analyzing a code chunk. " +
	"Provide a brief summary focusing on:\n" +
	"- What this code does\n" +
	"- Key functions/methods and their purpose\n" +
	"- Important data structures\n" +
	"- Any notable patterns or algorithms\n\n" +
	"Keep it concise (under 150 tokens)."

const aggregateSystemPrompt = "Combine and synthesize the following file summaries " +
	"into a cohesive project overview. Organize by:\n" +
	"- Project structure and architecture\n" +
	"- Key modules and their responsibilities\n" +
	"- Main functionality and features\n" +
	"- Technology stack and dependencies\n" +
	"- Notable patterns and design decisions\n\n" +
	"Create a professional summary suitable for technical documentation."

// File renders the full-file summarization prompt, used when content is
// large enough that the more structured system prompt pays off.
func File(identifier, language, content string) []types.ChatMessage {
	return []types.ChatMessage{
		{Role: "system", Content: fileSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("File: %s\nLanguage: %s\nContent:\n%s", identifier, language, content)},
	}
}

// Chunk renders the short-form prompt used for sub-file chunks and small
// files.
func Chunk(chunkType, language, content string) []types.ChatMessage {
	return []types.ChatMessage{
		{Role: "system", Content: chunkSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Chunk type: %s\nLanguage: %s\nContent:\n%s", chunkType, language, content)},
	}
}

// Aggregate renders the reduction prompt combining multiple summaries
// into one.
func Aggregate(summaries string) []types.ChatMessage {
	return []types.ChatMessage{
		{Role: "system", Content: aggregateSystemPrompt},
		{Role: "user", Content: "File summaries:\n" + summaries},
	}
}
