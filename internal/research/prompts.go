package research

import (
	"fmt"

	"github.com/webscout/orchestrator/internal/llm"
)

const plannerSystemPrompt = `You are a research planning assistant. Your job is to break down a user's research question into the requested number of specific, searchable sub-queries.

Each sub-query should:
- Be specific and focused
- Target different aspects of the main question
- Be optimized for web search (clear, concise keywords)

Respond with valid JSON in this exact format:
{"queries": ["query1", "query2", "query3"]}

Example (3 queries):
User: "Is AI dangerous?"
Response: {"queries": ["AI safety risks and potential dangers 2024", "Benefits of artificial intelligence for society", "AI regulation and safety measures worldwide"]}`

const filterSystemPrompt = `You are a relevance filter for a research assistant. You receive a research question and a numbered batch of search results.

Select the results that directly help answer the question. Be strict: skip results that are off-topic, duplicated, or too thin to be useful.

Respond with valid JSON in this exact format:
{"relevant_indices": [0, 2]}

Use the numbers shown in square brackets. Return an empty list if nothing is relevant.`

const narrativeSystemPrompt = `You are a research report writer. Using only the numbered sources provided, write a comprehensive, well-structured markdown answer to the user's question.

Requirements:
- Use markdown formatting (headers, bullet points, bold text)
- Cite sources with bare numeric markers such as [1] or [2] placed right after the claim they support
- Only use numbers that appear in the sources; never write titles, URLs, or links for citations
- Do not add a Sources or References section; it is appended automatically
- If sources conflict, acknowledge the different perspectives
- End with a brief summary or conclusion`

var plannerSchema = &llm.Schema{
	Name: "research_plan",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"queries": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required":             []string{"queries"},
		"additionalProperties": false,
	},
}

var filterSchema = &llm.Schema{
	Name: "relevance_decision",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"relevant_indices": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "integer"},
			},
		},
		"required":             []string{"relevant_indices"},
		"additionalProperties": false,
	},
}

func plannerUserPrompt(question string, n int) string {
	return fmt.Sprintf("Break down this research question into %d specific search queries:\n\n%s", n, question)
}

func filterUserPrompt(question, summaries string) string {
	return fmt.Sprintf("Research Question: %s\n\nSearch Results:\n\n%s\n\nWhich results are relevant to answering the research question?", question, summaries)
}

func narrativeUserPrompt(question, context string) string {
	return fmt.Sprintf("Research Question: %s\n\nSources:\n\n%s\n\nWrite a comprehensive research report answering the question above, citing the sources by number.", question, context)
}
