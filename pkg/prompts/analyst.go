// Package prompts builds the text sent to the generation model.
package prompts

import (
	"fmt"
	"strings"
)

// MaxContextSnippets caps the metadata snippets embedded in one prompt.
const MaxContextSnippets = 12

// AnalystSystemMessage frames every question-answering call.
const AnalystSystemMessage = "You are an expert data analyst working with a Snowflake data warehouse. " +
	"Given database metadata context and a business question, produce: " +
	"1) a concise business insight in simple English, " +
	"2) one Snowflake SQL query to answer it, " +
	"3) suggested chart type. " +
	"Only generate valid Snowflake SQL; NEVER drop or modify data."

// BuildQuestionPrompt embeds at most maxSnippets context snippets (or
// MaxContextSnippets when maxSnippets <= 0) followed by the question and the
// expected JSON shape.
func BuildQuestionPrompt(snippets []string, question string, maxSnippets int) string {
	if maxSnippets <= 0 {
		maxSnippets = MaxContextSnippets
	}
	if len(snippets) > maxSnippets {
		snippets = snippets[:maxSnippets]
	}

	var b strings.Builder
	b.WriteString("METADATA CONTEXT:\n")
	b.WriteString(strings.Join(snippets, "\n\n"))
	b.WriteString("\n\nQUESTION:\n")
	b.WriteString(question)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Respond in JSON with keys: insight, sql, chart_type (one of %s).",
		strings.Join(ChartTypes, ", "))
	return b.String()
}

// ChartTypes lists the chart hints the model may choose from, in prompt order.
var ChartTypes = []string{"line", "bar", "area", "scatter", "table"}
