// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reason

import (
	"fmt"
	"strings"
	"text/template"
)

// Prompt templates for each call site. Every structured prompt instructs the
// model to answer with a bare JSON object so responses can be validated
// strictly.

var decomposeTmpl = template.Must(template.New("decompose").Parse(`You are a research assistant. Decompose the following research query into 3-5 specific sub-queries that together answer it comprehensively.

Research query: "{{.Query}}"

Respond with a JSON object: {"subqueries": ["...", "..."]}. Do not include any text outside the JSON object.
`))

var refineTmpl = template.Must(template.New("refine").Parse(`A search query returned too few results ({{.ResultCount}} hits). Rewrite it to improve recall using at least one of these strategies: broaden technical jargon to general terms, add or translate to alternate-language keywords, generalize the scope.

Original query: "{{.Query}}"

Respond with a JSON object: {"query": "rewritten query"}. Do not include any text outside the JSON object.
`))

var coverageTmpl = template.Must(template.New("coverage").Parse(`You are judging whether collected evidence sufficiently answers a set of research sub-queries.

Original query: "{{.Query}}"

Sub-queries:
{{range .SubQueries}}- {{.}}
{{end}}
Collected documents:
{{.Documents}}

Respond with a JSON object: {"sufficient": true|false, "missing_aspects": ["...", "..."]}. When sufficient is false, missing_aspects must name the uncovered topics, each phrased as a searchable question. Do not include any text outside the JSON object.
`))

var selectTmpl = template.Must(template.New("select").Parse(`From the documents below, select the most significant ones whose references are worth following to deepen the research. Prefer influential or foundational academic work. Select only documents that justify expansion; selecting none is acceptable.

Documents:
{{.Documents}}

Respond with a JSON object: {"identifiers": ["id1", "id2"]} using the id= values shown above. Do not include any text outside the JSON object.
`))

var contradictionsTmpl = template.Must(template.New("contradictions").Parse(`Examine the documents below for factual claims that conflict with each other. Report only genuine contradictions between two or more documents, not differences in scope or emphasis.

Topic: {{.Topic}}

Documents:
{{.Documents}}

Respond with a JSON object: {"contradictions": [{"summary": "what conflicts", "document_ids": ["id1", "id2"]}]}. Use the id= values shown above. An empty list is a valid answer. Do not include any text outside the JSON object.
`))

var outlineTmpl = template.Must(template.New("outline").Parse(`Query: "{{.Query}}"

Collected sources:
{{.Documents}}

Based on these sources, produce a detailed article outline with sections and subsections in Markdown.
`))

var articleTmpl = template.Must(template.New("article").Parse(`Write a comprehensive research article following this outline:

{{.Outline}}

Use these sources:
{{.Documents}}

Cite sources inline after each claim using the document identifier in square brackets, e.g. [2301.07041]. The article must answer: "{{.Query}}".
`))

// renderPrompt executes a template into a string.
func renderPrompt(tmpl *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", tmpl.Name(), err)
	}
	return b.String(), nil
}
