// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesize

import (
	"bytes"
	"text/template"
)

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

// reportPromptTmpl asks for the full report in the delimiter format that
// ParseSections understands.
var reportPromptTmpl = template.Must(template.New("report").Funcs(funcs).Parse(`Generate a comprehensive, in-depth academic-level research report on "{{.Topic}}".

IMPORTANT: Write the ENTIRE report in {{.Language}}.

Use the following reference material gathered from the web to inform your report.
Do not simply summarize it. Analyze, synthesize, restructure, and expand it
with your own knowledge to produce a thorough, well-organized research document.

--- REFERENCE MATERIAL ---
{{.Corpus}}
--- END REFERENCE MATERIAL ---

--- SOURCE URLS ---
{{range .Sources}}- {{.}}
{{else}}No source URLs available.
{{end}}--- END SOURCE URLS ---

The report has exactly {{len .Schema}} sections, in this order:
{{range $i, $t := .Schema}}{{inc $i}}. {{$t}}
{{end}}
OUTPUT FORMAT (mandatory):
- Start every section with a delimiter line of the form
  === SECTION n: Title ===
  where n is the section number and Title is the section title exactly as listed above.
- Write the section body on the lines after its delimiter.
- Do not write anything before the first delimiter or add sections that are not listed.
- Keep the section titles in English even when the body is in {{.Language}}.

WRITING RULES:
- Maintain a professional academic tone throughout.
- Each section must add unique value; avoid repetition.
- Provide deep analysis with at least 3-4 substantive paragraphs or structured points per section.
- Use bullet points where appropriate.
- Write every section body in {{.Language}}.
`))

// correctivePromptTmpl repeats the request after a response failed
// validation.
var correctivePromptTmpl = template.Must(template.New("corrective").Funcs(funcs).Parse(`{{.Base}}
--- STRICT REFORMAT REQUIRED ---
Your previous answer could not be used because of these problems:
{{range .Problems}}- {{.}}
{{end}}
Produce the complete report again. It must contain exactly {{len .Schema}} sections,
each starting with its delimiter line, in this exact order:
{{range $i, $t := .Schema}}=== SECTION {{inc $i}}: {{$t}} ===
{{end}}
Do not omit, merge, rename, or reorder any section.
`))

var chatPromptTmpl = template.Must(template.New("chat").Parse(`You are ScholarMind, an expert research assistant. The user has generated
a research report on "{{.Topic}}" and now wants to ask a follow-up question.

Respond in {{.Language}}.

--- RESEARCH REPORT CONTEXT ---
{{.Context}}
--- END CONTEXT ---

User question: {{.Question}}

INSTRUCTIONS:
- Answer the question based on the research context above.
- If the question is not covered by the report, use your general knowledge
  and say that the answer goes beyond the report.
- Be detailed and precise, and use bullet points where they help.
- Respond in {{.Language}}.
`))

var speechPromptTmpl = template.Must(template.New("speech").Funcs(funcs).Parse(`Generate a professional presentation speech script for the research topic "{{.Topic}}".

IMPORTANT: Write the ENTIRE speech in {{.Language}}.

The presentation has {{len .Slides}} slides and the speech should last about {{.Minutes}} minutes.

--- SLIDES ---
{{range $i, $s := .Slides}}Slide {{inc $i}}: {{$s}}
{{end}}--- END SLIDES ---

--- RESEARCH SUMMARY ---
{{.Summary}}
--- END RESEARCH SUMMARY ---

For each slide, write:
- [SLIDE X: Title] (time: MM:SS - MM:SS)
- The spoken text for that slide (2-4 paragraphs)
- Speaker notes in brackets [Tip: ...]

RULES:
- Use a professional, engaging speaking tone with transitions between slides.
- Pace the speech naturally across the {{.Minutes}}-minute duration.
- Include an opening greeting and a closing thank you.
- Write everything in {{.Language}}.
`))

type reportPromptData struct {
	Topic    string
	Language string
	Corpus   string
	Sources  []string
	Schema   []string
}

type correctivePromptData struct {
	Base     string
	Problems []string
	Schema   []string
}

type chatPromptData struct {
	Topic    string
	Language string
	Context  string
	Question string
}

type speechPromptData struct {
	Topic    string
	Language string
	Minutes  int
	Slides   []string
	Summary  string
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
