// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/scholarmind/pkg/types"
)

// EmptySectionPlaceholder replaces a section body the model left empty.
const EmptySectionPlaceholder = "No content was generated for this section."

// RawSection is one delimited block of model output before validation.
type RawSection struct {
	Number int
	Title  string
	Body   string
}

// delimiterRe matches "=== SECTION n: Title ===" once heading and bold
// markers are removed. The trailing equals signs are optional.
var delimiterRe = regexp.MustCompile(`(?i)^=+\s*section\s+(\d+)\s*[:.\-]?\s*(.*?)\s*=*$`)

// ParseSections splits raw model output on section delimiter lines. Text
// before the first delimiter and code fence lines are dropped.
func ParseSections(raw string) []RawSection {
	var sections []RawSection
	var body []string
	current := -1

	flush := func() {
		if current < 0 {
			return
		}
		sections[current].Body = strings.TrimSpace(strings.Join(body, "\n"))
		body = nil
	}

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if num, title, ok := parseDelimiter(trimmed); ok {
			flush()
			sections = append(sections, RawSection{Number: num, Title: title})
			current = len(sections) - 1
			continue
		}
		if current >= 0 {
			body = append(body, line)
		}
	}
	body = dropWrapperFence(body)
	flush()
	return sections
}

// dropWrapperFence cuts the last section's body at an unpaired closing
// fence, which belongs to a code block wrapping the whole response.
// Balanced fences inside the body are kept.
func dropWrapperFence(body []string) []string {
	last, count := -1, 0
	for i, line := range body {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			last = i
			count++
		}
	}
	if count%2 == 0 {
		return body
	}
	return body[:last]
}

func parseDelimiter(line string) (int, string, bool) {
	line = strings.TrimLeft(line, "#")
	line = strings.ReplaceAll(line, "**", "")
	line = strings.TrimSpace(line)
	m := delimiterRe.FindStringSubmatch(line)
	if m == nil {
		return 0, "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return n, strings.TrimSpace(m[2]), true
}

// SectionError lists every way a response failed the section schema.
type SectionError struct {
	Problems []string
}

func (e *SectionError) Error() string {
	return "invalid sections: " + strings.Join(e.Problems, "; ")
}

// ValidateSections checks raw against schema: same count, titles equal by
// position ignoring case and surrounding space. Empty bodies are replaced
// with EmptySectionPlaceholder. Titles in the result are the schema's.
func ValidateSections(raw []RawSection, schema []string) ([]types.ReportSection, error) {
	var problems []string

	present := make(map[string]bool, len(raw))
	for _, s := range raw {
		present[titleKey(s.Title)] = true
	}
	for i, title := range schema {
		if !present[titleKey(title)] {
			problems = append(problems, fmt.Sprintf("missing section %d (%s)", i+1, title))
		}
	}

	if len(raw) != len(schema) {
		problems = append(problems, fmt.Sprintf("got %d sections, want %d", len(raw), len(schema)))
	} else {
		for i, s := range raw {
			if titleKey(s.Title) != titleKey(schema[i]) && present[titleKey(schema[i])] {
				problems = append(problems, fmt.Sprintf("section %d is %q, want %q", i+1, s.Title, schema[i]))
			}
		}
	}
	if len(problems) > 0 {
		return nil, &SectionError{Problems: problems}
	}

	out := make([]types.ReportSection, len(schema))
	for i, s := range raw {
		body := s.Body
		if strings.TrimSpace(body) == "" {
			body = EmptySectionPlaceholder
		}
		out[i] = types.ReportSection{Index: i + 1, Title: schema[i], Body: body}
	}
	return out, nil
}

func titleKey(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}
