// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/scholarmind/pkg/types"
)

type jsonExporter struct{}

func (jsonExporter) Format() Format    { return FormatJSON }
func (jsonExporter) Extension() string { return "json" }

func (jsonExporter) Render(report types.ResearchReport) ([]byte, error) {
	if err := validate(report); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling JSON: %v", types.ErrRenderFailed, err)
	}
	return append(data, '\n'), nil
}

type yamlExporter struct{}

func (yamlExporter) Format() Format    { return FormatYAML }
func (yamlExporter) Extension() string { return "yaml" }

func (yamlExporter) Render(report types.ResearchReport) ([]byte, error) {
	if err := validate(report); err != nil {
		return nil, err
	}
	data, err := yaml.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling YAML: %v", types.ErrRenderFailed, err)
	}
	return data, nil
}

type markdownExporter struct{}

func (markdownExporter) Format() Format    { return FormatMarkdown }
func (markdownExporter) Extension() string { return "md" }

func (markdownExporter) Render(report types.ResearchReport) ([]byte, error) {
	if err := validate(report); err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", report.Topic)
	fmt.Fprintf(&b, "_Research report generated %s in %s._\n\n",
		report.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"), report.Language)
	for _, sec := range report.Sections {
		fmt.Fprintf(&b, "## %d. %s\n\n%s\n\n", sec.Index, sec.Title, strings.TrimSpace(sec.Body))
	}
	b.WriteString("## References\n\n")
	if len(report.SourceURLs) == 0 {
		b.WriteString("No web sources were used.\n")
	}
	for i, u := range report.SourceURLs {
		fmt.Fprintf(&b, "%d. <%s>\n", i+1, u)
	}
	return []byte(b.String()), nil
}

// LoadReport decodes a report previously written by the JSON or YAML
// exporter. The format is chosen by the first non-space byte.
func LoadReport(data []byte) (types.ResearchReport, error) {
	var r types.ResearchReport
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal(data, &r); err != nil {
			return r, fmt.Errorf("decoding JSON report: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("decoding YAML report: %w", err)
	}
	if err := r.Validate(); err != nil {
		return types.ResearchReport{}, fmt.Errorf("invalid report: %w", err)
	}
	return r, nil
}
