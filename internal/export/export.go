// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export renders a finished ResearchReport into downloadable
// artifacts: PDF, PPTX slide decks, Markdown, JSON, and YAML.
//
// Exporters are pure. They validate the report first, never mutate it, and
// produce identical bytes for identical input.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/pdiddy/scholarmind/pkg/types"
)

// Format names an export format.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatPPTX     Format = "pptx"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// Exporter renders a report in one format.
type Exporter interface {
	Format() Format
	Extension() string
	Render(report types.ResearchReport) ([]byte, error)
}

var exporters = map[Format]Exporter{
	FormatPDF:      &PDFExporter{},
	FormatPPTX:     &PPTXExporter{},
	FormatMarkdown: markdownExporter{},
	FormatJSON:     jsonExporter{},
	FormatYAML:     yamlExporter{},
}

// Formats returns the supported format names, sorted.
func Formats() []Format {
	out := make([]Format, 0, len(exporters))
	for f := range exporters {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseFormat resolves a user-supplied format name. "md", "ppt" and "yml"
// are accepted as aliases.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "md":
		return FormatMarkdown, nil
	case "ppt":
		return FormatPPTX, nil
	case "yml":
		return FormatYAML, nil
	default:
		if _, ok := exporters[f]; ok {
			return f, nil
		}
		return "", fmt.Errorf("unsupported export format %q", name)
	}
}

// Lookup returns the exporter for format.
func Lookup(format Format) (Exporter, error) {
	e, ok := exporters[format]
	if !ok {
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
	return e, nil
}

// Render renders report in format. A report that violates its structural
// invariants yields an error wrapping types.ErrRenderFailed.
func Render(report types.ResearchReport, format Format) ([]byte, error) {
	e, err := Lookup(format)
	if err != nil {
		return nil, err
	}
	return e.Render(report)
}

// FileName returns the file name e writes report to, derived from its topic.
func FileName(report types.ResearchReport, e Exporter) string {
	return Slug(report.Topic) + "." + e.Extension()
}

// WriteFile renders report into dir and returns the written path.
func WriteFile(dir string, report types.ResearchReport, format Format) (string, error) {
	e, err := Lookup(format)
	if err != nil {
		return "", err
	}
	return Write(dir, report, e)
}

// Write renders report with e into dir and returns the written path.
func Write(dir string, report types.ResearchReport, e Exporter) (string, error) {
	data, err := e.Render(report)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, FileName(report, e))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// Slug lowercases s and joins its letter and digit runs with hyphens.
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	if b.Len() == 0 {
		return "report"
	}
	return b.String()
}

func validate(report types.ResearchReport) error {
	if err := report.Validate(); err != nil {
		return fmt.Errorf("%w: %v", types.ErrRenderFailed, err)
	}
	return nil
}
