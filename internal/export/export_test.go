// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/scholarmind/pkg/types"
)

func sampleReport() types.ResearchReport {
	r := types.ResearchReport{
		ID:          "6f1c2b1e-0000-4000-8000-000000000001",
		Topic:       "Quantum Computing",
		Language:    "English",
		GeneratedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		SourceURLs: []string{
			"https://en.wikipedia.org/wiki/Quantum_computing",
			"https://example.com/qubits",
		},
	}
	for i, title := range types.CanonicalSections {
		r.Sections = append(r.Sections, types.ReportSection{
			Index: i + 1,
			Title: title,
			Body: fmt.Sprintf("**%s** matters for quantum computing. Qubits hold superpositions. "+
				"Entanglement links qubits.\n\n- Error correction is hard.\n- Decoherence limits depth.\n"+
				"Gate fidelities improve yearly. Hardware scales slowly. Algorithms keep evolving.", title),
		})
	}
	return r
}

func TestRenderAllFormatsIdempotent(t *testing.T) {
	report := sampleReport()
	for _, f := range Formats() {
		t.Run(string(f), func(t *testing.T) {
			first, err := Render(report, f)
			require.NoError(t, err)
			require.NotEmpty(t, first)
			second, err := Render(report, f)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(first, second), "render must be byte-identical")
		})
	}
}

func TestRenderRejectsInvalidReport(t *testing.T) {
	missing := sampleReport()
	missing.Sections = missing.Sections[:12]

	emptyBody := sampleReport()
	emptyBody.Sections[3].Body = "  "

	wrongTitle := sampleReport()
	wrongTitle.Sections[0].Title = "Summary"

	for name, r := range map[string]types.ResearchReport{
		"twelve sections": missing,
		"empty body":      emptyBody,
		"wrong title":     wrongTitle,
	} {
		for _, f := range Formats() {
			_, err := Render(r, f)
			assert.True(t, errors.Is(err, types.ErrRenderFailed), "%s/%s: %v", name, f, err)
		}
	}
}

func TestRenderDoesNotMutate(t *testing.T) {
	report := sampleReport()
	before := report.Clone()
	for _, f := range Formats() {
		_, err := Render(report, f)
		require.NoError(t, err)
	}
	assert.Equal(t, before, report)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"pdf", FormatPDF},
		{" PPTX ", FormatPPTX},
		{"ppt", FormatPPTX},
		{"md", FormatMarkdown},
		{"markdown", FormatMarkdown},
		{"json", FormatJSON},
		{"yml", FormatYAML},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseFormat("docx")
	assert.ErrorContains(t, err, "unsupported export format")

	_, err = Render(sampleReport(), "docx")
	assert.Error(t, err)
}

func TestPDFContent(t *testing.T) {
	data, err := Render(sampleReport(), FormatPDF)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	text := string(data)
	assert.Contains(t, text, "Quantum Computing")
	assert.Contains(t, text, "1. Executive Summary")
	assert.Contains(t, text, "9. Comparative Analysis")
	assert.Contains(t, text, "References")
	assert.Contains(t, text, "https://example.com/qubits")
}

func TestPDFMissingFontFile(t *testing.T) {
	e := &PDFExporter{FontFile: filepath.Join(t.TempDir(), "missing.ttf")}
	_, err := e.Render(sampleReport())
	assert.True(t, errors.Is(err, types.ErrRenderFailed))
}

func unzip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	files := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		files[f.Name] = string(b)
	}
	return files
}

func wellFormedXML(t *testing.T, name, doc string) {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(doc))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return
		}
		require.NoError(t, err, name)
	}
}

func TestPPTXStructure(t *testing.T) {
	data, err := Render(sampleReport(), FormatPPTX)
	require.NoError(t, err)
	files := unzip(t, data)

	for _, name := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"ppt/presentation.xml",
		"ppt/_rels/presentation.xml.rels",
		"ppt/slideMasters/slideMaster1.xml",
		"ppt/slideLayouts/slideLayout1.xml",
		"ppt/theme/theme1.xml",
	} {
		require.Contains(t, files, name)
	}

	slideCount := 0
	for name, doc := range files {
		wellFormedXML(t, name, doc)
		if strings.HasPrefix(name, "ppt/slides/slide") {
			slideCount++
		}
	}
	assert.Equal(t, types.SectionCount+2, slideCount)

	assert.Contains(t, files["ppt/slides/slide1.xml"], "<a:t>Quantum Computing</a:t>")
	assert.Contains(t, files["ppt/slides/slide2.xml"], "<a:t>1. Executive Summary</a:t>")
	assert.Contains(t, files["ppt/slides/slide4.xml"], "3. Historical Background &amp; Evolution")
	assert.Contains(t, files["ppt/slides/slide15.xml"], "https://example.com/qubits")
	assert.Contains(t, files["ppt/presentation.xml"], `r:id="rId16"`)
	assert.Contains(t, files["ppt/_rels/presentation.xml.rels"], `Id="rId17"`)
}

func TestSlidesBulletLimit(t *testing.T) {
	slides := Slides(sampleReport())
	require.Len(t, slides, types.SectionCount+2)
	for _, s := range slides[1 : len(slides)-1] {
		assert.NotEmpty(t, s.Bullets, s.Title)
		assert.LessOrEqual(t, len(s.Bullets), MaxBullets, s.Title)
	}
	assert.Equal(t, "References", slides[len(slides)-1].Title)
	assert.Equal(t, len(slides), slides[len(slides)-1].Number)
}

func TestBullets(t *testing.T) {
	body := "## Overview\n**Qubits** hold superpositions. Version 2.5 shipped!\n\n- Error correction is hard.\n* Decoherence limits depth"
	assert.Equal(t, []string{
		"Overview",
		"Qubits hold superpositions.",
		"Version 2.5 shipped!",
		"Error correction is hard.",
		"Decoherence limits depth",
	}, Bullets(body, 10))

	assert.Len(t, Bullets(body, 2), 2)

	long := strings.Repeat("word ", 30)
	got := Bullets(long, 6)
	require.Len(t, got, 1)
	assert.True(t, strings.HasSuffix(got[0], "..."))
	assert.Len(t, strings.Fields(strings.TrimSuffix(got[0], "...")), 20)

	assert.Equal(t, []string{"क्वांटम कंप्यूटिंग।", "यह नया है।"}, Bullets("क्वांटम कंप्यूटिंग। यह नया है।", 6))
}

func TestMarkdown(t *testing.T) {
	data, err := Render(sampleReport(), FormatMarkdown)
	require.NoError(t, err)
	md := string(data)
	assert.True(t, strings.HasPrefix(md, "# Quantum Computing\n"))
	assert.Contains(t, md, "## 13. Future Scope & Conclusion")
	assert.Contains(t, md, "## References\n\n1. <https://en.wikipedia.org/wiki/Quantum_computing>\n2. <https://example.com/qubits>\n")
}

func TestJSONAndYAMLLoadBack(t *testing.T) {
	report := sampleReport()

	data, err := Render(report, FormatJSON)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "Quantum Computing", decoded["topic"])

	got, err := LoadReport(data)
	require.NoError(t, err)
	assert.Equal(t, report.Sections, got.Sections)
	assert.True(t, report.GeneratedAt.Equal(got.GeneratedAt))

	data, err = Render(report, FormatYAML)
	require.NoError(t, err)
	var node map[string]any
	require.NoError(t, yaml.Unmarshal(data, &node))
	assert.Equal(t, report.ID, node["id"])

	got, err = LoadReport(data)
	require.NoError(t, err)
	assert.Equal(t, report.SourceURLs, got.SourceURLs)
}

func TestLoadReportInvalid(t *testing.T) {
	_, err := LoadReport([]byte(`{"topic":"x","sections":[]}`))
	assert.ErrorContains(t, err, "invalid report")

	_, err = LoadReport([]byte("{not json"))
	assert.ErrorContains(t, err, "decoding JSON report")
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := WriteFile(dir, sampleReport(), FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "quantum-computing.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Quantum Computing")
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Quantum Computing":         "quantum-computing",
		"  CRISPR / Cas9: gene-edit": "crispr-cas9-gene-edit",
		"क्वांटम कंप्यूटिंग":         "क्वांटम-कंप्यूटिंग",
		"???":                       "report",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slug(in), in)
	}
}

func TestWriteWithExporter(t *testing.T) {
	dir := t.TempDir()
	path, err := Write(dir, sampleReport(), &yamlExporter{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "quantum-computing.yaml"), path)

	_, err = Write(dir, sampleReport(), &PDFExporter{FontFile: filepath.Join(dir, "missing.ttf")})
	assert.True(t, errors.Is(err, types.ErrRenderFailed))
	_, statErr := os.Stat(filepath.Join(dir, "quantum-computing.pdf"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRenderCustomSchema(t *testing.T) {
	schema := []string{"Overview", "Details", "Outlook"}
	r := sampleReport()
	r.Schema = schema
	r.Sections = nil
	for i, title := range schema {
		r.Sections = append(r.Sections, types.ReportSection{Index: i + 1, Title: title, Body: "Qubits hold superpositions. Entanglement links qubits."})
	}

	for _, f := range Formats() {
		data, err := Render(r, f)
		require.NoError(t, err, f)
		require.NotEmpty(t, data, f)
	}
	files := unzip(t, mustRender(t, r, FormatPPTX))
	assert.Contains(t, files["ppt/slides/slide4.xml"], "3. Outlook")
	assert.Contains(t, files, "ppt/slides/slide5.xml")
	assert.NotContains(t, files, "ppt/slides/slide6.xml")

	data := mustRender(t, r, FormatJSON)
	got, err := LoadReport(data)
	require.NoError(t, err)
	assert.Equal(t, schema, got.Schema)

	r.Sections[1].Title = "Executive Summary"
	_, err = Render(r, FormatPDF)
	assert.True(t, errors.Is(err, types.ErrRenderFailed))
}

func mustRender(t *testing.T, r types.ResearchReport, f Format) []byte {
	t.Helper()
	data, err := Render(r, f)
	require.NoError(t, err)
	return data
}

func hindiReport() types.ResearchReport {
	r := sampleReport()
	r.Language = "Hindi"
	for i := range r.Sections {
		r.Sections[i].Body = "क्वांटम कंप्यूटिंग एक नई तकनीक है।"
	}
	return r
}

func TestPDFNonLatinNeedsFont(t *testing.T) {
	_, err := Render(hindiReport(), FormatPDF)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrRenderFailed))
	assert.ErrorContains(t, err, "Hindi text needs a Unicode font")

	topic := sampleReport()
	topic.Topic = "क्वांटम कंप्यूटिंग"
	_, err = Render(topic, FormatPDF)
	assert.True(t, errors.Is(err, types.ErrRenderFailed))

	latin := sampleReport()
	latin.Topic = "Schrödinger's Cat: Überblick"
	_, err = Render(latin, FormatPDF)
	assert.NoError(t, err)

	for _, f := range []Format{FormatPPTX, FormatMarkdown, FormatJSON, FormatYAML} {
		data, err := Render(hindiReport(), f)
		require.NoError(t, err, f)
		assert.NotEmpty(t, data)
	}
	md := mustRender(t, hindiReport(), FormatMarkdown)
	assert.Contains(t, string(md), "क्वांटम कंप्यूटिंग एक नई तकनीक है।")
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "quantum-computing.pptx", FileName(sampleReport(), &PPTXExporter{}))
	e, err := Lookup(FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "quantum-computing.md", FileName(sampleReport(), e))
}
