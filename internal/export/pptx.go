// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/pdiddy/scholarmind/pkg/types"
)

const (
	// MaxBullets is the bullet limit of a section slide.
	MaxBullets = 6

	maxBulletWords = 20
	maxReferences  = 10
)

// PPTXExporter renders a 16:9 deck: a title slide, one slide per section
// with bullets taken from the section body, and a references slide.
type PPTXExporter struct{}

func (*PPTXExporter) Format() Format    { return FormatPPTX }
func (*PPTXExporter) Extension() string { return "pptx" }

// Slide is the content of one generated slide.
type Slide struct {
	Title    string
	Subtitle string
	Bullets  []string
	Number   int
}

// Slides derives the deck content from report.
func Slides(report types.ResearchReport) []Slide {
	slides := []Slide{{
		Title:    report.Topic,
		Subtitle: "Research Presentation",
		Bullets: []string{
			report.GeneratedAt.UTC().Format("January 2, 2006"),
			"Powered by ScholarMind",
		},
	}}
	for _, sec := range report.Sections {
		slides = append(slides, Slide{
			Title:   fmt.Sprintf("%d. %s", sec.Index, sec.Title),
			Bullets: Bullets(sec.Body, MaxBullets),
		})
	}
	refs := report.SourceURLs
	if len(refs) > maxReferences {
		refs = refs[:maxReferences]
	}
	if len(refs) == 0 {
		refs = []string{"No web sources were used."}
	}
	slides = append(slides, Slide{Title: "References", Bullets: append([]string(nil), refs...)})

	for i := range slides {
		slides[i].Number = i + 1
	}
	return slides
}

// Bullets splits body into at most limit short bullet lines. Markdown list
// markers, headings, and bold markers are removed; long sentences are cut to
// 20 words.
func Bullets(body string, limit int) []string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.ReplaceAll(line, "**", "")
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "#")
		line = strings.TrimPrefix(strings.TrimPrefix(line, "- "), "* ")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, sentence := range splitSentences(line) {
			out = append(out, clipWords(sentence, maxBulletWords))
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}

func splitSentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if r != '.' && r != '!' && r != '?' && r != '।' {
			continue
		}
		next := i + utf8.RuneLen(r)
		if next < len(text) && text[next] != ' ' {
			continue
		}
		if s := strings.TrimSpace(text[start:next]); s != "" {
			out = append(out, s)
		}
		start = next
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func clipWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "..."
}

// Render produces the .pptx archive. Zip entry times come from the report
// so repeated renders are byte-identical.
func (*PPTXExporter) Render(report types.ResearchReport) ([]byte, error) {
	if err := validate(report); err != nil {
		return nil, err
	}
	slides := Slides(report)

	parts := []struct {
		name string
		tmpl *template.Template
		data any
	}{
		{"[Content_Types].xml", contentTypesTmpl, slides},
		{"_rels/.rels", rootRelsTmpl, nil},
		{"docProps/core.xml", corePropsTmpl, coreProps{Title: report.Topic, Created: report.GeneratedAt.UTC().Format(time.RFC3339)}},
		{"docProps/app.xml", appPropsTmpl, slides},
		{"ppt/presentation.xml", presentationTmpl, slides},
		{"ppt/_rels/presentation.xml.rels", presentationRelsTmpl, slides},
		{"ppt/slideMasters/slideMaster1.xml", slideMasterTmpl, nil},
		{"ppt/slideMasters/_rels/slideMaster1.xml.rels", slideMasterRelsTmpl, nil},
		{"ppt/slideLayouts/slideLayout1.xml", slideLayoutTmpl, nil},
		{"ppt/slideLayouts/_rels/slideLayout1.xml.rels", slideLayoutRelsTmpl, nil},
		{"ppt/theme/theme1.xml", themeTmpl, nil},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	write := func(name string, t *template.Template, data any) error {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: report.GeneratedAt.UTC(),
		})
		if err != nil {
			return err
		}
		return t.Execute(w, data)
	}

	for _, p := range parts {
		if err := write(p.name, p.tmpl, p.data); err != nil {
			return nil, fmt.Errorf("%w: writing %s: %v", types.ErrRenderFailed, p.name, err)
		}
	}
	for _, s := range slides {
		name := fmt.Sprintf("ppt/slides/slide%d.xml", s.Number)
		if err := write(name, slideTmpl, s); err != nil {
			return nil, fmt.Errorf("%w: writing %s: %v", types.ErrRenderFailed, name, err)
		}
		rels := fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", s.Number)
		if err := write(rels, slideRelsTmpl, nil); err != nil {
			return nil, fmt.Errorf("%w: writing %s: %v", types.ErrRenderFailed, rels, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: closing archive: %v", types.ErrRenderFailed, err)
	}
	return buf.Bytes(), nil
}

type coreProps struct {
	Title   string
	Created string
}

func xmlEscape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}

func newTmpl(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(template.FuncMap{
		"x":   xmlEscape,
		"add": func(a, b int) int { return a + b },
	}).Parse(text))
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

const (
	nsA = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"`
	nsR = `xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`
	nsP = `xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`

	relSlide       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	relSlideLayout = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout"
	relSlideMaster = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster"
	relTheme       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme"
)

var contentTypesTmpl = newTmpl("content-types", xmlHeader+`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>
<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>
<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>
<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>
{{range .}}<Override PartName="/ppt/slides/slide{{.Number}}.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>
{{end}}<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>
<Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/>
</Types>`)

var rootRelsTmpl = newTmpl("root-rels", xmlHeader+`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="ppt/presentation.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>
<Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties" Target="docProps/app.xml"/>
</Relationships>`)

var corePropsTmpl = newTmpl("core", xmlHeader+`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
<dc:title>{{x .Title}}</dc:title>
<dc:creator>ScholarMind</dc:creator>
<dcterms:created xsi:type="dcterms:W3CDTF">{{.Created}}</dcterms:created>
<dcterms:modified xsi:type="dcterms:W3CDTF">{{.Created}}</dcterms:modified>
</cp:coreProperties>`)

var appPropsTmpl = newTmpl("app", xmlHeader+`<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties">
<Application>ScholarMind</Application>
<Slides>{{len .}}</Slides>
</Properties>`)

var presentationTmpl = newTmpl("presentation", xmlHeader+`<p:presentation `+nsA+` `+nsR+` `+nsP+`>
<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>
<p:sldIdLst>{{range .}}<p:sldId id="{{add .Number 255}}" r:id="rId{{add .Number 1}}"/>{{end}}</p:sldIdLst>
<p:sldSz cx="12192000" cy="6858000"/>
<p:notesSz cx="6858000" cy="9144000"/>
</p:presentation>`)

var presentationRelsTmpl = newTmpl("presentation-rels", xmlHeader+`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="`+relSlideMaster+`" Target="slideMasters/slideMaster1.xml"/>
{{range .}}<Relationship Id="rId{{add .Number 1}}" Type="`+relSlide+`" Target="slides/slide{{.Number}}.xml"/>
{{end}}<Relationship Id="rId{{add (len .) 2}}" Type="`+relTheme+`" Target="theme/theme1.xml"/>
</Relationships>`)

const emptySpTree = `<p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/></p:spTree></p:cSld>`

var slideMasterTmpl = newTmpl("master", xmlHeader+`<p:sldMaster `+nsA+` `+nsR+` `+nsP+`>
`+emptySpTree+`
<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>
<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>
</p:sldMaster>`)

var slideMasterRelsTmpl = newTmpl("master-rels", xmlHeader+`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="`+relSlideLayout+`" Target="../slideLayouts/slideLayout1.xml"/>
<Relationship Id="rId2" Type="`+relTheme+`" Target="../theme/theme1.xml"/>
</Relationships>`)

var slideLayoutTmpl = newTmpl("layout", xmlHeader+`<p:sldLayout `+nsA+` `+nsR+` `+nsP+` type="blank" preserve="1">
`+emptySpTree+`
<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>
</p:sldLayout>`)

var slideLayoutRelsTmpl = newTmpl("layout-rels", xmlHeader+`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="`+relSlideMaster+`" Target="../slideMasters/slideMaster1.xml"/>
</Relationships>`)

var slideRelsTmpl = newTmpl("slide-rels", xmlHeader+`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="`+relSlideLayout+`" Target="../slideLayouts/slideLayout1.xml"/>
</Relationships>`)

// slideTmpl draws a dark background, a title box, an optional subtitle and
// a bulleted body box.
var slideTmpl = newTmpl("slide", xmlHeader+`<p:sld `+nsA+` `+nsR+` `+nsP+`>
<p:cSld>
<p:bg><p:bgPr><a:solidFill><a:srgbClr val="0B0B1E"/></a:solidFill><a:effectLst/></p:bgPr></p:bg>
<p:spTree>
<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>
<p:grpSpPr/>
<p:sp>
<p:nvSpPr><p:cNvPr id="2" name="Title"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>
<p:spPr><a:xfrm><a:off x="609600" y="381000"/><a:ext cx="10972800" cy="1143000"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>
<p:txBody><a:bodyPr wrap="square"><a:normAutofit/></a:bodyPr><a:lstStyle/>
<a:p><a:r><a:rPr lang="en-US" sz="{{if eq .Number 1}}4000{{else}}2800{{end}}" b="1"><a:solidFill><a:srgbClr val="8B83FF"/></a:solidFill></a:rPr><a:t>{{x .Title}}</a:t></a:r></a:p>
{{if .Subtitle}}<a:p><a:r><a:rPr lang="en-US" sz="1800"><a:solidFill><a:srgbClr val="B0B0CC"/></a:solidFill></a:rPr><a:t>{{x .Subtitle}}</a:t></a:r></a:p>
{{end}}</p:txBody>
</p:sp>
<p:sp>
<p:nvSpPr><p:cNvPr id="3" name="Body"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>
<p:spPr><a:xfrm><a:off x="609600" y="1676400"/><a:ext cx="10972800" cy="4572000"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>
<p:txBody><a:bodyPr wrap="square"><a:normAutofit/></a:bodyPr><a:lstStyle/>
{{range .Bullets}}<a:p><a:pPr marL="342900" indent="-342900"><a:buFont typeface="Arial"/><a:buChar char="&#8226;"/></a:pPr><a:r><a:rPr lang="en-US" sz="1600"><a:solidFill><a:srgbClr val="E0E0F0"/></a:solidFill></a:rPr><a:t>{{x .}}</a:t></a:r></a:p>
{{else}}<a:p><a:endParaRPr lang="en-US"/></a:p>
{{end}}</p:txBody>
</p:sp>
</p:spTree>
</p:cSld>
<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>
</p:sld>`)

var themeTmpl = newTmpl("theme", xmlHeader+`<a:theme `+nsA+` name="ScholarMind">
<a:themeElements>
<a:clrScheme name="ScholarMind">
<a:dk1><a:srgbClr val="000000"/></a:dk1><a:lt1><a:srgbClr val="FFFFFF"/></a:lt1>
<a:dk2><a:srgbClr val="0B0B1E"/></a:dk2><a:lt2><a:srgbClr val="E0E0F0"/></a:lt2>
<a:accent1><a:srgbClr val="6C63FF"/></a:accent1><a:accent2><a:srgbClr val="8B83FF"/></a:accent2>
<a:accent3><a:srgbClr val="4C43CF"/></a:accent3><a:accent4><a:srgbClr val="B0B0CC"/></a:accent4>
<a:accent5><a:srgbClr val="141430"/></a:accent5><a:accent6><a:srgbClr val="2A2A4A"/></a:accent6>
<a:hlink><a:srgbClr val="8B83FF"/></a:hlink><a:folHlink><a:srgbClr val="6C63FF"/></a:folHlink>
</a:clrScheme>
<a:fontScheme name="ScholarMind">
<a:majorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>
<a:minorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont>
</a:fontScheme>
<a:fmtScheme name="ScholarMind">
<a:fillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:fillStyleLst>
<a:lnStyleLst><a:ln w="9525"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln w="19050"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln w="28575"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln></a:lnStyleLst>
<a:effectStyleLst><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle></a:effectStyleLst>
<a:bgFillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:bgFillStyleLst>
</a:fmtScheme>
</a:themeElements>
</a:theme>`)
